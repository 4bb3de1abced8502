package core

import "fmt"

// ValidationError reports a malformed or missing mapping-sheet field.
type ValidationError struct {
	Model   string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Model != "" && e.Field != "":
		return fmt.Sprintf("%s: %s: %s", e.Model, e.Field, e.Message)
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	case e.Model != "":
		return fmt.Sprintf("%s: %s", e.Model, e.Message)
	}
	return e.Message
}

// DDLParseError reports DDL text without a usable CREATE TABLE statement.
type DDLParseError struct {
	File    string
	Message string
}

func (e *DDLParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}

// ConfigError reports a required configuration field absent at compile time.
type ConfigError struct {
	Model   string
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s %s", e.Field, e.Message)
	}
	if e.Model != "" {
		return fmt.Sprintf("%s: %s", e.Model, msg)
	}
	return msg
}

// MacroError reports a macro that cannot be generated.
type MacroError struct {
	Macro   string
	Message string
}

func (e *MacroError) Error() string {
	if e.Macro != "" {
		return fmt.Sprintf("macros/%s: %s", e.Macro, e.Message)
	}
	return e.Message
}
