package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	validOutputs     = []string{"auto", "text", "markdown", "md", "json"}
	validLogLevels   = []string{"debug", "info", "warn", "error"}
	validInsertModes = []string{"macro", "sql"}
	validArtifacts   = []string{"config", "model", "sources", "merge", "insert", "job", "schedule"}
)

// Validate checks if the configuration is valid. All problems are reported
// together.
func (c *Config) Validate() error {
	var errs []error
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir is required"))
	}
	if c.Parallelism < 1 {
		errs = append(errs, fmt.Errorf("parallelism must be at least 1, got %d", c.Parallelism))
	}
	if !oneOf(c.OutputFormat, validOutputs) {
		errs = append(errs, fmt.Errorf("output must be one of %s, got %q", strings.Join(validOutputs, "|"), c.OutputFormat))
	}
	if !oneOf(c.LogLevel, validLogLevels) {
		errs = append(errs, fmt.Errorf("log_level must be one of %s, got %q", strings.Join(validLogLevels, "|"), c.LogLevel))
	}
	if !oneOf(c.Compiler.InsertMode, validInsertModes) {
		errs = append(errs, fmt.Errorf("compiler.insert_mode must be one of %s, got %q", strings.Join(validInsertModes, "|"), c.Compiler.InsertMode))
	}
	for _, a := range c.Artifacts {
		if !oneOf(a, validArtifacts) {
			errs = append(errs, fmt.Errorf("unknown artifact %q (valid: %s)", a, strings.Join(validArtifacts, ", ")))
		}
	}
	return errors.Join(errs...)
}

// oneOf reports whether v is empty or a case-insensitive member of valid.
func oneOf(v string, valid []string) bool {
	return v == "" || slices.Contains(valid, strings.ToLower(strings.TrimSpace(v)))
}
