// Package ddl parses CREATE TABLE statements into ordered columns and key facts.
//
// The parser is deliberately tolerant: individual column definitions it cannot
// make sense of are skipped, and key references to columns that do not exist
// are dropped. Only the absence of a CREATE TABLE block is an error.
package ddl

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/leapstack-labs/mapsql/pkg/core"
)

var (
	createTableRe = regexp.MustCompile(`(?is)\bCREATE\s+(?:OR\s+REPLACE\s+)?(?:(?:GLOBAL\s+|LOCAL\s+)?(?:TEMPORARY|TEMP|TRANSIENT)\s+)?TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?`)
	tableNameRe   = regexp.MustCompile(`(?is)\bCREATE\s+(?:OR\s+REPLACE\s+)?(?:(?:GLOBAL\s+|LOCAL\s+)?(?:TEMPORARY|TEMP|TRANSIENT)\s+)?TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?(?:["` + "`" + `]?(\w+)["` + "`" + `]?\.)?(?:["` + "`" + `]?(\w+)["` + "`" + `]?\.)?["` + "`" + `]?(\w+)["` + "`" + `]?`)

	primaryKeyRe  = regexp.MustCompile(`(?is)^(?:CONSTRAINT\s+\S+\s+)?PRIMARY\s+KEY\s*\(([^)]*)\)`)
	uniqueRe      = regexp.MustCompile(`(?is)^(?:CONSTRAINT\s+\S+\s+)?UNIQUE(?:\s+(?:KEY|INDEX))?(?:\s+[^\s(]+)?\s*\(([^)]*)\)`)
	constraintRe  = regexp.MustCompile(`(?is)^(?:CONSTRAINT|CHECK|FOREIGN|EXCLUDE|LIKE)\b`)
	indexDefRe    = regexp.MustCompile(`(?is)^(?:INDEX|KEY)\s*(?:[^\s(]+\s*)?\(([^)]*)\)\s*$`)
	uniqueIndexRe = regexp.MustCompile(`(?is)\bCREATE\s+UNIQUE\s+INDEX\s+(?:IF\s+NOT\s+EXISTS\s+)?[^\s(]+\s+ON\s+[^\s(]+\s*\(([^)]*)\)`)
	inlineUnique  = regexp.MustCompile(`(?i)\s+UNIQUE(?:\s+KEY)?\b`)
	inlinePrimary = regexp.MustCompile(`(?i)\s+PRIMARY\s+KEY\b`)
	numericListRe = regexp.MustCompile(`^[\d\s,]*$`)
)

// auditDefaultMarker identifies synthetic audit columns whose default is a timestamp cast.
const auditDefaultMarker = "CAST(CURRENT_TIMESTAMP"

// ParseFile reads and parses a DDL file.
func ParseFile(path string) (*core.TableSchema, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is user-selected DDL input
	if err != nil {
		return nil, fmt.Errorf("failed to read DDL file: %w", err)
	}
	schema, err := Parse(string(data))
	if err != nil {
		var perr *core.DDLParseError
		if errors.As(err, &perr) {
			perr.File = path
		}
		return nil, err
	}
	return schema, nil
}

// Parse parses DDL text containing one CREATE TABLE statement, optionally
// followed by CREATE UNIQUE INDEX statements.
func Parse(text string) (*core.TableSchema, error) {
	clean := stripLineComments(text)

	loc := createTableRe.FindStringIndex(clean)
	if loc == nil {
		return nil, &core.DDLParseError{Message: "no CREATE TABLE statement found"}
	}
	open := strings.IndexByte(clean[loc[1]:], '(')
	if open < 0 {
		return nil, &core.DDLParseError{Message: "CREATE TABLE statement has no column list"}
	}
	open += loc[1]
	closeIdx := matchingParen(clean, open)
	if closeIdx < 0 {
		return nil, &core.DDLParseError{Message: "unterminated column list in CREATE TABLE statement"}
	}

	schema := &core.TableSchema{Name: TableName(clean)}
	var uniques, primaries []string

	for _, def := range SplitTopLevel(clean[open+1 : closeIdx]) {
		def = strings.TrimSpace(def)
		if def == "" {
			continue
		}

		if m := primaryKeyRe.FindStringSubmatch(def); m != nil {
			primaries = append(primaries, splitColumnList(m[1])...)
			continue
		}
		if m := uniqueRe.FindStringSubmatch(def); m != nil {
			uniques = append(uniques, splitColumnList(m[1])...)
			continue
		}
		if constraintRe.MatchString(def) || isIndexDefinition(def) {
			continue
		}
		if strings.Contains(strings.ToUpper(removeSpaces(def)), auditDefaultMarker) {
			continue
		}

		name, rest := splitColumnDefinition(def)
		if name == "" || rest == "" {
			continue
		}
		if inlineUnique.MatchString(" " + rest) {
			uniques = append(uniques, name)
			rest = strings.TrimSpace(inlineUnique.ReplaceAllString(" "+rest, ""))
		}
		if inlinePrimary.MatchString(" " + rest) {
			primaries = append(primaries, name)
		}
		schema.Columns = append(schema.Columns, core.DDLColumn{Name: name, Type: rest})
	}

	for _, m := range uniqueIndexRe.FindAllStringSubmatch(clean, -1) {
		uniques = append(uniques, splitColumnList(m[1])...)
	}

	known := make(map[string]string, len(schema.Columns))
	for _, c := range schema.Columns {
		known[strings.ToUpper(c.Name)] = c.Name
	}
	schema.Keys = core.KeySet{
		UniqueKeys:  filterKnown(Dedup(uniques), known),
		PrimaryKeys: filterKnown(Dedup(primaries), known),
	}
	return schema, nil
}

// TableName extracts the SCHEMA.TABLE name of the first CREATE TABLE statement,
// uppercased. A database qualifier is dropped. Returns "" when none is found.
func TableName(text string) string {
	m := tableNameRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	parts := make([]string, 0, 3)
	for _, p := range m[1:] {
		if p != "" {
			parts = append(parts, strings.ToUpper(p))
		}
	}
	if len(parts) > 2 {
		parts = parts[len(parts)-2:]
	}
	return strings.Join(parts, ".")
}

// DefinesTable reports whether the DDL text creates schema.table.
func DefinesTable(text, schema, table string) bool {
	return TableName(stripLineComments(text)) == strings.ToUpper(schema+"."+table)
}

// SplitTopLevel splits s on commas that are not nested in parentheses or quotes.
func SplitTopLevel(s string) []string {
	var (
		parts []string
		depth int
		quote rune
		start int
	)
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case r == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// Dedup removes duplicates preserving first-seen order.
func Dedup(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}

func matchingParen(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func stripLineComments(s string) string {
	if !strings.Contains(s, "--") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			b.WriteByte(c)
			continue
		}
		if c == '\'' || c == '"' {
			quote = c
			b.WriteByte(c)
			continue
		}
		if c == '-' && i+1 < len(s) && s[i+1] == '-' {
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				b.WriteByte('\n')
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// splitColumnDefinition returns the unquoted column name and the remaining type/modifiers.
func splitColumnDefinition(def string) (name, rest string) {
	if def[0] == '"' || def[0] == '`' || def[0] == '[' {
		closer := def[0]
		if closer == '[' {
			closer = ']'
		}
		end := strings.IndexByte(def[1:], closer)
		if end < 0 {
			return "", ""
		}
		return def[1 : end+1], strings.TrimSpace(def[end+2:])
	}
	name, rest = def, ""
	if idx := strings.IndexAny(def, " \t\r\n"); idx >= 0 {
		name, rest = def[:idx], strings.TrimSpace(def[idx+1:])
	}
	return strings.Trim(name, "\"`"), rest
}

func splitColumnList(s string) []string {
	var cols []string
	for _, c := range strings.Split(s, ",") {
		c = strings.Trim(strings.TrimSpace(c), "\"`[]")
		// Drop ordering modifiers such as "col DESC".
		if idx := strings.IndexAny(c, " \t"); idx >= 0 {
			c = c[:idx]
		}
		if c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}

// isIndexDefinition tells MySQL-style "KEY idx (a, b)" apart from a column named KEY or INDEX.
func isIndexDefinition(def string) bool {
	m := indexDefRe.FindStringSubmatch(def)
	return m != nil && !numericListRe.MatchString(m[1])
}

func filterKnown(keys []string, known map[string]string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if name, ok := known[strings.ToUpper(k)]; ok {
			out = append(out, name)
		}
	}
	return Dedup(out)
}

func removeSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}
