// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/mapsql/internal/cli/output"
)

// Mapping describes a minimal mapping sheet fixture.
type Mapping struct {
	Target          string // SCHEMA.TABLE
	Source          string // DB.SCHEMA.TABLE
	SourceType      string // source or ref, default source
	Materialization string // default incremental
	Columns         []string
}

// Rows lays the fixture out as mapping sheet rows.
func (m Mapping) Rows() [][]string {
	sourceType := m.SourceType
	if sourceType == "" {
		sourceType = "source"
	}
	mat := m.Materialization
	if mat == "" {
		mat = "incremental"
	}
	rows := [][]string{
		{m.Target + " Mapping"},
		{"TARGET_TABLE", m.Target},
		{"SOURCE_TABLE", m.Source},
		{"SOURCE_TYPE", sourceType},
		{"MATERIALIZATION", mat},
		{"UNIQUE_KEY", ""},
		{},
		{"S.NO", "TargetColumn", "Source Table", "Logic"},
	}
	for i, c := range m.Columns {
		rows = append(rows, []string{string(rune('1' + i)), c, "T", c})
	}
	return rows
}

// WriteMapping writes the fixture as <SCHEMA>_<TABLE>.csv in dir.
func WriteMapping(t *testing.T, dir string, m Mapping) string {
	t.Helper()
	path := filepath.Join(dir, strings.ReplaceAll(m.Target, ".", "_")+".csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(m.Rows()); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("failed to close %s: %v", path, err)
	}
	return path
}

// WriteFile writes content to dir/name and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererText creates a new test renderer in text mode (simulated TTY).
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText, true)
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	if fenceCount := strings.Count(md, "```"); fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
