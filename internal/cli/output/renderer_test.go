package output

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  OutputMode
		isTTY bool
		want  OutputMode
	}{
		{"auto on terminal", ModeAuto, true, ModeText},
		{"auto when piped", ModeAuto, false, ModeMarkdown},
		{"empty is auto", "", false, ModeMarkdown},
		{"explicit text", ModeText, false, ModeText},
		{"explicit json", ModeJSON, true, ModeJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRendererWithTTY(&bytes.Buffer{}, &bytes.Buffer{}, tt.isTTY, tt.mode)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputMode
		wantErr bool
	}{
		{"", ModeAuto, false},
		{"text", ModeText, false},
		{"md", ModeMarkdown, false},
		{"json", ModeJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderer_PlainOutputHasNoANSI(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	r := NewRendererWithTTY(out, errOut, false, ModeText)

	r.Header(1, "Generated")
	r.Success("3 files written")
	r.StatusLine("STG.ORDERS", "failed", "missing TARGET_TABLE")
	r.Muted("state: .mapsql/state.db")
	r.Warning("no unique key")
	r.Error("boom")

	assert.False(t, ansi.MatchString(out.String()+errOut.String()))
	assert.Contains(t, out.String(), "[ok] 3 files written")
	assert.Contains(t, out.String(), "[failed] STG.ORDERS missing TARGET_TABLE")
	assert.Contains(t, errOut.String(), "[warn] no unique key")
	assert.Contains(t, errOut.String(), "[error] boom")
}

func TestRenderer_MarkdownHeader(t *testing.T) {
	out := &bytes.Buffer{}
	r := NewRendererWithTTY(out, &bytes.Buffer{}, false, ModeAuto)

	r.Header(2, "Columns")
	assert.Equal(t, "## Columns\n\n", out.String())
}

func TestRenderer_Table(t *testing.T) {
	tests := []struct {
		name    string
		mode    OutputMode
		isTTY   bool
		want    []string
		notWant []string
	}{
		{
			name:  "text draws a box",
			mode:  ModeText,
			isTTY: true,
			want:  []string{"┌", "ID", "NUMBER(38,0)"},
		},
		{
			name:    "markdown when piped",
			mode:    ModeAuto,
			want:    []string{"| ID", "| NUMBER(38,0)", "| --- |"},
			notWant: []string{"┌"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			r := NewRendererWithTTY(out, &bytes.Buffer{}, tt.isTTY, tt.mode)
			r.Table([]string{"COLUMN", "TYPE"}, [][]string{{"ID", "NUMBER(38,0)"}, {"NAME", "VARCHAR(100)"}})
			for _, w := range tt.want {
				assert.Contains(t, out.String(), w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, out.String(), w)
			}
		})
	}
}

func TestRenderer_JSON(t *testing.T) {
	out := &bytes.Buffer{}
	r := NewRendererWithTTY(out, &bytes.Buffer{}, false, ModeJSON)

	require.NoError(t, r.JSON(HistoryOutput{MappingFiles: []string{"/m/a.xlsx"}, DDLFiles: []string{}}))
	assert.JSONEq(t, `{"mapping_files":["/m/a.xlsx"],"ddl_files":[]}`, out.String())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "# Title", FormatHeader(0, "Title"))
	assert.Equal(t, "###### Deep", FormatHeader(9, "Deep"))
	assert.Equal(t, "- **Target:** STG.ORDERS", FormatKeyValue("Target", "STG.ORDERS"))
	assert.Equal(t, "```sql\nSELECT 1\n```", FormatCodeBlock("sql", "SELECT 1\n"))
	assert.Equal(t, "- a\n- b", FormatList([]string{"a", "b"}))
}
