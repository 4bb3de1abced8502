// Package macro generates MERGE and INSERT statements for a model, either as
// dbt macros executed through run_query or as bare SQL files.
package macro

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/mapsql/internal/compiler"
	"github.com/leapstack-labs/mapsql/pkg/core"
)

// Mode selects the output wrapping of a generated statement.
type Mode string

// Output modes.
const (
	// ModeMacro wraps the statement in a callable dbt macro.
	ModeMacro Mode = "macro"
	// ModeSQL emits the bare statement.
	ModeSQL Mode = "sql"
)

// ParseMode validates a mode name. An empty name selects ModeMacro.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeMacro, "":
		return ModeMacro, nil
	case ModeSQL:
		return ModeSQL, nil
	}
	return "", fmt.Errorf("unknown macro mode %q (want macro or sql)", s)
}

// Statement kinds used in macro names.
const (
	KindMerge  = "MERGE"
	KindInsert = "INSERT"
)

// Name returns MAC_<schema>_<table>_<kind>.
func Name(target core.TableRef, kind string) string {
	return fmt.Sprintf("MAC_%s_%s_%s", target.Schema, target.Table, kind)
}

// Generator builds merge and insert statements. It shares join, filter and
// column rules with the model compiler.
type Generator struct {
	compiler *compiler.Compiler
	logger   *slog.Logger
}

// NewGenerator creates a Generator on top of c. A nil logger discards output.
func NewGenerator(c *compiler.Compiler, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{compiler: c, logger: logger}
}

// columns returns the selectable columns in target DDL order.
func (g *Generator) columns(spec *core.ModelSpec, target compiler.Target) []core.ColumnMapping {
	return g.compiler.SelectableColumns(compiler.OrderColumns(spec.Columns, target.Columns))
}

// relations renders FROM, JOIN, WHERE and GROUP BY lines over the physical source table.
func (g *Generator) relations(spec *core.ModelSpec) []string {
	alias := g.compiler.Options().MainAlias
	lines := []string{fmt.Sprintf("FROM %s AS %s", spec.Source.Qualified(), alias)}
	lines = append(lines, g.compiler.JoinClauses(spec)...)
	if w := g.compiler.WhereClause(spec); w != "" {
		lines = append(lines, "WHERE "+w)
	}
	if gb := g.compiler.GroupByClause(spec); gb != "" {
		lines = append(lines, "GROUP BY "+gb)
	}
	return lines
}

// wrap turns a statement into a dbt macro that runs it.
func wrap(name, statement string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "{%% macro %s() %%}\n", name)
	b.WriteString("    {% set query %}\n")
	b.WriteString(statement)
	b.WriteString("\n    {% endset %}\n")
	b.WriteString("    {% set results = run_query(query) %}\n")
	b.WriteString("{% endmacro %}\n")
	return b.String()
}

func columnNames(cols []core.ColumnMapping) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = compiler.QuoteIdent(c.TargetColumn)
	}
	return out
}

func logicList(cols []core.ColumnMapping) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Logic
	}
	return out
}
