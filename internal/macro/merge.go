package macro

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/mapsql/internal/compiler"
	"github.com/leapstack-labs/mapsql/pkg/core"
)

// Merge builds the MERGE statement for spec. spec.UniqueKey drives the match
// condition and must not be empty.
func (g *Generator) Merge(spec *core.ModelSpec, target compiler.Target, mode Mode) (*core.Artifact, error) {
	name := Name(spec.Target, KindMerge)
	if len(spec.UniqueKey) == 0 {
		return nil, &core.MacroError{Macro: name, Message: "Unique keys must be provided for MERGE operation"}
	}
	cols := g.columns(spec, target)
	if len(cols) == 0 {
		return nil, &core.MacroError{Macro: name, Message: "no columns to merge"}
	}

	updatable := make(map[string]bool)
	for _, name := range g.compiler.MergeUpdateColumns(spec) {
		updatable[strings.ToUpper(name)] = true
	}

	using := make([]string, len(cols))
	var updates []string
	for i, c := range cols {
		col := compiler.QuoteIdent(c.TargetColumn)
		using[i] = fmt.Sprintf("        %s AS %s", c.Logic, col)
		if updatable[strings.ToUpper(c.TargetColumn)] {
			updates = append(updates, fmt.Sprintf("        target.%s = source.%s", col, col))
		}
	}
	on := make([]string, len(spec.UniqueKey))
	for i, k := range spec.UniqueKey {
		on[i] = fmt.Sprintf("target.%s = source.%s", k, k)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "MERGE INTO %s AS target\n", spec.Target.Qualified())
	b.WriteString("USING (\n    SELECT\n")
	b.WriteString(strings.Join(using, ",\n"))
	for _, line := range g.relations(spec) {
		b.WriteString("\n    " + line)
	}
	b.WriteString("\n) AS source\n")
	b.WriteString("ON " + strings.Join(on, " AND ") + "\n")
	// A key-only model has nothing to update on match.
	if len(updates) > 0 {
		b.WriteString("WHEN MATCHED THEN\n    UPDATE SET\n")
		b.WriteString(strings.Join(updates, ",\n"))
		b.WriteString("\n")
	}
	b.WriteString("WHEN NOT MATCHED THEN\n")
	fmt.Fprintf(&b, "    INSERT (%s)\n", strings.Join(columnNames(cols), ", "))
	fmt.Fprintf(&b, "    VALUES (%s);", strings.Join(logicList(cols), ", "))

	g.logger.Debug("generated merge", slog.String("macro", name), slog.Int("columns", len(cols)))
	return g.artifact(core.ArtifactMerge, name, b.String(), mode), nil
}

func (g *Generator) artifact(kind core.ArtifactKind, name, statement string, mode Mode) *core.Artifact {
	content := statement + "\n"
	if mode != ModeSQL {
		content = wrap(name, statement)
	}
	return &core.Artifact{Kind: kind, Name: name + ".sql", Content: content}
}
