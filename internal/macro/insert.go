package macro

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/mapsql/internal/compiler"
	"github.com/leapstack-labs/mapsql/pkg/core"
)

// Insert builds the INSERT ... SELECT statement for spec.
func (g *Generator) Insert(spec *core.ModelSpec, target compiler.Target, mode Mode) (*core.Artifact, error) {
	name := Name(spec.Target, KindInsert)
	cols := g.columns(spec, target)
	if len(cols) == 0 {
		return nil, &core.MacroError{Macro: name, Message: "no columns to insert"}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s)\n", spec.Target.Qualified(), strings.Join(columnNames(cols), ", "))
	fmt.Fprintf(&b, "SELECT %s", strings.Join(logicList(cols), ", "))
	for _, line := range g.relations(spec) {
		b.WriteString("\n" + line)
	}
	b.WriteString(";")

	g.logger.Debug("generated insert", slog.String("macro", name), slog.String("mode", string(mode)))
	return g.artifact(core.ArtifactInsert, name, b.String(), mode), nil
}
