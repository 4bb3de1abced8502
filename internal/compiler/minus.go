package compiler

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/mapsql/pkg/core"
)

// MinusPlan splits the selectable columns of a MINUS-mode model.
type MinusPlan struct {
	// Outer columns are emitted once, above the set difference.
	Outer []core.ColumnMapping
	// Compared columns take part in the MINUS comparison.
	Compared []core.ColumnMapping
}

// PlanMinus classifies columns for change detection. Computed expressions,
// audit columns and unique-key columns outside the target's own unique set
// stay out of the comparison.
func (c *Compiler) PlanMinus(spec *core.ModelSpec, cols []core.ColumnMapping, target Target) MinusPlan {
	audit := upperSet(c.opts.AuditColumns)
	keys := upperSet(spec.UniqueKey)
	ddlKeys := upperSet(target.UniqueKeys)

	var computed, outerKeys, outerAudit []core.ColumnMapping
	var plan MinusPlan
	for _, col := range cols {
		kind := c.classifier.Classify(col)
		if !kind.Selectable() {
			continue
		}
		name := strings.ToUpper(col.TargetColumn)
		switch {
		case audit[name]:
			outerAudit = append(outerAudit, col)
		case kind == KindComputed:
			computed = append(computed, col)
		case keys[name] && !ddlKeys[name]:
			outerKeys = append(outerKeys, col)
		default:
			plan.Compared = append(plan.Compared, col)
		}
	}
	plan.Outer = append(append(computed, outerKeys...), outerAudit...)
	return plan
}

// minusBody renders the change-detection statement. It reports false when no
// column is left to compare.
func (c *Compiler) minusBody(spec *core.ModelSpec, cols []core.ColumnMapping, target Target) (string, bool) {
	plan := c.PlanMinus(spec, cols, target)
	if len(plan.Compared) == 0 {
		c.logger.Warn("minus logic requested but no columns to compare; emitting plain select",
			slog.String("model", spec.Name()))
		return "", false
	}

	inner := make([]string, len(plan.Compared))
	minusSide := make([]string, len(plan.Compared))
	for i, col := range plan.Compared {
		name := QuoteIdent(col.TargetColumn)
		if strings.TrimSpace(col.Logic) == col.TargetColumn {
			inner[i] = "    " + name
		} else {
			inner[i] = fmt.Sprintf("    %s AS %s", col.Logic, name)
		}
		minusSide[i] = "    " + name
	}

	var in strings.Builder
	in.WriteString("SELECT\n")
	in.WriteString(strings.Join(inner, ",\n"))
	c.writeRelations(&in, spec)
	in.WriteString("\n\nMINUS\n\nSELECT\n")
	in.WriteString(strings.Join(minusSide, ",\n"))
	fmt.Fprintf(&in, "\nFROM {{ source('%s', '%s') }}", spec.Target.Schema, spec.Target.Table)

	var b strings.Builder
	b.WriteString("SELECT\n")
	for _, col := range plan.Outer {
		fmt.Fprintf(&b, "    %s AS %s,\n", col.Logic, QuoteIdent(col.TargetColumn))
	}
	b.WriteString("    *\nFROM\n(\n")
	b.WriteString(indent(in.String(), "    "))
	b.WriteString("\n)")
	return b.String(), true
}

func upperSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[strings.ToUpper(it)] = true
	}
	return m
}
