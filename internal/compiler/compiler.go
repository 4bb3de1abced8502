// Package compiler turns normalized model specifications into dbt model SQL.
//
// The compiler is a pure text transform: given the same ModelSpec and target
// schema it produces byte-identical output and performs no I/O.
package compiler

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/leapstack-labs/mapsql/pkg/core"
)

// Options holds the defaults that shape generated SQL.
type Options struct {
	// MainAlias is the alias of the primary source relation.
	MainAlias string
	// AuditColumns are provenance columns kept out of MINUS comparisons.
	AuditColumns []string
	// MarkerColumns are sheet annotation rows that never become columns.
	MarkerColumns []string
	// ExcludeKeysFromMergeUpdate drops unique key columns from merge_update_columns.
	ExcludeKeysFromMergeUpdate bool
}

// DefaultOptions returns the stock compiler options.
func DefaultOptions() Options {
	return Options{
		MainAlias:                  "source",
		AuditColumns:               []string{"DATA_SRC", "CREATE_DT", "CREATE_BY", "CREATE_PGM", "UPDATE_DT", "UPDATE_BY", "UPDATE_PGM"},
		MarkerColumns:              []string{"List (Y,N)", "Table Type", "ref"},
		ExcludeKeysFromMergeUpdate: true,
	}
}

// Target carries what is known about the target table's physical shape.
type Target struct {
	Columns    []core.DDLColumn
	UniqueKeys []string
}

// TargetFromSchema adapts a parsed DDL; a nil schema yields an empty Target.
func TargetFromSchema(s *core.TableSchema) Target {
	if s == nil {
		return Target{}
	}
	return Target{Columns: s.Columns, UniqueKeys: s.Keys.UniqueKeys}
}

// Compiler generates model SQL.
type Compiler struct {
	opts       Options
	classifier *Classifier
	logger     *slog.Logger
}

// New creates a Compiler. A nil logger discards output.
func New(opts Options, logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.MainAlias == "" {
		opts.MainAlias = DefaultOptions().MainAlias
	}
	return &Compiler{
		opts:       opts,
		classifier: NewClassifier(opts.MarkerColumns),
		logger:     logger,
	}
}

// Classifier returns the column classifier the compiler uses.
func (c *Compiler) Classifier() *Classifier {
	return c.classifier
}

// Options returns the compiler options.
func (c *Compiler) Options() Options {
	return c.opts
}

// ModelFileName returns <schema>.<table>.sql.
func ModelFileName(target core.TableRef) string {
	return target.Qualified() + ".sql"
}

// CompileModel emits the model SQL for spec. spec.UniqueKey must already hold
// the resolved key for incremental models.
func (c *Compiler) CompileModel(spec *core.ModelSpec, target Target) (*core.Artifact, error) {
	if err := Validate(spec); err != nil {
		return nil, err
	}

	cols := OrderColumns(spec.Columns, target.Columns)

	var b strings.Builder
	b.WriteString(c.configBlock(spec))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "-- Model: %s\n", spec.Target.Qualified())
	fmt.Fprintf(&b, "-- Source: %s\n\n", spec.Source.FullyQualified())

	if spec.MinusLogicRequired {
		body, ok := c.minusBody(spec, cols, target)
		if ok {
			b.WriteString(body)
			b.WriteString("\n")
			return &core.Artifact{Kind: core.ArtifactModel, Name: ModelFileName(spec.Target), Content: b.String()}, nil
		}
	}

	b.WriteString(c.selectBody(spec, cols, true))
	b.WriteString("\n")
	return &core.Artifact{Kind: core.ArtifactModel, Name: ModelFileName(spec.Target), Content: b.String()}, nil
}

// Validate checks the fields every compiler needs.
func Validate(spec *core.ModelSpec) error {
	model := spec.Target.Qualified()
	switch {
	case spec.Target.Schema == "":
		return &core.ConfigError{Model: model, Field: "Target.Schema", Message: "is required"}
	case spec.Target.Table == "":
		return &core.ConfigError{Model: model, Field: "Target.Table Name", Message: "is required"}
	case spec.Source.Table == "":
		return &core.ConfigError{Model: model, Field: "Source.Table Name", Message: "is required"}
	case spec.SourceKind == core.SourceKindSource && spec.SourceName == "":
		return &core.ConfigError{Model: model, Field: "Source.Name", Message: "is required for source() references"}
	case spec.SourceKind == core.SourceKindRef && spec.Source.Schema == "":
		return &core.ConfigError{Model: model, Field: "Source.Schema", Message: "is required for ref() references"}
	case len(spec.Columns) == 0:
		return &core.ConfigError{Model: model, Field: "Columns", Message: "must not be empty"}
	}
	if _, err := core.ParseMaterialization(string(spec.Materialization)); err != nil {
		return &core.ConfigError{Model: model, Field: "Target.materialization", Message: err.Error()}
	}
	return nil
}

// OrderColumns sorts columns into target DDL order. Columns the DDL does not
// know keep their relative order after the known ones.
func OrderColumns(cols []core.ColumnMapping, ddl []core.DDLColumn) []core.ColumnMapping {
	out := append([]core.ColumnMapping(nil), cols...)
	if len(ddl) == 0 {
		return out
	}
	pos := make(map[string]int, len(ddl))
	for i, d := range ddl {
		pos[strings.ToUpper(d.Name)] = i
	}
	rank := func(c core.ColumnMapping) int {
		if p, ok := pos[strings.ToUpper(c.TargetColumn)]; ok {
			return p
		}
		return len(ddl)
	}
	slices.SortStableFunc(out, func(a, b core.ColumnMapping) int {
		return rank(a) - rank(b)
	})
	return out
}

// FromClause renders the primary relation with the model alias.
func (c *Compiler) FromClause(spec *core.ModelSpec) string {
	if spec.SourceKind == core.SourceKindRef {
		return fmt.Sprintf("{{ ref('%s') }} AS %s", spec.Source.Qualified(), c.opts.MainAlias)
	}
	return fmt.Sprintf("{{ source('%s', '%s') }} AS %s", spec.SourceName, spec.Source.Table, c.opts.MainAlias)
}

// JoinClauses renders each join on its own line.
func (c *Compiler) JoinClauses(spec *core.ModelSpec) []string {
	out := make([]string, 0, len(spec.Joins))
	for _, j := range spec.Joins {
		var rel string
		if j.Kind == core.SourceKindSource && j.SourceName != "" {
			rel = fmt.Sprintf("{{ source('%s', '%s') }}", j.SourceName, j.TableName)
		} else {
			rel = fmt.Sprintf("{{ ref('%s') }}", j.TableName)
		}
		clause := fmt.Sprintf("%s JOIN %s", j.Type, rel)
		if j.Alias != "" {
			clause += " AS " + j.Alias
		}
		if j.Condition != "" {
			clause += " ON " + QualifyCondition(j.Condition, c.opts.MainAlias)
		}
		out = append(out, clause)
	}
	return out
}

// WhereClause returns the rewritten WHERE condition, or "".
func (c *Compiler) WhereClause(spec *core.ModelSpec) string {
	return RewriteMainAlias(spec.Where, c.opts.MainAlias)
}

// GroupByClause returns the rewritten GROUP BY list, or "".
func (c *Compiler) GroupByClause(spec *core.ModelSpec) string {
	return RewriteMainAlias(spec.GroupBy, c.opts.MainAlias)
}

// SelectableColumns returns the columns that appear in SELECT lists.
func (c *Compiler) SelectableColumns(cols []core.ColumnMapping) []core.ColumnMapping {
	out := make([]core.ColumnMapping, 0, len(cols))
	for _, col := range cols {
		if c.classifier.Classify(col).Selectable() {
			out = append(out, col)
		}
	}
	return out
}

// selectBody renders SELECT ... FROM ... JOIN ... WHERE [GROUP BY].
func (c *Compiler) selectBody(spec *core.ModelSpec, cols []core.ColumnMapping, withGroupBy bool) string {
	selectable := c.SelectableColumns(cols)
	lines := make([]string, len(selectable))
	for i, col := range selectable {
		lines[i] = fmt.Sprintf("    %s as %s", col.Logic, QuoteIdent(col.TargetColumn))
	}

	var b strings.Builder
	b.WriteString("SELECT\n")
	b.WriteString(strings.Join(lines, ",\n"))
	c.writeRelations(&b, spec)
	if withGroupBy {
		if gb := c.GroupByClause(spec); gb != "" {
			b.WriteString("\nGROUP BY " + gb)
		}
	}
	return b.String()
}

func (c *Compiler) writeRelations(b *strings.Builder, spec *core.ModelSpec) {
	b.WriteString("\nFROM " + c.FromClause(spec))
	for _, j := range c.JoinClauses(spec) {
		b.WriteString("\n" + j)
	}
	if w := c.WhereClause(spec); w != "" {
		b.WriteString("\nWHERE " + w)
	}
}

// configBlock renders the {{ config(...) }} header.
func (c *Compiler) configBlock(spec *core.ModelSpec) string {
	entries := []string{
		fmt.Sprintf("materialized='%s'", spec.Materialization.DBTMaterialized()),
		fmt.Sprintf("schema='%s'", spec.Target.Schema),
	}
	var comment string

	switch spec.Materialization {
	case core.MaterializationTruncateLoad:
		entries = append(entries, fmt.Sprintf("pre_hook=\"\"\"\n        TRUNCATE TABLE %s\n    \"\"\"", spec.Target.Qualified()))
	case core.MaterializationLndLoad:
		entries = append(entries,
			fmt.Sprintf("alias='%s'", spec.Target.Table),
			fmt.Sprintf("tags='%s'", spec.Target.Table),
			fmt.Sprintf("transient=%t", spec.Transient))
	case core.MaterializationIncremental:
		if len(spec.UniqueKey) == 0 {
			c.logger.Warn("incremental model has no unique key", slog.String("model", spec.Name()))
			comment = "    /* WARNING: No unique_key specified for incremental model.\n" +
				"       This may cause duplicate records. Please specify a unique_key. */"
			break
		}
		entries = append(entries, "unique_key="+formatUniqueKey(spec.UniqueKey))
		if updates := c.MergeUpdateColumns(spec); len(updates) > 0 {
			entries = append(entries, "merge_update_columns = "+formatPyList(updates))
		}
	}

	var b strings.Builder
	b.WriteString("{{ config(\n    ")
	b.WriteString(strings.Join(entries, ",\n    "))
	if comment != "" {
		b.WriteString("\n" + comment)
	}
	b.WriteString("\n)}}")
	return b.String()
}

// MergeUpdateColumns lists the columns an incremental merge may overwrite.
func (c *Compiler) MergeUpdateColumns(spec *core.ModelSpec) []string {
	excluded := make(map[string]bool)
	for _, col := range spec.MergeUpdateExclude {
		excluded[strings.ToUpper(col)] = true
	}
	if c.opts.ExcludeKeysFromMergeUpdate {
		for _, k := range spec.UniqueKey {
			excluded[strings.ToUpper(k)] = true
		}
	}

	var out []string
	for _, col := range spec.Columns {
		if excluded[strings.ToUpper(col.TargetColumn)] {
			continue
		}
		if !c.classifier.Classify(col).Selectable() {
			continue
		}
		out = append(out, col.TargetColumn)
	}
	return out
}

func formatUniqueKey(keys []string) string {
	if len(keys) == 1 {
		return fmt.Sprintf("%q", keys[0])
	}
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = fmt.Sprintf("%q", k)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func formatPyList(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = "'" + it + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
