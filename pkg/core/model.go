package core

import (
	"fmt"
	"strings"
)

// SourceKind tells whether a relation is bound through dbt source() or ref().
type SourceKind string

// Source kinds.
const (
	SourceKindSource SourceKind = "source"
	SourceKindRef    SourceKind = "ref"
)

// ParseSourceKind maps mapping-sheet values onto a SourceKind.
// "source" and "src" select source(); anything else is a ref.
func ParseSourceKind(s string) SourceKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "source", "src", "":
		return SourceKindSource
	default:
		return SourceKindRef
	}
}

// JoinType is the SQL join flavour of a JoinSpec.
type JoinType string

// Join types.
const (
	JoinLeft  JoinType = "LEFT"
	JoinInner JoinType = "INNER"
)

// ParseJoinType accepts LEFT, LEFT OUTER and INNER in any case.
func ParseJoinType(s string) (JoinType, error) {
	switch strings.Join(strings.Fields(strings.ToUpper(s)), " ") {
	case "LEFT", "LEFT OUTER":
		return JoinLeft, nil
	case "INNER":
		return JoinInner, nil
	default:
		return "", fmt.Errorf("unsupported join type %q (expected LEFT or INNER)", s)
	}
}

// TableRef identifies a physical or logical SQL relation.
type TableRef struct {
	Database string
	Schema   string
	Table    string
	Alias    string
}

// Qualified returns schema.table.
func (t TableRef) Qualified() string {
	return t.Schema + "." + t.Table
}

// FullyQualified returns database.schema.table, or schema.table when no database is set.
func (t TableRef) FullyQualified() string {
	if t.Database == "" {
		return t.Qualified()
	}
	return t.Database + "." + t.Schema + "." + t.Table
}

// ColumnMapping derives one target column from a verbatim SQL expression.
type ColumnMapping struct {
	// TargetColumn is the name of the produced column.
	TargetColumn string
	// SourceExpr is the "Source Table" cell; empty when the column has no source.
	SourceExpr string
	// Logic is the SQL expression producing the value.
	Logic string
}

// JoinSpec is a single row of the join table.
type JoinSpec struct {
	Type       JoinType
	Kind       SourceKind
	SourceName string
	TableName  string
	Alias      string
	Condition  string
}

// ModelSpec is the normalized mapping for one target table.
type ModelSpec struct {
	Source             TableRef
	SourceName         string
	SourceKind         SourceKind
	Target             TableRef
	Materialization    Materialization
	Columns            []ColumnMapping
	Joins              []JoinSpec
	Where              string
	GroupBy            string
	MinusLogicRequired bool
	MergeUpdateExclude []string
	Transient          bool

	// MappingUniqueKey is the raw UNIQUE_KEY header value, comma-split.
	MappingUniqueKey []string
	// UniqueKey is the resolved key set; empty until key resolution ran.
	UniqueKey []string

	// Schedule is optional scheduling metadata from the Config sheet.
	Schedule *ScheduleSpec
}

// Name returns the target schema.table used to identify the model in messages.
func (s *ModelSpec) Name() string {
	return s.Target.Qualified()
}

// TargetColumns returns the target column names in mapping order.
func (s *ModelSpec) TargetColumns() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.TargetColumn
	}
	return names
}

// Clone returns a deep copy so callers can attach resolved keys without mutating shared input.
func (s *ModelSpec) Clone() *ModelSpec {
	c := *s
	c.Columns = append([]ColumnMapping(nil), s.Columns...)
	c.Joins = append([]JoinSpec(nil), s.Joins...)
	c.MergeUpdateExclude = append([]string(nil), s.MergeUpdateExclude...)
	c.MappingUniqueKey = append([]string(nil), s.MappingUniqueKey...)
	c.UniqueKey = append([]string(nil), s.UniqueKey...)
	if s.Schedule != nil {
		sc := *s.Schedule
		sc.DependencySchemas = append([]string(nil), s.Schedule.DependencySchemas...)
		sc.DependencyObjects = append([]string(nil), s.Schedule.DependencyObjects...)
		c.Schedule = &sc
	}
	return &c
}
