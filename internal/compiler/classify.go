package compiler

import (
	"strings"
	"unicode"

	"github.com/leapstack-labs/mapsql/pkg/core"
)

// ColumnKind is the classifier's verdict for one column mapping.
type ColumnKind int

// Column kinds.
const (
	// KindPassthrough is a bare column reference copied from the source.
	KindPassthrough ColumnKind = iota
	// KindComputed is an expression: literal, function call, operator, or CASE.
	KindComputed
	// KindJoinDerived carries an "=" and only documents a join relationship.
	KindJoinDerived
	// KindSequence draws from a sequence via NEXTVAL.
	KindSequence
	// KindMarker is a sheet annotation row, not a real column.
	KindMarker
)

func (k ColumnKind) String() string {
	switch k {
	case KindPassthrough:
		return "passthrough"
	case KindComputed:
		return "computed"
	case KindJoinDerived:
		return "join_derived"
	case KindSequence:
		return "sequence"
	case KindMarker:
		return "marker"
	}
	return "unknown"
}

// Selectable reports whether columns of this kind appear in generated SELECT lists.
func (k ColumnKind) Selectable() bool {
	return k == KindPassthrough || k == KindComputed
}

var computedOperators = []string{"||", "+", "-", "*", "/"}

// Classifier tags column mappings by how their logic text reads.
type Classifier struct {
	markers map[string]bool
}

// NewClassifier creates a classifier that treats the given target names as marker rows.
func NewClassifier(markerColumns []string) *Classifier {
	m := make(map[string]bool, len(markerColumns))
	for _, name := range markerColumns {
		m[name] = true
	}
	return &Classifier{markers: m}
}

// Classify returns the kind of a column mapping.
func (c *Classifier) Classify(col core.ColumnMapping) ColumnKind {
	switch {
	case c.markers[col.TargetColumn]:
		return KindMarker
	case strings.Contains(col.Logic, "="):
		return KindJoinDerived
	case strings.Contains(strings.ToUpper(col.Logic), "NEXTVAL"):
		return KindSequence
	case looksComputed(col):
		return KindComputed
	}
	return KindPassthrough
}

// looksComputed applies the text heuristics: no source, a quote, a call,
// internal whitespace, an arithmetic or concat operator, or CASE.
func looksComputed(col core.ColumnMapping) bool {
	if strings.TrimSpace(col.SourceExpr) == "" {
		return true
	}
	logic := strings.TrimSpace(col.Logic)
	if strings.ContainsAny(logic, "'(") {
		return true
	}
	if strings.IndexFunc(logic, unicode.IsSpace) >= 0 {
		return true
	}
	for _, op := range computedOperators {
		if strings.Contains(logic, op) {
			return true
		}
	}
	return strings.Contains(strings.ToUpper(logic), "CASE")
}
