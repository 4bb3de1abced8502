package dag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/mapsql/pkg/core"
)

// entry builds a mapping that reads source and joins through ref().
func entry(path, target, source string, refJoins ...string) Entry {
	spec := &core.ModelSpec{
		Target:     tableRef(target),
		Source:     tableRef(source),
		SourceKind: core.SourceKindRef,
	}
	for _, j := range refJoins {
		spec.Joins = append(spec.Joins, core.JoinSpec{Type: core.JoinLeft, Kind: core.SourceKindRef, TableName: j})
	}
	return Entry{Path: path, Spec: spec}
}

func tableRef(s string) core.TableRef {
	for i := range len(s) {
		if s[i] == '.' {
			return core.TableRef{Schema: s[:i], Table: s[i+1:]}
		}
	}
	return core.TableRef{Table: s}
}

func sourceEntry(path, target string) Entry {
	return Entry{Path: path, Spec: &core.ModelSpec{
		Target:     tableRef(target),
		Source:     core.TableRef{Database: "DB", Schema: "RAW", Table: "X"},
		SourceKind: core.SourceKindSource,
	}}
}

func TestBuild_Levels(t *testing.T) {
	g, err := Build([]Entry{
		sourceEntry("stg.xlsx", "STG.ORDERS"),
		sourceEntry("dim.xlsx", "DW.D_OPCO"),
		entry("fact.xlsx", "DW.F_ORDERS", "stg.orders", "D_OPCO"),
		entry("agg.xlsx", "MART.A_ORDERS", "DW.F_ORDERS"),
	})
	require.NoError(t, err)

	assert.Equal(t, 4, g.Len())
	assert.Equal(t, 3, g.EdgeCount())
	assert.ElementsMatch(t, []string{"STG.ORDERS", "DW.D_OPCO"}, g.Parents("DW.F_ORDERS"))

	levels, err := g.Levels()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"DW.D_OPCO", "STG.ORDERS"},
		{"DW.F_ORDERS"},
		{"MART.A_ORDERS"},
	}, levels)

	order, err := g.Order()
	require.NoError(t, err)
	require.Len(t, order, 4)
	assert.Equal(t, "agg.xlsx", order[3].Path)
}

func TestBuild_IgnoresUnknownAndAmbiguousTables(t *testing.T) {
	g, err := Build([]Entry{
		sourceEntry("a.xlsx", "S1.DIM"),
		sourceEntry("b.xlsx", "S2.DIM"),
		entry("c.xlsx", "S3.F", "S9.ELSEWHERE", "DIM"),
	})
	require.NoError(t, err)
	assert.Zero(t, g.EdgeCount())
}

func TestBuild_DuplicateTarget(t *testing.T) {
	_, err := Build([]Entry{
		sourceEntry("a.xlsx", "DW.T"),
		sourceEntry("b.xlsx", "dw.t"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.xlsx")
	assert.Contains(t, err.Error(), "b.xlsx")
}

func TestLevels_Cycle(t *testing.T) {
	g, err := Build([]Entry{
		entry("a.xlsx", "DW.A", "DW.B"),
		entry("b.xlsx", "DW.B", "DW.A"),
	})
	require.NoError(t, err)

	_, err = g.Levels()
	require.Error(t, err)

	var cerr *CycleError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, cerr.Path[0], cerr.Path[len(cerr.Path)-1])
	assert.Contains(t, err.Error(), "DW.A")
}

func TestAddEdge_Errors(t *testing.T) {
	g := NewGraph()
	g.AddNode(&Node{ID: "A"})

	assert.Error(t, g.AddEdge("A", "missing"))
	assert.Error(t, g.AddEdge("missing", "A"))
	assert.Error(t, g.AddEdge("A", "A"))
}

func TestDownstreamAndUpstream(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"A", "B", "C", "D"} {
		g.AddNode(&Node{ID: id, Path: id + ".xlsx"})
	}
	require.NoError(t, g.AddEdge("A", "B"))
	require.NoError(t, g.AddEdge("B", "C"))
	require.NoError(t, g.AddEdge("A", "C"))

	assert.Equal(t, []string{"B", "C"}, g.Downstream("B"))
	assert.Equal(t, []string{"A", "B", "C"}, g.Downstream("A", "missing"))
	assert.Equal(t, []string{"A", "B"}, g.Upstream("C"))
	assert.Empty(t, g.Upstream("D"))

	n, ok := g.ByPath("C.xlsx")
	require.True(t, ok)
	assert.Equal(t, "C", n.ID)
}
