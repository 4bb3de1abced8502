package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/mapsql/internal/testutil"
	"github.com/leapstack-labs/mapsql/pkg/core"
)

func passthrough(names ...string) []core.ColumnMapping {
	out := make([]core.ColumnMapping, len(names))
	for i, n := range names {
		out[i] = core.ColumnMapping{TargetColumn: n, SourceExpr: n, Logic: n}
	}
	return out
}

func baseSpec() *core.ModelSpec {
	return &core.ModelSpec{
		Source:          core.TableRef{Database: "DB", Schema: "SRC", Table: "T1"},
		SourceName:      "SRC",
		SourceKind:      core.SourceKindSource,
		Target:          core.TableRef{Schema: "SCH", Table: "T2"},
		Materialization: core.MaterializationIncremental,
		Columns:         passthrough("ID", "NAME"),
		UniqueKey:       []string{"ID"},
		MergeUpdateExclude: []string{
			"CREATE_DT", "CREATE_BY", "CREATE_PGM",
		},
	}
}

func newTestCompiler(t *testing.T) *Compiler {
	return New(DefaultOptions(), testutil.NewTestLogger(t))
}

// squash collapses runs of whitespace so assertions ignore layout.
func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func TestCompileModel_EndToEnd(t *testing.T) {
	art, err := newTestCompiler(t).CompileModel(baseSpec(), Target{})
	require.NoError(t, err)

	assert.Equal(t, core.ArtifactModel, art.Kind)
	assert.Equal(t, "SCH.T2.sql", art.Name)

	want := `{{ config(
    materialized='incremental',
    schema='SCH',
    unique_key="ID",
    merge_update_columns = ['NAME']
)}}

-- Model: SCH.T2
-- Source: DB.SRC.T1

SELECT
    ID as ID,
    NAME as NAME
FROM {{ source('SRC', 'T1') }} AS source
`
	assert.Equal(t, want, art.Content)
	assert.Contains(t, squash(art.Content), "SELECT ID as ID, NAME as NAME")
}

func TestCompileModel_Idempotent(t *testing.T) {
	c := newTestCompiler(t)
	spec := baseSpec()
	spec.MinusLogicRequired = true
	spec.Joins = []core.JoinSpec{{Type: core.JoinLeft, Kind: core.SourceKindRef, TableName: "SCH.DIM", Alias: "d", Condition: "ID=d.ID"}}

	first, err := c.CompileModel(spec, Target{})
	require.NoError(t, err)
	second, err := c.CompileModel(spec, Target{})
	require.NoError(t, err)
	assert.Equal(t, first.Content, second.Content)
}

func TestCompileModel_ExcludesNonSelectableColumns(t *testing.T) {
	spec := baseSpec()
	spec.Columns = append(spec.Columns,
		core.ColumnMapping{TargetColumn: "CUST_ID", SourceExpr: "C", Logic: "CUST_ID = joined.CUST_ID"},
		core.ColumnMapping{TargetColumn: "SEQ_ID", SourceExpr: "S", Logic: "SCH.SEQ.NEXTVAL"},
		core.ColumnMapping{TargetColumn: "List (Y,N)", SourceExpr: "x", Logic: "x"},
	)

	art, err := newTestCompiler(t).CompileModel(spec, Target{})
	require.NoError(t, err)

	assert.NotContains(t, art.Content, "CUST_ID")
	assert.NotContains(t, art.Content, "NEXTVAL")
	assert.NotContains(t, art.Content, "List (Y,N)")
	assert.Contains(t, art.Content, "merge_update_columns = ['NAME']")
}

func TestCompileModel_DDLColumnOrder(t *testing.T) {
	spec := baseSpec()
	spec.Columns = passthrough("EXTRA", "NAME", "ID", "LATE")
	target := Target{Columns: []core.DDLColumn{{Name: "id"}, {Name: "name"}}}

	art, err := newTestCompiler(t).CompileModel(spec, target)
	require.NoError(t, err)
	assert.Contains(t, squash(art.Content), "SELECT ID as ID, NAME as NAME, EXTRA as EXTRA, LATE as LATE FROM")
}

func TestCompileModel_ConfigBlocks(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*core.ModelSpec)
		want   []string
		absent []string
	}{
		{
			name: "truncate load",
			modify: func(s *core.ModelSpec) {
				s.Materialization = core.MaterializationTruncateLoad
			},
			want: []string{
				"materialized='table'",
				"pre_hook=\"\"\"\n        TRUNCATE TABLE SCH.T2\n    \"\"\"",
			},
			absent: []string{"unique_key"},
		},
		{
			name: "landing load",
			modify: func(s *core.ModelSpec) {
				s.Materialization = core.MaterializationLndLoad
				s.Transient = true
			},
			want: []string{"materialized='table'", "alias='T2'", "tags='T2'", "transient=true"},
		},
		{
			name: "plain table",
			modify: func(s *core.ModelSpec) {
				s.Materialization = core.MaterializationTable
			},
			want:   []string{"{{ config(\n    materialized='table',\n    schema='SCH'\n)}}"},
			absent: []string{"merge_update_columns"},
		},
		{
			name: "composite key",
			modify: func(s *core.ModelSpec) {
				s.Columns = passthrough("A", "B", "C")
				s.UniqueKey = []string{"A", "B"}
			},
			want: []string{`unique_key=["A", "B"]`, "merge_update_columns = ['C']"},
		},
		{
			name: "merge exclusions honoured",
			modify: func(s *core.ModelSpec) {
				s.Columns = passthrough("ID", "NAME", "CREATE_DT", "UPDATE_DT")
			},
			want: []string{"merge_update_columns = ['NAME', 'UPDATE_DT']"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := baseSpec()
			tt.modify(spec)
			art, err := newTestCompiler(t).CompileModel(spec, Target{})
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, art.Content, w)
			}
			for _, a := range tt.absent {
				assert.NotContains(t, art.Content, a)
			}
		})
	}
}

func TestCompileModel_KeepsKeysInMergeUpdateWhenConfigured(t *testing.T) {
	opts := DefaultOptions()
	opts.ExcludeKeysFromMergeUpdate = false

	art, err := New(opts, nil).CompileModel(baseSpec(), Target{})
	require.NoError(t, err)
	assert.Contains(t, art.Content, "merge_update_columns = ['ID', 'NAME']")
}

func TestCompileModel_KeyOnlyModelOmitsMergeUpdateColumns(t *testing.T) {
	spec := baseSpec()
	spec.Columns = spec.Columns[:1]

	art, err := New(DefaultOptions(), nil).CompileModel(spec, Target{})
	require.NoError(t, err)
	assert.Contains(t, art.Content, `unique_key="ID"`)
	assert.NotContains(t, art.Content, "merge_update_columns")
}

func TestCompileModel_IncrementalWithoutKeyWarns(t *testing.T) {
	logger, capture := testutil.NewCaptureLogger()
	spec := baseSpec()
	spec.UniqueKey = nil

	art, err := New(DefaultOptions(), logger).CompileModel(spec, Target{})
	require.NoError(t, err)

	assert.Contains(t, art.Content, "/* WARNING: No unique_key specified for incremental model.")
	assert.NotContains(t, art.Content, "unique_key=")
	assert.Contains(t, capture.String(), "level=WARN")
	assert.Contains(t, capture.String(), "model=SCH.T2")
}

func TestCompileModel_JoinsWhereGroupBy(t *testing.T) {
	spec := baseSpec()
	spec.Joins = []core.JoinSpec{
		{Type: core.JoinLeft, Kind: core.SourceKindSource, SourceName: "SRC", TableName: "ITEMS", Alias: "items", Condition: "OPCO_ID=items.OPCO_ID"},
		{Type: core.JoinInner, Kind: core.SourceKindRef, TableName: "SCH.DIM_X", Alias: "x", Condition: "main.X_ID = x.X_ID AND x.FLAG = 'A=B'"},
	}
	spec.Where = "main.ACTIVE = 'Y'"
	spec.GroupBy = "main.ID, main.NAME"

	art, err := newTestCompiler(t).CompileModel(spec, Target{})
	require.NoError(t, err)

	assert.Contains(t, art.Content, "\nLEFT JOIN {{ source('SRC', 'ITEMS') }} AS items ON source.OPCO_ID=items.OPCO_ID")
	assert.Contains(t, art.Content, "\nINNER JOIN {{ ref('SCH.DIM_X') }} AS x ON source.X_ID = x.X_ID AND x.FLAG = 'A=B'")
	assert.Contains(t, art.Content, "\nWHERE source.ACTIVE = 'Y'\nGROUP BY source.ID, source.NAME\n")
}

func TestCompileModel_RefSource(t *testing.T) {
	spec := baseSpec()
	spec.SourceKind = core.SourceKindRef

	art, err := newTestCompiler(t).CompileModel(spec, Target{})
	require.NoError(t, err)
	assert.Contains(t, art.Content, "FROM {{ ref('SRC.T1') }} AS source")
}

func TestCompileModel_Validation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*core.ModelSpec)
		field  string
	}{
		{"missing target schema", func(s *core.ModelSpec) { s.Target.Schema = "" }, "Target.Schema"},
		{"missing source table", func(s *core.ModelSpec) { s.Source.Table = "" }, "Source.Table Name"},
		{"missing source name", func(s *core.ModelSpec) { s.SourceName = "" }, "Source.Name"},
		{"no columns", func(s *core.ModelSpec) { s.Columns = nil }, "Columns"},
		{"bad materialization", func(s *core.ModelSpec) { s.Materialization = "view" }, "Target.materialization"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := baseSpec()
			tt.modify(spec)
			_, err := newTestCompiler(t).CompileModel(spec, Target{})
			require.Error(t, err)

			var cerr *core.ConfigError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func minusSpec() *core.ModelSpec {
	spec := baseSpec()
	spec.MinusLogicRequired = true
	spec.Columns = []core.ColumnMapping{
		{TargetColumn: "ID", SourceExpr: "T1", Logic: "ID"},
		{TargetColumn: "NAME", SourceExpr: "T1", Logic: "NAME"},
		{TargetColumn: "STATUS_CD", SourceExpr: "T1", Logic: "UPPER(STATUS)"},
		{TargetColumn: "CREATE_DT", SourceExpr: "", Logic: "CURRENT_TIMESTAMP()"},
	}
	spec.Where = "main.ACTIVE = 'Y'"
	spec.GroupBy = "main.ID"
	return spec
}

func TestCompileModel_Minus(t *testing.T) {
	art, err := newTestCompiler(t).CompileModel(minusSpec(), Target{})
	require.NoError(t, err)

	want := `SELECT
    UPPER(STATUS) AS STATUS_CD,
    ID AS ID,
    CURRENT_TIMESTAMP() AS CREATE_DT,
    *
FROM
(
    SELECT
        NAME
    FROM {{ source('SRC', 'T1') }} AS source
    WHERE source.ACTIVE = 'Y'

    MINUS

    SELECT
        NAME
    FROM {{ source('SCH', 'T2') }}
)
`
	assert.True(t, strings.HasSuffix(art.Content, want), art.Content)
	assert.Equal(t, 1, strings.Count(art.Content, "MINUS"))
	assert.NotContains(t, art.Content, "GROUP BY")
}

func TestCompileModel_MinusKeyInTargetUniqueSetIsCompared(t *testing.T) {
	c := newTestCompiler(t)
	spec := minusSpec()
	target := Target{UniqueKeys: []string{"id"}}

	plan := c.PlanMinus(spec, spec.Columns, target)
	assert.Equal(t, []string{"ID", "NAME"}, names(plan.Compared))
	assert.Equal(t, []string{"STATUS_CD", "CREATE_DT"}, names(plan.Outer))
}

func TestCompileModel_MinusStructure(t *testing.T) {
	spec := minusSpec()
	spec.Columns = append(spec.Columns,
		core.ColumnMapping{TargetColumn: "CODE", SourceExpr: "T1", Logic: "source.CODE"},
		core.ColumnMapping{TargetColumn: "UPDATE_BY", SourceExpr: "", Logic: "CAST(CURRENT_USER() AS VARCHAR(200))"},
		core.ColumnMapping{TargetColumn: "DATA_SRC", SourceExpr: "", Logic: "'SCH.T2'"},
	)

	art, err := newTestCompiler(t).CompileModel(spec, Target{})
	require.NoError(t, err)

	parts := strings.Split(art.Content, "MINUS")
	require.Len(t, parts, 2)

	outerEnd := strings.Index(art.Content, "FROM\n(")
	require.Positive(t, outerEnd)
	outer := art.Content[:outerEnd]
	for _, audit := range []string{"CREATE_DT", "UPDATE_BY", "DATA_SRC"} {
		assert.Contains(t, outer, "AS "+audit)
	}

	inner := selectList(t, parts[0][strings.LastIndex(parts[0], "SELECT"):])
	minusSide := selectList(t, parts[1])
	require.Len(t, inner, len(minusSide))
	for i := range inner {
		assert.Equal(t, minusSide[i], targetName(inner[i]))
	}
	assert.Equal(t, []string{"NAME", "source.CODE AS CODE"}, inner)
}

func TestCompileModel_MinusWithoutComparableColumnsFallsBack(t *testing.T) {
	logger, capture := testutil.NewCaptureLogger()
	spec := baseSpec()
	spec.MinusLogicRequired = true
	spec.Columns = []core.ColumnMapping{
		{TargetColumn: "ID", SourceExpr: "T1", Logic: "ID"},
		{TargetColumn: "LOAD_TS", SourceExpr: "", Logic: "CURRENT_TIMESTAMP()"},
	}

	art, err := New(DefaultOptions(), logger).CompileModel(spec, Target{})
	require.NoError(t, err)

	assert.NotContains(t, art.Content, "MINUS")
	assert.Contains(t, squash(art.Content), "SELECT ID as ID, CURRENT_TIMESTAMP() as LOAD_TS FROM")
	assert.Contains(t, capture.String(), "level=WARN")
}

func TestClassify(t *testing.T) {
	c := NewClassifier(DefaultOptions().MarkerColumns)

	tests := []struct {
		col  core.ColumnMapping
		want ColumnKind
	}{
		{core.ColumnMapping{TargetColumn: "ID", SourceExpr: "T", Logic: "ID"}, KindPassthrough},
		{core.ColumnMapping{TargetColumn: "ID", SourceExpr: "T", Logic: "source.ID"}, KindPassthrough},
		{core.ColumnMapping{TargetColumn: "ID", SourceExpr: "", Logic: "ID"}, KindComputed},
		{core.ColumnMapping{TargetColumn: "X", SourceExpr: "T", Logic: "'A'"}, KindComputed},
		{core.ColumnMapping{TargetColumn: "X", SourceExpr: "T", Logic: "TRIM(X)"}, KindComputed},
		{core.ColumnMapping{TargetColumn: "X", SourceExpr: "T", Logic: "A || B"}, KindComputed},
		{core.ColumnMapping{TargetColumn: "X", SourceExpr: "T", Logic: "A-B"}, KindComputed},
		{core.ColumnMapping{TargetColumn: "X", SourceExpr: "T", Logic: "case"}, KindComputed},
		{core.ColumnMapping{TargetColumn: "X", SourceExpr: "T", Logic: "A = B"}, KindJoinDerived},
		{core.ColumnMapping{TargetColumn: "X", SourceExpr: "T", Logic: "seq.nextval"}, KindSequence},
		{core.ColumnMapping{TargetColumn: "Table Type", SourceExpr: "T", Logic: "x"}, KindMarker},
	}

	for _, tt := range tests {
		t.Run(tt.col.Logic+"/"+tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.col))
		})
	}
}

func TestQualifyCondition(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"OPCO_ID=items.OPCO_ID", "source.OPCO_ID=items.OPCO_ID"},
		{"main.A = b.A", "source.A = b.A"},
		{"x.A = b.A", "x.A = b.A"},
		{"A = b.A AND C = b.C", "source.A = b.A AND source.C = b.C"},
		{"b.FLAG = 'K=V' AND 1 = 1", "b.FLAG = 'K=V' AND 1 = 1"},
		{"A >= b.A", "A >= b.A"},
		{"\"Q\".A = b.A", "\"Q\".A = b.A"},
		{"domain.X = y.X", "domain.X = y.X"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, QualifyCondition(tt.in, "source"))
		})
	}
}

func TestCompileSources(t *testing.T) {
	spec := minusSpec()
	spec.Joins = []core.JoinSpec{
		{Type: core.JoinLeft, Kind: core.SourceKindSource, SourceName: "SRC", TableName: "ITEMS", Alias: "i"},
		{Type: core.JoinLeft, Kind: core.SourceKindSource, SourceName: "SRC", TableName: "T1", Alias: "again"},
		{Type: core.JoinLeft, Kind: core.SourceKindRef, TableName: "SCH.DIM", Alias: "d"},
	}

	art, err := newTestCompiler(t).CompileSources(spec)
	require.NoError(t, err)
	require.NotNil(t, art)
	assert.Equal(t, "SCH.T2_sources.yml", art.Name)
	assert.True(t, strings.HasPrefix(art.Content, "version: 2\n"))

	var doc SourcesFile
	require.NoError(t, yaml.Unmarshal([]byte(art.Content), &doc))
	assert.Equal(t, SourcesFile{
		Version: 2,
		Sources: []SourceEntry{
			{Name: "SRC", Database: "DB", Schema: "SRC", Tables: []SourceItem{{Name: "T1"}, {Name: "ITEMS"}}},
			{Name: "SCH", Schema: "SCH", Tables: []SourceItem{{Name: "T2"}}},
		},
	}, doc)
}

func TestCompileSources_RefOnly(t *testing.T) {
	spec := baseSpec()
	spec.SourceKind = core.SourceKindRef

	art, err := newTestCompiler(t).CompileSources(spec)
	require.NoError(t, err)
	assert.Nil(t, art)
}

func names(cols []core.ColumnMapping) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.TargetColumn
	}
	return out
}

// selectList returns the trimmed items between SELECT and the next FROM.
func selectList(t *testing.T, s string) []string {
	t.Helper()
	start := strings.Index(s, "SELECT")
	end := strings.Index(s, "FROM")
	require.True(t, start >= 0 && end > start, s)

	var out []string
	for _, item := range strings.Split(s[start+len("SELECT"):end], ",") {
		out = append(out, strings.TrimSpace(item))
	}
	return out
}

func targetName(item string) string {
	if idx := strings.LastIndex(item, " AS "); idx >= 0 {
		return item[idx+len(" AS "):]
	}
	return item
}
