package interchange

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/mapsql/pkg/core"
)

func sampleSpec() *core.ModelSpec {
	return &core.ModelSpec{
		Source:          core.TableRef{Database: "DB", Schema: "SRC", Table: "T1"},
		SourceName:      "SRC",
		SourceKind:      core.SourceKindSource,
		Target:          core.TableRef{Schema: "SCH", Table: "T2"},
		Materialization: core.MaterializationIncremental,
		Columns: []core.ColumnMapping{
			{TargetColumn: "ID", SourceExpr: "T1", Logic: "ID"},
			{TargetColumn: "CREATE_DT", Logic: "CURRENT_TIMESTAMP()"},
		},
		Joins: []core.JoinSpec{
			{Type: core.JoinLeft, Kind: core.SourceKindRef, TableName: "SCH.DIM", Alias: "d", Condition: "ID <> d.ID"},
		},
		Where:              "main.ACTIVE = 'Y'",
		MinusLogicRequired: true,
		MergeUpdateExclude: []string{"CREATE_DT"},
		UniqueKey:          []string{"ID"},
		Schedule: &core.ScheduleSpec{
			Kind:              core.ScheduleCron,
			Schedule:          "0 1 * * *",
			DependencySchemas: []string{},
			DependencyObjects: []string{},
		},
	}
}

func TestEncode_Shape(t *testing.T) {
	data, err := Encode(FromSpec(sampleSpec()))
	require.NoError(t, err)

	assert.Contains(t, string(data), `"ID <> d.ID"`, "HTML escaping must be off")
	assert.Contains(t, string(data), "\n  \"Source\": {\n")

	var raw struct {
		Source map[string]any `json:"Source"`
		Target map[string]any `json:"Target"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "T1", raw.Source["Table Name"])
	assert.Equal(t, "source", raw.Source["Type"])
	assert.Equal(t, []any{"ID"}, raw.Target["unique_key"], "single key encodes as a list")
	assert.Equal(t, "incremental", raw.Target["materialization"])

	var cols struct {
		Columns []map[string]any `json:"Columns"`
	}
	require.NoError(t, json.Unmarshal(data, &cols))
	require.Len(t, cols.Columns, 2)
	assert.Equal(t, "T1", cols.Columns[0]["Source Table"])
	assert.Nil(t, cols.Columns[1]["Source Table"])
	assert.Contains(t, cols.Columns[1], "Source Table")
}

func TestRoundTrip(t *testing.T) {
	spec := sampleSpec()
	data, err := Encode(FromSpec(spec))
	require.NoError(t, err)

	doc, err := Decode(data)
	require.NoError(t, err)
	got, err := doc.ToSpec()
	require.NoError(t, err)

	assert.Equal(t, spec.Source, got.Source)
	assert.Equal(t, spec.Target, got.Target)
	assert.Equal(t, spec.Columns, got.Columns)
	assert.Equal(t, spec.Joins, got.Joins)
	assert.Equal(t, spec.Where, got.Where)
	assert.Equal(t, spec.MinusLogicRequired, got.MinusLogicRequired)
	assert.Equal(t, spec.MergeUpdateExclude, got.MergeUpdateExclude)
	assert.Equal(t, []string{"ID"}, got.MappingUniqueKey)
	assert.Empty(t, got.UniqueKey, "keys are re-resolved after loading")
	assert.Equal(t, spec.Schedule, got.Schedule)
}

func TestDecode_WeakTyping(t *testing.T) {
	data := []byte(`{
  "Source": {"Type": "src", "Database": "DB", "Schema": "SRC", "Table Name": "T1", "Name": ""},
  "Target": {"Schema": "SCH", "Table Name": "T2", "materialization": "TRUNCATE_LOAD", "unique_key": "A, B"},
  "Columns": [
    {"Target Column": "A", "Source Table": "T1", "Logic": 1},
    {"Target Column": "B", "Source Table": null, "Logic": null}
  ],
  "DAG": {"Type": "Dataset Dependency", "Dependency Schema": "SALES", "Dependency Object": ["ORDERS"]}
}`)

	doc, err := Decode(data)
	require.NoError(t, err)
	spec, err := doc.ToSpec()
	require.NoError(t, err)

	assert.Equal(t, "SRC", spec.SourceName, "source name defaults to the source schema")
	assert.Equal(t, core.MaterializationTruncateLoad, spec.Materialization)
	assert.Equal(t, []string{"A", "B"}, spec.MappingUniqueKey)
	assert.Equal(t, []core.ColumnMapping{
		{TargetColumn: "A", SourceExpr: "T1", Logic: "1"},
		{TargetColumn: "B", Logic: "B"},
	}, spec.Columns)
	require.NotNil(t, spec.Schedule)
	assert.Equal(t, core.ScheduleDatasetDependency, spec.Schedule.Kind)
	assert.Equal(t, []string{"SALES"}, spec.Schedule.DependencySchemas)
}

func TestToSpec_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     Document
		wantCfg bool
	}{
		{"missing target schema", Document{Target: Target{Table: "T"}, Source: Source{Table: "S"}}, true},
		{"missing source table", Document{Target: Target{Schema: "S", Table: "T"}}, true},
		{"bad materialization", Document{Target: Target{Schema: "S", Table: "T", Materialization: "view"}, Source: Source{Table: "X"}}, true},
		{
			name: "duplicate column",
			doc: Document{
				Target:  Target{Schema: "S", Table: "T"},
				Source:  Source{Table: "X"},
				Columns: []Column{{TargetColumn: "A"}, {TargetColumn: "A"}},
			},
		},
		{
			name: "bad join type",
			doc: Document{
				Target: Target{Schema: "S", Table: "T"},
				Source: Source{Table: "X"},
				Joins:  []Join{{Type: "CROSS", Table: "Y"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.doc.ToSpec()
			require.Error(t, err)

			var cerr *core.ConfigError
			var verr *core.ValidationError
			if tt.wantCfg {
				assert.True(t, errors.As(err, &cerr), err.Error())
			} else {
				assert.True(t, errors.As(err, &verr), err.Error())
			}
		})
	}
}

func TestArtifactAndReadFile(t *testing.T) {
	art, err := Artifact(sampleSpec())
	require.NoError(t, err)
	assert.Equal(t, core.ArtifactConfig, art.Kind)
	assert.Equal(t, "SCH_T2.json", art.Name)

	path := filepath.Join(t.TempDir(), art.Name)
	require.NoError(t, os.WriteFile(path, []byte(art.Content), 0o600))

	spec, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "T2", spec.Target.Table)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
