// Package interchange reads and writes the JSON form of a model specification.
//
// The document shape is shared with the scheduling and deployment tooling, so
// its key names are fixed. Decoding is weakly typed: unique_key may be a string
// or a list, and numeric Logic cells become strings.
package interchange

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/leapstack-labs/mapsql/internal/schedule"
	"github.com/leapstack-labs/mapsql/pkg/core"
)

// Document is the JSON interchange form of a ModelSpec.
type Document struct {
	Source  Source   `json:"Source"`
	Target  Target   `json:"Target"`
	Columns []Column `json:"Columns"`
	Joins   []Join   `json:"Joins,omitempty"`
	Where   string   `json:"Where Conditions,omitempty"`
	GroupBy string   `json:"Group By,omitempty"`
	DAG     *DAG     `json:"DAG,omitempty"`
}

// Source describes the primary relation.
type Source struct {
	Type     string `json:"Type"`
	Database string `json:"Database"`
	Schema   string `json:"Schema"`
	Table    string `json:"Table Name"`
	Name     string `json:"Name"`
}

// Target describes the generated table.
type Target struct {
	Schema             string    `json:"Schema"`
	Table              string    `json:"Table Name"`
	Materialization    string    `json:"materialization"`
	UniqueKey          UniqueKey `json:"unique_key,omitempty"`
	MinusLogicRequired bool      `json:"minus_logic_required,omitempty"`
	MergeUpdateExclude []string  `json:"merge_update_exclude_columns,omitempty"`
	Transient          bool      `json:"transient,omitempty"`
}

// Column is one column mapping. SourceTable is null when the column has no source.
type Column struct {
	TargetColumn string  `json:"Target Column"`
	SourceTable  *string `json:"Source Table"`
	Logic        string  `json:"Logic"`
}

// Join is one join table row.
type Join struct {
	Type       string `json:"Join Type"`
	TableType  string `json:"Table Type"`
	SourceName string `json:"Source Name,omitempty"`
	Table      string `json:"Table Name"`
	Alias      string `json:"Alias,omitempty"`
	Condition  string `json:"Join Condition,omitempty"`
}

// DAG carries the schedule settings.
type DAG struct {
	Type              string   `json:"Type"`
	Schedule          string   `json:"Schedule,omitempty"`
	DependencySchemas []string `json:"Dependency Schema"`
	DependencyObjects []string `json:"Dependency Object"`
}

// UniqueKey always encodes as a list, even for a single column. Decoding
// also accepts a bare string.
type UniqueKey []string

// MarshalJSON implements json.Marshaler.
func (u UniqueKey) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string(u))
}

// FileName returns <schema>_<table>.json.
func FileName(target core.TableRef) string {
	return target.Schema + "_" + target.Table + ".json"
}

// FromSpec converts a spec into its interchange document.
func FromSpec(spec *core.ModelSpec) *Document {
	doc := &Document{
		Source: Source{
			Type:     string(spec.SourceKind),
			Database: spec.Source.Database,
			Schema:   spec.Source.Schema,
			Table:    spec.Source.Table,
			Name:     spec.SourceName,
		},
		Target: Target{
			Schema:             spec.Target.Schema,
			Table:              spec.Target.Table,
			Materialization:    string(spec.Materialization),
			UniqueKey:          UniqueKey(spec.UniqueKey),
			MinusLogicRequired: spec.MinusLogicRequired,
			MergeUpdateExclude: spec.MergeUpdateExclude,
			Transient:          spec.Transient,
		},
		Columns: make([]Column, len(spec.Columns)),
		Where:   spec.Where,
		GroupBy: spec.GroupBy,
	}
	if len(doc.Target.UniqueKey) == 0 {
		doc.Target.UniqueKey = UniqueKey(spec.MappingUniqueKey)
	}

	for i, c := range spec.Columns {
		col := Column{TargetColumn: c.TargetColumn, Logic: c.Logic}
		if c.SourceExpr != "" {
			src := c.SourceExpr
			col.SourceTable = &src
		}
		doc.Columns[i] = col
	}
	for _, j := range spec.Joins {
		doc.Joins = append(doc.Joins, Join{
			Type:       string(j.Type),
			TableType:  string(j.Kind),
			SourceName: j.SourceName,
			Table:      j.TableName,
			Alias:      j.Alias,
			Condition:  j.Condition,
		})
	}
	if s := spec.Schedule; s != nil {
		doc.DAG = &DAG{
			Type:              string(s.Kind),
			Schedule:          s.Schedule,
			DependencySchemas: nonNil(s.DependencySchemas),
			DependencyObjects: nonNil(s.DependencyObjects),
		}
	}
	return doc
}

// ToSpec converts the document back into a spec. The unique_key value becomes
// the spec's mapping-level key so that key resolution still runs.
func (d *Document) ToSpec() (*core.ModelSpec, error) {
	model := d.Target.Schema + "." + d.Target.Table
	switch {
	case d.Target.Schema == "":
		return nil, &core.ConfigError{Model: model, Field: "Target.Schema", Message: "is required"}
	case d.Target.Table == "":
		return nil, &core.ConfigError{Model: model, Field: "Target.Table Name", Message: "is required"}
	case d.Source.Table == "":
		return nil, &core.ConfigError{Model: model, Field: "Source.Table Name", Message: "is required"}
	}

	mat := core.MaterializationIncremental
	if d.Target.Materialization != "" {
		m, err := core.ParseMaterialization(strings.ToLower(d.Target.Materialization))
		if err != nil {
			return nil, &core.ConfigError{Model: model, Field: "Target.materialization", Message: err.Error()}
		}
		mat = m
	}

	spec := &core.ModelSpec{
		Source: core.TableRef{
			Database: d.Source.Database,
			Schema:   d.Source.Schema,
			Table:    d.Source.Table,
		},
		SourceName:         d.Source.Name,
		SourceKind:         core.ParseSourceKind(d.Source.Type),
		Target:             core.TableRef{Schema: d.Target.Schema, Table: d.Target.Table},
		Materialization:    mat,
		Where:              d.Where,
		GroupBy:            d.GroupBy,
		MinusLogicRequired: d.Target.MinusLogicRequired,
		MergeUpdateExclude: d.Target.MergeUpdateExclude,
		Transient:          d.Target.Transient,
		MappingUniqueKey:   splitKeys(d.Target.UniqueKey),
	}
	if spec.SourceName == "" && spec.SourceKind == core.SourceKindSource {
		spec.SourceName = d.Source.Schema
	}

	seen := make(map[string]bool, len(d.Columns))
	for _, c := range d.Columns {
		name := strings.TrimSpace(c.TargetColumn)
		if name == "" {
			continue
		}
		if seen[name] {
			return nil, &core.ValidationError{Model: model, Field: "Columns", Message: fmt.Sprintf("duplicate target column %s", name)}
		}
		seen[name] = true

		col := core.ColumnMapping{TargetColumn: name, Logic: strings.TrimSpace(c.Logic)}
		if c.SourceTable != nil {
			col.SourceExpr = strings.TrimSpace(*c.SourceTable)
		}
		if col.Logic == "" {
			col.Logic = name
		}
		spec.Columns = append(spec.Columns, col)
	}

	for _, j := range d.Joins {
		jt, err := core.ParseJoinType(j.Type)
		if err != nil {
			return nil, &core.ValidationError{Model: model, Field: "Joins", Message: err.Error()}
		}
		spec.Joins = append(spec.Joins, core.JoinSpec{
			Type:       jt,
			Kind:       core.ParseSourceKind(j.TableType),
			SourceName: j.SourceName,
			TableName:  j.Table,
			Alias:      j.Alias,
			Condition:  j.Condition,
		})
	}

	if d.DAG != nil {
		kind, _ := schedule.ParseKind(d.DAG.Type)
		spec.Schedule = &core.ScheduleSpec{
			Kind:              kind,
			Schedule:          d.DAG.Schedule,
			DependencySchemas: d.DAG.DependencySchemas,
			DependencyObjects: d.DAG.DependencyObjects,
		}
	}
	return spec, nil
}

// Encode renders the document as indented JSON without HTML escaping, so
// operators such as <> survive verbatim.
func Encode(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode interchange document: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses an interchange document.
func Decode(data []byte) (*Document, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse interchange document: %w", err)
	}

	var doc Document
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &doc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode interchange document: %w", err)
	}
	return &doc, nil
}

// Artifact renders spec as the config artifact.
func Artifact(spec *core.ModelSpec) (*core.Artifact, error) {
	data, err := Encode(FromSpec(spec))
	if err != nil {
		return nil, err
	}
	return &core.Artifact{Kind: core.ArtifactConfig, Name: FileName(spec.Target), Content: string(data)}, nil
}

// ReadFile loads a spec from an interchange file.
func ReadFile(path string) (*core.ModelSpec, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is user-selected config input
	if err != nil {
		return nil, fmt.Errorf("failed to read interchange file: %w", err)
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc.ToSpec()
}

func splitKeys(keys UniqueKey) []string {
	var out []string
	for _, k := range keys {
		for _, part := range strings.Split(k, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
