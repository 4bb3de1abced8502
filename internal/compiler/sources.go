package compiler

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/mapsql/pkg/core"
)

// SourcesFile is the dbt sources.yml document.
type SourcesFile struct {
	Version int           `yaml:"version"`
	Sources []SourceEntry `yaml:"sources"`
}

// SourceEntry declares one dbt source and its tables.
type SourceEntry struct {
	Name     string       `yaml:"name"`
	Database string       `yaml:"database,omitempty"`
	Schema   string       `yaml:"schema,omitempty"`
	Tables   []SourceItem `yaml:"tables"`
}

// SourceItem is a table inside a source.
type SourceItem struct {
	Name string `yaml:"name"`
}

// SourcesFileName returns <schema>.<table>_sources.yml.
func SourcesFileName(target core.TableRef) string {
	return target.Qualified() + "_sources.yml"
}

// CollectSources lists every source() relation the model for spec references,
// in first-seen order.
func (c *Compiler) CollectSources(spec *core.ModelSpec) SourcesFile {
	doc := SourcesFile{Version: 2}
	index := make(map[string]int)

	add := func(name, database, schema, table string) {
		i, ok := index[name]
		if !ok {
			doc.Sources = append(doc.Sources, SourceEntry{Name: name, Database: database, Schema: schema})
			i = len(doc.Sources) - 1
			index[name] = i
		}
		for _, t := range doc.Sources[i].Tables {
			if t.Name == table {
				return
			}
		}
		doc.Sources[i].Tables = append(doc.Sources[i].Tables, SourceItem{Name: table})
	}

	if spec.SourceKind == core.SourceKindSource {
		add(spec.SourceName, spec.Source.Database, spec.Source.Schema, spec.Source.Table)
	}
	for _, j := range spec.Joins {
		if j.Kind == core.SourceKindSource && j.SourceName != "" {
			add(j.SourceName, "", "", j.TableName)
		}
	}
	if spec.MinusLogicRequired {
		add(spec.Target.Schema, "", spec.Target.Schema, spec.Target.Table)
	}
	return doc
}

// CompileSources renders the sources.yml artifact. It returns nil when the
// model references no sources.
func (c *Compiler) CompileSources(spec *core.ModelSpec) (*core.Artifact, error) {
	doc := c.CollectSources(spec)
	if len(doc.Sources) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode sources: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode sources: %w", err)
	}
	return &core.Artifact{Kind: core.ArtifactSources, Name: SourcesFileName(spec.Target), Content: buf.String()}, nil
}
