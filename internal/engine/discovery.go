package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/leapstack-labs/mapsql/internal/ddl"
	"github.com/leapstack-labs/mapsql/internal/interchange"
	"github.com/leapstack-labs/mapsql/internal/sheet"
	"github.com/leapstack-labs/mapsql/internal/state"
	"github.com/leapstack-labs/mapsql/pkg/core"
)

// LoadSpec reads a mapping workbook (.xlsx, .csv) or an interchange document (.json).
func (e *Engine) LoadSpec(path string) (*core.ModelSpec, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		spec, err := interchange.ReadFile(path)
		if err != nil {
			return nil, err
		}
		e.logger.Debug("loaded interchange document", slog.String("path", path), slog.String("target", spec.Name()))
		return spec, nil
	}

	wb, err := sheet.Open(path)
	if err != nil {
		return nil, err
	}
	grid, err := wb.Mapping()
	if err != nil {
		return nil, err
	}
	spec, err := e.extractor.Extract(grid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfgSheet, _ := wb.Sheet(sheet.ConfigSheet)
	spec.Schedule = e.extractor.ExtractSchedule(cfgSheet)
	return spec, nil
}

// ParseDDL parses a DDL file, caches its keys for this session and records
// the file in the DDL history.
func (e *Engine) ParseDDL(path string) (*core.TableSchema, error) {
	schema, err := ddl.ParseFile(path)
	if err != nil {
		return nil, err
	}
	e.cacheKeys(schema)
	e.remember(state.HistoryDDLFiles, path)

	e.logger.Debug("parsed DDL",
		slog.String("path", path),
		slog.String("table", schema.Name),
		slog.Int("columns", len(schema.Columns)),
		slog.Any("unique_keys", schema.Keys.UniqueKeys),
		slog.Any("primary_keys", schema.Keys.PrimaryKeys))
	return schema, nil
}

// LocateTargetDDL searches the configured DDL files, then the DDL history,
// for a file creating target. It returns a nil schema and empty path when
// nothing matches. A matching file that fails to parse is returned with its
// error so key resolution can record why it was skipped.
func (e *Engine) LocateTargetDDL(target core.TableRef) (*core.TableSchema, string, error) {
	for _, path := range e.ddlCandidates() {
		data, err := os.ReadFile(path) //nolint:gosec // DDL paths come from config or history
		if err != nil {
			e.logger.Debug("skipping unreadable DDL", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		if !ddl.DefinesTable(string(data), target.Schema, target.Table) {
			continue
		}

		schema, err := ddl.ParseFile(path)
		if err != nil {
			return nil, path, err
		}
		e.cacheKeys(schema)
		e.logger.Debug("located target DDL", slog.String("target", target.Qualified()), slog.String("path", path))
		return schema, path, nil
	}
	return nil, "", nil
}

func (e *Engine) ddlCandidates() []string {
	candidates := slices.Clone(e.ddlFiles)
	history, err := e.store.ListHistory(state.HistoryDDLFiles)
	if err != nil {
		e.logger.Warn("failed to read DDL history", slog.String("error", err.Error()))
	}
	for _, p := range history {
		if !slices.Contains(candidates, p) {
			candidates = append(candidates, p)
		}
	}
	return candidates
}

func (e *Engine) cacheKeys(schema *core.TableSchema) {
	if schema == nil || schema.Name == "" {
		return
	}
	e.keyCacheMu.Lock()
	defer e.keyCacheMu.Unlock()
	e.keyCache[strings.ToUpper(schema.Name)] = core.KeySet{
		UniqueKeys:  slices.Clone(schema.Keys.UniqueKeys),
		PrimaryKeys: slices.Clone(schema.Keys.PrimaryKeys),
	}
}

// CachedKeys returns the keys of target from a DDL parsed earlier in this session.
func (e *Engine) CachedKeys(target core.TableRef) (*core.KeySet, bool) {
	e.keyCacheMu.RLock()
	defer e.keyCacheMu.RUnlock()
	ks, ok := e.keyCache[strings.ToUpper(target.Qualified())]
	if !ok {
		return nil, false
	}
	return &ks, true
}

// remember adds path to a history list. Failures only degrade history.
func (e *Engine) remember(kind state.HistoryKind, path string) {
	if path == "" {
		return
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if err := e.store.AddHistory(kind, path); err != nil {
		e.logger.Warn("failed to record history",
			slog.String("kind", string(kind)),
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}
