package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/leapstack-labs/mapsql/internal/compiler"
	"github.com/leapstack-labs/mapsql/internal/interchange"
	"github.com/leapstack-labs/mapsql/internal/job"
	"github.com/leapstack-labs/mapsql/internal/keys"
	"github.com/leapstack-labs/mapsql/internal/macro"
	"github.com/leapstack-labs/mapsql/internal/state"
	"github.com/leapstack-labs/mapsql/pkg/core"
)

// Result describes one generation.
type Result struct {
	// Path is the mapping file the spec came from, empty for in-memory specs.
	Path string
	// Spec is the compiled spec with its resolved unique key.
	Spec *core.ModelSpec
	// RunID identifies the run in the state store.
	RunID string
	// Keys is the key resolution outcome including every decision.
	Keys keys.Resolution
	// TargetDDL is the DDL file used for column order and keys, if any.
	TargetDDL string
	// Files lists written artifacts in generation order.
	Files    []WrittenFile
	Duration time.Duration
}

// WrittenFile is an artifact written to disk.
type WrittenFile struct {
	Kind core.ArtifactKind
	Path string
}

// Generate loads a mapping file and generates its artifacts.
func (e *Engine) Generate(ctx context.Context, path string) (*Result, error) {
	spec, err := e.LoadSpec(path)
	if err != nil {
		return nil, err
	}
	return e.GenerateSpec(ctx, spec, path)
}

// GenerateSpec generates the artifacts of an already loaded spec. origin is
// the file it came from and is recorded in history and the run log.
func (e *Engine) GenerateSpec(ctx context.Context, spec *core.ModelSpec, origin string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	spec = spec.Clone()

	run, err := e.store.CreateRun(origin)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	e.logger.Info("generating", slog.String("run_id", run.ID), slog.String("target", spec.Name()))

	res := &Result{Path: origin, Spec: spec, RunID: run.ID}
	arts, genErr := e.build(spec, res)
	if genErr == nil {
		genErr = e.write(arts, res)
	}

	outcome := state.RunResult{Status: state.RunStatusCompleted, Target: spec.Name()}
	for _, f := range res.Files {
		outcome.Artifacts = append(outcome.Artifacts, state.RunArtifact{Kind: string(f.Kind), Path: f.Path})
	}
	if genErr != nil {
		outcome.Status = state.RunStatusFailed
		outcome.Error = genErr.Error()
	}
	if err := e.store.CompleteRun(run.ID, outcome); err != nil {
		e.logger.Warn("failed to record run", slog.String("run_id", run.ID), slog.String("error", err.Error()))
	}
	if genErr != nil {
		e.logger.Error("generation failed", slog.String("target", spec.Name()), slog.String("error", genErr.Error()))
		return res, genErr
	}

	if origin != "" && !isInterchange(origin) {
		e.remember(state.HistoryMappingFiles, origin)
	}
	res.Duration = time.Since(start)
	e.logger.Info("generation completed",
		slog.String("run_id", run.ID),
		slog.String("target", spec.Name()),
		slog.Int("files", len(res.Files)),
		slog.Int64("duration_ms", res.Duration.Milliseconds()))
	return res, nil
}

// Resolve locates the target DDL and resolves the unique key of spec in place.
func (e *Engine) Resolve(spec *core.ModelSpec) (compiler.Target, keys.Resolution, string) {
	schema, ddlPath, ddlErr := e.LocateTargetDDL(spec.Target)
	if ddlErr != nil {
		e.logger.Warn("target DDL unusable", slog.String("path", ddlPath), slog.String("error", ddlErr.Error()))
	}

	in := keys.Input{
		Model:            spec.Name(),
		Materialization:  spec.Materialization,
		TargetDDL:        schema,
		TargetDDLErr:     ddlErr,
		MappingUniqueKey: spec.MappingUniqueKey,
		Columns:          spec.Columns,
	}
	if cached, ok := e.CachedKeys(spec.Target); ok {
		in.Cached = cached
	}
	res := keys.Resolve(in, e.logger)
	spec.UniqueKey = res.Keys

	target := compiler.Target{}
	if schema != nil {
		target = compiler.TargetFromSchema(schema)
	} else {
		ddlPath = ""
	}
	return target, res, ddlPath
}

// build compiles every requested artifact. The job file comes last so it can
// list the macros generated before it.
func (e *Engine) build(spec *core.ModelSpec, res *Result) ([]*core.Artifact, error) {
	if err := compiler.Validate(spec); err != nil {
		return nil, err
	}
	target, resolution, ddlPath := e.Resolve(spec)
	res.Keys = resolution
	res.TargetDDL = ddlPath

	var (
		arts       []*core.Artifact
		operations []string
	)
	add := func(a *core.Artifact, err error) error {
		if err != nil {
			return err
		}
		if a != nil {
			arts = append(arts, a)
		}
		return nil
	}

	if e.wants(core.ArtifactConfig) {
		if err := add(interchange.Artifact(spec)); err != nil {
			return nil, err
		}
	}
	if e.wants(core.ArtifactModel) {
		if err := add(e.compiler.CompileModel(spec, target)); err != nil {
			return nil, err
		}
	}
	if e.wants(core.ArtifactSources) {
		if err := add(e.compiler.CompileSources(spec)); err != nil {
			return nil, err
		}
	}
	if e.wants(core.ArtifactMerge) {
		if err := add(e.macros.Merge(spec, target, e.insertMode)); err != nil {
			return nil, err
		}
		operations = append(operations, macro.Name(spec.Target, macro.KindMerge))
	}
	if e.wants(core.ArtifactInsert) {
		if err := add(e.macros.Insert(spec, target, e.insertMode)); err != nil {
			return nil, err
		}
		operations = append(operations, macro.Name(spec.Target, macro.KindInsert))
	}
	if e.wants(core.ArtifactJob) {
		if e.insertMode != macro.ModeMacro {
			operations = nil
		}
		arts = append(arts, job.Generate(spec.Target, operations...))
	}
	if e.wants(core.ArtifactSchedule) {
		arts = append(arts, e.schedules.Generate(spec))
	}
	return arts, nil
}

func (e *Engine) write(arts []*core.Artifact, res *Result) error {
	var errs []error
	for _, a := range arts {
		dir := e.dirFor(a.Kind)
		if err := os.MkdirAll(dir, 0750); err != nil {
			errs = append(errs, fmt.Errorf("failed to create %s: %w", dir, err))
			continue
		}
		path := filepath.Join(dir, a.Name)
		if err := os.WriteFile(path, []byte(a.Content), 0600); err != nil {
			errs = append(errs, fmt.Errorf("failed to write %s: %w", path, err))
			continue
		}
		res.Files = append(res.Files, WrittenFile{Kind: a.Kind, Path: path})
		e.logger.Debug("wrote artifact", slog.String("kind", string(a.Kind)), slog.String("path", path))
	}
	return errors.Join(errs...)
}

func isInterchange(path string) bool {
	return filepath.Ext(path) == ".json"
}
