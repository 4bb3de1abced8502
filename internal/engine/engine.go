// Package engine runs the generation pipeline.
// It loads a mapping, locates the target DDL, resolves the unique key,
// compiles every requested artifact and writes it to its output directory.
package engine

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/leapstack-labs/mapsql/internal/compiler"
	"github.com/leapstack-labs/mapsql/internal/macro"
	"github.com/leapstack-labs/mapsql/internal/mapping"
	"github.com/leapstack-labs/mapsql/internal/schedule"
	"github.com/leapstack-labs/mapsql/internal/state"
	"github.com/leapstack-labs/mapsql/pkg/core"
)

// DefaultArtifacts are generated when Config.Artifacts is empty.
// Merge and insert macros are opt-in.
var DefaultArtifacts = []core.ArtifactKind{
	core.ArtifactConfig,
	core.ArtifactModel,
	core.ArtifactSources,
	core.ArtifactJob,
	core.ArtifactSchedule,
}

// Engine orchestrates artifact generation for mapping files.
type Engine struct {
	logger *slog.Logger

	store     state.Store
	ownsStore bool

	dirs        Dirs
	artifacts   []core.ArtifactKind
	ddlFiles    []string
	parallelism int
	insertMode  macro.Mode

	extractor *mapping.Extractor
	compiler  *compiler.Compiler
	macros    *macro.Generator
	schedules *schedule.Generator

	// keyCache holds key sets of DDL files parsed in this session, by SCHEMA.TABLE.
	keyCache   map[string]core.KeySet
	keyCacheMu sync.RWMutex
}

// Dirs are the output directories per artifact family.
type Dirs struct {
	Models string
	Macros string
	Jobs   string
	DAGs   string
	Config string
}

// Config holds engine configuration.
type Config struct {
	// OutputDir is the parent of any output directory left empty in Dirs.
	OutputDir string
	Dirs      Dirs

	// Artifacts selects what to generate. Empty means DefaultArtifacts.
	Artifacts []core.ArtifactKind

	// DDLFiles are searched for the target DDL before the DDL history.
	DDLFiles []string

	// StatePath is the SQLite state database. Empty opens an in-memory store.
	StatePath string
	// Store overrides StatePath with an already opened and migrated store.
	Store state.Store

	Mapping    mapping.Options
	Compiler   compiler.Options
	Schedule   schedule.Options
	InsertMode macro.Mode

	// Parallelism bounds concurrent generations in a batch.
	Parallelism int

	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates an engine and opens its state store.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store, owns := cfg.Store, false
	if store == nil {
		path := cfg.StatePath
		if path == "" {
			path = ":memory:"
		}
		s := state.NewSQLiteStore()
		if err := s.Open(path); err != nil {
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		if err := s.Migrate(); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to initialize state schema: %w", err)
		}
		store, owns = s, true
	}

	artifacts := cfg.Artifacts
	if len(artifacts) == 0 {
		artifacts = DefaultArtifacts
	}
	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	insertMode := cfg.InsertMode
	if insertMode == "" {
		insertMode = macro.ModeMacro
	}

	if cfg.Compiler.MainAlias == "" {
		cfg.Compiler.MainAlias = compiler.DefaultOptions().MainAlias
	}
	if cfg.Schedule.DefaultCron == "" {
		cfg.Schedule.DefaultCron = schedule.DefaultCron
	}
	comp := compiler.New(cfg.Compiler, logger)

	logger.Debug("initializing engine",
		slog.String("output_dir", cfg.OutputDir),
		slog.Any("artifacts", artifacts),
		slog.Int("parallelism", parallelism))

	return &Engine{
		logger:      logger,
		store:       store,
		ownsStore:   owns,
		dirs:        resolveDirs(cfg.OutputDir, cfg.Dirs),
		artifacts:   slices.Clone(artifacts),
		ddlFiles:    slices.Clone(cfg.DDLFiles),
		parallelism: parallelism,
		insertMode:  insertMode,
		extractor:   mapping.NewExtractor(cfg.Mapping, logger),
		compiler:    comp,
		macros:      macro.NewGenerator(comp, logger),
		schedules:   schedule.NewGenerator(cfg.Schedule, logger),
		keyCache:    make(map[string]core.KeySet),
	}, nil
}

func resolveDirs(base string, d Dirs) Dirs {
	pick := func(dir, name string) string {
		if dir != "" {
			return dir
		}
		return filepath.Join(base, name)
	}
	return Dirs{
		Models: pick(d.Models, "models"),
		Macros: pick(d.Macros, "macros"),
		Jobs:   pick(d.Jobs, "jobs"),
		DAGs:   pick(d.DAGs, "dags"),
		Config: pick(d.Config, "config"),
	}
}

// Close releases the state store when the engine opened it.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")
	if e.ownsStore && e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Store returns the state store.
func (e *Engine) Store() state.Store {
	return e.store
}

// Dirs returns the resolved output directories.
func (e *Engine) Dirs() Dirs {
	return e.dirs
}

// Compiler returns the model compiler.
func (e *Engine) Compiler() *compiler.Compiler {
	return e.compiler
}

func (e *Engine) wants(kind core.ArtifactKind) bool {
	return slices.Contains(e.artifacts, kind)
}

func (e *Engine) dirFor(kind core.ArtifactKind) string {
	switch kind {
	case core.ArtifactModel, core.ArtifactSources:
		return e.dirs.Models
	case core.ArtifactMerge, core.ArtifactInsert:
		return e.dirs.Macros
	case core.ArtifactJob:
		return e.dirs.Jobs
	case core.ArtifactSchedule:
		return e.dirs.DAGs
	default:
		return e.dirs.Config
	}
}

// ParseArtifactKinds validates artifact names.
func ParseArtifactKinds(names []string) ([]core.ArtifactKind, error) {
	var out []core.ArtifactKind
	for _, n := range names {
		kind := core.ArtifactKind(strings.ToLower(strings.TrimSpace(n)))
		if kind == "" {
			continue
		}
		if !slices.Contains(core.AllArtifactKinds, kind) {
			return nil, fmt.Errorf("unknown artifact %q", n)
		}
		if !slices.Contains(out, kind) {
			out = append(out, kind)
		}
	}
	return out, nil
}
