package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/mapsql/internal/cli/config"
	"github.com/leapstack-labs/mapsql/internal/cli/output"
	"github.com/leapstack-labs/mapsql/internal/compiler"
	sharedcfg "github.com/leapstack-labs/mapsql/internal/config"
	"github.com/leapstack-labs/mapsql/internal/engine"
	"github.com/leapstack-labs/mapsql/internal/macro"
	"github.com/leapstack-labs/mapsql/internal/mapping"
	"github.com/leapstack-labs/mapsql/internal/schedule"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := config.GetLogger(cmd.Context())

	eng, err := createEngine(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	cleanup := func() {
		if err := eng.Close(); err != nil {
			logger.Warn("failed to close engine", slog.String("error", err.Error()))
		}
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: r,
	}, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that don't touch the state store.
func NewCommandContextWithoutEngine(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}
	mode := output.Mode(cfg.OutputFormat)
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}, nil
}

// getConfig returns the configuration loaded by the root command, or loads
// it without flags when a command runs standalone.
func getConfig() (*config.Config, error) {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg, nil
	}
	return config.LoadConfig("", nil)
}

func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	// Ensure state directory exists
	stateDir := filepath.Dir(cfg.StatePath)
	if cfg.StatePath != ":memory:" && stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	engineCfg, err := engineConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	return engine.New(engineCfg)
}

// engineConfig translates CLI configuration into engine configuration.
func engineConfig(cfg *config.Config, logger *slog.Logger) (engine.Config, error) {
	artifacts, err := engine.ParseArtifactKinds(cfg.Artifacts)
	if err != nil {
		return engine.Config{}, err
	}
	insertMode, err := macro.ParseMode(cfg.Compiler.InsertMode)
	if err != nil {
		return engine.Config{}, err
	}

	compilerOpts := compiler.DefaultOptions()
	if cfg.Compiler.MainAlias != "" {
		compilerOpts.MainAlias = cfg.Compiler.MainAlias
	}
	if cfg.Compiler.AuditColumns != nil {
		compilerOpts.AuditColumns = cfg.Compiler.AuditColumns
	}
	compilerOpts.ExcludeKeysFromMergeUpdate = cfg.Compiler.ExcludeKeysFromMergeUpdate

	mappingOpts := mapping.DefaultOptions()
	if cfg.Compiler.MergeUpdateExclude != nil {
		mappingOpts.DefaultMergeUpdateExclude = cfg.Compiler.MergeUpdateExclude
	}

	cron := cfg.Schedule.DefaultCron
	if cron == "" {
		cron = sharedcfg.DefaultCron
	}

	return engine.Config{
		OutputDir: cfg.OutputDir,
		Dirs: engine.Dirs{
			Models: cfg.ModelsDir,
			Macros: cfg.MacrosDir,
			Jobs:   cfg.JobsDir,
			DAGs:   cfg.DAGsDir,
			Config: cfg.ConfigDir,
		},
		Artifacts: artifacts,
		DDLFiles:  cfg.DDLFiles,
		StatePath: cfg.StatePath,
		Mapping:   mappingOpts,
		Compiler:  compilerOpts,
		Schedule: schedule.Options{
			DefaultCron:   cron,
			WorkspaceName: cfg.Schedule.WorkspaceName,
			WorkspaceEnv:  cfg.Schedule.WorkspaceEnv,
		},
		InsertMode:  insertMode,
		Parallelism: cfg.Parallelism,
		Logger:      logger,
	}, nil
}
