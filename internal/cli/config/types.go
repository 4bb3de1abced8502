// Package config provides configuration management for the mapsql CLI.
//
// Values are layered from defaults, mapsql.yaml, MAPSQL_ environment
// variables and explicitly set flags, in increasing precedence.
package config

import (
	sharedcfg "github.com/leapstack-labs/mapsql/internal/config"
)

// Config holds all CLI configuration options.
type Config struct {
	// ProjectRoot anchors relative paths. It is derived, never loaded.
	ProjectRoot string `koanf:"-"`

	OutputDir string `koanf:"output_dir"`
	ModelsDir string `koanf:"models_dir"`
	MacrosDir string `koanf:"macros_dir"`
	JobsDir   string `koanf:"jobs_dir"`
	DAGsDir   string `koanf:"dags_dir"`
	ConfigDir string `koanf:"config_dir"`

	StatePath    string   `koanf:"state_path"`
	Verbose      bool     `koanf:"verbose"`
	OutputFormat string   `koanf:"output"`
	LogLevel     string   `koanf:"log_level"`
	Artifacts    []string `koanf:"artifacts"`
	DDLFiles     []string `koanf:"ddl_files"`
	Parallelism  int      `koanf:"parallelism"`

	Compiler CompilerConfig `koanf:"compiler"`
	Schedule ScheduleConfig `koanf:"schedule"`
}

// CompilerConfig holds model and macro compilation settings.
type CompilerConfig struct {
	MainAlias                  string   `koanf:"main_alias"`
	AuditColumns               []string `koanf:"audit_columns"`
	MergeUpdateExclude         []string `koanf:"merge_update_exclude"`
	ExcludeKeysFromMergeUpdate bool     `koanf:"exclude_keys_from_merge_update"`
	InsertMode                 string   `koanf:"insert_mode"`
}

// ScheduleConfig holds schedule descriptor settings.
type ScheduleConfig struct {
	DefaultCron   string `koanf:"default_cron"`
	WorkspaceName string `koanf:"workspace_name"`
	WorkspaceEnv  string `koanf:"workspace_env"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultStateFile = sharedcfg.DefaultStateFile
	DefaultOutput    = sharedcfg.DefaultOutput
	DefaultLogLevel  = sharedcfg.DefaultLogLevel
)
