// Package config holds project defaults and config file discovery shared by
// the CLI and any other front end that compiles mappings.
package config

// Default configuration values.
const (
	DefaultOutputDir   = "."
	DefaultStateFile   = ".mapsql/state.db"
	DefaultOutput      = "auto"
	DefaultLogLevel    = "info"
	DefaultMainAlias   = "source"
	DefaultInsertMode  = "macro"
	DefaultCron        = "0 */4 * * *"
	DefaultParallelism = 4
)

// DefaultAuditColumns are provenance columns kept out of MINUS comparisons.
func DefaultAuditColumns() []string {
	return []string{"DATA_SRC", "CREATE_DT", "CREATE_BY", "CREATE_PGM", "UPDATE_DT", "UPDATE_BY", "UPDATE_PGM"}
}

// DefaultMergeUpdateExclude are never updated by an incremental merge.
func DefaultMergeUpdateExclude() []string {
	return []string{"CREATE_DT", "CREATE_BY", "CREATE_PGM"}
}

// DefaultArtifacts are generated when no artifact list is configured.
func DefaultArtifacts() []string {
	return []string{"config", "model", "sources", "job", "schedule"}
}

// Defaults returns the default values keyed by config key.
func Defaults() map[string]any {
	return map[string]any{
		"output_dir":                              DefaultOutputDir,
		"state_path":                              DefaultStateFile,
		"verbose":                                 false,
		"output":                                  DefaultOutput,
		"log_level":                               DefaultLogLevel,
		"artifacts":                               DefaultArtifacts(),
		"parallelism":                             DefaultParallelism,
		"compiler.main_alias":                     DefaultMainAlias,
		"compiler.audit_columns":                  DefaultAuditColumns(),
		"compiler.merge_update_exclude":           DefaultMergeUpdateExclude(),
		"compiler.exclude_keys_from_merge_update": true,
		"compiler.insert_mode":                    DefaultInsertMode,
		"schedule.default_cron":                   DefaultCron,
	}
}
