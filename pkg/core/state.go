package core

import "time"

// Store defines the interface for state management operations.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	// History operations
	AddHistory(kind HistoryKind, path string) error
	ListHistory(kind HistoryKind) ([]string, error)
	ClearHistory(kind HistoryKind) error

	// Run operations
	CreateRun(mappingPath string) (*Run, error)
	GetRun(id string) (*Run, error)
	CompleteRun(id string, result RunResult) error
	ListRuns(limit int) ([]*Run, error)
	GetRunArtifacts(runID string) ([]*RunArtifact, error)
}

// HistoryKind selects one of the recently-used file lists.
type HistoryKind string

// History kinds.
const (
	HistoryMappingFiles HistoryKind = "mapping_files"
	HistoryDDLFiles     HistoryKind = "ddl_files"
)

// MaxHistoryEntries caps each history list.
const MaxHistoryEntries = 10

// RunStatus represents the status of a generation run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run represents one generation of artifacts from a mapping file.
type Run struct {
	ID          string
	MappingPath string
	Target      string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// RunResult is what a finished run records.
type RunResult struct {
	Status    RunStatus
	Target    string
	Error     string
	Artifacts []RunArtifact
}

// RunArtifact is a file written by a run.
type RunArtifact struct {
	RunID string
	Kind  string
	Path  string
}
