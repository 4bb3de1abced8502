// Package state persists file history and the generation run log in SQLite.
package state

import (
	"github.com/leapstack-labs/mapsql/pkg/core"
)

// Type aliases for the store types defined in pkg/core.
type (
	// Store is an alias for core.Store.
	Store = core.Store

	// Run is an alias for core.Run.
	Run = core.Run

	// RunStatus is an alias for core.RunStatus.
	RunStatus = core.RunStatus

	// RunResult is an alias for core.RunResult.
	RunResult = core.RunResult

	// RunArtifact is an alias for core.RunArtifact.
	RunArtifact = core.RunArtifact

	// HistoryKind is an alias for core.HistoryKind.
	HistoryKind = core.HistoryKind
)

// Re-exported constants.
const (
	RunStatusRunning   = core.RunStatusRunning
	RunStatusCompleted = core.RunStatusCompleted
	RunStatusFailed    = core.RunStatusFailed

	HistoryMappingFiles = core.HistoryMappingFiles
	HistoryDDLFiles     = core.HistoryDDLFiles
)

var _ core.Store = (*SQLiteStore)(nil)
