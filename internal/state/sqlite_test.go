package state

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/mapsql/pkg/core"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore()
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_OpenMigrateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	store := NewSQLiteStore()
	require.NoError(t, store.Open(path))
	require.NoError(t, store.Migrate())
	require.NoError(t, store.Migrate(), "migrations are idempotent")

	version, err := store.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	assert.Equal(t, path, store.Path())
	require.NoError(t, store.Close())

	reopened := NewSQLiteStore()
	require.NoError(t, reopened.Open(path))
	defer reopened.Close()
	require.NoError(t, reopened.Migrate())
}

func TestSQLiteStore_History(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.AddHistory(HistoryMappingFiles, "a.xlsx"))
	require.NoError(t, store.AddHistory(HistoryMappingFiles, "b.xlsx"))
	require.NoError(t, store.AddHistory(HistoryDDLFiles, "t.sql"))
	require.NoError(t, store.AddHistory(HistoryMappingFiles, "a.xlsx"))

	got, err := store.ListHistory(HistoryMappingFiles)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.xlsx", "b.xlsx"}, got, "re-adding moves to the front without duplicating")

	ddl, err := store.ListHistory(HistoryDDLFiles)
	require.NoError(t, err)
	assert.Equal(t, []string{"t.sql"}, ddl)

	require.NoError(t, store.ClearHistory(HistoryMappingFiles))
	got, err = store.ListHistory(HistoryMappingFiles)
	require.NoError(t, err)
	assert.Empty(t, got)

	ddl, err = store.ListHistory(HistoryDDLFiles)
	require.NoError(t, err)
	assert.Len(t, ddl, 1, "clearing one kind leaves the other")
}

func TestSQLiteStore_HistoryCap(t *testing.T) {
	store := setupTestStore(t)

	for i := range core.MaxHistoryEntries + 3 {
		require.NoError(t, store.AddHistory(HistoryDDLFiles, fmt.Sprintf("f%02d.sql", i)))
	}

	got, err := store.ListHistory(HistoryDDLFiles)
	require.NoError(t, err)
	require.Len(t, got, core.MaxHistoryEntries)
	assert.Equal(t, "f12.sql", got[0])
	assert.Equal(t, "f03.sql", got[len(got)-1])
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	tests := []struct {
		name   string
		result RunResult
	}{
		{
			name: "completed with artifacts",
			result: RunResult{
				Status: RunStatusCompleted,
				Target: "SCH.T2",
				Artifacts: []RunArtifact{
					{Kind: "model", Path: "models/SCH.T2.sql"},
					{Kind: "job", Path: "jobs/SCH_T2.dbt"},
				},
			},
		},
		{
			name:   "failed",
			result: RunResult{Status: RunStatusFailed, Error: "TARGET_TABLE: is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t)

			run, err := store.CreateRun("mapping.xlsx")
			require.NoError(t, err)
			assert.NotEmpty(t, run.ID)
			assert.Equal(t, RunStatusRunning, run.Status)

			require.NoError(t, store.CompleteRun(run.ID, tt.result))

			got, err := store.GetRun(run.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.result.Status, got.Status)
			assert.Equal(t, tt.result.Target, got.Target)
			assert.Equal(t, tt.result.Error, got.Error)
			assert.Equal(t, "mapping.xlsx", got.MappingPath)
			require.NotNil(t, got.CompletedAt)

			arts, err := store.GetRunArtifacts(run.ID)
			require.NoError(t, err)
			require.Len(t, arts, len(tt.result.Artifacts))
			for i, a := range arts {
				assert.Equal(t, run.ID, a.RunID)
				assert.Equal(t, tt.result.Artifacts[i].Path, a.Path)
			}
		})
	}
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	store := setupTestStore(t)

	var ids []string
	for i := range 3 {
		run, err := store.CreateRun(fmt.Sprintf("m%d.xlsx", i))
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	all, err := store.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)

	limited, err := store.ListRuns(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLiteStore_RunNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetRun("missing")
	assert.ErrorContains(t, err, "run not found")

	err = store.CompleteRun("missing", RunResult{Status: RunStatusCompleted})
	assert.ErrorContains(t, err, "run not found")
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore()

	_, err := store.CreateRun("x")
	assert.ErrorContains(t, err, "database not opened")
	_, err = store.ListHistory(HistoryDDLFiles)
	assert.ErrorContains(t, err, "database not opened")
	assert.ErrorContains(t, store.AddHistory(HistoryDDLFiles, "x"), "database not opened")
	assert.ErrorContains(t, store.Migrate(), "database not opened")
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_DatabaseErrors(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		call      func(s *SQLiteStore) error
		errMsg    string
	}{
		{
			name: "create run insert fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO runs").WillReturnError(assert.AnError)
			},
			call: func(s *SQLiteStore) error {
				_, err := s.CreateRun("m.xlsx")
				return err
			},
			errMsg: "failed to create run",
		},
		{
			name: "history begin fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(assert.AnError)
			},
			call: func(s *SQLiteStore) error {
				return s.AddHistory(HistoryDDLFiles, "t.sql")
			},
			errMsg: "failed to begin transaction",
		},
		{
			name: "history trim fails and rolls back",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM history").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("INSERT INTO history").WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectExec("DELETE FROM history").WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			call: func(s *SQLiteStore) error {
				return s.AddHistory(HistoryDDLFiles, "t.sql")
			},
			errMsg: "failed to trim history",
		},
		{
			name: "list history query fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT path FROM history").WillReturnError(assert.AnError)
			},
			call: func(s *SQLiteStore) error {
				_, err := s.ListHistory(HistoryMappingFiles)
				return err
			},
			errMsg: "failed to list history",
		},
		{
			name: "complete run artifact insert fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE runs").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT OR REPLACE INTO run_artifacts").WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			call: func(s *SQLiteStore) error {
				return s.CompleteRun("r1", RunResult{
					Status:    RunStatusCompleted,
					Artifacts: []RunArtifact{{Kind: "model", Path: "m.sql"}},
				})
			},
			errMsg: "failed to record artifact",
		},
		{
			name: "list runs query fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT id, mapping_path").WillReturnError(assert.AnError)
			},
			call: func(s *SQLiteStore) error {
				_, err := s.ListRuns(5)
				return err
			},
			errMsg: "failed to list runs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.setupMock(mock)
			err = tt.call(NewSQLiteStoreWithDB(db))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
