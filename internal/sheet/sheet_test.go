package sheet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGrid_Cell(t *testing.T) {
	g := NewMemoryGrid(
		[]string{"A1", "B1"},
		[]string{"A2"},
	)

	assert.Equal(t, "A1", g.Cell(1, 1))
	assert.Equal(t, "B1", g.Cell(1, 2))
	assert.Equal(t, "", g.Cell(2, 2), "short row")
	assert.Equal(t, "", g.Cell(3, 1), "past last row")
	assert.Equal(t, "", g.Cell(0, 1), "row zero")
	assert.Equal(t, 2, g.MaxRow())
}

func TestMemoryGrid_SetGrows(t *testing.T) {
	g := NewMemoryGrid()
	g.Set(3, 2, "x")

	assert.Equal(t, 3, g.MaxRow())
	assert.Equal(t, "x", g.Cell(3, 2))
	assert.Equal(t, "", g.Cell(3, 1))

	row := g.AppendRow("a", "b")
	assert.Equal(t, 4, row)
	assert.Equal(t, "b", g.Cell(4, 2))
}

func TestFindRow(t *testing.T) {
	g := NewMemoryGrid(
		[]string{"S.NO"},
		[]string{"1"},
		[]string{"JOIN_TABLES"},
	)
	assert.Equal(t, 3, FindRow(g, 1, 1, "JOIN_TABLES"))
	assert.Equal(t, 0, FindRow(g, 1, 1, "GROUP BY"))
}

func TestWorkbook_SheetLookup(t *testing.T) {
	wb := NewWorkbook()
	wb.AddSheet("Sheet1", NewMemoryGrid([]string{"x"}))
	wb.AddSheet("CONFIG", NewMemoryGrid([]string{"DAG Type", "CRON"}))

	g, ok := wb.Sheet("config")
	require.True(t, ok)
	assert.Equal(t, "CRON", g.Cell(1, 2))

	m, err := wb.Mapping()
	require.NoError(t, err)
	assert.Equal(t, "x", m.Cell(1, 1), "falls back to first sheet")
	assert.Equal(t, []string{"Sheet1", "CONFIG"}, wb.SheetNames())
}

func TestReadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.csv")
	require.NoError(t, os.WriteFile(path, []byte("TARGET_TABLE,SCH.T2\nS.NO,TargetColumn\n1,ID,ID,ID\n"), 0o600))

	wb, err := Open(path)
	require.NoError(t, err)

	g, err := wb.Mapping()
	require.NoError(t, err)
	assert.Equal(t, "SCH.T2", g.Cell(1, 2))
	assert.Equal(t, "ID", g.Cell(3, 4))
}

func TestXLSXRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.xlsx")

	wb := NewWorkbook()
	wb.AddSheet(MappingSheet, NewMemoryGrid(
		[]string{"TARGET_TABLE", "SCH.T2"},
		[]string{"", ""},
		[]string{"S.NO", "TargetColumn", "Source Table", "Logic"},
	))
	wb.AddSheet(ConfigSheet, NewMemoryGrid([]string{"DAG Type", "CRON"}))
	require.NoError(t, wb.WriteXLSX(path))

	loaded, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, []string{MappingSheet, ConfigSheet}, loaded.SheetNames())

	g, err := loaded.Mapping()
	require.NoError(t, err)
	assert.Equal(t, "SCH.T2", g.Cell(1, 2))
	assert.Equal(t, "Logic", g.Cell(3, 4))

	cfg, ok := loaded.Sheet(ConfigSheet)
	require.True(t, ok)
	assert.Equal(t, "CRON", cfg.Cell(1, 2))
}

func TestOpen_UnsupportedExtension(t *testing.T) {
	_, err := Open("mapping.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}
