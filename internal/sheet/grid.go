// Package sheet provides the cell-grid abstraction the mapping extractor reads,
// plus workbook readers and writers for concrete file formats.
package sheet

import "strings"

// Grid is a read-only rows x columns cell accessor. Rows and columns are 1-based.
type Grid interface {
	// Cell returns the text of a cell, or "" when it is empty or out of range.
	Cell(row, col int) string
	// MaxRow returns the last row that may hold data.
	MaxRow() int
}

// MemoryGrid is a Grid backed by a slice of rows.
type MemoryGrid struct {
	rows [][]string
}

// NewMemoryGrid creates a grid from rows; rows[0] is row 1.
func NewMemoryGrid(rows ...[]string) *MemoryGrid {
	g := &MemoryGrid{rows: make([][]string, len(rows))}
	for i, r := range rows {
		g.rows[i] = append([]string(nil), r...)
	}
	return g
}

// Cell implements Grid.
func (g *MemoryGrid) Cell(row, col int) string {
	if row < 1 || row > len(g.rows) {
		return ""
	}
	r := g.rows[row-1]
	if col < 1 || col > len(r) {
		return ""
	}
	return r[col-1]
}

// MaxRow implements Grid.
func (g *MemoryGrid) MaxRow() int {
	return len(g.rows)
}

// Set writes a cell, growing the grid as needed.
func (g *MemoryGrid) Set(row, col int, value string) {
	for len(g.rows) < row {
		g.rows = append(g.rows, nil)
	}
	r := g.rows[row-1]
	for len(r) < col {
		r = append(r, "")
	}
	r[col-1] = value
	g.rows[row-1] = r
}

// AppendRow adds a row after the last one and returns its 1-based index.
func (g *MemoryGrid) AppendRow(cells ...string) int {
	g.rows = append(g.rows, append([]string(nil), cells...))
	return len(g.rows)
}

// Rows returns a copy of the grid contents.
func (g *MemoryGrid) Rows() [][]string {
	out := make([][]string, len(g.rows))
	for i, r := range g.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// FindRow returns the first row at or after start whose column col equals value.
// Returns 0 when no row matches.
func FindRow(g Grid, col, start int, value string) int {
	for row := start; row <= g.MaxRow(); row++ {
		if g.Cell(row, col) == value {
			return row
		}
	}
	return 0
}

// TrimmedCell returns a cell with surrounding whitespace removed.
func TrimmedCell(g Grid, row, col int) string {
	return strings.TrimSpace(g.Cell(row, col))
}
