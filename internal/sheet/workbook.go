package sheet

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
)

// Well-known sheet names.
const (
	MappingSheet = "Mapping"
	ConfigSheet  = "Config"
)

var fold = cases.Fold()

// Workbook is an ordered set of named grids.
type Workbook struct {
	Path   string
	names  []string
	sheets map[string]*MemoryGrid
}

// NewWorkbook creates an empty workbook.
func NewWorkbook() *Workbook {
	return &Workbook{sheets: make(map[string]*MemoryGrid)}
}

// AddSheet adds or replaces a named sheet.
func (w *Workbook) AddSheet(name string, g *MemoryGrid) {
	key := fold.String(name)
	if _, ok := w.sheets[key]; !ok {
		w.names = append(w.names, name)
	}
	w.sheets[key] = g
}

// Sheet returns a sheet by case-insensitive name.
func (w *Workbook) Sheet(name string) (Grid, bool) {
	g, ok := w.sheets[fold.String(name)]
	if !ok {
		return nil, false
	}
	return g, true
}

// SheetNames returns sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	return append([]string(nil), w.names...)
}

// Mapping returns the sheet named Mapping, falling back to the first sheet.
func (w *Workbook) Mapping() (Grid, error) {
	if g, ok := w.Sheet(MappingSheet); ok {
		return g, nil
	}
	if len(w.names) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", w.Path)
	}
	g, _ := w.Sheet(w.names[0])
	return g, nil
}

// Open reads a workbook from an .xlsx or .csv file.
func Open(path string) (*Workbook, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(path)
	case ".csv":
		return ReadCSV(path)
	default:
		return nil, fmt.Errorf("unsupported mapping file type %q (expected .xlsx or .csv)", filepath.Ext(path))
	}
}

// ReadXLSX loads every sheet of an Excel workbook.
func ReadXLSX(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	wb := NewWorkbook()
	wb.Path = path
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
		}
		wb.AddSheet(name, NewMemoryGrid(rows...))
	}
	return wb, nil
}

// ReadCSV loads a single-sheet workbook; the sheet is named Mapping.
func ReadCSV(path string) (*Workbook, error) {
	f, err := os.Open(path) //nolint:gosec // user-selected mapping file
	if err != nil {
		return nil, fmt.Errorf("failed to open mapping file: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV mapping: %w", err)
	}

	wb := NewWorkbook()
	wb.Path = path
	wb.AddSheet(MappingSheet, NewMemoryGrid(rows...))
	return wb, nil
}

// WriteXLSX saves the workbook as an Excel file. Cell values are written as text.
func (w *Workbook) WriteXLSX(path string) error {
	if len(w.names) == 0 {
		return fmt.Errorf("workbook has no sheets")
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, name := range w.names {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return fmt.Errorf("failed to name sheet %s: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", name, err)
		}

		for r, row := range w.sheets[fold.String(name)].rows {
			for c, value := range row {
				if value == "" {
					continue
				}
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					return err
				}
				if err := f.SetCellStr(name, cell, value); err != nil {
					return fmt.Errorf("failed to write %s!%s: %w", name, cell, err)
				}
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	w.Path = path
	return nil
}
