// Package mapping extracts normalized model specifications from mapping sheets.
package mapping

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/mapsql/internal/sheet"
	"github.com/leapstack-labs/mapsql/pkg/core"
)

// Header block keys (column A).
const (
	KeyTargetTable        = "TARGET_TABLE"
	KeySourceTable        = "SOURCE_TABLE"
	KeySourceType         = "SOURCE_TYPE"
	KeySourceName         = "SOURCE_NAME"
	KeyMaterialization    = "MATERIALIZATION"
	KeyUniqueKey          = "UNIQUE_KEY"
	KeyMinusLogicRequired = "MINUS_LOGIC_REQUIRED"
	KeyMergeUpdateExclude = "MERGE_UPDATE_EXCLUDE_COLUMNS"
	KeyTransientTable     = "TRANSIENT_TABLE"
)

// Section markers (column A).
const (
	MarkerColumns    = "S.NO"
	MarkerJoinTables = "JOIN_TABLES"
	MarkerWhere      = "WHERE_CONDITIONS"
	MarkerGroupBy    = "GROUP BY"
)

var headerKeys = map[string]bool{
	KeyTargetTable:        true,
	KeySourceTable:        true,
	KeySourceType:         true,
	KeySourceName:         true,
	KeyMaterialization:    true,
	KeyUniqueKey:          true,
	KeyMinusLogicRequired: true,
	KeyMergeUpdateExclude: true,
	KeyTransientTable:     true,
}

// Options configures defaults applied during extraction.
type Options struct {
	// DefaultSource is the SOURCE_NAME used when none can be derived.
	DefaultSource string
	// DefaultMergeUpdateExclude applies when MERGE_UPDATE_EXCLUDE_COLUMNS is blank.
	DefaultMergeUpdateExclude []string
}

// DefaultOptions returns the stock extraction defaults.
func DefaultOptions() Options {
	return Options{
		DefaultSource:             "default_source",
		DefaultMergeUpdateExclude: []string{"CREATE_DT", "CREATE_BY", "CREATE_PGM"},
	}
}

// Extractor reads mapping sheets into ModelSpecs.
type Extractor struct {
	opts   Options
	logger *slog.Logger
}

// NewExtractor creates an Extractor. A nil logger discards output.
func NewExtractor(opts Options, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{opts: opts, logger: logger}
}

// Extract reads the header block, column mappings, joins, and filters of a mapping sheet.
func (e *Extractor) Extract(g sheet.Grid) (*core.ModelSpec, error) {
	columnsHeader := sheet.FindRow(g, 1, 1, MarkerColumns)
	headerEnd := columnsHeader - 1
	if columnsHeader == 0 {
		headerEnd = g.MaxRow()
	}
	header := readHeader(g, headerEnd)

	spec, err := e.buildSpec(header)
	if err != nil {
		return nil, err
	}
	if columnsHeader == 0 {
		return nil, &core.ValidationError{Model: spec.Name(), Field: MarkerColumns, Message: "column mapping header not found"}
	}

	if spec.Columns, err = readColumns(g, columnsHeader, spec.Name()); err != nil {
		return nil, err
	}
	if spec.Joins, err = readJoins(g, spec.Name()); err != nil {
		return nil, err
	}
	if row := sheet.FindRow(g, 1, columnsHeader, MarkerWhere); row > 0 {
		spec.Where = sheet.TrimmedCell(g, row, 2)
	}
	if row := sheet.FindRow(g, 1, columnsHeader, MarkerGroupBy); row > 0 {
		spec.GroupBy = sheet.TrimmedCell(g, row, 2)
	}

	e.logger.Debug("extracted mapping",
		slog.String("target", spec.Name()),
		slog.String("source", spec.Source.FullyQualified()),
		slog.String("materialization", string(spec.Materialization)),
		slog.Int("columns", len(spec.Columns)),
		slog.Int("joins", len(spec.Joins)))

	return spec, nil
}

// readHeader collects the first value of every known key in rows 1..end.
func readHeader(g sheet.Grid, end int) map[string]string {
	header := make(map[string]string)
	for row := 1; row <= end; row++ {
		key := sheet.TrimmedCell(g, row, 1)
		if !headerKeys[key] {
			continue
		}
		if _, seen := header[key]; seen {
			continue
		}
		header[key] = sheet.TrimmedCell(g, row, 2)
		if len(header) == len(headerKeys) {
			break
		}
	}
	return header
}

func (e *Extractor) buildSpec(h map[string]string) (*core.ModelSpec, error) {
	targetRaw := h[KeyTargetTable]
	if targetRaw == "" {
		return nil, &core.ValidationError{Field: KeyTargetTable, Message: "required field is missing"}
	}
	target := strings.Split(targetRaw, ".")
	if len(target) != 2 || target[0] == "" || target[1] == "" {
		return nil, &core.ValidationError{
			Field:   KeyTargetTable,
			Message: fmt.Sprintf("%q must have the form schema.table", targetRaw),
		}
	}
	model := targetRaw

	sourceRaw := h[KeySourceTable]
	if sourceRaw == "" {
		return nil, &core.ValidationError{Model: model, Field: KeySourceTable, Message: "required field is missing"}
	}
	source := strings.Split(sourceRaw, ".")
	if len(source) != 3 || source[0] == "" || source[1] == "" || source[2] == "" {
		return nil, &core.ValidationError{
			Model:   model,
			Field:   KeySourceTable,
			Message: fmt.Sprintf("%q must have the form database.schema.table", sourceRaw),
		}
	}

	matRaw := strings.ToLower(h[KeyMaterialization])
	if matRaw == "" {
		matRaw = string(core.MaterializationIncremental)
	}
	mat, err := core.ParseMaterialization(matRaw)
	if err != nil {
		return nil, &core.ValidationError{Model: model, Field: KeyMaterialization, Message: err.Error()}
	}

	sourceName := h[KeySourceName]
	if sourceName == "" {
		sourceName = source[1]
	}
	if sourceName == "" {
		sourceName = e.opts.DefaultSource
	}

	exclude := SplitList(h[KeyMergeUpdateExclude])
	if len(exclude) == 0 {
		exclude = append([]string(nil), e.opts.DefaultMergeUpdateExclude...)
	}

	return &core.ModelSpec{
		Source:             core.TableRef{Database: source[0], Schema: source[1], Table: source[2]},
		SourceName:         sourceName,
		SourceKind:         core.ParseSourceKind(h[KeySourceType]),
		Target:             core.TableRef{Schema: target[0], Table: target[1]},
		Materialization:    mat,
		MinusLogicRequired: isYes(h[KeyMinusLogicRequired]),
		MergeUpdateExclude: exclude,
		MappingUniqueKey:   SplitList(h[KeyUniqueKey]),
		Transient:          isYes(h[KeyTransientTable]),
	}, nil
}

func readColumns(g sheet.Grid, headerRow int, model string) ([]core.ColumnMapping, error) {
	var cols []core.ColumnMapping
	seen := make(map[string]int)

	for row := headerRow + 1; row <= g.MaxRow(); row++ {
		if isSectionMarker(sheet.TrimmedCell(g, row, 1)) {
			break
		}
		target := sheet.TrimmedCell(g, row, 2)
		if target == "" {
			if sheet.TrimmedCell(g, row+1, 1) == MarkerJoinTables {
				break
			}
			continue
		}
		if prev, dup := seen[target]; dup {
			return nil, &core.ValidationError{
				Model:   model,
				Field:   target,
				Message: fmt.Sprintf("duplicate target column (rows %d and %d)", prev, row),
			}
		}
		seen[target] = row

		logic := sheet.TrimmedCell(g, row, 4)
		if logic == "" {
			logic = target
		}
		cols = append(cols, core.ColumnMapping{
			TargetColumn: target,
			SourceExpr:   sheet.TrimmedCell(g, row, 3),
			Logic:        logic,
		})
	}
	return cols, nil
}

func readJoins(g sheet.Grid, model string) ([]core.JoinSpec, error) {
	section := sheet.FindRow(g, 1, 1, MarkerJoinTables)
	if section == 0 {
		return nil, nil
	}

	var joins []core.JoinSpec
	for row := section + 2; row <= g.MaxRow(); row++ {
		typ := sheet.TrimmedCell(g, row, 1)
		if typ == MarkerWhere || typ == MarkerGroupBy {
			break
		}
		table := sheet.TrimmedCell(g, row, 4)
		if typ == "" || table == "" {
			next := sheet.TrimmedCell(g, row+1, 1)
			if next == MarkerWhere || next == MarkerGroupBy {
				break
			}
			continue
		}

		jt, err := core.ParseJoinType(typ)
		if err != nil {
			return nil, &core.ValidationError{Model: model, Field: fmt.Sprintf("join row %d", row), Message: err.Error()}
		}

		sourceName := sheet.TrimmedCell(g, row, 3)
		kind := core.SourceKindRef
		if strings.EqualFold(sheet.TrimmedCell(g, row, 2), string(core.SourceKindSource)) && sourceName != "" {
			kind = core.SourceKindSource
		}

		joins = append(joins, core.JoinSpec{
			Type:       jt,
			Kind:       kind,
			SourceName: sourceName,
			TableName:  table,
			Alias:      sheet.TrimmedCell(g, row, 5),
			Condition:  sheet.TrimmedCell(g, row, 6),
		})
	}
	return joins, nil
}

func isSectionMarker(s string) bool {
	return s == MarkerJoinTables || s == MarkerWhere || s == MarkerGroupBy
}

func isYes(s string) bool {
	return strings.EqualFold(s, "Y") || strings.EqualFold(s, "YES")
}

// SplitList splits a comma-separated cell into trimmed non-empty items.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
