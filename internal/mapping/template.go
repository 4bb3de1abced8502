package mapping

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/mapsql/internal/sheet"
	"github.com/leapstack-labs/mapsql/pkg/core"
)

// TemplateOptions controls mapping template generation.
type TemplateOptions struct {
	// DefaultCron pre-fills the Schedule Interval row of the Config sheet.
	DefaultCron string
	// MergeUpdateExclude pre-fills MERGE_UPDATE_EXCLUDE_COLUMNS.
	MergeUpdateExclude []string
}

// templateJoinRows is the number of blank join slots in a new template.
const templateJoinRows = 5

// AuditLogic returns the fixed expression for a standard audit column of the
// given target, and false for any other column.
func AuditLogic(column string, target core.TableRef) (string, bool) {
	program := fmt.Sprintf("'%s'", target.Qualified())
	switch strings.ToUpper(column) {
	case "DATA_SRC", "CREATE_PGM", "UPDATE_PGM":
		return program, true
	case "CREATE_DT", "UPDATE_DT":
		return "CURRENT_TIMESTAMP()", true
	case "CREATE_BY", "UPDATE_BY":
		return "CAST(CURRENT_USER() AS VARCHAR(200))", true
	}
	return "", false
}

// BuildTemplate lays out a Mapping and Config sheet for the table described by a DDL parse.
func BuildTemplate(table *core.TableSchema, opts TemplateOptions) (*sheet.Workbook, error) {
	if table == nil || table.Name == "" {
		return nil, &core.ValidationError{Field: KeyTargetTable, Message: "DDL does not name a target table"}
	}
	target := core.TableRef{Table: table.Name}
	if schema, name, ok := strings.Cut(table.Name, "."); ok {
		target = core.TableRef{Schema: schema, Table: name}
	}

	m := sheet.NewMemoryGrid()
	m.AppendRow(table.Name + " Mapping")
	m.AppendRow(KeyTargetTable, table.Name)
	m.AppendRow(KeySourceTable, "")
	m.AppendRow(KeySourceType, string(core.SourceKindSource))
	m.AppendRow(KeySourceName, "")
	m.AppendRow(KeyMaterialization, string(core.MaterializationIncremental))
	m.AppendRow(KeyUniqueKey, strings.Join(table.Keys.UniqueKeys, ","))
	m.AppendRow(KeyMinusLogicRequired, "N")
	m.AppendRow(KeyTransientTable, "N")
	m.AppendRow(KeyMergeUpdateExclude, strings.Join(opts.MergeUpdateExclude, ","))
	m.AppendRow()
	m.AppendRow(MarkerColumns, "TargetColumn", "Source Table", "Logic/Mapping/Constant Value")

	for i, col := range table.Columns {
		logic, _ := AuditLogic(col.Name, target)
		m.AppendRow(strconv.Itoa(i+1), col.Name, "", logic)
	}

	m.AppendRow()
	m.AppendRow(MarkerJoinTables)
	m.AppendRow("Join Type", "Table Type", "Source Name", "Table Name", "Alias", "Join Condition")
	for range templateJoinRows {
		m.AppendRow(string(core.JoinLeft))
	}
	m.AppendRow()
	m.AppendRow(MarkerWhere, "")
	m.AppendRow()
	m.AppendRow(MarkerGroupBy, "")

	c := sheet.NewMemoryGrid()
	c.AppendRow("DAG Configuration")
	c.AppendRow()
	c.AppendRow(LabelDAGType, "DATASET DEPENDENCY", "DATASET DEPENDENCY, CRON or SNS")
	c.AppendRow(LabelScheduleInterval, opts.DefaultCron, "Cron expression used by CRON schedules")
	c.AppendRow()
	c.AppendRow(LabelDependencies)
	c.AppendRow("#", "Dependency Schema", "Dependency Table")
	for i := range maxDependencyRows {
		c.AppendRow(strconv.Itoa(i + 1))
	}

	wb := sheet.NewWorkbook()
	wb.AddSheet(sheet.MappingSheet, m)
	wb.AddSheet(sheet.ConfigSheet, c)
	return wb, nil
}
