package mapping

import (
	"log/slog"

	"github.com/leapstack-labs/mapsql/internal/schedule"
	"github.com/leapstack-labs/mapsql/internal/sheet"
	"github.com/leapstack-labs/mapsql/pkg/core"
)

// Config sheet labels (column A).
const (
	LabelDAGType          = "DAG Type"
	LabelScheduleInterval = "Schedule Interval"
	LabelDependencies     = "Dependencies"
)

// maxDependencyRows is the number of dependency slots in the Config sheet.
const maxDependencyRows = 5

// ExtractSchedule reads the DAG settings of a Config sheet. A nil grid yields
// a dataset_dependency schedule with no dependencies.
func (e *Extractor) ExtractSchedule(g sheet.Grid) *core.ScheduleSpec {
	spec := &core.ScheduleSpec{Kind: core.ScheduleDatasetDependency}
	if g == nil {
		return spec
	}

	depHeader := 0
	for row := 1; row <= g.MaxRow(); row++ {
		switch sheet.TrimmedCell(g, row, 1) {
		case LabelDAGType:
			label := sheet.TrimmedCell(g, row, 2)
			if label == "" {
				continue
			}
			kind, ok := schedule.ParseKind(label)
			if !ok {
				e.logger.Warn("unknown DAG type, using dataset_dependency", slog.String("dag_type", label))
			}
			spec.Kind = kind
		case LabelScheduleInterval:
			spec.Schedule = sheet.TrimmedCell(g, row, 2)
		case LabelDependencies:
			if depHeader == 0 {
				depHeader = row + 1
			}
		}
	}

	if depHeader > 0 && spec.Kind == core.ScheduleDatasetDependency {
		for row := depHeader + 1; row <= depHeader+maxDependencyRows; row++ {
			schema := sheet.TrimmedCell(g, row, 2)
			table := sheet.TrimmedCell(g, row, 3)
			if schema == "" || table == "" {
				continue
			}
			spec.DependencySchemas = append(spec.DependencySchemas, schema)
			spec.DependencyObjects = append(spec.DependencyObjects, table)
		}
		if len(spec.DependencySchemas) == 0 {
			e.logger.Warn("no dependencies found for dataset_dependency schedule")
		}
	}

	return spec
}
