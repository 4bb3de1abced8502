package schedule

import (
	"strings"

	"github.com/leapstack-labs/mapsql/pkg/core"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var upper = cases.Upper(language.Und)

var kindAliases = map[string]core.ScheduleKind{
	"DATASET DEPENDENCY": core.ScheduleDatasetDependency,
	"DATASET_DEPENDENCY": core.ScheduleDatasetDependency,
	"DATASET":            core.ScheduleDatasetDependency,
	"CRON":               core.ScheduleCron,
	"SNS":                core.ScheduleSNS,
}

// ParseKind normalizes a DAG type label. The second result is false when the
// label is unknown, in which case dataset_dependency is returned.
func ParseKind(label string) (core.ScheduleKind, bool) {
	key := upper.String(strings.Join(strings.Fields(label), " "))
	if kind, ok := kindAliases[key]; ok {
		return kind, true
	}
	return core.ScheduleDatasetDependency, false
}
