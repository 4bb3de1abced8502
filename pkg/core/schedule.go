package core

// ScheduleKind selects the schedule descriptor variant.
type ScheduleKind string

// Schedule kinds.
const (
	ScheduleDatasetDependency ScheduleKind = "dataset_dependency"
	ScheduleCron              ScheduleKind = "cron"
	ScheduleSNS               ScheduleKind = "sns"
)

// ScheduleSpec carries the scheduling metadata of a model.
type ScheduleSpec struct {
	Kind              ScheduleKind
	Schedule          string
	DependencySchemas []string
	DependencyObjects []string
}
