// Package schedule emits Airflow DAG descriptors that trigger a model's dbt job.
package schedule

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/mapsql/internal/job"
	"github.com/leapstack-labs/mapsql/pkg/core"
)

// DefaultCron is the schedule used when a cron DAG names none.
const DefaultCron = "0 */4 * * *"

// Placeholder dependency used when a dataset DAG has none.
const (
	PlaceholderSchema = "DW"
	PlaceholderObject = "PLACEHOLDER"
)

// Options configures descriptor generation.
type Options struct {
	DefaultCron string
	// WorkspaceName and WorkspaceEnv are baked into dataset names when both
	// are set; otherwise the names are resolved by the DAG helper at runtime.
	WorkspaceName string
	WorkspaceEnv  string
}

// DefaultOptions returns the stock schedule options.
func DefaultOptions() Options {
	return Options{DefaultCron: DefaultCron}
}

// Generator builds schedule descriptors.
type Generator struct {
	opts   Options
	logger *slog.Logger
}

// NewGenerator creates a Generator. A nil logger discards output.
func NewGenerator(opts Options, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.DefaultCron == "" {
		opts.DefaultCron = DefaultCron
	}
	return &Generator{opts: opts, logger: logger}
}

// ModelType derives the DAG model type from the table name prefix.
func ModelType(table, schema string) string {
	switch {
	case strings.HasPrefix(table, "F"):
		return "FACT"
	case strings.HasPrefix(table, "D_"):
		return "DIM"
	case strings.HasPrefix(table, "X_"):
		return "XREF"
	case strings.HasPrefix(table, "L_"):
		return "LKP"
	case strings.HasPrefix(table, "R"):
		return "REL"
	}
	return schema
}

// FileName returns <schema>_<table>.py.
func FileName(target core.TableRef) string {
	return job.Name(target) + ".py"
}

// Generate renders the descriptor for spec. A spec without schedule metadata
// gets a dataset_dependency DAG on the placeholder dataset.
func (g *Generator) Generate(spec *core.ModelSpec) *core.Artifact {
	sched := spec.Schedule
	if sched == nil {
		sched = &core.ScheduleSpec{Kind: core.ScheduleDatasetDependency}
	}

	var content string
	switch sched.Kind {
	case core.ScheduleCron:
		content = g.cron(spec, sched)
	case core.ScheduleSNS:
		content = g.sns(spec)
	default:
		content = g.datasetDependency(spec, sched)
	}
	return &core.Artifact{Kind: core.ArtifactSchedule, Name: FileName(spec.Target), Content: content}
}

const headerTemplate = `from airflow import Dataset
from common.classes.dag_utility import DAG_Helper, workspace_name, workspace_env

SCHEMA_NAME, MODEL_TYPE, MODEL_NAME = '%s', '%s', '%s'
DBT_JOB_NAME = SCHEMA_NAME + '_' + MODEL_NAME
`

const taskTemplate = `
with dag:
    dbt_airflow_task = dag_helper.generate_dbt_python_task(DBT_JOB_NAME)
`

func (g *Generator) header(spec *core.ModelSpec) string {
	t := spec.Target
	return fmt.Sprintf(headerTemplate, t.Schema, ModelType(t.Table, t.Schema), t.Table)
}

func (g *Generator) datasetDependency(spec *core.ModelSpec, sched *core.ScheduleSpec) string {
	schemas, objects := sched.DependencySchemas, sched.DependencyObjects
	if len(schemas) == 0 || len(objects) == 0 {
		g.logger.Info("no dependencies found, using placeholder dataset", slog.String("model", spec.Name()))
		schemas, objects = []string{PlaceholderSchema}, []string{PlaceholderObject}
	}
	if len(schemas) != len(objects) {
		n := min(len(schemas), len(objects))
		g.logger.Warn("mismatched dependency counts, truncating",
			slog.String("model", spec.Name()),
			slog.Int("schemas", len(schemas)),
			slog.Int("objects", len(objects)),
			slog.Int("using", n))
		schemas, objects = schemas[:n], objects[:n]
	}

	datasets := make([]string, len(schemas))
	for i := range schemas {
		datasets[i] = g.dataset(schemas[i], objects[i])
	}

	var b strings.Builder
	b.WriteString(g.header(spec))
	b.WriteString("\nDAG_SCHEDULE = [\n    ")
	b.WriteString(strings.Join(datasets, ", "))
	b.WriteString("\n]\n\n")
	b.WriteString("dag_helper = DAG_Helper()\n")
	b.WriteString("dag = dag_helper.generate_DAG(SCHEMA_NAME, MODEL_TYPE, MODEL_NAME, schedule=DAG_SCHEDULE)\n")
	b.WriteString(taskTemplate)
	return b.String()
}

func (g *Generator) dataset(schema, object string) string {
	if g.opts.WorkspaceName != "" && g.opts.WorkspaceEnv != "" {
		return fmt.Sprintf("Dataset('%s_%s_%s_%s')",
			upper.String(g.opts.WorkspaceName), upper.String(g.opts.WorkspaceEnv), schema, object)
	}
	return fmt.Sprintf("Dataset(f'{workspace_name.upper()}_{workspace_env.upper()}_%s_%s')", schema, object)
}

func (g *Generator) cron(spec *core.ModelSpec, sched *core.ScheduleSpec) string {
	expr := strings.TrimSpace(sched.Schedule)
	if expr == "" {
		expr = g.opts.DefaultCron
	}

	var b strings.Builder
	b.WriteString(g.header(spec))
	b.WriteString("\ndag_helper = DAG_Helper()\n")
	fmt.Fprintf(&b, "dag = dag_helper.generate_DAG(SCHEMA_NAME, MODEL_TYPE, MODEL_NAME, schedule='%s')\n", expr)
	b.WriteString(taskTemplate)
	return b.String()
}

const snsTemplate = `from common.classes.dag_utility import DAG_Helper

DOMAIN_NAME, MODEL_TYPE, DP_NAME = '%s', 'SNS_DPND', '%s'
DBT_JOB_NAME = DOMAIN_NAME + '_' + DP_NAME

dag_helper = DAG_Helper()
dag = dag_helper.generate_DAG(MODEL_TYPE + '_' + DOMAIN_NAME, MODEL_TYPE, DP_NAME, schedule=None)
`

func (g *Generator) sns(spec *core.ModelSpec) string {
	domain := spec.Source.Schema
	if domain == "" {
		domain = spec.Target.Schema
	}
	return fmt.Sprintf(snsTemplate, domain, spec.Target.Table) + taskTemplate
}
