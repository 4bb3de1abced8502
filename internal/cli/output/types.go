package output

import "time"

// GenerateOutput is the JSON shape of a generate run.
type GenerateOutput struct {
	Results []GenerateResult `json:"results"`
	Summary GenerateSummary  `json:"summary"`
}

// GenerateResult describes one generated mapping.
type GenerateResult struct {
	Mapping    string          `json:"mapping,omitempty"`
	Target     string          `json:"target"`
	RunID      string          `json:"run_id,omitempty"`
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
	UniqueKey  []string        `json:"unique_key,omitempty"`
	KeySource  string          `json:"key_source,omitempty"`
	TargetDDL  string          `json:"target_ddl,omitempty"`
	Files      []GeneratedFile `json:"files"`
	DurationMS int64           `json:"duration_ms"`
}

// GeneratedFile is one written artifact.
type GeneratedFile struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}

// GenerateSummary totals a generate run.
type GenerateSummary struct {
	Mappings int `json:"mappings"`
	Files    int `json:"files"`
	Failed   int `json:"failed"`
}

// DAGOutput is the JSON shape of the dag command.
type DAGOutput struct {
	Levels      []DAGLevel `json:"levels"`
	TotalModels int        `json:"total_models"`
	TotalEdges  int        `json:"total_edges"`
}

// DAGLevel groups models that can be generated together.
type DAGLevel struct {
	Level  int       `json:"level"`
	Models []DAGNode `json:"models"`
}

// DAGNode is one model in the graph.
type DAGNode struct {
	Model     string   `json:"model"`
	Path      string   `json:"path"`
	DependsOn []string `json:"depends_on"`
	UsedBy    []string `json:"used_by"`
}

// DDLOutput is the JSON shape of a parsed DDL file.
type DDLOutput struct {
	File        string      `json:"file"`
	Table       string      `json:"table"`
	Columns     []DDLColumn `json:"columns"`
	UniqueKeys  []string    `json:"unique_keys"`
	PrimaryKeys []string    `json:"primary_keys"`
}

// DDLColumn is one parsed column.
type DDLColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// KeysOutput is the JSON shape of a key resolution.
type KeysOutput struct {
	Model     string        `json:"model"`
	UniqueKey []string      `json:"unique_key"`
	Step      string        `json:"step"`
	TargetDDL string        `json:"target_ddl,omitempty"`
	Decisions []KeyDecision `json:"decisions"`
}

// KeyDecision is one evaluated resolution step.
type KeyDecision struct {
	Step     string   `json:"step"`
	Keys     []string `json:"keys"`
	Accepted bool     `json:"accepted"`
	Reason   string   `json:"reason"`
}

// HistoryOutput is the JSON shape of the recent file lists.
type HistoryOutput struct {
	MappingFiles []string `json:"mapping_files"`
	DDLFiles     []string `json:"ddl_files"`
}

// RunsOutput is the JSON shape of the run log.
type RunsOutput struct {
	Runs []RunInfo `json:"runs"`
}

// RunInfo is one logged generation run.
type RunInfo struct {
	ID          string        `json:"id"`
	Mapping     string        `json:"mapping"`
	Target      string        `json:"target"`
	Status      string        `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Error       string        `json:"error,omitempty"`
	Artifacts   []RunArtifact `json:"artifacts,omitempty"`
}

// RunArtifact is a file written by a run.
type RunArtifact struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}
