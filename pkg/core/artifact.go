package core

// ArtifactKind names a generated output file type.
type ArtifactKind string

// Artifact kinds.
const (
	ArtifactModel    ArtifactKind = "model"
	ArtifactMerge    ArtifactKind = "merge"
	ArtifactInsert   ArtifactKind = "insert"
	ArtifactJob      ArtifactKind = "job"
	ArtifactSchedule ArtifactKind = "schedule"
	ArtifactConfig   ArtifactKind = "config"
	ArtifactSources  ArtifactKind = "sources"
)

// AllArtifactKinds lists every kind in generation order.
var AllArtifactKinds = []ArtifactKind{
	ArtifactConfig,
	ArtifactModel,
	ArtifactSources,
	ArtifactMerge,
	ArtifactInsert,
	ArtifactJob,
	ArtifactSchedule,
}

// Artifact is generated text and the file name it is written under.
type Artifact struct {
	Kind    ArtifactKind
	Name    string
	Content string
}
