package model

// ArtifactKind discriminates the Artifact union.
type ArtifactKind string

const (
	KindAnswer     ArtifactKind = "answer"
	KindExam       ArtifactKind = "exam"
	KindPlan       ArtifactKind = "plan"
	KindConceptMap ArtifactKind = "concept_map"
	KindSummary    ArtifactKind = "summary"
	KindError      ArtifactKind = "error"
	KindUnknown    ArtifactKind = "unknown"
)

// Artifact is one classified server response. Exactly the slot matching
// Kind is set.
type Artifact struct {
	Kind       ArtifactKind
	Answer     string
	Exam       *Exam
	Plan       *Plan
	ConceptMap *ConceptMap
	Summary    *Summary
	Message    string         // KindError
	Raw        map[string]any // KindUnknown
}
