package orchestrator

// RequestKind groups requests whose replies replace the same state.
type RequestKind string

const (
	RequestAsk        RequestKind = "ask"
	RequestExam       RequestKind = "exam"
	RequestPlan       RequestKind = "plan"
	RequestConceptMap RequestKind = "concept_map"
	RequestSummary    RequestKind = "summary"
)

// Ticket identifies one issued request.
type Ticket struct {
	Kind RequestKind
	Seq  uint64
}

// sequencer hands out monotonically increasing tickets per kind. Callers
// hold the orchestrator lock.
type sequencer struct {
	last map[RequestKind]uint64
}

func newSequencer() *sequencer {
	return &sequencer{last: make(map[RequestKind]uint64)}
}

func (s *sequencer) next(kind RequestKind) Ticket {
	s.last[kind]++
	return Ticket{Kind: kind, Seq: s.last[kind]}
}

// current reports whether t is the latest ticket issued for its kind.
func (s *sequencer) current(t Ticket) bool {
	return s.last[t.Kind] == t.Seq
}
