package orchestrator

import (
	"context"

	"github.com/pavelanni/studydesk/internal/model"
	"github.com/pavelanni/studydesk/internal/panel"
	"github.com/pavelanni/studydesk/internal/quiz"
)

// Transcript receives chat lines.
type Transcript interface {
	Append(role model.Role, text string)
}

// QuizView renders the current quiz and its grading feedback.
type QuizView interface {
	RenderQuiz(exam *model.Exam)
	ShowFeedback(feedback []quiz.QuestionFeedback)
}

// PlanView renders a lesson plan as a table.
type PlanView interface {
	RenderPlan(plan *model.Plan)
}

// GraphView hands a concept map to a graph layout engine.
type GraphView interface {
	Render(nodes []model.Node, edges []model.Edge)
	FitToContent()
	ExportImage() ([]byte, error)
}

// SummaryView renders a markdown summary.
type SummaryView interface {
	RenderSummary(summary *model.Summary)
}

// Recorder appends applied artifacts to a history log.
type Recorder interface {
	Record(ctx context.Context, kind model.ArtifactKind, title string, data any) error
}

// Sinks bundles the render targets. Nil members are replaced with no-ops.
// Sinks are called with the orchestrator lock held and must not call back
// into the orchestrator.
type Sinks struct {
	Transcript Transcript
	Quiz       QuizView
	Plan       PlanView
	Graph      GraphView
	Summary    SummaryView
	Container  panel.Panel
	Panels     map[model.ActiveView]panel.Panel
}

func (s Sinks) withDefaults() Sinks {
	if s.Transcript == nil {
		s.Transcript = nopSink{}
	}
	if s.Quiz == nil {
		s.Quiz = nopSink{}
	}
	if s.Plan == nil {
		s.Plan = nopSink{}
	}
	if s.Graph == nil {
		s.Graph = nopSink{}
	}
	if s.Summary == nil {
		s.Summary = nopSink{}
	}
	return s
}

type nopSink struct{}

func (nopSink) Append(model.Role, string) {}
func (nopSink) RenderQuiz(*model.Exam) {}
func (nopSink) ShowFeedback([]quiz.QuestionFeedback) {}
func (nopSink) RenderPlan(*model.Plan) {}
func (nopSink) Render([]model.Node, []model.Edge) {}
func (nopSink) FitToContent() {}
func (nopSink) ExportImage() ([]byte, error) { return nil, ErrNoConceptMap }
func (nopSink) RenderSummary(*model.Summary) {}
