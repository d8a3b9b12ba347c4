// Package orchestrator routes every server reply to the state it replaces
// and keeps the output panels, the quiz session and the transcript in step.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pavelanni/studydesk/internal/backend"
	"github.com/pavelanni/studydesk/internal/i18n"
	"github.com/pavelanni/studydesk/internal/model"
	"github.com/pavelanni/studydesk/internal/normalize"
	"github.com/pavelanni/studydesk/internal/panel"
	"github.com/pavelanni/studydesk/internal/quiz"
)

// UnprintablePlaceholder stands in for a reply that cannot be shown as JSON.
const UnprintablePlaceholder = "[unprintable response]"

// Backend is the remote service as seen by the orchestrator.
type Backend interface {
	Ask(ctx context.Context, question string) (map[string]any, error)
	GenerateExam(ctx context.Context, req backend.ExamRequest) (map[string]any, error)
	GradeExam(ctx context.Context, exam map[string]any, answers model.AnswerSet) (map[string]any, error)
	GeneratePlan(ctx context.Context, req backend.PlanRequest) (map[string]any, error)
	GenerateConceptMap(ctx context.Context, req backend.ConceptMapRequest) (map[string]any, error)
	Summarize(ctx context.Context, req backend.SummarizeRequest) (map[string]any, error)
	GenerateSlides(ctx context.Context, req backend.SlidesRequest) (*backend.File, error)
	PlanPDF(ctx context.Context, plan map[string]any) (*backend.File, error)
}

// Orchestrator owns all session state. The lock is never held across a
// backend call.
type Orchestrator struct {
	backend  Backend
	recorder Recorder
	sinks    Sinks
	quiz     *quiz.Session

	mu         sync.Mutex
	seq        *sequencer
	panels     *panel.Controller
	transcript []model.TranscriptEntry
	plan       *model.Plan
	conceptMap *model.ConceptMap
	summary    *model.Summary
	feedback   []quiz.QuestionFeedback
}

// New creates an orchestrator. rec may be nil.
func New(b Backend, sinks Sinks, rec Recorder) *Orchestrator {
	sinks = sinks.withDefaults()
	return &Orchestrator{
		backend:  b,
		recorder: rec,
		sinks:    sinks,
		quiz:     quiz.New(),
		seq:      newSequencer(),
		panels:   panel.NewController(sinks.Container, sinks.Panels),
	}
}

// Quiz exposes the quiz session, e.g. for recording answers from a CLI.
func (o *Orchestrator) Quiz() *quiz.Session { return o.quiz }

// Begin issues a ticket for a request about to be sent.
func (o *Orchestrator) Begin(kind RequestKind) Ticket {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.seq.next(kind)
}

// Deliver applies raw only when t is still the latest request of its kind.
// A stale reply is dropped and reported as not applied. Plain answers
// replace no state and are always appended to the transcript.
func (o *Orchestrator) Deliver(ctx context.Context, t Ticket, raw map[string]any) (model.Artifact, bool) {
	art := normalize.Classify(raw)

	o.mu.Lock()
	if !o.seq.current(t) && art.Kind != model.KindAnswer {
		o.mu.Unlock()
		slog.Debug("dropping stale reply", "kind", t.Kind, "seq", t.Seq, "artifact", art.Kind)
		return art, false
	}
	o.apply(ctx, art)
	o.mu.Unlock()

	o.record(ctx, art)
	return art, true
}

// HandleResponse classifies raw and applies it unconditionally.
func (o *Orchestrator) HandleResponse(ctx context.Context, raw map[string]any) model.Artifact {
	art := normalize.Classify(raw)

	o.mu.Lock()
	o.apply(ctx, art)
	o.mu.Unlock()

	o.record(ctx, art)
	return art
}

// apply dispatches one artifact. Callers hold o.mu.
func (o *Orchestrator) apply(ctx context.Context, art model.Artifact) {
	switch art.Kind {
	case model.KindExam:
		if err := o.quiz.Load(art.Exam); err != nil {
			slog.Warn("load exam", "error", err)
			return
		}
		o.feedback = nil
		o.sinks.Quiz.RenderQuiz(art.Exam)
		o.panels.Show(model.ViewQuiz)
		o.say(model.RoleAssistant, i18n.Tp(ctx, "QuizReady", len(art.Exam.Questions)))

	case model.KindConceptMap:
		o.conceptMap = art.ConceptMap
		o.sinks.Graph.Render(art.ConceptMap.Nodes, art.ConceptMap.Edges)
		o.sinks.Graph.FitToContent()
		o.panels.Show(model.ViewConceptMap)
		o.say(model.RoleAssistant, i18n.T(ctx, "ConceptMapReady"))

	case model.KindPlan:
		o.plan = art.Plan
		o.sinks.Plan.RenderPlan(art.Plan)
		o.panels.Show(model.ViewPlan)
		o.say(model.RoleAssistant, i18n.Td(ctx, "PlanReady", map[string]any{
			"Subject": art.Plan.Subject,
			"Topic":   art.Plan.Topic,
		}))

	case model.KindSummary:
		if art.Summary.Markdown == "" {
			art.Summary.Markdown = i18n.T(ctx, "NoSummaryContent")
		}
		o.summary = art.Summary
		o.sinks.Summary.RenderSummary(art.Summary)
		o.panels.Show(model.ViewSummary)
		o.say(model.RoleAssistant, i18n.T(ctx, "SummaryReady"))

	case model.KindAnswer:
		o.say(model.RoleAssistant, art.Answer)

	case model.KindError:
		o.say(model.RoleSystem, art.Message)

	default:
		text, ok := normalize.Stringify(art.Raw)
		if !ok {
			text = UnprintablePlaceholder
		}
		slog.Warn("unrecognized reply", "payload", text)
		o.say(model.RoleAssistant, text)
	}
}

// say appends a transcript line. Callers hold o.mu.
func (o *Orchestrator) say(role model.Role, text string) {
	o.transcript = append(o.transcript, model.TranscriptEntry{Role: role, Text: text, At: time.Now()})
	o.sinks.Transcript.Append(role, text)
}

// fail surfaces err in the transcript and returns it.
func (o *Orchestrator) fail(ctx context.Context, err error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.failLocked(ctx, err)
}

// failLocked is fail for callers holding o.mu.
func (o *Orchestrator) failLocked(ctx context.Context, err error) error {
	slog.Warn("request failed", "error", err)
	o.say(model.RoleSystem, Message(ctx, err))
	return err
}

func (o *Orchestrator) record(ctx context.Context, art model.Artifact) {
	var (
		title string
		data  any
	)
	switch art.Kind {
	case model.KindExam:
		title, data = art.Exam.Title, art.Exam
		if title == "" {
			title = art.Exam.Topic
		}
	case model.KindConceptMap:
		title, data = fmt.Sprintf("%d nodes, %d edges", len(art.ConceptMap.Nodes), len(art.ConceptMap.Edges)), art.ConceptMap
	case model.KindPlan:
		title, data = art.Plan.Subject+" / "+art.Plan.Topic, art.Plan
	case model.KindSummary:
		title, data = art.Summary.Topic, art.Summary
	default:
		return
	}
	o.save(ctx, art.Kind, title, data)
}

func (o *Orchestrator) save(ctx context.Context, kind model.ArtifactKind, title string, data any) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.Record(ctx, kind, title, data); err != nil {
		slog.Warn("record history event", "kind", kind, "error", err)
	}
}

// SubmitQuiz grades the live answers. The quiz view overlays feedback; the
// active panel is left alone.
func (o *Orchestrator) SubmitQuiz(ctx context.Context, in quiz.Input) (*model.GradeResult, error) {
	answers := o.quiz.BuildSubmission(in)
	res, err := o.quiz.Grade(ctx, quiz.GraderFunc(o.grade), answers)
	if err != nil {
		return nil, o.fail(ctx, err)
	}

	o.mu.Lock()
	if o.quiz.Result() != res {
		o.mu.Unlock()
		return nil, o.fail(ctx, quiz.ErrSuperseded)
	}
	o.feedback = o.quiz.Feedback()
	o.sinks.Quiz.ShowFeedback(o.feedback)
	o.say(model.RoleAssistant, i18n.Td(ctx, "GradeReady", map[string]any{
		"Score": formatScore(res.Score),
		"Max":   formatScore(res.Max),
	}))
	o.mu.Unlock()

	title := ""
	if exam := o.quiz.Exam(); exam != nil {
		title = exam.Title
	}
	o.save(ctx, model.KindGrade, title, map[string]any{"answers": answers, "result": res})
	return res, nil
}

func (o *Orchestrator) grade(ctx context.Context, exam *model.Exam, answers model.AnswerSet) (*model.GradeResult, error) {
	payload := exam.Raw
	if payload == nil {
		b, err := json.Marshal(exam)
		if err != nil {
			return nil, fmt.Errorf("encode exam: %w", err)
		}
		if err := json.Unmarshal(b, &payload); err != nil {
			return nil, fmt.Errorf("encode exam: %w", err)
		}
	}
	raw, err := o.backend.GradeExam(ctx, payload, answers)
	if err != nil {
		return nil, err
	}
	res := normalize.Grade(raw)
	return &res, nil
}

// Show switches the visible panel on user request.
func (o *Orchestrator) Show(view model.ActiveView) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.panels.Show(view)
}

// Snapshot is a copy of the session state for rendering.
type Snapshot struct {
	Transcript []model.TranscriptEntry `json:"transcript"`
	Active     model.ActiveView        `json:"active_view"`
	QuizState  quiz.State              `json:"quiz_state"`
	Exam       *model.Exam             `json:"exam,omitempty"`
	Answers    model.AnswerSet         `json:"answers,omitempty"`
	Result     *model.GradeResult      `json:"result,omitempty"`
	Feedback   []quiz.QuestionFeedback `json:"feedback,omitempty"`
	Plan       *model.Plan             `json:"plan,omitempty"`
	ConceptMap *model.ConceptMap       `json:"concept_map,omitempty"`
	Summary    *model.Summary          `json:"summary,omitempty"`
}

// Snapshot returns the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{
		Transcript: append([]model.TranscriptEntry(nil), o.transcript...),
		Active:     o.panels.Active(),
		QuizState:  o.quiz.State(),
		Exam:       o.quiz.Exam(),
		Answers:    o.quiz.Answers(),
		Result:     o.quiz.Result(),
		Feedback:   append([]quiz.QuestionFeedback(nil), o.feedback...),
		Plan:       o.plan,
		ConceptMap: o.conceptMap,
		Summary:    o.summary,
	}
}

// Visible returns the views currently shown.
func (o *Orchestrator) Visible() []model.ActiveView {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.panels.Visible()
}

func formatScore(f float64) string {
	s, _ := normalize.Stringify(f)
	return s
}
