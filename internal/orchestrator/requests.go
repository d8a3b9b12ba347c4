package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pavelanni/studydesk/internal/backend"
	"github.com/pavelanni/studydesk/internal/model"
)

// Defaults applied to zero-valued request fields.
const (
	DefaultQuestions     = 5
	DefaultLevel         = "medium"
	DefaultLessonMinutes = 45
	DefaultMaxNodes      = 24
	DefaultSlides        = 10
	DefaultLength        = "medium"
)

// Ask sends a free-form question. The question is echoed to the transcript
// before the request is sent; the reply may be any artifact.
func (o *Orchestrator) Ask(ctx context.Context, question string) (model.Artifact, error) {
	question = strings.TrimSpace(question)
	if err := validate.Var(question, "required"); err != nil {
		return model.Artifact{}, o.fail(ctx, &ValidationError{Field: "Question", Tag: "required"})
	}

	o.mu.Lock()
	o.say(model.RoleUser, question)
	o.mu.Unlock()

	return o.request(ctx, RequestAsk, func(ctx context.Context) (map[string]any, error) {
		return o.backend.Ask(ctx, question)
	})
}

// GenerateExam requests a new quiz. An empty topic falls back to the subject.
func (o *Orchestrator) GenerateExam(ctx context.Context, req backend.ExamRequest) (model.Artifact, error) {
	req.Subject = strings.TrimSpace(req.Subject)
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		req.Topic = req.Subject
	}
	if req.N == 0 {
		req.N = DefaultQuestions
	}
	if req.Level == "" {
		req.Level = DefaultLevel
	}
	if err := check(req); err != nil {
		return model.Artifact{}, o.fail(ctx, err)
	}
	return o.request(ctx, RequestExam, func(ctx context.Context) (map[string]any, error) {
		return o.backend.GenerateExam(ctx, req)
	})
}

// GeneratePlan requests a lesson plan.
func (o *Orchestrator) GeneratePlan(ctx context.Context, req backend.PlanRequest) (model.Artifact, error) {
	req.Subject = strings.TrimSpace(req.Subject)
	req.Topic = strings.TrimSpace(req.Topic)
	req.GlobalGoals = strings.TrimSpace(req.GlobalGoals)
	if req.LessonMinutes == 0 {
		req.LessonMinutes = DefaultLessonMinutes
	}
	if err := check(req); err != nil {
		return model.Artifact{}, o.fail(ctx, err)
	}
	return o.request(ctx, RequestPlan, func(ctx context.Context) (map[string]any, error) {
		return o.backend.GeneratePlan(ctx, req)
	})
}

// GenerateConceptMap requests a concept map.
func (o *Orchestrator) GenerateConceptMap(ctx context.Context, req backend.ConceptMapRequest) (model.Artifact, error) {
	req.Subject = strings.TrimSpace(req.Subject)
	req.Topic = strings.TrimSpace(req.Topic)
	if req.MaxNodes == 0 {
		req.MaxNodes = DefaultMaxNodes
	}
	if err := check(req); err != nil {
		return model.Artifact{}, o.fail(ctx, err)
	}
	return o.request(ctx, RequestConceptMap, func(ctx context.Context) (map[string]any, error) {
		return o.backend.GenerateConceptMap(ctx, req)
	})
}

// Summarize requests a summary of a topic or an attached file.
func (o *Orchestrator) Summarize(ctx context.Context, req backend.SummarizeRequest) (model.Artifact, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Length == "" {
		req.Length = DefaultLength
	}
	if req.File != nil && req.FileName == "" {
		req.FileName = "upload"
	}
	if err := check(req); err != nil {
		return model.Artifact{}, o.fail(ctx, err)
	}
	return o.request(ctx, RequestSummary, func(ctx context.Context) (map[string]any, error) {
		return o.backend.Summarize(ctx, req)
	})
}

// GenerateSlides downloads a slide deck. No session state changes.
func (o *Orchestrator) GenerateSlides(ctx context.Context, req backend.SlidesRequest) (*backend.File, error) {
	req.Subject = strings.TrimSpace(req.Subject)
	req.Topic = strings.TrimSpace(req.Topic)
	if req.NSlides == 0 {
		req.NSlides = DefaultSlides
	}
	if err := check(req); err != nil {
		return nil, o.fail(ctx, err)
	}
	f, err := o.backend.GenerateSlides(ctx, req)
	if err != nil {
		return nil, o.fail(ctx, err)
	}
	return f, nil
}

// PlanPDF downloads the PDF rendering of the current plan.
func (o *Orchestrator) PlanPDF(ctx context.Context) (*backend.File, error) {
	o.mu.Lock()
	plan := o.plan
	o.mu.Unlock()
	if plan == nil {
		return nil, o.fail(ctx, ErrNoPlan)
	}

	payload := plan.Raw
	if payload == nil {
		payload = map[string]any{"subject": plan.Subject, "topic": plan.Topic}
	}
	f, err := o.backend.PlanPDF(ctx, payload)
	if err != nil {
		return nil, o.fail(ctx, err)
	}
	return f, nil
}

// ExportConceptMap asks the graph view for an image of the current map.
func (o *Orchestrator) ExportConceptMap(ctx context.Context) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.conceptMap == nil {
		err := ErrNoConceptMap
		o.say(model.RoleSystem, Message(ctx, err))
		return nil, err
	}
	img, err := o.sinks.Graph.ExportImage()
	if err != nil {
		return nil, fmt.Errorf("export concept map: %w", err)
	}
	return img, nil
}

// request runs one guarded round trip. The lock is released while call
// runs. A failure of a superseded request is not reported.
func (o *Orchestrator) request(ctx context.Context, kind RequestKind, call func(context.Context) (map[string]any, error)) (model.Artifact, error) {
	t := o.Begin(kind)
	raw, err := call(ctx)
	if err != nil {
		o.mu.Lock()
		defer o.mu.Unlock()
		if !o.seq.current(t) {
			slog.Debug("dropping stale failure", "kind", t.Kind, "seq", t.Seq, "error", err)
			return model.Artifact{}, fmt.Errorf("%w: %w", ErrStale, err)
		}
		return model.Artifact{}, o.failLocked(ctx, err)
	}
	art, applied := o.Deliver(ctx, t, raw)
	if !applied {
		return art, ErrStale
	}
	return art, nil
}
