// Package backend talks to the remote generation and grading service.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pavelanni/studydesk/internal/model"
)

// Op names a remote operation.
type Op string

const (
	OpAsk                Op = "ask"
	OpGenerateExam       Op = "generate_exam"
	OpGradeExam          Op = "grade_exam"
	OpGeneratePlan       Op = "generate_plan"
	OpGenerateConceptMap Op = "generate_concept_map"
	OpGenerateSlides     Op = "generate_slides"
	OpPlanPDF            Op = "plan_pdf"
	OpSummarize          Op = "summarize"
)

// Path returns the HTTP path of the operation.
func (o Op) Path() string { return "/" + string(o) }

// Default download names used when the server sends no filename.
const (
	DefaultSlidesFilename = "slides.pptx"
	DefaultPlanFilename   = "lesson_plan.pdf"
)

// ServerError is a non-success HTTP status. Message is the server's
// {"error": ...} text and may be empty.
type ServerError struct {
	Op      Op
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: server returned status %d", e.Op, e.Status)
}

// TransportError is an unreachable server or an unreadable body.
type TransportError struct {
	Op  Op
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *TransportError) Unwrap() error { return e.Err }

// File is a binary download.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// ExamRequest is the body of generate_exam.
type ExamRequest struct {
	Subject string `json:"subject"`
	Topic   string `json:"topic" validate:"required_without=Subject"`
	N       int    `json:"n" validate:"min=1,max=50"`
	Level   string `json:"level" validate:"omitempty,oneof=easy medium hard"`
}

// PlanRequest is the body of generate_plan.
type PlanRequest struct {
	Subject       string `json:"subject" validate:"required"`
	Topic         string `json:"topic" validate:"required"`
	Grade         string `json:"grade"`
	LessonMinutes int    `json:"lesson_minutes" validate:"min=1"`
	GlobalGoals   string `json:"global_goals"`
}

// ConceptMapRequest is the body of generate_concept_map.
type ConceptMapRequest struct {
	Subject  string `json:"subject"`
	Topic    string `json:"topic" validate:"required"`
	MaxNodes int    `json:"max_nodes" validate:"min=1"`
	TopK     int    `json:"top_k,omitempty" validate:"min=0"`
}

// SlidesRequest is the body of generate_slides.
type SlidesRequest struct {
	Subject string `json:"subject"`
	Topic   string `json:"topic" validate:"required"`
	NSlides int    `json:"n_slides" validate:"min=1"`
}

// SummarizeRequest is the body of summarize. When File is set the request
// is sent as multipart form data.
type SummarizeRequest struct {
	Topic    string    `json:"topic" validate:"required_without_all=Text FileName"`
	Length   string    `json:"length" validate:"omitempty,oneof=short medium long"`
	Text     string    `json:"text,omitempty"`
	FileName string    `json:"-"`
	File     io.Reader `json:"-" validate:"-"`
}

// DefaultTopK derives the retrieval depth from the node budget.
func DefaultTopK(maxNodes int) int {
	return min(12, max(4, maxNodes/2))
}

// Client is the resty-backed implementation of the wire contract.
type Client struct {
	http *resty.Client
}

// New creates a client for the service at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return &Client{http: c}
}

// Ask sends a free-form question.
func (c *Client) Ask(ctx context.Context, question string) (map[string]any, error) {
	return c.postJSON(ctx, OpAsk, map[string]string{"question": question})
}

// GenerateExam requests a new quiz.
func (c *Client) GenerateExam(ctx context.Context, req ExamRequest) (map[string]any, error) {
	return c.postJSON(ctx, OpGenerateExam, req)
}

// GradeExam submits answers for the exam payload as it was received.
func (c *Client) GradeExam(ctx context.Context, exam map[string]any, answers model.AnswerSet) (map[string]any, error) {
	if answers == nil {
		answers = model.AnswerSet{}
	}
	return c.postJSON(ctx, OpGradeExam, map[string]any{"exam": exam, "answers": answers})
}

// GeneratePlan requests a lesson plan.
func (c *Client) GeneratePlan(ctx context.Context, req PlanRequest) (map[string]any, error) {
	return c.postJSON(ctx, OpGeneratePlan, req)
}

// GenerateConceptMap requests a concept map.
func (c *Client) GenerateConceptMap(ctx context.Context, req ConceptMapRequest) (map[string]any, error) {
	if req.TopK == 0 {
		req.TopK = DefaultTopK(req.MaxNodes)
	}
	return c.postJSON(ctx, OpGenerateConceptMap, req)
}

// Summarize requests a summary of a topic, plain text or an attached file.
func (c *Client) Summarize(ctx context.Context, req SummarizeRequest) (map[string]any, error) {
	if req.File == nil {
		return c.postJSON(ctx, OpSummarize, req)
	}
	r := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{"topic": req.Topic, "length": req.Length}).
		SetFileReader("file", req.FileName, req.File)
	return c.decode(OpSummarize, r)
}

// GenerateSlides downloads a generated slide deck.
func (c *Client) GenerateSlides(ctx context.Context, req SlidesRequest) (*File, error) {
	return c.postBinary(ctx, OpGenerateSlides, req, DefaultSlidesFilename)
}

// PlanPDF downloads the PDF rendering of a plan payload.
func (c *Client) PlanPDF(ctx context.Context, plan map[string]any) (*File, error) {
	return c.postBinary(ctx, OpPlanPDF, map[string]any{"plan": plan}, DefaultPlanFilename)
}

func (c *Client) postJSON(ctx context.Context, op Op, body any) (map[string]any, error) {
	r := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	return c.decode(op, r)
}

func (c *Client) decode(op Op, r *resty.Request) (map[string]any, error) {
	start := time.Now()
	resp, err := r.Post(op.Path())
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	slog.Debug("backend response", "op", op, "status", resp.StatusCode(), "elapsed", time.Since(start))

	if !resp.IsSuccess() {
		return nil, serverError(op, resp)
	}

	var out map[string]any
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	if out == nil {
		return nil, &TransportError{Op: op, Err: errors.New("response is not a JSON object")}
	}
	return out, nil
}

func (c *Client) postBinary(ctx context.Context, op Op, body any, fallback string) (*File, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "*/*").
		SetBody(body).
		Post(op.Path())
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	if !resp.IsSuccess() {
		return nil, serverError(op, resp)
	}
	f := &File{
		Name:        Filename(resp.Header().Get("Content-Disposition"), fallback),
		ContentType: resp.Header().Get("Content-Type"),
		Data:        resp.Body(),
	}
	slog.Debug("backend download", "op", op, "file", f.Name, "bytes", len(f.Data))
	return f, nil
}

func serverError(op Op, resp *resty.Response) *ServerError {
	e := &ServerError{Op: op, Status: resp.StatusCode()}
	if e.Status == 0 {
		e.Status = http.StatusInternalServerError
	}
	var body struct {
		Error any `json:"error"`
	}
	if json.Unmarshal(resp.Body(), &body) == nil {
		if s, ok := body.Error.(string); ok {
			e.Message = s
		}
	}
	slog.Warn("backend error", "op", op, "status", e.Status, "message", e.Message)
	return e
}
