package model

import (
	"context"
	"time"
)

// Role represents a transcript message role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// TranscriptEntry is one line of the chat transcript.
type TranscriptEntry struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// QuestionType distinguishes multiple-choice from open questions.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "mcq"
	QuestionOpen           QuestionType = "open"
)

// Option is a single choice of a multiple-choice question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is an exam question. Immutable once the exam is created.
type Question struct {
	ID      string       `json:"id"`
	Type    QuestionType `json:"qtype"`
	Text    string       `json:"text"`
	Options []Option     `json:"options,omitempty"`
}

// HasOption reports whether id is one of the question's option ids.
func (q Question) HasOption(id string) bool {
	for _, o := range q.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// Exam is a generated quiz. Raw keeps the server payload so it can be sent
// back verbatim for grading.
type Exam struct {
	Title       string         `json:"title,omitempty"`
	Questions   []Question     `json:"questions"`
	VersionText string         `json:"version_text,omitempty"`
	Subject     string         `json:"subject,omitempty"`
	Topic       string         `json:"topic,omitempty"`
	Level       string         `json:"level,omitempty"`
	Count       int            `json:"count,omitempty"`
	Raw         map[string]any `json:"-"`
}

// Question returns the question with the given id.
func (e *Exam) Question(id string) (Question, bool) {
	if e == nil {
		return Question{}, false
	}
	for _, q := range e.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// TranslationKey is the reserved AnswerSet key for the supplementary
// translation of an exam's version text.
const TranslationKey = "translation"

// AnswerSet maps question ids to submitted values.
type AnswerSet map[string]string

// Detail is the per-question outcome of grading.
type Detail struct {
	QID         string `json:"qid"`
	Correct     bool   `json:"correct"`
	CorrectText string `json:"correct_text,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

// GradeResult is the scored outcome of one submission.
type GradeResult struct {
	Score    float64  `json:"score"`
	Max      float64  `json:"max"`
	Details  []Detail `json:"details"`
	Feedback string   `json:"feedback,omitempty"`
}

// Lesson is one row of a lesson plan.
type Lesson struct {
	Number     int      `json:"lesson_number,omitempty"`
	Title      string   `json:"title"`
	Objectives []string `json:"objectives"`
	Activities []string `json:"activities"`
	Materials  []string `json:"materials"`
	Assessment string   `json:"assessment,omitempty"`
}

// Plan is a generated lesson plan. Raw is what the PDF export receives.
type Plan struct {
	Subject       string         `json:"subject"`
	Topic         string         `json:"topic"`
	Grade         string         `json:"grade,omitempty"`
	LessonMinutes int            `json:"lesson_minutes,omitempty"`
	GlobalGoals   string         `json:"global_goals,omitempty"`
	Lessons       []Lesson       `json:"lessons"`
	Raw           map[string]any `json:"-"`
}

// Node is a concept-map node. Attrs holds any extra server fields.
type Node struct {
	Key   string         `json:"key"`
	Text  string         `json:"text"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Edge is a directed, optionally labeled concept-map link.
type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

// ConceptMap is a labeled directed graph of topic nodes.
type ConceptMap struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Summary is a generated study summary in markdown.
type Summary struct {
	Topic    string `json:"topic,omitempty"`
	Length   string `json:"length,omitempty"`
	Markdown string `json:"summary_md"`
}

// ActiveView is the single visible output panel.
type ActiveView string

const (
	ViewNone       ActiveView = ""
	ViewQuiz       ActiveView = "quiz"
	ViewPlan       ActiveView = "plan"
	ViewConceptMap ActiveView = "concept_map"
	ViewSummary    ActiveView = "summary"
)

// Views lists every panel view, excluding ViewNone.
var Views = []ActiveView{ViewQuiz, ViewPlan, ViewConceptMap, ViewSummary}

// ParseView converts a view name to an ActiveView.
func ParseView(s string) (ActiveView, bool) {
	if s == "" || s == "none" {
		return ViewNone, true
	}
	for _, v := range Views {
		if string(v) == s {
			return v, true
		}
	}
	return ViewNone, false
}

// Config holds runtime parameters set via CLI flags.
type Config struct {
	BackendURL    string
	Timeout       time.Duration
	Lang          string
	BasePath      string // URL prefix for sub-path deployments (e.g. "/it")
	SecureCookies bool   // Set Secure flag on cookies (disable for local dev)
	ClientID      string
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}
