// Package quiz holds the state of the quiz currently on screen: the exam,
// the answers being collected and the grading result.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pavelanni/studydesk/internal/model"
)

// State is a position in the quiz lifecycle.
type State string

const (
	StateEmpty     State = "empty"
	StateLoaded    State = "loaded"
	StateAnswering State = "answering"
	StateGraded    State = "graded"
)

var (
	ErrNoExam          = errors.New("no exam")
	ErrNotLoaded       = errors.New("no exam loaded")
	ErrUnknownQuestion = errors.New("unknown question")
	ErrSuperseded      = errors.New("exam replaced while grading")
)

// Input exposes the live value of each answer control.
type Input interface {
	Value(qid string) string
	Translation() string
}

// Grader scores an answer set against an exam.
type Grader interface {
	Grade(ctx context.Context, exam *model.Exam, answers model.AnswerSet) (*model.GradeResult, error)
}

// GraderFunc adapts a function to the Grader interface.
type GraderFunc func(ctx context.Context, exam *model.Exam, answers model.AnswerSet) (*model.GradeResult, error)

// Grade calls f.
func (f GraderFunc) Grade(ctx context.Context, exam *model.Exam, answers model.AnswerSet) (*model.GradeResult, error) {
	return f(ctx, exam, answers)
}

// QuestionFeedback pairs a question with its grading detail, if any.
type QuestionFeedback struct {
	Question model.Question
	Answer   string
	Detail   *model.Detail
}

// Session owns the current exam, answers and grade. It is safe for
// concurrent use; Grade does not hold the lock while the grader runs.
type Session struct {
	mu          sync.Mutex
	state       State
	exam        *model.Exam
	recorded    model.AnswerSet
	translation string
	submitted   model.AnswerSet
	result      *model.GradeResult
}

// New returns an empty session.
func New() *Session {
	return &Session{state: StateEmpty}
}

// Load replaces the current exam and discards answers and result.
func (s *Session) Load(exam *model.Exam) error {
	if exam == nil {
		return ErrNoExam
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exam = exam
	s.recorded = make(model.AnswerSet)
	s.translation = ""
	s.submitted = nil
	s.result = nil
	s.state = StateLoaded
	return nil
}

// RecordAnswer stores the in-progress value for a question. Option ids are
// not checked here; BuildSubmission drops values that are not options.
func (s *Session) RecordAnswer(qid, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exam == nil {
		return ErrNotLoaded
	}
	if qid == model.TranslationKey {
		s.translation = value
	} else {
		if _, ok := s.exam.Question(qid); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownQuestion, qid)
		}
		s.recorded[qid] = value
	}
	if s.state == StateLoaded {
		s.state = StateAnswering
	}
	return nil
}

// BuildSubmission rebuilds the full answer set from the question list,
// reading each question's live value from in. Nothing from earlier
// submissions survives.
func (s *Session) BuildSubmission(in Input) model.AnswerSet {
	s.mu.Lock()
	exam := s.exam
	s.mu.Unlock()

	answers := make(model.AnswerSet)
	if exam == nil {
		return answers
	}
	for _, q := range exam.Questions {
		v := in.Value(q.ID)
		switch q.Type {
		case model.QuestionMultipleChoice:
			if v != "" && q.HasOption(v) {
				answers[q.ID] = v
			}
		default:
			if v = strings.TrimSpace(v); v != "" {
				answers[q.ID] = v
			}
		}
	}
	if tr := strings.TrimSpace(in.Translation()); tr != "" {
		answers[model.TranslationKey] = tr
	}
	return answers
}

// Recorded returns an Input backed by the values given to RecordAnswer.
func (s *Session) Recorded() Input {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := make(map[string]string, len(s.recorded))
	for k, v := range s.recorded {
		values[k] = v
	}
	return MapInput{Values: values, Translated: s.translation}
}

// Grade submits answers to g. On failure the session is left as it was and
// the call may be retried with the same answers.
func (s *Session) Grade(ctx context.Context, g Grader, answers model.AnswerSet) (*model.GradeResult, error) {
	s.mu.Lock()
	exam := s.exam
	state := s.state
	s.mu.Unlock()
	if exam == nil || state == StateEmpty {
		return nil, ErrNotLoaded
	}

	res, err := g.Grade(ctx, exam, answers)
	if err != nil {
		return nil, fmt.Errorf("grade exam: %w", err)
	}
	if res == nil {
		return nil, fmt.Errorf("grade exam: empty result")
	}
	if res.Max == 0 {
		res.Max = float64(len(exam.Questions))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exam != exam {
		slog.Debug("discarding grade for replaced exam")
		return nil, ErrSuperseded
	}
	s.submitted = answers
	s.result = res
	s.state = StateGraded
	return res, nil
}

// Feedback aligns the grade details to the exam's questions. Details for
// unknown questions are ignored; questions without a detail get none.
func (s *Session) Feedback() []QuestionFeedback {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exam == nil {
		return nil
	}
	byQID := make(map[string]*model.Detail)
	if s.result != nil {
		for i := range s.result.Details {
			d := s.result.Details[i]
			byQID[d.QID] = &d
		}
	}
	out := make([]QuestionFeedback, 0, len(s.exam.Questions))
	for _, q := range s.exam.Questions {
		out = append(out, QuestionFeedback{
			Question: q,
			Answer:   s.submitted[q.ID],
			Detail:   byQID[q.ID],
		})
	}
	return out
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Exam returns the current exam or nil.
func (s *Session) Exam() *model.Exam {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exam
}

// Result returns the current grade result or nil.
func (s *Session) Result() *model.GradeResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Answers returns a copy of the recorded in-progress answers.
func (s *Session) Answers() model.AnswerSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(model.AnswerSet, len(s.recorded))
	for k, v := range s.recorded {
		out[k] = v
	}
	return out
}

// MapInput is an Input over a plain map.
type MapInput struct {
	Values     map[string]string
	Translated string
}

// Value returns the value for qid.
func (m MapInput) Value(qid string) string { return m.Values[qid] }

// Translation returns the translation answer.
func (m MapInput) Translation() string { return m.Translated }
