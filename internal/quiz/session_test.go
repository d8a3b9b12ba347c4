package quiz

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/pavelanni/studydesk/internal/model"
)

func testExam() *model.Exam {
	return &model.Exam{Questions: []model.Question{
		{ID: "q1", Type: model.QuestionMultipleChoice, Text: "Capital?", Options: []model.Option{{ID: "a", Text: "Milano"}, {ID: "b", Text: "Roma"}}},
		{ID: "q2", Type: model.QuestionOpen, Text: "Which city?"},
	}}
}

func loaded(t *testing.T) *Session {
	t.Helper()
	s := New()
	if err := s.Load(testExam()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

type countingGrader struct {
	calls  int
	result model.GradeResult
	err    error
}

func (g *countingGrader) Grade(_ context.Context, _ *model.Exam, _ model.AnswerSet) (*model.GradeResult, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	r := g.result
	return &r, nil
}

func TestLoad(t *testing.T) {
	s := New()
	if s.State() != StateEmpty {
		t.Fatalf("new session state = %q", s.State())
	}
	if err := s.Load(nil); !errors.Is(err, ErrNoExam) {
		t.Errorf("Load(nil) = %v, want ErrNoExam", err)
	}
	if err := s.Load(&model.Exam{}); err != nil {
		t.Fatalf("Load(empty exam): %v", err)
	}
	if s.State() != StateLoaded {
		t.Errorf("state = %q, want loaded", s.State())
	}
}

func TestLoadResetsAnswersAndResult(t *testing.T) {
	s := loaded(t)
	_ = s.RecordAnswer("q1", "b")
	g := &countingGrader{result: model.GradeResult{Score: 1, Max: 2}}
	if _, err := s.Grade(context.Background(), g, model.AnswerSet{"q1": "b"}); err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if err := s.Load(testExam()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.State() != StateLoaded || s.Result() != nil || len(s.Answers()) != 0 {
		t.Errorf("reload left state=%q result=%v answers=%v", s.State(), s.Result(), s.Answers())
	}
}

func TestRecordAnswer(t *testing.T) {
	s := New()
	if err := s.RecordAnswer("q1", "a"); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("RecordAnswer before load = %v, want ErrNotLoaded", err)
	}

	s = loaded(t)
	if err := s.RecordAnswer("nope", "a"); !errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("RecordAnswer(unknown) = %v, want ErrUnknownQuestion", err)
	}
	if s.State() != StateLoaded {
		t.Errorf("failed record changed state to %q", s.State())
	}
	if err := s.RecordAnswer("q1", "a"); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if err := s.RecordAnswer("q1", "b"); err != nil {
		t.Fatalf("RecordAnswer overwrite: %v", err)
	}
	if s.State() != StateAnswering {
		t.Errorf("state = %q, want answering", s.State())
	}
	if got := s.Answers()["q1"]; got != "b" {
		t.Errorf("q1 = %q, want overwritten value b", got)
	}
}

func TestBuildSubmissionEmpty(t *testing.T) {
	s := loaded(t)
	got := s.BuildSubmission(MapInput{})
	if len(got) != 0 {
		t.Errorf("BuildSubmission with no input = %v, want empty", got)
	}
	got = s.BuildSubmission(MapInput{Values: map[string]string{"q2": "   "}, Translated: " \n"})
	if len(got) != 0 {
		t.Errorf("blank open answer and translation should be omitted, got %v", got)
	}
}

func TestBuildSubmissionExact(t *testing.T) {
	s := loaded(t)
	in := MapInput{Values: map[string]string{"q1": "b", "q2": "Roma"}}
	want := model.AnswerSet{"q1": "b", "q2": "Roma"}
	if got := s.BuildSubmission(in); !reflect.DeepEqual(got, want) {
		t.Errorf("BuildSubmission = %v, want %v", got, want)
	}
}

func TestBuildSubmissionUsesLiveInput(t *testing.T) {
	s := loaded(t)
	_ = s.RecordAnswer("q1", "a")
	_ = s.RecordAnswer("q2", "Milano")

	in := MapInput{Values: map[string]string{
		"q1":   "b",
		"q2":   "  Roma ",
		"gone": "stale",
	}, Translated: " Tutta la Gallia "}
	want := model.AnswerSet{"q1": "b", "q2": "Roma", model.TranslationKey: "Tutta la Gallia"}
	if got := s.BuildSubmission(in); !reflect.DeepEqual(got, want) {
		t.Errorf("BuildSubmission = %v, want %v", got, want)
	}

	bad := MapInput{Values: map[string]string{"q1": "z"}}
	if got := s.BuildSubmission(bad); len(got) != 0 {
		t.Errorf("value outside options should be dropped, got %v", got)
	}
}

func TestRecordedInput(t *testing.T) {
	s := loaded(t)
	_ = s.RecordAnswer("q1", "b")
	_ = s.RecordAnswer("q2", "Roma")
	_ = s.RecordAnswer(model.TranslationKey, "All Gaul")
	want := model.AnswerSet{"q1": "b", "q2": "Roma", model.TranslationKey: "All Gaul"}
	if got := s.BuildSubmission(s.Recorded()); !reflect.DeepEqual(got, want) {
		t.Errorf("BuildSubmission(Recorded) = %v, want %v", got, want)
	}
}

func TestGrade(t *testing.T) {
	ctx := context.Background()

	if _, err := New().Grade(ctx, &countingGrader{}, nil); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Grade on empty session = %v, want ErrNotLoaded", err)
	}

	s := loaded(t)
	g := &countingGrader{result: model.GradeResult{Score: 1, Max: 2, Details: []model.Detail{{QID: "q1", Correct: true}}}}
	answers := model.AnswerSet{"q1": "b"}
	r1, err := s.Grade(ctx, g, answers)
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	r2, err := s.Grade(ctx, g, answers)
	if err != nil {
		t.Fatalf("Grade again: %v", err)
	}
	if r1.Score != r2.Score || r1.Max != r2.Max {
		t.Errorf("repeated grading differs: %v/%v vs %v/%v", r1.Score, r1.Max, r2.Score, r2.Max)
	}
	if s.State() != StateGraded || s.Result() != r2 {
		t.Errorf("state = %q, result = %v", s.State(), s.Result())
	}
}

func TestGradeDefaultsMaxToQuestionCount(t *testing.T) {
	s := loaded(t)
	r, err := s.Grade(context.Background(), &countingGrader{result: model.GradeResult{Score: 1}}, nil)
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if r.Max != 2 {
		t.Errorf("Max = %v, want 2", r.Max)
	}
}

func TestGradeFailureKeepsState(t *testing.T) {
	s := loaded(t)
	_ = s.RecordAnswer("q1", "b")
	boom := errors.New("boom")
	if _, err := s.Grade(context.Background(), &countingGrader{err: boom}, model.AnswerSet{"q1": "b"}); !errors.Is(err, boom) {
		t.Fatalf("Grade = %v, want wrapped boom", err)
	}
	if s.State() != StateAnswering || s.Result() != nil {
		t.Errorf("failed grade mutated state: %q %v", s.State(), s.Result())
	}
}

func TestGradeSupersededByNewExam(t *testing.T) {
	s := loaded(t)
	g := GraderFunc(func(ctx context.Context, exam *model.Exam, answers model.AnswerSet) (*model.GradeResult, error) {
		_ = s.Load(&model.Exam{Questions: []model.Question{{ID: "x", Type: model.QuestionOpen}}})
		return &model.GradeResult{Score: 1, Max: 1}, nil
	})
	if _, err := s.Grade(context.Background(), g, nil); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("Grade = %v, want ErrSuperseded", err)
	}
	if s.Result() != nil || s.State() != StateLoaded {
		t.Errorf("stale grade applied: %q %v", s.State(), s.Result())
	}
}

func TestFeedbackAlignment(t *testing.T) {
	s := loaded(t)
	g := &countingGrader{result: model.GradeResult{Score: 1, Max: 2, Details: []model.Detail{
		{QID: "ghost", Correct: true},
		{QID: "q1", Correct: true, CorrectText: "Roma"},
	}}}
	if _, err := s.Grade(context.Background(), g, model.AnswerSet{"q1": "b"}); err != nil {
		t.Fatalf("Grade: %v", err)
	}
	fb := s.Feedback()
	if len(fb) != 2 {
		t.Fatalf("got %d feedback rows, want 2", len(fb))
	}
	if fb[0].Detail == nil || !fb[0].Detail.Correct || fb[0].Answer != "b" {
		t.Errorf("q1 feedback = %+v", fb[0])
	}
	if fb[1].Detail != nil {
		t.Errorf("q2 has no detail and should carry no decoration, got %+v", fb[1].Detail)
	}
}
