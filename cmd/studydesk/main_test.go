package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pavelanni/studydesk/internal/model"
	"github.com/pavelanni/studydesk/internal/quiz"
)

func sampleExam() *model.Exam {
	return &model.Exam{
		Title:       "Capitals",
		VersionText: "Roma è la capitale.",
		Questions: []model.Question{
			{ID: "q1", Type: model.QuestionMultipleChoice, Text: "Capital of Italy?",
				Options: []model.Option{{ID: "a", Text: "Milano"}, {ID: "b", Text: "Roma"}}},
			{ID: "q2", Type: model.QuestionOpen, Text: "Why Rome?"},
		},
	}
}

func TestReadAnswers(t *testing.T) {
	sess := quiz.New()
	if err := sess.Load(sampleExam()); err != nil {
		t.Fatal(err)
	}

	// "c" is not an option and is asked again.
	in := strings.NewReader("c\nb\nTradition\nRome is the capital.\n")
	var out bytes.Buffer
	if err := readAnswers(in, &out, sess); err != nil {
		t.Fatalf("readAnswers: %v", err)
	}

	got := sess.BuildSubmission(sess.Recorded())
	want := model.AnswerSet{"q1": "b", "q2": "Tradition", model.TranslationKey: "Rome is the capital."}
	if len(got) != len(want) {
		t.Fatalf("answers = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("answers[%q] = %q, want %q", k, got[k], v)
		}
	}
	if !strings.Contains(out.String(), "? a, b") {
		t.Errorf("missing option hint in %q", out.String())
	}
}

func TestReadAnswersEOF(t *testing.T) {
	sess := quiz.New()
	if err := sess.Load(sampleExam()); err != nil {
		t.Fatal(err)
	}
	if err := readAnswers(strings.NewReader("a\n"), &bytes.Buffer{}, sess); err != nil {
		t.Fatalf("readAnswers: %v", err)
	}
	if got := sess.Answers(); got["q1"] != "a" || got["q2"] != "" {
		t.Errorf("answers = %v", got)
	}
}

func TestTerminal(t *testing.T) {
	var out bytes.Buffer
	term := newTerminal(&out)

	term.Append(model.RoleUser, "hidden")
	term.Append(model.RoleAssistant, "Hello.")
	term.Append(model.RoleSystem, "Server error.")
	exam := sampleExam()
	term.RenderQuiz(exam)
	term.ShowFeedback([]quiz.QuestionFeedback{
		{Question: exam.Questions[0], Answer: "b", Detail: &model.Detail{Correct: true}},
		{Question: exam.Questions[1]},
	})
	term.RenderPlan(&model.Plan{Subject: "History", Topic: "Rome", Lessons: []model.Lesson{
		{Title: "Founding", Objectives: []string{"Myths"}},
	}})

	s := out.String()
	if strings.Contains(s, "hidden") {
		t.Error("user line echoed")
	}
	for _, want := range []string{"Hello.", "! Server error.", "Capitals\n========", "   b) Roma", "✓ 1. Capital of Italy?", "1. Founding", "     - Myths"} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
	if strings.Contains(s, "2. Why Rome?\n    >") {
		t.Error("ungraded question shown as feedback")
	}
}

func fakeService(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/generate_exam", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sampleExam())
	})
	mux.HandleFunc("/grade_exam", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"score":2,"max":2,"details":[]}`))
	})
	mux.HandleFunc("/generate_concept_map", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"nodes":[{"key":"1","text":"Rome"}],"edges":[]}`))
	})
	mux.HandleFunc("/generate_plan", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"model overloaded"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestQuizCommand(t *testing.T) {
	srv := fakeService(t)
	db := filepath.Join(t.TempDir(), "h.db")

	out, err := execute(t, "b\nTradition\n\n", "quiz", "--subject", "Geography",
		"--backend-url", srv.URL, "--db", db, "--log-level", "error")
	if err != nil {
		t.Fatalf("quiz: %v\n%s", err, out)
	}
	for _, want := range []string{"Capital of Italy?", "Quiz graded: 2/2."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "", "history", "--db", db, "--log-level", "error")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	for _, want := range []string{"exam", "grade", "Capitals"} {
		if !strings.Contains(out, want) {
			t.Errorf("history missing %q:\n%s", want, out)
		}
	}
}

func TestMapCommand(t *testing.T) {
	srv := fakeService(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "rome.dot")

	if _, err := execute(t, "", "map", "--topic", "Rome", "-o", path,
		"--backend-url", srv.URL, "--no-history", "--log-level", "error"); err != nil {
		t.Fatalf("map: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"1" [label="Rome"];`) {
		t.Errorf("dot = %s", data)
	}
}

func TestServerErrorIsReported(t *testing.T) {
	srv := fakeService(t)

	out, err := execute(t, "", "plan", "--subject", "History", "--topic", "Rome",
		"--backend-url", srv.URL, "--no-history", "--log-level", "error")
	var r reported
	if err == nil || !errors.As(err, &r) {
		t.Fatalf("err = %v, want reported", err)
	}
	if !strings.Contains(out, "! model overloaded") {
		t.Errorf("output = %q", out)
	}
}
