package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pavelanni/studydesk/internal/model"
	"github.com/pavelanni/studydesk/internal/quiz"
)

// terminal renders orchestrator output as plain text.
type terminal struct {
	mu  sync.Mutex
	out io.Writer
}

func newTerminal(out io.Writer) *terminal { return &terminal{out: out} }

func (t *terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

// Append prints a transcript line. User lines are not echoed back.
func (t *terminal) Append(role model.Role, text string) {
	switch role {
	case model.RoleUser:
	case model.RoleSystem:
		t.printf("! %s\n", text)
	default:
		t.printf("%s\n", text)
	}
}

func (t *terminal) RenderQuiz(exam *model.Exam) {
	var b strings.Builder
	if exam.Title != "" {
		fmt.Fprintf(&b, "\n%s\n%s\n", exam.Title, strings.Repeat("=", len([]rune(exam.Title))))
	}
	if exam.VersionText != "" {
		fmt.Fprintf(&b, "\n%s\n", exam.VersionText)
	}
	for i, q := range exam.Questions {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, q.Text)
		for _, o := range q.Options {
			fmt.Fprintf(&b, "   %s) %s\n", o.ID, o.Text)
		}
	}
	t.printf("%s\n", b.String())
}

func (t *terminal) ShowFeedback(feedback []quiz.QuestionFeedback) {
	var b strings.Builder
	for i, f := range feedback {
		if f.Detail == nil {
			continue
		}
		mark := "✗"
		if f.Detail.Correct {
			mark = "✓"
		}
		fmt.Fprintf(&b, "%s %d. %s\n", mark, i+1, f.Question.Text)
		if f.Answer != "" {
			fmt.Fprintf(&b, "    > %s\n", f.Answer)
		}
		if f.Detail.CorrectText != "" {
			fmt.Fprintf(&b, "    = %s\n", f.Detail.CorrectText)
		}
		if f.Detail.Explanation != "" {
			fmt.Fprintf(&b, "    %s\n", f.Detail.Explanation)
		}
	}
	t.printf("%s", b.String())
}

func (t *terminal) RenderPlan(plan *model.Plan) {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s / %s\n", plan.Subject, plan.Topic)
	if plan.GlobalGoals != "" {
		fmt.Fprintf(&b, "%s\n", plan.GlobalGoals)
	}
	for i, l := range plan.Lessons {
		n := l.Number
		if n == 0 {
			n = i + 1
		}
		fmt.Fprintf(&b, "\n%d. %s\n", n, l.Title)
		list(&b, "objectives", l.Objectives)
		list(&b, "activities", l.Activities)
		list(&b, "materials", l.Materials)
		if l.Assessment != "" {
			fmt.Fprintf(&b, "   assessment: %s\n", l.Assessment)
		}
	}
	t.printf("%s\n", b.String())
}

func list(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "   %s:\n", label)
	for _, it := range items {
		fmt.Fprintf(b, "     - %s\n", it)
	}
}

func (t *terminal) RenderSummary(s *model.Summary) {
	t.printf("\n%s\n", s.Markdown)
}
