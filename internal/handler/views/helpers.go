// Package views renders the local web UI. Pages are templ components;
// run templ generate after editing a .templ file.
package views

import (
	"context"
	"strings"

	"github.com/a-h/templ"

	"github.com/pavelanni/studydesk/internal/i18n"
	"github.com/pavelanni/studydesk/internal/model"
	"github.com/pavelanni/studydesk/internal/normalize"
	"github.com/pavelanni/studydesk/internal/quiz"
)

var (
	levels  = []string{"easy", "medium", "hard"}
	lengths = []string{"short", "medium", "long"}
)

var panelLabels = map[model.ActiveView]string{
	model.ViewQuiz:       "PanelQuiz",
	model.ViewPlan:       "PanelPlan",
	model.ViewConceptMap: "PanelConceptMap",
	model.ViewSummary:    "PanelSummary",
}

// appURL prefixes an application path with the base path.
func appURL(ctx context.Context, path string) templ.SafeURL {
	return templ.SafeURL(model.BasePathFromContext(ctx) + path)
}

// questionFeedback returns the feedback for the question with id, or the
// zero value before grading.
func questionFeedback(all []quiz.QuestionFeedback, id string) quiz.QuestionFeedback {
	for _, f := range all {
		if f.Question.ID == id {
			return f
		}
	}
	return quiz.QuestionFeedback{}
}

// answerFor prefers the graded answer over the live one.
func answerFor(fb quiz.QuestionFeedback, answers model.AnswerSet, id string) string {
	if fb.Answer != "" {
		return fb.Answer
	}
	return answers[id]
}

func feedbackClass(d *model.Detail) string {
	switch {
	case d == nil:
		return ""
	case d.Correct:
		return "correct"
	}
	return "incorrect"
}

func scoreLine(ctx context.Context, r *model.GradeResult) string {
	return i18n.Td(ctx, "ScoreLine", map[string]any{"Score": number(r.Score), "Max": number(r.Max)})
}

func planHeading(p *model.Plan) string {
	return strings.Trim(p.Subject+" – "+p.Topic, " –")
}

// graphData is the payload handed to the in-page graph engine.
type graphData struct {
	Nodes []map[string]any `json:"nodeDataArray"`
	Links []model.Edge     `json:"linkDataArray"`
	Fit   bool             `json:"fit"`
}

func graphPayload(cm *model.ConceptMap, fit bool) graphData {
	data := graphData{Nodes: make([]map[string]any, 0, len(cm.Nodes)), Links: cm.Edges, Fit: fit}
	for _, n := range cm.Nodes {
		node := make(map[string]any, len(n.Attrs)+2)
		for k, v := range n.Attrs {
			node[k] = v
		}
		node["key"], node["text"] = n.Key, n.Text
		data.Nodes = append(data.Nodes, node)
	}
	return data
}

// nodeLabel returns the text of the node with key, or the key itself.
func nodeLabel(cm *model.ConceptMap, key string) string {
	for _, n := range cm.Nodes {
		if n.Key == key {
			return labelOr(n.Text, key)
		}
	}
	return key
}

// hasData reports whether events of kind carry a JSON payload. Downloads
// only record their file name.
func hasData(kind model.ArtifactKind) bool {
	return kind != model.KindSlides && kind != model.KindPlanPDF
}

func labelOr(label, fallback string) string {
	if label != "" {
		return label
	}
	return fallback
}

func number(f float64) string {
	s, _ := normalize.Stringify(f)
	return s
}
