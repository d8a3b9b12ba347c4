package normalize

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/pavelanni/studydesk/internal/model"
)

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("decode %s: %v", s, err)
	}
	return m
}

func TestClassifyExamAliases(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"wrapped questions/text/options", `{"exam": {"questions": [
			{"id": "q1", "text": "Capital of Italy?", "options": [{"id": "a", "text": "Roma"}, {"id": "b", "text": "Milano"}]},
			{"id": "q2", "text": "Why?"}]}}`},
		{"wrapped ques/question/choices", `{"exam": {"ques": [
			{"id": "q1", "question": "Capital of Italy?", "choices": [{"id": "a", "text": "Roma"}, {"id": "b", "text": "Milano"}]},
			{"id": "q2", "question": "Why?"}]}}`},
		{"quiz alias prompt/alternatives", `{"quiz": {"questions": [
			{"key": "q1", "prompt": "Capital of Italy?", "alternatives": [{"key": "a", "label": "Roma"}, {"key": "b", "label": "Milano"}]},
			{"key": "q2", "prompt": "Why?"}]}}`},
		{"items fallback", `{"exam": {"questions": [], "items": [
			{"id": "q1", "text": "Capital of Italy?", "options": [{"id": "a", "text": "Roma"}, {"id": "b", "text": "Milano"}]},
			{"id": "q2", "text": "Why?"}]}}`},
		{"bare exam body", `{"title": "Geo", "questions": [
			{"id": "q1", "text": "Capital of Italy?", "options": [{"id": "a", "text": "Roma", "is_correct": true}, {"id": "b", "text": "Milano", "is_correct": false}]},
			{"id": "q2", "text": "Why?", "qtype": "open"}]}`},
		{"exam as bare list", `{"exam": [
			{"id": "q1", "text": "Capital of Italy?", "options": [{"id": "a", "text": "Roma"}, {"id": "b", "text": "Milano"}]},
			{"id": "q2", "text": "Why?"}]}`},
		{"quiz as bare list", `{"quiz": [
			{"id": "q1", "text": "Capital of Italy?", "qtype": "mcq", "options": ["a", "b"]},
			{"id": "q2", "text": "Why?"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Classify(decode(t, tt.payload))
			if a.Kind != model.KindExam {
				t.Fatalf("Kind = %q, want exam", a.Kind)
			}
			qs := a.Exam.Questions
			if len(qs) != 2 {
				t.Fatalf("got %d questions, want 2", len(qs))
			}
			if qs[0].ID != "q1" || qs[0].Text != "Capital of Italy?" {
				t.Errorf("q1 = %+v", qs[0])
			}
			if qs[0].Type != model.QuestionMultipleChoice {
				t.Errorf("q1 type = %q, want mcq", qs[0].Type)
			}
			if len(qs[0].Options) != 2 || qs[0].Options[0].ID != "a" || qs[0].Options[1].ID != "b" {
				t.Errorf("q1 options = %+v", qs[0].Options)
			}
			if qs[1].ID != "q2" || qs[1].Text != "Why?" || qs[1].Type != model.QuestionOpen {
				t.Errorf("q2 = %+v", qs[1])
			}
		})
	}
}

func TestClassifyExamDefaults(t *testing.T) {
	a := Classify(decode(t, `{"exam": {"version_text": "Gallia est omnis divisa", "questions": [
		{"options": ["uno", "due"]}, {}]}}`))
	if a.Kind != model.KindExam {
		t.Fatalf("Kind = %q, want exam", a.Kind)
	}
	e := a.Exam
	if e.VersionText != "Gallia est omnis divisa" {
		t.Errorf("VersionText = %q", e.VersionText)
	}
	if e.Questions[0].ID != "q_0" || e.Questions[0].Text != "Question 1" {
		t.Errorf("fallback id/text = %q/%q", e.Questions[0].ID, e.Questions[0].Text)
	}
	if got := e.Questions[0].Options; len(got) != 2 || got[1].ID != "due" || got[1].Text != "due" {
		t.Errorf("string options = %+v", got)
	}
	if e.Questions[1].Type != model.QuestionOpen {
		t.Errorf("q2 type = %q, want open", e.Questions[1].Type)
	}
	if e.Raw["version_text"] != "Gallia est omnis divisa" {
		t.Error("Raw should keep the original payload")
	}
}

func TestClassifyExamListKeepsMetadata(t *testing.T) {
	a := Classify(decode(t, `{"title": "Geo", "exam": [{"id": "q1", "text": "Why?"}]}`))
	if a.Kind != model.KindExam {
		t.Fatalf("Kind = %q, want exam", a.Kind)
	}
	if a.Exam.Title != "Geo" || len(a.Exam.Questions) != 1 {
		t.Errorf("exam = %+v", a.Exam)
	}
}

func TestQuestionTypeField(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     model.QuestionType
		opts     int
	}{
		{"open with options", `{"id": "q1", "qtype": "open", "options": ["a", "b"]}`, model.QuestionOpen, 0},
		{"type alias open", `{"id": "q1", "type": "open", "choices": ["a"]}`, model.QuestionOpen, 0},
		{"mcq with options", `{"id": "q1", "qtype": "mcq", "options": ["a", "b"]}`, model.QuestionMultipleChoice, 2},
		{"mcq without options", `{"id": "q1", "qtype": "mcq"}`, model.QuestionOpen, 0},
		{"unknown type", `{"id": "q1", "qtype": "essay", "options": ["a"]}`, model.QuestionMultipleChoice, 1},
		{"no type", `{"id": "q1", "options": ["a"]}`, model.QuestionMultipleChoice, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Classify(decode(t, `{"questions": [`+tt.question+`]}`))
			q := a.Exam.Questions[0]
			if q.Type != tt.want {
				t.Errorf("Type = %q, want %q", q.Type, tt.want)
			}
			if len(q.Options) != tt.opts {
				t.Errorf("got %d options, want %d", len(q.Options), tt.opts)
			}
		})
	}
}

func TestClassifyExamMetaVersion(t *testing.T) {
	a := Classify(decode(t, `{"exam": {"questions": [], "meta": {"version_text": "Arma virumque cano"}}}`))
	if a.Kind != model.KindExam {
		t.Fatalf("Kind = %q, want exam", a.Kind)
	}
	if a.Exam.VersionText != "Arma virumque cano" {
		t.Errorf("VersionText = %q", a.Exam.VersionText)
	}
	if len(a.Exam.Questions) != 0 {
		t.Errorf("expected empty exam, got %d questions", len(a.Exam.Questions))
	}
}

func TestClassifyConceptMap(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"wrapped go model", `{"concept_map": {"nodeDataArray": [{"key": "root", "text": "Rome"}, {"key": "c1", "text": "Empire", "color": "red"}],
			"linkDataArray": [{"from": "root", "to": "c1"}]}}`},
		{"bare body", `{"nodeDataArray": [{"key": "root", "text": "Rome"}, {"key": "c1", "text": "Empire", "color": "red"}],
			"linkDataArray": [{"from": "root", "to": "c1"}]}`},
		{"nodes/edges variant", `{"conceptMap": {"nodes": [{"id": "root", "label": "Rome"}, {"id": "c1", "name": "Empire", "color": "red"}],
			"edges": [{"source": "root", "target": "c1"}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Classify(decode(t, tt.payload))
			if a.Kind != model.KindConceptMap {
				t.Fatalf("Kind = %q, want concept_map", a.Kind)
			}
			cm := a.ConceptMap
			if len(cm.Nodes) != 2 || cm.Nodes[0].Key != "root" || cm.Nodes[0].Text != "Rome" {
				t.Errorf("nodes = %+v", cm.Nodes)
			}
			if cm.Nodes[1].Attrs["color"] != "red" {
				t.Errorf("extra node fields lost: %+v", cm.Nodes[1].Attrs)
			}
			want := []model.Edge{{From: "root", To: "c1"}}
			if !reflect.DeepEqual(cm.Edges, want) {
				t.Errorf("edges = %+v, want %+v", cm.Edges, want)
			}
		})
	}
}

func TestClassifyConceptMapMissingArrays(t *testing.T) {
	a := Classify(decode(t, `{"concept_map": {}}`))
	if a.Kind != model.KindConceptMap {
		t.Fatalf("Kind = %q, want concept_map", a.Kind)
	}
	if a.ConceptMap.Nodes == nil || a.ConceptMap.Edges == nil {
		t.Error("missing arrays should normalize to empty slices")
	}
	if len(a.ConceptMap.Nodes) != 0 || len(a.ConceptMap.Edges) != 0 {
		t.Error("expected empty concept map")
	}
}

func TestClassifyNumericNodeKeys(t *testing.T) {
	a := Classify(decode(t, `{"concept_map": {"nodes": [{"key": 1, "text": "A"}, {"key": 2, "text": "B"}], "links": [{"from": 1, "to": 2, "label": "has"}]}}`))
	if a.ConceptMap.Nodes[0].Key != "1" || a.ConceptMap.Edges[0].From != "1" || a.ConceptMap.Edges[0].To != "2" {
		t.Errorf("numeric keys not preserved: %+v", a.ConceptMap)
	}
	if a.ConceptMap.Edges[0].Label != "has" {
		t.Errorf("label = %q", a.ConceptMap.Edges[0].Label)
	}
}

func TestClassifyAnswer(t *testing.T) {
	tests := []struct {
		payload string
		want    string
	}{
		{`{"answer": "La capitale è Roma."}`, "La capitale è Roma."},
		{`{"answer": ""}`, ""},
		{`{"answer": 0}`, "0"},
		{`{"answer": 2.5}`, "2.5"},
		{`{"answer": false}`, "false"},
		{`{"answer": null}`, "null"},
		{`{"answer": {"a": [1, 2]}}`, `{"a":[1,2]}`},
	}
	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			a := Classify(decode(t, tt.payload))
			if a.Kind != model.KindAnswer {
				t.Fatalf("Kind = %q, want answer", a.Kind)
			}
			if a.Answer != tt.want {
				t.Errorf("Answer = %q, want %q", a.Answer, tt.want)
			}
		})
	}
}

func TestClassifyPrecedence(t *testing.T) {
	a := Classify(decode(t, `{"exam": {"questions": [{"id": "q1", "text": "x"}]}, "answer": "ignored", "error": "ignored"}`))
	if a.Kind != model.KindExam {
		t.Errorf("exam should win over answer and error, got %q", a.Kind)
	}
	a = Classify(decode(t, `{"concept_map": {"nodes": []}, "answer": "ignored"}`))
	if a.Kind != model.KindConceptMap {
		t.Errorf("concept map should win over answer, got %q", a.Kind)
	}
	a = Classify(decode(t, `{"answer": "yes", "error": "ignored"}`))
	if a.Kind != model.KindAnswer {
		t.Errorf("answer should win over error, got %q", a.Kind)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		payload string
		want    string
	}{
		{`{"error": "Exam generation failed"}`, "Exam generation failed"},
		{`{"error": ""}`, DefaultErrorMessage},
		{`{"error": {"message": "quota exceeded"}}`, "quota exceeded"},
	}
	for _, tt := range tests {
		a := Classify(decode(t, tt.payload))
		if a.Kind != model.KindError {
			t.Fatalf("%s: Kind = %q, want error", tt.payload, a.Kind)
		}
		if a.Message != tt.want {
			t.Errorf("%s: Message = %q, want %q", tt.payload, a.Message, tt.want)
		}
	}
}

func TestClassifyUnknownIdentity(t *testing.T) {
	raw := decode(t, `{"output": {"foo": 1}, "status": "ok"}`)
	a := Classify(raw)
	if a.Kind != model.KindUnknown {
		t.Fatalf("Kind = %q, want unknown", a.Kind)
	}
	if !reflect.DeepEqual(a.Raw, decode(t, `{"output": {"foo": 1}, "status": "ok"}`)) {
		t.Errorf("Raw = %v, want original payload", a.Raw)
	}

	if a := Classify(decode(t, `{"error": null, "status": "ok"}`)); a.Kind != model.KindUnknown {
		t.Errorf("null error Kind = %q, want unknown", a.Kind)
	}

	empty := Classify(map[string]any{})
	if empty.Kind != model.KindUnknown {
		t.Errorf("empty payload Kind = %q, want unknown", empty.Kind)
	}
}

func TestClassifyPlanAndSummary(t *testing.T) {
	a := Classify(decode(t, `{"subject": "Storia", "topic": "Roma", "lesson_minutes": 45, "lessons": [
		{"lesson_number": 1, "title": "Le origini", "objectives": ["capire"], "activities": "leggere\ndiscutere", "materials": null}]}`))
	if a.Kind != model.KindPlan {
		t.Fatalf("Kind = %q, want plan", a.Kind)
	}
	l := a.Plan.Lessons[0]
	if l.Title != "Le origini" || len(l.Objectives) != 1 || len(l.Activities) != 2 || len(l.Materials) != 0 {
		t.Errorf("lesson = %+v", l)
	}
	if a.Plan.LessonMinutes != 45 || a.Plan.Raw["subject"] != "Storia" {
		t.Errorf("plan = %+v", a.Plan)
	}

	s := Classify(decode(t, `{"topic": "Roma", "length": "short", "summary_md": "# Riassunto"}`))
	if s.Kind != model.KindSummary || s.Summary.Markdown != "# Riassunto" || s.Summary.Length != "short" {
		t.Errorf("summary = %+v", s)
	}
}

func TestGrade(t *testing.T) {
	g := Grade(decode(t, `{"score": 1, "max": 2, "details": [
		{"qid": "q1", "correct": true, "correct_text": "Roma", "explanation": "capital"},
		{"id": "q2", "correct": false, "correctText": "because"}]}`))
	if g.Score != 1 || g.Max != 2 {
		t.Errorf("score/max = %v/%v", g.Score, g.Max)
	}
	want := []model.Detail{
		{QID: "q1", Correct: true, CorrectText: "Roma", Explanation: "capital"},
		{QID: "q2", Correct: false, CorrectText: "because"},
	}
	if !reflect.DeepEqual(g.Details, want) {
		t.Errorf("details = %+v, want %+v", g.Details, want)
	}

	alt := Grade(decode(t, `{"grade": 7.5, "total": 10, "report": {"note": "ok"}}`))
	if alt.Score != 7.5 || alt.Max != 10 || alt.Feedback != `{"note":"ok"}` {
		t.Errorf("alias grade = %+v", alt)
	}
}

func TestStringifyUnserializable(t *testing.T) {
	if _, ok := Stringify(map[string]any{"ch": make(chan int)}); ok {
		t.Error("Stringify should report failure for unserializable values")
	}
}
