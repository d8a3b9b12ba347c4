// Package normalize turns loosely shaped server payloads into canonical
// artifacts. It is the only place that knows about historical field-name
// variants; everything downstream consumes model types.
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pavelanni/studydesk/internal/model"
)

// DefaultErrorMessage is used when a payload signals an error without a message.
const DefaultErrorMessage = "Internal server error."

var (
	examKeys         = []string{"exam", "quiz"}
	examListKeys     = []string{"questions", "ques"}
	examFallbackKey  = "items"
	questionIDKeys   = []string{"id", "key", "qid"}
	questionTextKeys = []string{"question", "prompt", "text"}
	optionListKeys   = []string{"options", "choices", "alternatives"}
	optionIDKeys     = []string{"id", "key", "value"}
	optionTextKeys   = []string{"text", "label", "value"}
	versionKeys      = []string{"version_text", "version"}
	questionTypeKeys = []string{"qtype", "type"}

	conceptMapKeys = []string{"concept_map", "conceptMap", "map"}
	nodeListKeys   = []string{"nodeDataArray", "nodes"}
	edgeListKeys   = []string{"linkDataArray", "links", "edges"}
	nodeKeyKeys    = []string{"key", "id"}
	nodeTextKeys   = []string{"text", "label", "name"}
	edgeFromKeys   = []string{"from", "from_", "source"}
	edgeToKeys     = []string{"to", "target"}
	edgeLabelKeys  = []string{"label", "text"}

	planKeys     = []string{"plan", "lesson_plan"}
	summaryKeys  = []string{"summary_md", "summary"}
	detailQIDs   = []string{"qid", "id", "question_id"}
	correctTexts = []string{"correct_text", "correctText"}
)

// Classify maps a decoded JSON object to exactly one artifact kind.
// The first matching rule wins: exam, concept map, plan, summary, answer,
// error, and finally unknown.
func Classify(raw map[string]any) model.Artifact {
	if raw == nil {
		return model.Artifact{Kind: model.KindUnknown, Raw: raw}
	}

	if obj, ok := firstObject(raw, examKeys); ok {
		return model.Artifact{Kind: model.KindExam, Exam: Exam(obj)}
	}
	if obj, ok := examFromList(raw); ok {
		return model.Artifact{Kind: model.KindExam, Exam: Exam(obj)}
	}
	if hasQuestionList(raw) {
		return model.Artifact{Kind: model.KindExam, Exam: Exam(raw)}
	}

	if obj, ok := firstObject(raw, conceptMapKeys); ok {
		return model.Artifact{Kind: model.KindConceptMap, ConceptMap: ConceptMap(obj)}
	}
	if hasAny(raw, nodeListKeys) || hasAny(raw, edgeListKeys[:2]) {
		return model.Artifact{Kind: model.KindConceptMap, ConceptMap: ConceptMap(raw)}
	}

	if obj, ok := firstObject(raw, planKeys); ok {
		return model.Artifact{Kind: model.KindPlan, Plan: Plan(obj)}
	}
	if _, ok := raw["lessons"].([]any); ok {
		return model.Artifact{Kind: model.KindPlan, Plan: Plan(raw)}
	}

	if hasAny(raw, summaryKeys) {
		return model.Artifact{Kind: model.KindSummary, Summary: Summary(raw)}
	}

	if v, ok := raw["answer"]; ok {
		s, ok := Stringify(v)
		if !ok {
			s = fmt.Sprint(v)
		}
		return model.Artifact{Kind: model.KindAnswer, Answer: s}
	}

	if v, ok := raw["error"]; ok && v != nil {
		return model.Artifact{Kind: model.KindError, Message: errorMessage(v)}
	}

	return model.Artifact{Kind: model.KindUnknown, Raw: raw}
}

// Exam builds an exam from an exam-shaped object. The supplementary items
// list is read only when every primary question list is absent or empty.
func Exam(obj map[string]any) *model.Exam {
	items := firstNonEmptyList(obj, examListKeys)
	if items == nil {
		items, _ = obj[examFallbackKey].([]any)
	}

	exam := &model.Exam{
		Title:     str(obj, "title"),
		Subject:   str(obj, "subject"),
		Topic:     str(obj, "topic"),
		Level:     str(obj, "level"),
		Questions: make([]model.Question, 0, len(items)),
		Raw:       obj,
	}
	if n, ok := num(obj, "n", "count"); ok {
		exam.Count = int(n)
	}
	exam.VersionText = firstString(obj, versionKeys)
	if exam.VersionText == "" {
		if meta, ok := obj["meta"].(map[string]any); ok {
			exam.VersionText = str(meta, "version_text")
		}
	}

	for i, it := range items {
		q, ok := it.(map[string]any)
		if !ok {
			if s, isStr := it.(string); isStr {
				q = map[string]any{"text": s}
			} else {
				continue
			}
		}
		exam.Questions = append(exam.Questions, question(q, i))
	}
	return exam
}

func question(q map[string]any, idx int) model.Question {
	out := model.Question{
		ID:   firstString(q, questionIDKeys),
		Text: firstString(q, questionTextKeys),
		Type: model.QuestionOpen,
	}
	if out.ID == "" {
		out.ID = "q_" + strconv.Itoa(idx)
	}
	if out.Text == "" {
		out.Text = "Question " + strconv.Itoa(idx+1)
	}

	for _, o := range firstNonEmptyList(q, optionListKeys) {
		switch v := o.(type) {
		case map[string]any:
			opt := model.Option{ID: firstString(v, optionIDKeys), Text: firstString(v, optionTextKeys)}
			if opt.ID == "" {
				opt.ID = opt.Text
			}
			if opt.Text == "" {
				opt.Text = opt.ID
			}
			if opt.ID != "" {
				out.Options = append(out.Options, opt)
			}
		default:
			if s, ok := Stringify(v); ok && s != "" {
				out.Options = append(out.Options, model.Option{ID: s, Text: s})
			}
		}
	}
	// An explicit open type wins over options. An mcq without options has
	// nothing to choose from and stays open.
	if questionType(q) == model.QuestionOpen {
		out.Options = nil
	} else if len(out.Options) > 0 {
		out.Type = model.QuestionMultipleChoice
	}
	return out
}

// questionType reads an explicit question type. It returns "" when the
// field is absent or not recognized, leaving the type to the options.
func questionType(q map[string]any) model.QuestionType {
	switch strings.ToLower(strings.TrimSpace(firstString(q, questionTypeKeys))) {
	case "mcq", "multiple_choice", "multiple-choice", "choice":
		return model.QuestionMultipleChoice
	case "open", "text", "free":
		return model.QuestionOpen
	}
	return ""
}

// examFromList handles exams sent as a bare question list under an exam
// key. Sibling fields such as title are kept as exam metadata.
func examFromList(raw map[string]any) (map[string]any, bool) {
	for _, k := range examKeys {
		list, ok := raw[k].([]any)
		if !ok {
			continue
		}
		obj := make(map[string]any, len(raw))
		for key, v := range raw {
			if key != k {
				obj[key] = v
			}
		}
		obj[examListKeys[0]] = list
		return obj, true
	}
	return nil, false
}

// ConceptMap builds a concept map. Missing node or edge lists yield empty
// slices, never an error.
func ConceptMap(obj map[string]any) *model.ConceptMap {
	cm := &model.ConceptMap{Nodes: []model.Node{}, Edges: []model.Edge{}}

	for _, n := range firstList(obj, nodeListKeys) {
		m, ok := n.(map[string]any)
		if !ok {
			continue
		}
		node := model.Node{Key: firstString(m, nodeKeyKeys), Text: firstString(m, nodeTextKeys)}
		if node.Text == "" {
			node.Text = node.Key
		}
		for k, v := range m {
			if contains(nodeKeyKeys, k) || contains(nodeTextKeys, k) {
				continue
			}
			if node.Attrs == nil {
				node.Attrs = make(map[string]any)
			}
			node.Attrs[k] = v
		}
		cm.Nodes = append(cm.Nodes, node)
	}

	for _, e := range firstList(obj, edgeListKeys) {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		cm.Edges = append(cm.Edges, model.Edge{
			From:  firstString(m, edgeFromKeys),
			To:    firstString(m, edgeToKeys),
			Label: firstString(m, edgeLabelKeys),
		})
	}
	return cm
}

// Plan builds a lesson plan. Objectives, activities and materials accept a
// string or a list of strings.
func Plan(obj map[string]any) *model.Plan {
	p := &model.Plan{
		Subject:     str(obj, "subject"),
		Topic:       str(obj, "topic"),
		Grade:       str(obj, "grade"),
		GlobalGoals: str(obj, "global_goals"),
		Lessons:     []model.Lesson{},
		Raw:         obj,
	}
	if n, ok := num(obj, "lesson_minutes"); ok {
		p.LessonMinutes = int(n)
	}
	lessons, _ := obj["lessons"].([]any)
	for i, l := range lessons {
		m, ok := l.(map[string]any)
		if !ok {
			continue
		}
		lesson := model.Lesson{
			Title:      str(m, "title"),
			Objectives: strList(m["objectives"]),
			Activities: strList(m["activities"]),
			Materials:  strList(m["materials"]),
			Assessment: str(m, "assessment"),
		}
		if n, ok := num(m, "lesson_number"); ok {
			lesson.Number = int(n)
		} else {
			lesson.Number = i + 1
		}
		p.Lessons = append(p.Lessons, lesson)
	}
	return p
}

// Summary builds a summary from a summarize response.
func Summary(obj map[string]any) *model.Summary {
	return &model.Summary{
		Topic:    str(obj, "topic"),
		Length:   str(obj, "length"),
		Markdown: firstString(obj, summaryKeys),
	}
}

// Grade builds a grade result from a grading response.
func Grade(obj map[string]any) model.GradeResult {
	var g model.GradeResult
	if v, ok := num(obj, "score", "grade", "correct_count"); ok {
		g.Score = v
	}
	if v, ok := num(obj, "max", "total"); ok {
		g.Max = v
	}
	switch fb := first(obj, []string{"feedback", "report"}).(type) {
	case nil:
	case string:
		g.Feedback = fb
	default:
		g.Feedback, _ = Stringify(fb)
	}

	details, _ := obj["details"].([]any)
	g.Details = make([]model.Detail, 0, len(details))
	for _, d := range details {
		m, ok := d.(map[string]any)
		if !ok {
			continue
		}
		correct, _ := m["correct"].(bool)
		g.Details = append(g.Details, model.Detail{
			QID:         firstString(m, detailQIDs),
			Correct:     correct,
			CorrectText: firstString(m, correctTexts),
			Explanation: str(m, "explanation"),
		})
	}
	return g
}

// Stringify renders a decoded JSON value losslessly. Strings are returned
// verbatim, other scalars in their JSON form, containers as JSON. It
// reports false when the value cannot be serialized.
func Stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "null", true
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return string(b), true
}

func errorMessage(v any) string {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) != "" {
			return t
		}
	case map[string]any:
		if s := str(t, "message"); s != "" {
			return s
		}
	}
	return DefaultErrorMessage
}

func hasQuestionList(obj map[string]any) bool {
	if firstNonEmptyList(obj, examListKeys) != nil {
		return true
	}
	items, _ := obj[examFallbackKey].([]any)
	return len(items) > 0
}
