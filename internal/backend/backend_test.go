package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pavelanni/studydesk/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, 0)
}

func readJSON(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		t.Errorf("decode request body: %v", err)
	}
	return m
}

func TestAsk(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/ask" {
			t.Errorf("got %s %s, want POST /ask", r.Method, r.URL.Path)
		}
		if body := readJSON(t, r); body["question"] != "Chi era Cesare?" {
			t.Errorf("question = %v", body["question"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer": "Un generale romano."}`))
	})

	out, err := c.Ask(context.Background(), "Chi era Cesare?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if out["answer"] != "Un generale romano." {
		t.Errorf("answer = %v", out["answer"])
	}
}

func TestRequestBodies(t *testing.T) {
	tests := []struct {
		name string
		call func(c *Client) error
		path string
		want map[string]any
	}{
		{"exam", func(c *Client) error {
			_, err := c.GenerateExam(context.Background(), ExamRequest{Subject: "Storia", Topic: "Roma", N: 5, Level: "medium"})
			return err
		}, "/generate_exam", map[string]any{"subject": "Storia", "topic": "Roma", "n": 5.0, "level": "medium"}},
		{"plan", func(c *Client) error {
			_, err := c.GeneratePlan(context.Background(), PlanRequest{Subject: "Storia", Topic: "Roma", Grade: "Scuola Media", LessonMinutes: 45})
			return err
		}, "/generate_plan", map[string]any{"subject": "Storia", "topic": "Roma", "grade": "Scuola Media", "lesson_minutes": 45.0, "global_goals": ""}},
		{"concept map default top_k", func(c *Client) error {
			_, err := c.GenerateConceptMap(context.Background(), ConceptMapRequest{Topic: "Roma", MaxNodes: 24})
			return err
		}, "/generate_concept_map", map[string]any{"subject": "", "topic": "Roma", "max_nodes": 24.0, "top_k": 12.0}},
		{"grade", func(c *Client) error {
			_, err := c.GradeExam(context.Background(), map[string]any{"title": "T"}, model.AnswerSet{"q1": "a"})
			return err
		}, "/grade_exam", map[string]any{"exam": map[string]any{"title": "T"}, "answers": map[string]any{"q1": "a"}}},
		{"summarize json", func(c *Client) error {
			_, err := c.Summarize(context.Background(), SummarizeRequest{Topic: "Roma", Length: "short"})
			return err
		}, "/summarize", map[string]any{"topic": "Roma", "length": "short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]any
			var path string
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				path = r.URL.Path
				got = readJSON(t, r)
				_, _ = w.Write([]byte(`{}`))
			})
			if err := tt.call(c); err != nil {
				t.Fatalf("call: %v", err)
			}
			if path != tt.path {
				t.Errorf("path = %q, want %q", path, tt.path)
			}
			gb, _ := json.Marshal(got)
			wb, _ := json.Marshal(tt.want)
			if string(gb) != string(wb) {
				t.Errorf("body = %s, want %s", gb, wb)
			}
		})
	}
}

func TestSummarizeMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		if r.FormValue("topic") != "Roma" || r.FormValue("length") != "long" {
			t.Errorf("form = %v", r.Form)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		data, _ := io.ReadAll(f)
		if hdr.Filename != "notes.txt" || string(data) != "appunti" {
			t.Errorf("file = %s %q", hdr.Filename, data)
		}
		_, _ = w.Write([]byte(`{"topic": "Roma", "length": "long", "summary_md": "# Roma"}`))
	})

	out, err := c.Summarize(context.Background(), SummarizeRequest{
		Topic: "Roma", Length: "long", FileName: "notes.txt", File: strings.NewReader("appunti"),
	})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if out["summary_md"] != "# Roma" {
		t.Errorf("summary_md = %v", out["summary_md"])
	}
}

func TestServerError(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"with message", `{"error": "generation failed"}`, "generation failed"},
		{"without message", `{}`, ""},
		{"not json", `oops`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.GenerateExam(context.Background(), ExamRequest{Topic: "x", N: 1})
			var se *ServerError
			if !errors.As(err, &se) {
				t.Fatalf("err = %v, want *ServerError", err)
			}
			if se.Status != http.StatusInternalServerError || se.Message != tt.wantMsg || se.Op != OpGenerateExam {
				t.Errorf("ServerError = %+v", se)
			}
		})
	}
}

func TestTransportErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>proxy error</html>`))
	})
	_, err := c.Ask(context.Background(), "q")
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("non-JSON body: err = %v, want *TransportError", err)
	}

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	_, err = New(url, 0).Ask(context.Background(), "q")
	if !errors.As(err, &te) {
		t.Fatalf("unreachable: err = %v, want *TransportError", err)
	}
	if te.Op != OpAsk {
		t.Errorf("Op = %q", te.Op)
	}
}

func TestBinaryDownloads(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/generate_slides":
			w.Header().Set("Content-Disposition", `attachment; filename="slides_x.pptx"; filename*=UTF-8''slides_Storia%20%C3%A8.pptx`)
			_, _ = w.Write([]byte("PK"))
		case "/plan_pdf":
			body := readJSON(t, r)
			if _, ok := body["plan"].(map[string]any); !ok {
				t.Errorf("plan body = %v", body)
			}
			_, _ = w.Write([]byte("%PDF"))
		}
	})

	slides, err := c.GenerateSlides(context.Background(), SlidesRequest{Topic: "Roma", NSlides: 3})
	if err != nil {
		t.Fatalf("GenerateSlides: %v", err)
	}
	if slides.Name != "slides_Storia è.pptx" || string(slides.Data) != "PK" {
		t.Errorf("slides = %q %q", slides.Name, slides.Data)
	}

	pdf, err := c.PlanPDF(context.Background(), map[string]any{"subject": "Storia"})
	if err != nil {
		t.Fatalf("PlanPDF: %v", err)
	}
	if pdf.Name != DefaultPlanFilename {
		t.Errorf("pdf name = %q, want default", pdf.Name)
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", "fallback.bin"},
		{"attachment", "fallback.bin"},
		{`attachment; filename="piano_Storia.pdf"`, "piano_Storia.pdf"},
		{`attachment; filename=plain.pdf`, "plain.pdf"},
		{`attachment; filename*=UTF-8''mappa%20concettuale.png`, "mappa concettuale.png"},
		{`attachment; filename="a.pdf"; filename*=UTF-8''b%C3%A8.pdf`, "bè.pdf"},
		{`attachment; filename=with spaces.pdf`, "with spaces.pdf"},
		{`attachment; filename="../../etc/passwd"`, "passwd"},
	}
	for _, tt := range tests {
		if got := Filename(tt.header, "fallback.bin"); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestDefaultTopK(t *testing.T) {
	tests := []struct{ maxNodes, want int }{{2, 4}, {10, 5}, {24, 12}, {100, 12}}
	for _, tt := range tests {
		if got := DefaultTopK(tt.maxNodes); got != tt.want {
			t.Errorf("DefaultTopK(%d) = %d, want %d", tt.maxNodes, got, tt.want)
		}
	}
}
