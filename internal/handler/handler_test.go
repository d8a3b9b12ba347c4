package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/studydesk/internal/backend"
	"github.com/pavelanni/studydesk/internal/i18n"
	"github.com/pavelanni/studydesk/internal/model"
	"github.com/pavelanni/studydesk/internal/orchestrator"
	"github.com/pavelanni/studydesk/internal/store"
)

func TestMain(m *testing.M) {
	if err := i18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

const examJSON = `{"title":"Capitals","version_text":"Roma è la capitale.","questions":[
 {"id":"q1","qtype":"mcq","text":"Capital of Italy?","options":[{"id":"a","text":"Milano"},{"id":"b","text":"Roma"}]},
 {"id":"q2","qtype":"open","text":"Why Rome?"}]}`

// upstream fakes the generation service. graded receives every grading body.
func upstream(t *testing.T, graded chan<- map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	reply := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		}
	}
	mux.HandleFunc("/ask", reply(`{"answer":"A Roman general."}`))
	mux.HandleFunc("/generate_exam", reply(examJSON))
	mux.HandleFunc("/generate_plan", reply(`{"subject":"History","topic":"Rome","lessons":[{"title":"Founding","objectives":["Myths"],"activities":[],"materials":[]}]}`))
	mux.HandleFunc("/generate_concept_map", reply(`{"nodes":[{"key":"1","text":"Rome"},{"key":"2","text":"Empire"}],"edges":[{"from":"1","to":"2","label":"becomes"}]}`))
	mux.HandleFunc("/summarize", func(w http.ResponseWriter, r *http.Request) {
		name := "text"
		if _, h, err := r.FormFile("file"); err == nil {
			name = h.Filename
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"topic": "Rome", "summary_md": "# Summary of " + name})
	})
	mux.HandleFunc("/grade_exam", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if graded != nil {
			graded <- body
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"score":1,"max":2,"details":[{"qid":"q1","correct":true},{"qid":"q2","correct":false,"correct_text":"Tradition"}]}`))
	})
	mux.HandleFunc("/generate_slides", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.presentationml.presentation")
		w.Header().Set("Content-Disposition", `attachment; filename="rome.pptx"`)
		_, _ = w.Write([]byte("PPTX"))
	})
	mux.HandleFunc("/plan_pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type testApp struct {
	router http.Handler
	orch   *orchestrator.Orchestrator
	store  *store.Store
	cookie *http.Cookie
}

func newTestApp(t *testing.T, graded chan<- map[string]any) *testApp {
	t.Helper()
	srv := upstream(t, graded)

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	cfg := model.Config{ClientID: "client-1"}
	graph := &GraphSink{}
	o := orchestrator.New(backend.New(srv.URL, 0), orchestrator.Sinks{Graph: graph},
		store.Recorder{Store: s, ClientID: cfg.ClientID})
	h := New(o, graph, s, cfg)

	r := chi.NewRouter()
	r.Use(h.BasePathMiddleware)
	h.Routes(r)
	return &testApp{router: r, orch: o, store: s}
}

func (a *testApp) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	if a.cookie != nil {
		req.AddCookie(a.cookie)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == csrfCookieName {
			a.cookie = c
		}
	}
	return rec
}

func (a *testApp) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	return a.do(t, httptest.NewRequest(http.MethodGet, path, nil))
}

// post submits a form carrying the current CSRF token, fetching one first
// if needed.
func (a *testApp) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	if a.cookie == nil {
		a.get(t, "/")
	}
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf_token", a.cookie.Value)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(t, req)
}

func wantRedirect(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303; body: %s", rec.Code, rec.Body.String())
	}
}

func TestCSRF(t *testing.T) {
	app := newTestApp(t, nil)

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader("question=hi"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		app.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("mismatch", func(t *testing.T) {
		app.get(t, "/")
		req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader("question=hi&csrf_token=wrong"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(app.cookie)
		rec := httptest.NewRecorder()
		app.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("rotated after post", func(t *testing.T) {
		app.get(t, "/")
		before := app.cookie.Value
		wantRedirect(t, app.post(t, "/ask", url.Values{"question": {"hi"}}))
		if app.cookie.Value == before {
			t.Error("token not rotated")
		}
	})
}

func TestAskAndState(t *testing.T) {
	app := newTestApp(t, nil)

	wantRedirect(t, app.post(t, "/ask", url.Values{"question": {"Who was Caesar?"}}))

	rec := app.get(t, "/state")
	var snap orchestrator.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if len(snap.Transcript) != 2 {
		t.Fatalf("transcript = %+v", snap.Transcript)
	}
	if snap.Transcript[0].Role != model.RoleUser || snap.Transcript[1].Text != "A Roman general." {
		t.Errorf("transcript = %+v", snap.Transcript)
	}

	page := app.get(t, "/").Body.String()
	if !strings.Contains(page, "A Roman general.") {
		t.Error("answer missing from page")
	}
}

func TestQuizFlow(t *testing.T) {
	graded := make(chan map[string]any, 1)
	app := newTestApp(t, graded)

	wantRedirect(t, app.post(t, "/quiz", url.Values{"subject": {"Geography"}}))
	if snap := app.orch.Snapshot(); snap.Active != model.ViewQuiz || snap.Exam == nil {
		t.Fatalf("quiz not shown: %+v", snap)
	}

	wantRedirect(t, app.post(t, "/quiz/submit", url.Values{
		"q_q1":        {"b"},
		"q_q2":        {"tradition"},
		"translation": {"Rome is the capital."},
	}))

	body := <-graded
	answers, _ := body["answers"].(map[string]any)
	if answers["q1"] != "b" || answers["q2"] != "tradition" || answers[model.TranslationKey] != "Rome is the capital." {
		t.Errorf("answers = %v", answers)
	}
	exam, _ := body["exam"].(map[string]any)
	if exam["title"] != "Capitals" {
		t.Errorf("exam not sent verbatim: %v", exam)
	}

	page := app.get(t, "/").Body.String()
	for _, want := range []string{"Score: 1/2", `class="correct"`, "Tradition"} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestValidationError(t *testing.T) {
	app := newTestApp(t, nil)

	wantRedirect(t, app.post(t, "/plan", url.Values{"subject": {"History"}}))

	snap := app.orch.Snapshot()
	if len(snap.Transcript) != 1 || snap.Transcript[0].Role != model.RoleSystem {
		t.Errorf("transcript = %+v", snap.Transcript)
	}
	if snap.Plan != nil {
		t.Error("plan should not be set")
	}
}

func TestViewSwitch(t *testing.T) {
	app := newTestApp(t, nil)

	wantRedirect(t, app.post(t, "/plan", url.Values{"subject": {"History"}, "topic": {"Rome"}}))
	wantRedirect(t, app.post(t, "/map", url.Values{"topic": {"Rome"}}))
	if got := app.orch.Snapshot().Active; got != model.ViewConceptMap {
		t.Fatalf("active = %q", got)
	}

	wantRedirect(t, app.post(t, "/view/plan", nil))
	if got := app.orch.Snapshot().Active; got != model.ViewPlan {
		t.Errorf("active = %q, want plan", got)
	}

	if rec := app.post(t, "/view/bogus", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestMapExport(t *testing.T) {
	app := newTestApp(t, nil)

	if rec := app.get(t, "/map/export"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	wantRedirect(t, app.post(t, "/map", url.Values{"topic": {"Rome"}}))
	rec := app.get(t, "/map/export")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != ConceptMapContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), ConceptMapFilename) {
		t.Errorf("Content-Disposition = %q", rec.Header().Get("Content-Disposition"))
	}
	if !strings.Contains(rec.Body.String(), `"1" -> "2" [label="becomes"];`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestDownloads(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.post(t, "/slides", url.Values{"topic": {"Rome"}})
	if rec.Code != http.StatusOK || rec.Body.String() != "PPTX" {
		t.Fatalf("slides: %d %q", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "rome.pptx") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	// No plan yet: the error lands in the transcript.
	wantRedirect(t, app.post(t, "/plan/pdf", nil))

	wantRedirect(t, app.post(t, "/plan", url.Values{"subject": {"History"}, "topic": {"Rome"}}))
	rec = app.post(t, "/plan/pdf", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "%PDF" {
		t.Fatalf("plan pdf: %d %q", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, backend.DefaultPlanFilename) {
		t.Errorf("Content-Disposition = %q", cd)
	}

	events, err := app.store.ListEvents("client-1", 0)
	if err != nil {
		t.Fatal(err)
	}
	kinds := map[model.ArtifactKind]bool{}
	for _, ev := range events {
		kinds[ev.Kind] = true
	}
	for _, k := range []model.ArtifactKind{model.KindSlides, model.KindPlan, model.KindPlanPDF} {
		if !kinds[k] {
			t.Errorf("history missing %q: %+v", k, events)
		}
	}
}

func TestSummarizeUpload(t *testing.T) {
	app := newTestApp(t, nil)
	app.get(t, "/")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("csrf_token", app.cookie.Value)
	_ = mw.WriteField("length", "short")
	fw, _ := mw.CreateFormFile("file", "notes.txt")
	_, _ = fw.Write([]byte("Rome was founded in 753 BC."))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/summarize", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	wantRedirect(t, app.do(t, req))

	snap := app.orch.Snapshot()
	if snap.Summary == nil || snap.Summary.Markdown != "# Summary of notes.txt" {
		t.Errorf("summary = %+v", snap.Summary)
	}
	if snap.Active != model.ViewSummary {
		t.Errorf("active = %q", snap.Active)
	}
}

func TestHistory(t *testing.T) {
	app := newTestApp(t, nil)

	wantRedirect(t, app.post(t, "/quiz", url.Values{"subject": {"Geography"}}))

	page := app.get(t, "/history").Body.String()
	if !strings.Contains(page, "Capitals") {
		t.Fatalf("history page missing exam: %s", page)
	}

	events, err := app.store.ListEvents("client-1", 0)
	if err != nil || len(events) == 0 {
		t.Fatalf("events = %v, err = %v", events, err)
	}
	rec := app.get(t, "/history/"+strconv.FormatInt(events[0].ID, 10))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Capital of Italy?") {
		t.Errorf("event: %d %s", rec.Code, rec.Body.String())
	}

	if rec := app.get(t, "/history/999"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if rec := app.get(t, "/history/abc"); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
