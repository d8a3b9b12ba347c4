package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/studydesk/internal/backend"
	"github.com/pavelanni/studydesk/internal/handler/views"
	"github.com/pavelanni/studydesk/internal/model"
	"github.com/pavelanni/studydesk/internal/orchestrator"
	"github.com/pavelanni/studydesk/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	orch   *orchestrator.Orchestrator
	store  *store.Store
	graph  *GraphSink
	config model.Config
}

// New creates a new Handler. graph must be the GraphView the orchestrator
// was built with; s may be nil when history is disabled.
func New(o *orchestrator.Orchestrator, graph *GraphSink, s *store.Store, cfg model.Config) *Handler {
	return &Handler{orch: o, store: s, graph: graph, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.csrfMiddleware)
		r.Get("/", h.handleIndex)
		r.Post("/ask", h.handleAsk)
		r.Post("/quiz", h.handleGenerateQuiz)
		r.Post("/quiz/submit", h.handleSubmitQuiz)
		r.Post("/plan", h.handleGeneratePlan)
		r.Post("/plan/pdf", h.handlePlanPDF)
		r.Post("/map", h.handleGenerateMap)
		r.Post("/slides", h.handleSlides)
		r.Post("/summarize", h.handleSummarize)
		r.Post("/view/{view}", h.handleView)
		r.Get("/history", h.handleHistory)
	})
	r.Get("/state", h.handleState)
	r.Get("/map/export", h.handleMapExport)
	r.Get("/history/{eventID}", h.handleHistoryEvent)
}

// BasePathMiddleware stores the configured URL prefix in the request context.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func (h *Handler) redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
}

// finish redirects back to the page after an operation. Failures have
// already been written to the transcript; only stale replies and
// unexpected errors are logged here.
func (h *Handler) finish(w http.ResponseWriter, r *http.Request, op string, err error) {
	if err != nil && !errors.Is(err, orchestrator.ErrStale) {
		slog.Debug("operation failed", "op", op, "error", err)
	}
	h.redirectHome(w, r)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := h.orch.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.IndexPage(snap, h.graph.Fitted()).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	_, err := h.orch.Ask(r.Context(), r.FormValue("question"))
	h.finish(w, r, "ask", err)
}

func (h *Handler) handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	_, err := h.orch.GenerateExam(r.Context(), backend.ExamRequest{
		Subject: r.FormValue("subject"),
		Topic:   r.FormValue("topic"),
		N:       formInt(r, "n"),
		Level:   r.FormValue("level"),
	})
	h.finish(w, r, "generate_exam", err)
}

func (h *Handler) handleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	_, err := h.orch.SubmitQuiz(r.Context(), formInput{r: r})
	h.finish(w, r, "grade_exam", err)
}

func (h *Handler) handleGeneratePlan(w http.ResponseWriter, r *http.Request) {
	_, err := h.orch.GeneratePlan(r.Context(), backend.PlanRequest{
		Subject:       r.FormValue("subject"),
		Topic:         r.FormValue("topic"),
		Grade:         r.FormValue("grade"),
		LessonMinutes: formInt(r, "lesson_minutes"),
		GlobalGoals:   r.FormValue("global_goals"),
	})
	h.finish(w, r, "generate_plan", err)
}

func (h *Handler) handleGenerateMap(w http.ResponseWriter, r *http.Request) {
	_, err := h.orch.GenerateConceptMap(r.Context(), backend.ConceptMapRequest{
		Subject:  r.FormValue("subject"),
		Topic:    r.FormValue("topic"),
		MaxNodes: formInt(r, "max_nodes"),
	})
	h.finish(w, r, "generate_concept_map", err)
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	view, ok := model.ParseView(chi.URLParam(r, "view"))
	if !ok {
		http.Error(w, "unknown view", http.StatusBadRequest)
		return
	}
	h.orch.Show(view)
	h.redirectHome(w, r)
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.orch.Snapshot()); err != nil {
		slog.Error("encode state", "error", err)
	}
}

// formInput reads quiz answers from the submitted form. Every question's
// control is named after its id.
type formInput struct {
	r *http.Request
}

func (f formInput) Value(qid string) string { return f.r.FormValue("q_" + qid) }

func (f formInput) Translation() string { return f.r.FormValue(model.TranslationKey) }

// formInt returns 0 for missing or malformed numbers so the orchestrator
// applies its defaults.
func formInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.FormValue(key)))
	if err != nil {
		return 0
	}
	return n
}
