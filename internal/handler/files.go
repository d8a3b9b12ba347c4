package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/studydesk/internal/backend"
	"github.com/pavelanni/studydesk/internal/handler/views"
	"github.com/pavelanni/studydesk/internal/model"
	"github.com/pavelanni/studydesk/internal/orchestrator"
)

const maxUploadBytes = 10 << 20

func (h *Handler) handleSummarize(w http.ResponseWriter, r *http.Request) {
	req := backend.SummarizeRequest{
		Topic:  r.FormValue("topic"),
		Length: r.FormValue("length"),
		Text:   r.FormValue("text"),
	}

	var file multipart.File
	if r.MultipartForm != nil {
		f, header, err := r.FormFile("file")
		switch {
		case err == nil:
			if header.Size > maxUploadBytes {
				f.Close()
				http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
				return
			}
			file = f
			req.File = f
			req.FileName = header.Filename
		case errors.Is(err, http.ErrMissingFile):
		default:
			http.Error(w, "invalid upload", http.StatusBadRequest)
			return
		}
	}
	if file != nil {
		defer file.Close()
		slog.Info("summarizing uploaded file", "filename", req.FileName)
	}

	_, err := h.orch.Summarize(r.Context(), req)
	h.finish(w, r, "summarize", err)
}

func (h *Handler) handleSlides(w http.ResponseWriter, r *http.Request) {
	f, err := h.orch.GenerateSlides(r.Context(), backend.SlidesRequest{
		Subject: r.FormValue("subject"),
		Topic:   r.FormValue("topic"),
		NSlides: formInt(r, "n_slides"),
	})
	if err != nil {
		h.finish(w, r, "generate_slides", err)
		return
	}
	h.record(model.KindSlides, f.Name)
	writeFile(w, f)
}

func (h *Handler) handlePlanPDF(w http.ResponseWriter, r *http.Request) {
	f, err := h.orch.PlanPDF(r.Context())
	if err != nil {
		h.finish(w, r, "plan_pdf", err)
		return
	}
	h.record(model.KindPlanPDF, f.Name)
	writeFile(w, f)
}

func (h *Handler) handleMapExport(w http.ResponseWriter, r *http.Request) {
	img, err := h.orch.ExportConceptMap(r.Context())
	if errors.Is(err, orchestrator.ErrNoConceptMap) {
		http.Error(w, orchestrator.Message(r.Context(), err), http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("export concept map", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeFile(w, &backend.File{Name: ConceptMapFilename, ContentType: ConceptMapContentType, Data: img})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	var events []model.Event
	if h.store != nil {
		var err error
		events, err = h.store.ListEvents(h.config.ClientID, formInt(r, "limit"))
		if err != nil {
			slog.Error("failed to list events", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.HistoryPage(events).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleHistoryEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "eventID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid event ID", http.StatusBadRequest)
		return
	}
	if h.store == nil {
		http.NotFound(w, r)
		return
	}
	ev, err := h.store.GetEvent(id, h.config.ClientID)
	if err != nil {
		slog.Error("failed to get event", "id", id, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if ev == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(ev.Data)
}

// record logs a download in the history. Failures are not fatal.
func (h *Handler) record(kind model.ArtifactKind, name string) {
	if h.store == nil {
		return
	}
	if _, err := h.store.SaveEvent(model.Event{ClientID: h.config.ClientID, Kind: kind, Title: name}); err != nil {
		slog.Warn("failed to record download", "kind", kind, "error", err)
	}
}

func writeFile(w http.ResponseWriter, f *backend.File) {
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
	if _, err := w.Write(f.Data); err != nil {
		slog.Warn("write download", "file", f.Name, "error", err)
	}
}
