package scanner

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tsukimi-media/tsukimi/internal/httputil"
	"github.com/tsukimi-media/tsukimi/internal/libraries"
)

// ScanTrigger hands scan requests to the job queue so they survive
// restarts and dedupe across callers.
type ScanTrigger interface {
	EnqueueScan(libraryID uuid.UUID, mode string) error
}

type Handler struct {
	scanner *Scanner
	libRepo *libraries.Repository
	trigger ScanTrigger
}

func NewHandler(s *Scanner, libRepo *libraries.Repository, trigger ScanTrigger) *Handler {
	return &Handler{scanner: s, libRepo: libRepo, trigger: trigger}
}

func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/library/{id}", h.scanLibrary)
	r.Get("/status/{id}", h.scanStatus)
	r.Post("/abort/{id}", h.abortScan)
	return r
}

func (h *Handler) scanLibrary(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid library id")
		return
	}
	mode, err := ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	lib, err := h.libRepo.GetByID(id)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "library not found")
		return
	}
	if status, _ := h.scanner.Status(lib.ID); status != StatusIdle {
		httputil.WriteError(w, http.StatusConflict, "SCAN_IN_PROGRESS", "a scan is already running for this library")
		return
	}

	if h.trigger != nil {
		if err := h.trigger.EnqueueScan(lib.ID, string(mode)); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "QUEUE_ERROR", err.Error())
			return
		}
	} else {
		go func() {
			if _, err := h.scanner.ScanLibrary(context.Background(), lib, mode); err != nil {
				log.Printf("Scan: library %s: %v", lib.ID, err)
			}
		}()
	}

	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{
		"status":     "scanning",
		"library_id": lib.ID.String(),
		"mode":       string(mode),
	})
}

func (h *Handler) scanStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid library id")
		return
	}
	status, summary := h.scanner.Status(id)
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  status,
		"summary": summary,
	})
}

func (h *Handler) abortScan(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid library id")
		return
	}
	if !h.scanner.Abort(id) {
		httputil.WriteError(w, http.StatusConflict, "NOT_SCANNING", "no scan is running for this library")
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "aborting"})
}
