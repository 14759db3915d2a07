package scanner

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tsukimi-media/tsukimi/internal/httputil"
)

// ItemsRouter exposes the catalog-item endpoints that need the scanner:
// lookups and single-item metadata refresh.
func (h *Handler) ItemsRouter() chi.Router {
	r := chi.NewRouter()
	r.Get("/{id}", h.getItem)
	r.Post("/{id}/refresh", h.refreshItem)
	return r
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item id")
		return
	}
	item, err := h.scanner.store.GetByID(id)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	if item == nil {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "item not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) refreshItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item id")
		return
	}
	mode, err := ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	item, err := h.scanner.store.GetByID(id)
	if err != nil || item == nil {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "item not found")
		return
	}
	lib, err := h.libRepo.GetByID(item.LibraryID)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "library not found")
		return
	}

	if err := h.scanner.RefreshItem(r.Context(), lib, id, mode); err != nil {
		httputil.WriteError(w, http.StatusBadGateway, "REFRESH_FAILED", err.Error())
		return
	}
	refreshed, err := h.scanner.store.GetByID(id)
	if err != nil || refreshed == nil {
		// The refresh may have merged the item into another series.
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "merged"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, refreshed)
}
