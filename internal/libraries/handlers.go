package libraries

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tsukimi-media/tsukimi/internal/httputil"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	libs, err := h.repo.List()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, libs)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var lib Library
	if err := httputil.ReadJSON(r, &lib); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	if lib.Name == "" || !lib.LibraryType.IsValid() || len(lib.Folders) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "name, library_type and folders are required")
		return
	}
	if err := h.repo.Create(&lib); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, lib)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid library id")
		return
	}
	lib, err := h.repo.GetByID(id)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "library not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, lib)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid library id")
		return
	}
	lib, err := h.repo.GetByID(id)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "library not found")
		return
	}
	if err := httputil.ReadJSON(r, lib); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	lib.ID = id
	if err := h.repo.Update(lib); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, lib)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid library id")
		return
	}
	if err := h.repo.Delete(id); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"deleted": id.String()})
}
