package sqlite

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the table store over HTTP. It is mounted by the gateway
// under /api/tables, so all routes here are relative.
type Handler struct {
	store  *Store
	logger *slog.Logger
	router chi.Router
}

// NewHandler builds the HTTP surface over a store.
func NewHandler(store *Store, logger *slog.Logger) *Handler {
	h := &Handler{store: store, logger: logger}

	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Put("/{table}", h.handleCreate)
	r.Delete("/{table}", h.handleDrop)
	r.Post("/{table}/rows", h.handleInsert)
	r.Get("/{table}/rows", h.handleSelect)
	h.router = r

	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	infos, err := h.store.Tables(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if infos == nil {
		infos = []TableInfo{}
	}
	h.writeJSON(w, http.StatusOK, infos)
}

type createTableRequest struct {
	Columns []string `json:"columns"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	name := chi.URLParam(r, "table")
	if err := h.store.CreateTable(r.Context(), name, req.Columns); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, TableInfo{Name: name, Columns: req.Columns})
}

func (h *Handler) handleDrop(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Drop(r.Context(), chi.URLParam(r, "table")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleInsert(w http.ResponseWriter, r *http.Request) {
	var row map[string]string
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if err := h.store.Insert(r.Context(), chi.URLParam(r, "table"), row); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"status": "inserted"})
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	filter := make(map[string]string)
	for key, vals := range r.URL.Query() {
		if len(vals) > 0 {
			filter[key] = vals[0]
		}
	}
	rows, err := h.store.Select(r.Context(), chi.URLParam(r, "table"), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if rows == nil {
		rows = []map[string]string{}
	}
	h.writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	// Everything except a missing table traces back to the request.
	var missing *ErrNoSuchTable
	status := http.StatusBadRequest
	if errors.As(err, &missing) {
		status = http.StatusNotFound
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", "error", err)
	}
}
