// Package server is the ingest endpoint recorded intervals are pushed to.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fakeyudi/stint/internal/store"
)

// NewRouter creates the chi router with all routes and middleware.
func NewRouter(db *DB, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{db: db, logger: logger}

	r := chi.NewRouter()
	r.Use(requestLogger(logger))

	r.Get("/health", h.health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/intervals", h.ingest)
		r.Get("/intervals", h.list)
	})
	return r
}

// requestLogger logs method, path, and duration for every request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, req)
			logger.Info("request",
				"method", req.Method,
				"path", req.URL.Path,
				"duration", time.Since(start))
		})
	}
}

type handler struct {
	db     *DB
	logger *slog.Logger
}

func (h *handler) health(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ingest accepts a JSON array of interval records and stores them,
// deduplicating by record ID.
func (h *handler) ingest(w http.ResponseWriter, req *http.Request) {
	var records []store.Record
	if err := json.NewDecoder(req.Body).Decode(&records); err != nil {
		writeError(w, http.StatusBadRequest, "invalid interval batch: "+err.Error())
		return
	}
	for _, r := range records {
		if r.ID == "" || r.Kind == "" {
			writeError(w, http.StatusBadRequest, "record missing id or kind")
			return
		}
	}

	inserted, err := h.db.InsertBatch(records)
	if err != nil {
		h.logger.Error("failed to store interval batch", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to store intervals")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"accepted": inserted})
}

// list returns stored records, optionally filtered by ?kind= and capped by
// ?limit=.
func (h *handler) list(w http.ResponseWriter, req *http.Request) {
	limit := 0
	if s := req.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	records, err := h.db.ListIntervals(req.URL.Query().Get("kind"), limit)
	if err != nil {
		h.logger.Error("failed to list intervals", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list intervals")
		return
	}
	if records == nil {
		records = []store.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
