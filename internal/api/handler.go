// Package api exposes the lakehouse over HTTP: session lifecycle, document
// analysis and load, table inspection, SQL and chat, and export.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lakelens/lakelens/internal/analyst"
	"github.com/lakelens/lakelens/internal/config"
	"github.com/lakelens/lakelens/internal/export"
	"github.com/lakelens/lakelens/internal/inference"
	"github.com/lakelens/lakelens/internal/observability"
	"github.com/lakelens/lakelens/internal/session"
)

// maxUploadBytes caps document uploads; larger files must be split before
// analysis anyway since the model context is bounded.
const maxUploadBytes = 32 << 20

type Dependencies struct {
	Logger    *slog.Logger
	Sessions  *session.Manager
	Inference *inference.Service
	Analyst   *analyst.Service
	Archiver  *export.Archiver
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})
	mux.Handle("GET /v1/metrics", promhttp.Handler())

	mux.HandleFunc("POST /v1/sessions", func(w http.ResponseWriter, r *http.Request) {
		handleCreateSession(deps, w, r)
	})
	mux.HandleFunc("DELETE /v1/sessions/{session}", func(w http.ResponseWriter, r *http.Request) {
		handleDeleteSession(deps, w, r)
	})

	mux.HandleFunc("POST /v1/sessions/{session}/analyze", func(w http.ResponseWriter, r *http.Request) {
		handleAnalyze(deps, w, r)
	})
	mux.HandleFunc("POST /v1/sessions/{session}/repair", func(w http.ResponseWriter, r *http.Request) {
		handleRepair(deps, w, r)
	})
	mux.HandleFunc("POST /v1/sessions/{session}/load", func(w http.ResponseWriter, r *http.Request) {
		handleLoad(deps, w, r)
	})

	mux.HandleFunc("GET /v1/sessions/{session}/tables", func(w http.ResponseWriter, r *http.Request) {
		handleListTables(deps, w, r)
	})
	mux.HandleFunc("DELETE /v1/sessions/{session}/tables", func(w http.ResponseWriter, r *http.Request) {
		handleDropAllTables(deps, w, r)
	})
	mux.HandleFunc("GET /v1/sessions/{session}/tables/{table}/schema", func(w http.ResponseWriter, r *http.Request) {
		handleGetTableSchema(deps, w, r)
	})
	mux.HandleFunc("DELETE /v1/sessions/{session}/tables/{table}", func(w http.ResponseWriter, r *http.Request) {
		handleDeleteTable(deps, w, r)
	})
	mux.HandleFunc("GET /v1/sessions/{session}/joins", func(w http.ResponseWriter, r *http.Request) {
		handleJoins(deps, w, r)
	})

	mux.HandleFunc("POST /v1/sessions/{session}/query", func(w http.ResponseWriter, r *http.Request) {
		handleQuery(deps, w, r)
	})
	mux.HandleFunc("POST /v1/sessions/{session}/chat", func(w http.ResponseWriter, r *http.Request) {
		handleChat(deps, w, r)
	})
	mux.HandleFunc("GET /v1/sessions/{session}/chat", func(w http.ResponseWriter, r *http.Request) {
		handleGetChat(deps, w, r)
	})
	mux.HandleFunc("DELETE /v1/sessions/{session}/chat", func(w http.ResponseWriter, r *http.Request) {
		handleClearChat(deps, w, r)
	})

	mux.HandleFunc("POST /v1/sessions/{session}/export", func(w http.ResponseWriter, r *http.Request) {
		handleExport(deps, w, r)
	})
	mux.HandleFunc("POST /v1/sessions/{session}/tables/{table}/archive", func(w http.ResponseWriter, r *http.Request) {
		handleArchive(deps, w, r)
	})

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

// sessionFromRequest resolves the {session} path parameter. A false return
// means the 404 has already been written.
func sessionFromRequest(deps Dependencies, w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := r.PathValue("session")
	sess, ok := deps.Sessions.Get(id)
	if !ok {
		writeError(r.Context(), w, http.StatusNotFound, "SESSION_NOT_FOUND", "session does not exist", false, map[string]any{"session": id})
		return nil, false
	}
	return sess, true
}

// decodeBody fills into from the request body. An empty body leaves the
// target at its zero value so optional request fields can default.
func decodeBody(w http.ResponseWriter, r *http.Request, into any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil && !errors.Is(err, io.EOF) {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid request body", false, map[string]any{"details": err.Error()})
		return false
	}
	return true
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
