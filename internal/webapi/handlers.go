// Package webapi exposes the wizard over HTTP: one endpoint to ask
// questions and read-only endpoints over the session audit logs.
package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dbwizard/dbwizard/internal/models"
	"github.com/dbwizard/dbwizard/internal/session"
	"github.com/dbwizard/dbwizard/internal/wizard"
)

// Version is set at build time or defaults to dev.
var Version = "0.1.0"

// Asker runs one question session per call. Implemented by wizard.Wizard.
type Asker interface {
	Ask(ctx context.Context, question string) (*models.Answer, error)
}

// Pinger reports database reachability. Implemented by database.Adapter.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds the HTTP handler methods for the web API.
type Handlers struct {
	asker      Asker
	pinger     Pinger
	store      SessionStore
	askTimeout time.Duration
}

// NewHandlers creates a Handlers. pinger may be nil to skip database
// checks in /api/health; store may be nil when auditing is disabled;
// askTimeout zero means no per-request deadline.
func NewHandlers(asker Asker, pinger Pinger, store SessionStore, askTimeout time.Duration) *Handlers {
	return &Handlers{asker: asker, pinger: pinger, store: store, askTimeout: askTimeout}
}

// HandleWelcome greets clients at the root path.
func (h *Handlers) HandleWelcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, WelcomeResponse{Message: "Database LLM Wizard is awakened"})
}

// HandleHealth reports service and database health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Version: Version}
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Database = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp.Database = "ok"
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleAsk runs one question session and returns the answer.
//
// Status codes: 400 for an unusable request, 422 when the session
// terminated on a loop bound or engine failure, 504 when the configured
// deadline expired, 500 for everything else.
func (h *Handlers) HandleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be JSON with a question field")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question must not be empty")
		return
	}

	ctx := r.Context()
	if h.askTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.askTimeout)
		defer cancel()
	}

	answer, err := h.asker.Ask(ctx, req.Question)
	if err != nil {
		var se *wizard.SessionError
		switch {
		case errors.As(err, &se):
			writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
				Error:     se.Message,
				Kind:      string(se.Kind),
				SessionID: se.SessionID,
				Code:      http.StatusUnprocessableEntity,
			})
		case errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusGatewayTimeout, "session did not finish within the allowed time")
		case errors.Is(err, context.Canceled):
			// Client went away; nothing useful to write.
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

// HandleSessions lists session audit logs, newest first.
func (h *Handlers) HandleSessions(w http.ResponseWriter, _ *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusOK, []SessionSummary{})
		return
	}
	summaries, err := h.store.ListSessions()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// HandleSessionDetail returns the full audit trail of one session.
func (h *Handlers) HandleSessionDetail(w http.ResponseWriter, r *http.Request) {
	detail, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// HandleSessionView renders one session as an HTML report.
func (h *Handlers) HandleSessionView(w http.ResponseWriter, r *http.Request) {
	detail, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	html, err := RenderSessionHTML(detail.SessionID, detail.Records)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(html) //nolint:errcheck
}

func (h *Handlers) loadSession(w http.ResponseWriter, r *http.Request) (*SessionDetail, bool) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return nil, false
	}
	if h.store == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}

	detail, err := h.store.GetSession(id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return nil, false
	}
	return detail, true
}

// RegisterRoutes registers all web API routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, h *Handlers) {
	mux.HandleFunc("GET /{$}", h.HandleWelcome)
	mux.HandleFunc("GET /api/health", h.HandleHealth)
	mux.HandleFunc("POST /api/ask", h.HandleAsk)
	mux.HandleFunc("GET /api/sessions", h.HandleSessions)
	mux.HandleFunc("GET /api/sessions/{id}", h.HandleSessionDetail)
	mux.HandleFunc("GET /api/sessions/{id}/view", h.HandleSessionView)
}

// CORSMiddleware wraps a handler with CORS headers.
// If allowedOrigins is empty, no CORS header is set (same-origin only).
// Otherwise, the request Origin is checked against the allowed list.
func CORSMiddleware(next http.Handler, allowedOrigins ...string) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if len(allowedOrigins) > 0 && origin != "" && allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// LoggingMiddleware logs one line per request.
func LoggingMiddleware(next http.Handler, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

// statusWriter captures the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg, Code: code})
}
