// Package api exposes the task tools over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/c360studio/semstreams/agentic"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360studio/semtasks/sandbox"
	"github.com/c360studio/semtasks/tools/toolcall"
)

// maxRequestBytes caps tool argument bodies.
const maxRequestBytes = 1 << 20

// Dispatcher executes tool calls by name.
type Dispatcher interface {
	Execute(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error)
	ListTools() []agentic.ToolDefinition
}

// CSVFilter filters CSV rows on a single column.
type CSVFilter interface {
	Filter(ctx context.Context, csvPath, column, value string) ([]map[string]any, error)
}

// Options configures a Server.
type Options struct {
	Addr            string
	ShutdownTimeout time.Duration
	// Gatherer backs /metrics; nil uses the default registry
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Server serves the tool API.
type Server struct {
	tools  Dispatcher
	csv    CSVFilter
	opts   Options
	router *mux.Router
	logger *slog.Logger
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NewServer creates a Server and wires its routes.
func NewServer(tools Dispatcher, csv CSVFilter, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		tools:  tools,
		csv:    csv,
		opts:   opts,
		router: mux.NewRouter(),
		logger: opts.Logger,
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/tools", s.handleListTools).Methods(http.MethodGet)
	v1.HandleFunc("/tools/{name}", s.handleExecute).Methods(http.MethodPost)
	v1.HandleFunc("/csv/filter", s.handleCSVFilter).Methods(http.MethodGet)

	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP API listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.logger.Info("HTTP API stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tools.ListTools())
}

// handleExecute handles POST /api/v1/tools/{name}; the body is the argument object.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	args := map[string]any{}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "read_error", "Failed to read request body")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &args); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_json", "Body must be a JSON object of tool arguments")
			return
		}
	}

	call := agentic.ToolCall{
		ID:        r.Header.Get("X-Call-ID"),
		Name:      name,
		Arguments: args,
	}

	result, err := s.tools.Execute(r.Context(), call)
	switch {
	case errors.Is(err, toolcall.ErrUnknownTool):
		writeJSON(w, http.StatusNotFound, result)
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, result)
	case toolcall.IsPermissionDenied(result):
		writeJSON(w, http.StatusForbidden, result)
	case result.Error != "":
		writeJSON(w, http.StatusBadRequest, result)
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

// handleCSVFilter handles GET /api/v1/csv/filter?path=&column=&value=.
func (s *Server) handleCSVFilter(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	path, column := q.Get("path"), q.Get("column")
	if path == "" || column == "" {
		writeJSONError(w, http.StatusBadRequest, "missing_params", "path and column are required")
		return
	}

	records, err := s.csv.Filter(r.Context(), path, column, q.Get("value"))
	if err != nil {
		if sandbox.IsPermissionDenied(err) {
			writeJSONError(w, http.StatusForbidden, "permission_denied", err.Error())
			return
		}
		writeJSONError(w, http.StatusBadRequest, "filter_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, errorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}
