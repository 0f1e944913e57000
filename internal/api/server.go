package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/gi4nks/promptchain/internal/analytics"
	"github.com/gi4nks/promptchain/internal/chain"
	"github.com/gi4nks/promptchain/internal/errors"
	"github.com/gi4nks/promptchain/internal/models"
	"github.com/gi4nks/promptchain/internal/transcript"
)

// RequestFailedNotice is the only failure detail shown for a failed run.
const RequestFailedNotice = "request failed"

const defaultHistoryLimit = 20

// SessionInterface defines the session methods needed by the API
type SessionInterface interface {
	Start(ctx context.Context, req models.ChainRequest, observers ...chain.StepObserver) (models.Run, error)
	Current() models.Run
	State() models.RunState
	Export() (transcript.Export, error)
	History(limit int) ([]models.Run, error)
	Get(id string) (*models.Run, error)
	Stats() (*analytics.AnalyticsReport, error)
}

// Option configures a Server.
type Option func(*Server)

// WithDefaultCredential is used when a request carries no bearer token.
func WithDefaultCredential(credential string) Option {
	return func(s *Server) {
		s.defaultCredential = credential
	}
}

// WithCORS adds permissive CORS headers for browser front ends served elsewhere.
func WithCORS(enabled bool) Option {
	return func(s *Server) {
		s.cors = enabled
	}
}

// Server represents the API server
type Server struct {
	logger            *zap.Logger
	session           SessionInterface
	defaultCredential string
	cors              bool
}

// NewServer creates a new API server
func NewServer(session SessionInterface, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		logger:  logger,
		session: session,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunRequest is the body of POST /api/runs.
type RunRequest struct {
	SystemPrompt string `json:"system_prompt"`
	FirstPrompt  string `json:"first_prompt"`
	NextPrompt   string `json:"next_prompt"`
	Count        int    `json:"count"`
}

// RunView is a run as rendered to clients.
type RunView struct {
	models.Run
	Notice string `json:"notice,omitempty"`
}

func newRunView(run models.Run) RunView {
	view := RunView{Run: run}
	if run.State == models.StateFailed {
		view.Notice = RequestFailedNotice
	}
	return view
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SetupRoutes sets up the HTTP routes
func (s *Server) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/runs", s.handleStartRun)
	mux.HandleFunc("GET /api/runs", s.handleHistory)
	mux.HandleFunc("GET /api/runs/current", s.handleCurrent)
	mux.HandleFunc("GET /api/runs/current/export", s.handleExport)
	mux.HandleFunc("GET /api/runs/stats", s.handleStats)
	mux.HandleFunc("GET /api/runs/{id}", s.handleRun)
	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

// Handler returns the routes wrapped with the configured middleware.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.SetupRoutes()
	if s.cors {
		handler = corsMiddleware(handler)
	}
	return handler
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var body RunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, errors.NewError(errors.ErrInvalidRequest, "invalid JSON body", err))
		return
	}

	// An absent count means a single step, like the form's default.
	if body.Count == 0 {
		body.Count = 1
	}

	req := models.ChainRequest{
		Credential:               s.credential(r),
		SystemPrompt:             body.SystemPrompt,
		FirstUserPrompt:          body.FirstPrompt,
		SubsequentPromptTemplate: body.NextPrompt,
		RepeatCount:              body.Count,
	}

	run, err := s.session.Start(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.logger.Info("Run accepted",
		zap.String("runId", run.ID),
		zap.Int("count", req.RepeatCount))

	w.Header().Set("Location", "/api/runs/"+run.ID)
	s.writeJSON(w, http.StatusAccepted, newRunView(run))
}

func (s *Server) credential(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return s.defaultCredential
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, newRunView(s.session.Current()))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	export, err := s.session.Export()
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(export.Content)); err != nil {
		s.logger.Error("Failed to write export", zap.Error(err))
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.writeError(w, errors.NewError(errors.ErrInvalidRequest, "limit must be a positive integer", err))
			return
		}
		limit = parsed
	}

	runs, err := s.session.History(limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	views := make([]RunView, 0, len(runs))
	for _, run := range runs {
		views = append(views, newRunView(run))
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	run, err := s.session.Get(id)
	if err != nil {
		s.logger.Debug("Failed to get run",
			zap.String("id", id),
			zap.Error(err))
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, newRunView(*run))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	report, err := s.session.Stats()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"state":  s.session.State().String(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.Error(err))
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error(), Code: errors.Code(err)})
}

func statusFor(err error) int {
	switch {
	case errors.IsValidation(err):
		return http.StatusBadRequest
	case errors.IsConflict(err):
		return http.StatusConflict
	case errors.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
