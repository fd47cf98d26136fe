// Package web exposes the deck, review sessions and sources over a JSON
// HTTP API.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/conorfennell/knolreview/internal/domain"
	"github.com/conorfennell/knolreview/internal/ingest"
	"github.com/conorfennell/knolreview/internal/session"
	"github.com/conorfennell/knolreview/internal/storage"
	"github.com/go-playground/validator/v10"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	db       *storage.DB
	reviews  *session.Controller
	syncer   *ingest.Syncer
	logger   *slog.Logger
	validate *validator.Validate
	router   *http.ServeMux
}

// NewServer creates and configures a new server.
func NewServer(db *storage.DB, reviews *session.Controller, syncer *ingest.Syncer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		db:       db,
		reviews:  reviews,
		syncer:   syncer,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		router:   http.NewServeMux(),
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	// Deck
	s.router.HandleFunc("GET /deck", s.handleGetDeck())
	s.router.HandleFunc("GET /cards", s.handleListCards())
	s.router.HandleFunc("POST /cards", s.handleCreateCard())
	s.router.HandleFunc("GET /cards/{id}/mastery", s.handleGetMastery())
	s.router.HandleFunc("GET /cards/{id}/reviews", s.handleGetReviews())
	s.router.HandleFunc("POST /cards/{id}/reset", s.handleResetCard())
	s.router.HandleFunc("DELETE /cards/{id}", s.handleDeleteCard())

	// Review session
	s.router.HandleFunc("POST /session", s.handleStartSession())
	s.router.HandleFunc("GET /session", s.handleGetSession())
	s.router.HandleFunc("POST /session/reveal", s.handleReveal())
	s.router.HandleFunc("POST /session/respond", s.handleRespond())

	// Sources
	s.router.HandleFunc("GET /sources", s.handleListSources())
	s.router.HandleFunc("POST /sources", s.handleAddSource())
	s.router.HandleFunc("DELETE /sources/{id}", s.handleDeleteSource())
	s.router.HandleFunc("POST /sync", s.handleSync())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain errors to status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var verr validator.ValidationErrors
	switch {
	case errors.Is(err, domain.ErrInvalidCard), errors.As(err, &verr), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, session.ErrUnknownCard), errors.Is(err, session.ErrNoSession):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrSessionComplete), errors.Is(err, session.ErrCardMismatch):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		s.writeJSON(w, status, errorResponse{Error: "internal server error"})
		return
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

var errBadRequest = errors.New("bad request")

// decode reads a JSON body into v and validates it.
func (s *Server) decode(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return s.validate.Struct(v)
}
