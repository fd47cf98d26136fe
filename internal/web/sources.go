package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/conorfennell/knolreview/internal/ingest"
	"github.com/conorfennell/knolreview/internal/storage"
)

type sourceView struct {
	storage.Source
	LastScanned *string `json:"lastScanned,omitempty"`
}

func (s *Server) handleListSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sources, err := s.db.AllSources(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		views := make([]sourceView, 0, len(sources))
		for _, src := range sources {
			v := sourceView{Source: src}
			if src.LastScanned.Valid {
				ts := src.LastScanned.Time.UTC().Format(time.RFC3339)
				v.LastScanned = &ts
			}
			views = append(views, v)
		}
		s.writeJSON(w, http.StatusOK, views)
	}
}

type addSourceRequest struct {
	Path string `json:"path" validate:"required"`
}

func (s *Server) handleAddSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addSourceRequest
		if err := s.decode(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		src, err := s.syncer.AddSource(r.Context(), req.Path)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, sourceView{Source: src})
	}
}

func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			s.writeError(w, r, errors.Join(errBadRequest, err))
			return
		}
		s.reviews.Abandon()
		if err := s.db.DeleteSource(r.Context(), id); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleSync reconciles every source in the foreground.
func (s *Server) handleSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.reviews.Abandon()
		reports, err := s.syncer.Run(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if reports == nil {
			reports = []ingest.Report{}
		}
		s.writeJSON(w, http.StatusOK, reports)
	}
}
