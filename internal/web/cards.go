package web

import (
	"net/http"
	"time"

	"github.com/conorfennell/knolreview/internal/domain"
	"github.com/conorfennell/knolreview/internal/knol"
	"github.com/conorfennell/knolreview/internal/schedule"
)

type cardView struct {
	domain.Card
	Mastery schedule.Mastery `json:"mastery"`
	Due     bool             `json:"due"`
}

func (s *Server) viewCard(c domain.Card, now time.Time) cardView {
	return cardView{
		Card:    c,
		Mastery: s.reviews.Params().Classify(c),
		Due:     schedule.IsDue(c, now),
	}
}

// handleGetDeck summarizes the deck: size, due count and mastery levels.
func (s *Server) handleGetDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deck, err := s.db.Load(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, s.reviews.Params().Summarize(deck, s.reviews.Now()))
	}
}

func (s *Server) handleListCards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deck, err := s.db.Load(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		now := s.reviews.Now()
		views := make([]cardView, 0, len(deck))
		for _, c := range deck {
			views = append(views, s.viewCard(c, now))
		}
		s.writeJSON(w, http.StatusOK, views)
	}
}

type createCardRequest struct {
	Front      string `json:"front" validate:"required"`
	Back       string `json:"back" validate:"required"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

// handleCreateCard adds a student-written card to the end of the deck.
func (s *Server) handleCreateCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createCardRequest
		if err := s.decode(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		id, err := knol.NewStudentID()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		card := domain.Card{
			ID:               id,
			Front:            req.Front,
			Back:             req.Back,
			Category:         req.Category,
			Difficulty:       req.Difficulty,
			CreatedByStudent: true,
		}
		if err := s.db.InsertCard(r.Context(), card); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, s.viewCard(card, s.reviews.Now()))
	}
}

func (s *Server) handleGetMastery() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		card, err := s.db.FindCard(r.Context(), r.PathValue("id"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, s.reviews.Params().Classify(card))
	}
}

func (s *Server) handleGetReviews() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if _, err := s.db.FindCard(r.Context(), id); err != nil {
			s.writeError(w, r, err)
			return
		}
		logs, err := s.db.ReviewsForCard(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if logs == nil {
			logs = []domain.ReviewLog{}
		}
		s.writeJSON(w, http.StatusOK, logs)
	}
}

// handleResetCard zeroes a card's progress. The active session is dropped
// so that it can't write the old counters back.
func (s *Server) handleResetCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.reviews.Abandon()
		if err := s.db.ResetProgress(r.Context(), r.PathValue("id")); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleDeleteCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.reviews.Abandon()
		if err := s.db.DeleteCard(r.Context(), r.PathValue("id")); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
