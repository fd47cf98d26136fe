package web

import (
	"net/http"

	"github.com/conorfennell/knolreview/internal/schedule"
	"github.com/conorfennell/knolreview/internal/session"
)

// currentCard is what the learner sees; the back is withheld until reveal.
type currentCard struct {
	ID         string `json:"id"`
	Front      string `json:"front"`
	Back       string `json:"back,omitempty"`
	Category   string `json:"category,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

type sessionView struct {
	ID        string        `json:"id"`
	State     session.State `json:"state"`
	Total     int           `json:"total"`
	Remaining int           `json:"remaining"`
	Tally     session.Tally `json:"tally"`
	Current   *currentCard  `json:"current,omitempty"`
}

func viewSession(s session.Session) sessionView {
	v := sessionView{
		ID:        s.ID,
		State:     s.State,
		Total:     len(s.Queue),
		Remaining: s.Remaining(),
		Tally:     s.Tally,
	}
	if c, ok := s.Current(); ok {
		v.Current = &currentCard{ID: c.ID, Front: c.Front, Category: c.Category, Difficulty: c.Difficulty}
		if s.Revealed() {
			v.Current.Back = c.Back
		}
	}
	return v
}

func (s *Server) handleStartSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.reviews.Start(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, viewSession(sess))
	}
}

func (s *Server) handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.reviews.Session()
		if !ok {
			s.writeError(w, r, session.ErrNoSession)
			return
		}
		s.writeJSON(w, http.StatusOK, viewSession(sess))
	}
}

func (s *Server) handleReveal() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.reviews.Reveal()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, viewSession(sess))
	}
}

type respondRequest struct {
	CardID  string `json:"cardId" validate:"required"`
	Correct *bool  `json:"correct" validate:"required"`
}

type respondResponse struct {
	Session sessionView     `json:"session"`
	Card    cardView        `json:"card"`
	Bucket  schedule.Bucket `json:"bucket"`
	Saved   bool            `json:"saved"`
}

// handleRespond commits a response to the current card. A failed save is
// reported with saved=false but the session still moves on.
func (s *Server) handleRespond() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req respondRequest
		if err := s.decode(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		res, err := s.reviews.Respond(r.Context(), req.CardID, *req.Correct)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, respondResponse{
			Session: viewSession(res.Session),
			Card:    s.viewCard(res.Card, s.reviews.Now()),
			Bucket:  res.Update.Bucket,
			Saved:   res.SaveErr == nil,
		})
	}
}
