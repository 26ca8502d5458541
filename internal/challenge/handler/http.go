// Package handler serves the coding challenges and grades submissions over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"jsacademy/backend/internal/challenge"
	"jsacademy/backend/internal/httputil"
	"jsacademy/backend/internal/logging"
	"jsacademy/backend/internal/sandbox"
	"jsacademy/backend/internal/server/middleware"
)

// Activity actions logged by submissions.
const (
	ActionSubmitted = "challenge_submitted"
	ActionPassed    = "challenge_passed"
)

// ProgressRecorder records a passed challenge for a learner.
type ProgressRecorder interface {
	CompleteChallenge(ctx context.Context, learnerID, challengeID string) error
}

// ActivityLogger records learner activity. Best effort.
type ActivityLogger interface {
	LogEvent(ctx context.Context, learnerID, action, resource, metadata string)
}

// Handler serves challenges from a Store and grades submissions with an Evaluator.
type Handler struct {
	store     *challenge.Store
	evaluator *challenge.Evaluator
	progress  ProgressRecorder
	activity  ActivityLogger
	maxBody   int64
}

// New returns a challenge handler. progress and activity may be nil.
func New(store *challenge.Store, evaluator *challenge.Evaluator, progress ProgressRecorder, activity ActivityLogger, maxSourceBytes int) *Handler {
	return &Handler{
		store:     store,
		evaluator: evaluator,
		progress:  progress,
		activity:  activity,
		maxBody:   int64(maxSourceBytes) + 4096,
	}
}

// Register mounts the read routes on r and the submit route on exec, which carries the rate limiter.
func (h *Handler) Register(r, exec *mux.Router) {
	r.HandleFunc("/api/challenges", h.List).Methods(http.MethodGet)
	r.HandleFunc("/api/challenges/{id}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/api/challenges/{id}/hint", h.Hint).Methods(http.MethodGet)
	r.HandleFunc("/api/challenges/{id}/solution", h.Solution).Methods(http.MethodGet)
	exec.HandleFunc("/api/challenges/{id}/submit", h.Submit).Methods(http.MethodPost)
}

// PublicChallenge is a challenge without its solution and hint.
type PublicChallenge struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Function    string               `json:"function"`
	StarterCode string               `json:"starterCode"`
	Tests       []challenge.TestCase `json:"tests"`
	HasHint     bool                 `json:"hasHint"`
	Category    string               `json:"category,omitempty"`
}

// PublicCategory is a category listing public challenges.
type PublicCategory struct {
	Key        string            `json:"key"`
	Title      string            `json:"title"`
	Icon       string            `json:"icon,omitempty"`
	Difficulty string            `json:"difficulty,omitempty"`
	Challenges []PublicChallenge `json:"challenges"`
}

// ListResponse is the body of GET /api/challenges.
type ListResponse struct {
	Categories []PublicCategory `json:"categories"`
	Total      int              `json:"total"`
}

func public(ch *challenge.Challenge, category string) PublicChallenge {
	return PublicChallenge{
		ID:          ch.ID,
		Title:       ch.Title,
		Description: ch.Description,
		Function:    ch.Function,
		StarterCode: ch.StarterCode,
		Tests:       ch.Tests,
		HasHint:     ch.Hint != "",
		Category:    category,
	}
}

// List handles GET /api/challenges.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	cat := h.store.Catalog()
	resp := ListResponse{Categories: make([]PublicCategory, 0, len(cat.Categories)), Total: cat.Total()}
	for _, c := range cat.Categories {
		pc := PublicCategory{Key: c.Key, Title: c.Title, Icon: c.Icon, Difficulty: c.Difficulty, Challenges: make([]PublicChallenge, 0, len(c.Challenges))}
		for i := range c.Challenges {
			pc.Challenges = append(pc.Challenges, public(&c.Challenges[i], ""))
		}
		resp.Categories = append(resp.Categories, pc)
	}
	httputil.WriteJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*challenge.Challenge, *challenge.Category, bool) {
	ch, cg, ok := h.store.Catalog().Challenge(mux.Vars(r)["id"])
	if !ok {
		httputil.WriteError(w, r, http.StatusNotFound, "challenge not found")
	}
	return ch, cg, ok
}

// Get handles GET /api/challenges/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ch, cg, ok := h.lookup(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, r, http.StatusOK, public(ch, cg.Key))
}

// Hint handles GET /api/challenges/{id}/hint.
func (h *Handler) Hint(w http.ResponseWriter, r *http.Request) {
	ch, _, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if ch.Hint == "" {
		httputil.WriteError(w, r, http.StatusNotFound, "no hint for this challenge")
		return
	}
	httputil.WriteJSON(w, r, http.StatusOK, map[string]string{"hint": ch.Hint})
}

// Solution handles GET /api/challenges/{id}/solution.
func (h *Handler) Solution(w http.ResponseWriter, r *http.Request) {
	ch, _, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if ch.Solution == "" {
		httputil.WriteError(w, r, http.StatusNotFound, "no solution for this challenge")
		return
	}
	httputil.WriteJSON(w, r, http.StatusOK, map[string]string{"solution": ch.Solution})
}

// SubmitRequest is the body of POST /api/challenges/{id}/submit.
type SubmitRequest struct {
	Code string `json:"code"`
}

// Submit handles POST /api/challenges/{id}/submit. A passing report from an identified learner is recorded.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	ch, _, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req SubmitRequest
	if err := httputil.DecodeJSON(w, r, &req, h.maxBody); err != nil {
		httputil.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Code == "" {
		httputil.WriteError(w, r, http.StatusBadRequest, "code is required")
		return
	}
	rep, err := h.evaluator.Evaluate(r.Context(), ch, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, sandbox.ErrSourceTooLarge):
			httputil.WriteError(w, r, http.StatusRequestEntityTooLarge, "code is too large")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			httputil.WriteError(w, r, http.StatusServiceUnavailable, "request cancelled")
		default:
			httputil.InternalError(w, r, err)
		}
		return
	}

	learnerID, _ := middleware.GetLearnerID(r.Context())
	meta, _ := json.Marshal(map[string]any{"passed": rep.Passed, "passed_count": rep.PassedCount, "total": rep.Total})
	if h.activity != nil {
		h.activity.LogEvent(r.Context(), learnerID, ActionSubmitted, ch.ID, string(meta))
	}
	if rep.Passed && learnerID != "" {
		if h.progress != nil {
			if err := h.progress.CompleteChallenge(r.Context(), learnerID, ch.ID); err != nil {
				logging.FromContext(r.Context()).WithError(err).WithField("challenge_id", ch.ID).Warn("challenge: record completion failed")
			}
		}
		if h.activity != nil {
			h.activity.LogEvent(r.Context(), learnerID, ActionPassed, ch.ID, "")
		}
	}
	httputil.WriteJSON(w, r, http.StatusOK, rep)
}
