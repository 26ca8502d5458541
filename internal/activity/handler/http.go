// Package handler serves a learner's own activity history over HTTP.
package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"jsacademy/backend/internal/activity/domain"
	"jsacademy/backend/internal/httputil"
	"jsacademy/backend/internal/server/middleware"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Lister lists a learner's events newest first.
type Lister interface {
	ListByLearner(ctx context.Context, learnerID string, limit, offset int) ([]*domain.Event, error)
}

// Handler serves GET /api/me/activity.
type Handler struct {
	repo Lister
}

// New returns an activity handler.
func New(repo Lister) *Handler {
	return &Handler{repo: repo}
}

// Register mounts the route on r. The route requires an authenticated learner.
func (h *Handler) Register(r *mux.Router) {
	r.Handle("/api/me/activity", middleware.RequireLearner(http.HandlerFunc(h.List))).Methods(http.MethodGet)
}

// ListResponse is the body of GET /api/me/activity.
type ListResponse struct {
	Events []*domain.Event `json:"events"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

func queryInt(r *http.Request, name string, def int) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// List handles GET /api/me/activity?limit=&offset=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	learnerID, _ := middleware.GetLearnerID(r.Context())
	limit, ok := queryInt(r, "limit", defaultPageSize)
	if !ok || limit == 0 {
		httputil.WriteError(w, r, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset, ok := queryInt(r, "offset", 0)
	if !ok {
		httputil.WriteError(w, r, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}
	events, err := h.repo.ListByLearner(r.Context(), learnerID, limit, offset)
	if err != nil {
		httputil.InternalError(w, r, err)
		return
	}
	if events == nil {
		events = []*domain.Event{}
	}
	httputil.WriteJSON(w, r, http.StatusOK, ListResponse{Events: events, Limit: limit, Offset: offset})
}
