// Package handler exposes the playground over HTTP: run, bundle and share.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"jsacademy/backend/internal/httputil"
	"jsacademy/backend/internal/playground"
	"jsacademy/backend/internal/sandbox"
	"jsacademy/backend/internal/server/middleware"
)

// ActionCodeRun is the activity action logged for every playground run.
const ActionCodeRun = "code_run"

// ActivityLogger records learner activity. Best effort.
type ActivityLogger interface {
	LogEvent(ctx context.Context, learnerID, action, resource, metadata string)
}

// Handler serves the playground endpoints.
type Handler struct {
	runner   *playground.Runner
	shares   playground.ShareStore
	shareTTL time.Duration
	activity ActivityLogger
	maxBody  int64
	nowF     func() time.Time
}

// New returns a playground handler. activity may be nil.
func New(runner *playground.Runner, shares playground.ShareStore, shareTTL time.Duration, activity ActivityLogger, maxSourceBytes int) *Handler {
	return &Handler{
		runner:   runner,
		shares:   shares,
		shareTTL: shareTTL,
		activity: activity,
		maxBody:  int64(maxSourceBytes) + 4096,
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

// Register mounts the share lookup on r and the execution routes on exec, which carries the rate limiter.
func (h *Handler) Register(r, exec *mux.Router) {
	exec.HandleFunc("/api/playground/run", h.Run).Methods(http.MethodPost)
	exec.HandleFunc("/api/playground/bundle", h.Bundle).Methods(http.MethodPost)
	exec.HandleFunc("/api/playground/share", h.Share).Methods(http.MethodPost)
	r.HandleFunc("/api/playground/share/{id}", h.GetShare).Methods(http.MethodGet)
}

// RunRequest is the body of POST /api/playground/run.
type RunRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// Run handles POST /api/playground/run.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := httputil.DecodeJSON(w, r, &req, h.maxBody); err != nil {
		httputil.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Language == "" {
		req.Language = playground.LangJavaScript
	}
	out, err := h.runner.Run(r.Context(), req.Language, req.Code)
	if err != nil {
		writeRunError(w, r, err)
		return
	}
	if h.activity != nil {
		learnerID, _ := middleware.GetLearnerID(r.Context())
		h.activity.LogEvent(r.Context(), learnerID, ActionCodeRun, out.Language, "")
	}
	httputil.WriteJSON(w, r, http.StatusOK, out)
}

func writeRunError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, playground.ErrUnsupportedLanguage):
		httputil.WriteError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, playground.ErrNoHTML):
		httputil.WriteError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, sandbox.ErrSourceTooLarge):
		httputil.WriteError(w, r, http.StatusRequestEntityTooLarge, "code is too large")
	case errors.Is(err, sandbox.ErrTimeout):
		httputil.WriteError(w, r, http.StatusUnprocessableEntity, "execution timed out")
	case errors.Is(err, context.Canceled):
		httputil.WriteError(w, r, http.StatusServiceUnavailable, "request cancelled")
	default:
		httputil.InternalError(w, r, err)
	}
}

// BundleRequest is the body of POST /api/playground/bundle.
type BundleRequest struct {
	Files map[string]playground.File `json:"files"`
}

// Bundle handles POST /api/playground/bundle and returns {"html": "..."}.
func (h *Handler) Bundle(w http.ResponseWriter, r *http.Request) {
	var req BundleRequest
	if err := httputil.DecodeJSON(w, r, &req, h.maxBody); err != nil {
		httputil.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := playground.Bundle(req.Files)
	if err != nil {
		writeRunError(w, r, err)
		return
	}
	httputil.WriteJSON(w, r, http.StatusOK, map[string]string{"html": doc})
}

// ShareRequest is the body of POST /api/playground/share.
type ShareRequest struct {
	Language string                     `json:"language"`
	Code     string                     `json:"code"`
	Files    map[string]playground.File `json:"files"`
}

// ShareResponse is returned by POST /api/playground/share.
type ShareResponse struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Share handles POST /api/playground/share.
func (h *Handler) Share(w http.ResponseWriter, r *http.Request) {
	var req ShareRequest
	if err := httputil.DecodeJSON(w, r, &req, h.maxBody); err != nil {
		httputil.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Code == "" && len(req.Files) == 0 {
		httputil.WriteError(w, r, http.StatusBadRequest, "code or files required")
		return
	}
	now := h.nowF()
	snip := &playground.Snippet{
		ID:        uuid.New().String(),
		Language:  req.Language,
		Code:      req.Code,
		Files:     req.Files,
		CreatedAt: now,
		ExpiresAt: now.Add(h.shareTTL),
	}
	if err := h.shares.Put(r.Context(), snip.ID, snip, snip.ExpiresAt); err != nil {
		httputil.InternalError(w, r, err)
		return
	}
	httputil.WriteJSON(w, r, http.StatusCreated, ShareResponse{ID: snip.ID, ExpiresAt: snip.ExpiresAt})
}

// GetShare handles GET /api/playground/share/{id}.
func (h *Handler) GetShare(w http.ResponseWriter, r *http.Request) {
	snip, ok, err := h.shares.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.InternalError(w, r, err)
		return
	}
	if !ok {
		httputil.WriteError(w, r, http.StatusNotFound, "snippet not found or expired")
		return
	}
	httputil.WriteJSON(w, r, http.StatusOK, snip)
}
