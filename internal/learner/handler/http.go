// Package handler serves learner registration, token recovery and progress over HTTP.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"jsacademy/backend/internal/httputil"
	"jsacademy/backend/internal/learner/service"
	"jsacademy/backend/internal/server/middleware"
)

const maxBodyBytes = 4 << 10

// Handler exposes the learner service.
type Handler struct {
	svc *service.LearnerService
}

// New returns a learner handler.
func New(svc *service.LearnerService) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the /api/me routes on r and the password-hashing routes on exec, which carries the
// rate limiter. /api/me routes require an authenticated learner.
func (h *Handler) Register(r, exec *mux.Router) {
	exec.HandleFunc("/api/learners", h.Create).Methods(http.MethodPost)
	exec.HandleFunc("/api/learners/{id}/token", h.Token).Methods(http.MethodPost)
	r.Handle("/api/me/progress", middleware.RequireLearner(http.HandlerFunc(h.Progress))).Methods(http.MethodGet)
	r.Handle("/api/me/lessons/{id}/complete", middleware.RequireLearner(http.HandlerFunc(h.CompleteLesson))).Methods(http.MethodPost)
}

// CreateRequest is the body of POST /api/learners. The body is optional.
type CreateRequest struct {
	DisplayName string `json:"displayName"`
}

// CreateResponse is returned once; the recovery code cannot be retrieved again.
type CreateResponse struct {
	LearnerID    string    `json:"learnerId"`
	DisplayName  string    `json:"displayName"`
	Token        string    `json:"token"`
	ExpiresAt    time.Time `json:"expiresAt"`
	RecoveryCode string    `json:"recoveryCode"`
}

// TokenRequest is the body of POST /api/learners/{id}/token.
type TokenRequest struct {
	RecoveryCode string `json:"recoveryCode"`
}

// TokenResponse carries a fresh learner token.
type TokenResponse struct {
	LearnerID string    `json:"learnerId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Create handles POST /api/learners.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(w, r, &req, maxBodyBytes); err != nil {
			httputil.WriteError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}
	reg, err := h.svc.Register(r.Context(), req.DisplayName)
	if err != nil {
		if errors.Is(err, service.ErrDisplayNameLength) {
			httputil.WriteError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		httputil.InternalError(w, r, err)
		return
	}
	httputil.WriteJSON(w, r, http.StatusCreated, CreateResponse{
		LearnerID:    reg.Learner.ID,
		DisplayName:  reg.Learner.DisplayName,
		Token:        reg.Token,
		ExpiresAt:    reg.ExpiresAt,
		RecoveryCode: reg.RecoveryCode,
	})
}

// Token handles POST /api/learners/{id}/token.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := httputil.DecodeJSON(w, r, &req, maxBodyBytes); err != nil {
		httputil.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.RecoveryCode == "" {
		httputil.WriteError(w, r, http.StatusBadRequest, "recoveryCode is required")
		return
	}
	sess, err := h.svc.Recover(r.Context(), mux.Vars(r)["id"], req.RecoveryCode)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRecovery) {
			httputil.WriteError(w, r, http.StatusUnauthorized, err.Error())
			return
		}
		httputil.InternalError(w, r, err)
		return
	}
	httputil.WriteJSON(w, r, http.StatusOK, TokenResponse{LearnerID: sess.LearnerID, Token: sess.Token, ExpiresAt: sess.ExpiresAt})
}

// Progress handles GET /api/me/progress.
func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	learnerID, _ := middleware.GetLearnerID(r.Context())
	rep, err := h.svc.Progress(r.Context(), learnerID)
	if err != nil {
		httputil.InternalError(w, r, err)
		return
	}
	httputil.WriteJSON(w, r, http.StatusOK, rep)
}

// CompleteLesson handles POST /api/me/lessons/{id}/complete and returns the updated progress.
func (h *Handler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	learnerID, _ := middleware.GetLearnerID(r.Context())
	err := h.svc.CompleteLesson(r.Context(), learnerID, mux.Vars(r)["id"])
	switch {
	case errors.Is(err, service.ErrUnknownLesson):
		httputil.WriteError(w, r, http.StatusNotFound, "lesson not found")
		return
	case errors.Is(err, service.ErrLearnerNotFound):
		httputil.WriteError(w, r, http.StatusUnauthorized, "learner no longer exists")
		return
	case err != nil:
		httputil.InternalError(w, r, err)
		return
	}
	h.Progress(w, r)
}
