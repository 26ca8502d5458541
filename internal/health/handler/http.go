// Package handler serves liveness and readiness probes for load balancers and the hosting platform.
package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"

	"jsacademy/backend/internal/httputil"
	"jsacademy/backend/internal/logging"
)

// CheckFunc reports whether one dependency is ready.
type CheckFunc func(ctx context.Context) error

// Handler serves /healthz (process is up) and /readyz (every registered check passes).
type Handler struct {
	checks  map[string]CheckFunc
	timeout time.Duration
}

// New returns a health handler running checks with a 2s budget.
func New(checks map[string]CheckFunc) *Handler {
	if checks == nil {
		checks = map[string]CheckFunc{}
	}
	return &Handler{checks: checks, timeout: 2 * time.Second}
}

// Register mounts the probe routes on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/healthz", h.Live).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.Ready).Methods(http.MethodGet, http.MethodHead)
}

// Status is the probe response body.
type Status struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Live handles GET /healthz.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, r, http.StatusOK, Status{Status: "ok"})
}

// Ready handles GET /readyz. Any failing check yields 503.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := Status{Status: "ok", Checks: make(map[string]string, len(names))}
	code := http.StatusOK
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			logging.FromContext(ctx).WithError(err).WithField("check", name).Warn("readiness check failed")
			resp.Checks[name] = err.Error()
			resp.Status = "unavailable"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	httputil.WriteJSON(w, r, code, resp)
}
