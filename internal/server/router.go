package server

import (
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	activityhandler "jsacademy/backend/internal/activity/handler"
	activityrepo "jsacademy/backend/internal/activity/repository"
	"jsacademy/backend/internal/challenge"
	challengehandler "jsacademy/backend/internal/challenge/handler"
	"jsacademy/backend/internal/content"
	contenthandler "jsacademy/backend/internal/content/handler"
	healthhandler "jsacademy/backend/internal/health/handler"
	learnerhandler "jsacademy/backend/internal/learner/handler"
	learnerservice "jsacademy/backend/internal/learner/service"
	"jsacademy/backend/internal/metrics"
	"jsacademy/backend/internal/playground"
	playgroundhandler "jsacademy/backend/internal/playground/handler"
	"jsacademy/backend/internal/server/middleware"
	"jsacademy/backend/internal/telemetry"
)

// Deps holds the dependencies of the HTTP routes. Nil fields leave their routes unregistered.
type Deps struct {
	// Content serves paths, lessons and the sample data. Required.
	Content *content.Store
	// Challenges and Evaluator serve and grade challenges. Both are needed for the challenge routes.
	Challenges *challenge.Store
	Evaluator  *challenge.Evaluator
	// Playground runs and bundles code; a nil Playground leaves the playground unregistered.
	// Shares stores shared snippets and defaults to an in-memory store.
	Playground *playground.Runner
	Shares     playground.ShareStore
	// Learners serves registration, tokens and progress. If nil, /api/learners and /api/me are not registered.
	Learners *learnerservice.LearnerService
	// Tokens validates bearer tokens. If nil, every request is anonymous.
	Tokens middleware.TokenValidator
	// Activity is the activity log repository read by GET /api/me/activity.
	Activity activityrepo.Repository
	// ActivityLogger records learner actions from the challenge and playground routes.
	ActivityLogger challengehandler.ActivityLogger
	// Metrics records HTTP metrics and serves /metrics. If nil, neither happens.
	Metrics *metrics.Metrics
	// RateLimiter guards the code execution routes. If nil, execution is unlimited.
	RateLimiter *middleware.RateLimiter
	// CORSOrigins lists the origins allowed to call the API.
	CORSOrigins []string
	// Emitter receives http_request telemetry events. If nil, none are emitted.
	Emitter telemetry.EventEmitter
	// HealthChecks are run by /readyz.
	HealthChecks map[string]healthhandler.CheckFunc
	// Static is the front end root (static/). If nil, unknown paths get 404.
	Static fs.FS

	MaxSourceBytes int
	ShareTTL       time.Duration
}

// telemetrySkip lists route templates that never produce http_request events.
var telemetrySkip = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// NewRouter builds the HTTP handler: middleware chain, API routes, /metrics, health and the front end.
//
// Route → handler mapping:
//   - /api/paths, /api/lessons, /api/data → internal/content/handler
//   - /api/challenges                     → internal/challenge/handler
//   - /api/playground                     → internal/playground/handler
//   - /api/learners, /api/me              → internal/learner/handler
//   - /api/me/activity                    → internal/activity/handler
//   - /healthz, /readyz                   → internal/health/handler
func NewRouter(deps Deps) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover)
	// Logged and counted ahead of CORS and Auth so their rejections show up too.
	r.Use(middleware.AccessLog)
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}
	r.Use(middleware.NewCORS(deps.CORSOrigins).Handler)
	r.Use(middleware.Auth(deps.Tokens))
	r.Use(middleware.Tracing())
	if deps.Emitter != nil {
		r.Use(middleware.Telemetry(deps.Emitter, telemetrySkip))
	}

	// Execution and password-hashing routes share the rate limiter through a matcher-less subrouter.
	exec := r.NewRoute().Subrouter()
	if deps.RateLimiter != nil {
		exec.Use(deps.RateLimiter.Handler)
	}

	activity := deps.ActivityLogger

	if deps.Content != nil {
		contenthandler.New(deps.Content).Register(r)
	}
	if deps.Challenges != nil && deps.Evaluator != nil {
		var progress challengehandler.ProgressRecorder
		if deps.Learners != nil {
			progress = deps.Learners
		}
		challengehandler.New(deps.Challenges, deps.Evaluator, progress, activity, deps.MaxSourceBytes).Register(r, exec)
	}
	if deps.Playground != nil {
		shares := deps.Shares
		if shares == nil {
			shares = playground.NewMemoryShareStore()
		}
		playgroundhandler.New(deps.Playground, shares, deps.ShareTTL, activity, deps.MaxSourceBytes).Register(r, exec)
	}
	if deps.Learners != nil {
		learnerhandler.New(deps.Learners).Register(r, exec)
	}
	if deps.Activity != nil {
		activityhandler.New(deps.Activity).Register(r)
	}
	healthhandler.New(deps.HealthChecks).Register(r)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler()).Methods(http.MethodGet)
	}

	if deps.Static != nil {
		r.PathPrefix("/").Handler(middleware.SPA(deps.Static))
	}
	return r
}
