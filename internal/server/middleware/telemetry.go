package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"jsacademy/backend/internal/telemetry"
)

// httpRequestMetadata is the JSON shape stored in Event.Metadata for http_request events.
type httpRequestMetadata struct {
	Method     string `json:"method"`
	Route      string `json:"route"`
	StatusCode int    `json:"status_code"`
	DurationMs int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
	RequestID  string `json:"request_id,omitempty"`
}

// Telemetry emits an http_request event after each request. Best-effort: failures are logged and do not
// fail the request. If emitter is nil the middleware no-ops. skipRoutes holds route templates to not emit
// (e.g. /healthz, /metrics).
func Telemetry(emitter telemetry.EventEmitter, skipRoutes map[string]bool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if emitter == nil {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			sw := wrap(w)
			next.ServeHTTP(sw, r)

			route := routeTemplate(r)
			if skipRoutes[route] {
				return
			}
			meta, _ := json.Marshal(httpRequestMetadata{
				Method:     r.Method,
				Route:      route,
				StatusCode: sw.status,
				DurationMs: time.Since(start).Milliseconds(),
				ClientIP:   GetClientIP(r.Context()),
				RequestID:  GetRequestID(r.Context()),
			})
			learnerID, _ := GetLearnerID(r.Context())
			telemetry.EmitAsync(r.Context(), emitter, &telemetry.Event{
				ID:        uuid.New().String(),
				LearnerID: learnerID,
				EventType: "http_request",
				Source:    "http_middleware",
				Metadata:  meta,
				CreatedAt: time.Now().UTC(),
			})
		})
	}
}
