package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"jsacademy/backend/internal/logging"
)

// AccessLog logs one line per request at info level (warn for 5xx) after the handler returns.
// It runs ahead of CORS and Auth so rejected requests are logged too.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := wrap(w)
		next.ServeHTTP(sw, r)

		entry := logging.FromContext(r.Context()).WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"route":       routeTemplate(r),
			"status":      sw.status,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if id, ok := resolvedLearner(r.Context()); ok {
			entry = entry.WithField("learner_id", id)
		}
		if sw.status >= http.StatusInternalServerError {
			entry.Warn("http request")
			return
		}
		entry.Info("http request")
	})
}
