package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"jsacademy/backend/internal/logging"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// RequestID stores a request ID (the caller's X-Request-ID when well formed, otherwise a new UUID), the client IP,
// and a request-scoped log entry in the context. It must run first.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !validRequestID.MatchString(id) {
			id = uuid.New().String()
		}
		ip := ClientIP(r)
		w.Header().Set(RequestIDHeader, id)

		ctx := withRequestState(r.Context())
		ctx = WithRequestID(ctx, id)
		ctx = WithClientIP(ctx, ip)
		ctx = logging.WithEntry(ctx, logging.FromContext(ctx).WithFields(logrus.Fields{
			"request_id": id,
			"client_ip":  ip,
		}))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
