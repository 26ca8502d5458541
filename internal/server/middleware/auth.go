package middleware

import (
	"net/http"
	"strings"

	"jsacademy/backend/internal/httputil"
	"jsacademy/backend/internal/logging"
)

const bearerPrefix = "bearer "

// TokenValidator validates a learner access token and returns the learner ID.
type TokenValidator interface {
	ValidateAccess(token string) (learnerID string, err error)
}

// Auth validates the Bearer token when present and stores the learner ID in context.
// Learner identity is optional on this API: a missing token passes through anonymously, an invalid
// one is rejected with 401 so clients notice expired tokens.
func Auth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r)
			if token == "" || tokens == nil {
				next.ServeHTTP(w, r)
				return
			}
			learnerID, err := tokens.ValidateAccess(token)
			if err != nil {
				logging.FromContext(r.Context()).WithError(err).Debug("auth: rejected token")
				httputil.WriteError(w, r, http.StatusUnauthorized, "missing or invalid authorization")
				return
			}
			ctx := WithLearner(r.Context(), learnerID)
			ctx = logging.WithField(ctx, "learner_id", learnerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireLearner rejects requests without an authenticated learner with 401.
func RequireLearner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetLearnerID(r.Context()); !ok {
			httputil.WriteError(w, r, http.StatusUnauthorized, "missing or invalid authorization")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractBearer returns the Bearer token from the Authorization header, or "" if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
