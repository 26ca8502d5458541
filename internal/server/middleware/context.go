// Package middleware holds the HTTP middleware chain and the request-scoped identity it stores in context.
package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
)

type contextKey struct{ name string }

var (
	learnerIDKey = contextKey{"learner_id"}
	requestIDKey = contextKey{"request_id"}
	clientIPKey  = contextKey{"client_ip"}
	stateKey     = contextKey{"request_state"}
)

// requestState is installed by RequestID so middleware running before Auth can see what Auth resolved.
type requestState struct {
	mu        sync.Mutex
	learnerID string
}

func withRequestState(ctx context.Context) context.Context {
	return context.WithValue(ctx, stateKey, &requestState{})
}

// resolvedLearner returns the learner ID recorded anywhere in the chain for this request.
func resolvedLearner(ctx context.Context) (string, bool) {
	if id, ok := GetLearnerID(ctx); ok {
		return id, true
	}
	st, ok := ctx.Value(stateKey).(*requestState)
	if !ok {
		return "", false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.learnerID, st.learnerID != ""
}

// WithLearner returns a context carrying the authenticated learner ID.
// Handlers read it via GetLearnerID.
func WithLearner(ctx context.Context, learnerID string) context.Context {
	if st, ok := ctx.Value(stateKey).(*requestState); ok {
		st.mu.Lock()
		st.learnerID = learnerID
		st.mu.Unlock()
	}
	return context.WithValue(ctx, learnerIDKey, learnerID)
}

// GetLearnerID returns the learner ID from context and true if set; otherwise "", false.
func GetLearnerID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(learnerIDKey).(string)
	return v, ok && v != ""
}

// WithRequestID returns a context carrying the request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID returns the request ID from context, or "".
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// WithClientIP returns a context carrying the client IP.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// GetClientIP returns the client IP stored by RequestID, or "unknown".
func GetClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(clientIPKey).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// ClientIP returns the client IP from X-Forwarded-For, X-Real-IP or the remote address, or "unknown".
func ClientIP(r *http.Request) string {
	if s := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); s != "" {
		if i := strings.Index(s, ","); i > 0 {
			s = strings.TrimSpace(s[:i])
		}
		return s
	}
	if s := strings.TrimSpace(r.Header.Get("X-Real-IP")); s != "" {
		return s
	}
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// PeerIP returns the address of the client as seen by the closest trusted proxy.
// With trustedHops 0 it is the connection's remote address and X-Forwarded-For is ignored, since any client can set it.
// With n trusted hops it is the n-th X-Forwarded-For entry from the right, which the outermost trusted proxy appended.
func PeerIP(r *http.Request, trustedHops int) string {
	if trustedHops > 0 {
		var hops []string
		for _, h := range r.Header.Values("X-Forwarded-For") {
			for _, part := range strings.Split(h, ",") {
				if part = strings.TrimSpace(part); part != "" {
					hops = append(hops, part)
				}
			}
		}
		if len(hops) > 0 {
			i := len(hops) - trustedHops
			if i < 0 {
				i = 0
			}
			return hops[i]
		}
	}
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
