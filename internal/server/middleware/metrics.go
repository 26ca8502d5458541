package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

// HTTPObserver receives request measurements; *metrics.Metrics implements it.
type HTTPObserver interface {
	InFlight(delta float64)
	ObserveHTTP(method, route, status string, d time.Duration)
}

// routeTemplate returns the matched mux path template, or "unmatched" so raw paths never become labels.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// Metrics records in-flight requests and per-route status and latency. Route-level middleware
// (registered with Router.Use) sees the matched route.
func Metrics(o HTTPObserver) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if o == nil {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			o.InFlight(1)
			defer o.InFlight(-1)

			sw := wrap(w)
			next.ServeHTTP(sw, r)
			o.ObserveHTTP(strings.ToUpper(r.Method), routeTemplate(r), strconv.Itoa(sw.status), time.Since(start))
		})
	}
}
