// Package logging configures the process-wide logrus logger and carries request-scoped entries in context.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var std = newLogger(os.Stderr)

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Logger returns the process-wide logger.
func Logger() *logrus.Logger {
	return std
}

// Configure sets the level (e.g. "debug", "info") and format ("json" or "text") of the process-wide logger.
func Configure(level, format string) error {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	std.SetLevel(lvl)
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		std.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("logging: unknown format %q", format)
	}
	return nil
}

// SetOutput redirects the process-wide logger; used by tests.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

type entryKey struct{}

// WithEntry returns a context carrying entry; FromContext returns it to downstream code.
func WithEntry(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, entryKey{}, entry)
}

// FromContext returns the request-scoped entry from ctx, or an entry on the process-wide logger.
func FromContext(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if e, ok := ctx.Value(entryKey{}).(*logrus.Entry); ok && e != nil {
			return e
		}
	}
	return logrus.NewEntry(std)
}

// WithField returns ctx with the request-scoped entry extended by key=value.
func WithField(ctx context.Context, key string, value interface{}) context.Context {
	return WithEntry(ctx, FromContext(ctx).WithField(key, value))
}
