// Package activity records learner actions to a repository and forwards them to telemetry sinks.
package activity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"jsacademy/backend/internal/activity/domain"
	activityrepo "jsacademy/backend/internal/activity/repository"
	"jsacademy/backend/internal/logging"
	"jsacademy/backend/internal/telemetry"
)

// AnonymousLearnerID is the learner_id recorded for actions by callers without a learner token.
const AnonymousLearnerID = "_anonymous"

// Source is the telemetry source of events recorded by the API.
const Source = "api"

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// Logger persists activity events to repo and emits them to emitter. Either may be nil.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type Logger struct {
	repo        activityrepo.Repository
	emitter     telemetry.EventEmitter
	ipExtractor IPExtractor
	nowF        func() time.Time
}

// NewLogger returns a Logger. ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo activityrepo.Repository, emitter telemetry.EventEmitter, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, emitter: emitter, ipExtractor: ipExtractor, nowF: time.Now}
}

// LogEvent records one activity event. metadata, when set, should be a JSON object.
func (l *Logger) LogEvent(ctx context.Context, learnerID, action, resource, metadata string) {
	if l == nil || (l.repo == nil && l.emitter == nil) {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	if learnerID == "" {
		learnerID = AnonymousLearnerID
	}
	e := &domain.Event{
		ID:        uuid.New().String(),
		LearnerID: learnerID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: l.nowF().UTC(),
	}
	if l.repo != nil {
		if err := l.repo.Create(ctx, e); err != nil {
			logging.FromContext(ctx).WithError(err).WithField("action", action).Warn("activity: failed to record event")
		}
	}
	telemetry.EmitAsync(ctx, l.emitter, ToTelemetry(e))
}

// ToTelemetry converts an activity event to its telemetry form. Metadata that is not valid JSON is dropped.
func ToTelemetry(e *domain.Event) *telemetry.Event {
	ev := &telemetry.Event{
		ID:        e.ID,
		EventType: e.Action,
		Resource:  e.Resource,
		Source:    Source,
		CreatedAt: e.CreatedAt,
	}
	if e.LearnerID != AnonymousLearnerID {
		ev.LearnerID = e.LearnerID
	}
	if e.Metadata != "" && json.Valid([]byte(e.Metadata)) {
		ev.Metadata = json.RawMessage(e.Metadata)
	}
	return ev
}
