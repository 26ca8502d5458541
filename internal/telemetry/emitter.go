// Package telemetry carries learner activity events to OpenTelemetry logs and Kafka.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Event is a learner activity event as exported to telemetry sinks. The JSON form is the Kafka message value.
type Event struct {
	ID        string          `json:"id"`
	LearnerID string          `json:"learnerId,omitempty"`
	EventType string          `json:"eventType"`
	Resource  string          `json:"resource,omitempty"`
	Source    string          `json:"source"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// EventEmitter emits telemetry events (e.g. to OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}

// Multi fans an event out to every non-nil emitter and joins their errors.
func Multi(emitters ...EventEmitter) EventEmitter {
	out := make(multiEmitter, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

type multiEmitter []EventEmitter

func (m multiEmitter) Emit(ctx context.Context, event *Event) error {
	var errs []error
	for _, e := range m {
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
