package telemetry

import (
	"context"
	"sync"
	"time"

	"jsacademy/backend/internal/logging"
)

// emitTimeout bounds one background emit.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is the longest a shutdown should wait in Drain. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// inflight counts background emits so shutdown can wait for them.
type inflight struct {
	mu   sync.Mutex
	n    int
	idle chan struct{}
}

func (f *inflight) add() {
	f.mu.Lock()
	if f.n == 0 {
		f.idle = make(chan struct{})
	}
	f.n++
	f.mu.Unlock()
}

func (f *inflight) done() {
	f.mu.Lock()
	f.n--
	if f.n == 0 {
		close(f.idle)
	}
	f.mu.Unlock()
}

func (f *inflight) wait(ctx context.Context) error {
	f.mu.Lock()
	if f.n == 0 {
		f.mu.Unlock()
		return nil
	}
	idle := f.idle
	f.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var pending inflight

// EmitAsync emits event in the background so request handlers never block on a sink.
// The emit is detached from ctx cancellation and bounded by emitTimeout; failures are logged.
// A nil emitter or event is a no-op.
func EmitAsync(ctx context.Context, emitter EventEmitter, event *Event) {
	if emitter == nil || event == nil {
		return
	}
	log := logging.FromContext(ctx)
	pending.add()
	go func() {
		defer pending.done()
		emitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emitTimeout)
		defer cancel()
		if err := emitter.Emit(emitCtx, event); err != nil {
			log.WithError(err).WithField("event_type", event.EventType).Warn("telemetry: async emit failed")
		}
	}()
}

// Drain waits until every emit started by EmitAsync has returned, or ctx is done.
func Drain(ctx context.Context) error {
	return pending.wait(ctx)
}
