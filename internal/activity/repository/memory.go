package repository

import (
	"context"
	"sync"

	"jsacademy/backend/internal/activity/domain"
)

// MemoryRepository keeps the most recent events in process memory.
type MemoryRepository struct {
	mu     sync.RWMutex
	max    int
	events []domain.Event
}

// NewMemoryRepository returns a repository holding at most max events (oldest dropped first). max <= 0 means 10000.
func NewMemoryRepository(max int) *MemoryRepository {
	if max <= 0 {
		max = 10000
	}
	return &MemoryRepository{max: max}
}

// Create appends e.
func (r *MemoryRepository) Create(ctx context.Context, e *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
	if over := len(r.events) - r.max; over > 0 {
		r.events = append(r.events[:0:0], r.events[over:]...)
	}
	return nil
}

// ListByLearner returns copies of the learner's events, newest first.
func (r *MemoryRepository) ListByLearner(ctx context.Context, learnerID string, limit, offset int) ([]*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Event, 0)
	skipped := 0
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		if r.events[i].LearnerID != learnerID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		e := r.events[i]
		out = append(out, &e)
	}
	return out, nil
}
