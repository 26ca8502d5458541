package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"jsacademy/backend/internal/learner/domain"
)

// MemoryRepository keeps learners in process memory. Used when neither Postgres nor Redis is configured
// and in tests; data is lost on restart.
type MemoryRepository struct {
	mu       sync.RWMutex
	learners map[string]domain.Learner
	progress map[string]*domain.Progress
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		learners: make(map[string]domain.Learner),
		progress: make(map[string]*domain.Progress),
	}
}

// GetByID returns a copy of the learner for id, or nil if not found.
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Learner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.learners[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

// Create stores l. The learner must have ID set and not exist yet.
func (r *MemoryRepository) Create(ctx context.Context, l *domain.Learner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.learners[l.ID]; ok {
		return fmt.Errorf("learner %s already exists", l.ID)
	}
	r.learners[l.ID] = *l
	return nil
}

// AddCompletion records itemID for the learner, keeping completion order.
func (r *MemoryRepository) AddCompletion(ctx context.Context, learnerID string, kind domain.CompletionKind, itemID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.learners[learnerID]; !ok {
		return false, fmt.Errorf("learner %s does not exist", learnerID)
	}
	p, ok := r.progress[learnerID]
	if !ok {
		p = &domain.Progress{LearnerID: learnerID, CompletedLessons: []string{}, CompletedChallenges: []string{}}
		r.progress[learnerID] = p
	}
	list := &p.CompletedLessons
	if kind == domain.CompletionChallenge {
		list = &p.CompletedChallenges
	}
	for _, id := range *list {
		if id == itemID {
			return false, nil
		}
	}
	*list = append(*list, itemID)
	p.UpdatedAt = at
	return true, nil
}

// GetProgress returns a copy of the learner's progress.
func (r *MemoryRepository) GetProgress(ctx context.Context, learnerID string) (*domain.Progress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := &domain.Progress{LearnerID: learnerID, CompletedLessons: []string{}, CompletedChallenges: []string{}}
	if p, ok := r.progress[learnerID]; ok {
		out.CompletedLessons = append(out.CompletedLessons, p.CompletedLessons...)
		out.CompletedChallenges = append(out.CompletedChallenges, p.CompletedChallenges...)
		out.UpdatedAt = p.UpdatedAt
	}
	return out, nil
}

// Ping always succeeds.
func (r *MemoryRepository) Ping(ctx context.Context) error { return nil }
