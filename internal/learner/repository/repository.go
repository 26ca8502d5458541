package repository

import (
	"context"
	"time"

	"jsacademy/backend/internal/learner/domain"
)

// Repository defines persistence for learners and their completions.
type Repository interface {
	// GetByID returns the learner for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Learner, error)
	Create(ctx context.Context, l *domain.Learner) error
	// AddCompletion records itemID as completed. It reports false when it was already recorded.
	AddCompletion(ctx context.Context, learnerID string, kind domain.CompletionKind, itemID string, at time.Time) (added bool, err error)
	// GetProgress returns the learner's completions; empty (not nil) when there are none.
	GetProgress(ctx context.Context, learnerID string) (*domain.Progress, error)
	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
