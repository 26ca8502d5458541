package repository

import (
	"context"

	"jsacademy/backend/internal/activity/domain"
)

// Repository defines persistence for activity events.
type Repository interface {
	Create(ctx context.Context, e *domain.Event) error
	// ListByLearner returns the learner's events, newest first, paginated by limit and offset.
	ListByLearner(ctx context.Context, learnerID string, limit, offset int) ([]*domain.Event, error)
}
