package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"jsacademy/backend/internal/activity/domain"
)

// PostgresRepository persists activity events in the activity_events table.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns an activity repository that uses the given db for persistence.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type eventRow struct {
	ID        string         `db:"id"`
	LearnerID string         `db:"learner_id"`
	Action    string         `db:"action"`
	Resource  string         `db:"resource"`
	IP        string         `db:"ip"`
	Metadata  sql.NullString `db:"metadata"`
	CreatedAt time.Time      `db:"created_at"`
}

// Create persists the event. The event must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.Event) error {
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO activity_events (id, learner_id, action, resource, ip, metadata, created_at)
		 VALUES (:id, :learner_id, :action, :resource, :ip, :metadata, :created_at)`,
		eventRow{
			ID: e.ID, LearnerID: e.LearnerID, Action: e.Action, Resource: e.Resource, IP: e.IP,
			Metadata:  sql.NullString{String: e.Metadata, Valid: e.Metadata != ""},
			CreatedAt: e.CreatedAt,
		})
	return err
}

// ListByLearner returns events for the learner, newest first.
// Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListByLearner(ctx context.Context, learnerID string, limit, offset int) ([]*domain.Event, error) {
	var rows []eventRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, learner_id, action, resource, ip, metadata, created_at FROM activity_events
		 WHERE learner_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
		learnerID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Event, len(rows))
	for i, row := range rows {
		out[i] = &domain.Event{
			ID: row.ID, LearnerID: row.LearnerID, Action: row.Action, Resource: row.Resource,
			IP: row.IP, Metadata: row.Metadata.String, CreatedAt: row.CreatedAt,
		}
	}
	return out, nil
}
