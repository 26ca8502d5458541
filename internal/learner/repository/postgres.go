package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"jsacademy/backend/internal/learner/domain"
)

// PostgresRepository persists learners in the learners and learner_completions tables.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns a learner repository that uses the given db for persistence.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type learnerRow struct {
	ID           string    `db:"id"`
	DisplayName  string    `db:"display_name"`
	RecoveryHash string    `db:"recovery_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

type completionRow struct {
	Kind        string    `db:"kind"`
	ItemID      string    `db:"item_id"`
	CompletedAt time.Time `db:"completed_at"`
}

// GetByID returns the learner for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Learner, error) {
	var row learnerRow
	err := r.db.GetContext(ctx, &row, `SELECT id, display_name, recovery_hash, created_at FROM learners WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &domain.Learner{ID: row.ID, DisplayName: row.DisplayName, RecoveryHash: row.RecoveryHash, CreatedAt: row.CreatedAt}, nil
}

// Create persists the learner. The learner must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, l *domain.Learner) error {
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO learners (id, display_name, recovery_hash, created_at) VALUES (:id, :display_name, :recovery_hash, :created_at)`,
		learnerRow{ID: l.ID, DisplayName: l.DisplayName, RecoveryHash: l.RecoveryHash, CreatedAt: l.CreatedAt})
	return err
}

// AddCompletion inserts the completion; an existing row leaves the table unchanged and reports false.
func (r *PostgresRepository) AddCompletion(ctx context.Context, learnerID string, kind domain.CompletionKind, itemID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO learner_completions (learner_id, kind, item_id, completed_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (learner_id, kind, item_id) DO NOTHING`,
		learnerID, string(kind), itemID, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetProgress returns completions in completion order.
func (r *PostgresRepository) GetProgress(ctx context.Context, learnerID string) (*domain.Progress, error) {
	var rows []completionRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT kind, item_id, completed_at FROM learner_completions WHERE learner_id = $1 ORDER BY completed_at, item_id`, learnerID)
	if err != nil {
		return nil, err
	}
	p := &domain.Progress{LearnerID: learnerID, CompletedLessons: []string{}, CompletedChallenges: []string{}}
	for _, c := range rows {
		switch domain.CompletionKind(c.Kind) {
		case domain.CompletionLesson:
			p.CompletedLessons = append(p.CompletedLessons, c.ItemID)
		case domain.CompletionChallenge:
			p.CompletedChallenges = append(p.CompletedChallenges, c.ItemID)
		}
		if c.CompletedAt.After(p.UpdatedAt) {
			p.UpdatedAt = c.CompletedAt
		}
	}
	return p, nil
}

// Ping checks the database connection.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
