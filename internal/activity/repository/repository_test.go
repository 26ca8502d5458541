package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsacademy/backend/internal/activity/domain"
)

var (
	_ Repository = (*MemoryRepository)(nil)
	_ Repository = (*PostgresRepository)(nil)
)

func TestMemoryRepository_BoundedAndOrdered(t *testing.T) {
	repo := NewMemoryRepository(3)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, repo.Create(ctx, &domain.Event{ID: id, LearnerID: "l1"}))
	}
	got, err := repo.ListByLearner(ctx, "l1", 10, 0)
	require.NoError(t, err)
	ids := make([]string, len(got))
	for i, e := range got {
		ids[i] = e.ID
	}
	assert.Equal(t, []string{"d", "c", "b"}, ids)
}

func newMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(sqlx.NewDb(db, "pgx")), mock
}

func TestPostgresRepository_Create(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO activity_events").
		WithArgs("e1", "l1", "lesson_completed", "lesson:js-1", "10.0.0.1", nil, at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &domain.Event{
		ID: "e1", LearnerID: "l1", Action: "lesson_completed", Resource: "lesson:js-1", IP: "10.0.0.1", CreatedAt: at,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListByLearner(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "learner_id", "action", "resource", "ip", "metadata", "created_at"}).
		AddRow("e2", "l1", "challenge_passed", "arrays-1", "10.0.0.1", `{"passed":true}`, at.Add(time.Minute)).
		AddRow("e1", "l1", "lesson_completed", "lesson:js-1", "10.0.0.1", nil, at)
	mock.ExpectQuery("SELECT id, learner_id, action, resource, ip, metadata, created_at FROM activity_events").
		WithArgs("l1", 2, 0).
		WillReturnRows(rows)

	got, err := repo.ListByLearner(context.Background(), "l1", 2, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, `{"passed":true}`, got[0].Metadata)
	assert.Equal(t, "", got[1].Metadata)
	assert.NoError(t, mock.ExpectationsWereMet())
}
