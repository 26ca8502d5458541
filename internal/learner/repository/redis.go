package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"jsacademy/backend/internal/learner/domain"
)

const redisPrefix = "jsacademy:learner:"

// RedisRepository keeps learners in Redis: a hash per learner and one sorted set per completion kind,
// scored by completion time.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository returns a learner repository backed by client.
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func learnerKey(id string) string { return redisPrefix + id }

func completionKey(id string, kind domain.CompletionKind) string {
	return redisPrefix + id + ":" + string(kind)
}

// GetByID returns the learner for id, or nil if not found.
func (r *RedisRepository) GetByID(ctx context.Context, id string) (*domain.Learner, error) {
	vals, err := r.client.HGetAll(ctx, learnerKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}
	created, err := time.Parse(time.RFC3339Nano, vals["created_at"])
	if err != nil {
		return nil, fmt.Errorf("learner %s: created_at: %w", id, err)
	}
	return &domain.Learner{ID: id, DisplayName: vals["display_name"], RecoveryHash: vals["recovery_hash"], CreatedAt: created}, nil
}

// Create stores the learner; it fails if the ID is taken.
func (r *RedisRepository) Create(ctx context.Context, l *domain.Learner) error {
	key := learnerKey(l.ID)
	ok, err := r.client.HSetNX(ctx, key, "created_at", l.CreatedAt.UTC().Format(time.RFC3339Nano)).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("learner %s already exists", l.ID)
	}
	return r.client.HSet(ctx, key, "display_name", l.DisplayName, "recovery_hash", l.RecoveryHash).Err()
}

// AddCompletion adds itemID to the learner's sorted set; NX keeps the first completion time.
func (r *RedisRepository) AddCompletion(ctx context.Context, learnerID string, kind domain.CompletionKind, itemID string, at time.Time) (bool, error) {
	exists, err := r.client.Exists(ctx, learnerKey(learnerID)).Result()
	if err != nil {
		return false, err
	}
	if exists == 0 {
		return false, fmt.Errorf("learner %s does not exist", learnerID)
	}
	n, err := r.client.ZAddNX(ctx, completionKey(learnerID, kind), &redis.Z{Score: float64(at.UnixMilli()), Member: itemID}).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetProgress reads both completion sets in score order.
func (r *RedisRepository) GetProgress(ctx context.Context, learnerID string) (*domain.Progress, error) {
	p := &domain.Progress{LearnerID: learnerID, CompletedLessons: []string{}, CompletedChallenges: []string{}}
	for _, kind := range []domain.CompletionKind{domain.CompletionLesson, domain.CompletionChallenge} {
		zs, err := r.client.ZRangeWithScores(ctx, completionKey(learnerID, kind), 0, -1).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, err
		}
		for _, z := range zs {
			id, _ := z.Member.(string)
			if kind == domain.CompletionLesson {
				p.CompletedLessons = append(p.CompletedLessons, id)
			} else {
				p.CompletedChallenges = append(p.CompletedChallenges, id)
			}
			if at := time.UnixMilli(int64(z.Score)).UTC(); at.After(p.UpdatedAt) {
				p.UpdatedAt = at
			}
		}
	}
	return p, nil
}

// Ping checks the Redis connection.
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
