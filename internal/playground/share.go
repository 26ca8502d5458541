package playground

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Snippet is a shared playground project.
type Snippet struct {
	ID        string          `json:"id"`
	Language  string          `json:"language,omitempty"`
	Code      string          `json:"code,omitempty"`
	Files     map[string]File `json:"files,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// ShareStore keeps shared snippets until they expire.
type ShareStore interface {
	// Put stores s under id until expiresAt.
	Put(ctx context.Context, id string, s *Snippet, expiresAt time.Time) error
	// Get returns the snippet for id if present and not expired. ok is false if missing or expired.
	Get(ctx context.Context, id string) (s *Snippet, ok bool, err error)
}

type entry struct {
	snippet   *Snippet
	expiresAt time.Time
}

// prunePuts is how many Puts pass between sweeps of expired entries, so the store stays bounded
// when no scheduler calls Prune.
const prunePuts = 256

// MemoryShareStore is an in-memory ShareStore. Expired entries are dropped on Get, by Prune and
// every prunePuts stores.
type MemoryShareStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	puts int
	nowF func() time.Time
}

// NewMemoryShareStore returns an empty in-memory share store.
func NewMemoryShareStore() *MemoryShareStore {
	return &MemoryShareStore{
		m:    make(map[string]entry),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// Put stores s under id until expiresAt.
func (s *MemoryShareStore) Put(ctx context.Context, id string, snip *Snippet, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.puts%prunePuts == 0 {
		s.pruneLocked(s.nowF())
	}
	s.m[id] = entry{snippet: snip, expiresAt: expiresAt}
	return nil
}

// Get returns the snippet for id if present and not expired.
func (s *MemoryShareStore) Get(ctx context.Context, id string) (*Snippet, bool, error) {
	s.mu.RLock()
	e, ok := s.m[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.After(s.nowF()) {
		s.mu.Lock()
		delete(s.m, id)
		s.mu.Unlock()
		return nil, false, nil
	}
	return e.snippet, true, nil
}

// Prune removes expired entries and returns how many were removed. The scheduler calls it periodically.
func (s *MemoryShareStore) Prune() int {
	now := s.nowF()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneLocked(now)
}

func (s *MemoryShareStore) pruneLocked(now time.Time) int {
	n := 0
	for id, e := range s.m {
		if !e.expiresAt.After(now) {
			delete(s.m, id)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired ones included until pruned.
func (s *MemoryShareStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

const redisSharePrefix = "jsacademy:share:"

// RedisShareStore keeps snippets in Redis with the key TTL set to the snippet expiry.
type RedisShareStore struct {
	client *redis.Client
}

// NewRedisShareStore returns a share store backed by client.
func NewRedisShareStore(client *redis.Client) *RedisShareStore {
	return &RedisShareStore{client: client}
}

// Put stores s under id until expiresAt. Already expired snippets are not stored.
func (s *RedisShareStore) Put(ctx context.Context, id string, snip *Snippet, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	b, err := json.Marshal(snip)
	if err != nil {
		return fmt.Errorf("playground: encode snippet: %w", err)
	}
	return s.client.Set(ctx, redisSharePrefix+id, b, ttl).Err()
}

// Get returns the snippet for id; Redis drops it at expiry.
func (s *RedisShareStore) Get(ctx context.Context, id string) (*Snippet, bool, error) {
	b, err := s.client.Get(ctx, redisSharePrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var snip Snippet
	if err := json.Unmarshal(b, &snip); err != nil {
		return nil, false, fmt.Errorf("playground: decode snippet %s: %w", id, err)
	}
	return &snip, true, nil
}
