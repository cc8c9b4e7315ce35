package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces session keys in Redis.
const keyPrefix = "concento:session:"

// RedisStore is a [Store] backed by Redis. State is kept as one JSON value per
// session with a key TTL, so idle sessions expire server-side without a
// sweeper. Intended for deployments that run more than one process; note that
// single-writer-per-session is still enforced by the orchestrator, not here.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore returns a [RedisStore] using the given client. ttl <= 0
// defaults to 24h.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Get implements [Store].
func (s *RedisStore) Get(ctx context.Context, id string) (*State, error) {
	st, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = newState(id)
		if err := s.save(ctx, st); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// Merge implements [Store].
func (s *RedisStore) Merge(ctx context.Context, id string, delta Delta) (*State, error) {
	st, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = newState(id)
	}
	delta.apply(st)
	if err := s.save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Restart implements [Store].
func (s *RedisStore) Restart(ctx context.Context, id string) error {
	st, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if st == nil {
		return nil
	}
	lang := st.Language
	st = newState(id)
	st.Language = lang
	return s.save(ctx, st)
}

// Len implements [Store]. It counts keys under the session prefix via SCAN,
// so the result is approximate on a moving keyspace.
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	var (
		cursor uint64
		count  int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, keyPrefix+"*", 512).Result()
		if err != nil {
			return 0, fmt.Errorf("session: scan: %w", err)
		}
		count += len(keys)
		if next == 0 {
			return count, nil
		}
		cursor = next
	}
}

func (s *RedisStore) load(ctx context.Context, id string) (*State, error) {
	val, err := s.client.Get(ctx, keyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: get %q: %w", id, err)
	}
	st := &State{}
	if err := json.Unmarshal([]byte(val), st); err != nil {
		return nil, fmt.Errorf("session: decode %q: %w", id, err)
	}
	return st, nil
}

func (s *RedisStore) save(ctx context.Context, st *State) error {
	val, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("session: encode %q: %w", st.ID, err)
	}
	if err := s.client.Set(ctx, keyPrefix+st.ID, val, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: set %q: %w", st.ID, err)
	}
	return nil
}

// Compile-time interface check.
var _ Store = (*RedisStore)(nil)
