package session

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// defaultTTL is how long an untouched session survives before the sweeper
	// may remove it.
	defaultTTL = 24 * time.Hour

	// defaultMaxSessions caps the number of resident sessions; beyond it the
	// least recently used session is evicted on insert.
	defaultMaxSessions = 10_000
)

// MemoryStore is an in-process [Store] with TTL expiry and an LRU cap.
// Safe for concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memoryEntry
	lru      *list.List // front = most recently used

	ttl     time.Duration
	max     int
	now     func() time.Time
	onEvict func(id string)
}

type memoryEntry struct {
	state      *State
	lastAccess time.Time
	elem       *list.Element
}

// MemoryOption configures a [MemoryStore].
type MemoryOption func(*MemoryStore)

// WithTTL sets the idle lifetime after which a session becomes eligible for
// eviction. Zero or negative disables TTL expiry.
func WithTTL(d time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.ttl = d }
}

// WithMaxSessions caps the number of resident sessions. Zero or negative
// removes the cap.
func WithMaxSessions(n int) MemoryOption {
	return func(s *MemoryStore) { s.max = n }
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// WithEvictionHook registers a callback invoked for every evicted session id.
// The callback runs under the store lock and must not call back into the store.
func WithEvictionHook(fn func(id string)) MemoryOption {
	return func(s *MemoryStore) { s.onEvict = fn }
}

// NewMemoryStore returns a [MemoryStore] with a 24h TTL and a 10 000 session
// cap unless overridden by options.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*memoryEntry),
		lru:      list.New(),
		ttl:      defaultTTL,
		max:      defaultMaxSessions,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get implements [Store].
func (s *MemoryStore) Get(_ context.Context, id string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touch(id).state.Clone(), nil
}

// Merge implements [Store].
func (s *MemoryStore) Merge(_ context.Context, id string, delta Delta) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.touch(id)
	delta.apply(e.state)
	return e.state.Clone(), nil
}

// Restart implements [Store].
func (s *MemoryStore) Restart(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil
	}
	lang := e.state.Language
	e.state = newState(id)
	e.state.Language = lang
	e.lastAccess = s.now()
	s.lru.MoveToFront(e.elem)
	return nil
}

// Len implements [Store].
func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions), nil
}

// Sweep removes every session idle for longer than the TTL and returns the
// number of sessions evicted.
func (s *MemoryStore) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	evicted := 0
	for elem := s.lru.Back(); elem != nil; {
		prev := elem.Prev()
		id := elem.Value.(string)
		if e := s.sessions[id]; e.lastAccess.Before(cutoff) {
			s.evict(id)
			evicted++
		} else {
			// LRU order means everything in front is younger.
			break
		}
		elem = prev
	}
	return evicted
}

// Run sweeps expired sessions at the given interval until ctx is cancelled.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Debug("session sweep", "evicted", n)
			}
		}
	}
}

// touch returns the entry for id, creating it if needed, bumping its recency,
// and evicting the LRU tail when the cap is exceeded. Caller holds s.mu.
func (s *MemoryStore) touch(id string) *memoryEntry {
	e, ok := s.sessions[id]
	if !ok {
		e = &memoryEntry{state: newState(id)}
		e.elem = s.lru.PushFront(id)
		s.sessions[id] = e
		for s.max > 0 && len(s.sessions) > s.max {
			tail := s.lru.Back()
			if tail == nil {
				break
			}
			s.evict(tail.Value.(string))
		}
	} else {
		s.lru.MoveToFront(e.elem)
	}
	e.lastAccess = s.now()
	return e
}

// evict removes id. Caller holds s.mu.
func (s *MemoryStore) evict(id string) {
	e, ok := s.sessions[id]
	if !ok {
		return
	}
	s.lru.Remove(e.elem)
	delete(s.sessions, id)
	if s.onEvict != nil {
		s.onEvict(id)
	}
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)
