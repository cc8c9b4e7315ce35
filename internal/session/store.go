package session

import "context"

// Store keeps session state keyed by session id.
//
// Implementations must be safe for concurrent use. Get never fails on an
// unknown id — sessions are created lazily — and both Get and Merge return
// snapshots the caller may keep without further synchronisation.
//
// Stores bound memory by evicting idle sessions (TTL and, for the in-memory
// implementation, an LRU cap). An evicted session is indistinguishable from an
// unknown one: the next Get starts it fresh.
type Store interface {
	// Get returns a snapshot of the state for id, creating a fresh session if
	// none exists.
	Get(ctx context.Context, id string) (*State, error)

	// Merge applies delta to the session and returns a snapshot of the merged
	// state. Turns in the delta are appended; scalar fields are overwritten
	// when present. The session is created first if it does not exist.
	Merge(ctx context.Context, id string, delta Delta) (*State, error)

	// Restart clears the session's turns, summary, pending text, and stage,
	// preserving its language. Restarting an unknown session is a no-op.
	Restart(ctx context.Context, id string) error

	// Len reports the number of sessions currently held.
	Len(ctx context.Context) (int, error)
}
