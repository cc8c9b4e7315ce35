package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// FileStore persists consent records as JSON lines in a local file.
// Thread-safe for concurrent use. Suited to single-instance deployments;
// multi-instance setups should use the PostgreSQL store.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a FileStore that appends to the given path.
// The file is created if it does not exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save appends rec to the file.
func (fs *FileStore) Save(_ context.Context, rec Record) error {
	return fs.append(rec)
}

// Log appends ev to the file.
func (fs *FileStore) Log(_ context.Context, ev Event) error {
	return fs.append(ev)
}

func (fs *FileStore) append(v any) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("audit: marshal: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(fs.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("audit: open file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("audit: write: %w", err)
	}
	return nil
}

// Close implements Store. The file is opened per write, so there is nothing
// to release.
func (fs *FileStore) Close() error { return nil }
