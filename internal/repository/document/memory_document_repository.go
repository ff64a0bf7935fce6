package document

import (
	"context"
	"sync"
)

// MemoryRepository keeps documents in process memory. It backs tests and
// DOCSTORE_DRIVER=memory.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[string][]byte

	// injected failures, see SetFailures
	getErr error
	setErr error

	writes int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: make(map[string][]byte)}
}

func (r *MemoryRepository) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	v, ok := r.docs[key]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (r *MemoryRepository) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setErr != nil {
		return r.setErr
	}
	v := make([]byte, len(value))
	copy(v, value)
	r.docs[key] = v
	r.writes++
	return nil
}

// Writes returns how many successful Set calls were made.
func (r *MemoryRepository) Writes() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.writes
}

// SetFailures swaps the injected errors under the lock.
func (r *MemoryRepository) SetFailures(getErr, setErr error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getErr = getErr
	r.setErr = setErr
}

func (r *MemoryRepository) Close() error { return nil }
