package ledger

import (
	"bytes"
	"context"
	"errors"
	"sync"
)

// ErrNoSnapshot is returned by a Persister that holds no document yet.
var ErrNoSnapshot = errors.New("no persisted snapshot")

// Persister stores the single serialized ledger document.
type Persister interface {
	// Load returns the stored document or ErrNoSnapshot.
	Load(ctx context.Context) ([]byte, error)
	// Save replaces the stored document.
	Save(ctx context.Context, data []byte) error
}

// MemoryPersister keeps the document in process memory.
type MemoryPersister struct {
	mu   sync.RWMutex
	data []byte
	hook func(data []byte) error
}

// NewMemoryPersister returns an empty in-memory persister.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{}
}

// OnSave installs a hook run before every save; a non-nil error aborts it.
func (p *MemoryPersister) OnSave(hook func(data []byte) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hook = hook
}

func (p *MemoryPersister) Load(_ context.Context) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.data == nil {
		return nil, ErrNoSnapshot
	}
	return bytes.Clone(p.data), nil
}

func (p *MemoryPersister) Save(_ context.Context, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hook != nil {
		if err := p.hook(data); err != nil {
			return err
		}
	}
	p.data = bytes.Clone(data)
	return nil
}

var _ Persister = (*MemoryPersister)(nil)
