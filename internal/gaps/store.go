package gaps

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNotFound is returned by Load when the session has no stored gaps.
	ErrNotFound = errors.New("gaps not found")
	// ErrSessionLocked is returned by Lock when another loop owns the session.
	ErrSessionLocked = errors.New("session is locked")
)

// Unlock releases a session lock.
type Unlock func(ctx context.Context) error

// Store persists the gap set of interview sessions.
type Store interface {
	Load(ctx context.Context, sessionID string) (Set, error)
	Save(ctx context.Context, sessionID string, set Set) error
	Delete(ctx context.Context, sessionID string) error
	// Lock gives the caller exclusive ownership of the session.
	Lock(ctx context.Context, sessionID string) (Unlock, error)
}

// MemoryStore keeps gap sets in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	sets   map[string]Set
	locked map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sets:   make(map[string]Set),
		locked: make(map[string]struct{}),
	}
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) (Set, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[sessionID]
	if !ok {
		return Set{}, ErrNotFound
	}
	return set, nil
}

func (m *MemoryStore) Save(_ context.Context, sessionID string, set Set) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[sessionID] = set
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sets, sessionID)
	return nil
}

func (m *MemoryStore) Lock(_ context.Context, sessionID string) (Unlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, held := m.locked[sessionID]; held {
		return nil, ErrSessionLocked
	}
	m.locked[sessionID] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.locked, sessionID)
		})
		return nil
	}, nil
}
