package storage

import (
	"context"
	"sync"
	"time"
)

type namespace struct {
	order  []string
	values map[string][]byte
}

// MemoryStore is a process-local Store. Nothing survives a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	spaces   map[string]*namespace
	messages map[string][]Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		spaces:   make(map[string]*namespace),
		messages: make(map[string][]Message),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Get(_ context.Context, ns, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	space, ok := m.spaces[ns]
	if !ok {
		return nil, ErrNotFound
	}
	v, ok := space.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(v), nil
}

func (m *MemoryStore) Put(_ context.Context, ns, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putUnlocked(ns, key, value)
	return nil
}

func (m *MemoryStore) PutIfAbsent(_ context.Context, ns, key string, value []byte) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if space, ok := m.spaces[ns]; ok {
		if v, ok := space.values[key]; ok {
			return clone(v), false, nil
		}
	}
	m.putUnlocked(ns, key, value)
	return clone(value), true, nil
}

func (m *MemoryStore) putUnlocked(ns, key string, value []byte) {
	space, ok := m.spaces[ns]
	if !ok {
		space = &namespace{values: make(map[string][]byte)}
		m.spaces[ns] = space
	}
	if _, exists := space.values[key]; !exists {
		space.order = append(space.order, key)
	}
	space.values[key] = clone(value)
}

func (m *MemoryStore) List(_ context.Context, ns string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	space, ok := m.spaces[ns]
	if !ok {
		return nil, nil
	}
	out := make([]Entry, 0, len(space.order))
	for _, k := range space.order {
		out = append(out, Entry{Key: k, Value: clone(space.values[k])})
	}
	return out, nil
}

func (m *MemoryStore) Append(_ context.Context, threadID string, msgs ...Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range msgs {
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now().UTC()
		}
		m.messages[threadID] = append(m.messages[threadID], msg)
	}
	return nil
}

func (m *MemoryStore) Read(_ context.Context, threadID string) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.messages[threadID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
