// Package threads maps (user, persona) pairs to durable thread ids and
// tracks each user's active thread.
package threads

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"persona-chatter/internal/persona"
	"persona-chatter/internal/storage"
)

const activeNamespace = "active"

func userNamespace(userID string) string {
	return "threads/" + userID
}

// Mapping is one persona → thread entry of a user's directory.
type Mapping struct {
	Persona  string
	ThreadID string
}

type Option func(*Directory)

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(gen func() string) Option {
	return func(d *Directory) { d.newID = gen }
}

func WithLogger(l *zap.Logger) Option {
	return func(d *Directory) { d.logger = l }
}

// Directory is safe for concurrent use. Mappings never change once stored,
// so they are cached; the active pointer is always read from the store.
type Directory struct {
	kv     storage.KV
	logger *zap.Logger
	newID  func() string
	group  singleflight.Group

	mu    sync.RWMutex
	cache map[string]map[string]string
}

func NewDirectory(kv storage.KV, opts ...Option) *Directory {
	d := &Directory{
		kv:     kv,
		logger: zap.NewNop(),
		newID:  uuid.NewString,
		cache:  map[string]map[string]string{},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ResolveThread returns the thread of (userID, persona), creating it on
// first use. Racing callers converge on the stored id.
func (d *Directory) ResolveThread(ctx context.Context, userID, personaName string) (string, error) {
	name := persona.Normalize(personaName)
	if name == "" {
		name = persona.BaseName
	}
	if id, ok := d.cached(userID, name); ok {
		return id, nil
	}
	v, err, _ := d.group.Do(userID+"\x00"+name, func() (interface{}, error) {
		ns := userNamespace(userID)
		raw, err := d.kv.Get(ctx, ns, name)
		if err == nil {
			return string(raw), nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("failed to read thread mapping: %w", err)
		}
		stored, created, err := d.kv.PutIfAbsent(ctx, ns, name, []byte(d.newID()))
		if err != nil {
			return "", fmt.Errorf("failed to store thread mapping: %w", err)
		}
		if created {
			d.logger.Info("🧵 New thread", zap.String("user_id", userID), zap.String("persona", name), zap.String("thread_id", string(stored)))
		}
		return string(stored), nil
	})
	if err != nil {
		return "", err
	}
	id := v.(string)
	d.remember(userID, name, id)
	return id, nil
}

func (d *Directory) SetActive(ctx context.Context, userID, threadID string) error {
	if err := d.kv.Put(ctx, activeNamespace, userID, []byte(threadID)); err != nil {
		return fmt.Errorf("failed to set active thread: %w", err)
	}
	return nil
}

// GetActive returns the active thread id of a user, if any.
func (d *Directory) GetActive(ctx context.Context, userID string) (string, bool, error) {
	raw, err := d.kv.Get(ctx, activeNamespace, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get active thread: %w", err)
	}
	return string(raw), true, nil
}

// PersonaForThread finds the persona owning threadID in the user's directory.
func (d *Directory) PersonaForThread(ctx context.Context, userID, threadID string) (string, bool, error) {
	mappings, err := d.Threads(ctx, userID)
	if err != nil {
		return "", false, err
	}
	for _, m := range mappings {
		if m.ThreadID == threadID {
			return m.Persona, true, nil
		}
	}
	return "", false, nil
}

// Threads returns the user's directory in creation order.
func (d *Directory) Threads(ctx context.Context, userID string) ([]Mapping, error) {
	entries, err := d.kv.List(ctx, userNamespace(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	out := make([]Mapping, 0, len(entries))
	for _, e := range entries {
		out = append(out, Mapping{Persona: e.Key, ThreadID: string(e.Value)})
		d.remember(userID, e.Key, string(e.Value))
	}
	return out, nil
}

// Refresh reloads a user's cached mappings from the store.
func (d *Directory) Refresh(ctx context.Context, userID string) error {
	d.mu.Lock()
	delete(d.cache, userID)
	d.mu.Unlock()
	_, err := d.Threads(ctx, userID)
	return err
}

func (d *Directory) cached(userID, name string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.cache[userID][name]
	return id, ok
}

func (d *Directory) remember(userID, name, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.cache[userID]
	if !ok {
		m = map[string]string{}
		d.cache[userID] = m
	}
	m[name] = id
}
