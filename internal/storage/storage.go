package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by KV.Get when the key is absent.
var ErrNotFound = errors.New("storage: not found")

// Roles stored in the message log.
const (
	RoleHuman = "human"
	RoleAI    = "ai"
	RoleTool  = "tool"
)

// Entry is a single key/value pair of a namespace.
type Entry struct {
	Key   string
	Value []byte
}

// KV is a namespaced key-value store.
// List returns entries in insertion order; updating a key keeps its position.
// PutIfAbsent is atomic: when the key already exists the stored value is
// returned untouched and created is false.
// Implementations must be safe for concurrent use.
type KV interface {
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Put(ctx context.Context, namespace, key string, value []byte) error
	PutIfAbsent(ctx context.Context, namespace, key string, value []byte) (stored []byte, created bool, err error)
	List(ctx context.Context, namespace string) ([]Entry, error)
}

// Message is one record of a thread's append-only log.
// Name carries the tool name for RoleTool records.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageLog is an append-only per-thread message log.
// Read returns messages in append order and an empty slice for unknown threads.
type MessageLog interface {
	Append(ctx context.Context, threadID string, msgs ...Message) error
	Read(ctx context.Context, threadID string) ([]Message, error)
}

// Store bundles both persistence capabilities behind one handle.
type Store interface {
	KV
	MessageLog
	Close() error
}
