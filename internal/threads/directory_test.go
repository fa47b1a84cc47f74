package threads

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"persona-chatter/internal/storage"
)

func seqIDs() func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("t%d", n.Add(1)) }
}

func TestResolveThreadStable(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory(storage.NewMemoryStore(), WithIDGenerator(seqIDs()))

	a, err := d.ResolveThread(ctx, "u1", "mentor")
	require.NoError(t, err)
	b, err := d.ResolveThread(ctx, "u1", "MENTOR")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := d.ResolveThread(ctx, "u1", "investor")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestResolveThreadIsolatesUsers(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory(storage.NewMemoryStore())

	a, err := d.ResolveThread(ctx, "u1", "mentor")
	require.NoError(t, err)
	b, err := d.ResolveThread(ctx, "u2", "mentor")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestResolveThreadEmptyPersonaIsBase(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory(storage.NewMemoryStore())

	a, err := d.ResolveThread(ctx, "u1", "")
	require.NoError(t, err)
	b, err := d.ResolveThread(ctx, "u1", "base")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestResolveThreadConcurrent(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	// Two directories over one store model two processes.
	dirs := []*Directory{NewDirectory(store), NewDirectory(store)}

	var wg sync.WaitGroup
	ids := make([]string, 32)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := dirs[i%2].ResolveThread(ctx, "u1", "pirate")
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	mappings, err := dirs[0].Threads(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mappings, 1)
}

func TestActivePointer(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory(storage.NewMemoryStore())

	_, ok, err := d.GetActive(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.SetActive(ctx, "u1", "t9"))
	id, ok, err := d.GetActive(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "t9", id)
}

func TestPersonaForThreadAndOrder(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory(storage.NewMemoryStore(), WithIDGenerator(seqIDs()))

	for _, p := range []string{"base", "mentor", "investor"} {
		_, err := d.ResolveThread(ctx, "u1", p)
		require.NoError(t, err)
	}

	mappings, err := d.Threads(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []Mapping{{"base", "t1"}, {"mentor", "t2"}, {"investor", "t3"}}, mappings)

	name, ok, err := d.PersonaForThread(ctx, "u1", "t2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "mentor", name)

	_, ok, err = d.PersonaForThread(ctx, "u2", "t2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDirectorySurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chat.db")

	store, err := storage.NewSQLiteStore(path)
	require.NoError(t, err)
	d := NewDirectory(store)
	id, err := d.ResolveThread(ctx, "u1", "mentor")
	require.NoError(t, err)
	require.NoError(t, d.SetActive(ctx, "u1", id))
	require.NoError(t, store.Close())

	store, err = storage.NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()
	d = NewDirectory(store)

	again, err := d.ResolveThread(ctx, "u1", "mentor")
	require.NoError(t, err)
	assert.Equal(t, id, again)
	active, ok, err := d.GetActive(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, active)
}

func TestRefreshPicksUpStoreWrites(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	d := NewDirectory(store)

	require.NoError(t, store.Put(ctx, userNamespace("u1"), "chef", []byte("x1")))
	require.NoError(t, d.Refresh(ctx, "u1"))
	id, ok := d.cached("u1", "chef")
	assert.True(t, ok)
	assert.Equal(t, "x1", id)
}
