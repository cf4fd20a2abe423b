package checkpoint

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "checkpoints.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// TestSQLiteStore_SaveLoad tests the round trip through a real database file.
func TestSQLiteStore_SaveLoad(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	cp := New("t", "process", 3, []byte(`{"count":7}`))
	require.NoError(t, store.Save(ctx, cp))
	assert.Equal(t, uint64(1), cp.Sequence)

	loaded, err := store.Load(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, "t", loaded.ThreadID)
	assert.Equal(t, "process", loaded.Node)
	assert.Equal(t, 3, loaded.Step)
	assert.JSONEq(t, `{"count":7}`, string(loaded.State))
	assert.WithinDuration(t, time.Now().UTC(), loaded.CreatedAt, time.Minute)
}

// TestSQLiteStore_SequenceMonotonic tests per-thread sequence assignment.
func TestSQLiteStore_SequenceMonotonic(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	c1 := New("t", "a", 1, []byte(`{}`))
	c2 := New("t", "b", 2, []byte(`{}`))
	other := New("other", "a", 1, []byte(`{}`))
	require.NoError(t, store.Save(ctx, c1))
	require.NoError(t, store.Save(ctx, c2))
	require.NoError(t, store.Save(ctx, other))

	assert.Equal(t, uint64(1), c1.Sequence)
	assert.Equal(t, uint64(2), c2.Sequence)
	assert.Equal(t, uint64(1), other.Sequence) // threads number independently
}

// TestSQLiteStore_LoadMissing tests loading an unknown thread.
func TestSQLiteStore_LoadMissing(t *testing.T) {
	store := newTestSQLiteStore(t)

	_, err := store.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestSQLiteStore_List tests history listings.
func TestSQLiteStore_List(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	history, err := store.List(ctx, "t")
	require.NoError(t, err)
	assert.Empty(t, history)

	require.NoError(t, store.Save(ctx, New("t", "a", 1, []byte(`{}`))))
	require.NoError(t, store.Save(ctx, New("t", "b", 2, []byte(`{}`))))

	history, err = store.List(ctx, "t")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, uint64(1), history[0].Sequence)
	assert.Equal(t, uint64(2), history[1].Sequence)
	assert.False(t, history[0].CreatedAt.IsZero())
}

// TestSQLiteStore_Closed tests operations after Close.
func TestSQLiteStore_Closed(t *testing.T) {
	store := newTestSQLiteStore(t)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close()) // idempotent

	err := store.Save(context.Background(), New("t", "a", 1, []byte(`{}`)))
	assert.ErrorIs(t, err, ErrStoreClosed)

	_, err = store.Load(context.Background(), "t")
	assert.ErrorIs(t, err, ErrStoreClosed)
}

// TestSQLiteStore_Reopen tests that history survives process restarts.
func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoints.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, New("t", "a", 1, []byte(`{"v":1}`))))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	cp := New("t", "b", 2, []byte(`{"v":2}`))
	require.NoError(t, reopened.Save(ctx, cp))
	assert.Equal(t, uint64(2), cp.Sequence) // continues the old history

	loaded, err := reopened.Load(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, "b", loaded.Node)
}
