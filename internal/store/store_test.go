package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

// backends returns a fresh instance of every Store implementation.
func backends(t *testing.T) map[string]Store {
	t.Helper()

	bolt, err := NewBoltStore(filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)

	sqlite, err := NewSQLiteStore(context.Background(), ":memory:")
	require.NoError(t, err)

	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"bolt":   bolt,
		"sqlite": sqlite,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStore_CreateRead(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			in := record{ID: "abc", State: "up"}
			require.NoError(t, s.Create(ctx, Checks, "abc", in))

			var out record
			require.NoError(t, s.Read(ctx, Checks, "abc", &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestStore_CreateExisting(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Create(ctx, Users, "01700000001", record{ID: "a"}))
			err := s.Create(ctx, Users, "01700000001", record{ID: "b"})
			assert.ErrorIs(t, err, ErrExists)

			var out record
			require.NoError(t, s.Read(ctx, Users, "01700000001", &out))
			assert.Equal(t, "a", out.ID, "original record must survive")
		})
	}
}

func TestStore_Missing(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var out record
			assert.ErrorIs(t, s.Read(ctx, Tokens, "nope", &out), ErrNotFound)
			assert.ErrorIs(t, s.Update(ctx, Tokens, "nope", record{}), ErrNotFound)
			assert.ErrorIs(t, s.Delete(ctx, Tokens, "nope"), ErrNotFound)
		})
	}
}

func TestStore_UpdateDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Create(ctx, Checks, "k", record{ID: "k", State: "down"}))
			require.NoError(t, s.Update(ctx, Checks, "k", record{ID: "k", State: "up"}))

			var out record
			require.NoError(t, s.Read(ctx, Checks, "k", &out))
			assert.Equal(t, "up", out.State)

			require.NoError(t, s.Delete(ctx, Checks, "k"))
			assert.ErrorIs(t, s.Read(ctx, Checks, "k", &out), ErrNotFound)
		})
	}
}

func TestStore_ListSorted(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			keys, err := s.List(ctx, Checks)
			require.NoError(t, err)
			assert.Empty(t, keys)

			for _, k := range []string{"c", "a", "b"} {
				require.NoError(t, s.Create(ctx, Checks, k, record{ID: k}))
			}
			// other collections do not leak into the listing
			require.NoError(t, s.Create(ctx, Users, "z", record{}))

			keys, err = s.List(ctx, Checks)
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b", "c"}, keys)
		})
	}
}

func TestStore_UnknownCollection(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, s.Create(ctx, "widgets", "k", record{}), ErrUnknownCollection)
			_, err := s.List(ctx, "widgets")
			assert.ErrorIs(t, err, ErrUnknownCollection)
		})
	}
}

func TestStore_MalformedRecord(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Put(Checks, "bad", []byte("{not json"))

	raw, err := s.ReadRaw(ctx, Checks, "bad")
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(raw))

	var out record
	err = s.Read(ctx, Checks, "bad", &out)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestBoltStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "records.db")

	s, err := NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, Tokens, "t1", record{ID: "t1"}))
	require.NoError(t, s.Close())

	s, err = NewBoltStore(path)
	require.NoError(t, err)
	defer s.Close()

	var out record
	require.NoError(t, s.Read(ctx, Tokens, "t1", &out))
	assert.Equal(t, "t1", out.ID)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Create(ctx, Checks, "shared", record{ID: "shared"}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Update(ctx, Checks, "shared", record{ID: "shared", State: "up"})
		}()
		go func() {
			defer wg.Done()
			var out record
			_ = s.Read(ctx, Checks, "shared", &out)
			_, _ = s.List(ctx, Checks)
		}()
	}
	wg.Wait()

	var out record
	require.NoError(t, s.Read(ctx, Checks, "shared", &out))
	assert.Equal(t, "up", out.State)
}

func TestMemoryStore_ReadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Create(ctx, Checks, "k", record{ID: "k"}))

	raw, err := s.ReadRaw(ctx, Checks, "k")
	require.NoError(t, err)
	raw[0] = 'X'

	var out record
	require.NoError(t, s.Read(ctx, Checks, "k", &out))
	assert.Equal(t, "k", out.ID)
}
