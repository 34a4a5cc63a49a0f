package memory_test

import (
	"path/filepath"
	"testing"

	"github.com/kairoslabs/agentcore/pkg/memory"
	"github.com/stretchr/testify/require"
)

func TestFileKvStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.json")
	ctx := t.Context()

	store, err := memory.NewFileKvStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, []string{"agent", "memories"}, "k", "v", nil))
	require.NoError(t, store.Close())

	reopened, err := memory.NewFileKvStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	item, err := reopened.Get(ctx, []string{"agent", "memories"}, "k")
	require.NoError(t, err)
	require.Equal(t, "v", item.Value)
}

func TestFileKvStore_DeleteRemovesEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.json")
	ctx := t.Context()

	store, err := memory.NewFileKvStore(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put(ctx, []string{"a"}, "k", "v", nil))
	require.NoError(t, store.Delete(ctx, []string{"a"}, "k"))

	_, err = store.Get(ctx, []string{"a"}, "k")
	require.ErrorIs(t, err, memory.ErrNotFound)
}

func TestFileKvStore_OpeningMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")

	store, err := memory.NewFileKvStore(path)
	require.NoError(t, err)
	defer store.Close()

	namespaces, err := store.ListNamespaces(t.Context(), nil)
	require.NoError(t, err)
	require.Empty(t, namespaces)
}
