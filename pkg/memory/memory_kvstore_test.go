package memory_test

import (
	"testing"

	"github.com/kairoslabs/agentcore/pkg/memory"
	"github.com/stretchr/testify/require"
)

func TestMemoryKvStore_PutGetDeleteRoundTrip(t *testing.T) {
	store := memory.NewMemoryKvStore()
	ctx := t.Context()

	require.NoError(t, store.Put(ctx, []string{"agent", "memories"}, "name", "hector", nil))

	item, err := store.Get(ctx, []string{"agent", "memories"}, "name")
	require.NoError(t, err)
	require.Equal(t, "hector", item.Value)

	require.NoError(t, store.Delete(ctx, []string{"agent", "memories"}, "name"))
	_, err = store.Get(ctx, []string{"agent", "memories"}, "name")
	require.ErrorIs(t, err, memory.ErrNotFound)
}

func TestMemoryKvStore_NamespacesAreIsolated(t *testing.T) {
	store := memory.NewMemoryKvStore()
	ctx := t.Context()

	require.NoError(t, store.Put(ctx, []string{"a"}, "k", "v1", nil))
	require.NoError(t, store.Put(ctx, []string{"b"}, "k", "v2", nil))

	_, err := store.Get(ctx, []string{"a", "extra"}, "k")
	require.ErrorIs(t, err, memory.ErrNotFound)

	item, err := store.Get(ctx, []string{"a"}, "k")
	require.NoError(t, err)
	require.Equal(t, "v1", item.Value)
}

func TestMemoryKvStore_ListNamespacesHonorsPrefix(t *testing.T) {
	store := memory.NewMemoryKvStore()
	ctx := t.Context()

	require.NoError(t, store.Put(ctx, []string{"agent1", "memories"}, "k", "v", nil))
	require.NoError(t, store.Put(ctx, []string{"agent2", "memories"}, "k", "v", nil))

	all, err := store.ListNamespaces(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	scoped, err := store.ListNamespaces(ctx, []string{"agent1"})
	require.NoError(t, err)
	require.Equal(t, [][]string{{"agent1", "memories"}}, scoped)
}

func TestMemoryKvStore_SearchRanksFullMatchesFirst(t *testing.T) {
	store := memory.NewMemoryKvStore()
	ctx := t.Context()
	ns := []string{"agent", "memories"}

	require.NoError(t, store.Put(ctx, ns, "a", "the user likes blue and green", nil))
	require.NoError(t, store.Put(ctx, ns, "b", "the user likes blue", nil))
	require.NoError(t, store.Put(ctx, ns, "c", "completely unrelated fact", nil))

	results, err := store.Search(ctx, ns, "blue green", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "a", results[0].Key)
	require.Equal(t, "b", results[1].Key)
}

func TestMemoryKvStore_SearchBreaksTiesByImportanceThenRecency(t *testing.T) {
	store := memory.NewMemoryKvStore()
	ctx := t.Context()
	ns := []string{"agent", "memories"}

	low := 1.0
	high := 5.0
	require.NoError(t, store.Put(ctx, ns, "low", "shared token", &low))
	require.NoError(t, store.Put(ctx, ns, "high", "shared token", &high))

	results, err := store.Search(ctx, ns, "token", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "high", results[0].Key)
	require.Equal(t, "low", results[1].Key)
}
