package memory_test

import (
	"context"
	"testing"

	"github.com/kairoslabs/agentcore/pkg/memory"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder maps known phrases to fixed 2D vectors so similarity
// ordering is deterministic without a real embedding model.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0}, nil
}

func TestVectorKvStore_SearchRanksByCosineSimilarity(t *testing.T) {
	base := memory.NewMemoryKvStore()
	embedder := fakeEmbedder{vectors: map[string][]float32{
		"cats are great":    {1, 0},
		"dogs are great":    {0, 1},
		"cats are the best": {1, 0},
	}}
	store := memory.NewVectorKvStore(base, embedder)
	ctx := t.Context()
	ns := []string{"agent", "memories"}

	require.NoError(t, store.Put(ctx, ns, "cats1", "cats are great", nil))
	require.NoError(t, store.Put(ctx, ns, "dogs1", "dogs are great", nil))
	require.NoError(t, store.Put(ctx, ns, "cats2", "cats are the best", nil))

	results, err := store.Search(ctx, ns, "cats are great", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		require.Contains(t, []string{"cats1", "cats2"}, r.Key)
	}
}

func TestVectorKvStore_WithoutEmbedderFallsBackToKeywordSearch(t *testing.T) {
	base := memory.NewMemoryKvStore()
	store := memory.NewVectorKvStore(base, nil)
	ctx := t.Context()
	ns := []string{"agent", "memories"}

	require.NoError(t, store.Put(ctx, ns, "k", "some remembered fact", nil))

	results, err := store.Search(ctx, ns, "remembered", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "k", results[0].Key)
}

func TestVectorKvStore_DeleteRemovesFromBothBaseAndIndex(t *testing.T) {
	base := memory.NewMemoryKvStore()
	embedder := fakeEmbedder{vectors: map[string][]float32{"x": {1, 0}}}
	store := memory.NewVectorKvStore(base, embedder)
	ctx := t.Context()
	ns := []string{"agent", "memories"}

	require.NoError(t, store.Put(ctx, ns, "k", "x", nil))
	require.NoError(t, store.Delete(ctx, ns, "k"))

	_, err := base.Get(ctx, ns, "k")
	require.ErrorIs(t, err, memory.ErrNotFound)
}
