package memory

import (
	"context"
	"fmt"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// Embedder produces a vector embedding for a piece of text. Callers that
// want vector-ranked Search supply one; VectorKvStore uses the wrapped
// store's keyword search when it is nil. With an embedder, Search returns
// only items indexed through this store's Put.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorKvStore decorates any KvStore with cosine-similarity ranking:
// Put also indexes the item's text content in an in-process chromem-go
// collection (keyed by namespace), and Search ranks by vector similarity
// alone whenever an Embedder is configured, with no keyword ranking mixed
// in. This is the "external-collaborator-supplied embeddings"
// escape hatch from spec §1's Non-goals — embeddings are optional, never
// computed by this package itself beyond calling the supplied Embedder.
type VectorKvStore struct {
	KvStore
	embedder Embedder

	mu          sync.Mutex
	db          *chromem.DB
	collections map[string]*chromem.Collection
	indexed     map[string]map[string]bool // joined namespace -> indexed keys
}

// NewVectorKvStore wraps base, optionally using embedder to rank Search
// results by vector similarity instead of keyword match.
func NewVectorKvStore(base KvStore, embedder Embedder) *VectorKvStore {
	return &VectorKvStore{
		KvStore:     base,
		embedder:    embedder,
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
		indexed:     make(map[string]map[string]bool),
	}
}

func (v *VectorKvStore) collection(namespace []string) (*chromem.Collection, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	ns := joinNamespace(namespace)
	if col, ok := v.collections[ns]; ok {
		return col, nil
	}

	identityEmbed := func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("memory: chromem embedding function invoked but embeddings are supplied externally")
	}
	col, err := v.db.GetOrCreateCollection(ns, nil, identityEmbed)
	if err != nil {
		return nil, fmt.Errorf("memory: creating vector collection: %w", err)
	}
	v.collections[ns] = col
	return col, nil
}

// Put stores value in the wrapped KvStore and, when an embedder is
// configured, also indexes it for similarity search.
func (v *VectorKvStore) Put(ctx context.Context, namespace []string, key string, value any, importance *float64) error {
	if err := v.KvStore.Put(ctx, namespace, key, value, importance); err != nil {
		return err
	}
	if v.embedder == nil {
		return nil
	}

	text := fmt.Sprint(value)
	vec, err := v.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("memory: embedding value for vector index: %w", err)
	}

	col, err := v.collection(namespace)
	if err != nil {
		return err
	}
	doc := chromem.Document{ID: key, Content: text, Embedding: vec}
	if err := col.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		return fmt.Errorf("memory: indexing vector document: %w", err)
	}

	v.mu.Lock()
	ns := joinNamespace(namespace)
	if v.indexed[ns] == nil {
		v.indexed[ns] = make(map[string]bool)
	}
	v.indexed[ns][key] = true
	v.mu.Unlock()
	return nil
}

// Delete removes value from the wrapped KvStore and its vector index.
func (v *VectorKvStore) Delete(ctx context.Context, namespace []string, key string) error {
	if err := v.KvStore.Delete(ctx, namespace, key); err != nil {
		return err
	}
	if v.embedder == nil {
		return nil
	}
	col, err := v.collection(namespace)
	if err != nil {
		return err
	}
	_ = col.Delete(ctx, nil, nil, key) // absent document is not an error here

	v.mu.Lock()
	delete(v.indexed[joinNamespace(namespace)], key)
	v.mu.Unlock()
	return nil
}

// Search ranks by cosine similarity against query's embedding when an
// embedder is configured; otherwise it defers to the wrapped store's
// keyword search unchanged.
func (v *VectorKvStore) Search(ctx context.Context, namespace []string, query string, limit int) ([]ScoredItem, error) {
	if v.embedder == nil {
		return v.KvStore.Search(ctx, namespace, query, limit)
	}

	vec, err := v.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("memory: embedding query: %w", err)
	}

	col, err := v.collection(namespace)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	available := len(v.indexed[joinNamespace(namespace)])
	v.mu.Unlock()
	if available == 0 {
		return nil, nil
	}

	n := limit
	if n <= 0 || n > available {
		n = available
	}

	results, err := col.QueryEmbedding(ctx, vec, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("memory: vector search: %w", err)
	}

	out := make([]ScoredItem, 0, len(results))
	for _, r := range results {
		item, err := v.KvStore.Get(ctx, namespace, r.ID)
		if err != nil {
			continue // indexed but since deleted from the base store
		}
		out = append(out, ScoredItem{Key: r.ID, Item: item, Score: float64(r.Similarity)})
	}
	return out, nil
}

var _ KvStore = (*VectorKvStore)(nil)
