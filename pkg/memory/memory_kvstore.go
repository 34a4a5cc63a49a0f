package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryKvStore is an in-process KvStore backed by a mutex-guarded map.
// Writes are totally ordered per key within the process; it carries no
// state across restarts.
type MemoryKvStore struct {
	mu   sync.Mutex
	data map[string]map[string]Item // joined namespace -> key -> item
	segs map[string][]string        // joined namespace -> its segments
}

// NewMemoryKvStore builds an empty in-memory store.
func NewMemoryKvStore() *MemoryKvStore {
	return &MemoryKvStore{
		data: make(map[string]map[string]Item),
		segs: make(map[string][]string),
	}
}

func (s *MemoryKvStore) Put(ctx context.Context, namespace []string, key string, value any, importance *float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns := joinNamespace(namespace)
	bucket, ok := s.data[ns]
	if !ok {
		bucket = make(map[string]Item)
		s.data[ns] = bucket
		s.segs[ns] = append([]string(nil), namespace...)
	}
	bucket[key] = Item{Value: value, CreatedAt: time.Now(), Importance: importance}
	return nil
}

func (s *MemoryKvStore) Get(ctx context.Context, namespace []string, key string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.data[joinNamespace(namespace)]
	if !ok {
		return Item{}, ErrNotFound
	}
	item, ok := bucket[key]
	if !ok {
		return Item{}, ErrNotFound
	}
	return item, nil
}

func (s *MemoryKvStore) Delete(ctx context.Context, namespace []string, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.data[joinNamespace(namespace)]
	if !ok {
		return nil
	}
	delete(bucket, key)
	return nil
}

func (s *MemoryKvStore) ListNamespaces(ctx context.Context, prefix []string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out [][]string
	for ns, segs := range s.segs {
		if len(s.data[ns]) == 0 {
			continue
		}
		if hasPrefix(segs, prefix) {
			out = append(out, append([]string(nil), segs...))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.Join(out[i], nsSeparator) < strings.Join(out[j], nsSeparator)
	})
	return out, nil
}

func (s *MemoryKvStore) Search(ctx context.Context, namespace []string, query string, limit int) ([]ScoredItem, error) {
	s.mu.Lock()
	bucket, ok := s.data[joinNamespace(namespace)]
	if !ok {
		s.mu.Unlock()
		return nil, nil
	}
	entries := make(map[string]Item, len(bucket))
	for k, v := range bucket {
		entries[k] = v
	}
	s.mu.Unlock()

	return searchEntries(entries, query, limit), nil
}

var _ KvStore = (*MemoryKvStore)(nil)
