package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// etcdKeyPrefix roots every key this store touches, so a shared etcd
// cluster can host other applications' keys alongside agentcore's.
const etcdKeyPrefix = "/agentcore/kv/"

// EtcdKvStore is a KvStore backed by etcd, for deployments that run the
// driver across multiple processes or hosts sharing one memory layer.
type EtcdKvStore struct {
	client *clientv3.Client
}

// NewEtcdKvStore builds a store against an already-configured etcd
// client. The caller owns the client's lifecycle.
func NewEtcdKvStore(client *clientv3.Client) *EtcdKvStore {
	return &EtcdKvStore{client: client}
}

func (s *EtcdKvStore) etcdKey(namespace []string, key string) string {
	return etcdKeyPrefix + joinNamespace(namespace) + nsSeparator + key
}

func (s *EtcdKvStore) Put(ctx context.Context, namespace []string, key string, value any, importance *float64) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("memory: marshaling value: %w", err)
	}

	fi := fileItem{Value: raw, CreatedAt: time.Now(), Importance: importance}
	data, err := json.Marshal(fi)
	if err != nil {
		return fmt.Errorf("memory: marshaling kv item: %w", err)
	}

	if _, err := s.client.Put(ctx, s.etcdKey(namespace, key), string(data)); err != nil {
		return fmt.Errorf("memory: etcd put: %w", err)
	}
	return nil
}

func (s *EtcdKvStore) Get(ctx context.Context, namespace []string, key string) (Item, error) {
	resp, err := s.client.Get(ctx, s.etcdKey(namespace, key))
	if err != nil {
		return Item{}, fmt.Errorf("memory: etcd get: %w", err)
	}
	if len(resp.Kvs) == 0 {
		return Item{}, ErrNotFound
	}

	var fi fileItem
	if err := json.Unmarshal(resp.Kvs[0].Value, &fi); err != nil {
		return Item{}, fmt.Errorf("memory: unmarshaling kv item: %w", err)
	}
	return toItem(fi)
}

func (s *EtcdKvStore) Delete(ctx context.Context, namespace []string, key string) error {
	if _, err := s.client.Delete(ctx, s.etcdKey(namespace, key)); err != nil {
		return fmt.Errorf("memory: etcd delete: %w", err)
	}
	return nil
}

func (s *EtcdKvStore) ListNamespaces(ctx context.Context, prefix []string) ([][]string, error) {
	resp, err := s.client.Get(ctx, etcdKeyPrefix, clientv3.WithPrefix(), clientv3.WithKeysOnly())
	if err != nil {
		return nil, fmt.Errorf("memory: etcd list: %w", err)
	}

	seen := make(map[string][]string)
	for _, kv := range resp.Kvs {
		rest := strings.TrimPrefix(string(kv.Key), etcdKeyPrefix)
		idx := strings.LastIndex(rest, nsSeparator)
		if idx < 0 {
			continue
		}
		nsPart := rest[:idx]
		segs := strings.Split(nsPart, nsSeparator)
		if hasPrefix(segs, prefix) {
			seen[nsPart] = segs
		}
	}

	out := make([][]string, 0, len(seen))
	for _, segs := range seen {
		out = append(out, segs)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.Join(out[i], nsSeparator) < strings.Join(out[j], nsSeparator)
	})
	return out, nil
}

func (s *EtcdKvStore) Search(ctx context.Context, namespace []string, query string, limit int) ([]ScoredItem, error) {
	nsPrefix := etcdKeyPrefix + joinNamespace(namespace) + nsSeparator
	resp, err := s.client.Get(ctx, nsPrefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("memory: etcd search: %w", err)
	}

	entries := make(map[string]Item, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		key := strings.TrimPrefix(string(kv.Key), nsPrefix)
		if strings.Contains(key, nsSeparator) {
			continue // belongs to a longer namespace sharing this prefix
		}
		var fi fileItem
		if err := json.Unmarshal(kv.Value, &fi); err != nil {
			return nil, fmt.Errorf("memory: unmarshaling kv item: %w", err)
		}
		item, err := toItem(fi)
		if err != nil {
			return nil, err
		}
		entries[key] = item
	}

	return searchEntries(entries, query, limit), nil
}

var _ KvStore = (*EtcdKvStore)(nil)
