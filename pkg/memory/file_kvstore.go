package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// fileItem is the on-disk shape of Item: value is stored as raw JSON so
// round-tripping through Put/Get does not need a registered type.
type fileItem struct {
	Value      json.RawMessage `json:"value"`
	CreatedAt  time.Time       `json:"created_at"`
	Importance *float64        `json:"importance,omitempty"`
}

// fileDocument is the single JSON document persisted to disk: namespace
// path (segments joined by nsSeparator) -> key -> item (spec §6).
type fileDocument map[string]map[string]fileItem

// FileKvStore is a KvStore backed by one JSON file on disk, written with
// write-to-temp-then-rename for atomicity and watched with fsnotify so
// external writers (another process sharing the file) are picked up
// (spec §4.5 shared-resource policy).
type FileKvStore struct {
	path string

	mu      sync.Mutex
	doc     fileDocument
	segs    map[string][]string
	watcher *fsnotify.Watcher
	closed  bool
}

// NewFileKvStore opens (or creates) the JSON document at path and begins
// watching it for out-of-process changes.
func NewFileKvStore(path string) (*FileKvStore, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("memory: resolving kvstore path: %w", err)
	}

	s := &FileKvStore{
		path: absPath,
		doc:  make(fileDocument),
		segs: make(map[string][]string),
	}

	if err := s.loadLocked(); err != nil {
		return nil, err
	}

	if err := s.watch(); err != nil {
		slog.Warn("memory: failed to watch kvstore file for external changes", "path", absPath, "error", err)
	}

	return s, nil
}

func (s *FileKvStore) loadLocked() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("memory: reading kvstore file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("memory: parsing kvstore file: %w", err)
	}

	s.doc = doc
	s.segs = make(map[string][]string, len(doc))
	for ns := range doc {
		s.segs[ns] = strings.Split(ns, nsSeparator)
	}
	return nil
}

func (s *FileKvStore) watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}
	s.watcher = watcher

	go s.watchLoop(watcher)
	return nil
}

func (s *FileKvStore) watchLoop(watcher *fsnotify.Watcher) {
	file := filepath.Base(s.path)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != file {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			s.mu.Lock()
			if err := s.loadLocked(); err != nil {
				slog.Warn("memory: reloading kvstore file after external change", "error", err)
			}
			s.mu.Unlock()
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops the file watcher.
func (s *FileKvStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *FileKvStore) persistLocked() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("memory: marshaling kvstore document: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".kvstore-*.tmp")
	if err != nil {
		return fmt.Errorf("memory: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("memory: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("memory: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("memory: renaming temp file into place: %w", err)
	}
	return nil
}

func (s *FileKvStore) Put(ctx context.Context, namespace []string, key string, value any, importance *float64) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("memory: marshaling value: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ns := joinNamespace(namespace)
	bucket, ok := s.doc[ns]
	if !ok {
		bucket = make(map[string]fileItem)
		s.doc[ns] = bucket
		s.segs[ns] = append([]string(nil), namespace...)
	}
	bucket[key] = fileItem{Value: raw, CreatedAt: time.Now(), Importance: importance}
	return s.persistLocked()
}

func (s *FileKvStore) Get(ctx context.Context, namespace []string, key string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.doc[joinNamespace(namespace)]
	if !ok {
		return Item{}, ErrNotFound
	}
	fi, ok := bucket[key]
	if !ok {
		return Item{}, ErrNotFound
	}
	return toItem(fi)
}

func (s *FileKvStore) Delete(ctx context.Context, namespace []string, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.doc[joinNamespace(namespace)]
	if !ok {
		return nil
	}
	if _, ok := bucket[key]; !ok {
		return nil
	}
	delete(bucket, key)
	return s.persistLocked()
}

func (s *FileKvStore) ListNamespaces(ctx context.Context, prefix []string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out [][]string
	for ns, segs := range s.segs {
		if len(s.doc[ns]) == 0 {
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

func (s *FileKvStore) Search(ctx context.Context, namespace []string, query string, limit int) ([]ScoredItem, error) {
	s.mu.Lock()
	bucket, ok := s.doc[joinNamespace(namespace)]
	if !ok {
		s.mu.Unlock()
		return nil, nil
	}
	entries := make(map[string]Item, len(bucket))
	for k, fi := range bucket {
		item, err := toItem(fi)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		entries[k] = item
	}
	s.mu.Unlock()

	return searchEntries(entries, query, limit), nil
}

func toItem(fi fileItem) (Item, error) {
	var v any
	if len(fi.Value) > 0 {
		if err := json.Unmarshal(fi.Value, &v); err != nil {
			return Item{}, fmt.Errorf("memory: unmarshaling stored value: %w", err)
		}
	}
	return Item{Value: v, CreatedAt: fi.CreatedAt, Importance: fi.Importance}, nil
}

var _ KvStore = (*FileKvStore)(nil)
