package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kairoslabs/agentcore/pkg/message"
)

// FileSessionStore is a SessionStore backed by one JSON document mapping
// session id to snapshot (spec §6 persistence), written atomically.
type FileSessionStore struct {
	path string

	mu   sync.Mutex
	docs map[string]Snapshot
}

// NewFileSessionStore opens (or creates) the JSON document at path.
func NewFileSessionStore(path string) (*FileSessionStore, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("memory: resolving session store path: %w", err)
	}

	s := &FileSessionStore{path: absPath, docs: make(map[string]Snapshot)}
	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileSessionStore) loadLocked() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("memory: reading session store file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var docs map[string]Snapshot
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("memory: parsing session store file: %w", err)
	}
	s.docs = docs
	return nil
}

func (s *FileSessionStore) persistLocked() error {
	data, err := json.MarshalIndent(s.docs, "", "  ")
	if err != nil {
		return fmt.Errorf("memory: marshaling session store document: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".sessions-*.tmp")
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

func (s *FileSessionStore) Get(ctx context.Context, sessionID string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.docs[sessionID]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return Snapshot{SessionID: snap.SessionID, Messages: message.CloneAll(snap.Messages)}, nil
}

func (s *FileSessionStore) Put(ctx context.Context, sessionID string, messages []message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[sessionID] = Snapshot{SessionID: sessionID, Messages: message.CloneAll(messages)}
	return s.persistLocked()
}

func (s *FileSessionStore) ListSessions(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.docs))
	for id := range s.docs {
		out = append(out, id)
	}
	return out, nil
}

func (s *FileSessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[sessionID]; !ok {
		return nil
	}
	delete(s.docs, sessionID)
	return s.persistLocked()
}

var _ SessionStore = (*FileSessionStore)(nil)
