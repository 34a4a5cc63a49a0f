package memory

import (
	"context"
	"sync"

	"github.com/kairoslabs/agentcore/pkg/message"
)

// Snapshot is the full replayable message sequence needed to resume a
// session (spec §4.5): the buffer state as of the end of the last turn.
type Snapshot struct {
	SessionID string            `json:"session_id"`
	Messages  []message.Message `json:"messages"`
}

// SessionStore persists one snapshot per session id. A driver configured
// with a session id loads the snapshot on Execute and saves it back only
// on normal termination (spec §4.1, §4.5).
type SessionStore interface {
	// Get returns the snapshot for sessionID, or ErrNotFound.
	Get(ctx context.Context, sessionID string) (Snapshot, error)

	// Put replaces the snapshot for sessionID.
	Put(ctx context.Context, sessionID string, messages []message.Message) error

	// ListSessions returns every session id with a stored snapshot.
	ListSessions(ctx context.Context) ([]string, error)

	// DeleteSession removes the snapshot for sessionID, if any.
	DeleteSession(ctx context.Context, sessionID string) error
}

// MemorySessionStore is an in-process SessionStore with no persistence
// across restarts.
type MemorySessionStore struct {
	mu        sync.Mutex
	snapshots map[string]Snapshot
}

// NewMemorySessionStore builds an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{snapshots: make(map[string]Snapshot)}
}

func (s *MemorySessionStore) Get(ctx context.Context, sessionID string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.snapshots[sessionID]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return Snapshot{SessionID: snap.SessionID, Messages: message.CloneAll(snap.Messages)}, nil
}

func (s *MemorySessionStore) Put(ctx context.Context, sessionID string, messages []message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[sessionID] = Snapshot{SessionID: sessionID, Messages: message.CloneAll(messages)}
	return nil
}

func (s *MemorySessionStore) ListSessions(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.snapshots))
	for id := range s.snapshots {
		out = append(out, id)
	}
	return out, nil
}

func (s *MemorySessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.snapshots, sessionID)
	return nil
}

var _ SessionStore = (*MemorySessionStore)(nil)
