package database

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/session"
)

// MemoryStore is an in-process session.Store for tests and offline
// regression runs. Sessions are deep-copied across the boundary so callers
// never alias the stored record.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*session.Session)}
}

func copySession(s *session.Session) (*session.Session, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to copy session: %w", err)
	}
	var out session.Session
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to copy session: %w", err)
	}
	return &out, nil
}

func (m *MemoryStore) LoadSession(ctx context.Context, id string) (*session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return copySession(stored)
}

func (m *MemoryStore) SaveSession(ctx context.Context, s *session.Session) error {
	copied, err := copySession(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = copied
	return nil
}

func (m *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) ListSessionIDs(ctx context.Context, limit, offset int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	// Most recently active first, matching the SQLite store; ties break
	// by ID so the order is stable.
	sort.Slice(ids, func(i, j int) bool {
		a, b := m.sessions[ids[i]], m.sessions[ids[j]]
		if !a.LastActivityAt.Equal(b.LastActivityAt) {
			return a.LastActivityAt.After(b.LastActivityAt)
		}
		return ids[i] < ids[j]
	})

	if offset >= len(ids) {
		return nil, nil
	}
	ids = ids[offset:]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	return ids, nil
}
