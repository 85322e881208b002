package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. Expired sessions of chats
// that never come back are swept on Save, at most once per ttl.
type MemoryStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	items     map[int64]*Session
	now       func() time.Time
	lastSweep time.Time
}

// NewMemoryStore creates a store whose entries expire after ttl (0 = never).
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, items: make(map[int64]*Session), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, chatID int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[chatID]
	if !ok {
		return &Session{}, nil
	}
	if expired(s, m.ttl, m.now()) {
		delete(m.items, chatID)
		return &Session{}, nil
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, chatID int64, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweep(now)
	stored := s.Clone()
	stored.UpdatedAt = now
	m.items[chatID] = stored
	return nil
}

func (m *MemoryStore) sweep(now time.Time) {
	if m.ttl <= 0 || now.Sub(m.lastSweep) < m.ttl {
		return
	}
	m.lastSweep = now
	for id, s := range m.items {
		if expired(s, m.ttl, now) {
			delete(m.items, id)
		}
	}
}

func (m *MemoryStore) Clear(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, chatID)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
