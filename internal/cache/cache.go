package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"restopos/internal/domain"
	"restopos/internal/pos"
)

// SettingsCache holds per-business tax and currency settings.
type SettingsCache interface {
	Get(ctx context.Context, businessID string) (*domain.BusinessSettings, bool, error)
	Set(ctx context.Context, businessID string, value domain.BusinessSettings, ttl time.Duration) error
	Delete(ctx context.Context, businessID string) error
}

type NoopSettingsCache struct{}

func (NoopSettingsCache) Get(_ context.Context, _ string) (*domain.BusinessSettings, bool, error) {
	return nil, false, nil
}

func (NoopSettingsCache) Set(_ context.Context, _ string, _ domain.BusinessSettings, _ time.Duration) error {
	return nil
}

func (NoopSettingsCache) Delete(_ context.Context, _ string) error {
	return nil
}

// SessionStore keeps the open tabs and split state of one terminal.
type SessionStore interface {
	Load(ctx context.Context, businessID string, terminalID string) (*pos.Session, bool, error)
	Save(ctx context.Context, businessID string, terminalID string, session *pos.Session) error
	Delete(ctx context.Context, businessID string, terminalID string) error
}

// MemorySessionStore keeps sessions encoded so callers never share state.
type MemorySessionStore struct {
	mu    sync.Mutex
	items map[string][]byte
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{items: make(map[string][]byte)}
}

func (m *MemorySessionStore) Load(_ context.Context, businessID string, terminalID string) (*pos.Session, bool, error) {
	m.mu.Lock()
	payload, ok := m.items[sessionKey(businessID, terminalID)]
	m.mu.Unlock()
	if !ok {
		return nil, false, nil
	}

	var session pos.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, false, err
	}
	return &session, true, nil
}

func (m *MemorySessionStore) Save(_ context.Context, businessID string, terminalID string, session *pos.Session) error {
	if session == nil {
		return nil
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.items[sessionKey(businessID, terminalID)] = payload
	m.mu.Unlock()
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, businessID string, terminalID string) error {
	m.mu.Lock()
	delete(m.items, sessionKey(businessID, terminalID))
	m.mu.Unlock()
	return nil
}

func settingsKey(businessID string) string {
	return "restopos:settings:" + businessID
}

func sessionKey(businessID string, terminalID string) string {
	return "restopos:session:" + businessID + ":" + terminalID
}
