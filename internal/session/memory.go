package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage keeps records in process memory.  It serves tests and
// single-instance development setups (SESSION_DRIVER=memory).
type MemoryStorage struct {
	mu   sync.Mutex
	recs map[string]memEntry
	now  func() time.Time
}

type memEntry struct {
	rec     Record
	expires time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{recs: map[string]memEntry{}, now: time.Now}
}

func (m *MemoryStorage) Load(_ context.Context, key string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.recs[key]
	if !ok || m.now().After(e.expires) {
		delete(m.recs, key)
		return Record{}, ErrNoSession
	}
	return e.rec, nil
}

func (m *MemoryStorage) Save(_ context.Context, key string, rec Record, ttl time.Duration) error {
	m.mu.Lock()
	m.recs[key] = memEntry{rec: rec, expires: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.recs[key]
	if !ok {
		return 0, nil
	}
	delete(m.recs, key)
	if m.now().After(e.expires) {
		return 0, nil
	}
	return 1, nil
}

func (m *MemoryStorage) DeleteByToken(_ context.Context, token string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, e := range m.recs {
		if e.rec.Token == token {
			delete(m.recs, k)
			n++
		}
	}
	return n, nil
}

// Len reports how many records are stored.
func (m *MemoryStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}
