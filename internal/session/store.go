// Package session owns the bearer credential and its session metadata. No
// other package touches the underlying storage; everything goes through the
// Store interface so tests can substitute an in-memory implementation.
package session

import (
	"sync"
	"time"
)

// Meta is the persisted description of the paired session. The token itself
// is stored separately and never appears in Meta.
type Meta struct {
	SessionID  string    `json:"sessionId"`
	DeviceName string    `json:"deviceName"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Store persists the bearer token and session metadata. SetAuth and Clear
// are atomic with respect to a single caller: a failed write leaves prior
// state untouched. Clear reports whether any credential was actually
// removed, which is what lets racing deauthentications collapse into a
// single auth-error signal.
type Store interface {
	Token() (string, bool)
	Meta() (*Meta, bool)
	SetAuth(token string, meta Meta) error
	Clear() (bool, error)
	IsAuthenticated() bool
}

// MemoryStore is the in-memory Store used by tests and ephemeral runs.
// staticKey stands in for a configured API key: when set, IsAuthenticated
// holds even without a stored token (headless use without pairing).
type MemoryStore struct {
	mu        sync.Mutex
	token     string
	meta      *Meta
	staticKey string
}

func NewMemoryStore(staticKey string) *MemoryStore {
	return &MemoryStore{staticKey: staticKey}
}

func (s *MemoryStore) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

func (s *MemoryStore) Meta() (*Meta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta == nil {
		return nil, false
	}
	meta := *s.meta
	return &meta, true
}

func (s *MemoryStore) SetAuth(token string, meta Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.meta = &meta
	return nil
}

func (s *MemoryStore) Clear() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cleared := s.token != "" || s.meta != nil
	s.token = ""
	s.meta = nil
	return cleared, nil
}

func (s *MemoryStore) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != "" || s.staticKey != ""
}
