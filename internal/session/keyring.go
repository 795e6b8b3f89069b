package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "volumectl"
	keyringUser    = "auth-token"
)

// KeyringStore keeps the bearer token in the OS keyring and delegates the
// non-secret metadata to an inner FileStore. Available on platforms with a
// keyring backend; callers should fall back to a plain FileStore when
// NewKeyringStore fails.
type KeyringStore struct {
	mu        sync.Mutex
	meta      *FileStore
	staticKey string
	token     string
	hasToken  bool
}

func NewKeyringStore(dir, staticKey string) (*KeyringStore, error) {
	meta, err := NewFileStore(dir, staticKey)
	if err != nil {
		return nil, err
	}

	s := &KeyringStore{meta: meta, staticKey: staticKey}

	token, err := keyring.Get(keyringService, keyringUser)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		// no stored credential
	case err != nil:
		return nil, fmt.Errorf("keyring unavailable: %w", err)
	default:
		s.token = token
		s.hasToken = true
	}

	return s, nil
}

func (s *KeyringStore) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.hasToken
}

func (s *KeyringStore) Meta() (*Meta, bool) {
	return s.meta.Meta()
}

func (s *KeyringStore) SetAuth(token string, meta Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		return fmt.Errorf("store token in keyring: %w", err)
	}
	if err := s.meta.SetAuth("", meta); err != nil {
		return err
	}
	s.token = token
	s.hasToken = true
	return nil
}

func (s *KeyringStore) Clear() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hadToken := s.hasToken
	if err := keyring.Delete(keyringService, keyringUser); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return false, fmt.Errorf("remove token from keyring: %w", err)
	}
	clearedMeta, err := s.meta.Clear()
	if err != nil {
		return false, err
	}
	s.token = ""
	s.hasToken = false
	return hadToken || clearedMeta, nil
}

func (s *KeyringStore) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasToken || s.staticKey != ""
}
