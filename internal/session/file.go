package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

const stateFileName = "session.json"

// stateFile is the on-disk layout: the token and the metadata blob under
// two fixed keys.
type stateFile struct {
	AuthToken   string `json:"authToken,omitempty"`
	AuthSession *Meta  `json:"authSession,omitempty"`
}

// FileStore persists credentials in a 0600 JSON file under dir. Writes go
// through a temp file and rename so a crash mid-write can never corrupt the
// previous state.
type FileStore struct {
	mu        sync.Mutex
	path      string
	staticKey string
	state     stateFile
}

func NewFileStore(dir, staticKey string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	s := &FileStore{
		path:      filepath.Join(dir, stateFileName),
		staticKey: staticKey,
	}

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// fresh install, nothing to restore
	case err != nil:
		return nil, fmt.Errorf("read session state: %w", err)
	default:
		if err := json.Unmarshal(data, &s.state); err != nil {
			log.Warn().Err(err).Str("path", s.path).Msg("session state unreadable, starting unauthenticated")
			s.state = stateFile{}
		}
	}

	return s, nil
}

func (s *FileStore) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AuthToken, s.state.AuthToken != ""
}

func (s *FileStore) Meta() (*Meta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.AuthSession == nil {
		return nil, false
	}
	meta := *s.state.AuthSession
	return &meta, true
}

func (s *FileStore) SetAuth(token string, meta Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := stateFile{AuthToken: token, AuthSession: &meta}
	if err := s.write(next); err != nil {
		return err
	}
	s.state = next
	return nil
}

func (s *FileStore) Clear() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cleared := s.state.AuthToken != "" || s.state.AuthSession != nil
	if !cleared {
		return false, nil
	}
	if err := s.write(stateFile{}); err != nil {
		return false, err
	}
	s.state = stateFile{}
	return true, nil
}

func (s *FileStore) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AuthToken != "" || s.staticKey != ""
}

func (s *FileStore) write(state stateFile) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace session state: %w", err)
	}
	return nil
}
