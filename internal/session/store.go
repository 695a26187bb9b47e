// Package session persists the signed-in user between invocations
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Kavirubc/cofound/pkg/models"
)

// ErrNoSession is returned when nobody is logged in
var ErrNoSession = errors.New("not logged in")

// Session is the persisted sign-in state
type Session struct {
	User    models.User       `json:"user"`
	Tokens  models.AuthTokens `json:"tokens"`
	SavedAt time.Time         `json:"saved_at"`
}

// UserID returns the signed-in user's id. A Session satisfies
// queue.Identity.
func (s *Session) UserID() string {
	if s == nil {
		return ""
	}
	return s.User.ID
}

// AccessToken returns the bearer token for backend calls
func (s *Session) AccessToken() string {
	if s == nil {
		return ""
	}
	return s.Tokens.AccessToken
}

// Store reads and writes the session file
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store backed by the file at path
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the session file location
func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted session, or ErrNoSession
func (s *Store) Load() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	if sess.User.ID == "" {
		return nil, ErrNoSession
	}
	return &sess, nil
}

// CurrentUser returns the signed-in user
func (s *Store) CurrentUser() (*models.User, error) {
	sess, err := s.Load()
	if err != nil {
		return nil, err
	}
	return &sess.User, nil
}

// Login replaces any existing session with user and tokens
func (s *Store) Login(user models.User, tokens models.AuthTokens) (*Session, error) {
	if user.ID == "" {
		return nil, fmt.Errorf("cannot log in without a user id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := &Session{User: user, Tokens: tokens, SavedAt: time.Now().UTC()}
	if err := s.writeLocked(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// UpdateUser replaces the stored profile and keeps the tokens
func (s *Store) UpdateUser(user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.loadLocked()
	if err != nil {
		return err
	}
	if user.ID == "" {
		user.ID = sess.User.ID
	}
	if user.ID != sess.User.ID {
		return fmt.Errorf("session belongs to %s, not %s", sess.User.ID, user.ID)
	}
	sess.User = user
	sess.SavedAt = time.Now().UTC()
	return s.writeLocked(sess)
}

// Logout removes the session. Logging out twice is not an error.
func (s *Store) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}

// writeLocked replaces the file atomically with owner-only permissions
func (s *Store) writeLocked(sess *Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("failed to create session file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
