package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultSessionTTL matches the lifetime of the tokens the API issues.
const DefaultSessionTTL = time.Hour

type storedSession struct {
	UserID     string    `json:"userId"`
	Token      string    `json:"token"`
	Expiration time.Time `json:"expiration"`
}

// Session holds the signed-in user and logs them out when the token expires.
// The zero value is not usable; call NewSession.
type Session struct {
	mu        sync.Mutex
	userID    string
	token     string
	expiresAt time.Time
	timer     *time.Timer
	gen       uint64

	path     string
	now      func() time.Time
	onLogout func()
}

type SessionOption func(*Session)

// WithStorePath persists the session as JSON at path so Restore can pick it up later.
func WithStorePath(path string) SessionOption {
	return func(s *Session) { s.path = path }
}

func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// OnLogout runs after every logout, manual or timed. It is called without the lock held.
func OnLogout(fn func()) SessionOption {
	return func(s *Session) { s.onLogout = fn }
}

func NewSession(opts ...SessionOption) *Session {
	s := &Session{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login starts a session. A zero expiresAt means DefaultSessionTTL from now.
func (s *Session) Login(userID, token string, expiresAt time.Time) error {
	if token == "" {
		return errors.New("empty token")
	}
	if expiresAt.IsZero() {
		expiresAt = s.now().Add(DefaultSessionTTL)
	}

	// the stored copy changes under the lock so it always matches the in-memory session
	s.mu.Lock()
	defer s.mu.Unlock()

	s.start(userID, token, expiresAt)
	return s.save(storedSession{UserID: userID, Token: token, Expiration: expiresAt.UTC()})
}

// start must be called with s.mu held.
func (s *Session) start(userID, token string, expiresAt time.Time) {
	s.stopTimer()

	s.gen++
	gen := s.gen
	s.userID, s.token, s.expiresAt = userID, token, expiresAt

	s.timer = time.AfterFunc(expiresAt.Sub(s.now()), func() {
		s.expire(gen)
	})
}

func (s *Session) expire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		// a newer login replaced this one
		s.mu.Unlock()
		return
	}
	s.clear()
	s.mu.Unlock()

	s.notifyLogout()
}

// Logout clears the session, its timer and the stored copy.
func (s *Session) Logout() {
	s.mu.Lock()
	s.clear()
	s.mu.Unlock()

	s.notifyLogout()
}

// clear must be called with s.mu held.
func (s *Session) clear() {
	s.stopTimer()
	s.gen++
	s.userID, s.token, s.expiresAt = "", "", time.Time{}
	s.removeStored()
}

func (s *Session) notifyLogout() {
	if s.onLogout != nil {
		s.onLogout()
	}
}

func (s *Session) removeStored() {
	if s.path != "" {
		_ = os.Remove(s.path)
	}
}

// Close stops the timer but keeps the stored session for the next Restore.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimer()
	s.gen++
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Restore loads a stored session. It reports false, and drops the file, when the stored
// token has already expired.
func (s *Session) Restore() (bool, error) {
	if s.path == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read session: %w", err)
	}

	var stored storedSession
	if err := json.Unmarshal(b, &stored); err != nil {
		return false, fmt.Errorf("decode session: %w", err)
	}

	if stored.Token == "" || !stored.Expiration.After(s.now()) {
		s.removeStored()
		return false, nil
	}

	s.start(stored.UserID, stored.Token, stored.Expiration)
	return true, nil
}

// Token returns the current token, if any.
func (s *Session) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

func (s *Session) save(stored storedSession) error {
	if s.path == "" {
		return nil
	}

	b, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}
