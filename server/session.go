package server

import (
	"crypto/subtle"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidSecret is returned by Acquire when the API secret does not match.
	ErrInvalidSecret = errors.New("invalid API secret")

	// ErrSessionClaimed is returned by Acquire while another client holds the session.
	ErrSessionClaimed = errors.New("session already claimed by another client")
)

// SessionManager enforces a single UI client at a time, first come first
// served. Each session gets a random id used in logs and replies.
type SessionManager struct {
	apiSecret string

	mu sync.Mutex
	id string
}

// NewSessionManager creates a session manager. An empty apiSecret disables
// secret validation.
func NewSessionManager(apiSecret string) *SessionManager {
	return &SessionManager{apiSecret: apiSecret}
}

// Acquire validates secret and claims the session.
func (m *SessionManager) Acquire(secret string) (string, error) {
	if m.apiSecret != "" && subtle.ConstantTimeCompare([]byte(secret), []byte(m.apiSecret)) != 1 {
		return "", ErrInvalidSecret
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.id != "" {
		return "", ErrSessionClaimed
	}
	m.id = uuid.NewString()
	return m.id, nil
}

// Release frees the session if id still owns it.
func (m *SessionManager) Release(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" || m.id != id {
		return false
	}
	m.id = ""
	return true
}

// Active returns the current session id, if any.
func (m *SessionManager) Active() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id, m.id != ""
}
