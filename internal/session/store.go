// Package session tracks per-user conversational state and drives the
// command state machine.
package session

import (
	"sync"
	"time"

	"github.com/ashureev/vocabot/internal/domain"
	"github.com/ashureev/vocabot/internal/metrics"
)

// Store maps user identities to sessions. Sessions are created lazily and
// never deleted.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	now      func() time.Time
	metrics  *metrics.Metrics
}

// NewStore creates an empty session store. m may be nil.
func NewStore(m *metrics.Metrics) *Store {
	return &Store{
		sessions: make(map[string]*domain.Session),
		now:      time.Now,
		metrics:  m,
	}
}

// Update runs fn on the user's session under the store lock, provisioning a
// default session on first contact, and returns a copy of the result.
// fn must not block.
func (s *Store) Update(userID string, fn func(*domain.Session)) domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		sess = domain.NewSession(userID, s.now())
		s.sessions[userID] = sess
		s.metrics.SetSessions(len(s.sessions))
	}
	fn(sess)
	return *sess
}

// Get returns a copy of the user's session.
func (s *Store) Get(userID string) (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return domain.Session{}, false
	}
	return *sess, true
}

// ResetIdle clears readiness on every session that is not mid-cycle and
// returns how many were reset.
func (s *Store) ResetIdle() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, sess := range s.sessions {
		if sess.ResetIdle() {
			n++
		}
	}
	return n
}

// Len returns the number of known sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
