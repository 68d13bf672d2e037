// Package domain contains core domain types for the vocabulary bot.
package domain

import (
	"time"
)

// State is the conversational state derived from a Session.
type State int

const (
	// StateAwaitingReady means the user has not confirmed readiness for a drill.
	StateAwaitingReady State = iota
	// StateActive means the user confirmed readiness and may issue commands.
	StateActive
)

func (s State) String() string {
	switch s {
	case StateAwaitingReady:
		return "awaiting_ready"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// Session holds per-user conversational state.
// ReminderSent is only ever true while Ready is false.
type Session struct {
	UserID          string
	Ready           bool
	ReminderSent    bool
	LastInteraction time.Time
	SessionActive   bool
}

// NewSession returns the default state for a user seen for the first time.
func NewSession(userID string, now time.Time) *Session {
	return &Session{
		UserID:          userID,
		LastInteraction: now,
	}
}

// State reports the state machine position of the session.
func (s *Session) State() State {
	if s.Ready {
		return StateActive
	}
	return StateAwaitingReady
}

// Activate moves the session into the active state for the current cycle.
func (s *Session) Activate() {
	s.Ready = true
	s.ReminderSent = false
	s.SessionActive = true
}

// Reset returns the session to awaiting readiness and ends the current cycle.
func (s *Session) Reset() {
	s.Ready = false
	s.ReminderSent = false
	s.SessionActive = false
}

// ResetIdle clears readiness for a session that is not mid-cycle.
// It reports whether the session was reset.
func (s *Session) ResetIdle() bool {
	if s.SessionActive {
		return false
	}
	s.Ready = false
	s.ReminderSent = false
	return true
}

// Touch records an interaction.
func (s *Session) Touch(now time.Time) {
	s.LastInteraction = now
}
