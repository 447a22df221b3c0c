// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package proctor

import (
	"sync"

	"github.com/google/uuid"
)

// =============================================================================
// SESSION
// =============================================================================

// Session is the state of one test attempt. Fields change only through the
// methods below, all of which hold mu.
type Session struct {
	mu sync.Mutex

	identity  string
	attemptID string

	authorized bool
	testActive bool
	banned     bool
	completed  bool

	violationCount     int
	navigationAttempts int
}

// SessionState is a point-in-time copy of a Session.
type SessionState struct {
	Identity           string
	AttemptID          string
	Authorized         bool
	TestActive         bool
	Banned             bool
	Completed          bool
	ViolationCount     int
	NavigationAttempts int
}

// NewSession creates the session for identity with a fresh attempt id.
func NewSession(identity string) *Session {
	return &Session{identity: identity, attemptID: uuid.NewString()}
}

// State returns a copy of the session.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionState{
		Identity:           s.identity,
		AttemptID:          s.attemptID,
		Authorized:         s.authorized,
		TestActive:         s.testActive,
		Banned:             s.banned,
		Completed:          s.completed,
		ViolationCount:     s.violationCount,
		NavigationAttempts: s.navigationAttempts,
	}
}

// Identity returns the participant identity.
func (s *Session) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// AttemptID returns the attempt's unique id.
func (s *Session) AttemptID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attemptID
}

// Banned reports whether the ban flag is set.
func (s *Session) Banned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.banned
}

// Terminal reports whether the session is banned or completed. No answer may
// be dispatched from a terminal session.
func (s *Session) Terminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.banned || s.completed
}

// Monitoring reports whether guards should act: the test is underway and
// the session is not terminal.
func (s *Session) Monitoring() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.testActive && !s.banned && !s.completed
}

// Authorize marks the participant as verified.
func (s *Session) Authorize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authorized = true
}

// StartTest marks the test view as live. It is a no-op on a terminal session.
func (s *Session) StartTest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.banned || s.completed {
		return
	}
	s.testActive = true
}

// markBanned sets the ban flag. Only the first call on a non-terminal
// session returns true.
func (s *Session) markBanned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.banned || s.completed {
		return false
	}
	s.banned = true
	s.testActive = false
	return true
}

// MarkCompleted moves the session to the completed terminal state. It
// returns false when the session was already terminal.
func (s *Session) MarkCompleted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.banned || s.completed {
		return false
	}
	s.completed = true
	s.testActive = false
	return true
}

func (s *Session) incViolation() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.violationCount++
	return s.violationCount
}

func (s *Session) incNavigation() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigationAttempts++
	return s.navigationAttempts
}
