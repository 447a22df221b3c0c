// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/proctor-tui/internal/logging"
	"github.com/jeranaias/proctor-tui/internal/storage"
	"github.com/rs/zerolog"
)

// IdentityKey is the storage key of the continuation token.
const IdentityKey = "studentEmail"

// ErrNoIdentity is returned when no participant is stored.
var ErrNoIdentity = errors.New("no authenticated participant")

// =============================================================================
// STORE
// =============================================================================

// Store persists the participant identity. It is safe for concurrent use.
type Store struct {
	kv  storage.KV
	log zerolog.Logger

	mu         sync.Mutex
	clearTimer *time.Timer
}

// NewStore creates a Store over kv.
func NewStore(kv storage.KV, log zerolog.Logger) *Store {
	return &Store{kv: kv, log: log.With().Str("component", "session").Logger()}
}

// SaveIdentity records identity as the authenticated participant and cancels
// any pending delayed clear.
func (s *Store) SaveIdentity(ctx context.Context, identity string) error {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return errors.New("identity must not be empty")
	}
	s.cancelPending()
	if err := s.kv.Set(ctx, IdentityKey, identity); err != nil {
		return err
	}
	s.log.Info().Str("identity", logging.MaskIdentity(identity)).Msg("identity stored")
	return nil
}

// Identity returns the stored identity or ErrNoIdentity.
func (s *Store) Identity(ctx context.Context) (string, error) {
	v, err := s.kv.Get(ctx, IdentityKey)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && v == "") {
		return "", ErrNoIdentity
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// Clear removes the stored identity immediately and cancels any pending
// delayed clear.
func (s *Store) Clear(ctx context.Context) error {
	s.cancelPending()
	if err := s.kv.Delete(ctx, IdentityKey); err != nil {
		return err
	}
	s.log.Info().Msg("identity cleared")
	return nil
}

// ClearAfter schedules Clear after d. A later SaveIdentity, Clear or
// ClearAfter replaces the pending schedule.
func (s *Store) ClearAfter(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearTimer != nil {
		s.clearTimer.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.mu.Lock()
		if s.clearTimer != t {
			s.mu.Unlock()
			return
		}
		s.clearTimer = nil
		s.mu.Unlock()
		if err := s.kv.Delete(context.Background(), IdentityKey); err != nil {
			s.log.Warn().Err(err).Msg("delayed identity clear failed")
			return
		}
		s.log.Info().Dur("after", d).Msg("identity cleared")
	})
	s.clearTimer = t
}

// Pending reports whether a delayed clear is scheduled.
func (s *Store) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearTimer != nil
}

func (s *Store) cancelPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearTimer != nil {
		s.clearTimer.Stop()
		s.clearTimer = nil
	}
}
