// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/proctor-tui/internal/config"
)

// ErrNotFound is returned when a participant has no record yet.
var ErrNotFound = errors.New("participant not found")

// Participant is the server-side progress of one identifier.
type Participant struct {
	Email          string    `json:"email"`
	Verified       bool      `json:"verified"`
	Completed      bool      `json:"completed"`
	SectionID      int       `json:"section_id"`
	QuestionIndex  int       `json:"question_index"`
	SectionStarted time.Time `json:"section_started"`
	Answered       int       `json:"answered"`
	Score          int       `json:"score"`
}

// Ledger stores participants and the ban list. Ban must be idempotent: only
// the first ban of an identifier reports true.
type Ledger interface {
	Load(ctx context.Context, email string) (*Participant, error)
	Save(ctx context.Context, p *Participant) error
	Ban(ctx context.Context, email string) (bool, error)
	Banned(ctx context.Context, email string) (bool, error)
	Close() error
}

// OpenLedger opens the ledger selected by cfg.Ledger.
func OpenLedger(cfg config.MockConfig) (Ledger, error) {
	switch strings.ToLower(cfg.Ledger) {
	case "", "memory":
		return NewMemoryLedger(), nil
	case "bolt":
		if cfg.BoltPath == "" {
			return nil, errors.New("mock.bolt_path is required for the bolt ledger")
		}
		return OpenBoltLedger(cfg.BoltPath)
	case "redis":
		return OpenRedisLedger(cfg.RedisAddr)
	}
	return nil, fmt.Errorf("unknown ledger %q", cfg.Ledger)
}

func key(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// =============================================================================
// MEMORY LEDGER
// =============================================================================

// MemoryLedger keeps everything in process.
type MemoryLedger struct {
	mu           sync.Mutex
	participants map[string]Participant
	bans         map[string]time.Time
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		participants: make(map[string]Participant),
		bans:         make(map[string]time.Time),
	}
}

func (m *MemoryLedger) Load(_ context.Context, email string) (*Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.participants[key(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryLedger) Save(_ context.Context, p *Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.participants[key(p.Email)] = *p
	return nil
}

func (m *MemoryLedger) Ban(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(email)
	if _, ok := m.bans[k]; ok {
		return false, nil
	}
	m.bans[k] = time.Now()
	return true, nil
}

func (m *MemoryLedger) Banned(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.bans[key(email)]
	return ok, nil
}

func (m *MemoryLedger) Close() error { return nil }
