// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package proctor

import (
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jeranaias/proctor-tui/internal/assessment"
)

// =============================================================================
// CLOCK STATE MACHINE
// =============================================================================

// ClockState is the section countdown's state.
type ClockState int

const (
	ClockIdle ClockState = iota
	ClockActive
	ClockAutoAdvancing
	ClockCompleted
	ClockBanned
)

func (s ClockState) String() string {
	switch s {
	case ClockIdle:
		return "idle"
	case ClockActive:
		return "active"
	case ClockAutoAdvancing:
		return "auto_advancing"
	case ClockCompleted:
		return "completed"
	case ClockBanned:
		return "banned"
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible.
func (s ClockState) Terminal() bool {
	return s == ClockCompleted || s == ClockBanned
}

// ClockAction is what the owner must do after an expiry.
type ClockAction int

const (
	ActionNone ClockAction = iota
	// ActionAdvance: refetch the current question after the advance delay
	ActionAdvance
	// ActionFinalize: show the finalizing message, then complete after the grace period
	ActionFinalize
)

// allowed lists every legal transition. Terminal states have no entry.
var allowed = map[ClockState]map[ClockState]bool{
	ClockIdle:          {ClockIdle: true, ClockActive: true, ClockCompleted: true, ClockBanned: true},
	ClockActive:        {ClockIdle: true, ClockActive: true, ClockAutoAdvancing: true, ClockCompleted: true, ClockBanned: true},
	ClockAutoAdvancing: {ClockIdle: true, ClockActive: true, ClockCompleted: true, ClockBanned: true},
}

// Clock is the per-section countdown. Every reseed or cancel bumps the
// generation; ticks from an older generation are ignored, so at most one
// countdown is ever live.
type Clock struct {
	mu sync.Mutex

	state         ClockState
	gen           uint64
	remaining     int
	testRemaining int
	sectionID     int
	totalSections int
}

// NewClock returns an idle clock.
func NewClock() *Clock {
	return &Clock{}
}

// transition is the only place state changes. It reports whether the move
// was legal. Every successful transition starts a new generation except
// the Active -> AutoAdvancing expiry, which ends the current one in place.
func (c *Clock) transition(to ClockState) bool {
	if !allowed[c.state][to] {
		return false
	}
	if !(c.state == ClockActive && to == ClockAutoAdvancing) {
		c.gen++
	}
	c.state = to
	return true
}

// Seed (re)starts the countdown from a fresh server snapshot and returns
// the new generation. A terminal clock ignores the seed and returns 0.
func (c *Clock) Seed(timing assessment.Timing, progress assessment.Progress) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.transition(ClockActive) {
		return 0
	}
	c.remaining = max(timing.SectionTimeRemaining, 0)
	c.testRemaining = max(timing.TestTimeRemaining, 0)
	c.sectionID = progress.CurrentSectionID
	c.totalSections = progress.TotalSections
	return c.gen
}

// Tick advances the countdown by one second if gen is current and the clock
// is Active. When the section reaches zero it moves to AutoAdvancing and
// returns the single action to take.
func (c *Clock) Tick(gen uint64) (remaining int, action ClockAction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.state != ClockActive {
		return c.remaining, ActionNone
	}
	if c.remaining > 0 {
		c.remaining--
	}
	if c.testRemaining > 0 {
		c.testRemaining--
	}
	if c.remaining > 0 {
		return c.remaining, ActionNone
	}
	c.transition(ClockAutoAdvancing)
	if c.sectionID >= c.totalSections {
		return 0, ActionFinalize
	}
	return 0, ActionAdvance
}

// Cancel stops the countdown without reaching a terminal state, as when the
// payload is about to be replaced or the view is torn down.
func (c *Clock) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transition(ClockIdle)
}

// Complete moves the clock to Completed.
func (c *Clock) Complete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transition(ClockCompleted)
}

// Ban moves the clock to Banned.
func (c *Clock) Ban() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transition(ClockBanned)
}

// State returns the current state.
func (c *Clock) State() ClockState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Generation returns the live generation.
func (c *Clock) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Remaining returns the section and test seconds left.
func (c *Clock) Remaining() (section, test int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining, c.testRemaining
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// ClockTickMsg is delivered once per second for generation Gen.
type ClockTickMsg struct {
	Gen  uint64
	Time time.Time
}

// TickCmd schedules the next tick for gen.
func TickCmd(gen uint64) tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return ClockTickMsg{Gen: gen, Time: t}
	})
}

// FormatClock renders seconds as MM:SS, or H:MM:SS past an hour.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
