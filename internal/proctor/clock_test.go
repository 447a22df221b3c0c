// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package proctor

import (
	"testing"

	"github.com/jeranaias/proctor-tui/internal/assessment"
)

func seed(c *Clock, remaining, section, total int) uint64 {
	return c.Seed(
		assessment.Timing{SectionTimeRemaining: remaining, TestTimeRemaining: remaining * 2},
		assessment.Progress{CurrentSectionID: section, TotalSections: total},
	)
}

func TestClock_ExpiryFiresExactlyOnce(t *testing.T) {
	c := NewClock()
	gen := seed(c, 3, 1, 3)

	var actions []ClockAction
	for i := 0; i < 10; i++ {
		if _, a := c.Tick(gen); a != ActionNone {
			actions = append(actions, a)
		}
	}
	if len(actions) != 1 || actions[0] != ActionAdvance {
		t.Fatalf("actions = %v, want exactly one ActionAdvance", actions)
	}
	if got := c.State(); got != ClockAutoAdvancing {
		t.Errorf("State() = %s, want %s", got, ClockAutoAdvancing)
	}
}

func TestClock_LastSectionFinalizes(t *testing.T) {
	c := NewClock()
	gen := seed(c, 1, 3, 3)
	if _, a := c.Tick(gen); a != ActionFinalize {
		t.Errorf("Tick() action = %v, want ActionFinalize", a)
	}
}

func TestClock_ZeroRemainingExpiresOnFirstTick(t *testing.T) {
	c := NewClock()
	gen := seed(c, 0, 1, 2)
	if rem, a := c.Tick(gen); rem != 0 || a != ActionAdvance {
		t.Errorf("Tick() = (%d, %v), want (0, ActionAdvance)", rem, a)
	}
}

func TestClock_StaleGenerationIgnored(t *testing.T) {
	c := NewClock()
	old := seed(c, 10, 1, 3)
	cur := seed(c, 10, 1, 3)
	if old == cur {
		t.Fatal("reseed must start a new generation")
	}

	for i := 0; i < 20; i++ {
		if _, a := c.Tick(old); a != ActionNone {
			t.Fatalf("stale tick produced action %v", a)
		}
	}
	if sec, _ := c.Remaining(); sec != 10 {
		t.Errorf("Remaining() = %d, want 10 (stale ticks must not count)", sec)
	}

	if rem, _ := c.Tick(cur); rem != 9 {
		t.Errorf("Tick(current) remaining = %d, want 9", rem)
	}
}

func TestClock_CancelStopsCountdown(t *testing.T) {
	c := NewClock()
	gen := seed(c, 2, 1, 3)
	c.Cancel()

	if got := c.State(); got != ClockIdle {
		t.Errorf("State() = %s, want idle", got)
	}
	for i := 0; i < 5; i++ {
		if _, a := c.Tick(gen); a != ActionNone {
			t.Fatalf("tick after cancel produced action %v", a)
		}
	}
}

func TestClock_TerminalStatesAreFinal(t *testing.T) {
	c := NewClock()
	gen := seed(c, 5, 1, 3)
	if !c.Ban() {
		t.Fatal("Ban() from active should succeed")
	}
	if c.Ban() || c.Complete() {
		t.Error("no transition may leave Banned")
	}
	if g := seed(c, 5, 1, 3); g != 0 {
		t.Errorf("Seed() on banned clock = %d, want 0", g)
	}
	if _, a := c.Tick(gen); a != ActionNone {
		t.Errorf("Tick() on banned clock = %v, want ActionNone", a)
	}
	if !c.State().Terminal() {
		t.Error("banned must be terminal")
	}
}

func TestClock_ReseedAfterAutoAdvance(t *testing.T) {
	c := NewClock()
	gen := seed(c, 1, 1, 2)
	c.Tick(gen)

	next := seed(c, 300, 2, 2)
	if next == 0 || c.State() != ClockActive {
		t.Fatalf("reseed from auto_advancing failed: gen=%d state=%s", next, c.State())
	}
	if sec, test := c.Remaining(); sec != 300 || test != 600 {
		t.Errorf("Remaining() = (%d, %d), want (300, 600)", sec, test)
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "00:00"},
		{-3, "00:00"},
		{59, "00:59"},
		{65, "01:05"},
		{3600, "1:00:00"},
		{3661, "1:01:01"},
	}
	for _, tt := range tests {
		if got := FormatClock(tt.seconds); got != tt.want {
			t.Errorf("FormatClock(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestTickCmd(t *testing.T) {
	if TickCmd(1) == nil {
		t.Error("TickCmd() returned nil")
	}
}
