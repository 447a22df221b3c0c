// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package proctor

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Guard is one independently registered proctoring observer.
type Guard interface {
	Name() string
	Handles(kind EventKind) bool
	Handle(ctx context.Context, ev EventKind) Verdict
}

// GuardConfig carries the dependencies every guard shares.
type GuardConfig struct {
	Session *Session
	Ban     *BanEscalator
	Audit   Auditor
	Log     zerolog.Logger
}

// =============================================================================
// VIOLATION MONITOR
// =============================================================================

// ViolationMonitor applies the two-strike policy to clipboard, selection,
// context-menu and suspicious-key events.
type ViolationMonitor struct {
	GuardConfig
	threshold int
	// OnClipboard runs for intercepted copy/cut so the view can scrub the
	// system clipboard.
	OnClipboard func()
}

// NewViolationMonitor creates the monitor. threshold < 1 defaults to 2.
func NewViolationMonitor(cfg GuardConfig, threshold int) *ViolationMonitor {
	if threshold < 1 {
		threshold = 2
	}
	cfg.Log = cfg.Log.With().Str("guard", "violation").Logger()
	return &ViolationMonitor{GuardConfig: cfg, threshold: threshold}
}

func (g *ViolationMonitor) Name() string { return "violation" }

func (g *ViolationMonitor) Handles(kind EventKind) bool {
	switch kind {
	case EventCopy, EventCut, EventPaste, EventSelect, EventDragStart, EventContextMenu,
		EventSelectAll, EventDevTools, EventReload:
		return true
	}
	return false
}

// Handle swallows the event and counts it. The first strikes warn, the
// threshold bans.
func (g *ViolationMonitor) Handle(ctx context.Context, ev EventKind) Verdict {
	v := Verdict{Handled: true}
	if !g.Session.Monitoring() {
		v.Banned = g.Session.Banned()
		return v
	}
	if (ev == EventCopy || ev == EventCut) && g.OnClipboard != nil {
		g.OnClipboard()
	}

	n := g.Session.incViolation()
	g.Log.Warn().Str("event", ev.String()).Int("count", n).Int("threshold", g.threshold).Msg("violation detected")
	record(ctx, g.Audit, g.Log, g.Session, "violation", ev.String(), n)

	if n >= g.threshold {
		g.Ban.Trip(fmt.Sprintf("violation limit reached (%s)", ev))
		v.Banned = true
		return v
	}
	if ev == EventReload {
		v.Warning = MsgReloadWarning
	} else {
		v.Warning = ViolationWarning(n, g.threshold)
	}
	return v
}

// ViolationWarning is the first-strike text for violation n of threshold.
func ViolationWarning(n, threshold int) string {
	return fmt.Sprintf("⚠️ Security Warning: Copy-paste detected! Attempt %d/%d. Next violation will result in permanent ban.", n, threshold)
}

// =============================================================================
// NAVIGATION GUARD
// =============================================================================

// NavigationGuard applies the two-strike policy to back and close attempts.
// Its counter is independent of the ViolationMonitor's.
type NavigationGuard struct {
	GuardConfig
	threshold int
}

// NewNavigationGuard creates the guard. threshold < 1 defaults to 2.
func NewNavigationGuard(cfg GuardConfig, threshold int) *NavigationGuard {
	if threshold < 1 {
		threshold = 2
	}
	cfg.Log = cfg.Log.With().Str("guard", "navigation").Logger()
	return &NavigationGuard{GuardConfig: cfg, threshold: threshold}
}

func (g *NavigationGuard) Name() string { return "navigation" }

func (g *NavigationGuard) Handles(kind EventKind) bool {
	return kind == EventBack || kind == EventCloseAttempt
}

// Handle intercepts the attempt. A close attempt below the threshold asks
// for confirmation; a back attempt stays on the question and warns.
func (g *NavigationGuard) Handle(ctx context.Context, ev EventKind) Verdict {
	v := Verdict{Handled: true}
	if !g.Session.Monitoring() {
		v.Banned = g.Session.Banned()
		return v
	}

	n := g.Session.incNavigation()
	g.Log.Warn().Str("event", ev.String()).Int("count", n).Msg("navigation attempt")
	record(ctx, g.Audit, g.Log, g.Session, "navigation", ev.String(), n)

	if n >= g.threshold {
		g.Ban.Trip(fmt.Sprintf("navigation limit reached (%s)", ev))
		v.Banned = true
		return v
	}
	if ev == EventCloseAttempt {
		v.Confirm = MsgLeaveConfirm
	} else {
		v.Warning = MsgBackWarning
	}
	return v
}

// =============================================================================
// FOCUS GUARD
// =============================================================================

// FocusGuard bans on the first loss of focus. A focus-loss episode is
// handled once; the flag resets when focus returns.
type FocusGuard struct {
	GuardConfig

	mu      sync.Mutex
	handled bool
}

// NewFocusGuard creates the guard.
func NewFocusGuard(cfg GuardConfig) *FocusGuard {
	cfg.Log = cfg.Log.With().Str("guard", "focus").Logger()
	return &FocusGuard{GuardConfig: cfg}
}

func (g *FocusGuard) Name() string { return "focus" }

func (g *FocusGuard) Handles(kind EventKind) bool {
	return kind == EventBlur || kind == EventFocus
}

func (g *FocusGuard) Handle(ctx context.Context, ev EventKind) Verdict {
	g.mu.Lock()
	if ev == EventFocus {
		g.handled = false
		g.mu.Unlock()
		return Verdict{Banned: g.Session.Banned()}
	}
	if g.handled || !g.Session.Monitoring() {
		g.mu.Unlock()
		return Verdict{Handled: true, Banned: g.Session.Banned()}
	}
	g.handled = true
	g.mu.Unlock()

	g.Log.Warn().Msg("focus lost during test")
	record(ctx, g.Audit, g.Log, g.Session, "focus_loss", "", 0)
	g.Ban.Trip("focus lost")
	return Verdict{Handled: true, Banned: true}
}

// =============================================================================
// FULLSCREEN GUARD
// =============================================================================

// FullscreenGuard tracks whether the terminal qualifies as fullscreen.
// Leaving fullscreen before the test starts only blocks; leaving it during
// the test bans.
type FullscreenGuard struct {
	GuardConfig

	mu           sync.Mutex
	inFullscreen bool
}

// NewFullscreenGuard creates the guard with the currently observed state.
func NewFullscreenGuard(cfg GuardConfig, inFullscreen bool) *FullscreenGuard {
	cfg.Log = cfg.Log.With().Str("guard", "fullscreen").Logger()
	return &FullscreenGuard{GuardConfig: cfg, inFullscreen: inFullscreen}
}

func (g *FullscreenGuard) Name() string { return "fullscreen" }

func (g *FullscreenGuard) Handles(kind EventKind) bool {
	return kind == EventFullscreenEnter || kind == EventFullscreenExit
}

// InFullscreen reports the last observed state.
func (g *FullscreenGuard) InFullscreen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFullscreen
}

// Handle records the transition. Only InFullscreen -> NotInFullscreen while
// monitoring bans; every other non-fullscreen state asks the view to block.
func (g *FullscreenGuard) Handle(ctx context.Context, ev EventKind) Verdict {
	g.mu.Lock()
	was := g.inFullscreen
	g.inFullscreen = ev == EventFullscreenEnter
	now := g.inFullscreen
	g.mu.Unlock()

	if now {
		return Verdict{Banned: g.Session.Banned()}
	}
	if was && g.Session.Monitoring() {
		g.Log.Warn().Msg("fullscreen exited during test")
		record(ctx, g.Audit, g.Log, g.Session, "fullscreen_exit", "", 0)
		g.Ban.Trip("fullscreen exited")
		return Verdict{Handled: true, Banned: true}
	}
	return Verdict{Block: !g.Session.Terminal(), Banned: g.Session.Banned()}
}
