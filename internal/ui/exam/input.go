// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package exam

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jeranaias/proctor-tui/internal/proctor"
)

// =============================================================================
// INPUT TRANSLATION
// =============================================================================

// keyEvents maps terminal keys onto the browser shortcuts they stand in for.
var keyEvents = map[string]proctor.EventKind{
	"ctrl+c": proctor.EventCopy,
	"ctrl+x": proctor.EventCut,
	"ctrl+v": proctor.EventPaste,
	"ctrl+a": proctor.EventSelectAll,
	"ctrl+u": proctor.EventDevTools,
	"f12":    proctor.EventDevTools,
	"ctrl+r": proctor.EventReload,
	"f5":     proctor.EventReload,

	"esc":       proctor.EventBack,
	"alt+left":  proctor.EventBack,
	"backspace": proctor.EventBack,

	"ctrl+q": proctor.EventCloseAttempt,
	"ctrl+w": proctor.EventCloseAttempt,
	"ctrl+d": proctor.EventCloseAttempt,
}

// TranslateKey returns the proctoring event for a key press, or
// EventUnknown for ordinary keys. A bracketed paste is always EventPaste.
func TranslateKey(msg tea.KeyMsg) proctor.EventKind {
	if msg.Paste {
		return proctor.EventPaste
	}
	if ev, ok := keyEvents[msg.String()]; ok {
		return ev
	}
	return proctor.EventUnknown
}

// mouseTracker turns mouse reports into selection events. A drag is
// reported once, on its first motion with the left button held.
type mouseTracker struct {
	dragging bool
}

// translate returns the event for msg, or EventUnknown.
func (t *mouseTracker) translate(msg tea.MouseMsg) proctor.EventKind {
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonRight {
			return proctor.EventContextMenu
		}
	case tea.MouseActionMotion:
		if msg.Button == tea.MouseButtonLeft && !t.dragging {
			t.dragging = true
			return proctor.EventDragStart
		}
	case tea.MouseActionRelease:
		t.dragging = false
	}
	return proctor.EventUnknown
}

// focusEvent translates terminal focus reports.
func focusEvent(msg tea.Msg) proctor.EventKind {
	switch msg.(type) {
	case tea.BlurMsg:
		return proctor.EventBlur
	case tea.FocusMsg:
		return proctor.EventFocus
	}
	return proctor.EventUnknown
}

// fullscreenEvent is the transition for a size change, or EventUnknown when
// the qualifying state did not change.
func fullscreenEvent(was, now bool) proctor.EventKind {
	switch {
	case was == now:
		return proctor.EventUnknown
	case now:
		return proctor.EventFullscreenEnter
	}
	return proctor.EventFullscreenExit
}
