// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package exam

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/proctor-tui/internal/proctor"
	"github.com/jeranaias/proctor-tui/internal/ui/styles"
)

// =============================================================================
// TERMINAL SCREENS
// =============================================================================

// updateCompleted: returning home clears the stored identity at once
// instead of waiting for the scheduled clear.
func (m Model) updateCompleted(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(k, m.keys.Home) || key.Matches(k, m.keys.Quit) {
			m.clearIdentity()
			return m, tea.Quit
		}
	}
	return m, nil
}

// updateClosed serves the ban and rejection screens. Nothing can be
// answered from here.
func (m Model) updateClosed(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(k, m.keys.Quit) || key.Matches(k, m.keys.Cancel) {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) viewBanned() string {
	t := m.theme
	var b strings.Builder
	b.WriteString(t.Banned.Render(styles.StatusIndicators.Error + " Test terminated"))
	b.WriteString("\n\n")
	b.WriteString(t.Label.Render(proctor.MsgBanned))
	if m.reason != "" {
		b.WriteString("\n")
		b.WriteString(t.Hint.Render("Reason: " + m.reason))
	}
	b.WriteString("\n\n")
	switch {
	case m.reported:
		b.WriteString(t.Hint.Render("The proctor has been notified."))
	default:
		b.WriteString(t.Hint.Render("Notifying the proctor..."))
	}
	if !m.quitOnReport {
		b.WriteString("\n\n")
		b.WriteString(m.hints("q", "quit"))
	}
	return m.place(t.Card.Render(b.String()))
}

func (m Model) viewCompleted() string {
	t := m.theme
	var b strings.Builder
	b.WriteString(t.Completed.Render(styles.StatusIndicators.Success + " Test completed"))
	b.WriteString("\n\n")
	b.WriteString(t.Label.Render("Your answers have been submitted. Thank you."))
	if m.snap != nil {
		b.WriteString("\n")
		b.WriteString(t.Score.Render(fmt.Sprintf("Score: %d", m.snap.Progress.TotalScore)))
	}
	b.WriteString("\n\n")
	b.WriteString(m.hints("enter", "home", "q", "quit"))
	return m.place(t.Card.Render(b.String()))
}

func (m Model) viewRejected() string {
	t := m.theme
	var b strings.Builder
	b.WriteString(t.Rejected.Render(styles.StatusIndicators.Error + " Cannot start the test"))
	b.WriteString("\n\n")
	b.WriteString(t.Label.Render(m.reason))
	b.WriteString("\n\n")
	b.WriteString(m.hints("q", "quit"))
	return m.place(t.Card.Render(b.String()))
}
