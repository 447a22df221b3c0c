// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/proctor-tui/internal/ui/styles"
)

// =============================================================================
// CONFIRM OVERLAY - Modal leave confirmation
// =============================================================================

// ConfirmOverlay is a modal two-button prompt. Stay is selected by default
// so a stray Enter never confirms.
type ConfirmOverlay struct {
	visible bool
	title   string
	message string
	leave   bool

	width  int
	height int
	theme  *styles.Theme
}

// ConfirmResultMsg is sent when the overlay is answered.
type ConfirmResultMsg struct {
	Confirmed bool
}

// NewConfirmOverlay creates a hidden overlay.
func NewConfirmOverlay(theme *styles.Theme) ConfirmOverlay {
	return ConfirmOverlay{theme: theme}
}

// SetSize sets the overlay dimensions.
func (o *ConfirmOverlay) SetSize(width, height int) {
	o.width = width
	o.height = height
}

// Show displays the overlay with Stay selected.
func (o *ConfirmOverlay) Show(title, message string) {
	o.visible = true
	o.title = title
	o.message = message
	o.leave = false
}

// Hide hides the overlay.
func (o *ConfirmOverlay) Hide() {
	o.visible = false
}

// IsVisible returns whether the overlay is currently visible.
func (o *ConfirmOverlay) IsVisible() bool {
	return o.visible
}

// LeaveSelected reports whether the Leave button has focus.
func (o *ConfirmOverlay) LeaveSelected() bool {
	return o.leave
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Update handles keys while visible: arrows and tab move between buttons,
// enter answers with the focused one, y and n answer directly, esc stays.
func (o ConfirmOverlay) Update(msg tea.Msg) (ConfirmOverlay, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		o.width = msg.Width
		o.height = msg.Height

	case tea.KeyMsg:
		if !o.visible {
			return o, nil
		}
		switch msg.String() {
		case "left", "right", "tab", "shift+tab", "h", "l":
			o.leave = !o.leave
		case "enter":
			return o.answer(o.leave)
		case "y":
			return o.answer(true)
		case "n", "esc":
			return o.answer(false)
		}
	}
	return o, nil
}

func (o ConfirmOverlay) answer(leave bool) (ConfirmOverlay, tea.Cmd) {
	o.Hide()
	return o, func() tea.Msg {
		return ConfirmResultMsg{Confirmed: leave}
	}
}

// View renders the overlay centered on a dimmed backdrop.
func (o ConfirmOverlay) View() string {
	if !o.visible {
		return ""
	}

	width := o.width
	if width == 0 {
		width = 60
	}
	height := o.height
	if height == 0 {
		height = 24
	}

	maxWidth := width - 8
	if maxWidth < 40 {
		maxWidth = 40
	}
	if maxWidth > 60 {
		maxWidth = 60
	}

	msgStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary).
		Width(maxWidth - 8).
		Align(lipgloss.Center)

	stay, leave := o.button(!o.leave), o.button(o.leave)
	buttons := lipgloss.JoinHorizontal(lipgloss.Center,
		stay.Render("Stay"), "   ", leave.Render("Leave"))

	content := lipgloss.JoinVertical(lipgloss.Center,
		o.theme.OverlayTitle.Render(styles.StatusIndicators.Warning+" "+o.title),
		"",
		msgStyle.Render(o.message),
		"",
		buttons,
		"",
		o.theme.Hint.Render("y leave  n/esc stay"),
	)

	box := o.theme.OverlayBox.
		Width(maxWidth).
		Align(lipgloss.Center).
		Render(content)

	return lipgloss.Place(
		width, height,
		lipgloss.Center, lipgloss.Center,
		box,
		lipgloss.WithWhitespaceBackground(styles.SurfaceDim),
	)
}

func (o ConfirmOverlay) button(active bool) lipgloss.Style {
	if active {
		return o.theme.ButtonActive
	}
	return o.theme.Button
}
