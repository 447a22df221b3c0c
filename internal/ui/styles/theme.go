// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the exam views.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// FRAME
	// ==========================================================================

	App        lipgloss.Style
	Header     lipgloss.Style
	HeaderName lipgloss.Style
	Section    lipgloss.Style
	Hint       lipgloss.Style
	HintKey    lipgloss.Style

	// ==========================================================================
	// ENTRY
	// ==========================================================================

	Card      lipgloss.Style
	CardTitle lipgloss.Style
	Label     lipgloss.Style
	Input     lipgloss.Style
	Spinner   lipgloss.Style

	// ==========================================================================
	// QUESTION
	// ==========================================================================

	QuestionNumber lipgloss.Style
	QuestionText   lipgloss.Style
	Option         lipgloss.Style
	OptionCursor   lipgloss.Style
	OptionSelected lipgloss.Style
	Score          lipgloss.Style

	// ==========================================================================
	// BANNERS AND OVERLAYS
	// ==========================================================================

	Warning      lipgloss.Style
	ErrorLine    lipgloss.Style
	OverlayBox   lipgloss.Style
	OverlayTitle lipgloss.Style
	Button       lipgloss.Style
	ButtonActive lipgloss.Style

	// ==========================================================================
	// TERMINAL VIEWS
	// ==========================================================================

	Banned    lipgloss.Style
	Completed lipgloss.Style
	Rejected  lipgloss.Style
}

// NewTheme creates a new theme with all styles configured.
func NewTheme() *Theme {
	colorProfile := termenv.ColorProfile()
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle().Padding(0, 1)

	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderName = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.Section = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.Hint = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.HintKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	// Entry
	t.Card = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 3)

	t.CardTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple).
		MarginBottom(1)

	t.Label = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.Input = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)

	// Question
	t.QuestionNumber = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.QuestionText = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Bold(true)

	t.Option = lipgloss.NewStyle().
		Foreground(TextPrimary).
		PaddingLeft(2)

	t.OptionCursor = lipgloss.NewStyle().
		Foreground(Purple).
		Background(SurfaceBright).
		PaddingLeft(2)

	t.OptionSelected = lipgloss.NewStyle().
		Foreground(Purple).
		Background(SurfaceBright).
		Bold(true).
		PaddingLeft(2)

	t.Score = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	// Banners and overlays
	t.Warning = lipgloss.NewStyle().
		Foreground(Amber).
		Background(AmberDeep).
		Bold(true).
		Padding(0, 1)

	t.ErrorLine = lipgloss.NewStyle().
		Foreground(ErrorHighContrast).
		Bold(true)

	t.OverlayBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(Rose).
		Background(SurfaceDim).
		Padding(1, 3)

	t.OverlayTitle = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.Button = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Padding(0, 2)

	t.ButtonActive = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Purple).
		Bold(true).
		Padding(0, 2)

	// Terminal views
	t.Banned = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(RoseDeep).
		BorderStyle(lipgloss.ThickBorder()).
		BorderForeground(Rose).
		Bold(true).
		Padding(1, 4).
		Align(lipgloss.Center)

	t.Completed = lipgloss.NewStyle().
		Foreground(Emerald).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Emerald).
		Padding(1, 4).
		Align(lipgloss.Center)

	t.Rejected = lipgloss.NewStyle().
		Foreground(Amber).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Amber).
		Padding(1, 4).
		Align(lipgloss.Center)
}

// Timer returns the countdown style for remaining seconds.
func (t *Theme) Timer(remaining int) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true).Foreground(TimerColor(remaining))
	if remaining <= TimerCriticalSecs {
		s = s.Blink(true)
	}
	return s
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// ContentWidth is the usable width inside the app padding, never below 20.
func (t *Theme) ContentWidth() int {
	w := t.Width - t.App.GetHorizontalFrameSize()
	if w < 20 {
		return 20
	}
	return w
}
