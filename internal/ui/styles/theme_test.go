// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// THEME CREATION TESTS
// =============================================================================

func TestNewTheme(t *testing.T) {
	theme := NewTheme()
	if theme == nil {
		t.Fatal("NewTheme() returned nil")
	}

	styles := []struct {
		name  string
		style lipgloss.Style
	}{
		{"Header", theme.Header},
		{"Card", theme.Card},
		{"QuestionText", theme.QuestionText},
		{"OptionSelected", theme.OptionSelected},
		{"Warning", theme.Warning},
		{"OverlayBox", theme.OverlayBox},
		{"Banned", theme.Banned},
		{"Completed", theme.Completed},
	}

	for _, s := range styles {
		if s.style.Render("test") == "" {
			t.Errorf("%s style should be initialized", s.name)
		}
	}
}

// =============================================================================
// LAYOUT TESTS
// =============================================================================

func TestThemeContentWidth(t *testing.T) {
	theme := NewTheme()

	tests := []struct {
		width int
		want  int
	}{
		{80, 78},
		{120, 118},
		{10, 20},
		{0, 20},
	}

	for _, tt := range tests {
		theme.SetSize(tt.width, 24)
		if got := theme.ContentWidth(); got != tt.want {
			t.Errorf("ContentWidth() at %d = %d, want %d", tt.width, got, tt.want)
		}
	}
}

func TestThemeTimerBlinksWhenCritical(t *testing.T) {
	theme := NewTheme()
	if !theme.Timer(TimerCriticalSecs).GetBlink() {
		t.Error("Timer() in the final minute should blink")
	}
	if theme.Timer(TimerLowSecs).GetBlink() {
		t.Error("Timer() above the final minute should not blink")
	}
}
