// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jeranaias/proctor-tui/internal/assessment"
	"github.com/jeranaias/proctor-tui/internal/ui/styles"
)

// =============================================================================
// HEADER TESTS
// =============================================================================

func TestHeaderPosition(t *testing.T) {
	h := NewHeader(styles.NewTheme())
	if got := h.Position(); got != "" {
		t.Errorf("Position() before a snapshot = %q, want empty", got)
	}

	h.SetPosition(&assessment.CurrentQuestion{
		Section: assessment.Section{Name: "Quantitative Aptitude"},
		Progress: assessment.Progress{
			CurrentSectionID:        2,
			TotalSections:           3,
			CurrentQuestionNumber:   4,
			TotalQuestionsInSection: 5,
		},
	})
	if got := h.Position(); got != "Section 2/3 - Q 4/5" {
		t.Errorf("Position() = %q, want %q", got, "Section 2/3 - Q 4/5")
	}
	h.SetPosition(nil)
	if h.SectionID != 2 {
		t.Error("SetPosition(nil) should keep the previous position")
	}
}

func TestHeaderView(t *testing.T) {
	h := NewHeader(styles.NewTheme())
	h.Student = "ada"
	h.SectionName = "Logical Reasoning"
	h.Remaining = 95
	h.SetWidth(80)

	view := h.View()
	for _, want := range []string{"proctor", "ada", "[01:35]"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() = %q, missing %q", view, want)
		}
	}
}

func TestHeaderView_NarrowTruncatesSection(t *testing.T) {
	h := NewHeader(styles.NewTheme())
	h.SectionName = strings.Repeat("Very Long Section Name ", 10)
	h.Remaining = 30
	h.SetWidth(40)

	view := h.View()
	if !strings.Contains(view, "[00:30]") {
		t.Errorf("View() dropped the clock: %q", view)
	}
	if strings.Contains(view, h.SectionName) {
		t.Error("View() should truncate a section name that does not fit")
	}
}

// =============================================================================
// CONFIRM OVERLAY TESTS
// =============================================================================

func answer(t *testing.T, o ConfirmOverlay, keys ...tea.KeyMsg) (ConfirmOverlay, *ConfirmResultMsg) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		o, cmd = o.Update(k)
	}
	if cmd == nil {
		return o, nil
	}
	msg, ok := cmd().(ConfirmResultMsg)
	if !ok {
		t.Fatalf("cmd returned %T, want ConfirmResultMsg", cmd())
	}
	return o, &msg
}

func TestConfirmOverlay_DefaultsToStay(t *testing.T) {
	o := NewConfirmOverlay(styles.NewTheme())
	o.Show("Leave the test?", "Are you sure?")
	if !o.IsVisible() || o.LeaveSelected() {
		t.Fatal("Show() should be visible with Stay selected")
	}

	o, res := answer(t, o, tea.KeyMsg{Type: tea.KeyEnter})
	if res == nil || res.Confirmed {
		t.Errorf("enter on default = %+v, want Confirmed=false", res)
	}
	if o.IsVisible() {
		t.Error("answering should hide the overlay")
	}
}

func TestConfirmOverlay_Keys(t *testing.T) {
	tests := []struct {
		name string
		keys []tea.KeyMsg
		want bool
	}{
		{"y leaves", []tea.KeyMsg{{Type: tea.KeyRunes, Runes: []rune("y")}}, true},
		{"n stays", []tea.KeyMsg{{Type: tea.KeyRunes, Runes: []rune("n")}}, false},
		{"esc stays", []tea.KeyMsg{{Type: tea.KeyEsc}}, false},
		{"right then enter leaves", []tea.KeyMsg{{Type: tea.KeyRight}, {Type: tea.KeyEnter}}, true},
		{"tab twice then enter stays", []tea.KeyMsg{{Type: tea.KeyTab}, {Type: tea.KeyTab}, {Type: tea.KeyEnter}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewConfirmOverlay(styles.NewTheme())
			o.Show("t", "m")
			_, res := answer(t, o, tt.keys...)
			if res == nil {
				t.Fatal("no answer produced")
			}
			if res.Confirmed != tt.want {
				t.Errorf("Confirmed = %v, want %v", res.Confirmed, tt.want)
			}
		})
	}
}

func TestConfirmOverlay_HiddenIgnoresKeys(t *testing.T) {
	o := NewConfirmOverlay(styles.NewTheme())
	if _, cmd := o.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")}); cmd != nil {
		t.Error("hidden overlay should not answer")
	}
	if o.View() != "" {
		t.Error("hidden overlay should render nothing")
	}
}

func TestConfirmOverlay_View(t *testing.T) {
	o := NewConfirmOverlay(styles.NewTheme())
	o.SetSize(80, 24)
	o.Show("Leave the test?", "This will result in permanent ban.")
	view := o.View()
	for _, want := range []string{"Leave the test?", "Stay", "Leave", "permanent ban"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}
