// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jeranaias/proctor-tui/internal/proctor"
	"github.com/jeranaias/proctor-tui/internal/ui/styles"
	"github.com/jeranaias/proctor-tui/internal/util"
)

// =============================================================================
// HEADER COMPONENT - Exam title bar with section position and countdown
// =============================================================================

// Header is the single-line bar above the question.
type Header struct {
	Title         string
	Student       string
	SectionName   string
	SectionID     int
	TotalSections int
	QuestionNum   int
	QuestionTotal int
	Remaining     int
	Width         int
	theme         *styles.Theme
}

// NewHeader creates a Header with default values.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Title: "proctor",
		Width: 80,
		theme: theme,
	}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// SetPosition copies the section and question position from a snapshot.
func (h *Header) SetPosition(snap *proctor.Snapshot) {
	if snap == nil {
		return
	}
	h.SectionName = snap.Section.Name
	h.SectionID = snap.Progress.CurrentSectionID
	h.TotalSections = snap.Progress.TotalSections
	h.QuestionNum = snap.Progress.CurrentQuestionNumber
	h.QuestionTotal = snap.Progress.TotalQuestionsInSection
}

// Position renders "Section 2/3 - Q 4/5".
func (h *Header) Position() string {
	var parts []string
	if h.TotalSections > 0 {
		parts = append(parts, fmt.Sprintf("Section %d/%d", h.SectionID, h.TotalSections))
	}
	if h.QuestionTotal > 0 {
		parts = append(parts, fmt.Sprintf("Q %d/%d", h.QuestionNum, h.QuestionTotal))
	}
	return strings.Join(parts, " - ")
}

// View renders the header. The clock stays right-aligned and the section
// name is truncated first when space runs out.
func (h *Header) View() string {
	width := h.Width
	if width < 40 {
		width = 40
	}
	inner := width - h.theme.Header.GetHorizontalFrameSize()

	left := h.theme.HeaderName.Render(h.Title)
	if h.Student != "" {
		left += " " + h.theme.Hint.Render(h.Student)
	}

	clock := "[" + proctor.FormatClock(h.Remaining) + "]"
	right := h.Position() + "  " + h.theme.Timer(h.Remaining).Render(clock)

	room := inner - lipgloss.Width(left) - lipgloss.Width(right) - 4
	if h.SectionName != "" && room > 0 {
		left += "  " + h.theme.Section.Render(util.TruncateWidth(h.SectionName, room))
	}

	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return h.theme.Header.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}
