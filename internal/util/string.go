// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// UNICODE: all helpers count runes or display cells, never bytes, so
// multi-byte characters are never split.

// Ellipsis is appended by the truncating helpers.
const Ellipsis = "..."

// TruncateRunes truncates s to at most maxRunes characters, ending in
// Ellipsis when something was cut and there is room for it.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= len(Ellipsis) {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-len(Ellipsis)]) + Ellipsis
}

// TruncateWidth truncates s to at most maxWidth terminal cells. Wide
// characters (CJK, emoji) count as two.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= len(Ellipsis) {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, Ellipsis)
}

// StringWidth returns the display width of s in terminal cells.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}

// PadRight pads s with spaces to width cells. Wider strings are returned
// unchanged.
func PadRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// Wrap breaks s into lines no wider than width cells, splitting on spaces
// where possible and inside long words otherwise.
func Wrap(s string, width int) []string {
	if width <= 0 {
		return nil
	}
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		var line strings.Builder
		lineWidth := 0
		start := len(lines)
		for _, word := range strings.Fields(para) {
			w := runewidth.StringWidth(word)
			for w > width {
				if lineWidth > 0 {
					lines = append(lines, line.String())
					line.Reset()
					lineWidth = 0
				}
				head := runewidth.Truncate(word, width, "")
				if head == "" {
					// a single rune wider than the line
					head = string([]rune(word)[:1])
				}
				lines = append(lines, head)
				word = strings.TrimPrefix(word, head)
				w = runewidth.StringWidth(word)
			}
			if w == 0 {
				continue
			}
			switch {
			case lineWidth == 0:
			case lineWidth+1+w <= width:
				line.WriteByte(' ')
				lineWidth++
			default:
				lines = append(lines, line.String())
				line.Reset()
				lineWidth = 0
			}
			line.WriteString(word)
			lineWidth += w
		}
		if lineWidth > 0 || len(lines) == start {
			lines = append(lines, line.String())
		}
	}
	return lines
}
