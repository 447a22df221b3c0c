// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package exam

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines the answer and entry bindings. Proctoring keys (copy,
// paste, reload, back, close) are not bindings: they are translated into
// proctor events before the map is consulted.
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Choose key.Binding
	Pick   key.Binding
	Submit key.Binding
	Retry  key.Binding
	Resend key.Binding
	Cancel key.Binding
	Home   key.Binding
	Quit   key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "previous option"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next option"),
		),
		Choose: key.NewBinding(
			key.WithKeys(" ", "x"),
			key.WithHelp("space", "select"),
		),
		Pick: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "select option"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry"),
		),
		Resend: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "resend code"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Home: key.NewBinding(
			key.WithKeys("enter", "h"),
			key.WithHelp("enter", "return home"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown under a question.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Pick, k.Submit}
}

// FullHelp groups every binding.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Choose, k.Pick, k.Submit},
		{k.Retry, k.Resend, k.Cancel, k.Home, k.Quit},
	}
}

// entryHelp is shown on the passcode screen.
func (k KeyMap) entryHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Resend, k.Cancel}
}
