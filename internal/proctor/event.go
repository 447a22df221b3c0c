// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package proctor

// EventKind is a platform-neutral proctoring signal. The UI layer translates
// terminal input into these.
type EventKind int

const (
	EventUnknown EventKind = iota

	// Clipboard and selection
	EventCopy
	EventCut
	EventPaste
	EventSelect
	EventDragStart
	EventContextMenu

	// Suspicious keys
	EventSelectAll
	EventDevTools
	EventReload

	// Navigation
	EventBack
	EventCloseAttempt

	// Focus
	EventBlur
	EventFocus

	// Fullscreen
	EventFullscreenEnter
	EventFullscreenExit
)

var eventNames = map[EventKind]string{
	EventCopy:            "copy",
	EventCut:             "cut",
	EventPaste:           "paste",
	EventSelect:          "select",
	EventDragStart:       "drag_start",
	EventContextMenu:     "context_menu",
	EventSelectAll:       "select_all",
	EventDevTools:        "devtools",
	EventReload:          "reload",
	EventBack:            "back",
	EventCloseAttempt:    "close_attempt",
	EventBlur:            "blur",
	EventFocus:           "focus",
	EventFullscreenEnter: "fullscreen_enter",
	EventFullscreenExit:  "fullscreen_exit",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return "unknown"
}

// Verdict is what the guards decided about one event.
type Verdict struct {
	// Handled means the event must not reach the answer widgets.
	Handled bool
	// Warning is an in-view message for a first strike.
	Warning string
	// Confirm is a leave-confirmation prompt to show modally.
	Confirm string
	// Banned is true when the session is banned after this event.
	Banned bool
	// Block asks the view to show the fullscreen re-entry prompt.
	Block bool
}

func (v Verdict) merge(o Verdict) Verdict {
	v.Handled = v.Handled || o.Handled
	v.Banned = v.Banned || o.Banned
	v.Block = v.Block || o.Block
	if o.Warning != "" {
		v.Warning = o.Warning
	}
	if o.Confirm != "" {
		v.Confirm = o.Confirm
	}
	return v
}
