// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides reusable UI components for the proctor TUI.

Header (header.go) - Single-line exam bar: student, section name, position
and a countdown that changes color as the section runs out.

ConfirmOverlay (confirm_overlay.go) - Modal Stay/Leave prompt shown for a
close attempt. It answers with a ConfirmResultMsg.

	overlay := components.NewConfirmOverlay(theme)
	overlay.Show("Leave the test?", proctor.MsgLeaveConfirm)
	overlay, cmd = overlay.Update(msg)
*/
package components
