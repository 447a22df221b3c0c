// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package proctor

import "errors"

// Entry and flow errors. Guard outcomes are never errors; they resolve to a
// Verdict.
var (
	ErrInvalidLink           = errors.New("invalid link: identifier or token is missing")
	ErrExpiredOrInvalidToken = errors.New("invalid or expired test link")
	ErrCannotReachService    = errors.New("cannot connect to server")
	ErrMalformedPasscode     = errors.New("passcode must be exactly 6 digits")
	ErrInvalidPasscode       = errors.New("invalid passcode")
	ErrResendTooSoon         = errors.New("passcode was sent recently, wait before resending")
	ErrRejectedBanned        = errors.New("participant is permanently banned")
	ErrRejectedCompleted     = errors.New("test already completed")
	ErrWrongState            = errors.New("operation not allowed in the current state")

	ErrNoSelection     = errors.New("no answer selected")
	ErrSessionTerminal = errors.New("session is banned or completed")
	ErrTestCompleted   = errors.New("test completed")
	ErrTransient       = errors.New("temporary failure, retry")
)

// User-facing messages.
const (
	MsgInvalidLink       = "Invalid link. Email parameter or token is missing."
	MsgInvalidToken      = "Invalid or expired test link."
	MsgCannotConnect     = "Cannot connect to server. Please try again."
	MsgBanned            = "Your account has been permanently banned from taking tests."
	MsgCompleted         = "Test already completed. You cannot retake the test."
	MsgMalformedPasscode = "Please enter a valid 6-digit OTP"
	MsgInvalidPasscode   = "Invalid OTP. Please try again."
	MsgNoSelection       = "Please select an answer before proceeding"
	MsgLeaveConfirm      = "⚠️ WARNING: Attempting to leave the test is considered malpractice. This will result in permanent ban. Are you sure?"
	MsgBackWarning       = "⚠️ WARNING: Going back is considered malpractice. Next attempt will result in permanent ban."
	MsgReloadWarning     = "⚠️ WARNING: Reloading the page is considered malpractice. This will result in permanent ban."
	MsgFinalizing        = "Time is up! Test completed. Submitting final answers..."
	MsgAutoAdvancing     = "Time is up for this section! Auto-advancing..."
)

// Message maps an AuthGate or QuestionFlow error onto its user-facing text.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidLink):
		return MsgInvalidLink
	case errors.Is(err, ErrExpiredOrInvalidToken):
		return MsgInvalidToken
	case errors.Is(err, ErrCannotReachService), errors.Is(err, ErrTransient):
		return MsgCannotConnect
	case errors.Is(err, ErrMalformedPasscode):
		return MsgMalformedPasscode
	case errors.Is(err, ErrInvalidPasscode):
		return MsgInvalidPasscode
	case errors.Is(err, ErrRejectedBanned):
		return MsgBanned
	case errors.Is(err, ErrRejectedCompleted), errors.Is(err, ErrTestCompleted):
		return MsgCompleted
	case errors.Is(err, ErrNoSelection):
		return MsgNoSelection
	}
	return err.Error()
}
