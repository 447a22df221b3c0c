// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package exam

import "github.com/jeranaias/proctor-tui/internal/proctor"

// =============================================================================
// ENTRY MESSAGES
// =============================================================================

// entryMsg ends the validate, status and send-passcode sequence.
type entryMsg struct {
	err error
}

// verifyMsg ends a passcode verification or fullscreen confirmation.
type verifyMsg struct {
	err error
}

// resendMsg ends a passcode resend.
type resendMsg struct {
	err error
}

// =============================================================================
// TEST MESSAGES
// =============================================================================

// testStatusMsg ends the status re-check on entry to the test view.
type testStatusMsg struct {
	err error
}

// questionMsg delivers a fetched snapshot.
type questionMsg struct {
	snap *proctor.Snapshot
	err  error
}

// submitMsg ends an answer submission.
type submitMsg struct {
	questionID int
	selected   int
	outcome    proctor.Outcome
	err        error
}

// advanceMsg fires after the advance delay following a section expiry.
type advanceMsg struct{}

// finalizeMsg fires after the grace period following the final expiry.
type finalizeMsg struct{}

// banReportedMsg is sent once the ban-user call has finished either way.
type banReportedMsg struct{}

// clipboardScrubbedMsg ends a clipboard scrub.
type clipboardScrubbedMsg struct {
	err error
}

// =============================================================================
// EXTERNAL MESSAGES
// =============================================================================

// SignalMsg is sent by the host when the process receives a termination
// signal. Hangup means the terminal itself is gone.
type SignalMsg struct {
	Hangup bool
}
