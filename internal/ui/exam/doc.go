// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package exam is the Bubble Tea program a participant runs to take a
// proctored test.
//
// The model moves through five screens. Entry validates the test link and
// verifies the emailed passcode. Test shows one question at a time under
// the section countdown while the proctoring guards watch terminal input.
// Banned, Completed and Rejected are terminal.
//
// Terminal input is translated into proctor events before any answer
// binding sees it: clipboard and browser-style shortcuts, mouse drags and
// right clicks, focus reports, and the terminal shrinking below its minimum
// size. The host program forwards process signals as SignalMsg.
package exam
