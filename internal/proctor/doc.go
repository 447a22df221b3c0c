// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package proctor implements the assessment session: entry authorization,
// the integrity guards, the section clock and the ordered question flow.
//
// Everything here is independent of the terminal. The UI translates key,
// mouse, focus and resize input into EventKind values and hands them to a
// Controller, which offers each event to the registered guards and merges
// their Verdicts.
//
// # Key Types
//
//   - AuthGate: credential -> status check -> passcode -> fullscreen -> authorized
//   - Session: per-attempt flags and strike counters
//   - Controller: guard registration and event dispatch
//   - BanEscalator: the single, idempotent terminal transition
//   - Clock: generation-guarded section countdown
//   - Flow: snapshot fetch and answer submission
//
// # Bans
//
// A ban is split in two. Trip is local and synchronous: it sets the flag,
// clears the stored identity, deregisters the guards and stops the clock.
// Report sends the ban-user call once and ignores the outcome. The UI runs
// Report as a command so the event loop never waits on the network.
//
// # Usage
//
//	sess := proctor.NewSession(identity)
//	ban := proctor.NewBanEscalator(sess, client, ids, store, log)
//	ctrl := proctor.NewController(sess, ban, log)
//	cfg := proctor.GuardConfig{Session: sess, Ban: ban, Audit: store, Log: log}
//	ctrl.Activate(
//	    proctor.NewFullscreenGuard(cfg, true),
//	    proctor.NewViolationMonitor(cfg, 2),
//	    proctor.NewNavigationGuard(cfg, 2),
//	    proctor.NewFocusGuard(cfg),
//	)
//	verdict := ctrl.Dispatch(ctx, proctor.EventCopy)
package proctor
