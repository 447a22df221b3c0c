// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the authenticated participant's identity across the
// entry, test and completion views.
//
// The identity is the only continuation token the client keeps. It is
// written when the passcode is verified, read when the test and completion
// views open, and cleared on a ban or after completion.
//
// # Key Types
//
//   - Store: identity persistence over a storage.KV
//
// # Usage
//
//	store := session.NewStore(kv, logger)
//	_ = store.SaveIdentity(ctx, "a@x.com")
//	id, err := store.Identity(ctx)
//	store.ClearAfter(5 * time.Second)
package session
