// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides local persistence for the proctor client.
//
// A single SQLite database (pure Go driver) holds two tables: a key/value
// table standing in for the browser's keyed storage, and an append-only
// audit trail of proctoring events.
//
// # Key Types
//
//   - KV: the key/value contract consumed by the session package
//   - Store: SQLite-backed KV plus the audit trail
//   - MemoryKV: in-process KV for tests and ephemeral runs
//   - AuditEvent: one recorded proctoring event
//
// # Usage
//
//	store, err := storage.Open(path)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//	err = store.Set(ctx, "studentEmail", "a@x.com")
//
// # Storage Location
//
// The database lives at ~/.proctor/proctor.db unless storage.path is set.
package storage
