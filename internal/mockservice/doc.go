// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package mockservice is a development Assessment Service that speaks the
// same JSON envelope protocol as the real one.
//
// It generates a question bank, tracks section timers server-side, issues
// TOTP passcodes (logged for the operator instead of mailed), decrypts
// identifier tokens and keeps an idempotent ban list. State lives in a
// Ledger: in memory, in a bbolt file, or in Redis when several servers
// share participants.
//
// Routes:
//
//	POST /api/<call>   the seven service calls
//	GET  /metrics      Prometheus metrics
//	GET  /healthz      liveness
//
// # Usage
//
//	srv, err := mockservice.New(mockservice.Options{Config: cfg.Mock, Log: log})
//	if err != nil {
//	    return err
//	}
//	return srv.ListenAndServe(ctx, cfg.Mock.Listen)
package mockservice
