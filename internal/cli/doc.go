// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the proctor command tree.
//
// Commands:
//
//	start        Take a proctored test (--email or --token)
//	mock-server  Run the development Assessment Service
//	status       Show a participant's ban and completion status
//	config       show | path | init
//	reset        Forget the stored participant
//
// Every command returns its error; Execute prints it once and maps it onto
// an exit code (see ExitCode).
package cli
