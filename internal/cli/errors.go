// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Unified error handling for the proctor commands.
//
// Commands always return errors and never print-and-swallow them. Execute
// prints the error once and maps it onto an exit code.

package cli

import (
	"errors"
	"fmt"

	"github.com/jeranaias/proctor-tui/internal/assessment"
	"github.com/jeranaias/proctor-tui/internal/config"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitError indicates a general error
	ExitError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates a configuration file or settings error
	ExitConfigError = 3
	// ExitNetworkError indicates the Assessment Service could not be reached
	ExitNetworkError = 5
	// ExitBanned indicates the test session ended in a ban
	ExitBanned = 10
)

// ErrBanned is returned by start when the attempt ended in a ban.
var ErrBanned = errors.New("test session terminated: participant banned")

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "status", "config")
	Action  string // Action being performed (e.g., "show", "init")
	Reason  string // Human-readable reason
	Err     error  // Underlying error (if any)
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// UsageError is invalid input caught before any work is done.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// NewCommandError creates a new command error.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{
		Command: command,
		Action:  action,
		Reason:  reason,
		Err:     err,
	}
}

// ExitCode maps err onto the process exit status.
func ExitCode(err error) int {
	var usage *UsageError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrBanned):
		return ExitBanned
	case errors.As(err, &usage):
		return ExitUsageError
	case config.IsValidationError(err):
		return ExitConfigError
	case assessment.IsTransient(err):
		return ExitNetworkError
	}
	return ExitError
}
