// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package assessment provides the HTTP client for the Assessment Service.
//
// The service is a request/response JSON API. Every call is a POST to
// /api/<call> and every answer is wrapped in an Envelope carrying success,
// message, code, completed and data.
//
// # Key Types
//
//   - Client: typed wrapper over the seven service calls
//   - ClientError: categorized failure with the service's code attached
//   - CurrentQuestion: question, section, timing and progress snapshot
//
// # Error Handling
//
// Transport failures are ErrTypeUnreachable or ErrTypeTimeout and are safe to
// retry. A success=false answer is ErrTypeRejected with the service code, so
// policy outcomes can be matched directly:
//
//	if errors.Is(err, assessment.ErrBanned) {
//	    // show the permanent ban message
//	}
package assessment
