// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package assessment provides the HTTP client for the Assessment Service.
package assessment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Assessment Service client.
type ClientError struct {
	Type    ErrorType
	Message string
	// Code is the service failure code, when the service supplied one
	Code  string
	Cause error
}

func (e *ClientError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches sentinel errors by Type so callers can use errors.Is.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Code == "" || t.Code == e.Code)
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	// ErrTypeUnreachable means the service could not be contacted
	ErrTypeUnreachable
	ErrTypeTimeout
	// ErrTypeRejected means the service answered success=false
	ErrTypeRejected
	ErrTypeInvalidResponse
)

func (t ErrorType) String() string {
	switch t {
	case ErrTypeUnreachable:
		return "unreachable"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeRejected:
		return "rejected"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	}
	return "unknown"
}

// Sentinel errors for easy checking.
var (
	ErrUnreachable = &ClientError{Type: ErrTypeUnreachable, Message: "assessment service unreachable"}
	ErrTimeout     = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrRejected    = &ClientError{Type: ErrTypeRejected, Message: "request rejected"}
	ErrBanned      = &ClientError{Type: ErrTypeRejected, Code: CodeUserBanned, Message: "user banned"}
	ErrCompleted   = &ClientError{Type: ErrTypeRejected, Code: CodeTestAlreadyCompleted, Message: "test already completed"}
	ErrOutOfOrder  = &ClientError{Type: ErrTypeRejected, Code: CodeOutOfOrder, Message: "answer out of order"}
)

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	var ce *ClientError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Type == ErrTypeUnreachable || ce.Type == ErrTypeTimeout || ce.Type == ErrTypeInvalidResponse
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the client.
type ClientConfig struct {
	// BaseURL is the service root (default: http://localhost:5001)
	BaseURL string

	// Timeout for each request (default: 15s)
	Timeout time.Duration

	// HTTPClient overrides the transport, mainly for tests
	HTTPClient *http.Client
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL: "http://localhost:5001",
		Timeout: 15 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the Assessment Service. Every call is a JSON POST to
// BaseURL + "/api/<call>" answered with an Envelope.
//
// The Client is safe for concurrent use.
//
// Example:
//
//	client := assessment.NewClient("http://localhost:5001")
//	status, err := client.CheckTestStatus(ctx, "a@x.com")
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a client for baseURL with default settings.
func NewClient(baseURL string) *Client {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	return NewClientWithConfig(cfg)
}

// NewClientWithConfig creates a client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:5001"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	return &Client{config: config, httpClient: httpClient}
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// CALLS
// =============================================================================

// ValidateEncryptedEmail exchanges an opaque token for the identifier it carries.
func (c *Client) ValidateEncryptedEmail(ctx context.Context, token string) (string, error) {
	var data ValidateTokenData
	if _, err := c.call(ctx, "validate-encrypted-email", ValidateTokenRequest{Token: token}, &data); err != nil {
		return "", err
	}
	if data.Email == "" {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "token resolved to an empty email"}
	}
	return data.Email, nil
}

// CheckTestStatus reports whether email is banned or has already finished.
func (c *Client) CheckTestStatus(ctx context.Context, email string) (*TestStatus, error) {
	var data TestStatus
	if _, err := c.call(ctx, "check-test-status", EmailRequest{Email: email}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// SendOTP asks the service to issue a passcode to email.
func (c *Client) SendOTP(ctx context.Context, email, studentName string) error {
	_, err := c.call(ctx, "send-otp", SendOTPRequest{Email: email, StudentName: studentName}, nil)
	return err
}

// VerifyOTP checks a passcode. Policy rejections surface as ErrBanned or
// ErrCompleted (compare with errors.Is).
func (c *Client) VerifyOTP(ctx context.Context, email, otp, studentName string) error {
	_, err := c.call(ctx, "verify-otp", VerifyOTPRequest{Email: email, OTP: otp, StudentName: studentName}, nil)
	return err
}

// CurrentQuestion fetches the participant's current snapshot. When the
// service reports the test as finished, it returns (nil, true, nil).
func (c *Client) CurrentQuestion(ctx context.Context, email string) (*CurrentQuestion, bool, error) {
	var data CurrentQuestion
	env, err := c.call(ctx, "current-question", EmailRequest{Email: email}, &data)
	if env != nil && env.Completed {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &data, false, nil
}

// SubmitResponse records an answer and returns the updated progress.
func (c *Client) SubmitResponse(ctx context.Context, req ResponseRequest) (*SessionProgress, error) {
	var data ResponseData
	if _, err := c.call(ctx, "responses", req, &data); err != nil {
		return nil, err
	}
	return &data.SessionProgress, nil
}

// BanUser reports a ban. Callers treat the outcome as best effort.
func (c *Client) BanUser(ctx context.Context, email string) error {
	_, err := c.call(ctx, "ban-user", EmailRequest{Email: email}, nil)
	return err
}

// =============================================================================
// TRANSPORT
// =============================================================================

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 1 << 20

// call posts body to /api/<name>, decodes the envelope and, on success,
// decodes its data into out (when out is non-nil). The envelope is returned
// whenever one was decoded, even alongside an error.
func (c *Client) call(ctx context.Context, name string, body, out any) (*Envelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	url := c.config.BaseURL + "/api/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnreachable, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, &ClientError{Type: ErrTypeTimeout, Message: name + " timed out", Cause: err}
		}
		return nil, &ClientError{Type: ErrTypeUnreachable, Message: "cannot reach assessment service", Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnreachable, Message: "failed to read response", Cause: err}
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 500 {
			return nil, &ClientError{Type: ErrTypeUnreachable, Message: fmt.Sprintf("%s: server error %s", name, resp.Status)}
		}
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}

	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = name + " failed: " + resp.Status
		}
		if resp.StatusCode >= 500 && env.Code == "" {
			return &env, &ClientError{Type: ErrTypeUnreachable, Message: msg}
		}
		return &env, &ClientError{Type: ErrTypeRejected, Code: env.Code, Message: msg}
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &env, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode " + name + " data", Cause: err}
		}
	}
	return &env, nil
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
