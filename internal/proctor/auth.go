// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package proctor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/proctor-tui/internal/assessment"
	"github.com/jeranaias/proctor-tui/internal/logging"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"
)

// AuthService is the slice of the Assessment Service AuthGate uses.
type AuthService interface {
	ValidateEncryptedEmail(ctx context.Context, token string) (string, error)
	CheckTestStatus(ctx context.Context, email string) (*assessment.TestStatus, error)
	SendOTP(ctx context.Context, email, studentName string) error
	VerifyOTP(ctx context.Context, email, otp, studentName string) error
}

// AuthState is the entry gate's state.
type AuthState int

const (
	AuthUnvalidated AuthState = iota
	AuthValidating
	AuthRejected
	AuthOtpPending
	AuthVerifying
	AuthAwaitingFullscreen
	AuthAuthorized
)

func (s AuthState) String() string {
	switch s {
	case AuthUnvalidated:
		return "unvalidated"
	case AuthValidating:
		return "validating"
	case AuthRejected:
		return "rejected"
	case AuthOtpPending:
		return "otp_pending"
	case AuthVerifying:
		return "verifying"
	case AuthAwaitingFullscreen:
		return "awaiting_fullscreen"
	case AuthAuthorized:
		return "authorized"
	}
	return "unknown"
}

// Credential is how the participant arrived: a plain identifier or an
// opaque token the service must decrypt.
type Credential struct {
	Identifier string
	Token      string
}

// PasscodeLength is the exact number of digits in a passcode.
const PasscodeLength = 6

// =============================================================================
// AUTH GATE
// =============================================================================

// AuthGate takes a credential to an authorized identity.
type AuthGate struct {
	svc     AuthService
	ids     IdentityStore
	log     zerolog.Logger
	limiter *rate.Limiter

	mu        sync.Mutex
	state     AuthState
	identity  string
	rejection error
}

// NewAuthGate creates a gate. resendInterval bounds how often a passcode
// may be requested; zero disables the limit.
func NewAuthGate(svc AuthService, ids IdentityStore, resendInterval time.Duration, log zerolog.Logger) *AuthGate {
	limit := rate.Inf
	if resendInterval > 0 {
		limit = rate.Every(resendInterval)
	}
	return &AuthGate{
		svc:     svc,
		ids:     ids,
		log:     log.With().Str("component", "auth").Logger(),
		limiter: rate.NewLimiter(limit, 1),
	}
}

// State returns the current state.
func (g *AuthGate) State() AuthState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Identity returns the resolved identity, or "" before validation.
func (g *AuthGate) Identity() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.identity
}

// Rejection returns why the gate is Rejected, or nil.
func (g *AuthGate) Rejection() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rejection
}

func (g *AuthGate) set(state AuthState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = state
}

func (g *AuthGate) reject(err error) error {
	g.mu.Lock()
	g.state = AuthRejected
	g.rejection = err
	g.mu.Unlock()
	g.log.Info().Err(err).Msg("entry rejected")
	return err
}

// expect moves from one of from to to, or fails with ErrWrongState.
func (g *AuthGate) expect(to AuthState, from ...AuthState) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, s := range from {
		if g.state == s {
			g.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrWrongState, g.state)
}

// NormalizeIdentity canonicalizes an identifier for comparison and storage.
func NormalizeIdentity(id string) string {
	id = strings.TrimSpace(norm.NFKC.String(id))
	return cases.Fold().String(id)
}

// StudentName derives the display name sent with passcode calls: the part
// of the identifier before '@'.
func StudentName(identity string) string {
	name, _, _ := strings.Cut(identity, "@")
	return name
}

// Validate resolves cred to an identity. Neither field present is
// ErrInvalidLink; a token the service cannot decrypt is
// ErrExpiredOrInvalidToken. Both are terminal for this gate.
func (g *AuthGate) Validate(ctx context.Context, cred Credential) (string, error) {
	if err := g.expect(AuthValidating, AuthUnvalidated); err != nil {
		return "", err
	}

	token := strings.TrimSpace(cred.Token)
	ident := NormalizeIdentity(cred.Identifier)

	switch {
	case token != "":
		email, err := g.svc.ValidateEncryptedEmail(ctx, token)
		if err != nil {
			if assessment.IsTransient(err) {
				g.set(AuthUnvalidated)
				return "", fmt.Errorf("%w: %v", ErrCannotReachService, err)
			}
			return "", g.reject(ErrExpiredOrInvalidToken)
		}
		ident = NormalizeIdentity(email)
	case ident == "":
		return "", g.reject(ErrInvalidLink)
	}
	if ident == "" {
		return "", g.reject(ErrExpiredOrInvalidToken)
	}

	g.mu.Lock()
	g.identity = ident
	g.mu.Unlock()
	g.log.Info().Str("identity", logging.MaskIdentity(ident)).Bool("token", token != "").Msg("credential validated")
	return ident, nil
}

// CheckStatus closes the gate for banned or finished participants before
// any passcode is issued. An unreachable status check does not block entry;
// the service enforces the same policy again at verification.
func (g *AuthGate) CheckStatus(ctx context.Context) error {
	if s := g.State(); s != AuthValidating {
		return fmt.Errorf("%w: %s", ErrWrongState, s)
	}
	status, err := g.svc.CheckTestStatus(ctx, g.Identity())
	if err != nil {
		g.log.Warn().Err(err).Msg("status check failed, continuing")
		return nil
	}
	if status.BanStatus {
		return g.reject(ErrRejectedBanned)
	}
	if status.TestCompleted {
		return g.reject(ErrRejectedCompleted)
	}
	return nil
}

// RequestPasscode asks the service to issue a passcode. It is valid right
// after a clean status check and again from OtpPending as a resend.
func (g *AuthGate) RequestPasscode(ctx context.Context) error {
	if s := g.State(); s != AuthValidating && s != AuthOtpPending {
		return fmt.Errorf("%w: %s", ErrWrongState, s)
	}
	if g.limiter.Tokens() < 1 {
		return ErrResendTooSoon
	}

	ident := g.Identity()
	if err := g.svc.SendOTP(ctx, ident, StudentName(ident)); err != nil {
		g.log.Warn().Err(err).Msg("send otp failed")
		return fmt.Errorf("%w: %v", ErrCannotReachService, err)
	}
	// Only a delivered passcode counts against the resend budget
	g.limiter.Allow()
	g.set(AuthOtpPending)
	g.log.Info().Str("identity", logging.MaskIdentity(ident)).Msg("passcode requested")
	return nil
}

// ValidPasscode reports whether code is exactly six ASCII digits.
func ValidPasscode(code string) bool {
	if len(code) != PasscodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// SanitizePasscode keeps only digits and truncates to PasscodeLength, the
// way the input field filters keystrokes.
func SanitizePasscode(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if b.Len() == PasscodeLength {
				break
			}
		}
	}
	return b.String()
}

// VerifyPasscode checks code. A malformed code never reaches the service.
// On success the gate moves to AwaitingFullscreen, or straight to
// Authorized when fullscreen is already true.
func (g *AuthGate) VerifyPasscode(ctx context.Context, code string, fullscreen bool) error {
	if !ValidPasscode(code) {
		return ErrMalformedPasscode
	}
	if err := g.expect(AuthVerifying, AuthOtpPending); err != nil {
		return err
	}

	ident := g.Identity()
	err := g.svc.VerifyOTP(ctx, ident, code, StudentName(ident))
	switch {
	case err == nil:
	case errors.Is(err, assessment.ErrBanned):
		return g.reject(ErrRejectedBanned)
	case errors.Is(err, assessment.ErrCompleted):
		return g.reject(ErrRejectedCompleted)
	case assessment.IsTransient(err):
		g.set(AuthOtpPending)
		return fmt.Errorf("%w: %v", ErrCannotReachService, err)
	default:
		g.set(AuthOtpPending)
		return fmt.Errorf("%w: %v", ErrInvalidPasscode, err)
	}

	g.log.Info().Str("identity", logging.MaskIdentity(ident)).Msg("passcode verified")
	if !fullscreen {
		g.set(AuthAwaitingFullscreen)
		return nil
	}
	return g.authorize(ctx)
}

// ConfirmFullscreen completes authorization once the terminal qualifies.
func (g *AuthGate) ConfirmFullscreen(ctx context.Context) error {
	if s := g.State(); s != AuthAwaitingFullscreen {
		return fmt.Errorf("%w: %s", ErrWrongState, s)
	}
	return g.authorize(ctx)
}

// CancelFullscreen abandons the fullscreen prompt and returns to passcode
// entry; the caller clears the entered code.
func (g *AuthGate) CancelFullscreen() error {
	return g.expect(AuthOtpPending, AuthAwaitingFullscreen)
}

func (g *AuthGate) authorize(ctx context.Context) error {
	ident := g.Identity()
	if err := g.ids.SaveIdentity(ctx, ident); err != nil {
		g.set(AuthAwaitingFullscreen)
		return fmt.Errorf("persist identity: %w", err)
	}
	g.set(AuthAuthorized)
	g.log.Info().Str("identity", logging.MaskIdentity(ident)).Msg("participant authorized")
	return nil
}
