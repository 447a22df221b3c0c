// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package proctor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jeranaias/proctor-tui/internal/assessment"
	"github.com/jeranaias/proctor-tui/internal/session"
	"github.com/jeranaias/proctor-tui/internal/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGate(svc *fakeService, resend time.Duration) (*AuthGate, *session.Store) {
	ids := session.NewStore(storage.NewMemoryKV(), zerolog.Nop())
	return NewAuthGate(svc, ids, resend, zerolog.Nop()), ids
}

// toPending drives a gate through validation and the first passcode request.
func toPending(t *testing.T, g *AuthGate, id string) {
	t.Helper()
	ctx := context.Background()
	_, err := g.Validate(ctx, Credential{Identifier: id})
	require.NoError(t, err)
	require.NoError(t, g.CheckStatus(ctx))
	require.NoError(t, g.RequestPasscode(ctx))
	require.Equal(t, AuthOtpPending, g.State())
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestAuth_HappyPathWithFullscreen(t *testing.T) {
	svc := newFakeService()
	g, ids := newGate(svc, 0)
	toPending(t, g, "a@x.com")

	require.NoError(t, g.VerifyPasscode(context.Background(), "123456", true))
	assert.Equal(t, AuthAuthorized, g.State())

	stored, err := ids.Identity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", stored)
	assert.Equal(t, 1, svc.count("send-otp"))
	assert.Equal(t, 1, svc.count("verify-otp"))
}

func TestAuth_TokenResolvesIdentity(t *testing.T) {
	svc := newFakeService()
	svc.tokens["opaque"] = "  Bob@Example.com "
	g, _ := newGate(svc, 0)

	id, err := g.Validate(context.Background(), Credential{Token: "opaque"})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", id)
	assert.Equal(t, AuthValidating, g.State())
}

func TestAuth_ValidateFailures(t *testing.T) {
	tests := []struct {
		name      string
		cred      Credential
		setup     func(*fakeService)
		wantErr   error
		wantState AuthState
	}{
		{
			name:      "missing credential",
			cred:      Credential{},
			wantErr:   ErrInvalidLink,
			wantState: AuthRejected,
		},
		{
			name:      "unknown token",
			cred:      Credential{Token: "bogus"},
			wantErr:   ErrExpiredOrInvalidToken,
			wantState: AuthRejected,
		},
		{
			name: "service unreachable",
			cred: Credential{Token: "tok"},
			setup: func(f *fakeService) {
				f.validateErr = &assessment.ClientError{Type: assessment.ErrTypeUnreachable, Message: "down"}
			},
			wantErr:   ErrCannotReachService,
			wantState: AuthUnvalidated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			if tt.setup != nil {
				tt.setup(svc)
			}
			g, _ := newGate(svc, 0)
			_, err := g.Validate(context.Background(), tt.cred)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
			if got := g.State(); got != tt.wantState {
				t.Errorf("State() = %s, want %s", got, tt.wantState)
			}
		})
	}
}

func TestAuth_ValidateTwiceIsWrongState(t *testing.T) {
	g, _ := newGate(newFakeService(), 0)
	_, err := g.Validate(context.Background(), Credential{Identifier: "a@x.com"})
	require.NoError(t, err)
	_, err = g.Validate(context.Background(), Credential{Identifier: "a@x.com"})
	assert.ErrorIs(t, err, ErrWrongState)
}

// =============================================================================
// STATUS CHECK
// =============================================================================

func TestAuth_BannedNeverReceivesPasscode(t *testing.T) {
	svc := newFakeService()
	svc.status["banned@x.com"] = assessment.TestStatus{BanStatus: true}
	g, _ := newGate(svc, 0)
	ctx := context.Background()

	_, err := g.Validate(ctx, Credential{Identifier: "banned@x.com"})
	require.NoError(t, err)

	err = g.CheckStatus(ctx)
	assert.ErrorIs(t, err, ErrRejectedBanned)
	assert.Equal(t, AuthRejected, g.State())
	assert.Equal(t, MsgBanned, Message(g.Rejection()))

	assert.ErrorIs(t, g.RequestPasscode(ctx), ErrWrongState)
	assert.Equal(t, 0, svc.count("send-otp"))
}

func TestAuth_CompletedRejected(t *testing.T) {
	svc := newFakeService()
	svc.status["done@x.com"] = assessment.TestStatus{TestCompleted: true}
	g, _ := newGate(svc, 0)

	_, err := g.Validate(context.Background(), Credential{Identifier: "done@x.com"})
	require.NoError(t, err)
	assert.ErrorIs(t, g.CheckStatus(context.Background()), ErrRejectedCompleted)
}

func TestAuth_StatusFailureContinues(t *testing.T) {
	svc := newFakeService()
	svc.statusErr = errors.New("boom")
	g, _ := newGate(svc, 0)
	toPending(t, g, "a@x.com")
}

// =============================================================================
// PASSCODE
// =============================================================================

func TestAuth_MalformedPasscodeNeverCallsService(t *testing.T) {
	for _, code := range []string{"", "12345", "1234567", "12a456", "١٢٣٤٥٦"} {
		t.Run(code, func(t *testing.T) {
			svc := newFakeService()
			g, _ := newGate(svc, 0)
			toPending(t, g, "a@x.com")

			err := g.VerifyPasscode(context.Background(), code, true)
			assert.ErrorIs(t, err, ErrMalformedPasscode)
			assert.Equal(t, 0, svc.count("verify-otp"))
			assert.Equal(t, AuthOtpPending, g.State())
		})
	}
}

func TestAuth_VerifyOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		verifyErr error
		wantErr   error
		wantState AuthState
	}{
		{"banned", &assessment.ClientError{Type: assessment.ErrTypeRejected, Code: assessment.CodeUserBanned}, ErrRejectedBanned, AuthRejected},
		{"completed", &assessment.ClientError{Type: assessment.ErrTypeRejected, Code: assessment.CodeTestAlreadyCompleted}, ErrRejectedCompleted, AuthRejected},
		{"wrong code", &assessment.ClientError{Type: assessment.ErrTypeRejected, Code: assessment.CodeInvalidOTP}, ErrInvalidPasscode, AuthOtpPending},
		{"unreachable", &assessment.ClientError{Type: assessment.ErrTypeTimeout}, ErrCannotReachService, AuthOtpPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			g, ids := newGate(svc, 0)
			toPending(t, g, "a@x.com")
			svc.verifyErr = tt.verifyErr

			err := g.VerifyPasscode(context.Background(), "123456", true)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantState, g.State())

			_, idErr := ids.Identity(context.Background())
			assert.ErrorIs(t, idErr, session.ErrNoIdentity, "identity must not be stored on failure")
		})
	}
}

func TestAuth_RetryAfterWrongCode(t *testing.T) {
	svc := newFakeService()
	g, _ := newGate(svc, 0)
	toPending(t, g, "a@x.com")

	svc.verifyErr = &assessment.ClientError{Type: assessment.ErrTypeRejected, Code: assessment.CodeInvalidOTP}
	require.ErrorIs(t, g.VerifyPasscode(context.Background(), "000000", true), ErrInvalidPasscode)

	svc.verifyErr = nil
	require.NoError(t, g.VerifyPasscode(context.Background(), "123456", true))
	assert.Equal(t, AuthAuthorized, g.State())
}

func TestAuth_FullscreenPromptCancelAndConfirm(t *testing.T) {
	svc := newFakeService()
	g, ids := newGate(svc, 0)
	toPending(t, g, "a@x.com")
	ctx := context.Background()

	require.NoError(t, g.VerifyPasscode(ctx, "123456", false))
	assert.Equal(t, AuthAwaitingFullscreen, g.State())
	_, err := ids.Identity(ctx)
	assert.ErrorIs(t, err, session.ErrNoIdentity)

	require.NoError(t, g.CancelFullscreen())
	assert.Equal(t, AuthOtpPending, g.State())

	require.NoError(t, g.VerifyPasscode(ctx, "123456", false))
	require.NoError(t, g.ConfirmFullscreen(ctx))
	assert.Equal(t, AuthAuthorized, g.State())
	assert.ErrorIs(t, g.ConfirmFullscreen(ctx), ErrWrongState)
}

func TestAuth_ResendIsRateLimited(t *testing.T) {
	svc := newFakeService()
	g, _ := newGate(svc, time.Hour)
	toPending(t, g, "a@x.com")

	assert.ErrorIs(t, g.RequestPasscode(context.Background()), ErrResendTooSoon)
	assert.Equal(t, 1, svc.count("send-otp"))
}

func TestAuth_ResendUnlimitedWhenDisabled(t *testing.T) {
	svc := newFakeService()
	g, _ := newGate(svc, 0)
	toPending(t, g, "a@x.com")

	for i := 0; i < 3; i++ {
		require.NoError(t, g.RequestPasscode(context.Background()))
	}
	assert.Equal(t, 4, svc.count("send-otp"))
}

func TestAuth_FailedSendDoesNotSpendBudget(t *testing.T) {
	svc := newFakeService()
	svc.sendErr = errors.New("smtp down")
	g, _ := newGate(svc, time.Hour)
	ctx := context.Background()

	_, err := g.Validate(ctx, Credential{Identifier: "a@x.com"})
	require.NoError(t, err)
	require.NoError(t, g.CheckStatus(ctx))
	assert.ErrorIs(t, g.RequestPasscode(ctx), ErrCannotReachService)
	assert.Equal(t, AuthValidating, g.State())

	svc.mu.Lock()
	svc.sendErr = nil
	svc.mu.Unlock()
	require.NoError(t, g.RequestPasscode(ctx))
}

// =============================================================================
// HELPERS
// =============================================================================

func TestSanitizePasscode(t *testing.T) {
	tests := map[string]string{
		"123456":     "123456",
		"12-34 56":   "123456",
		"1234567890": "123456",
		"abc":        "",
		"９８７":        "",
	}
	for in, want := range tests {
		if got := SanitizePasscode(in); got != want {
			t.Errorf("SanitizePasscode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeIdentityAndStudentName(t *testing.T) {
	if got := NormalizeIdentity("  Alice@Example.COM "); got != "alice@example.com" {
		t.Errorf("NormalizeIdentity() = %q, want %q", got, "alice@example.com")
	}
	if got := StudentName("alice@example.com"); got != "alice" {
		t.Errorf("StudentName() = %q, want %q", got, "alice")
	}
	if got := StudentName("noat"); got != "noat" {
		t.Errorf("StudentName() = %q, want %q", got, "noat")
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrInvalidLink, MsgInvalidLink},
		{ErrExpiredOrInvalidToken, MsgInvalidToken},
		{ErrTransient, MsgCannotConnect},
		{ErrMalformedPasscode, MsgMalformedPasscode},
		{ErrInvalidPasscode, MsgInvalidPasscode},
		{ErrRejectedBanned, MsgBanned},
		{ErrTestCompleted, MsgCompleted},
		{ErrNoSelection, MsgNoSelection},
	}
	for _, tt := range tests {
		if got := Message(tt.err); got != tt.want {
			t.Errorf("Message(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
