// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package proctor_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/jeranaias/proctor-tui/internal/assessment"
	"github.com/jeranaias/proctor-tui/internal/config"
	"github.com/jeranaias/proctor-tui/internal/mockservice"
	"github.com/jeranaias/proctor-tui/internal/proctor"
	"github.com/jeranaias/proctor-tui/internal/session"
	"github.com/jeranaias/proctor-tui/internal/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rig struct {
	srv    *mockservice.Server
	client *assessment.Client
	ids    *session.Store
	store  *storage.Store
}

func newRig(t *testing.T) *rig {
	t.Helper()
	srv, err := mockservice.New(mockservice.Options{
		Config: config.MockConfig{Secret: "it", Sections: 2, QuestionsPerSection: 2, SectionSeconds: 120},
		Log:    zerolog.Nop(),
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	store, err := storage.Open(t.TempDir() + "/proctor.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return &rig{
		srv:    srv,
		client: assessment.NewClient(ts.URL),
		ids:    session.NewStore(store, zerolog.Nop()),
		store:  store,
	}
}

func (r *rig) authorize(t *testing.T, cred proctor.Credential) string {
	t.Helper()
	ctx := context.Background()
	gate := proctor.NewAuthGate(r.client, r.ids, 0, zerolog.Nop())

	id, err := gate.Validate(ctx, cred)
	require.NoError(t, err)
	require.NoError(t, gate.CheckStatus(ctx))
	require.NoError(t, gate.RequestPasscode(ctx))

	code, err := r.srv.Passcode(id)
	require.NoError(t, err)
	require.NoError(t, gate.VerifyPasscode(ctx, code, true))
	require.Equal(t, proctor.AuthAuthorized, gate.State())
	return id
}

func TestIntegration_ViolationsEndInServerSideBan(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	id := r.authorize(t, proctor.Credential{Identifier: "a@x.com"})

	sess := proctor.NewSession(id)
	ban := proctor.NewBanEscalator(sess, r.client, r.ids, r.store, zerolog.Nop())
	ctrl := proctor.NewController(sess, ban, zerolog.Nop())
	clock := proctor.NewClock()
	ban.OnBan(func(string) { clock.Ban() })
	flow := proctor.NewFlow(sess, r.client, clock, zerolog.Nop())

	cfg := proctor.GuardConfig{Session: sess, Ban: ban, Audit: r.store, Log: zerolog.Nop()}
	ctrl.Activate(proctor.NewViolationMonitor(cfg, 2), proctor.NewNavigationGuard(cfg, 2), proctor.NewFocusGuard(cfg))

	require.NoError(t, flow.CheckStatus(ctx))
	snap, err := flow.FetchCurrent(ctx)
	require.NoError(t, err)

	assert.Contains(t, ctrl.Dispatch(ctx, proctor.EventCopy).Warning, "1/2")
	require.True(t, ctrl.Dispatch(ctx, proctor.EventPaste).Banned)
	ban.Report(ctx)

	status, err := r.client.CheckTestStatus(ctx, id)
	require.NoError(t, err)
	assert.True(t, status.BanStatus)

	_, err = r.ids.Identity(ctx)
	assert.ErrorIs(t, err, session.ErrNoIdentity)

	_, err = flow.SubmitAnswer(ctx, snap.Question.ID, intPtr(0))
	assert.ErrorIs(t, err, proctor.ErrSessionTerminal)

	events, err := r.store.RecentAudit(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "ban", events[0].EventType)

	// the same participant is turned away at the next entry
	gate := proctor.NewAuthGate(r.client, r.ids, 0, zerolog.Nop())
	_, err = gate.Validate(ctx, proctor.Credential{Identifier: id})
	require.NoError(t, err)
	assert.ErrorIs(t, gate.CheckStatus(ctx), proctor.ErrRejectedBanned)
}

func TestIntegration_TokenEntryAndCompletion(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	tok, err := r.srv.Tokens().Issue("tok@x.com")
	require.NoError(t, err)
	id := r.authorize(t, proctor.Credential{Token: tok})
	assert.Equal(t, "tok@x.com", id)

	sess := proctor.NewSession(id)
	ban := proctor.NewBanEscalator(sess, r.client, r.ids, r.store, zerolog.Nop())
	ctrl := proctor.NewController(sess, ban, zerolog.Nop())
	flow := proctor.NewFlow(sess, r.client, proctor.NewClock(), zerolog.Nop())
	ctrl.Activate()

	answered := 0
	for {
		snap, err := flow.FetchCurrent(ctx)
		if err != nil {
			require.ErrorIs(t, err, proctor.ErrTestCompleted)
			break
		}
		out, err := flow.SubmitAnswer(ctx, snap.Question.ID, intPtr(1))
		require.NoError(t, err)
		answered++
		if out == proctor.OutcomeCompleted {
			break
		}
		require.Less(t, answered, 10)
	}
	assert.Equal(t, 4, answered)
	assert.True(t, ctrl.Complete(ctx, r.store))

	status, err := r.client.CheckTestStatus(ctx, id)
	require.NoError(t, err)
	assert.True(t, status.TestCompleted)
	assert.False(t, status.BanStatus)
}

func intPtr(i int) *int { return &i }
