// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package proctor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jeranaias/proctor-tui/internal/assessment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// FETCH
// =============================================================================

func TestFlow_ShortSectionAutoAdvances(t *testing.T) {
	h := newHarness("a@x.com")
	h.svc.snapshots = []*assessment.CurrentQuestion{
		snapshot(1, 1, 3, 2),
		snapshot(6, 2, 3, 300),
	}
	h.activate()
	ctx := context.Background()

	snap, err := h.flow.FetchCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Question.ID)

	gen := h.clock.Generation()
	_, a1 := h.clock.Tick(gen)
	_, a2 := h.clock.Tick(gen)
	assert.Equal(t, ActionNone, a1)
	require.Equal(t, ActionAdvance, a2)

	snap, err = h.flow.FetchCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, snap.Question.ID)
	assert.Equal(t, 2, snap.Progress.CurrentSectionID)
	assert.Equal(t, ClockActive, h.clock.State())
	sec, _ := h.clock.Remaining()
	assert.Equal(t, 300, sec)
	assert.Equal(t, 2, h.svc.count("current-question"))

	// ticks from the expired section's generation do nothing
	_, a := h.clock.Tick(gen)
	assert.Equal(t, ActionNone, a)
}

func TestFlow_FetchCompleted(t *testing.T) {
	h := newHarness("a@x.com")
	h.svc.completed = true

	_, err := h.flow.FetchCurrent(context.Background())
	assert.ErrorIs(t, err, ErrTestCompleted)
	assert.Nil(t, h.flow.Current())
}

func TestFlow_FetchFailureIsTransient(t *testing.T) {
	h := newHarness("a@x.com")
	h.svc.fetchErr = errors.New("502")

	_, err := h.flow.FetchCurrent(context.Background())
	assert.ErrorIs(t, err, ErrTransient)
	assert.Equal(t, MsgCannotConnect, Message(err))
}

func TestFlow_FetchAfterBanRefused(t *testing.T) {
	h := newHarness("a@x.com")
	h.svc.snapshots = []*assessment.CurrentQuestion{snapshot(1, 1, 3, 60)}
	h.ban.Trip("x")

	_, err := h.flow.FetchCurrent(context.Background())
	assert.ErrorIs(t, err, ErrSessionTerminal)
	assert.Equal(t, 0, h.svc.count("current-question"))
}

func TestFlow_ProgressInvariants(t *testing.T) {
	h := newHarness("a@x.com")
	first := snapshot(1, 2, 3, 60)
	first.Progress.CompletionPercentage = 40
	beyond := snapshot(2, 5, 3, 60)
	beyond.Progress.CurrentQuestionNumber = 9
	backwards := snapshot(3, 1, 3, 60)
	h.svc.snapshots = []*assessment.CurrentQuestion{first, beyond, backwards}
	ctx := context.Background()

	_, err := h.flow.FetchCurrent(ctx)
	require.NoError(t, err)

	snap, err := h.flow.FetchCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Progress.CurrentSectionID, "section clamps to total")
	assert.Equal(t, 5, snap.Progress.CurrentQuestionNumber, "question clamps to section total")
	assert.Equal(t, 40.0, snap.Progress.CompletionPercentage, "completion never decreases")

	snap, err = h.flow.FetchCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Progress.CurrentSectionID, "section never moves backwards")
}

func TestFlow_CheckStatus(t *testing.T) {
	h := newHarness("a@x.com")
	h.svc.status["a@x.com"] = assessment.TestStatus{BanStatus: true}
	assert.ErrorIs(t, h.flow.CheckStatus(context.Background()), ErrRejectedBanned)

	h.svc.status["a@x.com"] = assessment.TestStatus{TestCompleted: true}
	assert.ErrorIs(t, h.flow.CheckStatus(context.Background()), ErrTestCompleted)

	h.svc.statusErr = errors.New("down")
	assert.NoError(t, h.flow.CheckStatus(context.Background()))
}

// =============================================================================
// SUBMIT
// =============================================================================

func loaded(t *testing.T) *harness {
	t.Helper()
	h := newHarness("a@x.com")
	h.svc.snapshots = []*assessment.CurrentQuestion{snapshot(1, 1, 3, 60)}
	h.activate()
	_, err := h.flow.FetchCurrent(context.Background())
	require.NoError(t, err)
	return h
}

func TestFlow_SubmitValidation(t *testing.T) {
	tests := []struct {
		name       string
		questionID int
		selected   *int
		wantErr    error
	}{
		{"no selection", 1, nil, ErrNoSelection},
		{"out of range", 1, intp(4), ErrNoSelection},
		{"negative", 1, intp(-1), ErrNoSelection},
		{"stale question", 99, intp(0), ErrStaleQuestion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := loaded(t)
			_, err := h.flow.SubmitAnswer(context.Background(), tt.questionID, tt.selected)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, h.svc.count("responses"))
		})
	}
}

func TestFlow_NoSubmitAfterBan(t *testing.T) {
	h := loaded(t)
	h.ctrl.Dispatch(context.Background(), EventBlur)
	require.True(t, h.sess.Banned())

	_, err := h.flow.SubmitAnswer(context.Background(), 1, intp(2))
	assert.ErrorIs(t, err, ErrSessionTerminal)
	assert.Equal(t, 0, h.svc.count("responses"))
}

func TestFlow_SubmitRecordsTimeTaken(t *testing.T) {
	h := newHarness("a@x.com")
	h.svc.snapshots = []*assessment.CurrentQuestion{snapshot(1, 1, 3, 60)}
	now := time.Unix(1_700_000_000, 0)
	h.flow.now = func() time.Time { return now }

	_, err := h.flow.FetchCurrent(context.Background())
	require.NoError(t, err)
	now = now.Add(7 * time.Second)

	out, err := h.flow.SubmitAnswer(context.Background(), 1, intp(2))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNext, out)

	require.Len(t, h.svc.submitted, 1)
	got := h.svc.submitted[0]
	assert.Equal(t, "a@x.com", got.Email)
	assert.Equal(t, 1, got.QuestionID)
	assert.Equal(t, 2, got.SelectedAnswer)
	assert.Equal(t, 7, got.TimeTaken)
}

func TestFlow_SubmitOutcomes(t *testing.T) {
	t.Run("section advanced cancels the clock", func(t *testing.T) {
		h := loaded(t)
		h.svc.progress = []assessment.SessionProgress{{CurrentSectionID: 2}}

		out, err := h.flow.SubmitAnswer(context.Background(), 1, intp(0))
		require.NoError(t, err)
		assert.Equal(t, OutcomeSectionAdvanced, out)
		assert.Equal(t, ClockIdle, h.clock.State())
	})

	t.Run("completed", func(t *testing.T) {
		h := loaded(t)
		h.svc.progress = []assessment.SessionProgress{{TestCompleted: true, CurrentSectionID: 3}}

		out, err := h.flow.SubmitAnswer(context.Background(), 1, intp(0))
		require.NoError(t, err)
		assert.Equal(t, OutcomeCompleted, out)
		assert.Nil(t, h.flow.Current())
	})

	t.Run("service failure is transient", func(t *testing.T) {
		h := loaded(t)
		h.svc.submitErr = errors.New("reset by peer")

		_, err := h.flow.SubmitAnswer(context.Background(), 1, intp(0))
		assert.ErrorIs(t, err, ErrTransient)
		assert.NotNil(t, h.flow.Current(), "the question stays loaded for a retry")
	})

	t.Run("service rejections are classified", func(t *testing.T) {
		tests := []struct {
			name   string
			code   string
			want   error
			keepsQ bool
		}{
			{"out of order refetches", assessment.CodeOutOfOrder, ErrStaleQuestion, true},
			{"banned", assessment.CodeUserBanned, ErrRejectedBanned, true},
			{"already completed", assessment.CodeTestAlreadyCompleted, ErrTestCompleted, false},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				h := loaded(t)
				h.svc.submitErr = &assessment.ClientError{
					Type:    assessment.ErrTypeRejected,
					Code:    tt.code,
					Message: "rejected",
				}

				_, err := h.flow.SubmitAnswer(context.Background(), 1, intp(0))
				assert.ErrorIs(t, err, tt.want)
				assert.NotErrorIs(t, err, ErrTransient)
				if tt.keepsQ {
					assert.NotNil(t, h.flow.Current())
				} else {
					assert.Nil(t, h.flow.Current())
				}
			})
		}
	})
}
