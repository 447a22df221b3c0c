// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package proctor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jeranaias/proctor-tui/internal/assessment"
	"github.com/jeranaias/proctor-tui/internal/logging"
	"github.com/rs/zerolog"
)

// QuestionService is the slice of the Assessment Service QuestionFlow uses.
type QuestionService interface {
	CheckTestStatus(ctx context.Context, email string) (*assessment.TestStatus, error)
	CurrentQuestion(ctx context.Context, email string) (*assessment.CurrentQuestion, bool, error)
	SubmitResponse(ctx context.Context, req assessment.ResponseRequest) (*assessment.SessionProgress, error)
}

// Snapshot is the current question, section, timing and progress.
type Snapshot = assessment.CurrentQuestion

// Outcome is what happened after an answer was accepted.
type Outcome int

const (
	// OutcomeNext: same section, fetch the next question
	OutcomeNext Outcome = iota
	// OutcomeSectionAdvanced: a new section started, the timer baseline resets
	OutcomeSectionAdvanced
	// OutcomeCompleted: the test is finished
	OutcomeCompleted
)

// ErrStaleQuestion is returned when an answer targets a question other than
// the current one.
var ErrStaleQuestion = errors.New("answer does not target the current question")

// =============================================================================
// QUESTION FLOW
// =============================================================================

// Flow fetches snapshots and submits answers strictly in order. It shares
// the session's terminal check with the guards so nothing is dispatched
// after a ban.
type Flow struct {
	sess  *Session
	svc   QuestionService
	clock *Clock
	log   zerolog.Logger
	now   func() time.Time

	mu       sync.Mutex
	current  *Snapshot
	shownAt  time.Time
	progress assessment.Progress
}

// NewFlow creates a flow that seeds clock from every fetched snapshot.
func NewFlow(sess *Session, svc QuestionService, clock *Clock, log zerolog.Logger) *Flow {
	return &Flow{
		sess:  sess,
		svc:   svc,
		clock: clock,
		log:   log.With().Str("component", "flow").Logger(),
		now:   time.Now,
	}
}

// Current returns the current snapshot, or nil.
func (f *Flow) Current() *Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// CheckStatus re-checks the participant on entry to the test view. It
// returns ErrRejectedBanned or ErrRejectedCompleted for a closed account.
// A failed check is logged and ignored so the test can still load.
func (f *Flow) CheckStatus(ctx context.Context) error {
	status, err := f.svc.CheckTestStatus(ctx, f.sess.Identity())
	if err != nil {
		f.log.Warn().Err(err).Msg("status check failed, continuing")
		return nil
	}
	if status.BanStatus {
		return ErrRejectedBanned
	}
	if status.TestCompleted {
		return ErrTestCompleted
	}
	return nil
}

// FetchCurrent loads the current snapshot and reseeds the clock from it.
// A finished test yields ErrTestCompleted; every other failure is
// ErrTransient and safe to retry.
func (f *Flow) FetchCurrent(ctx context.Context) (*Snapshot, error) {
	if f.sess.Terminal() {
		return nil, ErrSessionTerminal
	}

	snap, completed, err := f.svc.CurrentQuestion(ctx, f.sess.Identity())
	if completed {
		f.clear()
		return nil, ErrTestCompleted
	}
	if err != nil {
		f.log.Warn().Err(err).Msg("fetch current question failed")
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if f.sess.Terminal() {
		return nil, ErrSessionTerminal
	}

	f.mu.Lock()
	snap.Progress = f.normalize(snap.Progress)
	f.current = snap
	f.shownAt = f.now()
	f.progress = snap.Progress
	f.mu.Unlock()

	f.clock.Seed(snap.Timing, snap.Progress)
	f.log.Debug().
		Int("question", snap.Question.ID).
		Int("section", snap.Progress.CurrentSectionID).
		Int("remaining", snap.Timing.SectionTimeRemaining).
		Msg("question loaded")
	return snap, nil
}

// normalize keeps progress within its invariants: positions never exceed
// their totals and never move backwards within a session. Caller holds mu.
func (f *Flow) normalize(p assessment.Progress) assessment.Progress {
	prev := f.progress
	if p.TotalSections > 0 && p.CurrentSectionID > p.TotalSections {
		f.log.Warn().Int("section", p.CurrentSectionID).Int("total", p.TotalSections).Msg("section beyond total, clamping")
		p.CurrentSectionID = p.TotalSections
	}
	if p.TotalQuestionsInSection > 0 && p.CurrentQuestionNumber > p.TotalQuestionsInSection {
		f.log.Warn().Int("question", p.CurrentQuestionNumber).Int("total", p.TotalQuestionsInSection).Msg("question beyond total, clamping")
		p.CurrentQuestionNumber = p.TotalQuestionsInSection
	}
	if p.CurrentSectionID < prev.CurrentSectionID {
		f.log.Warn().Int("section", p.CurrentSectionID).Int("previous", prev.CurrentSectionID).Msg("section moved backwards, keeping previous")
		p.CurrentSectionID = prev.CurrentSectionID
	}
	if p.CompletionPercentage < prev.CompletionPercentage {
		p.CompletionPercentage = prev.CompletionPercentage
	}
	return p
}

// SubmitAnswer sends the selected option for questionID. The selection is
// required, must be in range and must target the current question.
func (f *Flow) SubmitAnswer(ctx context.Context, questionID int, selected *int) (Outcome, error) {
	if selected == nil {
		return OutcomeNext, ErrNoSelection
	}

	f.mu.Lock()
	cur := f.current
	shownAt := f.shownAt
	sectionID := f.progress.CurrentSectionID
	f.mu.Unlock()

	if cur == nil || cur.Question.ID != questionID {
		return OutcomeNext, ErrStaleQuestion
	}
	if *selected < 0 || *selected >= len(cur.Question.Options) {
		return OutcomeNext, fmt.Errorf("%w: option %d out of range", ErrNoSelection, *selected)
	}

	// Last gate before dispatch: a ban or completion stops the request here.
	if f.sess.Terminal() {
		f.log.Info().Int("question", questionID).Msg("submission dropped, session terminal")
		return OutcomeNext, ErrSessionTerminal
	}

	req := assessment.ResponseRequest{
		Email:          f.sess.Identity(),
		QuestionID:     questionID,
		SelectedAnswer: *selected,
		TimeTaken:      int(f.now().Sub(shownAt).Seconds()),
	}
	prog, err := f.svc.SubmitResponse(ctx, req)
	if err != nil {
		f.log.Warn().Err(err).Int("question", questionID).Msg("submit failed")
		switch {
		case errors.Is(err, assessment.ErrOutOfOrder):
			// The service moved on, typically after a section rollover
			return OutcomeNext, fmt.Errorf("%w: %v", ErrStaleQuestion, err)
		case errors.Is(err, assessment.ErrBanned):
			return OutcomeNext, fmt.Errorf("%w: %v", ErrRejectedBanned, err)
		case errors.Is(err, assessment.ErrCompleted):
			f.clear()
			return OutcomeNext, fmt.Errorf("%w: %v", ErrTestCompleted, err)
		}
		return OutcomeNext, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	f.log.Info().
		Str("identity", logging.MaskIdentity(req.Email)).
		Int("question", questionID).
		Int("time_taken", req.TimeTaken).
		Msg("answer recorded")

	switch {
	case prog.TestCompleted:
		f.clear()
		return OutcomeCompleted, nil
	case prog.CurrentSectionID > sectionID:
		// The old section's countdown must not outlive it
		f.clock.Cancel()
		return OutcomeSectionAdvanced, nil
	}
	return OutcomeNext, nil
}

func (f *Flow) clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = nil
}
