// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockservice

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jeranaias/proctor-tui/internal/assessment"
	"github.com/jeranaias/proctor-tui/internal/logging"
)

// =============================================================================
// PARTICIPANT STATE
// =============================================================================

// load returns the participant for email, or a fresh record.
func (s *Server) load(ctx context.Context, email string) (*Participant, error) {
	p, err := s.ledger.Load(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return &Participant{Email: email}, nil
	}
	return p, err
}

// advance applies server-side section timers: every elapsed section limit
// moves the participant to the next section, and running out of sections
// completes the test.
func (s *Server) advance(p *Participant, now time.Time) {
	if p.SectionID == 0 || p.Completed {
		return
	}
	limit := time.Duration(s.bank.SectionLimit()) * time.Second
	for !p.Completed && now.Sub(p.SectionStarted) >= limit {
		p.SectionStarted = p.SectionStarted.Add(limit)
		p.SectionID++
		p.QuestionIndex = 0
		s.log.Info().Str("identity", logging.MaskIdentity(p.Email)).Int("section", p.SectionID).Msg("section time expired")
		if p.SectionID > s.bank.Sections() {
			s.finish(p)
		}
	}
}

func (s *Server) finish(p *Participant) {
	p.Completed = true
	p.SectionID = s.bank.Sections()
	p.QuestionIndex = 0
	s.metrics.Completions.Inc()
	s.log.Info().Str("identity", logging.MaskIdentity(p.Email)).Int("score", p.Score).Msg("test completed")
}

func (s *Server) snapshot(p *Participant, now time.Time) assessment.CurrentQuestion {
	q, _ := s.bank.Question(p.SectionID, p.QuestionIndex)
	sec, _ := s.bank.Section(p.SectionID)

	limit := s.bank.SectionLimit()
	elapsed := int(now.Sub(p.SectionStarted) / time.Second)
	remaining := max(limit-elapsed, 0)
	test := remaining + (s.bank.Sections()-p.SectionID)*limit

	return assessment.CurrentQuestion{
		Question: q,
		Section:  sec,
		Timing: assessment.Timing{
			SectionTimeRemaining: remaining,
			TestTimeRemaining:    test,
			SectionTimeUp:        remaining == 0,
			TestTimeUp:           test == 0,
		},
		Progress: assessment.Progress{
			CurrentSectionID:        p.SectionID,
			CurrentQuestionNumber:   p.QuestionIndex + 1,
			TotalQuestionsInSection: s.bank.PerSection(),
			CompletionPercentage:    float64(p.Answered) * 100 / float64(s.bank.Total()),
			TotalScore:              p.Score,
			TotalSections:           s.bank.Sections(),
		},
	}
}

// gate rejects banned and finished participants with the policy codes.
func (s *Server) gate(ctx context.Context, w http.ResponseWriter, p *Participant) bool {
	banned, err := s.ledger.Banned(ctx, p.Email)
	if err != nil {
		s.internalError(w, err)
		return false
	}
	if banned {
		writeFail(w, http.StatusForbidden, assessment.CodeUserBanned, "User is banned from taking tests")
		return false
	}
	if p.Completed {
		writeFail(w, http.StatusForbidden, assessment.CodeTestAlreadyCompleted, "Test already completed")
		return false
	}
	return true
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.log.Error().Err(err).Msg("ledger failure")
	writeFail(w, http.StatusInternalServerError, "", "internal error")
}

// =============================================================================
// HANDLERS
// =============================================================================

func (s *Server) handleValidateToken(w http.ResponseWriter, r *http.Request) {
	var req assessment.ValidateTokenRequest
	if !decode(w, r, &req) {
		return
	}
	email, err := s.tokens.Decode(req.Token)
	if err != nil {
		writeFail(w, http.StatusBadRequest, assessment.CodeInvalidToken, "Invalid or expired token")
		return
	}
	writeOK(w, assessment.ValidateTokenData{Email: email})
}

func (s *Server) handleCheckStatus(w http.ResponseWriter, r *http.Request) {
	var req assessment.EmailRequest
	if !decode(w, r, &req) {
		return
	}
	email, ok := requireEmail(w, req.Email)
	if !ok {
		return
	}
	ctx := r.Context()

	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.load(ctx, email)
	if err != nil {
		s.internalError(w, err)
		return
	}
	before := p.Completed
	s.advance(p, s.now())
	if p.Completed != before {
		if err := s.ledger.Save(ctx, p); err != nil {
			s.internalError(w, err)
			return
		}
	}
	banned, err := s.ledger.Banned(ctx, email)
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeOK(w, assessment.TestStatus{BanStatus: banned, TestCompleted: p.Completed})
}

func (s *Server) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req assessment.SendOTPRequest
	if !decode(w, r, &req) {
		return
	}
	email, ok := requireEmail(w, req.Email)
	if !ok {
		return
	}
	ctx := r.Context()

	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.load(ctx, email)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if !s.gate(ctx, w, p) {
		return
	}
	code, err := s.codes.Generate(email, s.now())
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.metrics.PasscodesIssued.Inc()
	// The operator relays the passcode; there is no mail transport.
	s.log.Info().
		Str("identity", logging.MaskIdentity(email)).
		Str("student_name", req.StudentName).
		Str("passcode", code).
		Msg("passcode issued")
	writeOK(w, nil)
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req assessment.VerifyOTPRequest
	if !decode(w, r, &req) {
		return
	}
	email, ok := requireEmail(w, req.Email)
	if !ok {
		return
	}
	ctx := r.Context()

	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.load(ctx, email)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if !s.gate(ctx, w, p) {
		return
	}
	if !s.codes.Validate(email, req.OTP, s.now()) {
		s.log.Info().Str("identity", logging.MaskIdentity(email)).Msg("invalid passcode")
		writeFail(w, http.StatusUnauthorized, assessment.CodeInvalidOTP, "Invalid OTP")
		return
	}
	p.Verified = true
	if err := s.ledger.Save(ctx, p); err != nil {
		s.internalError(w, err)
		return
	}
	s.log.Info().Str("identity", logging.MaskIdentity(email)).Msg("participant verified")
	writeOK(w, nil)
}

func (s *Server) handleCurrentQuestion(w http.ResponseWriter, r *http.Request) {
	var req assessment.EmailRequest
	if !decode(w, r, &req) {
		return
	}
	email, ok := requireEmail(w, req.Email)
	if !ok {
		return
	}
	ctx := r.Context()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.load(ctx, email)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if !p.Verified {
		writeFail(w, http.StatusUnauthorized, assessment.CodeNotAuthorized, "Not authorized")
		return
	}
	banned, err := s.ledger.Banned(ctx, email)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if banned {
		writeFail(w, http.StatusForbidden, assessment.CodeUserBanned, "User is banned from taking tests")
		return
	}

	// The first fetch starts the clock
	if p.SectionID == 0 && !p.Completed {
		p.SectionID = 1
		p.SectionStarted = now
	}
	s.advance(p, now)
	if err := s.ledger.Save(ctx, p); err != nil {
		s.internalError(w, err)
		return
	}
	if p.Completed {
		writeCompleted(w)
		return
	}
	writeOK(w, s.snapshot(p, now))
}

func (s *Server) handleResponses(w http.ResponseWriter, r *http.Request) {
	var req assessment.ResponseRequest
	if !decode(w, r, &req) {
		return
	}
	email, ok := requireEmail(w, req.Email)
	if !ok {
		return
	}
	ctx := r.Context()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.load(ctx, email)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if !p.Verified || p.SectionID == 0 {
		writeFail(w, http.StatusUnauthorized, assessment.CodeNotAuthorized, "Not authorized")
		return
	}
	banned, err := s.ledger.Banned(ctx, email)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if banned {
		writeFail(w, http.StatusForbidden, assessment.CodeUserBanned, "User is banned from taking tests")
		return
	}

	s.advance(p, now)
	if p.Completed {
		if err := s.ledger.Save(ctx, p); err != nil {
			s.internalError(w, err)
			return
		}
		writeOK(w, assessment.ResponseData{SessionProgress: assessment.SessionProgress{TestCompleted: true, CurrentSectionID: p.SectionID}})
		return
	}

	q, _ := s.bank.Question(p.SectionID, p.QuestionIndex)
	if req.QuestionID != q.ID {
		writeFail(w, http.StatusConflict, assessment.CodeOutOfOrder, "Answer does not target the current question")
		return
	}
	if req.SelectedAnswer < 0 || req.SelectedAnswer >= len(q.Options) {
		writeFail(w, http.StatusBadRequest, "", "selected_answer out of range")
		return
	}

	correct := s.bank.Correct(p.SectionID, p.QuestionIndex, req.SelectedAnswer)
	if correct {
		p.Score++
	}
	p.Answered++
	p.QuestionIndex++
	s.metrics.ResponsesTotal.WithLabelValues(strconv.FormatBool(correct)).Inc()
	s.log.Debug().
		Str("identity", logging.MaskIdentity(email)).
		Int("question", req.QuestionID).
		Int("time_taken", req.TimeTaken).
		Bool("correct", correct).
		Msg("response recorded")

	if p.QuestionIndex >= s.bank.PerSection() {
		p.SectionID++
		p.QuestionIndex = 0
		p.SectionStarted = now
		if p.SectionID > s.bank.Sections() {
			s.finish(p)
		}
	}
	if err := s.ledger.Save(ctx, p); err != nil {
		s.internalError(w, err)
		return
	}
	writeOK(w, assessment.ResponseData{SessionProgress: assessment.SessionProgress{
		TestCompleted:    p.Completed,
		CurrentSectionID: p.SectionID,
	}})
}

func (s *Server) handleBanUser(w http.ResponseWriter, r *http.Request) {
	var req assessment.EmailRequest
	if !decode(w, r, &req) {
		return
	}
	email, ok := requireEmail(w, req.Email)
	if !ok {
		return
	}

	fresh, err := s.ledger.Ban(r.Context(), email)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if fresh {
		s.metrics.BansTotal.Inc()
		s.log.Warn().Str("identity", logging.MaskIdentity(email)).Msg("participant banned")
	}
	writeOK(w, nil)
}
