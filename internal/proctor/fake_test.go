// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package proctor

import (
	"context"
	"errors"
	"sync"

	"github.com/jeranaias/proctor-tui/internal/assessment"
	"github.com/jeranaias/proctor-tui/internal/session"
	"github.com/jeranaias/proctor-tui/internal/storage"
	"github.com/rs/zerolog"
)

// fakeService is an in-memory Assessment Service that counts calls.
type fakeService struct {
	mu sync.Mutex

	calls map[string]int

	tokens      map[string]string
	validateErr error
	status      map[string]assessment.TestStatus
	statusErr   error
	sendErr     error
	verifyErr   error
	banErr      error

	snapshots []*assessment.CurrentQuestion
	fetchErr  error
	completed bool

	progress  []assessment.SessionProgress
	submitErr error
	submitted []assessment.ResponseRequest
	bannedIDs []string
}

func newFakeService() *fakeService {
	return &fakeService{
		calls:  make(map[string]int),
		tokens: make(map[string]string),
		status: make(map[string]assessment.TestStatus),
	}
}

func (f *fakeService) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeService) ValidateEncryptedEmail(_ context.Context, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["validate-encrypted-email"]++
	if f.validateErr != nil {
		return "", f.validateErr
	}
	email, ok := f.tokens[token]
	if !ok {
		return "", &assessment.ClientError{Type: assessment.ErrTypeRejected, Code: assessment.CodeInvalidToken, Message: "invalid"}
	}
	return email, nil
}

func (f *fakeService) CheckTestStatus(_ context.Context, email string) (*assessment.TestStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["check-test-status"]++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	st := f.status[email]
	return &st, nil
}

func (f *fakeService) SendOTP(_ context.Context, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["send-otp"]++
	return f.sendErr
}

func (f *fakeService) VerifyOTP(_ context.Context, _, otp, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["verify-otp"]++
	return f.verifyErr
}

func (f *fakeService) CurrentQuestion(_ context.Context, _ string) (*assessment.CurrentQuestion, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["current-question"]++
	if f.completed {
		return nil, true, nil
	}
	if f.fetchErr != nil {
		return nil, false, f.fetchErr
	}
	if len(f.snapshots) == 0 {
		return nil, false, errors.New("no snapshot queued")
	}
	snap := f.snapshots[0]
	if len(f.snapshots) > 1 {
		f.snapshots = f.snapshots[1:]
	}
	cp := *snap
	return &cp, false, nil
}

func (f *fakeService) SubmitResponse(_ context.Context, req assessment.ResponseRequest) (*assessment.SessionProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["responses"]++
	f.submitted = append(f.submitted, req)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	if len(f.progress) == 0 {
		return &assessment.SessionProgress{}, nil
	}
	p := f.progress[0]
	f.progress = f.progress[1:]
	return &p, nil
}

func (f *fakeService) BanUser(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ban-user"]++
	f.bannedIDs = append(f.bannedIDs, email)
	return f.banErr
}

// memAudit collects audit events.
type memAudit struct {
	mu     sync.Mutex
	events []storage.AuditEvent
}

func (m *memAudit) AppendAudit(_ context.Context, ev storage.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memAudit) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, ev := range m.events {
		out[i] = ev.EventType
	}
	return out
}

// harness wires a full controller for one identity.
type harness struct {
	svc   *fakeService
	ids   *session.Store
	audit *memAudit
	sess  *Session
	ban   *BanEscalator
	ctrl  *Controller
	clock *Clock
	flow  *Flow

	violation  *ViolationMonitor
	navigation *NavigationGuard
	focus      *FocusGuard
	fullscreen *FullscreenGuard
}

func newHarness(identity string) *harness {
	log := zerolog.Nop()
	h := &harness{
		svc:   newFakeService(),
		ids:   session.NewStore(storage.NewMemoryKV(), log),
		audit: &memAudit{},
		sess:  NewSession(identity),
		clock: NewClock(),
	}
	_ = h.ids.SaveIdentity(context.Background(), identity)
	h.ban = NewBanEscalator(h.sess, h.svc, h.ids, h.audit, log)
	h.ban.OnBan(func(string) { h.clock.Ban() })
	h.ctrl = NewController(h.sess, h.ban, log)
	h.flow = NewFlow(h.sess, h.svc, h.clock, log)

	cfg := GuardConfig{Session: h.sess, Ban: h.ban, Audit: h.audit, Log: log}
	h.violation = NewViolationMonitor(cfg, 2)
	h.navigation = NewNavigationGuard(cfg, 2)
	h.focus = NewFocusGuard(cfg)
	h.fullscreen = NewFullscreenGuard(cfg, true)
	return h
}

func (h *harness) activate() {
	h.ctrl.Activate(h.fullscreen, h.violation, h.navigation, h.focus)
}

func snapshot(id, section, totalSections, remaining int) *assessment.CurrentQuestion {
	return &assessment.CurrentQuestion{
		Question: assessment.Question{ID: id, Prompt: "Q", Options: []string{"a", "b", "c", "d"}, SectionID: section},
		Section:  assessment.Section{ID: section, Name: "S", TimeLimit: 300, TotalQuestions: 5},
		Timing:   assessment.Timing{SectionTimeRemaining: remaining, TestTimeRemaining: remaining * totalSections},
		Progress: assessment.Progress{CurrentSectionID: section, CurrentQuestionNumber: 1, TotalQuestionsInSection: 5, TotalSections: totalSections},
	}
}

func intp(i int) *int { return &i }
