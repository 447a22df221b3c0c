// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package exam

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/proctor-tui/internal/proctor"
	"github.com/jeranaias/proctor-tui/internal/ui/components"
	"github.com/jeranaias/proctor-tui/internal/ui/styles"
	"github.com/jeranaias/proctor-tui/internal/util"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// beginTest builds the attempt's proctoring runtime for the authorized
// identity and re-checks the participant before any question is shown.
func (m Model) beginTest() (tea.Model, tea.Cmd) {
	identity := m.gate.Identity()
	sess := proctor.NewSession(identity)
	sess.Authorize()

	ban := proctor.NewBanEscalator(sess, m.opts.Service, m.opts.Identities, m.opts.Audit, m.opts.Log)
	ctrl := proctor.NewController(sess, ban, m.opts.Log)
	clock := proctor.NewClock()
	ban.OnBan(func(string) { clock.Ban() })

	rt := &runtime{
		sess:  sess,
		ban:   ban,
		ctrl:  ctrl,
		clock: clock,
		flow:  proctor.NewFlow(sess, m.opts.Service, clock, m.opts.Log),
	}

	gc := proctor.GuardConfig{Session: sess, Ban: ban, Audit: m.opts.Audit, Log: m.opts.Log}
	violations := proctor.NewViolationMonitor(gc, m.cfg.Exam.ViolationThreshold)
	violations.OnClipboard = func() { rt.scrubPending = true }
	rt.gc = gc
	rt.guards = []proctor.Guard{
		violations,
		proctor.NewNavigationGuard(gc, m.cfg.Exam.NavigationThreshold),
		proctor.NewFocusGuard(gc),
	}

	m.rt = rt
	m.otp.Blur()
	m.header.Student = proctor.StudentName(identity)
	m.screen = ScreenTest
	m.busy = true
	m.errMsg, m.info = "", ""
	m.log.Info().Str("attempt", sess.AttemptID()).Msg("participant authorized, entering test")
	return m, tea.Batch(m.spinner.Tick, m.testStatusCmd())
}

func (m Model) testStatusCmd() tea.Cmd {
	flow, timeout := m.rt.flow, m.cfg.ServiceTimeout()
	return func() tea.Msg {
		ctx, cancel := netContext(timeout)
		defer cancel()
		return testStatusMsg{err: flow.CheckStatus(ctx)}
	}
}

func (m Model) fetchCmd() tea.Cmd {
	flow, timeout := m.rt.flow, m.cfg.ServiceTimeout()
	return func() tea.Msg {
		ctx, cancel := netContext(timeout)
		defer cancel()
		snap, err := flow.FetchCurrent(ctx)
		return questionMsg{snap: snap, err: err}
	}
}

func (m Model) submitCmd(questionID, selected int) tea.Cmd {
	flow, timeout := m.rt.flow, m.cfg.ServiceTimeout()
	return func() tea.Msg {
		ctx, cancel := netContext(timeout)
		defer cancel()
		sel := selected
		outcome, err := flow.SubmitAnswer(ctx, questionID, &sel)
		return submitMsg{questionID: questionID, selected: selected, outcome: outcome, err: err}
	}
}

// =============================================================================
// TEST UPDATE
// =============================================================================

// updateTest handles the test view, starting with the status re-check that
// gates guard activation.
func (m Model) updateTest(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case testStatusMsg:
		switch {
		case errors.Is(msg.err, proctor.ErrRejectedBanned):
			m.busy = false
			m.rt.clock.Ban()
			m.clearIdentity()
			m.screen = ScreenRejected
			m.reason = proctor.MsgBanned
			return m, nil
		case errors.Is(msg.err, proctor.ErrTestCompleted):
			return m.finish()
		}
		// Resizes before activation reach no guard, so the fullscreen
		// guard starts from the size observed now.
		guards := append(m.rt.guards, proctor.NewFullscreenGuard(m.rt.gc, m.fullscreen))
		m.rt.guards = guards
		m.rt.ctrl.Activate(guards...)
		if !m.fullscreen {
			m.blocked = true
		}
		return m, m.fetchCmd()

	case questionMsg:
		return m.handleQuestion(msg)

	case submitMsg:
		return m.handleSubmit(msg)

	case proctor.ClockTickMsg:
		return m.handleTick(msg)

	case advanceMsg:
		if m.rt.sess.Terminal() {
			return m, nil
		}
		return m, m.fetchCmd()

	case finalizeMsg:
		if m.rt.sess.Terminal() {
			return m, nil
		}
		return m.finish()

	case components.ConfirmResultMsg:
		return m.handleLeave(msg)

	case tea.KeyMsg:
		return m.handleTestKey(msg)
	}
	return m, nil
}

// handleTestKey runs proctoring first: a key that maps to an event never
// reaches the answer widgets.
func (m Model) handleTestKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The open overlay keeps esc as its "stay" answer; every other
	// proctored key is still counted while it is shown.
	overlayEsc := m.overlay.IsVisible() && msg.Type == tea.KeyEsc
	if ev := TranslateKey(msg); ev != proctor.EventUnknown && !overlayEsc {
		m, cmd, _ := m.dispatchHandled(ev)
		return m, cmd
	}

	if m.overlay.IsVisible() {
		var cmd tea.Cmd
		m.overlay, cmd = m.overlay.Update(msg)
		return m, cmd
	}

	if m.blocked {
		if key.Matches(msg, m.keys.Submit) && m.fullscreen {
			m.blocked = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Retry) && m.retry != nil:
		cmd := m.retry
		m.retry, m.errMsg = nil, ""
		return m, cmd
	case m.snap == nil || m.submitting:
		return m, nil
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Choose):
		sel := m.cursor
		m.selected = &sel
	case key.Matches(msg, m.keys.Pick):
		n := int(msg.Runes[0] - '1')
		if n < len(m.snap.Question.Options) {
			m.cursor = n
			m.selected = &n
		}
	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	}
	return m, nil
}

func (m *Model) moveCursor(delta int) {
	n := len(m.snap.Question.Options)
	if n == 0 {
		return
	}
	m.cursor = (m.cursor + delta + n) % n
}

// submit sends the selection. Nothing selected is reported in place and
// never reaches the service.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.selected == nil {
		m.warning = proctor.MsgNoSelection
		return m, nil
	}
	if m.rt.clock.State() != proctor.ClockActive {
		// the section is closing; the pending refetch supersedes this answer
		return m, nil
	}
	m.submitting = true
	m.warning, m.errMsg = "", ""
	return m, tea.Batch(m.spinner.Tick, m.submitCmd(m.snap.Question.ID, *m.selected))
}

func (m Model) handleQuestion(msg questionMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	switch {
	case msg.err == nil:
	case errors.Is(msg.err, proctor.ErrTestCompleted):
		return m.finish()
	case errors.Is(msg.err, proctor.ErrSessionTerminal):
		return m, nil
	default:
		m.errMsg = proctor.MsgCannotConnect + " Press r to retry."
		m.retry = m.fetchCmd()
		return m, nil
	}

	m.snap = msg.snap
	m.cursor = 0
	m.selected = nil
	m.notice = ""
	m.errMsg, m.retry = "", nil
	m.header.SetPosition(msg.snap)
	m.header.Remaining = msg.snap.Timing.SectionTimeRemaining

	if m.rt.clock.State() != proctor.ClockActive {
		return m, nil
	}
	return m, proctor.TickCmd(m.rt.clock.Generation())
}

func (m Model) handleSubmit(msg submitMsg) (tea.Model, tea.Cmd) {
	m.submitting = false
	switch {
	case msg.err == nil:
	case errors.Is(msg.err, proctor.ErrSessionTerminal):
		return m, nil
	case errors.Is(msg.err, proctor.ErrStaleQuestion):
		return m, m.fetchCmd()
	case errors.Is(msg.err, proctor.ErrRejectedBanned):
		m.rt.ban.Trip("banned by the assessment service")
		return m.toBanned()
	case errors.Is(msg.err, proctor.ErrTestCompleted):
		return m.finish()
	case errors.Is(msg.err, proctor.ErrNoSelection):
		m.warning = proctor.MsgNoSelection
		return m, nil
	default:
		m.errMsg = proctor.MsgCannotConnect + " Press r to retry."
		m.retry = m.submitCmd(msg.questionID, msg.selected)
		return m, nil
	}

	if msg.outcome == proctor.OutcomeCompleted {
		return m.finish()
	}
	return m, m.fetchCmd()
}

// handleTick drives the section countdown. Ticks from an older generation
// end their chain.
func (m Model) handleTick(msg proctor.ClockTickMsg) (tea.Model, tea.Cmd) {
	clock := m.rt.clock
	if msg.Gen != clock.Generation() || clock.State() != proctor.ClockActive {
		return m, nil
	}
	remaining, action := clock.Tick(msg.Gen)
	m.header.Remaining = remaining

	switch action {
	case proctor.ActionAdvance:
		m.notice = proctor.MsgAutoAdvancing
		return m, tea.Tick(m.cfg.AdvanceDelay(), func(time.Time) tea.Msg { return advanceMsg{} })
	case proctor.ActionFinalize:
		m.notice = proctor.MsgFinalizing
		return m, tea.Tick(m.cfg.FinalizeGrace(), func(time.Time) tea.Msg { return finalizeMsg{} })
	}
	return m, proctor.TickCmd(msg.Gen)
}

// handleLeave acts on the leave confirmation. Leaving is a deliberate
// departure: the session is banned and the program exits once the ban is
// reported.
func (m Model) handleLeave(msg components.ConfirmResultMsg) (tea.Model, tea.Cmd) {
	if !msg.Confirmed || m.rt.sess.Terminal() {
		return m, nil
	}
	m.rt.ban.Trip("left the test after confirmation")
	m.quitOnReport = true
	return m.toBanned()
}

// finish completes the attempt: guards off, clock stopped, identity
// cleared after the completion delay.
func (m Model) finish() (tea.Model, tea.Cmd) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if !m.rt.ctrl.Complete(ctx, m.opts.Audit) && m.rt.sess.Banned() {
		return m.toBanned()
	}
	m.rt.clock.Complete()
	if m.opts.Identities != nil {
		m.opts.Identities.ClearAfter(m.cfg.CompletionClear())
	}
	m.screen = ScreenCompleted
	m.busy, m.submitting = false, false
	m.overlay.Hide()
	return m, nil
}

// =============================================================================
// TEST VIEW
// =============================================================================

func (m Model) viewTest() string {
	t := m.theme
	width := t.ContentWidth()
	var b strings.Builder

	b.WriteString(m.header.View())
	b.WriteString("\n\n")

	if m.snap != nil {
		p := m.snap.Progress
		b.WriteString(m.bar.ViewAs(p.CompletionPercentage / 100))
		b.WriteString(fmt.Sprintf(" %3.0f%%  ", p.CompletionPercentage))
		b.WriteString(t.Score.Render(fmt.Sprintf("Score: %d", p.TotalScore)))
		b.WriteString("\n\n")
	}

	if m.warning != "" {
		b.WriteString(t.Warning.Width(width).Render(m.warning))
		b.WriteString("\n\n")
	}
	if m.notice != "" {
		b.WriteString(styles.RenderInfo(m.notice))
		b.WriteString("\n\n")
	}

	switch {
	case m.blocked:
		b.WriteString(styles.RenderWarning(m.fullscreenHint()))
		b.WriteString("\n")
		b.WriteString(m.hints("enter", "continue"))
	case m.snap == nil && m.errMsg == "":
		b.WriteString(m.spinner.View() + " " + t.Label.Render("Loading question..."))
	case m.snap != nil:
		b.WriteString(m.viewQuestion(width))
	}

	if m.errMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(styles.RenderError(m.errMsg))
	}

	b.WriteString("\n\n")
	if m.submitting {
		b.WriteString(m.spinner.View() + " " + t.Label.Render("Submitting..."))
	} else {
		b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	}
	return t.App.Render(b.String())
}

func (m Model) viewQuestion(width int) string {
	t := m.theme
	q := m.snap.Question
	var b strings.Builder

	label := t.QuestionNumber.Render(fmt.Sprintf("Q%d. ", m.snap.Progress.CurrentQuestionNumber))
	indent := util.StringWidth(fmt.Sprintf("Q%d. ", m.snap.Progress.CurrentQuestionNumber))
	for i, line := range util.Wrap(q.Prompt, width-indent) {
		if i == 0 {
			b.WriteString(label)
		} else {
			b.WriteString(strings.Repeat(" ", indent))
		}
		b.WriteString(t.QuestionText.Render(line))
		b.WriteString("\n")
	}

	if m.render != nil {
		if desc := m.render.Render(q, width); desc != "" {
			b.WriteString(desc)
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	for i, opt := range q.Options {
		mark := styles.StatusIndicators.Option
		style := t.Option
		if m.selected != nil && *m.selected == i {
			mark = styles.StatusIndicators.Selected
			style = t.OptionSelected
		} else if i == m.cursor {
			style = t.OptionCursor
		}
		text := fmt.Sprintf("%s %d. %s", mark, i+1, opt)
		b.WriteString(style.Render(util.TruncateWidth(text, width-style.GetHorizontalFrameSize())))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
