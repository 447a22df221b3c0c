// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package exam

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/proctor-tui/internal/proctor"
	"github.com/jeranaias/proctor-tui/internal/ui/styles"
)

// =============================================================================
// ENTRY COMMANDS
// =============================================================================

// startEntry validates the credential, checks the participant's status and
// requests the first passcode. It resumes from wherever a previous attempt
// stopped, so it doubles as the retry.
func (m Model) startEntry() tea.Cmd {
	gate, cred, timeout := m.gate, m.opts.Credential, m.cfg.ServiceTimeout()
	return func() tea.Msg {
		ctx, cancel := netContext(timeout)
		defer cancel()
		if gate.State() == proctor.AuthUnvalidated {
			if _, err := gate.Validate(ctx, cred); err != nil {
				return entryMsg{err: err}
			}
		}
		if gate.State() == proctor.AuthValidating {
			if err := gate.CheckStatus(ctx); err != nil {
				return entryMsg{err: err}
			}
			if err := gate.RequestPasscode(ctx); err != nil {
				return entryMsg{err: err}
			}
		}
		return entryMsg{}
	}
}

func (m Model) verifyCmd(code string) tea.Cmd {
	gate, fullscreen, timeout := m.gate, m.fullscreen, m.cfg.ServiceTimeout()
	return func() tea.Msg {
		ctx, cancel := netContext(timeout)
		defer cancel()
		return verifyMsg{err: gate.VerifyPasscode(ctx, code, fullscreen)}
	}
}

func (m Model) confirmFullscreenCmd() tea.Cmd {
	gate, timeout := m.gate, m.cfg.ServiceTimeout()
	return func() tea.Msg {
		ctx, cancel := netContext(timeout)
		defer cancel()
		return verifyMsg{err: gate.ConfirmFullscreen(ctx)}
	}
}

func (m Model) resendCmd() tea.Cmd {
	gate, timeout := m.gate, m.cfg.ServiceTimeout()
	return func() tea.Msg {
		ctx, cancel := netContext(timeout)
		defer cancel()
		return resendMsg{err: gate.RequestPasscode(ctx)}
	}
}

// =============================================================================
// ENTRY UPDATE
// =============================================================================

func (m Model) updateEntry(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case entryMsg:
		m.busy = false
		if m.rejected(msg.err) {
			return m, nil
		}
		if msg.err != nil {
			m.errMsg = proctor.Message(msg.err)
			m.retry = m.startEntry()
			return m, nil
		}
		m.errMsg, m.retry = "", nil
		m.info = fmt.Sprintf("A passcode has been sent to %s.", m.gate.Identity())
		cmd := m.otp.Focus()
		return m, cmd

	case verifyMsg:
		m.busy = false
		return m.afterVerify(msg.err)

	case resendMsg:
		m.busy = false
		if m.rejected(msg.err) {
			return m, nil
		}
		if msg.err != nil {
			m.errMsg = proctor.Message(msg.err)
			return m, nil
		}
		m.errMsg = ""
		m.otp.Reset()
		m.info = "A new passcode has been sent."
		return m, nil

	case tea.KeyMsg:
		return m.handleEntryKey(msg)
	}

	var cmd tea.Cmd
	m.otp, cmd = m.otp.Update(msg)
	return m, cmd
}

// rejected moves to the rejection screen when the gate has closed.
func (m *Model) rejected(err error) bool {
	if err == nil || m.gate.State() != proctor.AuthRejected {
		return false
	}
	m.screen = ScreenRejected
	m.reason = proctor.Message(m.gate.Rejection())
	m.otp.Blur()
	return true
}

func (m Model) afterVerify(err error) (tea.Model, tea.Cmd) {
	if m.rejected(err) {
		return m, nil
	}
	switch {
	case err == nil:
	case errors.Is(err, proctor.ErrInvalidPasscode):
		m.errMsg = proctor.MsgInvalidPasscode
		m.otp.Reset()
		return m, nil
	default:
		m.errMsg = proctor.Message(err)
		return m, nil
	}

	m.errMsg = ""
	switch m.gate.State() {
	case proctor.AuthAwaitingFullscreen:
		m.otp.Blur()
		m.info = ""
		return m, nil
	case proctor.AuthAuthorized:
		return m.beginTest()
	}
	return m, nil
}

func (m Model) handleEntryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.busy {
		return m, nil
	}

	switch m.gate.State() {
	case proctor.AuthAwaitingFullscreen:
		return m.handleFullscreenPromptKey(msg)

	case proctor.AuthOtpPending:
		switch {
		case key.Matches(msg, m.keys.Submit):
			code := m.otp.Value()
			if !proctor.ValidPasscode(code) {
				m.errMsg = proctor.MsgMalformedPasscode
				return m, nil
			}
			m.busy = true
			m.errMsg = ""
			return m, tea.Batch(m.spinner.Tick, m.verifyCmd(code))
		case key.Matches(msg, m.keys.Resend):
			m.busy = true
			return m, tea.Batch(m.spinner.Tick, m.resendCmd())
		case key.Matches(msg, m.keys.Cancel):
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.otp, cmd = m.otp.Update(msg)
		// Digits only, at most six
		if clean := proctor.SanitizePasscode(m.otp.Value()); clean != m.otp.Value() {
			m.otp.SetValue(clean)
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Retry) && m.retry != nil:
		m.busy = true
		m.errMsg = ""
		cmd := m.retry
		m.retry = nil
		return m, tea.Batch(m.spinner.Tick, cmd)
	case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.Cancel):
		return m, tea.Quit
	}
	return m, nil
}

// handleFullscreenPromptKey: enter confirms once the terminal qualifies,
// esc returns to passcode entry with the code cleared.
func (m Model) handleFullscreenPromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		if !m.fullscreen {
			m.errMsg = m.fullscreenHint()
			return m, nil
		}
		m.busy = true
		m.errMsg = ""
		return m, tea.Batch(m.spinner.Tick, m.confirmFullscreenCmd())
	case key.Matches(msg, m.keys.Cancel):
		if err := m.gate.CancelFullscreen(); err != nil {
			m.log.Warn().Err(err).Msg("cancel fullscreen")
			return m, nil
		}
		m.otp.Reset()
		m.errMsg = ""
		m.info = "Fullscreen is required to start. Enter your passcode again when ready."
		cmd := m.otp.Focus()
		return m, cmd
	}
	return m, nil
}

func (m Model) fullscreenHint() string {
	return fmt.Sprintf("Enlarge the terminal to at least %dx%d (now %dx%d).",
		m.cfg.Terminal.MinWidth, m.cfg.Terminal.MinHeight, m.width, m.height)
}

// =============================================================================
// ENTRY VIEW
// =============================================================================

func (m Model) viewEntry() string {
	t := m.theme
	var b strings.Builder

	b.WriteString(t.CardTitle.Render("Proctored Assessment"))
	b.WriteString("\n")

	switch {
	case m.busy:
		b.WriteString(m.spinner.View() + " " + t.Label.Render(m.busyText()))
	case m.gate.State() == proctor.AuthAwaitingFullscreen:
		b.WriteString(t.Label.Render("This test runs fullscreen. Leaving fullscreen during the test"))
		b.WriteString("\n")
		b.WriteString(t.Label.Render("results in a permanent ban."))
		b.WriteString("\n\n")
		status := styles.RenderWarning(m.fullscreenHint())
		if m.fullscreen {
			status = styles.RenderSuccess(fmt.Sprintf("Terminal is %dx%d.", m.width, m.height))
		}
		b.WriteString(status)
		b.WriteString("\n\n")
		b.WriteString(m.hints("enter", "start test", "esc", "cancel"))
	case m.gate.State() == proctor.AuthOtpPending:
		if m.info != "" {
			b.WriteString(t.Label.Render(m.info))
			b.WriteString("\n\n")
		}
		b.WriteString(t.Input.Render(m.otp.View()))
		b.WriteString("\n\n")
		b.WriteString(m.help.ShortHelpView(m.keys.entryHelp()))
	default:
		if m.info != "" && m.errMsg == "" {
			b.WriteString(t.Label.Render(m.info))
		}
		if m.retry != nil {
			b.WriteString("\n")
			b.WriteString(m.hints("r", "retry", "q", "quit"))
		}
	}

	if m.errMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(styles.RenderError(m.errMsg))
	}

	return m.place(t.Card.Render(b.String()))
}

func (m Model) busyText() string {
	switch m.gate.State() {
	case proctor.AuthUnvalidated, proctor.AuthValidating:
		return "Validating your test link..."
	case proctor.AuthVerifying:
		return "Verifying passcode..."
	case proctor.AuthAwaitingFullscreen:
		return "Starting test..."
	}
	return "Sending passcode..."
}

// hints renders "key action" pairs in the hint style.
func (m Model) hints(pairs ...string) string {
	parts := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, m.theme.HintKey.Render(pairs[i])+" "+m.theme.Hint.Render(pairs[i+1]))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(parts, "   "))
}
