// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package exam

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/jeranaias/proctor-tui/internal/config"
	"github.com/jeranaias/proctor-tui/internal/proctor"
	"github.com/jeranaias/proctor-tui/internal/session"
	"github.com/jeranaias/proctor-tui/internal/ui/components"
	"github.com/jeranaias/proctor-tui/internal/ui/styles"
)

// Service is everything the exam views need from the Assessment Service.
type Service interface {
	proctor.AuthService
	proctor.QuestionService
	proctor.BanReporter
}

// Options wires a Model to its collaborators.
type Options struct {
	Config     *config.Config
	Service    Service
	Identities *session.Store
	// Audit receives the local trail; nil disables it
	Audit      proctor.Auditor
	Credential proctor.Credential
	Log        zerolog.Logger
	// Clipboard overwrites the system clipboard; nil uses atotto/clipboard
	Clipboard func(string) error
	// Theme defaults to styles.NewTheme()
	Theme *styles.Theme
}

// Screen is the top-level view.
type Screen int

const (
	ScreenEntry Screen = iota
	ScreenTest
	ScreenBanned
	ScreenCompleted
	ScreenRejected
)

func (s Screen) String() string {
	switch s {
	case ScreenEntry:
		return "entry"
	case ScreenTest:
		return "test"
	case ScreenBanned:
		return "banned"
	case ScreenCompleted:
		return "completed"
	case ScreenRejected:
		return "rejected"
	}
	return "unknown"
}

// runtime is the per-attempt proctoring state created on authorization.
// It is shared by pointer across Model copies.
type runtime struct {
	sess   *proctor.Session
	ban    *proctor.BanEscalator
	ctrl   *proctor.Controller
	clock  *proctor.Clock
	flow   *proctor.Flow
	guards []proctor.Guard
	gc     proctor.GuardConfig

	scrubPending bool
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the proctored exam program: passcode entry, the timed question
// view and the terminal ban, completion and rejection screens.
type Model struct {
	opts  Options
	cfg   *config.Config
	theme *styles.Theme
	keys  KeyMap
	log   zerolog.Logger

	screen     Screen
	width      int
	height     int
	fullscreen bool
	sized      bool

	// Entry
	gate    *proctor.AuthGate
	otp     textinput.Model
	spinner spinner.Model
	busy    bool
	info    string
	errMsg  string
	retry   tea.Cmd

	// Test
	rt         *runtime
	header     *components.Header
	overlay    components.ConfirmOverlay
	bar        progress.Model
	help       help.Model
	render     *Renderer
	mouse      *mouseTracker
	snap       *proctor.Snapshot
	cursor     int
	selected   *int
	submitting bool
	warning    string
	notice     string
	blocked    bool

	// Terminal screens
	reason       string
	reported     bool
	quitOnReport bool
}

// New creates the exam model. opts.Config and opts.Service are required.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	log := opts.Log.With().Str("component", "exam").Logger()

	ti := textinput.New()
	ti.Placeholder = "6-digit passcode"
	ti.CharLimit = proctor.PasscodeLength
	ti.Width = proctor.PasscodeLength + 1
	ti.Prompt = "> "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.TextPrimary)
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true)
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(styles.Cyan)

	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = theme.Spinner

	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())

	render, err := NewRenderer(theme.IsDark)
	if err != nil {
		log.Warn().Err(err).Msg("description renderer unavailable")
	}

	return Model{
		opts:    opts,
		cfg:     cfg,
		theme:   theme,
		keys:    DefaultKeyMap(),
		log:     log,
		gate:    proctor.NewAuthGate(opts.Service, opts.Identities, cfg.ResendInterval(), opts.Log),
		otp:     ti,
		spinner: sp,
		busy:    true,
		info:    "Validating your test link...",
		header:  components.NewHeader(theme),
		overlay: components.NewConfirmOverlay(theme),
		bar:     bar,
		help:    help.New(),
		render:  render,
		mouse:   &mouseTracker{},
	}
}

// Screen returns the current top-level view.
func (m Model) Screen() Screen { return m.screen }

// Reason is the ban or rejection text shown on a terminal screen.
func (m Model) Reason() string { return m.reason }

// Session returns the attempt's session, or nil before authorization.
func (m Model) Session() *proctor.Session {
	if m.rt == nil {
		return nil
	}
	return m.rt.sess
}

// Init starts entry validation.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startEntry())
}

// =============================================================================
// UPDATE
// =============================================================================

// Update routes msg to the active screen.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.FocusMsg, tea.BlurMsg:
		return m.dispatch(focusEvent(msg))

	case tea.MouseMsg:
		if m.screen != ScreenTest {
			return m, nil
		}
		return m.dispatch(m.mouse.translate(msg))

	case SignalMsg:
		return m.handleSignal(msg)

	case spinner.TickMsg:
		if !m.busy && !m.submitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case banReportedMsg:
		m.reported = true
		if m.quitOnReport {
			return m, tea.Quit
		}
		return m, nil

	case clipboardScrubbedMsg:
		if msg.err != nil {
			m.log.Debug().Err(msg.err).Msg("clipboard scrub failed")
		}
		return m, nil
	}

	switch m.screen {
	case ScreenEntry:
		return m.updateEntry(msg)
	case ScreenTest:
		return m.updateTest(msg)
	case ScreenCompleted:
		return m.updateCompleted(msg)
	}
	return m.updateClosed(msg)
}

// handleResize tracks the terminal size. Crossing the minimum size is the
// terminal's fullscreen transition.
func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width, m.height = msg.Width, msg.Height
	m.theme.SetSize(msg.Width, msg.Height)
	m.header.SetWidth(m.theme.ContentWidth())
	m.overlay.SetSize(msg.Width, msg.Height)
	m.bar.Width = min(m.theme.ContentWidth()-16, 60)
	m.help.Width = m.theme.ContentWidth()

	was := m.fullscreen
	m.fullscreen = msg.Width >= m.cfg.Terminal.MinWidth && msg.Height >= m.cfg.Terminal.MinHeight
	if !m.sized {
		m.sized = true
		return m, nil
	}
	return m.dispatch(fullscreenEvent(was, m.fullscreen))
}

// dispatch hands ev to the controller and applies the verdict. Events
// before authorization or of unknown kind are ignored.
func (m Model) dispatch(ev proctor.EventKind) (Model, tea.Cmd) {
	m, cmd, _ := m.dispatchHandled(ev)
	return m, cmd
}

func (m Model) dispatchHandled(ev proctor.EventKind) (Model, tea.Cmd, bool) {
	if m.rt == nil || ev == proctor.EventUnknown {
		return m, nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v := m.rt.ctrl.Dispatch(ctx, ev)

	var cmds []tea.Cmd
	if m.rt.scrubPending {
		m.rt.scrubPending = false
		cmds = append(cmds, m.scrubClipboard())
	}
	if v.Banned {
		m, cmd := m.toBanned()
		return m, tea.Batch(append(cmds, cmd)...), true
	}
	if v.Confirm != "" {
		m.overlay.Show("Leave the test?", v.Confirm)
	}
	if v.Warning != "" {
		m.warning = v.Warning
	}
	if v.Block {
		m.blocked = true
	}
	return m, tea.Batch(cmds...), v.Handled
}

// handleSignal treats SIGINT/SIGTERM as a close attempt and a hangup as a
// completed departure. Outside the test the program simply exits.
func (m Model) handleSignal(msg SignalMsg) (tea.Model, tea.Cmd) {
	if m.rt == nil || !m.rt.sess.Monitoring() {
		if m.screen == ScreenCompleted {
			m.clearIdentity()
		}
		return m, tea.Quit
	}
	if msg.Hangup {
		m.rt.ban.Trip("terminal closed during test")
		m.quitOnReport = true
		return m.toBanned()
	}
	return m.dispatch(proctor.EventCloseAttempt)
}

// toBanned switches to the ban screen and reports the ban in the
// background. It is safe to call more than once.
func (m Model) toBanned() (Model, tea.Cmd) {
	if m.screen == ScreenBanned {
		return m, nil
	}
	m.screen = ScreenBanned
	m.overlay.Hide()
	m.busy, m.submitting = false, false
	if m.rt == nil {
		return m, nil
	}
	m.reason = m.rt.ban.Reason()
	m.log.Warn().Str("reason", m.reason).Msg("showing ban screen")
	ban := m.rt.ban
	return m, func() tea.Msg {
		ban.Report(context.Background())
		return banReportedMsg{}
	}
}

// scrubClipboard overwrites the system clipboard after an intercepted copy.
func (m Model) scrubClipboard() tea.Cmd {
	write := m.opts.Clipboard
	return func() tea.Msg {
		return clipboardScrubbedMsg{err: write("")}
	}
}

func (m Model) clearIdentity() {
	if m.opts.Identities == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.opts.Identities.Clear(ctx); err != nil {
		m.log.Warn().Err(err).Msg("failed to clear identity")
	}
}

// netContext bounds one service round trip. It is created when a command
// runs, not when it is built, so a stored retry gets a fresh deadline.
func netContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(context.Background(), timeout)
	}
	return context.WithCancel(context.Background())
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the active screen.
func (m Model) View() string {
	switch m.screen {
	case ScreenEntry:
		return m.viewEntry()
	case ScreenTest:
		if m.overlay.IsVisible() {
			return m.overlay.View()
		}
		return m.viewTest()
	case ScreenBanned:
		return m.viewBanned()
	case ScreenCompleted:
		return m.viewCompleted()
	}
	return m.viewRejected()
}

// place centers content in the window, or returns it as is before the
// first size report.
func (m Model) place(content string) string {
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}
