// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/proctor-tui/internal/assessment"
	"github.com/jeranaias/proctor-tui/internal/config"
	"github.com/jeranaias/proctor-tui/internal/logging"
	"github.com/jeranaias/proctor-tui/internal/proctor"
	"github.com/jeranaias/proctor-tui/internal/session"
	"github.com/jeranaias/proctor-tui/internal/storage"
	"github.com/jeranaias/proctor-tui/internal/ui/exam"
)

// errNoTerminal is returned when start runs without an interactive terminal.
var errNoTerminal = errors.New("proctor start needs an interactive terminal")

func (a *app) newStartCmd() *cobra.Command {
	var email, token string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Take a proctored test",
		Long: `Start the test identified by a test link. Pass either the participant
email or the encrypted token from the link.`,
		Example: `  proctor start --email ada@example.com
  proctor start --token Zm9vYmFy...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runStart(email, token)
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Participant email")
	cmd.Flags().StringVarP(&token, "token", "t", "", "Encrypted email token from the test link")
	return cmd
}

func (a *app) runStart(email, token string) error {
	if email == "" && token == "" {
		return &UsageError{Message: proctor.MsgInvalidLink}
	}
	if !IsTTY() || !IsStdoutTTY() {
		return NewCommandError("start", "run", "stdin and stdout must be a terminal", errNoTerminal)
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if err := config.EnsureConfigDir(); err != nil {
		return NewCommandError("start", "init", "cannot create config directory", err)
	}

	logPath, err := cfg.LogPath()
	if err != nil {
		return NewCommandError("start", "init", "cannot resolve log path", err)
	}
	log, logFile, err := logging.OpenFile(cfg.Logging, logPath)
	if err != nil {
		return NewCommandError("start", "init", "cannot open log file", err)
	}
	defer logFile.Close()

	dbPath, err := cfg.StoragePath()
	if err != nil {
		return NewCommandError("start", "init", "cannot resolve storage path", err)
	}
	store, err := storage.Open(dbPath)
	if err != nil {
		return NewCommandError("start", "init", "cannot open local storage", err)
	}
	defer store.Close()

	client := assessment.NewClientWithConfig(&assessment.ClientConfig{
		BaseURL: cfg.Service.BaseURL,
		Timeout: cfg.ServiceTimeout(),
	})

	model := exam.New(exam.Options{
		Config:     cfg,
		Service:    client,
		Identities: session.NewStore(store, log),
		Audit:      store,
		Credential: proctor.Credential{Identifier: email, Token: token},
		Log:        log,
	})

	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithoutSignalHandler()}
	if cfg.Terminal.Mouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	if cfg.Terminal.FocusReporting {
		opts = append(opts, tea.WithReportFocus())
	}
	p := tea.NewProgram(model, opts...)

	// Signals go through the model so an interrupt during the test counts
	// as a close attempt instead of killing the process.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigs)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case sig := <-sigs:
				log.Info().Str("signal", sig.String()).Msg("signal received")
				p.Send(exam.SignalMsg{Hangup: sig == syscall.SIGHUP})
			case <-done:
				return
			}
		}
	}()

	log.Info().Str("service", client.BaseURL()).Str("version", Version).Msg("starting exam client")
	final, err := p.Run()
	if err != nil {
		return NewCommandError("start", "run", "terminal UI failed", err)
	}

	m, ok := final.(exam.Model)
	if !ok {
		return nil
	}
	switch m.Screen() {
	case exam.ScreenBanned:
		return ErrBanned
	case exam.ScreenRejected:
		return NewCommandError("start", "run", m.Reason(), nil)
	case exam.ScreenCompleted:
		fmt.Println("Test completed. Your answers have been submitted.")
	}
	return nil
}
