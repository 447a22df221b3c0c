// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jeranaias/proctor-tui/internal/config"
	"github.com/jeranaias/proctor-tui/internal/logging"
	"github.com/jeranaias/proctor-tui/internal/mockservice"
)

func (a *app) newMockServerCmd() *cobra.Command {
	var listen, ledger, issue string

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run the development Assessment Service",
		Long: `Run an in-process Assessment Service for development and demos.
Passcodes are logged to stderr. Use --issue-token to print a test-link token
for an email instead of serving.`,
		Example: `  proctor mock-server --listen :5001
  proctor mock-server --ledger bolt
  proctor mock-server --issue-token ada@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			mcfg := cfg.Mock
			if listen != "" {
				mcfg.Listen = listen
			}
			if ledger != "" {
				mcfg.Ledger = ledger
			}

			if issue != "" {
				token, err := mockservice.IssueToken(mcfg.Secret, issue)
				if err != nil {
					return NewCommandError("mock-server", "issue-token", "cannot seal token", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			}
			return runMockServer(cmd, cfg, mcfg)
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address (default from mock.listen)")
	cmd.Flags().StringVar(&ledger, "ledger", "", "Ledger backend: memory, bolt or redis")
	cmd.Flags().StringVar(&issue, "issue-token", "", "Print an encrypted token for this email and exit")
	return cmd
}

func runMockServer(cmd *cobra.Command, cfg *config.Config, mcfg config.MockConfig) error {
	log := logging.New(cfg.Logging, os.Stderr)

	if mcfg.Ledger == "bolt" && mcfg.BoltPath == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			return NewCommandError("mock-server", "init", "cannot resolve ledger path", err)
		}
		mcfg.BoltPath = filepath.Join(dir, "mock-ledger.db")
	}
	ledger, err := mockservice.OpenLedger(mcfg)
	if err != nil {
		return NewCommandError("mock-server", "init", "cannot open ledger", err)
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close ledger")
		}
	}()

	srv, err := mockservice.New(mockservice.Options{Config: mcfg, Ledger: ledger, Log: log})
	if err != nil {
		return NewCommandError("mock-server", "init", "cannot create service", err)
	}

	log.Info().
		Str("listen", mcfg.Listen).
		Str("ledger", mcfg.Ledger).
		Int("sections", mcfg.Sections).
		Int("questions_per_section", mcfg.QuestionsPerSection).
		Msg("starting mock assessment service")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := srv.ListenAndServe(ctx, mcfg.Listen); err != nil {
		return NewCommandError("mock-server", "serve", "server stopped", err)
	}
	return nil
}
