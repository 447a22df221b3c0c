// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Participant status and local audit trail.
//
// Examples:
//   proctor status                      Status of the stored participant
//   proctor status --email a@x.com      Status of another participant
//   proctor status --audit 20           Also list the latest audit events

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jeranaias/proctor-tui/internal/assessment"
	"github.com/jeranaias/proctor-tui/internal/config"
	"github.com/jeranaias/proctor-tui/internal/session"
	"github.com/jeranaias/proctor-tui/internal/storage"
	"github.com/jeranaias/proctor-tui/internal/util"
)

func (a *app) newStatusCmd() *cobra.Command {
	var email string
	var audit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a participant's test status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			return runStatus(cmd.Context(), cmd.OutOrStdout(), cfg, email, audit)
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Participant email (default: the stored participant)")
	cmd.Flags().IntVar(&audit, "audit", 0, "Also list this many recent local audit events")
	return cmd
}

func runStatus(ctx context.Context, out io.Writer, cfg *config.Config, email string, audit int) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var store *storage.Store
	if email == "" || audit > 0 {
		path, err := cfg.StoragePath()
		if err != nil {
			return NewCommandError("status", "init", "cannot resolve storage path", err)
		}
		store, err = storage.Open(path)
		if err != nil {
			return NewCommandError("status", "init", "cannot open local storage", err)
		}
		defer store.Close()
	}

	if email == "" {
		stored, err := session.NewStore(store, zerolog.Nop()).Identity(ctx)
		if errors.Is(err, session.ErrNoIdentity) {
			return &UsageError{Message: "no stored participant; pass --email"}
		}
		if err != nil {
			return NewCommandError("status", "lookup", "cannot read stored participant", err)
		}
		email = stored
	}

	client := assessment.NewClientWithConfig(&assessment.ClientConfig{
		BaseURL: cfg.Service.BaseURL,
		Timeout: cfg.ServiceTimeout(),
	})
	reqCtx, cancel := context.WithTimeout(ctx, cfg.ServiceTimeout())
	defer cancel()
	st, err := client.CheckTestStatus(reqCtx, email)
	if err != nil {
		return NewCommandError("status", "check", "cannot check test status", err)
	}

	bold := color.New(color.Bold)
	label := color.New(color.FgHiBlack)
	bold.Fprintln(out, "Participant status")
	fmt.Fprintf(out, "%s %s\n", label.Sprintf("%-12s", "Participant"), email)
	fmt.Fprintf(out, "%s %s\n", label.Sprintf("%-12s", "Service"), client.BaseURL())

	ban := color.GreenString("not banned")
	if st.BanStatus {
		ban = color.RedString("BANNED")
	}
	fmt.Fprintf(out, "%s %s\n", label.Sprintf("%-12s", "Ban"), ban)

	test := color.YellowString("not completed")
	if st.TestCompleted {
		test = color.GreenString("completed")
	}
	fmt.Fprintf(out, "%s %s\n", label.Sprintf("%-12s", "Test"), test)

	if audit > 0 {
		return printAudit(ctx, out, store, audit)
	}
	return nil
}

func printAudit(ctx context.Context, out io.Writer, store *storage.Store, limit int) error {
	events, err := store.RecentAudit(ctx, limit)
	if err != nil {
		return NewCommandError("status", "audit", "cannot read audit trail", err)
	}

	fmt.Fprintln(out)
	color.New(color.Bold).Fprintln(out, "Recent audit events")
	if len(events) == 0 {
		fmt.Fprintln(out, color.HiBlackString("  (none)"))
		return nil
	}
	for _, ev := range events {
		paint := color.New(color.FgYellow)
		switch ev.EventType {
		case "ban":
			paint = color.New(color.FgRed)
		case "completed":
			paint = color.New(color.FgGreen)
		}
		kind := paint.Sprint(util.PadRight(ev.EventType, 16))
		attempt := ev.AttemptID
		if len(attempt) > 8 {
			attempt = attempt[:8]
		}
		line := fmt.Sprintf("  %s  %s  %s", ev.Timestamp.Format("2006-01-02 15:04:05"), attempt, kind)
		if ev.Detail != "" {
			line += " " + ev.Detail
		}
		if ev.Count > 0 {
			line += fmt.Sprintf(" (#%d)", ev.Count)
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
