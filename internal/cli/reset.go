// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jeranaias/proctor-tui/internal/config"
	"github.com/jeranaias/proctor-tui/internal/session"
	"github.com/jeranaias/proctor-tui/internal/storage"
)

func runReset(cmd *cobra.Command, cfg *config.Config) error {
	path, err := cfg.StoragePath()
	if err != nil {
		return NewCommandError("reset", "init", "cannot resolve storage path", err)
	}
	store, err := storage.Open(path)
	if err != nil {
		return NewCommandError("reset", "init", "cannot open local storage", err)
	}
	defer store.Close()

	if err := session.NewStore(store, zerolog.Nop()).Clear(cmd.Context()); err != nil {
		return NewCommandError("reset", "clear", "cannot clear stored participant", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Stored participant cleared.")
	return nil
}
