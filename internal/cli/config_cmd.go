// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeranaias/proctor-tui/internal/config"
)

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), cfg.String())
			return nil
		},
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration, storage and log paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			file := a.configPath
			if file == "" {
				if file, err = config.ConfigPathTOML(); err != nil {
					return NewCommandError("config", "path", "cannot resolve config path", err)
				}
			}
			db, err := cfg.StoragePath()
			if err != nil {
				return NewCommandError("config", "path", "cannot resolve storage path", err)
			}
			logFile, err := cfg.LogPath()
			if err != nil {
				return NewCommandError("config", "path", "cannot resolve log path", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config   %s\n", file)
			fmt.Fprintf(out, "storage  %s\n", db)
			fmt.Fprintf(out, "log      %s\n", logFile)
			return nil
		},
	}

	var force, asJSON bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file := a.configPath
			var err error
			if file == "" {
				if asJSON {
					file, err = config.ConfigPathJSON()
				} else {
					file, err = config.ConfigPathTOML()
				}
				if err != nil {
					return NewCommandError("config", "init", "cannot resolve config path", err)
				}
			}
			if _, err := os.Stat(file); err == nil && !force {
				return &UsageError{Message: fmt.Sprintf("%s already exists; use --force to overwrite", file)}
			}

			cfg := config.Default()
			if asJSON {
				err = config.SaveJSON(cfg, file)
			} else {
				err = config.SaveTOML(cfg, file)
			}
			if err != nil {
				return NewCommandError("config", "init", "cannot write config", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", file)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	initCmd.Flags().BoolVar(&asJSON, "json", false, "Write config.json instead of config.toml")

	cmd.AddCommand(show, path, initCmd)
	return cmd
}

func (a *app) newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the stored participant",
		Long:  `Clear the participant identity kept between runs. Bans are recorded by the service and are not affected.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			return runReset(cmd, cfg)
		},
	}
}
