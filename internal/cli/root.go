// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/proctor-tui/internal/config"
)

// Version information (set at build time)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// app holds the persistent flags shared by every subcommand.
type app struct {
	configPath string
	logLevel   string
	apiURL     string
}

// NewRootCmd builds the proctor command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "proctor",
		Short: "proctor - proctored multiple-choice tests in the terminal",
		Long: `proctor runs a timed, proctored multiple-choice test against an
Assessment Service. Copying, pasting, leaving the terminal or shrinking it
below its minimum size during the test is malpractice and ends in a
permanent ban.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			applyColorMode()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to configuration file (default ~/.proctor/config.toml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.apiURL, "api", "", "Assessment Service base URL")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Message: err.Error()}
	})

	root.AddCommand(
		a.newStartCmd(),
		a.newMockServerCmd(),
		a.newStatusCmd(),
		a.newConfigCmd(),
		a.newResetCmd(),
	)
	return root
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return ExitCode(err)
}

// loadConfig reads the configuration file and applies flag overrides.
func (a *app) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFromPath(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if cfg == nil {
		return nil, NewCommandError("config", "load", "cannot load configuration", err)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
	}

	if a.logLevel != "" {
		cfg.Logging.Level = strings.ToLower(a.logLevel)
	}
	if a.apiURL != "" {
		cfg.Service.BaseURL = a.apiURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	config.SetGlobal(cfg)
	return cfg, nil
}
