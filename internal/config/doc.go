// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for proctor.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ServiceConfig: Assessment Service endpoint and timeout
//   - ExamConfig: Strike thresholds and expiry timings
//   - TerminalConfig: Minimum terminal size treated as fullscreen
//   - MockConfig: Development Assessment Service settings
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (PROCTOR_*)
//   - $PROCTOR_HOME/config.toml (default ~/.proctor)
//   - $PROCTOR_HOME/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	grace := cfg.FinalizeGrace()
package config
