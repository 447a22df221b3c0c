// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zerolog loggers used by the client and the
// development Assessment Service.
//
// The TUI owns the terminal, so the client always logs to a file. The mock
// server logs to stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/proctor-tui/internal/config"
	"github.com/rs/zerolog"
)

// ParseLevel maps a config level name onto a zerolog level. Unknown names
// fall back to info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	}
	return zerolog.InfoLevel
}

// New builds a logger writing to w in the configured format.
func New(cfg config.LoggingConfig, w io.Writer) zerolog.Logger {
	var out io.Writer = w
	if strings.ToLower(cfg.Format) == "console" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: w != os.Stderr}
	}
	return zerolog.New(out).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
}

// OpenFile builds a file-backed logger for the TUI client. The returned
// closer must be called on exit.
func OpenFile(cfg config.LoggingConfig, path string) (zerolog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
	}
	return New(cfg, f), f, nil
}

// MaskIdentity hides most of an email so logs never carry a full identity.
// "alice@example.com" becomes "al***@example.com".
func MaskIdentity(identity string) string {
	local, domain, found := strings.Cut(identity, "@")
	runes := []rune(local)
	if len(runes) <= 2 {
		local = strings.Repeat("*", len(runes))
	} else {
		local = string(runes[:2]) + "***"
	}
	if !found {
		return local
	}
	return local + "@" + domain
}
