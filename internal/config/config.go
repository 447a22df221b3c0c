// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for proctor.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - $PROCTOR_HOME/config.toml (default ~/.proctor/config.toml)
//   - $PROCTOR_HOME/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/proctor-tui/internal/util"
)

// CurrentVersion is written into freshly generated config files.
const CurrentVersion = "1"

// Proctoring floors that a config file cannot relax.
const (
	// StrikeThreshold is the violation and navigation count that bans
	StrikeThreshold = 2

	MinFullscreenWidth  = 80
	MinFullscreenHeight = 24
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete proctor configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Assessment Service connection
	Service ServiceConfig `toml:"service" json:"service"`

	// Proctoring policy
	Exam ExamConfig `toml:"exam" json:"exam"`

	// Terminal requirements for the "fullscreen" check
	Terminal TerminalConfig `toml:"terminal" json:"terminal"`

	// OTP entry behaviour
	Auth AuthConfig `toml:"auth" json:"auth"`

	// Local persistence
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Logging
	Logging LoggingConfig `toml:"logging" json:"logging"`

	// Development Assessment Service
	Mock MockConfig `toml:"mock" json:"mock"`
}

// ServiceConfig contains the Assessment Service endpoint.
type ServiceConfig struct {
	// BaseURL is the root of the service; calls go to BaseURL + "/api/<call>"
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs bounds every request
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// ExamConfig contains the proctoring thresholds and timings.
type ExamConfig struct {
	// ViolationThreshold is the clipboard/keyboard strike that bans; always StrikeThreshold
	ViolationThreshold int `toml:"violation_threshold" json:"violation_threshold"`
	// NavigationThreshold is the back/close strike that bans; always StrikeThreshold
	NavigationThreshold int `toml:"navigation_threshold" json:"navigation_threshold"`
	// FinalizeGraceMs is shown between final expiry and the completed view
	FinalizeGraceMs int `toml:"finalize_grace_ms" json:"finalize_grace_ms"`
	// AdvanceDelayMs is waited before refetching after a section expires
	AdvanceDelayMs int `toml:"advance_delay_ms" json:"advance_delay_ms"`
	// CompletionClearSecs is how long the completed view keeps the identity
	CompletionClearSecs int `toml:"completion_clear_secs" json:"completion_clear_secs"`
}

// TerminalConfig describes the minimum terminal considered "fullscreen".
type TerminalConfig struct {
	MinWidth  int `toml:"min_width" json:"min_width"`
	MinHeight int `toml:"min_height" json:"min_height"`
	// Mouse enables cell-motion mouse reporting so drags and right clicks are seen
	Mouse bool `toml:"mouse" json:"mouse"`
	// FocusReporting asks the terminal for focus in/out events
	FocusReporting bool `toml:"focus_reporting" json:"focus_reporting"`
}

// AuthConfig contains OTP entry settings.
type AuthConfig struct {
	// ResendIntervalSecs is the minimum gap between OTP resends
	ResendIntervalSecs int `toml:"resend_interval_secs" json:"resend_interval_secs"`
}

// StorageConfig contains local persistence settings.
type StorageConfig struct {
	// Path of the sqlite database (empty = <config dir>/proctor.db)
	Path string `toml:"path" json:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `toml:"level" json:"level"`
	// Format is "console" or "json"
	Format string `toml:"format" json:"format"`
	// File receives client logs (empty = <config dir>/proctor.log)
	File string `toml:"file" json:"file"`
}

// MockConfig configures `proctor mock-server`.
type MockConfig struct {
	Listen string `toml:"listen" json:"listen"`
	// Ledger is "memory", "bolt" or "redis"
	Ledger    string `toml:"ledger" json:"ledger"`
	BoltPath  string `toml:"bolt_path" json:"bolt_path"`
	RedisAddr string `toml:"redis_addr" json:"redis_addr"`
	// Secret seeds the token cipher and the OTP secrets
	Secret              string `toml:"secret" json:"secret"`
	Sections            int    `toml:"sections" json:"sections"`
	QuestionsPerSection int    `toml:"questions_per_section" json:"questions_per_section"`
	SectionSeconds      int    `toml:"section_seconds" json:"section_seconds"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Service: ServiceConfig{
			BaseURL:     "http://localhost:5001",
			TimeoutSecs: 15,
		},
		Exam: ExamConfig{
			ViolationThreshold:  StrikeThreshold,
			NavigationThreshold: StrikeThreshold,
			FinalizeGraceMs:     2000,
			AdvanceDelayMs:      100,
			CompletionClearSecs: 5,
		},
		Terminal: TerminalConfig{
			MinWidth:       MinFullscreenWidth,
			MinHeight:      MinFullscreenHeight,
			Mouse:          true,
			FocusReporting: true,
		},
		Auth: AuthConfig{
			ResendIntervalSecs: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Mock: MockConfig{
			Listen:              "127.0.0.1:5001",
			Ledger:              "memory",
			RedisAddr:           "127.0.0.1:6379",
			Sections:            3,
			QuestionsPerSection: 5,
			SectionSeconds:      300,
		},
	}
}

// ServiceTimeout returns the request timeout as a duration.
func (c *Config) ServiceTimeout() time.Duration {
	return time.Duration(c.Service.TimeoutSecs) * time.Second
}

// FinalizeGrace returns the wait between final expiry and completion.
func (c *Config) FinalizeGrace() time.Duration {
	return time.Duration(c.Exam.FinalizeGraceMs) * time.Millisecond
}

// AdvanceDelay returns the wait before refetching after a section expires.
func (c *Config) AdvanceDelay() time.Duration {
	return time.Duration(c.Exam.AdvanceDelayMs) * time.Millisecond
}

// CompletionClear returns how long the completed view retains the identity.
func (c *Config) CompletionClear() time.Duration {
	return time.Duration(c.Exam.CompletionClearSecs) * time.Second
}

// ResendInterval returns the minimum gap between OTP resends.
func (c *Config) ResendInterval() time.Duration {
	return time.Duration(c.Auth.ResendIntervalSecs) * time.Second
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the proctor configuration directory.
// PROCTOR_HOME overrides the default of ~/.proctor.
func ConfigDir() (string, error) {
	if dir := os.Getenv("PROCTOR_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".proctor"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// StoragePath resolves the sqlite path, defaulting into the config dir.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "proctor.db"), nil
}

// LogPath resolves the client log file, defaulting into the config dir.
func (c *Config) LogPath() (string, error) {
	if c.Logging.File != "" {
		return c.Logging.File, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "proctor.log"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads configuration from the standard locations.
// TOML is preferred over JSON; defaults are used when neither exists.
// A file that exists but fails to parse is reported alongside the defaults.
func Load() (*Config, error) {
	var loadErr error

	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			cfg, err := LoadFromPath(tomlPath)
			if err == nil {
				return cfg, nil
			}
			loadErr = fmt.Errorf("failed to load TOML config: %w", err)
		}
	}

	if jsonPath, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			cfg, err := LoadFromPath(jsonPath)
			if err == nil {
				return cfg, nil
			}
			loadErr = fmt.Errorf("failed to load JSON config: %w", err)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, loadErr
}

// LoadFromPath loads configuration from a specific file.
// Files ending in .json are decoded as JSON, everything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read JSON file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode JSON file: %w", err)
		}
	} else {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML file: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVING
// =============================================================================

// SaveTOML writes cfg as TOML with owner-only permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// The file may have existed with looser permissions
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# proctor configuration file")
	fmt.Fprintln(file, "# Generated by proctor - edit with care")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// SaveJSON writes cfg as indented JSON atomically.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors as ValidateErrors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// ==========================================================================
	// Service
	// ==========================================================================

	if c.Service.BaseURL == "" {
		errs = append(errs, ValidationError{Field: "service.base_url", Message: "must not be empty"})
	} else if u, err := url.Parse(c.Service.BaseURL); err != nil {
		errs = append(errs, ValidationError{Field: "service.base_url", Message: fmt.Sprintf("invalid URL: %v", err)})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, ValidationError{
			Field:   "service.base_url",
			Message: fmt.Sprintf("scheme must be http or https, got '%s'", u.Scheme),
		})
	}
	if c.Service.TimeoutSecs < 1 || c.Service.TimeoutSecs > 300 {
		errs = append(errs, ValidationError{
			Field:   "service.timeout_secs",
			Message: fmt.Sprintf("must be 1-300, got %d", c.Service.TimeoutSecs),
		})
	}

	// ==========================================================================
	// Exam policy
	// ==========================================================================

	// The strike policy is fixed; the file lives in the participant's home.
	if c.Exam.ViolationThreshold != StrikeThreshold {
		errs = append(errs, ValidationError{
			Field:   "exam.violation_threshold",
			Message: fmt.Sprintf("must be %d, got %d", StrikeThreshold, c.Exam.ViolationThreshold),
		})
	}
	if c.Exam.NavigationThreshold != StrikeThreshold {
		errs = append(errs, ValidationError{
			Field:   "exam.navigation_threshold",
			Message: fmt.Sprintf("must be %d, got %d", StrikeThreshold, c.Exam.NavigationThreshold),
		})
	}
	if c.Exam.FinalizeGraceMs < 0 {
		errs = append(errs, ValidationError{Field: "exam.finalize_grace_ms", Message: "cannot be negative"})
	}
	if c.Exam.AdvanceDelayMs < 0 {
		errs = append(errs, ValidationError{Field: "exam.advance_delay_ms", Message: "cannot be negative"})
	}
	if c.Exam.CompletionClearSecs < 0 {
		errs = append(errs, ValidationError{Field: "exam.completion_clear_secs", Message: "cannot be negative"})
	}

	// ==========================================================================
	// Terminal
	// ==========================================================================

	if c.Terminal.MinWidth < MinFullscreenWidth {
		errs = append(errs, ValidationError{
			Field:   "terminal.min_width",
			Message: fmt.Sprintf("must be at least %d, got %d", MinFullscreenWidth, c.Terminal.MinWidth),
		})
	}
	if c.Terminal.MinHeight < MinFullscreenHeight {
		errs = append(errs, ValidationError{
			Field:   "terminal.min_height",
			Message: fmt.Sprintf("must be at least %d, got %d", MinFullscreenHeight, c.Terminal.MinHeight),
		})
	}
	if !c.Terminal.Mouse {
		errs = append(errs, ValidationError{Field: "terminal.mouse", Message: "cannot be disabled"})
	}
	if !c.Terminal.FocusReporting {
		errs = append(errs, ValidationError{Field: "terminal.focus_reporting", Message: "cannot be disabled"})
	}

	if c.Auth.ResendIntervalSecs < 0 {
		errs = append(errs, ValidationError{Field: "auth.resend_interval_secs", Message: "cannot be negative"})
	}

	// ==========================================================================
	// Logging
	// ==========================================================================

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Logging.Level),
		})
	}
	if f := strings.ToLower(c.Logging.Format); f != "console" && f != "json" {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid format '%s', must be one of: console, json", c.Logging.Format),
		})
	}

	// ==========================================================================
	// Mock service
	// ==========================================================================

	switch c.Mock.Ledger {
	case "memory", "bolt", "redis":
	default:
		errs = append(errs, ValidationError{
			Field:   "mock.ledger",
			Message: fmt.Sprintf("invalid ledger '%s', must be one of: memory, bolt, redis", c.Mock.Ledger),
		})
	}
	if c.Mock.Sections < 1 {
		errs = append(errs, ValidationError{Field: "mock.sections", Message: "must be at least 1"})
	}
	if c.Mock.QuestionsPerSection < 1 {
		errs = append(errs, ValidationError{Field: "mock.questions_per_section", Message: "must be at least 1"})
	}
	if c.Mock.SectionSeconds < 1 {
		errs = append(errs, ValidationError{Field: "mock.section_seconds", Message: "must be at least 1"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero values left behind by partial config files.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Service.BaseURL == "" {
		c.Service.BaseURL = d.Service.BaseURL
	}
	c.Service.BaseURL = strings.TrimRight(c.Service.BaseURL, "/")
	if c.Service.TimeoutSecs == 0 {
		c.Service.TimeoutSecs = d.Service.TimeoutSecs
	}
	if c.Exam.ViolationThreshold == 0 {
		c.Exam.ViolationThreshold = d.Exam.ViolationThreshold
	}
	if c.Exam.NavigationThreshold == 0 {
		c.Exam.NavigationThreshold = d.Exam.NavigationThreshold
	}
	if c.Terminal.MinWidth == 0 {
		c.Terminal.MinWidth = d.Terminal.MinWidth
	}
	if c.Terminal.MinHeight == 0 {
		c.Terminal.MinHeight = d.Terminal.MinHeight
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
	if c.Mock.Listen == "" {
		c.Mock.Listen = d.Mock.Listen
	}
	if c.Mock.Ledger == "" {
		c.Mock.Ledger = d.Mock.Ledger
	}
	if c.Mock.Sections == 0 {
		c.Mock.Sections = d.Mock.Sections
	}
	if c.Mock.QuestionsPerSection == 0 {
		c.Mock.QuestionsPerSection = d.Mock.QuestionsPerSection
	}
	if c.Mock.SectionSeconds == 0 {
		c.Mock.SectionSeconds = d.Mock.SectionSeconds
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - PROCTOR_API_URL: overrides service.base_url
//   - PROCTOR_TIMEOUT_SECS: overrides service.timeout_secs
//   - PROCTOR_LOG_LEVEL: overrides logging.level
//   - PROCTOR_LOG_FORMAT: overrides logging.format
//   - PROCTOR_DB: overrides storage.path
//   - PROCTOR_MOCK_LEDGER: overrides mock.ledger
//   - PROCTOR_MOCK_SECRET: overrides mock.secret
//   - PROCTOR_REDIS_ADDR: overrides mock.redis_addr
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("PROCTOR_API_URL"); v != "" {
		c.Service.BaseURL = v
	}
	if v := os.Getenv("PROCTOR_TIMEOUT_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Service.TimeoutSecs = n
		}
	}
	if v := os.Getenv("PROCTOR_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("PROCTOR_LOG_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}
	if v := os.Getenv("PROCTOR_DB"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("PROCTOR_MOCK_LEDGER"); v != "" {
		c.Mock.Ledger = v
	}
	if v := os.Getenv("PROCTOR_MOCK_SECRET"); v != "" {
		c.Mock.Secret = v
	}
	if v := os.Getenv("PROCTOR_REDIS_ADDR"); v != "" {
		c.Mock.RedisAddr = v
	}
}

// String renders the config as TOML for `proctor config show`.
func (c *Config) String() string {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(c); err != nil {
		return fmt.Sprintf("error encoding config: %v", err)
	}
	return sb.String()
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if cfg == nil {
			cfg = Default()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}

// IsValidationError reports whether err carries config validation failures.
func IsValidationError(err error) bool {
	var ve ValidateErrors
	return errors.As(err, &ve)
}
