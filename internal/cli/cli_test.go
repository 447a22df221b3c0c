// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/proctor-tui/internal/assessment"
	"github.com/jeranaias/proctor-tui/internal/config"
	"github.com/jeranaias/proctor-tui/internal/mockservice"
	"github.com/jeranaias/proctor-tui/internal/session"
	"github.com/jeranaias/proctor-tui/internal/storage"
)

// run executes the command tree with args in an isolated config dir.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	config.ResetGlobalForTesting()
	t.Cleanup(config.ResetGlobalForTesting)

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("PROCTOR_HOME", home)
	t.Setenv("NO_COLOR", "1")
	return home
}

// =============================================================================
// EXIT CODE TESTS
// =============================================================================

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"banned", ErrBanned, ExitBanned},
		{"wrapped banned", fmt.Errorf("run: %w", ErrBanned), ExitBanned},
		{"usage", &UsageError{Message: "bad flag"}, ExitUsageError},
		{"config", config.ValidateErrors{{Field: "service.base_url", Message: "must not be empty"}}, ExitConfigError},
		{"network", NewCommandError("status", "check", "x", assessment.ErrUnreachable), ExitNetworkError},
		{"rejected is general", NewCommandError("status", "check", "x", assessment.ErrRejected), ExitError},
		{"plain", errors.New("boom"), ExitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestCommandError(t *testing.T) {
	cause := errors.New("disk full")
	err := NewCommandError("config", "init", "cannot write config", cause)

	assert.Equal(t, "config init failed: cannot write config: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "reset clear failed: gone", NewCommandError("reset", "clear", "gone", nil).Error())
}

// =============================================================================
// COMMAND TREE TESTS
// =============================================================================

func TestRootCommands(t *testing.T) {
	root := NewRootCmd()
	want := map[string]bool{"start": false, "mock-server": false, "status": false, "config": false, "reset": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	for _, flag := range []string{"config", "log-level", "api"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "persistent flag --%s", flag)
	}
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	isolate(t)
	_, err := run(t, "status", "--bogus")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, ExitCode(err))
}

func TestStartRequiresCredential(t *testing.T) {
	isolate(t)
	_, err := run(t, "start")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, ExitCode(err))
	assert.Contains(t, err.Error(), "Invalid link")
}

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestConfigInitShowPath(t *testing.T) {
	home := isolate(t)

	out, err := run(t, "config", "init")
	require.NoError(t, err)
	file := filepath.Join(home, "config.toml")
	assert.Contains(t, out, file)
	_, statErr := os.Stat(file)
	require.NoError(t, statErr)

	_, err = run(t, "config", "init")
	require.Error(t, err, "init must not overwrite without --force")
	assert.Equal(t, ExitUsageError, ExitCode(err))

	_, err = run(t, "config", "init", "--force")
	require.NoError(t, err)

	out, err = run(t, "config", "show", "--api", "http://exam.test:9000")
	require.NoError(t, err)
	assert.Contains(t, out, "http://exam.test:9000")

	out, err = run(t, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(home, "proctor.db"))
	assert.Contains(t, out, filepath.Join(home, "proctor.log"))
}

func TestConfigInitJSON(t *testing.T) {
	home := isolate(t)
	_, err := run(t, "config", "init", "--json")
	require.NoError(t, err)

	cfg, err := config.LoadFromPath(filepath.Join(home, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, config.Default().Service.BaseURL, cfg.Service.BaseURL)
}

func TestConfigInvalidFile(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[service]\nbase_url = 5\n"), 0600))

	_, err := run(t, "--config", path, "config", "show")
	require.Error(t, err)
}

// =============================================================================
// STATUS AND RESET TESTS
// =============================================================================

func newService(t *testing.T) (*mockservice.Server, string) {
	t.Helper()
	srv, err := mockservice.New(mockservice.Options{
		Config: config.MockConfig{Secret: "cli-test", Sections: 1, QuestionsPerSection: 1, SectionSeconds: 60},
		Log:    zerolog.Nop(),
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts.URL
}

func TestStatus(t *testing.T) {
	isolate(t)
	_, url := newService(t)

	out, err := run(t, "--api", url, "status", "--email", "ada@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "ada@example.com")
	assert.Contains(t, out, "not banned")
	assert.Contains(t, out, "not completed")

	client := assessment.NewClient(url)
	require.NoError(t, client.BanUser(context.Background(), "ada@example.com"))

	out, err = run(t, "--api", url, "status", "--email", "ada@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "BANNED")
}

func TestStatus_StoredParticipantAndAudit(t *testing.T) {
	home := isolate(t)
	_, url := newService(t)

	store, err := storage.Open(filepath.Join(home, "proctor.db"))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, session.NewStore(store, zerolog.Nop()).SaveIdentity(ctx, "bob@example.com"))
	require.NoError(t, store.AppendAudit(ctx, storage.AuditEvent{
		AttemptID: "0123456789abcdef", Identity: "bob@example.com", EventType: "violation", Detail: "copy", Count: 1,
	}))
	require.NoError(t, store.Close())

	out, err := run(t, "--api", url, "status", "--audit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "bob@example.com")
	assert.Contains(t, out, "Recent audit events")
	assert.Contains(t, out, "01234567")
	assert.Contains(t, out, "copy (#1)")
}

func TestStatus_NoStoredParticipant(t *testing.T) {
	isolate(t)
	_, url := newService(t)

	_, err := run(t, "--api", url, "status")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, ExitCode(err))
}

func TestStatus_Unreachable(t *testing.T) {
	isolate(t)
	_, err := run(t, "--api", "http://127.0.0.1:1", "status", "--email", "ada@example.com")
	require.Error(t, err)
	assert.Equal(t, ExitNetworkError, ExitCode(err))
}

func TestReset(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "proctor.db")

	store, err := storage.Open(path)
	require.NoError(t, err)
	require.NoError(t, session.NewStore(store, zerolog.Nop()).SaveIdentity(context.Background(), "ada@example.com"))
	require.NoError(t, store.Close())

	out, err := run(t, "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "cleared")

	store, err = storage.Open(path)
	require.NoError(t, err)
	defer store.Close()
	_, err = session.NewStore(store, zerolog.Nop()).Identity(context.Background())
	assert.ErrorIs(t, err, session.ErrNoIdentity)
}

// =============================================================================
// MOCK SERVER TESTS
// =============================================================================

func TestMockServerIssueToken(t *testing.T) {
	isolate(t)
	t.Setenv("PROCTOR_MOCK_SECRET", "issue-test")

	out, err := run(t, "mock-server", "--issue-token", "ada@example.com")
	require.NoError(t, err)

	codec, err := mockservice.NewTokenCodec("issue-test")
	require.NoError(t, err)
	email, err := codec.Decode(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", email)
}
