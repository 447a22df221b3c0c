// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "proctor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// =============================================================================
// KV TESTS
// =============================================================================

func TestKV_Implementations(t *testing.T) {
	impls := map[string]func(t *testing.T) KV{
		"sqlite": func(t *testing.T) KV { return openTestStore(t) },
		"memory": func(t *testing.T) KV { return NewMemoryKV() },
	}

	for name, mk := range impls {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			kv := mk(t)

			_, err := kv.Get(ctx, "studentEmail")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, kv.Set(ctx, "studentEmail", "a@x.com"))
			got, err := kv.Get(ctx, "studentEmail")
			require.NoError(t, err)
			assert.Equal(t, "a@x.com", got)

			require.NoError(t, kv.Set(ctx, "studentEmail", "b@x.com"))
			got, err = kv.Get(ctx, "studentEmail")
			require.NoError(t, err)
			assert.Equal(t, "b@x.com", got)

			require.NoError(t, kv.Delete(ctx, "studentEmail"))
			_, err = kv.Get(ctx, "studentEmail")
			assert.ErrorIs(t, err, ErrNotFound)

			// deleting twice is fine
			assert.NoError(t, kv.Delete(ctx, "studentEmail"))
		})
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proctor.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "studentEmail", "a@x.com"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "studentEmail")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got)
}

func TestStore_ClosedReturnsErrClosed(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "second Close should be a no-op")

	_, err := s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Set(context.Background(), "k", "v"), ErrClosed)
}

// =============================================================================
// AUDIT TESTS
// =============================================================================

func TestStore_AuditTrail(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	events := []AuditEvent{
		{AttemptID: "att-1", Identity: "a@x.com", EventType: "violation", Detail: "copy", Count: 1, Timestamp: base},
		{AttemptID: "att-1", Identity: "a@x.com", EventType: "violation", Detail: "paste", Count: 2, Timestamp: base.Add(time.Second)},
		{AttemptID: "att-1", Identity: "a@x.com", EventType: "ban", Detail: "violation limit", Timestamp: base.Add(2 * time.Second)},
	}
	for _, ev := range events {
		require.NoError(t, s.AppendAudit(ctx, ev))
	}

	got, err := s.RecentAudit(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ban", got[0].EventType)
	assert.Equal(t, "paste", got[1].Detail)
	assert.Equal(t, 2, got[1].Count)
	assert.NotEmpty(t, got[0].ID, "ID should be generated")
	assert.True(t, got[0].Timestamp.Equal(base.Add(2*time.Second)))
}

func TestStore_AuditDefaultsTimestamp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	before := time.Now()
	require.NoError(t, s.AppendAudit(ctx, AuditEvent{AttemptID: "a", Identity: "i", EventType: "completed"}))

	got, err := s.RecentAudit(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Timestamp.Before(before.Add(-time.Second)))
}

func TestStore_AuditTruncatesDetail(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	long := strings.Repeat("é", maxDetailRunes+50)
	require.NoError(t, s.AppendAudit(ctx, AuditEvent{AttemptID: "a", Identity: "i", EventType: "violation", Detail: long}))

	got, err := s.RecentAudit(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, maxDetailRunes, len([]rune(got[0].Detail)))
	assert.True(t, strings.HasSuffix(got[0].Detail, "..."))
}
