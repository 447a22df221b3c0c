// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/proctor-tui/internal/util"
)

// maxDetailRunes caps the stored detail text.
const maxDetailRunes = 200

// AuditEvent is one recorded proctoring event.
type AuditEvent struct {
	ID        string    `json:"id"`
	AttemptID string    `json:"attempt_id"`
	Identity  string    `json:"identity"`
	EventType string    `json:"event_type"`
	Detail    string    `json:"detail,omitempty"`
	Count     int       `json:"count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AppendAudit records ev. Missing ID and Timestamp are filled in and long
// details are truncated.
func (s *Store) AppendAudit(ctx context.Context, ev AuditEvent) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	ev.Detail = util.TruncateRunes(ev.Detail, maxDetailRunes)
	_, err = db.ExecContext(ctx,
		`INSERT INTO audit_events(id, attempt_id, identity, event_type, detail, count, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.AttemptID, ev.Identity, ev.EventType, ev.Detail, ev.Count, ev.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// RecentAudit returns up to limit events, newest first.
func (s *Store) RecentAudit(ctx context.Context, limit int) ([]AuditEvent, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, attempt_id, identity, event_type, detail, count, created_at
		 FROM audit_events ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var ev AuditEvent
		var created int64
		if err := rows.Scan(&ev.ID, &ev.AttemptID, &ev.Identity, &ev.EventType, &ev.Detail, &ev.Count, &created); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		ev.Timestamp = time.Unix(0, created)
		events = append(events, ev)
	}
	return events, rows.Err()
}
