// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package proctor

import (
	"context"
	"sync"
	"time"

	"github.com/jeranaias/proctor-tui/internal/logging"
	"github.com/jeranaias/proctor-tui/internal/storage"
	"github.com/rs/zerolog"
)

// BanReporter is the slice of the Assessment Service the escalator needs.
type BanReporter interface {
	BanUser(ctx context.Context, email string) error
}

// IdentityStore is the continuation-token storage shared by the views.
type IdentityStore interface {
	SaveIdentity(ctx context.Context, identity string) error
	Identity(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// Auditor records proctoring events. A nil Auditor disables the trail.
type Auditor interface {
	AppendAudit(ctx context.Context, ev storage.AuditEvent) error
}

// =============================================================================
// BAN ESCALATOR
// =============================================================================

// BanEscalator is the single terminal transition every guard funnels into.
//
// Trip flips the session to banned, clears the stored identity and runs the
// registered hooks; only the first Trip does anything. Report sends the one
// ban-user call and swallows its outcome. Escalate does both.
type BanEscalator struct {
	sess     *Session
	reporter BanReporter
	ids      IdentityStore
	audit    Auditor
	log      zerolog.Logger
	timeout  time.Duration

	mu     sync.Mutex
	hooks  []func(reason string)
	reason string

	reportOnce sync.Once
	reported   chan struct{}
}

// NewBanEscalator wires an escalator for sess.
func NewBanEscalator(sess *Session, reporter BanReporter, ids IdentityStore, audit Auditor, log zerolog.Logger) *BanEscalator {
	return &BanEscalator{
		sess:     sess,
		reporter: reporter,
		ids:      ids,
		audit:    audit,
		log:      log.With().Str("component", "ban").Logger(),
		timeout:  10 * time.Second,
		reported: make(chan struct{}),
	}
}

// OnBan registers fn to run once, synchronously, inside the winning Trip.
// Registering after the ban runs fn immediately.
func (b *BanEscalator) OnBan(fn func(reason string)) {
	b.mu.Lock()
	if b.sess.Banned() {
		reason := b.reason
		b.mu.Unlock()
		fn(reason)
		return
	}
	b.hooks = append(b.hooks, fn)
	b.mu.Unlock()
}

// Reason returns why the session was banned, or "" when it was not.
func (b *BanEscalator) Reason() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reason
}

// Trip performs the local half of the ban. It returns true only for the
// call that actually banned the session.
func (b *BanEscalator) Trip(reason string) bool {
	b.mu.Lock()
	if !b.sess.markBanned() {
		b.mu.Unlock()
		return false
	}
	b.reason = reason
	hooks := b.hooks
	b.hooks = nil
	b.mu.Unlock()

	identity := b.sess.Identity()
	b.log.Warn().
		Str("identity", logging.MaskIdentity(identity)).
		Str("attempt", b.sess.AttemptID()).
		Str("reason", reason).
		Msg("participant banned")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if b.ids != nil {
		if err := b.ids.Clear(ctx); err != nil {
			b.log.Warn().Err(err).Msg("failed to clear stored identity")
		}
	}
	record(ctx, b.audit, b.log, b.sess, "ban", reason, 0)

	for _, fn := range hooks {
		fn(reason)
	}
	return true
}

// Report sends the single ban-user call. Every outcome is swallowed: the
// local ban stands whether or not the service heard about it. Calls after
// the first wait for it and return.
func (b *BanEscalator) Report(ctx context.Context) {
	if !b.sess.Banned() {
		return
	}
	b.reportOnce.Do(func() {
		defer close(b.reported)
		if b.reporter == nil {
			return
		}
		ctx, cancel := context.WithTimeout(ctx, b.timeout)
		defer cancel()
		if err := b.reporter.BanUser(ctx, b.sess.Identity()); err != nil {
			b.log.Warn().Err(err).Msg("ban report failed; local ban stands")
			return
		}
		b.log.Info().Msg("ban reported")
	})
	<-b.reported
}

// Escalate bans the session and reports it. Concurrent and repeated calls
// are harmless; only the first has any effect.
func (b *BanEscalator) Escalate(ctx context.Context, reason string) bool {
	won := b.Trip(reason)
	if won {
		b.Report(ctx)
	}
	return won
}

// record appends an audit event, logging and dropping any failure.
func record(ctx context.Context, audit Auditor, log zerolog.Logger, sess *Session, kind, detail string, count int) {
	if audit == nil {
		return
	}
	err := audit.AppendAudit(ctx, storage.AuditEvent{
		AttemptID: sess.AttemptID(),
		Identity:  sess.Identity(),
		EventType: kind,
		Detail:    detail,
		Count:     count,
	})
	if err != nil {
		log.Warn().Err(err).Str("event", kind).Msg("audit append failed")
	}
}
