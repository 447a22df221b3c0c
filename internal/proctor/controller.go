// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package proctor

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns a Session and the guard subscriptions for its test view.
//
// Guards are registered by Activate and all removed by Deactivate. A ban
// deactivates the controller from inside the escalator, so every exit path
// ends with no live subscriptions.
type Controller struct {
	sess *Session
	ban  *BanEscalator
	log  zerolog.Logger

	mu     sync.Mutex
	subs   map[int]Guard
	order  []int
	nextID int
	active bool
}

// NewController creates a controller for sess and ban.
func NewController(sess *Session, ban *BanEscalator, log zerolog.Logger) *Controller {
	c := &Controller{
		sess: sess,
		ban:  ban,
		log:  log.With().Str("component", "controller").Logger(),
		subs: make(map[int]Guard),
	}
	ban.OnBan(func(string) { c.Deactivate() })
	return c
}

// Session returns the owned session.
func (c *Controller) Session() *Session { return c.sess }

// Ban returns the shared escalator.
func (c *Controller) Ban() *BanEscalator { return c.ban }

// Activate registers guards and starts the test. Activating a terminal
// session registers nothing.
func (c *Controller) Activate(guards ...Guard) {
	if c.sess.Terminal() {
		return
	}
	c.mu.Lock()
	for _, g := range guards {
		id := c.nextID
		c.nextID++
		c.subs[id] = g
		c.order = append(c.order, id)
		c.log.Debug().Str("guard", g.Name()).Int("sub", id).Msg("guard registered")
	}
	c.active = true
	c.mu.Unlock()
	c.sess.StartTest()
}

// Deactivate removes every subscription. It is safe to call repeatedly and
// from any goroutine.
func (c *Controller) Deactivate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active && len(c.subs) == 0 {
		return
	}
	n := len(c.subs)
	c.subs = make(map[int]Guard)
	c.order = nil
	c.active = false
	c.log.Debug().Int("removed", n).Msg("guards deregistered")
}

// Subscriptions returns the number of live guard registrations.
func (c *Controller) Subscriptions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Dispatch offers ev to every registered guard that handles it, in
// registration order, and merges their verdicts. Guards run without the
// controller lock held so a ban may deactivate the controller mid-dispatch.
func (c *Controller) Dispatch(ctx context.Context, ev EventKind) Verdict {
	c.mu.Lock()
	guards := make([]Guard, 0, len(c.order))
	for _, id := range c.order {
		if g, ok := c.subs[id]; ok && g.Handles(ev) {
			guards = append(guards, g)
		}
	}
	c.mu.Unlock()

	var v Verdict
	if len(guards) == 0 {
		// Input in a terminal session is swallowed
		if c.sess.Terminal() {
			v.Handled = true
		}
		v.Banned = c.sess.Banned()
		return v
	}
	for _, g := range guards {
		v = v.merge(g.Handle(ctx, ev))
	}
	v.Banned = v.Banned || c.sess.Banned()
	return v
}

// Complete moves the session to completed and deactivates the guards.
func (c *Controller) Complete(ctx context.Context, audit Auditor) bool {
	if !c.sess.MarkCompleted() {
		return false
	}
	c.Deactivate()
	record(ctx, audit, c.log, c.sess, "completed", "", 0)
	c.log.Info().Msg("test completed")
	return true
}
