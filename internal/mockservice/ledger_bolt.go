// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockservice

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	bucketParticipants = "participants"
	bucketBans         = "bans"
)

// BoltLedger persists the ledger in a single bbolt file.
type BoltLedger struct {
	db *bbolt.DB
}

// OpenBoltLedger opens or creates the ledger file at path.
func OpenBoltLedger(path string) (*BoltLedger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt ledger: %w", err)
	}

	l := &BoltLedger{db: db}
	if err := l.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

func (l *BoltLedger) ensureBuckets() error {
	return l.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{bucketParticipants, bucketBans} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

func (l *BoltLedger) Load(ctx context.Context, email string) (*Participant, error) {
	var p *Participant
	err := l.db.View(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		v := tx.Bucket([]byte(bucketParticipants)).Get([]byte(key(email)))
		if v == nil {
			return ErrNotFound
		}
		var out Participant
		if err := json.Unmarshal(v, &out); err != nil {
			return fmt.Errorf("unmarshal participant: %w", err)
		}
		p = &out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (l *BoltLedger) Save(ctx context.Context, p *Participant) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal participant: %w", err)
	}
	return l.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return tx.Bucket([]byte(bucketParticipants)).Put([]byte(key(p.Email)), data)
	})
}

func (l *BoltLedger) Ban(ctx context.Context, email string) (bool, error) {
	fresh := false
	err := l.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketBans))
		k := []byte(key(email))
		if b.Get(k) != nil {
			return nil
		}
		fresh = true
		return b.Put(k, []byte(time.Now().UTC().Format(time.RFC3339Nano)))
	})
	return fresh, err
}

func (l *BoltLedger) Banned(ctx context.Context, email string) (bool, error) {
	banned := false
	err := l.db.View(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		banned = tx.Bucket([]byte(bucketBans)).Get([]byte(key(email))) != nil
		return nil
	})
	return banned, err
}

// Close closes the ledger file.
func (l *BoltLedger) Close() error {
	return l.db.Close()
}
