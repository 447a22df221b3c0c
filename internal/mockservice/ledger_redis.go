// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLedger shares the ledger between several mock-server processes.
type RedisLedger struct {
	client *redis.Client
}

// OpenRedisLedger connects to addr and verifies the connection.
func OpenRedisLedger(addr string) (*RedisLedger, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisLedger{client: client}, nil
}

func participantKey(email string) string { return "proctor:participant:" + key(email) }
func banKey(email string) string         { return "proctor:ban:" + key(email) }

func (l *RedisLedger) Load(ctx context.Context, email string) (*Participant, error) {
	data, err := l.client.Get(ctx, participantKey(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var p Participant
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal participant: %w", err)
	}
	return &p, nil
}

func (l *RedisLedger) Save(ctx context.Context, p *Participant) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal participant: %w", err)
	}
	return l.client.Set(ctx, participantKey(p.Email), data, 0).Err()
}

// Ban uses SETNX so concurrent servers agree on the first ban.
func (l *RedisLedger) Ban(ctx context.Context, email string) (bool, error) {
	return l.client.SetNX(ctx, banKey(email), time.Now().UTC().Format(time.RFC3339Nano), 0).Result()
}

func (l *RedisLedger) Banned(ctx context.Context, email string) (bool, error) {
	n, err := l.client.Exists(ctx, banKey(email)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close closes the Redis connection.
func (l *RedisLedger) Close() error {
	return l.client.Close()
}
