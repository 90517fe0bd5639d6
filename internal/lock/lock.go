// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package lock provides a Valkey-backed advisory lock used to serialize
// slug generation for the same base slug across concurrent writers. The
// lock narrows the probe-then-insert race window; the database unique
// constraint remains the final backstop.
package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// slugKeyPrefix namespaces slug lock keys in Valkey.
	slugKeyPrefix = "lock:slug:"

	// DefaultTTL bounds how long a crashed holder can block other
	// writers.
	DefaultTTL = 10 * time.Second
)

// ConnectValkey creates a Valkey client and verifies the connection with a ping.
func ConnectValkey(host, port, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("valkey ping: %w", err)
	}

	slog.Info("valkey connected", "addr", fmt.Sprintf("%s:%s", host, port))
	return client, nil
}

// SlugLock serializes writers contending on the same base slug.
// A nil client degrades to no locking: generation still works, relying
// solely on the unique constraint.
type SlugLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSlugLock creates a slug lock backed by the given Valkey client.
// client may be nil when Valkey is not configured.
func NewSlugLock(client *redis.Client, ttl time.Duration) *SlugLock {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &SlugLock{client: client, ttl: ttl}
}

// Acquire takes the advisory lock for base and returns a release
// function. Acquisition is best-effort: if Valkey is unavailable or the
// lock is contended past the TTL window, the caller proceeds unlocked
// and the database constraint catches collisions.
func (l *SlugLock) Acquire(ctx context.Context, base string) func() {
	if l.client == nil || base == "" {
		return func() {}
	}

	key := slugKeyPrefix + base
	deadline := time.Now().Add(l.ttl)
	for {
		ok, err := l.client.SetNX(ctx, key, "1", l.ttl).Result()
		if err != nil {
			slog.Debug("slug lock unavailable, proceeding unlocked", "base", base, "error", err)
			return func() {}
		}
		if ok {
			return func() {
				if err := l.client.Del(context.WithoutCancel(ctx), key).Err(); err != nil {
					slog.Debug("slug lock release failed", "base", base, "error", err)
				}
			}
		}
		if time.Now().After(deadline) {
			slog.Debug("slug lock contended past ttl, proceeding unlocked", "base", base)
			return func() {}
		}
		select {
		case <-ctx.Done():
			return func() {}
		case <-time.After(50 * time.Millisecond):
		}
	}
}
