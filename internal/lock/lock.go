// Package lock holds the cross-process import lock kept in Redis.
//
// The in-process RunLimiter only serializes runs inside one server. When
// several servers, or a server and the CLI, share a database, they also take
// this lock so only one of them imports at a time.
package lock

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/netinventory/internal/core"
)

const unlockScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"

// Locker is a Redis lock on one key. The value is unique per Locker so only
// the holder can release it.
type Locker struct {
	client redis.UniversalClient
	key    string
	value  string
}

// New creates a Locker for key.
func New(client redis.UniversalClient, key string) *Locker {
	return &Locker{
		client: client,
		key:    key,
		value:  uuid.NewString(),
	}
}

// Connect opens a Redis client from a redis:// or rediss:// URL and checks
// that the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.TLSConfig != nil {
		opts.TLSConfig.MinVersion = tls.VersionTLS12
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Key returns the locked key.
func (l *Locker) Key() string { return l.key }

// Lock takes the lock for ttl. A lock held elsewhere yields an error wrapping
// core.ErrImportInProgress.
func (l *Locker) Lock(ctx context.Context, ttl time.Duration) error {
	ok, err := l.client.SetNX(ctx, l.key, l.value, ttl).Result()
	if err != nil {
		return fmt.Errorf("lock %s: %w", l.key, err)
	}
	if !ok {
		return fmt.Errorf("lock %s held by another process: %w", l.key, core.ErrImportInProgress)
	}
	return nil
}

// Unlock releases the lock if this Locker still holds it.
func (l *Locker) Unlock(ctx context.Context) error {
	res, err := l.client.Eval(ctx, unlockScript, []string{l.key}, l.value).Result()
	if err != nil {
		return fmt.Errorf("unlock %s: %w", l.key, err)
	}
	if res == int64(0) {
		return fmt.Errorf("unlock %s: lock expired or not held", l.key)
	}
	return nil
}
