// Package redisstore keeps origin-shared values in Redis so that every client
// of the same origin, in any process, sees the same lockout state and the
// same tab-namespaced session records.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"

	"github.com/jrsteele09/go-tab-session/storage"
)

var _ storage.Backend = (*Store)(nil)

// Config for a Redis-backed store. Defaults can be loaded via envdecode.
type Config struct {
	// Addr like "localhost:6379". ENV: REDIS_ADDR
	Addr string `env:"REDIS_ADDR,default=localhost:6379"`
	// KeyPrefix for all keys. ENV: TABSESSION_KEY_PREFIX
	KeyPrefix string `env:"TABSESSION_KEY_PREFIX,default=tabsession:"`
	// DB selects the Redis logical database. ENV: REDIS_DB
	DB int `env:"REDIS_DB,default=0"`
}

type Store struct {
	client    *redis.Client
	keyPrefix string
	owned     bool
}

// New connects to Redis and verifies the connection with a ping.
func New(ctx context.Context, cfg Config) (*Store, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	cl := redis.NewClient(&redis.Options{Addr: addr, DB: cfg.DB})
	if err := cl.Ping(ctx).Err(); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	s := NewWithClient(cl, cfg.KeyPrefix)
	s.owned = true
	return s, nil
}

// NewFromEnv builds a Store using envdecode to populate Config.
func NewFromEnv(ctx context.Context) (*Store, error) {
	var cfg Config
	_ = envdecode.Decode(&cfg)
	return New(ctx, cfg)
}

// NewWithClient wraps an existing client. The caller keeps ownership of it.
func NewWithClient(client *redis.Client, keyPrefix string) *Store {
	if keyPrefix == "" {
		keyPrefix = "tabsession:"
	}
	return &Store{client: client, keyPrefix: keyPrefix}
}

func (s *Store) key(k string) string { return s.keyPrefix + k }

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis client if the store created it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}
