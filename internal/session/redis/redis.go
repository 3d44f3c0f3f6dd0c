// Package redis is a redis implementation of session storage.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/Decentr-net/iris/internal/session"
)

// DefaultPrefix is prepended to every key.
const DefaultPrefix = "iris:session:"

type storage struct {
	c      *redis.Client
	prefix string
}

// Open connects to redis and checks the connection.
func Open(ctx context.Context, opts *redis.Options) (session.Storage, error) {
	c := redis.NewClient(opts)

	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return New(c, DefaultPrefix), nil
}

// New ...
func New(c *redis.Client, prefix string) session.Storage {
	return storage{
		c:      c,
		prefix: prefix,
	}
}

func (s storage) key(k string) string {
	return s.prefix + k
}

func (s storage) Get(ctx context.Context, key string) (string, error) {
	v, err := s.c.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", session.ErrNotFound
		}
		return "", fmt.Errorf("failed to get: %w", err)
	}

	return v, nil
}

func (s storage) Set(ctx context.Context, entries map[string]string) error {
	if _, err := s.c.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range entries {
			pipe.Set(ctx, s.key(k), v, 0)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("failed to set: %w", err)
	}

	return nil
}

func (s storage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	k := make([]string, len(keys))
	for i := range keys {
		k[i] = s.key(keys[i])
	}

	if err := s.c.Del(ctx, k...).Err(); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}

	return nil
}

func (s storage) Ping(ctx context.Context) error {
	return s.c.Ping(ctx).Err()
}

func (s storage) Close() error {
	return s.c.Close()
}
