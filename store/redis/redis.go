// Package redis provides a Store backed by a Redis server.
package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"go.hackfix.me/forage/store"
)

// Options holds configuration for connecting to a Redis server.
type Options struct {
	// Address is the host:port of the Redis server.
	Address  string
	Password string
	DB       int
	// Namespace prefixes the Redis keys used by the store, so that multiple
	// stores can share a database.
	Namespace string
	TLSConfig *tls.Config
	Logger    *slog.Logger
}

// DefaultOptions returns Options with localhost defaults.
func DefaultOptions() Options {
	return Options{
		Address:   "localhost:6379",
		Namespace: "forage",
	}
}

// Redis is a Store backed by Redis. Values are kept in a hash, and insertion
// order in a sorted set scored by an incrementing counter.
type Redis struct {
	client    *redis.Client
	valuesKey string
	orderKey  string
	seqKey    string
	logger    *slog.Logger
}

var _ store.Store = &Redis{}

// Open connects to the Redis server, retrying the initial ping with
// exponential backoff.
func Open(ctx context.Context, opts Options) (*Redis, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ns := opts.Namespace
	if ns == "" {
		ns = DefaultOptions().Namespace
	}

	client := redis.NewClient(&redis.Options{
		Addr:      opts.Address,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	})

	logger.Debug("opening Redis connection", "address", opts.Address, "db", opts.DB)
	b := retry.WithMaxRetries(4, retry.NewExponential(100*time.Millisecond))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Debug("Redis ping failed", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed connecting to Redis at %s: %w", opts.Address, err)
	}

	return &Redis{
		client:    client,
		valuesKey: ns + ":values",
		orderKey:  ns + ":order",
		seqKey:    ns + ":seq",
		logger:    logger,
	}, nil
}

func (s *Redis) Close() error {
	s.logger.Debug("closing Redis connection")
	return s.client.Close()
}

func (s *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.HGet(ctx, s.valuesKey, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	} else if err != nil {
		return nil, err
	}

	return val, nil
}

func (s *Redis) Set(ctx context.Context, key string, value []byte) error {
	seq, err := s.client.Incr(ctx, s.seqKey).Result()
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.valuesKey, key, value)
		// NX keeps the score, and thus the position, of existing keys.
		pipe.ZAddNX(ctx, s.orderKey, redis.Z{Score: float64(seq), Member: key})
		return nil
	})

	return err
}

func (s *Redis) Delete(ctx context.Context, key string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.valuesKey, key)
		pipe.ZRem(ctx, s.orderKey, key)
		return nil
	})

	return err
}

func (s *Redis) Clear(ctx context.Context, prefix string) error {
	keys, err := s.Keys(ctx, prefix)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	members := make([]any, len(keys))
	for i, k := range keys {
		members[i] = k
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.valuesKey, keys...)
		pipe.ZRem(ctx, s.orderKey, members...)
		return nil
	})

	return err
}

func (s *Redis) Keys(ctx context.Context, prefix string) ([]string, error) {
	all, err := s.client.ZRange(ctx, s.orderKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	keys := []string{}
	for _, key := range all {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

func (s *Redis) MultiGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	vals, err := s.client.HMGet(ctx, s.valuesKey, keys...).Result()
	if err != nil {
		return nil, err
	}

	for i, v := range vals {
		if str, ok := v.(string); ok {
			result[keys[i]] = []byte(str)
		}
	}

	return result, nil
}
