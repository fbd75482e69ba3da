// Package redisstore is a signature cache in Redis, shared by every
// process that points at the same server.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/roach88/ergo/internal/ir"
	"github.com/roach88/ergo/internal/signature"
)

const defaultPrefix = "ergo:signature:"

var _ signature.Cache = (*Store)(nil)

// Store implements signature.Cache using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for cached signatures. Zero keeps them
// forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	return NewFromClient(backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewFromURL creates a store from a redis:// URL.
func NewFromURL(url string, opts ...Option) (*Store, error) {
	o, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewFromClient(backend.NewClient(o), opts...), nil
}

// NewFromClient creates a store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(cacheKey string) string {
	return s.prefix + cacheKey
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Get returns the signature cached under key.
func (s *Store) Get(ctx context.Context, key string) (ir.Signature, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, backend.Nil) {
		return ir.Signature{}, false, nil
	}
	if err != nil {
		return ir.Signature{}, false, fmt.Errorf("failed to load from redis: %w", err)
	}

	var sig ir.Signature
	if err := json.Unmarshal(val, &sig); err != nil {
		return ir.Signature{}, false, fmt.Errorf("failed to unmarshal signature %s: %w", key, err)
	}
	return sig, true, nil
}

// Put stores sig under key and records key in the index set.
func (s *Store) Put(ctx context.Context, key string, sig ir.Signature) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("failed to marshal signature: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(key), data, s.ttl)
	pipe.SAdd(ctx, s.indexKey(), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Len returns the number of keys ever stored, including expired ones.
func (s *Store) Len(ctx context.Context) (int, error) {
	n, err := s.client.SCard(ctx, s.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count signatures: %w", err)
	}
	return int(n), nil
}

// Ping checks the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
