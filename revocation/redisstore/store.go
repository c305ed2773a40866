// Package redisstore keeps revoked token ids in redis. Each key expires
// together with the token it blocks, so the set never needs a purge job.
package redisstore

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	redis "github.com/redis/go-redis/v9"
)

const DefaultPrefix = "certiweb:revoked:"

// Client is the part of the redis client the store uses.
type Client interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

type Store struct {
	client  Client
	prefix  string
	timeout time.Duration
	now     func() time.Time
}

type Option func(*Store)

func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(client Client, opts ...Option) *Store {
	s := &Store{
		client:  client,
		prefix:  DefaultPrefix,
		timeout: 250 * time.Millisecond,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial connects to addr and checks the connection.
func Dial(ctx context.Context, addr, password string, db int, opts ...Option) (*Store, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to connect to redis").
			WithMetadata(map[string]any{"addr": addr})
	}

	return New(client, opts...), client, nil
}

// Revoke stores jti until expiresAt. Already expired tokens are skipped.
func (s *Store) Revoke(ctx context.Context, jti, subject string, expiresAt time.Time) error {
	if strings.TrimSpace(jti) == "" {
		return errors.New("token id is required", errors.CategoryValidation)
	}

	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.SetNX(ctx, s.prefix+jti, subject, ttl).Err(); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to revoke token")
	}
	return nil
}

// IsRevoked checks if jti is on the denylist
func (s *Store) IsRevoked(ctx context.Context, jti string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.client.Exists(ctx, s.prefix+jti).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to check revoked token")
	}
	return n > 0, nil
}
