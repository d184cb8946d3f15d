// Package redis is a store.Store backed by Redis. Snapshots are stored as
// JSON strings under "<prefix>:<engine>:<id>".
package redis

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/amp-labs/amp-fsm/store"
	goredis "github.com/redis/go-redis/v9"
)

var (
	ErrEmptyConnectionURL           = errors.New("empty redis connection URL")
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")
	ErrRedisNotReady                = errors.New("redis did not become ready within the given time period")
)

const scanCount = 100

// Connect opens a client and pings it, retrying cfg.RetryAttempts times.
func Connect(ctx context.Context, cfg Config) (*goredis.Client, error) {
	if cfg.ConnectionURL == "" {
		return nil, ErrEmptyConnectionURL
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	opts, err := goredis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseRedisConnString, err)
	}

	attempts := max(cfg.RetryAttempts, 1)

	for range attempts {
		client := goredis.NewClient(opts)

		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}

		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, ErrRedisNotReady
}

// Store keeps snapshots in Redis.
type Store struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ store.Store = (*Store)(nil)

// New wraps an existing client.
func New(client goredis.UniversalClient, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = "fsm"
	}

	return &Store{client: client, prefix: prefix, ttl: ttl}
}

// Open connects using cfg and returns a store that owns the client.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	client, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return New(client, cfg.KeyPrefix, cfg.TTL), nil
}

func (s *Store) Save(ctx context.Context, snap *fsm.Snapshot) error {
	data, err := store.Encode(snap)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, s.key(snap.Engine, snap.ID), data, s.ttl).Err()
}

func (s *Store) Load(ctx context.Context, engine, id string) (*fsm.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key(engine, id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, store.NotFound(engine, id)
	}

	if err != nil {
		return nil, err
	}

	return store.Decode(data)
}

func (s *Store) Delete(ctx context.Context, engine, id string) error {
	n, err := s.client.Del(ctx, s.key(engine, id)).Result()
	if err != nil {
		return err
	}

	if n == 0 {
		return store.NotFound(engine, id)
	}

	return nil
}

func (s *Store) List(ctx context.Context, engine string) ([]string, error) {
	prefix := s.key(engine, "")
	ids := make([]string, 0)

	iter := s.client.Scan(ctx, 0, prefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), prefix))
	}

	if err := iter.Err(); err != nil {
		return nil, err
	}

	// SCAN may return a key more than once.
	slices.Sort(ids)

	return slices.Compact(ids), nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(engine, id string) string {
	return s.prefix + ":" + engine + ":" + id
}
