// Package bolt is a store.Store backed by a bbolt database file. Each engine
// gets its own bucket, keyed by FSM id.
package bolt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/amp-labs/amp-fsm/store"
	bolt "go.etcd.io/bbolt"
)

var ErrPathRequired = errors.New("bolt store path is required")

const fileMode os.FileMode = 0o600

// Config configures the bolt store.
type Config struct {
	Path    string        `env:"FSM_BOLT_PATH"    envDefault:"fsm.db"`
	Timeout time.Duration `env:"FSM_BOLT_TIMEOUT" envDefault:"1s"` // Timeout waiting for the file lock.
}

// Store keeps snapshots in a bbolt database.
type Store struct {
	db *bolt.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) the database file named by cfg.Path.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, ErrPathRequired
	}

	db, err := bolt.Open(cfg.Path, fileMode, &bolt.Options{Timeout: cfg.Timeout})
	if err != nil {
		return nil, fmt.Errorf("opening bolt store %s: %w", cfg.Path, err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Save(ctx context.Context, snap *fsm.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := store.Encode(snap)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketName(snap.Engine))
		if err != nil {
			return err
		}

		return bucket.Put([]byte(snap.ID), data)
	})
}

func (s *Store) Load(ctx context.Context, engine, id string) (*fsm.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var snap *fsm.Snapshot

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName(engine))
		if bucket == nil {
			return store.NotFound(engine, id)
		}

		data := bucket.Get([]byte(id))
		if data == nil {
			return store.NotFound(engine, id)
		}

		// data is only valid inside the transaction.
		decoded, err := store.Decode(data)
		if err != nil {
			return err
		}

		snap = decoded

		return nil
	})
	if err != nil {
		return nil, err
	}

	return snap, nil
}

func (s *Store) Delete(ctx context.Context, engine, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName(engine))
		if bucket == nil || bucket.Get([]byte(id)) == nil {
			return store.NotFound(engine, id)
		}

		return bucket.Delete([]byte(id))
	})
}

func (s *Store) List(ctx context.Context, engine string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids := make([]string, 0)

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName(engine))
		if bucket == nil {
			return nil
		}

		// Cursor order is byte order, which is sorted for ids.
		return bucket.ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func bucketName(engine string) []byte {
	if engine == "" {
		return []byte("_")
	}

	return []byte(engine)
}
