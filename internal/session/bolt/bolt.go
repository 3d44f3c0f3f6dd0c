// Package bolt is a file-backed implementation of session storage on top of bbolt.
package bolt

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/Decentr-net/iris/internal/session"
)

var bucket = []byte("session") // nolint:gochecknoglobals

type storage struct {
	db *bolt.DB
}

// Open opens or creates the database file at path.
func Open(path string) (session.Storage, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return storage{db: db}, nil
}

func (s storage) Get(_ context.Context, key string) (string, error) {
	var (
		v     string
		found bool
	)

	if err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket).Get([]byte(key))
		if b != nil {
			// b is only valid inside the transaction
			v, found = string(b), true
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("failed to view: %w", err)
	}

	if !found {
		return "", session.ErrNotFound
	}

	return v, nil
}

func (s storage) Set(_ context.Context, entries map[string]string) error {
	if err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		for k, v := range entries {
			if err := b.Put([]byte(k), []byte(v)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("failed to update: %w", err)
	}

	return nil
}

func (s storage) Delete(_ context.Context, keys ...string) error {
	if err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		for _, k := range keys {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("failed to update: %w", err)
	}

	return nil
}

func (s storage) Ping(context.Context) error {
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(bucket) == nil {
			return fmt.Errorf("bucket %s is missing", bucket)
		}
		return nil
	})
}

func (s storage) Close() error {
	return s.db.Close()
}
