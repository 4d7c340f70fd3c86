package store

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.etcd.io/bbolt"
)

// openTimeout bounds the wait for the bbolt file lock.
const openTimeout = time.Second

// BoltStore keeps records in a bbolt file, one bucket per collection.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) the database at path and ensures every
// collection bucket exists.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &BoltStore{db: db}
	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}
	return s, nil
}

func (s *BoltStore) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, c := range Collections {
			if _, err := tx.CreateBucketIfNotExists([]byte(c)); err != nil {
				return fmt.Errorf("create bucket %s: %w", c, err)
			}
		}
		return nil
	})
}

func (s *BoltStore) bucket(tx *bbolt.Tx, collection string) (*bbolt.Bucket, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	b := tx.Bucket([]byte(collection))
	if b == nil {
		return nil, fmt.Errorf("bucket %s missing", collection)
	}
	return b, nil
}

func (s *BoltStore) Create(_ context.Context, collection, key string, v any) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx, collection)
		if err != nil {
			return err
		}
		if b.Get([]byte(key)) != nil {
			return fmt.Errorf("%s/%s: %w", collection, key, ErrExists)
		}
		return b.Put([]byte(key), data)
	})
}

func (s *BoltStore) Read(ctx context.Context, collection, key string, v any) error {
	data, err := s.ReadRaw(ctx, collection, key)
	if err != nil {
		return err
	}
	return decode(data, v)
}

func (s *BoltStore) ReadRaw(_ context.Context, collection, key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx, collection)
		if err != nil {
			return err
		}
		v := b.Get([]byte(key))
		if v == nil {
			return fmt.Errorf("%s/%s: %w", collection, key, ErrNotFound)
		}
		// bbolt values are only valid for the life of the transaction
		data = slices.Clone(v)
		return nil
	})
	return data, err
}

func (s *BoltStore) Update(_ context.Context, collection, key string, v any) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx, collection)
		if err != nil {
			return err
		}
		if b.Get([]byte(key)) == nil {
			return fmt.Errorf("%s/%s: %w", collection, key, ErrNotFound)
		}
		return b.Put([]byte(key), data)
	})
}

func (s *BoltStore) Delete(_ context.Context, collection, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx, collection)
		if err != nil {
			return err
		}
		if b.Get([]byte(key)) == nil {
			return fmt.Errorf("%s/%s: %w", collection, key, ErrNotFound)
		}
		return b.Delete([]byte(key))
	})
}

// List returns the bucket's keys; bbolt iterates them in byte order.
func (s *BoltStore) List(_ context.Context, collection string) ([]string, error) {
	keys := []string{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx, collection)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *BoltStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
