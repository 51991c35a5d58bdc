package cache

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// maxConflictRetries bounds optimistic-transaction retries for Incr.
const maxConflictRetries = 10

// BadgerStore implements Store on an embedded BadgerDB. It serves single-node
// deployments and local development where no Redis is available; counters and
// cached entries are only shared within one process.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore wraps an open database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// OpenBadger opens a BadgerDB at dir, or an in-memory instance when dir is empty.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrMiss
		}
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrMiss) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("badger get %s: %w", key, err)
	}
	return val, nil
}

func (s *BadgerStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("badger set %s: %w", key, err)
	}
	return nil
}

func (s *BadgerStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger delete: %w", err)
	}
	return nil
}

// DeletePattern scans keys sharing the pattern's literal prefix and deletes
// those matching the full glob.
func (s *BadgerStore) DeletePattern(ctx context.Context, pattern string) (int, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return 0, fmt.Errorf("badger pattern %s: %w", pattern, err)
	}
	prefix := literalPrefix(pattern)

	var matched [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if ok, _ := path.Match(pattern, string(key)); ok {
				matched = append(matched, key)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("badger scan %s: %w", pattern, err)
	}
	if len(matched) == 0 {
		return 0, nil
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, k := range matched {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("badger delete %s: %w", pattern, err)
	}
	return len(matched), nil
}

// Incr runs read-increment-write in one serializable transaction. A counter
// created by the call gets ttl; an existing counter keeps its expiry.
func (s *BadgerStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var n int64
	var err error
	for range maxConflictRetries {
		n, err = s.incrOnce(key, ttl)
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return 0, fmt.Errorf("badger incr %s: %w", key, err)
	}
	return n, nil
}

func (s *BadgerStore) incrOnce(key string, ttl time.Duration) (int64, error) {
	var n int64
	err := s.db.Update(func(txn *badger.Txn) error {
		var expiresAt uint64
		item, err := txn.Get([]byte(key))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			n = 0
		case err != nil:
			return err
		default:
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			n, err = strconv.ParseInt(string(raw), 10, 64)
			if err != nil {
				return fmt.Errorf("counter %s is not an integer: %w", key, err)
			}
			expiresAt = item.ExpiresAt()
		}

		n++
		e := badger.NewEntry([]byte(key), []byte(strconv.FormatInt(n, 10)))
		if n == 1 {
			e = e.WithTTL(ttl)
		} else {
			e.ExpiresAt = expiresAt
		}
		return txn.SetEntry(e)
	})
	return n, err
}

func (s *BadgerStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	var expiresAt uint64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrMiss
		}
		if err != nil {
			return err
		}
		expiresAt = item.ExpiresAt()
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrMiss) {
			return 0, ErrMiss
		}
		return 0, fmt.Errorf("badger ttl %s: %w", key, err)
	}
	if expiresAt == 0 {
		return 0, nil
	}
	d := time.Until(time.Unix(int64(expiresAt), 0))
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

func (s *BadgerStore) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger: database closed")
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func literalPrefix(pattern string) string {
	if i := strings.IndexAny(pattern, `*?[\`); i >= 0 {
		return pattern[:i]
	}
	return pattern
}
