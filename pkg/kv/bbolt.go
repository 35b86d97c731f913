package kv

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/nimbusstore/nimbusstore/pkg/log"
	"github.com/nimbusstore/nimbusstore/pkg/metrics"
)

var dataBucket = []byte("data")

// BoltStore implements Store on top of a single bbolt database file. Each
// partition (pkg/meta) and the S3 sub-store (pkg/s3meta) open their own
// BoltStore under a distinct directory, per spec §4.4/§4.8.
type BoltStore struct {
	db *bolt.DB
}

// Open creates (if necessary) and opens a BoltStore under dir/nimbusstore.db.
func Open(dir string) (*BoltStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("kv: create data directory: %w", err)
	}

	dbPath := filepath.Join(dir, "nimbusstore.db")
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("kv: open %s: %w", dbPath, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(dataBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("kv: create data bucket: %w", err)
	}

	log.WithComponent("kv").Debug().Str("path", dbPath).Msg("opened store")
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(dataBucket).Get(key)
		if v == nil {
			return ErrNotFound
		}
		value = append([]byte(nil), v...)
		return nil
	})
	metrics.KVOpsTotal.WithLabelValues("get", resultLabel(err)).Inc()
	return value, err
}

func (s *BoltStore) Exists(key []byte) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(dataBucket).Get(key) != nil
		return nil
	})
	return found, err
}

func (s *BoltStore) Put(key, value []byte) error {
	timer := metrics.NewTimer()
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(dataBucket).Put(key, value)
	})
	timer.ObserveDuration(metrics.KVCommitDuration)
	metrics.KVOpsTotal.WithLabelValues("put", resultLabel(err)).Inc()
	return err
}

func (s *BoltStore) Delete(key []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(dataBucket).Delete(key)
	})
	metrics.KVOpsTotal.WithLabelValues("delete", resultLabel(err)).Inc()
	return err
}

func (s *BoltStore) Scan(prefix []byte, limit int) ([]KV, error) {
	var out []KV
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(dataBucket).Cursor()
		n := 0
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if limit > 0 && n >= limit {
				break
			}
			out = append(out, KV{
				Key:   append([]byte(nil), k...),
				Value: append([]byte(nil), v...),
			})
			n++
		}
		return nil
	})
	return out, err
}

func (s *BoltStore) WriteBatch(ops []Op) error {
	timer := metrics.NewTimer()
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(dataBucket)
		for _, op := range ops {
			switch op.Type {
			case OpPut:
				if err := b.Put(op.Key, op.Value); err != nil {
					return err
				}
			case OpDelete:
				if err := b.Delete(op.Key); err != nil {
					return err
				}
			default:
				return fmt.Errorf("kv: unknown op type %d", op.Type)
			}
		}
		return nil
	})
	timer.ObserveDuration(metrics.KVCommitDuration)
	metrics.KVOpsTotal.WithLabelValues("write_batch", resultLabel(err)).Inc()
	return err
}

func (s *BoltStore) BeginTxn() (Txn, error) {
	tx, err := s.db.Begin(true)
	if err != nil {
		return nil, fmt.Errorf("kv: begin transaction: %w", err)
	}
	return &boltTxn{tx: tx, bucket: tx.Bucket(dataBucket)}, nil
}

// boltTxn wraps a writable *bolt.Tx. Rollback after Commit is a documented
// no-op so `defer txn.Rollback()` is always safe to use right after
// BeginTxn, matching the scoped-value/implicit-rollback design in spec §9.
type boltTxn struct {
	tx        *bolt.Tx
	bucket    *bolt.Bucket
	committed bool
	timer     *metrics.Timer
}

func (t *boltTxn) Get(key []byte) ([]byte, error) {
	v := t.bucket.Get(key)
	if v == nil {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (t *boltTxn) Exists(key []byte) (bool, error) {
	return t.bucket.Get(key) != nil, nil
}

func (t *boltTxn) Put(key, value []byte) error {
	return t.bucket.Put(key, value)
}

func (t *boltTxn) Delete(key []byte) error {
	return t.bucket.Delete(key)
}

func (t *boltTxn) Scan(prefix []byte, limit int) ([]KV, error) {
	var out []KV
	c := t.bucket.Cursor()
	n := 0
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		if limit > 0 && n >= limit {
			break
		}
		out = append(out, KV{
			Key:   append([]byte(nil), k...),
			Value: append([]byte(nil), v...),
		})
		n++
	}
	return out, nil
}

func (t *boltTxn) Commit() error {
	timer := metrics.NewTimer()
	err := t.tx.Commit()
	timer.ObserveDuration(metrics.KVCommitDuration)
	metrics.KVOpsTotal.WithLabelValues("txn_commit", resultLabel(err)).Inc()
	if err == nil {
		t.committed = true
	}
	return err
}

func (t *boltTxn) Rollback() error {
	if t.committed {
		return nil
	}
	err := t.tx.Rollback()
	if err == bolt.ErrTxClosed {
		return nil
	}
	return err
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
