package s3meta

import (
	"github.com/nimbusstore/nimbusstore/pkg/codec"
	"github.com/nimbusstore/nimbusstore/pkg/kv"
	"github.com/nimbusstore/nimbusstore/pkg/meta"
	"github.com/nimbusstore/nimbusstore/pkg/metrics"
)

// Store is the S3 metadata sub-store, backed by the same ordered KV
// abstraction as pkg/meta but confined to the "B:"/"BL:"/"O:"/"OL:"
// prefix subspaces (spec §6).
type Store struct {
	kv kv.Store
}

// New wraps an existing KV store with the S3 metadata operations.
func New(store kv.Store) *Store {
	return &Store{kv: store}
}

// PutBucket creates or overwrites a bucket record and its listing index
// entry in the same write.
func (s *Store) PutBucket(b codec.BucketMeta) error {
	existed, err := s.BucketExists(b.Name)
	if err != nil {
		return err
	}
	if err := s.putBucketRecord(b); err != nil {
		return err
	}
	if !existed {
		metrics.BucketsTotal.Inc()
	}
	return nil
}

func (s *Store) putBucketRecord(b codec.BucketMeta) error {
	encoded := codec.EncodeBucketMeta(b)
	if err := s.kv.WriteBatch([]kv.Op{
		{Type: kv.OpPut, Key: codec.BucketKey(b.Name), Value: encoded},
		{Type: kv.OpPut, Key: codec.BucketListKey(b.Name), Value: encoded},
	}); err != nil {
		return meta.NewError(meta.IOError, "put bucket %s: %v", b.Name, err)
	}
	return nil
}

// GetBucket returns the bucket record, or NotFound.
func (s *Store) GetBucket(name string) (codec.BucketMeta, error) {
	raw, err := s.kv.Get(codec.BucketKey(name))
	if err == kv.ErrNotFound {
		return codec.BucketMeta{}, meta.NewError(meta.NotFound, "bucket %q not found", name)
	}
	if err != nil {
		return codec.BucketMeta{}, meta.NewError(meta.IOError, "get bucket %s: %v", name, err)
	}
	b, err := codec.DecodeBucketMeta(raw)
	if err != nil {
		return codec.BucketMeta{}, meta.NewError(meta.IOError, "decode bucket %s: %v", name, err)
	}
	return b, nil
}

// BucketExists reports whether a bucket record exists.
func (s *Store) BucketExists(name string) (bool, error) {
	ok, err := s.kv.Exists(codec.BucketKey(name))
	if err != nil {
		return false, meta.NewError(meta.IOError, "check bucket %s: %v", name, err)
	}
	return ok, nil
}

// DeleteBucket fails NotEmpty if any object remains in the bucket.
func (s *Store) DeleteBucket(name string) error {
	rows, err := s.kv.Scan(codec.ObjectPrefix(name, ""), 1)
	if err != nil {
		return meta.NewError(meta.IOError, "scan bucket %s: %v", name, err)
	}
	if len(rows) > 0 {
		return meta.NewError(meta.NotEmpty, "bucket %q is not empty", name)
	}
	if err := s.kv.WriteBatch([]kv.Op{
		{Type: kv.OpDelete, Key: codec.BucketKey(name)},
		{Type: kv.OpDelete, Key: codec.BucketListKey(name)},
	}); err != nil {
		return meta.NewError(meta.IOError, "delete bucket %s: %v", name, err)
	}
	metrics.BucketsTotal.Dec()
	return nil
}

// ListBuckets returns every bucket in ascending lexicographic order.
func (s *Store) ListBuckets() ([]codec.BucketMeta, error) {
	rows, err := s.kv.Scan(codec.BucketListPrefix(), 0)
	if err != nil {
		return nil, meta.NewError(meta.IOError, "list buckets: %v", err)
	}
	out := make([]codec.BucketMeta, 0, len(rows))
	for _, r := range rows {
		b, err := codec.DecodeBucketMeta(r.Value)
		if err != nil {
			return nil, meta.NewError(meta.IOError, "decode bucket listing entry: %v", err)
		}
		out = append(out, b)
	}
	return out, nil
}

// PutObject creates or overwrites an object record and its listing index
// entry, then bumps the owning bucket's stats.
func (s *Store) PutObject(o codec.ObjectMeta) error {
	encoded := codec.EncodeObjectMeta(o)
	if err := s.kv.WriteBatch([]kv.Op{
		{Type: kv.OpPut, Key: codec.ObjectKey(o.Bucket, o.Key), Value: encoded},
		{Type: kv.OpPut, Key: codec.ObjectListKey(o.Bucket, o.Key), Value: encoded},
	}); err != nil {
		return meta.NewError(meta.IOError, "put object %s/%s: %v", o.Bucket, o.Key, err)
	}
	if err := s.UpdateBucketStats(o.Bucket, int64(o.Size), 1); err != nil {
		return err
	}
	metrics.S3RequestsTotal.WithLabelValues("PutObject", "ok").Inc()
	return nil
}

// GetObject returns the object record, or NotFound.
func (s *Store) GetObject(bucket, key string) (codec.ObjectMeta, error) {
	raw, err := s.kv.Get(codec.ObjectKey(bucket, key))
	if err == kv.ErrNotFound {
		return codec.ObjectMeta{}, meta.NewError(meta.NotFound, "object %s/%s not found", bucket, key)
	}
	if err != nil {
		return codec.ObjectMeta{}, meta.NewError(meta.IOError, "get object %s/%s: %v", bucket, key, err)
	}
	o, err := codec.DecodeObjectMeta(raw)
	if err != nil {
		return codec.ObjectMeta{}, meta.NewError(meta.IOError, "decode object %s/%s: %v", bucket, key, err)
	}
	return o, nil
}

// ObjectExists reports whether an object record exists.
func (s *Store) ObjectExists(bucket, key string) (bool, error) {
	ok, err := s.kv.Exists(codec.ObjectKey(bucket, key))
	if err != nil {
		return false, meta.NewError(meta.IOError, "check object %s/%s: %v", bucket, key, err)
	}
	return ok, nil
}

// DeleteObject removes the object and decrements the owning bucket's
// stats by the removed object's size.
func (s *Store) DeleteObject(bucket, key string) error {
	o, err := s.GetObject(bucket, key)
	if err != nil {
		return err
	}
	if err := s.kv.WriteBatch([]kv.Op{
		{Type: kv.OpDelete, Key: codec.ObjectKey(bucket, key)},
		{Type: kv.OpDelete, Key: codec.ObjectListKey(bucket, key)},
	}); err != nil {
		return meta.NewError(meta.IOError, "delete object %s/%s: %v", bucket, key, err)
	}
	return s.UpdateBucketStats(bucket, -int64(o.Size), -1)
}

// UpdateBucketStats applies sizeDelta/countDelta to the bucket's running
// totals. Missing bucket is NotFound.
func (s *Store) UpdateBucketStats(bucket string, sizeDelta, countDelta int64) error {
	b, err := s.GetBucket(bucket)
	if err != nil {
		return err
	}
	b.TotalSize = applyDelta(b.TotalSize, sizeDelta)
	b.ObjectCount = applyDelta(b.ObjectCount, countDelta)
	return s.putBucketRecord(b)
}

func applyDelta(v uint64, delta int64) uint64 {
	if delta < 0 && uint64(-delta) > v {
		return 0
	}
	return uint64(int64(v) + delta)
}

// ListObjects returns keys in ascending order, all starting with prefix,
// strictly greater than marker (exclusive), truncated to maxKeys. If
// maxKeys is 0 it defaults to 1000 (spec §6).
func (s *Store) ListObjects(bucket, prefix, marker string, maxKeys int) ([]codec.ObjectMeta, bool, error) {
	if maxKeys <= 0 {
		maxKeys = 1000
	}
	rows, err := s.kv.Scan(codec.ObjectListPrefix(bucket, prefix), 0)
	if err != nil {
		return nil, false, meta.NewError(meta.IOError, "list objects %s: %v", bucket, err)
	}

	var out []codec.ObjectMeta
	truncated := false
	for _, r := range rows {
		_, key, err := codec.ParseObjectListKey(r.Key)
		if err != nil {
			return nil, false, meta.NewError(meta.IOError, "malformed object-list key: %v", err)
		}
		if marker != "" && key <= marker {
			continue
		}
		if len(out) >= maxKeys {
			truncated = true
			break
		}
		o, err := codec.DecodeObjectMeta(r.Value)
		if err != nil {
			return nil, false, meta.NewError(meta.IOError, "decode object listing entry: %v", err)
		}
		out = append(out, o)
	}
	return out, truncated, nil
}
