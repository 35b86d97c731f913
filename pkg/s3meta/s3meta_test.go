package s3meta

import (
	"testing"
	"time"

	"github.com/nimbusstore/nimbusstore/pkg/codec"
	"github.com/nimbusstore/nimbusstore/pkg/kv"
	"github.com/nimbusstore/nimbusstore/pkg/meta"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := kv.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db)
}

// S6: bucket lifecycle.
func TestS6BucketLifecycle(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, s.PutBucket(codec.BucketMeta{Name: "b", Owner: "u", CreationTime: now}))

	got, err := s.GetBucket("b")
	require.NoError(t, err)
	require.Equal(t, "b", got.Name)
	require.Equal(t, "u", got.Owner)

	require.NoError(t, s.PutObject(codec.ObjectMeta{Bucket: "b", Key: "k", Size: 1024}))

	objs, truncated, err := s.ListObjects("b", "", "", 0)
	require.NoError(t, err)
	require.False(t, truncated)
	require.Len(t, objs, 1)

	// Deleting "b" while it still contains "k" fails with NotEmpty.
	err = s.DeleteBucket("b")
	require.Equal(t, meta.NotEmpty, meta.KindOf(err))

	require.NoError(t, s.DeleteObject("b", "k"))
	require.NoError(t, s.DeleteBucket("b"))
}

func TestGetBucketMissingIsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetBucket("nope")
	require.Equal(t, meta.NotFound, meta.KindOf(err))
}

func TestPutObjectUpdatesBucketStats(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutBucket(codec.BucketMeta{Name: "b"}))
	require.NoError(t, s.PutObject(codec.ObjectMeta{Bucket: "b", Key: "a", Size: 100}))
	require.NoError(t, s.PutObject(codec.ObjectMeta{Bucket: "b", Key: "b", Size: 200}))

	b, err := s.GetBucket("b")
	require.NoError(t, err)
	require.EqualValues(t, 300, b.TotalSize)
	require.EqualValues(t, 2, b.ObjectCount)

	require.NoError(t, s.DeleteObject("b", "a"))
	b, err = s.GetBucket("b")
	require.NoError(t, err)
	require.EqualValues(t, 200, b.TotalSize)
	require.EqualValues(t, 1, b.ObjectCount)
}

// Property #8: list ordering — ascending, <= n entries, all prefixed.
func TestListObjectsOrderingAndPrefix(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutBucket(codec.BucketMeta{Name: "b"}))
	for _, k := range []string{"c", "a", "b/1", "b/2", "other"} {
		require.NoError(t, s.PutObject(codec.ObjectMeta{Bucket: "b", Key: k}))
	}

	objs, truncated, err := s.ListObjects("b", "b/", "", 10)
	require.NoError(t, err)
	require.False(t, truncated)
	require.Len(t, objs, 2)
	require.Equal(t, "b/1", objs[0].Key)
	require.Equal(t, "b/2", objs[1].Key)
}

func TestListObjectsMaxKeysTruncates(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutBucket(codec.BucketMeta{Name: "b"}))
	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.PutObject(codec.ObjectMeta{Bucket: "b", Key: k}))
	}

	objs, truncated, err := s.ListObjects("b", "", "", 2)
	require.NoError(t, err)
	require.True(t, truncated)
	require.Len(t, objs, 2)
	require.Equal(t, "a", objs[0].Key)
	require.Equal(t, "b", objs[1].Key)
}

// Property #9: marker semantics — strictly greater than marker.
func TestMarkerSemantics(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutBucket(codec.BucketMeta{Name: "b"}))
	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.PutObject(codec.ObjectMeta{Bucket: "b", Key: k}))
	}

	objs, _, err := s.ListObjects("b", "", "b", 10)
	require.NoError(t, err)
	require.Len(t, objs, 2)
	require.Equal(t, "c", objs[0].Key)
	require.Equal(t, "d", objs[1].Key)
}

func TestListBucketsAscending(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutBucket(codec.BucketMeta{Name: "zeta"}))
	require.NoError(t, s.PutBucket(codec.BucketMeta{Name: "alpha"}))

	got, err := s.ListBuckets()
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "alpha", got[0].Name)
	require.Equal(t, "zeta", got[1].Name)
}
