package kv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetDelete(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get([]byte("a"))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put([]byte("a"), []byte("1")))
	v, err := s.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)

	ok, err := s.Exists([]byte("a"))
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Delete([]byte("a")))
	ok, err = s.Exists([]byte("a"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestScanOrderAndPrefix(t *testing.T) {
	s := openTestStore(t)

	for _, k := range []string{"D/b", "D/a", "D/c", "I/x"} {
		require.NoError(t, s.Put([]byte(k), []byte(k)))
	}

	got, err := s.Scan([]byte("D/"), 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "D/a", string(got[0].Key))
	require.Equal(t, "D/b", string(got[1].Key))
	require.Equal(t, "D/c", string(got[2].Key))
}

func TestScanLimit(t *testing.T) {
	s := openTestStore(t)
	for _, k := range []string{"k1", "k2", "k3"} {
		require.NoError(t, s.Put([]byte(k), []byte(k)))
	}
	got, err := s.Scan([]byte("k"), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestWriteBatchAtomic(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put([]byte("x"), []byte("old")))

	err := s.WriteBatch([]Op{
		{Type: OpPut, Key: []byte("x"), Value: []byte("new")},
		{Type: OpPut, Key: []byte("y"), Value: []byte("1")},
		{Type: OpDelete, Key: []byte("z")},
	})
	require.NoError(t, err)

	v, err := s.Get([]byte("x"))
	require.NoError(t, err)
	require.Equal(t, []byte("new"), v)

	v, err = s.Get([]byte("y"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)
}

func TestTxnCommit(t *testing.T) {
	s := openTestStore(t)

	txn, err := s.BeginTxn()
	require.NoError(t, err)
	defer txn.Rollback()

	require.NoError(t, txn.Put([]byte("a"), []byte("1")))
	require.NoError(t, txn.Put([]byte("b"), []byte("2")))
	require.NoError(t, txn.Commit())

	v, err := s.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)

	// Rollback after commit must be a safe no-op.
	require.NoError(t, txn.Rollback())
}

func TestTxnRollbackOnEarlyReturn(t *testing.T) {
	s := openTestStore(t)

	func() {
		txn, err := s.BeginTxn()
		require.NoError(t, err)
		defer txn.Rollback()

		require.NoError(t, txn.Put([]byte("a"), []byte("1")))
		// early return without Commit: Put must not be visible.
	}()

	_, err := s.Get([]byte("a"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTxnReadsOwnWrites(t *testing.T) {
	s := openTestStore(t)

	txn, err := s.BeginTxn()
	require.NoError(t, err)
	defer txn.Rollback()

	require.NoError(t, txn.Put([]byte("a"), []byte("1")))
	v, err := txn.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)

	require.NoError(t, txn.Commit())
}
