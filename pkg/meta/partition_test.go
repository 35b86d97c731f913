package meta

import (
	"testing"

	"github.com/nimbusstore/nimbusstore/pkg/codec"
	"github.com/nimbusstore/nimbusstore/pkg/kv"
	"github.com/stretchr/testify/require"
)

func newTestPartition(t *testing.T, start, end codec.InodeID) *Partition {
	t.Helper()
	store, err := kv.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewPartition(start, end, store)
}

func TestCreateInodeOutOfRangeIsInvalidArgument(t *testing.T) {
	p := newTestPartition(t, 100, 200)
	err := p.CreateInode(1, codec.ModeRegular|0644, 0, 0)
	require.Equal(t, InvalidArgument, KindOf(err))
}

func TestCreateInodeDuplicateIsExist(t *testing.T) {
	p := newTestPartition(t, 1, 1000)
	require.NoError(t, p.CreateInode(1, codec.ModeDir|0755, 0, 0))
	err := p.CreateInode(1, codec.ModeDir|0755, 0, 0)
	require.Equal(t, Exist, KindOf(err))
}

func TestLookupInodeMissingIsNotFound(t *testing.T) {
	p := newTestPartition(t, 1, 1000)
	_, err := p.LookupInode(42)
	require.Equal(t, NotFound, KindOf(err))
}

// Property #3: dentry uniqueness.
func TestCreateDentryUniqueness(t *testing.T) {
	p := newTestPartition(t, 1, 1000)
	require.NoError(t, p.CreateInode(1, codec.ModeDir|0755, 0, 0))
	require.NoError(t, p.CreateInode(2, codec.ModeRegular|0644, 0, 0))

	require.NoError(t, p.CreateDentry(1, "f", 2, codec.DentryRegular))
	err := p.CreateDentry(1, "f", 2, codec.DentryRegular)
	require.Equal(t, Exist, KindOf(err))

	require.NoError(t, p.DeleteDentry(1, "f"))
	require.NoError(t, p.CreateDentry(1, "f", 2, codec.DentryRegular))
}

func TestCreateDentryParentNotDirectory(t *testing.T) {
	p := newTestPartition(t, 1, 1000)
	require.NoError(t, p.CreateInode(1, codec.ModeRegular|0644, 0, 0))
	require.NoError(t, p.CreateInode(2, codec.ModeRegular|0644, 0, 0))
	err := p.CreateDentry(1, "f", 2, codec.DentryRegular)
	require.Equal(t, NotDirectory, KindOf(err))
}

func TestListDentriesScansOnlyParent(t *testing.T) {
	p := newTestPartition(t, 1, 1000)
	require.NoError(t, p.CreateInode(1, codec.ModeDir|0755, 0, 0))
	require.NoError(t, p.CreateInode(2, codec.ModeRegular|0644, 0, 0))
	require.NoError(t, p.CreateInode(3, codec.ModeRegular|0644, 0, 0))
	require.NoError(t, p.CreateDentry(1, "a", 2, codec.DentryRegular))
	require.NoError(t, p.CreateDentry(1, "b", 3, codec.DentryRegular))

	got, err := p.ListDentries(1)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestScanOrphansFindsUnreferencedInode(t *testing.T) {
	p := newTestPartition(t, 1, 1000)
	require.NoError(t, p.CreateInode(1, codec.ModeDir|0755, 0, 0))
	require.NoError(t, p.CreateInode(2, codec.ModeRegular|0644, 0, 0))
	require.NoError(t, p.CreateInode(3, codec.ModeRegular|0644, 0, 0))
	require.NoError(t, p.CreateDentry(1, "linked", 2, codec.DentryRegular))

	orphans, err := p.ScanOrphans()
	require.NoError(t, err)
	require.Equal(t, []codec.InodeID{3}, orphans)
}
