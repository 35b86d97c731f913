package meta

import (
	"testing"

	"github.com/nimbusstore/nimbusstore/pkg/codec"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	p := newTestPartition(t, 1, 1_000_000)
	require.NoError(t, p.CreateInode(codec.RootInode, codec.ModeDir|0755, 0, 0))
	return NewService([]*Partition{p})
}

// S4: three successive GenerateInodeID calls on a fresh service return
// 2, 3, 4 (root is reserved at 1).
func TestS4InodeAllocation(t *testing.T) {
	s := newTestService(t)
	require.EqualValues(t, 2, s.GenerateInodeID())
	require.EqualValues(t, 3, s.GenerateInodeID())
	require.EqualValues(t, 4, s.GenerateInodeID())
}

// S2: path parsing.
func TestS2PathParse(t *testing.T) {
	segs, err := splitPath("/a/b/c")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, segs)

	segs, err = splitPath("/")
	require.NoError(t, err)
	require.Equal(t, []string{}, segs)

	_, err = splitPath("no-leading-slash")
	require.Error(t, err)
	require.Equal(t, InvalidArgument, KindOf(err))
}

func TestLookupPathRoot(t *testing.T) {
	s := newTestService(t)
	id, err := s.LookupPath("/")
	require.NoError(t, err)
	require.Equal(t, codec.RootInode, id)
}

func TestCreateAndLookupPath(t *testing.T) {
	s := newTestService(t)
	id, err := s.Create("/foo.txt", codec.ModeRegular|0644, 1, 1)
	require.NoError(t, err)

	got, err := s.LookupPath("/foo.txt")
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestCreateDuplicateIsExist(t *testing.T) {
	s := newTestService(t)
	_, err := s.Create("/foo.txt", codec.ModeRegular|0644, 0, 0)
	require.NoError(t, err)
	_, err = s.Create("/foo.txt", codec.ModeRegular|0644, 0, 0)
	require.Equal(t, Exist, KindOf(err))
}

func TestMkdirAndNestedCreate(t *testing.T) {
	s := newTestService(t)
	_, err := s.Mkdir("/dir", 0755, 0, 0)
	require.NoError(t, err)

	_, err = s.Create("/dir/inner.txt", codec.ModeRegular|0644, 0, 0)
	require.NoError(t, err)

	entries, err := s.Readdir("/dir")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "inner.txt", entries[0].Name)
}

func TestGetAttrAndSetAttrMask(t *testing.T) {
	s := newTestService(t)
	_, err := s.Create("/f", codec.ModeRegular|0644, 1, 1)
	require.NoError(t, err)

	attr, err := s.GetAttr("/f")
	require.NoError(t, err)
	require.EqualValues(t, 1, attr.UID)

	updated, err := s.SetAttr("/f", codec.InodeAttr{UID: 99, Size: 555}, SetUID)
	require.NoError(t, err)
	require.EqualValues(t, 99, updated.UID)
	// Size bit was not set in mask, so it must be untouched.
	require.EqualValues(t, 0, updated.Size)
}

func TestUnlinkRemovesFileNotDirectory(t *testing.T) {
	s := newTestService(t)
	_, err := s.Mkdir("/dir", 0755, 0, 0)
	require.NoError(t, err)
	err = s.Unlink("/dir")
	require.Equal(t, IsDirectory, KindOf(err))

	_, err = s.Create("/f", codec.ModeRegular|0644, 0, 0)
	require.NoError(t, err)
	require.NoError(t, s.Unlink("/f"))

	_, err = s.LookupPath("/f")
	require.Equal(t, NotFound, KindOf(err))
}

func TestRmdirFailsNotEmpty(t *testing.T) {
	s := newTestService(t)
	_, err := s.Mkdir("/dir", 0755, 0, 0)
	require.NoError(t, err)
	_, err = s.Create("/dir/f", codec.ModeRegular|0644, 0, 0)
	require.NoError(t, err)

	err = s.Rmdir("/dir")
	require.Equal(t, NotEmpty, KindOf(err))

	require.NoError(t, s.Unlink("/dir/f"))
	require.NoError(t, s.Rmdir("/dir"))
}

func TestRmdirFailsNotDirectory(t *testing.T) {
	s := newTestService(t)
	_, err := s.Create("/f", codec.ModeRegular|0644, 0, 0)
	require.NoError(t, err)
	err = s.Rmdir("/f")
	require.Equal(t, NotDirectory, KindOf(err))
}

func TestRenameWithinSamePartition(t *testing.T) {
	s := newTestService(t)
	_, err := s.Create("/a", codec.ModeRegular|0644, 0, 0)
	require.NoError(t, err)

	require.NoError(t, s.Rename("/a", "/b"))

	_, err = s.LookupPath("/a")
	require.Equal(t, NotFound, KindOf(err))
	_, err = s.LookupPath("/b")
	require.NoError(t, err)
}

func TestRenameFailsIfTargetExists(t *testing.T) {
	s := newTestService(t)
	_, err := s.Create("/a", codec.ModeRegular|0644, 0, 0)
	require.NoError(t, err)
	_, err = s.Create("/b", codec.ModeRegular|0644, 0, 0)
	require.NoError(t, err)

	err = s.Rename("/a", "/b")
	require.Equal(t, Exist, KindOf(err))
}

func TestLayoutRoundTripAndSizeMonotonicity(t *testing.T) {
	s := newTestService(t)
	id, err := s.Create("/f", codec.ModeRegular|0644, 0, 0)
	require.NoError(t, err)

	layout, err := s.GetLayout(id)
	require.NoError(t, err)
	require.Equal(t, uint64(codec.DefaultChunkSize), layout.ChunkSize)

	layout.Slices = []codec.SliceInfo{{SliceID: 1, Offset: 0, Size: 100, StorageKey: "chunks/1/1"}}
	require.NoError(t, s.AddSlice(id, layout))

	require.NoError(t, s.UpdateSize(id, 100))
	attr, err := s.GetAttr("/f")
	require.NoError(t, err)
	require.EqualValues(t, 100, attr.Size)

	// Property #6: size never shrinks implicitly.
	require.NoError(t, s.UpdateSize(id, 10))
	attr, err = s.GetAttr("/f")
	require.NoError(t, err)
	require.EqualValues(t, 100, attr.Size)
}
