package codec

import "time"

// InodeID is a dense, monotonically allocated identifier within one
// partition's range. 1 is reserved for the root directory.
type InodeID = uint64

// RootInode is the reserved inode ID for the filesystem root.
const RootInode InodeID = 1

// FileMode encodes the inode type in its top bits and POSIX permission
// bits below, matching the conventions spec §3 names.
type FileMode uint32

const (
	ModeTypeMask FileMode = 0170000
	ModeDir      FileMode = 0040000
	ModeRegular  FileMode = 0100000
	ModeSymlink  FileMode = 0120000
)

// Type returns the masked-off type bits.
func (m FileMode) Type() FileMode { return m & ModeTypeMask }

// Perm returns the permission bits (lower 12 bits).
func (m FileMode) Perm() FileMode { return m & 0007777 }

func (m FileMode) IsDir() bool     { return m.Type() == ModeDir }
func (m FileMode) IsRegular() bool { return m.Type() == ModeRegular }
func (m FileMode) IsSymlink() bool { return m.Type() == ModeSymlink }

// DentryType mirrors the inode's type bits for quick directory listings
// without a second inode lookup.
type DentryType uint8

const (
	DentryRegular DentryType = iota
	DentryDirectory
	DentrySymlink
)

func DentryTypeFromMode(mode FileMode) DentryType {
	switch mode.Type() {
	case ModeDir:
		return DentryDirectory
	case ModeSymlink:
		return DentrySymlink
	default:
		return DentryRegular
	}
}

// InodeAttr is the persisted attribute record for one inode (spec §3).
type InodeAttr struct {
	InodeID InodeID
	Mode    FileMode
	UID     uint32
	GID     uint32
	Size    uint64
	Mtime   time.Time
	Ctime   time.Time
	Nlink   uint32
}

// Dentry is a (parent, name) -> child edge. Name is carried in the key, not
// the value, per spec §4.2/§6, but we ship it on the decoded struct for
// convenience of callers that just scanned a directory prefix.
type Dentry struct {
	Name    string
	InodeID InodeID
	Type    DentryType
}

// SliceInfo is one contiguous, non-overlapping storage slice inside a
// file's layout (spec §3). StorageOffset is the byte offset inside the
// object named by StorageKey where this slice's bytes begin — needed
// because a slice-tree cut (pkg/slicetree) may clip a slice without
// rewriting its backing object, leaving a remnant that starts partway
// into storage.
type SliceInfo struct {
	SliceID       uint64
	Offset        uint64 // offset within the file
	Size          uint64
	StorageKey    string
	StorageOffset uint64
}

// FileLayout is the ordered, non-overlapping slice list defining a file's
// content (spec §3).
type FileLayout struct {
	InodeID   InodeID
	ChunkSize uint64
	Slices    []SliceInfo
}

const DefaultChunkSize = 4 << 20 // 4 MiB

// BucketMeta is the S3 bucket record (spec §3).
type BucketMeta struct {
	Name         string
	Owner        string
	CreationTime time.Time
	ObjectCount  uint64
	TotalSize    uint64
	Region       string
	StorageClass string
}

// ObjectMeta is the S3 object record (spec §3).
type ObjectMeta struct {
	Bucket       string
	Key          string
	Size         uint64
	ETag         string
	ContentType  string
	LastModified time.Time
	StorageClass string
	DataPath     string
	UserMetadata map[string]string
}
