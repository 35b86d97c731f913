package meta

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/nimbusstore/nimbusstore/pkg/codec"
	"github.com/nimbusstore/nimbusstore/pkg/kv"
	"github.com/nimbusstore/nimbusstore/pkg/log"
	"github.com/nimbusstore/nimbusstore/pkg/metrics"
)

// Attribute-update mask bits (spec §6).
const (
	SetMode AttrMask = 1 << iota
	SetUID
	SetGID
	SetSize
	SetMtime
)

// AttrMask selects which InodeAttr fields SetAttr merges. Unlisted bits
// MUST be ignored.
type AttrMask uint32

// Service is a stateless front-end over a set of partitions, reachable by
// inode-id range. It owns the monotonically increasing inode counter.
type Service struct {
	partitions []*Partition
	nextInode  uint64 // atomic; fetch_add(1)
}

// NewService wires up a metadata service over partitions, which must be
// sorted by Start and cover disjoint ranges. The root inode (1) is assumed
// already created in the partition that owns it.
func NewService(partitions []*Partition) *Service {
	return &Service{
		partitions: partitions,
		nextInode:  uint64(codec.RootInode),
	}
}

// GenerateInodeID allocates the next id via fetch_add(1); root (1) is
// reserved so the first call returns 2.
func (s *Service) GenerateInodeID() codec.InodeID {
	return atomic.AddUint64(&s.nextInode, 1)
}

// Partitions returns the service's partition set, in the order supplied to
// NewService (sorted by Start). Used by fsck and diagnostic tooling that
// need to walk every partition's raw KV store directly.
func (s *Service) Partitions() []*Partition {
	return s.partitions
}

func (s *Service) partitionFor(id codec.InodeID) *Partition {
	for _, p := range s.partitions {
		if p.Owns(id) {
			return p
		}
	}
	return nil
}

// splitPath breaks "/a/b/c" into ["a","b","c"], collapsing empty segments
// (double slashes) and rejecting paths that don't start with "/" (spec
// §4.5, scenario S2).
func splitPath(path string) ([]string, error) {
	if path == "" || path[0] != '/' {
		return nil, newErr(InvalidArgument, "path %q must start with /", path)
	}
	if path == "/" {
		return []string{}, nil
	}
	raw := strings.Split(path, "/")
	segs := make([]string, 0, len(raw))
	for _, seg := range raw {
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	return segs, nil
}

// LookupPath walks path by repeated LookupDentry starting at the root.
func (s *Service) LookupPath(path string) (codec.InodeID, error) {
	segs, err := splitPath(path)
	if err != nil {
		return 0, err
	}
	cur := codec.RootInode
	for _, seg := range segs {
		p := s.partitionFor(cur)
		if p == nil {
			return 0, newErr(NotFound, "no partition owns inode %d", cur)
		}
		d, err := p.LookupDentry(cur, seg)
		if err != nil {
			return 0, err
		}
		cur = d.InodeID
	}
	return cur, nil
}

func splitParent(path string) (parentPath, name string, err error) {
	segs, err := splitPath(path)
	if err != nil {
		return "", "", err
	}
	if len(segs) == 0 {
		return "", "", newErr(InvalidArgument, "path %q has no parent", path)
	}
	name = segs[len(segs)-1]
	if len(segs) == 1 {
		return "/", name, nil
	}
	return "/" + strings.Join(segs[:len(segs)-1], "/"), name, nil
}

// Create splits path into parent+name, allocates a new inode, and links it
// under the parent directory. If the dentry step fails, the inode is
// rolled back via a compensating delete.
func (s *Service) Create(path string, mode codec.FileMode, uid, gid uint32) (codec.InodeID, error) {
	parentPath, name, err := splitParent(path)
	if err != nil {
		return 0, err
	}
	parentID, err := s.LookupPath(parentPath)
	if err != nil {
		return 0, err
	}
	parentPart := s.partitionFor(parentID)
	if parentPart == nil {
		return 0, newErr(NotFound, "no partition owns inode %d", parentID)
	}
	if _, err := parentPart.LookupDentry(parentID, name); err == nil {
		return 0, newErr(Exist, "%s already exists", path)
	}

	id := s.GenerateInodeID()
	part := s.partitionFor(id)
	if part == nil {
		return 0, newErr(InvalidArgument, "no partition owns allocated inode %d", id)
	}
	if err := part.CreateInode(id, mode, uid, gid); err != nil {
		return 0, err
	}

	typ := codec.DentryTypeFromMode(mode)
	if err := parentPart.CreateDentry(parentID, name, id, typ); err != nil {
		// Compensating delete: the dentry step failed, so the just-created
		// inode must not become a dangling allocation.
		if delErr := part.DeleteInode(id); delErr != nil {
			log.Errorf("failed to roll back orphaned inode after create_dentry failure", delErr)
		}
		return 0, err
	}

	metrics.MetaOpsTotal.WithLabelValues("create", OK.String()).Inc()
	return id, nil
}

// GetAttr resolves path and returns its inode attributes.
func (s *Service) GetAttr(path string) (codec.InodeAttr, error) {
	id, err := s.LookupPath(path)
	if err != nil {
		return codec.InodeAttr{}, err
	}
	part := s.partitionFor(id)
	if part == nil {
		return codec.InodeAttr{}, newErr(NotFound, "no partition owns inode %d", id)
	}
	return part.LookupInode(id)
}

// SetAttr merges only the fields whose bit is set in mask, atomically.
func (s *Service) SetAttr(path string, in codec.InodeAttr, mask AttrMask) (codec.InodeAttr, error) {
	id, err := s.LookupPath(path)
	if err != nil {
		return codec.InodeAttr{}, err
	}
	part := s.partitionFor(id)
	if part == nil {
		return codec.InodeAttr{}, newErr(NotFound, "no partition owns inode %d", id)
	}

	cur, err := part.LookupInode(id)
	if err != nil {
		return codec.InodeAttr{}, err
	}
	if mask&SetMode != 0 {
		cur.Mode = in.Mode
	}
	if mask&SetUID != 0 {
		cur.UID = in.UID
	}
	if mask&SetGID != 0 {
		cur.GID = in.GID
	}
	if mask&SetSize != 0 {
		cur.Size = in.Size
	}
	if mask&SetMtime != 0 {
		cur.Mtime = in.Mtime
	}
	cur.Ctime = time.Now().UTC()

	if err := part.PutInodeAttr(cur); err != nil {
		return codec.InodeAttr{}, err
	}
	return cur, nil
}

// Mkdir is Create with the directory type bit forced into mode.
func (s *Service) Mkdir(path string, mode codec.FileMode, uid, gid uint32) (codec.InodeID, error) {
	return s.Create(path, (mode &^ codec.ModeTypeMask) | codec.ModeDir, uid, gid)
}

// Unlink decrements nlink; when it reaches zero the inode and its layout
// are deleted, orphaning the chunk data for the chunk store to reclaim
// later. Disallowed on directories.
func (s *Service) Unlink(path string) error {
	parentPath, name, err := splitParent(path)
	if err != nil {
		return err
	}
	parentID, err := s.LookupPath(parentPath)
	if err != nil {
		return err
	}
	parentPart := s.partitionFor(parentID)
	if parentPart == nil {
		return newErr(NotFound, "no partition owns inode %d", parentID)
	}
	d, err := parentPart.LookupDentry(parentID, name)
	if err != nil {
		return err
	}
	if d.Type == codec.DentryDirectory {
		return newErr(IsDirectory, "%s is a directory", path)
	}

	part := s.partitionFor(d.InodeID)
	if part == nil {
		return newErr(NotFound, "no partition owns inode %d", d.InodeID)
	}
	attr, err := part.LookupInode(d.InodeID)
	if err != nil {
		return err
	}

	if err := parentPart.DeleteDentry(parentID, name); err != nil {
		return err
	}

	if attr.Nlink <= 1 {
		if err := part.DeleteInode(d.InodeID); err != nil {
			return err
		}
		if err := part.store.Delete(codec.LayoutKey(d.InodeID)); err != nil {
			return newErr(IOError, "delete layout %d: %v", d.InodeID, err)
		}
		return nil
	}
	attr.Nlink--
	return part.PutInodeAttr(attr)
}

// Rmdir fails NotDirectory if target isn't a directory, NotEmpty if it
// still has dentries.
func (s *Service) Rmdir(path string) error {
	parentPath, name, err := splitParent(path)
	if err != nil {
		return err
	}
	parentID, err := s.LookupPath(parentPath)
	if err != nil {
		return err
	}
	parentPart := s.partitionFor(parentID)
	if parentPart == nil {
		return newErr(NotFound, "no partition owns inode %d", parentID)
	}
	d, err := parentPart.LookupDentry(parentID, name)
	if err != nil {
		return err
	}
	if d.Type != codec.DentryDirectory {
		return newErr(NotDirectory, "%s is not a directory", path)
	}

	part := s.partitionFor(d.InodeID)
	if part == nil {
		return newErr(NotFound, "no partition owns inode %d", d.InodeID)
	}
	children, err := part.ListDentries(d.InodeID)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return newErr(NotEmpty, "%s is not empty", path)
	}

	if err := parentPart.DeleteDentry(parentID, name); err != nil {
		return err
	}
	return part.DeleteInode(d.InodeID)
}

// Rename links the inode under the new name and then deletes the old
// dentry, as two separate steps (create new, delete old) whether or not the
// two parents share a partition; the pair is not committed as one atomic
// transaction. If the delete step fails, the inode stays reachable from
// both names and Rename returns a Cancelled error.
func (s *Service) Rename(oldPath, newPath string) error {
	oldParentPath, oldName, err := splitParent(oldPath)
	if err != nil {
		return err
	}
	newParentPath, newName, err := splitParent(newPath)
	if err != nil {
		return err
	}

	oldParentID, err := s.LookupPath(oldParentPath)
	if err != nil {
		return err
	}
	newParentID, err := s.LookupPath(newParentPath)
	if err != nil {
		return err
	}

	oldParentPart := s.partitionFor(oldParentID)
	if oldParentPart == nil {
		return newErr(NotFound, "no partition owns inode %d", oldParentID)
	}
	d, err := oldParentPart.LookupDentry(oldParentID, oldName)
	if err != nil {
		return err
	}

	newParentPart := s.partitionFor(newParentID)
	if newParentPart == nil {
		return newErr(NotFound, "no partition owns inode %d", newParentID)
	}
	if _, err := newParentPart.LookupDentry(newParentID, newName); err == nil {
		return newErr(Exist, "%s already exists", newPath)
	}

	if err := newParentPart.CreateDentry(newParentID, newName, d.InodeID, d.Type); err != nil {
		return err
	}
	if err := oldParentPart.DeleteDentry(oldParentID, oldName); err != nil {
		// The new dentry now exists alongside the old one. ScanOrphans does
		// not detect this state: it reports only inodes no dentry references.
		log.Errorf("rename: failed to delete source dentry after linking target", err)
		return newErr(Cancelled, "rename %s -> %s: target linked but source dentry not removed, retry", oldPath, newPath)
	}
	return nil
}

// Readdir lists the children of a directory.
func (s *Service) Readdir(path string) ([]codec.Dentry, error) {
	id, err := s.LookupPath(path)
	if err != nil {
		return nil, err
	}
	part := s.partitionFor(id)
	if part == nil {
		return nil, newErr(NotFound, "no partition owns inode %d", id)
	}
	attr, err := part.LookupInode(id)
	if err != nil {
		return nil, err
	}
	if !attr.Mode.IsDir() {
		return nil, newErr(NotDirectory, "%s is not a directory", path)
	}
	return part.ListDentries(id)
}

// GetLayout returns the persisted slice layout for inode, if any.
func (s *Service) GetLayout(inode codec.InodeID) (codec.FileLayout, error) {
	part := s.partitionFor(inode)
	if part == nil {
		return codec.FileLayout{}, newErr(NotFound, "no partition owns inode %d", inode)
	}
	raw, err := part.store.Get(codec.LayoutKey(inode))
	if err == kv.ErrNotFound {
		return codec.FileLayout{InodeID: inode, ChunkSize: codec.DefaultChunkSize}, nil
	}
	if err != nil {
		return codec.FileLayout{}, newErr(IOError, "get layout %d: %v", inode, err)
	}
	layout, decErr := codec.DecodeFileLayout(raw)
	if decErr != nil {
		return codec.FileLayout{}, newErr(IOError, "decode layout %d: %v", inode, decErr)
	}
	return layout, nil
}

// AddSlice persists an updated layout containing the new slice (the
// caller — namespace's write pipeline — is responsible for running the
// slice-tree cut beforehand and passing the full resulting slice list).
func (s *Service) AddSlice(inode codec.InodeID, layout codec.FileLayout) error {
	part := s.partitionFor(inode)
	if part == nil {
		return newErr(NotFound, "no partition owns inode %d", inode)
	}
	if err := part.store.Put(codec.LayoutKey(inode), codec.EncodeFileLayout(layout)); err != nil {
		return newErr(IOError, "put layout %d: %v", inode, err)
	}
	return nil
}

// ScanOrphans runs the bounded orphan diagnostic (see Partition.ScanOrphans)
// over every partition and returns the combined result.
func (s *Service) ScanOrphans() ([]codec.InodeID, error) {
	var all []codec.InodeID
	for _, p := range s.partitions {
		orphans, err := p.ScanOrphans()
		if err != nil {
			return nil, err
		}
		all = append(all, orphans...)
	}
	return all, nil
}

// UpdateSize sets InodeAttr.size to max(old_size, newSize); size never
// shrinks implicitly (spec §8 property 6).
func (s *Service) UpdateSize(inode codec.InodeID, newSize uint64) error {
	part := s.partitionFor(inode)
	if part == nil {
		return newErr(NotFound, "no partition owns inode %d", inode)
	}
	attr, err := part.LookupInode(inode)
	if err != nil {
		return err
	}
	if newSize > attr.Size {
		attr.Size = newSize
	}
	attr.Mtime = time.Now().UTC()
	return part.PutInodeAttr(attr)
}
