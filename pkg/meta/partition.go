package meta

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/nimbusstore/nimbusstore/pkg/codec"
	"github.com/nimbusstore/nimbusstore/pkg/kv"
	"github.com/nimbusstore/nimbusstore/pkg/log"
	"github.com/nimbusstore/nimbusstore/pkg/metrics"
)

// defaultSplitThreshold is the advisory live-object count above which
// ShouldSplit reports true (spec §4.4: "conceptually ~10⁹").
const defaultSplitThreshold = 1_000_000_000

// Partition owns a disjoint inode-id range [Start, End), a KV sub-store,
// and a read-through hot index cache shared by concurrent readers and a
// small number of writers.
type Partition struct {
	Start, End codec.InodeID

	store          kv.Store
	splitThreshold uint64

	mu        sync.RWMutex
	inodes    map[codec.InodeID]codec.InodeAttr
	dentries  map[dentryKey]codec.Dentry
	liveCount uint64
}

type dentryKey struct {
	parent codec.InodeID
	name   string
}

// NewPartition wraps store with the hot-index cache for the inode range
// [start, end).
func NewPartition(start, end codec.InodeID, store kv.Store) *Partition {
	return &Partition{
		Start:          start,
		End:            end,
		store:          store,
		splitThreshold: defaultSplitThreshold,
		inodes:         make(map[codec.InodeID]codec.InodeAttr),
		dentries:       make(map[dentryKey]codec.Dentry),
	}
}

// Owns reports whether id falls in this partition's range.
func (p *Partition) Owns(id codec.InodeID) bool {
	return id >= p.Start && id < p.End
}

// LookupInode is cache-first; on miss it consults the KV store and
// populates the cache on success.
func (p *Partition) LookupInode(id codec.InodeID) (codec.InodeAttr, error) {
	p.mu.RLock()
	if a, ok := p.inodes[id]; ok {
		p.mu.RUnlock()
		return a, nil
	}
	p.mu.RUnlock()

	raw, err := p.store.Get(codec.InodeKey(id))
	if err == kv.ErrNotFound {
		return codec.InodeAttr{}, newErr(NotFound, "inode %d not found", id)
	}
	if err != nil {
		return codec.InodeAttr{}, newErr(IOError, "get inode %d: %v", id, err)
	}
	attr, err := codec.DecodeInodeAttr(raw)
	if err != nil {
		return codec.InodeAttr{}, newErr(IOError, "decode inode %d: %v", id, err)
	}

	p.mu.Lock()
	p.inodes[id] = attr
	p.mu.Unlock()
	return attr, nil
}

// LookupDentry is cache-first; on miss it consults the KV store.
func (p *Partition) LookupDentry(parent codec.InodeID, name string) (codec.Dentry, error) {
	dk := dentryKey{parent, name}
	p.mu.RLock()
	if d, ok := p.dentries[dk]; ok {
		p.mu.RUnlock()
		return d, nil
	}
	p.mu.RUnlock()

	raw, err := p.store.Get(codec.DentryKey(parent, name))
	if err == kv.ErrNotFound {
		return codec.Dentry{}, newErr(NotFound, "dentry %d/%s not found", parent, name)
	}
	if err != nil {
		return codec.Dentry{}, newErr(IOError, "get dentry %d/%s: %v", parent, name, err)
	}
	inode, typ, err := codec.DecodeDentryValue(raw)
	if err != nil {
		return codec.Dentry{}, newErr(IOError, "decode dentry %d/%s: %v", parent, name, err)
	}
	d := codec.Dentry{Name: name, InodeID: inode, Type: typ}

	p.mu.Lock()
	p.dentries[dk] = d
	p.mu.Unlock()
	return d, nil
}

// CreateInode fails Exist if id is already present, InvalidArgument if id
// is out of range. On success, populates the cache with a fresh attribute
// record.
func (p *Partition) CreateInode(id codec.InodeID, mode codec.FileMode, uid, gid uint32) error {
	if !p.Owns(id) {
		return newErr(InvalidArgument, "inode %d outside partition range [%d,%d)", id, p.Start, p.End)
	}

	key := codec.InodeKey(id)
	now := time.Now().UTC()
	attr := codec.InodeAttr{
		InodeID: id,
		Mode:    mode,
		UID:     uid,
		GID:     gid,
		Size:    0,
		Mtime:   now,
		Ctime:   now,
		Nlink:   1,
	}

	txn, err := p.store.BeginTxn()
	if err != nil {
		return newErr(IOError, "begin txn for inode %d: %v", id, err)
	}
	defer txn.Rollback()

	exists, err := txn.Exists(key)
	if err != nil {
		return newErr(IOError, "check inode %d: %v", id, err)
	}
	if exists {
		return newErr(Exist, "inode %d already exists", id)
	}
	if err := txn.Put(key, codec.EncodeInodeAttr(attr)); err != nil {
		return newErr(IOError, "put inode %d: %v", id, err)
	}
	if err := txn.Commit(); err != nil {
		return newErr(IOError, "commit inode %d: %v", id, err)
	}

	p.mu.Lock()
	p.inodes[id] = attr
	p.liveCount++
	p.mu.Unlock()

	metrics.InodesAllocatedTotal.Inc()
	log.WithInode(id).Debug().Msg("inode created")
	return nil
}

// CreateDentry fails NotFound if the parent inode is missing, NotDirectory
// if the parent is not a directory, Exist if (parent,name) already exists.
func (p *Partition) CreateDentry(parent codec.InodeID, name string, inode codec.InodeID, typ codec.DentryType) error {
	parentAttr, err := p.LookupInode(parent)
	if err != nil {
		return newErr(NotFound, "parent inode %d not found", parent)
	}
	if !parentAttr.Mode.IsDir() {
		return newErr(NotDirectory, "parent inode %d is not a directory", parent)
	}

	key := codec.DentryKey(parent, name)

	txn, err := p.store.BeginTxn()
	if err != nil {
		return newErr(IOError, "begin txn for dentry %d/%s: %v", parent, name, err)
	}
	defer txn.Rollback()

	exists, err := txn.Exists(key)
	if err != nil {
		return newErr(IOError, "check dentry %d/%s: %v", parent, name, err)
	}
	if exists {
		return newErr(Exist, "dentry %d/%s already exists", parent, name)
	}
	if err := txn.Put(key, codec.EncodeDentryValue(inode, typ)); err != nil {
		return newErr(IOError, "put dentry %d/%s: %v", parent, name, err)
	}
	if err := txn.Commit(); err != nil {
		return newErr(IOError, "commit dentry %d/%s: %v", parent, name, err)
	}

	p.mu.Lock()
	p.dentries[dentryKey{parent, name}] = codec.Dentry{Name: name, InodeID: inode, Type: typ}
	p.liveCount++
	p.mu.Unlock()
	return nil
}

// DeleteInode removes the inode record and evicts it from the cache.
func (p *Partition) DeleteInode(id codec.InodeID) error {
	if err := p.store.Delete(codec.InodeKey(id)); err != nil {
		return newErr(IOError, "delete inode %d: %v", id, err)
	}
	p.mu.Lock()
	delete(p.inodes, id)
	if p.liveCount > 0 {
		p.liveCount--
	}
	p.mu.Unlock()
	return nil
}

// DeleteDentry removes the dentry record and evicts it from the cache.
func (p *Partition) DeleteDentry(parent codec.InodeID, name string) error {
	if err := p.store.Delete(codec.DentryKey(parent, name)); err != nil {
		return newErr(IOError, "delete dentry %d/%s: %v", parent, name, err)
	}
	p.mu.Lock()
	delete(p.dentries, dentryKey{parent, name})
	if p.liveCount > 0 {
		p.liveCount--
	}
	p.mu.Unlock()
	return nil
}

// PutInodeAttr persists an updated attribute record (used by SetAttr,
// UpdateSize, nlink changes) and refreshes the cache.
func (p *Partition) PutInodeAttr(attr codec.InodeAttr) error {
	if err := p.store.Put(codec.InodeKey(attr.InodeID), codec.EncodeInodeAttr(attr)); err != nil {
		return newErr(IOError, "put inode %d: %v", attr.InodeID, err)
	}
	p.mu.Lock()
	p.inodes[attr.InodeID] = attr
	p.mu.Unlock()
	return nil
}

// ListDentries returns all dentries under parent via a prefix scan.
func (p *Partition) ListDentries(parent codec.InodeID) ([]codec.Dentry, error) {
	rows, err := p.store.Scan(codec.DentryPrefix(parent), 0)
	if err != nil {
		return nil, newErr(IOError, "scan dentries of %d: %v", parent, err)
	}
	out := make([]codec.Dentry, 0, len(rows))
	for _, r := range rows {
		_, name, err := codec.ParseDentryKey(r.Key)
		if err != nil {
			return nil, newErr(IOError, "malformed dentry key under %d: %v", parent, err)
		}
		inode, typ, err := codec.DecodeDentryValue(r.Value)
		if err != nil {
			return nil, newErr(IOError, "decode dentry %d/%s: %v", parent, name, err)
		}
		out = append(out, codec.Dentry{Name: name, InodeID: inode, Type: typ})
	}
	return out, nil
}

// ShouldSplit reports whether the partition's live object count exceeds
// the advisory split threshold. Split itself is out of scope for this
// single-partition deployment (spec §4.4); callers should treat a true
// result as a signal to page an operator, not as a trigger for an
// automatic rebalance.
func (p *Partition) ShouldSplit() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.liveCount > p.splitThreshold
}

// ScanOrphans is a bounded diagnostic walk (not a background reclaim loop,
// spec §4.5/§7/§9): it scans every inode this partition owns and every
// dentry it holds, and reports inodes (other than the root) that no dentry
// in this partition references. An inode left behind when Create's
// compensating delete fails has exactly this signature; a Rename stopped
// between its two steps leaves the inode linked twice and is not reported.
// It never deletes anything.
func (p *Partition) ScanOrphans() ([]codec.InodeID, error) {
	inodeRows, err := p.store.Scan(codec.InodeScanPrefix(), 0)
	if err != nil {
		return nil, newErr(IOError, "scan inodes: %v", err)
	}
	dentryRows, err := p.store.Scan(codec.DentryScanPrefix(), 0)
	if err != nil {
		return nil, newErr(IOError, "scan dentries: %v", err)
	}

	referenced := make(map[codec.InodeID]bool, len(dentryRows))
	for _, r := range dentryRows {
		inode, _, err := codec.DecodeDentryValue(r.Value)
		if err != nil {
			return nil, newErr(IOError, "decode dentry value: %v", err)
		}
		referenced[inode] = true
	}

	var orphans []codec.InodeID
	for _, r := range inodeRows {
		if len(r.Key) != 9 {
			continue
		}
		id := codec.InodeID(binary.BigEndian.Uint64(r.Key[1:9]))
		if id == codec.RootInode {
			continue
		}
		if !referenced[id] {
			orphans = append(orphans, id)
		}
	}
	return orphans, nil
}
