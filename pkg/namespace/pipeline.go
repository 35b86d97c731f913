package namespace

import (
	"context"
	"fmt"
	"sync"

	"github.com/nimbusstore/nimbusstore/pkg/chunkstore"
	"github.com/nimbusstore/nimbusstore/pkg/codec"
	"github.com/nimbusstore/nimbusstore/pkg/meta"
	"github.com/nimbusstore/nimbusstore/pkg/metrics"
	"github.com/nimbusstore/nimbusstore/pkg/slicetree"
)

// Pipeline fuses pkg/meta metadata operations with chunk-store I/O for
// whole-path reads and writes (spec §4.6).
type Pipeline struct {
	svc    *meta.Service
	chunks chunkstore.Store

	mu        sync.Mutex
	inodeLock map[codec.InodeID]*sync.Mutex
}

// NewPipeline wires a metadata service to a chunk store backend.
func NewPipeline(svc *meta.Service, chunks chunkstore.Store) *Pipeline {
	return &Pipeline{svc: svc, chunks: chunks, inodeLock: make(map[codec.InodeID]*sync.Mutex)}
}

// lockInode returns the mutex serializing the GetLayout->cut->AddSlice span
// of Write/Truncate for inode, creating it on first use. Two concurrent
// writers to the same inode must not both read the old layout and clobber
// each other's AddSlice (spec §5's disjoint-offset race-freedom guarantee
// requires each write to see the other's slices, not just avoid a data
// race on the Go runtime's terms).
func (p *Pipeline) lockInode(id codec.InodeID) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.inodeLock[id]
	if !ok {
		l = &sync.Mutex{}
		p.inodeLock[id] = l
	}
	return l
}

// Read resolves path, locates the slices covering [offset, offset+size),
// and concatenates their chunk-store bytes in file order. Holes read as
// zeros; a request running past EOF returns the available bytes and
// still reports success.
func (p *Pipeline) Read(ctx context.Context, path string, offset, size uint64) ([]byte, error) {
	inode, err := p.svc.LookupPath(path)
	if err != nil {
		return nil, err
	}
	layout, err := p.svc.GetLayout(inode)
	if err != nil {
		return nil, err
	}

	timer := metrics.NewTimer()
	end := offset + size
	attr, err := p.svc.GetAttr(path)
	if err != nil {
		return nil, err
	}
	if end > attr.Size {
		end = attr.Size
	}
	if end < offset {
		end = offset
	}
	out := make([]byte, 0, end-offset)
	cursor := offset

	tree := slicetree.FromSlices(layout.Slices)
	for _, sl := range tree.Range(offset, end) {
		sliceEnd := sl.Pos + sl.Len
		readStart := sl.Pos
		if readStart < cursor {
			readStart = cursor
		}
		readEnd := sliceEnd
		if readEnd > end {
			readEnd = end
		}
		if readStart > cursor {
			// A hole: read as zeros.
			out = append(out, make([]byte, readStart-cursor)...)
			cursor = readStart
		}

		inStorageOffset := sl.OffInStorage + (readStart - sl.Pos)
		want := readEnd - readStart
		storageKey := fmt.Sprintf("chunks/%d/%d", inode, sl.ID)
		data, err := p.chunks.GetRange(ctx, storageKey, inStorageOffset, want)
		if err != nil {
			return nil, meta.NewError(meta.IOError, "read slice %s: %v", storageKey, err)
		}
		out = append(out, data...)
		cursor = readStart + uint64(len(data))
		if uint64(len(data)) < want {
			// Chunk store returned short (short backing object past its
			// own EOF); stop here, matching spec §7's "not an error".
			break
		}
	}
	if cursor < end {
		out = append(out, make([]byte, end-cursor)...)
	}

	metrics.ReadBytesTotal.Add(float64(len(out)))
	timer.ObserveDuration(metrics.ReadDuration)
	return out, nil
}

// Write derives a globally unique storage key, writes the bytes to the
// chunk store, then runs the slice-tree cut against the persisted layout
// and records the result. Chunk-store failure aborts before touching
// metadata; a failure while persisting the new layout leaves an
// unreachable chunk the chunk store may (but need not) reclaim later.
func (p *Pipeline) Write(ctx context.Context, path string, offset uint64, data []byte) error {
	inode, err := p.svc.LookupPath(path)
	if err != nil {
		return err
	}

	lock := p.lockInode(inode)
	lock.Lock()
	defer lock.Unlock()

	layout, err := p.svc.GetLayout(inode)
	if err != nil {
		return err
	}

	id := nextSliceID(layout.Slices)
	keyPrefix := fmt.Sprintf("chunks/%d", inode)
	storageKey := fmt.Sprintf("%s/%d", keyPrefix, id)

	timer := metrics.NewTimer()
	if err := p.chunks.Put(ctx, storageKey, data); err != nil {
		return meta.NewError(meta.IOError, "write chunk %s: %v", storageKey, err)
	}

	tree := slicetree.FromSlices(layout.Slices)
	tree.Insert(offset, id, uint64(len(data)), 0, uint64(len(data)))
	layout.Slices = tree.Build(keyPrefix)

	if err := p.svc.AddSlice(inode, layout); err != nil {
		return err
	}
	newSize := offset + uint64(len(data))
	if err := p.svc.UpdateSize(inode, newSize); err != nil {
		return err
	}

	metrics.WriteBytesTotal.Add(float64(len(data)))
	timer.ObserveDuration(metrics.WriteDuration)
	return nil
}

// Truncate rebuilds path's layout to cover only [0, newSize) and forces
// InodeAttr.Size to match, for callers that replace a file's entire
// contents (e.g. a full-object S3 PUT) rather than writing at an offset.
// Insert's cut cases only ever reconcile the tree against one new write
// range; none of them drops slices beyond a shorter replacement's end, so a
// plain Write followed only by a size change would leave the old layout's
// tail slices orphaned past the new size, violating the layout-size
// invariant (spec.md §3; checked by pkg/meta.Partition.Fsck).
func (p *Pipeline) Truncate(ctx context.Context, path string, newSize uint64) error {
	inode, err := p.svc.LookupPath(path)
	if err != nil {
		return err
	}

	lock := p.lockInode(inode)
	lock.Lock()
	defer lock.Unlock()

	layout, err := p.svc.GetLayout(inode)
	if err != nil {
		return err
	}
	keyPrefix := fmt.Sprintf("chunks/%d", inode)
	tree := slicetree.FromSlices(layout.Slices)
	tree.Truncate(newSize)
	layout.Slices = tree.Build(keyPrefix)
	if err := p.svc.AddSlice(inode, layout); err != nil {
		return err
	}

	if _, err := p.svc.SetAttr(path, codec.InodeAttr{Size: newSize}, meta.SetSize); err != nil {
		return err
	}
	return nil
}

// nextSliceID picks a slice id that no existing slice uses, so a cut that
// preserves an old node's id (see pkg/slicetree's split cases) can never
// collide with the new write's id.
func nextSliceID(slices []codec.SliceInfo) uint64 {
	var max uint64
	for _, s := range slices {
		if s.SliceID > max {
			max = s.SliceID
		}
	}
	return max + 1
}
