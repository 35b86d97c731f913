package slicetree

import (
	"fmt"
	"sort"

	"github.com/nimbusstore/nimbusstore/pkg/codec"
)

// Node is one live slice: a contiguous run of file bytes [Pos, Pos+Len)
// backed by storage object ID at offset OffInStorage.
type Node struct {
	Pos          uint64
	ID           uint64
	StorageSize  uint64
	OffInStorage uint64
	Len          uint64
}

func (n Node) end() uint64 { return n.Pos + n.Len }

// Tree holds the live, non-overlapping slice set for a single file, kept
// sorted by Pos. The zero value is ready to use.
type Tree struct {
	nodes []Node
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{}
}

// FromSlices rehydrates a tree from a previously persisted, already
// non-overlapping SliceInfo list (e.g. a FileLayout loaded from the KV
// store). The slices are assumed disjoint already, so they are loaded
// directly without running the cut algorithm against each other.
func FromSlices(slices []codec.SliceInfo) *Tree {
	t := &Tree{nodes: make([]Node, len(slices))}
	for i, s := range slices {
		t.nodes[i] = Node{
			Pos:          s.Offset,
			ID:           s.SliceID,
			OffInStorage: s.StorageOffset,
			Len:          s.Size,
		}
	}
	sort.Slice(t.nodes, func(i, j int) bool { return t.nodes[i].Pos < t.nodes[j].Pos })
	return t
}

// Insert adds a write covering [pos, pos+length), cutting any existing
// slices it overlaps per the five cases in spec §4.3.
func (t *Tree) Insert(pos, id, storageSize, offInStorage, length uint64) {
	if length == 0 {
		return
	}
	newEnd := pos + length

	kept := t.nodes[:0:0]
	for _, n := range t.nodes {
		switch {
		case n.end() <= pos || n.Pos >= newEnd:
			// Case 1: disjoint, unchanged.
			kept = append(kept, n)

		case pos <= n.Pos && n.end() <= newEnd:
			// Case 2: fully covered by the new write, delete.

		case n.Pos < pos && newEnd < n.end():
			// Case 3: new write strictly inside the old; split into a left
			// and a right remnant.
			left := n
			left.Len = pos - n.Pos
			right := n
			right.Pos = newEnd
			right.OffInStorage = n.OffInStorage + (newEnd - n.Pos)
			right.Len = n.end() - newEnd
			kept = append(kept, left, right)

		case n.Pos < pos && pos <= n.end() && n.end() <= newEnd:
			// Case 4: old clipped on its right.
			n.Len = pos - n.Pos
			kept = append(kept, n)

		case pos <= n.Pos && n.Pos < newEnd && newEnd < n.end():
			// Case 5: old clipped on its left.
			shift := newEnd - n.Pos
			n.Pos = newEnd
			n.OffInStorage += shift
			n.Len -= shift
			kept = append(kept, n)

		default:
			// Unreachable: the five cases above are exhaustive over every
			// possible relationship between two half-open ranges.
			kept = append(kept, n)
		}
	}

	kept = append(kept, Node{Pos: pos, ID: id, StorageSize: storageSize, OffInStorage: offInStorage, Len: length})
	sort.Slice(kept, func(i, j int) bool { return kept[i].Pos < kept[j].Pos })
	t.nodes = kept
}

// Truncate drops every node past size and clips any node straddling it, so
// a subsequent Build never reports a slice extending past the new length.
// Insert's five cut cases only ever reconcile the tree against a single new
// write range; none of them shrinks the tree to a new end-of-file, which a
// full-object replacement with a shorter body requires.
func (t *Tree) Truncate(size uint64) {
	kept := t.nodes[:0:0]
	for _, n := range t.nodes {
		switch {
		case n.end() <= size:
			kept = append(kept, n)
		case n.Pos < size:
			n.Len = size - n.Pos
			kept = append(kept, n)
		}
	}
	t.nodes = kept
}

// Find returns the slice covering pos, if any.
func (t *Tree) Find(pos uint64) (Node, bool) {
	i := sort.Search(len(t.nodes), func(i int) bool { return t.nodes[i].end() > pos })
	if i < len(t.nodes) && t.nodes[i].Pos <= pos {
		return t.nodes[i], true
	}
	return Node{}, false
}

// Range returns the slices intersecting [start, end) in file order.
func (t *Tree) Range(start, end uint64) []Node {
	if end <= start {
		return nil
	}
	lo := sort.Search(len(t.nodes), func(i int) bool { return t.nodes[i].end() > start })
	var out []Node
	for i := lo; i < len(t.nodes) && t.nodes[i].Pos < end; i++ {
		out = append(out, t.nodes[i])
	}
	return out
}

// Len reports the number of live slices.
func (t *Tree) Len() int { return len(t.nodes) }

// Build performs an in-order traversal and emits the canonical SliceInfo
// list for persistence, with storage_key = keyPrefix + "/" + id.
func (t *Tree) Build(keyPrefix string) []codec.SliceInfo {
	out := make([]codec.SliceInfo, len(t.nodes))
	for i, n := range t.nodes {
		out[i] = codec.SliceInfo{
			SliceID:       n.ID,
			Offset:        n.Pos,
			Size:          n.Len,
			StorageKey:    fmt.Sprintf("%s/%d", keyPrefix, n.ID),
			StorageOffset: n.OffInStorage,
		}
	}
	return out
}
