// Package slicetree reconciles overlapping write slices for one file into
// the canonical, non-overlapping, offset-ordered list that gets persisted
// as a FileLayout (pkg/codec). Every insert first "cuts" whatever existing
// slices the new write overlaps, per the five cases in spec §4.3, then adds
// the new slice.
//
// The underlying structure is a slice kept sorted by file offset, searched
// with sort.Search, rather than a balanced tree. Insert rebuilds and
// re-sorts the slice (O(n log n)); Find and the start of Range are
// O(log n) binary searches. Nothing in this package merges or compacts
// slices, so the node count grows with the number of non-overwritten writes.
package slicetree
