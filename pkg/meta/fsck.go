package meta

import (
	"encoding/binary"
	"fmt"

	"github.com/nimbusstore/nimbusstore/pkg/codec"
)

// Violation is one invariant breach fsck found. It never repairs anything
// (spec.md §3's invariants are re-validated, not re-established — repair is
// out of scope for this diagnostic).
type Violation struct {
	Kind   string
	Detail string
}

func (v Violation) String() string { return fmt.Sprintf("%s: %s", v.Kind, v.Detail) }

// Fsck re-validates spec.md §3's per-partition invariants over this
// partition's raw KV store: every dentry's target inode exists (dentry-inode
// consistency), a file's recorded Size covers every persisted slice
// (layout-size consistency), and every scanned key's embedded inode id
// falls inside this partition's own [Start, End) range (partition routing).
// Cross-partition rename compensation is handled separately by ScanOrphans.
func (p *Partition) Fsck() ([]Violation, error) {
	var violations []Violation

	inodeRows, err := p.store.Scan(codec.InodeScanPrefix(), 0)
	if err != nil {
		return nil, newErr(IOError, "fsck: scan inodes: %v", err)
	}
	dentryRows, err := p.store.Scan(codec.DentryScanPrefix(), 0)
	if err != nil {
		return nil, newErr(IOError, "fsck: scan dentries: %v", err)
	}
	layoutRows, err := p.store.Scan(codec.LayoutScanPrefix(), 0)
	if err != nil {
		return nil, newErr(IOError, "fsck: scan layouts: %v", err)
	}

	inodeAttrs := make(map[codec.InodeID]codec.InodeAttr, len(inodeRows))
	for _, r := range inodeRows {
		if len(r.Key) != 9 {
			violations = append(violations, Violation{"malformed-key", fmt.Sprintf("inode key has unexpected length %d", len(r.Key))})
			continue
		}
		id := codec.InodeID(binary.BigEndian.Uint64(r.Key[1:9]))
		if id < p.Start || id >= p.End {
			violations = append(violations, Violation{"partition-routing", fmt.Sprintf("inode %d stored in partition [%d,%d)", id, p.Start, p.End)})
		}
		attr, err := codec.DecodeInodeAttr(r.Value)
		if err != nil {
			violations = append(violations, Violation{"decode-error", fmt.Sprintf("inode %d: %v", id, err)})
			continue
		}
		inodeAttrs[id] = attr
	}

	for _, r := range dentryRows {
		parent, name, err := codec.ParseDentryKey(r.Key)
		if err != nil {
			violations = append(violations, Violation{"malformed-key", fmt.Sprintf("dentry key: %v", err)})
			continue
		}
		if parent < p.Start || parent >= p.End {
			violations = append(violations, Violation{"partition-routing", fmt.Sprintf("dentry parent %d stored in partition [%d,%d)", parent, p.Start, p.End)})
		}
		inode, _, err := codec.DecodeDentryValue(r.Value)
		if err != nil {
			violations = append(violations, Violation{"decode-error", fmt.Sprintf("dentry %d/%s: %v", parent, name, err)})
			continue
		}
		if inode >= p.Start && inode < p.End {
			if _, ok := inodeAttrs[inode]; !ok {
				violations = append(violations, Violation{"dentry-inode-consistency", fmt.Sprintf("dentry %d/%s references missing inode %d", parent, name, inode)})
			}
		}
	}

	for _, r := range layoutRows {
		if len(r.Key) != 9 {
			violations = append(violations, Violation{"malformed-key", fmt.Sprintf("layout key has unexpected length %d", len(r.Key))})
			continue
		}
		id := codec.InodeID(binary.BigEndian.Uint64(r.Key[1:9]))
		if id < p.Start || id >= p.End {
			violations = append(violations, Violation{"partition-routing", fmt.Sprintf("layout %d stored in partition [%d,%d)", id, p.Start, p.End)})
		}
		layout, err := codec.DecodeFileLayout(r.Value)
		if err != nil {
			violations = append(violations, Violation{"decode-error", fmt.Sprintf("layout %d: %v", id, err)})
			continue
		}
		var maxEnd uint64
		for _, sl := range layout.Slices {
			if end := sl.Offset + sl.Size; end > maxEnd {
				maxEnd = end
			}
		}
		if attr, ok := inodeAttrs[id]; ok && attr.Size < maxEnd {
			violations = append(violations, Violation{"layout-size-consistency", fmt.Sprintf("inode %d size %d is smaller than its layout's extent %d", id, attr.Size, maxEnd)})
		}
	}

	return violations, nil
}

// CheckPartitionDisjointness validates spec.md §3's key-space disjointness
// invariant across a service's configured partitions: no two ranges may
// overlap. Partitions must already be sorted by Start (meta.NewService's
// precondition).
func CheckPartitionDisjointness(partitions []*Partition) []Violation {
	var violations []Violation
	for i := 1; i < len(partitions); i++ {
		prev, cur := partitions[i-1], partitions[i]
		if cur.Start < prev.End {
			violations = append(violations, Violation{
				"key-space-disjointness",
				fmt.Sprintf("partition [%d,%d) overlaps preceding partition [%d,%d)", cur.Start, cur.End, prev.Start, prev.End),
			})
		}
	}
	return violations
}
