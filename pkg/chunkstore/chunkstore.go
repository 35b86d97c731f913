// Package chunkstore defines the contract the metadata engine consumes for
// the actual byte storage behind a SliceInfo.storage_key (spec §6). The
// contract is consumed, not implemented, by the core — this package also
// ships a minimal localfs reference implementation (SPEC_FULL.md §5) so the
// namespace read/write pipeline has something real to exercise in tests.
package chunkstore

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("chunkstore: key not found")
	ErrInvalidArgument = errors.New("chunkstore: invalid argument")
)

// Capacity reports coarse space accounting for a chunk store backend.
type Capacity struct {
	Total     uint64
	Used      uint64
	Available uint64
}

// Store is the chunk-store contract consumed by pkg/namespace. Every
// operation may suspend and may fail with ErrNotFound, an IO error, or
// ErrInvalidArgument (spec §6).
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	GetRange(ctx context.Context, key string, offset, size uint64) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	BatchGet(ctx context.Context, keys []string) ([][]byte, error)
	HealthCheck(ctx context.Context) error
	GetCapacity(ctx context.Context) (Capacity, error)
}
