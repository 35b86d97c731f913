// Package localfs is a minimal local-filesystem-backed chunkstore.Store
// implementation. It exists so pkg/namespace's read/write pipeline and the
// CLI's object put/get have something real to exercise end to end in
// tests; it is intentionally not a production chunk-store backend (no
// replication, no erasure coding, no compaction).
package localfs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/nimbusstore/nimbusstore/pkg/chunkstore"
)

// Store writes each chunk key to its own file under a root directory,
// mirroring the key's "/"-separated segments into subdirectories so keys
// like "chunks/42/1" land at root/chunks/42/1.
type Store struct {
	root string
}

// Open prepares root (creating it if necessary) as a localfs chunk store.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

func (s *Store) path(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") {
		return "", chunkstore.ErrInvalidArgument
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0644)
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, chunkstore.ErrNotFound
	}
	return data, err
}

// GetRange returns up to size bytes starting at offset. A request that
// runs past EOF returns the available bytes, not an error (spec §7).
func (s *Store) GetRange(ctx context.Context, key string, offset, size uint64) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, chunkstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if offset >= uint64(info.Size()) {
		return []byte{}, nil
	}
	remaining := uint64(info.Size()) - offset
	if size > remaining {
		size = remaining
	}
	buf := make([]byte, size)
	n, err := f.ReadAt(buf, int64(offset))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) BatchGet(ctx context.Context, keys []string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	for i, k := range keys {
		data, err := s.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		out[i] = data
	}
	return out, nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	_, err := os.Stat(s.root)
	return err
}

func (s *Store) GetCapacity(ctx context.Context) (chunkstore.Capacity, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(s.root, &stat); err != nil {
		return chunkstore.Capacity{}, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	available := stat.Bavail * uint64(stat.Bsize)
	return chunkstore.Capacity{
		Total:     total,
		Available: available,
		Used:      total - available,
	}, nil
}

var _ chunkstore.Store = (*Store)(nil)
