package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/nimbusstore/nimbusstore/pkg/chunkstore"
	"github.com/nimbusstore/nimbusstore/pkg/chunkstore/localfs"
	"github.com/nimbusstore/nimbusstore/pkg/codec"
	"github.com/nimbusstore/nimbusstore/pkg/config"
	"github.com/nimbusstore/nimbusstore/pkg/kv"
	"github.com/nimbusstore/nimbusstore/pkg/meta"
	"github.com/nimbusstore/nimbusstore/pkg/namespace"
	"github.com/nimbusstore/nimbusstore/pkg/s3meta"
)

// engine bundles every opened store behind one config, so each CLI
// subcommand opens exactly what it needs and closes it on exit. Mirrors
// cmd/warren/main.go's per-command manager.NewManager/worker.NewWorker
// construction, generalized from one cluster member to one metadata engine
// instance.
type engine struct {
	stores    []*kv.BoltStore
	s3store   *kv.BoltStore
	svc       *meta.Service
	s3meta    *s3meta.Store
	chunks    chunkstore.Store
	pipeline  *namespace.Pipeline
	converter *namespace.PathConverter
}

func openEngine(cfg config.Config) (*engine, error) {
	ranges := append([]config.PartitionRange(nil), cfg.Partitions...)
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })

	var partitions []*meta.Partition
	var stores []*kv.BoltStore
	for _, pr := range ranges {
		dir := filepath.Join(cfg.DataDir, "partitions", fmt.Sprintf("%d-%d", pr.Start, pr.End))
		store, err := kv.Open(dir)
		if err != nil {
			return nil, fmt.Errorf("open partition [%d,%d): %w", pr.Start, pr.End, err)
		}
		stores = append(stores, store)

		part := meta.NewPartition(pr.Start, pr.End, store)
		if pr.Start <= codec.RootInode && codec.RootInode < pr.End {
			if err := part.CreateInode(codec.RootInode, codec.ModeDir|0755, 0, 0); err != nil && meta.KindOf(err) != meta.Exist {
				return nil, fmt.Errorf("create root inode: %w", err)
			}
		}
		partitions = append(partitions, part)
	}

	s3store, err := kv.Open(filepath.Join(cfg.DataDir, "s3meta"))
	if err != nil {
		return nil, fmt.Errorf("open s3 metadata store: %w", err)
	}

	var chunks chunkstore.Store
	switch cfg.ChunkStoreBackend {
	case "", "localfs":
		lf, err := localfs.Open(cfg.ChunkStoreDir)
		if err != nil {
			return nil, fmt.Errorf("open chunk store: %w", err)
		}
		chunks = lf
	default:
		return nil, fmt.Errorf("unknown chunk store backend %q", cfg.ChunkStoreBackend)
	}

	svc := meta.NewService(partitions)
	return &engine{
		stores:    stores,
		s3store:   s3store,
		svc:       svc,
		s3meta:    s3meta.New(s3store),
		chunks:    chunks,
		pipeline:  namespace.NewPipeline(svc, chunks),
		converter: namespace.NewPathConverter(cfg.DefaultBucket),
	}, nil
}

func (e *engine) Close() error {
	var firstErr error
	for _, s := range e.stores {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := e.s3store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
