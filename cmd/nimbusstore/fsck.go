package main

import (
	"fmt"
	"os"

	"github.com/nimbusstore/nimbusstore/pkg/meta"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var fsckCmd = &cobra.Command{
	Use:   "fsck",
	Short: "Re-validate metadata invariants read-only (does not repair)",
	Args:  cobra.NoArgs,
	RunE:  runFsck,
}

func runFsck(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(cfg)
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	defer eng.Close()

	// Each partition's Fsck is an independent read-only scan over its own KV
	// store, so scanning partitions concurrently is safe; errgroup waits for
	// every scan to finish and returns the first error.
	partitions := eng.svc.Partitions()
	results := make([][]meta.Violation, len(partitions))
	var g errgroup.Group
	for i, p := range partitions {
		i, p := i, p
		g.Go(func() error {
			v, err := p.Fsck()
			if err != nil {
				return fmt.Errorf("fsck partition [%d,%d): %w", p.Start, p.End, err)
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var all []meta.Violation
	for _, v := range results {
		all = append(all, v...)
	}
	all = append(all, meta.CheckPartitionDisjointness(partitions)...)

	if len(all) == 0 {
		fmt.Println("fsck: no violations found")
		return nil
	}
	for _, v := range all {
		fmt.Fprintln(os.Stderr, v.String())
	}
	return fmt.Errorf("fsck: %d violation(s) found", len(all))
}
