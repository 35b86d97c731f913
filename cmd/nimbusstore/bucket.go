package main

import (
	"fmt"
	"time"

	"github.com/nimbusstore/nimbusstore/pkg/codec"
	"github.com/spf13/cobra"
)

var bucketCmd = &cobra.Command{
	Use:   "bucket",
	Short: "Manage S3 buckets",
}

var bucketCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a bucket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		return eng.s3meta.PutBucket(codec.BucketMeta{
			Name:         args[0],
			Owner:        "nimbusstore",
			CreationTime: time.Now().UTC(),
		})
	},
}

var bucketListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List buckets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		buckets, err := eng.s3meta.ListBuckets()
		if err != nil {
			return err
		}
		for _, b := range buckets {
			fmt.Printf("%s\t%d objects\t%d bytes\n", b.Name, b.ObjectCount, b.TotalSize)
		}
		return nil
	},
}

var bucketRemoveCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Remove an empty bucket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		return eng.s3meta.DeleteBucket(args[0])
	},
}

var bucketHeadCmd = &cobra.Command{
	Use:   "head <name>",
	Short: "Report whether a bucket exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		exists, err := eng.s3meta.BucketExists(args[0])
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("bucket %q does not exist", args[0])
		}
		fmt.Printf("%s exists\n", args[0])
		return nil
	},
}

func init() {
	bucketCmd.AddCommand(bucketCreateCmd, bucketListCmd, bucketRemoveCmd, bucketHeadCmd)
}
