package main

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/nimbusstore/nimbusstore/pkg/codec"
	"github.com/nimbusstore/nimbusstore/pkg/meta"
	"github.com/spf13/cobra"
)

var objectCmd = &cobra.Command{
	Use:   "object",
	Short: "Manage S3 objects",
}

var objectPutCmd = &cobra.Command{
	Use:   "put <bucket> <key> <file>",
	Short: "Upload a file as an object",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		bucket, key, file := args[0], args[1], args[2]
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}

		eng, err := openEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		objPath, err := ensureObjectPath(eng, bucket, key)
		if err != nil {
			return err
		}
		ctx := context.Background()
		if err := eng.pipeline.Write(ctx, objPath, 0, data); err != nil {
			return err
		}
		// A full-object put replaces the whole value; Truncate drops any
		// stale slices beyond the new body's end and forces the reported
		// size down to match.
		if err := eng.pipeline.Truncate(ctx, objPath, uint64(len(data))); err != nil {
			return err
		}

		sum := md5.Sum(data)
		return eng.s3meta.PutObject(codec.ObjectMeta{
			Bucket:       bucket,
			Key:          key,
			Size:         uint64(len(data)),
			ETag:         hex.EncodeToString(sum[:]),
			LastModified: time.Now().UTC(),
			DataPath:     objPath,
		})
	},
}

var objectGetCmd = &cobra.Command{
	Use:   "get <bucket> <key>",
	Short: "Write an object's contents to stdout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		bucket, key := args[0], args[1]

		eng, err := openEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		o, err := eng.s3meta.GetObject(bucket, key)
		if err != nil {
			return err
		}
		parsed, err := eng.converter.Parse("s3://" + bucket + "/" + key)
		if err != nil {
			return err
		}
		data, err := eng.pipeline.Read(context.Background(), parsed.PosixPath, 0, o.Size)
		if err != nil {
			return err
		}
		_, err = io.Copy(os.Stdout, bytes.NewReader(data))
		return err
	},
}

var objectRemoveCmd = &cobra.Command{
	Use:   "rm <bucket> <key>",
	Short: "Remove an object",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()
		return eng.s3meta.DeleteObject(args[0], args[1])
	},
}

var objectHeadCmd = &cobra.Command{
	Use:   "head <bucket> <key>",
	Short: "Print an object's metadata",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()
		o, err := eng.s3meta.GetObject(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("size=%d etag=%s content_type=%s last_modified=%s\n",
			o.Size, o.ETag, o.ContentType, o.LastModified.Format(time.RFC3339))
		return nil
	},
}

var objectListCmd = &cobra.Command{
	Use:   "ls <bucket>",
	Short: "List objects in a bucket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix, _ := cmd.Flags().GetString("prefix")

		eng, err := openEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		objs, _, err := eng.s3meta.ListObjects(args[0], prefix, "", 0)
		if err != nil {
			return err
		}
		for _, o := range objs {
			fmt.Printf("%s\t%d\t%s\n", o.Key, o.Size, o.ETag)
		}
		return nil
	},
}

func init() {
	objectListCmd.Flags().String("prefix", "", "Only list keys with this prefix")
	objectCmd.AddCommand(objectPutCmd, objectGetCmd, objectRemoveCmd, objectHeadCmd, objectListCmd)
}

// ensureObjectPath mirrors pkg/s3http's helper of the same purpose: it
// creates the bucket directory and any intermediate directories key's
// slashes imply, then the file inode itself, so Write has somewhere to
// resolve (spec.md §4.6 requires an existing inode before a write).
func ensureObjectPath(eng *engine, bucket, key string) (string, error) {
	parsed, err := eng.converter.Parse("s3://" + bucket + "/" + key)
	if err != nil {
		return "", err
	}
	objPath := parsed.PosixPath

	bucketPath := "/" + bucket
	if _, err := eng.svc.LookupPath(bucketPath); meta.KindOf(err) == meta.NotFound {
		if _, err := eng.svc.Mkdir(bucketPath, codec.ModeDir|0755, 0, 0); err != nil && meta.KindOf(err) != meta.Exist {
			return "", err
		}
	}

	dir := ""
	parts := strings.Split(key, "/")
	for _, part := range parts[:len(parts)-1] {
		if part == "" {
			continue
		}
		dir = dir + "/" + part
		if _, err := eng.svc.LookupPath(dir); meta.KindOf(err) == meta.NotFound {
			if _, err := eng.svc.Mkdir(dir, codec.ModeDir|0755, 0, 0); err != nil && meta.KindOf(err) != meta.Exist {
				return "", err
			}
		}
	}

	if _, err := eng.svc.LookupPath(objPath); meta.KindOf(err) == meta.NotFound {
		if _, err := eng.svc.Create(objPath, codec.ModeRegular|0644, 0, 0); err != nil && meta.KindOf(err) != meta.Exist {
			return "", err
		}
	}
	return objPath, nil
}
