package namespace

import (
	"strings"

	"github.com/nimbusstore/nimbusstore/pkg/meta"
)

// ParsedPath is the normalized result of converting between the S3 and
// POSIX views of a single target (spec §4.6).
type ParsedPath struct {
	IsS3      bool
	Bucket    string
	Key       string
	PosixPath string
}

// PathConverter recognizes the three path shapes spec §4.6 names and
// normalizes them, falling back to a default bucket for plain POSIX paths.
type PathConverter struct {
	defaultBucket string
}

// NewPathConverter returns a converter whose default bucket is used when
// Parse sees a plain POSIX path rather than an "s3://" URI.
func NewPathConverter(defaultBucket string) *PathConverter {
	return &PathConverter{defaultBucket: defaultBucket}
}

const s3Scheme = "s3://"

// Parse recognizes "s3://bucket/key", "s3://bucket" (or with a trailing
// slash), and a plain POSIX path, normalizing all three (spec §4.6
// scenario S3).
func (c *PathConverter) Parse(input string) (ParsedPath, error) {
	if strings.HasPrefix(input, s3Scheme) {
		rest := input[len(s3Scheme):]
		if rest == "" {
			return ParsedPath{}, invalidArg("s3 uri missing bucket")
		}
		idx := strings.IndexByte(rest, '/')
		if idx < 0 {
			return ParsedPath{IsS3: true, Bucket: rest, Key: "", PosixPath: "/"}, nil
		}
		bucket := rest[:idx]
		key := rest[idx+1:]
		posix := "/" + key
		if key == "" {
			posix = "/"
		}
		return ParsedPath{IsS3: true, Bucket: bucket, Key: key, PosixPath: posix}, nil
	}

	if input == "" || input[0] != '/' {
		return ParsedPath{}, invalidArg("path %q must start with / or s3://", input)
	}
	key := strings.TrimPrefix(input, "/")
	return ParsedPath{IsS3: false, Bucket: c.defaultBucket, Key: key, PosixPath: input}, nil
}

// S3ToPosix is shorthand for Parse(uri).PosixPath.
func (c *PathConverter) S3ToPosix(uri string) (string, error) {
	p, err := c.Parse(uri)
	if err != nil {
		return "", err
	}
	return p.PosixPath, nil
}

// PosixToS3 renders a POSIX path as an "s3://bucket/key" URI under this
// converter's default bucket.
func (c *PathConverter) PosixToS3(posixPath string) (string, error) {
	p, err := c.Parse(posixPath)
	if err != nil {
		return "", err
	}
	return "s3://" + c.defaultBucket + p.PosixPath, nil
}

func invalidArg(format string, args ...any) error {
	return meta.NewInvalidArgument(format, args...)
}
