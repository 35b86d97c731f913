package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	prefixDentry byte = 'D'
	prefixInode  byte = 'I'
	prefixLayout byte = 'L'
	prefixSlice  byte = 'S'
)

const (
	s3PrefixBucket     = "B:"
	s3PrefixBucketList = "BL:"
	s3PrefixObject     = "O:"
	s3PrefixObjectList = "OL:"
)

// putU64 appends the big-endian encoding of v to dst.
func putU64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// InodeScanPrefix returns the scan prefix matching every inode record.
func InodeScanPrefix() []byte { return []byte{prefixInode} }

// DentryScanPrefix returns the scan prefix matching every dentry record,
// regardless of parent.
func DentryScanPrefix() []byte { return []byte{prefixDentry} }

// LayoutScanPrefix returns the scan prefix matching every file layout record.
func LayoutScanPrefix() []byte { return []byte{prefixLayout} }

// InodeKey builds the 'I' || inodeID key.
func InodeKey(id InodeID) []byte {
	k := make([]byte, 0, 9)
	k = append(k, prefixInode)
	return putU64(k, id)
}

// LayoutKey builds the 'L' || inodeID key.
func LayoutKey(id InodeID) []byte {
	k := make([]byte, 0, 9)
	k = append(k, prefixLayout)
	return putU64(k, id)
}

// SliceKey builds the optional 'S' || inodeID || sliceID per-slice key.
func SliceKey(inode InodeID, sliceID uint64) []byte {
	k := make([]byte, 0, 17)
	k = append(k, prefixSlice)
	k = putU64(k, inode)
	return putU64(k, sliceID)
}

// DentryKey builds 'D' || parentInode(8) || '/' || name.
func DentryKey(parent InodeID, name string) []byte {
	k := make([]byte, 0, 1+8+1+len(name))
	k = append(k, prefixDentry)
	k = putU64(k, parent)
	k = append(k, '/')
	return append(k, name...)
}

// DentryPrefix builds the scan prefix for all dentries under parent.
func DentryPrefix(parent InodeID) []byte {
	k := make([]byte, 0, 10)
	k = append(k, prefixDentry)
	k = putU64(k, parent)
	return append(k, '/')
}

// ParseDentryKey extracts the parent inode and name from a full dentry key.
func ParseDentryKey(key []byte) (parent InodeID, name string, err error) {
	if len(key) < 10 || key[0] != prefixDentry || key[9] != '/' {
		return 0, "", fmt.Errorf("codec: malformed dentry key (len=%d)", len(key))
	}
	parent = binary.BigEndian.Uint64(key[1:9])
	name = string(key[10:])
	return parent, name, nil
}

// BucketKey builds "B:" || name.
func BucketKey(name string) []byte {
	return append([]byte(s3PrefixBucket), name...)
}

// BucketListKey builds "BL:" || name, the ordered-listing index entry
// mirroring BucketKey's record.
func BucketListKey(name string) []byte {
	return append([]byte(s3PrefixBucketList), name...)
}

// BucketListPrefix builds the scan prefix for all buckets.
func BucketListPrefix() []byte {
	return []byte(s3PrefixBucketList)
}

// ParseBucketListKey extracts the bucket name from a "BL:" key.
func ParseBucketListKey(raw []byte) (name string, err error) {
	if !bytes.HasPrefix(raw, []byte(s3PrefixBucketList)) {
		return "", fmt.Errorf("codec: not a bucket-list key")
	}
	return string(raw[len(s3PrefixBucketList):]), nil
}

// ObjectKey builds "O:" || bucket || '/' || key.
func ObjectKey(bucket, key string) []byte {
	b := make([]byte, 0, len(s3PrefixObject)+len(bucket)+1+len(key))
	b = append(b, s3PrefixObject...)
	b = append(b, bucket...)
	b = append(b, '/')
	return append(b, key...)
}

// ObjectPrefix builds the scan prefix for all objects in bucket, optionally
// narrowed further by keyPrefix.
func ObjectPrefix(bucket, keyPrefix string) []byte {
	b := make([]byte, 0, len(s3PrefixObject)+len(bucket)+1+len(keyPrefix))
	b = append(b, s3PrefixObject...)
	b = append(b, bucket...)
	b = append(b, '/')
	return append(b, keyPrefix...)
}

// ObjectListKey builds "OL:" || bucket || '/' || key, the ordered-listing
// index entry mirroring ObjectKey's record.
func ObjectListKey(bucket, key string) []byte {
	b := make([]byte, 0, len(s3PrefixObjectList)+len(bucket)+1+len(key))
	b = append(b, s3PrefixObjectList...)
	b = append(b, bucket...)
	b = append(b, '/')
	return append(b, key...)
}

// ObjectListPrefix builds the scan prefix for all listing-index entries in
// bucket, optionally narrowed further by keyPrefix.
func ObjectListPrefix(bucket, keyPrefix string) []byte {
	b := make([]byte, 0, len(s3PrefixObjectList)+len(bucket)+1+len(keyPrefix))
	b = append(b, s3PrefixObjectList...)
	b = append(b, bucket...)
	b = append(b, '/')
	return append(b, keyPrefix...)
}

// ParseObjectListKey extracts bucket and key from a full "OL:" key.
func ParseObjectListKey(raw []byte) (bucket, key string, err error) {
	if !bytes.HasPrefix(raw, []byte(s3PrefixObjectList)) {
		return "", "", fmt.Errorf("codec: not an object-list key")
	}
	rest := raw[len(s3PrefixObjectList):]
	idx := bytes.IndexByte(rest, '/')
	if idx < 0 {
		return "", "", fmt.Errorf("codec: malformed object-list key")
	}
	return string(rest[:idx]), string(rest[idx+1:]), nil
}

// ParseObjectKey extracts bucket and key from a full object key.
func ParseObjectKey(raw []byte) (bucket, key string, err error) {
	if !bytes.HasPrefix(raw, []byte(s3PrefixObject)) {
		return "", "", fmt.Errorf("codec: not an object key")
	}
	rest := raw[len(s3PrefixObject):]
	idx := bytes.IndexByte(rest, '/')
	if idx < 0 {
		return "", "", fmt.Errorf("codec: malformed object key")
	}
	return string(rest[:idx]), string(rest[idx+1:]), nil
}
