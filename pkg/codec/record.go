package codec

import (
	"encoding/binary"
	"fmt"
	"time"
)

// putString appends a u32 length prefix followed by the string's bytes.
func putString(dst []byte, s string) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
	dst = append(dst, lenBuf[:]...)
	return append(dst, s...)
}

// takeString reads a u32-length-prefixed string starting at buf[0:], and
// returns the remaining, unconsumed buffer.
func takeString(buf []byte) (s string, rest []byte, err error) {
	if len(buf) < 4 {
		return "", nil, fmt.Errorf("codec: truncated string length")
	}
	n := binary.BigEndian.Uint32(buf[:4])
	buf = buf[4:]
	if uint32(len(buf)) < n {
		return "", nil, fmt.Errorf("codec: truncated string body (want %d, have %d)", n, len(buf))
	}
	return string(buf[:n]), buf[n:], nil
}

func putTime(dst []byte, t time.Time) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(t.UnixNano()))
	return append(dst, b[:]...)
}

func takeTime(buf []byte) (time.Time, []byte, error) {
	if len(buf) < 8 {
		return time.Time{}, nil, fmt.Errorf("codec: truncated timestamp")
	}
	nanos := int64(binary.BigEndian.Uint64(buf[:8]))
	return time.Unix(0, nanos).UTC(), buf[8:], nil
}

func putU32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

func takeU32(buf []byte) (uint32, []byte, error) {
	if len(buf) < 4 {
		return 0, nil, fmt.Errorf("codec: truncated u32")
	}
	return binary.BigEndian.Uint32(buf[:4]), buf[4:], nil
}

func takeU64(buf []byte) (uint64, []byte, error) {
	if len(buf) < 8 {
		return 0, nil, fmt.Errorf("codec: truncated u64")
	}
	return binary.BigEndian.Uint64(buf[:8]), buf[8:], nil
}

// --- InodeAttr ---

// minInodeAttrLen is inodeID(8) + mode(4) + uid(4) + gid(4) + size(8) +
// mtime(8) + ctime(8) + nlink(4).
const minInodeAttrLen = 8 + 4 + 4 + 4 + 8 + 8 + 8 + 4

func EncodeInodeAttr(a InodeAttr) []byte {
	buf := make([]byte, 0, minInodeAttrLen)
	buf = putU64(buf, a.InodeID)
	buf = putU32(buf, uint32(a.Mode))
	buf = putU32(buf, a.UID)
	buf = putU32(buf, a.GID)
	buf = putU64(buf, a.Size)
	buf = putTime(buf, a.Mtime)
	buf = putTime(buf, a.Ctime)
	buf = putU32(buf, a.Nlink)
	return buf
}

func DecodeInodeAttr(buf []byte) (InodeAttr, error) {
	if len(buf) < minInodeAttrLen {
		return InodeAttr{}, fmt.Errorf("codec: inode attr too short (%d < %d)", len(buf), minInodeAttrLen)
	}
	var a InodeAttr
	var err error
	var mode, uid, gid, nlink uint32

	id, buf, err := takeU64(buf)
	if err != nil {
		return InodeAttr{}, err
	}
	a.InodeID = id

	mode, buf, err = takeU32(buf)
	if err != nil {
		return InodeAttr{}, err
	}
	a.Mode = FileMode(mode)

	uid, buf, err = takeU32(buf)
	if err != nil {
		return InodeAttr{}, err
	}
	a.UID = uid

	gid, buf, err = takeU32(buf)
	if err != nil {
		return InodeAttr{}, err
	}
	a.GID = gid

	a.Size, buf, err = takeU64(buf)
	if err != nil {
		return InodeAttr{}, err
	}

	a.Mtime, buf, err = takeTime(buf)
	if err != nil {
		return InodeAttr{}, err
	}

	a.Ctime, buf, err = takeTime(buf)
	if err != nil {
		return InodeAttr{}, err
	}

	nlink, _, err = takeU32(buf)
	if err != nil {
		return InodeAttr{}, err
	}
	a.Nlink = nlink

	return a, nil
}

// --- Dentry value (name lives in the key; value is inode_id + type) ---

const minDentryValueLen = 8 + 1

func EncodeDentryValue(inode InodeID, typ DentryType) []byte {
	buf := make([]byte, 0, minDentryValueLen)
	buf = putU64(buf, inode)
	return append(buf, byte(typ))
}

func DecodeDentryValue(buf []byte) (InodeID, DentryType, error) {
	if len(buf) < minDentryValueLen {
		return 0, 0, fmt.Errorf("codec: dentry value too short (%d < %d)", len(buf), minDentryValueLen)
	}
	id := binary.BigEndian.Uint64(buf[:8])
	return id, DentryType(buf[8]), nil
}

// --- FileLayout / SliceInfo ---

// minLayoutLen is inodeID(8) + chunkSize(8) + sliceCount(4).
const minLayoutLen = 8 + 8 + 4

// minSliceLen is sliceID(8) + offset(8) + size(8) + storageOffset(8) +
// storageKey length(4).
const minSliceLen = 8 + 8 + 8 + 8 + 4

func EncodeFileLayout(l FileLayout) []byte {
	buf := make([]byte, 0, minLayoutLen+len(l.Slices)*minSliceLen)
	buf = putU64(buf, l.InodeID)
	buf = putU64(buf, l.ChunkSize)
	buf = putU32(buf, uint32(len(l.Slices)))
	for _, s := range l.Slices {
		buf = putU64(buf, s.SliceID)
		buf = putU64(buf, s.Offset)
		buf = putU64(buf, s.Size)
		buf = putU64(buf, s.StorageOffset)
		buf = putString(buf, s.StorageKey)
	}
	return buf
}

func DecodeFileLayout(buf []byte) (FileLayout, error) {
	if len(buf) < minLayoutLen {
		return FileLayout{}, fmt.Errorf("codec: layout too short (%d < %d)", len(buf), minLayoutLen)
	}
	var l FileLayout
	var err error

	l.InodeID, buf, err = takeU64(buf)
	if err != nil {
		return FileLayout{}, err
	}
	l.ChunkSize, buf, err = takeU64(buf)
	if err != nil {
		return FileLayout{}, err
	}
	count, buf, err := takeU32(buf)
	if err != nil {
		return FileLayout{}, err
	}

	l.Slices = make([]SliceInfo, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(buf) < minSliceLen {
			return FileLayout{}, fmt.Errorf("codec: truncated slice %d", i)
		}
		var s SliceInfo
		s.SliceID, buf, err = takeU64(buf)
		if err != nil {
			return FileLayout{}, err
		}
		s.Offset, buf, err = takeU64(buf)
		if err != nil {
			return FileLayout{}, err
		}
		s.Size, buf, err = takeU64(buf)
		if err != nil {
			return FileLayout{}, err
		}
		s.StorageOffset, buf, err = takeU64(buf)
		if err != nil {
			return FileLayout{}, err
		}
		s.StorageKey, buf, err = takeString(buf)
		if err != nil {
			return FileLayout{}, err
		}
		l.Slices = append(l.Slices, s)
	}
	return l, nil
}
