package codec

import "fmt"

// currentVersion is the only version this codec understands; decoders
// reject anything greater (spec §6).
const currentVersion uint32 = 1

func EncodeBucketMeta(b BucketMeta) []byte {
	buf := make([]byte, 0, 64+len(b.Name)+len(b.Owner))
	buf = putU32(buf, currentVersion)
	buf = putString(buf, b.Name)
	buf = putString(buf, b.Owner)
	buf = putTime(buf, b.CreationTime)
	buf = putU64(buf, b.ObjectCount)
	buf = putU64(buf, b.TotalSize)
	buf = putString(buf, b.Region)
	buf = putString(buf, b.StorageClass)
	return buf
}

func DecodeBucketMeta(buf []byte) (BucketMeta, error) {
	var m BucketMeta
	version, buf, err := takeU32(buf)
	if err != nil {
		return m, err
	}
	if version > currentVersion {
		return m, fmt.Errorf("codec: bucket record version %d unsupported", version)
	}

	m.Name, buf, err = takeString(buf)
	if err != nil {
		return m, err
	}
	m.Owner, buf, err = takeString(buf)
	if err != nil {
		return m, err
	}
	m.CreationTime, buf, err = takeTime(buf)
	if err != nil {
		return m, err
	}
	m.ObjectCount, buf, err = takeU64(buf)
	if err != nil {
		return m, err
	}
	m.TotalSize, buf, err = takeU64(buf)
	if err != nil {
		return m, err
	}
	m.Region, buf, err = takeString(buf)
	if err != nil {
		return m, err
	}
	m.StorageClass, _, err = takeString(buf)
	if err != nil {
		return m, err
	}
	return m, nil
}

func EncodeObjectMeta(o ObjectMeta) []byte {
	buf := make([]byte, 0, 96+len(o.Bucket)+len(o.Key))
	buf = putU32(buf, currentVersion)
	buf = putString(buf, o.Bucket)
	buf = putString(buf, o.Key)
	buf = putU64(buf, o.Size)
	buf = putString(buf, o.ETag)
	buf = putString(buf, o.ContentType)
	buf = putTime(buf, o.LastModified)
	buf = putString(buf, o.StorageClass)
	buf = putString(buf, o.DataPath)
	buf = putU32(buf, uint32(len(o.UserMetadata)))
	for k, v := range o.UserMetadata {
		buf = putString(buf, k)
		buf = putString(buf, v)
	}
	return buf
}

func DecodeObjectMeta(buf []byte) (ObjectMeta, error) {
	var m ObjectMeta
	version, buf, err := takeU32(buf)
	if err != nil {
		return m, err
	}
	if version > currentVersion {
		return m, fmt.Errorf("codec: object record version %d unsupported", version)
	}

	m.Bucket, buf, err = takeString(buf)
	if err != nil {
		return m, err
	}
	m.Key, buf, err = takeString(buf)
	if err != nil {
		return m, err
	}
	m.Size, buf, err = takeU64(buf)
	if err != nil {
		return m, err
	}
	m.ETag, buf, err = takeString(buf)
	if err != nil {
		return m, err
	}
	m.ContentType, buf, err = takeString(buf)
	if err != nil {
		return m, err
	}
	m.LastModified, buf, err = takeTime(buf)
	if err != nil {
		return m, err
	}
	m.StorageClass, buf, err = takeString(buf)
	if err != nil {
		return m, err
	}
	m.DataPath, buf, err = takeString(buf)
	if err != nil {
		return m, err
	}
	count, buf, err := takeU32(buf)
	if err != nil {
		return m, err
	}

	if count > 0 {
		m.UserMetadata = make(map[string]string, count)
	}
	for i := uint32(0); i < count; i++ {
		var k, v string
		k, buf, err = takeString(buf)
		if err != nil {
			return m, err
		}
		v, buf, err = takeString(buf)
		if err != nil {
			return m, err
		}
		m.UserMetadata[k] = v
	}
	return m, nil
}
