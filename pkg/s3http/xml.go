package s3http

import "encoding/xml"

const s3Namespace = "http://s3.amazonaws.com/doc/2006-03-01/"

// isoTime matches the ISO-8601-with-milliseconds format spec.md §6 names
// for bucket CreationDate (e.g. "2024-01-01T00:00:00.000Z").
const isoTime = "2006-01-02T15:04:05.000Z"

type owner struct {
	XMLName     xml.Name `xml:"Owner"`
	ID          string   `xml:"ID"`
	DisplayName string   `xml:"DisplayName"`
}

type bucketEntry struct {
	Name         string `xml:"Name"`
	CreationDate string `xml:"CreationDate"`
}

type listAllMyBucketsResult struct {
	XMLName xml.Name      `xml:"http://s3.amazonaws.com/doc/2006-03-01/ ListAllMyBucketsResult"`
	Owner   owner         `xml:"Owner"`
	Buckets []bucketEntry `xml:"Buckets>Bucket"`
}

type objectContents struct {
	Key          string `xml:"Key"`
	LastModified string `xml:"LastModified"`
	ETag         string `xml:"ETag"`
	Size         uint64 `xml:"Size"`
	StorageClass string `xml:"StorageClass"`
}

// listBucketResult serves both v1 and v2 listing (spec.md §6) — the v2-only
// fields (KeyCount, ContinuationToken, NextContinuationToken) are omitted
// when empty so a v1 client sees exactly the v1 shape.
type listBucketResult struct {
	XMLName               xml.Name         `xml:"http://s3.amazonaws.com/doc/2006-03-01/ ListBucketResult"`
	Name                  string           `xml:"Name"`
	Prefix                string           `xml:"Prefix"`
	Marker                string           `xml:"Marker,omitempty"`
	NextMarker            string           `xml:"NextMarker,omitempty"`
	ContinuationToken     string           `xml:"ContinuationToken,omitempty"`
	NextContinuationToken string           `xml:"NextContinuationToken,omitempty"`
	KeyCount              int              `xml:"KeyCount,omitempty"`
	MaxKeys               int              `xml:"MaxKeys"`
	Delimiter             string           `xml:"Delimiter,omitempty"`
	IsTruncated           bool             `xml:"IsTruncated"`
	Contents              []objectContents `xml:"Contents"`
}

type errorResponse struct {
	XMLName   xml.Name `xml:"Error"`
	Code      string   `xml:"Code"`
	Message   string   `xml:"Message"`
	Resource  string   `xml:"Resource,omitempty"`
	RequestID string   `xml:"RequestId,omitempty"`
}
