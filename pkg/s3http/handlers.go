package s3http

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nimbusstore/nimbusstore/pkg/codec"
	"github.com/nimbusstore/nimbusstore/pkg/meta"
	"github.com/nimbusstore/nimbusstore/pkg/metrics"
)

// GET / — list all buckets (spec.md §6).
func (s *Server) handleListBuckets(w http.ResponseWriter, r *http.Request) {
	buckets, err := s.s3meta.ListBuckets()
	if err != nil {
		writeKindError(w, r, err, true)
		return
	}
	result := listAllMyBucketsResult{
		Owner: owner{ID: s.owner, DisplayName: s.owner},
	}
	for _, b := range buckets {
		result.Buckets = append(result.Buckets, bucketEntry{
			Name:         b.Name,
			CreationDate: b.CreationTime.UTC().Format(isoTime),
		})
	}
	metrics.S3RequestsTotal.WithLabelValues("ListBuckets", "ok").Inc()
	respondXML(w, http.StatusOK, result)
}

// PUT /{bucket} — create a bucket; 409 BucketAlreadyExists on duplicate.
func (s *Server) handlePutBucket(w http.ResponseWriter, r *http.Request) {
	bucket := r.PathValue("bucket")
	if exists, err := s.s3meta.BucketExists(bucket); err != nil {
		writeKindError(w, r, err, true)
		return
	} else if exists {
		metrics.S3RequestsTotal.WithLabelValues("CreateBucket", "error").Inc()
		writeError(w, r, errorFor(meta.Exist, true, "bucket already exists"))
		return
	}
	err := s.s3meta.PutBucket(codec.BucketMeta{
		Name:         bucket,
		Owner:        s.owner,
		CreationTime: time.Now().UTC(),
	})
	if err != nil {
		writeKindError(w, r, err, true)
		return
	}
	metrics.S3RequestsTotal.WithLabelValues("CreateBucket", "ok").Inc()
	w.WriteHeader(http.StatusOK)
}

// DELETE /{bucket} — 409 BucketNotEmpty if any object remains, else 204.
func (s *Server) handleDeleteBucket(w http.ResponseWriter, r *http.Request) {
	bucket := r.PathValue("bucket")
	if err := s.s3meta.DeleteBucket(bucket); err != nil {
		metrics.S3RequestsTotal.WithLabelValues("DeleteBucket", "error").Inc()
		writeKindError(w, r, err, true)
		return
	}
	metrics.S3RequestsTotal.WithLabelValues("DeleteBucket", "ok").Inc()
	w.WriteHeader(http.StatusNoContent)
}

// HEAD /{bucket} — 200 or 404 NoSuchBucket.
func (s *Server) handleHeadBucket(w http.ResponseWriter, r *http.Request) {
	bucket := r.PathValue("bucket")
	exists, err := s.s3meta.BucketExists(bucket)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if !exists {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GET /{bucket}?list-type=2 selects v2 listing; without it, v1 (spec.md §6).
func (s *Server) handleListObjects(w http.ResponseWriter, r *http.Request) {
	bucket := r.PathValue("bucket")
	q := r.URL.Query()
	prefix := q.Get("prefix")
	delimiter := q.Get("delimiter")
	isV2 := q.Get("list-type") == "2"

	marker := q.Get("marker")
	if isV2 {
		marker = q.Get("continuation-token")
	}

	maxKeys := 1000
	if v := q.Get("max-keys"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxKeys = n
		}
	}

	objs, truncated, err := s.s3meta.ListObjects(bucket, prefix, marker, maxKeys)
	if err != nil {
		writeKindError(w, r, err, true)
		return
	}

	result := listBucketResult{
		Name:        bucket,
		Prefix:      prefix,
		Delimiter:   delimiter,
		MaxKeys:     maxKeys,
		IsTruncated: truncated,
	}
	if isV2 {
		result.ContinuationToken = marker
		result.KeyCount = len(objs)
		if truncated && len(objs) > 0 {
			result.NextContinuationToken = objs[len(objs)-1].Key
		}
	} else {
		result.Marker = marker
		if truncated && len(objs) > 0 {
			result.NextMarker = objs[len(objs)-1].Key
		}
	}
	for _, o := range objs {
		result.Contents = append(result.Contents, objectContents{
			Key:          o.Key,
			LastModified: o.LastModified.UTC().Format(isoTime),
			ETag:         `"` + o.ETag + `"`,
			Size:         o.Size,
			StorageClass: o.StorageClass,
		})
	}
	metrics.S3RequestsTotal.WithLabelValues("ListObjects", "ok").Inc()
	respondXML(w, http.StatusOK, result)
}

// PUT /{bucket}/{key} — store object; ETag = hex MD5 of the body. Content-Type
// is stored in the record's ContentType field, and x-amz-meta-* headers go
// into user_metadata keyed by the lower-cased name with the prefix stripped.
func (s *Server) handlePutObject(w http.ResponseWriter, r *http.Request) {
	bucket := r.PathValue("bucket")
	key := r.PathValue("key")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, errorFor(meta.InvalidArgument, false, "failed to read request body"))
		return
	}

	if exists, err := s.s3meta.BucketExists(bucket); err != nil {
		writeKindError(w, r, err, true)
		return
	} else if !exists {
		writeError(w, r, errorFor(meta.NotFound, true, "bucket does not exist"))
		return
	}

	objPath, err := s.ensureObjectPath(bucket, key)
	if err != nil {
		writeKindError(w, r, err, false)
		return
	}
	if err := s.pipeline.Write(r.Context(), objPath, 0, body); err != nil {
		writeKindError(w, r, err, false)
		return
	}
	// A full-object PUT replaces the whole value; Truncate drops any stale
	// slices beyond the new body's end and forces the reported size down to
	// match, since Write/UpdateSize only ever grow it monotonically.
	if err := s.pipeline.Truncate(r.Context(), objPath, uint64(len(body))); err != nil {
		writeKindError(w, r, err, false)
		return
	}

	sum := md5.Sum(body)
	etag := hex.EncodeToString(sum[:])
	userMeta := map[string]string{}
	for k, v := range r.Header {
		if strings.HasPrefix(strings.ToLower(k), "x-amz-meta-") {
			userMeta[strings.ToLower(strings.TrimPrefix(strings.ToLower(k), "x-amz-meta-"))] = v[0]
		}
	}
	contentType := r.Header.Get("Content-Type")

	if err := s.s3meta.PutObject(codec.ObjectMeta{
		Bucket:       bucket,
		Key:          key,
		Size:         uint64(len(body)),
		ETag:         etag,
		ContentType:  contentType,
		LastModified: time.Now().UTC(),
		DataPath:     objPath,
		UserMetadata: userMeta,
	}); err != nil {
		writeKindError(w, r, err, false)
		return
	}

	metrics.S3RequestsTotal.WithLabelValues("PutObject", "ok").Inc()
	w.Header().Set("ETag", `"`+etag+`"`)
	w.WriteHeader(http.StatusOK)
}

// GET /{bucket}/{key} — returns body with Content-Length, ETag,
// Last-Modified, Content-Type (spec.md §6).
func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	bucket := r.PathValue("bucket")
	key := r.PathValue("key")

	o, err := s.s3meta.GetObject(bucket, key)
	if err != nil {
		writeKindError(w, r, err, false)
		return
	}

	parsed, err := s.converter.Parse("s3://" + bucket + "/" + key)
	if err != nil {
		writeKindError(w, r, err, false)
		return
	}
	data, err := s.pipeline.Read(r.Context(), parsed.PosixPath, 0, o.Size)
	if err != nil {
		writeKindError(w, r, err, false)
		return
	}

	for k, v := range o.UserMetadata {
		w.Header().Set("x-amz-meta-"+k, v)
	}
	if o.ContentType != "" {
		w.Header().Set("Content-Type", o.ContentType)
	}
	w.Header().Set("ETag", `"`+o.ETag+`"`)
	w.Header().Set("Last-Modified", o.LastModified.UTC().Format(http.TimeFormat))
	w.Header().Set("Content-Length", strconv.FormatUint(o.Size, 10))
	metrics.S3RequestsTotal.WithLabelValues("GetObject", "ok").Inc()
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// DELETE /{bucket}/{key} — 204; decrements bucket stats by the removed
// object's size (spec.md §6).
func (s *Server) handleDeleteObject(w http.ResponseWriter, r *http.Request) {
	bucket := r.PathValue("bucket")
	key := r.PathValue("key")
	if err := s.s3meta.DeleteObject(bucket, key); err != nil {
		writeKindError(w, r, err, false)
		return
	}
	metrics.S3RequestsTotal.WithLabelValues("DeleteObject", "ok").Inc()
	w.WriteHeader(http.StatusNoContent)
}

// HEAD /{bucket}/{key} — headers only.
func (s *Server) handleHeadObject(w http.ResponseWriter, r *http.Request) {
	bucket := r.PathValue("bucket")
	key := r.PathValue("key")
	o, err := s.s3meta.GetObject(bucket, key)
	if err != nil {
		kind := meta.KindOf(err)
		if kind == meta.NotFound {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if o.ContentType != "" {
		w.Header().Set("Content-Type", o.ContentType)
	}
	w.Header().Set("ETag", `"`+o.ETag+`"`)
	w.Header().Set("Last-Modified", o.LastModified.UTC().Format(http.TimeFormat))
	w.Header().Set("Content-Length", strconv.FormatUint(o.Size, 10))
	w.WriteHeader(http.StatusOK)
}
