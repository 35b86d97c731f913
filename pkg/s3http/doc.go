// Package s3http is the thin external-facing translation layer spec.md §6
// describes: it turns the S3 HTTP subset (list/create/delete/head buckets,
// v1/v2 object listing, put/get/delete/head objects) into calls against
// pkg/s3meta and pkg/namespace, and turns their typed errors back into the
// XML error body S3 clients expect. It is intentionally not a production S3
// server — no auth, no multipart upload, no chunked transfer encoding, no
// TLS, all explicitly out of scope per spec.md §1.
package s3http
