// Package s3meta implements the S3 metadata sub-store (spec §4.8): bucket
// and object CRUD plus ordered listing, running against the same ordered
// KV abstraction as pkg/meta but under disjoint key prefixes (spec §6).
package s3meta
