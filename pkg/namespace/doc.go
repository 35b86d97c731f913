// Package namespace owns path translation between the S3 and POSIX views
// of the store and fuses pkg/meta metadata operations with chunk-store
// I/O for the read and write pipelines (spec §4.6).
package namespace
