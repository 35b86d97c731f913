/*
Package kv defines the ordered key-value store contract the metadata engine
is built on, and a bbolt-backed implementation of it.

Keys are raw bytes, always read back in ascending byte order — this is what
lets pkg/codec's big-endian, length-prefixed key encoding double as an
ordered index without any extra indexing structure. Writes are grouped
either as a one-shot WriteBatch or as an explicit Txn; both commit all-or-
nothing. bbolt gives this for free: it is a single-writer, copy-on-write
B+tree that fsyncs the data file on every successful Commit, so a committed
batch is guaranteed present after a crash even though there is no separate
WAL file on disk.
*/
package kv
