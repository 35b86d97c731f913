/*
Package log provides structured logging for the NimbusStore metadata engine.

It wraps zerolog to give every package a JSON (or console, for local runs)
structured logger, with component-scoped child loggers for tagging log lines
by subsystem (kv, partition, namespace, s3meta, ...). Hot metadata paths
should log at Debug; commits, partition splits, and error paths at
Info/Warn/Error.

Initialize once via Init at process startup, before any other package logs.
*/
package log
