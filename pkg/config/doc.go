// Package config loads NimbusStore's on-disk YAML configuration and layers
// environment-variable overrides on top of it, the same precedence
// cmd/warren/main.go applies to its --log-level/--log-json persistent
// flags (flags/env override file, file overrides built-in defaults).
package config
