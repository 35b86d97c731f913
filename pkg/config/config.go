package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// PartitionRange is one metadata partition's inode span, [Start, End).
type PartitionRange struct {
	Start uint64 `yaml:"start"`
	End   uint64 `yaml:"end"`
}

// Config is NimbusStore's full runtime configuration.
type Config struct {
	DataDir           string           `yaml:"data_dir"`
	Partitions        []PartitionRange `yaml:"partitions"`
	DefaultChunkSize  uint64           `yaml:"default_chunk_size"`
	DefaultBucket     string           `yaml:"default_bucket"`
	LogLevel          string           `yaml:"log_level"`
	LogJSON           bool             `yaml:"log_json"`
	MetricsAddr       string           `yaml:"metrics_addr"`
	S3Addr            string           `yaml:"s3_addr"`
	ChunkStoreBackend string           `yaml:"chunk_store_backend"`
	ChunkStoreDir     string           `yaml:"chunk_store_dir"`
}

// Default returns the built-in configuration a fresh install starts from.
func Default() Config {
	return Config{
		DataDir:           "./data",
		Partitions:        []PartitionRange{{Start: 1, End: 1 << 40}},
		DefaultChunkSize:  4 << 20,
		DefaultBucket:     "default",
		LogLevel:          "info",
		LogJSON:           false,
		MetricsAddr:       "127.0.0.1:9090",
		S3Addr:            "127.0.0.1:8000",
		ChunkStoreBackend: "localfs",
		ChunkStoreDir:     "./data/chunks",
	}
}

// Load reads a YAML config file at path (if non-empty), merges it over the
// defaults, then applies environment-variable overrides. An empty path is
// not an error — defaults plus env overrides are returned; a non-empty path
// naming a file that does not exist is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return Config{}, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if len(cfg.Partitions) == 0 {
		return Config{}, fmt.Errorf("config: at least one partition range is required")
	}
	return cfg, nil
}

// envPrefix matches the NIMBUSSTORE_* convention used for every override
// below, one env var per overridable Config field.
const envPrefix = "NIMBUSSTORE_"

func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv(envPrefix + "DATA_DIR"); ok {
		cfg.DataDir = v
	}
	if v, ok := os.LookupEnv(envPrefix + "DEFAULT_BUCKET"); ok {
		cfg.DefaultBucket = v
	}
	if v, ok := os.LookupEnv(envPrefix + "LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := os.LookupEnv(envPrefix + "LOG_JSON"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LogJSON = b
		}
	}
	if v, ok := os.LookupEnv(envPrefix + "METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := os.LookupEnv(envPrefix + "S3_ADDR"); ok {
		cfg.S3Addr = v
	}
	if v, ok := os.LookupEnv(envPrefix + "CHUNK_STORE_BACKEND"); ok {
		cfg.ChunkStoreBackend = v
	}
	if v, ok := os.LookupEnv(envPrefix + "CHUNK_STORE_DIR"); ok {
		cfg.ChunkStoreDir = v
	}
	if v, ok := os.LookupEnv(envPrefix + "DEFAULT_CHUNK_SIZE"); ok {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.DefaultChunkSize = n
		}
	}
}
