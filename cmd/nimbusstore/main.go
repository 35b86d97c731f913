package main

import (
	"fmt"
	"os"

	"github.com/nimbusstore/nimbusstore/pkg/config"
	"github.com/nimbusstore/nimbusstore/pkg/log"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "nimbusstore",
	Short: "NimbusStore - S3-compatible object storage with a pluggable chunk store",
	Long: `NimbusStore splits an S3-compatible object store into a metadata
engine (inodes, directories, slice layouts, bucket/object records) and a
pluggable chunk store for the bytes themselves.

The metadata engine is the hard core; the chunk store is an external
collaborator reachable through a thin contract.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"nimbusstore version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (env/flag overrides still apply)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initConfigAndLogging)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(bucketCmd)
	rootCmd.AddCommand(objectCmd)
	rootCmd.AddCommand(fsckCmd)
}

func initConfigAndLogging() {
	configPath, _ := rootCmd.PersistentFlags().GetString("config")
	loaded, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg = loaded

	if v, _ := rootCmd.PersistentFlags().GetString("log-level"); v != "info" {
		cfg.LogLevel = v
	}
	if v, _ := rootCmd.PersistentFlags().GetBool("log-json"); v {
		cfg.LogJSON = v
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.LogLevel),
		JSONOutput: cfg.LogJSON,
	})
}
