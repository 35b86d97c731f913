package main

import (
	"fmt"
	"net/http"

	"github.com/nimbusstore/nimbusstore/pkg/log"
	"github.com/nimbusstore/nimbusstore/pkg/metrics"
	"github.com/nimbusstore/nimbusstore/pkg/s3http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the metrics/health HTTP listener and the S3 HTTP endpoint",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("metrics-addr", "", "Override the config's metrics listen address")
	serveCmd.Flags().String("s3-addr", "", "Override the config's S3 listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	if metricsAddr == "" {
		metricsAddr = cfg.MetricsAddr
	}
	s3Addr, _ := cmd.Flags().GetString("s3-addr")
	if s3Addr == "" {
		s3Addr = cfg.S3Addr
	}

	eng, err := openEngine(cfg)
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	defer eng.Close()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsMux.HandleFunc("/health", metrics.HealthHandler())
	go func() {
		log.Info(fmt.Sprintf("metrics listening on %s", metricsAddr))
		if err := http.ListenAndServe(metricsAddr, metricsMux); err != nil {
			log.Errorf("metrics listener exited", err)
		}
	}()

	s3srv := s3http.NewServer(eng.s3meta, eng.svc, eng.pipeline, eng.converter, "nimbusstore")
	log.Info(fmt.Sprintf("s3 endpoint listening on %s", s3Addr))
	return http.ListenAndServe(s3Addr, s3srv)
}
