package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// KV store metrics
	KVCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nimbusstore_kv_commit_duration_seconds",
			Help:    "Time taken to commit a KV write batch or transaction",
			Buckets: prometheus.DefBuckets,
		},
	)

	KVOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nimbusstore_kv_ops_total",
			Help: "Total number of KV store operations by kind and result",
		},
		[]string{"op", "result"},
	)

	// Partition metrics
	PartitionInodesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nimbusstore_partition_inodes_total",
			Help: "Number of live inodes tracked by a partition",
		},
		[]string{"partition"},
	)

	PartitionOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nimbusstore_partition_op_duration_seconds",
			Help:    "Duration of a partition operation by kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	PartitionCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nimbusstore_partition_cache_total",
			Help: "Partition hot-index lookups by outcome (hit/miss)",
		},
		[]string{"outcome"},
	)

	// Metadata service metrics
	InodesAllocatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nimbusstore_inodes_allocated_total",
			Help: "Total number of inode IDs allocated",
		},
	)

	MetaOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nimbusstore_meta_ops_total",
			Help: "Total number of metadata service operations by kind and error kind",
		},
		[]string{"op", "error_kind"},
	)

	// Slice tree metrics
	SliceTreeInsertsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nimbusstore_slicetree_inserts_total",
			Help: "Total number of slice-tree insert calls",
		},
	)

	SliceTreeCutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nimbusstore_slicetree_cuts_total",
			Help: "Total number of slice-tree cut cases applied, by case",
		},
		[]string{"case"},
	)

	// Single-flight metrics
	SingleFlightCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nimbusstore_singleflight_calls_total",
			Help: "Total number of single-flight Do calls by outcome (leader/joined)",
		},
		[]string{"outcome"},
	)

	// Namespace / data-plane metrics
	ReadBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nimbusstore_read_bytes_total",
			Help: "Total number of bytes read through the namespace service",
		},
	)

	WriteBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nimbusstore_write_bytes_total",
			Help: "Total number of bytes written through the namespace service",
		},
	)

	ReadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nimbusstore_read_duration_seconds",
			Help:    "End-to-end duration of a namespace Read call",
			Buckets: prometheus.DefBuckets,
		},
	)

	WriteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nimbusstore_write_duration_seconds",
			Help:    "End-to-end duration of a namespace Write call",
			Buckets: prometheus.DefBuckets,
		},
	)

	// S3 metadata sub-store metrics
	S3RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nimbusstore_s3_requests_total",
			Help: "Total number of S3 metadata sub-store operations by kind and result",
		},
		[]string{"op", "result"},
	)

	BucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nimbusstore_buckets_total",
			Help: "Total number of buckets known to the S3 metadata sub-store",
		},
	)
)

func init() {
	prometheus.MustRegister(
		KVCommitDuration,
		KVOpsTotal,
		PartitionInodesTotal,
		PartitionOpDuration,
		PartitionCacheTotal,
		InodesAllocatedTotal,
		MetaOpsTotal,
		SliceTreeInsertsTotal,
		SliceTreeCutsTotal,
		SingleFlightCallsTotal,
		ReadBytesTotal,
		WriteBytesTotal,
		ReadDuration,
		WriteDuration,
		S3RequestsTotal,
		BucketsTotal,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
