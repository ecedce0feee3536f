// Package metrics exposes Prometheus counters for scan progress. The
// exporter is optional; without a listen address the counters are inert.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/drivedex/drivedex/internal/logger"
)

var (
	EntriesScanned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drivedex_entries_scanned_total",
		Help: "Filesystem entries processed by the scan walk.",
	})
	FilesAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drivedex_files_added_total",
		Help: "New file records inserted into the catalog.",
	})
	FilesUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drivedex_files_updated_total",
		Help: "Existing file records updated during scans.",
	})
	FilesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drivedex_files_skipped_total",
		Help: "Entries skipped because they were already cataloged.",
	})
	ThumbsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drivedex_thumbnails_created_total",
		Help: "Thumbnails generated successfully.",
	})
	ThumbsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drivedex_thumbnails_failed_total",
		Help: "Thumbnail generations that failed.",
	})
	RecoveryAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drivedex_remount_attempts_total",
		Help: "Remount attempts made by the I/O recovery controller.",
	})
	BatchCommits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drivedex_batch_commits_total",
		Help: "Batch transactions committed with their checkpoint.",
	})
	ScanDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "drivedex_scan_duration_seconds",
		Help: "Wall-clock duration of the last scan session.",
	})
)

// Serve starts the /metrics endpoint in the background. Errors are logged,
// not fatal; a scan works fine without its exporter.
func Serve(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Infof("metrics exporter listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("metrics exporter: %v", err)
		}
	}()
}
