// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes Prometheus collectors for the orchestrator.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// statusProbes tracks resolved server statuses
	statusProbes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minecontrol_status_probes_total",
			Help: "Total status resolutions by resulting status",
		},
		[]string{"status"},
	)

	// commandOutcomes tracks chat and CLI command results
	commandOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minecontrol_commands_total",
			Help: "Total commands handled by command name and outcome kind",
		},
		[]string{"command", "outcome"},
	)

	// backupResults tracks backup invocations
	backupResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minecontrol_backups_total",
			Help: "Total backup invocations by result",
		},
		[]string{"result"},
	)

	// backupDuration tracks how long successful backups took
	backupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "minecontrol_backup_duration_seconds",
			Help:    "Duration of successful backups",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	// compensationFailures tracks failed compensating save-on commands
	compensationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minecontrol_backup_compensation_failures_total",
			Help: "Total failed compensating save-on commands after a failed backup",
		},
	)

	// autoShutdownPhase exposes the idle state machine phase
	autoShutdownPhase = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "minecontrol_autoshutdown_phase",
			Help: "Current auto-shutdown phase (0=monitoring, 1=timing_empty, 2=shutdown_countdown)",
		},
	)

	// autoShutdowns tracks idle shutdowns issued
	autoShutdowns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minecontrol_autoshutdown_shutdowns_total",
			Help: "Total idle shutdowns issued by the auto-shutdown engine",
		},
	)

	// watcherResults tracks announcement watcher completions
	watcherResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minecontrol_announce_watchers_total",
			Help: "Total announcement watchers by target status and result",
		},
		[]string{"target", "result"},
	)
)

// RecordStatus increments the status probe counter.
func RecordStatus(status string) {
	statusProbes.WithLabelValues(status).Inc()
}

// RecordCommand increments the command counter.
func RecordCommand(command, outcome string) {
	commandOutcomes.WithLabelValues(command, outcome).Inc()
}

// RecordBackup records a backup result. elapsed is observed only for
// result "success".
func RecordBackup(result string, elapsed time.Duration) {
	backupResults.WithLabelValues(result).Inc()
	if result == "success" {
		backupDuration.Observe(elapsed.Seconds())
	}
}

// RecordCompensationFailure increments the compensation failure counter.
func RecordCompensationFailure() {
	compensationFailures.Inc()
}

// SetAutoShutdownPhase sets the phase gauge.
func SetAutoShutdownPhase(phase int) {
	autoShutdownPhase.Set(float64(phase))
}

// RecordAutoShutdown increments the idle shutdown counter.
func RecordAutoShutdown() {
	autoShutdowns.Inc()
}

// RecordWatcher records the end of an announcement watcher.
// result is "reached" or "exhausted".
func RecordWatcher(target, result string) {
	watcherResults.WithLabelValues(target, result).Inc()
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
