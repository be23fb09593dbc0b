// Copyright 2024 The Globalnet Monitor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics is the optional Prometheus exporter (spec §7): disabled
// by default, and when disabled no HTTP listener is opened at all.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alabtor75/globalnet-monitor-core/internal/model"
)

// Recorder is the set of counters/histograms the scheduler updates per
// check and per cycle.
type Recorder struct {
	checksTotal   *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec
	cycleDuration prometheus.Histogram
	uptimeSeconds prometheus.GaugeFunc
	registry      *prometheus.Registry
	startedAt     time.Time
}

// New builds a Recorder with its own registry, so enabling the exporter
// never leaks into the default global registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry:  reg,
		startedAt: time.Now(),
		checksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "globalnet",
			Name:      "checks_total",
			Help:      "Checks performed, partitioned by type and persisted status.",
		}, []string{"type", "status"}),
		checkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "globalnet",
			Name:      "check_duration_seconds",
			Help:      "Latency of individual checks.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "globalnet",
			Name:      "cycle_duration_seconds",
			Help:      "Wall-clock duration of a full scheduling cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	r.uptimeSeconds = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "globalnet",
		Name:      "uptime_seconds",
		Help:      "Seconds since process start.",
	}, func() float64 { return time.Since(r.startedAt).Seconds() })

	reg.MustRegister(r.checksTotal, r.checkDuration, r.cycleDuration, r.uptimeSeconds)
	return r
}

func (r *Recorder) ObserveCheck(t model.CheckType, status model.Status, latency time.Duration) {
	r.checksTotal.WithLabelValues(string(t), status.String()).Inc()
	r.checkDuration.WithLabelValues(string(t)).Observe(latency.Seconds())
}

func (r *Recorder) ObserveCycle(d time.Duration) {
	r.cycleDuration.Observe(d.Seconds())
}

// Serve runs the exporter's HTTP server until ctx is canceled. Callers
// wire this as one run.Group actor alongside the scheduler loop.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
