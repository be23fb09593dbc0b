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

// Package scheduler drives the collector's cycle loop: once per interval,
// snapshot the enabled services, run each through its probe on a bounded
// worker pool, classify the result, and append it to the store. It
// implements the Starting -> Running <-> Draining -> Stopped lifecycle
// (spec §5): once draining begins, the in-flight cycle finishes but no
// new cycle starts.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/alabtor75/globalnet-monitor-core/internal/classify"
	"github.com/alabtor75/globalnet-monitor-core/internal/collerr"
	"github.com/alabtor75/globalnet-monitor-core/internal/config"
	"github.com/alabtor75/globalnet-monitor-core/internal/identity"
	"github.com/alabtor75/globalnet-monitor-core/internal/model"
	"github.com/alabtor75/globalnet-monitor-core/internal/probe"
)

// Recorder is the subset of internal/metrics.Recorder the scheduler needs;
// kept as an interface so the metrics exporter stays fully optional and
// nil-able without a guard at every call site.
type Recorder interface {
	ObserveCheck(t model.CheckType, status model.Status, latency time.Duration)
	ObserveCycle(d time.Duration)
}

// Writer is the subset of internal/store.Writer the scheduler needs,
// letting tests substitute an in-memory sink instead of a live pool.
type Writer interface {
	Write(ctx context.Context, m model.Measurement) error
}

// Scheduler owns one collection cycle's worth of coordination state.
type Scheduler struct {
	logger     log.Logger
	snapshot   *config.Snapshot
	identity   *identity.Resolver
	probes     probe.Table
	classifier *classify.Classifier
	writer     Writer
	recorder   Recorder

	interval   time.Duration
	maxWorkers int
}

// New constructs a Scheduler from a validated config Snapshot. recorder
// may be nil, in which case no metrics are recorded.
func New(logger log.Logger, snap *config.Snapshot, id *identity.Resolver, probes probe.Table, writer Writer, recorder Recorder) *Scheduler {
	return &Scheduler{
		logger:     logger,
		snapshot:   snap,
		identity:   id,
		probes:     probes,
		classifier: classify.New(),
		writer:     writer,
		recorder:   recorder,
		interval:   time.Duration(snap.Main.Collector.IntervalSec) * time.Second,
		maxWorkers: snap.Main.Collector.MaxWorkers,
	}
}

// Run loops cycles on the configured interval until ctx is canceled. It is
// the actor function wired into the process's run.Group: canceling ctx
// moves the process into Draining and Run returns once the cycle in
// flight (if any) completes.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if err := s.RunOnce(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			level.Info(s.logger).Log("msg", "draining, no new cycle will start")
			return nil
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				return err
			}
		}
	}
}

// RunOnce executes a single cycle: one task per enabled service, bounded
// by maxWorkers concurrent in flight (spec §5: "worker pool sized
// min(max_workers, len(services))").
func (s *Scheduler) RunOnce(ctx context.Context) error {
	// Detach from cancellation so a shutdown lets this cycle's checks (still
	// bounded by their per-type timeouts) and writes run to completion.
	ctx = context.WithoutCancel(ctx)

	start := time.Now()
	defer func() {
		if s.recorder != nil {
			s.recorder.ObserveCycle(time.Since(start))
		}
	}()

	enabled := make([]model.ServiceSpec, 0, len(s.snapshot.Services))
	for _, svc := range s.snapshot.Services {
		if svc.Enabled {
			enabled = append(enabled, svc)
		}
	}
	if len(enabled) == 0 {
		return nil
	}

	workers := s.maxWorkers
	if workers > len(enabled) {
		workers = len(enabled)
	}
	if workers <= 0 {
		workers = 1
	}

	id := s.identity.Resolve(ctx, s.snapshot.Main.Region.Fallback)

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var fatalMu sync.Mutex
	var fatalErr error
	for _, svc := range enabled {
		svc := svc
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := s.runOne(ctx, svc, id); err != nil {
				fatalMu.Lock()
				if fatalErr == nil {
					fatalErr = err
				}
				fatalMu.Unlock()
			}
		}()
	}
	wg.Wait()
	return fatalErr
}

// runOne executes and persists a single service's check. It returns a
// non-nil error only when the write failed with collerr.KindFatalDatastore,
// so RunOnce can surface persistent datastore unreachability up through
// Run to the process's exit-code mapping. Any other write failure is
// logged and swallowed, per the per-task isolation rule.
func (s *Scheduler) runOne(ctx context.Context, svc model.ServiceSpec, id model.ProbeIdentity) error {
	host := s.snapshot.Hosts[svc.HostID]

	runner, ok := s.probes[svc.Type]
	if !ok {
		level.Error(s.logger).Log("msg", "no probe registered for check type", "service", svc.ServiceID, "type", svc.Type)
		return nil
	}

	timeout := probe.TimeoutFor(svc.Type, s.snapshot.Main.Collector.Timeouts)
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	res := s.invoke(checkCtx, runner, svc, host)
	latency := time.Since(start)

	res = probe.MergeIdentity(res, id)
	persisted := s.classifier.Classify(svc, res)

	if s.recorder != nil {
		s.recorder.ObserveCheck(svc.Type, persisted, latency)
	}

	metaJSON, err := json.Marshal(res.Meta)
	if err != nil {
		level.Error(s.logger).Log("msg", "failed to marshal check meta", "service", svc.ServiceID, "err", err)
		metaJSON = []byte("{}")
	}

	m := model.Measurement{
		TS:        start.UTC(),
		Region:    id.Region,
		ProjectID: svc.ProjectID,
		TargetID:  svc.ServiceID,
		HostID:    svc.HostID,
		Type:      svc.Type,
		Status:    persisted,
		LatencyMS: res.LatencyMS,
		MetaJSON:  metaJSON,
	}

	if err := s.writer.Write(ctx, m); err != nil {
		level.Error(s.logger).Log("msg", "failed to persist measurement", "service", svc.ServiceID, "err", err)
		if collerr.Is(err, collerr.KindFatalDatastore) {
			return err
		}
	}
	return nil
}

// invoke recovers from a panicking probe implementation and converts it
// into a hard-failure result rather than crashing the cycle (spec §5:
// "a panicking or erroring probe is converted to a hard-failure result
// with an internal_error meta field, not propagated").
func (s *Scheduler) invoke(ctx context.Context, runner probe.Runner, svc model.ServiceSpec, host model.HostSpec) (res model.CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			level.Error(s.logger).Log("msg", "probe panicked", "service", svc.ServiceID, "recover", fmt.Sprint(r))
			res = model.CheckResult{Status: model.StatusCrit, Meta: map[string]any{"internal_error": fmt.Sprint(r)}}
		}
	}()
	timeouts := s.snapshot.Main.Collector.Timeouts
	thresholds := s.snapshot.Main.Collector.Thresholds
	return runner.Run(ctx, svc, host, timeouts, thresholds)
}
