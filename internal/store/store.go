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

// Package store is the Datastore Writer (spec §6): a pooled, auto-
// committing Postgres sink that appends one row per completed check.
// Transient failures are retried with backoff; connection failures are
// escalated to a fatal datastore error once a bounded number of
// consecutive connection-acquire attempts have failed.
package store

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alabtor75/globalnet-monitor-core/internal/collerr"
	"github.com/alabtor75/globalnet-monitor-core/internal/model"
)

const insertSQL = `
INSERT INTO measurements (ts, region, project_id, target_id, host_id, type, status, latency_ms, meta_json)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)
`

// maxConsecutiveAcquireFailures bounds how many back-to-back pool acquire
// attempts can fail before the writer declares the datastore fatally
// unreachable. Every retry attempt counts and the count carries across
// Write calls; cycles are not counted, so a single Write whose five
// attempts all fail to acquire a connection reaches the bound.
const maxConsecutiveAcquireFailures = 5

// Writer appends Measurements to Postgres through a pgxpool pool.
type Writer struct {
	pool *pgxpool.Pool

	mu                 sync.Mutex
	consecutiveFailures int
}

// Open builds a pool per the configured min/max cached connections and
// connection cap, mirroring the teacher's export-sink construction: build
// once at startup, reuse for the process lifetime.
func Open(ctx context.Context, dsn string, minConns, maxConns int32) (*Writer, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, collerr.Wrap(collerr.KindFatalConfig, err, "parsing datastore dsn")
	}
	cfg.MinConns = minConns
	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, collerr.Wrap(collerr.KindFatalDatastore, err, "opening datastore pool")
	}
	return &Writer{pool: pool}, nil
}

func (w *Writer) Close() {
	w.pool.Close()
}

// Write appends one Measurement, retrying transient failures with
// exponential backoff. Non-retryable errors (schema mismatch, auth) are
// returned to the caller for logging; the measurement is dropped rather
// than blocking the cycle. A run of consecutive acquire failures across
// calls escalates to collerr.KindFatalDatastore.
func (w *Writer) Write(ctx context.Context, m model.Measurement) error {
	op := func() (struct{}, error) {
		conn, err := w.pool.Acquire(ctx)
		if err != nil {
			w.recordAcquireFailure()
			return struct{}{}, err
		}
		defer conn.Release()
		w.recordAcquireSuccess()

		_, err = conn.Exec(ctx, insertSQL,
			m.TS, m.Region, m.ProjectID, m.TargetID, m.HostID, string(m.Type), int(m.Status), m.LatencyMS, string(m.MetaJSON))
		if err != nil {
			if !isRetryable(err) {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(5),
	)
	if err == nil {
		return nil
	}

	if w.fatalThresholdReached() {
		return collerr.Wrap(collerr.KindFatalDatastore, err, "datastore unreachable across consecutive cycles")
	}
	return collerr.Wrap(collerr.KindTransientDatastore, err, "writing measurement")
}

func (w *Writer) recordAcquireFailure() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.consecutiveFailures++
}

func (w *Writer) recordAcquireSuccess() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.consecutiveFailures = 0
}

func (w *Writer) fatalThresholdReached() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.consecutiveFailures >= maxConsecutiveAcquireFailures
}

// isRetryable distinguishes connection/timeout failures (retryable) from
// schema, auth, and constraint errors (not), which backoff.Permanent
// short-circuits immediately rather than burning the retry budget.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 {
		// Class 08 (connection exceptions) and 57 (operator intervention,
		// e.g. admin shutdown) are transient; everything else (42 syntax/
		// access rule, 28 invalid auth, 23 constraint violation) is not.
		class := pgErr.Code[:2]
		return class == "08" || class == "57"
	}
	return true
}
