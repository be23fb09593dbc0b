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

// Package api is the read-only REST surface over the measurements table
// (spec §7.1): a small chi router with no write paths, meant to run as a
// separate process (cmd/globalnet-api) from the collector itself.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Server wires the read-only handlers against a pgxpool pool.
type Server struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Server {
	return &Server{pool: pool}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Get("/api/last", s.handleLast)
	r.Get("/api/timeseries", s.handleTimeseries)
	r.Get("/api/meta/targets", s.handleTargets)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.pool.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

type row struct {
	TS        time.Time       `json:"ts"`
	Region    string          `json:"region"`
	ProjectID *int            `json:"project_id,omitempty"`
	TargetID  string          `json:"target_id"`
	HostID    string          `json:"host_id"`
	Type      string          `json:"type"`
	Status    int             `json:"status"`
	LatencyMS int64           `json:"latency_ms"`
	Meta      json.RawMessage `json:"meta"`
}

// handleLast returns the most recent measurement per target, optionally
// filtered by region.
func (s *Server) handleLast(w http.ResponseWriter, r *http.Request) {
	region := r.URL.Query().Get("region")
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)

	query := `
		SELECT DISTINCT ON (target_id) ts, region, project_id, target_id, host_id, type, status, latency_ms, meta_json
		FROM measurements
		WHERE ($1 = '' OR region = $1)
		ORDER BY target_id, ts DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.pool.Query(r.Context(), query, region, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, out)
}

// handleTimeseries returns raw rows for one target over a bounded window,
// newest first.
func (s *Server) handleTimeseries(w http.ResponseWriter, r *http.Request) {
	targetID := r.URL.Query().Get("target_id")
	if targetID == "" {
		http.Error(w, "target_id is required", http.StatusBadRequest)
		return
	}
	limit := queryInt(r, "limit", 500)
	offset := queryInt(r, "offset", 0)

	query := `
		SELECT ts, region, project_id, target_id, host_id, type, status, latency_ms, meta_json
		FROM measurements
		WHERE target_id = $1
		ORDER BY ts DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.pool.Query(r.Context(), query, targetID, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, out)
}

// handleTargets lists the distinct (target_id, host_id, type) triples
// known to the store, optionally filtered by region.
func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	region := r.URL.Query().Get("region")
	limit := queryInt(r, "limit", 1000)
	offset := queryInt(r, "offset", 0)

	query := `
		SELECT DISTINCT target_id, host_id, type, region
		FROM measurements
		WHERE ($1 = '' OR region = $1)
		ORDER BY target_id
		LIMIT $2 OFFSET $3
	`
	rows, err := s.pool.Query(r.Context(), query, region, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	type target struct {
		TargetID string `json:"target_id"`
		HostID   string `json:"host_id"`
		Type     string `json:"type"`
		Region   string `json:"region"`
	}
	var out []target
	for rows.Next() {
		var t target
		if err := rows.Scan(&t.TargetID, &t.HostID, &t.Type, &t.Region); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		out = append(out, t)
	}
	writeJSON(w, out)
}

func scanRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]row, error) {
	var out []row
	for rows.Next() {
		var m row
		if err := rows.Scan(&m.TS, &m.Region, &m.ProjectID, &m.TargetID, &m.HostID, &m.Type, &m.Status, &m.LatencyMS, &m.Meta); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
