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

// Package httpcheck implements the "http" check (spec §4.3): a GET
// request classified by status code and latency, with redirects followed
// and TLS verification left on.
package httpcheck

import (
	"context"
	"net/http"
	"time"

	"github.com/alabtor75/globalnet-monitor-core/internal/config"
	"github.com/alabtor75/globalnet-monitor-core/internal/model"
)

type Runner struct {
	Client *http.Client
}

func New() Runner {
	return Runner{Client: &http.Client{}}
}

func (r Runner) Run(ctx context.Context, svc model.ServiceSpec, host model.HostSpec, timeouts config.TimeoutConfig, thresholds config.Thresholds) model.CheckResult {
	if svc.Params.HTTP == nil || svc.Params.HTTP.URL == "" {
		return model.CheckResult{Status: model.StatusCrit, Meta: map[string]any{"reason": "missing_params"}}
	}

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, svc.Params.HTTP.URL, nil)
	if err != nil {
		return model.CheckResult{Status: model.StatusCrit, Meta: map[string]any{"reason": "bad_request", "error": err.Error()}}
	}

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		reason := "connection_failed"
		if ctx.Err() != nil {
			reason = "timeout"
		}
		return model.CheckResult{Status: model.StatusCrit, Meta: map[string]any{"reason": reason, "error": err.Error()}}
	}
	defer resp.Body.Close()

	latencyMS := latency.Milliseconds()
	finalURL := svc.Params.HTTP.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	meta := map[string]any{"http_status": resp.StatusCode, "final_url": finalURL}

	if resp.StatusCode >= 500 {
		meta["reason"] = "server_error"
		return model.CheckResult{Status: model.StatusCrit, LatencyMS: latencyMS, Meta: meta}
	}
	if resp.StatusCode >= 400 {
		meta["reason"] = "client_error"
		return model.CheckResult{Status: model.StatusWarn, LatencyMS: latencyMS, Meta: meta}
	}

	if thresholds.HTTPVerySlowMS > 0 && latencyMS >= thresholds.HTTPVerySlowMS {
		meta["slow"] = "very"
		return model.CheckResult{Status: model.StatusWarn, LatencyMS: latencyMS, Meta: meta}
	}
	if thresholds.HTTPWarnMS > 0 && latencyMS >= thresholds.HTTPWarnMS {
		meta["slow"] = "yes"
		return model.CheckResult{Status: model.StatusWarn, LatencyMS: latencyMS, Meta: meta}
	}
	return model.CheckResult{Status: model.StatusOK, LatencyMS: latencyMS, Meta: meta}
}
