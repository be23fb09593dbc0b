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

// Package tcpcheck implements the "tcp" check (spec §4.3): a bare TCP
// connect with no application-layer traffic.
package tcpcheck

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/alabtor75/globalnet-monitor-core/internal/config"
	"github.com/alabtor75/globalnet-monitor-core/internal/model"
)

type Runner struct{}

func (Runner) Run(ctx context.Context, svc model.ServiceSpec, host model.HostSpec, timeouts config.TimeoutConfig, thresholds config.Thresholds) model.CheckResult {
	if svc.Params.TCP == nil {
		return model.CheckResult{Status: model.StatusCrit, Meta: map[string]any{"reason": "missing_params"}}
	}
	if host.Address == "" {
		return model.CheckResult{Status: model.StatusCrit, Meta: map[string]any{"reason": "unresolvable"}}
	}

	addr := net.JoinHostPort(host.Address, strconv.Itoa(svc.Params.TCP.Port))

	start := time.Now()
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", addr)
	latency := time.Since(start)
	if err != nil {
		reason := "connection_refused"
		if ctx.Err() != nil {
			reason = "timeout"
		}
		return model.CheckResult{Status: model.StatusCrit, Meta: map[string]any{"reason": reason, "error": err.Error(), "port": svc.Params.TCP.Port}}
	}
	conn.Close()

	latencyMS := latency.Milliseconds()
	meta := map[string]any{"port": svc.Params.TCP.Port}

	if thresholds.TCPVerySlowMS > 0 && latencyMS >= thresholds.TCPVerySlowMS {
		meta["slow"] = "very"
		return model.CheckResult{Status: model.StatusWarn, LatencyMS: latencyMS, Meta: meta}
	}
	if thresholds.TCPWarnMS > 0 && latencyMS >= thresholds.TCPWarnMS {
		meta["slow"] = "yes"
		return model.CheckResult{Status: model.StatusWarn, LatencyMS: latencyMS, Meta: meta}
	}
	return model.CheckResult{Status: model.StatusOK, LatencyMS: latencyMS, Meta: meta}
}
