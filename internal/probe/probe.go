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

// Package probe defines the check-probe contract (spec §4.3) and a
// dispatch table keyed by check type, avoiding any inheritance hierarchy
// (spec §9: "Avoid deep inheritance; prefer tagged-variant or
// interface-shaped composition").
package probe

import (
	"context"
	"time"

	"github.com/alabtor75/globalnet-monitor-core/internal/config"
	"github.com/alabtor75/globalnet-monitor-core/internal/model"
)

// Runner is the capability every check type implements.
type Runner interface {
	Run(ctx context.Context, svc model.ServiceSpec, host model.HostSpec, timeouts config.TimeoutConfig, thresholds config.Thresholds) model.CheckResult
}

// RunnerFunc adapts a plain function to Runner.
type RunnerFunc func(ctx context.Context, svc model.ServiceSpec, host model.HostSpec, timeouts config.TimeoutConfig, thresholds config.Thresholds) model.CheckResult

func (f RunnerFunc) Run(ctx context.Context, svc model.ServiceSpec, host model.HostSpec, timeouts config.TimeoutConfig, thresholds config.Thresholds) model.CheckResult {
	return f(ctx, svc, host, timeouts, thresholds)
}

// Table is a dispatch table keyed by check type.
type Table map[model.CheckType]Runner

// TimeoutFor returns the configured per-type timeout, matching the
// mapping used when probes are invoked (spec §4.3/§5: "Each probe has a
// per-type timeout enforced at the I/O boundary").
func TimeoutFor(t model.CheckType, timeouts config.TimeoutConfig) time.Duration {
	secs := 0
	switch t {
	case model.CheckPing:
		secs = timeouts.PingSec
	case model.CheckHTTP:
		secs = timeouts.HTTPSec
	case model.CheckDNS:
		secs = timeouts.DNSSec
	case model.CheckTCP:
		secs = timeouts.TCPSec
	case model.CheckSSLCert:
		secs = timeouts.SSLCertSec
	case model.CheckJSONAPI:
		secs = timeouts.JSONAPISec
	}
	if secs <= 0 {
		secs = 5
	}
	return time.Duration(secs) * time.Second
}

// identityMeta is merged into every CheckResult.Meta by the caller (the
// scheduler), not by individual probes, since identity is resolved once
// per process and is not a probe concern (spec §3: "meta_json always
// includes probe_region, probe_country, probe_city, probe_public_ip,
// probe_source").
func identityMeta(id model.ProbeIdentity) map[string]any {
	return map[string]any{
		"probe_region":    id.Region,
		"probe_country":   id.Country,
		"probe_city":      id.City,
		"probe_public_ip": id.PublicIP,
		"probe_source":    id.Source,
	}
}

// MergeIdentity returns a copy of res with identity fields merged into
// Meta, constructing Meta if nil.
func MergeIdentity(res model.CheckResult, id model.ProbeIdentity) model.CheckResult {
	meta := res.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	for k, v := range identityMeta(id) {
		meta[k] = v
	}
	res.Meta = meta
	return res
}
