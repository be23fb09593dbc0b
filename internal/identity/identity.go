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

// Package identity resolves the probing vantage point's region/country/
// city/public-IP tag once per process, in the order specified by spec
// §4.2: environment variables, then a best-effort geo-IP lookup, then a
// config fallback. Resolution never blocks more than a few seconds and
// failures fall through silently to the next source.
package identity

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/alabtor75/globalnet-monitor-core/internal/model"
)

const geoLookupTimeout = 3 * time.Second

// Resolver resolves a ProbeIdentity once and caches it for the process
// lifetime (spec §4.2: "The resolver runs once at startup").
type Resolver struct {
	logger      log.Logger
	geoEndpoint string
	httpClient  *http.Client

	cached *model.ProbeIdentity
}

// NewResolver constructs a Resolver. geoEndpoint is a public geo-IP lookup
// service returning a JSON document with region/country/city/ip fields; an
// empty endpoint disables step 2 entirely.
func NewResolver(logger log.Logger, geoEndpoint string) *Resolver {
	return &Resolver{
		logger:      logger,
		geoEndpoint: geoEndpoint,
		httpClient:  &http.Client{Timeout: geoLookupTimeout},
	}
}

// Resolve returns the cached identity if already resolved, otherwise runs
// the resolution order once.
func (r *Resolver) Resolve(ctx context.Context, configFallbackRegion string) model.ProbeIdentity {
	if r.cached != nil {
		return *r.cached
	}
	id := r.resolve(ctx, configFallbackRegion)
	r.cached = &id
	return id
}

// Reset clears the cache, forcing the next Resolve to re-run the full
// order. Not exercised by the core scheduling loop (spec §4.2: "explicit
// reset (not required by the core)"), but kept for tests and tooling that
// want to simulate identity changing between runs.
func (r *Resolver) Reset() {
	r.cached = nil
}

func (r *Resolver) resolve(ctx context.Context, configFallbackRegion string) model.ProbeIdentity {
	if id, ok := r.fromEnv(); ok {
		return id
	}

	if r.geoEndpoint != "" {
		if id, ok := r.fromGeoIP(ctx); ok {
			return id
		}
	}

	return model.ProbeIdentity{Region: configFallbackRegion, Source: "config"}
}

func (r *Resolver) fromEnv() (model.ProbeIdentity, bool) {
	region := os.Getenv("GNM_REGION")
	if region == "" {
		return model.ProbeIdentity{}, false
	}
	return model.ProbeIdentity{
		Region:   region,
		Country:  os.Getenv("GNM_COUNTRY"),
		City:     os.Getenv("GNM_CITY"),
		PublicIP: os.Getenv("GNM_PUBLIC_IP"),
		Source:   "env",
	}, true
}

type geoResponse struct {
	Region string `json:"region"`
	Country string `json:"country"`
	City    string `json:"city"`
	IP      string `json:"ip"`
}

// fromGeoIP performs a single-shot, strictly-timed-out lookup. Any failure
// (network, non-200, malformed body) falls through silently, per spec
// §4.2 and §9 ("Do not retry; do not let it block startup more than ~3s").
func (r *Resolver) fromGeoIP(ctx context.Context) (model.ProbeIdentity, bool) {
	ctx, cancel := context.WithTimeout(ctx, geoLookupTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.geoEndpoint, nil)
	if err != nil {
		level.Debug(r.logger).Log("msg", "geo-ip request build failed", "err", err)
		return model.ProbeIdentity{}, false
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		level.Debug(r.logger).Log("msg", "geo-ip lookup failed", "err", err)
		return model.ProbeIdentity{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		level.Debug(r.logger).Log("msg", "geo-ip lookup non-200", "status", resp.StatusCode)
		return model.ProbeIdentity{}, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		level.Debug(r.logger).Log("msg", "geo-ip lookup read failed", "err", err)
		return model.ProbeIdentity{}, false
	}

	var g geoResponse
	if err := json.Unmarshal(body, &g); err != nil {
		level.Debug(r.logger).Log("msg", "geo-ip lookup parse failed", "err", err)
		return model.ProbeIdentity{}, false
	}

	if g.Region == "" {
		return model.ProbeIdentity{}, false
	}

	return model.ProbeIdentity{
		Region:   g.Region,
		Country:  g.Country,
		City:     g.City,
		PublicIP: g.IP,
		Source:   "geo",
	}, true
}
