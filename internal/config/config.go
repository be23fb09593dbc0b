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

// Package config loads and validates the three collector config artifacts
// (main config, host catalog, service catalog) into an immutable Snapshot.
// There is no hot-reload in the core (spec §4.1); a fresh Snapshot is built
// once at startup and handed to every component read-only.
package config

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/alabtor75/globalnet-monitor-core/internal/collerr"
	"github.com/alabtor75/globalnet-monitor-core/internal/model"
)

// Main holds the top-level main config sections.
type Main struct {
	Region    RegionConfig    `yaml:"region"`
	DB        DBConfig        `yaml:"db"`
	Collector CollectorConfig `yaml:"collector"`
}

type RegionConfig struct {
	Fallback string `yaml:"fallback"`
}

type DBConfig struct {
	DSN             string `yaml:"dsn"`
	PoolMinCached   int    `yaml:"pool_mincached"`
	PoolMaxCached   int    `yaml:"pool_maxcached"`
	PoolMaxConns    int    `yaml:"pool_maxconnections"`
}

type CollectorConfig struct {
	IntervalSec   int           `yaml:"interval_sec"`
	MaxWorkers    int           `yaml:"max_workers"`
	Timeouts      TimeoutConfig `yaml:"timeouts"`
	Thresholds    Thresholds    `yaml:"thresholds"`
}

type TimeoutConfig struct {
	PingSec    int `yaml:"ping_timeout_sec"`
	HTTPSec    int `yaml:"http_timeout_sec"`
	DNSSec     int `yaml:"dns_timeout_sec"`
	TCPSec     int `yaml:"tcp_timeout_sec"`
	SSLCertSec int `yaml:"ssl_cert_timeout_sec"`
	JSONAPISec int `yaml:"json_api_timeout_sec"`
}

// Thresholds holds the per-check-type latency knobs from spec §4.3.
type Thresholds struct {
	PingWarnMS     int64 `yaml:"ping_warn_ms"`
	PingVerySlowMS int64 `yaml:"ping_very_slow_ms"`
	HTTPWarnMS     int64 `yaml:"http_warn_ms"`
	HTTPVerySlowMS int64 `yaml:"http_very_slow_ms"`
	DNSWarnMS      int64 `yaml:"dns_warn_ms"`
	TCPWarnMS      int64 `yaml:"tcp_warn_ms"`
	TCPVerySlowMS  int64 `yaml:"tcp_very_slow_ms"`
	JSONWarnMS     int64 `yaml:"json_warn_ms"`
	SSLCertWarnDays int64 `yaml:"ssl_cert_warn_days"`
}

// hostYAML / serviceYAML are the wire shapes for the catalog files; they
// are converted into model types (with CheckParams resolved as a tagged
// variant) by Load.
type hostYAML struct {
	HostID  string `yaml:"host_id"`
	Address string `yaml:"address"`
}

type serviceYAML struct {
	ServiceID string                 `yaml:"service_id"`
	HostID    string                 `yaml:"host_id"`
	Type      string                 `yaml:"type"`
	Enabled   *bool                  `yaml:"enabled"`
	ProjectID *int                   `yaml:"project_id"`
	Params    map[string]interface{} `yaml:"params"`
}

// Snapshot is the immutable, validated configuration for one collector run.
type Snapshot struct {
	Main     Main
	Hosts    map[string]model.HostSpec
	Services []model.ServiceSpec
}

// Load reads and validates the three artifacts, returning a FatalConfig
// error (via collerr) on any failure.
func Load(mainPath, hostsPath, servicesPath string) (*Snapshot, []string, error) {
	var main Main
	if err := readYAMLStrict(mainPath, &main); err != nil {
		return nil, nil, collerr.Wrap(collerr.KindFatalConfig, err, "loading main config")
	}

	var hostsRaw []hostYAML
	if err := readYAMLStrict(hostsPath, &hostsRaw); err != nil {
		return nil, nil, collerr.Wrap(collerr.KindFatalConfig, err, "loading host catalog")
	}

	var servicesRaw []serviceYAML
	if err := readYAMLStrict(servicesPath, &servicesRaw); err != nil {
		return nil, nil, collerr.Wrap(collerr.KindFatalConfig, err, "loading service catalog")
	}

	hosts := make(map[string]model.HostSpec, len(hostsRaw))
	for _, h := range hostsRaw {
		if h.HostID == "" || h.Address == "" {
			return nil, nil, collerr.Wrap(collerr.KindFatalConfig,
				fmt.Errorf("host entry missing host_id or address: %+v", h), "validating host catalog")
		}
		hosts[h.HostID] = model.HostSpec{HostID: h.HostID, Address: h.Address}
	}

	var warnings []string
	services := make([]model.ServiceSpec, 0, len(servicesRaw))
	seen := make(map[string]bool, len(servicesRaw))
	for _, s := range servicesRaw {
		if s.ServiceID == "" {
			return nil, nil, collerr.Wrap(collerr.KindFatalConfig,
				fmt.Errorf("service entry missing service_id"), "validating service catalog")
		}
		if seen[s.ServiceID] {
			return nil, nil, collerr.Wrap(collerr.KindFatalConfig,
				fmt.Errorf("duplicate service_id %q", s.ServiceID), "validating service catalog")
		}
		seen[s.ServiceID] = true

		if s.HostID != "" {
			if _, ok := hosts[s.HostID]; !ok {
				return nil, nil, collerr.Wrap(collerr.KindFatalConfig,
					fmt.Errorf("service %q references unknown host_id %q", s.ServiceID, s.HostID), "validating service catalog")
			}
		}

		params, err := parseParams(model.CheckType(s.Type), s.Params)
		if err != nil {
			return nil, nil, collerr.Wrap(collerr.KindFatalConfig,
				errors.Wrapf(err, "service %q", s.ServiceID), "validating service catalog")
		}

		enabled := true
		if s.Enabled != nil {
			enabled = *s.Enabled
		}

		services = append(services, model.ServiceSpec{
			ServiceID: s.ServiceID,
			HostID:    s.HostID,
			Type:      model.CheckType(s.Type),
			Enabled:   enabled,
			ProjectID: s.ProjectID,
			Params:    params,
		})
	}

	for _, n := range []struct {
		name string
		v    int
	}{
		{"db.pool_mincached", main.DB.PoolMinCached},
		{"db.pool_maxcached", main.DB.PoolMaxCached},
		{"db.pool_maxconnections", main.DB.PoolMaxConns},
		{"collector.max_workers", main.Collector.MaxWorkers},
	} {
		if n.v <= 0 {
			return nil, nil, collerr.Wrap(collerr.KindFatalConfig,
				fmt.Errorf("%s must be positive, got %d", n.name, n.v), "validating main config")
		}
	}

	if main.Collector.IntervalSec < 10 {
		warnings = append(warnings, fmt.Sprintf(
			"collector.interval_sec=%d is below the recommended minimum of 10s", main.Collector.IntervalSec))
	}

	return &Snapshot{Main: main, Hosts: hosts, Services: services}, warnings, nil
}

// parseParams converts the open params map into the tagged variant
// CheckParams, rejecting unknown fields and missing required fields per
// check type (spec §4.1 and §9's "reject unknown fields" recommendation).
func parseParams(t model.CheckType, raw map[string]interface{}) (model.CheckParams, error) {
	var out model.CheckParams

	str := func(key string) (string, bool) {
		v, ok := raw[key]
		if !ok {
			return "", false
		}
		s, ok := v.(string)
		return s, ok
	}
	num := func(key string) (int, bool) {
		v, ok := raw[key]
		if !ok {
			return 0, false
		}
		switch n := v.(type) {
		case int:
			return n, true
		case float64:
			return int(n), true
		}
		return 0, false
	}

	switch t {
	case model.CheckHTTP:
		url, ok := str("url")
		if !ok || url == "" {
			return out, fmt.Errorf("http check requires params.url")
		}
		out.HTTP = &model.HTTPParams{URL: url}
		return out, rejectUnknown(raw, "url")

	case model.CheckJSONAPI:
		url, ok := str("url")
		if !ok || url == "" {
			return out, fmt.Errorf("json_api check requires params.url")
		}
		expectField, _ := str("expect_field")
		expectEquals, _ := str("expect_equals")
		out.JSONAPI = &model.JSONAPIParams{URL: url, ExpectField: expectField, ExpectEquals: expectEquals}
		return out, rejectUnknown(raw, "url", "expect_field", "expect_equals")

	case model.CheckTCP:
		port, ok := num("port")
		if !ok || port <= 0 {
			return out, fmt.Errorf("tcp check requires positive params.port")
		}
		out.TCP = &model.TCPParams{Port: port}
		return out, rejectUnknown(raw, "port")

	case model.CheckDNS:
		record, _ := str("record")
		if record == "" {
			record = "A"
		}
		name, _ := str("name")
		out.DNS = &model.DNSParams{Name: name, RecordType: record}
		return out, rejectUnknown(raw, "record", "name")

	case model.CheckSSLCert:
		port, ok := num("port")
		if !ok || port <= 0 {
			port = 443
		}
		out.SSLCert = &model.SSLCertParams{Port: port}
		return out, rejectUnknown(raw, "port")

	case model.CheckPing:
		return out, rejectUnknown(raw)

	default:
		return out, fmt.Errorf("unknown check type %q", t)
	}
}

func rejectUnknown(raw map[string]interface{}, allowed ...string) error {
	allow := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		allow[a] = true
	}
	for k := range raw {
		if !allow[k] {
			return fmt.Errorf("unrecognized param %q", k)
		}
	}
	return nil
}

func readYAMLStrict(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}
	if err := yaml.UnmarshalStrict(data, out); err != nil {
		return errors.Wrapf(err, "parsing %s", path)
	}
	return nil
}
