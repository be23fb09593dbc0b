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

// Package model holds the data types shared across the collector: the
// declared targets loaded from config, the identity of the probing vantage
// point, and the transient/persisted results of a check.
package model

import "time"

// CheckType identifies one of the six supported probe kinds.
type CheckType string

const (
	CheckPing    CheckType = "ping"
	CheckHTTP    CheckType = "http"
	CheckDNS     CheckType = "dns"
	CheckTCP     CheckType = "tcp"
	CheckSSLCert CheckType = "ssl_cert"
	CheckJSONAPI CheckType = "json_api"
)

// Status is the classified outcome of a check, persisted on Measurement.
type Status int

const (
	StatusOK   Status = 0
	StatusWarn Status = 1
	StatusCrit Status = 2
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusWarn:
		return "WARN"
	case StatusCrit:
		return "CRIT"
	default:
		return "UNKNOWN"
	}
}

// HostSpec maps a host_id to a resolvable address (hostname or IP). Hosts
// are not cached across cycles; each check resolves the address it needs.
type HostSpec struct {
	HostID  string
	Address string
}

// ServiceSpec is a declared, immutable-per-snapshot monitored target.
type ServiceSpec struct {
	ServiceID string
	HostID    string
	Type      CheckType
	Enabled   bool
	ProjectID *int
	Params    CheckParams
}

// CheckParams is filled in by internal/config from the tagged-variant
// representation; only the field matching Type is populated.
type CheckParams struct {
	HTTP    *HTTPParams
	DNS     *DNSParams
	TCP     *TCPParams
	SSLCert *SSLCertParams
	JSONAPI *JSONAPIParams
}

type HTTPParams struct {
	URL string
}

type DNSParams struct {
	Name       string
	RecordType string
}

type TCPParams struct {
	Port int
}

type SSLCertParams struct {
	Port int
}

type JSONAPIParams struct {
	URL          string
	ExpectField  string
	ExpectEquals string
}

// ProbeIdentity is resolved once at process startup and reused for the
// lifetime of the process.
type ProbeIdentity struct {
	Region   string
	Country  string
	City     string
	PublicIP string
	// Source tags which resolution path produced this identity:
	// "env" | "geo" | "config".
	Source string
}

// CheckResult is the transient outcome of a single probe execution.
type CheckResult struct {
	Status    Status
	LatencyMS int64
	Meta      map[string]any
}

// Measurement is the immutable row appended to the telemetry store, one per
// completed check per cycle.
type Measurement struct {
	TS        time.Time
	Region    string
	ProjectID *int
	TargetID  string
	HostID    string
	Type      CheckType
	Status    Status
	LatencyMS int64
	MetaJSON  []byte
}
