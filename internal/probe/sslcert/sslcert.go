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

// Package sslcert implements the "ssl_cert" check (spec §4.3): a TLS
// handshake followed by inspection of the leaf certificate's expiry.
// An already-expired certificate bypasses the two-strike confirmation in
// internal/classify and is reported CRIT immediately.
package sslcert

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"strconv"
	"time"

	"github.com/alabtor75/globalnet-monitor-core/internal/config"
	"github.com/alabtor75/globalnet-monitor-core/internal/model"
)

// Runner performs the TLS handshake itself with verification disabled, then
// verifies the chain manually (minus expiry, which is checked separately)
// so an already-expired leaf can still be inspected and reported as the
// two-strike bypass case rather than failing at the handshake.
type Runner struct {
	// Roots overrides the system root pool used for chain verification.
	// Nil means use the system roots; tests inject a pool trusting their
	// own self-signed certificate.
	Roots *x509.CertPool
}

func (r Runner) Run(ctx context.Context, svc model.ServiceSpec, host model.HostSpec, timeouts config.TimeoutConfig, thresholds config.Thresholds) model.CheckResult {
	if svc.Params.SSLCert == nil {
		return model.CheckResult{Status: model.StatusCrit, Meta: map[string]any{"reason": "missing_params"}}
	}
	if host.Address == "" {
		return model.CheckResult{Status: model.StatusCrit, Meta: map[string]any{"reason": "unresolvable"}}
	}

	addr := net.JoinHostPort(host.Address, strconv.Itoa(svc.Params.SSLCert.Port))

	dialer := &tls.Dialer{NetDialer: &net.Dialer{}, Config: &tls.Config{InsecureSkipVerify: true}}

	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	latency := time.Since(start)
	if err != nil {
		reason := "handshake_failed"
		if ctx.Err() != nil {
			reason = "timeout"
		}
		return model.CheckResult{Status: model.StatusCrit, Meta: map[string]any{"reason": reason, "error": err.Error()}}
	}
	defer conn.Close()

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return model.CheckResult{Status: model.StatusCrit, Meta: map[string]any{"reason": "not_tls"}}
	}

	state := tlsConn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return model.CheckResult{Status: model.StatusCrit, Meta: map[string]any{"reason": "no_certificate"}}
	}
	leaf := state.PeerCertificates[0]

	now := time.Now()
	daysLeft := int64(leaf.NotAfter.Sub(now) / (24 * time.Hour))
	latencyMS := latency.Milliseconds()
	meta := map[string]any{
		"days_until_expiry": daysLeft,
		"not_after":         leaf.NotAfter.UTC().Format(time.RFC3339),
		"issuer_cn":         leaf.Issuer.CommonName,
		"subject_cn":        leaf.Subject.CommonName,
	}

	if now.After(leaf.NotAfter) {
		meta["reason"] = "expired"
		meta["bypass_two_strike"] = true
		return model.CheckResult{Status: model.StatusCrit, LatencyMS: latencyMS, Meta: meta}
	}

	intermediates := x509.NewCertPool()
	for _, c := range state.PeerCertificates[1:] {
		intermediates.AddCert(c)
	}
	if _, err := leaf.Verify(x509.VerifyOptions{DNSName: host.Address, Roots: r.Roots, Intermediates: intermediates}); err != nil {
		meta["reason"] = "handshake_failed"
		meta["error"] = err.Error()
		return model.CheckResult{Status: model.StatusCrit, LatencyMS: latencyMS, Meta: meta}
	}

	if thresholds.SSLCertWarnDays > 0 && daysLeft <= thresholds.SSLCertWarnDays {
		meta["reason"] = "expiring_soon"
		return model.CheckResult{Status: model.StatusWarn, LatencyMS: latencyMS, Meta: meta}
	}

	return model.CheckResult{Status: model.StatusOK, LatencyMS: latencyMS, Meta: meta}
}
