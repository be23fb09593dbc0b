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

// Package dnscheck implements the "dns" check (spec §4.3): a single
// resolution against the host's configured resolver via miekg/dns, hard
// failing on NXDOMAIN/SERVFAIL/timeout and recording the answer count.
package dnscheck

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"

	"github.com/alabtor75/globalnet-monitor-core/internal/config"
	"github.com/alabtor75/globalnet-monitor-core/internal/model"
)

// resolvConf is read once; the collector runs as a single long-lived
// process so the host's resolver configuration is not expected to change
// underneath it.
var resolvConf, resolvConfErr = dns.ClientConfigFromFile("/etc/resolv.conf")

type Runner struct{}

func (Runner) Run(ctx context.Context, svc model.ServiceSpec, host model.HostSpec, timeouts config.TimeoutConfig, thresholds config.Thresholds) model.CheckResult {
	if svc.Params.DNS == nil {
		return model.CheckResult{Status: model.StatusCrit, Meta: map[string]any{"reason": "missing_params"}}
	}
	// A blank name defaults to the service's host address (spec §4.3:
	// "resolves the configured name (default: host address)").
	name := svc.Params.DNS.Name
	if name == "" {
		name = host.Address
	}
	if name == "" {
		return model.CheckResult{Status: model.StatusCrit, Meta: map[string]any{"reason": "missing_params"}}
	}
	if resolvConfErr != nil || resolvConf == nil || len(resolvConf.Servers) == 0 {
		return model.CheckResult{Status: model.StatusCrit, Meta: map[string]any{"reason": "no_resolver"}}
	}

	qtype, ok := dns.StringToType[svc.Params.DNS.RecordType]
	if !ok {
		qtype = dns.TypeA
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = true

	client := new(dns.Client)
	if deadline, hasDeadline := ctx.Deadline(); hasDeadline {
		client.Timeout = time.Until(deadline)
	}

	server := net.JoinHostPort(resolvConf.Servers[0], resolvConf.Port)

	start := time.Now()
	reply, _, err := client.ExchangeContext(ctx, msg, server)
	latency := time.Since(start)
	if err != nil {
		reason := "no_reply"
		if ctx.Err() != nil {
			reason = "timeout"
		}
		return model.CheckResult{Status: model.StatusCrit, Meta: map[string]any{"reason": reason, "error": err.Error(), "record_type": svc.Params.DNS.RecordType}}
	}

	latencyMS := latency.Milliseconds()
	meta := map[string]any{
		"record_type":  svc.Params.DNS.RecordType,
		"answer_count": len(reply.Answer),
		"answers":      answerStrings(reply.Answer),
		"resolver":     server,
	}

	switch reply.Rcode {
	case dns.RcodeSuccess:
		if len(reply.Answer) == 0 {
			return model.CheckResult{Status: model.StatusCrit, LatencyMS: latencyMS, Meta: metaWith(meta, "reason", "empty_answer")}
		}
	case dns.RcodeNameError:
		return model.CheckResult{Status: model.StatusCrit, LatencyMS: latencyMS, Meta: metaWith(meta, "reason", "nxdomain")}
	case dns.RcodeServerFailure:
		return model.CheckResult{Status: model.StatusCrit, LatencyMS: latencyMS, Meta: metaWith(meta, "reason", "servfail")}
	default:
		return model.CheckResult{Status: model.StatusCrit, LatencyMS: latencyMS, Meta: metaWith(meta, "reason", fmt.Sprintf("rcode_%d", reply.Rcode))}
	}

	if thresholds.DNSWarnMS > 0 && latencyMS >= thresholds.DNSWarnMS {
		meta["slow"] = "yes"
		return model.CheckResult{Status: model.StatusWarn, LatencyMS: latencyMS, Meta: meta}
	}
	return model.CheckResult{Status: model.StatusOK, LatencyMS: latencyMS, Meta: meta}
}

func metaWith(m map[string]any, k string, v any) map[string]any {
	m[k] = v
	return m
}

// maxAnswersRecorded caps the answer list recorded in meta (spec §4.3:
// "the answer set ... truncated at a reasonable cap").
const maxAnswersRecorded = 10

func answerStrings(rrs []dns.RR) []string {
	n := len(rrs)
	if n > maxAnswersRecorded {
		n = maxAnswersRecorded
	}
	out := make([]string, 0, n)
	for _, rr := range rrs[:n] {
		switch r := rr.(type) {
		case *dns.A:
			out = append(out, r.A.String())
		case *dns.AAAA:
			out = append(out, r.AAAA.String())
		case *dns.CNAME:
			out = append(out, r.Target)
		default:
			out = append(out, rr.String())
		}
	}
	return out
}
