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

// Package ping implements the "ping" check (spec §4.3): ICMP echo with
// latency-based WARN classification and an OS-level ping fallback when
// raw ICMP sockets are unavailable.
package ping

import (
	"context"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/alabtor75/globalnet-monitor-core/internal/config"
	"github.com/alabtor75/globalnet-monitor-core/internal/model"
)

var (
	privilegedOnce sync.Once
	privilegedOK   bool
)

// detectPrivileged probes once per process whether a privileged (raw
// socket) ICMP listener can be opened, the same one-shot-detection shape
// used for ICMP capability elsewhere in the ecosystem.
func detectPrivileged() bool {
	privilegedOnce.Do(func() {
		p, err := probing.NewPinger("127.0.0.1")
		if err != nil {
			return
		}
		p.SetPrivileged(true)
		p.Count = 1
		p.Timeout = 200 * time.Millisecond
		privilegedOK = p.Run() == nil
	})
	return privilegedOK
}

// Runner implements probe.Runner for the ping check type.
type Runner struct{}

func (Runner) Run(ctx context.Context, svc model.ServiceSpec, host model.HostSpec, timeouts config.TimeoutConfig, thresholds config.Thresholds) model.CheckResult {
	timeout := time.Duration(timeouts.PingSec) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	if host.Address == "" {
		return model.CheckResult{Status: model.StatusCrit, Meta: map[string]any{"reason": "unresolvable", "mode": "native"}}
	}

	latency, mode, err := runPing(ctx, host.Address, timeout)
	if err != nil {
		reason := "no_reply"
		if ctx.Err() != nil {
			reason = "timeout"
		}
		return model.CheckResult{Status: model.StatusCrit, Meta: map[string]any{"reason": reason, "mode": mode, "error": err.Error()}}
	}

	latencyMS := latency.Milliseconds()
	meta := map[string]any{"mode": mode}

	if latencyMS >= thresholds.PingVerySlowMS && thresholds.PingVerySlowMS > 0 {
		meta["slow"] = "very"
		return model.CheckResult{Status: model.StatusWarn, LatencyMS: latencyMS, Meta: meta}
	}
	if latencyMS >= thresholds.PingWarnMS && thresholds.PingWarnMS > 0 {
		meta["slow"] = "yes"
		return model.CheckResult{Status: model.StatusWarn, LatencyMS: latencyMS, Meta: meta}
	}
	return model.CheckResult{Status: model.StatusOK, LatencyMS: latencyMS, Meta: meta}
}

// runPing tries a native ICMP echo (privileged, then unprivileged) and
// falls back to the OS ping binary on permission failure, recording which
// mode produced the result (spec §4.3: "On permission-denied ... use an
// OS-level ping tool as fallback and record the mode in meta").
func runPing(ctx context.Context, addr string, timeout time.Duration) (time.Duration, string, error) {
	if detectPrivileged() {
		if d, err := nativePing(addr, timeout, true); err == nil {
			return d, "native_privileged", nil
		}
	}
	if d, err := nativePing(addr, timeout, false); err == nil {
		return d, "native_unprivileged", nil
	}
	d, err := commandPing(ctx, addr, timeout)
	return d, "os_command", err
}

func nativePing(addr string, timeout time.Duration, privileged bool) (time.Duration, error) {
	p, err := probing.NewPinger(addr)
	if err != nil {
		return 0, err
	}
	p.SetPrivileged(privileged)
	p.Count = 1
	p.Timeout = timeout
	if err := p.Run(); err != nil {
		return 0, err
	}
	stats := p.Statistics()
	if stats.PacketsRecv == 0 {
		return 0, errNoReply
	}
	return stats.AvgRtt, nil
}

var errNoReply = errNoReplyErr{}

type errNoReplyErr struct{}

func (errNoReplyErr) Error() string { return "no ICMP reply received" }

var rttPattern = regexp.MustCompile(`time[=<]([0-9.]+)\s*ms`)

// commandPing shells out to the system ping tool as a last resort,
// parsing the round-trip time from its output.
func commandPing(ctx context.Context, addr string, timeout time.Duration) (time.Duration, error) {
	countFlag := "-c"
	deadlineFlag := "-W"
	deadlineSecs := strconv.Itoa(int(timeout.Seconds()))
	if runtime.GOOS == "windows" {
		countFlag, deadlineFlag = "-n", "-w"
		deadlineSecs = strconv.Itoa(int(timeout.Milliseconds()))
	}

	cmd := exec.CommandContext(ctx, "ping", countFlag, "1", deadlineFlag, deadlineSecs, addr)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, err
	}

	m := rttPattern.FindStringSubmatch(string(out))
	if m == nil {
		return 0, errNoReply
	}
	ms, err := strconv.ParseFloat(strings.TrimSpace(m[1]), 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(ms * float64(time.Millisecond)), nil
}
