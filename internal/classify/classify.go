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

// Package classify turns a raw probe CheckResult into the status that is
// actually persisted, applying the two-strike confirmation rule from spec
// §4.4: a single hard failure is reported WARN; only a second consecutive
// hard failure for the same service is promoted to CRIT. An already-
// expired TLS certificate is the one case that bypasses confirmation.
package classify

import (
	"sync"

	"github.com/alabtor75/globalnet-monitor-core/internal/model"
)

// Classifier holds the per-service consecutive-hard-failure streak. It is
// safe for concurrent use: the scheduler's worker pool classifies results
// from multiple services in parallel.
type Classifier struct {
	mu      sync.Mutex
	streaks map[string]int
}

func New() *Classifier {
	return &Classifier{streaks: make(map[string]int)}
}

// Classify returns the status to persist for svc's latest raw result,
// updating the service's streak as a side effect.
func (c *Classifier) Classify(svc model.ServiceSpec, res model.CheckResult) model.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if res.Status == model.StatusCrit && bypassesTwoStrike(res) {
		// Leave the streak untouched: an already-expired certificate isn't
		// a recovery, so a following hard failure should continue the
		// existing streak rather than restart at strike 1.
		return model.StatusCrit
	}

	switch res.Status {
	case model.StatusCrit:
		c.streaks[svc.ServiceID]++
		if c.streaks[svc.ServiceID] <= 1 {
			return model.StatusWarn
		}
		return model.StatusCrit

	case model.StatusWarn:
		// Degraded (soft/latency) results are persisted as-is and never
		// touch the hard-failure streak.
		return model.StatusWarn

	default:
		c.streaks[svc.ServiceID] = 0
		return model.StatusOK
	}
}

// Reset clears a single service's streak, so its next hard failure counts
// as strike 1 again.
func (c *Classifier) Reset(serviceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.streaks, serviceID)
}

func bypassesTwoStrike(res model.CheckResult) bool {
	if res.Meta == nil {
		return false
	}
	b, _ := res.Meta["bypass_two_strike"].(bool)
	return b
}
