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

package ping

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alabtor75/globalnet-monitor-core/internal/config"
	"github.com/alabtor75/globalnet-monitor-core/internal/model"
)

func TestRun_UnresolvableHostIsHardFailure(t *testing.T) {
	res := Runner{}.Run(context.Background(), model.ServiceSpec{}, model.HostSpec{Address: ""}, config.TimeoutConfig{}, config.Thresholds{})
	require.Equal(t, model.StatusCrit, res.Status)
	require.Equal(t, "unresolvable", res.Meta["reason"])
}

func TestRTTPattern_ParsesLinuxAndDarwinStyles(t *testing.T) {
	for _, line := range []string{
		"64 bytes from 127.0.0.1: icmp_seq=1 ttl=64 time=0.042 ms",
		"64 bytes from 127.0.0.1: icmp_seq=0 ttl=64 time<1 ms",
	} {
		require.True(t, rttPattern.MatchString(line), line)
	}
}
