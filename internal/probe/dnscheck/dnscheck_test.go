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

package dnscheck

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alabtor75/globalnet-monitor-core/internal/config"
	"github.com/alabtor75/globalnet-monitor-core/internal/model"
)

func TestRun_MissingParamsIsHardFailure(t *testing.T) {
	res := Runner{}.Run(context.Background(), model.ServiceSpec{}, model.HostSpec{}, config.TimeoutConfig{}, config.Thresholds{})
	require.Equal(t, model.StatusCrit, res.Status)
	require.Equal(t, "missing_params", res.Meta["reason"])
}

func TestRun_EmptyNameIsHardFailure(t *testing.T) {
	svc := model.ServiceSpec{Params: model.CheckParams{DNS: &model.DNSParams{Name: "", RecordType: "A"}}}
	res := Runner{}.Run(context.Background(), svc, model.HostSpec{}, config.TimeoutConfig{}, config.Thresholds{})
	require.Equal(t, model.StatusCrit, res.Status)
}

func TestRun_EmptyNameFallsBackToHostAddress(t *testing.T) {
	if resolvConfErr != nil {
		t.Skip("no resolver configured in this environment")
	}
	svc := model.ServiceSpec{Params: model.CheckParams{DNS: &model.DNSParams{Name: "", RecordType: "A"}}}
	host := model.HostSpec{Address: "example.com"}
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	res := Runner{}.Run(ctx, svc, host, config.TimeoutConfig{}, config.Thresholds{})
	require.NotEqual(t, "missing_params", res.Meta["reason"])
}
