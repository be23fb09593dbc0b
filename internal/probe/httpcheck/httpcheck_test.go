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

package httpcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alabtor75/globalnet-monitor-core/internal/config"
	"github.com/alabtor75/globalnet-monitor-core/internal/model"
)

func TestRun_200IsOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := model.ServiceSpec{Params: model.CheckParams{HTTP: &model.HTTPParams{URL: srv.URL}}}
	res := New().Run(context.Background(), svc, model.HostSpec{}, config.TimeoutConfig{HTTPSec: 2}, config.Thresholds{})

	require.Equal(t, model.StatusOK, res.Status)
	require.Equal(t, http.StatusOK, res.Meta["http_status"])
}

func TestRun_500IsHardFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := model.ServiceSpec{Params: model.CheckParams{HTTP: &model.HTTPParams{URL: srv.URL}}}
	res := New().Run(context.Background(), svc, model.HostSpec{}, config.TimeoutConfig{HTTPSec: 2}, config.Thresholds{})

	require.Equal(t, model.StatusCrit, res.Status)
}

func TestRun_404IsWarn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	svc := model.ServiceSpec{Params: model.CheckParams{HTTP: &model.HTTPParams{URL: srv.URL}}}
	res := New().Run(context.Background(), svc, model.HostSpec{}, config.TimeoutConfig{HTTPSec: 2}, config.Thresholds{})

	require.Equal(t, model.StatusWarn, res.Status)
	require.Equal(t, http.StatusNotFound, res.Meta["http_status"])
}

func TestRun_MissingParams(t *testing.T) {
	res := New().Run(context.Background(), model.ServiceSpec{}, model.HostSpec{}, config.TimeoutConfig{}, config.Thresholds{})
	require.Equal(t, model.StatusCrit, res.Status)
}
