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

package sslcert

import (
	"context"
	"crypto/x509"
	"net"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alabtor75/globalnet-monitor-core/internal/config"
	"github.com/alabtor75/globalnet-monitor-core/internal/model"
)

func TestRun_ValidCertificate(t *testing.T) {
	srv := httptest.NewTLSServer(nil)
	defer srv.Close()

	_, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	svc := model.ServiceSpec{Params: model.CheckParams{SSLCert: &model.SSLCertParams{Port: port}}}
	host := model.HostSpec{Address: "127.0.0.1"}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	roots := x509.NewCertPool()
	roots.AddCert(srv.Certificate())

	res := Runner{Roots: roots}.Run(ctx, svc, host, config.TimeoutConfig{SSLCertSec: 2}, config.Thresholds{SSLCertWarnDays: 30})
	require.NotEqual(t, model.StatusCrit, res.Status)
	require.Contains(t, res.Meta, "days_until_expiry")
}

func TestRun_HandshakeFailureOnPlainTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	svc := model.ServiceSpec{Params: model.CheckParams{SSLCert: &model.SSLCertParams{Port: port}}}
	host := model.HostSpec{Address: "127.0.0.1"}

	res := Runner{}.Run(context.Background(), svc, host, config.TimeoutConfig{SSLCertSec: 2}, config.Thresholds{})
	require.Equal(t, model.StatusCrit, res.Status)
}
