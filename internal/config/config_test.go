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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alabtor75/globalnet-monitor-core/internal/model"
)

const mainYAML = `
region:
  fallback: us-east
db:
  dsn: postgres://localhost/globalnet
  pool_mincached: 1
  pool_maxcached: 5
  pool_maxconnections: 10
collector:
  interval_sec: 30
  max_workers: 4
`

const hostsYAML = `
- host_id: web-1
  address: example.com
`

func writeTemp(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_ValidSnapshot(t *testing.T) {
	dir := t.TempDir()
	mainPath := writeTemp(t, dir, "main.yaml", mainYAML)
	hostsPath := writeTemp(t, dir, "hosts.yaml", hostsYAML)
	servicesPath := writeTemp(t, dir, "services.yaml", `
- service_id: web-ping
  host_id: web-1
  type: ping
- service_id: web-http
  host_id: web-1
  type: http
  params:
    url: https://example.com/health
`)

	snap, warnings, err := Load(mainPath, hostsPath, servicesPath)
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Len(t, snap.Services, 2)
	require.Equal(t, model.CheckHTTP, snap.Services[1].Type)
	require.Equal(t, "https://example.com/health", snap.Services[1].Params.HTTP.URL)
	require.True(t, snap.Services[0].Enabled)
}

func TestLoad_RejectsUnknownHostReference(t *testing.T) {
	dir := t.TempDir()
	mainPath := writeTemp(t, dir, "main.yaml", mainYAML)
	hostsPath := writeTemp(t, dir, "hosts.yaml", hostsYAML)
	servicesPath := writeTemp(t, dir, "services.yaml", `
- service_id: orphan
  host_id: does-not-exist
  type: ping
`)

	_, _, err := Load(mainPath, hostsPath, servicesPath)
	require.Error(t, err)
}

func TestLoad_RejectsUnknownParamField(t *testing.T) {
	dir := t.TempDir()
	mainPath := writeTemp(t, dir, "main.yaml", mainYAML)
	hostsPath := writeTemp(t, dir, "hosts.yaml", hostsYAML)
	servicesPath := writeTemp(t, dir, "services.yaml", `
- service_id: web-http
  host_id: web-1
  type: http
  params:
    url: https://example.com/health
    bogus_field: oops
`)

	_, _, err := Load(mainPath, hostsPath, servicesPath)
	require.Error(t, err)
}

func TestLoad_RejectsDuplicateServiceID(t *testing.T) {
	dir := t.TempDir()
	mainPath := writeTemp(t, dir, "main.yaml", mainYAML)
	hostsPath := writeTemp(t, dir, "hosts.yaml", hostsYAML)
	servicesPath := writeTemp(t, dir, "services.yaml", `
- service_id: dup
  host_id: web-1
  type: ping
- service_id: dup
  host_id: web-1
  type: ping
`)

	_, _, err := Load(mainPath, hostsPath, servicesPath)
	require.Error(t, err)
}

func TestLoad_WarnsOnLowInterval(t *testing.T) {
	dir := t.TempDir()
	mainPath := writeTemp(t, dir, "main.yaml", `
region:
  fallback: us-east
db:
  dsn: postgres://localhost/globalnet
  pool_mincached: 1
  pool_maxcached: 5
  pool_maxconnections: 10
collector:
  interval_sec: 3
  max_workers: 4
`)
	hostsPath := writeTemp(t, dir, "hosts.yaml", hostsYAML)
	servicesPath := writeTemp(t, dir, "services.yaml", `
- service_id: web-ping
  host_id: web-1
  type: ping
`)

	_, warnings, err := Load(mainPath, hostsPath, servicesPath)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
}

func TestLoad_DisabledServiceIsHonored(t *testing.T) {
	dir := t.TempDir()
	mainPath := writeTemp(t, dir, "main.yaml", mainYAML)
	hostsPath := writeTemp(t, dir, "hosts.yaml", hostsYAML)
	servicesPath := writeTemp(t, dir, "services.yaml", `
- service_id: web-ping
  host_id: web-1
  type: ping
  enabled: false
`)

	snap, _, err := Load(mainPath, hostsPath, servicesPath)
	require.NoError(t, err)
	require.False(t, snap.Services[0].Enabled)
}
