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

package logging

import (
	"bytes"
	"testing"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultLevelAllowsInfoNotDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := level.NewFilter(log.NewLogfmtLogger(&buf), levelOption("info"))

	Debug(logger, "msg", "should be filtered")
	require.Empty(t, buf.String())

	Info(logger, "msg", "should appear")
	require.Contains(t, buf.String(), "should appear")
}

func TestCritical_LogsAtErrorWithSeverityField(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewLogfmtLogger(&buf)

	require.NoError(t, Critical(logger, "msg", "disk full"))
	require.Contains(t, buf.String(), "severity=critical")
	require.Contains(t, buf.String(), "disk full")
}
