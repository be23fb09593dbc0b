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

package api

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueryInt_DefaultsOnMissingOrInvalid(t *testing.T) {
	for _, raw := range []string{"", "not-a-number", "-5", "0"} {
		req := httptest.NewRequest("GET", "/api/last?limit="+raw, nil)
		require.Equal(t, 100, queryInt(req, "limit", 100))
	}
}

func TestQueryInt_ParsesValidValue(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/last?limit=25", nil)
	require.Equal(t, 25, queryInt(req, "limit", 100))
}
