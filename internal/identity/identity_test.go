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

package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"
)

func TestResolve_EnvTakesPriority(t *testing.T) {
	t.Setenv("GNM_REGION", "eu-west")
	t.Setenv("GNM_COUNTRY", "DE")

	r := NewResolver(log.NewNopLogger(), "")
	id := r.Resolve(context.Background(), "config-fallback")

	require.Equal(t, "eu-west", id.Region)
	require.Equal(t, "DE", id.Country)
	require.Equal(t, "env", id.Source)
}

func TestResolve_FallsThroughToGeoIP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"region":"ap-south","country":"IN","city":"Mumbai","ip":"203.0.113.9"}`))
	}))
	defer srv.Close()

	r := NewResolver(log.NewNopLogger(), srv.URL)
	id := r.Resolve(context.Background(), "config-fallback")

	require.Equal(t, "ap-south", id.Region)
	require.Equal(t, "geo", id.Source)
}

func TestResolve_FallsThroughToConfigOnGeoFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewResolver(log.NewNopLogger(), srv.URL)
	id := r.Resolve(context.Background(), "config-fallback")

	require.Equal(t, "config-fallback", id.Region)
	require.Equal(t, "config", id.Source)
}

func TestResolve_CachesAfterFirstCall(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"region":"ap-south"}`))
	}))
	defer srv.Close()

	r := NewResolver(log.NewNopLogger(), srv.URL)
	r.Resolve(context.Background(), "config-fallback")
	r.Resolve(context.Background(), "config-fallback")

	require.Equal(t, 1, calls)
}
