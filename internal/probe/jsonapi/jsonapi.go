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

// Package jsonapi implements the "json_api" check (spec §4.3): a GET
// request whose body is parsed as JSON and, when configured, evaluated
// against a dotted field path and expected value.
package jsonapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alabtor75/globalnet-monitor-core/internal/config"
	"github.com/alabtor75/globalnet-monitor-core/internal/model"
)

// bodySnippetCap is the maximum number of characters of a failing response
// body recorded in meta (spec §4.3: "the first <= 256 characters of the
// body").
const bodySnippetCap = 256

type Runner struct {
	Client *http.Client
}

func New() Runner {
	return Runner{Client: &http.Client{}}
}

func (r Runner) Run(ctx context.Context, svc model.ServiceSpec, host model.HostSpec, timeouts config.TimeoutConfig, thresholds config.Thresholds) model.CheckResult {
	p := svc.Params.JSONAPI
	if p == nil || p.URL == "" {
		return model.CheckResult{Status: model.StatusCrit, Meta: map[string]any{"reason": "missing_params"}}
	}

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return model.CheckResult{Status: model.StatusCrit, Meta: map[string]any{"reason": "bad_request", "error": err.Error()}}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		reason := "connection_failed"
		if ctx.Err() != nil {
			reason = "timeout"
		}
		return model.CheckResult{Status: model.StatusCrit, Meta: map[string]any{"reason": reason, "error": err.Error()}}
	}
	defer resp.Body.Close()

	latencyMS := latency.Milliseconds()
	meta := map[string]any{"http_status": resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode >= 400 {
		meta["reason"] = "http_error"
		meta["body"] = snippet(raw)
		return model.CheckResult{Status: model.StatusCrit, LatencyMS: latencyMS, Meta: meta}
	}

	var body interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		meta["reason"] = "invalid_json"
		meta["error"] = err.Error()
		meta["body"] = snippet(raw)
		return model.CheckResult{Status: model.StatusCrit, LatencyMS: latencyMS, Meta: meta}
	}

	if p.ExpectField != "" {
		val, ok := lookupField(body, p.ExpectField)
		if !ok {
			meta["reason"] = "field_missing"
			meta["expect_field"] = p.ExpectField
			meta["body"] = snippet(raw)
			return model.CheckResult{Status: model.StatusCrit, LatencyMS: latencyMS, Meta: meta}
		}
		meta["matched_field"] = p.ExpectField
		if p.ExpectEquals != "" && toString(val) != p.ExpectEquals {
			meta["reason"] = "field_mismatch"
			meta["actual_value"] = toString(val)
			meta["body"] = snippet(raw)
			return model.CheckResult{Status: model.StatusCrit, LatencyMS: latencyMS, Meta: meta}
		}
	}

	if thresholds.JSONWarnMS > 0 && latencyMS >= thresholds.JSONWarnMS {
		meta["slow"] = "yes"
		return model.CheckResult{Status: model.StatusWarn, LatencyMS: latencyMS, Meta: meta}
	}
	return model.CheckResult{Status: model.StatusOK, LatencyMS: latencyMS, Meta: meta}
}

// lookupField walks a dotted path (e.g. "data.status") through decoded
// JSON, indexing into maps only; arrays are not addressable by this path
// syntax (spec §4.3 scopes expect_field to object traversal).
func lookupField(body interface{}, path string) (interface{}, bool) {
	cur := body
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// snippet truncates a failing response body to bodySnippetCap characters.
func snippet(raw []byte) string {
	r := []rune(string(raw))
	if len(r) > bodySnippetCap {
		return string(r[:bodySnippetCap])
	}
	return string(r)
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
