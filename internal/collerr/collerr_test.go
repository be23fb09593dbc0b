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

package collerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrap_PreservesKindAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindFatalDatastore, cause, "opening pool")

	require.True(t, Is(err, KindFatalDatastore))
	require.False(t, Is(err, KindFatalConfig))
	require.ErrorContains(t, err, "connection refused")
}

func TestWrap_NilErrorReturnsNil(t *testing.T) {
	require.NoError(t, Wrap(KindFatalConfig, nil, "should not matter"))
}

func TestIs_FalseForPlainError(t *testing.T) {
	require.False(t, Is(errors.New("plain"), KindFatalConfig))
}
