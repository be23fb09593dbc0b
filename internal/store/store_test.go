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

package store

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable_ConnectionExceptionIsRetryable(t *testing.T) {
	err := &pgconn.PgError{Code: "08006"}
	require.True(t, isRetryable(err))
}

func TestIsRetryable_SyntaxErrorIsNotRetryable(t *testing.T) {
	err := &pgconn.PgError{Code: "42601"}
	require.False(t, isRetryable(err))
}

func TestIsRetryable_ConstraintViolationIsNotRetryable(t *testing.T) {
	err := &pgconn.PgError{Code: "23505"}
	require.False(t, isRetryable(err))
}

func TestIsRetryable_UnclassifiedErrorDefaultsRetryable(t *testing.T) {
	require.True(t, isRetryable(errors.New("connection reset by peer")))
}

func TestIsRetryable_NilIsNotRetryable(t *testing.T) {
	require.False(t, isRetryable(nil))
}
