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

// Package collerr defines the collector's error taxonomy (spec §7): which
// failures are fatal to the process, which are retryable, and which are
// swallowed and converted into a classified check result.
package collerr

import "github.com/pkg/errors"

// Kind classifies an error for the purposes of process exit codes and
// propagation policy.
type Kind int

const (
	// KindFatalConfig means startup cannot proceed: missing/malformed
	// config, unresolvable host references. Exit code 1.
	KindFatalConfig Kind = iota
	// KindFatalDatastore means the writer reached its bound of consecutive
	// failed connection-acquire attempts. Exit code 2.
	KindFatalDatastore
	// KindTransientDatastore means a single insert failed but is
	// retryable.
	KindTransientDatastore
	// KindProbeHardFailure means a probe reported an unambiguous down
	// signal (refused, timeout, resolution failure, handshake failure).
	KindProbeHardFailure
	// KindProbeDegraded means a probe reported a soft/latency condition.
	KindProbeDegraded
	// KindInternalProbeError means a probe implementation panicked or
	// returned an unexpected error; it is converted to a hard failure
	// and does not propagate.
	KindInternalProbeError
	// KindIdentityResolution means a step of identity resolution failed
	// and fell through to the next source.
	KindIdentityResolution
)

// Error wraps a cause with a Kind so the scheduler and writer can classify
// it with errors.As without parsing strings.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return "collerr: unknown error"
	}
	return e.cause.Error()
}

func (e *Error) Unwrap() error { return e.cause }

// Wrap annotates err with kind and a message, in the teacher's pkg/errors
// style (errors.Wrap preserves the original error as the cause).
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, cause: errors.Wrap(err, msg)}
}

// Is reports whether err (or something it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}
