// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package errkind classifies errors the way the agent loop needs to dispatch
// on them: some are retried through adaptation, some surface immediately,
// some signal that the loop should ask the user instead of failing outright.
package errkind

import "errors"

// Kind is one of the error classes from the propagation policy.
type Kind string

const (
	// InvalidArgument means the caller passed malformed input. Never retried.
	InvalidArgument Kind = "invalid_argument"
	// NotFound means a referenced uuid is missing. Adaptation may retry.
	NotFound Kind = "not_found"
	// LLMFailure means the provider errored or returned unparseable output.
	LLMFailure Kind = "llm_failure"
	// ToolFailure means a tool call raised. Retried up to the adaptation cap.
	ToolFailure Kind = "tool_failure"
	// Blocked means shell policy rejected a command. Never retried.
	Blocked Kind = "blocked"
	// AskUser is not an error per se: the loop completed without automation.
	AskUser Kind = "ask_user"
	// Internal means unexpected state, e.g. a cycle slipped past validation.
	Internal Kind = "internal"
)

// Error wraps an underlying error with a Kind so callers can dispatch
// without string-matching messages.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with kind. Returns nil if err is nil.
func New(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Retryable reports whether the adaptation loop should retry an error of
// this kind (ToolFailure, LLMFailure, NotFound) rather than surface it
// immediately (InvalidArgument, Blocked, Internal).
func Retryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case ToolFailure, LLMFailure, NotFound:
		return true
	default:
		return false
	}
}
