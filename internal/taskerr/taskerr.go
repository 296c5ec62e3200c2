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

// Package taskerr defines the closed error-kind taxonomy shared by the
// Technical Agent, Domain Agent, and their HTTP transports, plus a thin
// structured-logging helper around log/slog.
package taskerr

import (
	"errors"
	"fmt"
)

// Kind is a closed set of error classifications. Every error that crosses a
// component boundary is tagged with exactly one Kind.
type Kind string

const (
	MissingCustomerContext Kind = "MissingCustomerContext"
	NoToolsDiscovered      Kind = "NoToolsDiscovered"
	PlanUnavailable        Kind = "PlanUnavailable"
	InvalidParameters      Kind = "InvalidParameters"
	UpstreamError          Kind = "UpstreamError"
	Timeout                Kind = "Timeout"
	ServerUnreachable      Kind = "ServerUnreachable"
	ProtocolMismatch       Kind = "ProtocolMismatch"
	LLMParseError          Kind = "LLMParseError"
	Overloaded             Kind = "Overloaded"
	PromptError            Kind = "PromptError"
)

// retryable records, per Kind, whether a fresh attempt of the same call is
// worth making. This mirrors §7 of the specification's propagation policy
// table exactly.
var retryable = map[Kind]bool{
	MissingCustomerContext: false,
	NoToolsDiscovered:      false,
	PlanUnavailable:        false,
	InvalidParameters:      false,
	UpstreamError:          true,
	Timeout:                true,
	ServerUnreachable:      true,
	ProtocolMismatch:       false,
	LLMParseError:          false,
	Overloaded:             false,
	PromptError:            false,
}

// fatal records whether the Kind is fatal to the task that produced it (as
// opposed to being encodable as a partial, non-fatal per-step failure).
var fatal = map[Kind]bool{
	MissingCustomerContext: true,
	NoToolsDiscovered:      true,
	PlanUnavailable:        true,
	InvalidParameters:      false,
	UpstreamError:          false,
	Timeout:                false,
	ServerUnreachable:      false,
	ProtocolMismatch:       true,
	LLMParseError:          false,
	Overloaded:             true,
	PromptError:            true,
}

// Error is a Kind-tagged error with an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt at the same operation is policy
// permitted for this error's Kind.
func (e *Error) Retryable() bool {
	return retryable[e.Kind]
}

// Fatal reports whether this error is fatal to the task that produced it.
func (e *Error) Fatal() bool {
	return fatal[e.Kind]
}

// As extracts the first *Error found in err's wrap chain, via errors.As.
func As(err error) (*Error, bool) {
	var te *Error
	ok := errors.As(err, &te)
	return te, ok
}

// KindOf returns the Kind of err if it is (or wraps) a *Error, and
// UpstreamError otherwise — callers at a wire boundary need some Kind to
// report even for errors taskerr never produced directly.
func KindOf(err error) Kind {
	if te, ok := As(err); ok {
		return te.Kind
	}
	return UpstreamError
}
