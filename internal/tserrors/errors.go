/*
Copyright 2026 The PulseWave Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package tserrors is the error taxonomy shared by the planner and the
// record builder. It mirrors vitess's vt/vterrors: a small State-like enum
// plus a wrapped-error struct, instead of a pile of sentinel errors.
package tserrors

import (
	"errors"
	"fmt"
)

// Code classifies why an operation failed. It does not carry policy (retry,
// fatal, programming error) on its own; see spec.md §7 for the policy table.
type Code int

const (
	// Undefined is the zero value; New never produces it.
	Undefined Code = iota

	// BadQuery is raised by the planner and shard resolver for queries that
	// cannot be planned: missing shard-key filters, non-equality filters on
	// shard-key columns, or a dataset with no shard-key columns and no
	// explicit shard override.
	BadQuery

	// ShardsUnavailable is raised by the dispatcher binder when a resolved
	// shard has no assigned coordinator.
	ShardsUnavailable

	// RecordTooLarge is raised by the record builder when a single record
	// cannot fit in an empty container of the configured size.
	RecordTooLarge

	// FieldOrderViolation is a record-builder programming error: an add*
	// call arrived out of the field order the schema declares.
	FieldOrderViolation

	// UnsupportedColumnType is a record-builder (or plan conversion)
	// programming error: a value or selector variant has no defined
	// encoding.
	UnsupportedColumnType
)

func (c Code) String() string {
	switch c {
	case BadQuery:
		return "BadQuery"
	case ShardsUnavailable:
		return "ShardsUnavailable"
	case RecordTooLarge:
		return "RecordTooLarge"
	case FieldOrderViolation:
		return "FieldOrderViolation"
	case UnsupportedColumnType:
		return "UnsupportedColumnType"
	default:
		return "Undefined"
	}
}

// Error is the concrete error type produced by New/Wrap. Callers should not
// construct it directly; use New or Wrap so Code is always set deliberately.
type Error struct {
	Code Code
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.msg)
}

func (e *Error) Unwrap() error { return e.err }

// New builds an Error with the given code and a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error with the given code, a formatted message, and an
// underlying cause preserved for errors.Is/errors.As and Unwrap.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, msg: fmt.Sprintf(format, args...), err: err}
}

// HasCode reports whether err is (or wraps) a *Error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf extracts the Code of err if it is (or wraps) an *Error, or
// Undefined otherwise. Callers that only have an error and need to label a
// metric or log line by failure kind use this instead of a type switch.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Undefined
}
