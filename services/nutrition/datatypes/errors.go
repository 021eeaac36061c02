// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"fmt"
)

// =============================================================================
// Error Taxonomy
// =============================================================================

// ErrorKind classifies every failure the orchestration engine can surface.
//
// # Description
//
// Each public operation returns either a payload or an *Error carrying one of
// these kinds. Callers branch on the kind via errors.Is against the exported
// sentinels (ErrNotFound etc.) rather than string matching.
type ErrorKind string

const (
	// KindNotFound means the user id is not present in the registry.
	KindNotFound ErrorKind = "not_found"

	// KindAlreadyExists means a registration was attempted for an id that
	// already has a profile.
	KindAlreadyExists ErrorKind = "already_exists"

	// KindInvalidSensorData means the sensor pipeline rejected the inbound
	// payload as malformed. The operation aborts without mutating state
	// beyond the last-activity touch.
	KindInvalidSensorData ErrorKind = "invalid_sensor_data"

	// KindInvalidReportType means the report window key was not one of
	// daily, weekly, or monthly.
	KindInvalidReportType ErrorKind = "invalid_report_type"

	// KindUpstreamFailure means a collaborator call failed or timed out.
	// The failing collaborator's name is attached to the error.
	KindUpstreamFailure ErrorKind = "upstream_failure"
)

// Error is the discriminated error type shared by all engine components.
//
// # Description
//
// Error pairs an ErrorKind with an optional collaborator identity and an
// optional wrapped cause. It supports the errors.Is / errors.As protocols:
// two *Error values match when their kinds match, so sentinel comparison
// works regardless of the message or cause.
//
// # Thread Safety
//
// Error values are immutable after construction.
type Error struct {
	// Kind is the taxonomy bucket for this failure.
	Kind ErrorKind

	// Collaborator names the failing collaborator for upstream failures.
	// Empty for local failures.
	Collaborator string

	// Message is the human-readable description.
	Message string

	// Cause is the wrapped underlying error, if any.
	Cause error
}

// Sentinel values for errors.Is matching. Only the Kind participates in
// comparison; messages on concrete errors differ.
var (
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "user is not registered"}
	ErrAlreadyExists     = &Error{Kind: KindAlreadyExists, Message: "user is already registered"}
	ErrInvalidSensorData = &Error{Kind: KindInvalidSensorData, Message: "invalid sensor data"}
	ErrInvalidReportType = &Error{Kind: KindInvalidReportType, Message: "invalid report type"}
	ErrUpstreamFailure   = &Error{Kind: KindUpstreamFailure, Message: "collaborator call failed"}
)

// Error returns the formatted error string.
func (e *Error) Error() string {
	switch {
	case e.Collaborator != "" && e.Cause != nil:
		return fmt.Sprintf("%s [%s]: %s: %v", e.Kind, e.Collaborator, e.Message, e.Cause)
	case e.Collaborator != "":
		return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Collaborator, e.Message)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// Unwrap exposes the underlying cause to errors.Is / errors.As chains.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error of the same kind.
//
// This makes errors.Is(err, ErrNotFound) match any not-found error
// regardless of which user id or message it carries.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// =============================================================================
// Constructors
// =============================================================================

// NotFound returns a KindNotFound error for the given user id.
func NotFound(userID string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("user %q is not registered", userID),
	}
}

// AlreadyExists returns a KindAlreadyExists error for the given user id.
func AlreadyExists(userID string) *Error {
	return &Error{
		Kind:    KindAlreadyExists,
		Message: fmt.Sprintf("user %q is already registered", userID),
	}
}

// InvalidSensorData returns a KindInvalidSensorData error wrapping cause.
//
// The sensor collaborator reports validation failures through this
// constructor so the pipeline can distinguish malformed input from a
// collaborator outage.
func InvalidSensorData(message string, cause error) *Error {
	if message == "" {
		message = "invalid sensor data"
	}
	return &Error{
		Kind:    KindInvalidSensorData,
		Message: message,
		Cause:   cause,
	}
}

// InvalidReportType returns a KindInvalidReportType error naming the
// unrecognized report window key.
func InvalidReportType(reportType string) *Error {
	return &Error{
		Kind:    KindInvalidReportType,
		Message: fmt.Sprintf("invalid report type: %q", reportType),
	}
}

// UpstreamFailure returns a KindUpstreamFailure error attributed to the
// named collaborator, wrapping the underlying cause.
func UpstreamFailure(collaborator string, cause error) *Error {
	return &Error{
		Kind:         KindUpstreamFailure,
		Collaborator: collaborator,
		Message:      "collaborator call failed",
		Cause:        cause,
	}
}
