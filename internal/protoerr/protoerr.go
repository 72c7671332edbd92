// Copyright 2024-2025 Andres Morey
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

// Package protoerr carries the §7 error kinds as a typed error that
// the socket response framer (§4.3, §6) can read a status code off
// without string matching.
package protoerr

import "fmt"

// Status mirrors the wire-level status codes of §6.
type Status int

const (
	StatusOK                 Status = 200
	StatusInvalidHeader      Status = 400
	StatusNotFound           Status = 404
	StatusPayloadTooLarge    Status = 413
	StatusIncompleteRequest  Status = 451
	StatusInvalidRequest     Status = 452
	StatusBadGateway         Status = 502
)

// Error is a §7 error kind carrying a human-readable message.
type Error struct {
	status Status
	msg    string
}

func (e *Error) Error() string { return e.msg }

// StatusCode returns the wire-level status this error maps to.
func (e *Error) StatusCode() Status { return e.status }

func InvalidRequest(format string, args ...any) *Error {
	return &Error{status: StatusInvalidRequest, msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{status: StatusNotFound, msg: fmt.Sprintf(format, args...)}
}

func IncompleteRequest(format string, args ...any) *Error {
	return &Error{status: StatusIncompleteRequest, msg: fmt.Sprintf(format, args...)}
}

func PayloadTooLarge(format string, args ...any) *Error {
	return &Error{status: StatusPayloadTooLarge, msg: fmt.Sprintf(format, args...)}
}

func BadGateway(format string, args ...any) *Error {
	return &Error{status: StatusBadGateway, msg: fmt.Sprintf(format, args...)}
}

func InvalidHeader(format string, args ...any) *Error {
	return &Error{status: StatusInvalidHeader, msg: fmt.Sprintf(format, args...)}
}

// StatusOf extracts the wire status code from any error, defaulting to
// invalid-request for untyped errors surfaced during parsing (§7).
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	if pe, ok := err.(*Error); ok {
		return pe.StatusCode()
	}
	return StatusInvalidRequest
}
