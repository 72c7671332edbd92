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

// Package render implements the four output-format dialects of §4.3
// behind a single Renderer interface: begin-query, begin-row,
// output(value) per column, end-row, end-query.
package render

import (
	"github.com/Checkmk/checkmk-sub006/internal/column"
)

// Renderer drives one response body. Callers invoke the methods in
// strict BeginQuery / (BeginRow / Output* / EndRow)* / EndQuery order.
type Renderer interface {
	BeginQuery()
	BeginRow()
	Output(v column.Value)
	EndRow()
	EndQuery()

	// Bytes returns the body accumulated so far; it is the complete
	// body only after EndQuery.
	Bytes() []byte
}

// Separators groups the four byte separators §4.2's Separators header
// configures, defaulting to the broken-csv legacy values (§4.3).
type Separators struct {
	Dataset     byte
	Field       byte
	List        byte
	HostService byte
}

// DefaultSeparators matches the source's broken-csv defaults: newline
// between rows, semicolon between fields, comma within lists, pipe
// between host and service name components.
func DefaultSeparators() Separators {
	return Separators{Dataset: '\n', Field: ';', List: ',', HostService: '|'}
}

// New builds the renderer for format, wiring column headers in if
// headers is non-empty.
func New(format Format, sep Separators, headers []string) Renderer {
	switch format {
	case FormatCSV:
		return newCSVRenderer(sep, headers, true)
	case FormatJSON:
		return newStructuredRenderer(headers, false)
	case FormatPython:
		return newStructuredRenderer(headers, true)
	default:
		return newCSVRenderer(sep, headers, false)
	}
}

// Format is one of the four renderer dialects (§4.3).
type Format int

const (
	FormatBrokenCSV Format = iota
	FormatCSV
	FormatJSON
	FormatPython
)

// ParseFormat maps the wire-level OutputFormat token (§4.2) to a Format.
func ParseFormat(tok string) (Format, bool) {
	switch tok {
	case "CSV":
		return FormatBrokenCSV, true
	case "csv":
		return FormatCSV, true
	case "json":
		return FormatJSON, true
	case "python", "python3":
		return FormatPython, true
	default:
		return 0, false
	}
}
