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

// Package parsedquery defines the fully-structured query object the
// request parser (§4.2) produces and both the table registry (§4.7)
// and query engine (§4.4) consume. It is its own package so that
// neither depends on the other to exchange this shape.
package parsedquery

import (
	"time"

	"github.com/Checkmk/checkmk-sub006/internal/authz"
	"github.com/Checkmk/checkmk-sub006/internal/column"
	"github.com/Checkmk/checkmk-sub006/internal/filter"
)

// OutputFormat is one of the four renderer dialects (§4.3).
type OutputFormat int

const (
	FormatBrokenCSV OutputFormat = iota
	FormatCSV
	FormatJSON
	FormatPython
)

// ResponseHeaderMode controls whether a fixed16 status header precedes
// the body (§4.3, §6).
type ResponseHeaderMode int

const (
	ResponseHeaderOff ResponseHeaderMode = iota
	ResponseHeaderFixed16
)

// StatsColumn is one `Stats:` header: either a counting predicate or
// an aggregation over a column (§4.2 "Stats").
type StatsColumn struct {
	Name string // explicit name, or "" to fall back to stats_N

	// Counting form: Filter is non-nil and Aggregation is zero value.
	Filter filter.Filter

	// Aggregation form.
	Aggregation AggregationKind
	Column      column.Column
}

type AggregationKind int

const (
	AggNone AggregationKind = iota
	AggSum
	AggMin
	AggMax
	AggAvg
	AggStd
	AggSumInv
	AggAvgInv
)

// OrderDirective is one `OrderBy:` header (§4.2).
type OrderDirective struct {
	Column     column.Column
	DictKey    string // optional ".key" into a dict column
	Descending bool
}

// DisplayOptions groups the rendering-related headers of §4.2.
type DisplayOptions struct {
	ColumnHeaders  bool
	FieldSep       byte
	DatasetSep     byte
	ListSep        byte
	HostServiceSep byte
	Format         OutputFormat
	ResponseHeader ResponseHeaderMode
	KeepAlive      bool
}

// WaitParams groups the §4.8 wait/trigger headers.
type WaitParams struct {
	Condition filter.Filter
	Trigger   string
	TimeoutMS int
	Object    string // resolved via the table's default-row lookup
}

// Limits groups the §4.2 Limit/Timelimit headers.
type Limits struct {
	RowLimit   int  // 0 means unlimited
	HasLimit   bool
	Deadline   time.Time
	HasDeadline bool
}

// ParsedQuery is the output of the request parser (§3 "Parsed query").
type ParsedQuery struct {
	TableName string

	Columns      []column.Column
	RowFilter    filter.Filter
	Stats        []StatsColumn
	OrderBy      []OrderDirective
	Display      DisplayOptions
	Limits       Limits
	Wait         WaitParams
	User         authz.User
	TZOffset     int

	// ParseErrors accumulates every header-level error encountered
	// while parsing (§4.2, §7): reported once before the first row.
	ParseErrors []error
}

// HasStats reports whether this query aggregates instead of rendering
// raw rows (§4.4 "Row processing").
func (q *ParsedQuery) HasStats() bool { return len(q.Stats) > 0 }
