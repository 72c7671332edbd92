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

// Package filter implements the filter algebra of §4.1: a sum type of
// column-filter / and / or / negate, with restriction accessors that
// let the query engine (§4.4) pick an index instead of scanning.
package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/Checkmk/checkmk-sub006/internal/column"
	"github.com/Checkmk/checkmk-sub006/internal/row"
)

// Filter is the common interface of every node in the filter tree
// (§3 "Filter tree"). Filters are immutable once constructed.
//
// The source's accepts(row, user, tz) also threads a user argument for
// authorization-aware columns. No built-in column needs user context
// at filter-evaluation time in this implementation — row-level
// authorization is a separate gate the query engine applies before a
// row ever reaches a filter (§4.4) — so Accepts only takes a timezone
// offset. Recorded as a resolved Open Question in DESIGN.md.
type Filter interface {
	Accepts(h row.Handle, tzOffset int) bool
	Negate() Filter

	// GreatestLowerBound returns the largest value the filter
	// guarantees excludes everything strictly below it, for the named
	// column, if derivable (§4.1).
	GreatestLowerBound(colName string, tzOffset int) (int64, bool)
	// LeastUpperBound is the symmetric upper-bound accessor.
	LeastUpperBound(colName string, tzOffset int) (int64, bool)
	// ValueSetLeastUpperBound returns the admissible small-integer
	// value set for colName, if derivable.
	ValueSetLeastUpperBound(colName string, tzOffset int) (mapset.Set[int], bool)
	// StringValueRestriction returns the literal colName must equal,
	// if the filter forces one.
	StringValueRestriction(colName string) (string, bool)
	// PartialFilter returns the conjunction of sub-filters mentioning
	// only columns accepted by keep, treating the rest as tautology.
	PartialFilter(keep func(colName string) bool) Filter
}

// Tautology is the filter that accepts every row (And{} per §3 invariant i).
var Tautology Filter = andFilter{}

// Contradiction is the filter that accepts no row (Or{} per §3 invariant i).
var Contradiction Filter = orFilter{}

// ColumnFilter is a leaf filter: a column, a relational operator, and
// the parsed literal right-hand side (§3 "column-filter").
type ColumnFilter struct {
	col  column.Column
	kind column.FilterKind
	op   column.Op
	rhs  string

	// parsed forms of rhs, populated by NewColumnFilter
	intRHS    int64
	hasIntRHS bool
	dblRHS    float64
	hasDblRHS bool
	re        *regexp.Regexp
}

// NewColumnFilter builds a column-typed filter the way
// Column.make-filter does in §4.1. It is a free function rather than
// a Column method so that column need not import filter (see
// column.Column's doc comment).
func NewColumnFilter(col column.Column, fk column.FilterKind, op column.Op, rhs string) (*ColumnFilter, error) {
	cf := &ColumnFilter{col: col, kind: fk, op: op, rhs: rhs}

	switch col.Type() {
	case column.KindInt, column.KindTime:
		if v, err := strconv.ParseInt(rhs, 10, 64); err == nil {
			cf.intRHS, cf.hasIntRHS = v, true
		}
	case column.KindDouble:
		if v, err := strconv.ParseFloat(rhs, 64); err == nil {
			cf.dblRHS, cf.hasDblRHS = v, true
		}
	}

	if op == column.OpMatch || op == column.OpNotMatch {
		re, err := regexp.Compile(rhs)
		if err != nil {
			return nil, fmt.Errorf("invalid regex %q: %w", rhs, err)
		}
		cf.re = re
	} else if op == column.OpMatchIC || op == column.OpNotMatchIC {
		re, err := regexp.Compile("(?i)" + rhs)
		if err != nil {
			return nil, fmt.Errorf("invalid regex %q: %w", rhs, err)
		}
		cf.re = re
	}

	return cf, nil
}

func (f *ColumnFilter) ColumnName() string { return f.col.Name() }

func (f *ColumnFilter) Negate() Filter {
	return &ColumnFilter{
		col: f.col, kind: f.kind, op: f.op.Negate(), rhs: f.rhs,
		intRHS: f.intRHS, hasIntRHS: f.hasIntRHS,
		dblRHS: f.dblRHS, hasDblRHS: f.hasDblRHS,
		re: f.re,
	}
}

func (f *ColumnFilter) Accepts(h row.Handle, tzOffset int) bool {
	v := f.col.Extract(h)
	return evalOp(f, v, tzOffset)
}

func evalOp(f *ColumnFilter, v column.Value, tzOffset int) bool {
	switch f.op {
	case column.OpMatch:
		return f.re.MatchString(stringOf(v))
	case column.OpNotMatch:
		return !f.re.MatchString(stringOf(v))
	case column.OpMatchIC:
		return f.re.MatchString(stringOf(v))
	case column.OpNotMatchIC:
		return !f.re.MatchString(stringOf(v))
	case column.OpEqualIC:
		return strings.EqualFold(stringOf(v), f.rhs)
	case column.OpNotEqualIC:
		return !strings.EqualFold(stringOf(v), f.rhs)
	}

	switch v.Kind {
	case column.KindInt:
		return compareInt(f.op, v.Int, f.intRHS, f.hasIntRHS)
	case column.KindTime:
		return compareInt(f.op, v.Time+int64(tzOffset), f.intRHS+int64(tzOffset), f.hasIntRHS)
	case column.KindDouble:
		return compareFloat(f.op, v.Dbl, f.dblRHS, f.hasDblRHS)
	case column.KindList:
		return evalListOp(f.op, v.List, f.rhs)
	default:
		return compareString(f.op, stringOf(v), f.rhs)
	}
}

func stringOf(v column.Value) string {
	switch v.Kind {
	case column.KindString:
		return v.Str
	case column.KindInt:
		return strconv.FormatInt(v.Int, 10)
	case column.KindTime:
		return strconv.FormatInt(v.Time, 10)
	case column.KindDouble:
		return strconv.FormatFloat(v.Dbl, 'g', -1, 64)
	default:
		return ""
	}
}

func compareInt(op column.Op, lhs, rhs int64, has bool) bool {
	if !has {
		return false
	}
	switch op {
	case column.OpEqual:
		return lhs == rhs
	case column.OpNotEqual:
		return lhs != rhs
	case column.OpLess:
		return lhs < rhs
	case column.OpGreaterOrEqual:
		return lhs >= rhs
	case column.OpGreater:
		return lhs > rhs
	case column.OpLessOrEqual:
		return lhs <= rhs
	default:
		return false
	}
}

func compareFloat(op column.Op, lhs, rhs float64, has bool) bool {
	if !has {
		return false
	}
	switch op {
	case column.OpEqual:
		return lhs == rhs
	case column.OpNotEqual:
		return lhs != rhs
	case column.OpLess:
		return lhs < rhs
	case column.OpGreaterOrEqual:
		return lhs >= rhs
	case column.OpGreater:
		return lhs > rhs
	case column.OpLessOrEqual:
		return lhs <= rhs
	default:
		return false
	}
}

func compareString(op column.Op, lhs, rhs string) bool {
	switch op {
	case column.OpEqual:
		return lhs == rhs
	case column.OpNotEqual:
		return lhs != rhs
	case column.OpLess:
		return lhs < rhs
	case column.OpGreaterOrEqual:
		return lhs >= rhs
	case column.OpGreater:
		return lhs > rhs
	case column.OpLessOrEqual:
		return lhs <= rhs
	default:
		return false
	}
}

// evalListOp reinterprets the relational operator as a bitmask/set
// operator over a list column, e.g. group membership (§4.1).
func evalListOp(op column.Op, list []string, rhs string) bool {
	set := mapset.NewThreadUnsafeSet(list...)
	needle := mapset.NewThreadUnsafeSet(rhs)

	switch op.AsBitmaskOp() {
	case column.BitmaskSuperset:
		return needle.IsSubset(set)
	case column.BitmaskNotSuperset:
		return !needle.IsSubset(set)
	case column.BitmaskSubset:
		return set.IsSubset(needle)
	case column.BitmaskNotSubset:
		return !set.IsSubset(needle)
	case column.BitmaskIntersects:
		return set.Contains(rhs)
	default: // disjoint
		return !set.Contains(rhs)
	}
}

func (f *ColumnFilter) GreatestLowerBound(colName string, tzOffset int) (int64, bool) {
	if f.col.Name() != colName || !f.hasIntRHS {
		return 0, false
	}
	shift := int64(0)
	if f.col.Type() == column.KindTime {
		shift = int64(tzOffset)
	}
	switch f.op {
	case column.OpEqual, column.OpGreaterOrEqual:
		return f.intRHS + shift, true
	case column.OpGreater:
		return f.intRHS + shift + 1, true
	default:
		return 0, false
	}
}

func (f *ColumnFilter) LeastUpperBound(colName string, tzOffset int) (int64, bool) {
	if f.col.Name() != colName || !f.hasIntRHS {
		return 0, false
	}
	shift := int64(0)
	if f.col.Type() == column.KindTime {
		shift = int64(tzOffset)
	}
	switch f.op {
	case column.OpEqual, column.OpLessOrEqual:
		return f.intRHS + shift, true
	case column.OpLess:
		return f.intRHS + shift - 1, true
	default:
		return 0, false
	}
}

func (f *ColumnFilter) ValueSetLeastUpperBound(colName string, tzOffset int) (mapset.Set[int], bool) {
	if f.col.Name() != colName {
		return nil, false
	}
	// default: evaluate the predicate on every bit position 0..31 (§4.1)
	out := mapset.NewThreadUnsafeSet[int]()
	for bit := 0; bit < 32; bit++ {
		if compareInt(f.op, int64(bit), f.intRHS, f.hasIntRHS) {
			out.Add(bit)
		}
	}
	return out, true
}

func (f *ColumnFilter) StringValueRestriction(colName string) (string, bool) {
	if f.col.Name() != colName || f.col.Type() != column.KindString {
		return "", false
	}
	if f.op == column.OpEqual {
		return f.rhs, true
	}
	return "", false
}

func (f *ColumnFilter) PartialFilter(keep func(colName string) bool) Filter {
	if keep(f.col.Name()) {
		return f
	}
	return Tautology
}
