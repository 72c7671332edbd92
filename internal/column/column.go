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

// Package column implements the typed column model of §3/§4.1: named
// value extractors over row handles, plus the filter factories and
// relational-operator vocabulary the filter algebra builds on.
//
// The source dispatches through a Column base class; here a Kind enum
// plus a small closure-based vtable (Extractor/FilterFactory) stands
// in for the inheritance hierarchy per §9's design note (a).
package column

import (
	"fmt"

	"github.com/Checkmk/checkmk-sub006/internal/row"
)

// Kind enumerates the value types a column can produce (§3 Column).
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindDouble
	KindTime
	KindList
	KindDictStr
	KindDictDouble
	KindBlob
	KindNull
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindTime:
		return "time"
	case KindList:
		return "list"
	case KindDictStr:
		return "dict"
	case KindDictDouble:
		return "dict"
	case KindBlob:
		return "blob"
	default:
		return "null"
	}
}

// FilterKind records which part of a parsed query a filter was built
// for: row, stats, or wait-condition (§4.1 Column contract).
type FilterKind int

const (
	FilterKindRow FilterKind = iota
	FilterKindStats
	FilterKindWaitCondition
)

// Op is one of the twelve relational operators (§4.1).
type Op int

const (
	OpEqual Op = iota
	OpNotEqual
	OpMatch
	OpNotMatch
	OpEqualIC
	OpNotEqualIC
	OpMatchIC
	OpNotMatchIC
	OpLess
	OpGreaterOrEqual
	OpGreater
	OpLessOrEqual
)

// ParseOp maps the wire-level operator token (as it appears after the
// column name in a Filter/Stats header, §4.2) to an Op.
func ParseOp(tok string) (Op, error) {
	switch tok {
	case "=":
		return OpEqual, nil
	case "!=":
		return OpNotEqual, nil
	case "~":
		return OpMatch, nil
	case "!~":
		return OpNotMatch, nil
	case "=~":
		return OpEqualIC, nil
	case "!=~":
		return OpNotEqualIC, nil
	case "~~":
		return OpMatchIC, nil
	case "!~~":
		return OpNotMatchIC, nil
	case "<":
		return OpLess, nil
	case ">=":
		return OpGreaterOrEqual, nil
	case ">":
		return OpGreater, nil
	case "<=":
		return OpLessOrEqual, nil
	default:
		return 0, fmt.Errorf("unknown operator %q", tok)
	}
}

// Negate returns the logical negation of op, per the pairing in §4.1.
func (op Op) Negate() Op {
	switch op {
	case OpEqual:
		return OpNotEqual
	case OpNotEqual:
		return OpEqual
	case OpMatch:
		return OpNotMatch
	case OpNotMatch:
		return OpMatch
	case OpEqualIC:
		return OpNotEqualIC
	case OpNotEqualIC:
		return OpEqualIC
	case OpMatchIC:
		return OpNotMatchIC
	case OpNotMatchIC:
		return OpMatchIC
	case OpLess:
		return OpGreaterOrEqual
	case OpGreaterOrEqual:
		return OpLess
	case OpGreater:
		return OpLessOrEqual
	case OpLessOrEqual:
		return OpGreater
	}
	return op
}

// BitmaskOp is the reinterpretation of the twelve relational operators
// over bitmask/set-like columns such as group membership (§4.1).
type BitmaskOp int

const (
	BitmaskSuperset BitmaskOp = iota
	BitmaskNotSuperset
	BitmaskSubset
	BitmaskNotSubset
	BitmaskIntersects
	BitmaskDisjoint
)

// AsBitmaskOp reinterprets a relational operator for a bitmask column,
// e.g. "groups >= linux" means "is a superset of {linux}".
func (op Op) AsBitmaskOp() BitmaskOp {
	switch op {
	case OpGreaterOrEqual:
		return BitmaskSuperset
	case OpLess:
		return BitmaskNotSuperset
	case OpLessOrEqual:
		return BitmaskSubset
	case OpGreater:
		return BitmaskNotSubset
	case OpEqual, OpEqualIC:
		return BitmaskIntersects
	default:
		return BitmaskDisjoint
	}
}

// Value is the tagged result of extracting a column from a row. Only
// the field matching Kind is meaningful.
type Value struct {
	Kind       Kind
	Str        string
	Int        int64
	Dbl        float64
	Time       int64 // UTC epoch seconds
	List       []string
	DictStr    map[string]string
	DictDouble map[string]float64
	Blob       []byte
}

func StringValue(s string) Value    { return Value{Kind: KindString, Str: s} }
func IntValue(i int64) Value        { return Value{Kind: KindInt, Int: i} }
func DoubleValue(f float64) Value   { return Value{Kind: KindDouble, Dbl: f} }
func TimeValue(t int64) Value       { return Value{Kind: KindTime, Time: t} }
func ListValue(l []string) Value    { return Value{Kind: KindList, List: l} }
func NullValue() Value              { return Value{Kind: KindNull} }

// Column is the extractor contract every table column implements
// (§4.1 Column contract). The companion filter factory
// (filter.NewColumnFilter) lives in package filter rather than as a
// Column method: the factory needs to know the concrete filter tree
// types it is assembling into, and a method here would force column
// to import filter, which already imports column for Kind/Op/Value.
// Taking Column as a plain argument keeps the dependency one-way.
type Column interface {
	Name() string
	Type() Kind
	Extract(h row.Handle) Value
}
