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

package table

import (
	"github.com/Checkmk/checkmk-sub006/internal/column"
	"github.com/Checkmk/checkmk-sub006/internal/row"
)

// StringColumn projects a string field out of a row via off, which
// most tables set to row.Identity and join tables set to
// row.JoinedOffset (§4.7 "Joins").
func StringColumn(name string, off row.Offset, get func(any) string) column.Column {
	return &funcColumn{name: name, kind: column.KindString, extract: func(h row.Handle) column.Value {
		return column.StringValue(get(off(h)))
	}}
}

func IntColumn(name string, off row.Offset, get func(any) int64) column.Column {
	return &funcColumn{name: name, kind: column.KindInt, extract: func(h row.Handle) column.Value {
		return column.IntValue(get(off(h)))
	}}
}

func DoubleColumn(name string, off row.Offset, get func(any) float64) column.Column {
	return &funcColumn{name: name, kind: column.KindDouble, extract: func(h row.Handle) column.Value {
		return column.DoubleValue(get(off(h)))
	}}
}

func TimeColumn(name string, off row.Offset, get func(any) int64) column.Column {
	return &funcColumn{name: name, kind: column.KindTime, extract: func(h row.Handle) column.Value {
		return column.TimeValue(get(off(h)))
	}}
}

func ListColumn(name string, off row.Offset, get func(any) []string) column.Column {
	return &funcColumn{name: name, kind: column.KindList, extract: func(h row.Handle) column.Value {
		return column.ListValue(get(off(h)))
	}}
}

func DictColumn(name string, off row.Offset, get func(any) map[string]string) column.Column {
	return &funcColumn{name: name, kind: column.KindDictStr, extract: func(h row.Handle) column.Value {
		return column.Value{Kind: column.KindDictStr, DictStr: get(off(h))}
	}}
}

// BoolAsIntColumn renders a bool as a 0/1 integer column, the
// convention the wire format uses throughout (§4.3).
func BoolAsIntColumn(name string, off row.Offset, get func(any) bool) column.Column {
	return &funcColumn{name: name, kind: column.KindInt, extract: func(h row.Handle) column.Value {
		if get(off(h)) {
			return column.IntValue(1)
		}
		return column.IntValue(0)
	}}
}
