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

package filter

import (
	"github.com/Checkmk/checkmk-sub006/internal/row"
	mapset "github.com/deckarep/golang-set/v2"
)

// andFilter is the logical conjunction of its children. An empty
// andFilter is the tautology (§3 invariant i).
type andFilter struct {
	children []Filter
}

// And builds a conjunction, collapsing a single child to itself.
func And(fs ...Filter) Filter {
	if len(fs) == 1 {
		return fs[0]
	}
	return andFilter{children: fs}
}

func (f andFilter) Accepts(h row.Handle, tz int) bool {
	for _, c := range f.children {
		if !c.Accepts(h, tz) {
			return false
		}
	}
	return true
}

func (f andFilter) Negate() Filter {
	negated := make([]Filter, len(f.children))
	for i, c := range f.children {
		negated[i] = c.Negate()
	}
	return orFilter{children: negated}
}

func (f andFilter) GreatestLowerBound(colName string, tz int) (int64, bool) {
	var best int64
	found := false
	for _, c := range f.children {
		if v, ok := c.GreatestLowerBound(colName, tz); ok {
			if !found || v > best {
				best = v
			}
			found = true
		}
	}
	return best, found
}

func (f andFilter) LeastUpperBound(colName string, tz int) (int64, bool) {
	var best int64
	found := false
	for _, c := range f.children {
		if v, ok := c.LeastUpperBound(colName, tz); ok {
			if !found || v < best {
				best = v
			}
			found = true
		}
	}
	return best, found
}

func (f andFilter) ValueSetLeastUpperBound(colName string, tz int) (mapset.Set[int], bool) {
	var out mapset.Set[int]
	found := false
	for _, c := range f.children {
		if s, ok := c.ValueSetLeastUpperBound(colName, tz); ok {
			if !found {
				out = s
			} else {
				out = out.Intersect(s)
			}
			found = true
		}
	}
	return out, found
}

func (f andFilter) StringValueRestriction(colName string) (string, bool) {
	for _, c := range f.children {
		if v, ok := c.StringValueRestriction(colName); ok {
			return v, true
		}
	}
	return "", false
}

func (f andFilter) PartialFilter(keep func(string) bool) Filter {
	var kept []Filter
	for _, c := range f.children {
		pf := c.PartialFilter(keep)
		if a, ok := pf.(andFilter); ok && len(a.children) == 0 {
			continue
		}
		kept = append(kept, pf)
	}
	return And(kept...)
}

// orFilter is the logical disjunction of its children. An empty
// orFilter is the contradiction (§3 invariant i).
type orFilter struct {
	children []Filter
}

// Or builds a disjunction, collapsing a single child to itself.
func Or(fs ...Filter) Filter {
	if len(fs) == 1 {
		return fs[0]
	}
	return orFilter{children: fs}
}

func (f orFilter) Accepts(h row.Handle, tz int) bool {
	for _, c := range f.children {
		if c.Accepts(h, tz) {
			return true
		}
	}
	return false
}

func (f orFilter) Negate() Filter {
	negated := make([]Filter, len(f.children))
	for i, c := range f.children {
		negated[i] = c.Negate()
	}
	return andFilter{children: negated}
}

// Or is permissive: bounds are never returned, and a string
// restriction only when every child agrees (§4.1 "Logical composition").
func (f orFilter) GreatestLowerBound(colName string, tz int) (int64, bool) {
	return 0, false
}

func (f orFilter) LeastUpperBound(colName string, tz int) (int64, bool) {
	return 0, false
}

func (f orFilter) ValueSetLeastUpperBound(colName string, tz int) (mapset.Set[int], bool) {
	var out mapset.Set[int]
	for _, c := range f.children {
		s, ok := c.ValueSetLeastUpperBound(colName, tz)
		if !ok {
			return nil, false
		}
		if out == nil {
			out = s
		} else {
			out = out.Union(s)
		}
	}
	if out == nil {
		return mapset.NewThreadUnsafeSet[int](), true
	}
	return out, true
}

func (f orFilter) StringValueRestriction(colName string) (string, bool) {
	var restriction string
	for i, c := range f.children {
		v, ok := c.StringValueRestriction(colName)
		if !ok {
			return "", false
		}
		if i == 0 {
			restriction = v
		} else if v != restriction {
			return "", false
		}
	}
	if len(f.children) == 0 {
		return "", false
	}
	return restriction, true
}

func (f orFilter) PartialFilter(keep func(string) bool) Filter {
	var kept []Filter
	for _, c := range f.children {
		kept = append(kept, c.PartialFilter(keep))
	}
	return Or(kept...)
}

// There is no separate negation node type: negation (§3) always
// collapses through child.Negate(), and Negate() on every Filter
// implementation above returns the operator-flipped form directly per
// §4.1 "via operator flipping at the leaves".
