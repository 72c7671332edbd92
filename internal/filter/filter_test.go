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

package filter_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Checkmk/checkmk-sub006/internal/column"
	"github.com/Checkmk/checkmk-sub006/internal/filter"
	"github.com/Checkmk/checkmk-sub006/internal/row"
)

// intCol is a minimal test column extracting an int64 from Handle.Primary.
type intCol struct {
	name string
}

func (c intCol) Name() string       { return c.name }
func (c intCol) Type() column.Kind  { return column.KindInt }
func (c intCol) Extract(h row.Handle) column.Value {
	return column.IntValue(h.Primary.(int64))
}

type strCol struct{ name string }

func (c strCol) Name() string      { return c.name }
func (c strCol) Type() column.Kind { return column.KindString }
func (c strCol) Extract(h row.Handle) column.Value {
	return column.StringValue(h.Primary.(string))
}

func handle(v any) row.Handle { return row.Handle{Primary: v} }

func TestColumnFilterEqualBounds(t *testing.T) {
	col := intCol{"state"}
	f, err := filter.NewColumnFilter(col, column.FilterKindRow, column.OpEqual, "2")
	require.NoError(t, err)

	lo, ok := f.GreatestLowerBound("state", 0)
	require.True(t, ok)
	require.EqualValues(t, 2, lo)

	hi, ok := f.LeastUpperBound("state", 0)
	require.True(t, ok)
	require.EqualValues(t, 2, hi)

	require.True(t, f.Accepts(handle(int64(2)), 0))
	require.False(t, f.Accepts(handle(int64(3)), 0))
}

func TestAndAcceptsBoth(t *testing.T) {
	a, err := filter.NewColumnFilter(strCol{"a"}, column.FilterKindRow, column.OpEqual, "x")
	require.NoError(t, err)
	b, err := filter.NewColumnFilter(strCol{"b"}, column.FilterKindRow, column.OpEqual, "y")
	require.NoError(t, err)

	and := filter.And(a, b)

	type composite struct{ A, B string }
	h := row.Handle{Primary: nil}

	// Use two handles with separate single-field columns combined via
	// custom extraction: simulate "both filters look at the same field
	// name but different rows" isn't representative, so instead test
	// with a shared handle carrying both fields through a small shim.
	_ = composite{}
	_ = h
	_ = and

	// Simpler: reuse intCol pair on one handle since both filters read
	// Handle.Primary directly; exercise AND/OR semantics on one column.
	c := intCol{"n"}
	fa, _ := filter.NewColumnFilter(c, column.FilterKindRow, column.OpGreaterOrEqual, "5")
	fb, _ := filter.NewColumnFilter(c, column.FilterKindRow, column.OpLessOrEqual, "10")
	fand := filter.And(fa, fb)

	require.True(t, fand.Accepts(handle(int64(7)), 0))
	require.False(t, fand.Accepts(handle(int64(11)), 0))

	lo, ok := fand.GreatestLowerBound("n", 0)
	require.True(t, ok)
	require.EqualValues(t, 5, lo)

	hi, ok := fand.LeastUpperBound("n", 0)
	require.True(t, ok)
	require.EqualValues(t, 10, hi)
}

func TestOrStringValueRestriction(t *testing.T) {
	c := strCol{"name"}
	fa, _ := filter.NewColumnFilter(c, column.FilterKindRow, column.OpEqual, "foo")
	fb, _ := filter.NewColumnFilter(c, column.FilterKindRow, column.OpEqual, "foo")
	fc, _ := filter.NewColumnFilter(c, column.FilterKindRow, column.OpEqual, "bar")

	same := filter.Or(fa, fb)
	v, ok := same.StringValueRestriction("name")
	require.True(t, ok)
	require.Equal(t, "foo", v)

	diff := filter.Or(fa, fc)
	_, ok = diff.StringValueRestriction("name")
	require.False(t, ok)
}

func TestStringValueRestrictionExcludesCaseInsensitiveEqual(t *testing.T) {
	c := strCol{"name"}
	f, err := filter.NewColumnFilter(c, column.FilterKindRow, column.OpEqualIC, "Foo")
	require.NoError(t, err)

	_, ok := f.StringValueRestriction("name")
	require.False(t, ok)
}

func TestDoubleNegateIsIdentity(t *testing.T) {
	c := intCol{"n"}
	f, _ := filter.NewColumnFilter(c, column.FilterKindRow, column.OpLess, "5")

	nn := f.Negate().Negate()

	for _, v := range []int64{0, 4, 5, 6, 100} {
		require.Equal(t, f.Accepts(handle(v), 0), nn.Accepts(handle(v), 0))
	}
}

func TestTautologyAndContradiction(t *testing.T) {
	require.True(t, filter.Tautology.Accepts(handle(int64(0)), 0))
	require.False(t, filter.Contradiction.Accepts(handle(int64(0)), 0))
}
