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

package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checkmk/checkmk-sub006/internal/authz"
	"github.com/Checkmk/checkmk-sub006/internal/column"
	"github.com/Checkmk/checkmk-sub006/internal/config"
	"github.com/Checkmk/checkmk-sub006/internal/core"
	"github.com/Checkmk/checkmk-sub006/internal/filter"
	"github.com/Checkmk/checkmk-sub006/internal/parsedquery"
	"github.com/Checkmk/checkmk-sub006/internal/parser"
	"github.com/Checkmk/checkmk-sub006/internal/protoerr"
	"github.com/Checkmk/checkmk-sub006/internal/row"
	"github.com/Checkmk/checkmk-sub006/internal/table"
)

func fixtureAdapter() *core.MockAdapter {
	a := core.NewMockAdapter()
	a.AddHost(&core.Host{Name: "web1", Address: "10.0.0.1", State: 0, Groups: []string{"linux"}, Contacts: []string{"alice"}})
	a.AddHost(&core.Host{Name: "web2", Address: "10.0.0.2", State: 1, Groups: []string{"linux"}, Contacts: []string{"bob"}})
	a.AddService(&core.Service{HostName: "web1", Description: "CPU load", State: 0, Contacts: []string{"alice"}})
	a.AddService(&core.Service{HostName: "web1", Description: "Disk space", State: 2, Contacts: []string{"bob"}})
	return a
}

func newTestEngine() (*Engine, *core.MockAdapter) {
	adapter := fixtureAdapter()
	reg := table.NewDefaultRegistry()
	gate := authz.NewGate(config.AuthorizationStrict, config.AuthorizationStrict)
	return &Engine{Registry: reg, Gate: gate, Waiter: NoWait{}}, adapter
}

func parseHosts(t *testing.T, reg *table.Registry, lines []string) *parsedquery.ParsedQuery {
	t.Helper()
	tbl, ok := reg.Get("hosts")
	require.True(t, ok)
	p := parser.New("hosts", tbl, time.Now().Unix())
	return p.Parse(lines)
}

func TestExecuteUnknownTableReturnsNotFound(t *testing.T) {
	e, adapter := newTestEngine()
	q := &parsedquery.ParsedQuery{TableName: "nope", RowFilter: filter.Tautology}

	_, err := e.Execute(context.Background(), adapter, q)
	require.Error(t, err)
	assert.Equal(t, protoerr.StatusNotFound, protoerr.StatusOf(err))
}

func TestExecuteSurfacesParseErrorsAsInvalidRequest(t *testing.T) {
	e, adapter := newTestEngine()
	q := &parsedquery.ParsedQuery{
		TableName:   "hosts",
		RowFilter:   filter.Tautology,
		ParseErrors: []error{errors.New("bad header")},
	}

	_, err := e.Execute(context.Background(), adapter, q)
	require.Error(t, err)
	assert.Equal(t, protoerr.StatusInvalidRequest, protoerr.StatusOf(err))
}

func TestExecuteRendersFilteredRows(t *testing.T) {
	e, adapter := newTestEngine()
	q := parseHosts(t, e.Registry, []string{
		"Columns: name state",
		"Filter: state = 0",
	})
	q.TableName = "hosts"

	res, err := e.Execute(context.Background(), adapter, q)
	require.NoError(t, err)
	assert.Equal(t, protoerr.StatusOK, res.Status)
	assert.Contains(t, string(res.Body), "web1")
	assert.NotContains(t, string(res.Body), "web2")
}

func TestExecuteEnforcesRowLimit(t *testing.T) {
	e, adapter := newTestEngine()
	q := parseHosts(t, e.Registry, []string{
		"Columns: name",
		"Limit: 1",
	})
	q.TableName = "hosts"

	res, err := e.Execute(context.Background(), adapter, q)
	require.NoError(t, err)
	lines := splitNonEmpty(string(res.Body))
	assert.Len(t, lines, 1)
}

func TestExecuteAuthorizationHidesUnauthorizedHosts(t *testing.T) {
	e, adapter := newTestEngine()
	q := parseHosts(t, e.Registry, []string{
		"Columns: name",
		"AuthUser: bob",
	})
	q.TableName = "hosts"

	res, err := e.Execute(context.Background(), adapter, q)
	require.NoError(t, err)
	body := string(res.Body)
	assert.NotContains(t, body, "web1")
	assert.Contains(t, body, "web2")
}

func TestExecuteStatsCountingForm(t *testing.T) {
	e, adapter := newTestEngine()
	q := parseHosts(t, e.Registry, []string{
		"Stats: state = 0",
		"Stats: state = 1",
	})
	q.TableName = "hosts"

	res, err := e.Execute(context.Background(), adapter, q)
	require.NoError(t, err)
	assert.Equal(t, "1;1\n", string(res.Body))
}

func TestAwaitConditionRejectsContradictoryZeroTimeout(t *testing.T) {
	e, adapter := newTestEngine()
	tbl, _ := e.Registry.Get("hosts")

	q := &parsedquery.ParsedQuery{
		RowFilter: filter.Tautology,
		Wait: parsedquery.WaitParams{
			Condition: filter.Contradiction,
			TimeoutMS: 0,
		},
	}

	err := e.awaitCondition(context.Background(), tbl, adapter, q)
	require.Error(t, err)
	assert.Equal(t, protoerr.StatusInvalidRequest, protoerr.StatusOf(err))
}

func TestAwaitConditionPassesWhenConditionAlreadyHolds(t *testing.T) {
	e, adapter := newTestEngine()
	tbl, _ := e.Registry.Get("hosts")

	q := &parsedquery.ParsedQuery{
		RowFilter: filter.Tautology,
		Wait: parsedquery.WaitParams{
			Condition: filter.Tautology,
			TimeoutMS: 1000,
		},
	}

	err := e.awaitCondition(context.Background(), tbl, adapter, q)
	assert.NoError(t, err)
}

type constIntColumn struct{ v int64 }

func (c constIntColumn) Name() string                    { return "value" }
func (c constIntColumn) Type() column.Kind               { return column.KindInt }
func (c constIntColumn) Extract(row.Handle) column.Value { return column.IntValue(c.v) }

func TestAggregatorSumMinMaxAvg(t *testing.T) {
	values := []int64{1, 2, 3, 4}

	sum := newAggregator(parsedquery.StatsColumn{Aggregation: parsedquery.AggSum, Column: constIntColumn{}})
	minAgg := newAggregator(parsedquery.StatsColumn{Aggregation: parsedquery.AggMin, Column: constIntColumn{}})
	maxAgg := newAggregator(parsedquery.StatsColumn{Aggregation: parsedquery.AggMax, Column: constIntColumn{}})
	avg := newAggregator(parsedquery.StatsColumn{Aggregation: parsedquery.AggAvg, Column: constIntColumn{}})

	for _, v := range values {
		col := constIntColumn{v: v}
		sum.observe(parsedquery.StatsColumn{Column: col}, row.Handle{}, 0)
		minAgg.observe(parsedquery.StatsColumn{Column: col}, row.Handle{}, 0)
		maxAgg.observe(parsedquery.StatsColumn{Column: col}, row.Handle{}, 0)
		avg.observe(parsedquery.StatsColumn{Column: col}, row.Handle{}, 0)
	}

	assert.Equal(t, column.DoubleValue(10), sum.finalize())
	assert.Equal(t, column.DoubleValue(1), minAgg.finalize())
	assert.Equal(t, column.DoubleValue(4), maxAgg.finalize())
	assert.Equal(t, column.DoubleValue(2.5), avg.finalize())
}

func TestAggregatorCountingForm(t *testing.T) {
	sc := parsedquery.StatsColumn{Filter: filter.Tautology}
	a := newAggregator(sc)
	a.observe(sc, row.Handle{}, 0)
	a.observe(sc, row.Handle{}, 0)
	assert.Equal(t, column.IntValue(2), a.finalize())
}

func splitNonEmpty(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
