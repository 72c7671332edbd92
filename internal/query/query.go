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

// Package query implements the query engine of §4.4: source
// selection (delegated to the chosen table's RowSource), the
// authorization gate, row processing (filter, limit, time limit,
// response-size cap), stats grouping/finalization, wait semantics, and
// error surfacing.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Checkmk/checkmk-sub006/internal/authz"
	"github.com/Checkmk/checkmk-sub006/internal/column"
	"github.com/Checkmk/checkmk-sub006/internal/core"
	"github.com/Checkmk/checkmk-sub006/internal/metrics"
	"github.com/Checkmk/checkmk-sub006/internal/parsedquery"
	"github.com/Checkmk/checkmk-sub006/internal/protoerr"
	"github.com/Checkmk/checkmk-sub006/internal/render"
	"github.com/Checkmk/checkmk-sub006/internal/row"
	"github.com/Checkmk/checkmk-sub006/internal/table"
)

// Waiter blocks until triggerName fires an event that makes accepts
// true, or timeout elapses, returning whether accepts held at return
// time. Implemented by internal/trigger; kept as an interface here so
// the engine can run (with an always-ready Waiter) before the trigger
// component exists, and so tests don't need a real event bus.
type Waiter interface {
	Wait(ctx context.Context, triggerName string, timeout time.Duration, accepts func() bool) bool
}

// NoWait is a Waiter that never blocks: it checks accepts once and
// returns immediately, the degenerate case used whenever no wait
// condition applies.
type NoWait struct{}

func (NoWait) Wait(_ context.Context, _ string, _ time.Duration, accepts func() bool) bool {
	return accepts()
}

// Engine runs parsed queries against a table registry and a
// monitoring-core adapter (§4.4).
type Engine struct {
	Registry *table.Registry
	Gate     *authz.Gate
	Waiter   Waiter

	// MaxResponseSize caps accumulated rendered body bytes (config
	// Limits.MaxResponseSize); 0 means unlimited.
	MaxResponseSize int

	Log zerolog.Logger
}

// Result is the outcome of running one query.
type Result struct {
	Status protoerr.Status
	Body   []byte
}

// Execute runs q against adapter and renders the response body (§4.4).
func (e *Engine) Execute(ctx context.Context, adapter core.Adapter, q *parsedquery.ParsedQuery) (*Result, error) {
	if len(q.ParseErrors) > 0 {
		msgs := make([]string, len(q.ParseErrors))
		for i, err := range q.ParseErrors {
			msgs[i] = err.Error()
		}
		return nil, protoerr.InvalidRequest("%s", strings.Join(msgs, "; "))
	}

	tbl, ok := e.Registry.Get(q.TableName)
	if !ok {
		return nil, protoerr.NotFound("no such table %q", q.TableName)
	}

	if err := e.awaitCondition(ctx, tbl, adapter, q); err != nil {
		return nil, err
	}

	handles, strategy := tbl.RowSource(adapter, q)
	e.Log.Debug().Str("table", q.TableName).Str("strategy", strategy).Int("candidates", len(handles)).Msg("source selection")
	metrics.QueriesTotal.WithLabelValues(q.TableName).Inc()

	if q.HasStats() {
		return e.runStats(tbl, adapter, q, handles)
	}
	return e.runRows(tbl, adapter, q, handles)
}

// awaitCondition implements §4.4 "Wait semantics".
func (e *Engine) awaitCondition(ctx context.Context, tbl *table.Table, adapter core.Adapter, q *parsedquery.ParsedQuery) error {
	if q.Wait.Condition == nil {
		return nil
	}

	waitHandle := row.Handle{}
	if tbl.Get != nil && q.Wait.Object != "" {
		if h, found := tbl.Get(adapter, q.Wait.Object); found {
			waitHandle = h
		}
	}

	accepts := func() bool { return q.Wait.Condition.Accepts(waitHandle, q.TZOffset) }

	if q.Wait.TimeoutMS == 0 && !accepts() {
		return protoerr.InvalidRequest("contradictory WaitCondition with zero WaitTimeout")
	}
	if q.Wait.TimeoutMS <= 0 {
		return nil
	}

	waiter := e.Waiter
	if waiter == nil {
		waiter = NoWait{}
	}
	waiter.Wait(ctx, q.Wait.Trigger, time.Duration(q.Wait.TimeoutMS)*time.Millisecond, accepts)
	return nil
}

// runRows implements §4.4 "Row processing" for the non-stats path.
func (e *Engine) runRows(tbl *table.Table, adapter core.Adapter, q *parsedquery.ParsedQuery, handles []row.Handle) (*Result, error) {
	sep := render.Separators{
		Dataset:     q.Display.DatasetSep,
		Field:       q.Display.FieldSep,
		List:        q.Display.ListSep,
		HostService: q.Display.HostServiceSep,
	}
	headers := columnHeaderNames(q)
	renderer := render.New(render.Format(q.Display.Format), sep, headers)
	renderer.BeginQuery()

	status := protoerr.StatusOK
	rowsEmitted := 0

	for _, h := range handles {
		if q.Limits.HasDeadline && time.Now().After(q.Limits.Deadline) {
			status = protoerr.StatusPayloadTooLarge
			break
		}
		if !tbl.Authorize(e.Gate, q.User, adapter, h) {
			continue
		}
		if !q.RowFilter.Accepts(h, q.TZOffset) {
			continue
		}
		if q.Limits.HasLimit && rowsEmitted >= q.Limits.RowLimit {
			break
		}

		renderer.BeginRow()
		for _, col := range q.Columns {
			renderer.Output(col.Extract(h))
		}
		renderer.EndRow()
		rowsEmitted++

		if e.MaxResponseSize > 0 && len(renderer.Bytes()) > e.MaxResponseSize {
			status = protoerr.StatusPayloadTooLarge
			break
		}
	}

	renderer.EndQuery()
	metrics.RowsRendered.WithLabelValues(q.TableName).Add(float64(rowsEmitted))
	return &Result{Status: status, Body: renderer.Bytes()}, nil
}

func columnHeaderNames(q *parsedquery.ParsedQuery) []string {
	if !q.Display.ColumnHeaders {
		return nil
	}
	names := make([]string, len(q.Columns))
	for i, c := range q.Columns {
		names[i] = c.Name()
	}
	return names
}

// statsGroup accumulates one stats aggregation group: a rendered
// group-by fragment (the "group fragment" of §4.4) plus one
// accumulator per stats column.
type statsGroup struct {
	fragment []column.Value
	accs     []*aggregator
}

// runStats implements §4.4 "Row processing" step 3 and "Stats
// finalization" for the stats-active path.
func (e *Engine) runStats(tbl *table.Table, adapter core.Adapter, q *parsedquery.ParsedQuery, handles []row.Handle) (*Result, error) {
	groups := map[string]*statsGroup{}
	var order []string

	status := protoerr.StatusOK

	for _, h := range handles {
		if q.Limits.HasDeadline && time.Now().After(q.Limits.Deadline) {
			status = protoerr.StatusPayloadTooLarge
			break
		}
		if !tbl.Authorize(e.Gate, q.User, adapter, h) {
			continue
		}
		if !q.RowFilter.Accepts(h, q.TZOffset) {
			continue
		}

		fragment := make([]column.Value, len(q.Columns))
		for i, c := range q.Columns {
			fragment[i] = c.Extract(h)
		}
		key := fragmentKey(fragment)

		g, ok := groups[key]
		if !ok {
			g = &statsGroup{fragment: fragment, accs: make([]*aggregator, len(q.Stats))}
			for i, sc := range q.Stats {
				g.accs[i] = newAggregator(sc)
			}
			groups[key] = g
			order = append(order, key)
		}

		for i, sc := range q.Stats {
			g.accs[i].observe(sc, h, q.TZOffset)
		}
	}

	sep := render.Separators{
		Dataset:     q.Display.DatasetSep,
		Field:       q.Display.FieldSep,
		List:        q.Display.ListSep,
		HostService: q.Display.HostServiceSep,
	}
	headers := columnHeaderNames(q)
	renderer := render.New(render.Format(q.Display.Format), sep, headers)
	renderer.BeginQuery()

	for _, key := range order {
		g := groups[key]
		renderer.BeginRow()
		for _, v := range g.fragment {
			renderer.Output(v)
		}
		for _, acc := range g.accs {
			renderer.Output(acc.finalize())
		}
		renderer.EndRow()
	}
	renderer.EndQuery()
	metrics.RowsRendered.WithLabelValues(q.TableName).Add(float64(len(order)))

	return &Result{Status: status, Body: renderer.Bytes()}, nil
}

// fragmentKey builds an opaque map key from a group-by fragment (§4.4
// "group fragment"). A fragment may be empty (no group-by columns),
// in which case every row lands in a single group.
func fragmentKey(fragment []column.Value) string {
	var b strings.Builder
	for _, v := range fragment {
		fmt.Fprintf(&b, "%d:%v\x00", v.Kind, v)
	}
	return b.String()
}
