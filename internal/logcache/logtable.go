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

package logcache

import (
	"math"
	"time"

	"github.com/Checkmk/checkmk-sub006/internal/authz"
	"github.com/Checkmk/checkmk-sub006/internal/core"
	"github.com/Checkmk/checkmk-sub006/internal/parsedquery"
	"github.com/Checkmk/checkmk-sub006/internal/row"
	"github.com/Checkmk/checkmk-sub006/internal/table"
)

// join is the composite row a "log" entry carries: the parsed entry
// itself plus, when the line names a host or service that still
// exists, the live objects those host_*/service_* columns borrow from
// (§4.7 "Joins"; a vanished object simply leaves these nil and the
// borrowed columns render their zero value).
type join struct {
	entry   *Entry
	host    *core.Host
	service *core.Service
}

func entryOf(v any) *Entry { return v.(*join).entry }

// hostOfJoin and svcOfJoin substitute a zero-value object when the
// line's host or service no longer exists, so current_host_*/
// current_service_* columns render their zero value instead of the
// borrowed column dereferencing a nil pointer.
func hostOfJoin(h row.Handle) any {
	if j := h.Primary.(*join); j.host != nil {
		return j.host
	}
	return &core.Host{}
}

func svcOfJoin(h row.Handle) any {
	if j := h.Primary.(*join); j.service != nil {
		return j.service
	}
	return &core.Service{}
}

// NewLogTable builds the "log" table (§3 "Log entry", §4.5, §4.7).
// RowSource derives its time window from GreatestLowerBound/
// LeastUpperBound on "time" and its class mask from
// ValueSetLeastUpperBound on "class", falling back to the unbounded
// window / AllClasses when the query's filter doesn't restrict them,
// then replays cache in chronological (timestamp, line-number) order.
func NewLogTable(cache *Cache, hosts, services *table.Table) *table.Table {
	t := table.New("log", "log_")
	t.HasPrimaryKey = false

	t.AddColumn(table.TimeColumn("time", row.Identity, func(v any) int64 { return entryOf(v).Time }))
	t.AddColumn(table.IntColumn("lineno", row.Identity, func(v any) int64 { return int64(entryOf(v).Line) }))
	t.AddColumn(table.IntColumn("class", row.Identity, func(v any) int64 { return int64(entryOf(v).Class) }))
	t.AddColumn(table.StringColumn("type", row.Identity, func(v any) string { return string(entryOf(v).Type) }))
	t.AddColumn(table.StringColumn("message", row.Identity, func(v any) string { return entryOf(v).Raw }))
	t.AddColumn(table.StringColumn("host_name", row.Identity, func(v any) string { return entryOf(v).HostName }))
	t.AddColumn(table.StringColumn("service_description", row.Identity, func(v any) string { return entryOf(v).Description }))
	t.AddColumn(table.StringColumn("contact_name", row.Identity, func(v any) string { return entryOf(v).Contact }))
	t.AddColumn(table.StringColumn("comment", row.Identity, func(v any) string { return entryOf(v).Comment }))
	t.AddColumn(table.StringColumn("plugin_output", row.Identity, func(v any) string { return entryOf(v).PluginOutput }))
	t.AddColumn(table.IntColumn("state", row.Identity, func(v any) int64 { return int64(entryOf(v).State) }))
	t.AddColumn(table.StringColumn("state_type", row.Identity, func(v any) string { return entryOf(v).StateType }))
	t.AddColumn(table.IntColumn("attempt", row.Identity, func(v any) int64 { return int64(entryOf(v).Attempt) }))

	for _, hc := range hosts.Columns() {
		t.AddColumn(table.BorrowColumn("current_host_"+hc.Name(), hc, hostOfJoin))
	}
	for _, sc := range services.Columns() {
		t.AddColumn(table.BorrowColumn("current_service_"+sc.Name(), sc, svcOfJoin))
	}

	t.RowSource = func(adapter core.Adapter, q *parsedquery.ParsedQuery) ([]row.Handle, string) {
		since, until, mask := windowAndMask(q)

		var handles []row.Handle
		cache.Load(since, until, mask, func(files []*file) {
			for _, fl := range files {
				for _, e := range fl.entries {
					if e.Time < since || e.Time >= until || !mask.Has(e.Class) {
						continue
					}
					j := &join{entry: e}
					if e.HostName != "" {
						j.host, _ = adapter.HostByName(e.HostName)
					}
					if e.HostName != "" && e.Description != "" {
						j.service, _ = adapter.ServiceByKey(e.HostName, e.Description)
					}
					handles = append(handles, row.Handle{Primary: j})
				}
			}
		})
		return handles, "logcache"
	}

	t.Authorize = func(gate *authz.Gate, u authz.User, adapter core.Adapter, h row.Handle) bool {
		j := h.Primary.(*join)
		if j.host == nil {
			return true
		}
		if j.entry.Description != "" {
			if j.service == nil {
				return gate.IsAuthorizedForHost(u, j.host)
			}
			return gate.IsAuthorizedForService(u, j.host, j.service)
		}
		return gate.IsAuthorizedForHost(u, j.host)
	}

	return t
}

// windowAndMask derives the replay window and class mask a "log"
// query implies from its filter tree, defaulting to the unbounded
// past/future and every class when the filter doesn't pin either down
// (§4.6 "Input").
func windowAndMask(q *parsedquery.ParsedQuery) (since, until int64, mask Mask) {
	since = 0
	until = math.MaxInt64

	if glb, ok := q.RowFilter.GreatestLowerBound("time", q.TZOffset); ok {
		since = glb
	}
	if lub, ok := q.RowFilter.LeastUpperBound("time", q.TZOffset); ok {
		until = lub + 1
	}
	if until == math.MaxInt64 {
		until = time.Now().Unix() + 1
	}

	mask = AllClasses
	if set, ok := q.RowFilter.ValueSetLeastUpperBound("class", q.TZOffset); ok {
		mask = 0
		for bit := range set.Iter() {
			if bit >= 0 && bit < 8 {
				mask = mask.Union(NewMask(Class(bit)))
			}
		}
	}
	return since, until, mask
}
