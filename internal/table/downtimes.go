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
	"github.com/Checkmk/checkmk-sub006/internal/authz"
	"github.com/Checkmk/checkmk-sub006/internal/column"
	"github.com/Checkmk/checkmk-sub006/internal/core"
	"github.com/Checkmk/checkmk-sub006/internal/parsedquery"
	"github.com/Checkmk/checkmk-sub006/internal/row"
)

type downtimeRow struct {
	downtime *core.Downtime
	host     *core.Host
	service  *core.Service
}

func asDowntimeRow(v any) downtimeRow { return v.(downtimeRow) }

// NewDowntimesTable builds the "downtimes" join table (§3 "Downtime"),
// mirroring the structure of "comments": no natural primary key, host
// columns borrowed directly, service columns borrowed through a
// null-safe wrapper for host-only downtimes.
func NewDowntimesTable(hosts, services *Table) *Table {
	t := New("downtimes", "downtime_")
	t.HasPrimaryKey = false

	t.AddColumn(IntColumn("id", row.Identity, func(v any) int64 { return int64(asDowntimeRow(v).downtime.ID) }))
	t.AddColumn(StringColumn("author", row.Identity, func(v any) string { return asDowntimeRow(v).downtime.Author }))
	t.AddColumn(StringColumn("comment", row.Identity, func(v any) string { return asDowntimeRow(v).downtime.Comment }))
	t.AddColumn(TimeColumn("start_time", row.Identity, func(v any) int64 { return asDowntimeRow(v).downtime.Start }))
	t.AddColumn(TimeColumn("end_time", row.Identity, func(v any) int64 { return asDowntimeRow(v).downtime.End }))
	t.AddColumn(BoolAsIntColumn("fixed", row.Identity, func(v any) bool { return asDowntimeRow(v).downtime.Fixed }))
	t.AddColumn(IntColumn("trigger_id", row.Identity, func(v any) int64 { return int64(asDowntimeRow(v).downtime.TriggerID) }))
	t.AddColumn(IntColumn("is_service", row.Identity, func(v any) int64 {
		if asDowntimeRow(v).service != nil {
			return 1
		}
		return 0
	}))

	hostOffset := func(h row.Handle) any { return asDowntimeRow(h.Primary).host }
	for _, hc := range hosts.Columns() {
		t.AddColumn(BorrowColumn("host_"+hc.Name(), hc, hostOffset))
	}
	for _, sc := range services.Columns() {
		t.AddColumn(&downtimeServiceColumn{name: "service_" + sc.Name(), inner: sc})
	}

	t.RowSource = func(adapter core.Adapter, q *parsedquery.ParsedQuery) ([]row.Handle, string) {
		var handles []row.Handle
		for _, d := range adapter.Downtimes() {
			h, _ := adapter.HostByName(d.HostName)
			var s *core.Service
			if d.Description != "" {
				s, _ = adapter.ServiceByKey(d.HostName, d.Description)
			}
			handles = append(handles, row.Handle{Primary: downtimeRow{downtime: d, host: h, service: s}})
		}
		return handles, "scan"
	}

	t.Authorize = func(gate *authz.Gate, u authz.User, adapter core.Adapter, h row.Handle) bool {
		r := asDowntimeRow(h.Primary)
		if r.service != nil {
			return gate.IsAuthorizedForService(u, r.host, r.service)
		}
		return gate.IsAuthorizedForHost(u, r.host)
	}

	return t
}

type downtimeServiceColumn struct {
	name  string
	inner column.Column
}

func (c *downtimeServiceColumn) Name() string      { return c.name }
func (c *downtimeServiceColumn) Type() column.Kind { return c.inner.Type() }
func (c *downtimeServiceColumn) Extract(h row.Handle) column.Value {
	r := asDowntimeRow(h.Primary)
	if r.service == nil {
		return column.NullValue()
	}
	return c.inner.Extract(row.Handle{Primary: r.service, Joined: r.host})
}
