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

func asService(v any) *core.Service { return v.(*core.Service) }

// servicePrimary and hostJoined are the two offsets a "services" row
// composes (§4.7 "Joins"): Primary carries the service itself, Joined
// carries the owning host so host_* columns can be borrowed onto this
// table without duplicating host state.
func servicePrimary(h row.Handle) any { return h.Primary }
func hostJoined(h row.Handle) any     { return h.Joined }

// NewServicesTable builds the "services" table, with every hosts
// column re-exposed under its existing host_ name via the Joined
// offset (§4.7 "Each borrowed column is installed with an offset
// function that projects the composite row back to the correct
// side.").
func NewServicesTable(hosts *Table) *Table {
	t := New("services", "service_")

	t.AddColumn(StringColumn("description", servicePrimary, func(v any) string { return asService(v).Description }))
	t.AddColumn(IntColumn("state", servicePrimary, func(v any) int64 { return int64(asService(v).State) }))
	t.AddColumn(ListColumn("groups", servicePrimary, func(v any) []string { return asService(v).Groups }))
	t.AddColumn(ListColumn("contacts", servicePrimary, func(v any) []string { return asService(v).Contacts }))
	t.AddColumn(DictColumn("custom_variables", servicePrimary, func(v any) map[string]string { return asService(v).CustomVars }))
	t.AddColumn(StringColumn("plugin_output", servicePrimary, func(v any) string { return asService(v).PluginOutput }))
	t.AddColumn(StringColumn("notification_period", servicePrimary, func(v any) string { return asService(v).NotificationPeriod }))
	t.AddColumn(StringColumn("service_period", servicePrimary, func(v any) string { return asService(v).ServicePeriod }))

	for _, hc := range hosts.Columns() {
		t.AddColumn(BorrowColumn("host_"+hc.Name(), hc, hostJoined))
	}

	t.RowSource = func(adapter core.Adapter, q *parsedquery.ParsedQuery) ([]row.Handle, string) {
		hostName, hasHost := q.RowFilter.StringValueRestriction("host_name")
		if hasHost {
			h, found := adapter.HostByName(hostName)
			if !found {
				return nil, "index:host_name"
			}
			services := adapter.ServicesByHost(hostName)
			handles := make([]row.Handle, len(services))
			for i, s := range services {
				handles[i] = row.Handle{Primary: s, Joined: h}
			}
			return handles, "index:host_name"
		}

		services := adapter.Services()
		handles := make([]row.Handle, 0, len(services))
		for _, s := range services {
			h, _ := adapter.HostByName(s.HostName)
			handles = append(handles, row.Handle{Primary: s, Joined: h})
		}
		return handles, "scan"
	}

	t.Authorize = func(gate *authz.Gate, u authz.User, adapter core.Adapter, h row.Handle) bool {
		var host *core.Host
		if h.Joined != nil {
			host = h.Joined.(*core.Host)
		}
		return gate.IsAuthorizedForService(u, host, asService(h.Primary))
	}

	t.Get = func(adapter core.Adapter, key string) (row.Handle, bool) {
		hostName, desc, ok := splitServiceKey(key)
		if !ok {
			return row.Handle{}, false
		}
		s, found := adapter.ServiceByKey(hostName, desc)
		if !found {
			return row.Handle{}, false
		}
		h, _ := adapter.HostByName(hostName)
		return row.Handle{Primary: s, Joined: h}, true
	}

	return t
}

// splitServiceKey parses the "host;description" object key used by
// WaitObject and GET services/<key> style lookups.
func splitServiceKey(key string) (host, desc string, ok bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == ';' {
			return key[:i], key[i+1:], true
		}
	}
	return "", "", false
}

// BorrowColumn re-exposes col under a new name with a different row
// offset, the mechanism host_* columns on "services" use to reach
// into the joined Host without redeclaring extraction logic (§4.7
// "Each borrowed column is installed with an offset function that
// projects the composite row back to the correct side."). Exported so
// other composite tables (e.g. logcache's "log") can borrow columns
// across package boundaries.
func BorrowColumn(name string, col column.Column, off row.Offset) column.Column {
	return &borrowedColumn{name: name, inner: col, off: off}
}

type borrowedColumn struct {
	name  string
	inner column.Column
	off   row.Offset
}

func (c *borrowedColumn) Name() string     { return c.name }
func (c *borrowedColumn) Type() column.Kind { return c.inner.Type() }
func (c *borrowedColumn) Extract(h row.Handle) column.Value {
	return c.inner.Extract(row.Handle{Primary: c.off(h)})
}
