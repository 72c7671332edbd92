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

func asHostGroup(v any) *core.HostGroup       { return v.(*core.HostGroup) }
func asServiceGroup(v any) *core.ServiceGroup { return v.(*core.ServiceGroup) }

// NewHostGroupsTable builds the "hostgroups" table (§4.7 "Joins").
func NewHostGroupsTable() *Table {
	t := New("hostgroups", "hostgroup_")

	t.AddColumn(StringColumn("name", row.Identity, func(v any) string { return asHostGroup(v).Name }))
	t.AddColumn(StringColumn("alias", row.Identity, func(v any) string { return asHostGroup(v).Alias }))
	t.AddColumn(ListColumn("members", row.Identity, func(v any) []string { return asHostGroup(v).Members }))

	t.RowSource = func(adapter core.Adapter, q *parsedquery.ParsedQuery) ([]row.Handle, string) {
		if name, ok := q.RowFilter.StringValueRestriction("name"); ok {
			if g, found := adapter.HostGroupByName(name); found {
				return []row.Handle{{Primary: g}}, "index:name"
			}
			return nil, "index:name"
		}
		groups := adapter.HostGroups()
		handles := make([]row.Handle, len(groups))
		for i, g := range groups {
			handles[i] = row.Handle{Primary: g}
		}
		return handles, "scan"
	}

	t.Authorize = func(gate *authz.Gate, u authz.User, adapter core.Adapter, h row.Handle) bool {
		return gate.IsAuthorizedForHostGroup(u, adapter, asHostGroup(h.Primary))
	}

	t.Get = func(adapter core.Adapter, key string) (row.Handle, bool) {
		g, ok := adapter.HostGroupByName(key)
		if !ok {
			return row.Handle{}, false
		}
		return row.Handle{Primary: g}, true
	}

	return t
}

// NewServiceGroupsTable builds the "servicegroups" table.
func NewServiceGroupsTable() *Table {
	t := New("servicegroups", "servicegroup_")

	t.AddColumn(StringColumn("name", row.Identity, func(v any) string { return asServiceGroup(v).Name }))
	t.AddColumn(StringColumn("alias", row.Identity, func(v any) string { return asServiceGroup(v).Alias }))

	t.RowSource = func(adapter core.Adapter, q *parsedquery.ParsedQuery) ([]row.Handle, string) {
		if name, ok := q.RowFilter.StringValueRestriction("name"); ok {
			if g, found := adapter.ServiceGroupByName(name); found {
				return []row.Handle{{Primary: g}}, "index:name"
			}
			return nil, "index:name"
		}
		groups := adapter.ServiceGroups()
		handles := make([]row.Handle, len(groups))
		for i, g := range groups {
			handles[i] = row.Handle{Primary: g}
		}
		return handles, "scan"
	}

	t.Authorize = func(gate *authz.Gate, u authz.User, adapter core.Adapter, h row.Handle) bool {
		return gate.IsAuthorizedForServiceGroup(u, adapter, asServiceGroup(h.Primary))
	}

	t.Get = func(adapter core.Adapter, key string) (row.Handle, bool) {
		g, ok := adapter.ServiceGroupByName(key)
		if !ok {
			return row.Handle{}, false
		}
		return row.Handle{Primary: g}, true
	}

	return t
}

// hostGroupMember is the composite row of "hostsbygroup": one row per
// (host, group) membership pair, joining the full Host alongside the
// group name it was reached through (§4.7 "Joins").
type hostGroupMember struct {
	host      *core.Host
	groupName string
}

// NewHostsByGroupTable builds the "hostsbygroup" join table: one row
// per (host, hostgroup) membership, re-exporting every hosts column
// plus a synthetic "hostgroup_name" column. Join tables have no
// natural primary key (§4.7).
func NewHostsByGroupTable(hosts *Table) *Table {
	t := New("hostsbygroup", "")
	t.HasPrimaryKey = false

	hostOffset := func(h row.Handle) any { return h.Primary.(hostGroupMember).host }
	for _, hc := range hosts.Columns() {
		t.AddColumn(BorrowColumn("host_"+hc.Name(), hc, hostOffset))
	}
	t.AddColumn(StringColumn("hostgroup_name", row.Identity, func(v any) string {
		return v.(hostGroupMember).groupName
	}))

	t.RowSource = func(adapter core.Adapter, q *parsedquery.ParsedQuery) ([]row.Handle, string) {
		var handles []row.Handle
		for _, g := range adapter.HostGroups() {
			for _, name := range g.Members {
				h, ok := adapter.HostByName(name)
				if !ok {
					continue
				}
				handles = append(handles, row.Handle{Primary: hostGroupMember{host: h, groupName: g.Name}})
			}
		}
		return handles, "scan"
	}

	t.Authorize = func(gate *authz.Gate, u authz.User, adapter core.Adapter, h row.Handle) bool {
		return gate.IsAuthorizedForHost(u, h.Primary.(hostGroupMember).host)
	}

	return t
}

// serviceGroupMember is the composite row shape shared by
// "servicesbygroup" and "servicesbyhostgroup".
type serviceGroupMember struct {
	host        *core.Host
	service     *core.Service
	groupName   string
}

// NewServicesByGroupTable builds "servicesbygroup": one row per
// (service, servicegroup) membership.
func NewServicesByGroupTable(hosts, services *Table) *Table {
	t := New("servicesbygroup", "")
	t.HasPrimaryKey = false
	installServiceJoinColumns(t, services)
	t.AddColumn(StringColumn("servicegroup_name", row.Identity, func(v any) string {
		return v.(serviceGroupMember).groupName
	}))

	t.RowSource = func(adapter core.Adapter, q *parsedquery.ParsedQuery) ([]row.Handle, string) {
		var handles []row.Handle
		for _, g := range adapter.ServiceGroups() {
			for _, pair := range g.Members {
				s, ok := adapter.ServiceByKey(pair[0], pair[1])
				if !ok {
					continue
				}
				h, _ := adapter.HostByName(pair[0])
				handles = append(handles, row.Handle{Primary: serviceGroupMember{host: h, service: s, groupName: g.Name}})
			}
		}
		return handles, "scan"
	}

	t.Authorize = func(gate *authz.Gate, u authz.User, adapter core.Adapter, h row.Handle) bool {
		m := h.Primary.(serviceGroupMember)
		return gate.IsAuthorizedForService(u, m.host, m.service)
	}

	return t
}

// NewServicesByHostGroupTable builds "servicesbyhostgroup": one row
// per (service, hostgroup) membership, reached through the service's
// owning host rather than a servicegroup.
func NewServicesByHostGroupTable(hosts, services *Table) *Table {
	t := New("servicesbyhostgroup", "")
	t.HasPrimaryKey = false
	installServiceJoinColumns(t, services)
	t.AddColumn(StringColumn("hostgroup_name", row.Identity, func(v any) string {
		return v.(serviceGroupMember).groupName
	}))

	t.RowSource = func(adapter core.Adapter, q *parsedquery.ParsedQuery) ([]row.Handle, string) {
		var handles []row.Handle
		for _, g := range adapter.HostGroups() {
			for _, hostName := range g.Members {
				h, ok := adapter.HostByName(hostName)
				if !ok {
					continue
				}
				for _, s := range adapter.ServicesByHost(hostName) {
					handles = append(handles, row.Handle{Primary: serviceGroupMember{host: h, service: s, groupName: g.Name}})
				}
			}
		}
		return handles, "scan"
	}

	t.Authorize = func(gate *authz.Gate, u authz.User, adapter core.Adapter, h row.Handle) bool {
		m := h.Primary.(serviceGroupMember)
		return gate.IsAuthorizedForService(u, m.host, m.service)
	}

	return t
}

// installServiceJoinColumns re-exports every services column (which
// already includes the borrowed host_* columns) onto a
// serviceGroupMember-shaped composite table. Unlike BorrowColumn, this
// reconstructs a full Primary+Joined handle, since the services
// columns it wraps may themselves be host_* borrows that read h.Joined.
func installServiceJoinColumns(t *Table, services *Table) {
	for _, sc := range services.Columns() {
		t.AddColumn(&reboundColumn{inner: sc})
	}
}

type reboundColumn struct{ inner column.Column }

func (c *reboundColumn) Name() string      { return c.inner.Name() }
func (c *reboundColumn) Type() column.Kind { return c.inner.Type() }
func (c *reboundColumn) Extract(h row.Handle) column.Value {
	m := h.Primary.(serviceGroupMember)
	return c.inner.Extract(row.Handle{Primary: m.service, Joined: m.host})
}
