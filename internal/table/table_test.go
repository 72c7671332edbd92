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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checkmk/checkmk-sub006/internal/authz"
	"github.com/Checkmk/checkmk-sub006/internal/column"
	"github.com/Checkmk/checkmk-sub006/internal/config"
	"github.com/Checkmk/checkmk-sub006/internal/core"
	"github.com/Checkmk/checkmk-sub006/internal/filter"
	"github.com/Checkmk/checkmk-sub006/internal/parsedquery"
	"github.com/Checkmk/checkmk-sub006/internal/row"
)

func fixtureAdapter() *core.MockAdapter {
	a := core.NewMockAdapter()
	a.AddHost(&core.Host{Name: "web1", Address: "10.0.0.1", State: 0, Groups: []string{"linux"}, Contacts: []string{"alice"}})
	a.AddHost(&core.Host{Name: "web2", Address: "10.0.0.2", State: 1, Groups: []string{"linux"}, Contacts: []string{"bob"}})
	a.AddService(&core.Service{HostName: "web1", Description: "CPU load", State: 0, Contacts: []string{"alice"}})
	a.AddService(&core.Service{HostName: "web1", Description: "Disk space", State: 2, Contacts: []string{"bob"}})
	a.AddHostGroup(&core.HostGroup{Name: "linux", Alias: "Linux hosts", Members: []string{"web1", "web2"}})
	return a
}

func TestHostsTableColumnLookup(t *testing.T) {
	hosts := NewHostsTable()

	c, err := hosts.Column("name")
	require.NoError(t, err)
	assert.Equal(t, "name", c.Name())

	c, err = hosts.Column("host_name")
	require.NoError(t, err)
	assert.Equal(t, "name", c.Name())

	_, err = hosts.Column("no_such_column")
	assert.Error(t, err)
}

func TestHostsTableScanAndExtract(t *testing.T) {
	adapter := fixtureAdapter()
	hosts := NewHostsTable()

	q := &parsedquery.ParsedQuery{RowFilter: filter.Tautology}
	handles, strategy := hosts.RowSource(adapter, q)
	assert.Equal(t, "scan", strategy)
	assert.Len(t, handles, 2)

	nameCol, err := hosts.Column("name")
	require.NoError(t, err)
	var names []string
	for _, h := range handles {
		names = append(names, nameCol.Extract(h).Str)
	}
	assert.ElementsMatch(t, []string{"web1", "web2"}, names)
}

func TestHostsTableIndexLookup(t *testing.T) {
	adapter := fixtureAdapter()
	hosts := NewHostsTable()

	nameCol, err := hosts.Column("name")
	require.NoError(t, err)
	cf, err := filter.NewColumnFilter(nameCol, column.FilterKindRow, column.OpEqual, "web1")
	require.NoError(t, err)

	q := &parsedquery.ParsedQuery{RowFilter: cf}
	handles, strategy := hosts.RowSource(adapter, q)
	assert.Equal(t, "index:name", strategy)
	require.Len(t, handles, 1)
	assert.Equal(t, "web1", nameCol.Extract(handles[0]).Str)
}

func TestServicesTableHostJoinColumns(t *testing.T) {
	adapter := fixtureAdapter()
	hosts := NewHostsTable()
	services := NewServicesTable(hosts)

	q := &parsedquery.ParsedQuery{RowFilter: filter.Tautology}
	handles, _ := services.RowSource(adapter, q)
	require.Len(t, handles, 2)

	hostNameCol, err := services.Column("host_name")
	require.NoError(t, err)
	descCol, err := services.Column("description")
	require.NoError(t, err)

	for _, h := range handles {
		assert.Equal(t, "web1", hostNameCol.Extract(h).Str)
		assert.NotEmpty(t, descCol.Extract(h).Str)
	}
}

func TestServicesTableAuthorizationStrictVsLoose(t *testing.T) {
	adapter := fixtureAdapter()
	hosts := NewHostsTable()
	services := NewServicesTable(hosts)

	q := &parsedquery.ParsedQuery{RowFilter: filter.Tautology}
	handles, _ := services.RowSource(adapter, q)

	strict := authz.NewGate(config.AuthorizationStrict, config.AuthorizationStrict)
	loose := authz.NewGate(config.AuthorizationLoose, config.AuthorizationStrict)
	bob := authz.User{Name: "bob"}

	var sawCPULoad row.Handle
	descCol, _ := services.Column("description")
	for _, h := range handles {
		if descCol.Extract(h).Str == "CPU load" {
			sawCPULoad = h
		}
	}

	// "CPU load" only lists alice as a contact; bob only reaches it
	// under loose mode via web1's host contacts (web1 has no bob contact
	// either, so it stays denied under both modes here).
	assert.False(t, services.Authorize(strict, bob, adapter, sawCPULoad))
	assert.False(t, services.Authorize(loose, bob, adapter, sawCPULoad))
}

func TestHostsByGroupTableJoinsMembership(t *testing.T) {
	adapter := fixtureAdapter()
	hosts := NewHostsTable()
	hg := NewHostsByGroupTable(hosts)

	q := &parsedquery.ParsedQuery{RowFilter: filter.Tautology}
	handles, _ := hg.RowSource(adapter, q)
	assert.Len(t, handles, 2)

	groupCol, err := hg.Column("hostgroup_name")
	require.NoError(t, err)
	for _, h := range handles {
		assert.Equal(t, "linux", groupCol.Extract(h).Str)
	}
}

func TestRegistryBuildsColumnsMetaTable(t *testing.T) {
	r := NewDefaultRegistry()

	hostsTable, ok := r.Get("hosts")
	require.True(t, ok)
	assert.NotEmpty(t, hostsTable.Columns())

	columnsTable, ok := r.Get("columns")
	require.True(t, ok)
	assert.Contains(t, r.Names(), "hosts")
	assert.Contains(t, r.Names(), "services")
	assert.NotNil(t, columnsTable)
}
