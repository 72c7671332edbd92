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
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checkmk/checkmk-sub006/internal/authz"
	"github.com/Checkmk/checkmk-sub006/internal/core"
	"github.com/Checkmk/checkmk-sub006/internal/parser"
	"github.com/Checkmk/checkmk-sub006/internal/parsedquery"
	"github.com/Checkmk/checkmk-sub006/internal/table"
)

func fixtureLogTable(t *testing.T) (*table.Table, core.Adapter) {
	t.Helper()
	dir := t.TempDir()
	watched := filepath.Join(dir, "history")
	contents := "" +
		"[1700000000] HOST ALERT: web1;DOWN;HARD;1;bad ping\n" +
		"[1700000001] SERVICE ALERT: web1;CPU load;CRITICAL;HARD;1;load spike\n" +
		"[1700000002] PROGRAM STARTING: core up\n"
	require.NoError(t, os.WriteFile(watched, []byte(contents), 0o644))

	adapter := core.NewMockAdapter()
	adapter.AddHost(&core.Host{Name: "web1", Contacts: []string{"alice"}})
	adapter.AddService(&core.Service{HostName: "web1", Description: "CPU load", Contacts: []string{"alice"}})

	cache, err := New(adapter, dir, watched, 1_000_000, 10_000, zerolog.Nop())
	require.NoError(t, err)

	hosts := table.NewHostsTable()
	services := table.NewServicesTable(hosts)

	return NewLogTable(cache, hosts, services), adapter
}

func TestLogTableColumnLookup(t *testing.T) {
	lt, _ := fixtureLogTable(t)

	c, err := lt.Column("time")
	require.NoError(t, err)
	assert.Equal(t, "time", c.Name())

	c, err = lt.Column("log_class")
	require.NoError(t, err)
	assert.Equal(t, "class", c.Name())

	c, err = lt.Column("current_host_name")
	require.NoError(t, err)
	assert.Equal(t, "current_host_name", c.Name())
}

func TestLogTableRowSourceScansAllClassesByDefault(t *testing.T) {
	lt, adapter := fixtureLogTable(t)

	handles, plan := lt.RowSource(adapter, blankQuery(lt))
	assert.Equal(t, "logcache", plan)
	require.Len(t, handles, 3)

	msgCol, err := lt.Column("message")
	require.NoError(t, err)
	assert.Contains(t, msgCol.Extract(handles[0]).Str, "HOST ALERT")
}

func TestLogTableRowSourceJoinsCurrentHost(t *testing.T) {
	lt, adapter := fixtureLogTable(t)

	handles, _ := lt.RowSource(adapter, blankQuery(lt))

	hostNameCol, err := lt.Column("current_host_name")
	require.NoError(t, err)
	assert.Equal(t, "web1", hostNameCol.Extract(handles[0]).Str)
}

func TestLogTableAuthorizeHonorsHostAuthorization(t *testing.T) {
	lt, adapter := fixtureLogTable(t)
	gate := authz.NewGate("strict", "strict")

	handles, _ := lt.RowSource(adapter, blankQuery(lt))

	alice := authz.User{Name: "alice"}
	bob := authz.User{Name: "bob"}

	assert.True(t, lt.Authorize(gate, alice, adapter, handles[0]))
	assert.False(t, lt.Authorize(gate, bob, adapter, handles[0]))
	// the program-starting entry names no host and is visible to anyone
	assert.True(t, lt.Authorize(gate, bob, adapter, handles[2]))
}

func blankQuery(lt *table.Table) *parsedquery.ParsedQuery {
	p := parser.New("log", lt, 1700000010)
	return p.Parse(nil)
}
