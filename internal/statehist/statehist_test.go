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

package statehist

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checkmk/checkmk-sub006/internal/authz"
	"github.com/Checkmk/checkmk-sub006/internal/column"
	"github.com/Checkmk/checkmk-sub006/internal/core"
	"github.com/Checkmk/checkmk-sub006/internal/filter"
	"github.com/Checkmk/checkmk-sub006/internal/logcache"
	"github.com/Checkmk/checkmk-sub006/internal/parsedquery"
	"github.com/Checkmk/checkmk-sub006/internal/table"
)

const since = int64(1700000000)
const until = int64(1700001000)

func windowQuery(t *testing.T, st *table.Table) *parsedquery.ParsedQuery {
	t.Helper()
	timeCol, err := st.Column("time")
	require.NoError(t, err)

	lo, err := filter.NewColumnFilter(timeCol, column.FilterKindRow, column.OpGreaterOrEqual, strconv.FormatInt(since, 10))
	require.NoError(t, err)
	hi, err := filter.NewColumnFilter(timeCol, column.FilterKindRow, column.OpLess, strconv.FormatInt(until, 10))
	require.NoError(t, err)

	return &parsedquery.ParsedQuery{
		TableName: "statehist",
		RowFilter: filter.And(lo, hi),
	}
}

func fixture(t *testing.T, lines string) (*table.Table, core.Adapter) {
	t.Helper()
	dir := t.TempDir()
	watched := filepath.Join(dir, "history")
	require.NoError(t, os.WriteFile(watched, []byte(lines), 0o644))

	adapter := core.NewMockAdapter()
	adapter.AddHost(&core.Host{Name: "web1", State: 0, NotificationPeriod: "24x7", Contacts: []string{"alice"}})
	adapter.AddService(&core.Service{HostName: "web1", Description: "CPU load", State: 0, NotificationPeriod: "24x7"})
	adapter.AddHost(&core.Host{Name: "db1", State: 0})
	adapter.AddHost(&core.Host{Name: "idle1", State: 0, PluginOutput: "all good"})
	adapter.AddTimeperiod(&core.Timeperiod{Name: "24x7"}, true)

	cache, err := logcache.New(adapter, dir, watched, 1_000_000, 10_000, zerolog.Nop())
	require.NoError(t, err)

	hosts := table.NewHostsTable()
	services := table.NewServicesTable(hosts)
	st := NewStateHistoryTable(cache, hosts, services)

	return st, adapter
}

func TestReplayProducesNonOverlappingSubIntervals(t *testing.T) {
	lines := "" +
		"[1700000010] HOST ALERT: web1;DOWN;HARD;1;bad ping\n" +
		"[1700000020] HOST ALERT: web1;UP;HARD;1;back up\n"

	st, adapter := fixture(t, lines)
	handles, plan := st.RowSource(adapter, windowQuery(t, st))
	assert.Equal(t, "statehist", plan)
	require.NotEmpty(t, handles)

	fromCol, _ := st.Column("from")
	untilCol, _ := st.Column("until")
	hostCol, _ := st.Column("host_name")
	descCol, _ := st.Column("service_description")

	var webRows []row2
	for _, h := range handles {
		if hostCol.Extract(h).Str != "web1" || descCol.Extract(h).Str != "" {
			continue
		}
		webRows = append(webRows, row2{
			from:  fromCol.Extract(h).Time,
			until: untilCol.Extract(h).Time,
		})
	}
	require.Len(t, webRows, 3)
	for i := 1; i < len(webRows); i++ {
		assert.Equal(t, webRows[i-1].until, webRows[i].from, "sub-intervals must be contiguous")
	}
	assert.Equal(t, since, webRows[0].from)
	assert.Equal(t, until, webRows[len(webRows)-1].until)
}

type row2 struct{ from, until int64 }

func TestHostDowntimePropagatesToChildService(t *testing.T) {
	lines := "" +
		"[1700000010] SERVICE ALERT: web1;CPU load;CRITICAL;HARD;1;spike\n" +
		"[1700000020] HOST DOWNTIME ALERT: web1;STARTED;sched\n"

	st, adapter := fixture(t, lines)
	handles, _ := st.RowSource(adapter, windowQuery(t, st))

	hostCol, _ := st.Column("host_name")
	descCol, _ := st.Column("service_description")
	inHostDowntimeCol, _ := st.Column("in_host_downtime")
	untilCol, _ := st.Column("until")

	var sawPropagated bool
	for _, h := range handles {
		if hostCol.Extract(h).Str == "web1" && descCol.Extract(h).Str == "CPU load" &&
			untilCol.Extract(h).Time == until && inHostDowntimeCol.Extract(h).Int == 1 {
			sawPropagated = true
		}
	}
	assert.True(t, sawPropagated, "host downtime should propagate onto the service's final sub-interval")
}

func TestTimeperiodTransitionReEvaluatesNotificationPeriod(t *testing.T) {
	lines := "" +
		"[1700000010] SERVICE ALERT: web1;CPU load;CRITICAL;HARD;1;spike\n" +
		"[1700000020] TIMEPERIOD TRANSITION: 24x7;1;0\n"

	st, adapter := fixture(t, lines)
	handles, _ := st.RowSource(adapter, windowQuery(t, st))

	descCol, _ := st.Column("service_description")
	inNotifCol, _ := st.Column("in_notification_period")
	untilCol, _ := st.Column("until")

	var sawInactive bool
	for _, h := range handles {
		if descCol.Extract(h).Str == "CPU load" && untilCol.Extract(h).Time == until && inNotifCol.Extract(h).Int == 0 {
			sawInactive = true
		}
	}
	assert.True(t, sawInactive, "the timeperiod transition should flip in_notification_period on the tracked service")
}

func TestVanishedObjectEmitsTerminalUnmonitoredInterval(t *testing.T) {
	lines := "" +
		"[1700000010] HOST ALERT: db1;DOWN;HARD;1;bad ping\n" +
		"[1700000020] logging initial states\n" +
		"[1700000030] HOST ALERT: web1;DOWN;HARD;1;unrelated\n"

	st, adapter := fixture(t, lines)
	handles, _ := st.RowSource(adapter, windowQuery(t, st))

	hostCol, _ := st.Column("host_name")
	stateCol, _ := st.Column("state")
	untilCol, _ := st.Column("until")

	var sawUnmonitored bool
	for _, h := range handles {
		if hostCol.Extract(h).Str == "db1" && untilCol.Extract(h).Time == until && stateCol.Extract(h).Int == -1 {
			sawUnmonitored = true
		}
	}
	assert.True(t, sawUnmonitored, "db1 should finish the window UNMONITORED after vanishing past the marker")
}

func TestUnloggedObjectIsSeededWithCurrentState(t *testing.T) {
	st, adapter := fixture(t, "[1700000010] PROGRAM STARTING: core up\n")
	handles, _ := st.RowSource(adapter, windowQuery(t, st))

	hostCol, _ := st.Column("host_name")
	fromCol, _ := st.Column("from")
	untilCol, _ := st.Column("until")
	logCol, _ := st.Column("log_output")

	var found bool
	for _, h := range handles {
		if hostCol.Extract(h).Str == "idle1" {
			found = true
			assert.Equal(t, since, fromCol.Extract(h).Time)
			assert.Equal(t, until, untilCol.Extract(h).Time)
			assert.Equal(t, "all good", logCol.Extract(h).Str)
		}
	}
	assert.True(t, found, "a host with no log activity in the window must still produce a row")
}

func TestColumnLookupBorrowsCurrentHostColumns(t *testing.T) {
	st, _ := fixture(t, "")
	c, err := st.Column("current_host_name")
	require.NoError(t, err)
	assert.Equal(t, "current_host_name", c.Name())
}

func TestAuthorizeHonorsHostAuthorization(t *testing.T) {
	lines := "[1700000010] HOST ALERT: web1;DOWN;HARD;1;bad ping\n"
	st, adapter := fixture(t, lines)
	handles, _ := st.RowSource(adapter, windowQuery(t, st))
	require.NotEmpty(t, handles)

	gate := authz.NewGate("strict", "strict")
	alice := authz.User{Name: "alice"}
	bob := authz.User{Name: "bob"}

	hostCol, _ := st.Column("host_name")
	for _, h := range handles {
		if hostCol.Extract(h).Str == "web1" {
			assert.True(t, st.Authorize(gate, alice, adapter, h), "alice is a contact of web1")
			assert.False(t, st.Authorize(gate, bob, adapter, h), "bob is not a contact of web1")
			return
		}
	}
	t.Fatal("expected a web1 row")
}
