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
	"math"
	"strings"
	"time"

	"github.com/Checkmk/checkmk-sub006/internal/authz"
	"github.com/Checkmk/checkmk-sub006/internal/core"
	"github.com/Checkmk/checkmk-sub006/internal/logcache"
	"github.com/Checkmk/checkmk-sub006/internal/parsedquery"
	"github.com/Checkmk/checkmk-sub006/internal/row"
	"github.com/Checkmk/checkmk-sub006/internal/table"
)

func rowOf(v any) *Row { return v.(*Row) }

// hostOfRow and serviceOfRow substitute a zero-value object for a
// sub-interval whose host/service no longer exists, mirroring the
// "log" table's hostOfJoin/svcOfJoin nil-substitution (§4.6
// "current_host_*/current_service_* columns").
func hostOfRow(h row.Handle) any {
	if r := rowOf(h.Primary); r.Host != nil {
		return r.Host
	}
	return &core.Host{}
}

func serviceOfRow(h row.Handle) any {
	if r := rowOf(h.Primary); r.Service != nil {
		return r.Service
	}
	return &core.Service{}
}

// NewStateHistoryTable builds the "statehist" table (§4.6): each row
// is a non-overlapping sub-interval produced by replaying the log
// cache over the query's time window, with current_host_*/
// current_service_* columns borrowed from the live "hosts"/"services"
// tables the way the "log" table borrows current_host_*/
// current_service_* for its own rows.
func NewStateHistoryTable(cache *logcache.Cache, hosts, services *table.Table) *table.Table {
	t := table.New("statehist", "")
	t.HasPrimaryKey = false

	t.AddColumn(table.TimeColumn("time", row.Identity, func(v any) int64 { return rowOf(v).Time }))
	t.AddColumn(table.IntColumn("lineno", row.Identity, func(v any) int64 { return int64(rowOf(v).Lineno) }))
	t.AddColumn(table.TimeColumn("from", row.Identity, func(v any) int64 { return rowOf(v).From }))
	t.AddColumn(table.TimeColumn("until", row.Identity, func(v any) int64 { return rowOf(v).Until }))
	t.AddColumn(table.IntColumn("duration", row.Identity, func(v any) int64 { return rowOf(v).Duration }))
	t.AddColumn(table.DoubleColumn("duration_part", row.Identity, func(v any) float64 { return rowOf(v).DurationPart }))

	t.AddColumn(table.IntColumn("state", row.Identity, func(v any) int64 { return int64(rowOf(v).State) }))
	t.AddColumn(table.BoolAsIntColumn("host_down", row.Identity, func(v any) bool { return rowOf(v).HostDown }))
	t.AddColumn(table.BoolAsIntColumn("in_downtime", row.Identity, func(v any) bool { return rowOf(v).InDowntime }))
	t.AddColumn(table.BoolAsIntColumn("in_host_downtime", row.Identity, func(v any) bool { return rowOf(v).InHostDowntime }))
	t.AddColumn(table.BoolAsIntColumn("is_flapping", row.Identity, func(v any) bool { return rowOf(v).IsFlapping }))
	t.AddColumn(table.BoolAsIntColumn("in_notification_period", row.Identity, func(v any) bool { return rowOf(v).InNotificationPeriod }))
	t.AddColumn(table.StringColumn("notification_period", row.Identity, func(v any) string { return rowOf(v).NotificationPeriod }))
	t.AddColumn(table.BoolAsIntColumn("in_service_period", row.Identity, func(v any) bool { return rowOf(v).InServicePeriod }))
	t.AddColumn(table.StringColumn("service_period", row.Identity, func(v any) string { return rowOf(v).ServicePeriod }))

	t.AddColumn(table.StringColumn("debug_info", row.Identity, func(v any) string { return rowOf(v).DebugInfo }))
	t.AddColumn(table.StringColumn("host_name", row.Identity, func(v any) string { return rowOf(v).HostName }))
	t.AddColumn(table.StringColumn("service_description", row.Identity, func(v any) string { return rowOf(v).Description }))
	t.AddColumn(table.StringColumn("log_output", row.Identity, func(v any) string { return rowOf(v).LogOutput }))
	t.AddColumn(table.StringColumn("long_log_output", row.Identity, func(v any) string { return rowOf(v).LongLogOutput }))

	t.AddColumn(table.IntColumn("duration_ok", row.Identity, func(v any) int64 { return rowOf(v).DurationOK }))
	t.AddColumn(table.DoubleColumn("duration_part_ok", row.Identity, func(v any) float64 { return rowOf(v).DurationPartOK }))
	t.AddColumn(table.IntColumn("duration_warning", row.Identity, func(v any) int64 { return rowOf(v).DurationWarning }))
	t.AddColumn(table.DoubleColumn("duration_part_warning", row.Identity, func(v any) float64 { return rowOf(v).DurationPartWarning }))
	t.AddColumn(table.IntColumn("duration_critical", row.Identity, func(v any) int64 { return rowOf(v).DurationCritical }))
	t.AddColumn(table.DoubleColumn("duration_part_critical", row.Identity, func(v any) float64 { return rowOf(v).DurationPartCritical }))
	t.AddColumn(table.IntColumn("duration_unknown", row.Identity, func(v any) int64 { return rowOf(v).DurationUnknown }))
	t.AddColumn(table.DoubleColumn("duration_part_unknown", row.Identity, func(v any) float64 { return rowOf(v).DurationPartUnknown }))
	t.AddColumn(table.IntColumn("duration_unmonitored", row.Identity, func(v any) int64 { return rowOf(v).DurationUnmonitored }))
	t.AddColumn(table.DoubleColumn("duration_part_unmonitored", row.Identity, func(v any) float64 { return rowOf(v).DurationPartUnmonitored }))

	for _, hc := range hosts.Columns() {
		t.AddColumn(table.BorrowColumn("current_host_"+hc.Name(), hc, hostOfRow))
	}
	for _, sc := range services.Columns() {
		t.AddColumn(table.BorrowColumn("current_service_"+sc.Name(), sc, serviceOfRow))
	}

	t.RowSource = func(adapter core.Adapter, q *parsedquery.ParsedQuery) ([]row.Handle, string) {
		since, until := queryWindow(q)
		objFilter := q.RowFilter.PartialFilter(isObjectRestrictionColumn)

		rows := Replay(cache, adapter, since, until, objFilter, q.TZOffset)
		handles := make([]row.Handle, len(rows))
		for i, rw := range rows {
			handles[i] = row.Handle{Primary: rw}
		}
		return handles, "statehist"
	}

	t.Authorize = func(gate *authz.Gate, u authz.User, adapter core.Adapter, h row.Handle) bool {
		rw := rowOf(h.Primary)
		if rw.Host == nil {
			return true
		}
		if rw.Description != "" {
			if rw.Service == nil {
				return gate.IsAuthorizedForHost(u, rw.Host)
			}
			return gate.IsAuthorizedForService(u, rw.Host, rw.Service)
		}
		return gate.IsAuthorizedForHost(u, rw.Host)
	}

	return t
}

// queryWindow derives the replay window [since, until) from the
// query's filter on "time" (§4.6 "Input"), the same
// GreatestLowerBound/LeastUpperBound technique the "log" table's
// windowAndMask uses, defaulting an unbounded upper edge to now.
func queryWindow(q *parsedquery.ParsedQuery) (since, until int64) {
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
	return since, until
}

// isObjectRestrictionColumn matches the column names the
// object-restriction blacklist considers, mirroring the source's
// partial filter over current-host/current-service/host/service
// columns (§4.6 "object-restriction sub-filter").
func isObjectRestrictionColumn(name string) bool {
	return name == "host_name" || name == "service_description" ||
		strings.HasPrefix(name, "current_host_") || strings.HasPrefix(name, "current_service_") ||
		strings.HasPrefix(name, "host_") || strings.HasPrefix(name, "service_")
}
