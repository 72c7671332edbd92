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
	"github.com/Checkmk/checkmk-sub006/internal/core"
	"github.com/Checkmk/checkmk-sub006/internal/parsedquery"
	"github.com/Checkmk/checkmk-sub006/internal/row"
)

func asHost(v any) *core.Host { return v.(*core.Host) }

// NewHostsTable builds the "hosts" table (§3 "Host"). Source selection
// prefers a direct name lookup when the query's filter pins down
// "name" to a literal (§4.4 "Source selection").
func NewHostsTable() *Table {
	t := New("hosts", "host_")

	t.AddColumn(StringColumn("name", row.Identity, func(v any) string { return asHost(v).Name }))
	t.AddColumn(StringColumn("address", row.Identity, func(v any) string { return asHost(v).Address }))
	t.AddColumn(IntColumn("state", row.Identity, func(v any) int64 { return int64(asHost(v).State) }))
	t.AddColumn(ListColumn("groups", row.Identity, func(v any) []string { return asHost(v).Groups }))
	t.AddColumn(ListColumn("contacts", row.Identity, func(v any) []string { return asHost(v).Contacts }))
	t.AddColumn(DictColumn("custom_variables", row.Identity, func(v any) map[string]string { return asHost(v).CustomVars }))
	t.AddColumn(StringColumn("plugin_output", row.Identity, func(v any) string { return asHost(v).PluginOutput }))
	t.AddColumn(StringColumn("notification_period", row.Identity, func(v any) string { return asHost(v).NotificationPeriod }))
	t.AddColumn(StringColumn("service_period", row.Identity, func(v any) string { return asHost(v).ServicePeriod }))

	t.RowSource = func(adapter core.Adapter, q *parsedquery.ParsedQuery) ([]row.Handle, string) {
		if name, ok := q.RowFilter.StringValueRestriction("name"); ok {
			if h, found := adapter.HostByName(name); found {
				return []row.Handle{{Primary: h}}, "index:name"
			}
			return nil, "index:name"
		}
		hosts := adapter.Hosts()
		handles := make([]row.Handle, len(hosts))
		for i, h := range hosts {
			handles[i] = row.Handle{Primary: h}
		}
		return handles, "scan"
	}

	t.Authorize = func(gate *authz.Gate, u authz.User, adapter core.Adapter, h row.Handle) bool {
		return gate.IsAuthorizedForHost(u, asHost(h.Primary))
	}

	t.Get = func(adapter core.Adapter, key string) (row.Handle, bool) {
		h, ok := adapter.HostByName(key)
		if !ok {
			return row.Handle{}, false
		}
		return row.Handle{Primary: h}, true
	}

	return t
}
