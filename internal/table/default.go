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

// NewDefaultRegistry wires together every table that depends only on
// the monitoring-core adapter (§4.7). The log and state-history tables
// are registered separately by the packages that own their storage
// (logcache, statehist), since they need more than an Adapter to
// produce rows.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()

	hosts := NewHostsTable()
	services := NewServicesTable(hosts)
	contacts := NewContactsTable()
	hostGroups := NewHostGroupsTable()
	serviceGroups := NewServiceGroupsTable()

	r.Add(hosts)
	r.Add(services)
	r.Add(contacts)
	r.Add(hostGroups)
	r.Add(serviceGroups)
	r.Add(NewHostsByGroupTable(hosts))
	r.Add(NewServicesByGroupTable(hosts, services))
	r.Add(NewServicesByHostGroupTable(hosts, services))
	r.Add(NewCommentsTable(hosts, services))
	r.Add(NewDowntimesTable(hosts, services))
	r.Add(NewTimeperiodsTable())

	r.Add(r.BuildColumnsTable())

	return r
}
