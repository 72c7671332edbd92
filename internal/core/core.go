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

// Package core declares the monitoring-core adapter: the read-only
// interface onto the live object graph (§6 "I", §9 "Ownership
// cycles"). The monitoring core itself is an external collaborator
// not specified here (§1) — this package only pins down the contract
// the query engine depends on, plus an in-memory mock used by tests,
// the same role the teacher's *fake.Clientset plays for k8s access.
package core

// Host is a borrowed, read-only view of one monitored host (§3).
type Host struct {
	Name        string
	Address     string
	State       int // 0=up, 1=down, 2=unreachable
	Groups      []string
	Contacts    []string
	CustomVars  map[string]string
	PluginOutput string

	// NotificationPeriod/ServicePeriod name the timeperiods gating
	// notifications and service-period membership (§4.6 "the
	// notification period of the host or service in question").
	NotificationPeriod string
	ServicePeriod       string
}

// Service is a borrowed, read-only view of one monitored service on a
// host (§3). HostName always refers to an existing Host in the same
// adapter.
type Service struct {
	HostName     string
	Description  string
	State        int // 0=ok,1=warn,2=crit,3=unknown
	Groups       []string
	Contacts     []string
	CustomVars   map[string]string
	PluginOutput string

	NotificationPeriod string
	ServicePeriod       string
}

// Contact is a monitoring-core contact entitled to see some subset of
// hosts/services (§3).
type Contact struct {
	Name  string
	Email string
}

// HostGroup is a named collection of host names (§4.7 joins).
type HostGroup struct {
	Name    string
	Alias   string
	Members []string // host names
}

// ServiceGroup is a named collection of (host, service) pairs.
type ServiceGroup struct {
	Name    string
	Alias   string
	Members [][2]string // [hostName, description]
}

// Comment attaches free text to a host or service (§3).
type Comment struct {
	ID          int
	HostName    string
	Description string // empty for host comments
	Author      string
	Text        string
	EntryTime   int64
	Persistent  bool
}

// Downtime schedules a maintenance window on a host or service (§3).
type Downtime struct {
	ID          int
	HostName    string
	Description string // empty for host downtimes
	Author      string
	Comment     string
	Start       int64
	End         int64
	Fixed       bool
	TriggerID   int
}

// Timeperiod is a named schedule used to evaluate notification and
// service periods (§3, §4.6).
type Timeperiod struct {
	Name  string
	Alias string
}

// Adapter is the read-only interface onto the live monitoring-core
// object graph (§6 "I"). Implementations return either a borrowed
// reference bounded by the current call or a small owned snapshot
// (§5 "Shared resources").
type Adapter interface {
	Hosts() []*Host
	HostByName(name string) (*Host, bool)

	Services() []*Service
	ServicesByHost(hostName string) []*Service
	ServiceByKey(hostName, description string) (*Service, bool)

	Contacts() []*Contact
	ContactByName(name string) (*Contact, bool)

	HostGroups() []*HostGroup
	HostGroupByName(name string) (*HostGroup, bool)

	ServiceGroups() []*ServiceGroup
	ServiceGroupByName(name string) (*ServiceGroup, bool)

	// Comments/CommentsUnlocked and Downtimes/DowntimesUnlocked mirror
	// the source's two accessor variants: the locked form acquires the
	// adapter's own synchronization, the unlocked form assumes the
	// caller already holds it (§4.5 Open Questions; §9).
	Comments() []*Comment
	CommentsUnlocked() []*Comment
	Downtimes() []*Downtime
	DowntimesUnlocked() []*Downtime

	Timeperiods() []*Timeperiod
	TimeperiodByName(name string) (*Timeperiod, bool)
	TimeperiodIsActive(name string, at int64) bool

	// LastRotation returns the UTC epoch second of the most recent
	// history-file rotation the core has performed, used by the log
	// cache to decide whether its index is stale (§4.5).
	LastRotation() int64

	// SubmitCommand forwards an external-command string to the
	// monitoring core under a single global mutex (§6 COMMAND
	// requests). Implementations must not block the caller beyond
	// enqueuing the command.
	SubmitCommand(raw string) error
}
