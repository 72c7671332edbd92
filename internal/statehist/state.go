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

// Package statehist implements the state-history reducer of §4.6: it
// replays the log cache's {alert, program, state} entries over a
// query window and turns them into non-overlapping per-object
// sub-intervals, the "statehist" table's rows.
package statehist

import "github.com/Checkmk/checkmk-sub006/internal/core"

// objKey identifies a tracked host or service across the replay
// (§4.6 "a state record keyed by the host/service handle").
type objKey struct {
	host string
	desc string // empty for a host-level key
}

func (k objKey) isHost() bool { return k.desc == "" }

// trackedState is the mutable accumulator the reducer updates as it
// walks the log; it is distinct from Row, the immutable sub-interval
// snapshot emitted on each observable transition (§4.6 "emit the
// prior sub-interval").
type trackedState struct {
	key     objKey
	isHost  bool
	host    *core.Host
	service *core.Service

	state      int
	hostDown   bool
	inDowntime bool
	// inHostDowntime mirrors the owning host's downtime status onto a
	// service row, since a downed host's downtime gates its services
	// too (§4.6 "propagate the change to every service under the same
	// host").
	inHostDowntime bool
	isFlapping     bool

	notificationPeriod   string
	inNotificationPeriod bool
	servicePeriod        string
	inServicePeriod      bool

	debugInfo     string
	logOutput     string
	longLogOutput string

	// mayNoLongerExist is set on a "logging initial states" marker and
	// cleared by a subsequent initial-state entry naming this object
	// (still exists); the first other entry after the marker that finds
	// it still set confirms it as hasVanished (§4.6 "log-version ...
	// markers").
	mayNoLongerExist bool
	hasVanished      bool
	lastKnownTime    int64

	from, until int64
	lineno      int

	// childServices lets a host-level propagate its state/downtime
	// changes onto every service tracked under it without a map scan
	// per entry (§4.6 "propagate the change to every service under the
	// same host").
	childServices []*trackedState
}

// Row is one emitted sub-interval of the "statehist" table (§4.6
// "Finalization", §3 "Row").
type Row struct {
	Time   int64
	Lineno int

	From, Until int64
	Duration    int64
	DurationPart float64

	State      int
	HostDown   bool
	InDowntime bool

	// InHostDowntime is this row's (or, for a host row, its own)
	// host-downtime flag.
	InHostDowntime bool
	IsFlapping     bool

	NotificationPeriod   string
	InNotificationPeriod bool
	ServicePeriod        string
	InServicePeriod      bool

	DebugInfo string

	HostName    string
	Description string

	LogOutput     string
	LongLogOutput string

	Host    *core.Host
	Service *core.Service

	DurationOK, DurationWarning, DurationCritical, DurationUnknown, DurationUnmonitored                         int64
	DurationPartOK, DurationPartWarning, DurationPartCritical, DurationPartUnknown, DurationPartUnmonitored float64
}

// computeDurations buckets Row's total duration into the one state
// column it belongs to, matching the state values a host or service
// alert entry carries: -1 unmonitored, 0 ok/up, 1 warning, 2
// critical/down, 3 unknown (§4.6, mirroring the original's per-state
// duration bucketing literally, host states included).
func computeDurations(r *Row, queryTimeframe int64) {
	r.Duration = r.Until - r.From
	if queryTimeframe > 0 {
		r.DurationPart = float64(r.Duration) / float64(queryTimeframe)
	}

	switch r.State {
	case -1:
		r.DurationUnmonitored, r.DurationPartUnmonitored = r.Duration, r.DurationPart
	case 0:
		r.DurationOK, r.DurationPartOK = r.Duration, r.DurationPart
	case 1:
		r.DurationWarning, r.DurationPartWarning = r.Duration, r.DurationPart
	case 2:
		r.DurationCritical, r.DurationPartCritical = r.Duration, r.DurationPart
	case 3:
		r.DurationUnknown, r.DurationPartUnknown = r.Duration, r.DurationPart
	}
}

// snapshot turns the live accumulator into an emitted Row spanning
// [from, until), the way process() in §4.6 captures one sub-interval.
func (s *trackedState) snapshot(until int64, queryTimeframe int64) *Row {
	r := &Row{
		Time:                 until,
		Lineno:               s.lineno,
		From:                 s.from,
		Until:                until,
		State:                s.state,
		HostDown:             s.hostDown,
		InDowntime:           s.inDowntime,
		InHostDowntime:       s.inHostDowntime,
		IsFlapping:           s.isFlapping,
		NotificationPeriod:   s.notificationPeriod,
		InNotificationPeriod: s.inNotificationPeriod,
		ServicePeriod:        s.servicePeriod,
		InServicePeriod:      s.inServicePeriod,
		DebugInfo:            s.debugInfo,
		HostName:             s.key.host,
		Description:          s.key.desc,
		LogOutput:            s.logOutput,
		LongLogOutput:        s.longLogOutput,
		Host:                 s.host,
		Service:              s.service,
	}
	computeDurations(r, queryTimeframe)
	return r
}
