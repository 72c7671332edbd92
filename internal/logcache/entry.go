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

// EntryType enumerates the history-log line types the state-history
// reducer (§4.6) and the "log" table both need to recognize.
type EntryType string

const (
	TypeHostAlert            EntryType = "HOST ALERT"
	TypeServiceAlert         EntryType = "SERVICE ALERT"
	TypeInitialHostState     EntryType = "INITIAL HOST STATE"
	TypeInitialServiceState  EntryType = "INITIAL SERVICE STATE"
	TypeCurrentHostState     EntryType = "CURRENT HOST STATE"
	TypeCurrentServiceState  EntryType = "CURRENT SERVICE STATE"
	TypeHostDowntimeAlert    EntryType = "HOST DOWNTIME ALERT"
	TypeServiceDowntimeAlert EntryType = "SERVICE DOWNTIME ALERT"
	TypeHostFlappingAlert    EntryType = "HOST FLAPPING ALERT"
	TypeServiceFlappingAlert EntryType = "SERVICE FLAPPING ALERT"
	TypeHostNotification     EntryType = "HOST NOTIFICATION"
	TypeServiceNotification  EntryType = "SERVICE NOTIFICATION"
	TypeTimeperiodTransition EntryType = "TIMEPERIOD TRANSITION"
	TypeLogVersion           EntryType = "LOG VERSION"
	TypeLoggingInitialStates EntryType = "logging initial states"
	TypeProgramStarting      EntryType = "PROGRAM STARTING"
	TypeProgramEnding        EntryType = "PROGRAM ENDING"
	TypeExternalCommand      EntryType = "EXTERNAL COMMAND"
	TypeText                 EntryType = ""
)

// classOf maps an entry type to the class bit it counts toward (§4.5,
// §4.6's fixed {alert, program, state} replay mask).
func (t EntryType) classOf() Class {
	switch t {
	case TypeHostAlert, TypeServiceAlert, TypeHostFlappingAlert, TypeServiceFlappingAlert,
		TypeHostDowntimeAlert, TypeServiceDowntimeAlert:
		return ClassAlert
	case TypeInitialHostState, TypeInitialServiceState, TypeCurrentHostState, TypeCurrentServiceState:
		return ClassState
	case TypeProgramStarting, TypeProgramEnding, TypeLogVersion, TypeLoggingInitialStates:
		return ClassProgram
	case TypeHostNotification, TypeServiceNotification:
		return ClassNotification
	case TypeExternalCommand:
		return ClassCommand
	case TypeTimeperiodTransition:
		return ClassState
	case TypeText:
		return ClassText
	default:
		return ClassInfo
	}
}

// Entry is one parsed history-log line (§3 "log entry", §4.6 "Replay").
type Entry struct {
	Time  int64
	Line  int // line number within its file, used for (timestamp, line) dedup
	Class Class
	Type  EntryType

	HostName    string
	Description string // service description; empty for host-level entries

	State     int
	StateType string // HARD/SOFT
	Attempt   int

	PluginOutput string
	Contact      string
	Comment      string

	// Started reports, for downtime/flapping alerts, whether this is a
	// START (true) or STOP/STOPPED (false) transition.
	Started bool

	// TimeperiodName/TimeperiodActive carry a TIMEPERIOD TRANSITION's
	// payload (§4.6 "timeperiod-transition entries").
	TimeperiodName   string
	TimeperiodActive bool

	Raw string
}

// IsHostLevel reports whether this entry targets a host rather than a
// specific service under it (§4.6 "propagate the change to every
// service under the same host").
func (e *Entry) IsHostLevel() bool { return e.HostName != "" && e.Description == "" }
