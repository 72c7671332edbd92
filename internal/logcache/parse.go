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
	"strconv"
	"strings"
)

// parseLine parses one history-log line of the form
// "[<epoch>] TYPE: field;field;..." into an Entry. Malformed lines are
// silently dropped (§4.5 "invalid lines are silently dropped", §7
// "Malformed log lines are silently dropped").
func parseLine(raw string, lineNo int) (*Entry, bool) {
	line := strings.TrimRight(raw, "\r\n")
	if line == "" {
		return nil, false
	}

	if !strings.HasPrefix(line, "[") {
		return nil, false
	}
	closeIdx := strings.IndexByte(line, ']')
	if closeIdx < 0 {
		return nil, false
	}

	ts, err := strconv.ParseInt(line[1:closeIdx], 10, 64)
	if err != nil {
		return nil, false
	}

	rest := strings.TrimSpace(line[closeIdx+1:])
	if rest == "" {
		return nil, false
	}

	e := &Entry{Time: ts, Line: lineNo, Raw: raw}

	typeTok, body, hasColon := strings.Cut(rest, ":")
	if !hasColon {
		// marker lines with no colon, e.g. "logging initial states"
		e.Type = EntryType(rest)
		e.Class = e.Type.classOf()
		return e, true
	}

	e.Type = EntryType(strings.TrimSpace(typeTok))
	e.Class = e.Type.classOf()

	fields := splitSemicolons(strings.TrimSpace(body))
	switch e.Type {
	case TypeHostAlert:
		// HOST ALERT: host;state;state-type;attempt;output
		if len(fields) < 4 {
			return nil, false
		}
		e.HostName = fields[0]
		e.State = hostStateNum(fields[1])
		e.StateType = fields[2]
		e.Attempt = atoiOr(fields[3], 0)
		if len(fields) > 4 {
			e.PluginOutput = fields[4]
		}
	case TypeServiceAlert:
		// SERVICE ALERT: host;description;state;state-type;attempt;output
		if len(fields) < 5 {
			return nil, false
		}
		e.HostName = fields[0]
		e.Description = fields[1]
		e.State = serviceStateNum(fields[2])
		e.StateType = fields[3]
		e.Attempt = atoiOr(fields[4], 0)
		if len(fields) > 5 {
			e.PluginOutput = fields[5]
		}
	case TypeInitialHostState, TypeCurrentHostState:
		if len(fields) < 4 {
			return nil, false
		}
		e.HostName = fields[0]
		e.State = hostStateNum(fields[1])
		e.StateType = fields[2]
		e.Attempt = atoiOr(fields[3], 0)
		if len(fields) > 4 {
			e.PluginOutput = fields[4]
		}
	case TypeInitialServiceState, TypeCurrentServiceState:
		if len(fields) < 5 {
			return nil, false
		}
		e.HostName = fields[0]
		e.Description = fields[1]
		e.State = serviceStateNum(fields[2])
		e.StateType = fields[3]
		e.Attempt = atoiOr(fields[4], 0)
		if len(fields) > 5 {
			e.PluginOutput = fields[5]
		}
	case TypeHostDowntimeAlert, TypeHostFlappingAlert:
		if len(fields) < 2 {
			return nil, false
		}
		e.HostName = fields[0]
		e.Started = strings.HasPrefix(fields[1], "START")
		if len(fields) > 2 {
			e.Comment = fields[2]
		}
	case TypeServiceDowntimeAlert, TypeServiceFlappingAlert:
		if len(fields) < 3 {
			return nil, false
		}
		e.HostName = fields[0]
		e.Description = fields[1]
		e.Started = strings.HasPrefix(fields[2], "START")
		if len(fields) > 3 {
			e.Comment = fields[3]
		}
	case TypeHostNotification:
		if len(fields) < 2 {
			return nil, false
		}
		e.Contact = fields[0]
		e.HostName = fields[1]
	case TypeServiceNotification:
		if len(fields) < 3 {
			return nil, false
		}
		e.Contact = fields[0]
		e.HostName = fields[1]
		e.Description = fields[2]
	case TypeTimeperiodTransition:
		if len(fields) < 1 {
			return nil, false
		}
		e.TimeperiodName = fields[0]
		if len(fields) > 2 {
			e.TimeperiodActive = fields[2] == "1"
		}
	case TypeExternalCommand:
		if len(fields) > 0 {
			e.Comment = fields[0]
		}
	default:
		if len(body) > 0 {
			e.PluginOutput = body
		}
	}

	return e, true
}

// splitSemicolons splits a log entry body on ';' the way the source's
// field extraction does, without treating an empty body as one field.
func splitSemicolons(body string) []string {
	if body == "" {
		return nil
	}
	return strings.Split(body, ";")
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}

func hostStateNum(s string) int {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "UP":
		return 0
	case "DOWN":
		return 1
	case "UNREACHABLE":
		return 2
	default:
		return atoiOr(s, 0)
	}
}

func serviceStateNum(s string) int {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OK":
		return 0
	case "WARNING":
		return 1
	case "CRITICAL":
		return 2
	case "UNKNOWN":
		return 3
	default:
		return atoiOr(s, 0)
	}
}
