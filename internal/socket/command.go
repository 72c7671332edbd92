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

package socket

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Checkmk/checkmk-sub006/internal/metrics"
)

// handleCommand implements §6 "COMMAND requests". A COMMAND request
// never produces a response body (§7 "Propagation").
func (c *connHandler) handleCommand(body string) {
	name, args, _ := splitCommand(body)
	if name == "" {
		return
	}

	switch {
	case name == "MK_LOGWATCH_ACKNOWLEDGE":
		metrics.CommandsTotal.WithLabelValues("local").Inc()
		c.server.acknowledgeLogwatch(args)
	case name == "DEL_CRASH_REPORT":
		metrics.CommandsTotal.WithLabelValues("local").Inc()
		c.server.deleteCrashReport(args)
	case strings.HasPrefix(name, "EC_"):
		metrics.CommandsTotal.WithLabelValues("eventconsole").Inc()
		if c.server.EventConsole != nil {
			c.server.EventConsole.Send("COMMAND " + strings.TrimPrefix(name, "EC_") + args)
		}
	case name == "LOG" || name == "ROTATE_LOGFILE":
		metrics.CommandsTotal.WithLabelValues("core").Inc()
		c.server.forwardCommand("_" + name + args)
	default:
		metrics.CommandsTotal.WithLabelValues("core").Inc()
		c.server.forwardCommand(name + args)
	}
}

// splitCommand parses "[<epoch>] <NAME>;<args>" into name and args
// (args keeps its leading ";", or is empty), discarding the optional
// leading timestamp bracket (§6 "COMMAND requests").
func splitCommand(body string) (name, args string, hasTimestamp bool) {
	body = strings.TrimSpace(body)
	if strings.HasPrefix(body, "[") {
		if idx := strings.IndexByte(body, ']'); idx >= 0 {
			body = strings.TrimSpace(body[idx+1:])
			hasTimestamp = true
		}
	}

	semi := strings.IndexByte(body, ';')
	if semi < 0 {
		return body, "", hasTimestamp
	}
	return body[:semi], body[semi:], hasTimestamp
}

// forwardCommand sends raw to the monitoring core under the single
// global mutex §6 requires of every non-special COMMAND.
func (s *Server) forwardCommand(raw string) {
	s.commandMu.Lock()
	defer s.commandMu.Unlock()

	if err := s.Adapter.SubmitCommand(raw); err != nil {
		s.Log.Error().Err(err).Str("command", raw).Msg("monitoring core rejected command")
	}
}

// acknowledgeLogwatch implements MK_LOGWATCH_ACKNOWLEDGE;<host>;<file>
// by clearing the cached logwatch state file for that host/file pair,
// mirroring mk_logwatch_acknowledge's directory-plus-host-plus-file
// contract in the original core.
func (s *Server) acknowledgeLogwatch(args string) {
	fields := strings.Split(strings.TrimPrefix(args, ";"), ";")
	if len(fields) != 2 || s.LogwatchDir == "" {
		s.Log.Warn().Str("args", args).Msg("MK_LOGWATCH_ACKNOWLEDGE expects 2 arguments")
		return
	}
	host, file := fields[0], fields[1]
	path := filepath.Join(s.LogwatchDir, host, file)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.Log.Error().Err(err).Str("path", path).Msg("failed to acknowledge logwatch state")
	}
}

// deleteCrashReport implements DEL_CRASH_REPORT;<id> by removing the
// crash report directory named by id under CrashReportsDir.
func (s *Server) deleteCrashReport(args string) {
	fields := strings.Split(strings.TrimPrefix(args, ";"), ";")
	if len(fields) != 1 || s.CrashReportsDir == "" {
		s.Log.Warn().Str("args", args).Msg("DEL_CRASH_REPORT expects 1 argument")
		return
	}
	path := filepath.Join(s.CrashReportsDir, fields[0])
	if err := os.RemoveAll(path); err != nil {
		s.Log.Error().Err(err).Str("path", path).Msg("failed to delete crash report")
	}
}
