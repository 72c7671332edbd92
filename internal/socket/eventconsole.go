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
	"bufio"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Checkmk/checkmk-sub006/internal/protoerr"
)

// EventConsoleBridge connects to the separate event-console UNIX
// socket (§6 "Event-console bridge"): one connection per request, a
// text request terminated by a blank line, and a tab-separated
// response whose first row is the column header.
type EventConsoleBridge struct {
	SocketPath string
	Timeout    time.Duration
	Log        zerolog.Logger
}

func (b *EventConsoleBridge) dial() (net.Conn, error) {
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return net.DialTimeout("unix", b.SocketPath, timeout)
}

// Send forwards a COMMAND request fire-and-forget (§8 scenario 6: "a
// refused connection raises nothing visible"). Used for EC_-prefixed
// COMMAND requests, which never read a reply.
func (b *EventConsoleBridge) Send(command string) {
	conn, err := b.dial()
	if err != nil {
		b.Log.Debug().Err(err).Msg("event-console command dropped: dial failed")
		return
	}
	defer conn.Close()

	conn.Write([]byte(command + "\n\n"))
}

// Query issues a GET-style text request against the event console and
// parses its tab-separated rows, the column header first (§6
// "Event-console bridge"). Errors become bad-gateway (§7).
func (b *EventConsoleBridge) Query(request string) (header []string, rows [][]string, err error) {
	conn, err := b.dial()
	if err != nil {
		return nil, nil, protoerr.BadGateway("event-console connect failed: %v", err)
	}
	defer conn.Close()

	deadline := b.Timeout
	if deadline <= 0 {
		deadline = 5 * time.Second
	}
	conn.SetDeadline(time.Now().Add(deadline))

	if _, err := conn.Write([]byte(request + "\n\n")); err != nil {
		return nil, nil, protoerr.BadGateway("event-console write failed: %v", err)
	}

	scanner := bufio.NewScanner(conn)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, protoerr.BadGateway("event-console read failed: %v", err)
	}
	if len(lines) == 0 {
		return nil, nil, nil
	}

	header = strings.Split(lines[0], "\t")
	for _, line := range lines[1:] {
		rows = append(rows, strings.Split(line, "\t"))
	}
	return header, rows, nil
}
