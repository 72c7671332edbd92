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
	"context"
	"net"
	"strings"
	"time"

	"github.com/Checkmk/checkmk-sub006/internal/parsedquery"
	"github.com/Checkmk/checkmk-sub006/internal/parser"
	"github.com/Checkmk/checkmk-sub006/internal/protoerr"
	"github.com/Checkmk/checkmk-sub006/internal/query"
	"github.com/Checkmk/checkmk-sub006/internal/render"
)

// connHandler processes requests off one accepted connection serially
// until the client closes or keep-alive ends (§5 "Scheduling model").
type connHandler struct {
	server *Server
	conn   net.Conn
	r      *bufio.Reader
}

func (c *connHandler) serve(ctx context.Context) {
	c.r = bufio.NewReader(c.conn)

	for {
		idleTimeout := c.server.IdleTimeout
		if idleTimeout <= 0 {
			idleTimeout = 5 * time.Minute
		}
		c.conn.SetReadDeadline(time.Now().Add(idleTimeout))

		cmdLine, err := c.r.ReadString('\n')
		if err != nil {
			// Idle-timeout or client disconnect: close without an error
			// reply (§5 "Cancellation & timeouts").
			return
		}
		cmdLine = strings.TrimRight(cmdLine, "\r\n")
		if cmdLine == "" {
			continue
		}

		queryTimeout := c.server.QueryTimeout
		if queryTimeout <= 0 {
			queryTimeout = 10 * time.Second
		}
		c.conn.SetReadDeadline(time.Now().Add(queryTimeout))

		headers, ok := c.readHeaders()
		if !ok {
			return
		}

		keepAlive := c.dispatch(ctx, cmdLine, headers)
		if !keepAlive {
			return
		}
	}
}

// readHeaders reads header lines up to a blank line or EOF (§6
// "Request framing"). EOF after at least the command line is treated
// as a valid request terminator.
func (c *connHandler) readHeaders() ([]string, bool) {
	var lines []string
	for {
		line, err := c.r.ReadString('\n')
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed != "" {
			lines = append(lines, trimmed)
		}
		if err != nil {
			return lines, true
		}
		if trimmed == "" {
			return lines, true
		}
	}
}

// dispatch routes one complete request to the GET or COMMAND handler
// and reports whether the connection should stay open for another
// request (§6, §4.2 "KeepAlive").
func (c *connHandler) dispatch(ctx context.Context, cmdLine string, headers []string) bool {
	switch {
	case strings.HasPrefix(cmdLine, "GET "):
		return c.handleGet(ctx, strings.TrimSpace(strings.TrimPrefix(cmdLine, "GET ")), headers)
	case strings.HasPrefix(cmdLine, "COMMAND "):
		c.handleCommand(strings.TrimSpace(strings.TrimPrefix(cmdLine, "COMMAND ")))
		return false
	default:
		c.writeError(protoerr.InvalidRequest("unrecognized request line %q", cmdLine), parsedquery.ResponseHeaderOff)
		return false
	}
}

func (c *connHandler) handleGet(ctx context.Context, tableName string, headers []string) bool {
	tbl, ok := c.server.Registry.Get(tableName)
	if !ok {
		// The table doesn't exist, so there is no column lookup to hand
		// the parser; still honor a requested fixed16 framing, the one
		// display option that doesn't depend on the table (§6 "not-found").
		c.writeError(protoerr.NotFound("no such table %q", tableName), responseHeaderModeOf(headers))
		return false
	}

	p := parser.New(tableName, tbl, time.Now().Unix())
	q := p.Parse(headers)

	deadline := c.server.QueryTimeout
	if deadline <= 0 {
		deadline = 10 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	result, err := c.server.Engine.Execute(reqCtx, c.server.Adapter, q)
	if err != nil {
		c.writeError(err, q.Display.ResponseHeader)
		return q.Display.KeepAlive
	}

	c.writeResult(result, q.Display.ResponseHeader)
	return q.Display.KeepAlive
}

func (c *connHandler) writeResult(res *query.Result, mode parsedquery.ResponseHeaderMode) {
	if mode == parsedquery.ResponseHeaderFixed16 {
		c.conn.Write([]byte(render.Fixed16Header(int(res.Status), len(res.Body))))
	}
	c.conn.Write(res.Body)
}

func (c *connHandler) writeError(err error, mode parsedquery.ResponseHeaderMode) {
	status := protoerr.StatusOf(err)
	if mode == parsedquery.ResponseHeaderFixed16 {
		c.conn.Write([]byte(render.Fixed16Header(int(status), 0)))
	}
}

// responseHeaderModeOf scans raw header lines for "ResponseHeader:
// fixed16" without a table to parse columns against, for the
// not-found path where no parsedquery.ParsedQuery exists yet.
func responseHeaderModeOf(headers []string) parsedquery.ResponseHeaderMode {
	for _, line := range headers {
		if strings.TrimSpace(line) == "ResponseHeader: fixed16" {
			return parsedquery.ResponseHeaderFixed16
		}
	}
	return parsedquery.ResponseHeaderOff
}
