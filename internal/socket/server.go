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

// Package socket implements the external interface of §6: a UNIX
// domain stream socket accepting line-oriented GET/COMMAND requests,
// served by a fixed worker pool per §5's concurrency model.
package socket

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/Checkmk/checkmk-sub006/internal/core"
	"github.com/Checkmk/checkmk-sub006/internal/metrics"
	"github.com/Checkmk/checkmk-sub006/internal/query"
	"github.com/Checkmk/checkmk-sub006/internal/table"
)

// Server is the UNIX domain socket listener of §6. One acceptor
// goroutine feeds a bounded connection queue that a fixed pool of
// worker goroutines drains (§5 "Scheduling model").
type Server struct {
	Path string
	Mode os.FileMode

	NumWorkers  int
	IdleTimeout time.Duration
	QueryTimeout time.Duration

	Engine   *query.Engine
	Registry *table.Registry
	Adapter  core.Adapter

	// EventConsole is nil when no event-console socket is configured;
	// COMMAND requests prefixed EC_ then get no destination and are
	// dropped silently, matching the fire-and-forget contract (§6).
	EventConsole *EventConsoleBridge

	// LogwatchDir/CrashReportsDir back the locally-handled
	// MK_LOGWATCH_ACKNOWLEDGE/DEL_CRASH_REPORT commands (config
	// Paths.MKLogwatchPath/CrashReportsPath).
	LogwatchDir     string
	CrashReportsDir string

	// commandMu serializes every command forwarded to the monitoring
	// core, per §6 "forwarded verbatim to the monitoring core under a
	// single global mutex".
	commandMu sync.Mutex

	Log zerolog.Logger

	ln net.Listener
}

// ListenAndServe removes any stale socket file, binds the listener at
// Path with Mode, and runs the accept loop until ctx is canceled (§6
// "Transport": "The socket is removed before creation").
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	ln, err := net.Listen("unix", s.Path)
	if err != nil {
		return err
	}
	if err := os.Chmod(s.Path, s.Mode); err != nil {
		ln.Close()
		return err
	}
	s.ln = ln
	defer ln.Close()

	numWorkers := s.NumWorkers
	if numWorkers <= 0 {
		numWorkers = 10
	}

	// queueDepth bounds the accept-side backlog beyond the worker
	// pool itself; once full, enqueue drops the oldest queued connection
	// to admit the newest (§5 "Back-pressure").
	queueDepth := numWorkers
	queue := make(chan net.Conn, queueDepth)

	workers := pool.New().WithMaxGoroutines(numWorkers)
	for i := 0; i < numWorkers; i++ {
		workers.Go(func() {
			for conn := range queue {
				s.serveConn(ctx, conn)
			}
		})
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			close(queue)
			workers.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.enqueue(queue, conn)
	}
}

// enqueue implements the pop-oldest-on-overflow admission policy: if
// every worker is busy and the queue is full, the oldest queued
// connection is closed and dropped so the newest is served (§5
// "Back-pressure").
func (s *Server) enqueue(queue chan net.Conn, conn net.Conn) {
	for {
		select {
		case queue <- conn:
			return
		default:
		}

		select {
		case oldest := <-queue:
			oldest.Close()
		default:
			// a worker just freed a slot between our two selects; retry
		}
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	metrics.ActiveConnections.Inc()
	defer metrics.ActiveConnections.Dec()
	defer conn.Close()

	c := &connHandler{server: s, conn: conn}
	c.serve(ctx)
}
