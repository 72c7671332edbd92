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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checkmk/checkmk-sub006/internal/authz"
	"github.com/Checkmk/checkmk-sub006/internal/config"
	"github.com/Checkmk/checkmk-sub006/internal/core"
	"github.com/Checkmk/checkmk-sub006/internal/query"
	"github.com/Checkmk/checkmk-sub006/internal/table"
)

type fakeAdapter struct {
	*core.MockAdapter
	commands []string
}

func (f *fakeAdapter) SubmitCommand(raw string) error {
	f.commands = append(f.commands, raw)
	return nil
}

func newTestServer(t *testing.T) (*Server, *fakeAdapter, string) {
	t.Helper()
	adapter := &fakeAdapter{MockAdapter: core.NewMockAdapter()}
	adapter.AddHost(&core.Host{Name: "foo", State: 2})

	hosts := table.NewHostsTable()
	registry := table.NewRegistry()
	registry.Add(hosts)

	engine := &query.Engine{
		Registry: registry,
		Gate:     authz.NewGate(config.AuthorizationLoose, config.AuthorizationLoose),
		Log:      zerolog.Nop(),
	}

	dir := t.TempDir()
	sockPath := filepath.Join(dir, "live")

	srv := &Server{
		Path:            sockPath,
		Mode:            0660,
		NumWorkers:      4,
		IdleTimeout:     2 * time.Second,
		QueryTimeout:    2 * time.Second,
		Engine:          engine,
		Registry:        registry,
		Adapter:         adapter,
		LogwatchDir:     filepath.Join(dir, "logwatch"),
		CrashReportsDir: filepath.Join(dir, "crash"),
		Log:             zerolog.Nop(),
	}
	return srv, adapter, sockPath
}

func startServer(t *testing.T, srv *Server) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	go func() {
		go func() { close(ready) }()
		_ = srv.ListenAndServe(ctx)
	}()
	<-ready
	// give the listener a moment to bind before the first dial
	for i := 0; i < 100; i++ {
		if _, err := os.Stat(srv.Path); err == nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cancel
}

func TestGetQueryReturnsMatchingRow(t *testing.T) {
	srv, _, sockPath := newTestServer(t)
	cancel := startServer(t, srv)
	defer cancel()

	conn, err := net.Dial("unix", sockPath)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET hosts\nColumns: name state\nFilter: name = foo\n\n"))
	require.NoError(t, err)

	body := readAll(t, conn)
	assert.Equal(t, "foo;2\n", body)
}

func TestCommandRenamesLogToUnderscoreLog(t *testing.T) {
	srv, adapter, sockPath := newTestServer(t)
	cancel := startServer(t, srv)
	defer cancel()

	conn, err := net.Dial("unix", sockPath)
	require.NoError(t, err)
	conn.Write([]byte("COMMAND [1700000000] LOG;hello\n\n"))
	conn.Close()

	waitFor(t, func() bool { return len(adapter.commands) == 1 })
	assert.Equal(t, "_LOG;hello", adapter.commands[0])
}

func TestCommandForwardsVerbatimUnderGlobalMutex(t *testing.T) {
	srv, adapter, sockPath := newTestServer(t)
	cancel := startServer(t, srv)
	defer cancel()

	conn, err := net.Dial("unix", sockPath)
	require.NoError(t, err)
	conn.Write([]byte("COMMAND SCHEDULE_HOST_DOWNTIME;foo;0;0;1;0;60;me;comment\n\n"))
	conn.Close()

	waitFor(t, func() bool { return len(adapter.commands) == 1 })
	assert.Equal(t, "SCHEDULE_HOST_DOWNTIME;foo;0;0;1;0;60;me;comment", adapter.commands[0])
}

func TestMkLogwatchAcknowledgeRemovesStateFile(t *testing.T) {
	srv, _, sockPath := newTestServer(t)
	require.NoError(t, os.MkdirAll(filepath.Join(srv.LogwatchDir, "foo"), 0755))
	statePath := filepath.Join(srv.LogwatchDir, "foo", "syslog")
	require.NoError(t, os.WriteFile(statePath, []byte("CRIT"), 0644))

	cancel := startServer(t, srv)
	defer cancel()

	conn, err := net.Dial("unix", sockPath)
	require.NoError(t, err)
	conn.Write([]byte(`COMMAND MK_LOGWATCH_ACKNOWLEDGE;foo;syslog` + "\n\n"))
	conn.Close()

	waitFor(t, func() bool {
		_, err := os.Stat(statePath)
		return os.IsNotExist(err)
	})
}

func TestUnknownTableReturnsNotFoundViaFixed16(t *testing.T) {
	srv, _, sockPath := newTestServer(t)
	cancel := startServer(t, srv)
	defer cancel()

	conn, err := net.Dial("unix", sockPath)
	require.NoError(t, err)
	defer conn.Close()

	conn.Write([]byte("GET nosuchtable\nResponseHeader: fixed16\n\n"))

	header := make([]byte, 16)
	_, err = conn.Read(header)
	require.NoError(t, err)
	assert.Equal(t, "404 ", string(header[:4]))
}

func readAll(t *testing.T, conn net.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var buf []byte
	r := bufio.NewReader(conn)
	for {
		b, err := r.ReadByte()
		if err != nil {
			break
		}
		buf = append(buf, b)
	}
	return string(buf)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
