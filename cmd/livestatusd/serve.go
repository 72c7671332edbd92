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

package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Checkmk/checkmk-sub006/internal/adminhttp"
	"github.com/Checkmk/checkmk-sub006/internal/authz"
	"github.com/Checkmk/checkmk-sub006/internal/config"
	"github.com/Checkmk/checkmk-sub006/internal/core"
	"github.com/Checkmk/checkmk-sub006/internal/logcache"
	"github.com/Checkmk/checkmk-sub006/internal/logging"
	"github.com/Checkmk/checkmk-sub006/internal/query"
	"github.com/Checkmk/checkmk-sub006/internal/socket"
	"github.com/Checkmk/checkmk-sub006/internal/statehist"
	"github.com/Checkmk/checkmk-sub006/internal/table"
	"github.com/Checkmk/checkmk-sub006/internal/trigger"
)

// serveCmd starts the query socket (and, unless disabled, the admin
// HTTP surface) and blocks until an interrupt signal arrives (§5
// "should-terminate").
var serveCmd = &cobra.Command{
	Use:   "serve [startup args...]",
	Short: "Start the query socket",
	Long: `Starts the livestatus-style query socket described in §6. Arguments are
whitespace-separated "key=value" startup tokens (e.g. num_client_threads=20);
a single bare token with no "=" sets the socket path.`,
	Run: func(cmd *cobra.Command, args []string) {
		runServe(args)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().SortFlags = false
}

func runServe(startupArgs []string) {
	cfg, err := config.NewConfig(startupArgs)
	if err != nil {
		zlog.Fatal().Caller().Err(err).Msg("invalid configuration")
	}

	logging.Configure(logging.Options{
		Enabled: cfg.Logging.Enabled,
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The monitoring core itself is an external collaborator (§1) with
	// no implementation in this repo; an empty adapter stands in for
	// it so the query engine and socket server have something to run
	// against until one is wired to a real core.
	adapter := core.NewMockAdapter()

	registry := table.NewDefaultRegistry()

	hosts, _ := registry.Get("hosts")
	services, _ := registry.Get("services")

	logFile := cfg.Paths.LogFile
	if logFile == "" {
		logFile = filepath.Join(os.TempDir(), "livestatusd", "var", "log", "history.log")
	}
	cache, err := logcache.New(adapter, filepath.Dir(logFile), logFile, cfg.LogCache.MaxCachedMessages, cfg.LogCache.MaxLinesPerLogfile, logging.Component("logcache"))
	if err != nil {
		zlog.Fatal().Caller().Err(err).Msg("failed to build log cache")
	}
	defer cache.Close()
	if err := cache.Watch(ctx); err != nil {
		zlog.Warn().Err(err).Msg("log directory watch not started")
	}

	registry.Add(logcache.NewLogTable(cache, hosts, services))
	registry.Add(statehist.NewStateHistoryTable(cache, hosts, services))

	gate := authz.NewGate(cfg.Authorization.Service, cfg.Authorization.Group)
	triggers := trigger.NewRegistry()

	engine := &query.Engine{
		Registry:        registry,
		Gate:            gate,
		Waiter:          triggers,
		MaxResponseSize: cfg.Limits.MaxResponseSize,
		Log:             logging.Component("query"),
	}

	var ecBridge *socket.EventConsoleBridge
	if cfg.EventConsole.SocketPath != "" {
		ecBridge = &socket.EventConsoleBridge{
			SocketPath: cfg.EventConsole.SocketPath,
			Log:        logging.Component("eventconsole"),
		}
	}

	srv := &socket.Server{
		Path:            cfg.Socket,
		Mode:            0660,
		NumWorkers:      cfg.Threads.NumClientThreads,
		IdleTimeout:     time.Duration(cfg.Limits.IdleTimeout) * time.Second,
		QueryTimeout:    time.Duration(cfg.Limits.QueryTimeout) * time.Second,
		Engine:          engine,
		Registry:        registry,
		Adapter:         adapter,
		EventConsole:    ecBridge,
		LogwatchDir:     cfg.Paths.MKLogwatchPath,
		CrashReportsDir: cfg.Paths.CrashReportsPath,
		Log:             logging.Component("socket"),
	}

	var admin *adminhttp.App
	if cfg.AdminHTTP.Enabled {
		admin = adminhttp.NewApp()
		go func() {
			if err := admin.Run(ctx, cfg.AdminHTTP.Addr); err != nil {
				zlog.Error().Err(err).Msg("admin HTTP server exited")
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe(ctx)
	}()

	// The admin surface's /healthz only reports ready once the query
	// socket file actually exists, so a scrape during startup doesn't
	// race the listener bind.
	if admin != nil {
		go func() {
			for i := 0; i < 200; i++ {
				if _, statErr := os.Stat(cfg.Socket); statErr == nil {
					admin.SetReady(true)
					return
				}
				select {
				case <-ctx.Done():
					return
				case <-time.After(25 * time.Millisecond):
				}
			}
		}()
	}

	zlog.Info().Str("socket", cfg.Socket).Msg("livestatusd listening")

	select {
	case <-ctx.Done():
		zlog.Info().Msg("shutting down")
	case err := <-serverErr:
		if err != nil {
			zlog.Error().Err(err).Msg("query socket server exited")
		}
	}
}
