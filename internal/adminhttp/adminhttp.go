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

// Package adminhttp is the ambient ops surface SPEC_FULL.md's "New
// component" section adds next to the §6 query socket: a loopback gin
// server exposing /healthz and /metrics. It never answers GET/COMMAND
// queries itself.
package adminhttp

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// App is the admin HTTP surface's gin engine plus an http.Server bound
// to a loopback address, the same App-embeds-*gin.Engine shape the
// teacher's cluster-api app uses.
type App struct {
	*gin.Engine
	srv *http.Server

	ready atomic.Bool
}

// NewApp builds the admin app. ready is shared with the caller via
// SetReady so the socket listener can flip /healthz to 200 once it is
// actually accepting connections.
func NewApp() *App {
	app := &App{Engine: gin.New()}

	app.Use(gin.Recovery())
	app.Use(requestid.New())
	app.Use(loggingMiddleware())
	app.Use(gzip.Gzip(gzip.DefaultCompression))

	app.GET("/healthz", app.handleHealthz)
	app.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return app
}

// SetReady flips the /healthz endpoint to report 200, called once the
// §6 query socket listener is accepting connections.
func (a *App) SetReady(ready bool) {
	a.ready.Store(ready)
}

func (a *App) handleHealthz(c *gin.Context) {
	if !a.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Run starts the admin HTTP listener on addr until ctx is canceled.
func (a *App) Run(ctx context.Context, addr string) error {
	a.srv = &http.Server{Addr: addr, Handler: a.Engine}

	errCh := make(chan error, 1)
	go func() {
		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// loggingMiddleware mirrors the teacher's access-log middleware
// (modules/server/pkg/ginapp), minus request-body-size reporting: the
// admin surface's only clients are health probes and scrapers.
func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasSuffix(c.Request.URL.Path, "/healthz") {
			c.Next()
			return
		}

		t0 := time.Now().UTC()
		requestID := requestid.Get(c)
		logger := log.With().Str("request_id", requestID).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))

		c.Next()

		logger.Info().
			Str("event_type", "Access").
			Time("request_ts", t0).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status_code", c.Writer.Status()).
			Dur("duration_ms", time.Since(t0)).
			Send()
	}
}
