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
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Checkmk/checkmk-sub006/internal/debounce"
)

// Watch starts a background fsnotify watch over the archive directory,
// debouncing bursts of rotation events (one log rotation typically
// produces a create plus several writes). Once a burst has been quiet
// for two seconds, the watcher rebuilds the index itself under the
// cache lock, so the next query sees the new files without waiting for
// Apply/Load to notice that LastRotation advanced.
func (c *Cache) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(c.dir); err != nil {
		watcher.Close()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	c.watcher = watcher
	c.cancel = cancel

	debounced := debounce.ByKey[string](ctx, 2*time.Second, func(ev fsnotify.Event) {
		c.log.Debug().Str("event", ev.Name).Msg("log directory change detected, refreshing index")

		c.mu.Lock()
		defer c.mu.Unlock()
		if err := c.rebuildIndex_locked(); err != nil {
			c.log.Error().Err(err).Msg("log cache index rebuild failed")
		}
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				debounced(c.dir, ev)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				c.log.Error().Err(err).Msg("log directory watch error")
			}
		}
	}()

	return nil
}
