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

// Package debounce coalesces bursts of same-key events into a single
// call, used by internal/logcache to avoid rebuilding the log file
// index on every individual fsnotify event a rotation produces.
package debounce

import (
	"context"
	"sync"
	"time"

	"github.com/zmwangx/debounce"
)

// ByKey returns a function that debounces calls sharing the same key
// independently: bursts on different keys never block each other, and
// each key gets both a leading-edge and a trailing-edge call.
func ByKey[K comparable, T any](ctx context.Context, wait time.Duration, actionFn func(T)) func(K, T) {
	var mu sync.Mutex

	type entry struct {
		call       func(...T) error
		controller debounce.ControlWithReturnValue[error]
	}

	cache := make(map[K]*entry)

	go func() {
		<-ctx.Done()
		mu.Lock()
		defer mu.Unlock()
		for _, e := range cache {
			e.controller.Cancel()
		}
	}()

	return func(key K, input T) {
		mu.Lock()
		if ctx.Err() != nil {
			mu.Unlock()
			return
		}

		e, exists := cache[key]
		if !exists {
			call, controller := debounce.DebounceWithCustomSignature(
				func(inputs ...T) error {
					actionFn(inputs[0])
					return nil
				},
				wait,
				debounce.WithLeading(true),
				debounce.WithTrailing(true),
			)
			e = &entry{call: call, controller: controller}
			cache[key] = e
		}
		mu.Unlock()

		e.call(input)
	}
}
