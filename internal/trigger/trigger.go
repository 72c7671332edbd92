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

// Package trigger implements the wait/trigger mechanism of §4.8: a
// fixed set of named condition channels the monitoring-core adapter
// fires on state changes, and a blocking wait-for operation the query
// engine's Waiter interface needs. Built on an event bus rather than
// condition variables directly, since Go's sync.Cond doesn't compose
// with select/context cancellation the way a channel-based subscriber
// does.
package trigger

import (
	"context"
	"time"

	eventbus "github.com/asaskevich/EventBus"

	"github.com/Checkmk/checkmk-sub006/internal/metrics"
	"github.com/Checkmk/checkmk-sub006/internal/query"
)

// Registry satisfies query.Waiter, the interface the engine depends on
// instead of this package directly (§4.4, §4.8).
var _ query.Waiter = (*Registry)(nil)

// Names lists the registered trigger names (§4.8 "A fixed set of
// names").
var Names = []string{"all", "check", "state", "log", "downtime", "comment", "command", "program"}

// All is the wildcard trigger every Notify also fires, so a waiter on
// any specific name also wakes on general activity.
const All = "all"

// IsValidName reports whether name is one of the registered triggers.
func IsValidName(name string) bool {
	for _, n := range Names {
		if n == name {
			return true
		}
	}
	return false
}

// Registry is the process-wide set of trigger channels (§4.8).
type Registry struct {
	bus eventbus.Bus
}

func NewRegistry() *Registry {
	return &Registry{bus: eventbus.New()}
}

// Notify fires name (and, unless name is already "all", the wildcard
// trigger too), waking every waiter subscribed to either (§4.8 "The
// monitoring-core adapter calls notify(name) and notify(all) on the
// corresponding event").
func (r *Registry) Notify(name string) {
	r.bus.Publish(name)
	if name != All {
		r.bus.Publish(All)
	}
}

// Wait blocks until accepts() is true, triggerName (or the wildcard
// trigger) fires, or timeout elapses, re-evaluating accepts on every
// wakeup since spurious wakeups are permitted (§4.8 "Wait operation").
// ctx cancellation (the process-level should-terminate flag, §5) breaks
// the wait immediately. A non-positive timeout blocks indefinitely,
// bounded only by ctx.
func (r *Registry) Wait(ctx context.Context, triggerName string, timeout time.Duration, accepts func() bool) bool {
	if accepts() {
		return true
	}
	if triggerName == "" {
		triggerName = All
	}

	wake := make(chan struct{}, 1)
	notify := func() {
		select {
		case wake <- struct{}{}:
		default:
		}
	}

	metrics.TriggerWaiters.WithLabelValues(triggerName).Inc()
	defer metrics.TriggerWaiters.WithLabelValues(triggerName).Dec()

	r.bus.SubscribeAsync(triggerName, notify, false)
	defer r.bus.Unsubscribe(triggerName, notify)
	if triggerName != All {
		r.bus.SubscribeAsync(All, notify, false)
		defer r.bus.Unsubscribe(All, notify)
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return accepts()
		case <-deadline:
			return accepts()
		case <-wake:
			if accepts() {
				return true
			}
		}
	}
}
