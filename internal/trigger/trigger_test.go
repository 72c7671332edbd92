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

package trigger

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaitReturnsImmediatelyWhenAlreadyTrue(t *testing.T) {
	r := NewRegistry()

	ok := r.Wait(context.Background(), "state", time.Second, func() bool { return true })
	assert.True(t, ok)
}

func TestWaitWakesOnMatchingTriggerNotify(t *testing.T) {
	r := NewRegistry()

	var flips int32
	accepts := func() bool { return atomic.LoadInt32(&flips) > 0 }

	done := make(chan bool, 1)
	go func() {
		done <- r.Wait(context.Background(), "state", 500*time.Millisecond, accepts)
	}()

	time.Sleep(20 * time.Millisecond)
	atomic.StoreInt32(&flips, 1)
	r.Notify("state")

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Wait never returned after Notify")
	}
}

func TestWaitWakesOnWildcardNotify(t *testing.T) {
	r := NewRegistry()

	var flips int32
	accepts := func() bool { return atomic.LoadInt32(&flips) > 0 }

	done := make(chan bool, 1)
	go func() {
		done <- r.Wait(context.Background(), "downtime", 500*time.Millisecond, accepts)
	}()

	time.Sleep(20 * time.Millisecond)
	atomic.StoreInt32(&flips, 1)
	r.Notify("all")

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Wait never returned after wildcard Notify")
	}
}

func TestWaitTimesOutWithoutNotify(t *testing.T) {
	r := NewRegistry()

	start := time.Now()
	ok := r.Wait(context.Background(), "comment", 30*time.Millisecond, func() bool { return false })
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestWaitRespectsContextCancellation(t *testing.T) {
	r := NewRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool, 1)
	go func() {
		done <- r.Wait(ctx, "command", 5*time.Second, func() bool { return false })
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Wait never returned after context cancellation")
	}
}

func TestIsValidName(t *testing.T) {
	assert.True(t, IsValidName("state"))
	assert.True(t, IsValidName("all"))
	assert.False(t, IsValidName("bogus"))
}
