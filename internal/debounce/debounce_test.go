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

package debounce

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestByKeyExecutesLeadingEdge(t *testing.T) {
	var mu sync.Mutex
	var args []int

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	debounced := ByKey[string](ctx, 10*time.Millisecond, func(i int) {
		mu.Lock()
		defer mu.Unlock()
		args = append(args, i)
	})

	debounced("rotation", 11)
	debounced("rotation", 12)
	debounced("rotation", 13)

	time.Sleep(3 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{11}, args)
}

func TestByKeyExecutesTrailingEdge(t *testing.T) {
	var mu sync.Mutex
	var args []int

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	debounced := ByKey[string](ctx, 10*time.Millisecond, func(i int) {
		mu.Lock()
		defer mu.Unlock()
		args = append(args, i)
	})

	debounced("key1", 11)
	debounced("key2", 21)
	debounced("key1", 12)
	debounced("key2", 22)

	time.Sleep(15 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	sort.Ints(args)
	require.Equal(t, []int{11, 12, 21, 22}, args)
}
