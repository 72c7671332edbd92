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
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checkmk/checkmk-sub006/internal/core"
)

func newTestCache(t *testing.T, dir, watched string) *Cache {
	t.Helper()
	adapter := core.NewMockAdapter()
	c, err := New(adapter, dir, watched, 1_000_000, 10_000, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestCacheRebuildIndexFindsArchivesAndWatchedFile(t *testing.T) {
	dir := t.TempDir()

	archive := filepath.Join(dir, "history.1699999000")
	require.NoError(t, os.WriteFile(archive, []byte("[1699999000] PROGRAM STARTING: core up\n"), 0o644))

	watched := filepath.Join(dir, "history")
	require.NoError(t, os.WriteFile(watched, []byte("[1700000000] PROGRAM STARTING: core up\n"), 0o644))

	c := newTestCache(t, dir, watched)

	require.Len(t, c.files, 2)
	assert.Equal(t, archive, c.files[0].path)
	assert.Equal(t, watched, c.files[1].path)
}

func TestCacheLoadReadsOverlappingFilesOnly(t *testing.T) {
	dir := t.TempDir()

	old := filepath.Join(dir, "history.1699990000")
	require.NoError(t, os.WriteFile(old, []byte("[1699990000] HOST ALERT: web1;DOWN;HARD;1;old\n"), 0o644))

	watched := filepath.Join(dir, "history")
	require.NoError(t, os.WriteFile(watched, []byte("[1700000000] HOST ALERT: web1;DOWN;HARD;1;new\n"), 0o644))

	c := newTestCache(t, dir, watched)

	since, until := int64(1699999999), int64(1700000001)
	var seen []string
	c.Load(since, until, NewMask(ClassAlert), func(files []*file) {
		for _, fl := range files {
			for _, e := range fl.entries {
				if e.Time < since || e.Time >= until {
					continue
				}
				seen = append(seen, e.PluginOutput)
			}
		}
	})

	assert.Equal(t, []string{"new"}, seen)
}

func TestCacheEvictionClearsOldestFileFirst(t *testing.T) {
	dir := t.TempDir()

	var archiveLines, watchedLines string
	for i := 0; i < 30; i++ {
		archiveLines += "[" + strconv.Itoa(1699990000+i) + "] HOST ALERT: web1;DOWN;HARD;1;old\n"
	}
	for i := 0; i < 30; i++ {
		watchedLines += "[" + strconv.Itoa(1700000000+i) + "] HOST ALERT: web1;DOWN;HARD;1;new\n"
	}

	archive := filepath.Join(dir, "history.1699990000")
	require.NoError(t, os.WriteFile(archive, []byte(archiveLines), 0o644))
	watched := filepath.Join(dir, "history")
	require.NoError(t, os.WriteFile(watched, []byte(watchedLines), 0o644))

	adapter := core.NewMockAdapter()
	c, err := New(adapter, dir, watched, 20, 1000, zerolog.Nop())
	require.NoError(t, err)

	// Force the check-cycle threshold down so eviction actually runs
	// within this small fixture instead of waiting for 1000 inserts.
	c.lastCheck = -checkCycle

	c.Load(0, 1<<62, AllClasses, func(files []*file) {})

	require.Len(t, c.files, 2)
	assert.Empty(t, c.files[0].entries, "oldest file should be cleared by eviction phase 1")
	assert.Len(t, c.files[1].entries, 30, "the file serving the in-flight query is never dropped")
	assert.Equal(t, 30, c.cachedCount)
}
