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
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/Checkmk/checkmk-sub006/internal/core"
	"github.com/Checkmk/checkmk-sub006/internal/metrics"
)

// checkCycle is how many newly-cached messages must accumulate between
// eviction checks (§4.5 "Eviction": "check-cycle (1000)").
const checkCycle = 1000

// archiveNamePattern matches rotated history files, e.g. "history.1700000000".
var archiveNamePattern = regexp.MustCompile(`\.(\d+)$`)

// Cache is the bounded in-memory log file index of §4.5: a map from
// first-entry timestamp to file, lazily rebuilt on rotation, with a
// single mutex guarding both index updates and eviction.
type Cache struct {
	mu sync.Mutex

	dir          string
	watchedPath  string
	maxCached    int
	maxLines     int
	lastIndexed  int64
	cachedCount  int
	lastCheck    int

	files []*file // sorted by firstTimestamp ascending

	// pathIndex is a bounded path->file lookup filled in by every index
	// rebuild; nothing reads it, and the rotation watcher always does a
	// full rebuild. Bounding its size keeps a pathological watch
	// directory from growing it without limit.
	pathIndex *lru.Cache[string, *file]

	adapter core.Adapter
	log     zerolog.Logger

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
}

// New builds a Cache watching dir (the archive directory) and
// watchedPath (the currently-written history file).
func New(adapter core.Adapter, dir, watchedPath string, maxCached, maxLines int, log zerolog.Logger) (*Cache, error) {
	idx, err := lru.New[string, *file](256)
	if err != nil {
		return nil, err
	}

	c := &Cache{
		dir:         dir,
		watchedPath: watchedPath,
		maxCached:   maxCached,
		maxLines:    maxLines,
		adapter:     adapter,
		log:         log,
		pathIndex:   idx,
	}

	if err := c.rebuildIndex_locked(); err != nil {
		return nil, err
	}

	return c, nil
}

// Apply takes the lock, ensures the index reflects the latest
// rotation, and invokes f with the current file list (§4.5
// "Concurrency"). The message count is not passed to f, and mask is
// not consulted.
func (c *Cache) Apply(mask Mask, f func(files []*file)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.adapter.LastRotation() > c.lastIndexed {
		if err := c.rebuildIndex_locked(); err != nil {
			c.log.Error().Err(err).Msg("log cache index rebuild failed")
		}
	}

	f(c.files)
}

// Load ensures every file overlapping [since, until) has loaded mask,
// running eviction afterwards if warranted, then invokes f with the
// resulting entries in chronological file order. This is the entry
// point both the "log" table and the state-history reducer use.
func (c *Cache) Load(since, until int64, mask Mask, f func(files []*file)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.adapter.LastRotation() > c.lastIndexed {
		if err := c.rebuildIndex_locked(); err != nil {
			c.log.Error().Err(err).Msg("log cache index rebuild failed")
		}
	}

	var current *file
	for _, fl := range c.files {
		if !fileOverlaps(fl, since, until, c.files) {
			continue
		}
		current = fl
		if !fl.needsLoad(mask) {
			metrics.LogCacheHits.Inc()
			continue
		}
		metrics.LogCacheMisses.Inc()
		added, err := fl.load(mask, c.maxLines)
		if err != nil {
			c.log.Error().Err(err).Str("file", fl.path).Msg("log file load failed")
			continue
		}
		c.cachedCount += added
	}

	if c.cachedCount-c.lastCheck >= checkCycle && c.cachedCount > c.maxCached {
		c.evict_locked(current, mask)
		c.lastCheck = c.cachedCount
	}

	f(c.files)
}

// Entries invokes f once per entry whose class is in mask, across
// every cached file in chronological (file, line) order, stopping
// once an entry at or past until is reached. It wraps Load so callers
// outside this package (the state-history reducer, §4.6 "Replay")
// can walk entries without depending on the unexported file type.
func (c *Cache) Entries(since, until int64, mask Mask, f func(e *Entry) bool) {
	c.Load(since, until, mask, func(files []*file) {
	outer:
		for _, fl := range files {
			for _, e := range fl.entries {
				if e.Time >= until {
					break outer
				}
				if !mask.Has(e.Class) {
					continue
				}
				if !f(e) {
					break outer
				}
			}
		}
	})
}

// fileOverlaps reports whether fl's coverage window touches
// [since, until): from its own firstTimestamp to the next file's
// firstTimestamp (or +inf for the last file).
func fileOverlaps(fl *file, since, until int64, all []*file) bool {
	idx := -1
	for i, f := range all {
		if f == fl {
			idx = i
			break
		}
	}
	end := int64(1<<63 - 1)
	if idx >= 0 && idx+1 < len(all) {
		end = all[idx+1].firstTimestamp
	}
	return fl.firstTimestamp < until && end > since
}

// evict_locked runs the three-phase purge of §4.5 "Eviction". current
// is the file serving the in-flight query (never entirely dropped);
// mask is that query's class mask (phase 2 keeps entries within it).
func (c *Cache) evict_locked(current *file, mask Mask) {
	budget := c.maxCached
	curIdx := len(c.files)
	for i, fl := range c.files {
		if fl == current {
			curIdx = i
			break
		}
	}

	// Phase 1: oldest files first, entirely, until within budget or we
	// reach the current file.
	for i := 0; i < curIdx && c.cachedCount > budget; i++ {
		removed := c.files[i].clear()
		c.cachedCount -= removed
		metrics.LogCacheEvictions.Add(float64(removed))
	}

	// Phase 2: from the current file onward, drop entries outside mask.
	if c.cachedCount > budget {
		for i := curIdx; i < len(c.files) && c.cachedCount > budget; i++ {
			if c.files[i] == current {
				continue
			}
			removed := c.files[i].dropClassesOutside(mask)
			c.cachedCount -= removed
			metrics.LogCacheEvictions.Add(float64(removed))
		}
	}

	// Phase 3: files newer than current, entirely, oldest-first.
	if c.cachedCount > budget {
		for i := curIdx + 1; i < len(c.files) && c.cachedCount > budget; i++ {
			removed := c.files[i].clear()
			c.cachedCount -= removed
			metrics.LogCacheEvictions.Add(float64(removed))
		}
	}

	if c.cachedCount > budget {
		c.log.Warn().Int("cached", c.cachedCount).Int("budget", budget).
			Msg("log cache still over budget after eviction")
	}
}

// rebuildIndex_locked rescans the archive directory and the watched
// file, preserving already-loaded files' in-memory state by path.
func (c *Cache) rebuildIndex_locked() error {
	existing := map[string]*file{}
	for _, fl := range c.files {
		existing[fl.path] = fl
	}

	var rebuilt []*file

	entries, err := os.ReadDir(c.dir)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		path := filepath.Join(c.dir, de.Name())
		ts, ok := archiveTimestamp(de.Name())
		if !ok {
			continue
		}
		if fl, ok := existing[path]; ok {
			rebuilt = append(rebuilt, fl)
			continue
		}
		fl := newFile(path, ts, false)
		rebuilt = append(rebuilt, fl)
		c.pathIndex.Add(path, fl)
	}

	if c.watchedPath != "" {
		ts := firstTimestampOf(c.watchedPath)
		if fl, ok := existing[c.watchedPath]; ok {
			fl.firstTimestamp = ts
			rebuilt = append(rebuilt, fl)
		} else {
			fl := newFile(c.watchedPath, ts, true)
			rebuilt = append(rebuilt, fl)
			c.pathIndex.Add(c.watchedPath, fl)
		}
	}

	sort.Slice(rebuilt, func(i, j int) bool {
		return rebuilt[i].firstTimestamp < rebuilt[j].firstTimestamp
	})

	c.files = rebuilt
	c.lastIndexed = time.Now().Unix()
	return nil
}

// archiveTimestamp extracts the trailing "<epoch>" from a rotated log
// file's name, e.g. "history.1700000000" -> 1700000000.
func archiveTimestamp(name string) (int64, bool) {
	m := archiveNamePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	ts, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}

// firstTimestampOf reads just enough of path to recover its first
// entry's timestamp, defaulting to its modification time if the file
// is empty or unreadable.
func firstTimestampOf(path string) int64 {
	fh, err := os.Open(path)
	if err != nil {
		if fi, statErr := os.Stat(path); statErr == nil {
			return fi.ModTime().Unix()
		}
		return 0
	}
	defer fh.Close()

	buf := make([]byte, 64)
	n, _ := fh.Read(buf)
	if e, ok := parseLine(string(buf[:n]), 0); ok {
		return e.Time
	}
	if fi, err := fh.Stat(); err == nil {
		return fi.ModTime().Unix()
	}
	return 0
}

// Close stops the rotation watcher, if one was started via Watch.
func (c *Cache) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.watcher != nil {
		c.watcher.Close()
	}
}
