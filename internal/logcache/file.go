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
	"bufio"
	"os"
)

// file tracks one history log file's on-disk location and the subset
// of it currently materialized in memory (§4.5 "Loading").
type file struct {
	path           string
	firstTimestamp int64
	watched        bool // true for the currently-written file, false for archives

	loadedClasses Mask
	entries       []*Entry
	seenLines     map[int64]map[int]bool // timestamp -> line numbers already present, for dedup
	readPos       int64                  // byte offset consumed so far, watched files only
	readLines     int                    // lines consumed so far, watched files only
}

func newFile(path string, firstTimestamp int64, watched bool) *file {
	return &file{
		path:           path,
		firstTimestamp: firstTimestamp,
		watched:        watched,
		seenLines:      map[int64]map[int]bool{},
	}
}

// needsLoad reports whether mask asks for classes this file hasn't
// loaded yet.
func (f *file) needsLoad(mask Mask) bool {
	return mask&^f.loadedClasses != 0
}

// load reads from the file's current read position (watched files) or
// from the start (archive files), classifying and appending entries
// that match mask and stopping after maxLines lines read (§4.5
// "Loading"). Returns the count of entries newly appended.
func (f *file) load(mask Mask, maxLines int) (int, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return 0, err
	}
	defer fh.Close()

	start := int64(0)
	if f.watched {
		start = f.readPos
	}
	if _, err := fh.Seek(start, os.SEEK_SET); err != nil {
		return 0, err
	}

	scanner := bufio.NewScanner(fh)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	added := 0
	lineNo := 0
	if f.watched {
		lineNo = f.readLines
	}
	read := 0
	var lastPos int64 = start

	for scanner.Scan() && read < maxLines {
		read++
		lineNo++
		raw := scanner.Text()
		lastPos += int64(len(raw)) + 1

		e, ok := parseLine(raw, lineNo)
		if !ok {
			continue
		}
		if !mask.Has(e.Class) {
			continue
		}
		if f.isDuplicate(e) {
			continue
		}
		f.markSeen(e)
		f.entries = append(f.entries, e)
		added++
	}

	if f.watched {
		f.readPos = lastPos
		f.readLines = lineNo
	}
	f.loadedClasses = f.loadedClasses.Union(mask)

	return added, scanner.Err()
}

// isDuplicate reports a (timestamp, line-number) collision within this
// file (§7 "A duplicate (timestamp, line-number) key ... is logged at
// error level and the second entry is dropped").
func (f *file) isDuplicate(e *Entry) bool {
	lines, ok := f.seenLines[e.Time]
	return ok && lines[e.Line]
}

func (f *file) markSeen(e *Entry) {
	lines, ok := f.seenLines[e.Time]
	if !ok {
		lines = map[int]bool{}
		f.seenLines[e.Time] = lines
	}
	lines[e.Line] = true
}

// dropClassesOutside removes loaded entries whose class falls outside
// keep, returning how many were dropped (§4.5 eviction phase 2).
func (f *file) dropClassesOutside(keep Mask) int {
	kept := f.entries[:0]
	dropped := 0
	for _, e := range f.entries {
		if keep.Has(e.Class) {
			kept = append(kept, e)
		} else {
			dropped++
		}
	}
	f.entries = kept
	return dropped
}

// clear drops every loaded entry from this file (§4.5 eviction phases
// 1 and 3).
func (f *file) clear() int {
	n := len(f.entries)
	f.entries = nil
	f.loadedClasses = 0
	f.seenLines = map[int64]map[int]bool{}
	return n
}
