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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempLog(t *testing.T, name, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestFileLoadFiltersByMask(t *testing.T) {
	contents := "" +
		"[1700000000] HOST ALERT: web1;DOWN;HARD;1;bad\n" +
		"[1700000001] HOST NOTIFICATION: alice;web1;DOWN;notify;bad\n" +
		"[1700000002] CURRENT HOST STATE: web1;UP;HARD;1;ok\n"
	path := writeTempLog(t, "history", contents)

	f := newFile(path, 1700000000, false)
	added, err := f.load(NewMask(ClassAlert), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	require.Len(t, f.entries, 1)
	assert.Equal(t, TypeHostAlert, f.entries[0].Type)
	assert.True(t, f.loadedClasses.Has(ClassAlert))
	assert.False(t, f.needsLoad(NewMask(ClassAlert)))
	assert.True(t, f.needsLoad(NewMask(ClassState)))
}

func TestFileLoadRespectsMaxLines(t *testing.T) {
	contents := "" +
		"[1700000000] HOST ALERT: web1;DOWN;HARD;1;a\n" +
		"[1700000001] HOST ALERT: web1;DOWN;HARD;2;b\n" +
		"[1700000002] HOST ALERT: web1;DOWN;HARD;3;c\n"
	path := writeTempLog(t, "history", contents)

	f := newFile(path, 1700000000, false)
	added, err := f.load(AllClasses, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Len(t, f.entries, 2)
}

func TestFileLoadWatchedResumesFromReadPos(t *testing.T) {
	path := writeTempLog(t, "history", "[1700000000] HOST ALERT: web1;DOWN;HARD;1;a\n")

	f := newFile(path, 1700000000, true)
	added, err := f.load(AllClasses, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Positive(t, f.readPos)

	appendTo(t, path, "[1700000001] HOST ALERT: web1;DOWN;HARD;2;b\n")

	added, err = f.load(AllClasses, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Len(t, f.entries, 2)
}

func appendTo(t *testing.T, path, s string) {
	t.Helper()
	fh, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer fh.Close()
	_, err = fh.WriteString(s)
	require.NoError(t, err)
}

func TestFileLoadDropsDuplicateTimestampLine(t *testing.T) {
	path := writeTempLog(t, "history", "[1700000000] HOST ALERT: web1;DOWN;HARD;1;a\n")

	f := newFile(path, 1700000000, false)
	_, err := f.load(AllClasses, 100)
	require.NoError(t, err)
	require.Len(t, f.entries, 1)

	// Re-running load over the same (unwatched) file content would
	// re-parse the same line number and must be treated as a dup.
	f.readPos = 0
	added, err := f.load(AllClasses, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Len(t, f.entries, 1)
}

func TestFileDropClassesOutside(t *testing.T) {
	f := newFile("unused", 0, false)
	f.entries = []*Entry{
		{Class: ClassAlert},
		{Class: ClassState},
		{Class: ClassAlert},
	}

	dropped := f.dropClassesOutside(NewMask(ClassAlert))
	assert.Equal(t, 1, dropped)
	assert.Len(t, f.entries, 2)
	for _, e := range f.entries {
		assert.Equal(t, ClassAlert, e.Class)
	}
}

func TestFileClear(t *testing.T) {
	f := newFile("unused", 0, false)
	f.entries = []*Entry{{Class: ClassAlert}, {Class: ClassState}}
	f.loadedClasses = NewMask(ClassAlert, ClassState)

	cleared := f.clear()
	assert.Equal(t, 2, cleared)
	assert.Empty(t, f.entries)
	assert.Equal(t, Mask(0), f.loadedClasses)
}
