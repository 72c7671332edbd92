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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskHasAndUnion(t *testing.T) {
	m := NewMask(ClassAlert, ClassState)

	assert.True(t, m.Has(ClassAlert))
	assert.True(t, m.Has(ClassState))
	assert.False(t, m.Has(ClassProgram))

	m2 := m.Union(NewMask(ClassProgram))
	assert.True(t, m2.Has(ClassProgram))
	assert.True(t, m2.Has(ClassAlert))
}

func TestStateHistoryClassesFixedMask(t *testing.T) {
	assert.True(t, StateHistoryClasses.Has(ClassAlert))
	assert.True(t, StateHistoryClasses.Has(ClassProgram))
	assert.True(t, StateHistoryClasses.Has(ClassState))
	assert.False(t, StateHistoryClasses.Has(ClassNotification))
	assert.False(t, StateHistoryClasses.Has(ClassText))
}

func TestAllClassesCoversEveryClass(t *testing.T) {
	for _, c := range []Class{
		ClassInfo, ClassAlert, ClassProgram, ClassNotification,
		ClassPassiveCheck, ClassCommand, ClassState, ClassText,
	} {
		assert.True(t, AllClasses.Has(c))
	}
}
