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

// Package logcache implements the bounded in-memory log file index of
// §4.5: lazy class-masked loading, a three-phase eviction policy, and
// rotation-aware index rebuilding.
package logcache

// Class is one of the monitoring history log's entry categories (§4.5
// "class-mask").
type Class int

const (
	ClassInfo Class = iota
	ClassAlert
	ClassProgram
	ClassNotification
	ClassPassiveCheck
	ClassCommand
	ClassState
	ClassText
)

// Mask is a bitset over Class values, the "class-mask" a query's
// Filter restricts loading to.
type Mask uint32

func NewMask(classes ...Class) Mask {
	var m Mask
	for _, c := range classes {
		m |= 1 << uint(c)
	}
	return m
}

// AllClasses matches every entry, used when a query places no
// restriction on the log table's class column.
var AllClasses = NewMask(ClassInfo, ClassAlert, ClassProgram, ClassNotification,
	ClassPassiveCheck, ClassCommand, ClassState, ClassText)

// StateHistoryClasses is the fixed class mask §4.6 "Input" pins the
// state-history reducer's replay to.
var StateHistoryClasses = NewMask(ClassAlert, ClassProgram, ClassState)

func (m Mask) Has(c Class) bool { return m&(1<<uint(c)) != 0 }

// Union combines two masks, used when two queries share a loaded file
// and neither's mask alone covers what's already cached.
func (m Mask) Union(other Mask) Mask { return m | other }
