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

// Package row defines the opaque row-handle type columns extract
// values from (§3 "Row handle"). Rather than the source's void* plus
// offset-lambda chain, a Handle here is a small tagged struct of
// borrowed references; offset chains become ordinary composable Go
// functions over that struct.
package row

// Handle is produced by a table's row iteration and is valid only for
// the duration of the call that produced it (§3 Lifecycle).
type Handle struct {
	// Primary is the row's main entity (a *core.Host, *core.Service, ...).
	Primary any
	// Joined holds the row's secondary entity for composite/join tables
	// (e.g. the Host side of a "services" row, §4.7).
	Joined any
}

// Offset is a pure projection from a row handle to one side of a join,
// e.g. selecting the Host out of a "services" row's Joined field.
type Offset func(Handle) any

// Identity returns the row's Primary value unchanged.
func Identity(h Handle) any { return h.Primary }

// JoinedOffset returns the row's Joined value, used by columns
// borrowed from the other side of a composite table (§4.7).
func JoinedOffset(h Handle) any { return h.Joined }
