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

package table

import (
	"github.com/Checkmk/checkmk-sub006/internal/authz"
	"github.com/Checkmk/checkmk-sub006/internal/core"
	"github.com/Checkmk/checkmk-sub006/internal/parsedquery"
	"github.com/Checkmk/checkmk-sub006/internal/row"
)

func asTimeperiod(v any) *core.Timeperiod { return v.(*core.Timeperiod) }

// NewTimeperiodsTable builds the "timeperiods" table (§3, §4.6
// "Timeperiod transitions") with the columns name and alias. It has no
// column reporting whether a period is currently active.
func NewTimeperiodsTable() *Table {
	t := New("timeperiods", "timeperiod_")

	t.AddColumn(StringColumn("name", row.Identity, func(v any) string { return asTimeperiod(v).Name }))
	t.AddColumn(StringColumn("alias", row.Identity, func(v any) string { return asTimeperiod(v).Alias }))

	t.RowSource = func(adapter core.Adapter, q *parsedquery.ParsedQuery) ([]row.Handle, string) {
		if name, ok := q.RowFilter.StringValueRestriction("name"); ok {
			if tp, found := adapter.TimeperiodByName(name); found {
				return []row.Handle{{Primary: tp}}, "index:name"
			}
			return nil, "index:name"
		}
		periods := adapter.Timeperiods()
		handles := make([]row.Handle, len(periods))
		for i, tp := range periods {
			handles[i] = row.Handle{Primary: tp}
		}
		return handles, "scan"
	}

	t.Authorize = func(gate *authz.Gate, u authz.User, adapter core.Adapter, h row.Handle) bool {
		return true
	}

	t.Get = func(adapter core.Adapter, key string) (row.Handle, bool) {
		tp, ok := adapter.TimeperiodByName(key)
		if !ok {
			return row.Handle{}, false
		}
		return row.Handle{Primary: tp}, true
	}

	return t
}
