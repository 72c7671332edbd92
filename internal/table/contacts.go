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

func asContact(v any) *core.Contact { return v.(*core.Contact) }

// NewContactsTable builds the "contacts" table (§3 "Contact"). A query
// without a user sees every contact; a query with a user sees only
// that user's own contact row.
func NewContactsTable() *Table {
	t := New("contacts", "contact_")

	t.AddColumn(StringColumn("name", row.Identity, func(v any) string { return asContact(v).Name }))
	t.AddColumn(StringColumn("email", row.Identity, func(v any) string { return asContact(v).Email }))

	t.RowSource = func(adapter core.Adapter, q *parsedquery.ParsedQuery) ([]row.Handle, string) {
		if name, ok := q.RowFilter.StringValueRestriction("name"); ok {
			if c, found := adapter.ContactByName(name); found {
				return []row.Handle{{Primary: c}}, "index:name"
			}
			return nil, "index:name"
		}
		contacts := adapter.Contacts()
		handles := make([]row.Handle, len(contacts))
		for i, c := range contacts {
			handles[i] = row.Handle{Primary: c}
		}
		return handles, "scan"
	}

	t.Authorize = func(gate *authz.Gate, u authz.User, adapter core.Adapter, h row.Handle) bool {
		if u.Name == "" {
			return true
		}
		return asContact(h.Primary).Name == u.Name
	}

	t.Get = func(adapter core.Adapter, key string) (row.Handle, bool) {
		c, ok := adapter.ContactByName(key)
		if !ok {
			return row.Handle{}, false
		}
		return row.Handle{Primary: c}, true
	}

	return t
}
