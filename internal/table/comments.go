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
	"github.com/Checkmk/checkmk-sub006/internal/column"
	"github.com/Checkmk/checkmk-sub006/internal/core"
	"github.com/Checkmk/checkmk-sub006/internal/parsedquery"
	"github.com/Checkmk/checkmk-sub006/internal/row"
)

// commentRow and downtimeRow are the composite rows of "comments" and
// "downtimes": a pointer to the entry alongside the host (and, for
// service entries, the service) it was attached to (§4.7 "Joins").
type commentRow struct {
	comment *core.Comment
	host    *core.Host
	service *core.Service // nil for host comments
}

func asCommentRow(v any) commentRow { return v.(commentRow) }

// NewCommentsTable builds the "comments" join table (§3 "Comment").
// It has no natural primary key beyond the entry ID, which the source
// does not expose as a lookup path either, so Get is left unset
// (§4.7 "Join tables with no natural primary key deliberately omit
// get(primary-key)").
func NewCommentsTable(hosts, services *Table) *Table {
	t := New("comments", "comment_")
	t.HasPrimaryKey = false

	t.AddColumn(IntColumn("id", row.Identity, func(v any) int64 { return int64(asCommentRow(v).comment.ID) }))
	t.AddColumn(StringColumn("author", row.Identity, func(v any) string { return asCommentRow(v).comment.Author }))
	t.AddColumn(StringColumn("comment", row.Identity, func(v any) string { return asCommentRow(v).comment.Text }))
	t.AddColumn(TimeColumn("entry_time", row.Identity, func(v any) int64 { return asCommentRow(v).comment.EntryTime }))
	t.AddColumn(BoolAsIntColumn("persistent", row.Identity, func(v any) bool { return asCommentRow(v).comment.Persistent }))
	t.AddColumn(IntColumn("is_service", row.Identity, func(v any) int64 {
		if asCommentRow(v).service != nil {
			return 1
		}
		return 0
	}))

	hostOffset := func(h row.Handle) any { return asCommentRow(h.Primary).host }
	for _, hc := range hosts.Columns() {
		t.AddColumn(BorrowColumn("host_"+hc.Name(), hc, hostOffset))
	}
	for _, sc := range services.Columns() {
		inner := sc
		t.AddColumn(&commentServiceColumn{name: "service_" + inner.Name(), inner: inner})
	}

	t.RowSource = func(adapter core.Adapter, q *parsedquery.ParsedQuery) ([]row.Handle, string) {
		var handles []row.Handle
		for _, c := range adapter.Comments() {
			h, _ := adapter.HostByName(c.HostName)
			var s *core.Service
			if c.Description != "" {
				s, _ = adapter.ServiceByKey(c.HostName, c.Description)
			}
			handles = append(handles, row.Handle{Primary: commentRow{comment: c, host: h, service: s}})
		}
		return handles, "scan"
	}

	t.Authorize = func(gate *authz.Gate, u authz.User, adapter core.Adapter, h row.Handle) bool {
		r := asCommentRow(h.Primary)
		if r.service != nil {
			return gate.IsAuthorizedForService(u, r.host, r.service)
		}
		return gate.IsAuthorizedForHost(u, r.host)
	}

	return t
}

// commentServiceColumn borrows a services column onto "comments",
// returning the null value (§4.3 "Null handling") for host-only
// comment rows that have no service side.
type commentServiceColumn struct {
	name  string
	inner column.Column
}

func (c *commentServiceColumn) Name() string      { return c.name }
func (c *commentServiceColumn) Type() column.Kind { return c.inner.Type() }
func (c *commentServiceColumn) Extract(h row.Handle) column.Value {
	r := asCommentRow(h.Primary)
	if r.service == nil {
		return column.NullValue()
	}
	return c.inner.Extract(row.Handle{Primary: r.service, Joined: r.host})
}
