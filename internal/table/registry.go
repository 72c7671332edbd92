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
	"sort"

	"github.com/Checkmk/checkmk-sub006/internal/column"
	"github.com/Checkmk/checkmk-sub006/internal/core"
	"github.com/Checkmk/checkmk-sub006/internal/parsedquery"
	"github.com/Checkmk/checkmk-sub006/internal/row"
)

// Registry is the process-wide mapping from table name to table
// object (§4.7 "Registry").
type Registry struct {
	tables map[string]*Table
	order  []string
}

func NewRegistry() *Registry {
	return &Registry{tables: map[string]*Table{}}
}

// Add registers t under its name. It does not update the "columns"
// meta-table: that table is a snapshot taken by BuildColumnsTable, and
// tables added after it was built are not listed in it.
func (r *Registry) Add(t *Table) {
	if _, exists := r.tables[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tables[t.Name] = t
}

func (r *Registry) Get(name string) (*Table, bool) {
	t, ok := r.tables[name]
	return t, ok
}

func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	sort.Strings(out)
	return out
}

// columnMetaRow is the row shape of the "columns" meta-table.
type columnMetaRow struct {
	Table       string
	Name        string
	Type        string
	Description string
}

// BuildColumnsTable builds the "columns" meta-table: one row per column
// of every table registered at the time of the call (§4.7). Tables
// registered later, and the columns table itself, get no rows.
func (r *Registry) BuildColumnsTable() *Table {
	t := New("columns", "column_")

	nameCol := simpleColumn("name", column.KindString, func(h row.Handle) column.Value {
		return column.StringValue(h.Primary.(columnMetaRow).Name)
	})
	tableCol := simpleColumn("table", column.KindString, func(h row.Handle) column.Value {
		return column.StringValue(h.Primary.(columnMetaRow).Table)
	})
	typeCol := simpleColumn("type", column.KindString, func(h row.Handle) column.Value {
		return column.StringValue(h.Primary.(columnMetaRow).Type)
	})
	descCol := simpleColumn("description", column.KindString, func(h row.Handle) column.Value {
		return column.StringValue(h.Primary.(columnMetaRow).Description)
	})

	t.AddColumn(nameCol)
	t.AddColumn(tableCol)
	t.AddColumn(typeCol)
	t.AddColumn(descCol)
	t.HasPrimaryKey = false

	var rows []row.Handle
	for _, tableName := range r.Names() {
		owner := r.tables[tableName]
		for _, c := range owner.Columns() {
			rows = append(rows, row.Handle{Primary: columnMetaRow{
				Table: tableName,
				Name:  c.Name(),
				Type:  c.Type().String(),
			}})
		}
	}

	t.RowSource = func(adapter core.Adapter, q *parsedquery.ParsedQuery) ([]row.Handle, string) {
		return rows, "scan"
	}

	return t
}

// simpleColumn builds a column.Column from a name/kind/extractor
// triple, used for small synthetic tables like "columns" that have no
// domain entity of their own to wrap.
func simpleColumn(name string, kind column.Kind, extract func(row.Handle) column.Value) column.Column {
	return &funcColumn{name: name, kind: kind, extract: extract}
}

type funcColumn struct {
	name    string
	kind    column.Kind
	extract func(row.Handle) column.Value
}

func (c *funcColumn) Name() string                      { return c.name }
func (c *funcColumn) Type() column.Kind                  { return c.kind }
func (c *funcColumn) Extract(h row.Handle) column.Value  { return c.extract(h) }
