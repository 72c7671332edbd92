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

// Package table implements the table registry of §4.7: named
// collections of typed columns, prefix-aware column lookup, dynamic
// (parametric) columns, and the row-source selection each table uses
// to pick an index over a full scan (§4.4 "Source selection").
package table

import (
	"fmt"
	"strings"

	"github.com/Checkmk/checkmk-sub006/internal/authz"
	"github.com/Checkmk/checkmk-sub006/internal/column"
	"github.com/Checkmk/checkmk-sub006/internal/core"
	"github.com/Checkmk/checkmk-sub006/internal/parsedquery"
	"github.com/Checkmk/checkmk-sub006/internal/row"
)

// DynamicFactory builds a concrete column from a "name:arg" reference
// (§4.7 "Column lookup"), e.g. an RRD-range or file-contents column.
type DynamicFactory func(arg string) (column.Column, error)

// RowSourceFunc produces the candidate row handles for one query,
// choosing an index when q's filter restricts an indexed column and
// falling back to a full scan otherwise (§4.4 "Source selection").
type RowSourceFunc func(adapter core.Adapter, q *parsedquery.ParsedQuery) ([]row.Handle, string)

// AuthorizeFunc reports whether u may see h (§4.4 "Authorization gate").
type AuthorizeFunc func(gate *authz.Gate, u authz.User, adapter core.Adapter, h row.Handle) bool

// Table is a name, a name-prefix, an ordered column list, dynamic
// column factories, and the row-production procedure (§3 "Table").
type Table struct {
	Name       string
	NamePrefix string

	columns     map[string]column.Column
	columnOrder []string
	dynamic     map[string]DynamicFactory

	RowSource RowSourceFunc
	Authorize AuthorizeFunc

	// HasPrimaryKey is false for join tables with no natural primary
	// key, which deliberately omit Get (§4.7 "Joins").
	HasPrimaryKey bool
	Get           func(adapter core.Adapter, key string) (row.Handle, bool)
}

// New builds an empty table shell; AddColumn populates it.
func New(name, namePrefix string) *Table {
	return &Table{
		Name:          name,
		NamePrefix:    namePrefix,
		columns:       map[string]column.Column{},
		dynamic:       map[string]DynamicFactory{},
		HasPrimaryKey: true,
	}
}

// AddColumn registers a column under a unique name (§3 "Table").
func (t *Table) AddColumn(c column.Column) {
	if _, exists := t.columns[c.Name()]; !exists {
		t.columnOrder = append(t.columnOrder, c.Name())
	}
	t.columns[c.Name()] = c
}

// AddDynamic registers a dynamic column factory under a base name
// (§4.7 "Dynamic column", §3 "dynamic columns").
func (t *Table) AddDynamic(baseName string, f DynamicFactory) {
	t.dynamic[baseName] = f
}

// Columns returns the table's columns in declaration order.
func (t *Table) Columns() []column.Column {
	out := make([]column.Column, 0, len(t.columnOrder))
	for _, name := range t.columnOrder {
		out = append(out, t.columns[name])
	}
	return out
}

// Column resolves a column reference the way §4.7 "Column lookup"
// describes: strip repeated name-prefix occurrences, try an exact
// match, then try prefix+name; finally try a dynamic "base:arg" name.
func (t *Table) Column(name string) (column.Column, error) {
	stripped := name
	if t.NamePrefix != "" {
		for strings.HasPrefix(stripped, t.NamePrefix) {
			stripped = strings.TrimPrefix(stripped, t.NamePrefix)
		}
	}

	if c, ok := t.columns[name]; ok {
		return c, nil
	}
	if c, ok := t.columns[stripped]; ok {
		return c, nil
	}
	if t.NamePrefix != "" {
		if c, ok := t.columns[t.NamePrefix+stripped]; ok {
			return c, nil
		}
	}

	if idx := strings.IndexByte(name, ':'); idx >= 0 {
		base, arg := name[:idx], name[idx+1:]
		if factory, ok := t.dynamic[base]; ok {
			return factory(arg)
		}
	}

	return nil, fmt.Errorf("unknown column %q on table %q", name, t.Name)
}
