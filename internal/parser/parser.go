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

// Package parser implements the request parser of §4.2: a line-oriented
// header language that builds up a parsedquery.ParsedQuery, including
// the Filter/Stats stack mechanics and the option headers that
// configure rendering, limits, authorization, and wait semantics.
package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Checkmk/checkmk-sub006/internal/authz"
	"github.com/Checkmk/checkmk-sub006/internal/column"
	"github.com/Checkmk/checkmk-sub006/internal/filter"
	"github.com/Checkmk/checkmk-sub006/internal/parsedquery"
	"github.com/Checkmk/checkmk-sub006/internal/render"
	"github.com/Checkmk/checkmk-sub006/internal/row"
)

// columnLookup is the subset of *table.Table the parser needs; kept
// as an interface so tests can supply a table without the rest of the
// table package's machinery.
type columnLookup interface {
	Column(name string) (column.Column, error)
	Columns() []column.Column
}

// Parser turns request lines into a parsedquery.ParsedQuery against a
// fixed table. One Parser instance handles exactly one request.
type Parser struct {
	tableName string
	tbl       columnLookup
	now       int64 // server's current epoch second, for Localtime validation

	rowStack  []filter.Filter
	waitStack []filter.Filter

	statsFilters []filter.Filter // counting stats columns, for StatsAnd/Or/Negate
	stats        []parsedquery.StatsColumn

	q *parsedquery.ParsedQuery
}

// New builds a Parser for one GET/COMMAND request body against tbl,
// the table named by the request's GET line.
func New(tableName string, tbl columnLookup, now int64) *Parser {
	return &Parser{
		tableName: tableName,
		tbl:       tbl,
		now:       now,
		q: &parsedquery.ParsedQuery{
			TableName: tableName,
			Display: parsedquery.DisplayOptions{
				ColumnHeaders:  false,
				FieldSep:       ';',
				DatasetSep:     '\n',
				ListSep:        ',',
				HostServiceSep: '|',
				Format:         parsedquery.FormatBrokenCSV,
				ResponseHeader: parsedquery.ResponseHeaderOff,
				KeepAlive:      false,
			},
		},
	}
}

// Parse processes every header line and returns the finished query.
// Per §4.2, unknown headers and malformed arguments are recorded on
// q.ParseErrors rather than aborting the request early: parsing
// proceeds as far as it can.
func (p *Parser) Parse(lines []string) *parsedquery.ParsedQuery {
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := p.parseLine(line); err != nil {
			p.q.ParseErrors = append(p.q.ParseErrors, err)
		}
	}

	p.q.RowFilter = collapseStack(p.rowStack)
	p.q.Wait.Condition = collapseStack(p.waitStack)
	p.q.Stats = p.stats

	// §3 "Parsed query": with no explicit Columns: and no Stats:, the
	// full column set is substituted and headers are forced on.
	if len(p.q.Columns) == 0 && !p.q.HasStats() {
		p.q.Columns = p.tbl.Columns()
		p.q.Display.ColumnHeaders = true
	}

	return p.q
}

func collapseStack(stack []filter.Filter) filter.Filter {
	if len(stack) == 0 {
		return filter.Tautology
	}
	return filter.And(stack...)
}

func (p *Parser) parseLine(line string) error {
	header, rest, ok := strings.Cut(line, ":")
	if !ok {
		return fmt.Errorf("malformed header line %q", line)
	}
	rest = strings.TrimPrefix(rest, " ")

	switch header {
	case "Filter":
		return p.pushColumnFilter(&p.rowStack, rest, column.FilterKindRow)
	case "And":
		return combineStack(&p.rowStack, rest, filter.And)
	case "Or":
		return combineStack(&p.rowStack, rest, filter.Or)
	case "Negate":
		return negateTop(&p.rowStack)

	case "WaitCondition":
		return p.pushColumnFilter(&p.waitStack, rest, column.FilterKindWaitCondition)
	case "WaitConditionAnd":
		return combineStack(&p.waitStack, rest, filter.And)
	case "WaitConditionOr":
		return combineStack(&p.waitStack, rest, filter.Or)
	case "WaitConditionNegate":
		return negateTop(&p.waitStack)
	case "WaitTrigger":
		p.q.Wait.Trigger = rest
		return nil
	case "WaitObject":
		p.q.Wait.Object = rest
		return nil
	case "WaitTimeout":
		ms, err := strconv.Atoi(rest)
		if err != nil {
			return fmt.Errorf("invalid WaitTimeout %q: %w", rest, err)
		}
		p.q.Wait.TimeoutMS = ms
		return nil

	case "Stats":
		return p.parseStats(rest)
	case "StatsAnd":
		return combineStatsStack(p, rest, filter.And)
	case "StatsOr":
		return combineStatsStack(p, rest, filter.Or)
	case "StatsNegate":
		return negateTop(&p.statsFilters)

	case "Columns":
		return p.parseColumns(rest)
	case "ColumnHeaders":
		on, err := parseOnOff(rest)
		if err != nil {
			return err
		}
		p.q.Display.ColumnHeaders = on
		return nil
	case "Limit":
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid Limit %q", rest)
		}
		p.q.Limits.RowLimit = n
		p.q.Limits.HasLimit = true
		return nil
	case "Timelimit":
		secs, err := strconv.Atoi(rest)
		if err != nil || secs < 0 {
			return fmt.Errorf("invalid Timelimit %q", rest)
		}
		p.q.Limits.HasDeadline = true
		p.q.Limits.Deadline = epochToDeadline(p.now, secs)
		return nil
	case "AuthUser":
		p.q.User = authz.User{Name: rest}
		return nil
	case "Separators":
		return p.parseSeparators(rest)
	case "OutputFormat":
		fmtKind, ok := render.ParseFormat(rest)
		if !ok {
			return fmt.Errorf("unknown OutputFormat %q", rest)
		}
		p.q.Display.Format = parsedquery.OutputFormat(fmtKind)
		return nil
	case "ResponseHeader":
		switch rest {
		case "off":
			p.q.Display.ResponseHeader = parsedquery.ResponseHeaderOff
		case "fixed16":
			p.q.Display.ResponseHeader = parsedquery.ResponseHeaderFixed16
		default:
			return fmt.Errorf("unknown ResponseHeader %q", rest)
		}
		return nil
	case "KeepAlive":
		on, err := parseOnOff(rest)
		if err != nil {
			return err
		}
		p.q.Display.KeepAlive = on
		return nil
	case "Localtime":
		return p.parseLocaltime(rest)
	case "OrderBy":
		return p.parseOrderBy(rest)

	default:
		return fmt.Errorf("unknown header %q", header)
	}
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("expected on/off, got %q", s)
	}
}

func negateTop(stack *[]filter.Filter) error {
	s := *stack
	if len(s) == 0 {
		return fmt.Errorf("Negate on empty filter stack")
	}
	top := s[len(s)-1]
	s[len(s)-1] = top.Negate()
	return nil
}

func combineStack(stack *[]filter.Filter, rest string, combine func(...filter.Filter) filter.Filter) error {
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return fmt.Errorf("invalid stack count %q", rest)
	}
	s := *stack
	if n > len(s) {
		return fmt.Errorf("stack underflow: want %d items, have %d", n, len(s))
	}
	popped := append([]filter.Filter{}, s[len(s)-n:]...)
	s = s[:len(s)-n]
	*stack = append(s, combine(popped...))
	return nil
}

func combineStatsStack(p *Parser, rest string, combine func(...filter.Filter) filter.Filter) error {
	if err := combineStack(&p.statsFilters, rest, combine); err != nil {
		return err
	}
	top := p.statsFilters[len(p.statsFilters)-1]
	p.stats = append(p.stats, parsedquery.StatsColumn{
		Name:   fmt.Sprintf("stats_%d", len(p.stats)+1),
		Filter: top,
	})
	return nil
}

func (p *Parser) pushColumnFilter(stack *[]filter.Filter, rest string, kind column.FilterKind) error {
	fields := strings.SplitN(rest, " ", 3)
	if len(fields) < 2 {
		return fmt.Errorf("malformed filter %q", rest)
	}
	colName := fields[0]
	opTok := fields[1]
	rhs := ""
	if len(fields) == 3 {
		rhs = fields[2]
	}

	col, err := p.tbl.Column(colName)
	if err != nil {
		return err
	}
	op, err := column.ParseOp(opTok)
	if err != nil {
		return err
	}
	cf, err := filter.NewColumnFilter(col, kind, op, rhs)
	if err != nil {
		return err
	}
	*stack = append(*stack, cf)
	return nil
}

var aggregationNames = map[string]parsedquery.AggregationKind{
	"sum":    parsedquery.AggSum,
	"min":    parsedquery.AggMin,
	"max":    parsedquery.AggMax,
	"avg":    parsedquery.AggAvg,
	"std":    parsedquery.AggStd,
	"suminv": parsedquery.AggSumInv,
	"avginv": parsedquery.AggAvgInv,
}

// parseStats implements §4.2 "Stats": form (a) is "<col> <op> <value>"
// (a counting predicate), form (b) is "<aggregation> <col>".
func (p *Parser) parseStats(rest string) error {
	fields := strings.SplitN(rest, " ", 2)
	if len(fields) != 2 {
		return fmt.Errorf("malformed Stats %q", rest)
	}

	if agg, ok := aggregationNames[fields[0]]; ok {
		col, err := p.tbl.Column(fields[1])
		if err != nil {
			return err
		}
		p.stats = append(p.stats, parsedquery.StatsColumn{
			Name:        fmt.Sprintf("stats_%d", len(p.stats)+1),
			Aggregation: agg,
			Column:      col,
		})
		return nil
	}

	if err := p.pushColumnFilter(&p.statsFilters, rest, column.FilterKindStats); err != nil {
		return err
	}
	top := p.statsFilters[len(p.statsFilters)-1]
	p.stats = append(p.stats, parsedquery.StatsColumn{
		Name:   fmt.Sprintf("stats_%d", len(p.stats)+1),
		Filter: top,
	})
	return nil
}

func (p *Parser) parseColumns(rest string) error {
	if strings.TrimSpace(rest) == "" {
		return nil
	}
	for _, name := range strings.Fields(rest) {
		col, err := p.tbl.Column(name)
		if err != nil {
			// Unknown column names in Columns: a null-column, kept for
			// protocol stability across site versions (§4.2).
			col = nullColumn{name: name}
		}
		p.q.Columns = append(p.q.Columns, col)
	}
	return nil
}

func (p *Parser) parseSeparators(rest string) error {
	fields := strings.Fields(rest)
	if len(fields) != 4 {
		return fmt.Errorf("Separators needs 4 integers, got %q", rest)
	}
	vals := make([]byte, 4)
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 || n > 255 {
			return fmt.Errorf("invalid separator value %q", f)
		}
		vals[i] = byte(n)
	}
	p.q.Display.DatasetSep = vals[0]
	p.q.Display.FieldSep = vals[1]
	p.q.Display.ListSep = vals[2]
	p.q.Display.HostServiceSep = vals[3]
	return nil
}

// parseLocaltime implements §4.2's clock-skew rounding and rejection:
// round now-client_now to the nearest half hour, reject |delta| >= 24h.
func (p *Parser) parseLocaltime(rest string) error {
	clientNow, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid Localtime %q: %w", rest, err)
	}
	delta := p.now - clientNow
	const halfHour = 1800
	const day = 24 * 3600
	rounded := roundToStep(delta, halfHour)
	if rounded >= day || rounded <= -day {
		return fmt.Errorf("Localtime delta out of range: %ds", rounded)
	}
	p.q.TZOffset = int(rounded)
	return nil
}

// roundToStep rounds delta to the nearest multiple of step, matching
// std::chrono::round rather than truncating division toward zero.
func roundToStep(delta, step int64) int64 {
	if delta >= 0 {
		return ((delta + step/2) / step) * step
	}
	return -((-delta + step/2) / step) * step
}

func (p *Parser) parseOrderBy(rest string) error {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return fmt.Errorf("malformed OrderBy %q", rest)
	}
	colRef := fields[0]
	descending := false
	if len(fields) >= 2 {
		switch fields[len(fields)-1] {
		case "asc":
			fields = fields[:len(fields)-1]
		case "desc":
			descending = true
			fields = fields[:len(fields)-1]
		}
	}

	colName, dictKey, _ := strings.Cut(colRef, ".")
	col, err := p.tbl.Column(colName)
	if err != nil {
		return err
	}
	p.q.OrderBy = append(p.q.OrderBy, parsedquery.OrderDirective{
		Column:     col,
		DictKey:    dictKey,
		Descending: descending,
	})
	return nil
}

// epochToDeadline turns a Timelimit second count into an absolute
// deadline anchored on the server's notion of "now" at parse time.
func epochToDeadline(nowEpoch int64, secs int) time.Time {
	return time.Unix(nowEpoch+int64(secs), 0).UTC()
}

// nullColumn stands in for a Columns reference the table doesn't
// recognize, always extracting to column.NullValue() (§4.2 "Column
// names").
type nullColumn struct{ name string }

func (c nullColumn) Name() string      { return c.name }
func (c nullColumn) Type() column.Kind { return column.KindNull }
func (c nullColumn) Extract(row.Handle) column.Value { return column.NullValue() }
