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

package query

import (
	"math"

	"github.com/Checkmk/checkmk-sub006/internal/column"
	"github.com/Checkmk/checkmk-sub006/internal/parsedquery"
	"github.com/Checkmk/checkmk-sub006/internal/row"
)

// aggregator accumulates one Stats column across a group (§4.2
// "Stats", §4.4 "Stats finalization"): either a counting predicate or
// a numeric aggregation over a column.
type aggregator struct {
	isCount bool
	kind    parsedquery.AggregationKind

	count int64

	n           int64
	sum, sumSq  float64
	min, max    float64
}

func newAggregator(sc parsedquery.StatsColumn) *aggregator {
	return &aggregator{isCount: sc.Filter != nil, kind: sc.Aggregation}
}

func (a *aggregator) observe(sc parsedquery.StatsColumn, h row.Handle, tzOffset int) {
	if a.isCount {
		if sc.Filter.Accepts(h, tzOffset) {
			a.count++
		}
		return
	}

	f := numericOf(sc.Column.Extract(h))
	a.n++
	a.sum += f
	a.sumSq += f * f
	if a.n == 1 || f < a.min {
		a.min = f
	}
	if a.n == 1 || f > a.max {
		a.max = f
	}
}

func (a *aggregator) finalize() column.Value {
	if a.isCount {
		return column.IntValue(a.count)
	}
	if a.n == 0 {
		return column.DoubleValue(0)
	}

	mean := a.sum / float64(a.n)
	switch a.kind {
	case parsedquery.AggSum:
		return column.DoubleValue(a.sum)
	case parsedquery.AggMin:
		return column.DoubleValue(a.min)
	case parsedquery.AggMax:
		return column.DoubleValue(a.max)
	case parsedquery.AggAvg:
		return column.DoubleValue(mean)
	case parsedquery.AggStd:
		variance := a.sumSq/float64(a.n) - mean*mean
		if variance < 0 {
			variance = 0
		}
		return column.DoubleValue(math.Sqrt(variance))
	case parsedquery.AggSumInv:
		if a.sum == 0 {
			return column.DoubleValue(0)
		}
		return column.DoubleValue(1 / a.sum)
	case parsedquery.AggAvgInv:
		if mean == 0 {
			return column.DoubleValue(0)
		}
		return column.DoubleValue(1 / mean)
	default:
		return column.DoubleValue(0)
	}
}

func numericOf(v column.Value) float64 {
	switch v.Kind {
	case column.KindInt:
		return float64(v.Int)
	case column.KindTime:
		return float64(v.Time)
	case column.KindDouble:
		return v.Dbl
	default:
		return 0
	}
}
