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

package render

import (
	"bytes"
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/Checkmk/checkmk-sub006/internal/column"
)

// csvRenderer implements both broken-csv (no quoting, legacy default
// separators) and RFC-flavoured csv (quote fields containing the field
// separator, a quote, or a newline) per §4.3.
type csvRenderer struct {
	sep     Separators
	headers []string
	quote   bool

	buf        bytes.Buffer
	rowStarted bool
	colInRow   int
}

func newCSVRenderer(sep Separators, headers []string, quote bool) *csvRenderer {
	return &csvRenderer{sep: sep, headers: headers, quote: quote}
}

func (r *csvRenderer) BeginQuery() {
	if len(r.headers) == 0 {
		return
	}
	r.BeginRow()
	for _, h := range r.headers {
		r.writeField(h)
	}
	r.EndRow()
}

func (r *csvRenderer) BeginRow() {
	r.rowStarted = true
	r.colInRow = 0
}

func (r *csvRenderer) EndRow() {
	r.buf.WriteByte(r.sep.Dataset)
	r.rowStarted = false
}

func (r *csvRenderer) EndQuery() {}

func (r *csvRenderer) Bytes() []byte { return r.buf.Bytes() }

func (r *csvRenderer) Output(v column.Value) {
	r.writeField(r.renderValue(v))
}

func (r *csvRenderer) writeField(s string) {
	if r.colInRow > 0 {
		r.buf.WriteByte(r.sep.Field)
	}
	r.colInRow++
	if r.quote {
		r.buf.WriteString(r.quoteField(s))
	} else {
		r.buf.WriteString(s)
	}
}

// quoteField applies RFC-style on-demand quoting: only fields
// containing the field separator, a double quote, or a newline get
// wrapped, with embedded quotes doubled.
func (r *csvRenderer) quoteField(s string) string {
	needsQuote := strings.ContainsRune(s, rune(r.sep.Field)) ||
		strings.ContainsAny(s, "\"\n")
	if !needsQuote {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			b.WriteByte('"')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}

func (r *csvRenderer) renderValue(v column.Value) string {
	switch v.Kind {
	case column.KindString:
		return v.Str
	case column.KindInt:
		return strconv.FormatInt(v.Int, 10)
	case column.KindTime:
		return strconv.FormatInt(v.Time, 10)
	case column.KindDouble:
		return strconv.FormatFloat(v.Dbl, 'g', -1, 64)
	case column.KindList:
		return strings.Join(v.List, string(r.sep.List))
	case column.KindDictStr:
		return r.renderDict(v.DictStr)
	case column.KindBlob:
		return base64.StdEncoding.EncodeToString(v.Blob)
	default:
		return ""
	}
}

// renderDict implements the legacy broken-csv "k|v,k|v" dict encoding
// (§4.3), reused for RFC csv too since the spec gives dict columns no
// other csv-family form.
func (r *csvRenderer) renderDict(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortStrings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + string(r.sep.HostService) + m[k]
	}
	return strings.Join(pairs, string(r.sep.List))
}
