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
	"encoding/json"
	"strconv"

	"github.com/Checkmk/checkmk-sub006/internal/column"
)

// structuredRenderer implements json and python/python3 (§4.3): an
// array of arrays, with list columns as arrays, dict-str columns as
// objects, times as integer epoch seconds, and blobs base64-encoded.
// python/python3 differ from json only in literal syntax (single-quoted
// strings, None for null), which literal and renderValue below switch
// on via pythonLiterals.
type structuredRenderer struct {
	pythonLiterals bool
	headers        []string

	buf      bytes.Buffer
	rowsSeen int
	row      []string
}

func newStructuredRenderer(headers []string, pythonLiterals bool) *structuredRenderer {
	return &structuredRenderer{headers: headers, pythonLiterals: pythonLiterals}
}

func (r *structuredRenderer) BeginQuery() {
	r.buf.WriteByte('[')
	if len(r.headers) > 0 {
		r.writeHeaderRow()
		r.rowsSeen++
	}
}

func (r *structuredRenderer) writeHeaderRow() {
	cells := make([]string, len(r.headers))
	for i, h := range r.headers {
		cells[i] = r.literal(h)
	}
	r.writeRawRow(cells)
}

func (r *structuredRenderer) BeginRow() { r.row = r.row[:0] }

func (r *structuredRenderer) Output(v column.Value) {
	r.row = append(r.row, r.renderValue(v))
}

func (r *structuredRenderer) EndRow() {
	r.writeRawRow(r.row)
	r.rowsSeen++
}

func (r *structuredRenderer) writeRawRow(cells []string) {
	if r.rowsSeen > 0 {
		r.buf.WriteByte(',')
	}
	r.buf.WriteByte('[')
	for i, c := range cells {
		if i > 0 {
			r.buf.WriteByte(',')
		}
		r.buf.WriteString(c)
	}
	r.buf.WriteByte(']')
}

func (r *structuredRenderer) EndQuery() { r.buf.WriteByte(']') }

func (r *structuredRenderer) Bytes() []byte { return r.buf.Bytes() }

func (r *structuredRenderer) literal(s string) string {
	b, _ := json.Marshal(s)
	if r.pythonLiterals {
		return pythonizeString(string(b))
	}
	return string(b)
}

func (r *structuredRenderer) renderValue(v column.Value) string {
	switch v.Kind {
	case column.KindString:
		return r.literal(v.Str)
	case column.KindInt:
		return strconv.FormatInt(v.Int, 10)
	case column.KindTime:
		return strconv.FormatInt(v.Time, 10)
	case column.KindDouble:
		return strconv.FormatFloat(v.Dbl, 'g', -1, 64)
	case column.KindList:
		cells := make([]string, len(v.List))
		for i, s := range v.List {
			cells[i] = r.literal(s)
		}
		return bracket(cells, '[', ']')
	case column.KindDictStr:
		return r.renderDict(v.DictStr)
	case column.KindBlob:
		return r.literal(base64.StdEncoding.EncodeToString(v.Blob))
	default:
		if r.pythonLiterals {
			return "None"
		}
		return "null"
	}
}

func (r *structuredRenderer) renderDict(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortStrings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = r.literal(k) + ":" + r.literal(m[k])
	}
	return bracket(pairs, '{', '}')
}

func bracket(cells []string, open, close byte) string {
	var b bytes.Buffer
	b.WriteByte(open)
	for i, c := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(c)
	}
	b.WriteByte(close)
	return b.String()
}

// pythonizeString rewrites a json.Marshal'd double-quoted string into
// Python single-quote literal syntax, the only surface difference
// python/python3 output has from json for string values (§4.3).
func pythonizeString(jsonLit string) string {
	if len(jsonLit) < 2 {
		return jsonLit
	}
	inner := jsonLit[1 : len(jsonLit)-1]
	var b bytes.Buffer
	b.WriteByte('\'')
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c == '\'' {
			b.WriteByte('\\')
			b.WriteByte('\'')
			continue
		}
		if c == '\\' && i+1 < len(inner) && inner[i+1] == '"' {
			b.WriteByte('"')
			i++
			continue
		}
		b.WriteByte(c)
	}
	b.WriteByte('\'')
	return b.String()
}
