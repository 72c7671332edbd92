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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Checkmk/checkmk-sub006/internal/column"
)

func TestBrokenCSVRendersDictAndList(t *testing.T) {
	r := New(FormatBrokenCSV, DefaultSeparators(), nil)
	r.BeginQuery()
	r.BeginRow()
	r.Output(column.StringValue("web1"))
	r.Output(column.ListValue([]string{"linux", "prod"}))
	r.Output(column.Value{Kind: column.KindDictStr, DictStr: map[string]string{"a": "1"}})
	r.EndRow()
	r.EndQuery()

	assert.Equal(t, "web1;linux,prod;a|1\n", string(r.Bytes()))
}

func TestCSVQuotesFieldsOnDemand(t *testing.T) {
	r := New(FormatCSV, DefaultSeparators(), nil)
	r.BeginQuery()
	r.BeginRow()
	r.Output(column.StringValue("has;semicolon"))
	r.Output(column.StringValue("plain"))
	r.EndRow()
	r.EndQuery()

	assert.Equal(t, "\"has;semicolon\";plain\n", string(r.Bytes()))
}

func TestJSONRendersArrayOfArrays(t *testing.T) {
	r := New(FormatJSON, DefaultSeparators(), []string{"name", "state"})
	r.BeginQuery()
	r.BeginRow()
	r.Output(column.StringValue("web1"))
	r.Output(column.IntValue(0))
	r.EndRow()
	r.EndQuery()

	assert.Equal(t, `[["name","state"],["web1",0]]`, string(r.Bytes()))
}

func TestPythonRendersSingleQuotedStrings(t *testing.T) {
	r := New(FormatPython, DefaultSeparators(), nil)
	r.BeginQuery()
	r.BeginRow()
	r.Output(column.StringValue("web1"))
	r.EndRow()
	r.EndQuery()

	assert.Equal(t, `[['web1']]`, string(r.Bytes()))
}

func TestFixed16HeaderIsSixteenBytes(t *testing.T) {
	h := Fixed16Header(200, 42)
	assert.Len(t, h, 16)
	assert.Equal(t, "200          42\n", h)
}
