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

import "fmt"

// Fixed16Header formats the 16-byte response header (§4.3, §6): a
// three-digit status code, a space, the decimal content length
// right-aligned in an 11-character space-padded field, and a trailing
// newline.
func Fixed16Header(status int, contentLength int) string {
	return fmt.Sprintf("%3d %11d\n", status, contentLength)
}
