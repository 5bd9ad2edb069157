// Copyright 2018 The Kura Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package clockfs

// Window returns at most max bytes of buf starting at off. Offsets past the
// end (or negative) give an empty window. The result aliases buf.
func Window(buf []byte, off int64, max int) []byte {
	if off < 0 || off >= int64(len(buf)) || max <= 0 {
		return nil
	}
	buf = buf[off:]
	if len(buf) > max {
		buf = buf[:max]
	}
	return buf
}
