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

import (
	"fmt"
	"sync/atomic"
	"time"
)

const (
	// contentCap is the size of the clock buffer; one byte is reserved,
	// so the text is at most contentCap-1 bytes.
	contentCap = 32
	maxContent = contentCap - 1

	initialContent = "Hello World!\n"
)

// content holds the clock text. Stored slices are never modified, so a
// loaded snapshot stays valid for as long as a reader holds it.
type content struct {
	v atomic.Value // type: []byte
}

func newContent(s string) *content {
	c := &content{}
	c.Store([]byte(s))
	return c
}

func (c *content) Load() []byte {
	return c.v.Load().([]byte)
}

// Store publishes a copy of b, truncated to maxContent bytes.
func (c *content) Store(b []byte) {
	if len(b) > maxContent {
		b = b[:maxContent]
	}
	c.v.Store(append(make([]byte, 0, len(b)), b...))
}

// formatClock renders t as hh:mm:ss:usec followed by a newline, with the
// microseconds unpadded.
func formatClock(t time.Time) []byte {
	s := fmt.Sprintf("%02d:%02d:%02d:%d\n", t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/1000)
	if len(s) > maxContent {
		s = s[:maxContent]
	}
	return []byte(s)
}
