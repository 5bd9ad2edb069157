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
	"strings"
	"testing"
	"time"
)

func TestFormatClock(t *testing.T) {
	tests := []struct {
		t    time.Time
		want string
	}{
		{time.Date(2018, 4, 19, 6, 3, 4, 606396000, time.Local), "06:03:04:606396\n"},
		{time.Date(2018, 4, 19, 23, 59, 59, 999999999, time.Local), "23:59:59:999999\n"},
		{time.Date(2018, 4, 19, 0, 0, 0, 0, time.Local), "00:00:00:0\n"},
		{time.Date(2018, 4, 19, 12, 30, 5, 7000, time.Local), "12:30:05:7\n"},
	}
	for _, tt := range tests {
		if got := string(formatClock(tt.t)); got != tt.want {
			t.Errorf("formatClock(%v) = %q, expected %q", tt.t, got, tt.want)
		}
	}
}

func TestContentStoreTruncates(t *testing.T) {
	c := newContent(initialContent)
	if got := string(c.Load()); got != "Hello World!\n" {
		t.Errorf("initial content %q", got)
	}

	c.Store([]byte(strings.Repeat("x", 40)))
	if got := len(c.Load()); got != 31 {
		t.Errorf("stored %d bytes, expected 31", got)
	}

	c.Store([]byte(strings.Repeat("y", 31)))
	if got := string(c.Load()); got != strings.Repeat("y", 31) {
		t.Errorf("31 bytes must be kept whole, got %q", got)
	}
}

func TestContentSnapshotsAreStable(t *testing.T) {
	src := []byte("01:02:03:4\n")
	c := newContent(initialContent)
	c.Store(src)

	snap := c.Load()
	src[0] = 'X'
	c.Store([]byte("05:06:07:8\n"))

	if string(snap) != "01:02:03:4\n" {
		t.Errorf("earlier snapshot changed to %q", snap)
	}
	if string(c.Load()) != "05:06:07:8\n" {
		t.Errorf("unexpected current content %q", c.Load())
	}
}
