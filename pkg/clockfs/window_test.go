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

import "testing"

func TestWindow(t *testing.T) {
	buf := []byte("Hello World!\n")
	tests := []struct {
		off  int64
		max  int
		want string
	}{
		{0, 4096, "Hello World!\n"},
		{0, 5, "Hello"},
		{6, 5, "World"},
		{12, 10, "\n"},
		{13, 10, ""},
		{100, 10, ""},
		{-1, 10, ""},
		{0, 0, ""},
	}
	for _, tt := range tests {
		if got := string(Window(buf, tt.off, tt.max)); got != tt.want {
			t.Errorf("Window(%q, %d, %d) = %q, expected %q", buf, tt.off, tt.max, got, tt.want)
		}
	}

	if got := Window(nil, 0, 10); len(got) != 0 {
		t.Errorf("expected empty window of nil buffer, got %q", got)
	}
}
