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
	"os"
	"testing"
	"time"

	"github.com/kurafs/clockfs/pkg/fuse"
)

func TestInodeTableStat(t *testing.T) {
	c := newContent(initialContent)
	table := newInodeTable(DefaultFileName, c)

	tests := []struct {
		id    fuse.NodeID
		mode  os.FileMode
		nlink uint32
		size  uint64
	}{
		{1, os.ModeDir | 0755, 2, 0},
		{2, 0444, 1, uint64(len(initialContent))},
	}
	for _, tt := range tests {
		attr, err := table.Stat(tt.id)
		if err != nil {
			t.Errorf("Stat(%v): unexpected error %v", tt.id, err)
			continue
		}
		if attr.Inode != uint64(tt.id) || attr.Mode != tt.mode || attr.Nlink != tt.nlink || attr.Size != tt.size {
			t.Errorf("Stat(%v) = %v, expected ino=%v mode=%v nlink=%d size=%d",
				tt.id, attr, tt.id, tt.mode, tt.nlink, tt.size)
		}
		if attr.Valid != time.Second {
			t.Errorf("Stat(%v): valid %v, expected 1s", tt.id, attr.Valid)
		}
	}

	for _, id := range []fuse.NodeID{0, 3, 1 << 40} {
		if _, err := table.Stat(id); err != fuse.ENOENT {
			t.Errorf("Stat(%v): expected ENOENT, got %v", id, err)
		}
	}
}

func TestInodeTableSizeTracksContent(t *testing.T) {
	c := newContent(initialContent)
	table := newInodeTable(DefaultFileName, c)

	c.Store([]byte("12:00:00:1\n"))
	attr, err := table.Stat(clockInode)
	if err != nil {
		t.Fatal(err)
	}
	if attr.Size != 11 {
		t.Errorf("size %d, expected 11", attr.Size)
	}
}

func TestInodeTableLookupChild(t *testing.T) {
	table := newInodeTable("time", newContent(initialContent))

	tests := []struct {
		parent fuse.NodeID
		name   string
		want   fuse.NodeID
		err    error
	}{
		{1, "time", 2, nil},
		{1, "clock", 0, fuse.ENOENT},
		{1, "", 0, fuse.ENOENT},
		{1, ".", 0, fuse.ENOENT},
		{2, "time", 0, fuse.ENOENT},
		{3, "time", 0, fuse.ENOENT},
	}
	for _, tt := range tests {
		got, err := table.LookupChild(tt.parent, tt.name)
		if got != tt.want || err != tt.err {
			t.Errorf("LookupChild(%v, %q) = %v, %v; expected %v, %v", tt.parent, tt.name, got, err, tt.want, tt.err)
		}
	}
}

func TestInodeTableChildren(t *testing.T) {
	table := newInodeTable(DefaultFileName, newContent(initialContent))

	names, attrs, err := table.Children(rootInode)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "clock" || attrs[0].Inode != 2 {
		t.Errorf("unexpected children %v %v", names, attrs)
	}

	if _, _, err := table.Children(clockInode); err != fuse.ENOTDIR {
		t.Errorf("expected ENOTDIR, got %v", err)
	}
	if _, _, err := table.Children(3); err != fuse.ENOENT {
		t.Errorf("expected ENOENT, got %v", err)
	}
}
