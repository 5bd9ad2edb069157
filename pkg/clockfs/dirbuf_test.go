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

	"github.com/kurafs/clockfs/pkg/fuse"
	"github.com/kurafs/clockfs/pkg/fuse/fusetest"
)

func TestDirBuffer(t *testing.T) {
	var d DirBuffer
	dir := fuse.Attr{Inode: 1, Mode: os.ModeDir | 0755}
	d.Add(".", dir)
	if d.Len() != 32 {
		t.Errorf("len %d after one entry, expected 32", d.Len())
	}
	prefix := append([]byte(nil), d.Bytes()...)

	d.Add("..", dir)
	d.Add("clock", fuse.Attr{Inode: 2, Mode: 0444})
	if d.Len() != 96 {
		t.Errorf("len %d after three entries, expected 96", d.Len())
	}
	if string(d.Bytes()[:len(prefix)]) != string(prefix) {
		t.Errorf("growing the buffer changed earlier entries")
	}

	dirents, err := fusetest.ParseDirents(d.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	expected := []fusetest.Dirent{
		{Ino: 1, Off: 32, Type: uint32(fuse.DT_Dir), Name: "."},
		{Ino: 1, Off: 64, Type: uint32(fuse.DT_Dir), Name: ".."},
		{Ino: 2, Off: 96, Type: uint32(fuse.DT_File), Name: "clock"},
	}
	if len(dirents) != len(expected) {
		t.Fatalf("got %d entries, expected %d: %+v", len(dirents), len(expected), dirents)
	}
	for i := range expected {
		if dirents[i] != expected[i] {
			t.Errorf("entry %d = %+v, expected %+v", i, dirents[i], expected[i])
		}
	}
}

func TestDirBufferLongName(t *testing.T) {
	var d DirBuffer
	d.Add("a-name-longer-than-eight", fuse.Attr{Inode: 7})
	if d.Len() != fuse.DirentSize("a-name-longer-than-eight") || d.Len()%8 != 0 {
		t.Errorf("unexpected record size %d", d.Len())
	}
}
