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
	"slices"

	"github.com/kurafs/clockfs/pkg/fuse"
)

// DirBuffer accumulates a directory listing in the kernel's dirent
// format. The zero value is an empty listing.
type DirBuffer struct {
	buf []byte
}

// Add appends the entry for name. The inode number and dirent type come
// from attr.
func (d *DirBuffer) Add(name string, attr fuse.Attr) {
	d.buf = slices.Grow(d.buf, fuse.DirentSize(name))
	// The type comes from the mode rather than being left DT_Unknown, so
	// readdir callers need not stat each entry.
	d.buf = fuse.AppendDirent(d.buf, fuse.Dirent{
		Inode: attr.Inode,
		Type:  fuse.DirentTypeOf(attr.Mode),
		Name:  name,
	})
}

// Bytes returns the encoded listing.
func (d *DirBuffer) Bytes() []byte {
	return d.buf
}

// Len returns the size of the encoded listing in bytes.
func (d *DirBuffer) Len() int {
	return len(d.buf)
}
