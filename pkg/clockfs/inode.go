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
	"time"

	"github.com/google/btree"
	"github.com/kurafs/clockfs/pkg/fuse"
)

const (
	rootInode  = fuse.RootID
	clockInode = fuse.NodeID(2)

	// How long the kernel may cache names and attributes.
	entryTimeout = time.Second
	attrTimeout  = time.Second
)

// inode is one entry of the fixed tree. Sizes are not stored; regular
// files take theirs from the live content at stat time.
type inode struct {
	id     fuse.NodeID
	parent fuse.NodeID
	name   string
	mode   os.FileMode
	nlink  uint32
}

func (n *inode) Less(than btree.Item) bool {
	return n.id < than.(*inode).id
}

// inodeTable is the set of inodes, ordered by ID.
type inodeTable struct {
	tree    *btree.BTree
	content *content
}

func newInodeTable(fileName string, c *content) *inodeTable {
	t := &inodeTable{
		tree:    btree.New(2),
		content: c,
	}
	t.tree.ReplaceOrInsert(&inode{id: rootInode, parent: rootInode, mode: os.ModeDir | 0755, nlink: 2})
	t.tree.ReplaceOrInsert(&inode{id: clockInode, parent: rootInode, name: fileName, mode: 0444, nlink: 1})
	return t
}

func (t *inodeTable) get(id fuse.NodeID) (*inode, bool) {
	item := t.tree.Get(&inode{id: id})
	if item == nil {
		return nil, false
	}
	return item.(*inode), true
}

// Stat returns the attributes of the inode, or ENOENT.
func (t *inodeTable) Stat(id fuse.NodeID) (fuse.Attr, error) {
	n, ok := t.get(id)
	if !ok {
		return fuse.Attr{}, fuse.ENOENT
	}
	return t.attr(n), nil
}

func (t *inodeTable) attr(n *inode) fuse.Attr {
	a := fuse.Attr{
		Valid: attrTimeout,
		Inode: uint64(n.id),
		Mode:  n.mode,
		Nlink: n.nlink,
	}
	if n.mode.IsRegular() {
		a.Size = uint64(len(t.content.Load()))
	}
	return a
}

// LookupChild resolves name in the directory parent. It fails with ENOENT
// unless parent is a directory holding name.
func (t *inodeTable) LookupChild(parent fuse.NodeID, name string) (fuse.NodeID, error) {
	var found fuse.NodeID
	t.children(parent, func(n *inode) bool {
		if n.name == name {
			found = n.id
			return false
		}
		return true
	})
	if found == 0 {
		return 0, fuse.ENOENT
	}
	return found, nil
}

// Children returns the attributes and names of the entries of directory id,
// in inode order, not including "." and "..".
func (t *inodeTable) Children(id fuse.NodeID) ([]string, []fuse.Attr, error) {
	n, ok := t.get(id)
	if !ok {
		return nil, nil, fuse.ENOENT
	}
	if !n.mode.IsDir() {
		return nil, nil, fuse.ENOTDIR
	}
	var names []string
	var attrs []fuse.Attr
	t.children(id, func(c *inode) bool {
		names = append(names, c.name)
		attrs = append(attrs, t.attr(c))
		return true
	})
	return names, attrs, nil
}

func (t *inodeTable) children(parent fuse.NodeID, fn func(*inode) bool) {
	t.tree.Ascend(func(item btree.Item) bool {
		n := item.(*inode)
		if n.parent != parent || n.id == parent {
			return true
		}
		return fn(n)
	})
}
