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

// Package clockfs implements a FUSE file system holding a single read-only
// file whose content is the current local time, regenerated a few times a
// second.
//
// The tree is fixed: the root directory (inode 1) and the clock file
// (inode 2). Requests are read from a fuse.Conn one at a time and answered
// in place. A second goroutine rewrites the clock text and tells the kernel
// to drop its cached attributes for the file, so that a subsequent stat or
// read sees the new size and content.
//
//     $ cat /mnt/clock/clock
//     14:03:27:512344
package clockfs
