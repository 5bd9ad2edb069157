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
	"time"

	"github.com/kurafs/clockfs/pkg/fuse"
)

// invalidator is the part of *fuse.Conn the updater needs.
type invalidator interface {
	InvalidateNode(node fuse.NodeID, off int64, size int64) error
}

// run refreshes the clock every interval until Shutdown.
func (s *Server) run(inv invalidator) {
	select {
	case <-s.done:
		return
	default:
	}

	timer := time.NewTimer(s.interval)
	defer timer.Stop()
	for {
		s.tick(inv)
		select {
		case <-s.done:
			return
		case <-timer.C:
			timer.Reset(s.interval)
		}
	}
}

// tick publishes the current time, then invalidates the clock file's
// cached attributes. The new content is stored first so that a kernel
// refetching after the notification never sees the previous text.
func (s *Server) tick(inv invalidator) {
	s.content.Store(formatClock(s.clock()))

	switch err := inv.InvalidateNode(clockInode, 0, 0); err {
	case nil, fuse.ErrNotCached:
	case fuse.ENOSYS:
		s.warnOnce.Do(func() {
			s.logger.Warnf("kernel cannot invalidate cached data, not notifying updates to %s", s.fileName)
		})
	default:
		s.logger.Errorf("invalidate %s: %v", s.fileName, err)
	}
}
