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
	"io"
	"sync"
	"time"

	"github.com/kurafs/clockfs/pkg/fuse"
	"github.com/kurafs/clockfs/pkg/log"
)

const (
	DefaultFileName = "clock"
	DefaultInterval = 250 * time.Millisecond
)

// Options configure a Server. Zero fields take defaults.
type Options struct {
	// FileName is the name of the clock file in the root directory.
	FileName string
	// Interval is how long the updater waits between refreshes.
	Interval time.Duration
	Logger   *log.Logger
	// Clock returns the time to render; time.Now by default.
	Clock func() time.Time
}

// Server serves the clock file system over a single FUSE connection.
type Server struct {
	logger   *log.Logger
	fileName string
	interval time.Duration
	clock    func() time.Time

	content *content
	inodes  *inodeTable

	done         chan struct{}
	shutdownOnce sync.Once
	warnOnce     sync.Once
}

// New returns a Server holding the initial content, "Hello World!\n", until
// its updater first runs.
func New(opts Options) *Server {
	if opts.FileName == "" {
		opts.FileName = DefaultFileName
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = log.Discarder()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	c := newContent(initialContent)
	return &Server{
		logger:   opts.Logger,
		fileName: opts.FileName,
		interval: opts.Interval,
		clock:    opts.Clock,
		content:  c,
		inodes:   newInodeTable(opts.FileName, c),
		done:     make(chan struct{}),
	}
}

// Serve answers requests read from conn, and runs the updater alongside.
// It returns nil once the file system is unmounted (the kernel reports EOF
// or sends DESTROY), or after the next request once Shutdown has been
// called. The updater has exited by the time Serve returns.
//
// Serve must be called at most once.
func (s *Server) Serve(conn *fuse.Conn) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.run(conn)
	}()
	defer wg.Wait()
	defer s.Shutdown()

	for {
		req, err := conn.ReadRequest()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			s.logger.Errorf("read request: %v", err)
			return err
		}
		if destroyed := s.serve(req); destroyed {
			return nil
		}
		select {
		case <-s.done:
			return nil
		default:
		}
	}
}

// Shutdown stops the updater and makes Serve return after the request in
// flight, if any. Unmount the file system to unblock a Serve waiting for
// the next request. Shutdown may be called more than once.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.done)
	})
}

// serve answers req exactly once, unless the protocol forbids a reply. It
// reports whether the kernel is done with the file system.
func (s *Server) serve(req fuse.Request) (destroyed bool) {
	switch r := req.(type) {
	case *fuse.LookupRequest:
		id, attr, err := s.lookup(r.Node, r.Name)
		if err != nil {
			r.RespondError(err)
			return false
		}
		r.Respond(&fuse.LookupResponse{Node: id, EntryValid: entryTimeout, Attr: attr})

	case *fuse.GetattrRequest:
		attr, err := s.getattr(r.Node)
		if err != nil {
			r.RespondError(err)
			return false
		}
		r.Respond(&fuse.GetattrResponse{Attr: attr})

	case *fuse.OpenRequest:
		if r.Dir {
			r.Respond(&fuse.OpenResponse{})
			return false
		}
		resp, err := s.open(r.Node, r.Flags)
		if err != nil {
			r.RespondError(err)
			return false
		}
		r.Respond(resp)

	case *fuse.ReadRequest:
		var data []byte
		var err error
		if r.Dir {
			data, err = s.readdir(r.Node, r.Offset, r.Size)
		} else {
			data, err = s.read(r.Node, r.Offset, r.Size)
		}
		if err != nil {
			r.RespondError(err)
			return false
		}
		r.Respond(&fuse.ReadResponse{Data: data})

	case *fuse.StatfsRequest:
		r.Respond(&fuse.StatfsResponse{Bsize: 512, Namelen: 255})

	case *fuse.ReleaseRequest:
		r.Respond()

	case *fuse.FlushRequest:
		r.Respond()

	case *fuse.ForgetRequest:
		r.Respond()

	case *fuse.InterruptRequest:
		// Requests are answered synchronously; there is never one to
		// interrupt.
		r.Respond()

	case *fuse.DestroyRequest:
		r.Respond()
		return true

	default:
		req.Hdr().RespondError(fuse.ENOSYS)
	}
	return false
}

func (s *Server) lookup(parent fuse.NodeID, name string) (fuse.NodeID, fuse.Attr, error) {
	id, err := s.inodes.LookupChild(parent, name)
	if err != nil {
		return 0, fuse.Attr{}, err
	}
	attr, err := s.inodes.Stat(id)
	if err != nil {
		return 0, fuse.Attr{}, err
	}
	return id, attr, nil
}

func (s *Server) getattr(node fuse.NodeID) (fuse.Attr, error) {
	return s.inodes.Stat(node)
}

func (s *Server) open(node fuse.NodeID, flags fuse.OpenFlags) (*fuse.OpenResponse, error) {
	n, ok := s.inodes.get(node)
	switch {
	case !ok:
		return nil, fuse.ENOENT
	case n.mode.IsDir():
		return nil, fuse.EISDIR
	case !flags.IsReadOnly():
		return nil, fuse.EACCES
	}
	return &fuse.OpenResponse{}, nil
}

func (s *Server) read(node fuse.NodeID, off int64, size int) ([]byte, error) {
	n, ok := s.inodes.get(node)
	if !ok || !n.mode.IsRegular() {
		// The kernel only reads handles we opened, and only the clock
		// file can be opened for reading.
		s.logger.Errorf("read of inode %v, which is not a regular file", node)
		return nil, fuse.ESTALE
	}
	return Window(s.content.Load(), off, size), nil
}

func (s *Server) readdir(node fuse.NodeID, off int64, size int) ([]byte, error) {
	names, attrs, err := s.inodes.Children(node)
	if err != nil {
		return nil, fuse.ENOTDIR
	}
	self, _ := s.inodes.get(node)

	var d DirBuffer
	d.Add(".", s.inodes.attr(self))
	if parent, ok := s.inodes.get(self.parent); ok {
		d.Add("..", s.inodes.attr(parent))
	}
	for i, name := range names {
		d.Add(name, attrs[i])
	}
	return Window(d.Bytes(), off, size), nil
}
