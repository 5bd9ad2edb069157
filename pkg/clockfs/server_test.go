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
	"regexp"
	"syscall"
	"testing"
	"time"

	"github.com/kurafs/clockfs/pkg/fuse"
	"github.com/kurafs/clockfs/pkg/fuse/fusetest"
)

var fixedTime = time.Date(2018, 4, 19, 6, 3, 4, 606396000, time.Local)

const fixedContent = "06:03:04:606396\n"

type harness struct {
	t      *testing.T
	k      *fusetest.Kernel
	s      *Server
	served chan struct{}
	err    error
}

// serve starts a Server over a fake kernel speaking proto. With a fixed
// clock and a long interval the updater ticks exactly once.
func serve(t *testing.T, proto fuse.Protocol) *harness {
	t.Helper()
	return serveWith(t, proto, Options{
		Interval: time.Hour,
		Clock:    func() time.Time { return fixedTime },
	})
}

func serveWith(t *testing.T, proto fuse.Protocol, opts Options) *harness {
	t.Helper()
	k, conn, err := fusetest.Start(proto)
	if err != nil {
		t.Fatal(err)
	}
	h := &harness{
		t:      t,
		k:      k,
		s:      New(opts),
		served: make(chan struct{}),
	}
	go func() {
		h.err = h.s.Serve(conn)
		close(h.served)
	}()
	t.Cleanup(func() {
		k.Close()
		h.wait()
		conn.Close()
	})
	return h
}

func (h *harness) wait() error {
	select {
	case <-h.served:
		return h.err
	case <-time.After(5 * time.Second):
		h.t.Fatal("Serve did not return")
		return nil
	}
}

// ticked waits for the updater's first invalidation.
func (h *harness) ticked() {
	h.t.Helper()
	select {
	case n := <-h.k.Notifications():
		inval, err := fusetest.ParseInvalInode(n)
		if err != nil {
			h.t.Fatal(err)
		}
		if inval != (fusetest.InvalInode{Ino: 2, Off: 0, Len: 0}) {
			h.t.Errorf("unexpected invalidation %+v", inval)
		}
	case <-time.After(5 * time.Second):
		h.t.Fatal("no invalidation from the updater")
	}
}

func (h *harness) ok(r fusetest.Reply, err error) fusetest.Reply {
	h.t.Helper()
	if err != nil {
		h.t.Fatal(err)
	}
	if r.Errno != 0 {
		h.t.Fatalf("unexpected errno %v", r.Errno)
	}
	return r
}

// fails returns a check that a reply carries errno and nothing else, to be
// applied directly to a Kernel call: h.fails(syscall.ENOENT)(h.k.Getattr(3)).
func (h *harness) fails(errno syscall.Errno) func(fusetest.Reply, error) {
	return func(r fusetest.Reply, err error) {
		h.t.Helper()
		if err != nil {
			h.t.Fatal(err)
		}
		if r.Errno != errno {
			h.t.Errorf("errno %v, expected %v", r.Errno, errno)
		}
		if len(r.Data) != 0 {
			h.t.Errorf("error reply carries %d payload bytes", len(r.Data))
		}
	}
}

func TestServeGetattr(t *testing.T) {
	h := serve(t, fuse.Protocol{Major: 7, Minor: 12})
	h.ticked()

	tests := []struct {
		node  uint64
		mode  uint32
		nlink uint32
		size  uint64
	}{
		{1, syscall.S_IFDIR | 0755, 2, 0},
		{2, syscall.S_IFREG | 0444, 1, uint64(len(fixedContent))},
	}
	for _, tt := range tests {
		for i := 0; i < 2; i++ {
			a, err := fusetest.ParseAttrOut(h.ok(h.k.Getattr(tt.node)).Data)
			if err != nil {
				t.Fatal(err)
			}
			if a.Attr.Ino != tt.node || a.Attr.Mode != tt.mode || a.Attr.Nlink != tt.nlink || a.Attr.Size != tt.size {
				t.Errorf("getattr %d: %+v", tt.node, a.Attr)
			}
			if a.Valid != time.Second {
				t.Errorf("getattr %d: valid %v, expected 1s", tt.node, a.Valid)
			}
		}
	}

	h.fails(syscall.ENOENT)(h.k.Getattr(3))
	h.fails(syscall.ENOENT)(h.k.Getattr(0))
}

func TestServeLookup(t *testing.T) {
	h := serve(t, fuse.Protocol{Major: 7, Minor: 12})
	h.ticked()

	for i := 0; i < 2; i++ {
		e, err := fusetest.ParseEntryOut(h.ok(h.k.Lookup(1, "clock")).Data)
		if err != nil {
			t.Fatal(err)
		}
		if e.Nodeid != 2 || e.Generation != 0 || e.Attr.Ino != 2 || e.Attr.Size != uint64(len(fixedContent)) {
			t.Errorf("unexpected entry %+v", e)
		}
		if e.EntryValid != time.Second || e.AttrValid != time.Second {
			t.Errorf("timeouts entry=%v attr=%v, expected 1s", e.EntryValid, e.AttrValid)
		}
	}

	h.fails(syscall.ENOENT)(h.k.Lookup(1, "nope"))
	h.fails(syscall.ENOENT)(h.k.Lookup(1, "Clock"))
	h.fails(syscall.ENOENT)(h.k.Lookup(2, "clock"))
	h.fails(syscall.ENOENT)(h.k.Lookup(5, "clock"))
}

func TestServeOpen(t *testing.T) {
	h := serve(t, fuse.Protocol{Major: 7, Minor: 12})

	o, err := fusetest.ParseOpenOut(h.ok(h.k.Open(2, uint32(os.O_RDONLY))).Data)
	if err != nil {
		t.Fatal(err)
	}
	if o.Fh != 0 || o.Flags != 0 {
		t.Errorf("unexpected open reply %+v", o)
	}

	h.fails(syscall.EACCES)(h.k.Open(2, uint32(os.O_WRONLY)))
	h.fails(syscall.EACCES)(h.k.Open(2, uint32(os.O_RDWR)))
	h.fails(syscall.EACCES)(h.k.Open(2, uint32(os.O_WRONLY|os.O_TRUNC)))
	h.fails(syscall.EISDIR)(h.k.Open(1, uint32(os.O_RDONLY)))
	h.fails(syscall.ENOENT)(h.k.Open(3, uint32(os.O_RDONLY)))

	h.ok(h.k.Opendir(1))
	h.ok(h.k.Release(2, 0))
	h.ok(h.k.Flush(2, 0))
	h.ok(h.k.Releasedir(1, 0))
}

func TestServeRead(t *testing.T) {
	h := serve(t, fuse.Protocol{Major: 7, Minor: 12})
	h.ticked()

	tests := []struct {
		off  int64
		size uint32
		want string
	}{
		{0, 4096, fixedContent},
		{3, 5, "03:04"},
		{15, 10, "\n"},
		{16, 10, ""},
		{100, 10, ""},
	}
	for _, tt := range tests {
		r := h.ok(h.k.Read(2, 0, tt.off, tt.size))
		if string(r.Data) != tt.want {
			t.Errorf("read @%d size %d = %q, expected %q", tt.off, tt.size, r.Data, tt.want)
		}
	}

	h.fails(syscall.ESTALE)(h.k.Read(1, 0, 0, 4096))
	h.fails(syscall.ESTALE)(h.k.Read(9, 0, 0, 4096))
}

var clockText = regexp.MustCompile(`^\d\d:\d\d:\d\d:\d+\n$`)

// Reads and getattrs race with an updater rewriting the content every
// millisecond; every reply must carry one whole rendering.
func TestServeReadsDuringUpdates(t *testing.T) {
	h := serveWith(t, fuse.Protocol{Major: 7, Minor: 12}, Options{
		Interval: time.Millisecond,
		Clock:    steppingClock(),
	})
	h.ticked()

	seen := make(map[string]bool)
	deadline := time.Now().Add(5 * time.Second)
	for i := 0; i < 300 || (len(seen) < 3 && time.Now().Before(deadline)); i++ {
		r := h.ok(h.k.Read(2, 0, 0, 4096))
		if !clockText.Match(r.Data) {
			t.Fatalf("read %q, which is not a clock rendering", r.Data)
		}
		seen[string(r.Data)] = true

		a, err := fusetest.ParseAttrOut(h.ok(h.k.Getattr(2)).Data)
		if err != nil {
			t.Fatal(err)
		}
		if a.Attr.Size < uint64(len("00:00:00:0\n")) || a.Attr.Size > maxContent {
			t.Fatalf("getattr size %d is not a clock rendering's length", a.Attr.Size)
		}
	}
	if len(seen) < 3 {
		t.Errorf("saw %d distinct contents, expected the updater to keep changing it", len(seen))
	}
}

func TestServeReadBeforeFirstTick(t *testing.T) {
	s := New(Options{})
	data, err := s.read(clockInode, 0, 4096)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Hello World!\n" {
		t.Errorf("initial content %q", data)
	}
}

func TestServeReaddir(t *testing.T) {
	h := serve(t, fuse.Protocol{Major: 7, Minor: 12})

	expected := []fusetest.Dirent{
		{Ino: 1, Off: 32, Type: uint32(fuse.DT_Dir), Name: "."},
		{Ino: 1, Off: 64, Type: uint32(fuse.DT_Dir), Name: ".."},
		{Ino: 2, Off: 96, Type: uint32(fuse.DT_File), Name: "clock"},
	}
	tests := []struct {
		off  int64
		size uint32
		want []fusetest.Dirent
	}{
		{0, 4096, expected},
		{32, 4096, expected[1:]},
		{64, 32, expected[2:]},
		{0, 64, expected[:2]},
		{96, 4096, nil},
	}
	for _, tt := range tests {
		dirents, err := fusetest.ParseDirents(h.ok(h.k.Readdir(1, 0, tt.off, tt.size)).Data)
		if err != nil {
			t.Fatal(err)
		}
		if len(dirents) != len(tt.want) {
			t.Errorf("readdir @%d size %d: %+v, expected %+v", tt.off, tt.size, dirents, tt.want)
			continue
		}
		for i := range tt.want {
			if dirents[i] != tt.want[i] {
				t.Errorf("readdir @%d size %d: entry %d = %+v, expected %+v", tt.off, tt.size, i, dirents[i], tt.want[i])
			}
		}
	}

	// A short window cuts a record; the kernel discards the partial tail.
	if r := h.ok(h.k.Readdir(1, 0, 0, 40)); len(r.Data) != 40 {
		t.Errorf("readdir size 40: %d bytes", len(r.Data))
	}

	h.fails(syscall.ENOTDIR)(h.k.Readdir(2, 0, 0, 4096))
	h.fails(syscall.ENOTDIR)(h.k.Readdir(7, 0, 0, 4096))
}

func TestServeDefaults(t *testing.T) {
	h := serve(t, fuse.Protocol{Major: 7, Minor: 12})

	st, err := fusetest.ParseStatfsOut(h.ok(h.k.Statfs()).Data)
	if err != nil {
		t.Fatal(err)
	}
	if st != (fusetest.StatfsOut{Bsize: 512, Namelen: 255}) {
		t.Errorf("unexpected statfs %+v", st)
	}

	h.fails(syscall.ENOSYS)(h.k.Access(2, 4))
	h.fails(syscall.ENOSYS)(h.k.Call(fusetest.OpMkdir, 1, []byte{0, 0, 0, 0, 0, 0, 0, 0, 'd', 0}))
	h.fails(syscall.ENOSYS)(h.k.Call(fusetest.OpWrite, 2, make([]byte, 24)))

	// Neither forget nor interrupt is answered; the next request still is.
	if err := h.k.Forget(2, 1); err != nil {
		t.Fatal(err)
	}
	if err := h.k.Interrupt(1); err != nil {
		t.Fatal(err)
	}
	h.ok(h.k.Getattr(1))
}

func TestServeDestroy(t *testing.T) {
	h := serve(t, fuse.Protocol{Major: 7, Minor: 12})

	h.ok(h.k.Destroy())
	if err := h.wait(); err != nil {
		t.Errorf("Serve returned %v, expected nil", err)
	}
}

func TestServeEOF(t *testing.T) {
	h := serve(t, fuse.Protocol{Major: 7, Minor: 12})
	h.ticked()

	h.k.Close()
	if err := h.wait(); err != nil {
		t.Errorf("Serve returned %v, expected nil", err)
	}
	select {
	case <-h.s.done:
	default:
		t.Errorf("updater not shut down after Serve returned")
	}
}

func TestServeShutdown(t *testing.T) {
	h := serve(t, fuse.Protocol{Major: 7, Minor: 12})

	h.s.Shutdown()
	h.ok(h.k.Statfs())
	if err := h.wait(); err != nil {
		t.Errorf("Serve returned %v, expected nil", err)
	}
}

func TestServeWithoutInvalidation(t *testing.T) {
	k, conn, err := fusetest.Start(fuse.Protocol{Major: 7, Minor: 11})
	if err != nil {
		t.Fatal(err)
	}
	ticks := make(chan struct{}, 100)
	s := New(Options{
		Interval: time.Millisecond,
		Clock: func() time.Time {
			select {
			case ticks <- struct{}{}:
			default:
			}
			return fixedTime
		},
	})
	served := make(chan error, 1)
	go func() { served <- s.Serve(conn) }()
	defer conn.Close()

	for i := 0; i < 3; i++ {
		select {
		case <-ticks:
		case <-time.After(5 * time.Second):
			t.Fatal("updater is not ticking")
		}
	}

	r, err := k.Read(2, 0, 0, 4096)
	if err != nil {
		t.Fatal(err)
	}
	if string(r.Data) != fixedContent {
		t.Errorf("read %q, expected %q", r.Data, fixedContent)
	}
	select {
	case n := <-k.Notifications():
		t.Errorf("unexpected notification %+v on a 7.11 kernel", n)
	default:
	}

	k.Close()
	select {
	case err := <-served:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
}
