// See the file LICENSE for copyright and licensing information.

// Package fusetest plays the kernel's side of the FUSE protocol so a
// fuse.Conn can be served without mounting anything.
//
// The two ends of an AF_UNIX SOCK_SEQPACKET socketpair stand in for
// /dev/fuse: like the real device, every read returns exactly one
// message. Requests are encoded the way Linux lays them out, and
// replies are matched back to their callers by unique ID.
package fusetest

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/kurafs/clockfs/pkg/fuse"
)

// Opcode is a FUSE request opcode.
type Opcode uint32

const (
	OpLookup     Opcode = 1
	OpForget     Opcode = 2
	OpGetattr    Opcode = 3
	OpSetattr    Opcode = 4
	OpReadlink   Opcode = 5
	OpMkdir      Opcode = 9
	OpUnlink     Opcode = 10
	OpOpen       Opcode = 14
	OpRead       Opcode = 15
	OpWrite      Opcode = 16
	OpStatfs     Opcode = 17
	OpRelease    Opcode = 18
	OpFlush      Opcode = 25
	OpInit       Opcode = 26
	OpOpendir    Opcode = 27
	OpReaddir    Opcode = 28
	OpReleasedir Opcode = 29
	OpAccess     Opcode = 34
	OpCreate     Opcode = 35
	OpInterrupt  Opcode = 36
	OpDestroy    Opcode = 38
)

const (
	inHeaderSize  = 40
	outHeaderSize = 16
	// NotifyInvalInode is the notification code of FUSE_NOTIFY_INVAL_INODE.
	NotifyInvalInode = 2
)

var (
	// ErrTimeout is returned by Call when no reply arrives in time.
	ErrTimeout = errors.New("fusetest: timed out waiting for reply")
	// ErrClosed is returned once the kernel side has shut down.
	ErrClosed = errors.New("fusetest: kernel closed")
)

// A Reply is the server's answer to one request.
type Reply struct {
	Len   uint32        // length claimed by the out header
	Errno syscall.Errno // zero on success
	Data  []byte        // payload following the out header
}

// A Notification is an unsolicited message (unique ID 0) from the server.
type Notification struct {
	Code int32
	Data []byte
}

// Kernel is the kernel end of a fake FUSE device.
type Kernel struct {
	// Timeout bounds how long Call waits for a reply.
	Timeout time.Duration
	// Init is the server's reply to the INIT handshake.
	Init InitOut

	proto fuse.Protocol
	fd    int

	mu      sync.Mutex
	unique  uint64
	pending map[uint64]chan Reply

	notify    chan Notification
	done      chan struct{}
	closeOnce sync.Once
}

// Start creates a socketpair, sends INIT announcing proto and runs the
// handshake through fuse.NewConn. The returned Conn is ready to be
// served; Close the Kernel to make its ReadRequest return io.EOF.
func Start(proto fuse.Protocol, options ...fuse.MountOption) (*Kernel, *fuse.Conn, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_SEQPACKET|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("fusetest: socketpair: %v", err)
	}
	k := &Kernel{
		Timeout: 5 * time.Second,
		proto:   proto,
		fd:      fds[0],
		pending: make(map[uint64]chan Reply),
		notify:  make(chan Notification, 256),
		done:    make(chan struct{}),
	}
	go k.readLoop()

	payload := make([]byte, 16)
	ne := binary.NativeEndian
	ne.PutUint32(payload[0:], proto.Major)
	ne.PutUint32(payload[4:], proto.Minor)
	ne.PutUint32(payload[8:], 128*1024) // max readahead
	ch, unique := k.register()
	if err := k.send(OpInit, unique, 0, payload); err != nil {
		unix.Close(fds[1])
		k.Close()
		return nil, nil, err
	}

	dev := os.NewFile(uintptr(fds[1]), "fusetest")
	conn, err := fuse.NewConn(dev, options...)
	if err != nil {
		k.Close()
		return nil, nil, err
	}
	r, err := k.wait(unique, ch)
	if err != nil {
		conn.Close()
		k.Close()
		return nil, nil, err
	}
	if k.Init, err = ParseInitOut(r.Data); err != nil {
		conn.Close()
		k.Close()
		return nil, nil, err
	}
	return k, conn, nil
}

// Close shuts the kernel end down. A server blocked in ReadRequest sees
// io.EOF. Close waits for the reply reader to exit and is idempotent.
func (k *Kernel) Close() error {
	var err error
	k.closeOnce.Do(func() {
		unix.Shutdown(k.fd, unix.SHUT_RDWR)
		<-k.done
		err = unix.Close(k.fd)
	})
	return err
}

// Done is closed when the server end is gone or Close was called.
func (k *Kernel) Done() <-chan struct{} {
	return k.done
}

// Notifications returns the channel notifications are delivered on.
// Notifications beyond its buffer are dropped.
func (k *Kernel) Notifications() <-chan Notification {
	return k.notify
}

func (k *Kernel) readLoop() {
	defer close(k.done)
	buf := make([]byte, 256*1024)
	ne := binary.NativeEndian
	for {
		n, err := unix.Read(k.fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil || n == 0 {
			return
		}
		if n < outHeaderSize {
			continue
		}
		length := ne.Uint32(buf[0:])
		errno := int32(ne.Uint32(buf[4:]))
		unique := ne.Uint64(buf[8:])
		data := append([]byte(nil), buf[outHeaderSize:n]...)

		if unique == 0 {
			select {
			case k.notify <- Notification{Code: errno, Data: data}:
			default:
			}
			continue
		}

		k.mu.Lock()
		ch := k.pending[unique]
		delete(k.pending, unique)
		k.mu.Unlock()
		if ch != nil {
			ch <- Reply{Len: length, Errno: syscall.Errno(-errno), Data: data}
		}
	}
}

func (k *Kernel) register() (chan Reply, uint64) {
	ch := make(chan Reply, 1)
	k.mu.Lock()
	k.unique++
	unique := k.unique
	k.pending[unique] = ch
	k.mu.Unlock()
	return ch, unique
}

func (k *Kernel) forget(unique uint64) {
	k.mu.Lock()
	delete(k.pending, unique)
	k.mu.Unlock()
}

func (k *Kernel) wait(unique uint64, ch chan Reply) (Reply, error) {
	timer := time.NewTimer(k.Timeout)
	defer timer.Stop()
	select {
	case r := <-ch:
		return r, nil
	case <-timer.C:
		k.forget(unique)
		return Reply{}, ErrTimeout
	case <-k.done:
		select {
		case r := <-ch:
			return r, nil
		default:
			return Reply{}, ErrClosed
		}
	}
}

func (k *Kernel) send(op Opcode, unique, node uint64, payload []byte) error {
	msg := make([]byte, inHeaderSize+len(payload))
	ne := binary.NativeEndian
	ne.PutUint32(msg[0:], uint32(len(msg)))
	ne.PutUint32(msg[4:], uint32(op))
	ne.PutUint64(msg[8:], unique)
	ne.PutUint64(msg[16:], node)
	ne.PutUint32(msg[24:], uint32(os.Getuid()))
	ne.PutUint32(msg[28:], uint32(os.Getgid()))
	ne.PutUint32(msg[32:], uint32(os.Getpid()))
	copy(msg[inHeaderSize:], payload)
	if _, err := unix.Write(k.fd, msg); err != nil {
		return fmt.Errorf("fusetest: write %v: %v", op, err)
	}
	return nil
}

// Call sends a request and waits for its reply.
func (k *Kernel) Call(op Opcode, node uint64, payload []byte) (Reply, error) {
	ch, unique := k.register()
	if err := k.send(op, unique, node, payload); err != nil {
		k.forget(unique)
		return Reply{}, err
	}
	return k.wait(unique, ch)
}

// Send sends a request the server must not answer, such as forget or
// interrupt, and returns the unique ID it was sent with.
func (k *Kernel) Send(op Opcode, node uint64, payload []byte) (uint64, error) {
	k.mu.Lock()
	k.unique++
	unique := k.unique
	k.mu.Unlock()
	return unique, k.send(op, unique, node, payload)
}

func (op Opcode) String() string {
	switch op {
	case OpLookup:
		return "LOOKUP"
	case OpForget:
		return "FORGET"
	case OpGetattr:
		return "GETATTR"
	case OpOpen:
		return "OPEN"
	case OpRead:
		return "READ"
	case OpStatfs:
		return "STATFS"
	case OpRelease:
		return "RELEASE"
	case OpFlush:
		return "FLUSH"
	case OpInit:
		return "INIT"
	case OpOpendir:
		return "OPENDIR"
	case OpReaddir:
		return "READDIR"
	case OpReleasedir:
		return "RELEASEDIR"
	case OpAccess:
		return "ACCESS"
	case OpInterrupt:
		return "INTERRUPT"
	case OpDestroy:
		return "DESTROY"
	}
	return fmt.Sprintf("op%d", uint32(op))
}
