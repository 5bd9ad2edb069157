// See the file LICENSE for copyright and licensing information.

package fusetest

import (
	"encoding/binary"
)

var ne = binary.NativeEndian

func (k *Kernel) hasReadFlags() bool {
	return k.proto.GE(fuseProtocol79)
}

// Lookup asks for name in the directory parent.
func (k *Kernel) Lookup(parent uint64, name string) (Reply, error) {
	payload := append([]byte(name), 0)
	return k.Call(OpLookup, parent, payload)
}

// Getattr asks for the attributes of node.
func (k *Kernel) Getattr(node uint64) (Reply, error) {
	var payload []byte
	if k.hasReadFlags() {
		payload = make([]byte, 16)
	}
	return k.Call(OpGetattr, node, payload)
}

// Open opens node with the given open(2) flags.
func (k *Kernel) Open(node uint64, flags uint32) (Reply, error) {
	return k.Call(OpOpen, node, openIn(flags))
}

// Opendir opens the directory node.
func (k *Kernel) Opendir(node uint64) (Reply, error) {
	return k.Call(OpOpendir, node, openIn(0))
}

func openIn(flags uint32) []byte {
	payload := make([]byte, 8)
	ne.PutUint32(payload[0:], flags)
	return payload
}

// Read reads up to size bytes at off from the open handle fh of node.
func (k *Kernel) Read(node, fh uint64, off int64, size uint32) (Reply, error) {
	return k.Call(OpRead, node, k.readIn(fh, off, size))
}

// Readdir reads up to size bytes of node's listing starting at off.
func (k *Kernel) Readdir(node, fh uint64, off int64, size uint32) (Reply, error) {
	return k.Call(OpReaddir, node, k.readIn(fh, off, size))
}

func (k *Kernel) readIn(fh uint64, off int64, size uint32) []byte {
	n := 24
	if k.hasReadFlags() {
		n = 40
	}
	payload := make([]byte, n)
	ne.PutUint64(payload[0:], fh)
	ne.PutUint64(payload[8:], uint64(off))
	ne.PutUint32(payload[16:], size)
	return payload
}

// Release closes the handle fh of node.
func (k *Kernel) Release(node, fh uint64) (Reply, error) {
	return k.Call(OpRelease, node, releaseIn(fh))
}

// Releasedir closes the directory handle fh of node.
func (k *Kernel) Releasedir(node, fh uint64) (Reply, error) {
	return k.Call(OpReleasedir, node, releaseIn(fh))
}

func releaseIn(fh uint64) []byte {
	payload := make([]byte, 24)
	ne.PutUint64(payload[0:], fh)
	return payload
}

// Flush flushes the handle fh of node.
func (k *Kernel) Flush(node, fh uint64) (Reply, error) {
	payload := make([]byte, 24)
	ne.PutUint64(payload[0:], fh)
	return k.Call(OpFlush, node, payload)
}

// Access checks mask against node.
func (k *Kernel) Access(node uint64, mask uint32) (Reply, error) {
	payload := make([]byte, 8)
	ne.PutUint32(payload[0:], mask)
	return k.Call(OpAccess, node, payload)
}

// Statfs asks for file system statistics.
func (k *Kernel) Statfs() (Reply, error) {
	return k.Call(OpStatfs, 1, nil)
}

// Destroy tells the server the file system is going away.
func (k *Kernel) Destroy() (Reply, error) {
	return k.Call(OpDestroy, 0, nil)
}

// Forget drops n lookups of node. It gets no reply.
func (k *Kernel) Forget(node, n uint64) error {
	payload := make([]byte, 8)
	ne.PutUint64(payload[0:], n)
	_, err := k.Send(OpForget, node, payload)
	return err
}

// Interrupt asks the server to abandon the request with the given
// unique ID. It gets no reply.
func (k *Kernel) Interrupt(unique uint64) error {
	payload := make([]byte, 8)
	ne.PutUint64(payload[0:], unique)
	_, err := k.Send(OpInterrupt, 0, payload)
	return err
}
