// See the file LICENSE for copyright and licensing information.

package fuse

import "unsafe"

// buffer provides a mechanism for constructing a message from
// multiple segments.
type buffer []byte

// alloc allocates size bytes and returns a pointer to the new
// segment.
func (w *buffer) alloc(size uintptr) unsafe.Pointer {
	s := int(size)
	if len(*w)+s > cap(*w) {
		old := *w
		*w = make([]byte, len(*w), 2*cap(*w)+s)
		copy(*w, old)
	}
	l := len(*w)
	*w = (*w)[:l+s]
	return unsafe.Pointer(&(*w)[l])
}

// newBuffer returns a new buffer with space for an outHeader and
// extra bytes of payload.
func newBuffer(extra uintptr) buffer {
	const hdrSize = unsafe.Sizeof(outHeader{})
	buf := make(buffer, hdrSize, hdrSize+extra)
	return buf
}

// trim cuts the buffer back to the outHeader and size bytes of payload.
func (w buffer) trim(size uintptr) buffer {
	return w[:unsafe.Sizeof(outHeader{})+size]
}
