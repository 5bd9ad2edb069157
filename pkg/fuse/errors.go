// See the file LICENSE for copyright and licensing information.

package fuse

import (
	"errors"
	"fmt"
)

// OldVersionError is returned by Mount and NewConn when the kernel
// speaks a protocol older than the oldest this package implements.
type OldVersionError struct {
	Kernel     Protocol
	LibraryMin Protocol
}

func (e *OldVersionError) Error() string {
	return fmt.Sprintf("kernel FUSE version is too old: %v < %v", e.Kernel, e.LibraryMin)
}

// ErrClosedWithoutInit is returned when the device reaches EOF before
// the kernel sent its INIT request.
var ErrClosedWithoutInit = errors.New("fuse connection closed without init")

type bugKernelWriteError struct {
	Error string
	Stack string
}

func (b bugKernelWriteError) String() string {
	return fmt.Sprintf("kernel write error: error=%q stack=\n%s", b.Error, b.Stack)
}

// safe to call even with nil error
func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

type notCachedError struct{}

func (notCachedError) Error() string {
	return "node not cached"
}

var _ ErrorNumber = notCachedError{}

func (notCachedError) Errno() Errno {
	// Behave just like if the original syscall.ENOENT had been passed
	// straight through.
	return ENOENT
}

// ErrNotCached is returned by the Invalidate methods when the kernel
// holds nothing for the node or entry. It only means there was nothing
// to drop.
var ErrNotCached = notCachedError{}
