// See the file LICENSE for copyright and licensing information.

// Adapted from Plan 9 from User Space's src/cmd/9pfuse/fuse.c,
// which carries this notice:
//
// The files in this directory are subject to the following license.
//
// The author of this software is Russ Cox.
//
//         Copyright (c) 2006 Russ Cox
//
// Permission to use, copy, modify, and distribute this software for any
// purpose without fee is hereby granted, provided that this entire notice
// is included in all copies of any software which is or includes a copy
// or modification of this software and in all copies of the supporting
// documentation for such software.
//
// THIS SOFTWARE IS BEING PROVIDED "AS IS", WITHOUT ANY EXPRESS OR IMPLIED
// WARRANTY.  IN PARTICULAR, THE AUTHOR MAKES NO REPRESENTATION OR WARRANTY
// OF ANY KIND CONCERNING THE MERCHANTABILITY OF THIS SOFTWARE OR ITS
// FITNESS FOR ANY PARTICULAR PURPOSE.

// Package fuse speaks the low-level FUSE message protocol on Linux.
//
// A file system server reads requests from a Conn using ReadRequest and
// answers each with the Respond method of its concrete type, or with
// RespondError. Requests of a kind this package does not decode arrive
// as a bare *Header and should be answered with ENOSYS.
//
// Only the read side of the protocol is decoded: lookup, getattr,
// open, read, readdir, statfs, access, release, flush, forget,
// interrupt and destroy. That covers synthesized read-only trees.
//
// Mounting
//
// Mount opens /dev/fuse and mounts it directly when running as root,
// and otherwise asks the setuid fusermount helper for a descriptor.
// Either way the INIT handshake has been answered by the time Mount
// returns. NewConn runs the same handshake over a descriptor obtained
// some other way.
//
// Errors
//
// The FUSE interface can only communicate POSIX errno error numbers to
// file system clients, the message is not visible to them. An error
// passed to RespondError can implement ErrorNumber to control the
// errno returned. Without ErrorNumber, a generic errno (EIO) is
// returned.
//
// Notifications
//
// Servers whose content changes behind the kernel's back call
// InvalidateNode to drop cached pages and attributes. It needs
// protocol 7.12; on older kernels it returns ENOSYS.
//
// Debugging
//
// Every decoded request, response and notification is passed to the
// Debug hook, which discards them by default.
package fuse
