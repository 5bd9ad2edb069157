// See the file LICENSE for copyright and licensing information.

package fusetest

import (
	"fmt"
	"time"

	"github.com/kurafs/clockfs/pkg/fuse"
)

var fuseProtocol79 = fuse.Protocol{Major: 7, Minor: 9}

const (
	attrSize       = 88
	attrCompatSize = 80 // before 7.9 there is no blksize
)

// Attr is struct fuse_attr as the kernel decodes it.
type Attr struct {
	Ino       uint64
	Size      uint64
	Blocks    uint64
	Atime     uint64
	Mtime     uint64
	Ctime     uint64
	AtimeNsec uint32
	MtimeNsec uint32
	CtimeNsec uint32
	Mode      uint32
	Nlink     uint32
	Uid       uint32
	Gid       uint32
	Rdev      uint32
	Blksize   uint32
}

func parseAttr(b []byte) (Attr, error) {
	if len(b) < attrCompatSize {
		return Attr{}, fmt.Errorf("fusetest: attr too short: %d bytes", len(b))
	}
	a := Attr{
		Ino:       ne.Uint64(b[0:]),
		Size:      ne.Uint64(b[8:]),
		Blocks:    ne.Uint64(b[16:]),
		Atime:     ne.Uint64(b[24:]),
		Mtime:     ne.Uint64(b[32:]),
		Ctime:     ne.Uint64(b[40:]),
		AtimeNsec: ne.Uint32(b[48:]),
		MtimeNsec: ne.Uint32(b[52:]),
		CtimeNsec: ne.Uint32(b[56:]),
		Mode:      ne.Uint32(b[60:]),
		Nlink:     ne.Uint32(b[64:]),
		Uid:       ne.Uint32(b[68:]),
		Gid:       ne.Uint32(b[72:]),
		Rdev:      ne.Uint32(b[76:]),
	}
	if len(b) >= attrSize {
		a.Blksize = ne.Uint32(b[80:])
	}
	return a, nil
}

func duration(sec uint64, nsec uint32) time.Duration {
	return time.Duration(sec)*time.Second + time.Duration(nsec)
}

// AttrOut is the reply to GETATTR.
type AttrOut struct {
	Valid time.Duration
	Attr  Attr
}

// ParseAttrOut decodes a GETATTR reply payload.
func ParseAttrOut(b []byte) (AttrOut, error) {
	if len(b) < 16 {
		return AttrOut{}, fmt.Errorf("fusetest: attr_out too short: %d bytes", len(b))
	}
	a, err := parseAttr(b[16:])
	if err != nil {
		return AttrOut{}, err
	}
	return AttrOut{
		Valid: duration(ne.Uint64(b[0:]), ne.Uint32(b[8:])),
		Attr:  a,
	}, nil
}

// EntryOut is the reply to LOOKUP.
type EntryOut struct {
	Nodeid     uint64
	Generation uint64
	EntryValid time.Duration
	AttrValid  time.Duration
	Attr       Attr
}

// ParseEntryOut decodes a LOOKUP reply payload.
func ParseEntryOut(b []byte) (EntryOut, error) {
	if len(b) < 40 {
		return EntryOut{}, fmt.Errorf("fusetest: entry_out too short: %d bytes", len(b))
	}
	a, err := parseAttr(b[40:])
	if err != nil {
		return EntryOut{}, err
	}
	return EntryOut{
		Nodeid:     ne.Uint64(b[0:]),
		Generation: ne.Uint64(b[8:]),
		EntryValid: duration(ne.Uint64(b[16:]), ne.Uint32(b[32:])),
		AttrValid:  duration(ne.Uint64(b[24:]), ne.Uint32(b[36:])),
		Attr:       a,
	}, nil
}

// OpenOut is the reply to OPEN and OPENDIR.
type OpenOut struct {
	Fh    uint64
	Flags uint32
}

// ParseOpenOut decodes an OPEN reply payload.
func ParseOpenOut(b []byte) (OpenOut, error) {
	if len(b) < 16 {
		return OpenOut{}, fmt.Errorf("fusetest: open_out too short: %d bytes", len(b))
	}
	return OpenOut{Fh: ne.Uint64(b[0:]), Flags: ne.Uint32(b[8:])}, nil
}

// StatfsOut is the reply to STATFS.
type StatfsOut struct {
	Blocks, Bfree, Bavail, Files, Ffree uint64
	Bsize, Namelen, Frsize              uint32
}

// ParseStatfsOut decodes a STATFS reply payload.
func ParseStatfsOut(b []byte) (StatfsOut, error) {
	if len(b) < 80 {
		return StatfsOut{}, fmt.Errorf("fusetest: statfs_out too short: %d bytes", len(b))
	}
	return StatfsOut{
		Blocks:  ne.Uint64(b[0:]),
		Bfree:   ne.Uint64(b[8:]),
		Bavail:  ne.Uint64(b[16:]),
		Files:   ne.Uint64(b[24:]),
		Ffree:   ne.Uint64(b[32:]),
		Bsize:   ne.Uint32(b[40:]),
		Namelen: ne.Uint32(b[44:]),
		Frsize:  ne.Uint32(b[48:]),
	}, nil
}

// InitOut is the reply to INIT.
type InitOut struct {
	Major, Minor uint32
	MaxReadahead uint32
	Flags        uint32
	MaxWrite     uint32
}

// ParseInitOut decodes an INIT reply payload.
func ParseInitOut(b []byte) (InitOut, error) {
	if len(b) < 24 {
		return InitOut{}, fmt.Errorf("fusetest: init_out too short: %d bytes", len(b))
	}
	return InitOut{
		Major:        ne.Uint32(b[0:]),
		Minor:        ne.Uint32(b[4:]),
		MaxReadahead: ne.Uint32(b[8:]),
		Flags:        ne.Uint32(b[12:]),
		MaxWrite:     ne.Uint32(b[20:]),
	}, nil
}

// A Dirent is one decoded struct fuse_dirent.
type Dirent struct {
	Ino  uint64
	Off  uint64
	Type uint32
	Name string
}

// ParseDirents decodes a READDIR reply payload. It fails on a record
// that runs past the end of b.
func ParseDirents(b []byte) ([]Dirent, error) {
	var dirents []Dirent
	for len(b) > 0 {
		if len(b) < 24 {
			return dirents, fmt.Errorf("fusetest: truncated dirent header: %d bytes", len(b))
		}
		namelen := int(ne.Uint32(b[16:]))
		if 24+namelen > len(b) {
			return dirents, fmt.Errorf("fusetest: truncated dirent name: want %d have %d", namelen, len(b)-24)
		}
		dirents = append(dirents, Dirent{
			Ino:  ne.Uint64(b[0:]),
			Off:  ne.Uint64(b[8:]),
			Type: ne.Uint32(b[20:]),
			Name: string(b[24 : 24+namelen]),
		})
		rec := (24 + namelen + 7) &^ 7
		if rec > len(b) {
			rec = len(b)
		}
		b = b[rec:]
	}
	return dirents, nil
}

// InvalInode is the payload of FUSE_NOTIFY_INVAL_INODE.
type InvalInode struct {
	Ino uint64
	Off int64
	Len int64
}

// ParseInvalInode decodes an inode invalidation notification.
func ParseInvalInode(n Notification) (InvalInode, error) {
	if n.Code != NotifyInvalInode {
		return InvalInode{}, fmt.Errorf("fusetest: notification code %d is not INVAL_INODE", n.Code)
	}
	if len(n.Data) < 24 {
		return InvalInode{}, fmt.Errorf("fusetest: inval_inode too short: %d bytes", len(n.Data))
	}
	return InvalInode{
		Ino: ne.Uint64(n.Data[0:]),
		Off: int64(ne.Uint64(n.Data[8:])),
		Len: int64(ne.Uint64(n.Data[16:])),
	}, nil
}
