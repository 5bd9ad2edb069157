// See the file LICENSE for copyright and licensing information.

package fuse

import (
	"encoding/binary"
	"os"
	"testing"
)

func TestDirentSize(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"", 24},
		{".", 32},
		{"..", 32},
		{"clock", 32},
		{"abcdefgh", 32},
		{"abcdefghi", 40},
	}
	for _, tt := range tests {
		if got := DirentSize(tt.name); got != tt.want {
			t.Errorf("DirentSize(%q) = %d, expected %d", tt.name, got, tt.want)
		}
	}
}

func TestAppendDirent(t *testing.T) {
	var buf []byte
	buf = AppendDirent(buf, Dirent{Inode: 1, Type: DT_Dir, Name: "."})
	buf = AppendDirent(buf, Dirent{Inode: 2, Type: DT_File, Name: "clock"})

	if len(buf) != 64 {
		t.Fatalf("expected 64 bytes, got %d", len(buf))
	}

	ne := binary.NativeEndian
	records := []struct {
		at   int
		ino  uint64
		off  uint64
		typ  DirentType
		name string
	}{
		{0, 1, 32, DT_Dir, "."},
		{32, 2, 64, DT_File, "clock"},
	}
	for _, r := range records {
		rec := buf[r.at:]
		if ino := ne.Uint64(rec[0:]); ino != r.ino {
			t.Errorf("%q: ino = %d, expected %d", r.name, ino, r.ino)
		}
		if off := ne.Uint64(rec[8:]); off != r.off {
			t.Errorf("%q: off = %d, expected %d", r.name, off, r.off)
		}
		if n := ne.Uint32(rec[16:]); int(n) != len(r.name) {
			t.Errorf("%q: namelen = %d, expected %d", r.name, n, len(r.name))
		}
		if typ := DirentType(ne.Uint32(rec[20:])); typ != r.typ {
			t.Errorf("%q: type = %v, expected %v", r.name, typ, r.typ)
		}
		if name := string(rec[24 : 24+len(r.name)]); name != r.name {
			t.Errorf("name = %q, expected %q", name, r.name)
		}
		for i := 24 + len(r.name); i < DirentSize(r.name); i++ {
			if rec[i] != 0 {
				t.Errorf("%q: padding byte %d = %#x, expected 0", r.name, i, rec[i])
			}
		}
	}
}

func TestAppendDirentPreservesPrefix(t *testing.T) {
	prefix := AppendDirent(nil, Dirent{Inode: 1, Name: "."})
	saved := append([]byte(nil), prefix...)
	buf := AppendDirent(prefix, Dirent{Inode: 1, Name: ".."})
	if string(buf[:len(saved)]) != string(saved) {
		t.Errorf("earlier record changed after append")
	}
}

func TestDirentTypeOf(t *testing.T) {
	tests := []struct {
		mode os.FileMode
		want DirentType
	}{
		{os.ModeDir | 0755, DT_Dir},
		{0444, DT_File},
		{os.ModeSymlink | 0777, DT_Link},
		{os.ModeNamedPipe, DT_FIFO},
		{os.ModeSocket, DT_Socket},
		{os.ModeDevice | os.ModeCharDevice, DT_Char},
		{os.ModeDevice, DT_Block},
	}
	for _, tt := range tests {
		if got := DirentTypeOf(tt.mode); got != tt.want {
			t.Errorf("DirentTypeOf(%v) = %v, expected %v", tt.mode, got, tt.want)
		}
	}
}

func TestOpenFlagsAccessMode(t *testing.T) {
	if fl := OpenFlags(os.O_RDONLY); !fl.IsReadOnly() || fl.IsWriteOnly() || fl.IsReadWrite() {
		t.Errorf("O_RDONLY: unexpected access mode %v", fl)
	}
	if fl := OpenFlags(os.O_WRONLY | os.O_APPEND); fl.IsReadOnly() || !fl.IsWriteOnly() {
		t.Errorf("O_WRONLY|O_APPEND: unexpected access mode %v", fl)
	}
	if fl := OpenFlags(os.O_RDWR); fl.IsReadOnly() || !fl.IsReadWrite() {
		t.Errorf("O_RDWR: unexpected access mode %v", fl)
	}
}

func TestMountOptions(t *testing.T) {
	conf, err := newMountConfig([]MountOption{
		FSName("clock"),
		Subtype("clockfs"),
		ReadOnly(),
		AllowOther(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := conf.getOptions(), "allow_other,fsname=clock,ro,subtype=clockfs"; got != want {
		t.Errorf("getOptions() = %q, expected %q", got, want)
	}

	conf, err = newMountConfig([]MountOption{AllowRoot(), DefaultPermissions(), MaxReadahead(4096)})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := conf.getOptions(), "allow_root,default_permissions"; got != want {
		t.Errorf("getOptions() = %q, expected %q", got, want)
	}
	if conf.maxReadahead != 4096 {
		t.Errorf("max readahead %d, expected 4096", conf.maxReadahead)
	}

	if _, err := newMountConfig([]MountOption{AllowOther(), AllowRoot()}); err != ErrCannotCombineAllowOtherAndAllowRoot {
		t.Errorf("expected %v, got %v", ErrCannotCombineAllowOtherAndAllowRoot, err)
	}

	conf, err = newMountConfig([]MountOption{FSName(`a,b\c`)})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := conf.getOptions(), `fsname=a\,b\\c`; got != want {
		t.Errorf("getOptions() = %q, expected %q", got, want)
	}
}
