// See the file LICENSE for copyright and licensing information.

package fuse

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// ErrNoFusermount is returned when neither fusermount nor fusermount3
// can be found and the process is not privileged enough to mount on
// its own.
var ErrNoFusermount = errors.New("fuse: fusermount/fusermount3 not found in PATH")

func lookFusermount() (string, error) {
	bin, err := exec.LookPath("fusermount")
	if err == nil {
		return bin, nil
	}
	if bin, err = exec.LookPath("fusermount3"); err == nil {
		return bin, nil
	}
	return "", ErrNoFusermount
}

func mount(dir string, conf *mountConfig) (*os.File, error) {
	if os.Geteuid() == 0 {
		return mountDirect(dir, conf)
	}
	return mountHelper(dir, conf)
}

// mountDirect mounts with mount(2), which needs CAP_SYS_ADMIN.
func mountDirect(dir string, conf *mountConfig) (*os.File, error) {
	dev, err := os.OpenFile("/dev/fuse", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("fuse: open /dev/fuse: %v", err)
	}

	source := conf.options["fsname"]
	if source == "" {
		source = "fuse"
	}
	fstype := "fuse"
	if st := conf.options["subtype"]; st != "" {
		fstype += "." + st
	}
	flags := uintptr(unix.MS_NOSUID | unix.MS_NODEV)
	if conf.has("ro") {
		flags |= unix.MS_RDONLY
	}

	data := fmt.Sprintf("fd=%d,rootmode=%o,user_id=%d,group_id=%d",
		dev.Fd(), syscall.S_IFDIR, os.Getuid(), os.Getgid())
	// allow_root is enforced by fusermount; a direct mount is owned by
	// root already.
	for _, opt := range []string{"allow_other", "default_permissions"} {
		if conf.has(opt) {
			data += "," + opt
		}
	}

	if err := unix.Mount(source, dir, fstype, flags, data); err != nil {
		dev.Close()
		return nil, fmt.Errorf("fuse: mount %s: %v", dir, err)
	}
	return dev, nil
}

// mountHelper runs the setuid fusermount helper, which mounts dir and
// hands the opened device back over a unix socket.
func mountHelper(dir string, conf *mountConfig) (*os.File, error) {
	bin, err := lookFusermount()
	if err != nil {
		return nil, err
	}

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("fuse: socketpair: %v", err)
	}
	writeFile := os.NewFile(uintptr(fds[0]), "fusermount-child-writes")
	defer writeFile.Close()
	readFile := os.NewFile(uintptr(fds[1]), "fusermount-parent-reads")
	defer readFile.Close()

	var args []string
	if opts := conf.getOptions(); opts != "" {
		args = append(args, "-o", opts)
	}
	args = append(args, "--", dir)
	cmd := exec.Command(bin, args...)
	cmd.Env = append(os.Environ(), "_FUSE_COMMFD=3")
	cmd.ExtraFiles = []*os.File{writeFile}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("fuse: %s: %v: %s", bin, err, strings.TrimSpace(stderr.String()))
	}

	c, err := net.FileConn(readFile)
	if err != nil {
		return nil, fmt.Errorf("fuse: FileConn from fusermount socket: %v", err)
	}
	defer c.Close()

	uc, ok := c.(*net.UnixConn)
	if !ok {
		return nil, fmt.Errorf("fuse: unexpected FileConn type; expected UnixConn, got %T", c)
	}

	buf := make([]byte, 32) // expect 1 byte
	oob := make([]byte, 32) // expect 24 bytes
	_, oobn, _, _, err := uc.ReadMsgUnix(buf, oob)
	if err != nil {
		return nil, fmt.Errorf("fuse: read from fusermount socket: %v", err)
	}
	scms, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return nil, fmt.Errorf("fuse: ParseSocketControlMessage: %v", err)
	}
	if len(scms) != 1 {
		return nil, fmt.Errorf("fuse: expected 1 SocketControlMessage; got scms = %#v", scms)
	}
	gotFds, err := unix.ParseUnixRights(&scms[0])
	if err != nil {
		return nil, fmt.Errorf("fuse: unix.ParseUnixRights: %v", err)
	}
	if len(gotFds) != 1 {
		return nil, fmt.Errorf("fuse: wanted 1 fd; got %#v", gotFds)
	}
	return os.NewFile(uintptr(gotFds[0]), "/dev/fuse"), nil
}
