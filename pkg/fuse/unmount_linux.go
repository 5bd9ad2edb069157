// See the file LICENSE for copyright and licensing information.

package fuse

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"
)

// Unmount tries to unmount the file system mounted at dir.
//
// The serving Conn sees a DestroyRequest or io.EOF once the kernel
// lets go of the mount.
func Unmount(dir string) error {
	if os.Geteuid() == 0 {
		if err := unix.Unmount(dir, 0); err != nil {
			return fmt.Errorf("fuse: umount %s: %v", dir, err)
		}
		return nil
	}

	bin, err := lookFusermount()
	if err != nil {
		return err
	}
	cmd := exec.Command(bin, "-u", dir)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("fuse: %s -u %s: %s", bin, dir, msg)
		}
		return fmt.Errorf("fuse: %s -u %s: %v", bin, dir, err)
	}
	return nil
}
