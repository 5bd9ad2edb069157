package doc

import "github.com/kurafs/clockfs/pkg/cli"

var ArchitectureCmd = &cli.Command{
	UsageLine: "architecture",
	Short:     "clockfs system architecture overview",
	Long: `
clockfs is a single process speaking the FUSE kernel protocol directly over
/dev/fuse, without libfuse.

    pkg/fuse      Mounting (mount(2) as root, fusermount otherwise), the
                  INIT handshake (protocol 7.8 through 7.12), decoding of
                  kernel requests into typed values, encoding of replies and
                  cache invalidation notifications.
    pkg/clockfs   The file system: an inode table holding the root
                  directory (inode 1) and the clock file (inode 2), the
                  request dispatcher, and the updater.
    pkg/log       Moded logging with per-file filters and trace points.
    pkg/cli       Command and help topic dispatch.

Requests are read and answered one at a time by the dispatcher. The updater
runs alongside it: every interval it stores a new rendering of the local
time, "HH:MM:SS:micros\n", as an immutable snapshot and then tells the kernel
to drop the clock file's cached attributes. Readers that race with
an update see either the old or the new snapshot, never a mix.

Kernels older than protocol 7.12 cannot be notified. The content is still
refreshed, but a reader may keep seeing a cached copy until the kernel's
attribute timeout (1s) expires.

The server stops when the kernel sends DESTROY or closes the device, which
happens on unmount.
`,
}
