// Copyright 2018 The Kura Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package clockserver

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/kurafs/clockfs/pkg/cli"
	"github.com/kurafs/clockfs/pkg/clockfs"
	"github.com/kurafs/clockfs/pkg/fuse"
	"github.com/kurafs/clockfs/pkg/log"
)

var ClockServerCmd = &cli.Command{
	Run:       clockServerCmdRun,
	UsageLine: "clock-server [-config file] [-fsname name] [-subtype type] [-allow-other | -allow-root] [-default-permissions] [-max-readahead n] [-file-name name] [-interval d] [-unmount] [logger flags] <mount-point>",
	Short:     "mount a read-only file system holding a file with the current time",
	Long: `
Clock server mounts a single-directory file system at the given mount point.
The directory holds one read-only file, "clock" by default, whose content is
the current local time as "HH:MM:SS:micros\n". The content is refreshed every
-interval, and the kernel is told to drop its cached copy after each refresh
so that readers see the new time.

Settings can also be given in a YAML file with -config; explicitly set flags
take precedence over the file. The server runs until the file system is
unmounted, or until it receives SIGINT or SIGTERM, in which case it unmounts
the file system itself. Use -unmount to unmount a file system left mounted by
a server that went away.
    `,
}

func clockServerCmdRun(cmd *cli.Command, args []string) error {
	var (
		configFlag  string
		unmountFlag bool
		cfgFlags    = defaultConfig()

		logDirFlag         string
		suppressStderrFlag bool
		logModeFlag        logMode
		logFilterFlag      logFilter
		backtracePointFlag backtracePoints
	)

	cmd.FlagSet.StringVar(&configFlag, "config", "",
		"Read settings from the specified YAML file")
	cmd.FlagSet.BoolVar(&unmountFlag, "unmount", false,
		"Unmount filesystem at specified directory")
	registerFlags(&cmd.FlagSet, &cfgFlags)
	cmd.FlagSet.StringVar(&logDirFlag, "log-dir", "",
		"Write log files to the specified directory")
	cmd.FlagSet.BoolVar(&suppressStderrFlag, "suppress-stderr", false,
		"Suppress standard error logging")
	cmd.FlagSet.Var(&logModeFlag, "log-mode",
		"Log mode for logs emitted globally (can be overridden using -log-filter)")
	cmd.FlagSet.Var(&logFilterFlag, "log-filter",
		"Comma-separated list of pattern:level settings for file-filtered logging")
	cmd.FlagSet.Var(&backtracePointFlag, "log-backtrace-at",
		"Comma-separated list of filename:N settings to emit backtraces")

	if err := cmd.FlagSet.Parse(args); err != nil {
		return cli.CmdParseError(err)
	}

	if cmd.FlagSet.NArg() > 1 {
		return cli.CmdParseError(
			fmt.Errorf("unrecognized arguments: %v", cmd.FlagSet.Args()[1:]))
	}
	if cmd.FlagSet.NArg() == 0 {
		return cli.CmdParseError(fmt.Errorf("unspecified mount-point"))
	}
	mountPoint := cmd.FlagSet.Arg(0)

	cfg := defaultConfig()
	if configFlag != "" {
		var err error
		if cfg, err = loadConfig(configFlag); err != nil {
			return cli.CmdParseError(err)
		}
	}
	if err := cfg.override(&cmd.FlagSet); err != nil {
		return cli.CmdParseError(err)
	}
	if err := cfg.validate(); err != nil {
		return cli.CmdParseError(err)
	}

	if logModeFlag.set {
		log.SetGlobalLogMode(logModeFlag.m)
	}
	for _, flm := range logFilterFlag {
		log.SetFileLogMode(flm.fname, flm.fmode)
	}
	for _, tp := range backtracePointFlag {
		log.SetTracePoint(tp)
	}

	writer := io.Discard
	if logDirFlag != "" {
		writer = log.LogRotationWriter(logDirFlag, 50<<20 /* 50 MiB */)
	}
	if !suppressStderrFlag {
		writer = log.MultiWriter(writer, os.Stderr)
	}
	writer = log.SynchronizedWriter(writer)
	logf := log.Ldate | log.Ltime | log.Lmicroseconds | log.Llongfile | log.LUTC | log.Lmode
	logger := log.New(log.Writer(writer), log.Flags(logf), log.SkipBasePath())

	if log.GetGlobalLogMode()&log.DebugMode != log.DisabledMode {
		fuse.Debug = func(msg interface{}) { logger.Debug(msg) }
	}

	if unmountFlag {
		if err := unmount(logger, mountPoint); err != nil {
			logger.Error(err.Error())
			return err
		}
		return nil
	}

	conn, err := mount(logger, mountPoint, cfg.mountOptions()...)
	if err != nil {
		logger.Error(err.Error())
		return err
	}
	defer conn.Close()

	server := clockfs.New(clockfs.Options{
		FileName: cfg.FileName,
		Interval: cfg.Interval,
		Logger:   logger,
	})

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	served := make(chan struct{})
	defer close(served)
	go func() {
		select {
		case sig := <-sigs:
			logger.Infof("received %v, unmounting %s", sig, mountPoint)
			server.Shutdown()
			if err := unmount(logger, mountPoint); err != nil {
				logger.Error(err.Error())
			}
		case <-served:
		}
	}()

	if err := server.Serve(conn); err != nil {
		logger.Error(err.Error())
		return err
	}
	logger.Infof("file system at %s is gone, exiting", mountPoint)
	return nil
}

func unmount(logger *log.Logger, mountPoint string) error {
	if err := fuse.Unmount(mountPoint); err != nil {
		return err
	}
	logger.Infof("unmounted point: %s", mountPoint)
	return nil
}

func mount(logger *log.Logger, mountPoint string, options ...fuse.MountOption) (*fuse.Conn, error) {
	conn, err := fuse.Mount(mountPoint, options...)
	if err != nil {
		return nil, err
	}

	logger.Infof("mounted point: %s", mountPoint)
	return conn, nil
}
