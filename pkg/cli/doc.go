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

// Package cli allows the construction of structured command-line interfaces with sub-commands and
// help topics. This is very similar to the interface in git where the top-level program name (git)
// is preceded by a qualifier that determines what sub-command to execute
// (git {reflog,commit,cherry-pick}).
//
// Package cli explicitly avoid init time global hooks and has a minimal binary size footprint.
//
// Example (from kurafs/clockfs):
//
//      // We aggregate all the top-level commands, accessible via 'clockfs <command> ...'.
//      var commands cli.Commands
//      commands = append(commands, clockserver.ClockServerCmd)
//
//      // We also include a documentation pseudo-command for the architecture.
//      commands = append(commands, doc.ArchitectureCmd)
//
//      // We define the top level CLI blurb here.
//      abstract := "clockfs serves a file holding the current time over FUSE."
//      if err := cli.Process(abstract, commands); err != nil {
//      	os.Exit(1)
//      }
//
// This generates the following top-level behaviour:
//
//      $ clockfs {,-h,help}
//      clockfs serves a file holding the current time over FUSE.
//
//      Usage:
//
//          clockfs command [arguments]
//
//      The commands are:
//
//              clock-server           mount the clock file system and serve it
//
//      Use 'clockfs help [command]' for more information about a command.
//
//      Additional help topics:
//
//              architecture           clockfs architecture overview
//
//      Use "clockfs help [topic]" for more information about that topic.
//
// Using help for a listed command displays to following:
//
//      $ clockfs help clock-server
//      Usage: clockfs clock-server [-config file] [-unmount] [logger flags] <mount-point>
//
//      Clock server detailed overview.
//
// Doing the same for an additional help topic, we get the following:
//
//      $ clockfs help architecture
//      Topic: clockfs architecture overview
//
//      Detailed description about the system architecture.
//
// Individual commands also have their own '-h' switches for additional command details.
//
//      $ clockfs clock-server -h
//      Usage:
//
//          clockfs clock-server [-config file] [-unmount] [logger flags] <mount-point>
//
//          -config string
//              YAML file to read mount and update settings from
//          -unmount
//              Unmount the file system at the specified directory
//
// Run functions parse their own flags and wrap parse failures with CmdParseError, which Process
// reports along with the command's usage.
package cli
