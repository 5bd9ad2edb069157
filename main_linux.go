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

package main

import (
	"os"

	"github.com/kurafs/clockfs/doc"
	"github.com/kurafs/clockfs/pkg/cli"

	clockserver "github.com/kurafs/clockfs/cmd/clock-server"
)

func main() {
	// We aggregate all the top-level commands (i.e. 'clockfs <command> ...')
	// as needed.
	var commands cli.Commands
	commands = append(commands, clockserver.ClockServerCmd)

	// We also include a documentation pseudo-command for the architecture.
	commands = append(commands, doc.ArchitectureCmd)

	abstract := "clockfs serves a file holding the current time over FUSE."
	if err := cli.Process(abstract, commands); err != nil {
		os.Exit(1)
	}
}
