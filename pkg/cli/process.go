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

package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

// Process is the entry point for CLI commands. User provided arguments are captured and processed
// through the defined commands, and the appropriate one (if any), is executed.
// As is structured at the time of writing, there's no root level command or flags. Given this when
// <program> is invoked without any arguments, the full usage is printed out instead.
//
// All CLI errors are printed out to os.Stderr and follow with os.Exit(2). Command execution errors
// are propagated to the caller. All remaining printed output is directed at os.Stdout.
//
// The abstract is used in generating structured help messages. Example:
//
//      $ <program> -h
//      <abstract>
//
//      Usage of <program>:
//          ...
//
func Process(abstract string, commands Commands) error {
	// We capture the program name and remaining arguments. The prints out the relative path of the
	// binary if that's how the command is invoke, but we don't account for this as the alternative
	// would mean asking the caller to pass in the program name.
	program, args := os.Args[0], os.Args[1:]

	exit, err := process(os.Stdout, os.Stderr, program, args, abstract, commands)
	if exit != 0 {
		os.Exit(exit)
	}
	return err
}

// process is Process without the process-global state. A non-zero exit status is returned for CLI
// usage errors, in which case the returned error is nil.
func process(stdout, stderr io.Writer, program string, args []string, abstract string,
	commands Commands) (exit int, err error) {
	// 	FlagSet outputs are discarded for composability with the rest of this package.
	for _, cmd := range commands {
		cmd.FlagSet.Init(cmd.Name(), flag.ContinueOnError)
		cmd.FlagSet.SetOutput(io.Discard)
	}

	// We fall back to printing out default usage when no commands are provided.
	if len(args) == 0 {
		printFullUsage(stdout, program, abstract, commands)
		return 0, nil
	}

	command := args[0]
	// We also provide an out of the box '<program> help' command that simply prints out default
	// usage.  '<program> -h' is a special allowance accounted for.
	if (command == "help" || command == "-h") && len(args) == 1 {
		printFullUsage(stdout, program, abstract, commands)
		return 0, nil
	}

	// If '<program> help cmd' is used, we ensure there's only one command provided.
	if command == "help" && len(args) > 2 {
		fmt.Fprintf(stderr, "Usage: %s help [command]\n", program)
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Too many arguments given.")
		return 2, nil // failed at 'go help'
	}

	// '<program> help' should also work with every other command (i.e. '<program> help cmd').
	if command == "help" && len(args) == 2 {
		cmd := args[1]
		if err := printCommandUsage(stdout, program, cmd, commands); err != nil {
			fmt.Fprintf(stderr, "Unknown help topic '%s'\n", cmd)
			fmt.Fprintln(stderr)
			fmt.Fprintf(stderr, "Run '%s help' for available topics.\n", program)
			return 2, nil // Failed at '<program> help cmd'.
		}
		return 0, nil
	}

	// A non-help command is executed, we look to find the one provided and if runnable, we run it.
	for _, cmd := range commands {
		if cmd.Name() != command || !cmd.Runnable() {
			continue
		}

		// If a custom CLI parse error is returned we can selectively handle that here, and
		// propagate everything else up above.
		err := cmd.Run(cmd, args[1:])
		var perr cmdParseError
		if !errors.As(err, &perr) {
			return 0, err
		}

		// We handle the flag error where help is requested as a special case as this is a valid
		// state, despite the flag.Parse error response. We also do this after cmd.Run as the flags
		// may have been defined there.
		if errors.Is(err, flag.ErrHelp) {
			printCommandHelp(stdout, program, cmd)
			return 0, nil
		}

		// We specifically first print out the flag package/parsing errors.
		printCommandParsingError(stderr, program, cmd, err)
		return 2, nil
	}

	fmt.Fprintf(stderr, "Unknown command '%s'\n", command)
	fmt.Fprintln(stderr)
	fmt.Fprintf(stderr, "Run '%s help' for available commands.\n", program)
	return 2, nil
}
