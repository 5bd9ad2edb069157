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
	"regexp"
	"strings"

	"github.com/kurafs/clockfs/pkg/log"
)

type logMode struct {
	m   log.Mode
	set bool
}

func (l logMode) String() string {
	if !l.set {
		return log.DefaultMode.String()
	}
	return l.m.String()
}

func (l *logMode) Set(value string) error {
	m, err := log.ParseMode(value)
	if err != nil {
		return err
	}
	l.m, l.set = m, true
	return nil
}

type fileLogMode struct {
	fname string
	fmode log.Mode
}

type logFilter []fileLogMode

var (
	fileNameRegex   = regexp.MustCompile(`^[\w-]+\.go$`)
	lineNumberRegex = regexp.MustCompile(`^\d+$`)
)

func (l logFilter) String() string {
	parts := make([]string, len(l))
	for i, f := range l {
		parts[i] = fmt.Sprintf("%s:%s", f.fname, f.fmode)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Set parses a comma-separated list of fname.go:mode entries, for example
// "updater.go:debug,server.go:warn|error".
func (l *logFilter) Set(value string) error {
	for _, entry := range strings.Split(value, ",") {
		f := strings.Split(entry, ":")
		if len(f) != 2 {
			return fmt.Errorf("improperly formatted filter: %q, expected fname.go:mode", entry)
		}

		fname, mode := f[0], f[1]
		if !fileNameRegex.MatchString(fname) {
			return fmt.Errorf("expected filename %q to match the regex %q", fname, fileNameRegex)
		}
		fmode, err := log.ParseMode(mode)
		if err != nil {
			return err
		}
		*l = append(*l, fileLogMode{fname: fname, fmode: fmode})
	}
	return nil
}

type backtracePoints []string

func (l *backtracePoints) String() string {
	return fmt.Sprint(*l)
}

// Set parses a comma-separated list of fname.go:line entries.
func (l *backtracePoints) Set(value string) error {
	for _, entry := range strings.Split(value, ",") {
		f := strings.Split(entry, ":")
		if len(f) != 2 {
			return fmt.Errorf("improperly formatted trace point: %q, expected fname.go:line", entry)
		}

		fname, lnumber := f[0], f[1]
		if !fileNameRegex.MatchString(fname) {
			return fmt.Errorf("expected filename %q to match the regex %q", fname, fileNameRegex)
		}
		if !lineNumberRegex.MatchString(lnumber) {
			return fmt.Errorf("expected line number %q to match the regex %q", lnumber, lineNumberRegex)
		}
		*l = append(*l, fmt.Sprintf("%s:%s", fname, lnumber))
	}
	return nil
}
