// Copyright 2018 Irfan Sharif.
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

package log

import (
	"fmt"
	"strings"
)

// Mode is a bit set of log levels. A statement logged at some mode is only
// written out if that mode is part of the global mode, or of the mode set for
// the statement's file (see SetFileLogMode), which takes precedence.
type Mode int

const (
	InfoMode Mode = 1 << iota
	WarnMode
	ErrorMode
	DebugMode

	// The zero-value of DisableMode can also be used to check if modes
	// intersect, i.e.  (lmode&gmode) != DisabledMode checks if the local
	// logger mode is filtered through by the global mode.
	DisabledMode = 0
	DefaultMode  = InfoMode | WarnMode | ErrorMode
)

var modeNames = []struct {
	m    Mode
	name string
}{
	{InfoMode, "info"},
	{WarnMode, "warn"},
	{ErrorMode, "error"},
	{DebugMode, "debug"},
}

// ParseMode parses a '|' separated list of mode names, for example
// "info|warn|error". The name "disabled" resets whatever precedes it.
func ParseMode(value string) (Mode, error) {
	var m Mode
	for _, name := range strings.Split(value, "|") {
		if name == "disabled" {
			m = DisabledMode
			continue
		}
		found := false
		for _, mn := range modeNames {
			if mn.name == name {
				m |= mn.m
				found = true
				break
			}
		}
		if !found {
			return DisabledMode, fmt.Errorf("unrecognized mode: %q", name)
		}
	}
	return m, nil
}

// String returns the '|' separated names of the modes in m, in the form
// accepted by ParseMode.
func (m Mode) String() string {
	if m == DisabledMode {
		return "disabled"
	}
	var names []string
	for _, mn := range modeNames {
		if m&mn.m != DisabledMode {
			names = append(names, mn.name)
		}
	}
	return strings.Join(names, "|")
}

func (m Mode) byte() byte {
	switch m {
	case InfoMode:
		return 'I'
	case WarnMode:
		return 'W'
	case ErrorMode:
		return 'E'
	case DebugMode:
		return 'D'
	default:
		return '?'
	}
}
