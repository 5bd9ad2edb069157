// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in licenses/BSD-golang.txt.

// Portions of this file are additionally subject to the following
// license and copyright.
//
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
	"io"
	"path/filepath"
	"runtime"
)

// Flag is a bit set determining the header written before each log line.
type Flag int

// These flags define which text to prefix to each log entry generated by the
// Logger. Bits are or'ed together to control what's printed. With the
// exception of Lmode, the ordering and semantics follow the standard library
// 'log' package.
//
//   I180419 06:33:04.606396 fname.go:42] message
const (
	Lmode         Flag = 1 << iota // the log mode: I, W, E, F or D
	Ldate                          // the date in the local time zone: 180419
	Ltime                          // the time in the local time zone: 06:33:04
	Lmicroseconds                  // microsecond resolution: 06:33:04.606396. assumes Ltime.
	Llongfile                      // full file name and line number: /a/b/c/d.go:23
	Lshortfile                     // final file name element and line number: d.go:23. overrides Llongfile
	LUTC                           // if Ldate or Ltime is set, use UTC rather than the local time zone

	LstdFlags = Lmode | Ldate | Lmicroseconds | Lshortfile // initial values for the standard logger
)

type option func(l *Logger)

// Writer configures the logger to write out to w.
func Writer(w io.Writer) option {
	return func(l *Logger) {
		l.w = w
	}
}

// Flags configures the header format of the logger.
func Flags(f Flag) option {
	return func(l *Logger) {
		l.flag = f
	}
}

// SkipBasePath strips the repository root from file names printed under
// Llongfile, so that cmd/clock-server/run.go:42 is printed instead of the
// fully specified path on the build machine.
func SkipBasePath() option {
	return func(l *Logger) {
		_, file, _, ok := runtime.Caller(0)
		if !ok {
			return
		}
		// This file lives at <root>/pkg/log/options.go.
		l.basePath = filepath.Dir(filepath.Dir(filepath.Dir(file)))
	}
}

// BasePath strips the given prefix from file names printed under Llongfile.
func BasePath(path string) option {
	return func(l *Logger) {
		l.basePath = filepath.Clean(path)
	}
}
