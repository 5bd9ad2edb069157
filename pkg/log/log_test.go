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
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func TestSetGetGlobalPCMode(t *testing.T) {
	tp := fmt.Sprintf("%s:%d", "t.go", 42)
	SetTracePoint(tp)
	defer ResetTracePoint(tp)
	enabled := GetTracePoint(tp)
	if !enabled {
		t.Errorf("Expected tracepoint %s to be enabled", tp)
	}
}

func TestGetGlobalPCMode(t *testing.T) {
	tp := fmt.Sprintf("%s:%d", "t.go", 42)
	enabled := GetTracePoint(tp)
	if enabled {
		t.Errorf("Didn't expected tracepoint mode for %s to be enabled", tp)
	}
}

func TestInfoLog(t *testing.T) {
	SetGlobalLogMode(InfoMode)
	defer SetGlobalLogMode(DefaultMode)

	buffer := new(bytes.Buffer)
	logger := New(Writer(buffer))
	tests := []struct {
		log   func()
		regex string
	}{
		{func() { logger.Info("info") }, `^I.*log_test.go:\d+\] info\n$`},
		{func() { logger.Infof("infof") }, `^I.*\] infof\n$`},
		{func() { logger.Infof("%t %d %s", true, 1, "infof") }, `^I.*\] true 1 infof\n$`},
	}
	for _, tt := range tests {
		tt.log()
		match, err := regexp.Match(tt.regex, buffer.Bytes())
		if err != nil {
			t.Error(err)
		}
		if !match {
			t.Errorf("expected pattern: \"%s\", got: %s", tt.regex, buffer.String())
		}
		buffer.Reset()
	}
}

func TestDebugModeEnableDisable(t *testing.T) {
	SetGlobalLogMode(InfoMode)
	defer SetGlobalLogMode(DefaultMode)

	buffer := new(bytes.Buffer)
	logger := New(Writer(buffer))
	{
		logger.Debug("debug")
		logger.Debugf("%t %d %s", true, 1, "debugf")
		logger.Debugf("debugf")

		if buffer.Len() != 0 {
			t.Errorf("expected no output, got: %s", buffer.String())
		}
		buffer.Reset()
	}
	SetGlobalLogMode(DebugMode)
	{
		logger.Debug("debug")
		regex := "^D.*\\] debug"
		match, err := regexp.Match(regex, buffer.Bytes())
		if err != nil {
			t.Error(err)
		}
		if !match {
			t.Errorf("expected pattern: \"%s\", got: %s", regex, buffer.String())
		}
		buffer.Reset()
	}
}

func TestFileLogModeOverride(t *testing.T) {
	SetGlobalLogMode(ErrorMode)
	defer SetGlobalLogMode(DefaultMode)
	SetFileLogMode("log_test.go", DebugMode)
	defer ResetFileLogMode("log_test.go")

	buffer := new(bytes.Buffer)
	logger := New(Writer(buffer))

	logger.Debug("debug")
	if !strings.Contains(buffer.String(), "] debug") {
		t.Errorf("expected file override to let debug through, got: %q", buffer.String())
	}
	buffer.Reset()

	// The override replaces, not extends, the global mode for this file.
	logger.Error("error")
	if buffer.Len() != 0 {
		t.Errorf("expected error to be filtered for this file, got: %q", buffer.String())
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
		str  string
	}{
		{"info", InfoMode, "info"},
		{"warn|error", WarnMode | ErrorMode, "warn|error"},
		{"debug|info", InfoMode | DebugMode, "info|debug"},
		{"info|disabled", DisabledMode, "disabled"},
		{"disabled|warn", WarnMode, "warn"},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if err != nil {
			t.Errorf("ParseMode(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %v, expected %v", tt.in, got, tt.want)
		}
		if got.String() != tt.str {
			t.Errorf("Mode(%d).String() = %q, expected %q", got, got.String(), tt.str)
		}
	}

	for _, in := range []string{"", "verbose", "info|", "info||warn"} {
		if _, err := ParseMode(in); err == nil {
			t.Errorf("ParseMode(%q): expected error", in)
		}
	}
}

func TestHeaderBasePath(t *testing.T) {
	SetGlobalLogMode(InfoMode)
	defer SetGlobalLogMode(DefaultMode)

	file, _ := caller(0)
	buffer := new(bytes.Buffer)
	logger := New(Writer(buffer), Flags(Llongfile), BasePath(filepath.Dir(filepath.Dir(file))))
	logger.Info("x")
	if !strings.HasPrefix(buffer.String(), " log/log_test.go:") {
		t.Errorf("expected path relative to base, got: %q", buffer.String())
	}

	buffer.Reset()
	logger = New(Writer(buffer), Flags(Llongfile), BasePath("/nonexistent"))
	logger.Info("x")
	if !strings.HasPrefix(buffer.String(), " "+file+":") {
		t.Errorf("expected full path outside base, got: %q", buffer.String())
	}
}

// tracedInfo reports its own position, and logs through l if l is non-nil.
// The logging statement is two lines below the call to caller.
func tracedInfo(l *Logger) (file string, line int) {
	file, line = caller(0)
	if l != nil {
		l.Info()
	}
	return file, line
}

func TestEnableTracePoint(t *testing.T) {
	SetGlobalLogMode(DisabledMode)
	defer SetGlobalLogMode(DefaultMode)

	file, line := tracedInfo(nil)
	tp := fmt.Sprintf("%s:%d", filepath.Base(file), line+2)
	SetTracePoint(tp)
	defer ResetTracePoint(tp)
	if tpenabled := GetTracePoint(tp); !tpenabled {
		t.Errorf("Expected tracepoint %s to be enabled; found disabled", tp)
	}

	buffer := new(bytes.Buffer)
	logger := New(Writer(buffer))
	{
		tracedInfo(logger)
		if buffer.Len() == 0 {
			t.Error("Expected stack trace to be populated, found empty buffer instead")
		}

		line, err := buffer.ReadString(byte('\n'))
		if err != nil {
			t.Error(err)
		}

		goroutineRegex := "^goroutine [\\d]+ \\[running\\]:"
		match, err := regexp.Match(goroutineRegex, []byte(line))
		if err != nil {
			t.Error(err)
		}
		if !match {
			t.Errorf("expected pattern (first line): \"%s\", got: %s", goroutineRegex, line)
		}

		line, err = buffer.ReadString(byte('\n'))
		if err != nil {
			t.Error(err)
		}

		functionSignatureRegex := "^github.com/kurafs/clockfs/pkg/log.tracedInfo"
		match, err = regexp.Match(functionSignatureRegex, []byte(line))
		if err != nil {
			t.Error(err)
		}
		if !match {
			t.Errorf("expected pattern (second line): \"%s\", got: %s", functionSignatureRegex, line)
		}
	}
}

func TestRegistrySnapshots(t *testing.T) {
	var r registry[Mode]
	if _, ok := r.get("server.go"); ok {
		t.Errorf("empty registry reports an entry")
	}

	r.update(func(m map[string]Mode) { m["server.go"] = WarnMode })
	before := r.m.Load()
	r.update(func(m map[string]Mode) { m["updater.go"] = DebugMode })
	if _, ok := (*before)["updater.go"]; ok {
		t.Errorf("update modified a published snapshot")
	}

	r.update(func(m map[string]Mode) { delete(m, "server.go") })
	if _, ok := r.get("server.go"); ok {
		t.Errorf("deleted entry still present")
	}
	if m, ok := r.get("updater.go"); !ok || m != DebugMode {
		t.Errorf("got %v, %v; expected %v, true", m, ok, DebugMode)
	}
}
