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
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDecodeConfig(t *testing.T) {
	c := defaultConfig()
	doc := `
fsname: tick
allow-other: true
interval: 2s
`
	if err := decodeConfig(strings.NewReader(doc), &c); err != nil {
		t.Fatal(err)
	}
	expected := Config{
		FSName:     "tick",
		Subtype:    "clockfs",
		AllowOther: true,
		FileName:   "clock",
		Interval:   2 * time.Second,
	}
	if c != expected {
		t.Errorf("got %+v, expected %+v", c, expected)
	}
}

func TestDecodeConfigEmpty(t *testing.T) {
	c := defaultConfig()
	if err := decodeConfig(strings.NewReader(""), &c); err != nil {
		t.Fatal(err)
	}
	if c != defaultConfig() {
		t.Errorf("empty document changed the config to %+v", c)
	}
}

func TestDecodeConfigErrors(t *testing.T) {
	for _, doc := range []string{
		"intervall: 1s\n",
		"interval: soon\n",
		"allow-other: [1]\n",
		"max-readahead: -1\n",
	} {
		c := defaultConfig()
		if err := decodeConfig(strings.NewReader(doc), &c); err == nil {
			t.Errorf("expected an error decoding %q", doc)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clockfs.yaml")
	if err := os.WriteFile(path, []byte("file-name: now\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.FileName != "now" || c.Interval != 250*time.Millisecond {
		t.Errorf("unexpected config %+v", c)
	}

	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected an error for a missing file")
	}
}

func TestConfigFlagsOverride(t *testing.T) {
	flags := defaultConfig()
	fs := flag.NewFlagSet("clock-server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	registerFlags(fs, &flags)
	args := []string{"-interval", "5s", "-allow-other=false", "-default-permissions", "-max-readahead", "4096"}
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}

	c := Config{FSName: "file", Subtype: "file", AllowOther: true, FileName: "file", Interval: time.Minute}
	if err := c.override(fs); err != nil {
		t.Fatal(err)
	}
	expected := Config{
		FSName:             "file",
		Subtype:            "file",
		DefaultPermissions: true,
		MaxReadahead:       4096,
		FileName:           "file",
		Interval:           5 * time.Second,
	}
	if c != expected {
		t.Errorf("got %+v, expected %+v", c, expected)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		mutate func(*Config)
		ok     bool
	}{
		{func(*Config) {}, true},
		{func(c *Config) { c.Subtype = "" }, true},
		{func(c *Config) { c.Interval = 0 }, false},
		{func(c *Config) { c.Interval = -time.Second }, false},
		{func(c *Config) { c.FileName = "" }, false},
		{func(c *Config) { c.FileName = ".." }, false},
		{func(c *Config) { c.FileName = "a/b" }, false},
		{func(c *Config) { c.FSName = "" }, false},
		{func(c *Config) { c.AllowRoot = true }, true},
		{func(c *Config) { c.AllowOther, c.AllowRoot = true, true }, false},
	}
	for i, tt := range tests {
		c := defaultConfig()
		tt.mutate(&c)
		if err := c.validate(); (err == nil) != tt.ok {
			t.Errorf("case %d: validate(%+v) = %v", i, c, err)
		}
	}
}

func TestConfigMountOptions(t *testing.T) {
	c := defaultConfig()
	if n := len(c.mountOptions()); n != 3 {
		t.Errorf("default config gives %d mount options, expected 3", n)
	}
	c.Subtype, c.AllowOther = "", true
	if n := len(c.mountOptions()); n != 3 {
		t.Errorf("got %d mount options, expected 3", n)
	}
	c.AllowOther, c.AllowRoot, c.DefaultPermissions, c.MaxReadahead = false, true, true, 1<<16
	if n := len(c.mountOptions()); n != 5 {
		t.Errorf("got %d mount options, expected 5", n)
	}
}
