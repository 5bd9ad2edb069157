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
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kurafs/clockfs/pkg/clockfs"
	"github.com/kurafs/clockfs/pkg/fuse"
)

// Config holds the settings that can come from a YAML file given with
// -config. Flags set explicitly on the command line take precedence.
//
//	fsname: clockfs
//	subtype: clockfs
//	allow-other: false
//	allow-root: false
//	default-permissions: false
//	max-readahead: 0
//	file-name: clock
//	interval: 250ms
type Config struct {
	FSName             string        `yaml:"fsname"`
	Subtype            string        `yaml:"subtype"`
	AllowOther         bool          `yaml:"allow-other"`
	AllowRoot          bool          `yaml:"allow-root"`
	DefaultPermissions bool          `yaml:"default-permissions"`
	MaxReadahead       uint32        `yaml:"max-readahead"`
	FileName           string        `yaml:"file-name"`
	Interval           time.Duration `yaml:"interval"`
}

func defaultConfig() Config {
	return Config{
		FSName:   "clockfs",
		Subtype:  "clockfs",
		FileName: clockfs.DefaultFileName,
		Interval: clockfs.DefaultInterval,
	}
}

// registerFlags binds the flags that mirror Config fields, defaulting to
// the values in c.
func registerFlags(fs *flag.FlagSet, c *Config) {
	fs.StringVar(&c.FSName, "fsname", c.FSName,
		"File system name shown as the mount source")
	fs.StringVar(&c.Subtype, "subtype", c.Subtype,
		"File system subtype, shown as fuse.<subtype>")
	fs.BoolVar(&c.AllowOther, "allow-other", c.AllowOther,
		"Allow other users to access the file system")
	fs.BoolVar(&c.AllowRoot, "allow-root", c.AllowRoot,
		"Allow root, besides the mounting user, to access the file system")
	fs.BoolVar(&c.DefaultPermissions, "default-permissions", c.DefaultPermissions,
		"Have the kernel check access against the file modes")
	fs.Var((*readaheadValue)(&c.MaxReadahead), "max-readahead",
		"Kernel readahead in bytes, capped by the kernel (0 disables it)")
	fs.StringVar(&c.FileName, "file-name", c.FileName,
		"Name of the clock file in the root directory")
	fs.DurationVar(&c.Interval, "interval", c.Interval,
		"Time between clock refreshes")
}

// loadConfig reads the YAML file at path over the defaults.
func loadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()

	c := defaultConfig()
	if err := decodeConfig(f, &c); err != nil {
		return Config{}, fmt.Errorf("config %s: %v", path, err)
	}
	return c, nil
}

// decodeConfig overlays the YAML document in r onto c. Unknown keys are
// rejected; an empty document leaves c untouched.
func decodeConfig(r io.Reader, c *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// override copies the values of the flags explicitly set in fs into c.
func (c *Config) override(fs *flag.FlagSet) error {
	var err error
	fs.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		v := f.Value.String()
		switch f.Name {
		case "fsname":
			c.FSName = v
		case "subtype":
			c.Subtype = v
		case "allow-other":
			c.AllowOther, err = strconv.ParseBool(v)
		case "allow-root":
			c.AllowRoot, err = strconv.ParseBool(v)
		case "default-permissions":
			c.DefaultPermissions, err = strconv.ParseBool(v)
		case "max-readahead":
			var n uint64
			n, err = strconv.ParseUint(v, 10, 32)
			c.MaxReadahead = uint32(n)
		case "file-name":
			c.FileName = v
		case "interval":
			c.Interval, err = time.ParseDuration(v)
		}
	})
	return err
}

func (c Config) validate() error {
	switch {
	case c.Interval <= 0:
		return fmt.Errorf("interval must be positive, got %v", c.Interval)
	case c.FileName == "":
		return errors.New("empty file name")
	case c.FileName == "." || c.FileName == ".." || strings.ContainsAny(c.FileName, "/\x00"):
		return fmt.Errorf("invalid file name %q", c.FileName)
	case c.FSName == "":
		return errors.New("empty fsname")
	case c.AllowOther && c.AllowRoot:
		return fuse.ErrCannotCombineAllowOtherAndAllowRoot
	}
	return nil
}

func (c Config) mountOptions() []fuse.MountOption {
	options := []fuse.MountOption{
		fuse.FSName(c.FSName),
		fuse.ReadOnly(),
	}
	if c.Subtype != "" {
		options = append(options, fuse.Subtype(c.Subtype))
	}
	if c.AllowOther {
		options = append(options, fuse.AllowOther())
	}
	if c.AllowRoot {
		options = append(options, fuse.AllowRoot())
	}
	if c.DefaultPermissions {
		options = append(options, fuse.DefaultPermissions())
	}
	if c.MaxReadahead > 0 {
		options = append(options, fuse.MaxReadahead(c.MaxReadahead))
	}
	return options
}

// readaheadValue is a flag.Value for a uint32 byte count.
type readaheadValue uint32

func (r *readaheadValue) String() string {
	return strconv.FormatUint(uint64(*r), 10)
}

func (r *readaheadValue) Set(value string) error {
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return err
	}
	*r = readaheadValue(n)
	return nil
}
