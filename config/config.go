// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config reads runtime settings from TOML files.
//
// Example:
//
//	[heap]
//	minimum = "1 MiB"
//	maximum = "256 MiB"
//
//	[decode]
//	max-section-size = "64 MiB"
//
//	[memory]
//	max-reserve-pages = 16384
//
//	[log]
//	level = "debug"
package config

import (
	"bytes"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"gate.computer/wacore/decode"
	"gate.computer/wacore/heap"
	"gate.computer/wacore/memory"
	"gate.computer/wacore/wa"
)

// Size in bytes.  It is written either as an integer or as a string with a
// unit ("64 MiB", "1GB").
type Size int64

func (s *Size) UnmarshalText(text []byte) error {
	n, err := humanize.ParseBytes(string(text))
	if err != nil {
		return err
	}
	if n > math.MaxInt64 {
		return xerrors.Errorf("size is too large: %s", text)
	}
	*s = Size(n)
	return nil
}

func (s Size) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s Size) String() string {
	if s < 0 {
		return "<negative size>"
	}
	return humanize.IBytes(uint64(s))
}

type Heap struct {
	Minimum Size `toml:"minimum"`
	Maximum Size `toml:"maximum"`
}

type Decode struct {
	MaxSectionSize Size `toml:"max-section-size"`
}

type Memory struct {
	MaxReservePages uint32 `toml:"max-reserve-pages"`
}

type Log struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// Config file contents.  Zero values mean defaults.
type Config struct {
	Heap   Heap   `toml:"heap"`
	Decode Decode `toml:"decode"`
	Memory Memory `toml:"memory"`
	Log    Log    `toml:"log"`
}

// Default configuration.
func Default() *Config {
	return &Config{
		Heap: Heap{
			Minimum: heap.DefaultMinimumHeapSize,
			Maximum: heap.DefaultMaximumHeapSize,
		},
		Decode: Decode{
			MaxSectionSize: decode.DefaultMaxSectionSize,
		},
		Memory: Memory{
			MaxReservePages: memory.DefaultMaxReservePages,
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Load a TOML file.  Settings which are not present in the file have their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("cannot read %s: %w", path, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse TOML.  Unknown keys are errors.
func Parse(data []byte) (*Config, error) {
	c := Default()

	md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(c)
	if err != nil {
		return nil, xerrors.Errorf("parse error: %w", err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		return nil, xerrors.Errorf("unknown configuration keys: %s", strings.Join(keys, ", "))
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.Heap.Minimum < 0 || c.Heap.Maximum < 0 {
		return xerrors.New("heap size is negative")
	}
	if c.Decode.MaxSectionSize < 0 || c.Decode.MaxSectionSize > math.MaxUint32 {
		return xerrors.Errorf("decode.max-section-size is out of range: %d", int64(c.Decode.MaxSectionSize))
	}
	if c.Memory.MaxReservePages > wa.MaxPages {
		return xerrors.Errorf("memory.max-reserve-pages exceeds %d: %d", wa.MaxPages, c.Memory.MaxReservePages)
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return xerrors.Errorf("log.level: %w", err)
	}
	return nil
}

func (c *Config) HeapConfig() heap.Config {
	return heap.Config{
		MinimumHeapSize: int64(c.Heap.Minimum),
		MaximumHeapSize: int64(c.Heap.Maximum),
	}
}

func (c *Config) DecodeConfig() *decode.Config {
	return &decode.Config{
		MaxSectionSize: uint32(c.Decode.MaxSectionSize),
	}
}

func (c *Config) MemoryConfig() *memory.Config {
	return &memory.Config{
		MaxReservePages: c.Memory.MaxReservePages,
	}
}

// NewLogger builds a zap logger according to the log section.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, xerrors.Errorf("log.level: %w", err)
	}

	var zc zap.Config
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = level

	return zc.Build()
}
