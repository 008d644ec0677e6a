// Package config handles gert.toml runtime configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents a gert.toml runtime configuration.
type Config struct {
	Runtime   Runtime   `toml:"runtime"`
	Scheduler Scheduler `toml:"scheduler"`
	CrashDump CrashDump `toml:"crash-dump"`

	// Dir is the directory containing the gert.toml file (set at load time).
	Dir string `toml:"-"`
}

// Runtime sizes per-process resources.
type Runtime struct {
	HeapWords  int `toml:"heap-words"`
	XRegs      int `toml:"x-regs"`
	FPRegs     int `toml:"fp-regs"`
	StackSlots int `toml:"stack-slots"`
}

// Scheduler configures the reduction-counting scheduler.
type Scheduler struct {
	Reductions int `toml:"reductions"`
}

// CrashDump configures persistent crash reports.
type CrashDump struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Default returns the configuration used when no gert.toml exists.
func Default() *Config {
	return &Config{
		Runtime: Runtime{
			HeapWords:  4096,
			XRegs:      64,
			FPRegs:     16,
			StackSlots: 256,
		},
		Scheduler: Scheduler{Reductions: 2000},
		CrashDump: CrashDump{Enabled: false, Path: "gert_crash.db"},
	}
}

// Load parses a gert.toml file from the given directory. Missing keys
// fall back to defaults; a missing file is an error (use Default for
// the no-file case).
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "gert.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	c.Dir = dir

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.Runtime.HeapWords <= 0 {
		return fmt.Errorf("runtime.heap-words must be positive, got %d", c.Runtime.HeapWords)
	}
	if c.Runtime.XRegs <= 0 {
		return fmt.Errorf("runtime.x-regs must be positive, got %d", c.Runtime.XRegs)
	}
	if c.Runtime.StackSlots <= 0 {
		return fmt.Errorf("runtime.stack-slots must be positive, got %d", c.Runtime.StackSlots)
	}
	if c.Scheduler.Reductions <= 0 {
		return fmt.Errorf("scheduler.reductions must be positive, got %d", c.Scheduler.Reductions)
	}
	return nil
}
