// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package ipc

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/syztrace/pkg/cover"
	"github.com/google/syztrace/pkg/osutil"
)

// Config is the configuration for Env.
// Fields with JSON tags can also come from a config file (see pkg/config).
type Config struct {
	// Target is the path to the traced binary. It is the only argument the target gets.
	Target string `json:"-" yaml:"-"`

	// Timeout is the wall-clock limit for a single run.
	Timeout time.Duration `json:"-" yaml:"-"`

	// CoverSize is the number of coverage buckets (power of two).
	CoverSize int `json:"cover_size" yaml:"cover_size"`

	// CoverShift is how many low bits of the instruction pointer are dropped
	// before bucketing.
	CoverShift uint `json:"cover_shift" yaml:"cover_shift"`

	// Output makes the target inherit the harness stdout/stderr.
	// Otherwise target output is discarded.
	Output bool `json:"output" yaml:"output"`

	// ASLR leaves address space randomization enabled for the target.
	// Bitmaps of the same input are not reproducible across runs then.
	ASLR bool `json:"aslr" yaml:"aslr"`
}

func DefaultConfig() *Config {
	return &Config{
		CoverSize:  cover.DefaultSize,
		CoverShift: cover.DefaultShift,
		Output:     true,
	}
}

// Validate checks the config and makes the target path absolute.
func (cfg *Config) Validate() error {
	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", cfg.Timeout)
	}
	if err := cover.Validate(cfg.CoverSize, cfg.CoverShift); err != nil {
		return fmt.Errorf("bad coverage config: %w", err)
	}
	if cfg.Target == "" {
		return fmt.Errorf("no target binary specified")
	}
	if err := osutil.IsExecutable(cfg.Target); err != nil {
		return err
	}
	return nil
}

func (cfg *Config) targetPath() (string, error) {
	return filepath.Abs(cfg.Target)
}
