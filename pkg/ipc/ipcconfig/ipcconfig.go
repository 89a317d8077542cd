// Copyright 2018 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package ipcconfig builds ipc.Config from command line flags and an optional config file.
package ipcconfig

import (
	"flag"
	"fmt"
	"time"

	"github.com/google/syztrace/pkg/config"
	"github.com/google/syztrace/pkg/ipc"
	"github.com/google/syztrace/pkg/osutil"
)

var (
	flagConfig = flag.String("config", "", "harness config file (JSON, or YAML for *.yml/*.yaml)")
	flagOutput = flag.Bool("output", true, "let the target print to the harness stdout/stderr")
	flagASLR   = flag.Bool("aslr", false, "keep address space randomization enabled in the target")
)

// Default returns the config for tracing target with the given timeout.
// Values from the config file override defaults, explicitly set flags override the file.
func Default(target string, timeout time.Duration) (*ipc.Config, error) {
	cfg := ipc.DefaultConfig()
	if *flagConfig != "" {
		if !osutil.IsExist(*flagConfig) {
			return nil, fmt.Errorf("config file %v does not exist", *flagConfig)
		}
		if err := config.LoadFile(*flagConfig, cfg); err != nil {
			return nil, err
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "output":
			cfg.Output = *flagOutput
		case "aslr":
			cfg.ASLR = *flagASLR
		}
	})
	cfg.Target = target
	cfg.Timeout = timeout
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
