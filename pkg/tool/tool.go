// Copyright 2020 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package tool contains helpers for implementing the harness command line.
package tool

import (
	"errors"
	"flag"
	"fmt"
	"os"
)

// Init parses the command line and installs the standard profiling flags.
// A malformed command line exits with status 1, -h and -help exit with status 0.
// The returned function must be called before the program exits.
func Init() func() {
	flagCPUProfile := flag.String("cpuprofile", "", "write CPU profile to this file")
	flagMEMProfile := flag.String("memprofile", "", "write memory profile to this file")
	flag.CommandLine.Init(os.Args[0], flag.ContinueOnError)
	if err := ParseFlags(flag.CommandLine, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		Fail(err)
	}
	return installProfiling(*flagCPUProfile, *flagMEMProfile)
}

// Failf prints the message to stderr and exits with status 1,
// which is the setup failure status of the harness.
func Failf(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, msg+"\n", args...)
	os.Exit(1)
}

func Fail(err error) {
	Failf("%v", err)
}
