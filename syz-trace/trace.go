// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// syz-trace runs a single target binary under instruction-level tracing
// with the given input on its stdin and reports how the run ended.
// The only line printed to stdout is the outcome of a crashed or timed out run:
//
//	crash_type:<timeout|crash>|signal:<N>
//
// Normal runs print nothing. The exit status is 0 for any completed run
// and 1 if the target could not be started.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/google/syztrace/pkg/cover"
	"github.com/google/syztrace/pkg/ipc"
	"github.com/google/syztrace/pkg/ipc/ipcconfig"
	"github.com/google/syztrace/pkg/log"
	"github.com/google/syztrace/pkg/stat"
	"github.com/google/syztrace/pkg/tool"
)

var (
	flagCover     = flag.String("cover", "", "write the coverage bitmap to the file (xz-compressed for *.xz)")
	flagCoverBase = flag.String("cover_base", "", "log how many buckets are new compared to the bitmap in the file")
	flagMetrics   = flag.String("metrics", "", "write Prometheus metrics of the run to the file")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: syz-trace [flags] <timeout_seconds> <target_path> [<input>]\n")
		flag.PrintDefaults()
	}
	defer tool.Init()()
	log.EnableLogCaching(100, 10<<10)
	timeout, target, input, err := parseArgs(flag.Args(), os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		flag.Usage()
		os.Exit(1)
	}
	cfg, err := ipcconfig.Default(target, timeout)
	if err != nil {
		tool.Fail(err)
	}
	if err := run(cfg, input, os.Stdout); err != nil {
		fmt.Fprint(os.Stderr, log.CachedLogOutput())
		tool.Fail(err)
	}
}

// parseArgs decodes the positional arguments. Without the input argument
// the input is whatever arrives on stdin.
func parseArgs(args []string, stdin io.Reader) (time.Duration, string, []byte, error) {
	if len(args) != 2 && len(args) != 3 {
		return 0, "", nil, fmt.Errorf("want 2 or 3 arguments, got %v", len(args))
	}
	secs, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil || secs == 0 {
		return 0, "", nil, fmt.Errorf("bad timeout %q: want a positive number of seconds", args[0])
	}
	var input []byte
	if len(args) == 3 {
		input = []byte(args[2])
	} else if input, err = io.ReadAll(stdin); err != nil {
		return 0, "", nil, fmt.Errorf("failed to read input: %w", err)
	}
	return time.Duration(secs) * time.Second, args[1], input, nil
}

// run executes the target once and prints the outcome line to out.
// Only setup failures are returned as errors.
func run(cfg *ipc.Config, input []byte, out io.Writer) error {
	env, err := ipc.MakeEnv(cfg)
	if err != nil {
		return err
	}
	res, err := env.Exec(input)
	if err != nil {
		return err
	}
	if res.Outcome.Reported() {
		fmt.Fprintf(out, "%v\n", res.Outcome)
	}
	if *flagCoverBase != "" {
		if n, err := newBuckets(res.Cover, *flagCoverBase, cfg.CoverShift); err != nil {
			log.Logf(0, "%v", err)
		} else {
			log.Logf(0, "%v new buckets compared to %v", n, *flagCoverBase)
		}
	}
	if *flagCover != "" {
		if err := res.Cover.WriteFile(*flagCover); err != nil {
			log.Logf(0, "%v", err)
		}
	}
	if *flagMetrics != "" {
		if err := stat.WriteTextfile(*flagMetrics); err != nil {
			log.Logf(0, "%v", err)
		}
	}
	if log.V(1) {
		log.Logf(1, "run statistics:\n%v", stat.Summary(stat.All))
	}
	return nil
}

// newBuckets returns the number of buckets visited in bm but not in the bitmap saved in baseFile.
func newBuckets(bm *cover.Bitmap, baseFile string, shift uint) (int, error) {
	base, err := cover.ReadFile(baseFile, shift)
	if err != nil {
		return 0, err
	}
	if base.Size() != bm.Size() {
		return 0, fmt.Errorf("base bitmap %v has %v buckets, want %v", baseFile, base.Size(), bm.Size())
	}
	if bm.Equal(base) {
		return 0, nil
	}
	return len(bm.Diff(base)), nil
}
