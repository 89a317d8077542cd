// Copyright 2015 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package ipc runs a target binary under instruction-level tracing.
// It delivers the input on the target stdin, collects the coverage bitmap,
// enforces the timeout and classifies the run.
package ipc

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"syscall"
	"time"

	"github.com/google/syztrace/pkg/cover"
	"github.com/google/syztrace/pkg/log"
	"github.com/google/syztrace/pkg/osutil"
	"github.com/google/syztrace/pkg/ptrace"
	"github.com/google/syztrace/pkg/stat"
	"golang.org/x/sync/errgroup"
)

// SetupError is returned from Exec when the target could not be brought to the
// traced and stopped state: pipe creation, fork or exec failed.
// No child process is left behind in this case.
type SetupError struct {
	Stage string
	Err   error
}

func (err *SetupError) Error() string {
	return fmt.Sprintf("setup failed: %v: %v", err.Stage, err.Err)
}

func (err *SetupError) Unwrap() error {
	return err.Err
}

// TraceError is recorded in Result when a tracing primitive fails mid-run.
// The run is still classified from the last status seen.
type TraceError struct {
	Steps int
	Err   error
}

func (err *TraceError) Error() string {
	return fmt.Sprintf("tracing stopped after %v steps: %v", err.Steps, err.Err)
}

func (err *TraceError) Unwrap() error {
	return err.Err
}

// Result describes one run. It is not modified after Exec returns.
type Result struct {
	Outcome Outcome
	// Status is the status the tracer loop ended with (before any cleanup kill).
	Status ptrace.Status
	Cover  *cover.Bitmap
	Steps  int
	// Duration is the time between arming and disarming the timeout guard.
	Duration time.Duration
	// FaultAddr is si_addr of the crash signal, if the target stopped with one
	// and the backend can read it.
	FaultAddr    uint64
	HasFaultAddr bool
	// TraceErr is set if the tracer loop was aborted by a failed tracing primitive.
	TraceErr error
	// InputErr is set if not all input could be written to the target stdin.
	InputErr error
}

type Env struct {
	config *Config
	target string
	start  func(cmd *exec.Cmd) (ptrace.Tracee, error)
}

var (
	statRuns = stat.New("runs", "Number of target runs", stat.Console,
		stat.Prometheus("syz_trace_runs"))
	statCrashes = stat.New("crashes", "Runs that ended with a crash signal", stat.Console,
		stat.Prometheus("syz_trace_crashes"))
	statTimeouts = stat.New("timeouts", "Runs killed by the timeout guard", stat.Console,
		stat.Prometheus("syz_trace_timeouts"))
	statTraceErrors = stat.New("trace errors", "Runs where a tracing primitive failed",
		stat.Prometheus("syz_trace_errors"))
	statSteps = stat.New("steps", "Single steps per run", stat.Distribution{},
		stat.Prometheus("syz_trace_steps"))
	statBuckets = stat.New("buckets", "Coverage buckets visited per run", stat.Distribution{},
		stat.Prometheus("syz_trace_cover_buckets"))
	statExecTime = stat.New("exec time", "Run duration in milliseconds", stat.Distribution{},
		stat.Prometheus("syz_trace_exec_time_ms"))
)

func MakeEnv(config *Config) (*Env, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	target, err := config.targetPath()
	if err != nil {
		return nil, err
	}
	env := &Env{
		config: config,
		target: target,
		start:  ptrace.Start,
	}
	return env, nil
}

// Exec runs the target once on input.
// The returned error is always a *SetupError; crashes and timeouts are outcomes, not errors.
// Exec may be called concurrently on different Envs.
func (env *Env) Exec(input []byte) (*Result, error) {
	// The tracer is a thread, not a process: fork, ptrace requests and wait4
	// must all come from the same OS thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	tracee, stdin, delivery, err := env.launch(input)
	if err != nil {
		return nil, err
	}
	defer tracee.Close()
	statRuns.Add(1)

	res := &Result{
		Cover: cover.New(env.config.CoverSize, env.config.CoverShift),
	}
	start := time.Now()
	g := armGuard(env.config.Timeout, tracee.Kill)
	st, err := tracee.Wait()
	if err == nil {
		st, res.Steps, err = trace(tracee, res.Cover, st)
	}
	hanged := g.disarm()
	res.Duration = time.Since(start)
	if err != nil {
		res.TraceErr = &TraceError{Steps: res.Steps, Err: err}
	}
	if fr, ok := tracee.(ptrace.SiginfoReader); ok && st.State == ptrace.Stopped && !st.Trapped() {
		if addr, err := fr.FaultAddr(); err == nil {
			res.FaultAddr, res.HasFaultAddr = addr, true
		}
	}
	reap(tracee, st)
	// Descendants of the target may still hold the read end without reading it,
	// closing the write end unblocks a pending write.
	stdin.Close()
	if err := delivery.Wait(); err != nil && !errors.Is(err, syscall.EPIPE) && !errors.Is(err, os.ErrClosed) {
		res.InputErr = err
	}
	res.Status = st
	res.Outcome = classify(st, hanged)
	env.account(res)
	return res, nil
}

// launch starts the target stopped under trace with a pipe on its stdin
// and starts writing input into the pipe.
// The returned group finishes when all input is written and the write end is closed,
// or when the caller closes the returned write end.
func (env *Env) launch(input []byte) (ptrace.Tracee, *os.File, *errgroup.Group, error) {
	rp, wp, err := osutil.LongPipe()
	if err != nil {
		return nil, nil, nil, &SetupError{"pipe", err}
	}
	cmd := osutil.Command(env.target)
	cmd.Args = []string{env.config.Target}
	cmd.Stdin = rp
	if env.config.Output {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}
	var tracee ptrace.Tracee
	start := func() error {
		var err error
		tracee, err = env.start(cmd)
		return err
	}
	if env.config.ASLR {
		err = start()
	} else {
		err = osutil.WithoutASLR(start)
	}
	// The child has its own copy of the read end, we never read from it.
	rp.Close()
	if err != nil {
		wp.Close()
		return nil, nil, nil, &SetupError{"start", err}
	}
	log.Logf(2, "started %v pid %v, %v bytes of input, pipe buffer %v",
		env.config.Target, tracee.Pid(), len(input), osutil.PipeCapacity(wp))
	// The target does not read until it is stepped, so the write goes on in the
	// background in case the input does not fit into the pipe buffer.
	delivery := new(errgroup.Group)
	delivery.Go(func() error {
		defer wp.Close()
		if _, err := wp.Write(input); err != nil {
			log.Logf(1, "failed to write input to %v: %v", env.config.Target, err)
			return err
		}
		return nil
	})
	return tracee, wp, delivery, nil
}

func (env *Env) account(res *Result) {
	statSteps.Add(res.Steps)
	statBuckets.Add(res.Cover.Len())
	statExecTime.Add(int(res.Duration / time.Millisecond))
	if res.TraceErr != nil {
		statTraceErrors.Add(1)
		log.Logf(1, "%v: %v", env.config.Target, res.TraceErr)
	}
	switch res.Outcome.Kind {
	case Crash:
		statCrashes.Add(1)
	case Timeout:
		statTimeouts.Add(1)
	}
	fault := ""
	if res.HasFaultAddr {
		fault = fmt.Sprintf(" at 0x%x", res.FaultAddr)
	}
	log.Logf(1, "%v: %v%v (%v), %v steps, %v/%v buckets, cover %v, %v",
		env.config.Target, res.Outcome.Description(), fault, res.Status, res.Steps,
		res.Cover.Len(), res.Cover.Size(), res.Cover.Sig()[:12], res.Duration)
	if log.V(3) {
		log.Logf(3, "%v: visited buckets %x", env.config.Target, res.Cover.Buckets())
	}
}
