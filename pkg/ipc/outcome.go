// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package ipc

import (
	"fmt"
	"syscall"

	"github.com/google/syztrace/pkg/ptrace"
)

type Kind int

const (
	Normal Kind = iota
	Crash
	Timeout
)

func (k Kind) String() string {
	switch k {
	case Normal:
		return "normal"
	case Crash:
		return "crash"
	case Timeout:
		return "timeout"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// TimeoutSignal is reported for runs killed by the timeout guard.
const TimeoutSignal = syscall.SIGALRM

// Outcome is the classification of a single run.
type Outcome struct {
	Kind   Kind
	Signal syscall.Signal
}

// Reported says whether the outcome produces an output line.
func (o Outcome) Reported() bool {
	return o.Kind != Normal
}

// String returns the line consumed by the fuzzing driver, without the trailing newline.
// It is empty for normal runs.
func (o Outcome) String() string {
	if !o.Reported() {
		return ""
	}
	return fmt.Sprintf("crash_type:%v|signal:%d", o.Kind, int(o.Signal))
}

// Description is a human-readable crash class for logs.
func (o Outcome) Description() string {
	switch o.Kind {
	case Normal:
		return "no crash"
	case Timeout:
		return "timeout"
	}
	switch o.Signal {
	case syscall.SIGSEGV:
		return "segmentation fault"
	case syscall.SIGABRT:
		return "abort"
	case syscall.SIGBUS:
		return "bus error"
	case syscall.SIGFPE:
		return "floating point exception"
	case syscall.SIGILL:
		return "illegal instruction"
	case syscall.SIGTRAP:
		return "trap"
	}
	return o.Signal.String()
}

// classify turns the final status of the tracer loop into an outcome.
// An expired deadline wins over whatever status the kill produced, unless the loop
// saw the tracee terminate on its own before the kill could land.
// A stop with a non-trap signal counts as a crash even though the signal was never delivered.
func classify(st ptrace.Status, hanged bool) Outcome {
	switch {
	case hanged && !selfTerminated(st):
		return Outcome{Kind: Timeout, Signal: TimeoutSignal}
	case st.State == ptrace.Signaled:
		return Outcome{Kind: Crash, Signal: st.Signal}
	case st.State == ptrace.Stopped && !st.Trapped():
		return Outcome{Kind: Crash, Signal: st.Signal}
	}
	return Outcome{Kind: Normal}
}

func selfTerminated(st ptrace.Status) bool {
	return st.State == ptrace.Exited ||
		st.State == ptrace.Signaled && st.Signal != syscall.SIGKILL
}
