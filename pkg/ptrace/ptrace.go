// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package ptrace hides the platform tracing backend behind the Tracee interface.
// The tracer loop only needs to read the instruction pointer, request a single step
// and wait for the next state change, everything else is here.
package ptrace

import (
	"errors"
	"fmt"
	"syscall"
)

var ErrUnsupported = errors.New("tracing is not supported on this platform")

// Tracee is a process started under trace.
// All methods except Kill must be called from the OS thread that started the process.
type Tracee interface {
	Pid() int
	// PC returns the current instruction pointer of a stopped tracee.
	PC() (uint64, error)
	// Step resumes a stopped tracee for one instruction.
	Step() error
	// Wait blocks until the next state change and reaps the process if it has terminated.
	Wait() (Status, error)
	// Kill sends SIGKILL. It is safe to call concurrently with the other methods.
	// It returns os.ErrProcessDone if the process has already been reaped.
	Kill() error
	// Close releases OS resources, the process must be reaped by then.
	Close() error
}

// SiginfoReader is implemented by backends that can tell the faulting address
// of the signal the tracee is stopped with.
type SiginfoReader interface {
	FaultAddr() (uint64, error)
}

// State is the tracee lifecycle state.
type State int

const (
	Spawned State = iota
	Stopped
	Running
	Exited
	Signaled
)

func (s State) String() string {
	switch s {
	case Spawned:
		return "spawned"
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Exited:
		return "exited"
	case Signaled:
		return "signaled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Status is a decoded wait status.
type Status struct {
	State State
	// Code is the exit code for Exited.
	Code int
	// Signal is the stop signal for Stopped and the terminating signal for Signaled.
	Signal syscall.Signal
}

// Trapped reports whether this is the stop expected after a single step.
func (st Status) Trapped() bool {
	return st.State == Stopped && st.Signal == syscall.SIGTRAP
}

// Terminated reports whether the process is gone.
func (st Status) Terminated() bool {
	return st.State == Exited || st.State == Signaled
}

func (st Status) String() string {
	switch st.State {
	case Exited:
		return fmt.Sprintf("exited with status %v", st.Code)
	case Signaled:
		return fmt.Sprintf("killed by signal %d (%v)", int(st.Signal), st.Signal)
	case Stopped:
		return fmt.Sprintf("stopped by signal %d (%v)", int(st.Signal), st.Signal)
	}
	return st.State.String()
}

// Error describes a failed tracing primitive.
type Error struct {
	Op  string
	Pid int
	Err error
}

func (err *Error) Error() string {
	return fmt.Sprintf("%v pid %v: %v", err.Op, err.Pid, err.Err)
}

func (err *Error) Unwrap() error {
	return err.Err
}
