// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package ipc

import (
	"errors"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/syztrace/pkg/ptrace"
)

var errFake = errors.New("fake tracing failure")

// fakeTracee replays a fixed sequence of instruction pointers and then ends with final.
// With infinite set it keeps stepping until killed. Like a real tracee it rejects
// register and step requests with ESRCH once killed.
type fakeTracee struct {
	pcs       []uint64
	final     ptrace.Status
	infinite  bool
	pcErrAt   int
	stepErrAt int
	faultAddr uint64
	killErr   error

	mu     sync.Mutex
	pos    int
	waits  int
	killed bool
	reaped bool
	closed bool
}

func newFake(pcs []uint64, final ptrace.Status) *fakeTracee {
	return &fakeTracee{
		pcs:       pcs,
		final:     final,
		pcErrAt:   -1,
		stepErrAt: -1,
	}
}

func (f *fakeTracee) Pid() int {
	return 42
}

func (f *fakeTracee) PC() (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.killed {
		return 0, &ptrace.Error{Op: "getregs", Pid: f.Pid(), Err: syscall.ESRCH}
	}
	if f.pos == f.pcErrAt {
		return 0, errFake
	}
	if f.infinite {
		return 0x400000 + uint64(f.pos%64)*16, nil
	}
	return f.pcs[f.pos], nil
}

func (f *fakeTracee) Step() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.killed {
		return &ptrace.Error{Op: "singlestep", Pid: f.Pid(), Err: syscall.ESRCH}
	}
	if f.pos == f.stepErrAt {
		return errFake
	}
	f.pos++
	return nil
}

func (f *fakeTracee) Wait() (ptrace.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reaped {
		return ptrace.Status{}, syscall.ECHILD
	}
	f.waits++
	if f.killed {
		f.reaped = true
		return ptrace.Status{State: ptrace.Signaled, Signal: syscall.SIGKILL}, nil
	}
	trap := ptrace.Status{State: ptrace.Stopped, Signal: syscall.SIGTRAP}
	if f.waits == 1 || f.infinite || f.pos < len(f.pcs) {
		if f.infinite {
			f.mu.Unlock()
			time.Sleep(100 * time.Microsecond)
			f.mu.Lock()
		}
		return trap, nil
	}
	if f.final.Terminated() {
		f.reaped = true
	}
	return f.final, nil
}

func (f *fakeTracee) Kill() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.killErr != nil {
		return f.killErr
	}
	if f.reaped {
		return os.ErrProcessDone
	}
	f.killed = true
	return nil
}

func (f *fakeTracee) FaultAddr() (uint64, error) {
	return f.faultAddr, nil
}

func (f *fakeTracee) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTracee) state() (killed, reaped, closed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.killed, f.reaped, f.closed
}

func fakeStart(f *fakeTracee) func(*exec.Cmd) (ptrace.Tracee, error) {
	return func(*exec.Cmd) (ptrace.Tracee, error) {
		return f, nil
	}
}
