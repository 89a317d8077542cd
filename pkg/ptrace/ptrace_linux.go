// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package ptrace

import (
	"os/exec"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

type process struct {
	cmd   *exec.Cmd
	pid   int
	state State
	regs  unix.PtraceRegs
}

// Start starts cmd with PTRACE_TRACEME. The kernel stops the child with SIGTRAP
// right after execve, before the first instruction of the new image runs.
// The caller must hold runtime.LockOSThread until the tracee is reaped:
// ptrace requests are only accepted from the tracer thread.
func Start(cmd *exec.Cmd) (Tracee, error) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = new(syscall.SysProcAttr)
	}
	cmd.SysProcAttr.Ptrace = true
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &process{
		cmd:   cmd,
		pid:   cmd.Process.Pid,
		state: Spawned,
	}, nil
}

func (p *process) Pid() int {
	return p.pid
}

func (p *process) PC() (uint64, error) {
	if err := unix.PtraceGetRegs(p.pid, &p.regs); err != nil {
		return 0, &Error{"getregs", p.pid, err}
	}
	return uint64(p.regs.PC()), nil
}

func (p *process) Step() error {
	if err := unix.PtraceSingleStep(p.pid); err != nil {
		return &Error{"singlestep", p.pid, err}
	}
	p.state = Running
	return nil
}

func (p *process) Wait() (Status, error) {
	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(p.pid, &ws, 0, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return Status{}, &Error{"wait", p.pid, err}
		}
		break
	}
	st := decodeStatus(ws)
	p.state = st.State
	return st, nil
}

func decodeStatus(ws unix.WaitStatus) Status {
	switch {
	case ws.Stopped():
		return Status{State: Stopped, Signal: syscall.Signal(ws.StopSignal())}
	case ws.Signaled():
		return Status{State: Signaled, Signal: syscall.Signal(ws.Signal())}
	case ws.Exited():
		return Status{State: Exited, Code: ws.ExitStatus()}
	}
	return Status{State: Running}
}

func (p *process) Kill() error {
	return p.cmd.Process.Kill()
}

// FaultAddr returns si_addr of the pending signal (PTRACE_GETSIGINFO).
func (p *process) FaultAddr() (uint64, error) {
	// siginfo_t is 128 bytes, si_addr follows three ints (padded to 8 bytes on 64-bit).
	var info [16]uint64
	_, _, errno := unix.Syscall6(unix.SYS_PTRACE, unix.PTRACE_GETSIGINFO, uintptr(p.pid),
		0, uintptr(unsafe.Pointer(&info[0])), 0, 0)
	if errno != 0 {
		return 0, &Error{"getsiginfo", p.pid, errno}
	}
	if unsafe.Sizeof(uintptr(0)) == 8 {
		return info[2], nil
	}
	return uint64((*[32]uint32)(unsafe.Pointer(&info[0]))[3]), nil
}

func (p *process) Close() error {
	return p.cmd.Process.Release()
}
