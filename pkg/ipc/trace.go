// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package ipc

import (
	"errors"
	"os"
	"syscall"

	"github.com/google/syztrace/pkg/cover"
	"github.com/google/syztrace/pkg/log"
	"github.com/google/syztrace/pkg/ptrace"
)

// trace single-steps a stopped tracee and records every visited instruction pointer
// until it stops with something other than the step trap, exits or is killed.
// A failed tracing primitive ends the loop early: the coverage gathered so far stays
// in bm and the last status observed is returned along with the error.
func trace(t ptrace.Tracee, bm *cover.Bitmap, st ptrace.Status) (ptrace.Status, int, error) {
	steps := 0
	for st.State == ptrace.Stopped {
		pc, err := t.PC()
		if err != nil {
			st, err = gone(t, st, err)
			return st, steps, err
		}
		bm.Add(pc)
		if err := t.Step(); err != nil {
			st, err = gone(t, st, err)
			return st, steps, err
		}
		steps++
		next, err := t.Wait()
		if err != nil {
			return st, steps, err
		}
		st = next
		if !st.Trapped() {
			break
		}
	}
	return st, steps, nil
}

// gone collects the final status of a tracee that was killed (e.g. by the guard)
// between a stop and the next ptrace request: such requests fail with ESRCH.
// Any other failure is returned as is, with the last status seen.
func gone(t ptrace.Tracee, st ptrace.Status, err error) (ptrace.Status, error) {
	if errors.Is(err, syscall.ESRCH) {
		if next, werr := t.Wait(); werr == nil && next.Terminated() {
			return next, nil
		}
	}
	return st, err
}

// reap kills the tracee unless it is already gone and collects its final status.
func reap(t ptrace.Tracee, st ptrace.Status) {
	if st.Terminated() {
		return
	}
	if err := t.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		log.Logf(0, "failed to kill pid %v: %v", t.Pid(), err)
	}
	for {
		next, err := t.Wait()
		if err != nil || next.Terminated() {
			return
		}
	}
}
