// Copyright 2015 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package ipc

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/google/syztrace/pkg/osutil"
	"github.com/google/syztrace/pkg/ptrace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEnv returns an Env for a dummy executable that runs f instead of a real process.
func fakeEnv(t *testing.T, timeout time.Duration, f *fakeTracee) *Env {
	bin := filepath.Join(t.TempDir(), "target")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0755))
	cfg := DefaultConfig()
	cfg.Target = bin
	cfg.Timeout = timeout
	cfg.Output = false
	cfg.ASLR = true
	env, err := MakeEnv(cfg)
	require.NoError(t, err)
	env.start = fakeStart(f)
	return env
}

func TestExecNormal(t *testing.T) {
	f := newFake([]uint64{0x1000, 0x1010, 0x1014}, ptrace.Status{State: ptrace.Exited, Code: 3})
	res, err := fakeEnv(t, time.Minute, f).Exec([]byte("input"))
	require.NoError(t, err)
	assert.Equal(t, Normal, res.Outcome.Kind)
	assert.False(t, res.Outcome.Reported())
	assert.Empty(t, res.Outcome.String())
	assert.Equal(t, 3, res.Steps)
	assert.Equal(t, []int{0x100, 0x101}, res.Cover.Buckets())
	assert.Equal(t, 3, res.Status.Code)
	assert.NoError(t, res.TraceErr)
	assert.False(t, res.HasFaultAddr)
	killed, _, closed := f.state()
	assert.False(t, killed)
	assert.True(t, closed)
}

func TestExecCrash(t *testing.T) {
	f := newFake([]uint64{0x1000, 0x2000}, segvStop)
	f.faultAddr = 0xdead
	res, err := fakeEnv(t, time.Minute, f).Exec(nil)
	require.NoError(t, err)
	assert.Equal(t, Outcome{Kind: Crash, Signal: syscall.SIGSEGV}, res.Outcome)
	assert.Equal(t, "crash_type:crash|signal:11", res.Outcome.String())
	assert.True(t, res.HasFaultAddr)
	assert.Equal(t, uint64(0xdead), res.FaultAddr)
	killed, reaped, _ := f.state()
	assert.True(t, killed, "crash-stopped tracee was left alive")
	assert.True(t, reaped)
}

func TestExecTimeout(t *testing.T) {
	const timeout = 50 * time.Millisecond
	f := newFake(nil, exited0)
	f.infinite = true
	res, err := fakeEnv(t, timeout, f).Exec([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, Outcome{Kind: Timeout, Signal: syscall.SIGALRM}, res.Outcome)
	assert.Equal(t, "crash_type:timeout|signal:14", res.Outcome.String())
	assert.GreaterOrEqual(t, res.Duration, timeout)
	assert.Positive(t, res.Cover.Len())
	// The kill may land between a stop and the next ptrace request, that is not a failure.
	assert.NoError(t, res.TraceErr)
	assert.Equal(t, ptrace.Status{State: ptrace.Signaled, Signal: syscall.SIGKILL}, res.Status)
	killed, reaped, _ := f.state()
	assert.True(t, killed)
	assert.True(t, reaped)
}

func TestExecTraceError(t *testing.T) {
	f := newFake([]uint64{0x1000, 0x1010, 0x1020}, exited0)
	f.stepErrAt = 2
	res, err := fakeEnv(t, time.Minute, f).Exec(nil)
	require.NoError(t, err)
	var traceErr *TraceError
	require.True(t, errors.As(res.TraceErr, &traceErr))
	assert.Equal(t, 2, traceErr.Steps)
	assert.ErrorIs(t, res.TraceErr, errFake)
	// Coverage collected before the failure is kept.
	assert.Equal(t, []int{0x100, 0x101, 0x102}, res.Cover.Buckets())
	assert.Equal(t, Normal, res.Outcome.Kind)
	killed, _, _ := f.state()
	assert.True(t, killed, "tracee was left stopped after a tracing failure")
}

func TestExecStartError(t *testing.T) {
	env := fakeEnv(t, time.Minute, nil)
	env.start = func(*exec.Cmd) (ptrace.Tracee, error) {
		return nil, syscall.EPERM
	}
	res, err := env.Exec([]byte("input"))
	assert.Nil(t, res)
	var setupErr *SetupError
	require.True(t, errors.As(err, &setupErr), "got %v", err)
	assert.Equal(t, "start", setupErr.Stage)
	assert.ErrorIs(t, err, syscall.EPERM)
}

func TestMakeEnvErrors(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain")
	require.NoError(t, osutil.WriteFile(plain, []byte("data")))
	exe := filepath.Join(dir, "exe")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0755))
	tests := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{"no-target", func(cfg *Config) { cfg.Target = "" }},
		{"missing-target", func(cfg *Config) { cfg.Target = filepath.Join(dir, "missing") }},
		{"not-executable", func(cfg *Config) { cfg.Target = plain }},
		{"directory", func(cfg *Config) { cfg.Target = dir }},
		{"zero-timeout", func(cfg *Config) { cfg.Timeout = 0 }},
		{"bad-cover-size", func(cfg *Config) { cfg.CoverSize = 1000 }},
		{"bad-cover-shift", func(cfg *Config) { cfg.CoverShift = 64 }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Target = exe
			cfg.Timeout = time.Second
			test.mutate(cfg)
			_, err := MakeEnv(cfg)
			assert.Error(t, err)
		})
	}
}
