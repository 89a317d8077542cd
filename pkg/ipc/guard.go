// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package ipc

import (
	"time"
)

// guard kills the tracee when the run takes longer than the timeout.
// It only touches the kill func, so it can fire between any two tracer steps.
// The guard counts as fired only if kill succeeds: a tracee that is already
// reaped when the deadline expires has finished in time.
type guard struct {
	done  chan struct{}
	fired chan bool
}

func armGuard(timeout time.Duration, kill func() error) *guard {
	g := &guard{
		done:  make(chan struct{}),
		fired: make(chan bool, 1),
	}
	go func() {
		t := time.NewTimer(timeout)
		select {
		case <-t.C:
			g.fired <- kill() == nil
		case <-g.done:
			t.Stop()
			g.fired <- false
		}
	}()
	return g
}

// disarm stops the guard and reports whether the deadline has expired.
// It must be called exactly once.
func (g *guard) disarm() bool {
	close(g.done)
	return <-g.fired
}
