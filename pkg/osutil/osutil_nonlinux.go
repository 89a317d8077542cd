// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

//go:build !linux

package osutil

import (
	"os"
	"os/exec"
)

func setPdeathsig(cmd *exec.Cmd, hardKill bool) {
}

func prolongPipe(r, w *os.File) {
}

func PipeCapacity(w *os.File) int {
	return 0
}

func WithoutASLR(fn func() error) error {
	return fn()
}
