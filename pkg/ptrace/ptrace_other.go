// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

//go:build !linux

package ptrace

import (
	"os/exec"
)

func Start(cmd *exec.Cmd) (Tracee, error) {
	return nil, ErrUnsupported
}
