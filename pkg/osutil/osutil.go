// Copyright 2017 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package osutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

const (
	DefaultDirPerm  = 0755
	DefaultFilePerm = 0644
)

// Command is similar to os/exec.Command, but also sets PDEATHSIG to SIGKILL on linux,
// so that a traced target never outlives the harness.
func Command(bin string, args ...string) *exec.Cmd {
	cmd := exec.Command(bin, args...)
	setPdeathsig(cmd, true)
	return cmd
}

// IsExist returns true if the file name exists.
func IsExist(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// IsExecutable checks that name is a regular file with at least one exec bit set.
func IsExecutable(name string) error {
	st, err := os.Stat(name)
	if err != nil {
		return fmt.Errorf("%v does not exist", name)
	}
	if !st.Mode().IsRegular() {
		return fmt.Errorf("%v is not a regular file", name)
	}
	if st.Mode().Perm()&0111 == 0 {
		return fmt.Errorf("%v is not executable", name)
	}
	return nil
}

// LongPipe creates a pipe with the largest buffer the OS lets us have.
// Small inputs then fit into the pipe before the target starts reading.
func LongPipe() (*os.File, *os.File, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	prolongPipe(r, w)
	return r, w, nil
}

func MkdirAll(dir string) error {
	return os.MkdirAll(dir, DefaultDirPerm)
}

// WriteFile writes data to filename, creating parent directories as needed.
func WriteFile(filename string, data []byte) error {
	if err := MkdirAll(filepath.Dir(filename)); err != nil {
		return err
	}
	return os.WriteFile(filename, data, DefaultFilePerm)
}

