// Copyright 2022 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package testutil

import (
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"
)

func IterCount() int {
	iters := 1000
	if testing.Short() {
		iters /= 10
	}
	if RaceEnabled {
		iters /= 10
	}
	return iters
}

func RandSource(t testing.TB) rand.Source {
	seed := time.Now().UnixNano()
	if fixed := os.Getenv("SYZ_SEED"); fixed != "" {
		seed, _ = strconv.ParseInt(fixed, 0, 64)
	}
	if os.Getenv("CI") != "" {
		seed = 0 // required for deterministic coverage reports
	}
	t.Logf("seed=%v", seed)
	return rand.NewSource(seed)
}

// BuildC compiles a C program into a binary in a temp dir and returns its path.
// The test is skipped if the platform can't trace or there is no C compiler.
// Static linking is preferred: it keeps the dynamic loader out of the single-stepped path.
func BuildC(t testing.TB, src string) string {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skipf("tracing is not supported on %v", runtime.GOOS)
	}
	cc := os.Getenv("CC")
	if cc == "" {
		cc = "cc"
	}
	if _, err := exec.LookPath(cc); err != nil {
		t.Skipf("no C compiler: %v", err)
	}
	dir := t.TempDir()
	srcFile := filepath.Join(dir, "target.c")
	if err := os.WriteFile(srcFile, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	bin := filepath.Join(dir, "target")
	var output []byte
	for _, link := range [][]string{{"-static"}, nil} {
		args := append([]string{"-O1", "-o", bin, srcFile}, link...)
		out, err := exec.Command(cc, args...).CombinedOutput()
		if err == nil {
			return bin
		}
		output = append(output, out...)
	}
	t.Fatalf("failed to build target:\n%s", output)
	return ""
}
