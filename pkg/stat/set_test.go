// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package stat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet(t *testing.T) {
	s := newSet()
	runs := s.New("runs", "harness runs", Console)
	steps := s.New("steps", "steps per run", Distribution{})
	buckets := 0
	s.New("buckets", "covered buckets", func() int { return buckets })
	runs.Add(1)
	runs.Add(2)
	steps.Add(10)
	steps.Add(30)
	buckets = 42

	assert.Equal(t, 3, runs.Val())
	assert.Equal(t, 20, steps.Val())
	assert.InDelta(t, 30, steps.Quantile(1), 0.5)

	ui := s.Collect(All)
	require.Len(t, ui, 3)
	// Console metrics go first, then sorted by name.
	assert.Equal(t, "runs", ui[0].Name)
	assert.Equal(t, "buckets", ui[1].Name)
	assert.Equal(t, 42, ui[1].V)
	assert.Equal(t, "steps", ui[2].Name)

	ui = s.Collect(Console)
	require.Len(t, ui, 1)
	assert.Equal(t, "3", ui[0].Value)
}

func TestExternalAddPanics(t *testing.T) {
	s := newSet()
	v := s.New("ext", "", func() int { return 1 })
	assert.Panics(t, func() { v.Add(1) })
	assert.Panics(t, func() { s.New("bad", "", 42) })
}

func TestWriteTextfile(t *testing.T) {
	v := New("test exported", "metric exported in tests", Prometheus("syz_trace_test_exported"))
	v.Add(5)
	file := filepath.Join(t.TempDir(), "metrics", "trace.prom")
	require.NoError(t, WriteTextfile(file))
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "syz_trace_test_exported 5")
	assert.True(t, strings.Contains(Summary(All), "test exported"))
}
