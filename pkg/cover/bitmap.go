// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package cover implements the per-run coverage bitmap.
//
// Every sampled instruction pointer is folded into a fixed number of buckets:
// the bucket index is (pc >> shift) & (size - 1). A bucket is set at most once
// per run and there are no hit counts, so the bitmap is exactly the set of
// address buckets the target visited.
package cover

import (
	"fmt"
	"io"
	"math/bits"

	"github.com/google/syztrace/pkg/hash"
)

const (
	DefaultSize  = 1 << 16
	DefaultShift = 4
)

type Bitmap struct {
	slots []byte
	mask  uint64
	shift uint
	count int
}

// New returns an empty bitmap. Size must be a power of two.
func New(size int, shift uint) *Bitmap {
	if err := Validate(size, shift); err != nil {
		panic(err)
	}
	return &Bitmap{
		slots: make([]byte, size),
		mask:  uint64(size - 1),
		shift: shift,
	}
}

// Validate checks bitmap parameters.
func Validate(size int, shift uint) error {
	if size <= 0 || bits.OnesCount(uint(size)) != 1 {
		return fmt.Errorf("bitmap size %v is not a power of two", size)
	}
	if shift >= 64 {
		return fmt.Errorf("bitmap shift %v is too large", shift)
	}
	return nil
}

// Index returns the bucket for pc. It is always in [0, Size()).
func (b *Bitmap) Index(pc uint64) int {
	return int((pc >> b.shift) & b.mask)
}

// Add marks the bucket of pc as visited and returns true if it was not visited before.
func (b *Bitmap) Add(pc uint64) bool {
	idx := b.Index(pc)
	if b.slots[idx] != 0 {
		return false
	}
	b.slots[idx] = 1
	b.count++
	return true
}

// Len returns the number of visited buckets.
func (b *Bitmap) Len() int {
	return b.count
}

func (b *Bitmap) Size() int {
	return len(b.slots)
}

// Buckets returns visited bucket indices in increasing order.
func (b *Bitmap) Buckets() []int {
	res := make([]int, 0, b.count)
	for i, v := range b.slots {
		if v != 0 {
			res = append(res, i)
		}
	}
	return res
}

// Diff returns buckets visited in b, but not in other.
// Bitmaps of different geometry are not comparable and Diff panics on them.
func (b *Bitmap) Diff(other *Bitmap) []int {
	if len(b.slots) != len(other.slots) || b.shift != other.shift {
		panic(fmt.Sprintf("diffing bitmaps of different geometry: %v>>%v vs %v>>%v",
			len(b.slots), b.shift, len(other.slots), other.shift))
	}
	var res []int
	for i, v := range b.slots {
		if v != 0 && other.slots[i] == 0 {
			res = append(res, i)
		}
	}
	return res
}

// Equal reports whether both bitmaps have the same geometry and visited buckets.
func (b *Bitmap) Equal(other *Bitmap) bool {
	if len(b.slots) != len(other.slots) || b.shift != other.shift || b.count != other.count {
		return false
	}
	for i, v := range b.slots {
		if v != other.slots[i] {
			return false
		}
	}
	return true
}

// Sig is a fingerprint of the visited bucket set, handy for comparing runs in logs.
func (b *Bitmap) Sig() string {
	return hash.String(b.slots)
}

// WriteTo writes the raw bitmap: one byte per bucket, 1 if visited.
func (b *Bitmap) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.slots)
	return int64(n), err
}

// FromBytes restores a bitmap from its raw form.
func FromBytes(data []byte, shift uint) (*Bitmap, error) {
	if err := Validate(len(data), shift); err != nil {
		return nil, err
	}
	b := New(len(data), shift)
	for i, v := range data {
		switch v {
		case 0:
		case 1:
			b.slots[i] = 1
			b.count++
		default:
			return nil, fmt.Errorf("bad bitmap byte 0x%x at %v", v, i)
		}
	}
	return b, nil
}
