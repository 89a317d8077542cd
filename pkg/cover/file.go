// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package cover

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/syztrace/pkg/osutil"
	"github.com/ulikunitz/xz"
)

const xzExt = ".xz"

// WriteFile saves the raw bitmap. Files with the .xz extension are xz-compressed,
// which shrinks a mostly empty 64K bitmap to a few hundred bytes.
func (b *Bitmap) WriteFile(filename string) error {
	data := b.slots
	if strings.HasSuffix(filename, xzExt) {
		buf := new(bytes.Buffer)
		w, err := xz.NewWriter(buf)
		if err != nil {
			return fmt.Errorf("failed to create xz writer: %w", err)
		}
		if _, err := b.WriteTo(w); err != nil {
			return fmt.Errorf("failed to compress bitmap: %w", err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("failed to compress bitmap: %w", err)
		}
		data = buf.Bytes()
	}
	if err := osutil.WriteFile(filename, data); err != nil {
		return fmt.Errorf("failed to write bitmap: %w", err)
	}
	return nil
}

// ReadFile loads a bitmap written by WriteFile.
func ReadFile(filename string, shift uint) (*Bitmap, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read bitmap: %w", err)
	}
	if strings.HasSuffix(filename, xzExt) {
		r, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decompress bitmap: %w", err)
		}
		if data, err = io.ReadAll(r); err != nil {
			return nil, fmt.Errorf("failed to decompress bitmap: %w", err)
		}
	}
	return FromBytes(data, shift)
}
