// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package bsp360

import (
	"fmt"
	"io"
	"math"
)

// tracker wraps the destination stream and keeps the write cursor and the
// end of written data apart, so a backpatch never loses the append point.
type tracker struct {
	w      io.WriteSeeker
	cursor int64 // Where the next write lands
	end    int64 // High-water mark of written bytes
}

// newTracker rewinds w; the BSP file starts at offset 0 of the stream.
func newTracker(w io.WriteSeeker) (*tracker, error) {
	if _, err := w.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to stream start: %w", err)
	}
	return &tracker{w: w}, nil
}

// Write implements io.Writer.
func (t *tracker) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	t.cursor += int64(n)
	if t.cursor > t.end {
		t.end = t.cursor
	}
	return n, err
}

// seek moves the cursor to an absolute offset
func (t *tracker) seek(offset int64) error {
	if offset == t.cursor {
		return nil
	}
	if _, err := t.w.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek to %d: %w", offset, err)
	}
	t.cursor = offset
	return nil
}

// seekEnd returns the cursor to the end of written data
func (t *tracker) seekEnd() error {
	return t.seek(t.end)
}

// offset32 returns the cursor as a directory offset
func (t *tracker) offset32() (uint32, error) {
	return toUint32(t.cursor)
}

// toUint32 narrows a file position or size to a directory field
func toUint32(v int64) (uint32, error) {
	if v < 0 || v > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d", ErrOffsetOverflow, v)
	}
	return uint32(v), nil
}
