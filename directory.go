// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package bsp360

import "fmt"

// deferredDirectory is a fixed-size directory region that is written with
// placeholder entries first and rewritten once the bodies it points at are
// known. An optional prefix (such as an entry count) is written in front of
// the entries on both passes.
type deferredDirectory[E any] struct {
	offset  int64
	prefix  any
	Entries []E
}

// reserveDirectory writes prefix and placeholder entries at the cursor and
// returns the region for a later backpatch.
func reserveDirectory[E any](t *tracker, prefix any, placeholders []E) (*deferredDirectory[E], error) {
	d := &deferredDirectory[E]{
		offset:  t.cursor,
		prefix:  prefix,
		Entries: placeholders,
	}
	if err := d.write(t); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *deferredDirectory[E]) write(t *tracker) error {
	if d.prefix != nil {
		if err := writeLE(t, d.prefix); err != nil {
			return fmt.Errorf("write directory prefix: %w", err)
		}
	}
	for i := range d.Entries {
		if err := writeLE(t, &d.Entries[i]); err != nil {
			return fmt.Errorf("write directory entry %d: %w", i, err)
		}
	}
	return nil
}

// backpatch rewrites the region with its current entries and returns the
// cursor to the end of written data.
func (d *deferredDirectory[E]) backpatch(t *tracker) error {
	if err := t.seek(d.offset); err != nil {
		return err
	}
	if err := d.write(t); err != nil {
		return err
	}
	return t.seekEnd()
}
