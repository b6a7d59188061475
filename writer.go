// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package bsp360

import (
	"fmt"
	"io"
)

// WriteDocument writes doc to w in desktop BSP layout and returns the
// directory that was written. The directory is written with placeholder
// entries first and rewritten once every lump body is in place.
//
// The directory has one entry per lump of doc. Converted documents always
// have NumLumps lumps; read back a shorter one with ReadDirectory.
//
// Any error leaves w in an unusable state; WriteDocument makes no attempt to
// roll back.
func WriteDocument(w io.WriteSeeker, doc *Document, opts ...Option) (*Layout, error) {
	cfg := newConfig(opts)

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	t, err := newTracker(w)
	if err != nil {
		return nil, err
	}

	// Header and placeholder directory
	if err := writeLE(t, fileHeader{Magic: desktopMagic, Version: bspVersion}); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	placeholders := make([]lumpEntry, len(doc.Lumps))
	for i, lump := range doc.Lumps {
		placeholders[i].Version = lump.Version
	}

	dir, err := reserveDirectory(t, nil, placeholders)
	if err != nil {
		return nil, fmt.Errorf("reserve lump directory: %w", err)
	}

	trailer := headerTrailer{MapVersion: doc.MapVersion, Unknown: doc.Unknown}
	if err := writeLE(t, trailer); err != nil {
		return nil, fmt.Errorf("write header trailer: %w", err)
	}

	layout := &Layout{
		Version:    bspVersion,
		MapVersion: doc.MapVersion,
		Unknown:    doc.Unknown,
		Lumps:      make([]LumpInfo, len(doc.Lumps)),
	}

	// Lump bodies
	for i, lump := range doc.Lumps {
		s, games, err := writeLump(t, lump.Payload)
		if err != nil {
			return nil, fmt.Errorf("write lump %d (%s): %w", i, LumpType(i), err)
		}

		dir.Entries[i].Offset = s.Offset
		dir.Entries[i].Size = s.Size

		layout.Lumps[i] = LumpInfo{
			Offset:  s.Offset,
			Size:    s.Size,
			Version: lump.Version,
			Stored:  s.Stored,
		}
		if games != nil {
			layout.GameLumps = games
		}

		if s.Size > 0 {
			cfg.logger.Printf("Lump %d (%s) written at offset %d, size %d bytes", i, LumpType(i), s.Offset, s.Size)
		}
	}

	// Real directory
	if err := dir.backpatch(t); err != nil {
		return nil, fmt.Errorf("rewrite lump directory: %w", err)
	}

	layout.FileSize = t.end
	return layout, nil
}

// span is where a lump body landed
type span struct {
	Offset uint32
	Size   uint32 // Directory size
	Stored uint32 // Bytes physically written
}

// writeLump writes one top-level lump body. The game lump directory is the
// only payload that expands into nested entries.
func writeLump(t *tracker, p Payload) (span, []GameLumpInfo, error) {
	if games, ok := p.(GameLumps); ok {
		return writeGameLumps(t, games)
	}
	s, err := writeBody(t, p)
	return s, nil, err
}

// writeBody writes an empty, compressed or raw body at the cursor.
// Compressed bodies are written as stored but recorded with their
// uncompressed size, which is how the desktop directory describes them.
func writeBody(t *tracker, p Payload) (span, error) {
	if payloadLen(p) <= 0 {
		return span{}, nil
	}

	offset, err := t.offset32()
	if err != nil {
		return span{}, err
	}

	var data []byte
	var size int64

	switch p := p.(type) {
	case Compressed:
		data = p.Data
		size = int64(p.UncompressedSize)
	case Raw:
		data = p
		size = int64(len(p))
	case GameLumps:
		return span{}, fmt.Errorf("%w: nested game lump directory", ErrUnexpectedDocumentShape)
	default:
		return span{}, fmt.Errorf("%w: payload %T", ErrUnexpectedDocumentShape, p)
	}

	recorded, err := toUint32(size)
	if err != nil {
		return span{}, err
	}
	stored, err := toUint32(int64(len(data)))
	if err != nil {
		return span{}, err
	}

	if _, err := t.Write(data); err != nil {
		return span{}, fmt.Errorf("write lump data: %w", err)
	}

	if _, err := toUint32(t.cursor); err != nil {
		return span{}, err
	}

	return span{Offset: offset, Size: recorded, Stored: stored}, nil
}

// writeGameLumps writes the game lump count, placeholder entries and every
// sub-lump body, then rewrites the count and entries with real offsets. The
// lump's own size covers the count, the entries and all bodies.
func writeGameLumps(t *tracker, games GameLumps) (span, []GameLumpInfo, error) {
	start := t.cursor
	offset, err := t.offset32()
	if err != nil {
		return span{}, nil, err
	}

	placeholders := make([]gameLumpEntry, len(games))
	for i, sub := range games {
		placeholders[i] = gameLumpEntry{
			ID:      sub.ID,
			Flags:   sub.Flags,
			Version: sub.Version,
		}
	}

	dir, err := reserveDirectory(t, int32(len(games)), placeholders)
	if err != nil {
		return span{}, nil, fmt.Errorf("reserve game lump directory: %w", err)
	}

	infos := make([]GameLumpInfo, len(games))
	for i, sub := range games {
		s, err := writeBody(t, sub.Payload)
		if err != nil {
			return span{}, nil, fmt.Errorf("game lump %d (%s): %w", i, FourCC(sub.ID), err)
		}

		dir.Entries[i].Offset = s.Offset
		dir.Entries[i].Size = s.Size

		infos[i] = GameLumpInfo{
			ID:      sub.ID,
			Flags:   sub.Flags,
			Version: sub.Version,
			Offset:  s.Offset,
			Size:    s.Size,
			Stored:  s.Stored,
		}
	}

	size, err := toUint32(t.cursor - start)
	if err != nil {
		return span{}, nil, err
	}

	if err := dir.backpatch(t); err != nil {
		return span{}, nil, fmt.Errorf("rewrite game lump directory: %w", err)
	}

	return span{Offset: offset, Size: size, Stored: size}, infos, nil
}
