// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package bsp360

import (
	"fmt"
	"io"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Layout describes the directory of a desktop BSP file.
type Layout struct {
	Version    uint32
	MapVersion uint32
	Unknown    uint32
	Lumps      []LumpInfo
	GameLumps  []GameLumpInfo
	FileSize   int64
}

// LumpInfo is one top-level directory entry.
type LumpInfo struct {
	Offset  uint32
	Size    uint32
	Version int32
	Stored  uint32 // Physical length; differs from Size for compressed lumps
}

// GameLumpInfo is one game lump directory entry.
type GameLumpInfo struct {
	ID      FourCC
	Flags   uint16
	Version uint16
	Offset  uint32
	Size    uint32
	Stored  uint32
}

// Range is a byte range occupied by a lump, a game lump or the header.
type Range struct {
	Name   string
	Offset int64
	Length int64
}

// End returns the first offset past the range.
func (r Range) End() int64 {
	return r.Offset + r.Length
}

// ReadLayout reads the directory of a desktop BSP file, including the game
// lump directory when the game lump is present. Stored lengths are not
// recorded in the file, so they are taken to be equal to the sizes.
func ReadLayout(r io.ReaderAt, size int64) (*Layout, error) {
	return ReadDirectory(r, size, NumLumps)
}

// ReadDirectory is ReadLayout for a file written from a Document with
// numLumps lumps. The file does not record its lump count.
func ReadDirectory(r io.ReaderAt, size int64, numLumps int) (*Layout, error) {
	if numLumps < 0 || numLumps > NumLumps {
		return nil, fmt.Errorf("%w: %d lumps", ErrUnexpectedDocumentShape, numLumps)
	}

	sr := io.NewSectionReader(r, 0, size)

	var h fileHeader
	if err := readLE(sr, &h); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if h.Magic != desktopMagic || h.Version != bspVersion {
		return nil, fmt.Errorf("%w: magic %q version %d", ErrInvalidHeader, h.Magic[:], h.Version)
	}

	entries := make([]lumpEntry, numLumps)
	if err := readLE(sr, entries); err != nil {
		return nil, fmt.Errorf("read lump directory: %w", err)
	}

	var trailer headerTrailer
	if err := readLE(sr, &trailer); err != nil {
		return nil, fmt.Errorf("read header trailer: %w", err)
	}

	layout := &Layout{
		Version:    h.Version,
		MapVersion: trailer.MapVersion,
		Unknown:    trailer.Unknown,
		Lumps:      make([]LumpInfo, numLumps),
		FileSize:   size,
	}
	for i, e := range entries {
		layout.Lumps[i] = LumpInfo{Offset: e.Offset, Size: e.Size, Version: e.Version, Stored: e.Size}
	}

	if numLumps <= GameLumpIndex {
		return layout, nil
	}
	games := entries[GameLumpIndex]
	if games.Size == 0 {
		return layout, nil
	}

	gr := io.NewSectionReader(r, int64(games.Offset), int64(games.Size))
	var count int32
	if err := readLE(gr, &count); err != nil {
		return nil, fmt.Errorf("read game lump count: %w", err)
	}
	if count < 0 || 4+int64(count)*gameLumpEntrySize > int64(games.Size) {
		return nil, fmt.Errorf("%w: game lump count %d", ErrUnexpectedDocumentShape, count)
	}

	gameEntries := make([]gameLumpEntry, count)
	if err := readLE(gr, gameEntries); err != nil {
		return nil, fmt.Errorf("read game lump directory: %w", err)
	}

	layout.GameLumps = make([]GameLumpInfo, count)
	for i, e := range gameEntries {
		layout.GameLumps[i] = GameLumpInfo{
			ID:      FourCC(e.ID),
			Flags:   e.Flags,
			Version: e.Version,
			Offset:  e.Offset,
			Size:    e.Size,
			Stored:  e.Size,
		}
	}

	return layout, nil
}

// Ranges lists every occupied byte range in file order: the header, the
// non-empty lumps other than the game lump, the game lump directory and the
// non-empty game lump bodies.
func (l *Layout) Ranges() []Range {
	ranges := []Range{{
		Name:   "header",
		Offset: 0,
		Length: int64(headerSize + lumpEntrySize*len(l.Lumps) + 8),
	}}

	for i, lump := range l.Lumps {
		if lump.Size == 0 && lump.Offset == 0 {
			continue
		}
		if i == GameLumpIndex && l.GameLumps != nil {
			ranges = append(ranges, Range{
				Name:   "game lump directory",
				Offset: int64(lump.Offset),
				Length: int64(4 + gameLumpEntrySize*len(l.GameLumps)),
			})
			continue
		}
		ranges = append(ranges, Range{
			Name:   fmt.Sprintf("lump %d (%s)", i, LumpType(i)),
			Offset: int64(lump.Offset),
			Length: int64(lump.Stored),
		})
	}

	for _, g := range l.GameLumps {
		if g.Size == 0 && g.Offset == 0 {
			continue
		}
		ranges = append(ranges, Range{
			Name:   fmt.Sprintf("game lump %s", g.ID),
			Offset: int64(g.Offset),
			Length: int64(g.Stored),
		})
	}

	sort.SliceStable(ranges, func(i, j int) bool {
		return ranges[i].Offset < ranges[j].Offset
	})
	return ranges
}

// Check reports the first range that lies outside the file or overlaps the
// range before it.
func (l *Layout) Check() error {
	var prev *Range
	ranges := l.Ranges()
	for i := range ranges {
		r := &ranges[i]
		if r.Offset < 0 || r.End() > l.FileSize {
			return fmt.Errorf("%s [%d, %d) outside file of %d bytes", r.Name, r.Offset, r.End(), l.FileSize)
		}
		if prev != nil && r.Offset < prev.End() {
			return fmt.Errorf("%s [%d, %d) overlaps %s [%d, %d)", r.Name, r.Offset, r.End(), prev.Name, prev.Offset, prev.End())
		}
		prev = r
	}
	return nil
}

// Lump returns the bytes stored for top-level lump i.
func (l *Layout) Lump(r io.ReaderAt, i int) ([]byte, error) {
	if i < 0 || i >= len(l.Lumps) {
		return nil, fmt.Errorf("lump index %d out of range", i)
	}
	e := l.Lumps[i]
	return readRange(r, int64(e.Offset), int64(e.Stored))
}

// GameLump returns the bytes stored for the game lump with the given id.
func (l *Layout) GameLump(r io.ReaderAt, id FourCC) ([]byte, error) {
	for _, g := range l.GameLumps {
		if g.ID == id {
			return readRange(r, int64(g.Offset), int64(g.Stored))
		}
	}
	return nil, fmt.Errorf("game lump not found: %s", id)
}

// Sum64 returns the xxHash64 digest of the bytes stored for lump i. Two
// conversions of the same map can be compared lump by lump this way.
func (l *Layout) Sum64(r io.ReaderAt, i int) (uint64, error) {
	data, err := l.Lump(r, i)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}

func readRange(r io.ReaderAt, offset, length int64) ([]byte, error) {
	buf := make([]byte, length)
	if length == 0 {
		return buf, nil
	}
	if n, err := r.ReadAt(buf, offset); n < len(buf) {
		return nil, fmt.Errorf("read %d bytes at %d: %w", length, offset, err)
	}
	return buf, nil
}
