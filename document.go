// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package bsp360

import (
	"fmt"
	"math"
)

// Document is a fully loaded console BSP, ready to be written in desktop
// layout. It must not be modified while it is being written.
type Document struct {
	Lumps      []Lump
	MapVersion uint32
	Unknown    uint32 // Reserved header field, copied verbatim
}

// Lump is one top-level lump of a Document.
type Lump struct {
	Version int32 // Copied verbatim into the directory entry
	Payload Payload
}

// SubLump is one entry of the game lump directory.
type SubLump struct {
	ID      FourCC
	Flags   uint16
	Version uint16
	Payload Payload
}

// Payload is the content of a lump or sub-lump. It is one of Empty, Raw,
// Compressed or GameLumps.
type Payload interface {
	// lenData is the logical uncompressed length of the content.
	// Zero or less means the lump is absent.
	lenData() int64
	payload()
}

// Empty is an absent lump.
type Empty struct{}

// Raw holds uncompressed lump bytes in desktop byte order.
type Raw []byte

// Compressed holds an LZMA-compressed lump body together with the fields
// needed to rebuild a standard stream header.
type Compressed struct {
	UncompressedSize uint64
	Properties       [5]byte
	Data             []byte
}

// GameLumps is the nested game lump directory. It is only valid at
// GameLumpIndex.
type GameLumps []SubLump

func (Empty) lenData() int64 { return 0 }
func (r Raw) lenData() int64 { return int64(len(r)) }
func (c Compressed) lenData() int64 { return int64(c.UncompressedSize) }

// lenData of a game lump directory is its serialized size; the count field
// alone makes it non-empty.
func (g GameLumps) lenData() int64 {
	n := int64(4 + gameLumpEntrySize*len(g))
	for _, sub := range g {
		switch p := sub.Payload.(type) {
		case Raw:
			n += int64(len(p))
		case Compressed:
			n += int64(len(p.Data))
		}
	}
	return n
}

func (Empty) payload()      {}
func (Raw) payload()        {}
func (Compressed) payload() {}
func (GameLumps) payload()  {}

// payloadLen returns lenData, treating a nil payload as empty.
func payloadLen(p Payload) int64 {
	if p == nil {
		return 0
	}
	return p.lenData()
}

// Validate checks that the document has a shape the desktop writer can
// express.
func (d *Document) Validate() error {
	if len(d.Lumps) > NumLumps {
		return fmt.Errorf("%w: %d lumps, directory holds %d", ErrUnexpectedDocumentShape, len(d.Lumps), NumLumps)
	}

	for i, lump := range d.Lumps {
		games, nested := lump.Payload.(GameLumps)

		if nested && i != GameLumpIndex {
			return fmt.Errorf("%w: lump %d has a game lump directory", ErrUnexpectedDocumentShape, i)
		}

		if i == GameLumpIndex && !nested {
			switch lump.Payload.(type) {
			case nil, Empty, Compressed:
			case Raw:
				if payloadLen(lump.Payload) > 0 {
					return fmt.Errorf("%w: lump %d is missing its game lump directory", ErrUnexpectedDocumentShape, i)
				}
			default:
				return fmt.Errorf("%w: lump %d has payload %T", ErrUnexpectedDocumentShape, i, lump.Payload)
			}
		}

		if err := checkUncompressedSize(lump.Payload); err != nil {
			return fmt.Errorf("lump %d: %w", i, err)
		}

		for j, sub := range games {
			if _, ok := sub.Payload.(GameLumps); ok {
				return fmt.Errorf("%w: game lump %d claims a nested directory", ErrUnexpectedDocumentShape, j)
			}
			if err := checkUncompressedSize(sub.Payload); err != nil {
				return fmt.Errorf("game lump %d: %w", j, err)
			}
		}
	}

	return nil
}

// checkUncompressedSize rejects compressed payloads whose size does not fit
// a directory entry.
func checkUncompressedSize(p Payload) error {
	if c, ok := p.(Compressed); ok && c.UncompressedSize > math.MaxUint32 {
		return fmt.Errorf("%w: uncompressed size %d", ErrOffsetOverflow, c.UncompressedSize)
	}
	return nil
}
