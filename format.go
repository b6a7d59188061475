// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package bsp360

import (
	"encoding/binary"
	"io"
)

// BSP format constants
const (
	// Magic "VBSP" as read with the file's own byte order
	bspMagic = 0x50534256

	// Both platforms share the same BSP version
	bspVersion = 20

	// Number of entries in the top-level lump directory
	NumLumps = 64

	// GameLumpIndex is the lump that carries the nested game lump directory.
	GameLumpIndex = 35

	// Game lump flag marking an LZMA-compressed sub-lump
	gameLumpFlagCompressed = 0x0001

	// Record sizes
	headerSize        = 8  // magic + version
	lumpEntrySize     = 16 // offset, size, version, reserved
	gameLumpEntrySize = 16 // id, flags, version, offset, size
)

// desktopMagic is the 4-byte tag that opens a desktop BSP file.
var desktopMagic = [4]byte{'V', 'B', 'S', 'P'}

// fileHeader opens a desktop BSP file.
type fileHeader struct {
	Magic   [4]byte
	Version uint32
}

// lumpEntry is one entry of the desktop top-level directory.
type lumpEntry struct {
	Offset   uint32 // Absolute file offset (0 for empty lumps)
	Size     uint32 // Lump size (uncompressed size for compressed lumps)
	Version  int32  // Lump format version
	Reserved uint32 // Always 0 on output
}

// headerTrailer follows the top-level directory.
type headerTrailer struct {
	MapVersion uint32
	Unknown    uint32
}

// gameLumpEntry is one entry of the nested game lump directory.
type gameLumpEntry struct {
	ID      [4]byte
	Flags   uint16
	Version uint16
	Offset  uint32
	Size    uint32
}

// consoleLumpEntry is one entry of the console directory. A non-zero
// Identifier marks the lump as LZMA-compressed and holds its uncompressed size.
type consoleLumpEntry struct {
	Offset     uint32
	Length     uint32
	Version    uint32
	Identifier uint32
}

// consoleHeader is the big-endian header of a console BSP file.
type consoleHeader struct {
	Magic      uint32
	Version    uint32
	Lumps      [NumLumps]consoleLumpEntry
	MapVersion uint32
}

// consoleGameLumpEntry is one big-endian entry of the console game lump
// directory. Offsets are absolute in the source file.
type consoleGameLumpEntry struct {
	ID      uint32
	Flags   uint16
	Version uint16
	Offset  int32
	Length  int32
}

// lumpDirectoryOffset is where the top-level directory starts.
const lumpDirectoryOffset = headerSize

// writeLE writes fixed-size values in desktop byte order
func writeLE(w io.Writer, data any) error {
	return binary.Write(w, binary.LittleEndian, data)
}

// readBE reads fixed-size values in console byte order
func readBE(r io.Reader, data any) error {
	return binary.Read(r, binary.BigEndian, data)
}

// readLE reads fixed-size values in desktop byte order
func readLE(r io.Reader, data any) error {
	return binary.Read(r, binary.LittleEndian, data)
}
