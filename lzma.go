// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package bsp360

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// Vendor LZMA lump header constants
const (
	// Magic "LZMA" in little-endian
	lzmaMagic = 0x414d5a4c

	// magic + actualSize + lzmaSize + 5 property bytes
	lzmaLumpHeaderSize = 17

	// 5 property bytes + 8-byte uncompressed size
	lzmaAloneHeaderSize = 13

	// Upper bound for trusting a stored size when sizing the output buffer
	maxPrealloc = 64 << 20
)

// lzmaLumpHeader prefixes every compressed lump in a console file. It stores
// a truncated form of the standard .lzma header.
type lzmaLumpHeader struct {
	Magic            uint32
	UncompressedSize uint32
	CompressedSize   uint32
	Properties       [5]byte
}

// DecodeLZMA decompresses an LZMA body stored without its standard header.
// The header is rebuilt from the five filter property bytes and the
// uncompressed size.
func DecodeLZMA(uncompressedSize uint64, props [5]byte, body []byte) ([]byte, error) {
	frame := make([]byte, lzmaAloneHeaderSize, lzmaAloneHeaderSize+len(body))
	copy(frame, props[:])
	binary.LittleEndian.PutUint64(frame[5:], uncompressedSize)
	frame = append(frame, body...)

	r, err := lzma.NewReader(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCompressedStream, err)
	}

	var out bytes.Buffer
	if uncompressedSize <= maxPrealloc {
		out.Grow(int(uncompressedSize))
	}
	if _, err := io.Copy(&out, r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCompressedStream, err)
	}

	if uint64(out.Len()) != uncompressedSize {
		return nil, fmt.Errorf("%w: decoded %d bytes, want %d", ErrMalformedCompressedStream, out.Len(), uncompressedSize)
	}

	return out.Bytes(), nil
}

// decode inflates a Compressed payload
func (c Compressed) decode() ([]byte, error) {
	return DecodeLZMA(c.UncompressedSize, c.Properties, c.Data)
}

// parseLZMALump splits a vendor compressed lump into its header fields and
// body. The magic and sizes are little-endian on both platforms.
func parseLZMALump(data []byte) (Compressed, error) {
	if len(data) < lzmaLumpHeaderSize {
		return Compressed{}, fmt.Errorf("%w: %d bytes is too short for an LZMA lump header", ErrMalformedCompressedStream, len(data))
	}

	var h lzmaLumpHeader
	if err := readLE(bytes.NewReader(data), &h); err != nil {
		return Compressed{}, fmt.Errorf("read LZMA lump header: %w", err)
	}

	if h.Magic != lzmaMagic {
		return Compressed{}, fmt.Errorf("%w: bad LZMA magic 0x%08X", ErrMalformedCompressedStream, h.Magic)
	}

	body := data[lzmaLumpHeaderSize:]
	if uint64(h.CompressedSize) > uint64(len(body)) {
		return Compressed{}, fmt.Errorf("%w: compressed size %d exceeds %d available bytes", ErrMalformedCompressedStream, h.CompressedSize, len(body))
	}

	return Compressed{
		UncompressedSize: uint64(h.UncompressedSize),
		Properties:       h.Properties,
		Data:             body[:h.CompressedSize],
	}, nil
}
