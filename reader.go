// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package bsp360

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ReadConsole reads a console BSP file into a Document.
//
// Uncompressed lumps are converted to desktop byte order. Compressed lumps
// are kept compressed unless WithInflate is given, in which case they are
// decompressed and converted as well. Lumps that cannot be converted are
// logged and left empty.
func ReadConsole(r io.ReadSeeker, opts ...Option) (*Document, error) {
	cfg := newConfig(opts)

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to header: %w", err)
	}

	var h consoleHeader
	if err := readBE(r, &h); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	if h.Magic != bspMagic || h.Version != bspVersion {
		return nil, fmt.Errorf("%w: magic 0x%08X version %d", ErrInvalidHeader, h.Magic, h.Version)
	}

	doc := &Document{
		Lumps:      make([]Lump, NumLumps),
		MapVersion: h.MapVersion,
	}

	for i, entry := range h.Lumps {
		lump := LumpType(i)
		payload, err := readConsoleLump(r, cfg, lump, entry)
		if err != nil {
			return nil, fmt.Errorf("lump %d (%s): %w", i, lump, err)
		}
		doc.Lumps[i] = Lump{Version: int32(entry.Version), Payload: payload}
	}

	return doc, nil
}

// readConsoleLump reads one top-level lump body.
func readConsoleLump(r io.ReadSeeker, cfg *config, lump LumpType, entry consoleLumpEntry) (Payload, error) {
	// The identifier flags compressed lumps and holds their uncompressed size
	if entry.Identifier > 0 {
		return readCompressedLump(r, cfg, lump, entry)
	}

	if entry.Length == 0 {
		return Empty{}, nil
	}

	if lump == LumpGame {
		return readGameLumps(r, cfg, entry)
	}

	data, err := readAt(r, int64(entry.Offset), int64(entry.Length))
	if err != nil {
		return nil, err
	}

	return swapOrDrop(cfg, lump, int32(entry.Version), data), nil
}

// readCompressedLump reads a vendor LZMA lump.
func readCompressedLump(r io.ReadSeeker, cfg *config, lump LumpType, entry consoleLumpEntry) (Payload, error) {
	if _, err := r.Seek(int64(entry.Offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to lump data: %w", err)
	}

	var h lzmaLumpHeader
	if err := readLE(r, &h); err != nil {
		return nil, fmt.Errorf("read LZMA lump header: %w", err)
	}
	if h.Magic != lzmaMagic {
		return nil, fmt.Errorf("%w: bad LZMA magic 0x%08X", ErrMalformedCompressedStream, h.Magic)
	}
	if h.UncompressedSize != entry.Identifier {
		return nil, fmt.Errorf("%w: uncompressed size mismatch %d != %d", ErrMalformedCompressedStream, entry.Identifier, h.UncompressedSize)
	}

	if uint64(h.CompressedSize)+lzmaLumpHeaderSize > uint64(entry.Length) {
		return nil, fmt.Errorf("%w: compressed size %d does not fit lump of %d bytes", ErrMalformedCompressedStream, h.CompressedSize, entry.Length)
	}

	body := make([]byte, h.CompressedSize)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read LZMA lump body: %w", err)
	}

	c := Compressed{
		UncompressedSize: uint64(h.UncompressedSize),
		Properties:       h.Properties,
		Data:             body,
	}

	if !cfg.inflate {
		return c, nil
	}

	if lump == LumpGame {
		cfg.logger.Printf("Lump %d: compressed game lump directory kept compressed", int(lump))
		return c, nil
	}

	data, err := c.decode()
	if err != nil {
		return nil, err
	}

	return swapOrDrop(cfg, lump, int32(entry.Version), data), nil
}

// swapOrDrop converts data to desktop byte order, or logs and returns Empty
// when the lump layout is unknown.
func swapOrDrop(cfg *config, lump LumpType, version int32, data []byte) Payload {
	if err := swapLump(lump, version, data); err != nil {
		cfg.logger.Printf("Lump %d: failed to byteswap data: %v", int(lump), err)
		return Empty{}
	}
	return Raw(data)
}

// readGameLumps reads the console game lump directory and its sub-lumps.
// Sub-lump contents are game specific and are copied without conversion.
func readGameLumps(r io.ReadSeeker, cfg *config, entry consoleLumpEntry) (Payload, error) {
	if _, err := r.Seek(int64(entry.Offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to game lump directory: %w", err)
	}

	var count int32
	if err := readBE(r, &count); err != nil {
		return nil, fmt.Errorf("read game lump count: %w", err)
	}
	if count < 0 || 4+int64(count)*gameLumpEntrySize > int64(entry.Length) {
		return nil, fmt.Errorf("%w: game lump count %d does not fit %d bytes", ErrUnexpectedDocumentShape, count, entry.Length)
	}

	entries := make([]consoleGameLumpEntry, count)
	if err := readBE(r, entries); err != nil {
		return nil, fmt.Errorf("read game lump directory: %w", err)
	}

	games := make(GameLumps, count)
	for i, e := range entries {
		sub := SubLump{
			Flags:   e.Flags,
			Version: e.Version,
			Payload: Empty{},
		}
		binary.LittleEndian.PutUint32(sub.ID[:], e.ID)

		if e.Length > 0 {
			payload, flags, err := readGameLumpBody(r, cfg, e)
			if err != nil {
				return nil, fmt.Errorf("game lump %d (%s): %w", i, sub.ID, err)
			}
			sub.Payload = payload
			sub.Flags = flags
		}

		games[i] = sub
	}

	return games, nil
}

// readGameLumpBody reads one sub-lump and returns its payload and the flags
// that describe it.
func readGameLumpBody(r io.ReadSeeker, cfg *config, e consoleGameLumpEntry) (Payload, uint16, error) {
	data, err := readAt(r, int64(e.Offset), int64(e.Length))
	if err != nil {
		return nil, 0, err
	}

	if e.Flags&gameLumpFlagCompressed == 0 {
		return Raw(data), e.Flags, nil
	}

	c, err := parseLZMALump(data)
	if err != nil {
		return nil, 0, err
	}

	if !cfg.inflate {
		return c, e.Flags, nil
	}

	inflated, err := c.decode()
	if err != nil {
		return nil, 0, err
	}
	return Raw(inflated), e.Flags &^ gameLumpFlagCompressed, nil
}

// readAt reads length bytes at offset
func readAt(r io.ReadSeeker, offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 {
		return nil, fmt.Errorf("invalid range %d+%d", offset, length)
	}
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to lump data: %w", err)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("lump data at %d+%d past end of file: %w", offset, length, err)
		}
		return nil, fmt.Errorf("read lump data: %w", err)
	}
	return data, nil
}
