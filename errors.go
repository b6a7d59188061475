// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package bsp360

import "errors"

var (
	// ErrMalformedCompressedStream is returned when an LZMA lump body or its
	// properties are rejected by the decompressor.
	ErrMalformedCompressedStream = errors.New("malformed compressed stream")

	// ErrUnexpectedDocumentShape is returned for documents the desktop
	// layout cannot express, such as a game lump index without a game lump
	// directory or a sub-lump that claims a nested directory.
	ErrUnexpectedDocumentShape = errors.New("unexpected document shape")

	// ErrInvalidHeader is returned when a file has the wrong magic or version.
	ErrInvalidHeader = errors.New("invalid BSP header")

	// ErrOffsetOverflow is returned when a lump lands past the 32-bit range
	// of the directory fields.
	ErrOffsetOverflow = errors.New("offset exceeds 32-bit directory range")
)
