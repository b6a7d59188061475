// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package bsp360

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	errUnsupportedLump = errors.New("no byte order conversion for lump")
	errRecordSize      = errors.New("lump size is not a multiple of its record size")
	errTruncatedLump   = errors.New("lump is truncated")
)

// record lists the field widths of a fixed-size lump record in bytes.
// Fields of width 1 (bytes and padding) keep their order.
type record []int

func (r record) size() int {
	n := 0
	for _, w := range r {
		n += w
	}
	return n
}

// repeat returns n copies of fields
func repeat(n int, fields ...int) record {
	r := make(record, 0, n*len(fields))
	for i := 0; i < n; i++ {
		r = append(r, fields...)
	}
	return r
}

// join concatenates record fragments
func join(parts ...record) record {
	var r record
	for _, p := range parts {
		r = append(r, p...)
	}
	return r
}

// Record layouts of the structured lumps
var (
	recordBytes  = record{1}
	recordShorts = record{2}
	recordInts   = record{4}

	recordNode       = join(repeat(3, 4), repeat(10, 2))
	recordLeaf       = join(record{4}, repeat(13, 2), record{1, 1})
	recordFace       = record{2, 1, 1, 4, 2, 2, 2, 2, 1, 1, 1, 1, 4, 4, 4, 4, 4, 4, 4, 2, 2, 4}
	recordAreaPortal = record{2, 2, 2, 2, 4}
	recordPrimitive  = record{1, 1, 2, 2, 2, 2}
	recordLeafWater  = record{4, 4, 2, 1, 1}
	recordDispInfo   = join(
		repeat(9, 4),                // start position, first vert/tri, power, min tess, smoothing angle, contents
		record{2, 1, 1},             // map face, padding
		repeat(2, 4),                // lightmap alpha, lightmap sample position
		repeat(8, 2, 1, 1, 1, 1),    // edge neighbors
		repeat(4, 2, 2, 2, 2, 1, 1), // corner neighbors
		repeat(10, 4),               // allowed verts
	)
	recordOverlay = join(record{4, 2, 2}, repeat(64, 4), repeat(4+12+3+3, 4))
)

// lumpRecords maps lumps made of fixed-size records to their layout.
var lumpRecords = map[LumpType]record{
	0:  recordBytes, // entities
	8:  recordBytes, // lighting
	34: recordBytes, // displacement lightmap sample positions
	43: recordBytes, // texdata string data
	53: recordBytes, // hdr lighting
	55: recordBytes, // hdr ambient lighting
	56: recordBytes, // ldr ambient lighting

	11: recordShorts, // face ids
	12: recordShorts, // edges
	16: recordShorts, // leaf faces
	17: recordShorts, // leaf brushes
	19: recordShorts, // brush sides
	31: recordShorts, // vertex normal indices
	39: recordShorts, // primitive indices
	46: recordShorts, // leaf min distance to water
	47: recordShorts, // face macro texture info
	48: recordShorts, // displacement triangles
	51: recordShorts, // hdr ambient index
	52: recordShorts, // ldr ambient index

	1:  recordInts, // planes
	2:  recordInts, // texdata
	3:  recordInts, // vertexes
	6:  recordInts, // texinfo
	13: recordInts, // surfedges
	14: recordInts, // models
	15: recordInts, // world lights
	18: recordInts, // brushes
	20: recordInts, // areas
	30: recordInts, // vertex normals
	33: recordInts, // displacement vertices
	38: recordInts, // primitive vertices
	41: recordInts, // clip portal vertices
	42: recordInts, // cubemaps
	44: recordInts, // texdata string table
	54: recordInts, // hdr world lights
	59: recordInts, // map flags
	60: recordInts, // overlay fades

	5:  recordNode,
	7:  recordFace,
	10: recordLeaf,
	21: recordAreaPortal,
	26: recordDispInfo,
	27: recordFace, // original faces
	36: recordLeafWater,
	37: recordPrimitive,
	45: recordOverlay,
	58: recordFace, // hdr faces
}

// swapLump converts a console lump body to desktop byte order in place.
func swapLump(lump LumpType, version int32, data []byte) error {
	if rec, ok := lumpRecords[lump]; ok {
		return swapRecords(data, rec)
	}

	switch lump {
	case LumpVisibility:
		return swapVisibility(data)
	case LumpOcclusion:
		return swapOcclusion(data, version)
	case LumpPhysDisp:
		return swapPhysDisp(data)
	case LumpPhysCollide:
		return swapPhysCollide(data)
	}

	return fmt.Errorf("%w %d (%s)", errUnsupportedLump, int(lump), lump)
}

func swapRecords(data []byte, rec record) error {
	size := rec.size()
	if len(data)%size != 0 {
		return fmt.Errorf("%w: %d bytes, record is %d", errRecordSize, len(data), size)
	}
	if size == 1 {
		return nil
	}
	for off := 0; off < len(data); off += size {
		p := off
		for _, w := range rec {
			swapField(data[p : p+w])
			p += w
		}
	}
	return nil
}

// swapField reverses the bytes of one field
func swapField(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

// swapCursor walks a variable-layout lump, swapping fields as it goes.
type swapCursor struct {
	data []byte
	pos  int
}

// seek moves to an absolute position inside the lump
func (c *swapCursor) seek(pos int) error {
	if pos < 0 || pos > len(c.data) {
		return errTruncatedLump
	}
	c.pos = pos
	return nil
}

// words swaps n fields of the given width
func (c *swapCursor) words(n, width int) error {
	end := c.pos + n*width
	if n < 0 || end > len(c.data) {
		return errTruncatedLump
	}
	for ; c.pos < end; c.pos += width {
		swapField(c.data[c.pos : c.pos+width])
	}
	return nil
}

// count swaps a 32-bit count and returns its desktop value
func (c *swapCursor) count() (int, error) {
	if err := c.words(1, 4); err != nil {
		return 0, err
	}
	n := int32(binary.LittleEndian.Uint32(c.data[c.pos-4:]))
	if n < 0 {
		return 0, errTruncatedLump
	}
	return int(n), nil
}

// swapVisibility converts the cluster count and the per-cluster PVS/PAS
// offsets; the compressed bit vectors are bytes.
func swapVisibility(data []byte) error {
	c := &swapCursor{data: data}
	clusters, err := c.count()
	if err != nil {
		return err
	}
	return c.words(clusters*2, 4)
}

// swapOcclusion converts the occluder, polygon and vertex index tables.
// Version 1 occluders carry an extra area field.
func swapOcclusion(data []byte, version int32) error {
	c := &swapCursor{data: data}

	occluderFields := 9
	if version >= 1 {
		occluderFields = 10
	}

	occluders, err := c.count()
	if err != nil {
		return err
	}
	if err := c.words(occluders*occluderFields, 4); err != nil {
		return err
	}

	polys, err := c.count()
	if err != nil {
		return err
	}
	if err := c.words(polys*3, 4); err != nil {
		return err
	}

	indices, err := c.count()
	if err != nil {
		return err
	}
	return c.words(indices, 4)
}

// swapPhysDisp converts the displacement count and the per-displacement
// data sizes; the collision data itself is left as is.
func swapPhysDisp(data []byte) error {
	c := &swapCursor{data: data}
	if err := c.words(1, 2); err != nil {
		return err
	}
	n := int(binary.LittleEndian.Uint16(data))
	return c.words(n, 2)
}
