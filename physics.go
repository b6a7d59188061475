// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package bsp360

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Physics collision solid layout
const (
	physSolidMagic   = 0x59485056 // "VPHY"
	physSolidVersion = 0x100

	physSolidHeaderSize    = 8  // magic, version, type
	physSurfaceHeaderSize  = 20 // surface size, inertia axis, axis size
	physCompactSurfaceSize = 36
	physLedgetreeNodeSize  = 28
	physCompactLedgeSize   = 16
	physTriangleSize       = 16
	physPointSize          = 16

	maxLedgetreeDepth = 1024
)

// Collision solid types
const (
	physSolidPoly = iota
	physSolidMOPP
	physSolidBall
	physSolidVirtual
)

var (
	errUnsupportedSolid = errors.New("unsupported collision solid")
	errCorruptCollision = errors.New("corrupt collision data")
)

// swapPhysCollide converts the physics collision lump: a run of models, each
// a header, its solids (each prefixed by its size) and a key data text block,
// ended by a model with a negative index. Only polygon solids are supported.
func swapPhysCollide(data []byte) error {
	c := &swapCursor{data: data}

	for c.pos < len(data) {
		header := c.pos
		if err := c.words(4, 4); err != nil {
			return err
		}
		modelIndex := int32At(data, header)
		dataSize := int32At(data, header+4)
		keySize := int32At(data, header+8)
		solids := int32At(data, header+12)
		if modelIndex < 0 || dataSize < 0 {
			break
		}
		if keySize < 0 || solids < 0 {
			return fmt.Errorf("%w: model %d has %d solids and %d bytes of key data",
				errCorruptCollision, modelIndex, solids, keySize)
		}

		for i := 0; i < int(solids); i++ {
			size, err := c.count()
			if err != nil {
				return err
			}
			if size > len(data)-c.pos {
				return errTruncatedLump
			}
			s := newPhysSolid(data[c.pos : c.pos+size])
			if err := s.swap(); err != nil {
				return fmt.Errorf("model %d solid %d: %w", modelIndex, i, err)
			}
			c.pos += size
		}

		// Key data is text
		if int(keySize) > len(data)-c.pos {
			return errTruncatedLump
		}
		c.pos += int(keySize)
	}
	return nil
}

// physSolid walks one collision solid. Offsets inside the solid are relative
// to the structure holding them and must stay within the solid.
type physSolid struct {
	swapCursor
	nodes  map[int]bool
	ledges map[int]bool
	points map[int]bool
}

func newPhysSolid(data []byte) *physSolid {
	return &physSolid{
		swapCursor: swapCursor{data: data},
		nodes:      make(map[int]bool),
		ledges:     make(map[int]bool),
		points:     make(map[int]bool),
	}
}

// swapAt swaps n fields of the given width starting at pos
func (s *physSolid) swapAt(pos, n, width int) error {
	if err := s.seek(pos); err != nil {
		return err
	}
	return s.words(n, width)
}

// field returns the 4 bytes at pos
func (s *physSolid) field(pos int) ([]byte, error) {
	if pos < 0 || pos+4 > len(s.data) {
		return nil, errTruncatedLump
	}
	return s.data[pos : pos+4], nil
}

// need checks that the structure of the given size at pos is inside the solid
func (s *physSolid) need(pos, size int) error {
	if pos < 0 || pos+size > len(s.data) {
		return errTruncatedLump
	}
	return nil
}

func (s *physSolid) swap() error {
	if err := s.swapAt(0, 1, 4); err != nil {
		return err
	}
	if err := s.swapAt(4, 2, 2); err != nil {
		return err
	}
	magic := binary.LittleEndian.Uint32(s.data)
	version := binary.LittleEndian.Uint16(s.data[4:])
	kind := binary.LittleEndian.Uint16(s.data[6:])
	if magic != physSolidMagic || version != physSolidVersion {
		return fmt.Errorf("%w: solid magic 0x%08X version 0x%X", errCorruptCollision, magic, version)
	}

	switch kind {
	case physSolidPoly:
		return s.swapPoly()
	case physSolidMOPP:
		return fmt.Errorf("%w: MOPP", errUnsupportedSolid)
	case physSolidBall:
		return fmt.Errorf("%w: ball", errUnsupportedSolid)
	case physSolidVirtual:
		return fmt.Errorf("%w: virtual", errUnsupportedSolid)
	default:
		return fmt.Errorf("%w: type %d", errUnsupportedSolid, kind)
	}
}

func (s *physSolid) swapPoly() error {
	surface := physSolidHeaderSize
	// surface size, inertia axis, axis size
	if err := s.swapAt(surface, 5, 4); err != nil {
		return err
	}
	surfaceSize := int32At(s.data, surface)

	compact := surface + physSurfaceHeaderSize
	if err := s.need(compact, physCompactSurfaceSize); err != nil {
		return err
	}
	// mass center, rotation inertia, upper limit radius
	if err := s.swapAt(compact, 7, 4); err != nil {
		return err
	}

	// The low byte holds the surface deviation factor, the rest the byte size
	bits, _ := s.field(compact + 28)
	raw := binary.LittleEndian.Uint32(bits)
	var size [4]byte
	binary.BigEndian.PutUint32(size[:], raw&0xFFFFFF00)
	byteSize := binary.LittleEndian.Uint32(size[:])
	binary.LittleEndian.PutUint32(bits, byteSize<<8|raw&0xFF)
	if int64(byteSize) != int64(surfaceSize) {
		return fmt.Errorf("%w: compact surface is %d bytes, surface header says %d",
			errCorruptCollision, byteSize, surfaceSize)
	}

	if err := s.swapAt(compact+32, 1, 4); err != nil {
		return err
	}
	root := compact + int(int32At(s.data, compact+32))
	return s.swapNode(root, 0)
}

// swapNode converts a ledge tree node and its children. A node with a right
// child has its left child directly after it.
func (s *physSolid) swapNode(pos, depth int) error {
	if depth > maxLedgetreeDepth {
		return fmt.Errorf("%w: ledge tree deeper than %d", errCorruptCollision, maxLedgetreeDepth)
	}
	if s.nodes[pos] {
		return fmt.Errorf("%w: ledge tree node at %d reached twice", errCorruptCollision, pos)
	}
	if err := s.need(pos, physLedgetreeNodeSize); err != nil {
		return err
	}
	s.nodes[pos] = true

	// right node, compact ledge, center, radius
	if err := s.swapAt(pos, 6, 4); err != nil {
		return err
	}
	right := int(int32At(s.data, pos))
	ledge := int(int32At(s.data, pos+4))

	if ledge != 0 {
		if err := s.swapLedge(pos + ledge); err != nil {
			return err
		}
	}
	if right == 0 {
		return nil
	}
	if right < physLedgetreeNodeSize {
		return fmt.Errorf("%w: right node offset %d", errCorruptCollision, right)
	}
	if err := s.swapNode(pos+physLedgetreeNodeSize, depth+1); err != nil {
		return err
	}
	return s.swapNode(pos+right, depth+1)
}

func (s *physSolid) swapLedge(pos int) error {
	if s.ledges[pos] {
		return nil
	}
	if err := s.need(pos, physCompactLedgeSize); err != nil {
		return err
	}
	s.ledges[pos] = true

	// point array, ledge tree node
	if err := s.swapAt(pos, 2, 4); err != nil {
		return err
	}
	bits, _ := s.field(pos + 8)
	raw := binary.LittleEndian.Uint32(bits)
	flags := raw << 24
	binary.BigEndian.PutUint32(bits,
		(flags&0x03000000)<<6|(flags&0x0C000000)<<2|(flags&0xF0000000)>>4|raw>>8)
	// triangle count, reserved
	if err := s.swapAt(pos+12, 2, 2); err != nil {
		return err
	}

	points := pos + int(int32At(s.data, pos))
	triangles := int(int16(binary.LittleEndian.Uint16(s.data[pos+12:])))
	if triangles < 0 {
		return fmt.Errorf("%w: ledge has %d triangles", errCorruptCollision, triangles)
	}

	for i := 0; i < triangles; i++ {
		tri := pos + physCompactLedgeSize + i*physTriangleSize
		if err := s.need(tri, physTriangleSize); err != nil {
			return err
		}
		bits := s.data[tri : tri+4]
		raw := binary.LittleEndian.Uint32(bits)
		binary.BigEndian.PutUint32(bits,
			(raw&0xFFF)<<20|(raw&0x00FFF000)>>4|(raw&0x7F000000)>>23|(raw&0x80000000)>>31)

		for e := 0; e < 3; e++ {
			edge := s.data[tri+4+4*e : tri+8+4*e]
			raw := binary.LittleEndian.Uint32(edge)
			binary.BigEndian.PutUint32(edge,
				(raw&0xFFFF)<<16|(raw&0x7FFF0000)>>15|(raw&0x80000000)>>31)

			start := int(binary.LittleEndian.Uint16(edge))
			if err := s.swapPoint(points + start*physPointSize); err != nil {
				return err
			}
		}
	}
	return nil
}

// swapPoint converts a point once; triangles share their corners
func (s *physSolid) swapPoint(pos int) error {
	if s.points[pos] {
		return nil
	}
	if err := s.swapAt(pos, 4, 4); err != nil {
		return err
	}
	s.points[pos] = true
	return nil
}

// int32At reads a field that has already been converted
func int32At(data []byte, pos int) int32 {
	return int32(binary.LittleEndian.Uint32(data[pos:]))
}
