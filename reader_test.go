// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package bsp360

import (
	"bytes"
	"encoding/binary"
	"errors"
	"log"
	"sort"
	"testing"
)

// consoleLump describes one lump of a synthetic console file. When build is
// set it is called with the lump's final offset to produce the stored bytes.
type consoleLump struct {
	version    uint32
	data       []byte
	identifier uint32
	build      func(offset uint32) []byte
}

// consoleSub is one console game lump
type consoleSub struct {
	id      string
	flags   uint16
	version uint16
	data    []byte
}

// encode writes values with the given byte order
func encode(t *testing.T, order binary.ByteOrder, values ...any) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, v := range values {
		if err := binary.Write(&buf, order, v); err != nil {
			t.Fatalf("encode %T: %v", v, err)
		}
	}
	return buf.Bytes()
}

// buildConsoleBSP lays lumps out after the header in index order
func buildConsoleBSP(t *testing.T, lumps map[int]consoleLump, mapVersion uint32) []byte {
	t.Helper()

	h := consoleHeader{Magic: bspMagic, Version: bspVersion, MapVersion: mapVersion}
	headerLen := binary.Size(h)

	indices := make([]int, 0, len(lumps))
	for i := range lumps {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	var body bytes.Buffer
	for _, i := range indices {
		l := lumps[i]
		offset := uint32(headerLen + body.Len())
		data := l.data
		if l.build != nil {
			data = l.build(offset)
		}
		h.Lumps[i] = consoleLumpEntry{
			Offset:     offset,
			Length:     uint32(len(data)),
			Version:    l.version,
			Identifier: l.identifier,
		}
		body.Write(data)
	}

	return append(encode(t, binary.BigEndian, h), body.Bytes()...)
}

// consoleGameLumps returns a builder for a console game lump directory whose
// bodies follow the directory
func consoleGameLumps(t *testing.T, subs []consoleSub) func(uint32) []byte {
	return func(base uint32) []byte {
		entries := make([]consoleGameLumpEntry, len(subs))
		next := int32(base) + 4 + int32(len(subs))*gameLumpEntrySize
		var bodies bytes.Buffer
		for i, s := range subs {
			entries[i] = consoleGameLumpEntry{
				ID:      binary.BigEndian.Uint32([]byte(s.id)),
				Flags:   s.flags,
				Version: s.version,
				Length:  int32(len(s.data)),
			}
			if len(s.data) > 0 {
				entries[i].Offset = next
				next += int32(len(s.data))
			}
			bodies.Write(s.data)
		}
		return append(encode(t, binary.BigEndian, int32(len(subs)), entries), bodies.Bytes()...)
	}
}

func mustParseFourCC(t *testing.T, s string) FourCC {
	t.Helper()
	f, err := ParseFourCC(s)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestReadConsoleSwapsLumps(t *testing.T) {
	planes := []any{float32(0), float32(0), float32(1), float32(64), int32(2)}
	edges := []any{uint16(1), uint16(2), uint16(2), uint16(3)}
	node := []any{
		int32(0), int32(1), int32(-2),
		int16(-64), int16(-64), int16(0), int16(64), int16(64), int16(128),
		uint16(0), uint16(6), int16(1), int16(0),
	}
	entities := []byte(`{"classname" "worldspawn"}`)

	data := buildConsoleBSP(t, map[int]consoleLump{
		0:  {version: 0, data: entities},
		1:  {version: 0, data: encode(t, binary.BigEndian, planes...)},
		5:  {version: 0, data: encode(t, binary.BigEndian, node...)},
		12: {version: 0, data: encode(t, binary.BigEndian, edges...)},
		29: {version: 1, data: physModels(t, binary.BigEndian,
			polySolid(t, binary.BigEndian, physSolidMOPP, consoleSolidBits))},
		40: {version: 0, data: []byte("PK\x03\x04")},
	}, 42)

	var logs bytes.Buffer
	doc, err := ReadConsole(bytes.NewReader(data), WithLogger(log.New(&logs, "", 0)))
	if err != nil {
		t.Fatalf("read console: %v", err)
	}

	if len(doc.Lumps) != NumLumps {
		t.Fatalf("lumps = %d, want %d", len(doc.Lumps), NumLumps)
	}
	if doc.MapVersion != 42 {
		t.Errorf("map version = %d, want 42", doc.MapVersion)
	}

	tests := []struct {
		lump int
		want []byte
	}{
		{0, entities},
		{1, encode(t, binary.LittleEndian, planes...)},
		{5, encode(t, binary.LittleEndian, node...)},
		{12, encode(t, binary.LittleEndian, edges...)},
	}
	for _, test := range tests {
		raw, ok := doc.Lumps[test.lump].Payload.(Raw)
		if !ok {
			t.Errorf("lump %d payload = %T, want Raw", test.lump, doc.Lumps[test.lump].Payload)
			continue
		}
		if !bytes.Equal(raw, test.want) {
			t.Errorf("lump %d = %x, want %x", test.lump, []byte(raw), test.want)
		}
	}

	for _, i := range []int{29, 40} {
		if _, ok := doc.Lumps[i].Payload.(Empty); !ok {
			t.Errorf("lump %d payload = %T, want Empty", i, doc.Lumps[i].Payload)
		}
	}
	if doc.Lumps[29].Version != 1 {
		t.Errorf("dropped lump lost its version: %d", doc.Lumps[29].Version)
	}
	if !bytes.Contains(logs.Bytes(), []byte("Lump 29: failed to byteswap data")) {
		t.Errorf("no warning logged for dropped lump, log:\n%s", logs.String())
	}

	if _, ok := doc.Lumps[2].Payload.(Empty); !ok {
		t.Errorf("absent lump payload = %T, want Empty", doc.Lumps[2].Payload)
	}
}

func TestReadConsolePhysCollide(t *testing.T) {
	data := buildConsoleBSP(t, map[int]consoleLump{
		29: {version: 1, data: physModels(t, binary.BigEndian,
			polySolid(t, binary.BigEndian, physSolidPoly, consoleSolidBits))},
	}, 1)

	doc, err := ReadConsole(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("read console: %v", err)
	}

	want := physModels(t, binary.LittleEndian, polySolid(t, binary.LittleEndian, physSolidPoly, desktopSolidBits))
	if raw, ok := doc.Lumps[29].Payload.(Raw); !ok || !bytes.Equal(raw, want) {
		t.Errorf("physics payload = %T, want converted Raw", doc.Lumps[29].Payload)
	}
}

func TestReadConsoleRecordSizeMismatch(t *testing.T) {
	data := buildConsoleBSP(t, map[int]consoleLump{
		5: {data: make([]byte, 33)},
	}, 1)

	doc, err := ReadConsole(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("read console: %v", err)
	}
	if _, ok := doc.Lumps[5].Payload.(Empty); !ok {
		t.Errorf("odd sized node lump payload = %T, want Empty", doc.Lumps[5].Payload)
	}
}

func TestReadConsoleCompressedLump(t *testing.T) {
	lighting := testPattern(256)
	planes := []any{float32(1), float32(0), float32(0), float32(-32), int32(0)}
	planeBytes := encode(t, binary.BigEndian, planes...)

	lightingLump := vendorLZMALump(t, lighting)
	planesLump := vendorLZMALump(t, planeBytes)

	data := buildConsoleBSP(t, map[int]consoleLump{
		1: {version: 0, data: planesLump, identifier: uint32(len(planeBytes))},
		8: {version: 1, data: lightingLump, identifier: uint32(len(lighting))},
	}, 5)

	t.Run("passthrough", func(t *testing.T) {
		doc, err := ReadConsole(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("read console: %v", err)
		}

		c, ok := doc.Lumps[8].Payload.(Compressed)
		if !ok {
			t.Fatalf("lighting payload = %T, want Compressed", doc.Lumps[8].Payload)
		}
		if c.UncompressedSize != uint64(len(lighting)) {
			t.Errorf("uncompressed size = %d, want %d", c.UncompressedSize, len(lighting))
		}
		if !bytes.Equal(c.Data, lightingLump[lzmaLumpHeaderSize:]) {
			t.Errorf("compressed body was modified")
		}
		if !bytes.Equal(c.Properties[:], lightingLump[12:17]) {
			t.Errorf("properties = %x, want %x", c.Properties, lightingLump[12:17])
		}
		if doc.Lumps[8].Version != 1 {
			t.Errorf("version = %d, want 1", doc.Lumps[8].Version)
		}
	})

	t.Run("inflate", func(t *testing.T) {
		doc, err := ReadConsole(bytes.NewReader(data), WithInflate(true))
		if err != nil {
			t.Fatalf("read console: %v", err)
		}

		if raw, ok := doc.Lumps[8].Payload.(Raw); !ok || !bytes.Equal(raw, lighting) {
			t.Errorf("lighting = %T, want inflated Raw", doc.Lumps[8].Payload)
		}

		want := encode(t, binary.LittleEndian, planes...)
		if raw, ok := doc.Lumps[1].Payload.(Raw); !ok || !bytes.Equal(raw, want) {
			t.Errorf("planes = %v, want inflated and swapped %x", doc.Lumps[1].Payload, want)
		}
	})
}

func TestReadConsoleCompressedErrors(t *testing.T) {
	lump := vendorLZMALump(t, testPattern(64))

	badMagic := bytes.Clone(lump)
	copy(badMagic, "ZZZZ")

	// A bare header claiming a body far larger than the lump
	oversized := bytes.Clone(lump[:lzmaLumpHeaderSize])
	binary.LittleEndian.PutUint32(oversized[8:], 0x7FFFFFFF)

	tests := []struct {
		name       string
		data       []byte
		identifier uint32
	}{
		{"size mismatch", lump, 65},
		{"bad magic", badMagic, 64},
		{"body larger than lump", oversized, 64},
		{"body cut short", lump[:len(lump)-1], 64},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			data := buildConsoleBSP(t, map[int]consoleLump{
				8: {data: test.data, identifier: test.identifier},
			}, 1)
			if _, err := ReadConsole(bytes.NewReader(data)); !errors.Is(err, ErrMalformedCompressedStream) {
				t.Errorf("err = %v, want ErrMalformedCompressedStream", err)
			}
		})
	}
}

func TestReadConsoleGameLumps(t *testing.T) {
	props := []byte("static prop data")
	detail := testPattern(300)

	data := buildConsoleBSP(t, map[int]consoleLump{
		1: {data: encode(t, binary.BigEndian, int32(7))},
		35: {build: consoleGameLumps(t, []consoleSub{
			{id: "sprp", version: 10, data: props},
			{id: "dprp", flags: gameLumpFlagCompressed, version: 4, data: vendorLZMALump(t, detail)},
			{id: "dplt", version: 0},
		})},
	}, 1)

	sprp := mustParseFourCC(t, "sprp")
	dprp := mustParseFourCC(t, "dprp")

	t.Run("passthrough", func(t *testing.T) {
		doc, err := ReadConsole(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("read console: %v", err)
		}

		games, ok := doc.Lumps[GameLumpIndex].Payload.(GameLumps)
		if !ok {
			t.Fatalf("game lump payload = %T, want GameLumps", doc.Lumps[GameLumpIndex].Payload)
		}
		if len(games) != 3 {
			t.Fatalf("game lumps = %d, want 3", len(games))
		}

		if games[0].ID != sprp || games[0].Version != 10 {
			t.Errorf("game lump 0 = %s v%d, want sprp v10", games[0].ID, games[0].Version)
		}
		if raw, ok := games[0].Payload.(Raw); !ok || !bytes.Equal(raw, props) {
			t.Errorf("game lump 0 payload = %v", games[0].Payload)
		}

		if games[1].ID != dprp || games[1].Flags != gameLumpFlagCompressed {
			t.Errorf("game lump 1 = %s flags %d", games[1].ID, games[1].Flags)
		}
		c, ok := games[1].Payload.(Compressed)
		if !ok || c.UncompressedSize != uint64(len(detail)) {
			t.Errorf("game lump 1 payload = %T, want Compressed of %d bytes", games[1].Payload, len(detail))
		}

		if _, ok := games[2].Payload.(Empty); !ok {
			t.Errorf("game lump 2 payload = %T, want Empty", games[2].Payload)
		}
		if games[2].ID.String() != "dplt" {
			t.Errorf("game lump 2 id = %s, want dplt", games[2].ID)
		}
	})

	t.Run("inflate", func(t *testing.T) {
		doc, err := ReadConsole(bytes.NewReader(data), WithInflate(true))
		if err != nil {
			t.Fatalf("read console: %v", err)
		}

		games := doc.Lumps[GameLumpIndex].Payload.(GameLumps)
		if raw, ok := games[1].Payload.(Raw); !ok || !bytes.Equal(raw, detail) {
			t.Errorf("game lump 1 = %T, want inflated Raw", games[1].Payload)
		}
		if games[1].Flags&gameLumpFlagCompressed != 0 {
			t.Errorf("inflated game lump still flagged compressed: %d", games[1].Flags)
		}
	})
}

func TestReadConsoleGameLumpCountTooLarge(t *testing.T) {
	data := buildConsoleBSP(t, map[int]consoleLump{
		35: {data: encode(t, binary.BigEndian, int32(1000))},
	}, 1)

	if _, err := ReadConsole(bytes.NewReader(data)); !errors.Is(err, ErrUnexpectedDocumentShape) {
		t.Errorf("err = %v, want ErrUnexpectedDocumentShape", err)
	}
}

func TestReadConsoleInvalidHeader(t *testing.T) {
	valid := buildConsoleBSP(t, nil, 1)

	desktop := bytes.Clone(valid)
	copy(desktop, "VBSP")
	binary.LittleEndian.PutUint32(desktop[4:], bspVersion)

	version := bytes.Clone(valid)
	binary.BigEndian.PutUint32(version[4:], 19)

	tests := []struct {
		name string
		data []byte
	}{
		{"desktop file", desktop},
		{"wrong version", version},
		{"not a BSP", bytes.Repeat([]byte{0xCC}, len(valid))},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := ReadConsole(bytes.NewReader(test.data)); !errors.Is(err, ErrInvalidHeader) {
				t.Errorf("err = %v, want ErrInvalidHeader", err)
			}
		})
	}

	if _, err := ReadConsole(bytes.NewReader(valid[:100])); err == nil {
		t.Errorf("truncated header read without error")
	}
}

func TestReadConsoleLumpPastEnd(t *testing.T) {
	data := buildConsoleBSP(t, map[int]consoleLump{
		1: {data: make([]byte, 40)},
	}, 1)

	if _, err := ReadConsole(bytes.NewReader(data[:len(data)-8])); err == nil {
		t.Errorf("lump past end of file read without error")
	}
}

func TestConvertRoundTrip(t *testing.T) {
	planes := encode(t, binary.BigEndian, float32(0), float32(1), float32(0), float32(16), int32(1))
	props := []byte("props!")
	lighting := testPattern(128)

	data := buildConsoleBSP(t, map[int]consoleLump{
		1: {version: 0, data: planes},
		8: {version: 1, data: vendorLZMALump(t, lighting), identifier: uint32(len(lighting))},
		35: {build: consoleGameLumps(t, []consoleSub{
			{id: "sprp", version: 10, data: props},
			{id: "dprp", version: 4},
		})},
	}, 9)

	for _, inflate := range []bool{false, true} {
		var out Buffer
		layout, err := Convert(&out, bytes.NewReader(data), WithInflate(inflate))
		if err != nil {
			t.Fatalf("convert (inflate %v): %v", inflate, err)
		}
		if err := layout.Check(); err != nil {
			t.Errorf("layout (inflate %v): %v", inflate, err)
		}

		read, err := ReadLayout(&out, int64(out.Len()))
		if err != nil {
			t.Fatalf("read layout: %v", err)
		}
		if read.MapVersion != 9 || len(read.Lumps) != NumLumps {
			t.Errorf("read layout map version %d, %d lumps", read.MapVersion, len(read.Lumps))
		}

		got, err := read.Lump(&out, 1)
		if err != nil {
			t.Fatalf("read planes: %v", err)
		}
		want := encode(t, binary.LittleEndian, float32(0), float32(1), float32(0), float32(16), int32(1))
		if !bytes.Equal(got, want) {
			t.Errorf("planes = %x, want %x", got, want)
		}

		if read.Lumps[8].Size != uint32(len(lighting)) || read.Lumps[8].Version != 1 {
			t.Errorf("lighting entry = %+v", read.Lumps[8])
		}
		if inflate {
			if got, _ := read.Lump(&out, 8); !bytes.Equal(got, lighting) {
				t.Errorf("inflated lighting mismatch")
			}
		}

		got, err = read.GameLump(&out, mustParseFourCC(t, "sprp"))
		if err != nil {
			t.Fatalf("read static props: %v", err)
		}
		if !bytes.Equal(got, props) {
			t.Errorf("static props = %q, want %q", got, props)
		}
	}
}
