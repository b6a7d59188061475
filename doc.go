// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

/*
Package bsp360 converts Xbox 360 Source engine maps (console BSP) into the
desktop BSP layout.

A console BSP stores its header and most lumps big-endian and compresses
many lumps with LZMA behind a short vendor header. The desktop format uses
the same 64-lump directory, little-endian, with every offset recomputed for
the new file. The game lump (lump 35) carries its own nested directory of
sub-lumps, and its absolute offsets are rewritten as well.

# Basic Usage

Converting a file:

	layout, err := bsp360.ConvertFile("maps/xbla_1.360.bsp", "maps/xbla_1.bsp")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("wrote", layout.FileSize, "bytes")

Writing a document you built or parsed yourself:

	doc := &bsp360.Document{
		Lumps:      lumps,
		MapVersion: 1,
	}
	var out bsp360.Buffer
	if _, err := bsp360.WriteDocument(&out, doc); err != nil {
		log.Fatal(err)
	}

# Compressed Lumps

By default compressed lumps are copied as stored. The directory records their
uncompressed size, which is how the desktop format describes compressed
lumps. [WithInflate] makes [ReadConsole] decompress them with [DecodeLZMA]
and convert their byte order instead.

# Limitations

  - No desktop to console conversion
  - Pakfile (lump 40) contents are not converted and are dropped with a
    warning
  - Physics collision (lump 29) is converted for polygon solids only; a
    model with a MOPP, ball or virtual solid drops the whole lump with a
    warning
  - Game lump contents are copied without byte order conversion
*/
package bsp360
