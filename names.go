// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package bsp360

import (
	"fmt"
	"strings"
)

// LumpType is a top-level lump index.
type LumpType int

// Lump indices that the converter treats specially
const (
	LumpEntities    LumpType = 0
	LumpVisibility  LumpType = 4
	LumpOcclusion   LumpType = 9
	LumpPhysDisp    LumpType = 28
	LumpPhysCollide LumpType = 29
	LumpGame        LumpType = GameLumpIndex
	LumpPakfile     LumpType = 40
)

var lumpNames = [NumLumps]string{
	"Entities", "Planes", "TexData", "Vertexes", "Visibility", "Nodes", "TexInfo", "Faces",
	"Lighting", "Occlusion", "Leafs", "FaceIDs", "Edges", "SurfEdges", "Models", "WorldLights",
	"LeafFaces", "LeafBrushes", "Brushes", "BrushSides", "Areas", "AreaPortals", "Unused22", "Unused23",
	"Unused24", "Unused25", "DispInfo", "OriginalFaces", "PhysDisp", "PhysCollide", "VertNormals", "VertNormalIndices",
	"DispLightmapAlphas", "DispVerts", "DispLightmapSamplePositions", "GameLump", "LeafWaterData", "Primitives", "PrimVerts", "PrimIndices",
	"Pakfile", "ClipPortalVerts", "Cubemaps", "TexDataStringData", "TexDataStringTable", "Overlays", "LeafMinDistToWater", "FaceMacroTextureInfo",
	"DispTris", "PhysCollideSurface", "WaterOverlays", "LeafAmbientIndexHDR", "LeafAmbientIndex", "LightingHDR", "WorldLightsHDR", "LeafAmbientLightingHDR",
	"LeafAmbientLighting", "XZipPakfile", "FacesHDR", "MapFlags", "OverlayFades", "OverlaySystemLevels", "PhysLevel", "DispMultiBlend",
}

func (l LumpType) String() string {
	if l < 0 || int(l) >= len(lumpNames) {
		return fmt.Sprintf("Unknown lump (%d)", int(l))
	}
	return lumpNames[l]
}

// FourCC is a game lump identifier in desktop byte order.
type FourCC [4]byte

// String returns the identifier as it is usually written, e.g. "sprp" for
// the static prop lump.
func (f FourCC) String() string {
	var b strings.Builder
	for i := len(f) - 1; i >= 0; i-- {
		c := f[i]
		if c < 0x20 || c > 0x7e {
			c = '.'
		}
		b.WriteByte(c)
	}
	return b.String()
}

// ParseFourCC converts a four-letter game lump name such as "sprp" to its
// desktop byte order.
func ParseFourCC(s string) (FourCC, error) {
	var f FourCC
	if len(s) != len(f) {
		return f, fmt.Errorf("game lump name %q must be 4 characters", s)
	}
	for i := range f {
		f[i] = s[len(s)-1-i]
	}
	return f, nil
}
