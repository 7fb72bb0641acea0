// Package osmmap implements the ID→tile map: the engine that records, for
// every node/way/relation id, the set of output tiles it belongs to. Each
// map slot is a single packed 64-bit value (inline mode, a 24-bit bitmap
// over a 5x5 window) or an index into a shared overflow store (extended
// mode) for elements whose tile set outgrows that window.
//
// Three backends share this encoding: HashMap (open-addressed, for when the
// maximum id isn't known in advance), ArrayMap (direct-indexed, sharded
// across multiple Go slices so it isn't limited by a single slice's max
// length, for when it is), and MmapArrayMap (direct-indexed, with its slots
// in a memory-mapped scratch file instead of the Go heap).
package osmmap

import "github.com/osmtools/mapsplit-go/internal/geo"

const (
	tileXShift  = 48
	tileYShift  = 32
	oneBitShift = 31
	oneBitMask  = uint64(1) << oneBitShift
	extShift    = 30
	extMask     = uint64(1) << extShift
	neighShift  = 28
	neighMask   = uint64(3) << neighShift
	payloadMask = uint64(0xFFFFFF)

	tileMask = uint64(geo.MaxTileNumber)
)

// Value is a packed 64-bit map slot: base tile, neighbour bits, and
// either an inline 5x5 bitmap or an overflow-store index.
type Value uint64

// Empty is the always-unset sentinel slot value.
const Empty Value = 0

// NewValue creates a base value for (x, y) with the given neighbour bits
// and an empty inline payload, equivalent to OsmMap.put's value
// construction before any update() calls.
func NewValue(x, y, neighbours int) Value {
	return Value(uint64(x)<<tileXShift | uint64(y)<<tileYShift | uint64(neighbours&3)<<neighShift | oneBitMask)
}

// TileX returns the base tile's x coordinate.
func (v Value) TileX() int { return int((uint64(v) >> tileXShift) & tileMask) }

// TileY returns the base tile's y coordinate.
func (v Value) TileY() int { return int((uint64(v) >> tileYShift) & tileMask) }

// Base returns the packed base tile id.
func (v Value) Base() geo.TileID { return geo.Encode(v.TileX(), v.TileY()) }

// Neighbours returns the 2-bit east/south neighbour flags.
func (v Value) Neighbours() int { return int((uint64(v) & neighMask) >> neighShift) }

// IsExtended reports whether the value's tile set lives in the overflow
// store rather than the inline bitmap.
func (v Value) IsExtended() bool { return uint64(v)&extMask != 0 }

// OverflowIndex returns the overflow-store index for an extended value. Only
// meaningful when IsExtended is true.
func (v Value) OverflowIndex() int { return int(uint64(v) & payloadMask) }

// withOverflowIndex returns a copy of v switched to extended mode pointing
// at the given overflow index, with the inline payload bits cleared.
func (v Value) withOverflowIndex(idx int) Value {
	base := uint64(v) &^ payloadMask
	return Value(base | extMask | uint64(idx)&payloadMask)
}

// inlineOrdinal maps a (dx, dy) offset in [-2, 2] to its bit ordinal in the
// 24-bit inline bitmap: the 5x5 window is scanned row-major, the centre
// (ordinal 12) is skipped, and ordinals past the centre are shifted down by
// one so they pack into 24 bits.
func inlineOrdinal(dx, dy int) (ordinal int, ok bool) {
	if dx < -2 || dx > 2 || dy < -2 || dy > 2 {
		return 0, false
	}
	v := (dy+2)*5 + (dx + 2)
	if v == 12 {
		return 0, false // the centre is the base tile itself, never inline-bit
	}
	if v > 12 {
		v--
	}
	return v, true
}

// inlineOffset is the inverse of inlineOrdinal: given a bit index i in
// [0,24), returns the (dx, dy) offset it represents.
func inlineOffset(i int) (dx, dy int) {
	v := i
	if v >= 12 {
		v++
	}
	dx = v%5 - 2
	dy = v/5 - 2
	return dx, dy
}

// inlineTiles decodes the 24-bit inline bitmap of v into absolute tile ids,
// relative to v's base tile.
func (v Value) inlineTiles() []geo.TileID {
	base := v.Base()
	bx, by := base.X(), base.Y()
	payload := uint64(v) & payloadMask

	var tiles []geo.TileID
	for i := 0; i < 24; i++ {
		if payload&(1<<uint(i)) == 0 {
			continue
		}
		dx, dy := inlineOffset(i)
		tiles = append(tiles, geo.Encode(bx+dx, by+dy))
	}
	return tiles
}

// setInlineBit returns a copy of v with the inline bit for (dx, dy) set.
func (v Value) setInlineBit(dx, dy int) Value {
	ord, ok := inlineOrdinal(dx, dy)
	if !ok {
		return v
	}
	return v | Value(uint64(1)<<uint(ord))
}
