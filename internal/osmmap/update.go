package osmmap

import "github.com/osmtools/mapsplit-go/internal/geo"

// allTiles expands v into the full list of packed tile ids it covers,
// consulting overflow for extended values. Base and neighbour tiles always
// come first, mirroring AbstractOsmMap.getAllTiles's iteration order.
func allTiles(v Value, overflow *Overflow) []uint32 {
	base := v.Base()
	neighbours := geo.NeighbourTiles(base, v.Neighbours())

	out := make([]uint32, 0, len(neighbours)+8)
	for _, t := range neighbours {
		out = append(out, uint32(t))
	}

	if v.IsExtended() {
		for _, t := range overflow.Get(v.OverflowIndex()) {
			out = append(out, t)
		}
		return out
	}

	for _, t := range v.inlineTiles() {
		out = append(out, uint32(t))
	}
	return out
}

// addTile returns the value that results from adding tile (x, y) to v's
// tile set, and whether the tile set actually changed. It mirrors
// AbstractOsmMap.update: the slot's own base tile and its selected
// neighbour tiles are always already covered and are a no-op here;
// tiles within the base value's own 5x5
// window (relative to the base tile, not the absolute tile grid) stay
// inline; anything else forces (or continues) extended mode via overflow.
func addTile(v Value, x, y int, overflow *Overflow) (Value, bool, error) {
	base := v.Base()
	dx := x - base.X()
	dy := y - base.Y()

	if dx == 0 && dy == 0 {
		return v, false, nil
	}
	for _, n := range geo.NeighbourTiles(base, v.Neighbours()) {
		if n == geo.Encode(x, y) {
			return v, false, nil
		}
	}

	if !v.IsExtended() {
		if ord, ok := inlineOrdinal(dx, dy); ok {
			bit := Value(uint64(1) << uint(ord))
			if v&bit != 0 {
				return v, false, nil
			}
			return v | bit, true, nil
		}

		// Outside the inline window: promote to extended, carrying over
		// whatever tiles were already set inline.
		tile := geo.Encode(x, y)
		tiles := make([]uint32, 0, len(v.inlineTiles())+1)
		for _, t := range v.inlineTiles() {
			tiles = append(tiles, uint32(t))
		}
		tiles = append(tiles, uint32(tile))
		idx, err := overflow.Add(tiles)
		if err != nil {
			return v, false, err
		}
		return v.withOverflowIndex(idx), true, nil
	}

	// Already extended: grow the existing overflow entry in place, unless
	// the tile is already present.
	tile := uint32(geo.Encode(x, y))
	existing := overflow.Get(v.OverflowIndex())
	for _, t := range existing {
		if t == tile {
			return v, false, nil
		}
	}
	grown := make([]uint32, len(existing), len(existing)+1)
	copy(grown, existing)
	grown = append(grown, tile)

	if err := overflow.Replace(v.OverflowIndex(), grown); err != nil {
		return v, false, err
	}
	return v, true, nil
}
