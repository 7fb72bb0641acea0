package clip

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/osmtools/mapsplit-go/internal/geo"
	"github.com/osmtools/mapsplit-go/internal/tileset"
)

// Apply narrows modified down to the tiles that pass the clip test: a
// tile survives iff at least one of its four corners falls inside some
// inside ring and none of its corners fall inside any outside ring. The
// test is corner-only (not a full polygon/rectangle intersection) and
// can drop a tile that a polygon straddles entirely within its
// interior.
func Apply(modified *tileset.Set, proj geo.Projection, poly *Polygon) *tileset.Set {
	kept := tileset.New()
	modified.Iterate(func(tile uint32) bool {
		if keepTile(proj, poly, geo.TileID(tile)) {
			kept.Set(tile)
		}
		return true
	})
	return kept
}

func keepTile(proj geo.Projection, poly *Polygon, tile geo.TileID) bool {
	b := proj.Bounds(tile.X(), tile.Y())
	corners := [4]orb.Point{
		{b.MinLon, b.MinLat},
		{b.MinLon, b.MaxLat},
		{b.MaxLon, b.MinLat},
		{b.MaxLon, b.MaxLat},
	}

	insideSomeInsideRing := false
	for _, corner := range corners {
		for _, ring := range poly.Inside {
			if planar.RingContains(ring, corner) {
				insideSomeInsideRing = true
				break
			}
		}
		if insideSomeInsideRing {
			break
		}
	}
	if !insideSomeInsideRing {
		return false
	}

	for _, corner := range corners {
		for _, ring := range poly.Outside {
			if planar.RingContains(ring, corner) {
				return false
			}
		}
	}
	return true
}
