// Package geo provides the slippy-map tile projection and the small amount
// of point/polygon geometry the splitter needs: tile id packing, lon/lat to
// tile conversion, tile bounding boxes with border enlargement, and the
// hole-fill flood used to complete large polygonal elements.
package geo

import "math"

// MaxZoom is the highest zoom level supported, set by the 32-bit tile id
// packing (16 bits per axis).
const MaxZoom = 16

// MaxTileNumber is the largest tile coordinate representable per axis.
const MaxTileNumber = 1<<MaxZoom - 1

// Neighbour bits, mirroring OsmMap.NEIGHBOURS_*.
const (
	NeighbourNone      = 0
	NeighbourEast      = 1
	NeighbourSouth     = 2
	NeighbourSouthEast = 3
)

// TileID is a packed (x, y) tile coordinate: x<<16 | y. Ordering and
// equality of TileIDs are by the packed integer, matching the modified-tile
// set's sort order.
type TileID uint32

// Encode packs a tile (x, y) pair at the implicit zoom into a TileID.
func Encode(x, y int) TileID {
	return TileID(uint32(x)<<MaxZoom | uint32(y)&MaxTileNumber)
}

// X returns the tile's x coordinate.
func (t TileID) X() int { return int(uint32(t) >> MaxZoom) }

// Y returns the tile's y coordinate.
func (t TileID) Y() int { return int(uint32(t) & MaxTileNumber) }

// Add returns the tile offset by (dx, dy).
func (t TileID) Add(dx, dy int) TileID {
	return Encode(t.X()+dx, t.Y()+dy)
}

// Bound is a lat/lon rectangle, used both as the per-tile bounding box
// (with border) and as the running union of all bounds seen in the input.
type Bound struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// Union expands b to include other.
func (b *Bound) Union(other Bound) {
	if !b.valid() {
		*b = other
		return
	}
	b.MinLon = math.Min(b.MinLon, other.MinLon)
	b.MinLat = math.Min(b.MinLat, other.MinLat)
	b.MaxLon = math.Max(b.MaxLon, other.MaxLon)
	b.MaxLat = math.Max(b.MaxLat, other.MaxLat)
}

func (b Bound) valid() bool {
	return b.MinLon != 0 || b.MinLat != 0 || b.MaxLon != 0 || b.MaxLat != 0
}

// World returns the bound covering the entire valid coordinate range, used
// as the MBTiles "bounds" fallback when no input bound is known.
func World() Bound {
	return Bound{MinLon: -180, MinLat: -85.0511287798, MaxLon: 180, MaxLat: 85.0511287798}
}

// Projection converts between lon/lat (WGS84) and tile coordinates at a
// fixed zoom, and computes tile bounding boxes with optional border
// enlargement. It is the Go analogue of the private helpers on MapSplit.java
// (tile2lon/tile2lat/lon2tileX/lat2tileY/getBound).
type Projection struct {
	Zoom   int
	Border float64 // fraction of a tile's width/height, in [0, 1]
}

// LonToTileX returns the tile x coordinate containing lon, clamped to the
// zoom's valid range.
func (p Projection) LonToTileX(lon float64) int {
	n := float64(int(1) << p.Zoom)
	x := int(math.Floor((lon + 180) / 360 * n))
	if x < 0 {
		x = 0
	}
	if x >= int(n) {
		x = int(n) - 1
	}
	return x
}

// LatToTileY returns the tile y coordinate containing lat, clamped to the
// zoom's valid range.
func (p Projection) LatToTileY(lat float64) int {
	n := float64(int(1) << p.Zoom)
	latRad := lat * math.Pi / 180
	y := int(math.Floor((1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * n))
	if y < 0 {
		y = 0
	}
	if y >= int(n) {
		y = int(n) - 1
	}
	return y
}

// TileToLon returns the western edge longitude of tile column x.
func (p Projection) TileToLon(x int) float64 {
	return float64(x)/math.Pow(2, float64(p.Zoom))*360 - 180
}

// TileToLat returns the northern edge latitude of tile row y.
func (p Projection) TileToLat(y int) float64 {
	n := math.Pi - 2*math.Pi*float64(y)/math.Pow(2, float64(p.Zoom))
	return 180 / math.Pi * math.Atan(0.5*(math.Exp(n)-math.Exp(-n)))
}

// deltaLon returns the longitude offset corresponding to the border
// enlargement for the tile containing lon.
func (p Projection) deltaLon(lon float64) float64 {
	tx := p.LonToTileX(lon)
	x1 := p.TileToLon(tx)
	x2 := p.TileToLon(tx + 1)
	return p.Border * (x2 - x1)
}

// deltaLat returns the latitude offset corresponding to the border
// enlargement for the tile containing lat.
func (p Projection) deltaLat(lat float64) float64 {
	ty := p.LatToTileY(lat)
	y1 := p.TileToLat(ty)
	y2 := p.TileToLat(ty + 1)
	return p.Border * (y2 - y1)
}

// Locate resolves a point's base tile and, if the border enlargement makes
// the point also belong to an east or south neighbour tile, the neighbour
// flags. When the point falls in the western or northern border of its
// tile, the base tile itself shifts west/north and the corresponding
// neighbour flag (now pointing back east/south) is set instead, matching
// §4.4 of the splitter's point placement rule.
func (p Projection) Locate(lat, lon float64) (x, y int, neighbours int) {
	x = p.LonToTileX(lon)
	y = p.LatToTileY(lat)

	if p.Border > 0 {
		dx := p.deltaLon(lon)
		if p.LonToTileX(lon+dx) > x {
			neighbours |= NeighbourEast
		} else if p.LonToTileX(lon-dx) < x {
			x--
			neighbours |= NeighbourEast
		}

		dy := p.deltaLat(lat)
		if p.LatToTileY(lat+dy) > y {
			neighbours |= NeighbourSouth
		} else if p.LatToTileY(lat-dy) < y {
			y--
			neighbours |= NeighbourSouth
		}
	}

	return x, y, neighbours
}

// Bounds returns the lat/lon rectangle of tile (x, y), enlarged by the
// border fraction and clipped to the valid coordinate range.
func (p Projection) Bounds(x, y int) Bound {
	l := p.TileToLon(x)
	r := p.TileToLon(x + 1)
	t := p.TileToLat(y)
	b := p.TileToLat(y + 1)

	dx := r - l
	dy := b - t

	l -= p.Border * dx
	r += p.Border * dx
	t -= p.Border * dy
	b += p.Border * dy

	if l < -180 {
		l = -180
	}
	if r > 180 {
		r = 180
	}
	if t > 90 {
		t = 90
	}
	if b < -90 {
		b = -90
	}

	return Bound{MinLon: l, MaxLon: r, MinLat: b, MaxLat: t}
}

// NeighbourTiles returns the base tile plus whichever of its east/south
// neighbours the given neighbour bitmap selects. Per the data model, the
// 2-bit field only ever adds the east and/or south adjacent tile, never a
// diagonal south-east one.
func NeighbourTiles(base TileID, neighbours int) []TileID {
	tiles := []TileID{base}
	x, y := base.X(), base.Y()
	if neighbours&NeighbourEast != 0 {
		tiles = append(tiles, Encode(x+1, y))
	}
	if neighbours&NeighbourSouth != 0 {
		tiles = append(tiles, Encode(x, y+1))
	}
	return tiles
}
