// Package optimize implements the optional coalescing pass: sparse tiles
// whose node count falls below a configured limit get re-homed to a
// lower-zoom parent tile, so near-empty areas of the output don't end up
// as a sea of near-empty tile files.
package optimize

import (
	"sort"

	"github.com/osmtools/mapsplit-go/internal/geo"
	"github.com/osmtools/mapsplit-go/internal/osmmap"
	"github.com/osmtools/mapsplit-go/internal/tileset"
)

// maxZoomSteps bounds how many zoom-out steps the coalescing loop tries
// per tile before giving up and leaving it at its base zoom.
const maxZoomSteps = 4

// Plan is the result of the optimisation pass: a base-zoom tile's
// reassigned zoom, and the rewritten per-zoom modified-tile sets that
// pass 3 should drive the write-out from instead of the single base-zoom
// set.
type Plan struct {
	BaseZoom int
	ZoomMap  map[uint32]int
	ByZoom   map[int]*tileset.Set
}

// NewZoom returns the zoom tile's assigned in the plan, or baseZoom if it
// was never coalesced.
func (p *Plan) NewZoom(tile uint32) int {
	if z, ok := p.ZoomMap[tile]; ok {
		return z
	}
	return p.BaseZoom
}

// Remap returns the tile and zoom that a base-zoom tile should be routed
// to for write-out: either the coalesced parent tile and its lower zoom,
// or tile itself at BaseZoom if it was never coalesced.
func (p *Plan) Remap(tile uint32) (newTile uint32, newZoom int) {
	zoom := p.NewZoom(tile)
	if zoom == p.BaseZoom {
		return tile, p.BaseZoom
	}
	return uint32(mapToNewTile(geo.TileID(tile), p.BaseZoom, zoom)), zoom
}

// Run builds the per-tile node-count histogram from nodeMap, then
// iterates the base-zoom modified set coalescing tiles under nodeLimit
// into the nearest ancestor whose combined content exceeds nodeLimit
// (see coalesce), per §4.7.
func Run(modified *tileset.Set, nodeMap osmmap.Map, baseZoom int, nodeLimit int) *Plan {
	counts := histogram(modified, nodeMap)

	plan := &Plan{
		BaseZoom: baseZoom,
		ZoomMap:  make(map[uint32]int),
		ByZoom:   make(map[int]*tileset.Set),
	}

	tiles := modified.Tiles()
	sort.Slice(tiles, func(i, j int) bool { return tiles[i] < tiles[j] })

	mapped := make(map[uint32]bool)
	for _, t := range tiles {
		if mapped[t] {
			continue
		}
		if counts[t] >= nodeLimit {
			continue
		}
		coalesce(t, baseZoom, nodeLimit, counts, mapped, plan)
	}

	for _, t := range tiles {
		if newZoom, ok := plan.ZoomMap[t]; ok {
			parent := mapToNewTile(geo.TileID(t), baseZoom, newZoom)
			byZoom(plan, newZoom).Set(uint32(parent))
		} else {
			byZoom(plan, baseZoom).Set(t)
		}
	}

	return plan
}

func byZoom(plan *Plan, zoom int) *tileset.Set {
	s, ok := plan.ByZoom[zoom]
	if !ok {
		s = tileset.New()
		plan.ByZoom[zoom] = s
	}
	return s
}

// histogram counts, for every tile in modified, how many node ids have
// that tile in their expanded tile set. Per Open Question 2, a node
// straddling a tile border is counted once for every distinct tile it
// touches, making this a conservative (not exact) lower bound on a
// tile's content; a node's own AllTiles result can still repeat a tile
// (e.g. a neighbour tile that's also its extended-mode base), so each
// node's tiles are deduplicated before counting.
func histogram(modified *tileset.Set, nodeMap osmmap.Map) map[uint32]int {
	counts := make(map[uint32]int)
	seen := make(map[uint32]bool)
	nodeMap.Keys(func(id int64) bool {
		tiles, ok := nodeMap.AllTiles(id)
		if !ok {
			return true
		}
		for _, t := range tiles {
			if seen[t] {
				continue
			}
			seen[t] = true
			if modified.Test(t) {
				counts[t]++
			}
		}
		for _, t := range tiles {
			delete(seen, t)
		}
		return true
	})
	return counts
}

// coalesce tries to merge base tile t, and whichever siblings share its
// ancestor at each zoom-out step, into a single lower-zoom tile with
// enough combined content. It commits the first Q (sibling group) whose
// total exceeds nodeLimit, or the last step tried if none ever does,
// unless growing one more step would overshoot 4x nodeLimit, in which
// case the previous (smaller) Q is committed instead.
func coalesce(t uint32, baseZoom, nodeLimit int, counts map[uint32]int, mapped map[uint32]bool, plan *Plan) {
	var lastQ []uint32
	var lastZoom int

	for z := 1; z <= maxZoomSteps; z++ {
		zoom := baseZoom - z
		if zoom < 0 {
			break
		}
		q := siblingGroup(geo.TileID(t), baseZoom, zoom)
		total := 0
		for _, sib := range q {
			total += counts[sib]
		}

		if total >= 4*nodeLimit {
			if lastQ != nil {
				commit(lastQ, lastZoom, counts, mapped, plan)
			}
			return
		}

		if total > nodeLimit || z == maxZoomSteps {
			commit(q, zoom, counts, mapped, plan)
			return
		}

		lastQ, lastZoom = q, zoom
	}
}

func commit(q []uint32, zoom int, counts map[uint32]int, mapped map[uint32]bool, plan *Plan) {
	for _, sib := range q {
		if counts[sib] == 0 {
			continue
		}
		plan.ZoomMap[sib] = zoom
		mapped[sib] = true
	}
}

// siblingGroup returns every base-zoom tile that shares t's ancestor at
// newZoom.
func siblingGroup(t geo.TileID, baseZoom, newZoom int) []uint32 {
	shift := baseZoom - newZoom
	parentX := t.X() >> shift
	parentY := t.Y() >> shift
	n := 1 << shift

	group := make([]uint32, 0, n*n)
	for dx := 0; dx < n; dx++ {
		for dy := 0; dy < n; dy++ {
			group = append(group, uint32(geo.Encode(parentX<<shift+dx, parentY<<shift+dy)))
		}
	}
	return group
}

// mapToNewTile shifts tile's (x,y) down by the zoom difference and
// repacks it at newZoom, per §4.7.
func mapToNewTile(tile geo.TileID, baseZoom, newZoom int) geo.TileID {
	shift := baseZoom - newZoom
	return geo.Encode(tile.X()>>shift, tile.Y()>>shift)
}
