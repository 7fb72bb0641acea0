// Package ingest implements the element-to-tile assignment engine: pass 1
// (node/way/relation tile assignment, including forward-reference
// resolution between relations) and pass 2 (member completion, back-
// filling node tile sets from member ways of "complete" relations).
//
// It is the Go analogue of MapSplit.java's addNodeToMap/addWayToMap/
// addRelationToMap trio, restructured around the shared osmmap.Map
// interface so the hash and array backends are interchangeable.
package ingest

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/osmtools/mapsplit-go/internal/geo"
	"github.com/osmtools/mapsplit-go/internal/osmdata"
	"github.com/osmtools/mapsplit-go/internal/osmmap"
	"github.com/osmtools/mapsplit-go/internal/tileset"
)

// Options configures a Splitter's tile-assignment rules.
type Options struct {
	Zoom              int
	Border            float64
	AppointmentDate   time.Time
	CompleteRelations bool
	CompleteAreas     bool
}

// Splitter owns the three ID→tile maps and the modified-tile set, and
// drives pass 1 and pass 2 ingestion.
type Splitter struct {
	opts Options
	proj geo.Projection
	log  *zap.Logger

	NodeMap osmmap.Map
	WayMap  osmmap.Map
	RelMap  osmmap.Map

	Modified *tileset.Set

	// LatestDate is the maximum element timestamp observed, used for the
	// MBTiles latest_date metadata and for overwriting the date file.
	LatestDate time.Time

	// Bound is the running union of every node's coordinate, used for the
	// MBTiles bounds metadata field.
	Bound geo.Bound

	// RelationMemberWays holds every way id registered by a "complete"
	// relation's way member; pass 2 consumes this to back-fill node tile
	// sets from those ways' node lists.
	RelationMemberWays map[int64]bool

	pending map[int64]osmdata.Relation
	logged  map[int64]bool // relation ids that already logged a reference-gap once
}

// New returns a Splitter backed by the given maps.
func New(opts Options, nodeMap, wayMap, relMap osmmap.Map, log *zap.Logger) *Splitter {
	return &Splitter{
		opts:               opts,
		proj:               geo.Projection{Zoom: opts.Zoom, Border: opts.Border},
		log:                log,
		NodeMap:            nodeMap,
		WayMap:             wayMap,
		RelMap:             relMap,
		Modified:           tileset.New(),
		RelationMemberWays: make(map[int64]bool),
		pending:            make(map[int64]osmdata.Relation),
		logged:             make(map[int64]bool),
	}
}

func (s *Splitter) noteTimestamp(ts time.Time) {
	if ts.After(s.LatestDate) {
		s.LatestDate = ts
	}
}

func (s *Splitter) isModified(ts time.Time) bool {
	return ts.After(s.opts.AppointmentDate)
}

func (s *Splitter) markModified(tiles []uint32) {
	for _, t := range tiles {
		s.Modified.Set(t)
	}
}

// AddNode is pass 1's handler for a decoded node.
func (s *Splitter) AddNode(n osmdata.Node) error {
	s.noteTimestamp(n.Timestamp)
	s.Bound.Union(geo.Bound{MinLon: n.Lon, MaxLon: n.Lon, MinLat: n.Lat, MaxLat: n.Lat})

	x, y, neighbours := s.proj.Locate(n.Lat, n.Lon)
	if err := s.NodeMap.Put(n.ID, x, y, neighbours); err != nil {
		return err
	}

	if s.isModified(n.Timestamp) {
		base := geo.Encode(x, y)
		for _, t := range geo.NeighbourTiles(base, neighbours) {
			s.Modified.Set(uint32(t))
		}
	}
	return nil
}

// AddWay is pass 1's handler for a decoded way.
func (s *Splitter) AddWay(w osmdata.Way) error {
	tiles, ok := s.unionTiles(w.Nodes, func(id int64) ([]uint32, bool) {
		return s.NodeMap.AllTiles(id)
	})
	if !ok {
		s.log.Warn("way references a missing node, skipping way", zap.Int64("way", w.ID))
		return nil
	}
	if len(tiles) == 0 {
		s.log.Warn("way has no resolvable nodes, skipping way", zap.Int64("way", w.ID))
		return nil
	}

	modified := s.isModified(w.Timestamp)
	if modified {
		s.markModified(tiles)
	}

	tiles = s.fillHoles(tiles)

	firstX, firstY, _, ok := s.NodeMap.Get(w.Nodes[0])
	if !ok {
		// unreachable in practice: unionTiles already confirmed every
		// node resolved, but guard anyway rather than put a zero base.
		return nil
	}
	if err := s.WayMap.Put(w.ID, firstX, firstY, 0); err != nil {
		return err
	}
	if err := s.updateAll(s.WayMap, w.ID, tiles); err != nil {
		return err
	}

	for _, nodeID := range w.Nodes {
		if err := s.updateAll(s.NodeMap, nodeID, tiles); err != nil {
			return err
		}
	}
	return nil
}

// AddRelation is pass 1's handler for a decoded relation. It is safe to
// call more than once for the same relation (idempotent per the update
// contract), which ResolveForwardReferences relies on when retrying
// relations that referenced not-yet-seen relations.
func (s *Splitter) AddRelation(rel osmdata.Relation) error {
	var tiles []uint32
	seen := make(map[uint32]bool)
	add := func(ts []uint32) {
		for _, t := range ts {
			if !seen[t] {
				seen[t] = true
				tiles = append(tiles, t)
			}
		}
	}

	needsRetry := false
	completeEligible := s.opts.CompleteRelations || (s.opts.CompleteAreas && rel.IsMultipolygon())

	for _, m := range rel.Members {
		switch m.Type {
		case osmdata.NodeMember:
			t, ok := s.NodeMap.AllTiles(m.Ref)
			if !ok {
				s.logOnce(rel.ID, "relation references a missing node member", zap.Int64("relation", rel.ID), zap.Int64("node", m.Ref))
				continue
			}
			add(t)
		case osmdata.WayMember:
			t, ok := s.WayMap.AllTiles(m.Ref)
			if !ok {
				s.logOnce(rel.ID, "relation references a missing way member", zap.Int64("relation", rel.ID), zap.Int64("way", m.Ref))
				continue
			}
			add(t)
			if completeEligible {
				s.RelationMemberWays[m.Ref] = true
			}
		case osmdata.RelationMember:
			t, ok := s.RelMap.AllTiles(m.Ref)
			if !ok {
				needsRetry = true
				continue
			}
			add(t)
		}
	}

	if len(tiles) == 0 {
		s.log.Warn("relation has no resolvable members, skipping", zap.Int64("relation", rel.ID))
		if needsRetry {
			s.pending[rel.ID] = rel
		}
		return nil
	}

	if s.isModified(rel.Timestamp) {
		s.markModified(tiles)
	}

	sort.Slice(tiles, func(i, j int) bool { return tiles[i] < tiles[j] })
	tiles = s.fillHoles(tiles)

	base := geo.TileID(tiles[0])
	if err := s.RelMap.Put(rel.ID, base.X(), base.Y(), 0); err != nil {
		return err
	}
	if err := s.updateAll(s.RelMap, rel.ID, tiles); err != nil {
		return err
	}

	if completeEligible {
		for _, m := range rel.Members {
			var target osmmap.Map
			switch m.Type {
			case osmdata.NodeMember:
				target = s.NodeMap
			case osmdata.WayMember:
				target = s.WayMap
				s.RelationMemberWays[m.Ref] = true
			case osmdata.RelationMember:
				target = s.RelMap
			}
			if err := s.updateAll(target, m.Ref, tiles); err != nil {
				return err
			}
		}
	}

	if needsRetry {
		s.pending[rel.ID] = rel
	} else {
		delete(s.pending, rel.ID)
	}
	return nil
}

// ResolveForwardReferences retries relations that referenced a
// not-yet-seen relation member, repeating until the pending set stops
// shrinking. Remaining entries are unresolvable cycles or dangling
// references, and are reported rather than treated as fatal.
func (s *Splitter) ResolveForwardReferences() error {
	for {
		before := len(s.pending)
		if before == 0 {
			return nil
		}
		retry := make([]osmdata.Relation, 0, before)
		for _, rel := range s.pending {
			retry = append(retry, rel)
		}
		for _, rel := range retry {
			if err := s.AddRelation(rel); err != nil {
				return err
			}
		}
		if len(s.pending) >= before {
			break
		}
	}
	for id := range s.pending {
		s.log.Warn("relation has an unresolved forward reference after retrying, writing with partial members", zap.Int64("relation", id))
	}
	return nil
}

// unionTiles resolves every id via lookup and returns the sorted union of
// their tile sets. ok is false if any id failed to resolve.
func (s *Splitter) unionTiles(ids []int64, lookup func(int64) ([]uint32, bool)) (tiles []uint32, ok bool) {
	seen := make(map[uint32]bool)
	for _, id := range ids {
		t, found := lookup(id)
		if !found {
			return nil, false
		}
		for _, tile := range t {
			if !seen[tile] {
				seen[tile] = true
				tiles = append(tiles, tile)
			}
		}
	}
	sort.Slice(tiles, func(i, j int) bool { return tiles[i] < tiles[j] })
	return tiles, true
}

// fillHoles runs the hole-fill flood over tiles (only once |tiles| passes
// the threshold) and unconditionally marks any newly filled tile in the
// modified-tile set, per §4.3.
func (s *Splitter) fillHoles(tiles []uint32) []uint32 {
	if len(tiles) < geo.HoleFillThreshold {
		return tiles
	}
	ids := make([]geo.TileID, len(tiles))
	for i, t := range tiles {
		ids[i] = geo.TileID(t)
	}
	filled := geo.FillHoles(ids, func(t geo.TileID) { s.Modified.Set(uint32(t)) })
	out := make([]uint32, len(filled))
	for i, t := range filled {
		out[i] = uint32(t)
	}
	return out
}

// updateAll applies Update(id, tile) for every tile in tiles, tolerating a
// target map that doesn't contain id (Update reports ok=false, which is
// not an error: it just means this member never resolved).
func (s *Splitter) updateAll(m osmmap.Map, id int64, tiles []uint32) error {
	for _, t := range tiles {
		tile := geo.TileID(t)
		if _, err := m.Update(id, tile.X(), tile.Y()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Splitter) logOnce(id int64, msg string, fields ...zap.Field) {
	if s.logged[id] {
		return
	}
	s.logged[id] = true
	s.log.Warn(msg, fields...)
}
