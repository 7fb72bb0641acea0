package ingest

import "github.com/osmtools/mapsplit-go/internal/osmdata"

// CompleteWay is pass 2's handler, called for every way decoded from the
// second read. It back-fills the way's own tile set (looked up once in
// wmap, since pass 1 already computed it) into every one of its nodes,
// but only for ways registered by a "complete" relation in pass 1. This
// is the step that propagates a relation's tile set down to the nodes of
// its member ways, which pass 1 cannot do without re-reading the way's
// node list.
func (s *Splitter) CompleteWay(w osmdata.Way) error {
	if !s.RelationMemberWays[w.ID] {
		return nil
	}
	tiles, ok := s.WayMap.AllTiles(w.ID)
	if !ok {
		return nil
	}
	for _, nodeID := range w.Nodes {
		if err := s.updateAll(s.NodeMap, nodeID, tiles); err != nil {
			return err
		}
	}
	return nil
}
