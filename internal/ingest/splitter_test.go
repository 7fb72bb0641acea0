package ingest

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/osmtools/mapsplit-go/internal/geo"
	"github.com/osmtools/mapsplit-go/internal/osmdata"
	"github.com/osmtools/mapsplit-go/internal/osmmap"
)

func newTestSplitter(opts Options) *Splitter {
	return New(opts, osmmap.NewHashMap(16), osmmap.NewHashMap(16), osmmap.NewHashMap(16), zap.NewNop())
}

func TestAddNodeSingleTile(t *testing.T) {
	s := newTestSplitter(Options{Zoom: 13})
	ts := time.Unix(1000, 0)
	if err := s.AddNode(osmdata.Node{ID: 1, Lat: 47.37, Lon: 8.54, Timestamp: ts}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	x, y, _, ok := s.NodeMap.Get(1)
	if !ok {
		t.Fatalf("node 1 not found")
	}
	if x != 4290 || y != 2868 {
		t.Errorf("node tile = (%d,%d), want (4290,2868)", x, y)
	}
	if !s.Modified.Test(uint32(geo.Encode(x, y))) {
		t.Errorf("expected node's tile in modified set")
	}
	if !s.LatestDate.Equal(ts) {
		t.Errorf("LatestDate = %v, want %v", s.LatestDate, ts)
	}
}

func TestAddWaySpanningTwoTiles(t *testing.T) {
	s := newTestSplitter(Options{Zoom: 13})
	ts := time.Unix(1000, 0)

	// three nodes spread over two adjacent tiles by using explicit
	// Put calls instead of real lon/lat math, to keep the test decoupled
	// from the projection's exact tile boundaries.
	s.NodeMap.Put(1, 100, 100, 0)
	s.NodeMap.Put(2, 101, 100, 0)
	s.NodeMap.Put(3, 101, 100, 0)

	way := osmdata.Way{ID: 10, Nodes: []int64{1, 2, 3}, Timestamp: ts}
	if err := s.AddWay(way); err != nil {
		t.Fatalf("AddWay: %v", err)
	}

	wayTiles, ok := s.WayMap.AllTiles(10)
	if !ok {
		t.Fatalf("way 10 not found")
	}
	want := map[uint32]bool{uint32(geo.Encode(100, 100)): true, uint32(geo.Encode(101, 100)): true}
	for _, tl := range wayTiles {
		delete(want, tl)
	}
	if len(want) != 0 {
		t.Errorf("way tiles missing %v, got %v", want, wayTiles)
	}

	for _, nodeID := range []int64{1, 2, 3} {
		nodeTiles, ok := s.NodeMap.AllTiles(nodeID)
		if !ok {
			t.Fatalf("node %d not found", nodeID)
		}
		if len(nodeTiles) < 2 {
			t.Errorf("node %d should know about both way tiles, got %v", nodeID, nodeTiles)
		}
	}

	if s.Modified.Cardinality() != 2 {
		t.Errorf("expected 2 modified tiles, got %d", s.Modified.Cardinality())
	}
}

func TestAddWayMissingNodeSkipsWay(t *testing.T) {
	s := newTestSplitter(Options{Zoom: 13})
	s.NodeMap.Put(1, 100, 100, 0)

	way := osmdata.Way{ID: 10, Nodes: []int64{1, 2}, Timestamp: time.Unix(1, 0)}
	if err := s.AddWay(way); err != nil {
		t.Fatalf("AddWay: %v", err)
	}
	if _, _, _, ok := s.WayMap.Get(10); ok {
		t.Errorf("way referencing a missing node should not be registered")
	}
}

func TestAddWayHoleFill(t *testing.T) {
	s := newTestSplitter(Options{Zoom: 13})
	ts := time.Unix(1000, 0)

	// a 5x5 hollow ring of nodes, one per border tile (16 nodes),
	// enclosing an interior tile at (12,12).
	var nodes []int64
	var id int64 = 1
	for x := 10; x <= 14; x++ {
		for y := 10; y <= 14; y++ {
			if x == 10 || x == 14 || y == 10 || y == 14 {
				s.NodeMap.Put(id, x, y, 0)
				nodes = append(nodes, id)
				id++
			}
		}
	}

	way := osmdata.Way{ID: 99, Nodes: nodes, Timestamp: ts}
	if err := s.AddWay(way); err != nil {
		t.Fatalf("AddWay: %v", err)
	}

	wayTiles, _ := s.WayMap.AllTiles(99)
	interior := uint32(geo.Encode(12, 12))
	found := false
	for _, tl := range wayTiles {
		if tl == interior {
			found = true
		}
	}
	if !found {
		t.Errorf("expected hole-fill to add interior tile (12,12) to way, got %v", wayTiles)
	}

	for _, nodeID := range nodes {
		tiles, _ := s.NodeMap.AllTiles(nodeID)
		has := false
		for _, tl := range tiles {
			if tl == interior {
				has = true
			}
		}
		if !has {
			t.Errorf("node %d should have learned the filled interior tile", nodeID)
		}
	}
}

func TestAddRelationCompleteAreasPropagatesToMembers(t *testing.T) {
	s := newTestSplitter(Options{Zoom: 13, CompleteAreas: true})

	s.NodeMap.Put(1, 10, 10, 0)
	s.NodeMap.Put(2, 10, 10, 0)
	s.NodeMap.Put(3, 20, 20, 0)
	s.NodeMap.Put(4, 20, 20, 0)

	way1 := osmdata.Way{ID: 101, Nodes: []int64{1, 2}, Timestamp: time.Unix(1, 0)}
	way2 := osmdata.Way{ID: 102, Nodes: []int64{3, 4}, Timestamp: time.Unix(1, 0)}
	if err := s.AddWay(way1); err != nil {
		t.Fatalf("AddWay 1: %v", err)
	}
	if err := s.AddWay(way2); err != nil {
		t.Fatalf("AddWay 2: %v", err)
	}

	rel := osmdata.Relation{
		ID: 500,
		Members: []osmdata.Member{
			{Type: osmdata.WayMember, Ref: 101, Role: "outer"},
			{Type: osmdata.WayMember, Ref: 102, Role: "inner"},
		},
		Tags:      map[string]string{"type": "multipolygon"},
		Timestamp: time.Unix(1, 0),
	}
	if err := s.AddRelation(rel); err != nil {
		t.Fatalf("AddRelation: %v", err)
	}

	relTiles, ok := s.RelMap.AllTiles(500)
	if !ok {
		t.Fatalf("relation 500 not found")
	}
	wantBoth := map[uint32]bool{uint32(geo.Encode(10, 10)): true, uint32(geo.Encode(20, 20)): true}
	for _, tl := range relTiles {
		delete(wantBoth, tl)
	}
	if len(wantBoth) != 0 {
		t.Errorf("relation should cover both ways' tiles, missing %v", wantBoth)
	}

	// every member way should now also know about the union of both
	// tiles, since complete-areas propagates the relation's full tile set
	// down into its members.
	way1Tiles, _ := s.WayMap.AllTiles(101)
	hasBoth := map[uint32]bool{uint32(geo.Encode(10, 10)): true, uint32(geo.Encode(20, 20)): true}
	for _, tl := range way1Tiles {
		delete(hasBoth, tl)
	}
	if len(hasBoth) != 0 {
		t.Errorf("way 101 should have absorbed the relation's full tile set, missing %v", hasBoth)
	}

	if !s.RelationMemberWays[101] || !s.RelationMemberWays[102] {
		t.Errorf("both member ways should be registered for pass 2 completion")
	}
}

func TestAddRelationForwardReference(t *testing.T) {
	s := newTestSplitter(Options{Zoom: 13})

	// relation 1 references relation 2, which hasn't been seen yet.
	rel1 := osmdata.Relation{
		ID:        1,
		Members:   []osmdata.Member{{Type: osmdata.RelationMember, Ref: 2}},
		Timestamp: time.Unix(1, 0),
	}
	if err := s.AddRelation(rel1); err != nil {
		t.Fatalf("AddRelation 1: %v", err)
	}
	if _, _, _, ok := s.RelMap.Get(1); ok {
		t.Errorf("relation 1 should not be registered until its forward reference resolves")
	}
	if len(s.pending) != 1 {
		t.Fatalf("expected relation 1 queued as a pending forward reference, got %d pending", len(s.pending))
	}

	s.NodeMap.Put(10, 5, 5, 0)
	way := osmdata.Way{ID: 20, Nodes: []int64{10}, Timestamp: time.Unix(1, 0)}
	s.AddWay(way)
	rel2 := osmdata.Relation{
		ID:        2,
		Members:   []osmdata.Member{{Type: osmdata.WayMember, Ref: 20}},
		Timestamp: time.Unix(1, 0),
	}
	if err := s.AddRelation(rel2); err != nil {
		t.Fatalf("AddRelation 2: %v", err)
	}

	if err := s.ResolveForwardReferences(); err != nil {
		t.Fatalf("ResolveForwardReferences: %v", err)
	}

	if _, _, _, ok := s.RelMap.Get(1); !ok {
		t.Errorf("relation 1 should resolve once relation 2 is known")
	}
	if len(s.pending) != 0 {
		t.Errorf("pending set should be empty after resolution, got %d", len(s.pending))
	}
}

func TestCompleteWayBackfillsNodes(t *testing.T) {
	s := newTestSplitter(Options{Zoom: 13, CompleteAreas: true})
	s.NodeMap.Put(1, 10, 10, 0)
	s.NodeMap.Put(2, 20, 20, 0)

	way := osmdata.Way{ID: 50, Nodes: []int64{1, 2}, Timestamp: time.Unix(1, 0)}
	s.AddWay(way)

	rel := osmdata.Relation{
		ID:        900,
		Members:   []osmdata.Member{{Type: osmdata.WayMember, Ref: 50}},
		Tags:      map[string]string{"type": "multipolygon"},
		Timestamp: time.Unix(1, 0),
	}
	s.AddRelation(rel)

	// pass 2: re-supply the way's node list (as if re-read from the input)
	if err := s.CompleteWay(way); err != nil {
		t.Fatalf("CompleteWay: %v", err)
	}

	node1Tiles, _ := s.NodeMap.AllTiles(1)
	found := false
	for _, tl := range node1Tiles {
		if tl == uint32(geo.Encode(20, 20)) {
			found = true
		}
	}
	if !found {
		t.Errorf("node 1 should learn way 50's full tile set in pass 2, got %v", node1Tiles)
	}
}
