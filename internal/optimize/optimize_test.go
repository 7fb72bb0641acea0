package optimize

import (
	"testing"

	"github.com/osmtools/mapsplit-go/internal/geo"
	"github.com/osmtools/mapsplit-go/internal/osmmap"
	"github.com/osmtools/mapsplit-go/internal/tileset"
)

func TestMapToNewTile(t *testing.T) {
	tile := geo.Encode(100, 200)
	got := mapToNewTile(tile, 13, 11)
	want := geo.Encode(25, 50)
	if got != want {
		t.Errorf("mapToNewTile = %v, want %v", got, want)
	}
}

func TestSiblingGroup(t *testing.T) {
	group := siblingGroup(geo.Encode(10, 10), 13, 12)
	if len(group) != 4 {
		t.Fatalf("expected 4 siblings for a single zoom-out step, got %d", len(group))
	}
	want := map[uint32]bool{
		uint32(geo.Encode(10, 10)): true,
		uint32(geo.Encode(11, 10)): true,
		uint32(geo.Encode(10, 11)): true,
		uint32(geo.Encode(11, 11)): true,
	}
	for _, g := range group {
		if !want[g] {
			t.Errorf("unexpected sibling tile %v", g)
		}
	}
}

func TestRunCoalescesSparseTiles(t *testing.T) {
	nodeMap := osmmap.NewHashMap(16)
	modified := tileset.New()

	// four adjacent sparse tiles at zoom 13 (children of one zoom-12
	// parent), each with just a handful of nodes.
	tiles := []geo.TileID{geo.Encode(10, 10), geo.Encode(11, 10), geo.Encode(10, 11), geo.Encode(11, 11)}
	id := int64(1)
	for _, tile := range tiles {
		for i := 0; i < 3; i++ {
			nodeMap.Put(id, tile.X(), tile.Y(), 0)
			modified.Set(uint32(tile))
			id++
		}
	}

	plan := Run(modified, nodeMap, 13, 10)

	for _, tile := range tiles {
		zoom := plan.NewZoom(uint32(tile))
		if zoom >= 13 {
			t.Errorf("tile %v should have been coalesced to a lower zoom, stayed at %d", tile, zoom)
		}
	}
}

func TestRunLeavesDenseTilesAlone(t *testing.T) {
	nodeMap := osmmap.NewHashMap(16)
	modified := tileset.New()

	tile := geo.Encode(5, 5)
	modified.Set(uint32(tile))
	for id := int64(1); id <= 50; id++ {
		nodeMap.Put(id, tile.X(), tile.Y(), 0)
	}

	plan := Run(modified, nodeMap, 13, 10)
	if zoom := plan.NewZoom(uint32(tile)); zoom != 13 {
		t.Errorf("dense tile should stay at base zoom, got %d", zoom)
	}
}
