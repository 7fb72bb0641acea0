package clip

import (
	"testing"

	"github.com/paulmach/orb"

	"github.com/osmtools/mapsplit-go/internal/geo"
	"github.com/osmtools/mapsplit-go/internal/tileset"
)

func TestApplyKeepsTilesInsideRing(t *testing.T) {
	proj := geo.Projection{Zoom: 4}
	modified := tileset.New()

	// tile (8,8) at zoom 4 covers lon [0,22.5) and is comfortably inside a
	// big inside ring; tile (0,0) is far outside it.
	modified.Set(uint32(geo.Encode(8, 8)))
	modified.Set(uint32(geo.Encode(0, 0)))

	poly := &Polygon{
		Inside: []orb.Ring{{
			{-10, -10}, {-10, 40}, {40, 40}, {40, -10}, {-10, -10},
		}},
	}

	kept := Apply(modified, proj, poly)
	if !kept.Test(uint32(geo.Encode(8, 8))) {
		t.Errorf("tile (8,8) should survive the clip")
	}
	if kept.Test(uint32(geo.Encode(0, 0))) {
		t.Errorf("tile (0,0) should be dropped by the clip")
	}
}

func TestApplyDropsTilesInsideOutsideRing(t *testing.T) {
	proj := geo.Projection{Zoom: 4}
	modified := tileset.New()
	modified.Set(uint32(geo.Encode(8, 8)))

	poly := &Polygon{
		Inside: []orb.Ring{{
			{-10, -10}, {-10, 40}, {40, 40}, {40, -10}, {-10, -10},
		}},
		Outside: []orb.Ring{{
			{-10, -10}, {-10, 40}, {40, 40}, {40, -10}, {-10, -10},
		}},
	}

	kept := Apply(modified, proj, poly)
	if kept.Cardinality() != 0 {
		t.Errorf("expected every tile to be dropped when fully covered by an outside ring, got %d", kept.Cardinality())
	}
}

func TestApplyNoInsideRingsDropsEverything(t *testing.T) {
	proj := geo.Projection{Zoom: 4}
	modified := tileset.New()
	modified.Set(uint32(geo.Encode(8, 8)))

	poly := &Polygon{}
	kept := Apply(modified, proj, poly)
	if kept.Cardinality() != 0 {
		t.Errorf("with no inside rings nothing should be kept, got %d", kept.Cardinality())
	}
}
