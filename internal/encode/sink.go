package encode

import (
	"time"

	"github.com/osmtools/mapsplit-go/internal/geo"
)

// Sink is the pass-3 write-out target: either many per-tile files or one
// MBTiles database. NewEncoder opens a fresh TileEncoder for (zoom, x, y);
// each tile is opened at most once across a run, per §4.8.
type Sink interface {
	NewEncoder(zoom, x, y int) (TileEncoder, error)
	Finalize(Metadata) error
	Close() error
}

// Metadata is the run-level summary written once, after every tile has
// been emitted, into whichever sink supports it (currently MBTiles only;
// the per-file sink has no equivalent slot and ignores it).
type Metadata struct {
	MinZoom, MaxZoom int
	Bound            geo.Bound
	LatestDate       time.Time
}
