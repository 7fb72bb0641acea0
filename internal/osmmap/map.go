package osmmap

import "errors"

// ErrCapacityExhausted is returned when a HashMap's backing table cannot be
// expanded further. (ArrayMap reports ids beyond its size with
// ErrIDOutOfRange instead.)
var ErrCapacityExhausted = errors.New("osmmap: capacity exhausted")

// ErrOverflowStoreSaturated is returned when an element's tile set needs to
// move into (or grow within) the overflow store, but the store has already
// handed out its maximum number of 24-bit indices.
var ErrOverflowStoreSaturated = errors.New("osmmap: overflow store saturated")

// ErrIDOutOfRange is returned by ArrayMap when an id exceeds the size it
// was constructed with.
var ErrIDOutOfRange = errors.New("osmmap: id out of range")

// Stats reports load-factor and probing information for diagnostics and for
// the --timing report.
type Stats struct {
	Entries  int64
	Capacity int64
	Misses   int64 // probe misses (HashMap) or unused shard slots touched (ArrayMap)
	Hits     int64
}

// LoadFactor returns Entries/Capacity, or 0 if Capacity is 0.
func (s Stats) LoadFactor() float64 {
	if s.Capacity == 0 {
		return 0
	}
	return float64(s.Entries) / float64(s.Capacity)
}

// Map is the id→tile-set store shared by the hash and array backends. Put
// registers a node/way/relation's initial tile the first time its id is
// seen; Update adds further tiles (from border enlargement, relation
// membership, or the optimisation pass) to an id already present.
type Map interface {
	// Put creates the entry for id if absent. It does nothing if id is
	// already present (use Update to add tiles to an existing entry).
	Put(id int64, x, y, neighbours int) error

	// Update adds tile (x, y) to id's existing tile set. It is a no-op if
	// the tile is already present. Returns (false, nil) if id is absent.
	Update(id int64, x, y int) (ok bool, err error)

	// Get returns id's base tile, neighbour bits, and whether id is
	// present.
	Get(id int64) (x, y, neighbours int, ok bool)

	// AllTiles returns every tile id's packed into, including neighbours
	// and any overflowed extended set. Returns nil, false if id is absent.
	AllTiles(id int64) ([]uint32, bool)

	// Stats reports current load statistics.
	Stats() Stats

	// Keys calls fn for every occupied id. Order is unspecified. It stops
	// early if fn returns false.
	Keys(fn func(id int64) bool)
}
