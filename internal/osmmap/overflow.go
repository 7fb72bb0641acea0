package osmmap

import "fmt"

// overflowIndexBits is the width of the payload field used to index into
// the overflow store once a value switches to extended mode.
const overflowIndexBits = 24

// maxOverflowEntries is the largest index an extended value can address.
const maxOverflowEntries = 1 << overflowIndexBits

// Overflow is the growable, append-only pool of tile-id slices referenced
// by extended map values. It mirrors ExtendedTileSetStore: entries are
// never mutated in place, only appended, and a cheap dedup check against
// the immediately-preceding entry catches the common case of an element
// whose tile set was just extended and is being extended again tile by
// tile.
type Overflow struct {
	entries [][]uint32
}

// NewOverflow returns an empty overflow store.
func NewOverflow() *Overflow {
	return &Overflow{}
}

// Get returns the tile slice stored at idx. The caller must not modify the
// returned slice; Add never reuses or mutates a stored entry in place, but
// the slice itself is shared with whatever copy was passed to Add.
func (o *Overflow) Get(idx int) []uint32 {
	if idx < 0 || idx >= len(o.entries) {
		return nil
	}
	return o.entries[idx]
}

// Add appends tiles as a new entry and returns its index, unless the
// immediately preceding entry is identical, in which case that index is
// reused. Returns ErrOverflowStoreSaturated if the store has reached
// maxOverflowEntries and cannot hand out a fresh index.
func (o *Overflow) Add(tiles []uint32) (int, error) {
	if n := len(o.entries); n > 0 && sameTiles(o.entries[n-1], tiles) {
		return n - 1, nil
	}
	if len(o.entries) >= maxOverflowEntries {
		return 0, ErrOverflowStoreSaturated
	}
	o.entries = append(o.entries, tiles)
	return len(o.entries) - 1, nil
}

// Replace overwrites the entry at idx with tiles. Used when an existing
// extended entry gains an additional tile and a fresh copy needs to be
// stored, e.g. after appending to a slice that may have been shared.
func (o *Overflow) Replace(idx int, tiles []uint32) error {
	if idx < 0 || idx >= len(o.entries) {
		return fmt.Errorf("osmmap: overflow index %d out of range (%d entries)", idx, len(o.entries))
	}
	o.entries[idx] = tiles
	return nil
}

// Len returns the number of entries currently stored.
func (o *Overflow) Len() int { return len(o.entries) }

func sameTiles(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
