// Package tileset implements the modified-tile set: a very sparse set of
// 32-bit tile ids, used both as the primary "what to emit" mask and (once
// the optimisation pass runs) as one such mask per coalesced zoom level.
//
// It is the Go analogue of UnsignedSparseBitSet: tiles are stored a
// 64-tile word at a time, keyed by word index, so a planet-scale run
// touching a small fraction of the tile space costs proportional to
// what's actually set rather than to 2^32.
package tileset

import (
	"math/bits"
	"sort"
)

const wordBits = 64

// Set is a sparse set of uint32 tile ids with set/clear/test, cardinality,
// and ascending iteration.
type Set struct {
	words map[uint32]uint64
}

// New returns an empty Set.
func New() *Set {
	return &Set{words: make(map[uint32]uint64)}
}

func wordIndex(tile uint32) (word uint32, bit uint) {
	return tile / wordBits, uint(tile % wordBits)
}

// Set marks tile as present.
func (s *Set) Set(tile uint32) {
	w, b := wordIndex(tile)
	s.words[w] |= 1 << b
}

// Clear removes tile from the set.
func (s *Set) Clear(tile uint32) {
	w, b := wordIndex(tile)
	v, ok := s.words[w]
	if !ok {
		return
	}
	v &^= 1 << b
	if v == 0 {
		delete(s.words, w)
	} else {
		s.words[w] = v
	}
}

// Test reports whether tile is present.
func (s *Set) Test(tile uint32) bool {
	w, b := wordIndex(tile)
	return s.words[w]&(1<<b) != 0
}

// Cardinality returns the number of tiles set.
func (s *Set) Cardinality() int {
	count := 0
	for _, v := range s.words {
		count += bits.OnesCount64(v)
	}
	return count
}

// NextSet returns the smallest set tile >= from, or (0, false) if none.
func (s *Set) NextSet(from uint32) (uint32, bool) {
	startWord, startBit := wordIndex(from)

	keys := s.sortedWordKeys()
	i := sort.Search(len(keys), func(i int) bool { return keys[i] >= startWord })
	for ; i < len(keys); i++ {
		w := keys[i]
		v := s.words[w]
		if w == startWord {
			v &^= (uint64(1) << startBit) - 1
		}
		if v == 0 {
			continue
		}
		bit := bits.TrailingZeros64(v)
		return w*wordBits + uint32(bit), true
	}
	return 0, false
}

// Iterate calls fn for every set tile in ascending order. It stops early if
// fn returns false.
func (s *Set) Iterate(fn func(tile uint32) bool) {
	for _, w := range s.sortedWordKeys() {
		v := s.words[w]
		for v != 0 {
			bit := bits.TrailingZeros64(v)
			if !fn(w*wordBits + uint32(bit)) {
				return
			}
			v &^= 1 << uint(bit)
		}
	}
}

// Tiles returns every set tile as a sorted slice. Convenience for callers
// that want a snapshot rather than a callback.
func (s *Set) Tiles() []uint32 {
	out := make([]uint32, 0, s.Cardinality())
	s.Iterate(func(tile uint32) bool {
		out = append(out, tile)
		return true
	})
	return out
}

func (s *Set) sortedWordKeys() []uint32 {
	keys := make([]uint32, 0, len(s.words))
	for w := range s.words {
		keys = append(keys, w)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
