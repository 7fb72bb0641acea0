package osmmap

import "math"

// HashMap is an open-addressed id→tile map for runs where the maximum id
// isn't known ahead of time (e.g. a region extract rather than a full
// planet file). It mirrors HeapMap.java: ids are hashed into a table of
// (key, value) slots with linear probing on collision, and a lookup that
// misses at its home bucket can stop immediately unless that bucket is
// flagged as having started an overflow chain.
type HashMap struct {
	keys   []int64
	values []Value
	used   int64

	overflow *Overflow
	stats    Stats
}

const hashMapLoadFactor = 0.75

// signBit flags a stored key's home bucket as having an overflow chain:
// some other key once collided with it and got displaced further down the
// probe sequence. A lookup that misses at its own home bucket can return
// immediately when this bit is clear, since no key ever probed past it.
const signBit = int64(math.MinInt64)

// emptyKey marks an unused slot. OSM ids are non-negative, so this
// sentinel does not collide with a stored key; HashMap itself does not
// reject negative ids.
const emptyKey = int64(-1)

// NewHashMap returns an empty HashMap sized for roughly initialCapacity
// entries before its first expansion.
func NewHashMap(initialCapacity int64) *HashMap {
	size := nextPowerOfTwo(initialCapacity)
	if size < 16 {
		size = 16
	}
	m := &HashMap{
		keys:     make([]int64, size),
		values:   make([]Value, size),
		overflow: NewOverflow(),
	}
	for i := range m.keys {
		m.keys[i] = emptyKey
	}
	return m
}

func nextPowerOfTwo(n int64) int64 {
	p := int64(1)
	for p < n {
		p <<= 1
	}
	return p
}

// hash applies the multiplicative hash HeapMap.java uses for table
// indexing: (1664525*key + 1013904223), masked to stay positive, then
// reduced modulo the table size (a power of two, so a mask suffices).
func hash(key int64, tableSize int64) int64 {
	h := int64(1664525)*key + 1013904223
	h &= 0x7fffffffffffffff
	return h & (tableSize - 1)
}

func (m *HashMap) capacity() int64 { return int64(len(m.keys)) }

func (m *HashMap) slotKey(key int64) int64 { return key &^ signBit }

// findSlot returns the index of key's slot, or -1 if absent. It mirrors
// HeapMap.java's getBucket: if the home bucket doesn't hold key but also
// was never marked as the start of an overflow chain, key can't be stored
// anywhere else in the table and the probe stops after one step.
func (m *HashMap) findSlot(key int64) int {
	size := m.capacity()
	home := hash(key, size)
	i := home
	for probed := int64(0); probed < size; probed++ {
		idx := int(i)
		k := m.keys[idx]
		if k == emptyKey {
			return -1
		}
		if m.slotKey(k) == key {
			return idx
		}
		if probed == 0 && k&signBit == 0 {
			return -1
		}
		i = (i + 1) & (size - 1)
	}
	return -1
}

// probeInsert finds the first free slot for key by linear probing from its
// home bucket, flagging the home bucket with signBit the first time it is
// found already occupied, per HeapMap.java's put().
func (m *HashMap) probeInsert(key int64) int {
	size := m.capacity()
	home := hash(key, size)
	i := home
	for probed := int64(0); probed < size; probed++ {
		idx := int(i)
		if m.keys[idx] == emptyKey {
			return idx
		}
		if probed == 0 {
			m.keys[idx] |= signBit
		}
		i = (i + 1) & (size - 1)
	}
	return -1
}

func (m *HashMap) maybeExpand() error {
	if float64(m.used) < float64(m.capacity())*hashMapLoadFactor {
		return nil
	}
	old := *m
	newSize := m.capacity() * 2
	m.keys = make([]int64, newSize)
	m.values = make([]Value, newSize)
	for i := range m.keys {
		m.keys[i] = emptyKey
	}
	m.used = 0
	for i, k := range old.keys {
		if k == emptyKey {
			continue
		}
		if err := m.insert(old.slotKey(k), old.values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *HashMap) insert(key int64, v Value) error {
	free := m.probeInsert(key)
	if free == -1 {
		return ErrCapacityExhausted
	}
	m.keys[free] = key
	m.values[free] = v
	m.used++
	return nil
}

func (m *HashMap) Put(id int64, x, y, neighbours int) error {
	if idx := m.findSlot(id); idx != -1 {
		return nil
	}
	if err := m.maybeExpand(); err != nil {
		return err
	}
	return m.insert(id, NewValue(x, y, neighbours))
}

func (m *HashMap) Update(id int64, x, y int) (bool, error) {
	idx := m.findSlot(id)
	if idx == -1 {
		m.stats.Misses++
		return false, nil
	}
	m.stats.Hits++
	next, changed, err := addTile(m.values[idx], x, y, m.overflow)
	if err != nil {
		return false, err
	}
	m.values[idx] = next
	return changed, nil
}

func (m *HashMap) Get(id int64) (x, y, neighbours int, ok bool) {
	idx := m.findSlot(id)
	if idx == -1 {
		return 0, 0, 0, false
	}
	v := m.values[idx]
	return v.TileX(), v.TileY(), v.Neighbours(), true
}

func (m *HashMap) AllTiles(id int64) ([]uint32, bool) {
	idx := m.findSlot(id)
	if idx == -1 {
		return nil, false
	}
	return allTiles(m.values[idx], m.overflow), true
}

func (m *HashMap) Stats() Stats {
	s := m.stats
	s.Entries = m.used
	s.Capacity = m.capacity()
	return s
}

func (m *HashMap) Keys(fn func(id int64) bool) {
	for _, k := range m.keys {
		if k == emptyKey {
			continue
		}
		if !fn(m.slotKey(k)) {
			return
		}
	}
}
