package osmmap

// maxShardSize caps each ArrayMap shard at 1<<30 slots, matching
// ArrayMap.java's MAX_ARRAY_SIZE, so indexing never has to address more
// than 2^30 entries within a single allocation. Shards are sized to
// what's actually needed up to that cap: a map sized well under 1<<30
// ids gets one right-sized shard, not a full 1<<30-slot one.
const maxShardSize = int64(1) << 30

// ArrayMap is a direct-indexed id→tile map for runs where the maximum id is
// known in advance (a full planet file, where node/way/relation ids are
// densely packed from 1 up to some bound). It mirrors ArrayMap.java:
// presence is tracked by a parallel bitset rather than by a sentinel
// slot value; the id
// space is sharded across several slices so indexing never has to address
// more than 2^30 entries per allocation.
type ArrayMap struct {
	shards     [][]Value
	present    []bitset
	shardSizes []int64 // actual length of each shard (the last may be short)
	size       int64
	overflow   *Overflow
	stats      Stats
}

// bitset tracks presence for one shard's worth of ids.
type bitset []uint64

func newBitset(n int64) bitset {
	return make(bitset, (n+63)/64)
}

func (b bitset) set(i int64)       { b[i/64] |= 1 << uint(i%64) }
func (b bitset) test(i int64) bool { return b[i/64]&(1<<uint(i%64)) != 0 }

// NewArrayMap returns an ArrayMap sized to hold ids in [0, maxID].
func NewArrayMap(maxID int64) *ArrayMap {
	if maxID < 0 {
		maxID = 0
	}
	size := maxID + 1
	shardCount := (size + maxShardSize - 1) / maxShardSize

	m := &ArrayMap{
		shards:     make([][]Value, shardCount),
		present:    make([]bitset, shardCount),
		shardSizes: make([]int64, shardCount),
		size:       size,
		overflow:   NewOverflow(),
	}
	remaining := size
	for i := int64(0); i < shardCount; i++ {
		n := remaining
		if n > maxShardSize {
			n = maxShardSize
		}
		m.shardSizes[i] = n
		remaining -= n
	}
	return m
}

func (m *ArrayMap) locate(id int64) (shard int64, offset int64, ok bool) {
	if id < 0 || id >= m.size {
		return 0, 0, false
	}
	return id / maxShardSize, id % maxShardSize, true
}

func (m *ArrayMap) ensureShard(shard int64) {
	if m.shards[shard] == nil {
		m.shards[shard] = make([]Value, m.shardSizes[shard])
		m.present[shard] = newBitset(m.shardSizes[shard])
	}
}

func (m *ArrayMap) Put(id int64, x, y, neighbours int) error {
	shard, offset, ok := m.locate(id)
	if !ok {
		return ErrIDOutOfRange
	}
	m.ensureShard(shard)
	if m.present[shard].test(offset) {
		return nil
	}
	m.shards[shard][offset] = NewValue(x, y, neighbours)
	m.present[shard].set(offset)
	m.stats.Entries++
	return nil
}

func (m *ArrayMap) Update(id int64, x, y int) (bool, error) {
	shard, offset, ok := m.locate(id)
	if !ok {
		return false, ErrIDOutOfRange
	}
	if m.shards[shard] == nil || !m.present[shard].test(offset) {
		m.stats.Misses++
		return false, nil
	}
	m.stats.Hits++
	next, changed, err := addTile(m.shards[shard][offset], x, y, m.overflow)
	if err != nil {
		return false, err
	}
	m.shards[shard][offset] = next
	return changed, nil
}

func (m *ArrayMap) Get(id int64) (x, y, neighbours int, ok bool) {
	shard, offset, valid := m.locate(id)
	if !valid || m.shards[shard] == nil || !m.present[shard].test(offset) {
		return 0, 0, 0, false
	}
	v := m.shards[shard][offset]
	return v.TileX(), v.TileY(), v.Neighbours(), true
}

func (m *ArrayMap) AllTiles(id int64) ([]uint32, bool) {
	shard, offset, valid := m.locate(id)
	if !valid || m.shards[shard] == nil || !m.present[shard].test(offset) {
		return nil, false
	}
	return allTiles(m.shards[shard][offset], m.overflow), true
}

func (m *ArrayMap) Stats() Stats {
	s := m.stats
	s.Capacity = m.size
	return s
}

func (m *ArrayMap) Keys(fn func(id int64) bool) {
	for shard := range m.shards {
		if m.shards[shard] == nil {
			continue
		}
		base := int64(shard) * maxShardSize
		for offset := int64(0); offset < m.shardSizes[shard]; offset++ {
			if !m.present[shard].test(offset) {
				continue
			}
			if !fn(base + offset) {
				return
			}
		}
	}
}
