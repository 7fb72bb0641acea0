package osmmap

import (
	"encoding/binary"
	"fmt"
	"os"
	"syscall"
)

// valueSize is the width of one Value slot in the backing file, a
// simple 8-byte fixed-width entry.
const valueSize = 8

// MmapArrayMap is a direct-indexed id->tile map whose slots live in a
// memory-mapped scratch file instead of the Go heap, generalizing a
// single-purpose node coordinate index to this package's tile-set Value
// encoding. It's selected over ArrayMap when --max-ids is given
// together with --mmap-index, for id spaces too large to comfortably
// allocate in-process.
//
// Presence needs no separate bitset: NewValue always sets the format's
// "one bit" flag (bit 31), so the zero Value can never be produced by a
// real Put and serves as its own absent-slot sentinel.
type MmapArrayMap struct {
	file     *os.File
	data     []byte
	size     int64
	overflow *Overflow
	stats    Stats
}

// NewMmapArrayMap creates a scratch-backed ArrayMap sized for ids in
// [0, maxID], using path as backing storage. The file is truncated to
// size*valueSize bytes, a sparse file on Linux so untouched ranges cost
// no disk space until a Put writes to them.
func NewMmapArrayMap(path string, maxID int64) (*MmapArrayMap, error) {
	if maxID < 0 {
		maxID = 0
	}
	size := maxID + 1

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("osmmap: creating mmap index %s: %w", path, err)
	}
	if err := f.Truncate(size * valueSize); err != nil {
		f.Close()
		return nil, fmt.Errorf("osmmap: sizing mmap index %s: %w", path, err)
	}
	data, err := syscall.Mmap(int(f.Fd()), 0, int(size*valueSize), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("osmmap: mapping index %s: %w", path, err)
	}

	return &MmapArrayMap{
		file:     f,
		data:     data,
		size:     size,
		overflow: NewOverflow(),
	}, nil
}

func (m *MmapArrayMap) valueAt(id int64) Value {
	return Value(binary.LittleEndian.Uint64(m.data[id*valueSize:]))
}

func (m *MmapArrayMap) setValueAt(id int64, v Value) {
	binary.LittleEndian.PutUint64(m.data[id*valueSize:], uint64(v))
}

func (m *MmapArrayMap) Put(id int64, x, y, neighbours int) error {
	if id < 0 || id >= m.size {
		return ErrIDOutOfRange
	}
	if m.valueAt(id) != Empty {
		return nil
	}
	m.setValueAt(id, NewValue(x, y, neighbours))
	m.stats.Entries++
	return nil
}

func (m *MmapArrayMap) Update(id int64, x, y int) (bool, error) {
	if id < 0 || id >= m.size {
		m.stats.Misses++
		return false, nil
	}
	cur := m.valueAt(id)
	if cur == Empty {
		m.stats.Misses++
		return false, nil
	}
	m.stats.Hits++
	next, changed, err := addTile(cur, x, y, m.overflow)
	if err != nil {
		return false, err
	}
	m.setValueAt(id, next)
	return changed, nil
}

func (m *MmapArrayMap) Get(id int64) (x, y, neighbours int, ok bool) {
	if id < 0 || id >= m.size {
		return 0, 0, 0, false
	}
	v := m.valueAt(id)
	if v == Empty {
		return 0, 0, 0, false
	}
	return v.TileX(), v.TileY(), v.Neighbours(), true
}

func (m *MmapArrayMap) AllTiles(id int64) ([]uint32, bool) {
	if id < 0 || id >= m.size {
		return nil, false
	}
	v := m.valueAt(id)
	if v == Empty {
		return nil, false
	}
	return allTiles(v, m.overflow), true
}

func (m *MmapArrayMap) Stats() Stats {
	s := m.stats
	s.Capacity = m.size
	return s
}

func (m *MmapArrayMap) Keys(fn func(id int64) bool) {
	for id := int64(0); id < m.size; id++ {
		if m.valueAt(id) == Empty {
			continue
		}
		if !fn(id) {
			return
		}
	}
}

// Close unmaps and removes the backing scratch file. The map must not be
// used afterwards.
func (m *MmapArrayMap) Close() error {
	if err := syscall.Munmap(m.data); err != nil {
		m.file.Close()
		return err
	}
	name := m.file.Name()
	if err := m.file.Close(); err != nil {
		return err
	}
	return os.Remove(name)
}
