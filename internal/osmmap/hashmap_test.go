package osmmap

import "testing"

func TestHashMapPutGet(t *testing.T) {
	m := NewHashMap(16)
	if err := m.Put(42, 100, 200, 1); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	x, y, n, ok := m.Get(42)
	if !ok || x != 100 || y != 200 || n != 1 {
		t.Errorf("Get(42) = (%d,%d,%d,%v), want (100,200,1,true)", x, y, n, ok)
	}
	if _, _, _, ok := m.Get(43); ok {
		t.Errorf("Get(43) should report absent")
	}
}

func TestHashMapPutIsIdempotent(t *testing.T) {
	m := NewHashMap(16)
	m.Put(1, 5, 5, 0)
	m.Put(1, 9, 9, 3) // should not overwrite the existing entry
	x, y, _, _ := m.Get(1)
	if x != 5 || y != 5 {
		t.Errorf("second Put should be a no-op, got (%d,%d)", x, y)
	}
}

func TestHashMapUpdateInlineThenExtended(t *testing.T) {
	m := NewHashMap(16)
	m.Put(7, 100, 100, 0)

	changed, err := m.Update(7, 101, 101) // within inline window
	if err != nil || !changed {
		t.Fatalf("Update within window: changed=%v err=%v", changed, err)
	}

	changed, err = m.Update(7, 101, 101) // repeat: no-op
	if err != nil || changed {
		t.Fatalf("repeat Update should be a no-op: changed=%v err=%v", changed, err)
	}

	changed, err = m.Update(7, 500, 500) // far outside the window: forces extended mode
	if err != nil || !changed {
		t.Fatalf("Update outside window: changed=%v err=%v", changed, err)
	}

	tiles, ok := m.AllTiles(7)
	if !ok {
		t.Fatalf("AllTiles(7) should report present")
	}
	want := map[uint32]bool{}
	for _, tl := range [][2]int{{100, 100}, {101, 101}, {500, 500}} {
		want[uint32(tl[0])<<16|uint32(tl[1])] = true
	}
	for _, tl := range tiles {
		delete(want, tl)
	}
	if len(want) != 0 {
		t.Errorf("AllTiles missing expected tiles: %v", want)
	}
}

func TestHashMapUpdateMissingID(t *testing.T) {
	m := NewHashMap(16)
	changed, err := m.Update(999, 1, 1)
	if err != nil || changed {
		t.Errorf("Update on absent id should be a no-op, got changed=%v err=%v", changed, err)
	}
}

func TestHashMapExpansion(t *testing.T) {
	m := NewHashMap(16)
	for i := int64(0); i < 200; i++ {
		if err := m.Put(i, int(i), int(i), 0); err != nil {
			t.Fatalf("Put(%d) failed: %v", i, err)
		}
	}
	for i := int64(0); i < 200; i++ {
		x, y, _, ok := m.Get(i)
		if !ok || x != int(i) || y != int(i) {
			t.Errorf("Get(%d) = (%d,%d,%v), want (%d,%d,true)", i, x, y, ok, i, i)
		}
	}
}

func TestHashMapKeys(t *testing.T) {
	m := NewHashMap(16)
	want := map[int64]bool{1: true, 2: true, 3: true}
	for id := range want {
		m.Put(id, 0, 0, 0)
	}
	got := map[int64]bool{}
	m.Keys(func(id int64) bool {
		got[id] = true
		return true
	})
	if len(got) != len(want) {
		t.Fatalf("Keys returned %d ids, want %d", len(got), len(want))
	}
	for id := range want {
		if !got[id] {
			t.Errorf("Keys missing id %d", id)
		}
	}
}

func TestHashMapLookupAcrossOverflowChain(t *testing.T) {
	m := NewHashMap(16)
	size := m.capacity()

	home := hash(1, size)
	var colliding int64
	for k := int64(2); ; k++ {
		if hash(k, size) == home {
			colliding = k
			break
		}
	}

	if err := m.Put(1, 1, 1, 0); err != nil {
		t.Fatalf("Put(1): %v", err)
	}
	if err := m.Put(colliding, 2, 2, 0); err != nil {
		t.Fatalf("Put(%d): %v", colliding, err)
	}

	if m.keys[home]&signBit == 0 {
		t.Fatalf("home bucket %d should be flagged as an overflow chain", home)
	}

	x, y, _, ok := m.Get(colliding)
	if !ok || x != 2 || y != 2 {
		t.Errorf("Get(%d) = (%d,%d,%v), want (2,2,true)", colliding, x, y, ok)
	}
	if _, _, _, ok := m.Get(colliding + 1000000); ok {
		t.Errorf("Get on an id that never collided should report absent")
	}
}

func TestHashMapNeighbourTiles(t *testing.T) {
	m := NewHashMap(16)
	m.Put(1, 10, 10, 3) // east+south
	tiles, ok := m.AllTiles(1)
	if !ok || len(tiles) != 3 {
		t.Fatalf("AllTiles(1) = %v, ok=%v; want 3 tiles", tiles, ok)
	}
}
