package tileset

import "testing"

func TestSetAndTest(t *testing.T) {
	s := New()
	s.Set(5)
	s.Set(200)
	s.Set(1<<20 + 3)

	for _, tile := range []uint32{5, 200, 1<<20 + 3} {
		if !s.Test(tile) {
			t.Errorf("expected tile %d to be set", tile)
		}
	}
	if s.Test(6) {
		t.Errorf("tile 6 should not be set")
	}
	if s.Cardinality() != 3 {
		t.Errorf("cardinality = %d, want 3", s.Cardinality())
	}
}

func TestClear(t *testing.T) {
	s := New()
	s.Set(64)
	s.Set(65)
	s.Clear(64)
	if s.Test(64) {
		t.Errorf("tile 64 should be cleared")
	}
	if !s.Test(65) {
		t.Errorf("tile 65 should remain set")
	}
	if s.Cardinality() != 1 {
		t.Errorf("cardinality = %d, want 1", s.Cardinality())
	}
}

func TestIterateAscending(t *testing.T) {
	s := New()
	want := []uint32{3, 64, 70, 1000, 1<<18 + 1}
	for _, tile := range want {
		s.Set(tile)
	}

	var got []uint32
	s.Iterate(func(tile uint32) bool {
		got = append(got, tile)
		return true
	})

	if len(got) != len(want) {
		t.Fatalf("got %d tiles, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestIterateEarlyStop(t *testing.T) {
	s := New()
	s.Set(1)
	s.Set(2)
	s.Set(3)

	count := 0
	s.Iterate(func(tile uint32) bool {
		count++
		return false
	})
	if count != 1 {
		t.Errorf("expected iteration to stop after first callback, got %d calls", count)
	}
}

func TestNextSet(t *testing.T) {
	s := New()
	s.Set(10)
	s.Set(500)

	tile, ok := s.NextSet(0)
	if !ok || tile != 10 {
		t.Errorf("NextSet(0) = (%d, %v), want (10, true)", tile, ok)
	}

	tile, ok = s.NextSet(11)
	if !ok || tile != 500 {
		t.Errorf("NextSet(11) = (%d, %v), want (500, true)", tile, ok)
	}

	_, ok = s.NextSet(501)
	if ok {
		t.Errorf("NextSet(501) should report no more tiles")
	}
}

func TestTilesSortedSnapshot(t *testing.T) {
	s := New()
	for _, tile := range []uint32{900, 1, 450} {
		s.Set(tile)
	}
	got := s.Tiles()
	want := []uint32{1, 450, 900}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tiles()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
