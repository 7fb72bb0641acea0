package osmmap

import "testing"

func TestOverflowAddAndGet(t *testing.T) {
	o := NewOverflow()
	idx, err := o.Add([]uint32{1, 2, 3})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	got := o.Get(idx)
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("Get(%d) = %v, want [1 2 3]", idx, got)
	}
}

func TestOverflowDedupAgainstLastEntry(t *testing.T) {
	o := NewOverflow()
	idx1, _ := o.Add([]uint32{10, 20})
	idx2, _ := o.Add([]uint32{10, 20})
	if idx1 != idx2 {
		t.Errorf("identical consecutive entries should dedup: idx1=%d idx2=%d", idx1, idx2)
	}
	if o.Len() != 1 {
		t.Errorf("expected a single stored entry after dedup, got %d", o.Len())
	}

	idx3, _ := o.Add([]uint32{30})
	if idx3 == idx1 {
		t.Errorf("a distinct entry should not be deduped")
	}

	idx4, _ := o.Add([]uint32{10, 20})
	if idx4 == idx1 {
		t.Errorf("dedup only checks the immediately preceding entry, not the whole store")
	}
}

func TestOverflowGetOutOfRange(t *testing.T) {
	o := NewOverflow()
	if got := o.Get(5); got != nil {
		t.Errorf("Get on empty store should return nil, got %v", got)
	}
}
