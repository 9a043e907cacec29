package osmsource

import "testing"

func TestLocationStoreSetAndGet(t *testing.T) {
	s := NewLocationStore(0)
	s.Set(1, 52.5, 13.4)

	lat, lon, ok := s.Get(1)
	if !ok {
		t.Fatal("expected node 1 to be found")
	}
	if lat != 52.5 || lon != 13.4 {
		t.Errorf("got lat=%v lon=%v, want 52.5,13.4", lat, lon)
	}
}

func TestLocationStoreGetMissing(t *testing.T) {
	s := NewLocationStore(0)
	_, _, ok := s.Get(99)
	if ok {
		t.Error("expected missing node to report ok=false")
	}
}

func TestLocationStoreLen(t *testing.T) {
	s := NewLocationStore(0)
	s.Set(1, 0, 0)
	s.Set(2, 0, 0)
	s.Set(1, 1, 1)

	if got := s.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}
