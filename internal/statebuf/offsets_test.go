package statebuf

import "testing"

func TestPackedOffsets_RoundTrip(t *testing.T) {
	o := offsets{Player: 0xdeadbeef, Shared: 7}
	if got := unpackOffsets(packOffsets(o)); got != o {
		t.Fatalf("got %+v, want %+v", got, o)
	}
}

func TestPackedOffsets_ReserveAdvancesBothHalves(t *testing.T) {
	var p packedOffsets
	first := p.reserve(3)
	second := p.reserve(2)
	if first != (offsets{}) {
		t.Errorf("first reservation at %+v, want zero", first)
	}
	if second != (offsets{Player: 3, Shared: 1}) {
		t.Errorf("second reservation at %+v", second)
	}
	if now := p.load(); now != (offsets{Player: 5, Shared: 2}) {
		t.Errorf("offsets %+v after two reservations", now)
	}
	p.reset()
	if now := p.load(); now != (offsets{}) {
		t.Errorf("offsets %+v after reset", now)
	}
}
