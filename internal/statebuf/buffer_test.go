package statebuf

import (
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/momentics/envpool/array"
	"github.com/momentics/envpool/internal/concurrency"
)

func testFields() []array.ShapeSpec {
	return []array.ShapeSpec{
		array.Spec("env_id", array.Int32),
		array.Spec("obs", array.Float32, 2),
		array.Spec("players.env_id", array.Int32, array.PlayerDim),
	}
}

func TestStateBuffer_ConcurrentAllocationIsDisjoint(t *testing.T) {
	const batch = 64
	b := NewStateBuffer(batch, 1, testFields())

	var wg sync.WaitGroup
	for i := 0; i < batch; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s, err := b.Allocate(1, concurrency.Unordered)
			if err != nil {
				t.Error(err)
				return
			}
			s.Arrays[0].Int32s()[0] = int32(id)
			s.Arrays[2].Int32s()[0] = int32(id)
			s.Done()
		}(i)
	}
	wg.Wait()

	out := b.Wait(0)
	if out[0].Rows() != batch || out[2].Rows() != batch {
		t.Fatalf("rows %d/%d, want %d", out[0].Rows(), out[2].Rows(), batch)
	}
	ids := append([]int32(nil), out[0].Int32s()...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		if id != int32(i) {
			t.Fatalf("row ids %v: a slot was handed out twice", ids)
		}
	}
}

func TestStateBuffer_PinnedOrder(t *testing.T) {
	b := NewStateBuffer(3, 1, testFields())
	for _, order := range []int{2, 0, 1} {
		s, err := b.Allocate(1, order)
		if err != nil {
			t.Fatal(err)
		}
		if s.SharedIndex != order || s.PlayerOffset != order {
			t.Fatalf("slot at %d/%d, want %d", s.SharedIndex, s.PlayerOffset, order)
		}
		s.Arrays[0].Int32s()[0] = int32(10 + order)
		s.Done()
	}
	out := b.Wait(0)
	if got := out[0].Int32s(); got[0] != 10 || got[1] != 11 || got[2] != 12 {
		t.Fatalf("rows %v not in order", got)
	}
}

func TestStateBuffer_MultiPlayerOffsets(t *testing.T) {
	b := NewStateBuffer(2, 4, testFields())
	s1, _ := b.Allocate(3, concurrency.Unordered)
	s2, _ := b.Allocate(0, concurrency.Unordered)
	if s1.PlayerOffset != 0 || s1.Arrays[2].Rows() != 3 {
		t.Fatalf("first slot %+v", s1)
	}
	if s2.SharedIndex != 1 || s2.PlayerOffset != 3 || s2.Arrays[2].Rows() != 0 {
		t.Fatalf("second slot %+v", s2)
	}
	s1.Done()
	s2.Done()
	out := b.Wait(0)
	if out[0].Rows() != 2 || out[2].Rows() != 3 {
		t.Fatalf("rows %d shared, %d player", out[0].Rows(), out[2].Rows())
	}
}

func TestStateBuffer_RejectsOverflowUntilReset(t *testing.T) {
	b := NewStateBuffer(2, 2, testFields())
	if _, err := b.Allocate(3, concurrency.Unordered); !errors.Is(err, ErrTooManyPlayers) {
		t.Fatalf("got %v, want ErrTooManyPlayers", err)
	}
	for i := 0; i < 2; i++ {
		s, err := b.Allocate(1, concurrency.Unordered)
		if err != nil {
			t.Fatal(err)
		}
		s.Done()
	}
	if _, err := b.Allocate(1, concurrency.Unordered); !errors.Is(err, ErrBufferExhausted) {
		t.Fatalf("got %v, want ErrBufferExhausted", err)
	}

	b.Wait(0)
	if !b.Drained() {
		t.Fatal("buffer not marked drained")
	}
	if _, err := b.Allocate(1, concurrency.Unordered); !errors.Is(err, ErrBufferExhausted) {
		t.Fatalf("drained buffer accepted a write: %v", err)
	}

	b.Reset()
	s, err := b.Allocate(1, concurrency.Unordered)
	if err != nil {
		t.Fatalf("allocate after reset: %v", err)
	}
	if s.SharedIndex != 0 {
		t.Errorf("slot %d after reset, want 0", s.SharedIndex)
	}
	if v := s.Arrays[1].Float32s(); v[0] != 0 || v[1] != 0 {
		t.Errorf("storage not zeroed: %v", v)
	}
}

func TestStateBuffer_WaitWithCredit(t *testing.T) {
	b := NewStateBuffer(4, 1, testFields())
	for i := 0; i < 2; i++ {
		s, _ := b.Allocate(1, i)
		s.Done()
	}
	out := b.Wait(2)
	if out[0].Rows() != 2 {
		t.Fatalf("rows %d, want 2", out[0].Rows())
	}
}

func TestStateBuffer_WaitBlocksUntilComplete(t *testing.T) {
	b := NewStateBuffer(2, 1, testFields())
	s1, _ := b.Allocate(1, concurrency.Unordered)
	s2, _ := b.Allocate(1, concurrency.Unordered)
	s1.Done()
	s1.Done() // ignored

	got := make(chan int, 1)
	go func() { got <- b.Wait(0)[0].Rows() }()

	select {
	case <-got:
		t.Fatal("Wait returned before every slot was done")
	case <-time.After(50 * time.Millisecond):
	}
	s2.Done()
	select {
	case rows := <-got:
		if rows != 2 {
			t.Fatalf("rows %d", rows)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return")
	}
}

func TestStateBuffer_SyncInvariantPanics(t *testing.T) {
	b := NewStateBuffer(2, 1, testFields())
	s, _ := b.Allocate(1, concurrency.Unordered)
	s.Done()
	s2, _ := b.Allocate(1, concurrency.Unordered)
	s2.Done()

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrSyncInvariant) {
			t.Fatalf("recovered %v, want ErrSyncInvariant", r)
		}
	}()
	// Both slots were allocated, so crediting one more is inconsistent.
	b.Wait(1)
}

func BenchmarkStateBuffer_AllocateDone(b *testing.B) {
	buf := NewStateBuffer(256, 1, testFields())
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		s, err := buf.Allocate(1, concurrency.Unordered)
		if err != nil {
			buf.Wait(0)
			buf.Reset()
			continue
		}
		s.Done()
	}
}
