package memory

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/prism/engine/core"
)

func TestArenaReserveAccounting(t *testing.T) {
	arena := NewArena()

	if err := arena.Reserve(64); err != nil {
		t.Fatalf("Reserve(64) failed: %v", err)
	}
	if err := arena.Reserve(16); err != nil {
		t.Fatalf("Reserve(16) failed: %v", err)
	}

	stats := arena.Stats()
	if stats.NumAllocations != 2 {
		t.Errorf("NumAllocations = %d, want 2", stats.NumAllocations)
	}
	if stats.NumBytesAllocated != 80 {
		t.Errorf("NumBytesAllocated = %d, want 80", stats.NumBytesAllocated)
	}

	arena.Reset()
	if stats := arena.Stats(); stats.NumBytesAllocated != 0 || stats.NumAllocations != 0 {
		t.Errorf("Stats after Reset = %v, want empty", stats)
	}
}

func TestArenaLimit(t *testing.T) {
	arena := NewArenaWithLimit(32)

	if err := arena.Reserve(32); err != nil {
		t.Fatalf("Reserve(32) within limit failed: %v", err)
	}
	err := arena.Reserve(1)
	if !errors.Is(err, core.ErrOutOfMemory) {
		t.Fatalf("Reserve(1) past limit = %v, want ErrOutOfMemory", err)
	}

	arena.Reset()
	if err := arena.Reserve(32); err != nil {
		t.Fatalf("Reserve(32) after Reset failed: %v", err)
	}
}

func TestAllocSlice(t *testing.T) {
	arena := NewArenaWithLimit(64)

	s, err := AllocSlice[uint64](arena, 4)
	if err != nil {
		t.Fatalf("AllocSlice failed: %v", err)
	}
	if len(s) != 4 {
		t.Errorf("len = %d, want 4", len(s))
	}
	if got := arena.Stats().NumBytesAllocated; got != 32 {
		t.Errorf("bytes allocated = %d, want 32", got)
	}

	if _, err := AllocSlice[uint64](arena, 5); !errors.Is(err, core.ErrOutOfMemory) {
		t.Fatalf("AllocSlice past limit = %v, want ErrOutOfMemory", err)
	}
}

func TestAlignUp(t *testing.T) {
	tests := []struct {
		v, n, want int
	}{
		{0, 8, 0},
		{1, 8, 8},
		{7, 8, 8},
		{8, 8, 8},
		{9, 8, 16},
		{12, 4, 12},
		{13, 4, 16},
	}
	for _, tt := range tests {
		if got := AlignUp(tt.v, tt.n); got != tt.want {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", tt.v, tt.n, got, tt.want)
		}
	}
}

func TestCursorMeasureMatchesWrite(t *testing.T) {
	walk := func(c *Cursor) ([]uint32, []uint64) {
		a := Carve[uint32](c, 3)
		b := Carve[uint64](c, 2)
		return a, b
	}

	measure := NewMeasuringCursor()
	walk(measure)
	size := measure.Offset()

	// 12 bytes of uint32, padded to 16 for uint64 alignment, plus 16.
	if size != 32 {
		t.Fatalf("measured size = %d, want 32", size)
	}

	block := make([]byte, size)
	write := NewCursor(block)
	a, b := walk(write)
	if write.Offset() != size {
		t.Fatalf("write offset = %d, want %d", write.Offset(), size)
	}

	a[0], a[1], a[2] = 1, 2, 3
	b[0], b[1] = 4, 5

	// Carving the same block again must view the same memory.
	reread := NewCursor(block)
	a2, b2 := walk(reread)
	if a2[0] != 1 || a2[1] != 2 || a2[2] != 3 {
		t.Errorf("reread uint32s = %v, want [1 2 3]", a2)
	}
	if b2[0] != 4 || b2[1] != 5 {
		t.Errorf("reread uint64s = %v, want [4 5]", b2)
	}
}

func TestCursorOverrunPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on block overrun")
		}
	}()
	c := NewCursor(make([]byte, 4))
	Carve[uint64](c, 1)
}

func TestCarveZeroCount(t *testing.T) {
	c := NewCursor(make([]byte, 8))
	if s := Carve[uint32](c, 0); s != nil {
		t.Errorf("Carve of zero elements = %v, want nil", s)
	}
	if c.Offset() != 0 {
		t.Errorf("offset after zero carve = %d, want 0", c.Offset())
	}
}
