package containers

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/memory"
)

func TestListPushBack(t *testing.T) {
	arena := memory.NewArena()
	list := NewList[uint32](arena)

	for i := uint32(0); i < 5; i++ {
		if err := list.PushBack(i * 10); err != nil {
			t.Fatalf("PushBack(%d) failed: %v", i, err)
		}
	}

	if list.Len() != 5 {
		t.Fatalf("Len = %d, want 5", list.Len())
	}
	for i := 0; i < 5; i++ {
		if got := list.At(i); got != uint32(i*10) {
			t.Errorf("At(%d) = %d, want %d", i, got, i*10)
		}
	}
	if got := arena.Stats().NumBytesAllocated; got != 20 {
		t.Errorf("arena bytes = %d, want 20", got)
	}
}

func TestListPropagatesArenaExhaustion(t *testing.T) {
	arena := memory.NewArenaWithLimit(8)
	list := NewList[uint64](arena)

	if err := list.PushBack(1); err != nil {
		t.Fatalf("first PushBack failed: %v", err)
	}
	err := list.PushBack(2)
	if !errors.Is(err, core.ErrOutOfMemory) {
		t.Fatalf("PushBack past limit = %v, want ErrOutOfMemory", err)
	}
	if list.Len() != 1 {
		t.Errorf("Len after failed push = %d, want 1", list.Len())
	}
}
