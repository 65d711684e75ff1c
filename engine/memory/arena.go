package memory

import (
	"fmt"
	"unsafe"

	"github.com/spaghettifunk/prism/engine/core"
)

// Arena is the temporary allocator that backs all mutable state of a single
// build. It charges every reservation against an optional byte limit, which
// is the only way a pure-Go build can run out of memory; tests use the limit
// to exercise the out-of-memory path. An Arena must only be used by one
// builder at a time and should be reset or discarded once the build returns.
type Arena struct {
	limit     int
	used      int
	numAllocs int
}

// Stats holds statistics of an Arena.
type Stats struct {
	NumAllocations    int
	NumBytesAllocated int
}

func (s Stats) String() string {
	return fmt.Sprintf("{allocs: %v, bytes: %v}", s.NumAllocations, s.NumBytesAllocated)
}

// NewArena constructs an unbounded build arena.
func NewArena() *Arena {
	return &Arena{}
}

// NewArenaWithLimit constructs an arena that fails reservations once more
// than limit bytes are outstanding.
func NewArenaWithLimit(limit int) *Arena {
	return &Arena{limit: limit}
}

// Reserve charges size bytes to the arena. It returns core.ErrOutOfMemory
// when the arena's limit would be exceeded.
func (a *Arena) Reserve(size int) error {
	if a.limit > 0 && a.used+size > a.limit {
		return core.ErrOutOfMemory
	}
	a.used += size
	a.numAllocs++
	return nil
}

// Reset makes the whole arena available again. Anything previously reserved
// from it must no longer be used.
func (a *Arena) Reset() {
	a.used = 0
	a.numAllocs = 0
}

// Stats returns statistics of the current state of the Arena.
func (a *Arena) Stats() Stats {
	return Stats{NumAllocations: a.numAllocs, NumBytesAllocated: a.used}
}

// AllocSlice reserves and returns a zeroed slice of n elements charged to the
// arena.
func AllocSlice[T any](a *Arena, n int) ([]T, error) {
	var zero T
	if err := a.Reserve(n * int(unsafe.Sizeof(zero))); err != nil {
		return nil, err
	}
	return make([]T, n), nil
}
