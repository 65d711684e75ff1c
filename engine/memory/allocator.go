package memory

// AllocationScope describes the lifetime class of a permanent allocation,
// following the host API's allocation-callback convention.
type AllocationScope uint32

const (
	ScopeCommand AllocationScope = iota
	ScopeObject
	ScopeCache
	ScopeDevice
	ScopeInstance
)

// DefaultAlign is the base alignment of every block handed out by an
// Allocator. It must be at least the alignment of the widest field stored in
// a finalized block.
const DefaultAlign = 8

// Allocator supplies the permanent memory that outlives a build. Allocate
// returns nil on exhaustion, which callers must treat as a terminal
// out-of-memory condition. Free releases a block previously returned by
// Allocate; passing any other slice is a contract violation.
type Allocator interface {
	Allocate(size, alignment int, scope AllocationScope) []byte
	Free(block []byte)
}

// HeapAllocator is the default Allocator over the Go heap.
type HeapAllocator struct{}

func (HeapAllocator) Allocate(size, alignment int, scope AllocationScope) []byte {
	return make([]byte, size)
}

func (HeapAllocator) Free(block []byte) {}
