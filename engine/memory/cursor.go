package memory

import (
	"unsafe"

	"golang.org/x/exp/constraints"
)

// AlignUp rounds v up so that it is a multiple of n.
// It works for any integer type.
func AlignUp[T constraints.Integer](v, n T) T {
	pad := n - v%n
	if pad == n {
		return v
	}
	return v + pad
}

// Cursor walks a flat byte block front to back, handing out naturally
// aligned typed views with no gaps. A measuring cursor (nil block) runs the
// identical walk but only advances the offset; running the same walk twice,
// once measuring and once writing, yields the exact block size and a final
// offset that must land on it.
type Cursor struct {
	block []byte
	off   int
}

// NewCursor returns a write cursor over block.
func NewCursor(block []byte) *Cursor {
	return &Cursor{block: block}
}

// NewMeasuringCursor returns a cursor that computes sizes without a backing
// block.
func NewMeasuringCursor() *Cursor {
	return &Cursor{}
}

// Offset returns the number of bytes consumed so far.
func (c *Cursor) Offset() int {
	return c.off
}

// Carve returns a typed view of the next n elements of the block, aligning
// the cursor to the element type first. On a measuring cursor it only
// advances the offset and returns nil. Overrunning the block is a
// programming-contract violation and panics.
func Carve[T any](c *Cursor, n int) []T {
	var zero T
	c.off = AlignUp(c.off, int(unsafe.Alignof(zero)))
	if n == 0 {
		return nil
	}
	start := c.off
	c.off += n * int(unsafe.Sizeof(zero))
	if c.block == nil {
		return nil
	}
	if c.off > len(c.block) {
		panic("memory: cursor overran block")
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&c.block[start])), n)
}
