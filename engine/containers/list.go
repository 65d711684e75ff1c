package containers

import (
	"unsafe"

	"github.com/spaghettifunk/prism/engine/memory"
)

// List is an append-only list whose storage is charged to a build arena.
// Every PushBack reserves the element's size first, so arena exhaustion
// surfaces at the insertion site the way it would with a real arena-backed
// container.
type List[T any] struct {
	arena *memory.Arena
	items []T
}

// NewList creates an empty list charged to the given arena.
func NewList[T any](arena *memory.Arena) List[T] {
	return List[T]{arena: arena}
}

// PushBack appends value to the list.
func (l *List[T]) PushBack(value T) error {
	var zero T
	if err := l.arena.Reserve(int(unsafe.Sizeof(zero))); err != nil {
		return err
	}
	l.items = append(l.items, value)
	return nil
}

// Len returns the number of elements in the list.
func (l *List[T]) Len() int {
	return len(l.items)
}

// At returns the element at index i.
func (l *List[T]) At(i int) T {
	return l.items[i]
}

// Items returns the backing slice. Callers must treat it as read-only.
func (l *List[T]) Items() []T {
	return l.items
}
