package core

import (
	"errors"
)

var (
	// ErrOutOfMemory is the only runtime-reportable build failure: either the
	// temporary arena or the permanent allocator ran out of memory.
	ErrOutOfMemory = errors.New("out of memory")
	ErrUnknown     = errors.New("unknown")
)
