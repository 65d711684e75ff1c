package renderpass

import (
	"github.com/spaghettifunk/prism/engine/memory"
)

// SyncPointInfo is one finalized sync point. Transitions views into the
// plan's flat block.
type SyncPointInfo struct {
	Barrier     Barrier
	Transitions []TransitionInfo
}

// Active reports whether the sync point must execute a barrier at playback.
func (sp *SyncPointInfo) Active() bool {
	return sp.Barrier.SrcStageMask != 0 ||
		sp.Barrier.DstStageMask != 0 ||
		sp.Barrier.SrcAccessMask != 0 ||
		sp.Barrier.DstAccessMask != 0 ||
		len(sp.Transitions) > 0 ||
		sp.Barrier.Flags&syncFlagsActiveMask != 0
}

// SubpassBeginInfo is replayed when a subpass begins: the top sync point,
// then load-op clears, then target binding.
type SubpassBeginInfo struct {
	Flags       BeginFlags
	SyncTop     SyncPointInfo
	ColorClears []LoadOpClearInfo
	DSClears    []LoadOpClearInfo
	BindTargets BindTargets
}

// SubpassEndInfo is replayed when a subpass ends: the pre-resolve sync
// point, resolves, then the bottom sync point.
type SubpassEndInfo struct {
	Flags          EndFlags
	SyncPreResolve SyncPointInfo
	Resolves       []ResolveInfo
	SyncBottom     SyncPointInfo
}

// SubpassExecuteInfo is one subpass's begin and end state.
type SubpassExecuteInfo struct {
	Begin SubpassBeginInfo
	End   SubpassEndInfo
}

// ExecuteEndInfo is the instance-level end state.
type ExecuteEndInfo struct {
	Flags   EndInstanceFlags
	SyncEnd SyncPointInfo
}

// ExecuteInfo is the immutable execute plan a render pass replays on every
// instance. All variable-length arrays inside it view one flat allocator
// block; nothing may be mutated once Build returns. It is safe to share
// across threads.
type ExecuteInfo struct {
	// ID correlates log lines about this plan back to its build.
	ID string

	Subpasses []SubpassExecuteInfo
	End       ExecuteEndInfo

	block []byte
}

// BlockSize returns the size in bytes of the plan's flat block.
func (x *ExecuteInfo) BlockSize() int {
	return len(x.block)
}

// Release returns the plan's flat block to the allocator that provided it.
// The plan must not be used afterward. Releasing twice is a no-op.
func (x *ExecuteInfo) Release(allocator memory.Allocator) {
	if x.block != nil {
		allocator.Free(x.block)
		x.block = nil
	}
}
