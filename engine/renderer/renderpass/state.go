package renderpass

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/containers"
	"github.com/spaghettifunk/prism/engine/memory"
)

// attachmentState tracks one attachment across the whole build.
type attachmentState struct {
	desc *vk.AttachmentDescription

	// firstUseSubpass is set once, by the lowest subpass referencing the
	// attachment; finalUseSubpass is overwritten on every later reference.
	firstUseSubpass uint32
	finalUseSubpass uint32

	// prevReferenceLayout is the layout the most recent reference left the
	// attachment in; prevReferenceSubpass is who made that reference.
	prevReferenceLayout  ImageLayout
	prevReferenceSubpass uint32

	accumulatedRefMask RefMask

	// loaded flips true exactly once, when the load-op decision is made.
	loaded bool

	// resolvesInFlight is true while a scheduled resolve touching this
	// attachment has no barrier guaranteed to wait for it yet.
	resolvesInFlight bool
}

func (a *attachmentState) init(desc *vk.AttachmentDescription) {
	a.desc = desc
	a.firstUseSubpass = SubpassExternal
	a.finalUseSubpass = SubpassExternal
	a.prevReferenceSubpass = SubpassExternal
	a.prevReferenceLayout = ImageLayout{Layout: desc.InitialLayout}
	a.accumulatedRefMask = 0
	a.loaded = false
	a.resolvesInFlight = false
}

// syncPointState accumulates the barrier and layout transitions of one sync
// point.
type syncPointState struct {
	barrier     Barrier
	transitions containers.List[TransitionInfo]
}

func (sp *syncPointState) init(arena *memory.Arena) {
	sp.barrier = Barrier{}
	sp.transitions = containers.NewList[TransitionInfo](arena)
}

// active reports whether the sync point must execute anything at playback.
// Inactive sync points are structurally present but skipped entirely.
func (sp *syncPointState) active() bool {
	return sp.barrier.SrcStageMask != 0 ||
		sp.barrier.DstStageMask != 0 ||
		sp.barrier.SrcAccessMask != 0 ||
		sp.barrier.DstAccessMask != 0 ||
		sp.transitions.Len() > 0 ||
		sp.barrier.Flags&syncFlagsActiveMask != 0
}

func (sp *syncPointState) finalize(c *memory.Cursor) SyncPointInfo {
	out := SyncPointInfo{Barrier: sp.barrier}
	out.Transitions = memory.Carve[TransitionInfo](c, sp.transitions.Len())
	if out.Transitions != nil {
		copy(out.Transitions, sp.transitions.Items())
	}
	return out
}

// subpassState accumulates everything one subpass contributes to the plan.
type subpassState struct {
	desc *vk.SubpassDescription

	syncTop        syncPointState
	colorClears    containers.List[LoadOpClearInfo]
	dsClears       containers.List[LoadOpClearInfo]
	syncPreResolve syncPointState
	resolves       containers.List[ResolveInfo]
	syncBottom     syncPointState

	beginFlags  BeginFlags
	endFlags    EndFlags
	bindTargets BindTargets

	// Computed once by the initial scan, read-only afterward.
	hasFirstUseAttachments bool
	hasFinalUseAttachments bool
	hasExternalIncoming    bool
	hasExternalOutgoing    bool
}

func (s *subpassState) init(desc *vk.SubpassDescription, arena *memory.Arena) {
	s.desc = desc
	s.syncTop.init(arena)
	s.colorClears = containers.NewList[LoadOpClearInfo](arena)
	s.dsClears = containers.NewList[LoadOpClearInfo](arena)
	s.syncPreResolve.init(arena)
	s.resolves = containers.NewList[ResolveInfo](arena)
	s.syncBottom.init(arena)
	s.beginFlags = 0
	s.endFlags = 0
	s.bindTargets = BindTargets{}
	s.hasFirstUseAttachments = false
	s.hasFinalUseAttachments = false
	s.hasExternalIncoming = false
	s.hasExternalOutgoing = false
}

func (s *subpassState) finalize(c *memory.Cursor) SubpassExecuteInfo {
	var out SubpassExecuteInfo

	out.Begin.Flags = s.beginFlags
	out.Begin.SyncTop = s.syncTop.finalize(c)
	out.Begin.ColorClears = memory.Carve[LoadOpClearInfo](c, s.colorClears.Len())
	if out.Begin.ColorClears != nil {
		copy(out.Begin.ColorClears, s.colorClears.Items())
	}
	out.Begin.DSClears = memory.Carve[LoadOpClearInfo](c, s.dsClears.Len())
	if out.Begin.DSClears != nil {
		copy(out.Begin.DSClears, s.dsClears.Items())
	}
	out.Begin.BindTargets = s.bindTargets

	out.End.Flags = s.endFlags
	out.End.SyncPreResolve = s.syncPreResolve.finalize(c)
	out.End.Resolves = memory.Carve[ResolveInfo](c, s.resolves.Len())
	if out.End.Resolves != nil {
		copy(out.End.Resolves, s.resolves.Items())
	}
	out.End.SyncBottom = s.syncBottom.finalize(c)

	return out
}

// endState is the post-instance sync point and its flags.
type endState struct {
	flags   EndInstanceFlags
	syncEnd syncPointState
}

func (e *endState) init(arena *memory.Arena) {
	e.flags = 0
	e.syncEnd.init(arena)
}

func (e *endState) finalize(c *memory.Cursor) ExecuteEndInfo {
	return ExecuteEndInfo{
		Flags:   e.flags,
		SyncEnd: e.syncEnd.finalize(c),
	}
}
