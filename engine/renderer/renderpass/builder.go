package renderpass

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/memory"
)

// Builder compiles a declarative render-pass description into an ExecuteInfo.
// All intermediate state lives on the caller's temporary arena; only Finalize
// allocates permanent memory. A Builder is single-use and single-threaded:
// create one per build and discard it (and reset the arena) afterward.
type Builder struct {
	arena   *memory.Arena
	apiInfo *vk.RenderPassCreateInfo

	attachments []attachmentState
	subpasses   []subpassState
	endState    endState
}

// NewBuilder creates a builder whose temporary state is charged to arena.
func NewBuilder(arena *memory.Arena) *Builder {
	b := &Builder{arena: arena}
	b.endState.init(arena)
	return b
}

// Build compiles apiInfo into an immutable execute plan. The description must
// outlive the call and must already be valid against the host API's rules;
// malformed input is undefined behavior by contract with the caller. The only
// runtime failure is core.ErrOutOfMemory, on which no plan is returned and no
// permanent memory is leaked.
func (b *Builder) Build(apiInfo *vk.RenderPassCreateInfo, allocator memory.Allocator) (*ExecuteInfo, error) {
	b.apiInfo = apiInfo

	if err := b.buildInitialState(); err != nil {
		return nil, errors.Wrap(err, "building initial render pass state")
	}

	for subpass := uint32(0); subpass < uint32(len(b.subpasses)); subpass++ {
		if err := b.buildSubpass(subpass); err != nil {
			return nil, errors.Wrapf(err, "building subpass %d", subpass)
		}
	}

	if err := b.buildEndState(); err != nil {
		return nil, errors.Wrap(err, "building render pass end state")
	}

	info, err := b.finalize(allocator)
	if err != nil {
		return nil, errors.Wrap(err, "finalizing render pass")
	}

	core.LogDebug("renderpass: built execute plan %s (%d attachments, %d subpasses, %d byte block, arena %s)",
		info.ID, len(b.attachments), len(b.subpasses), info.BlockSize(), b.arena.Stats())

	return info, nil
}

// buildInitialState allocates the per-attachment and per-subpass tracking
// records and runs the initial scans: first/final use of every attachment,
// and which subpasses are covered by external dependencies.
func (b *Builder) buildInitialState() error {
	attachments, err := memory.AllocSlice[attachmentState](b.arena, int(b.apiInfo.AttachmentCount))
	if err != nil {
		return err
	}
	b.attachments = attachments
	for i := range b.attachments {
		b.attachments[i].init(&b.apiInfo.PAttachments[i])
	}

	subpasses, err := memory.AllocSlice[subpassState](b.arena, int(b.apiInfo.SubpassCount))
	if err != nil {
		return err
	}
	b.subpasses = subpasses
	for i := range b.subpasses {
		b.subpasses[i].init(&b.apiInfo.PSubpasses[i], b.arena)
	}

	// Find first and last subpass that references each attachment. First use
	// wins once; final use is overwritten by every later reference.
	for subpass := range b.subpasses {
		for attachment := range b.attachments {
			if b.subpassReferenceMask(uint32(subpass), uint32(attachment)) == 0 {
				continue
			}
			if b.attachments[attachment].firstUseSubpass == SubpassExternal {
				b.attachments[attachment].firstUseSubpass = uint32(subpass)
				b.subpasses[subpass].hasFirstUseAttachments = true
			}
			b.attachments[attachment].finalUseSubpass = uint32(subpass)
		}
	}

	for attachment := range b.attachments {
		if final := b.attachments[attachment].finalUseSubpass; final != SubpassExternal {
			b.subpasses[final].hasFinalUseAttachments = true
		}
	}

	// Mark which subpasses the application covered with external
	// dependencies. Missing ones are implicitly added per the API rules,
	// though the implicit flags carry no behavior today.
	for d := uint32(0); d < b.apiInfo.DependencyCount; d++ {
		dep := &b.apiInfo.PDependencies[d]

		if dep.SrcSubpass == SubpassExternal && dep.DstSubpass != SubpassExternal {
			b.subpasses[dep.DstSubpass].hasExternalIncoming = true
		}
		if dep.DstSubpass == SubpassExternal && dep.SrcSubpass != SubpassExternal {
			b.subpasses[dep.SrcSubpass].hasExternalOutgoing = true
		}
	}

	return nil
}

// subpassReferenceMask returns the OR of every way the given subpass
// references the given attachment. Cheap enough that each build phase
// recomputes it instead of carrying cross-phase state.
func (b *Builder) subpassReferenceMask(subpass, attachment uint32) RefMask {
	if subpass == SubpassExternal {
		return 0
	}

	desc := b.subpasses[subpass].desc
	var refMask RefMask

	for i := uint32(0); i < desc.ColorAttachmentCount; i++ {
		if desc.PColorAttachments[i].Attachment != attachment {
			continue
		}
		refMask |= RefColor

		// A color attachment with a live paired resolve destination is also
		// a resolve source.
		if desc.PResolveAttachments != nil && desc.PResolveAttachments[i].Attachment != AttachmentUnused {
			refMask |= RefResolveSrc
		}
	}

	if desc.PDepthStencilAttachment != nil && desc.PDepthStencilAttachment.Attachment == attachment {
		refMask |= RefDepthStencil
	}

	for i := uint32(0); i < desc.InputAttachmentCount; i++ {
		if desc.PInputAttachments[i].Attachment == attachment {
			refMask |= RefInput
		}
	}

	for i := uint32(0); i < desc.PreserveAttachmentCount; i++ {
		if desc.PPreserveAttachments[i] == attachment {
			refMask |= RefPreserve
		}
	}

	if desc.PResolveAttachments != nil {
		for i := uint32(0); i < desc.ColorAttachmentCount; i++ {
			if desc.PResolveAttachments[i].Attachment == attachment {
				refMask |= RefResolveDst
			}
		}
	}

	return refMask
}

// buildSubpass builds the execute state for one subpass: dependencies into
// the top sync point, then the attachment references in fixed order (color,
// depth-stencil, input, resolve), then the cached activity flags.
func (b *Builder) buildSubpass(subpass uint32) error {
	sp := &b.subpasses[subpass]

	if err := b.buildSubpassDependencies(subpass, &sp.syncTop); err != nil {
		return err
	}
	b.buildImplicitDependencies(subpass, &sp.syncTop)

	if err := b.buildColorAttachmentReferences(subpass); err != nil {
		return err
	}
	if err := b.buildDepthStencilAttachmentReference(subpass); err != nil {
		return err
	}
	if err := b.buildInputAttachmentReferences(subpass); err != nil {
		return err
	}
	if err := b.buildResolveAttachmentReferences(subpass); err != nil {
		return err
	}

	// Cache the activity decisions; playback reads these flags and never
	// recomputes the predicate.
	if sp.syncTop.active() {
		sp.beginFlags |= BeginHasTopSyncPoint
	}
	if sp.syncPreResolve.active() {
		sp.endFlags |= EndHasPreResolveSyncPoint
	}
	if sp.syncBottom.active() {
		sp.endFlags |= EndHasBottomSyncPoint
	}

	return nil
}

// buildSubpassDependencies folds every dependency terminating at dstSubpass
// into the given sync point. dstSubpass may be SubpassExternal for the
// instance-end state. Multiple dependencies accumulate into one barrier;
// they are never split.
func (b *Builder) buildSubpassDependencies(dstSubpass uint32, sync *syncPointState) error {
	for d := uint32(0); d < b.apiInfo.DependencyCount; d++ {
		dep := &b.apiInfo.PDependencies[d]

		if dep.SrcSubpass != SubpassExternal && dep.SrcSubpass >= uint32(len(b.subpasses)) {
			core.LogWarn("renderpass: dependency %d has out-of-range srcSubpass %d", d, dep.SrcSubpass)
		}
		if dep.DstSubpass != SubpassExternal && dep.DstSubpass >= uint32(len(b.subpasses)) {
			core.LogWarn("renderpass: dependency %d has out-of-range dstSubpass %d", d, dep.DstSubpass)
		}

		if dep.DstSubpass != dstSubpass {
			continue
		}

		sync.barrier.SrcStageMask |= dep.SrcStageMask
		sync.barrier.DstStageMask |= dep.DstStageMask
		sync.barrier.SrcAccessMask |= dep.SrcAccessMask
		sync.barrier.DstAccessMask |= dep.DstAccessMask

		// If the source subpass left resolves in flight, this dependency is
		// also on those resolves completing.
		if dep.SrcSubpass != SubpassExternal {
			b.waitForResolvesFromSubpass(dep.SrcSubpass, sync)
		}
	}

	return nil
}

// buildImplicitDependencies records the API-mandated implicit external
// dependencies for subpasses the application left uncovered. The flags are
// structural only; no playback consumer reacts to them today.
func (b *Builder) buildImplicitDependencies(dstSubpass uint32, sync *syncPointState) {
	if dstSubpass != SubpassExternal {
		if b.subpasses[dstSubpass].hasFirstUseAttachments && !b.subpasses[dstSubpass].hasExternalIncoming {
			sync.barrier.Flags |= SyncFlagImplicitExternalIncoming
		}
		return
	}

	for srcSubpass := range b.subpasses {
		if b.subpasses[srcSubpass].hasFinalUseAttachments && !b.subpasses[srcSubpass].hasExternalOutgoing {
			sync.barrier.Flags |= SyncFlagImplicitExternalOutgoing
		}
	}
}

// buildColorAttachmentReferences binds the subpass's color targets and
// tracks each referenced attachment into the top sync point.
func (b *Builder) buildColorAttachmentReferences(subpass uint32) error {
	sp := &b.subpasses[subpass]
	desc := sp.desc

	sp.bindTargets.ColorTargetCount = 0
	for i := range sp.bindTargets.ColorTargets {
		sp.bindTargets.ColorTargets[i] = AttachmentTarget{
			Attachment: AttachmentUnused,
			Layout:     ImageLayout{Layout: vk.ImageLayoutUndefined},
		}
	}

	if desc.PColorAttachments == nil {
		return nil
	}

	sp.bindTargets.ColorTargetCount = desc.ColorAttachmentCount

	for target := uint32(0); target < desc.ColorAttachmentCount; target++ {
		reference := &desc.PColorAttachments[target]
		layout := ImageLayout{Layout: reference.Layout}

		if target < MaxColorTargets {
			sp.bindTargets.ColorTargets[target] = AttachmentTarget{
				Attachment: reference.Attachment,
				Layout:     layout,
			}
		} else {
			core.LogWarn("renderpass: subpass %d references color target %d past the %d-slot maximum",
				subpass, target, MaxColorTargets)
		}

		if reference.Attachment != AttachmentUnused {
			if err := b.trackAttachmentUsage(subpass, RefColor, reference.Attachment, layout, &sp.syncTop); err != nil {
				return err
			}
		}
	}

	return nil
}

// buildDepthStencilAttachmentReference binds the depth-stencil target, if
// present, and tracks it into the top sync point.
func (b *Builder) buildDepthStencilAttachmentReference(subpass uint32) error {
	sp := &b.subpasses[subpass]
	desc := sp.desc

	sp.bindTargets.DepthStencil = AttachmentTarget{
		Attachment: AttachmentUnused,
		Layout:     ImageLayout{Layout: vk.ImageLayoutUndefined},
	}

	if desc.PDepthStencilAttachment == nil {
		return nil
	}

	reference := desc.PDepthStencilAttachment
	if reference.Attachment == AttachmentUnused {
		return nil
	}

	layout := ImageLayout{Layout: reference.Layout}

	if err := b.trackAttachmentUsage(subpass, RefDepthStencil, reference.Attachment, layout, &sp.syncTop); err != nil {
		return err
	}

	sp.bindTargets.DepthStencil = AttachmentTarget{
		Attachment: reference.Attachment,
		Layout:     layout,
	}

	return nil
}

// buildInputAttachmentReferences tracks input attachments into the top sync
// point. Input attachments only need their layouts transitioned; there is no
// bind state to program for them.
func (b *Builder) buildInputAttachmentReferences(subpass uint32) error {
	sp := &b.subpasses[subpass]
	desc := sp.desc

	for target := uint32(0); target < desc.InputAttachmentCount; target++ {
		reference := &desc.PInputAttachments[target]
		if reference.Attachment == AttachmentUnused {
			continue
		}

		layout := ImageLayout{Layout: reference.Layout}
		if err := b.trackAttachmentUsage(subpass, RefInput, reference.Attachment, layout, &sp.syncTop); err != nil {
			return err
		}
	}

	return nil
}

// buildResolveAttachmentReferences schedules one resolve per live (color,
// resolve-destination) pair. Resolves run logically after the subpass's main
// work, so both endpoints are tracked into the pre-resolve sync point, and
// the resolve record captures each endpoint's layout before this tracking
// updates it.
func (b *Builder) buildResolveAttachmentReferences(subpass uint32) error {
	sp := &b.subpasses[subpass]
	desc := sp.desc

	if desc.PResolveAttachments == nil {
		return nil
	}

	for target := uint32(0); target < desc.ColorAttachmentCount; target++ {
		src := &desc.PColorAttachments[target]
		dst := &desc.PResolveAttachments[target]

		if src.Attachment == AttachmentUnused || dst.Attachment == AttachmentUnused {
			continue
		}

		srcLayout := ImageLayout{Layout: src.Layout, ExtraUsage: LayoutUsageResolveSrc}
		dstLayout := ImageLayout{Layout: dst.Layout, ExtraUsage: LayoutUsageResolveDst}

		if err := b.trackAttachmentUsage(subpass, RefResolveSrc, src.Attachment, srcLayout, &sp.syncPreResolve); err != nil {
			return err
		}
		if err := b.trackAttachmentUsage(subpass, RefResolveDst, dst.Attachment, dstLayout, &sp.syncPreResolve); err != nil {
			return err
		}

		resolve := ResolveInfo{
			Src: ResolveAttachment{
				Attachment: src.Attachment,
				Layout:     b.attachments[src.Attachment].prevReferenceLayout,
			},
			Dst: ResolveAttachment{
				Attachment: dst.Attachment,
				Layout:     b.attachments[dst.Attachment].prevReferenceLayout,
			},
		}
		if err := sp.resolves.PushBack(resolve); err != nil {
			return err
		}

		if !IsColorFormat(b.attachments[src.Attachment].desc.Format) {
			core.LogWarn("renderpass: subpass %d resolves non-color attachment %d", subpass, src.Attachment)
		}
		sp.syncPreResolve.barrier.Flags |= SyncFlagPreColorResolve

		b.attachments[src.Attachment].resolvesInFlight = true
		b.attachments[dst.Attachment].resolvesInFlight = true
	}

	return nil
}

// trackAttachmentUsage is the central mutator: it inserts automatic layout
// transitions, tracks how an attachment was last used, and fires the one-time
// load-op decision on the attachment's first use. The transition must be
// appended before the load op fires so the clear executes against the new
// layout.
func (b *Builder) trackAttachmentUsage(subpass uint32, refType RefMask, attachment uint32, layout ImageLayout, sync *syncPointState) error {
	att := &b.attachments[attachment]

	// Courtesy check in case the application missed a dependency: never use
	// an attachment with an unwaited resolve from another subpass.
	if att.resolvesInFlight && subpass != att.prevReferenceSubpass {
		core.LogWarn("renderpass: attachment %d used by subpass %d with a resolve still in flight; forcing a resolve wait",
			attachment, subpass)
		b.waitForResolves(sync)
	}

	if att.prevReferenceLayout != layout {
		transition := TransitionInfo{
			Attachment: attachment,
			PrevLayout: att.prevReferenceLayout,
			NextLayout: layout,
		}
		if subpass != SubpassExternal && att.firstUseSubpass == subpass {
			transition.Flags |= TransitionInitialLayout
		}

		if err := sync.transitions.PushBack(transition); err != nil {
			return err
		}

		att.prevReferenceLayout = layout
	}

	att.prevReferenceSubpass = subpass
	att.accumulatedRefMask |= refType

	if subpass != SubpassExternal && att.firstUseSubpass == subpass && !att.loaded {
		if err := b.buildLoadOps(subpass, attachment); err != nil {
			return err
		}
	}

	return nil
}

// buildLoadOps makes the one-time load-op decision for an attachment, from
// inside trackAttachmentUsage on the attachment's first use. Clears are
// recorded against the layout the attachment holds after its transition and
// run auto-synced at playback, so no sync point work is added for them.
func (b *Builder) buildLoadOps(subpass, attachment uint32) error {
	sp := &b.subpasses[subpass]
	att := &b.attachments[attachment]

	att.loaded = true

	var clearAspect vk.ImageAspectFlags

	if IsColorFormat(att.desc.Format) {
		if att.desc.LoadOp == vk.AttachmentLoadOpClear {
			clearAspect |= vk.ImageAspectFlags(vk.ImageAspectColorBit)
		}
	} else {
		if HasDepth(att.desc.Format) && att.desc.LoadOp == vk.AttachmentLoadOpClear {
			clearAspect |= vk.ImageAspectFlags(vk.ImageAspectDepthBit)
		}
		if HasStencil(att.desc.Format) && att.desc.StencilLoadOp == vk.AttachmentLoadOpClear {
			clearAspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
		}
	}

	refMask := b.subpassReferenceMask(subpass, attachment)
	if refMask == 0 {
		core.LogWarn("renderpass: load op fired for attachment %d with no reference in subpass %d", attachment, subpass)
	}

	// Skip the clear when the first reference is purely a resolve
	// destination: the resolve overwrites the cleared content anyway.
	if refMask == RefResolveDst || clearAspect == 0 {
		return nil
	}

	clearInfo := LoadOpClearInfo{
		Attachment: attachment,
		Layout:     att.prevReferenceLayout,
		Aspect:     clearAspect,
	}

	if IsColorFormat(att.desc.Format) {
		return sp.colorClears.PushBack(clearInfo)
	}
	return sp.dsClears.PushBack(clearInfo)
}

// waitForResolvesFromSubpass forces a resolve wait into the sync point if the
// given subpass was the last to touch any attachment with a resolve still in
// flight.
func (b *Builder) waitForResolvesFromSubpass(subpass uint32, sync *syncPointState) {
	for attachment := range b.attachments {
		if b.attachments[attachment].resolvesInFlight &&
			b.attachments[attachment].prevReferenceSubpass == subpass {
			// One barrier waits for every outstanding resolve; there is no
			// split-barrier tracking of individual resolves.
			b.waitForResolves(sync)
			break
		}
	}
}

// waitForResolves marks the sync point as waiting on all resolves and clears
// every attachment's in-flight flag.
func (b *Builder) waitForResolves(sync *syncPointState) {
	for attachment := range b.attachments {
		if b.attachments[attachment].resolvesInFlight {
			sync.barrier.Flags |= SyncFlagPostResolve
			b.attachments[attachment].resolvesInFlight = false
		}
	}
}

// buildEndState runs the dependency pipeline once more with the external
// destination, forces a final courtesy resolve wait, and applies every
// attachment's declared final layout.
func (b *Builder) buildEndState() error {
	if err := b.buildSubpassDependencies(SubpassExternal, &b.endState.syncEnd); err != nil {
		return err
	}
	b.buildImplicitDependencies(SubpassExternal, &b.endState.syncEnd)

	// Make sure pending resolves finish inside the instance even if the
	// application omitted the external dependency.
	b.waitForResolves(&b.endState.syncEnd)

	for attachment := uint32(0); attachment < uint32(len(b.attachments)); attachment++ {
		finalLayout := ImageLayout{Layout: b.attachments[attachment].desc.FinalLayout}

		err := b.trackAttachmentUsage(SubpassExternal, RefExternalPostInstance, attachment, finalLayout, &b.endState.syncEnd)
		if err != nil {
			return err
		}
	}

	if b.endState.syncEnd.active() {
		b.endState.flags |= EndInstanceHasSyncPoint
	}

	return nil
}

// finalize compacts all temporary state into one flat immutable block: a
// measuring pass computes the exact byte count, then the identical walk
// writes into a block of exactly that size. The cursor landing anywhere but
// the end is a fatal programming-contract violation.
func (b *Builder) finalize(allocator memory.Allocator) (*ExecuteInfo, error) {
	measure := memory.NewMeasuringCursor()
	for s := range b.subpasses {
		b.subpasses[s].finalize(measure)
	}
	b.endState.finalize(measure)
	size := measure.Offset()

	var block []byte
	if size > 0 {
		block = allocator.Allocate(size, memory.DefaultAlign, memory.ScopeObject)
		if block == nil {
			return nil, core.ErrOutOfMemory
		}
		for i := range block {
			block[i] = 0
		}
	}

	info := &ExecuteInfo{
		ID:        core.AcquireID(),
		Subpasses: make([]SubpassExecuteInfo, len(b.subpasses)),
		block:     block,
	}

	cursor := memory.NewCursor(block)
	for s := range b.subpasses {
		info.Subpasses[s] = b.subpasses[s].finalize(cursor)
	}
	info.End = b.endState.finalize(cursor)

	if cursor.Offset() != size {
		panic("renderpass: finalize write pass disagrees with size pass")
	}

	return info, nil
}
