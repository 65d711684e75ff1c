package renderpass

import (
	"strings"

	vk "github.com/goki/vulkan"
)

const (
	// SubpassExternal marks a dependency endpoint outside the render-pass
	// instance, bit-compatible with VK_SUBPASS_EXTERNAL.
	SubpassExternal = uint32(vk.SubpassExternal)

	// AttachmentUnused marks an attachment reference slot that binds nothing,
	// bit-compatible with VK_ATTACHMENT_UNUSED.
	AttachmentUnused = ^uint32(0)

	// MaxColorTargets is the fixed number of color target slots per subpass.
	MaxColorTargets = 8
)

// RefMask is a bitwise combination of the ways a subpass references an
// attachment.
type RefMask uint32

const (
	RefColor RefMask = 1 << iota
	RefResolveSrc
	RefResolveDst
	RefDepthStencil
	RefInput
	RefPreserve
	// RefExternalPostInstance marks the final-layout usage applied after the
	// last subpass, outside the instance.
	RefExternalPostInstance
)

// Reads reports whether any set bit reads from the attachment.
func (m RefMask) Reads() bool {
	return m&(RefInput|RefResolveSrc) != 0
}

// Writes reports whether any set bit writes to the attachment.
func (m RefMask) Writes() bool {
	return m&(RefColor|RefDepthStencil|RefResolveDst) != 0
}

func (m RefMask) String() string {
	if m == 0 {
		return "none"
	}
	names := []struct {
		bit  RefMask
		name string
	}{
		{RefColor, "color"},
		{RefResolveSrc, "resolve-src"},
		{RefResolveDst, "resolve-dst"},
		{RefDepthStencil, "depth-stencil"},
		{RefInput, "input"},
		{RefPreserve, "preserve"},
		{RefExternalPostInstance, "external-post-instance"},
	}
	var sb strings.Builder
	for _, n := range names {
		if m&n.bit != 0 {
			if sb.Len() > 0 {
				sb.WriteByte('|')
			}
			sb.WriteString(n.name)
		}
	}
	return sb.String()
}

// LayoutUsage widens an image layout with usage the layout value alone does
// not express, e.g. that the image is about to be a resolve source.
type LayoutUsage uint32

const (
	LayoutUsageResolveSrc LayoutUsage = 1 << iota
	LayoutUsageResolveDst
)

// ImageLayout is a layout plus extra usage. Two references agree on layout
// only if both fields match.
type ImageLayout struct {
	Layout     vk.ImageLayout
	ExtraUsage LayoutUsage
}

// SyncFlags are the named special cases a sync point's barrier must handle.
type SyncFlags uint32

const (
	// SyncFlagPreColorResolve: the barrier precedes color resolve operations
	// scheduled in the same subpass.
	SyncFlagPreColorResolve SyncFlags = 1 << iota
	// SyncFlagPostResolve: the barrier waits for all outstanding resolve
	// operations, whichever subpass issued them.
	SyncFlagPostResolve
	// SyncFlagImplicitExternalIncoming marks a subpass with first-use
	// attachments that the application gave no external incoming dependency.
	// Recorded but inert at playback.
	SyncFlagImplicitExternalIncoming
	// SyncFlagImplicitExternalOutgoing is the outgoing counterpart on the
	// instance-end sync point. Recorded but inert at playback.
	SyncFlagImplicitExternalOutgoing
)

// syncFlagsActiveMask excludes the implicit-dependency bits: they document a
// requirement already covered elsewhere and must not force a barrier on
// their own.
const syncFlagsActiveMask = SyncFlagPreColorResolve | SyncFlagPostResolve

// Barrier accumulates one sync point's pipeline and access masks.
type Barrier struct {
	SrcStageMask  vk.PipelineStageFlags
	DstStageMask  vk.PipelineStageFlags
	SrcAccessMask vk.AccessFlags
	DstAccessMask vk.AccessFlags
	Flags         SyncFlags
}

// TransitionFlags annotate a layout transition.
type TransitionFlags uint32

const (
	// TransitionInitialLayout: this is the attachment's first transition in
	// the pass, performed by its first-use subpass.
	TransitionInitialLayout TransitionFlags = 1 << iota
)

// TransitionInfo is one automatic layout transition executed by a sync point.
type TransitionInfo struct {
	Attachment uint32
	PrevLayout ImageLayout
	NextLayout ImageLayout
	Flags      TransitionFlags
}

// LoadOpClearInfo is one load-op clear executed when a subpass begins. The
// layout is the one the attachment holds after the preceding transition.
type LoadOpClearInfo struct {
	Attachment uint32
	Layout     ImageLayout
	Aspect     vk.ImageAspectFlags
}

// ResolveAttachment identifies one endpoint of a multisample resolve.
type ResolveAttachment struct {
	Attachment uint32
	Layout     ImageLayout
}

// ResolveInfo is one multisample resolve executed when a subpass ends.
type ResolveInfo struct {
	Src ResolveAttachment
	Dst ResolveAttachment
}

// AttachmentTarget is one bound render target.
type AttachmentTarget struct {
	Attachment uint32
	Layout     ImageLayout
}

// BindTargets is the set of targets bound while a subpass executes.
type BindTargets struct {
	ColorTargetCount uint32
	ColorTargets     [MaxColorTargets]AttachmentTarget
	DepthStencil     AttachmentTarget
}

// BeginFlags summarize what a subpass's begin state needs to execute.
type BeginFlags uint32

const (
	BeginHasTopSyncPoint BeginFlags = 1 << iota
)

// EndFlags summarize what a subpass's end state needs to execute.
type EndFlags uint32

const (
	EndHasPreResolveSyncPoint EndFlags = 1 << iota
	EndHasBottomSyncPoint
)

// EndInstanceFlags summarize what the instance-end state needs to execute.
type EndInstanceFlags uint32

const (
	EndInstanceHasSyncPoint EndInstanceFlags = 1 << iota
)
