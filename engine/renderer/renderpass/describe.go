package renderpass

import (
	"fmt"
	"os"

	vk "github.com/goki/vulkan"
	"github.com/pelletier/go-toml/v2"
)

// Description is a render-pass description read from a TOML file. It exists
// for tooling and fixtures; the builder itself consumes the host API structs
// a Description converts into.
type Description struct {
	Attachments  []AttachmentDesc `toml:"attachments"`
	Subpasses    []SubpassDesc    `toml:"subpasses"`
	Dependencies []DependencyDesc `toml:"dependencies"`
}

type AttachmentDesc struct {
	Format         string `toml:"format"`
	Samples        int    `toml:"samples"`
	LoadOp         string `toml:"load-op"`
	StoreOp        string `toml:"store-op"`
	StencilLoadOp  string `toml:"stencil-load-op"`
	StencilStoreOp string `toml:"stencil-store-op"`
	InitialLayout  string `toml:"initial-layout"`
	FinalLayout    string `toml:"final-layout"`
}

// ReferenceDesc names an attachment by index; -1 means unused.
type ReferenceDesc struct {
	Attachment int64  `toml:"attachment"`
	Layout     string `toml:"layout"`
}

type SubpassDesc struct {
	Colors       []ReferenceDesc `toml:"colors"`
	DepthStencil *ReferenceDesc  `toml:"depth-stencil"`
	Inputs       []ReferenceDesc `toml:"inputs"`
	Resolves     []ReferenceDesc `toml:"resolves"`
	Preserves    []uint32        `toml:"preserves"`
}

// DependencyDesc names subpasses by index; -1 means external.
type DependencyDesc struct {
	SrcSubpass    int64    `toml:"src-subpass"`
	DstSubpass    int64    `toml:"dst-subpass"`
	SrcStageMask  []string `toml:"src-stage-mask"`
	DstStageMask  []string `toml:"dst-stage-mask"`
	SrcAccessMask []string `toml:"src-access-mask"`
	DstAccessMask []string `toml:"dst-access-mask"`
	ByRegion      bool     `toml:"by-region"`
}

// LoadDescription reads and parses a TOML render-pass description.
func LoadDescription(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading render pass description %s: %w", path, err)
	}
	return ParseDescription(data)
}

// ParseDescription parses a TOML render-pass description.
func ParseDescription(data []byte) (*Description, error) {
	desc := &Description{}
	if err := toml.Unmarshal(data, desc); err != nil {
		return nil, fmt.Errorf("parsing render pass description: %w", err)
	}
	return desc, nil
}

// CreateInfo converts the description into the host API create info the
// builder consumes. The returned value owns all its nested slices.
func (d *Description) CreateInfo() (*vk.RenderPassCreateInfo, error) {
	attachments := make([]vk.AttachmentDescription, len(d.Attachments))
	for i, a := range d.Attachments {
		format, err := parseFormat(a.Format)
		if err != nil {
			return nil, fmt.Errorf("attachment %d: %w", i, err)
		}
		samples, err := parseSampleCount(a.Samples)
		if err != nil {
			return nil, fmt.Errorf("attachment %d: %w", i, err)
		}
		loadOp, err := parseLoadOp(a.LoadOp)
		if err != nil {
			return nil, fmt.Errorf("attachment %d: %w", i, err)
		}
		storeOp, err := parseStoreOp(a.StoreOp)
		if err != nil {
			return nil, fmt.Errorf("attachment %d: %w", i, err)
		}
		stencilLoadOp, err := parseLoadOp(a.StencilLoadOp)
		if err != nil {
			return nil, fmt.Errorf("attachment %d: %w", i, err)
		}
		stencilStoreOp, err := parseStoreOp(a.StencilStoreOp)
		if err != nil {
			return nil, fmt.Errorf("attachment %d: %w", i, err)
		}
		initialLayout, err := parseLayout(a.InitialLayout)
		if err != nil {
			return nil, fmt.Errorf("attachment %d: %w", i, err)
		}
		finalLayout, err := parseLayout(a.FinalLayout)
		if err != nil {
			return nil, fmt.Errorf("attachment %d: %w", i, err)
		}

		attachments[i] = vk.AttachmentDescription{
			Format:         format,
			Samples:        samples,
			LoadOp:         loadOp,
			StoreOp:        storeOp,
			StencilLoadOp:  stencilLoadOp,
			StencilStoreOp: stencilStoreOp,
			InitialLayout:  initialLayout,
			FinalLayout:    finalLayout,
		}
	}

	subpasses := make([]vk.SubpassDescription, len(d.Subpasses))
	for i, s := range d.Subpasses {
		colors, err := convertReferences(s.Colors)
		if err != nil {
			return nil, fmt.Errorf("subpass %d colors: %w", i, err)
		}
		inputs, err := convertReferences(s.Inputs)
		if err != nil {
			return nil, fmt.Errorf("subpass %d inputs: %w", i, err)
		}

		subpass := vk.SubpassDescription{
			PipelineBindPoint:    vk.PipelineBindPointGraphics,
			ColorAttachmentCount: uint32(len(colors)),
			PColorAttachments:    colors,
			InputAttachmentCount: uint32(len(inputs)),
			PInputAttachments:    inputs,
		}

		if len(s.Resolves) > 0 {
			if len(s.Resolves) != len(s.Colors) {
				return nil, fmt.Errorf("subpass %d: %d resolves for %d colors; the lists must pair up",
					i, len(s.Resolves), len(s.Colors))
			}
			resolves, err := convertReferences(s.Resolves)
			if err != nil {
				return nil, fmt.Errorf("subpass %d resolves: %w", i, err)
			}
			subpass.PResolveAttachments = resolves
		}

		if s.DepthStencil != nil {
			ds, err := convertReference(*s.DepthStencil)
			if err != nil {
				return nil, fmt.Errorf("subpass %d depth-stencil: %w", i, err)
			}
			subpass.PDepthStencilAttachment = &ds
		}

		if len(s.Preserves) > 0 {
			subpass.PreserveAttachmentCount = uint32(len(s.Preserves))
			subpass.PPreserveAttachments = s.Preserves
		}

		subpasses[i] = subpass
	}

	dependencies := make([]vk.SubpassDependency, len(d.Dependencies))
	for i, dep := range d.Dependencies {
		srcStages, err := parseStageMask(dep.SrcStageMask)
		if err != nil {
			return nil, fmt.Errorf("dependency %d: %w", i, err)
		}
		dstStages, err := parseStageMask(dep.DstStageMask)
		if err != nil {
			return nil, fmt.Errorf("dependency %d: %w", i, err)
		}
		srcAccess, err := parseAccessMask(dep.SrcAccessMask)
		if err != nil {
			return nil, fmt.Errorf("dependency %d: %w", i, err)
		}
		dstAccess, err := parseAccessMask(dep.DstAccessMask)
		if err != nil {
			return nil, fmt.Errorf("dependency %d: %w", i, err)
		}

		var flags vk.DependencyFlags
		if dep.ByRegion {
			flags = vk.DependencyFlags(vk.DependencyByRegionBit)
		}

		dependencies[i] = vk.SubpassDependency{
			SrcSubpass:      subpassIndex(dep.SrcSubpass),
			DstSubpass:      subpassIndex(dep.DstSubpass),
			SrcStageMask:    srcStages,
			DstStageMask:    dstStages,
			SrcAccessMask:   srcAccess,
			DstAccessMask:   dstAccess,
			DependencyFlags: flags,
		}
	}

	return &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      subpasses,
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}, nil
}

func subpassIndex(i int64) uint32 {
	if i < 0 {
		return SubpassExternal
	}
	return uint32(i)
}

func convertReference(r ReferenceDesc) (vk.AttachmentReference, error) {
	if r.Attachment < 0 {
		return vk.AttachmentReference{Attachment: AttachmentUnused, Layout: vk.ImageLayoutUndefined}, nil
	}
	layout, err := parseLayout(r.Layout)
	if err != nil {
		return vk.AttachmentReference{}, err
	}
	return vk.AttachmentReference{Attachment: uint32(r.Attachment), Layout: layout}, nil
}

func convertReferences(refs []ReferenceDesc) ([]vk.AttachmentReference, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	out := make([]vk.AttachmentReference, len(refs))
	for i, r := range refs {
		ref, err := convertReference(r)
		if err != nil {
			return nil, err
		}
		out[i] = ref
	}
	return out, nil
}

var formatNames = map[string]vk.Format{
	"R8_UNORM":            vk.FormatR8Unorm,
	"R8G8B8_UNORM":        vk.FormatR8g8b8Unorm,
	"R8G8B8A8_UNORM":      vk.FormatR8g8b8a8Unorm,
	"R8G8B8A8_SRGB":       vk.FormatR8g8b8a8Srgb,
	"B8G8R8A8_UNORM":      vk.FormatB8g8r8a8Unorm,
	"B8G8R8A8_SRGB":       vk.FormatB8g8r8a8Srgb,
	"R16G16B16A16_SFLOAT": vk.FormatR16g16b16a16Sfloat,
	"R32G32B32A32_SFLOAT": vk.FormatR32g32b32a32Sfloat,
	"D16_UNORM":           vk.FormatD16Unorm,
	"D32_SFLOAT":          vk.FormatD32Sfloat,
	"D24_UNORM_S8_UINT":   vk.FormatD24UnormS8Uint,
	"D32_SFLOAT_S8_UINT":  vk.FormatD32SfloatS8Uint,
	"S8_UINT":             vk.FormatS8Uint,
}

func parseFormat(s string) (vk.Format, error) {
	if f, ok := formatNames[s]; ok {
		return f, nil
	}
	return 0, fmt.Errorf("string %s is not a valid attachment format", s)
}

var layoutNames = map[string]vk.ImageLayout{
	"UNDEFINED":                        vk.ImageLayoutUndefined,
	"GENERAL":                          vk.ImageLayoutGeneral,
	"COLOR_ATTACHMENT_OPTIMAL":         vk.ImageLayoutColorAttachmentOptimal,
	"DEPTH_STENCIL_ATTACHMENT_OPTIMAL": vk.ImageLayoutDepthStencilAttachmentOptimal,
	"SHADER_READ_ONLY_OPTIMAL":         vk.ImageLayoutShaderReadOnlyOptimal,
	"TRANSFER_SRC_OPTIMAL":             vk.ImageLayoutTransferSrcOptimal,
	"TRANSFER_DST_OPTIMAL":             vk.ImageLayoutTransferDstOptimal,
	"PRESENT_SRC":                      vk.ImageLayoutPresentSrc,
}

func parseLayout(s string) (vk.ImageLayout, error) {
	if l, ok := layoutNames[s]; ok {
		return l, nil
	}
	return 0, fmt.Errorf("string %s is not a valid image layout", s)
}

func parseLoadOp(s string) (vk.AttachmentLoadOp, error) {
	switch s {
	case "LOAD":
		return vk.AttachmentLoadOpLoad, nil
	case "CLEAR":
		return vk.AttachmentLoadOpClear, nil
	case "DONT_CARE", "":
		return vk.AttachmentLoadOpDontCare, nil
	}
	return 0, fmt.Errorf("string %s is not a valid load op", s)
}

func parseStoreOp(s string) (vk.AttachmentStoreOp, error) {
	switch s {
	case "STORE":
		return vk.AttachmentStoreOpStore, nil
	case "DONT_CARE", "":
		return vk.AttachmentStoreOpDontCare, nil
	}
	return 0, fmt.Errorf("string %s is not a valid store op", s)
}

func parseSampleCount(n int) (vk.SampleCountFlagBits, error) {
	switch n {
	case 0, 1:
		return vk.SampleCount1Bit, nil
	case 2:
		return vk.SampleCount2Bit, nil
	case 4:
		return vk.SampleCount4Bit, nil
	case 8:
		return vk.SampleCount8Bit, nil
	case 16:
		return vk.SampleCount16Bit, nil
	}
	return 0, fmt.Errorf("%d is not a valid sample count", n)
}

var stageNames = map[string]vk.PipelineStageFlagBits{
	"TOP_OF_PIPE":             vk.PipelineStageTopOfPipeBit,
	"EARLY_FRAGMENT_TESTS":    vk.PipelineStageEarlyFragmentTestsBit,
	"LATE_FRAGMENT_TESTS":     vk.PipelineStageLateFragmentTestsBit,
	"FRAGMENT_SHADER":         vk.PipelineStageFragmentShaderBit,
	"COLOR_ATTACHMENT_OUTPUT": vk.PipelineStageColorAttachmentOutputBit,
	"TRANSFER":                vk.PipelineStageTransferBit,
	"BOTTOM_OF_PIPE":          vk.PipelineStageBottomOfPipeBit,
}

func parseStageMask(names []string) (vk.PipelineStageFlags, error) {
	var mask vk.PipelineStageFlags
	for _, name := range names {
		bit, ok := stageNames[name]
		if !ok {
			return 0, fmt.Errorf("string %s is not a valid pipeline stage", name)
		}
		mask |= vk.PipelineStageFlags(bit)
	}
	return mask, nil
}

var accessNames = map[string]vk.AccessFlagBits{
	"COLOR_ATTACHMENT_READ":          vk.AccessColorAttachmentReadBit,
	"COLOR_ATTACHMENT_WRITE":         vk.AccessColorAttachmentWriteBit,
	"DEPTH_STENCIL_ATTACHMENT_READ":  vk.AccessDepthStencilAttachmentReadBit,
	"DEPTH_STENCIL_ATTACHMENT_WRITE": vk.AccessDepthStencilAttachmentWriteBit,
	"SHADER_READ":                    vk.AccessShaderReadBit,
	"TRANSFER_READ":                  vk.AccessTransferReadBit,
	"TRANSFER_WRITE":                 vk.AccessTransferWriteBit,
	"MEMORY_READ":                    vk.AccessMemoryReadBit,
}

func parseAccessMask(names []string) (vk.AccessFlags, error) {
	var mask vk.AccessFlags
	for _, name := range names {
		bit, ok := accessNames[name]
		if !ok {
			return 0, fmt.Errorf("string %s is not a valid access flag", name)
		}
		mask |= vk.AccessFlags(bit)
	}
	return mask, nil
}
