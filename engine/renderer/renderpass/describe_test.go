package renderpass

import (
	"strings"
	"testing"

	vk "github.com/goki/vulkan"
)

const sampleDescription = `
[[attachments]]
format = "R8G8B8A8_UNORM"
samples = 4
load-op = "CLEAR"
store-op = "DONT_CARE"
initial-layout = "UNDEFINED"
final-layout = "COLOR_ATTACHMENT_OPTIMAL"

[[attachments]]
format = "R8G8B8A8_UNORM"
samples = 1
store-op = "STORE"
initial-layout = "UNDEFINED"
final-layout = "SHADER_READ_ONLY_OPTIMAL"

[[attachments]]
format = "D24_UNORM_S8_UINT"
samples = 4
load-op = "CLEAR"
stencil-load-op = "CLEAR"
initial-layout = "UNDEFINED"
final-layout = "DEPTH_STENCIL_ATTACHMENT_OPTIMAL"

[[subpasses]]
colors = [{ attachment = 0, layout = "COLOR_ATTACHMENT_OPTIMAL" }]
resolves = [{ attachment = 1, layout = "TRANSFER_DST_OPTIMAL" }]
depth-stencil = { attachment = 2, layout = "DEPTH_STENCIL_ATTACHMENT_OPTIMAL" }

[[subpasses]]
inputs = [{ attachment = 1, layout = "SHADER_READ_ONLY_OPTIMAL" }]
preserves = [2]

[[dependencies]]
src-subpass = 0
dst-subpass = 1
src-stage-mask = ["COLOR_ATTACHMENT_OUTPUT"]
dst-stage-mask = ["FRAGMENT_SHADER"]
src-access-mask = ["COLOR_ATTACHMENT_WRITE"]
dst-access-mask = ["SHADER_READ"]
by-region = true

[[dependencies]]
src-subpass = 1
dst-subpass = -1
src-stage-mask = ["COLOR_ATTACHMENT_OUTPUT"]
dst-stage-mask = ["BOTTOM_OF_PIPE"]
`

func TestParseDescription(t *testing.T) {
	desc, err := ParseDescription([]byte(sampleDescription))
	if err != nil {
		t.Fatalf("ParseDescription failed: %v", err)
	}

	createInfo, err := desc.CreateInfo()
	if err != nil {
		t.Fatalf("CreateInfo failed: %v", err)
	}

	if createInfo.AttachmentCount != 3 {
		t.Errorf("attachment count = %d, want 3", createInfo.AttachmentCount)
	}
	if createInfo.SubpassCount != 2 {
		t.Errorf("subpass count = %d, want 2", createInfo.SubpassCount)
	}
	if createInfo.DependencyCount != 2 {
		t.Errorf("dependency count = %d, want 2", createInfo.DependencyCount)
	}

	att := createInfo.PAttachments[0]
	if att.Format != vk.FormatR8g8b8a8Unorm || att.Samples != vk.SampleCount4Bit {
		t.Errorf("attachment 0 = %v/%v, want rgba8 4x", att.Format, att.Samples)
	}
	if att.LoadOp != vk.AttachmentLoadOpClear || att.StoreOp != vk.AttachmentStoreOpDontCare {
		t.Errorf("attachment 0 ops = %v/%v", att.LoadOp, att.StoreOp)
	}
	// Omitted ops default to don't-care.
	if createInfo.PAttachments[1].LoadOp != vk.AttachmentLoadOpDontCare {
		t.Errorf("omitted load op = %v, want don't-care", createInfo.PAttachments[1].LoadOp)
	}
	if createInfo.PAttachments[2].StencilLoadOp != vk.AttachmentLoadOpClear {
		t.Errorf("stencil load op = %v, want clear", createInfo.PAttachments[2].StencilLoadOp)
	}

	sp0 := &createInfo.PSubpasses[0]
	if sp0.ColorAttachmentCount != 1 || sp0.PColorAttachments[0].Attachment != 0 {
		t.Error("subpass 0 color reference mismatch")
	}
	if sp0.PResolveAttachments == nil || sp0.PResolveAttachments[0].Attachment != 1 {
		t.Error("subpass 0 resolve reference mismatch")
	}
	if sp0.PDepthStencilAttachment == nil || sp0.PDepthStencilAttachment.Attachment != 2 {
		t.Error("subpass 0 depth-stencil reference mismatch")
	}

	sp1 := &createInfo.PSubpasses[1]
	if sp1.InputAttachmentCount != 1 || sp1.PInputAttachments[0].Attachment != 1 {
		t.Error("subpass 1 input reference mismatch")
	}
	if sp1.PreserveAttachmentCount != 1 || sp1.PPreserveAttachments[0] != 2 {
		t.Error("subpass 1 preserve list mismatch")
	}

	dep := createInfo.PDependencies[0]
	if dep.SrcSubpass != 0 || dep.DstSubpass != 1 {
		t.Errorf("dependency 0 = %d -> %d, want 0 -> 1", dep.SrcSubpass, dep.DstSubpass)
	}
	if dep.DependencyFlags&vk.DependencyFlags(vk.DependencyByRegionBit) == 0 {
		t.Error("by-region flag not set")
	}
	if createInfo.PDependencies[1].DstSubpass != SubpassExternal {
		t.Errorf("dependency 1 dst = %d, want external", createInfo.PDependencies[1].DstSubpass)
	}
}

func TestDescriptionBuildsEndToEnd(t *testing.T) {
	desc, err := ParseDescription([]byte(sampleDescription))
	if err != nil {
		t.Fatalf("ParseDescription failed: %v", err)
	}
	createInfo, err := desc.CreateInfo()
	if err != nil {
		t.Fatalf("CreateInfo failed: %v", err)
	}

	_, plan := mustBuild(t, createInfo)
	if len(plan.Subpasses) != 2 {
		t.Fatalf("plan subpasses = %d, want 2", len(plan.Subpasses))
	}
	if len(plan.Subpasses[0].End.Resolves) != 1 {
		t.Errorf("plan resolves = %d, want 1", len(plan.Subpasses[0].End.Resolves))
	}
}

func TestUnusedReferenceInDescription(t *testing.T) {
	desc := &Description{
		Attachments: []AttachmentDesc{{
			Format:        "R8G8B8A8_UNORM",
			LoadOp:        "CLEAR",
			StoreOp:       "STORE",
			InitialLayout: "UNDEFINED",
			FinalLayout:   "COLOR_ATTACHMENT_OPTIMAL",
		}},
		Subpasses: []SubpassDesc{{
			Colors:       []ReferenceDesc{{Attachment: 0, Layout: "COLOR_ATTACHMENT_OPTIMAL"}},
			DepthStencil: &ReferenceDesc{Attachment: -1},
		}},
	}

	createInfo, err := desc.CreateInfo()
	if err != nil {
		t.Fatalf("CreateInfo failed: %v", err)
	}
	ds := createInfo.PSubpasses[0].PDepthStencilAttachment
	if ds == nil || ds.Attachment != AttachmentUnused {
		t.Errorf("unused depth-stencil = %v, want AttachmentUnused", ds)
	}
}

func TestDescriptionErrors(t *testing.T) {
	tests := []struct {
		name    string
		desc    Description
		wantErr string
	}{
		{
			name: "unknown format",
			desc: Description{
				Attachments: []AttachmentDesc{{Format: "R11G11B10_UFLOAT", InitialLayout: "UNDEFINED", FinalLayout: "GENERAL"}},
			},
			wantErr: "not a valid attachment format",
		},
		{
			name: "unknown layout",
			desc: Description{
				Attachments: []AttachmentDesc{{Format: "R8G8B8A8_UNORM", InitialLayout: "SIDEWAYS", FinalLayout: "GENERAL"}},
			},
			wantErr: "not a valid image layout",
		},
		{
			name: "bad sample count",
			desc: Description{
				Attachments: []AttachmentDesc{{Format: "R8G8B8A8_UNORM", Samples: 3, InitialLayout: "UNDEFINED", FinalLayout: "GENERAL"}},
			},
			wantErr: "not a valid sample count",
		},
		{
			name: "resolve list length mismatch",
			desc: Description{
				Subpasses: []SubpassDesc{{
					Colors: []ReferenceDesc{
						{Attachment: 0, Layout: "COLOR_ATTACHMENT_OPTIMAL"},
						{Attachment: 1, Layout: "COLOR_ATTACHMENT_OPTIMAL"},
					},
					Resolves: []ReferenceDesc{{Attachment: 2, Layout: "TRANSFER_DST_OPTIMAL"}},
				}},
			},
			wantErr: "must pair up",
		},
		{
			name: "unknown pipeline stage",
			desc: Description{
				Dependencies: []DependencyDesc{{SrcSubpass: -1, DstSubpass: 0, SrcStageMask: []string{"GEOMETRY_SHADING"}}},
			},
			wantErr: "not a valid pipeline stage",
		},
		{
			name: "unknown access flag",
			desc: Description{
				Dependencies: []DependencyDesc{{SrcSubpass: -1, DstSubpass: 0, SrcAccessMask: []string{"HOST_WRITE"}}},
			},
			wantErr: "not a valid access flag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.desc.CreateInfo()
			if err == nil {
				t.Fatal("CreateInfo succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseDescriptionRejectsMalformedTOML(t *testing.T) {
	if _, err := ParseDescription([]byte("[[attachments\nformat =")); err == nil {
		t.Fatal("malformed TOML accepted")
	}
}
