package renderpass

import (
	"testing"

	vk "github.com/goki/vulkan"
)

func TestFormatClassification(t *testing.T) {
	tests := []struct {
		name    string
		format  vk.Format
		color   bool
		depth   bool
		stencil bool
	}{
		{"rgba8", vk.FormatR8g8b8a8Unorm, true, false, false},
		{"bgra8 srgb", vk.FormatB8g8r8a8Srgb, true, false, false},
		{"rgba16f", vk.FormatR16g16b16a16Sfloat, true, false, false},
		{"d16", vk.FormatD16Unorm, false, true, false},
		{"d32f", vk.FormatD32Sfloat, false, true, false},
		{"x8 d24", vk.FormatX8D24UnormPack32, false, true, false},
		{"d24 s8", vk.FormatD24UnormS8Uint, false, true, true},
		{"d32f s8", vk.FormatD32SfloatS8Uint, false, true, true},
		{"s8", vk.FormatS8Uint, false, false, true},
		{"undefined", vk.FormatUndefined, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsColorFormat(tt.format); got != tt.color {
				t.Errorf("IsColorFormat = %v, want %v", got, tt.color)
			}
			if got := HasDepth(tt.format); got != tt.depth {
				t.Errorf("HasDepth = %v, want %v", got, tt.depth)
			}
			if got := HasStencil(tt.format); got != tt.stencil {
				t.Errorf("HasStencil = %v, want %v", got, tt.stencil)
			}
		})
	}
}

func TestRefMaskClassification(t *testing.T) {
	tests := []struct {
		name   string
		mask   RefMask
		reads  bool
		writes bool
	}{
		{"none", 0, false, false},
		{"color", RefColor, false, true},
		{"input", RefInput, true, false},
		{"resolve src", RefResolveSrc, true, false},
		{"resolve dst", RefResolveDst, false, true},
		{"depth stencil", RefDepthStencil, false, true},
		{"preserve", RefPreserve, false, false},
		{"color with resolve", RefColor | RefResolveSrc, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mask.Reads(); got != tt.reads {
				t.Errorf("Reads() = %v, want %v", got, tt.reads)
			}
			if got := tt.mask.Writes(); got != tt.writes {
				t.Errorf("Writes() = %v, want %v", got, tt.writes)
			}
		})
	}
}
