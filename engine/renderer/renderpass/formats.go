package renderpass

import (
	vk "github.com/goki/vulkan"
)

// Format classification used to pick clear aspects and hardware clear paths.
// Pure queries over the declared attachment format.

// HasDepth reports whether the format carries a depth aspect.
func HasDepth(format vk.Format) bool {
	switch format {
	case vk.FormatD16Unorm,
		vk.FormatX8D24UnormPack32,
		vk.FormatD32Sfloat,
		vk.FormatD16UnormS8Uint,
		vk.FormatD24UnormS8Uint,
		vk.FormatD32SfloatS8Uint:
		return true
	}
	return false
}

// HasStencil reports whether the format carries a stencil aspect.
func HasStencil(format vk.Format) bool {
	switch format {
	case vk.FormatS8Uint,
		vk.FormatD16UnormS8Uint,
		vk.FormatD24UnormS8Uint,
		vk.FormatD32SfloatS8Uint:
		return true
	}
	return false
}

// IsColorFormat reports whether the format is a color format.
func IsColorFormat(format vk.Format) bool {
	return format != vk.FormatUndefined && !HasDepth(format) && !HasStencil(format)
}
