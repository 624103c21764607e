package renderer

import (
	"github.com/radiant-engine/radiant/cascade"
	"github.com/radiant-engine/radiant/vk"
)

// Config carries the plain-record construction parameters for a Renderer
// (spec.md §5: "F frames in flight (F = swapchain image count, typically
// 2-3)"). It holds no live Vulkan handles of its own beyond what NewRenderer
// needs to build them.
type Config struct {
	FramesInFlight int

	GraphicsQueueFamily uint32
	ComputeQueueFamily  uint32

	GBufferExtent vk.Extent2D
	ColorFormat   vk.Format

	BindlessCapacity uint32

	// Cascade2D is always built and rendered. Cascade3D is optional — nil
	// skips the 3D ladder entirely; non-nil builds its levels via
	// cascade.Build3D, but RenderFrame traces, merges and integrates only
	// the 2D ladder (SPEC_FULL.md §4.4).
	Cascade2D cascade.BuildParams2D
	Cascade3D *cascade.BuildParams3D
}
