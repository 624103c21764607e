package renderer

import "github.com/radiant-engine/radiant/vk"

// FrameContext is the set of GPU objects exclusively owned by one
// in-flight frame slot (spec.md §5 guarantee 5: "all frame-local resources
// ... are owned exclusively by one frame at a time, enforced by a per-frame
// fence"). Renderer keeps Config.FramesInFlight of these, indexed by
// frameIndex % FramesInFlight.
type FrameContext struct {
	CommandBuffer     vk.CommandBuffer
	InFlightFence     vk.Fence
	ImageAvailableSem vk.Semaphore
	RenderFinishedSem vk.Semaphore

	// frameNumber is the monotonically increasing frame this slot last
	// recorded, used by the bindless allocator's Collect call to know
	// which retirements have completed (bindless.Allocator.Collect).
	frameNumber uint64
}
