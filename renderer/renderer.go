// Package renderer ties the spatial acceleration index, the Radiance-Cascade
// GI engine, and the G-buffer/outline passes into the single per-frame
// sequence spec.md §5 describes: a CPU-side cull-and-build step followed by
// an ordered chain of GPU stages (TLAS update, cascade trace, merge,
// integrate, G-buffer, outline; presenting is left to the caller), each separated by an explicit
// pipeline barrier. Grounded on vala/systems/render.go's BeginFrame/EndFrame
// barrier idiom and the teacher's acquire/wait-fence/submit/present loop in
// vala/vala.go, generalized from a fixed two-pass compositor into the
// cascade-fed deferred pipeline spec.md §4 describes.
package renderer

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/radiant-engine/radiant/bindless"
	"github.com/radiant-engine/radiant/bvh"
	"github.com/radiant-engine/radiant/cascade"
	"github.com/radiant-engine/radiant/ecs"
	"github.com/radiant-engine/radiant/gbuffer"
	"github.com/radiant-engine/radiant/geom"
	"github.com/radiant-engine/radiant/internal/rlog"
	"github.com/radiant-engine/radiant/outline"
	"github.com/radiant-engine/radiant/scene"
	"github.com/radiant-engine/radiant/vk"
)

// Renderer owns the GPU objects and passes that persist across frames: the
// bindless global set, the cascade compute passes, the G-buffer/outline
// graphics passes, per-frame sync objects, and the CPU-side spatial index
// used for culling (spec.md §4.1/§4.2, consumed here rather than in scene
// since the index spans every registered entity, not one scene's TLAS
// bookkeeping).
type Renderer struct {
	device         vk.Device
	physicalDevice vk.PhysicalDevice

	graphicsQueue vk.Queue
	computeQueue  vk.Queue

	commandPool vk.CommandPool
	frames      []FrameContext
	frameIndex  uint64

	global *bindless.Global

	tracer     *cascade.Tracer
	merger     *cascade.Merger
	integrator *cascade.Integrator
	levels2D   []cascade.CascadeLevel2D
	levels3D   []cascade.CascadeLevel3D

	gbuffer *gbuffer.Pass
	outline *outline.Pass
	// depthSlot is the bindless sampled-texture slot the outline pass reads
	// the G-buffer depth through. Bound once here rather than per frame: the
	// depth view is a stable per-pass resource, not a frame-scoped one, so
	// it is rebound only on Resize, never Allocate/Retire'd through the
	// frame-completion bookkeeping the rest of the bindless arrays use.
	depthSlot bindless.Index

	staticIndex  bvh.Static
	dynamicIndex *bvh.Dynamic
	// dynamicNodeOf tracks each dynamic entity's DBVH node id so
	// CullAndBuild can replay a mutation as Update (refit) instead of
	// Insert once the entity is already tracked (spec.md §4.2).
	dynamicNodeOf map[ecs.Entity]int

	cfg Config
}

// NewRenderer builds every persistent pass and GPU object a Renderer needs.
// globalLayout's contents (camera/texture/storage-image/acceleration-
// structure/cascade-UBO arrays) are created here via bindless.NewGlobal and
// handed to every pass that binds set 0.
func NewRenderer(device vk.Device, physicalDevice vk.PhysicalDevice, cfg Config, selection *scene.SelectionChannel) (*Renderer, error) {
	if cfg.FramesInFlight <= 0 {
		return nil, &PreconditionViolation{Reason: "Config.FramesInFlight must be positive"}
	}

	global, err := bindless.NewGlobal(device, cfg.BindlessCapacity)
	if err != nil {
		return nil, &AllocationError{Reason: "create bindless global set", Err: err}
	}

	tracer, err := cascade.NewTracer(device, global.Layout())
	if err != nil {
		global.Destroy()
		return nil, &AllocationError{Reason: "create cascade tracer", Err: err}
	}
	merger, err := cascade.NewMerger(device, global.Layout())
	if err != nil {
		tracer.Destroy()
		global.Destroy()
		return nil, &AllocationError{Reason: "create cascade merger", Err: err}
	}
	integrator, err := cascade.NewIntegrator(device, global.Layout())
	if err != nil {
		merger.Destroy()
		tracer.Destroy()
		global.Destroy()
		return nil, &AllocationError{Reason: "create cascade integrator", Err: err}
	}

	levels2D, err := cascade.Build2D(cfg.Cascade2D)
	if err != nil {
		integrator.Destroy()
		merger.Destroy()
		tracer.Destroy()
		global.Destroy()
		return nil, &PreconditionViolation{Reason: fmt.Sprintf("invalid Cascade2D params: %v", err)}
	}
	var levels3D []cascade.CascadeLevel3D
	if cfg.Cascade3D != nil {
		levels3D, err = cascade.Build3D(*cfg.Cascade3D)
		if err != nil {
			integrator.Destroy()
			merger.Destroy()
			tracer.Destroy()
			global.Destroy()
			return nil, &PreconditionViolation{Reason: fmt.Sprintf("invalid Cascade3D params: %v", err)}
		}
	}

	gbufferPass, err := gbuffer.NewPass(device, physicalDevice, global.Layout(), global.Layout(), cfg.GBufferExtent, selection)
	if err != nil {
		integrator.Destroy()
		merger.Destroy()
		tracer.Destroy()
		global.Destroy()
		return nil, &AllocationError{Reason: "create gbuffer pass", Err: err}
	}

	depthSlot := global.SampledTextures.Allocate()
	global.BindSampledTexture(depthSlot, gbufferPass.DepthSampledView(), vk.Sampler{})

	outlinePass, err := outline.NewPass(device, global.Layout(), cfg.ColorFormat, cfg.GBufferExtent, selection, outline.DefaultConfig())
	if err != nil {
		gbufferPass.Destroy(selection)
		integrator.Destroy()
		merger.Destroy()
		tracer.Destroy()
		global.Destroy()
		return nil, &AllocationError{Reason: "create outline pass", Err: err}
	}

	pool, err := device.CreateCommandPool(&vk.CommandPoolCreateInfo{
		Flags:            vk.COMMAND_POOL_CREATE_RESET_COMMAND_BUFFER_BIT,
		QueueFamilyIndex: cfg.GraphicsQueueFamily,
	})
	if err != nil {
		outlinePass.Destroy()
		gbufferPass.Destroy(selection)
		integrator.Destroy()
		merger.Destroy()
		tracer.Destroy()
		global.Destroy()
		return nil, &AllocationError{Reason: "create command pool", Err: err}
	}

	cmdBufs, err := device.AllocateCommandBuffers(&vk.CommandBufferAllocateInfo{
		CommandPool:        pool,
		Level:              vk.COMMAND_BUFFER_LEVEL_PRIMARY,
		CommandBufferCount: uint32(cfg.FramesInFlight),
	})
	if err != nil {
		device.DestroyCommandPool(pool)
		outlinePass.Destroy()
		gbufferPass.Destroy(selection)
		integrator.Destroy()
		merger.Destroy()
		tracer.Destroy()
		global.Destroy()
		return nil, &AllocationError{Reason: "allocate command buffers", Err: err}
	}

	frames := make([]FrameContext, cfg.FramesInFlight)
	for i := range frames {
		imgAvail, err := device.CreateSemaphore(&vk.SemaphoreCreateInfo{})
		if err != nil {
			return nil, &AllocationError{Reason: "create image-available semaphore", Err: err}
		}
		renderDone, err := device.CreateSemaphore(&vk.SemaphoreCreateInfo{})
		if err != nil {
			return nil, &AllocationError{Reason: "create render-finished semaphore", Err: err}
		}
		fence, err := device.CreateFence(&vk.FenceCreateInfo{Flags: vk.FENCE_CREATE_SIGNALED_BIT})
		if err != nil {
			return nil, &AllocationError{Reason: "create in-flight fence", Err: err}
		}
		frames[i] = FrameContext{
			CommandBuffer:     cmdBufs[i],
			InFlightFence:     fence,
			ImageAvailableSem: imgAvail,
			RenderFinishedSem: renderDone,
		}
	}

	return &Renderer{
		device:         device,
		physicalDevice: physicalDevice,
		graphicsQueue:  device.GetQueue(cfg.GraphicsQueueFamily, 0),
		computeQueue:   device.GetQueue(cfg.ComputeQueueFamily, 0),
		commandPool:    pool,
		frames:         frames,
		global:         global,
		tracer:         tracer,
		merger:         merger,
		integrator:     integrator,
		levels2D:       levels2D,
		levels3D:       levels3D,
		gbuffer:        gbufferPass,
		outline:        outlinePass,
		depthSlot:      depthSlot,
		dynamicIndex:   bvh.NewDynamic(),
		dynamicNodeOf:  make(map[ecs.Entity]int),
		cfg:            cfg,
	}, nil
}

// cullResult is CullAndBuild's output: the CPU-side work a frame must
// finish before any GPU stage touching the spatial index or the TLAS can
// record (spec.md §5 guarantee 1).
type cullResult struct {
	visible []ecs.Entity
}

// CullAndBuild runs the frame's independent CPU-side prework concurrently:
// rebuilding the static BVH from the current static-primitive set, replaying
// dynamic-primitive mutations into the DBVH, and frustum-culling against the
// main camera. None of these three touch the GPU, so they run in parallel
// via errgroup (spec.md §5: "CPU-side subsystems ... run on the render
// thread", which constrains them to one thread's worth of work, not to
// running sequentially within that budget).
func (r *Renderer) CullAndBuild(ctx context.Context, sc *scene.Scene) (*cullResult, error) {
	var frustum geom.Frustum
	var hasFrustum bool

	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		statics := sc.World.QueryStaticPrimitives()
		leaves := make([]bvh.Leaf, 0, len(statics))
		for _, e := range statics {
			aabb, ok := sc.Adapter().BoundingBox(e)
			if !ok {
				continue
			}
			leaves = append(leaves, bvh.Leaf{AABB: aabb, EntityID: bvh.EntityID(e)})
		}
		r.staticIndex.Build(leaves)
		return nil
	})

	g.Go(func() error {
		for _, e := range sc.World.QueryDynamicPrimitives() {
			aabb, ok := sc.Adapter().BoundingBox(e)
			if !ok {
				continue
			}
			if nodeID, tracked := r.dynamicNodeOf[e]; tracked {
				r.dynamicIndex.Update(nodeID, aabb)
			} else {
				r.dynamicNodeOf[e] = r.dynamicIndex.Insert(bvh.EntityID(e), aabb)
			}
		}
		return nil
	})

	g.Go(func() error {
		camera, ok := sc.MainCamera()
		if !ok {
			return nil
		}
		f, ok := sc.Adapter().Frustum(camera)
		if !ok {
			return nil
		}
		frustum, hasFrustum = f, true
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &cullResult{}
	if hasFrustum {
		for _, e := range sc.World.QueryGBufferCandidates() {
			aabb, ok := sc.Adapter().BoundingBox(e)
			if ok && frustum.TestBoundingBox(aabb) {
				result.visible = append(result.visible, e)
			}
		}
	}
	return result, nil
}

// waitFence blocks until fence signals or ctx is cancelled. vk.Device's
// WaitForFences folds VK_TIMEOUT into a nil error, so a timed-out wait is
// indistinguishable from a signalled fence and it cannot be polled against
// a context; this instead polls GetFenceStatus on a short ticker (spec.md §5:
// "context.Context is threaded through RenderFrame and the blocking
// fence-wait helper ... it carries cancellation only").
func (r *Renderer) waitFence(ctx context.Context, fence vk.Fence) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		signalled, err := r.device.GetFenceStatus(fence)
		if err != nil {
			return err
		}
		if signalled {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RenderFrame records and submits one frame following the ordering
// guarantees of spec.md §5: DBVH/TLAS update, then cascade trace, then
// merge, then integrate, then G-buffer, then outline, each separated by an
// explicit barrier. colorView is a swapchain image view the caller has
// already acquired; presenting it is the caller's responsibility (swapchain
// acquisition/recreation is platform-specific presentation, a named
// Non-goal). GPU submission failures are logged and the frame is dropped
// rather than propagated, per spec.md §7's propagation policy; BuildError
// from the scene layer and PreconditionViolation from this layer's own
// contract checks still propagate.
func (r *Renderer) RenderFrame(ctx context.Context, sc *scene.Scene, colorView vk.ImageView) error {
	if sc == nil {
		return &PreconditionViolation{Reason: "RenderFrame called with a nil scene"}
	}

	slot := r.frameIndex % uint64(len(r.frames))
	frame := &r.frames[slot]

	if err := r.waitFence(ctx, frame.InFlightFence); err != nil {
		return err
	}

	cull, err := r.CullAndBuild(ctx, sc)
	if err != nil {
		return err
	}

	cmd := frame.CommandBuffer
	if err := cmd.Reset(0); err != nil {
		return &AllocationError{Reason: "reset command buffer", Err: err}
	}
	if err := cmd.Begin(&vk.CommandBufferBeginInfo{}); err != nil {
		return &AllocationError{Reason: "begin command buffer", Err: err}
	}

	// Ordering guarantee 1: DBVH mutations (already folded into
	// r.dynamicIndex by CullAndBuild) and TLAS updateInstances/build
	// complete before the tracer dispatch of this frame.
	if err := sc.UpdateTLAS(cmd); err != nil {
		rlog.Default().Error("tlas update failed, skipping frame's GI stages", "error", err)
		return r.abandonFrame(cmd, frame)
	}

	rlog.Default().Debug("cull complete", "visible", len(cull.visible))

	// The tracer/merger/integrator chain only runs against a built,
	// non-empty TLAS (spec.md §4.3/§5): with no instances the frame skips
	// the GI passes and irradiance holds the previous frame's texture.
	if sc.TLAS().Ready() {
		lightCount, err := sc.UpdateLights(r.global)
		if err != nil {
			rlog.Default().Warn("light buffer upload failed, tracing without direct lighting", "error", err)
			lightCount = 0
		}
		skyboxIndex := sc.Env.SkyboxTextureIndex()

		for i, level := range r.levels2D {
			var next *cascade.CascadeLevel2D
			if i+1 < len(r.levels2D) {
				next = &r.levels2D[i+1]
			}
			r.tracer.Dispatch(cmd, r.global.Set(), level.GridDims, level.AngularResolution, cascade.PushConstants{
				CascadeIndex:       level.Index,
				CascadeLevels:      uint32(len(r.levels2D)),
				TLASIndex:          uint32(sc.TLAS().BindlessIndex()),
				SkyboxTextureIndex: skyboxIndex,
				LightCount:         uint32(lightCount),
				LightBufferIndex:   uint32(sc.LightsBindlessIndex()),
				AngularResolution:  level.AngularResolution,
				GridDims:           [3]uint32{uint32(level.GridDims[0]), uint32(level.GridDims[1]), 1},
				Origin:             [3]float32{level.Origin[0], 0, level.Origin[1]},
				Spacing:            [3]float32{level.Spacing[0], 0, level.Spacing[1]},
				TMin:               level.DMin,
				TMax:               level.TraceMaxDistance(next),
			})
		}

		// Ordering guarantee 2: tracer writes are finished and visible
		// before the merger reads each cascade. The cascade images stay in
		// GENERAL, the layout the storage-image array is bound with; no
		// layout transition is recorded.
		r.barrierComputeToCompute(cmd)

		r.merger.MergeLevels2D(cmd, r.global.Set(), r.levels2D)

		// Ordering guarantee 3: merger finishes before the integrator reads
		// cascade 0.
		r.barrierComputeToCompute(cmd)

		if len(r.levels2D) > 0 {
			r.integrator.Dispatch(cmd, r.global.Set(), r.levels2D[0])
		}
	} else {
		rlog.Default().Debug("tlas not ready, skipping GI passes this frame", "instanceCount", sc.TLAS().InstanceCount())
	}

	if err := r.gbuffer.Record(cmd, sc, r.global.Set()); err != nil {
		rlog.Default().Warn("gbuffer pass recorded nothing", "error", err)
	}

	// Ordering guarantee 4: G-buffer finishes (colour/depth barrier to
	// SHADER_READ_ONLY) before the outline pass reads the depth-stencil.
	r.barrierGraphicsToFragment(cmd)

	if !r.global.SampledTextures.Live(r.depthSlot) {
		stale := &bindless.StaleResourceError{Index: r.depthSlot, Frame: r.frameIndex}
		rlog.Default().Error("outline pass skipped, depth slot not live", "error", stale)
		return r.abandonFrame(cmd, frame)
	}
	if err := r.outline.Record(cmd, sc, r.global.Set(), r.depthSlot, colorView); err != nil {
		rlog.Default().Warn("outline pass recorded nothing", "error", err)
	}

	if err := cmd.End(); err != nil {
		return &AllocationError{Reason: "end command buffer", Err: err}
	}

	if err := r.device.ResetFences([]vk.Fence{frame.InFlightFence}); err != nil {
		return &AllocationError{Reason: "reset in-flight fence", Err: err}
	}

	err = r.graphicsQueue.Submit([]vk.SubmitInfo{
		{
			WaitSemaphores:   []vk.Semaphore{frame.ImageAvailableSem},
			WaitDstStageMask: []vk.PipelineStageFlags{vk.PIPELINE_STAGE_COLOR_ATTACHMENT_OUTPUT_BIT},
			CommandBuffers:   []vk.CommandBuffer{cmd},
			SignalSemaphores: []vk.Semaphore{frame.RenderFinishedSem},
		},
	}, frame.InFlightFence)
	if err != nil {
		lost := &SwapchainLostError{Stage: "submit", Result: err}
		rlog.Default().Warn("frame dropped", "error", lost)
		r.frameIndex++
		return nil
	}

	// This slot's fence, waited on above, covered the frame the slot last
	// submitted, so slots retired up to that frame are no longer in use.
	// Until every slot has been used once there is no such frame.
	completed := frame.frameNumber
	hasCompleted := r.frameIndex >= uint64(len(r.frames))
	frame.frameNumber = r.frameIndex
	if hasCompleted {
		r.global.SampledTextures.Collect(completed)
		r.global.StorageImages.Collect(completed)
		r.global.AccelerationStructures.Collect(completed)
		r.global.CascadeLevelUBOs.Collect(completed)
		r.global.Cameras.Collect(completed)
	}

	r.frameIndex++
	return nil
}

// abandonFrame ends and discards a partially recorded command buffer
// without submitting it (spec.md §5: "the tracer/merger/integrator must be
// safe to skip entirely" when a frame is abandoned mid-record).
func (r *Renderer) abandonFrame(cmd vk.CommandBuffer, frame *FrameContext) error {
	_ = cmd.End()
	if err := r.device.ResetFences([]vk.Fence{frame.InFlightFence}); err != nil {
		return &AllocationError{Reason: "reset in-flight fence after abandoned frame", Err: err}
	}
	r.frameIndex++
	return nil
}

// barrierComputeToCompute separates two compute dispatches that read/write
// the same cascade storage images. The cascade images are addressed purely
// through bindless indices here rather than raw vk.Image handles, so this
// records a global memory barrier (shader write -> shader read) scoped to
// the compute stage, as Merger does between its own passes, rather than
// per-image barriers.
func (r *Renderer) barrierComputeToCompute(cmd vk.CommandBuffer) {
	cmd.MemoryBarrier(
		vk.PIPELINE_STAGE_COMPUTE_SHADER_BIT, vk.PIPELINE_STAGE_COMPUTE_SHADER_BIT,
		vk.ACCESS_SHADER_WRITE_BIT, vk.ACCESS_SHADER_READ_BIT,
	)
}

func (r *Renderer) barrierGraphicsToFragment(cmd vk.CommandBuffer) {
	cmd.PipelineBarrier(
		vk.PIPELINE_STAGE_COLOR_ATTACHMENT_OUTPUT_BIT,
		vk.PIPELINE_STAGE_FRAGMENT_SHADER_BIT,
		0,
		[]vk.ImageMemoryBarrier{
			{
				SrcAccessMask:       vk.ACCESS_COLOR_ATTACHMENT_WRITE_BIT,
				DstAccessMask:       vk.ACCESS_SHADER_READ_BIT,
				OldLayout:           vk.IMAGE_LAYOUT_DEPTH_STENCIL_ATTACHMENT_OPTIMAL,
				NewLayout:           vk.IMAGE_LAYOUT_DEPTH_STENCIL_READ_ONLY_OPTIMAL,
				SrcQueueFamilyIndex: ^uint32(0),
				DstQueueFamilyIndex: ^uint32(0),
				Image:               r.gbuffer.DepthImage(),
				SubresourceRange: vk.ImageSubresourceRange{
					AspectMask:     vk.IMAGE_ASPECT_DEPTH_BIT,
					BaseMipLevel:   0,
					LevelCount:     1,
					BaseArrayLayer: 0,
					LayerCount:     1,
				},
			},
		},
	)
}

// Destroy releases every GPU object the Renderer owns: per-frame sync
// objects, the command pool, the cascade passes, the G-buffer/outline
// passes, and the bindless global set.
func (r *Renderer) Destroy(selection *scene.SelectionChannel) {
	for _, f := range r.frames {
		r.device.DestroySemaphore(f.ImageAvailableSem)
		r.device.DestroySemaphore(f.RenderFinishedSem)
		r.device.DestroyFence(f.InFlightFence)
	}
	r.device.DestroyCommandPool(r.commandPool)
	r.outline.Destroy()
	r.gbuffer.Destroy(selection)
	r.integrator.Destroy()
	r.merger.Destroy()
	r.tracer.Destroy()
	r.global.Destroy()
}

// Resize recreates the G-buffer attachments at the new extent and rebinds
// the outline pass's bindless depth read to the new depth view (spec.md §8
// edge case: extent change recreates every G-buffer texture; the slot index
// itself doesn't change, only what it points at).
func (r *Renderer) Resize(extent vk.Extent2D) error {
	if err := r.gbuffer.Resize(extent); err != nil {
		return &AllocationError{Reason: "resize gbuffer pass", Err: err}
	}
	r.outline.Resize(extent)
	r.global.BindSampledTexture(r.depthSlot, r.gbuffer.DepthSampledView(), vk.Sampler{})
	return nil
}

// FramesInFlight returns the configured frame-in-flight count.
func (r *Renderer) FramesInFlight() int { return r.cfg.FramesInFlight }

// Global returns the renderer's bindless global set, for callers that need
// to bind additional resources (materials, environment textures) before the
// first frame.
func (r *Renderer) Global() *bindless.Global { return r.global }
