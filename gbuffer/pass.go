// Package gbuffer implements the deferred geometry pass of spec.md §4.8:
// it rasterises every (Transform, Mesh, Material, BoundingBox) entity whose
// world AABB survives frustum culling into four colour attachments plus a
// depth-stencil attachment whose stencil channel marks the selected entity.
// Grounded on the teacher's vala/systems/render.go draw-loop shape
// (BindPipeline -> BindDescriptorSets -> SetViewport/Scissor ->
// CmdPushConstants -> BindVertexBuffers/BindIndexBuffer -> DrawIndexed) and
// its ensureDescriptorSet lazy-allocation pattern, generalized from a 2D
// offset/scale/opacity/depth push constant to a model matrix and from a
// single combined-image-sampler binding to the bindless + per-material
// descriptor-set contract of spec.md §4.10.
package gbuffer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/radiant-engine/radiant/ecs"
	"github.com/radiant-engine/radiant/geom"
	"github.com/radiant-engine/radiant/scene"
	"github.com/radiant-engine/radiant/shaderc"
	"github.com/radiant-engine/radiant/vk"
)

// Attachment formats fixed by spec.md §4.8: "position+depth (RGBA32F),
// normal (RGBA16F), albedo+spec (RGBA8 sRGB), material (RGBA8 linear:
// metallic, roughness, AO, flag), depth-stencil (D24S8)". The depth-stencil
// format is widened to D32_SFLOAT_S8_UINT, the only combined depth-stencil
// format vk/types.go carries (D24_UNORM_S8_UINT is not universally
// supported; D32_SFLOAT_S8_UINT has the same two-aspect shape the pass
// needs and strictly more depth precision).
const (
	FormatPosition     = vk.FORMAT_R32G32B32A32_SFLOAT
	FormatNormal       = vk.FORMAT_R16G16B16A16_SFLOAT
	FormatAlbedoSpec   = vk.FORMAT_R8G8B8A8_SRGB
	FormatMaterial     = vk.FORMAT_R8G8B8A8_UNORM
	FormatDepthStencil = vk.FORMAT_D32_SFLOAT_S8_UINT
)

// Stencil values per spec.md §4.8: "ref=1/mask=0xFF for the selected
// entity, else ref=0/mask=0x00".
const (
	stencilRefSelected   = 1
	stencilRefUnselected = 0
	stencilMaskSelected  = 0xFF
	stencilMaskNone      = 0x00
)

// attachment bundles one colour (or depth-stencil) target's backing image,
// memory, and view, recreated wholesale on Resize (spec.md §3: "G-buffer
// textures are per-frame-in-flight, recreated on swapchain resize").
type attachment struct {
	image  vk.Image
	memory vk.DeviceMemory
	view   vk.ImageView
	format vk.Format
}

// Pass owns the G-buffer graphics pipeline and its four colour + one
// depth-stencil attachment.
type Pass struct {
	device         vk.Device
	physicalDevice vk.PhysicalDevice

	pipeline vk.Pipeline
	layout   vk.PipelineLayout
	vsModule vk.ShaderModule
	fsModule vk.ShaderModule

	extent vk.Extent2D

	position   attachment
	normal     attachment
	albedoSpec attachment
	material   attachment
	depth      attachment
	// depthSampledView exposes only the depth aspect of the depth-stencil
	// image for the outline pass's bindless sampled read (spec.md §4.9);
	// a combined-image-sampler view cannot expose both aspects.
	depthSampledView vk.ImageView

	selected    ecs.Entity
	hasSelected bool
	selectionID scene.ListenerID
}

// PushConstants is the per-draw model matrix (spec.md §4.8: "Push
// {modelMatrix} as a push constant") plus the main camera's combined
// view-projection matrix. ViewProj travels alongside the model matrix
// rather than through a bindless-indexed camera UBO, since
// scene.CameraSource already hands the core CPU-resident matrices
// (spec.md §6) with nowhere else for them to live for this pass.
type PushConstants struct {
	ViewProj    mgl32.Mat4
	ModelMatrix mgl32.Mat4
}

// NewPass compiles the G-buffer shaders, builds the graphics pipeline
// against globalLayout (set 0, the bindless descriptor set) and
// materialLayout (set 1, per-material textures/params), and allocates the
// attachment images at extent. It subscribes to selChannel so SetSelection/
// ClearSelection are driven by the scene's selection state the way the
// original engine's GBufferPass.cpp reacts to GameEvents::onEntitySelected,
// without a hard-wired editor dependency (spec.md §3; SPEC_FULL.md §4.8).
func NewPass(device vk.Device, physicalDevice vk.PhysicalDevice, globalLayout, materialLayout vk.DescriptorSetLayout, extent vk.Extent2D, selChannel *scene.SelectionChannel) (*Pass, error) {
	compiler := shaderc.NewCompiler()
	defer compiler.Release()
	options := shaderc.NewCompileOptions()
	defer options.Release()
	options.SetTargetEnv(shaderc.TargetEnvVulkan, shaderc.EnvVersionVulkan_1_3)
	options.SetOptimizationLevel(shaderc.OptimizationLevelPerformance)

	vsResult, err := compiler.CompileIntoSPV(vertexShaderSource, "gbuffer.vert", shaderc.VertexShader, options)
	if err != nil {
		return nil, fmt.Errorf("gbuffer: compile vertex shader: %w", err)
	}
	defer vsResult.Release()

	fsResult, err := compiler.CompileIntoSPV(fragmentShaderSource, "gbuffer.frag", shaderc.FragmentShader, options)
	if err != nil {
		return nil, fmt.Errorf("gbuffer: compile fragment shader: %w", err)
	}
	defer fsResult.Release()

	vsModule, err := device.CreateShaderModule(&vk.ShaderModuleCreateInfo{Code: vsResult.GetBytes()})
	if err != nil {
		return nil, fmt.Errorf("gbuffer: create vertex shader module: %w", err)
	}

	fsModule, err := device.CreateShaderModule(&vk.ShaderModuleCreateInfo{Code: fsResult.GetBytes()})
	if err != nil {
		device.DestroyShaderModule(vsModule)
		return nil, fmt.Errorf("gbuffer: create fragment shader module: %w", err)
	}

	layout, err := device.CreatePipelineLayout(&vk.PipelineLayoutCreateInfo{
		SetLayouts: []vk.DescriptorSetLayout{globalLayout, materialLayout},
		PushConstantRanges: []vk.PushConstantRange{
			{StageFlags: vk.SHADER_STAGE_VERTEX_BIT, Offset: 0, Size: uint32(unsafe.Sizeof(PushConstants{}))},
		},
	})
	if err != nil {
		device.DestroyShaderModule(fsModule)
		device.DestroyShaderModule(vsModule)
		return nil, fmt.Errorf("gbuffer: create pipeline layout: %w", err)
	}

	pipeline, err := device.CreateGraphicsPipeline(&vk.GraphicsPipelineCreateInfo{
		Stages: []vk.PipelineShaderStageCreateInfo{
			{Stage: vk.SHADER_STAGE_VERTEX_BIT, Module: vsModule, Name: "main"},
			{Stage: vk.SHADER_STAGE_FRAGMENT_BIT, Module: fsModule, Name: "main"},
		},
		VertexInputState:   &vk.PipelineVertexInputStateCreateInfo{},
		InputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{Topology: vk.PRIMITIVE_TOPOLOGY_TRIANGLE_LIST},
		ViewportState:      &vk.PipelineViewportStateCreateInfo{},
		RasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			PolygonMode: vk.POLYGON_MODE_FILL,
			CullMode:    vk.CULL_MODE_BACK_BIT,
			FrontFace:   vk.FRONT_FACE_COUNTER_CLOCKWISE,
			LineWidth:   1.0,
		},
		MultisampleState: &vk.PipelineMultisampleStateCreateInfo{RasterizationSamples: vk.SAMPLE_COUNT_1_BIT},
		ColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			Attachments: []vk.PipelineColorBlendAttachmentState{
				{ColorWriteMask: vk.COLOR_COMPONENT_ALL},
				{ColorWriteMask: vk.COLOR_COMPONENT_ALL},
				{ColorWriteMask: vk.COLOR_COMPONENT_ALL},
				{ColorWriteMask: vk.COLOR_COMPONENT_ALL},
			},
		},
		DepthStencilState: &vk.PipelineDepthStencilStateCreateInfo{
			DepthTestEnable:   true,
			DepthWriteEnable:  true,
			DepthCompareOp:    vk.COMPARE_OP_LESS,
			StencilTestEnable: true,
			Front: vk.StencilOpState{
				FailOp:      vk.STENCIL_OP_KEEP,
				PassOp:      vk.STENCIL_OP_REPLACE,
				DepthFailOp: vk.STENCIL_OP_KEEP,
				CompareOp:   vk.COMPARE_OP_ALWAYS,
			},
			Back: vk.StencilOpState{
				FailOp:      vk.STENCIL_OP_KEEP,
				PassOp:      vk.STENCIL_OP_REPLACE,
				DepthFailOp: vk.STENCIL_OP_KEEP,
				CompareOp:   vk.COMPARE_OP_ALWAYS,
			},
		},
		DynamicState: &vk.PipelineDynamicStateCreateInfo{
			DynamicStates: []vk.DynamicState{
				vk.DYNAMIC_STATE_VIEWPORT,
				vk.DYNAMIC_STATE_SCISSOR,
				vk.DYNAMIC_STATE_STENCIL_REFERENCE,
				vk.DYNAMIC_STATE_STENCIL_WRITE_MASK,
				vk.DYNAMIC_STATE_VERTEX_INPUT_EXT,
			},
		},
		RenderingInfo: &vk.PipelineRenderingCreateInfo{
			ColorAttachmentFormats:  []vk.Format{FormatPosition, FormatNormal, FormatAlbedoSpec, FormatMaterial},
			DepthAttachmentFormat:   FormatDepthStencil,
			StencilAttachmentFormat: FormatDepthStencil,
		},
		Layout: layout,
	})
	if err != nil {
		device.DestroyPipelineLayout(layout)
		device.DestroyShaderModule(fsModule)
		device.DestroyShaderModule(vsModule)
		return nil, fmt.Errorf("gbuffer: create graphics pipeline: %w", err)
	}

	p := &Pass{
		device:         device,
		physicalDevice: physicalDevice,
		pipeline:       pipeline,
		layout:         layout,
		vsModule:       vsModule,
		fsModule:       fsModule,
	}

	if err := p.createAttachments(extent); err != nil {
		p.destroyPipelineObjects()
		return nil, err
	}

	if selChannel != nil {
		p.selectionID = selChannel.Subscribe(func(e ecs.Entity, ok bool) {
			p.selected, p.hasSelected = e, ok
		})
	}

	return p, nil
}

func (p *Pass) createAttachments(extent vk.Extent2D) error {
	p.extent = extent

	specs := []struct {
		dst    *attachment
		format vk.Format
		usage  vk.ImageUsageFlags
	}{
		{&p.position, FormatPosition, vk.IMAGE_USAGE_COLOR_ATTACHMENT_BIT | vk.IMAGE_USAGE_SAMPLED_BIT},
		{&p.normal, FormatNormal, vk.IMAGE_USAGE_COLOR_ATTACHMENT_BIT | vk.IMAGE_USAGE_SAMPLED_BIT},
		{&p.albedoSpec, FormatAlbedoSpec, vk.IMAGE_USAGE_COLOR_ATTACHMENT_BIT | vk.IMAGE_USAGE_SAMPLED_BIT},
		{&p.material, FormatMaterial, vk.IMAGE_USAGE_COLOR_ATTACHMENT_BIT | vk.IMAGE_USAGE_SAMPLED_BIT},
	}

	for _, s := range specs {
		img, mem, err := p.device.CreateImageWithMemory(extent.Width, extent.Height, s.format, vk.IMAGE_TILING_OPTIMAL, s.usage, vk.MEMORY_PROPERTY_DEVICE_LOCAL_BIT, p.physicalDevice)
		if err != nil {
			return fmt.Errorf("gbuffer: create colour attachment: %w", err)
		}
		view, err := p.device.CreateImageViewForTexture(img, s.format)
		if err != nil {
			return fmt.Errorf("gbuffer: create colour attachment view: %w", err)
		}
		*s.dst = attachment{image: img, memory: mem, view: view, format: s.format}
	}

	depthImg, depthMem, err := p.device.CreateImageWithMemory(extent.Width, extent.Height, FormatDepthStencil, vk.IMAGE_TILING_OPTIMAL,
		vk.IMAGE_USAGE_DEPTH_STENCIL_ATTACHMENT_BIT|vk.IMAGE_USAGE_SAMPLED_BIT, vk.MEMORY_PROPERTY_DEVICE_LOCAL_BIT, p.physicalDevice)
	if err != nil {
		return fmt.Errorf("gbuffer: create depth-stencil attachment: %w", err)
	}
	depthView, err := p.device.CreateImageView(&vk.ImageViewCreateInfo{
		Image:    depthImg,
		ViewType: vk.IMAGE_VIEW_TYPE_2D,
		Format:   FormatDepthStencil,
		Components: vk.ComponentMapping{
			R: vk.COMPONENT_SWIZZLE_IDENTITY, G: vk.COMPONENT_SWIZZLE_IDENTITY,
			B: vk.COMPONENT_SWIZZLE_IDENTITY, A: vk.COMPONENT_SWIZZLE_IDENTITY,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.IMAGE_ASPECT_DEPTH_BIT | vk.IMAGE_ASPECT_STENCIL_BIT, LevelCount: 1, LayerCount: 1,
		},
	})
	if err != nil {
		return fmt.Errorf("gbuffer: create depth-stencil view: %w", err)
	}
	p.depth = attachment{image: depthImg, memory: depthMem, view: depthView, format: FormatDepthStencil}

	sampledView, err := p.device.CreateImageView(&vk.ImageViewCreateInfo{
		Image:    depthImg,
		ViewType: vk.IMAGE_VIEW_TYPE_2D,
		Format:   FormatDepthStencil,
		Components: vk.ComponentMapping{
			R: vk.COMPONENT_SWIZZLE_IDENTITY, G: vk.COMPONENT_SWIZZLE_IDENTITY,
			B: vk.COMPONENT_SWIZZLE_IDENTITY, A: vk.COMPONENT_SWIZZLE_IDENTITY,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.IMAGE_ASPECT_DEPTH_BIT, LevelCount: 1, LayerCount: 1,
		},
	})
	if err != nil {
		return fmt.Errorf("gbuffer: create depth-only sampled view: %w", err)
	}
	p.depthSampledView = sampledView

	return nil
}

func (p *Pass) destroyAttachments() {
	for _, a := range []attachment{p.position, p.normal, p.albedoSpec, p.material, p.depth} {
		if a.view != (vk.ImageView{}) {
			p.device.DestroyImageView(a.view)
		}
		if a.image != (vk.Image{}) {
			p.device.DestroyImage(a.image)
		}
		if a.memory != (vk.DeviceMemory{}) {
			p.device.FreeMemory(a.memory)
		}
	}
	if p.depthSampledView != (vk.ImageView{}) {
		p.device.DestroyImageView(p.depthSampledView)
	}
}

// Resize recreates every G-buffer attachment at the new extent (spec.md §8
// edge case: "On extent change ... all G-buffer textures are recreated at
// the new size ... the next frame renders without validation errors").
func (p *Pass) Resize(extent vk.Extent2D) error {
	p.destroyAttachments()
	return p.createAttachments(extent)
}

// DepthStencilView exposes the combined depth-stencil view for binding as
// this pass's rendering attachment.
func (p *Pass) DepthStencilView() vk.ImageView { return p.depth.view }

// DepthSampledView exposes the depth-only view of the depth-stencil image,
// for the outline pass's bindless sampled read (spec.md §4.9).
func (p *Pass) DepthSampledView() vk.ImageView { return p.depthSampledView }

// DepthImage exposes the underlying depth-stencil image, for the renderer's
// inter-pass layout-transition barrier (spec.md §5 guarantee 4).
func (p *Pass) DepthImage() vk.Image { return p.depth.image }

// SetSelection marks entity as selected; the next Record call writes
// stencil=1 only for its draws.
func (p *Pass) SetSelection(e ecs.Entity) {
	p.selected, p.hasSelected = e, true
}

// ClearSelection removes the current selection; every draw writes stencil=0.
func (p *Pass) ClearSelection() {
	p.selected, p.hasSelected = 0, false
}

// Selection reports the entity currently marked for outline, if any.
func (p *Pass) Selection() (ecs.Entity, bool) { return p.selected, p.hasSelected }

// Record rasterises every G-buffer candidate entity in sc that survives
// frustum culling against the main camera (spec.md §4.8). globalSet is the
// bindless descriptor set bound at set 0 (spec.md §4.10).
func (p *Pass) Record(cmd vk.CommandBuffer, sc *scene.Scene, globalSet vk.DescriptorSet) error {
	camera, ok := sc.MainCamera()
	if !ok {
		return fmt.Errorf("gbuffer: scene has no main camera")
	}
	adapter := sc.Adapter()
	frustum, ok := adapter.Frustum(camera)
	if !ok {
		return fmt.Errorf("gbuffer: main camera entity %d has no Camera/Transform", camera)
	}
	view, ok := adapter.ViewMatrix(camera)
	if !ok {
		return fmt.Errorf("gbuffer: main camera entity %d has no view matrix", camera)
	}
	proj, ok := adapter.ProjectionMatrix(camera)
	if !ok {
		return fmt.Errorf("gbuffer: main camera entity %d has no projection matrix", camera)
	}
	viewProj := proj.Mul4(view)

	cmd.BeginRendering(&vk.RenderingInfo{
		RenderArea: vk.Rect2D{Extent: p.extent},
		LayerCount: 1,
		ColorAttachments: []vk.RenderingAttachmentInfo{
			colorClear(p.position.view),
			colorClear(p.normal.view),
			colorClear(p.albedoSpec.view),
			colorClear(p.material.view),
		},
		DepthAttachment: &vk.RenderingAttachmentInfo{
			ImageView:   p.depth.view,
			ImageLayout: vk.IMAGE_LAYOUT_DEPTH_STENCIL_ATTACHMENT_OPTIMAL,
			LoadOp:      vk.ATTACHMENT_LOAD_OP_CLEAR,
			StoreOp:     vk.ATTACHMENT_STORE_OP_STORE,
			ClearValue:  vk.ClearValue{DepthStencil: vk.ClearDepthStencilValue{Depth: 1.0, Stencil: 0}},
		},
		StencilAttachment: &vk.RenderingAttachmentInfo{
			ImageView:   p.depth.view,
			ImageLayout: vk.IMAGE_LAYOUT_DEPTH_STENCIL_ATTACHMENT_OPTIMAL,
			LoadOp:      vk.ATTACHMENT_LOAD_OP_CLEAR,
			StoreOp:     vk.ATTACHMENT_STORE_OP_STORE,
			ClearValue:  vk.ClearValue{DepthStencil: vk.ClearDepthStencilValue{Depth: 1.0, Stencil: 0}},
		},
	})
	defer cmd.EndRendering()

	cmd.BindPipeline(vk.PIPELINE_BIND_POINT_GRAPHICS, p.pipeline)
	cmd.SetViewport(0, []vk.Viewport{{Width: float32(p.extent.Width), Height: float32(p.extent.Height), MaxDepth: 1.0}})
	cmd.SetScissor(0, []vk.Rect2D{{Extent: p.extent}})
	cmd.BindDescriptorSets(vk.PIPELINE_BIND_POINT_GRAPHICS, p.layout, 0, []vk.DescriptorSet{globalSet}, nil)

	for _, e := range sc.World.QueryGBufferCandidates() {
		p.drawEntity(cmd, sc, e, frustum, viewProj)
	}

	return nil
}

// drawEntity culls e against frustum and, if visible, records its draw with
// the stencil ref/mask selected by the pass's current selection (spec.md
// §4.8).
func (p *Pass) drawEntity(cmd vk.CommandBuffer, sc *scene.Scene, e ecs.Entity, frustum geom.Frustum, viewProj mgl32.Mat4) {
	adapter := sc.Adapter()

	aabb, ok := adapter.BoundingBox(e)
	if !ok || !frustum.TestBoundingBox(aabb) {
		return
	}

	model, ok := adapter.Transform(e)
	if !ok {
		return
	}
	layout, ok := adapter.LayoutDescriptor(e)
	if !ok {
		return
	}
	material, ok := adapter.Material(e)
	if !ok {
		return
	}
	mesh := sc.World.GetMesh(e)
	if mesh == nil || mesh.Loading {
		return
	}

	if p.hasSelected && p.selected == e {
		cmd.SetStencilReference(vk.STENCIL_FACE_FRONT_AND_BACK, stencilRefSelected)
		cmd.SetStencilWriteMask(vk.STENCIL_FACE_FRONT_AND_BACK, stencilMaskSelected)
	} else {
		cmd.SetStencilReference(vk.STENCIL_FACE_FRONT_AND_BACK, stencilRefUnselected)
		cmd.SetStencilWriteMask(vk.STENCIL_FACE_FRONT_AND_BACK, stencilMaskNone)
	}

	bindings := []vk.VertexInputBindingDescription2{
		{Binding: 0, Stride: layout.Stride, InputRate: vk.VERTEX_INPUT_RATE_VERTEX},
	}
	attributes := make([]vk.VertexInputAttributeDescription2, len(layout.Attributes))
	for i, a := range layout.Attributes {
		attributes[i] = vk.VertexInputAttributeDescription2{
			Location: a.Location, Binding: 0, Format: a.Format, Offset: a.Offset,
		}
	}
	cmd.SetVertexInput(bindings, attributes)

	cmd.BindDescriptorSets(vk.PIPELINE_BIND_POINT_GRAPHICS, p.layout, 1, []vk.DescriptorSet{material.DescriptorSet}, nil)

	pc := PushConstants{ViewProj: viewProj, ModelMatrix: model}
	cmd.CmdPushConstants(p.layout, vk.SHADER_STAGE_VERTEX_BIT, 0, uint32(unsafe.Sizeof(pc)), unsafe.Pointer(&pc))

	cmd.BindVertexBuffers(0, []vk.Buffer{mesh.VertexBuffer}, []uint64{0})
	cmd.BindIndexBuffer(mesh.IndexBuffer, 0, vk.INDEX_TYPE_UINT32)
	cmd.DrawIndexed(mesh.IndexCount, 1, 0, 0, 0)
}

func colorClear(view vk.ImageView) vk.RenderingAttachmentInfo {
	return vk.RenderingAttachmentInfo{
		ImageView:   view,
		ImageLayout: vk.IMAGE_LAYOUT_COLOR_ATTACHMENT_OPTIMAL,
		LoadOp:      vk.ATTACHMENT_LOAD_OP_CLEAR,
		StoreOp:     vk.ATTACHMENT_STORE_OP_STORE,
		ClearValue:  vk.ClearValue{Color: vk.ClearColorValue{Float32: [4]float32{0, 0, 0, 0}}},
	}
}

// Destroy releases the pipeline, shader modules, and attachment resources.
func (p *Pass) Destroy(selChannel *scene.SelectionChannel) {
	if selChannel != nil && p.selectionID != 0 {
		selChannel.Unsubscribe(p.selectionID)
	}
	p.destroyAttachments()
	p.destroyPipelineObjects()
}

func (p *Pass) destroyPipelineObjects() {
	p.device.DestroyPipeline(p.pipeline)
	p.device.DestroyPipelineLayout(p.layout)
	p.device.DestroyShaderModule(p.fsModule)
	p.device.DestroyShaderModule(p.vsModule)
}
