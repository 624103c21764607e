package bindless

import "github.com/radiant-engine/radiant/vk"

// Set numbers fixed by spec.md §4.10: global bindless state lives at set 0,
// per-material state at set 1, per-pass ephemeral state at set 4.
const (
	GlobalSetIndex   = 0
	MaterialSetIndex = 1
	EphemeralSetIndex = 4
)

// Global is the process-wide bindless descriptor set (spec.md §4.10): a
// camera UBO array, bindless sampled textures, bindless storage images,
// acceleration structures, and a UBO array whose slot i is CascadeLevel_i.
// One Allocator backs each resource kind so a texture's retirement never
// collides with a storage-image slot.
type Global struct {
	device vk.Device
	set    vk.DescriptorSet
	layout vk.DescriptorSetLayout
	pool   vk.DescriptorPool

	Cameras                *Allocator
	SampledTextures        *Allocator
	StorageImages          *Allocator
	AccelerationStructures *Allocator
	CascadeLevelUBOs       *Allocator
	Lights                 *Allocator
}

// Binding indices within the global set layout.
const (
	BindingCameraUBO       uint32 = 0
	BindingSampledTexture  uint32 = 1
	BindingStorageImage    uint32 = 2
	BindingAccelStructure  uint32 = 3
	BindingCascadeLevelUBO uint32 = 4
	BindingLightBuffer     uint32 = 5
)

// NewGlobal creates the global bindless set, its layout, and a backing
// descriptor pool sized for capacity entries of each bindless resource
// kind.
func NewGlobal(device vk.Device, capacity uint32) (*Global, error) {
	layout, err := device.CreateDescriptorSetLayout(&vk.DescriptorSetLayoutCreateInfo{
		Bindings: []vk.DescriptorSetLayoutBinding{
			{Binding: BindingCameraUBO, DescriptorType: vk.DESCRIPTOR_TYPE_UNIFORM_BUFFER, DescriptorCount: capacity, StageFlags: vk.SHADER_STAGE_ALL},
			{Binding: BindingSampledTexture, DescriptorType: vk.DESCRIPTOR_TYPE_COMBINED_IMAGE_SAMPLER, DescriptorCount: capacity, StageFlags: vk.SHADER_STAGE_ALL},
			{Binding: BindingStorageImage, DescriptorType: vk.DESCRIPTOR_TYPE_STORAGE_IMAGE, DescriptorCount: capacity, StageFlags: vk.SHADER_STAGE_ALL},
			{Binding: BindingAccelStructure, DescriptorType: vk.DESCRIPTOR_TYPE_ACCELERATION_STRUCTURE_KHR, DescriptorCount: capacity, StageFlags: vk.SHADER_STAGE_ALL},
			{Binding: BindingCascadeLevelUBO, DescriptorType: vk.DESCRIPTOR_TYPE_UNIFORM_BUFFER, DescriptorCount: capacity, StageFlags: vk.SHADER_STAGE_ALL},
			{Binding: BindingLightBuffer, DescriptorType: vk.DESCRIPTOR_TYPE_STORAGE_BUFFER, DescriptorCount: capacity, StageFlags: vk.SHADER_STAGE_ALL},
		},
	})
	if err != nil {
		return nil, err
	}

	pool, err := device.CreateDescriptorPool(&vk.DescriptorPoolCreateInfo{
		MaxSets: 1,
		PoolSizes: []vk.DescriptorPoolSize{
			{Type: vk.DESCRIPTOR_TYPE_UNIFORM_BUFFER, DescriptorCount: capacity * 2},
			{Type: vk.DESCRIPTOR_TYPE_COMBINED_IMAGE_SAMPLER, DescriptorCount: capacity},
			{Type: vk.DESCRIPTOR_TYPE_STORAGE_IMAGE, DescriptorCount: capacity},
			{Type: vk.DESCRIPTOR_TYPE_ACCELERATION_STRUCTURE_KHR, DescriptorCount: capacity},
			{Type: vk.DESCRIPTOR_TYPE_STORAGE_BUFFER, DescriptorCount: capacity},
		},
	})
	if err != nil {
		device.DestroyDescriptorSetLayout(layout)
		return nil, err
	}

	sets, err := device.AllocateDescriptorSets(&vk.DescriptorSetAllocateInfo{
		DescriptorPool: pool,
		SetLayouts:     []vk.DescriptorSetLayout{layout},
	})
	if err != nil {
		device.DestroyDescriptorPool(pool)
		device.DestroyDescriptorSetLayout(layout)
		return nil, err
	}

	return &Global{
		device:                 device,
		set:                    sets[0],
		layout:                 layout,
		pool:                   pool,
		Cameras:                NewAllocator(),
		SampledTextures:        NewAllocator(),
		StorageImages:          NewAllocator(),
		AccelerationStructures: NewAllocator(),
		CascadeLevelUBOs:       NewAllocator(),
		Lights:                 NewAllocator(),
	}, nil
}

// Set returns the underlying Vulkan descriptor set for binding into a
// pipeline at set 0.
func (g *Global) Set() vk.DescriptorSet { return g.set }

// Layout returns the set-0 descriptor set layout, for pipeline-layout
// construction.
func (g *Global) Layout() vk.DescriptorSetLayout { return g.layout }

// BindSampledTexture writes a texture's image view/sampler into its
// bindless slot at array element idx.
func (g *Global) BindSampledTexture(idx Index, view vk.ImageView, sampler vk.Sampler) {
	g.device.UpdateDescriptorSets([]vk.WriteDescriptorSet{
		{
			DstSet:          g.set,
			DstBinding:      BindingSampledTexture,
			DstArrayElement: uint32(idx),
			DescriptorType:  vk.DESCRIPTOR_TYPE_COMBINED_IMAGE_SAMPLER,
			ImageInfo: []vk.DescriptorImageInfo{
				{Sampler: sampler, ImageView: view, ImageLayout: vk.IMAGE_LAYOUT_SHADER_READ_ONLY_OPTIMAL},
			},
		},
	})
}

// BindStorageImage writes a storage image into its bindless slot in the
// global set (binding 2), the array the cascade tracer/merger/integrator
// shaders index for their radiance and irradiance textures.
func (g *Global) BindStorageImage(idx Index, view vk.ImageView) {
	g.device.UpdateDescriptorSets([]vk.WriteDescriptorSet{
		{
			DstSet:          g.set,
			DstBinding:      BindingStorageImage,
			DstArrayElement: uint32(idx),
			DescriptorType:  vk.DESCRIPTOR_TYPE_STORAGE_IMAGE,
			ImageInfo: []vk.DescriptorImageInfo{
				{ImageView: view, ImageLayout: vk.IMAGE_LAYOUT_GENERAL},
			},
		},
	})
}

// BindAccelerationStructure writes a built TLAS into its bindless slot, so
// the cascade tracer can reference it by a stable uint32 index passed
// through push constants (spec.md §4.5).
func (g *Global) BindAccelerationStructure(idx Index, structure vk.AccelerationStructure) {
	g.device.UpdateDescriptorSets([]vk.WriteDescriptorSet{
		{
			DstSet:                 g.set,
			DstBinding:             BindingAccelStructure,
			DstArrayElement:        uint32(idx),
			DescriptorType:         vk.DESCRIPTOR_TYPE_ACCELERATION_STRUCTURE_KHR,
			AccelerationStructures: []vk.AccelerationStructure{structure},
		},
	})
}

// BindCascadeLevelUBO writes cascade level i's UBO into bindless slot i
// (spec.md §4.10: "a UBO array whose slot i is CascadeLevel_i"). Written
// once at build time and whenever the cascade configuration changes
// (invariant (b)).
func (g *Global) BindCascadeLevelUBO(idx Index, buffer vk.Buffer, size uint64) {
	g.device.UpdateDescriptorSets([]vk.WriteDescriptorSet{
		{
			DstSet:          g.set,
			DstBinding:      BindingCascadeLevelUBO,
			DstArrayElement: uint32(idx),
			DescriptorType:  vk.DESCRIPTOR_TYPE_UNIFORM_BUFFER,
			BufferInfo: []vk.DescriptorBufferInfo{
				{Buffer: buffer, Offset: 0, Range: size},
			},
		},
	})
}

// BindLightBuffer writes the scene's light storage buffer into its
// bindless slot, read by the cascade tracer's direct-lighting term
// (spec.md §4.5 step 5: "evaluates direct lighting against the scene
// light list").
func (g *Global) BindLightBuffer(idx Index, buffer vk.Buffer, size uint64) {
	g.device.UpdateDescriptorSets([]vk.WriteDescriptorSet{
		{
			DstSet:          g.set,
			DstBinding:      BindingLightBuffer,
			DstArrayElement: uint32(idx),
			DescriptorType:  vk.DESCRIPTOR_TYPE_STORAGE_BUFFER,
			BufferInfo: []vk.DescriptorBufferInfo{
				{Buffer: buffer, Offset: 0, Range: size},
			},
		},
	})
}

// Destroy releases the global set's pool and layout.
func (g *Global) Destroy() {
	g.device.DestroyDescriptorPool(g.pool)
	g.device.DestroyDescriptorSetLayout(g.layout)
}

// Material is a per-material descriptor set (spec.md §4.10 set 1): the
// material's bound textures and parameter UBO.
type Material struct {
	Set vk.DescriptorSet
}

// Ephemeral is the handle type for a per-pass transient descriptor set
// (spec.md §4.10 set 4). No pass in this module allocates or binds one; the
// cascade passes read and write their radiance textures through the global
// set's storage-image array instead.
type Ephemeral struct {
	Set vk.DescriptorSet
}
