package cascade

import (
	"unsafe"

	"github.com/radiant-engine/radiant/shaderc"
	"github.com/radiant-engine/radiant/vk"
)

// mergerShaderSource merges cascade level i+1's radiance into level i,
// bilinearly sampling the coarser cascade's radiance texture at the finer
// texel's position and composing with an "over" operator, scaled by the
// angular-integration factor Q(i+1)/Q(i), coarse over fine (spec.md §4.6). Grounded on
// original_source/Engine/src/Renderer/GI/RadianceCascades2D/
// RadianceCascades2D.cpp's merge compute shader.
const mergerShaderSource = `#version 460
#extension GL_EXT_nonuniform_qualifier : require

layout(local_size_x = 8, local_size_y = 8, local_size_z = 1) in;

layout(set = 0, binding = 2, rgba32f) uniform image2D storageImages[];

layout(push_constant) uniform PushConstants {
    uint prevCascadeIndex;
    uint currentCascadeIndex;
    float angularIntegrationFactor;
    float _pad0;
} pc;

vec4 sampleBilinear(uint imageIndex, vec2 coord, ivec2 dims) {
    ivec2 c0 = ivec2(floor(coord));
    vec2 f = fract(coord);
    ivec2 c00 = clamp(c0, ivec2(0), dims - 1);
    ivec2 c10 = clamp(c0 + ivec2(1, 0), ivec2(0), dims - 1);
    ivec2 c01 = clamp(c0 + ivec2(0, 1), ivec2(0), dims - 1);
    ivec2 c11 = clamp(c0 + ivec2(1, 1), ivec2(0), dims - 1);

    vec4 v00 = imageLoad(storageImages[nonuniformEXT(imageIndex)], c00);
    vec4 v10 = imageLoad(storageImages[nonuniformEXT(imageIndex)], c10);
    vec4 v01 = imageLoad(storageImages[nonuniformEXT(imageIndex)], c01);
    vec4 v11 = imageLoad(storageImages[nonuniformEXT(imageIndex)], c11);

    return mix(mix(v00, v10, f.x), mix(v01, v11, f.x), f.y);
}

void main() {
    ivec2 texel = ivec2(gl_GlobalInvocationID.xy);
    ivec2 dims = imageSize(storageImages[pc.currentCascadeIndex]);
    if (texel.x >= dims.x || texel.y >= dims.y) {
        return;
    }

    ivec2 prevDims = imageSize(storageImages[pc.prevCascadeIndex]);
    vec2 prevCoord = (vec2(texel) + 0.5) * (vec2(prevDims) / vec2(dims)) - 0.5;
    vec4 coarser = sampleBilinear(pc.prevCascadeIndex, prevCoord, prevDims);

    vec4 finer = imageLoad(storageImages[pc.currentCascadeIndex], texel);

    // "over" composite: finer contributes its own radiance plus whatever
    // the coarser cascade sees beyond it, weighted by the angular
    // resolution ratio so total energy is conserved across the merge.
    vec4 merged = finer + vec4(coarser.rgb * pc.angularIntegrationFactor, 0.0) * (1.0 - finer.a);

    imageStore(storageImages[pc.currentCascadeIndex], texel, merged);
}
`

// MergerPushConstants mirrors the merge shader's push_constant block.
type MergerPushConstants struct {
	PrevCascadeIndex         uint32
	CurrentCascadeIndex      uint32
	AngularIntegrationFactor float32
	_pad0                    float32
}

// Merger composes numCascades-1 cascade levels, coarsest to finest, into
// the finest level's radiance texture (spec.md §4.6).
type Merger struct {
	device   vk.Device
	layout   vk.PipelineLayout
	pipeline vk.Pipeline
	module   vk.ShaderModule
}

// NewMerger compiles the merge compute shader and builds its pipeline.
func NewMerger(device vk.Device, globalLayout vk.DescriptorSetLayout) (*Merger, error) {
	compiler := shaderc.NewCompiler()
	defer compiler.Release()
	options := shaderc.NewCompileOptions()
	defer options.Release()
	options.SetTargetEnv(shaderc.TargetEnvVulkan, shaderc.EnvVersionVulkan_1_3)
	options.SetOptimizationLevel(shaderc.OptimizationLevelPerformance)

	result, err := compiler.CompileIntoSPV(mergerShaderSource, "cascade_merger.comp", shaderc.ComputeShader, options)
	if err != nil {
		return nil, err
	}
	defer result.Release()

	module, err := device.CreateShaderModule(&vk.ShaderModuleCreateInfo{Code: result.GetBytes()})
	if err != nil {
		return nil, err
	}

	layout, err := device.CreatePipelineLayout(&vk.PipelineLayoutCreateInfo{
		SetLayouts: []vk.DescriptorSetLayout{globalLayout},
		PushConstantRanges: []vk.PushConstantRange{
			{StageFlags: vk.SHADER_STAGE_COMPUTE_BIT, Offset: 0, Size: uint32(unsafe.Sizeof(MergerPushConstants{}))},
		},
	})
	if err != nil {
		device.DestroyShaderModule(module)
		return nil, err
	}

	pipeline, err := device.CreateComputePipeline(&vk.ComputePipelineCreateInfo{
		Stage: vk.PipelineShaderStageCreateInfo{
			Stage:  vk.SHADER_STAGE_COMPUTE_BIT,
			Module: module,
			Name:   "main",
		},
		Layout: layout,
	})
	if err != nil {
		device.DestroyPipelineLayout(layout)
		device.DestroyShaderModule(module)
		return nil, err
	}

	return &Merger{device: device, layout: layout, pipeline: pipeline, module: module}, nil
}

// MergeLevels2D records numCascades-1 merge passes across levels,
// coarsest to finest, with a barrier between each so a pass never reads a
// texel the previous pass hasn't finished writing (spec.md §4.6: "a
// barrier between merge passes"). A single level (len(levels)==1) is a
// no-op (spec.md §8 boundary behavior).
func (m *Merger) MergeLevels2D(cmd vk.CommandBuffer, globalSet vk.DescriptorSet, levels []CascadeLevel2D) {
	if len(levels) < 2 {
		return
	}

	for i := len(levels) - 1; i > 0; i-- {
		prev := levels[i]
		current := levels[i-1]

		factor := float32(prev.AngularResolution) / float32(current.AngularResolution)

		cmd.BindPipeline(vk.PIPELINE_BIND_POINT_COMPUTE, m.pipeline)
		cmd.BindDescriptorSets(vk.PIPELINE_BIND_POINT_COMPUTE, m.layout, 0, []vk.DescriptorSet{globalSet}, nil)

		push := MergerPushConstants{
			PrevCascadeIndex:         uint32(prev.RadianceTextureIndex),
			CurrentCascadeIndex:      uint32(current.RadianceTextureIndex),
			AngularIntegrationFactor: factor,
		}
		cmd.CmdPushConstants(m.layout, vk.SHADER_STAGE_COMPUTE_BIT, 0, uint32(unsafe.Sizeof(push)), unsafe.Pointer(&push))

		groupsX := ceilDiv(current.GridDims[0]*int(current.AngularResolution), tracerWorkgroupSizeX)
		groupsY := ceilDiv(current.GridDims[1], tracerWorkgroupSizeY)
		cmd.CmdDispatch(uint32(groupsX), uint32(groupsY), 1)

		if i > 1 {
			cmd.MemoryBarrier(
				vk.PIPELINE_STAGE_COMPUTE_SHADER_BIT, vk.PIPELINE_STAGE_COMPUTE_SHADER_BIT,
				vk.ACCESS_SHADER_WRITE_BIT, vk.ACCESS_SHADER_READ_BIT,
			)
		}
	}
}

// Destroy releases the merger's pipeline, layout, and shader module.
func (m *Merger) Destroy() {
	m.device.DestroyPipeline(m.pipeline)
	m.device.DestroyPipelineLayout(m.layout)
	m.device.DestroyShaderModule(m.module)
}
