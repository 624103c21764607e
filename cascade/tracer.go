package cascade

import (
	"unsafe"

	"github.com/radiant-engine/radiant/shaderc"
	"github.com/radiant-engine/radiant/vk"
)

// tracerWorkgroupSizeX/Y are the compute dispatch tile sizes spec.md §4.5
// fixes: "8×8 (2D) / 8×8×1 (3D) workgroup tiling".
const (
	tracerWorkgroupSizeX = 8
	tracerWorkgroupSizeY = 8
)

// tracerShaderSource2D traces one cascade level's probe rays against the
// scene TLAS: decode (probeCoord, directionIndex) from the dispatch's
// global invocation id, compute the probe's world position and ray
// direction, trace [tMin,tMax) against the bindless TLAS, shade a hit
// against the scene light list, or sample the skybox on a miss. Grounded
// on original_source/Engine/src/Renderer/GI/RadianceCascades2D/
// RadianceCascades2D.cpp's trace compute shader; the probe/direction decode
// and world-space mapping mirror angular.go's ProbePosition2D/
// DirectionFromIndex2D/TexelForProbeDirection2D exactly so the CPU and GPU
// sides of the bijection never disagree.
const tracerShaderSource2D = `#version 460
#extension GL_EXT_ray_query : require
#extension GL_EXT_nonuniform_qualifier : require

layout(local_size_x = 8, local_size_y = 8, local_size_z = 1) in;

layout(set = 0, binding = 1) uniform sampler2D sampledTextures[];
layout(set = 0, binding = 2, rgba32f) uniform image2D storageImages[];
layout(set = 0, binding = 3) uniform accelerationStructureEXT accelStructures[];

struct GPULight {
    vec3 position;
    vec3 color;
    float intensity;
    float range;
    uint type;
};

layout(set = 0, binding = 5, std430) readonly buffer LightBuffer {
    GPULight lights[];
} lightBuffers[];

layout(push_constant) uniform PushConstants {
    uint cascadeIndex;
    uint cascadeLevels;
    uint tlasIndex;
    uint skyboxTextureIndex;
    uint lightCount;
    uint lightBufferIndex;
    uint angularResolution;
    uint _pad0;
    uvec3 gridDims;
    uint _pad1;
    vec3 origin;
    float tMin;
    vec3 spacing;
    float tMax;
    float fogDensity;
    float _pad2[3];
    vec3 fogColor;
    float _pad3;
} pc;

const float PI = 3.14159265359;

void main() {
    ivec2 texel = ivec2(gl_GlobalInvocationID.xy);
    ivec2 dims = imageSize(storageImages[pc.cascadeIndex]);
    if (texel.x >= dims.x || texel.y >= dims.y) {
        return;
    }

    // Inverse of TexelForProbeDirection2D: texel.x tiles (probeX, d),
    // texel.y is probeY untouched.
    uint q = pc.angularResolution;
    ivec2 probe = ivec2(texel.x / int(q), texel.y);
    uint directionIndex = uint(texel.x) % q;

    // ProbePosition2D's centring rule, lifted into the XZ ground plane:
    // the cascade's 2D coordinate frame maps to world X/Z at a fixed
    // height, matching angular.go's CascadeLevel2D.Origin/Spacing.
    vec2 centre = (vec2(pc.gridDims.xy) - 1.0) * 0.5;
    vec2 planePos = pc.origin.xz + (vec2(probe) - centre) * pc.spacing.xz;
    vec3 probePos = vec3(planePos.x, pc.origin.y, planePos.y);

    // DirectionFromIndex2D, then lifted into the XZ plane the same way.
    float angle = 2.0 * PI * (float(directionIndex) + 0.5) / float(q);
    vec3 rayDir = normalize(vec3(cos(angle), 0.0, sin(angle)));

    vec4 result = vec4(0.0);

    rayQueryEXT rq;
    rayQueryInitializeEXT(rq, accelStructures[nonuniformEXT(pc.tlasIndex)],
        gl_RayFlagsOpaqueEXT, 0xFF, probePos, pc.tMin, rayDir, pc.tMax);
    while (rayQueryProceedEXT(rq)) {}

    if (rayQueryGetIntersectionTypeEXT(rq, true) == gl_RayQueryCommittedIntersectionTriangleEXT) {
        float hitT = rayQueryGetIntersectionTEXT(rq, true);
        vec3 hitPos = probePos + rayDir * hitT;

        // No bindless vertex-attribute array is wired for this pass, so
        // the hit surface has no interpolated normal/albedo available;
        // approximate the surface as a flat diffuse facing back along the
        // ray and let direct lighting carry the variation.
        vec3 albedo = vec3(0.8);
        vec3 normal = -rayDir;

        vec3 direct = vec3(0.0);
        for (uint i = 0u; i < pc.lightCount; i++) {
            GPULight light = lightBuffers[nonuniformEXT(pc.lightBufferIndex)].lights[i];
            vec3 toLight = light.position - hitPos;
            float dist = length(toLight);
            vec3 lightDir = toLight / max(dist, 1e-4);
            float ndotl = max(dot(normal, lightDir), 0.0);
            float atten = 1.0 / max(dist * dist, 1e-4);
            if (light.range > 0.0) {
                atten *= clamp(1.0 - dist / light.range, 0.0, 1.0);
            }
            direct += light.color * light.intensity * atten * ndotl;
        }

        result = vec4(albedo * direct, hitT);
    } else if (pc.skyboxTextureIndex != 0xFFFFFFFFu) {
        result = vec4(texture(sampledTextures[nonuniformEXT(pc.skyboxTextureIndex)], vec2(0.5)).rgb, 0.0);
    }

    imageStore(storageImages[pc.cascadeIndex], texel, result);
}
`

// PushConstants mirrors the tracer's GLSL push_constant block byte-for-byte
// (std430 layout: a vec3/uvec3 aligns to 16 bytes, hence the explicit
// padding fields). The merger has its own block, MergerPushConstants.
type PushConstants struct {
	CascadeIndex       uint32
	CascadeLevels      uint32
	TLASIndex          uint32
	SkyboxTextureIndex uint32
	LightCount         uint32
	LightBufferIndex   uint32
	AngularResolution  uint32
	_pad0              uint32
	GridDims           [3]uint32
	_pad1              uint32
	Origin             [3]float32
	TMin               float32
	Spacing            [3]float32
	TMax               float32
	FogDensity         float32
	_pad2              [3]float32
	FogColor           [3]float32
	_pad3              float32
}

// NoSkybox is the sentinel SkyboxTextureIndex meaning "no skybox bound"
// (spec.md §4.5: "miss: ... UINT32_MAX -> zero").
const NoSkybox = ^uint32(0)

// Tracer dispatches the cascade trace compute pass once per cascade level
// per frame (spec.md §4.5).
type Tracer struct {
	device   vk.Device
	layout   vk.PipelineLayout
	pipeline vk.Pipeline
	module   vk.ShaderModule
}

// NewTracer compiles the trace compute shader and builds its pipeline,
// bound against the bindless global descriptor set layout (spec.md §4.10:
// set 0 carries the storage images, textures, and acceleration structures
// the tracer reads).
func NewTracer(device vk.Device, globalLayout vk.DescriptorSetLayout) (*Tracer, error) {
	compiler := shaderc.NewCompiler()
	defer compiler.Release()
	options := shaderc.NewCompileOptions()
	defer options.Release()
	options.SetTargetEnv(shaderc.TargetEnvVulkan, shaderc.EnvVersionVulkan_1_3)
	options.SetOptimizationLevel(shaderc.OptimizationLevelPerformance)

	result, err := compiler.CompileIntoSPV(tracerShaderSource2D, "cascade_tracer.comp", shaderc.ComputeShader, options)
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
			{StageFlags: vk.SHADER_STAGE_COMPUTE_BIT, Offset: 0, Size: uint32(unsafe.Sizeof(PushConstants{}))},
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

	return &Tracer{device: device, layout: layout, pipeline: pipeline, module: module}, nil
}

// Dispatch records the trace compute pass for one cascade level. gridDims
// is the level's 2D probe grid; angularResolution is its Q, and the
// dispatch covers gridDims[0]·Q by gridDims[1] texels. globalSet is the
// bindless set 0.
func (t *Tracer) Dispatch(
	cmd vk.CommandBuffer,
	globalSet vk.DescriptorSet,
	gridDims [2]int,
	angularResolution uint32,
	push PushConstants,
) {
	cmd.BindPipeline(vk.PIPELINE_BIND_POINT_COMPUTE, t.pipeline)
	cmd.BindDescriptorSets(vk.PIPELINE_BIND_POINT_COMPUTE, t.layout, 0, []vk.DescriptorSet{globalSet}, nil)
	cmd.CmdPushConstants(t.layout, vk.SHADER_STAGE_COMPUTE_BIT, 0, uint32(unsafe.Sizeof(push)), unsafe.Pointer(&push))

	width := gridDims[0] * int(angularResolution)
	height := gridDims[1]
	groupsX := ceilDiv(width, tracerWorkgroupSizeX)
	groupsY := ceilDiv(height, tracerWorkgroupSizeY)
	cmd.CmdDispatch(uint32(groupsX), uint32(groupsY), 1)
}

// DispatchVolume is the 3D dispatch variant: it covers the 3D radiance
// texture layout of TexelForProbeDirection3D, gridDims[0]·Q by
// gridDims[2]·Q texels with the third dispatch axis walking the probe
// grid's Y layers, in the "8×8×1" tiling spec.md §4.5 specifies for the 3D
// tracer. The bound pipeline is the 2D trace shader, which decodes only the
// x/y texel coordinate.
func (t *Tracer) DispatchVolume(
	cmd vk.CommandBuffer,
	globalSet vk.DescriptorSet,
	gridDims [3]int,
	angularResolution uint32,
	push PushConstants,
) {
	cmd.BindPipeline(vk.PIPELINE_BIND_POINT_COMPUTE, t.pipeline)
	cmd.BindDescriptorSets(vk.PIPELINE_BIND_POINT_COMPUTE, t.layout, 0, []vk.DescriptorSet{globalSet}, nil)
	cmd.CmdPushConstants(t.layout, vk.SHADER_STAGE_COMPUTE_BIT, 0, uint32(unsafe.Sizeof(push)), unsafe.Pointer(&push))

	width := gridDims[0] * int(angularResolution)
	height := gridDims[2] * int(angularResolution)
	groupsX := ceilDiv(width, tracerWorkgroupSizeX)
	groupsY := ceilDiv(height, tracerWorkgroupSizeY)
	cmd.CmdDispatch(uint32(groupsX), uint32(groupsY), uint32(gridDims[1]))
}

// Destroy releases the tracer's pipeline, layout, and shader module.
func (t *Tracer) Destroy() {
	t.device.DestroyPipeline(t.pipeline)
	t.device.DestroyPipelineLayout(t.layout)
	t.device.DestroyShaderModule(t.module)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
