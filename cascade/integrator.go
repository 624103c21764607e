package cascade

import (
	"math"
	"unsafe"

	"github.com/radiant-engine/radiant/shaderc"
	"github.com/radiant-engine/radiant/vk"
)

// integratorShaderSource2D integrates cascade level 0's directional radiance
// into a single cosine-weighted irradiance texel, writing level 0's
// irradiance texture (spec.md §4.7: "cascade-0-only... writes the level-0
// irradiance texel"). Grounded on original_source's irradiance integration
// pass in RadianceCascades2D.cpp/RadianceCascades.cpp.
const integratorShaderSource2D = `#version 460
#extension GL_EXT_nonuniform_qualifier : require

layout(local_size_x = 8, local_size_y = 8, local_size_z = 1) in;

layout(set = 0, binding = 2, rgba32f) uniform image2D storageImages[];

layout(push_constant) uniform PushConstants {
    uint radianceTextureIndex;
    uint irradianceTextureIndex;
    uint angularResolution;
    float _pad0;
} pc;

const float PI = 3.14159265359;

void main() {
    ivec2 probe = ivec2(gl_GlobalInvocationID.xy);
    ivec2 radianceDims = imageSize(storageImages[pc.radianceTextureIndex]);
    ivec2 irradianceDims = imageSize(storageImages[pc.irradianceTextureIndex]);
    if (probe.x >= irradianceDims.x || probe.y >= irradianceDims.y) {
        return;
    }

    uint q = pc.angularResolution;
    float dTheta = 2.0 * PI / float(q);
    vec3 sum = vec3(0.0);

    for (uint d = 0u; d < q; d++) {
        float angle = dTheta * (float(d) + 0.5);
        float cosWeight = max(cos(angle), 0.0);
        if (cosWeight <= 0.0) {
            continue;
        }
        ivec2 texel = ivec2(probe.x * int(q) + int(d), probe.y);
        texel.x = clamp(texel.x, 0, radianceDims.x - 1);
        vec4 sample_ = imageLoad(storageImages[pc.radianceTextureIndex], texel);
        sum += sample_.rgb * cosWeight * dTheta;
    }

    imageStore(storageImages[pc.irradianceTextureIndex], probe, vec4(sum, 1.0));
}
`

// IntegratorPushConstants mirrors the integrator shader's push_constant
// block.
type IntegratorPushConstants struct {
	RadianceTextureIndex   uint32
	IrradianceTextureIndex uint32
	AngularResolution      uint32
	_pad0                  float32
}

// Integrator is the cascade-0-only irradiance integration pass (spec.md
// §4.7).
type Integrator struct {
	device   vk.Device
	layout   vk.PipelineLayout
	pipeline vk.Pipeline
	module   vk.ShaderModule
}

// NewIntegrator compiles the irradiance-integration compute shader and
// builds its pipeline.
func NewIntegrator(device vk.Device, globalLayout vk.DescriptorSetLayout) (*Integrator, error) {
	compiler := shaderc.NewCompiler()
	defer compiler.Release()
	options := shaderc.NewCompileOptions()
	defer options.Release()
	options.SetTargetEnv(shaderc.TargetEnvVulkan, shaderc.EnvVersionVulkan_1_3)
	options.SetOptimizationLevel(shaderc.OptimizationLevelPerformance)

	result, err := compiler.CompileIntoSPV(integratorShaderSource2D, "cascade_integrator.comp", shaderc.ComputeShader, options)
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
			{StageFlags: vk.SHADER_STAGE_COMPUTE_BIT, Offset: 0, Size: uint32(unsafe.Sizeof(IntegratorPushConstants{}))},
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

	return &Integrator{device: device, layout: layout, pipeline: pipeline, module: module}, nil
}

// Dispatch records the irradiance integration pass for cascade level 0.
func (in *Integrator) Dispatch(cmd vk.CommandBuffer, globalSet vk.DescriptorSet, level CascadeLevel2D) {
	if !level.HasIrradianceTexture {
		return
	}

	push := IntegratorPushConstants{
		RadianceTextureIndex:   uint32(level.RadianceTextureIndex),
		IrradianceTextureIndex: uint32(level.IrradianceTextureIndex),
		AngularResolution:      level.AngularResolution,
	}

	cmd.BindPipeline(vk.PIPELINE_BIND_POINT_COMPUTE, in.pipeline)
	cmd.BindDescriptorSets(vk.PIPELINE_BIND_POINT_COMPUTE, in.layout, 0, []vk.DescriptorSet{globalSet}, nil)
	cmd.CmdPushConstants(in.layout, vk.SHADER_STAGE_COMPUTE_BIT, 0, uint32(unsafe.Sizeof(push)), unsafe.Pointer(&push))

	groupsX := ceilDiv(level.GridDims[0], tracerWorkgroupSizeX)
	groupsY := ceilDiv(level.GridDims[1], tracerWorkgroupSizeY)
	cmd.CmdDispatch(uint32(groupsX), uint32(groupsY), 1)
}

// Destroy releases the integrator's pipeline, layout, and shader module.
func (in *Integrator) Destroy() {
	in.device.DestroyPipeline(in.pipeline)
	in.device.DestroyPipelineLayout(in.layout)
	in.device.DestroyShaderModule(in.module)
}

// IntegrationWeight2D is the CPU mirror of the integrator shader's
// cosine-weighted directional sum, kept in sync deliberately so
// integrator_test.go can verify the constant-replacement property (spec.md
// §8: "replacing cascade-0 radiance with constant C yields
// C·integrationWeight") without a GPU. A pure function of Q(0) alone: the
// directions are evenly spaced around the full circle regardless of a
// probe's surface normal, so the weighted sum is identical for every
// probe.
func IntegrationWeight2D(q uint32) float32 {
	if q == 0 {
		return 0
	}
	dTheta := 2 * math.Pi / float64(q)
	var sum float64
	for d := uint32(0); d < q; d++ {
		angle := dTheta * (float64(d) + 0.5)
		cosWeight := math.Cos(angle)
		if cosWeight <= 0 {
			continue
		}
		sum += cosWeight * dTheta
	}
	return float32(sum)
}

// IntegrationWeight3D is the 3D analogue, summing the cosine-weighted
// solid-angle contribution of every (dx,dy) direction under the angular
// mapping in DirectionFromIndex3D.
func IntegrationWeight3D(q uint32) float32 {
	if q == 0 {
		return 0
	}
	dAzimuth := 2 * math.Pi / float64(q)
	dPolar := math.Pi / float64(q)
	var sum float64
	for dy := uint32(0); dy < q; dy++ {
		polar := dPolar * (float64(dy) + 0.5)
		cosWeight := math.Cos(polar)
		if cosWeight <= 0 {
			continue
		}
		solidAngle := math.Sin(polar) * dPolar * dAzimuth
		sum += cosWeight * solidAngle * float64(q) // q azimuth samples at this polar ring
	}
	return float32(sum)
}
