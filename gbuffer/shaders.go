package gbuffer

// vertexShaderSource transforms each vertex by the per-draw model matrix
// and the main camera's view-projection matrix, both supplied as push
// constants rather than through the bindless camera UBO array (gbuffer has
// exactly one active camera per frame, so there is nothing for a bindless
// index to select). Forwards world-space position/normal and UV to the
// fragment stage. Grounded on the teacher's CompositeLayer shader
// push-constant convention, generalized from a 2D screen-space quad to a
// 3D model/view/projection pipeline.
const vertexShaderSource = `#version 460

layout(location = 0) in vec3 inPosition;
layout(location = 1) in vec3 inNormal;
layout(location = 2) in vec2 inUV;

layout(location = 0) out vec3 outWorldPos;
layout(location = 1) out vec3 outWorldNormal;
layout(location = 2) out vec2 outUV;

layout(push_constant) uniform PushConstants {
    mat4 viewProj;
    mat4 model;
} pc;

void main() {
    vec4 worldPos = pc.model * vec4(inPosition, 1.0);
    outWorldPos = worldPos.xyz;
    outWorldNormal = mat3(transpose(inverse(pc.model))) * inNormal;
    outUV = inUV;
    gl_Position = pc.viewProj * worldPos;
}
`

// fragmentShaderSource writes the four G-buffer targets (position+depth,
// normal, albedo+specular, material params) from the bound material's
// bindless textures. Grounded on original_source/Engine/src/Renderer/
// GBufferPass.cpp's MRT fragment shader, generalized to index the bindless
// sampler array by the material's texture slots instead of one
// fixed-binding sampler per material.
const fragmentShaderSource = `#version 460
#extension GL_EXT_nonuniform_qualifier : require

layout(location = 0) in vec3 inWorldPos;
layout(location = 1) in vec3 inWorldNormal;
layout(location = 2) in vec2 inUV;

layout(location = 0) out vec4 outPosition;
layout(location = 1) out vec4 outNormal;
layout(location = 2) out vec4 outAlbedoSpec;
layout(location = 3) out vec4 outMaterial;

layout(set = 0, binding = 1) uniform sampler2D sampledTextures[];

layout(set = 1, binding = 0) uniform MaterialParams {
    uint albedoIndex;
    uint normalIndex;
    uint metallicRoughnessIndex;
    float metallic;
    float roughness;
} material;

void main() {
    vec4 albedo = texture(sampledTextures[nonuniformEXT(material.albedoIndex)], inUV);
    vec3 metallicRoughnessAO = texture(sampledTextures[nonuniformEXT(material.metallicRoughnessIndex)], inUV).rgb;

    outPosition = vec4(inWorldPos, gl_FragCoord.z);
    outNormal = vec4(normalize(inWorldNormal), 0.0);
    outAlbedoSpec = albedo;
    outMaterial = vec4(metallicRoughnessAO.r * material.metallic, metallicRoughnessAO.g * material.roughness, metallicRoughnessAO.b, 0.0);
}
`
