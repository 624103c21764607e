package outline

// vertexShaderSource expands the selected mesh's vertices along their
// normal by borderWidth before transforming, the standard silhouette-border
// technique: the expanded shell is drawn, and the fragment shader discards
// the fragments that fall behind the true (unexpanded) depth recorded by
// the G-buffer, leaving only the rim visible. Grounded on
// StencilBorderPass.cpp's fixed borderWidth push constant, generalized from
// a fixed value into a configurable PushConstants field already present in
// the original.
const vertexShaderSource = `#version 460

layout(location = 0) in vec3 inPosition;
layout(location = 1) in vec3 inNormal;
layout(location = 2) in vec2 inUV;

layout(location = 0) out vec2 outScreenDepth;

layout(push_constant) uniform PushConstants {
    mat4 model;
    mat4 viewProj;
    vec4 color;
    float borderWidth;
    uint depthStencilSlot;
    uint soft;
    uint _pad;
} pc;

void main() {
    vec3 expanded = inPosition + normalize(inNormal) * pc.borderWidth;
    vec4 clip = pc.viewProj * pc.model * vec4(expanded, 1.0);
    outScreenDepth = vec2(clip.z, clip.w);
    gl_Position = clip;
}
`

// fragmentShaderSource samples the G-buffer depth-stencil as a bindless
// texture at the current fragment's screen position and discards any
// fragment whose expanded-shell depth is not behind the true surface depth
// there, leaving only the silhouette rim. Soft selects a smoothstep falloff
// on the rim band instead of a hard cutoff, per SPEC_FULL.md §4.9's
// supplemented soft/hard edge toggle.
const fragmentShaderSource = `#version 460
#extension GL_EXT_nonuniform_qualifier : require

layout(location = 0) in vec2 inScreenDepth;

layout(location = 0) out vec4 outColor;

layout(set = 0, binding = 1) uniform sampler2D sampledTextures[];

layout(push_constant) uniform PushConstants {
    mat4 model;
    mat4 viewProj;
    vec4 color;
    float borderWidth;
    uint depthStencilSlot;
    uint soft;
    uint _pad;
} pc;

void main() {
    float shellDepth = inScreenDepth.x / inScreenDepth.y;
    vec2 screenUV = gl_FragCoord.xy / vec2(textureSize(sampledTextures[nonuniformEXT(pc.depthStencilSlot)], 0));
    float surfaceDepth = texture(sampledTextures[nonuniformEXT(pc.depthStencilSlot)], screenUV).r;

    if (shellDepth <= surfaceDepth) {
        discard;
    }

    float alpha = 1.0;
    if (pc.soft != 0u) {
        alpha = smoothstep(surfaceDepth, surfaceDepth + 0.002, shellDepth);
    }

    outColor = vec4(pc.color.rgb, pc.color.a * alpha);
}
`
