package scene

import "github.com/radiant-engine/radiant/bindless"

// Environment is the default EnvironmentSource, grounded on
// original_source's FogComponent and the scene's skybox cubemap reference
// (Scene.cpp) consulted by the cascade tracer's miss path (spec.md §3.2,
// §4.5 step 5).
type Environment struct {
	skyboxIndex bindless.Index
	hasSkybox   bool
	fog         FogParams
	hasFog      bool
}

// NewEnvironment creates an Environment with no skybox and no fog.
func NewEnvironment() *Environment {
	return &Environment{}
}

// SetSkybox binds the skybox's bindless sampled-texture slot.
func (e *Environment) SetSkybox(idx bindless.Index) {
	e.skyboxIndex = idx
	e.hasSkybox = true
}

// ClearSkybox removes the skybox binding; the tracer's miss path then
// returns zero radiance (spec.md §4.5 step 5).
func (e *Environment) ClearSkybox() {
	e.hasSkybox = false
}

// SkyboxTextureIndex returns the bound skybox's bindless index, or
// cascade.NoSkybox if none is bound.
func (e *Environment) SkyboxTextureIndex() uint32 {
	if !e.hasSkybox {
		return ^uint32(0)
	}
	return uint32(e.skyboxIndex)
}

// SetFog enables fog with the given parameters.
func (e *Environment) SetFog(params FogParams) {
	e.fog = params
	e.hasFog = true
}

// ClearFog disables fog.
func (e *Environment) ClearFog() {
	e.hasFog = false
}

// Fog returns the current fog parameters, if fog is enabled.
func (e *Environment) Fog() (FogParams, bool) {
	return e.fog, e.hasFog
}
