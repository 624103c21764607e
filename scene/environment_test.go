package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/radiant-engine/radiant/bindless"
)

func TestEnvironmentSkyboxDefaultsToNoSkyboxSentinel(t *testing.T) {
	e := NewEnvironment()
	if e.SkyboxTextureIndex() != ^uint32(0) {
		t.Fatalf("expected no-skybox sentinel, got %d", e.SkyboxTextureIndex())
	}
}

func TestEnvironmentSetSkyboxReportsBoundIndex(t *testing.T) {
	e := NewEnvironment()
	e.SetSkybox(bindless.Index(5))
	if e.SkyboxTextureIndex() != 5 {
		t.Fatalf("expected bound skybox index 5, got %d", e.SkyboxTextureIndex())
	}
	e.ClearSkybox()
	if e.SkyboxTextureIndex() != ^uint32(0) {
		t.Fatal("expected ClearSkybox to restore the no-skybox sentinel")
	}
}

func TestEnvironmentFogDisabledByDefault(t *testing.T) {
	e := NewEnvironment()
	if _, ok := e.Fog(); ok {
		t.Fatal("expected fog to be disabled by default")
	}
	e.SetFog(FogParams{Density: 0.1, Color: mgl32.Vec3{1, 1, 1}})
	if _, ok := e.Fog(); !ok {
		t.Fatal("expected fog to be enabled after SetFog")
	}
	e.ClearFog()
	if _, ok := e.Fog(); ok {
		t.Fatal("expected fog to be disabled after ClearFog")
	}
}
