// Package scene wires the ECS world into the spatial-acceleration and
// rendering core through small trait-style contracts, rather than coupling
// the core directly to ecs.World (spec.md §9: "ECS wrapper with
// exception-throwing component access... express the core's needs as
// small trait-style contracts"). Every method here returns a zero value
// instead of panicking or erroring on a missing component — "no exceptions
// across core boundaries; all missing-component paths return
// optional/empty" (spec.md §9).
package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/radiant-engine/radiant/ecs"
	"github.com/radiant-engine/radiant/geom"
)

// TransformSource exposes an entity's world transform without requiring
// the caller to know it came from ecs.World.
type TransformSource interface {
	Transform(e ecs.Entity) (matrix mgl32.Mat4, ok bool)
}

// MeshSource exposes an entity's mesh geometry and dynamic vertex layout
// (spec.md §4.8: "Bind vertex layout dynamically from
// ecs.MeshSource.LayoutDescriptor()").
type MeshSource interface {
	LayoutDescriptor(e ecs.Entity) (ecs.VertexLayout, bool)
	BoundingBox(e ecs.Entity) (geom.AABB, bool)
}

// MaterialSource exposes an entity's bound material instance.
type MaterialSource interface {
	Material(e ecs.Entity) (ecs.MaterialInstance, bool)
}

// CameraSource exposes the main camera's derived matrices and frustum
// (spec.md §6: "the core reads fov, aspect, near, far, viewMatrix,
// projectionMatrix, frustum").
type CameraSource interface {
	MainCamera() (ecs.Entity, bool)
	ViewMatrix(e ecs.Entity) (mgl32.Mat4, bool)
	ProjectionMatrix(e ecs.Entity) (mgl32.Mat4, bool)
	Frustum(e ecs.Entity) (geom.Frustum, bool)
}

// EnvironmentSource exposes the scene's skybox and fog state. The cascade
// tracer's miss path consumes the skybox index (spec.md §3.2, §4.5 step 5);
// the renderer does not read Fog.
type EnvironmentSource interface {
	SkyboxTextureIndex() uint32
	Fog() (FogParams, bool)
}

// FogParams mirrors original_source's FogComponent. The cascade tracer's
// push constants have FogDensity/FogColor fields, but nothing copies
// FogParams into them (spec.md §3.2).
type FogParams struct {
	Density float32
	Color   mgl32.Vec3
}

// worldAdapter implements TransformSource/MeshSource/MaterialSource/
// CameraSource over an *ecs.World, so the core never imports ecs directly
// for these lookups — it depends on the contracts above instead.
type worldAdapter struct {
	world *ecs.World
}

// NewWorldAdapter wraps w to satisfy scene's trait contracts.
func NewWorldAdapter(w *ecs.World) *worldAdapter {
	return &worldAdapter{world: w}
}

func (a *worldAdapter) Transform(e ecs.Entity) (mgl32.Mat4, bool) {
	t := a.world.GetTransform(e)
	if t == nil {
		return mgl32.Ident4(), false
	}
	return t.Matrix(), true
}

func (a *worldAdapter) LayoutDescriptor(e ecs.Entity) (ecs.VertexLayout, bool) {
	m := a.world.GetMesh(e)
	if m == nil {
		return ecs.VertexLayout{}, false
	}
	return m.LayoutDescriptor, true
}

func (a *worldAdapter) BoundingBox(e ecs.Entity) (geom.AABB, bool) {
	b := a.world.GetBoundingBox(e)
	if b == nil {
		return geom.Invalid(), false
	}
	return b.World, true
}

func (a *worldAdapter) Material(e ecs.Entity) (ecs.MaterialInstance, bool) {
	m := a.world.GetMaterial(e)
	if m == nil || !m.Ready {
		return ecs.MaterialInstance{}, false
	}
	return m.Instance, true
}

func (a *worldAdapter) MainCamera() (ecs.Entity, bool) {
	for _, e := range a.world.QueryWithTransform().Entities() {
		cam := a.world.GetCamera(e)
		if cam != nil && cam.IsMain {
			return e, true
		}
	}
	return 0, false
}

func (a *worldAdapter) ViewMatrix(e ecs.Entity) (mgl32.Mat4, bool) {
	cam := a.world.GetCamera(e)
	t := a.world.GetTransform(e)
	if cam == nil || t == nil {
		return mgl32.Ident4(), false
	}
	return cam.ViewMatrix(t), true
}

func (a *worldAdapter) ProjectionMatrix(e ecs.Entity) (mgl32.Mat4, bool) {
	cam := a.world.GetCamera(e)
	if cam == nil {
		return mgl32.Ident4(), false
	}
	return cam.ProjectionMatrix(), true
}

func (a *worldAdapter) Frustum(e ecs.Entity) (geom.Frustum, bool) {
	cam := a.world.GetCamera(e)
	t := a.world.GetTransform(e)
	if cam == nil || t == nil {
		return geom.Frustum{}, false
	}
	return cam.Frustum(t), true
}
