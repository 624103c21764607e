package ecs

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/radiant-engine/radiant/geom"
	"github.com/radiant-engine/radiant/vk"
)

// Transform holds an entity's local transform and its cached model matrix.
// DirtyFlag is set whenever Translation/Rotation/Scale change; DirtyFrameCount
// increments once per frame the transform stays dirty until it reaches the
// frames-in-flight count F, at which point every in-flight frame has observed
// the new matrix and the dirty state clears (spec.md §6).
type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3

	matrix mgl32.Mat4

	DirtyFlag       bool
	DirtyFrameCount int
}

// NewTransform creates an identity Transform, already clean.
func NewTransform() *Transform {
	t := &Transform{
		Translation: mgl32.Vec3{0, 0, 0},
		Rotation:    mgl32.QuatIdent(),
		Scale:       mgl32.Vec3{1, 1, 1},
	}
	t.recompute()
	return t
}

// SetTranslation updates the translation and marks the transform dirty.
func (t *Transform) SetTranslation(v mgl32.Vec3) {
	t.Translation = v
	t.markDirty()
}

// SetRotation updates the rotation and marks the transform dirty.
func (t *Transform) SetRotation(q mgl32.Quat) {
	t.Rotation = q
	t.markDirty()
}

// SetScale updates the scale and marks the transform dirty.
func (t *Transform) SetScale(v mgl32.Vec3) {
	t.Scale = v
	t.markDirty()
}

func (t *Transform) markDirty() {
	t.recompute()
	t.DirtyFlag = true
	t.DirtyFrameCount = 0
}

func (t *Transform) recompute() {
	t.matrix = mgl32.Translate3D(t.Translation[0], t.Translation[1], t.Translation[2]).
		Mul4(t.Rotation.Mat4()).
		Mul4(mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
}

// Matrix returns the cached model matrix.
func (t *Transform) Matrix() mgl32.Mat4 { return t.matrix }

// AdvanceDirty increments DirtyFrameCount for a dirty transform and clears
// the dirty state once every frame in flight has observed the current
// matrix (spec.md §6: "dirtyFrameCount increments ... until it equals F").
func (t *Transform) AdvanceDirty(framesInFlight int) {
	if !t.DirtyFlag {
		return
	}
	t.DirtyFrameCount++
	if t.DirtyFrameCount >= framesInFlight {
		t.DirtyFlag = false
		t.DirtyFrameCount = 0
	}
}

// VertexAttribute describes one dynamically-bound vertex input attribute.
type VertexAttribute struct {
	Location uint32
	Format   vk.Format
	Offset   uint32
}

// VertexLayout describes the dynamic vertex input state the G-buffer pass
// binds per-mesh (spec.md §4.8: "Bind vertex layout dynamically").
type VertexLayout struct {
	Stride     uint32
	Attributes []VertexAttribute
}

// Mesh references the GPU buffers backing an entity's renderable geometry.
// The core ignores a Mesh while Loading is true (spec.md §6).
type Mesh struct {
	VertexBuffer     vk.Buffer
	IndexBuffer      vk.Buffer
	LayoutDescriptor VertexLayout
	IsStatic         bool
	IsEnabled        bool
	Loading          bool
	IndexCount       uint32
	VertexCount      uint32
}

// MaterialInstance is the opaque per-material descriptor/parameter handle
// bound into descriptor set 1 (spec.md §4.10).
type MaterialInstance struct {
	DescriptorSet vk.DescriptorSet
	TextureSlots  []uint32
	ParamBuffer   vk.Buffer
}

// Material references a bound material instance. The core ignores a
// Material while Ready is false (spec.md §6).
type Material struct {
	Instance MaterialInstance
	Ready    bool
}

// BoundingBox holds an entity's local-space and world-space bounds. World is
// refreshed from Local and the owning Transform's matrix whenever the
// transform's dirty flag is set (spec.md §6).
type BoundingBox struct {
	Local geom.AABB
	World geom.AABB
}

// RefreshWorld recomputes World from Local and the current model matrix.
// Called whenever the owning Transform's DirtyFlag is set (spec.md §6).
func (b *BoundingBox) RefreshWorld(model mgl32.Mat4) {
	b.World = b.Local.Transform(model)
}

// LightType enumerates the light kinds consumed by the G-buffer pass and
// the cascade tracer (spec.md §6).
type LightType int

const (
	LightPoint LightType = iota
	LightDirectional
	LightSpot
)

// Light is a scene light source.
type Light struct {
	Type           LightType
	Color          mgl32.Vec3
	Intensity      float32
	Range          float32
	InnerConeAngle float32
	OuterConeAngle float32
	IsActive       bool
	CastsShadow    bool
}

// Camera holds the projection parameters the renderer reads from the main
// camera entity (spec.md §6: "fov, aspect, near, far, viewMatrix,
// projectionMatrix, frustum").
type Camera struct {
	FOV, Aspect, Near, Far float32
	IsMain                 bool
}

// ViewMatrix derives the view matrix from the owning entity's Transform.
// Cameras look down -Z in their own local frame, matching the teacher's
// math-library convention (mgl32.LookAtV-compatible basis).
func (c *Camera) ViewMatrix(t *Transform) mgl32.Mat4 {
	forward := t.Rotation.Rotate(mgl32.Vec3{0, 0, -1})
	up := t.Rotation.Rotate(mgl32.Vec3{0, 1, 0})
	eye := t.Translation
	return mgl32.LookAtV(eye, eye.Add(forward), up)
}

// ProjectionMatrix derives the perspective projection from the camera's
// parameters.
func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	return mgl32.Perspective(c.FOV, c.Aspect, c.Near, c.Far)
}

// Frustum derives the camera's view frustum from its current transform and
// projection parameters, for use by the G-buffer pass's culling step
// (spec.md §4.8: "frustum cull via scene.CameraSource.Frustum()").
func (c *Camera) Frustum(t *Transform) geom.Frustum {
	viewProj := c.ProjectionMatrix().Mul4(c.ViewMatrix(t))
	return geom.FrustumFromViewProjection(viewProj)
}

// IndirectLighting is the per-entity GI opt-in/opt-out supplemented from
// original_source/Components/ComponentsCommon.h's IndirectLightingComponent:
// an entity can be excluded from receiving indirect light (ReceivesGI) or
// from contributing to it, i.e. occluding/emitting into the static BVH and
// tracer (CastsGI).
type IndirectLighting struct {
	ReceivesGI bool
	CastsGI    bool
}

// Hierarchy links an entity to its parent and children, supplemented from
// original_source/Components/Components.h's HierarchyComponent. Used by
// scene.CollectStaticPrimitives / CollectDynamicPrimitives to walk the
// scene graph when partitioning static vs. dynamic mesh sets.
type Hierarchy struct {
	Parent   Entity
	Children []Entity
}
