package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/radiant-engine/radiant/accel"
	"github.com/radiant-engine/radiant/bindless"
	"github.com/radiant-engine/radiant/ecs"
	"github.com/radiant-engine/radiant/internal/rlog"
	"github.com/radiant-engine/radiant/vk"
)

// Scene owns the world's acceleration-structure state and exposes the
// contract the renderer core consumes (spec.md §6): registerBLAS,
// buildTLAS, updateTLAS, getMainCamera. It holds no rendering-pass state
// of its own — gbuffer.Pass and outline.Pass read through the trait
// contracts in contracts.go instead of through Scene directly.
type Scene struct {
	World   *ecs.World
	Env     *Environment
	Select  *SelectionChannel
	adapter *worldAdapter

	device         vk.Device
	physicalDevice vk.PhysicalDevice

	tlas    *accel.TLAS
	blasOf  map[ecs.Entity]*accel.BLAS
	// instanceIndexOf maps an entity to its slot in tlas's instance list,
	// so UpdateTLAS can push a transform-only delta instead of rebuilding.
	instanceIndexOf map[ecs.Entity]int

	lights              lightBuffer
	lightsBindlessIndex bindless.Index
}

// New creates a Scene over an existing ECS world. tlasBindlessIndex is the
// stable bindless slot this scene's TLAS occupies in the global
// acceleration-structure array (spec.md §4.10 invariant (c)); lightsIndex
// is the analogous stable slot for the scene's light storage buffer.
func New(world *ecs.World, device vk.Device, physicalDevice vk.PhysicalDevice, tlasBindlessIndex, lightsIndex bindless.Index) *Scene {
	return &Scene{
		World:               world,
		Env:                 NewEnvironment(),
		Select:              NewSelectionChannel(),
		adapter:             NewWorldAdapter(world),
		device:              device,
		physicalDevice:      physicalDevice,
		tlas:                accel.NewTLAS(tlasBindlessIndex),
		blasOf:              make(map[ecs.Entity]*accel.BLAS),
		instanceIndexOf:     make(map[ecs.Entity]int),
		lightsBindlessIndex: lightsIndex,
	}
}

// RegisterBLAS builds a bottom-level acceleration structure for entity's
// mesh and adds it to the TLAS's instance list (spec.md §6:
// "Scene.registerBLAS(entity) — caller ensures BLAS, Mesh, Transform
// components exist").
func (s *Scene) RegisterBLAS(cmd vk.CommandBuffer, entity ecs.Entity) error {
	mesh := s.World.GetMesh(entity)
	transform := s.World.GetTransform(entity)
	if mesh == nil || transform == nil {
		return fmt.Errorf("scene: RegisterBLAS requires Mesh and Transform components on entity %d", entity)
	}

	vertexFormat := vk.FORMAT_R32G32B32_SFLOAT
	if len(mesh.LayoutDescriptor.Attributes) > 0 {
		vertexFormat = mesh.LayoutDescriptor.Attributes[0].Format
	}

	blas, err := accel.BuildBLAS(s.device, s.physicalDevice, cmd, entity, accel.BuildBLASParams{
		VertexBuffer: mesh.VertexBuffer,
		VertexFormat: vertexFormat,
		VertexStride: uint64(mesh.LayoutDescriptor.Stride),
		VertexCount:  mesh.VertexCount,
		IndexBuffer:  mesh.IndexBuffer,
		IndexType:    vk.INDEX_TYPE_UINT32,
		IndexCount:   mesh.IndexCount,
	})
	if err != nil {
		rlog.Default().Warn("blas build failed", "entity", entity, "error", err)
		return err
	}

	s.blasOf[entity] = blas
	s.instanceIndexOf[entity] = s.tlas.InstanceCount()
	s.tlas.AddInstance(blas, transform.Matrix(), entity)
	return nil
}

// BuildTLAS builds or rebuilds the top-level acceleration structure from
// every registered instance (spec.md §6: "Scene.buildTLAS() — builds/
// rebuilds; fails with a build error if no instances registered").
func (s *Scene) BuildTLAS(cmd vk.CommandBuffer) error {
	if s.tlas.InstanceCount() == 0 {
		err := &accel.BuildError{Reason: "buildTLAS called with zero registered instances"}
		rlog.Default().Warn("tlas build failed", "error", err)
		return err
	}
	if err := s.tlas.Build(s.device, s.physicalDevice, cmd); err != nil {
		rlog.Default().Error("tlas build failed", "error", err)
		return err
	}
	return nil
}

// UpdateTLAS iterates registered instances and pushes transform deltas for
// entities whose transform dirty-bit is set, then refits the structure
// (spec.md §6: "Scene.updateTLAS() — called each frame; iterates
// instances, pushes transform deltas for entities whose transform
// dirty-bit is set").
func (s *Scene) UpdateTLAS(cmd vk.CommandBuffer) error {
	var deltas []struct {
		Index     int
		Transform mgl32.Mat4
	}
	for entity, index := range s.instanceIndexOf {
		t := s.World.GetTransform(entity)
		if t == nil || !t.DirtyFlag {
			continue
		}
		deltas = append(deltas, struct {
			Index     int
			Transform mgl32.Mat4
		}{Index: index, Transform: t.Matrix()})
	}
	if len(deltas) > 0 {
		s.tlas.UpdateInstances(deltas)
	}
	if s.tlas.InstanceCount() == 0 {
		return nil
	}
	if err := s.tlas.Build(s.device, s.physicalDevice, cmd); err != nil {
		rlog.Default().Error("tlas update failed", "error", err)
		return err
	}
	return nil
}

// TLAS returns the scene's top-level acceleration structure, for wiring
// into the bindless global set (bindless.Global.BindAccelerationStructure)
// and as the tracer's TLASIndex source.
func (s *Scene) TLAS() *accel.TLAS { return s.tlas }

// UpdateLights re-uploads every active Light entity into the scene's
// bindless light buffer and returns the active count, the tracer's
// lightCount push constant (spec.md §4.5 step 5). Called once per frame,
// ahead of the tracer dispatch, so the upload is visible to every cascade
// level's trace this frame.
func (s *Scene) UpdateLights(global *bindless.Global) (int, error) {
	buffer, size, err := s.lights.Update(s.device, s.physicalDevice, s.World)
	if err != nil {
		return 0, err
	}
	count := len(s.World.QueryLights())
	if count == 0 {
		return 0, nil
	}
	global.BindLightBuffer(s.lightsBindlessIndex, buffer, size)
	return count, nil
}

// LightsBindlessIndex returns the bindless slot the scene's light buffer
// occupies, the tracer's lightBufferIndex push constant source.
func (s *Scene) LightsBindlessIndex() bindless.Index { return s.lightsBindlessIndex }

// Destroy releases the scene's light buffer, if one was ever allocated.
func (s *Scene) Destroy() {
	s.lights.Destroy(s.device)
}

// MainCamera returns the entity carrying Camera.IsMain (spec.md §6:
// "Scene.getMainCamera() — returns an entity with Camera and Transform").
func (s *Scene) MainCamera() (ecs.Entity, bool) {
	return s.adapter.MainCamera()
}

// Adapter exposes the scene's world as the TransformSource/MeshSource/
// MaterialSource/CameraSource contracts consumed by gbuffer.Pass and
// outline.Pass.
func (s *Scene) Adapter() *worldAdapter { return s.adapter }
