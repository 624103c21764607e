package accel

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/radiant-engine/radiant/bindless"
	"github.com/radiant-engine/radiant/ecs"
	"github.com/radiant-engine/radiant/vk"
)

// instanceStride is sizeof(VkAccelerationStructureInstanceKHR): a 3x4
// row-major transform (48 bytes) + customIndex/mask (4) + sbtOffset/flags
// (4) + a 64-bit acceleration-structure reference (8).
const instanceStride = 64

// Instance is one entry of a TLAS's instance list (spec.md §3:
// "TLASInstance{blas, transform4×4, entityId}").
type Instance struct {
	BLAS      *BLAS
	Transform mgl32.Mat4
	Entity    ecs.Entity
}

// TLAS is the scene-wide top-level acceleration structure referencing a set
// of BLAS instances with per-instance transforms (spec.md §3/§4.3).
type TLAS struct {
	instances []Instance
	dirty     []int // indices with a transform-only patch pending

	structure vk.AccelerationStructure
	buffer    vk.Buffer
	memory    vk.DeviceMemory

	instanceBuffer   vk.Buffer
	instanceMemory   vk.DeviceMemory
	instanceCapacity int

	built              bool
	builtInstanceCount int

	bindlessIndex bindless.Index
}

// NewTLAS creates an empty, unbuilt TLAS. bindlessIndex is allocated by the
// caller (typically scene.Scene, from a bindless.Global.AccelerationStructures
// allocator) and is stable across updates that don't destroy the TLAS
// (spec.md §4.10 invariant (c)).
func NewTLAS(bindlessIndex bindless.Index) *TLAS {
	return &TLAS{bindlessIndex: bindlessIndex}
}

// AddInstance appends a new instance. Must be followed by Build before the
// next query/trace (spec.md §4.3).
func (t *TLAS) AddInstance(blas *BLAS, transform mgl32.Mat4, entity ecs.Entity) {
	t.instances = append(t.instances, Instance{BLAS: blas, Transform: transform, Entity: entity})
}

// UpdateInstances applies a transform-only patch to existing instances,
// keyed by instance index (spec.md §4.3: "updateInstances(&[(index,
// transform)])"). The patch set is applied lazily: Build decides whether a
// refit suffices or a full rebuild is required.
func (t *TLAS) UpdateInstances(deltas []struct {
	Index     int
	Transform mgl32.Mat4
}) {
	for _, d := range deltas {
		if d.Index < 0 || d.Index >= len(t.instances) {
			continue
		}
		t.instances[d.Index].Transform = d.Transform
		t.dirty = append(t.dirty, d.Index)
	}
}

// encodeInstances packs t.instances into the VkAccelerationStructureInstanceKHR
// byte layout the instance buffer must hold.
func (t *TLAS) encodeInstances() []byte {
	buf := make([]byte, instanceStride*len(t.instances))
	for i, inst := range t.instances {
		row := buf[i*instanceStride : (i+1)*instanceStride]
		// Row-major 3x4 transform (drop the last row of the 4x4, which is
		// always [0 0 0 1] for an affine transform). mgl32.Mat4 stores its
		// 16 elements column-major, so element (row r, col c) sits at
		// index c*4+r.
		for r := 0; r < 3; r++ {
			for c := 0; c < 4; c++ {
				v := inst.Transform[c*4+r]
				binary.LittleEndian.PutUint32(row[(r*4+c)*4:], math.Float32bits(v))
			}
		}
		binary.LittleEndian.PutUint32(row[48:], uint32(inst.Entity)&0x00FFFFFF | 0xFF<<24) // customIndex | mask
		binary.LittleEndian.PutUint32(row[52:], 0)                                          // sbtOffset | flags
		var address vk.DeviceAddress
		if inst.BLAS != nil {
			address = inst.BLAS.DeviceAddress()
		}
		binary.LittleEndian.PutUint64(row[56:], uint64(address))
	}
	return buf
}

// uploadInstances (re)creates the instance buffer if it's too small for
// the current instance count, then writes the encoded instance array into
// it, returning the buffer's device address for the build-geometry info.
func (t *TLAS) uploadInstances(device vk.Device, physicalDevice vk.PhysicalDevice) (vk.DeviceAddress, error) {
	encoded := t.encodeInstances()
	if len(encoded) == 0 {
		return 0, nil
	}

	if t.instanceCapacity < len(t.instances) {
		if t.instanceCapacity > 0 {
			device.FreeMemory(t.instanceMemory)
			device.DestroyBuffer(t.instanceBuffer)
		}
		buffer, memory, err := device.CreateBufferWithMemory(
			uint64(len(encoded)),
			vk.BUFFER_USAGE_TRANSFER_DST_BIT,
			vk.MEMORY_PROPERTY_HOST_VISIBLE_BIT|vk.MEMORY_PROPERTY_HOST_COHERENT_BIT,
			physicalDevice,
		)
		if err != nil {
			return 0, &BuildError{Reason: "allocate TLAS instance buffer", Err: err}
		}
		t.instanceBuffer = buffer
		t.instanceMemory = memory
		t.instanceCapacity = len(t.instances)
	}

	if err := device.UploadToBuffer(t.instanceMemory, encoded); err != nil {
		return 0, &BuildError{Reason: "upload TLAS instances", Err: err}
	}
	return device.GetBufferDeviceAddress(t.instanceBuffer), nil
}

// Build constructs or refits the top-level structure (spec.md §4.3). A
// refit (VK_BUILD_ACCELERATION_STRUCTURE_UPDATE_BIT_KHR) is used when the
// instance count is unchanged since the last Build and the structure was
// built with ALLOW_UPDATE; otherwise a full rebuild is performed — the
// standard TLAS refit pattern used by every ray-tracing HAL in the
// retrieved pack (gogpu-wgpu/hal/vulkan).
func (t *TLAS) Build(device vk.Device, physicalDevice vk.PhysicalDevice, cmd vk.CommandBuffer) error {
	refit := t.built && len(t.instances) == t.builtInstanceCount && len(t.instances) > 0

	instanceBufferAddr, err := t.uploadInstances(device, physicalDevice)
	if err != nil {
		return err
	}

	geometry := vk.AccelerationStructureGeometry{
		Type: vk.GEOMETRY_TYPE_INSTANCES_KHR,
		Instances: vk.GeometryInstancesData{
			Data: instanceBufferAddr,
		},
	}

	mode := vk.BUILD_ACCELERATION_STRUCTURE_MODE_BUILD_KHR
	var src vk.AccelerationStructure
	if refit {
		mode = vk.BUILD_ACCELERATION_STRUCTURE_MODE_UPDATE_KHR
		src = t.structure
	}

	buildInfo := vk.BuildGeometryInfo{
		Type:                     vk.ACCELERATION_STRUCTURE_TYPE_TOP_LEVEL_KHR,
		Flags:                    vk.BUILD_ACCELERATION_STRUCTURE_ALLOW_UPDATE_BIT_KHR | vk.BUILD_ACCELERATION_STRUCTURE_PREFER_FAST_TRACE_BIT_KHR,
		Mode:                     mode,
		SrcAccelerationStructure: src,
		Geometries:               []vk.AccelerationStructureGeometry{geometry},
	}

	instanceCount := uint32(len(t.instances))
	sizes := device.GetAccelerationStructureBuildSizes(&buildInfo, []uint32{instanceCount})

	if !refit {
		if t.built {
			device.DestroyAccelerationStructureKHR(t.structure)
			device.FreeMemory(t.memory)
			device.DestroyBuffer(t.buffer)
		}

		buffer, memory, err := device.CreateBufferWithMemory(
			sizes.AccelerationStructureSize,
			vk.BUFFER_USAGE_TRANSFER_DST_BIT,
			vk.MEMORY_PROPERTY_DEVICE_LOCAL_BIT,
			physicalDevice,
		)
		if err != nil {
			return &BuildError{Reason: "allocate TLAS buffer", Err: err}
		}

		structure, err := device.CreateAccelerationStructureKHR(&vk.AccelerationStructureCreateInfo{
			Buffer: buffer,
			Size:   sizes.AccelerationStructureSize,
			Type:   vk.ACCELERATION_STRUCTURE_TYPE_TOP_LEVEL_KHR,
		})
		if err != nil {
			device.FreeMemory(memory)
			device.DestroyBuffer(buffer)
			return &BuildError{Reason: "create TLAS", Err: err}
		}

		t.buffer = buffer
		t.memory = memory
		t.structure = structure
	}

	scratchSize := sizes.BuildScratchSize
	if refit {
		scratchSize = sizes.UpdateScratchSize
	}
	scratchBuffer, scratchMemory, err := device.CreateBufferWithMemory(
		scratchSize,
		vk.BUFFER_USAGE_TRANSFER_DST_BIT,
		vk.MEMORY_PROPERTY_DEVICE_LOCAL_BIT,
		physicalDevice,
	)
	if err != nil {
		return &BuildError{Reason: "allocate TLAS scratch buffer", Err: err}
	}
	defer device.FreeMemory(scratchMemory)
	defer device.DestroyBuffer(scratchBuffer)

	buildInfo.DstAccelerationStructure = t.structure
	buildInfo.ScratchData = device.GetBufferDeviceAddress(scratchBuffer)

	cmd.CmdBuildAccelerationStructures(
		[]vk.BuildGeometryInfo{buildInfo},
		[][]vk.AccelerationStructureBuildRangeInfo{{{PrimitiveCount: instanceCount}}},
	)

	t.built = true
	t.builtInstanceCount = len(t.instances)
	t.dirty = t.dirty[:0]
	return nil
}

// IsBuilt reports whether Build has succeeded at least once since the TLAS
// was created or last invalidated.
func (t *TLAS) IsBuilt() bool { return t.built }

// InstanceCount returns the number of instances currently registered,
// whether or not Build has been called since the last AddInstance.
func (t *TLAS) InstanceCount() int { return len(t.instances) }

// BindlessIndex returns the TLAS's stable bindless slot (spec.md §4.10
// invariant (c)).
func (t *TLAS) BindlessIndex() bindless.Index { return t.bindlessIndex }

// Structure returns the underlying Vulkan acceleration structure handle,
// for writing into the bindless global set's acceleration-structure array
// (bindless.Global.BindAccelerationStructure).
func (t *TLAS) Structure() vk.AccelerationStructure { return t.structure }

// Ready reports whether the tracer may be dispatched against this TLAS
// (spec.md §4.3: "the tracer must only be dispatched when isBuilt() &&
// instanceCount > 0").
func (t *TLAS) Ready() bool { return t.built && len(t.instances) > 0 }

// Destroy releases the TLAS's acceleration structure and backing memory,
// including the instance buffer if one was ever uploaded.
func (t *TLAS) Destroy(device vk.Device) {
	if t.instanceCapacity > 0 {
		device.FreeMemory(t.instanceMemory)
		device.DestroyBuffer(t.instanceBuffer)
		t.instanceCapacity = 0
	}
	if !t.built {
		return
	}
	device.DestroyAccelerationStructureKHR(t.structure)
	device.FreeMemory(t.memory)
	device.DestroyBuffer(t.buffer)
	t.built = false
}
