// Package accel implements the BLAS/TLAS ray-tracing acceleration layer of
// spec.md §4.3, grounded on the Vulkan VK_KHR_acceleration_structure
// bindings in vk/accel.go and on the refit-vs-rebuild TLAS pattern used by
// every ray-tracing HAL in the retrieved pack (gogpu-wgpu/hal/vulkan).
package accel

import (
	"fmt"

	"github.com/radiant-engine/radiant/ecs"
	"github.com/radiant-engine/radiant/vk"
)

// BuildError reports a BLAS/TLAS build failure (spec.md §4.3, §7):
// allocation failure or an unsupported vertex format. The containing
// entity is left without a BLAS component.
type BuildError struct {
	Entity ecs.Entity
	Reason string
	Err    error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("accel: build failed for entity %d: %s: %v", e.Entity, e.Reason, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// BLAS wraps a built bottom-level acceleration structure for one mesh.
// Immutable once built (spec.md §3: "BLAS... immutable once built").
type BLAS struct {
	structure vk.AccelerationStructure
	buffer    vk.Buffer
	memory    vk.DeviceMemory
	address   vk.DeviceAddress
}

// BuildBLASParams describes the vertex/index buffers a BLAS is built from.
type BuildBLASParams struct {
	VertexBuffer vk.Buffer
	VertexFormat vk.Format
	VertexStride uint64
	VertexCount  uint32
	IndexBuffer  vk.Buffer
	IndexType    vk.IndexType
	IndexCount   uint32
}

// BuildBLAS constructs a bottom-level acceleration structure from a mesh's
// vertex and index buffers (spec.md §4.3). Failure is reported as a
// *BuildError and leaves entity without a BLAS component; the caller is
// expected not to call ecs.World.AddBoundingBox-style component attachment
// in that case.
func BuildBLAS(device vk.Device, physicalDevice vk.PhysicalDevice, cmd vk.CommandBuffer, entity ecs.Entity, params BuildBLASParams) (*BLAS, error) {
	vertexAddr := device.GetBufferDeviceAddress(params.VertexBuffer)
	indexAddr := device.GetBufferDeviceAddress(params.IndexBuffer)

	geometry := vk.AccelerationStructureGeometry{
		Type:  vk.GEOMETRY_TYPE_TRIANGLES_KHR,
		Flags: vk.GEOMETRY_OPAQUE_BIT_KHR,
		Triangles: vk.GeometryTrianglesData{
			VertexFormat: params.VertexFormat,
			VertexData:   vertexAddr,
			VertexStride: params.VertexStride,
			MaxVertex:    params.VertexCount,
			IndexType:    params.IndexType,
			IndexData:    indexAddr,
		},
	}

	buildInfo := vk.BuildGeometryInfo{
		Type:       vk.ACCELERATION_STRUCTURE_TYPE_BOTTOM_LEVEL_KHR,
		Flags:      vk.BUILD_ACCELERATION_STRUCTURE_PREFER_FAST_TRACE_BIT_KHR,
		Mode:       vk.BUILD_ACCELERATION_STRUCTURE_MODE_BUILD_KHR,
		Geometries: []vk.AccelerationStructureGeometry{geometry},
	}

	triangleCount := params.IndexCount / 3
	sizes := device.GetAccelerationStructureBuildSizes(&buildInfo, []uint32{triangleCount})

	buffer, memory, err := device.CreateBufferWithMemory(
		sizes.AccelerationStructureSize,
		vk.BUFFER_USAGE_TRANSFER_DST_BIT,
		vk.MEMORY_PROPERTY_DEVICE_LOCAL_BIT,
		physicalDevice,
	)
	if err != nil {
		return nil, &BuildError{Entity: entity, Reason: "allocate acceleration structure buffer", Err: err}
	}

	structure, err := device.CreateAccelerationStructureKHR(&vk.AccelerationStructureCreateInfo{
		Buffer: buffer,
		Size:   sizes.AccelerationStructureSize,
		Type:   vk.ACCELERATION_STRUCTURE_TYPE_BOTTOM_LEVEL_KHR,
	})
	if err != nil {
		device.FreeMemory(memory)
		device.DestroyBuffer(buffer)
		return nil, &BuildError{Entity: entity, Reason: "create acceleration structure", Err: err}
	}

	scratchBuffer, scratchMemory, err := device.CreateBufferWithMemory(
		sizes.BuildScratchSize,
		vk.BUFFER_USAGE_TRANSFER_DST_BIT,
		vk.MEMORY_PROPERTY_DEVICE_LOCAL_BIT,
		physicalDevice,
	)
	if err != nil {
		device.DestroyAccelerationStructureKHR(structure)
		device.FreeMemory(memory)
		device.DestroyBuffer(buffer)
		return nil, &BuildError{Entity: entity, Reason: "allocate build scratch buffer", Err: err}
	}
	defer device.FreeMemory(scratchMemory)
	defer device.DestroyBuffer(scratchBuffer)

	buildInfo.DstAccelerationStructure = structure
	buildInfo.ScratchData = device.GetBufferDeviceAddress(scratchBuffer)

	cmd.CmdBuildAccelerationStructures(
		[]vk.BuildGeometryInfo{buildInfo},
		[][]vk.AccelerationStructureBuildRangeInfo{{{PrimitiveCount: triangleCount}}},
	)

	return &BLAS{
		structure: structure,
		buffer:    buffer,
		memory:    memory,
		address:   device.GetAccelerationStructureDeviceAddress(structure),
	}, nil
}

// DeviceAddress returns the GPU-visible address the owning TLAS instance
// references.
func (b *BLAS) DeviceAddress() vk.DeviceAddress { return b.address }

// Destroy releases the BLAS's acceleration structure and backing memory.
func (b *BLAS) Destroy(device vk.Device) {
	device.DestroyAccelerationStructureKHR(b.structure)
	device.FreeMemory(b.memory)
	device.DestroyBuffer(b.buffer)
}
