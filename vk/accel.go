// accel.go
package vk

/*
#include <vulkan/vulkan.h>
#include <stdlib.h>
*/
import "C"
import "unsafe"

// AccelerationStructure wraps a VK_KHR_acceleration_structure handle. The
// same Go type represents both a bottom-level and a top-level structure;
// the distinction lives in the AccelerationStructureType passed at
// creation.
type AccelerationStructure struct {
	handle C.VkAccelerationStructureKHR
}

// DeviceAddress is an opaque GPU-visible address, used to reference buffers
// and acceleration structures from other GPU-side structures without going
// through a descriptor.
type DeviceAddress uint64

type AccelerationStructureType int32

const (
	ACCELERATION_STRUCTURE_TYPE_TOP_LEVEL_KHR    AccelerationStructureType = C.VK_ACCELERATION_STRUCTURE_TYPE_TOP_LEVEL_KHR
	ACCELERATION_STRUCTURE_TYPE_BOTTOM_LEVEL_KHR AccelerationStructureType = C.VK_ACCELERATION_STRUCTURE_TYPE_BOTTOM_LEVEL_KHR
)

type BuildAccelerationStructureFlags uint32

const (
	BUILD_ACCELERATION_STRUCTURE_ALLOW_UPDATE_BIT_KHR      BuildAccelerationStructureFlags = C.VK_BUILD_ACCELERATION_STRUCTURE_ALLOW_UPDATE_BIT_KHR
	BUILD_ACCELERATION_STRUCTURE_ALLOW_COMPACTION_BIT_KHR  BuildAccelerationStructureFlags = C.VK_BUILD_ACCELERATION_STRUCTURE_ALLOW_COMPACTION_BIT_KHR
	BUILD_ACCELERATION_STRUCTURE_PREFER_FAST_TRACE_BIT_KHR BuildAccelerationStructureFlags = C.VK_BUILD_ACCELERATION_STRUCTURE_PREFER_FAST_TRACE_BIT_KHR
)

type BuildAccelerationStructureModeKHR int32

const (
	BUILD_ACCELERATION_STRUCTURE_MODE_BUILD_KHR  BuildAccelerationStructureModeKHR = C.VK_BUILD_ACCELERATION_STRUCTURE_MODE_BUILD_KHR
	BUILD_ACCELERATION_STRUCTURE_MODE_UPDATE_KHR BuildAccelerationStructureModeKHR = C.VK_BUILD_ACCELERATION_STRUCTURE_MODE_UPDATE_KHR
)

type GeometryTypeKHR int32

const (
	GEOMETRY_TYPE_TRIANGLES_KHR GeometryTypeKHR = C.VK_GEOMETRY_TYPE_TRIANGLES_KHR
	GEOMETRY_TYPE_INSTANCES_KHR GeometryTypeKHR = C.VK_GEOMETRY_TYPE_INSTANCES_KHR
)

type GeometryFlagsKHR uint32

const (
	GEOMETRY_OPAQUE_BIT_KHR GeometryFlagsKHR = C.VK_GEOMETRY_OPAQUE_BIT_KHR
)

// AccelerationStructureCreateInfo mirrors VkAccelerationStructureCreateInfoKHR.
// The backing Buffer must already be allocated with a size returned by
// GetAccelerationStructureBuildSizes.
type AccelerationStructureCreateInfo struct {
	Buffer Buffer
	Offset uint64
	Size   uint64
	Type   AccelerationStructureType
}

func (device Device) CreateAccelerationStructureKHR(createInfo *AccelerationStructureCreateInfo) (AccelerationStructure, error) {
	cInfo := (*C.VkAccelerationStructureCreateInfoKHR)(C.calloc(1, C.sizeof_VkAccelerationStructureCreateInfoKHR))
	defer C.free(unsafe.Pointer(cInfo))

	cInfo.sType = C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_CREATE_INFO_KHR
	cInfo.pNext = nil
	cInfo.buffer = createInfo.Buffer.handle
	cInfo.offset = C.VkDeviceSize(createInfo.Offset)
	cInfo.size = C.VkDeviceSize(createInfo.Size)
	cInfo._type = C.VkAccelerationStructureTypeKHR(createInfo.Type)

	var as C.VkAccelerationStructureKHR
	result := C.vkCreateAccelerationStructureKHR(device.handle, cInfo, nil, &as)
	if result != C.VK_SUCCESS {
		return AccelerationStructure{}, Result(result)
	}
	return AccelerationStructure{handle: as}, nil
}

func (device Device) DestroyAccelerationStructureKHR(as AccelerationStructure) {
	C.vkDestroyAccelerationStructureKHR(device.handle, as.handle, nil)
}

// GeometryTrianglesData describes the triangle geometry backing a BLAS
// build (spec.md §4.3: "built from the mesh's vertex+index buffers").
type GeometryTrianglesData struct {
	VertexFormat Format
	VertexData   DeviceAddress
	VertexStride uint64
	MaxVertex    uint32
	IndexType    IndexType
	IndexData    DeviceAddress
	TransformData DeviceAddress
}

// GeometryInstancesData describes the instance-array geometry backing a
// TLAS build (spec.md §4.3: "Ordered sequence of TLASInstance").
type GeometryInstancesData struct {
	ArrayOfPointers bool
	Data            DeviceAddress
}

// AccelerationStructureGeometry is a tagged union mirroring
// VkAccelerationStructureGeometryKHR; exactly one of Triangles/Instances is
// populated, selected by Type.
type AccelerationStructureGeometry struct {
	Type       GeometryTypeKHR
	Flags      GeometryFlagsKHR
	Triangles  GeometryTrianglesData
	Instances  GeometryInstancesData
}

// BuildGeometryInfo mirrors VkAccelerationStructureBuildGeometryInfoKHR,
// minus the dst/scratch addresses which GetAccelerationStructureBuildSizes
// and CmdBuildAccelerationStructures fill in separately.
type BuildGeometryInfo struct {
	Type          AccelerationStructureType
	Flags         BuildAccelerationStructureFlags
	Mode          BuildAccelerationStructureModeKHR
	SrcAccelerationStructure AccelerationStructure
	DstAccelerationStructure AccelerationStructure
	Geometries    []AccelerationStructureGeometry
	ScratchData   DeviceAddress
}

// BuildSizesInfo mirrors VkAccelerationStructureBuildSizesInfoKHR.
type BuildSizesInfo struct {
	AccelerationStructureSize uint64
	UpdateScratchSize         uint64
	BuildScratchSize          uint64
}

func vulkanizeGeometry(g AccelerationStructureGeometry) C.VkAccelerationStructureGeometryKHR {
	var cg C.VkAccelerationStructureGeometryKHR
	cg.sType = C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_GEOMETRY_KHR
	cg.pNext = nil
	cg.geometryType = C.VkGeometryTypeKHR(g.Type)
	cg.flags = C.VkGeometryFlagsKHR(g.Flags)

	switch g.Type {
	case GEOMETRY_TYPE_TRIANGLES_KHR:
		tri := (*C.VkAccelerationStructureGeometryTrianglesDataKHR)(unsafe.Pointer(&cg.geometry[0]))
		tri.sType = C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_GEOMETRY_TRIANGLES_DATA_KHR
		tri.vertexFormat = C.VkFormat(g.Triangles.VertexFormat)
		*(*C.VkDeviceAddress)(unsafe.Pointer(&tri.vertexData)) = C.VkDeviceAddress(g.Triangles.VertexData)
		tri.vertexStride = C.VkDeviceSize(g.Triangles.VertexStride)
		tri.maxVertex = C.uint32_t(g.Triangles.MaxVertex)
		tri.indexType = C.VkIndexType(g.Triangles.IndexType)
		*(*C.VkDeviceAddress)(unsafe.Pointer(&tri.indexData)) = C.VkDeviceAddress(g.Triangles.IndexData)
		*(*C.VkDeviceAddress)(unsafe.Pointer(&tri.transformData)) = C.VkDeviceAddress(g.Triangles.TransformData)
	case GEOMETRY_TYPE_INSTANCES_KHR:
		inst := (*C.VkAccelerationStructureGeometryInstancesDataKHR)(unsafe.Pointer(&cg.geometry[0]))
		inst.sType = C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_GEOMETRY_INSTANCES_DATA_KHR
		if g.Instances.ArrayOfPointers {
			inst.arrayOfPointers = C.VK_TRUE
		}
		*(*C.VkDeviceAddress)(unsafe.Pointer(&inst.data)) = C.VkDeviceAddress(g.Instances.Data)
	}

	return cg
}

// GetAccelerationStructureBuildSizes queries the buffer/scratch sizes a
// build of this geometry set requires, before any buffer is allocated.
func (device Device) GetAccelerationStructureBuildSizes(buildInfo *BuildGeometryInfo, primitiveCounts []uint32) BuildSizesInfo {
	cGeoms := make([]C.VkAccelerationStructureGeometryKHR, len(buildInfo.Geometries))
	for i, g := range buildInfo.Geometries {
		cGeoms[i] = vulkanizeGeometry(g)
	}

	var cBuildInfo C.VkAccelerationStructureBuildGeometryInfoKHR
	cBuildInfo.sType = C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_BUILD_GEOMETRY_INFO_KHR
	cBuildInfo._type = C.VkAccelerationStructureTypeKHR(buildInfo.Type)
	cBuildInfo.flags = C.VkBuildAccelerationStructureFlagsKHR(buildInfo.Flags)
	cBuildInfo.mode = C.VkBuildAccelerationStructureModeKHR(buildInfo.Mode)
	cBuildInfo.geometryCount = C.uint32_t(len(cGeoms))
	if len(cGeoms) > 0 {
		cBuildInfo.pGeometries = &cGeoms[0]
	}

	cCounts := make([]C.uint32_t, len(primitiveCounts))
	for i, c := range primitiveCounts {
		cCounts[i] = C.uint32_t(c)
	}
	var pCounts *C.uint32_t
	if len(cCounts) > 0 {
		pCounts = &cCounts[0]
	}

	var sizeInfo C.VkAccelerationStructureBuildSizesInfoKHR
	sizeInfo.sType = C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_BUILD_SIZES_INFO_KHR

	C.vkGetAccelerationStructureBuildSizesKHR(
		device.handle,
		C.VK_ACCELERATION_STRUCTURE_BUILD_TYPE_DEVICE_KHR,
		&cBuildInfo,
		pCounts,
		&sizeInfo,
	)

	return BuildSizesInfo{
		AccelerationStructureSize: uint64(sizeInfo.accelerationStructureSize),
		UpdateScratchSize:         uint64(sizeInfo.updateScratchSize),
		BuildScratchSize:          uint64(sizeInfo.buildScratchSize),
	}
}

// AccelerationStructureBuildRangeInfo mirrors
// VkAccelerationStructureBuildRangeInfoKHR: one per geometry, describing
// how many primitives of that geometry to consume.
type AccelerationStructureBuildRangeInfo struct {
	PrimitiveCount  uint32
	PrimitiveOffset uint32
	FirstVertex     uint32
	TransformOffset uint32
}

// CmdBuildAccelerationStructures records a build (or, with Mode ==
// BUILD_ACCELERATION_STRUCTURE_MODE_UPDATE_KHR and a non-zero
// SrcAccelerationStructure, a refit) of one or more acceleration
// structures (spec.md §4.3: "may be applied without a full rebuild if the
// underlying backend allows refit").
func (cmd CommandBuffer) CmdBuildAccelerationStructures(buildInfos []BuildGeometryInfo, rangeInfos [][]AccelerationStructureBuildRangeInfo) {
	cBuildInfos := make([]C.VkAccelerationStructureBuildGeometryInfoKHR, len(buildInfos))
	cGeomsPerBuild := make([][]C.VkAccelerationStructureGeometryKHR, len(buildInfos))
	cRangesPerBuild := make([][]C.VkAccelerationStructureBuildRangeInfoKHR, len(buildInfos))
	pRanges := make([]*C.VkAccelerationStructureBuildRangeInfoKHR, len(buildInfos))

	for i, info := range buildInfos {
		cGeomsPerBuild[i] = make([]C.VkAccelerationStructureGeometryKHR, len(info.Geometries))
		for j, g := range info.Geometries {
			cGeomsPerBuild[i][j] = vulkanizeGeometry(g)
		}

		cBuildInfos[i].sType = C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_BUILD_GEOMETRY_INFO_KHR
		cBuildInfos[i]._type = C.VkAccelerationStructureTypeKHR(info.Type)
		cBuildInfos[i].flags = C.VkBuildAccelerationStructureFlagsKHR(info.Flags)
		cBuildInfos[i].mode = C.VkBuildAccelerationStructureModeKHR(info.Mode)
		cBuildInfos[i].srcAccelerationStructure = info.SrcAccelerationStructure.handle
		cBuildInfos[i].dstAccelerationStructure = info.DstAccelerationStructure.handle
		cBuildInfos[i].geometryCount = C.uint32_t(len(cGeomsPerBuild[i]))
		if len(cGeomsPerBuild[i]) > 0 {
			cBuildInfos[i].pGeometries = &cGeomsPerBuild[i][0]
		}
		*(*C.VkDeviceAddress)(unsafe.Pointer(&cBuildInfos[i].scratchData)) = C.VkDeviceAddress(info.ScratchData)

		cRangesPerBuild[i] = make([]C.VkAccelerationStructureBuildRangeInfoKHR, len(rangeInfos[i]))
		for j, r := range rangeInfos[i] {
			cRangesPerBuild[i][j].primitiveCount = C.uint32_t(r.PrimitiveCount)
			cRangesPerBuild[i][j].primitiveOffset = C.uint32_t(r.PrimitiveOffset)
			cRangesPerBuild[i][j].firstVertex = C.uint32_t(r.FirstVertex)
			cRangesPerBuild[i][j].transformOffset = C.uint32_t(r.TransformOffset)
		}
		if len(cRangesPerBuild[i]) > 0 {
			pRanges[i] = &cRangesPerBuild[i][0]
		}
	}

	var pBuildInfos *C.VkAccelerationStructureBuildGeometryInfoKHR
	var pRangeInfos **C.VkAccelerationStructureBuildRangeInfoKHR
	if len(cBuildInfos) > 0 {
		pBuildInfos = &cBuildInfos[0]
		pRangeInfos = &pRanges[0]
	}

	C.vkCmdBuildAccelerationStructuresKHR(cmd.handle, C.uint32_t(len(cBuildInfos)), pBuildInfos, pRangeInfos)
}

// GetAccelerationStructureDeviceAddress returns the GPU-visible address of
// a built acceleration structure, used to reference it from a TLAS
// instance buffer or a bindless slot.
func (device Device) GetAccelerationStructureDeviceAddress(as AccelerationStructure) DeviceAddress {
	var info C.VkAccelerationStructureDeviceAddressInfoKHR
	info.sType = C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_DEVICE_ADDRESS_INFO_KHR
	info.accelerationStructure = as.handle
	addr := C.vkGetAccelerationStructureDeviceAddressKHR(device.handle, &info)
	return DeviceAddress(addr)
}

func (device Device) GetBufferDeviceAddress(buffer Buffer) DeviceAddress {
	var info C.VkBufferDeviceAddressInfo
	info.sType = C.VK_STRUCTURE_TYPE_BUFFER_DEVICE_ADDRESS_INFO
	info.buffer = buffer.handle
	addr := C.vkGetBufferDeviceAddress(device.handle, &info)
	return DeviceAddress(addr)
}

// StridedDeviceAddressRegion mirrors VkStridedDeviceAddressRegionKHR, one
// per shader-binding-table region (raygen/miss/hit/callable).
type StridedDeviceAddressRegion struct {
	DeviceAddress DeviceAddress
	Stride        uint64
	Size          uint64
}

// CmdTraceRays records a ray-tracing dispatch (spec.md §4.5: "Traces
// against TLAS"). width/height/depth mirror the compute-shader-style
// 3D dispatch grid (probeCoord × directionIndex for the cascade tracer).
func (cmd CommandBuffer) CmdTraceRays(raygen, miss, hit, callable StridedDeviceAddressRegion, width, height, depth uint32) {
	toC := func(r StridedDeviceAddressRegion) C.VkStridedDeviceAddressRegionKHR {
		var out C.VkStridedDeviceAddressRegionKHR
		*(*C.VkDeviceAddress)(unsafe.Pointer(&out.deviceAddress)) = C.VkDeviceAddress(r.DeviceAddress)
		out.stride = C.VkDeviceSize(r.Stride)
		out.size = C.VkDeviceSize(r.Size)
		return out
	}

	cRaygen := toC(raygen)
	cMiss := toC(miss)
	cHit := toC(hit)
	cCallable := toC(callable)

	C.vkCmdTraceRaysKHR(cmd.handle, &cRaygen, &cMiss, &cHit, &cCallable,
		C.uint32_t(width), C.uint32_t(height), C.uint32_t(depth))
}

// CmdDispatch records a compute dispatch (spec.md §4.5/§4.6/§4.7: the
// tracer, merger, and integrator are compute passes when not implemented
// as ray-tracing-pipeline shaders).
func (cmd CommandBuffer) CmdDispatch(groupCountX, groupCountY, groupCountZ uint32) {
	C.vkCmdDispatch(cmd.handle, C.uint32_t(groupCountX), C.uint32_t(groupCountY), C.uint32_t(groupCountZ))
}
