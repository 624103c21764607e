package scene

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/radiant-engine/radiant/ecs"
	"github.com/radiant-engine/radiant/vk"
)

// gpuLightStride is sizeof(GPULight) in the tracer's std430 LightBuffer:
// vec3 position at 0 (12, padded to 16), vec3 color at 16 (12), intensity
// at 28, range at 32, type at 36, padded to 48 by the struct's 16-byte
// alignment.
const gpuLightStride = 48

// lightBuffer uploads the scene's active lights into a bindless storage
// buffer the cascade tracer reads for its direct-lighting term (spec.md
// §4.5 step 5). Grounded on accel.TLAS's instance-buffer upload: a
// host-visible coherent buffer rewritten in place, regrown only when the
// active light count exceeds the current capacity.
type lightBuffer struct {
	buffer   vk.Buffer
	memory   vk.DeviceMemory
	capacity int
}

// Update re-encodes every active Light entity's (position, color,
// intensity, range, type) and uploads it, returning the buffer handle and
// byte size for BindLightBuffer. A scene with no active lights uploads
// nothing and returns the zero Buffer; the tracer's lightCount push
// constant is 0 in that case so the shader never indexes it.
func (lb *lightBuffer) Update(device vk.Device, physicalDevice vk.PhysicalDevice, world *ecs.World) (vk.Buffer, uint64, error) {
	entities := world.QueryLights()
	if len(entities) == 0 {
		return vk.Buffer{}, 0, nil
	}

	encoded := make([]byte, gpuLightStride*len(entities))
	for i, e := range entities {
		light := world.GetLight(e)
		row := encoded[i*gpuLightStride : (i+1)*gpuLightStride]

		var pos mgl32.Vec3
		if t := world.GetTransform(e); t != nil {
			m := t.Matrix()
			pos = mgl32.Vec3{m[12], m[13], m[14]}
		}
		putVec3(row[0:], pos)
		putVec3(row[16:], light.Color)
		binary.LittleEndian.PutUint32(row[28:], math.Float32bits(light.Intensity))
		binary.LittleEndian.PutUint32(row[32:], math.Float32bits(light.Range))
		binary.LittleEndian.PutUint32(row[36:], uint32(light.Type))
	}

	if lb.capacity < len(entities) {
		if lb.capacity > 0 {
			device.FreeMemory(lb.memory)
			device.DestroyBuffer(lb.buffer)
		}
		buffer, memory, err := device.CreateBufferWithMemory(
			uint64(len(encoded)),
			vk.BUFFER_USAGE_STORAGE_BUFFER_BIT,
			vk.MEMORY_PROPERTY_HOST_VISIBLE_BIT|vk.MEMORY_PROPERTY_HOST_COHERENT_BIT,
			physicalDevice,
		)
		if err != nil {
			return vk.Buffer{}, 0, err
		}
		lb.buffer = buffer
		lb.memory = memory
		lb.capacity = len(entities)
	}

	if err := device.UploadToBuffer(lb.memory, encoded); err != nil {
		return vk.Buffer{}, 0, err
	}
	return lb.buffer, uint64(len(encoded)), nil
}

// Destroy releases the light buffer's backing memory, if any was ever
// allocated.
func (lb *lightBuffer) Destroy(device vk.Device) {
	if lb.capacity == 0 {
		return
	}
	device.FreeMemory(lb.memory)
	device.DestroyBuffer(lb.buffer)
}

func putVec3(dst []byte, v mgl32.Vec3) {
	binary.LittleEndian.PutUint32(dst[0:], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(dst[4:], math.Float32bits(v[1]))
	binary.LittleEndian.PutUint32(dst[8:], math.Float32bits(v[2]))
}
