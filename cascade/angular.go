package cascade

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ProbePosition2D returns a probe's world position given its grid
// coordinate (spec.md §4.4: "origin + (p−(dims−1)/2)·spacing").
func ProbePosition2D(level CascadeLevel2D, probe [2]int) mgl32.Vec2 {
	cx := float32(level.GridDims[0]-1) / 2
	cy := float32(level.GridDims[1]-1) / 2
	return mgl32.Vec2{
		level.Origin[0] + (float32(probe[0])-cx)*level.Spacing[0],
		level.Origin[1] + (float32(probe[1])-cy)*level.Spacing[1],
	}
}

// ProbePosition3D is the 3D analogue of ProbePosition2D.
func ProbePosition3D(level CascadeLevel3D, probe [3]int) mgl32.Vec3 {
	cx := float32(level.GridDims[0]-1) / 2
	cy := float32(level.GridDims[1]-1) / 2
	cz := float32(level.GridDims[2]-1) / 2
	return mgl32.Vec3{
		level.Origin[0] + (float32(probe[0])-cx)*level.Spacing[0],
		level.Origin[1] + (float32(probe[1])-cy)*level.Spacing[1],
		level.Origin[2] + (float32(probe[2])-cz)*level.Spacing[2],
	}
}

// DirectionFromIndex2D maps a direction index in [0, Q) to a unit vector,
// evenly dividing the full circle. Centralized here so the tracer compute
// shader and any CPU-side verification use the identical formula (Design
// Notes: "centralise as a pure function").
func DirectionFromIndex2D(q uint32, directionIndex uint32) mgl32.Vec2 {
	angle := 2 * math.Pi * (float64(directionIndex) + 0.5) / float64(q)
	return mgl32.Vec2{float32(math.Cos(angle)), float32(math.Sin(angle))}
}

// DirectionFromIndex3D maps a pair of per-axis indices in [0, Q)×[0, Q) to
// a unit vector on the sphere via an equirectangular-style mapping: the
// first axis sweeps azimuth over the full circle, the second sweeps
// inclination over the full polar range. Deterministic, and distinct index
// pairs give distinct directions; the package has no function mapping a
// direction back to its indices. The radiance texture (p,d)↔texel
// bijection required by spec.md §8 is TexelForProbeDirection3D and
// ProbeDirectionForTexel3D.
func DirectionFromIndex3D(q uint32, dx, dy uint32) mgl32.Vec3 {
	azimuth := 2 * math.Pi * (float64(dx) + 0.5) / float64(q)
	polar := math.Pi * (float64(dy) + 0.5) / float64(q)
	sinPolar := math.Sin(polar)
	return mgl32.Vec3{
		float32(sinPolar * math.Cos(azimuth)),
		float32(math.Cos(polar)),
		float32(sinPolar * math.Sin(azimuth)),
	}
}

// TexelForProbeDirection2D computes the radiance texture texel a given
// (probe, directionIndex) pair is stored at, under the tiled layout
// texture width = gridDims.x * Q, height = gridDims.y (spec.md §3:
// "radiance texture layout: a documented bijection (p,d) -> texel").
func TexelForProbeDirection2D(level CascadeLevel2D, probe [2]int, directionIndex uint32) [2]int {
	return [2]int{probe[0]*int(level.AngularResolution) + int(directionIndex), probe[1]}
}

// ProbeDirectionForTexel2D is the exact inverse of TexelForProbeDirection2D.
func ProbeDirectionForTexel2D(level CascadeLevel2D, texel [2]int) (probe [2]int, directionIndex uint32) {
	q := int(level.AngularResolution)
	return [2]int{texel[0] / q, texel[1]}, uint32(texel[0] % q)
}

// TexelForProbeDirection3D is the 3D analogue: the two per-axis direction
// indices tile the X and Z texel axes, with the probe's Y coordinate
// selecting a depth layer (one layer per probe-Y), matching the radiance
// texture's documented (px·Q+dx, pz·Q+dz, py) layout (spec.md §3).
func TexelForProbeDirection3D(level CascadeLevel3D, probe [3]int, dx, dz uint32) [3]int {
	q := int(level.AngularResolution)
	return [3]int{probe[0]*q + int(dx), probe[2]*q + int(dz), probe[1]}
}

// ProbeDirectionForTexel3D is the exact inverse of TexelForProbeDirection3D.
func ProbeDirectionForTexel3D(level CascadeLevel3D, texel [3]int) (probe [3]int, dx, dz uint32) {
	q := int(level.AngularResolution)
	return [3]int{texel[0] / q, texel[2], texel[1] / q}, uint32(texel[0] % q), uint32(texel[1] % q)
}
