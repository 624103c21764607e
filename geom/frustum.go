package geom

import "github.com/go-gl/mathgl/mgl32"

// Frustum is a view frustum derived from a camera's combined
// view-projection matrix, used by the G-buffer pass to cull primitives
// before recording draw calls (spec.md §4.8: "frustum cull via
// Frustum.testBoundingBox"). Grounded on the clip-space corner-vs-plane
// test pattern in the retrieved pack's Gekko3D voxel renderer
// (aabbIntersectsFrustumClip): rather than extracting six plane
// equations, every AABB corner is projected into clip space and tested
// against each of the six w-bounded half-spaces directly.
type Frustum struct {
	viewProj mgl32.Mat4
}

// FrustumFromViewProjection builds a Frustum from a camera's combined
// view-projection matrix.
func FrustumFromViewProjection(viewProj mgl32.Mat4) Frustum {
	return Frustum{viewProj: viewProj}
}

// TestBoundingBox reports whether aabb might be visible in the frustum.
// It is conservative: it only returns false when every corner of aabb
// lies outside the same clip-space plane, so it can produce false
// positives near the frustum boundary but never a false negative.
func (f Frustum) TestBoundingBox(aabb AABB) bool {
	if !aabb.Valid {
		return false
	}

	corners := [8]mgl32.Vec4{
		{aabb.Min[0], aabb.Min[1], aabb.Min[2], 1},
		{aabb.Max[0], aabb.Min[1], aabb.Min[2], 1},
		{aabb.Min[0], aabb.Max[1], aabb.Min[2], 1},
		{aabb.Min[0], aabb.Min[1], aabb.Max[2], 1},
		{aabb.Max[0], aabb.Max[1], aabb.Min[2], 1},
		{aabb.Max[0], aabb.Min[1], aabb.Max[2], 1},
		{aabb.Min[0], aabb.Max[1], aabb.Max[2], 1},
		{aabb.Max[0], aabb.Max[1], aabb.Max[2], 1},
	}

	var clip [8]mgl32.Vec4
	for i, c := range corners {
		clip[i] = f.viewProj.Mul4x1(c)
	}

	// Each plane test: if every corner fails the same half-space
	// inequality, the box is entirely outside that plane and therefore
	// culled.
	planes := []func(c mgl32.Vec4) bool{
		func(c mgl32.Vec4) bool { return c[0] >= -c[3] }, // left
		func(c mgl32.Vec4) bool { return c[0] <= c[3] },  // right
		func(c mgl32.Vec4) bool { return c[1] >= -c[3] }, // bottom
		func(c mgl32.Vec4) bool { return c[1] <= c[3] },  // top
		func(c mgl32.Vec4) bool { return c[2] >= 0 },     // near (Vulkan clip-space z in [0,w])
		func(c mgl32.Vec4) bool { return c[2] <= c[3] },  // far
	}

	for _, inside := range planes {
		allOutside := true
		for _, c := range clip {
			if inside(c) {
				allOutside = false
				break
			}
		}
		if allOutside {
			return false
		}
	}
	return true
}
