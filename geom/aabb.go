// Package geom provides the bounding-volume algebra shared by the static
// BVH, the dynamic BVH, and the acceleration-structure layer.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis-aligned bounding box with an explicit validity bit.
// The zero value is invalid (Valid == false) and must not be unioned or
// queried against until set from real geometry.
type AABB struct {
	Min, Max mgl32.Vec3
	Valid    bool
}

// Invalid returns the canonical empty AABB.
func Invalid() AABB {
	return AABB{}
}

// NewAABB builds a valid AABB from a min/max pair. The caller is
// responsible for min <= max componentwise; callers that can't guarantee
// that should use FromPoints instead.
func NewAABB(min, max mgl32.Vec3) AABB {
	return AABB{Min: min, Max: max, Valid: true}
}

// FromPoints builds the AABB containing every point in pts. Returns an
// invalid AABB for an empty slice.
func FromPoints(pts []mgl32.Vec3) AABB {
	if len(pts) == 0 {
		return Invalid()
	}
	b := AABB{Min: pts[0], Max: pts[0], Valid: true}
	for _, p := range pts[1:] {
		b = b.ExpandPoint(p)
	}
	return b
}

// ExpandPoint returns the AABB grown to contain p.
func (b AABB) ExpandPoint(p mgl32.Vec3) AABB {
	if !b.Valid {
		return AABB{Min: p, Max: p, Valid: true}
	}
	return AABB{Min: componentMin(b.Min, p), Max: componentMax(b.Max, p), Valid: true}
}

// Union returns the smallest AABB containing both a and b. An invalid
// operand is ignored; Union of two invalid boxes is invalid.
func Union(a, b AABB) AABB {
	switch {
	case !a.Valid && !b.Valid:
		return Invalid()
	case !a.Valid:
		return b
	case !b.Valid:
		return a
	default:
		return AABB{Min: componentMin(a.Min, b.Min), Max: componentMax(a.Max, b.Max), Valid: true}
	}
}

// Center returns the midpoint of the box.
func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Extents returns max - min (the full size along each axis).
func (b AABB) Extents() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// SurfaceArea returns the surface area used by the SAH cost model and by
// DBVH insertion-cost evaluation. An invalid box has zero area.
func (b AABB) SurfaceArea() float32 {
	if !b.Valid {
		return 0
	}
	e := b.Extents()
	return 2 * (e[0]*e[1] + e[0]*e[2] + e[1]*e[2])
}

// ContainsPoint reports whether p lies within the box, inclusive on both
// ends.
func (b AABB) ContainsPoint(p mgl32.Vec3) bool {
	if !b.Valid {
		return false
	}
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

// Contains reports whether other is fully enclosed by b. Used by
// DBVH.Update's "still fits" fast path.
func (b AABB) Contains(other AABB) bool {
	if !b.Valid || !other.Valid {
		return false
	}
	return other.Min[0] >= b.Min[0] && other.Max[0] <= b.Max[0] &&
		other.Min[1] >= b.Min[1] && other.Max[1] <= b.Max[1] &&
		other.Min[2] >= b.Min[2] && other.Max[2] <= b.Max[2]
}

// Overlaps reports whether a and b share any volume, half-open on each
// axis as spec.md §3 requires for queries ("half-open on each axis").
func Overlaps(a, b AABB) bool {
	if !a.Valid || !b.Valid {
		return false
	}
	return a.Min[0] < b.Max[0] && b.Min[0] < a.Max[0] &&
		a.Min[1] < b.Max[1] && b.Min[1] < a.Max[1] &&
		a.Min[2] < b.Max[2] && b.Min[2] < a.Max[2]
}

// OverlapsInclusive is the closed-interval overlap test used by the
// dynamic BVH (grounded on original_source's DBVH.cpp, which tests with
// >= / <= rather than half-open bounds, so that a box touching another's
// face still registers as an overlap for query purposes).
func OverlapsInclusive(a, b AABB) bool {
	if !a.Valid || !b.Valid {
		return false
	}
	return a.Max[0] >= b.Min[0] && a.Min[0] <= b.Max[0] &&
		a.Max[1] >= b.Min[1] && a.Min[1] <= b.Max[1] &&
		a.Max[2] >= b.Min[2] && a.Min[2] <= b.Max[2]
}

// Transform returns the exact AABB of the transformed oriented box,
// computed via the 8-corner method (spec.md §3: "exact AABB of
// transformed OBB").
func (b AABB) Transform(m mgl32.Mat4) AABB {
	if !b.Valid {
		return Invalid()
	}
	corners := [8]mgl32.Vec3{
		{b.Min[0], b.Min[1], b.Min[2]},
		{b.Max[0], b.Min[1], b.Min[2]},
		{b.Min[0], b.Max[1], b.Min[2]},
		{b.Max[0], b.Max[1], b.Min[2]},
		{b.Min[0], b.Min[1], b.Max[2]},
		{b.Max[0], b.Min[1], b.Max[2]},
		{b.Min[0], b.Max[1], b.Max[2]},
		{b.Max[0], b.Max[1], b.Max[2]},
	}
	out := Invalid()
	for _, c := range corners {
		wp := m.Mul4x1(mgl32.Vec4{c[0], c[1], c[2], 1})
		out = out.ExpandPoint(mgl32.Vec3{wp[0], wp[1], wp[2]})
	}
	return out
}

func componentMin(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{
		float32(math.Min(float64(a[0]), float64(b[0]))),
		float32(math.Min(float64(a[1]), float64(b[1]))),
		float32(math.Min(float64(a[2]), float64(b[2]))),
	}
}

func componentMax(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{
		float32(math.Max(float64(a[0]), float64(b[0]))),
		float32(math.Max(float64(a[1]), float64(b[1]))),
		float32(math.Max(float64(a[2]), float64(b[2]))),
	}
}
