// Package bvh implements the spatial acceleration index of spec.md §4.1/4.2:
// a static, SAH-built BVH for immovable geometry and a dynamic,
// self-balancing BVH (DBVH) for movable geometry. Grounded on
// original_source/Engine/src/AccelerationStructures/CPU/BVH/{BVH_SAH,DBVH}.cpp.
package bvh

import "github.com/radiant-engine/radiant/geom"

// EntityID identifies the owning entity of a leaf. The zero value is the
// null id (spec.md §3: "invalid/null ids are filtered").
type EntityID uint64

const nullEntity EntityID = 0

// sentinel marks an absent child/parent link, matching the original's -1.
const sentinel = -1

// Leaf is one input primitive to Static.Build.
type Leaf struct {
	AABB     geom.AABB
	EntityID EntityID
}
