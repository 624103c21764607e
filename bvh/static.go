package bvh

import (
	"sort"

	"github.com/radiant-engine/radiant/geom"
)

// descentConstant is the SAH Kt term (spec.md §4.1, §9 Open Question
// resolved in DESIGN.md: 0.125, the value used by
// original_source/.../BVH_SAH.cpp).
const descentConstant = 0.125

// Node is one entry of a built Static BVH. Internal nodes carry the union
// AABB of their children; leaves carry one EntityID. A node is a leaf iff
// both child indices are the sentinel (spec.md §3 invariant a).
type Node struct {
	AABB                  geom.AABB
	EntityID              EntityID
	LeftChild, RightChild int
}

// IsLeaf reports whether n is a leaf node.
func (n Node) IsLeaf() bool { return n.LeftChild == sentinel && n.RightChild == sentinel }

// Static is a surface-area-heuristic BVH built once from an immovable
// primitive set and never mutated afterward (spec.md §4.1).
type Static struct {
	nodes []Node
}

// Build constructs the node array from primitives. Build on an empty
// input yields an empty tree, not an error (spec.md §4.1 Failure).
// Deterministic for a given input order: ties break toward the axis of
// greatest parent extent, then toward the lower original primitive index.
func (s *Static) Build(primitives []Leaf) {
	s.nodes = s.nodes[:0]
	if len(primitives) == 0 {
		return
	}

	// recursiveBuild mutates a working copy so repeated Build calls never
	// observe the caller's slice reordered out from under them.
	work := make([]indexedLeaf, len(primitives))
	for i, p := range primitives {
		work[i] = indexedLeaf{Leaf: p, origIndex: i}
	}

	s.nodes = make([]Node, 0, 2*len(primitives))
	s.recursiveBuild(work)
}

// indexedLeaf carries the primitive's original position for the
// lower-index tie-break rule.
type indexedLeaf struct {
	Leaf
	origIndex int
}

func (s *Static) recursiveBuild(prims []indexedLeaf) int {
	nodeIndex := len(s.nodes)
	s.nodes = append(s.nodes, Node{LeftChild: sentinel, RightChild: sentinel})

	nodeAABB := geom.Invalid()
	for _, p := range prims {
		nodeAABB = geom.Union(nodeAABB, p.AABB)
	}

	n := len(prims)
	parentArea := nodeAABB.SurfaceArea()

	bestCost := float32(-1)
	var bestSplitAt int
	var bestExtent float32
	var bestOrder []indexedLeaf
	haveSplit := false

	extents := nodeAABB.Extents()

	for axis := 0; axis < 3; axis++ {
		ordered := append([]indexedLeaf(nil), prims...)
		sort.SliceStable(ordered, func(i, j int) bool {
			return centroidComponent(ordered[i].AABB, axis) < centroidComponent(ordered[j].AABB, axis)
		})

		leftAreas := make([]float32, n)
		leftBox := geom.Invalid()
		for i := 0; i < n; i++ {
			leftBox = geom.Union(leftBox, ordered[i].AABB)
			leftAreas[i] = leftBox.SurfaceArea()
		}

		rightBox := geom.Invalid()
		var rightAreas = make([]float32, n)
		for i := n - 1; i >= 0; i-- {
			rightBox = geom.Union(rightBox, ordered[i].AABB)
			rightAreas[i] = rightBox.SurfaceArea()
		}

		// Candidate split after index i means left=[0..i], right=[i+1..n-1].
		for i := 0; i < n-1; i++ {
			leftCount := float32(i + 1)
			rightCount := float32(n - i - 1)
			var cost float32
			if parentArea > 0 {
				cost = descentConstant + (leftAreas[i]*leftCount+rightAreas[i+1]*rightCount)/parentArea
			} else {
				cost = descentConstant
			}

			better := !haveSplit || cost < bestCost
			if !better && cost == bestCost {
				// Tie-break: axis with greatest parent extent wins; if
				// that's also tied, lower split index (which already
				// favors lower original primitive indices because ties
				// are evaluated axis-by-axis in increasing axis order
				// with a stable sort).
				if extents[axis] > bestExtent {
					better = true
				}
			}
			if better {
				haveSplit = true
				bestCost = cost
				bestSplitAt = i
				bestExtent = extents[axis]
				bestOrder = ordered
			}
		}
	}

	leafCost := float32(n)
	if n <= 1 || !haveSplit || bestCost >= leafCost {
		// Leaf: tie-break among equal entities by lowest original index
		// (only matters when n==1 there's nothing to tie-break).
		leafPrim := prims[0]
		for _, p := range prims[1:] {
			if p.origIndex < leafPrim.origIndex {
				leafPrim = p
			}
		}
		s.nodes[nodeIndex] = Node{AABB: nodeAABB, EntityID: leafPrim.EntityID, LeftChild: sentinel, RightChild: sentinel}
		return nodeIndex
	}

	leftPrims := bestOrder[:bestSplitAt+1]
	rightPrims := bestOrder[bestSplitAt+1:]

	leftIdx := s.recursiveBuild(leftPrims)
	rightIdx := s.recursiveBuild(rightPrims)

	s.nodes[nodeIndex] = Node{AABB: nodeAABB, EntityID: nullEntity, LeftChild: leftIdx, RightChild: rightIdx}
	return nodeIndex
}

func centroidComponent(b geom.AABB, axis int) float32 {
	return b.Min[axis] + b.Max[axis]
}

// QueryOverlap returns every leaf entity whose AABB overlaps aabb.
// Duplicate leaves collapse to unique ids; the null id is filtered.
func (s *Static) QueryOverlap(aabb geom.AABB) map[EntityID]struct{} {
	result := make(map[EntityID]struct{})
	if len(s.nodes) == 0 {
		return result
	}
	s.queryRecursive(0, aabb, result)
	return result
}

func (s *Static) queryRecursive(nodeIndex int, aabb geom.AABB, out map[EntityID]struct{}) {
	n := s.nodes[nodeIndex]
	if !geom.Overlaps(aabb, n.AABB) {
		return
	}
	if n.IsLeaf() {
		if n.EntityID != nullEntity {
			out[n.EntityID] = struct{}{}
		}
		return
	}
	s.queryRecursive(n.LeftChild, aabb, out)
	s.queryRecursive(n.RightChild, aabb, out)
}

// Nodes exposes the built node array for inspection/testing. Index 0 is
// the root after a non-empty build.
func (s *Static) Nodes() []Node { return s.nodes }

// Empty reports whether the tree has no nodes.
func (s *Static) Empty() bool { return len(s.nodes) == 0 }
