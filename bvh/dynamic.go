package bvh

import "github.com/radiant-engine/radiant/geom"

// DynamicNode is one entry in a Dynamic BVH node pool. Free nodes chain
// through RightChild as an intrusive free-list, matching
// original_source/.../DBVH.cpp's reuse of rightChildIndex for the free
// list.
type DynamicNode struct {
	AABB                  geom.AABB
	EntityID              EntityID
	Parent                int
	LeftChild, RightChild int
	Height                int
}

func (n DynamicNode) isLeaf() bool { return n.LeftChild == sentinel }

// Dynamic is a self-balancing BVH supporting incremental insert, remove,
// and update of movable geometry (spec.md §4.2).
type Dynamic struct {
	nodes    []DynamicNode
	root     int
	freeList int
	count    int
}

// NewDynamic returns an empty dynamic BVH with an initial node pool,
// matching the original's capacity-16 starting allocation.
func NewDynamic() *Dynamic {
	d := &Dynamic{}
	d.reset(16)
	return d
}

func (d *Dynamic) reset(capacity int) {
	d.nodes = make([]DynamicNode, capacity)
	for i := 0; i < capacity-1; i++ {
		d.nodes[i] = DynamicNode{RightChild: i + 1, Height: -1}
	}
	if capacity > 0 {
		d.nodes[capacity-1] = DynamicNode{RightChild: sentinel, Height: -1}
	}
	d.root = sentinel
	d.freeList = 0
	d.count = 0
}

// Clear empties the tree, keeping the same node-pool idiom as a fresh
// Dynamic (spec.md §4.2).
func (d *Dynamic) Clear() {
	d.reset(len(d.nodes))
}

func (d *Dynamic) allocate() int {
	if d.freeList == sentinel {
		oldCap := len(d.nodes)
		newCap := oldCap * 2
		if newCap == 0 {
			newCap = 16
		}
		grown := make([]DynamicNode, newCap)
		copy(grown, d.nodes)
		for i := oldCap; i < newCap-1; i++ {
			grown[i] = DynamicNode{RightChild: i + 1, Height: -1}
		}
		grown[newCap-1] = DynamicNode{RightChild: sentinel, Height: -1}
		d.nodes = grown
		d.freeList = oldCap
	}

	id := d.freeList
	d.freeList = d.nodes[id].RightChild
	d.nodes[id] = DynamicNode{Parent: sentinel, LeftChild: sentinel, RightChild: sentinel, Height: 0}
	d.count++
	return id
}

func (d *Dynamic) free(id int) {
	d.nodes[id] = DynamicNode{RightChild: d.freeList, Height: -1}
	d.freeList = id
	d.count--
}

// Insert adds entity with the given world AABB and returns its node id.
func (d *Dynamic) Insert(entity EntityID, aabb geom.AABB) int {
	id := d.allocate()
	d.nodes[id].AABB = aabb
	d.nodes[id].EntityID = entity
	d.insertLeaf(id)
	return id
}

// Remove deletes the node with the given id. Removing an id not
// currently held by this tree is undefined behaviour of the caller
// (spec.md §4.2 Failure) — callers must validate via their own
// entity->node map first.
func (d *Dynamic) Remove(nodeID int) {
	d.removeLeaf(nodeID)
	d.free(nodeID)
}

// Update replaces nodeID's AABB. Returns false (no tree change) when the
// existing node AABB still contains the new one — spec.md §4.2's
// reference behavior is strict containment, no fat-AABB margin (see
// DESIGN.md Open Question 2).
func (d *Dynamic) Update(nodeID int, aabb geom.AABB) bool {
	if d.nodes[nodeID].AABB.Contains(aabb) {
		return false
	}
	d.removeLeaf(nodeID)
	d.nodes[nodeID].AABB = aabb
	d.insertLeaf(nodeID)
	return true
}

func combine(a, b geom.AABB) geom.AABB { return geom.Union(a, b) }

func (d *Dynamic) insertLeaf(leaf int) {
	if d.root == sentinel {
		d.root = leaf
		d.nodes[leaf].Parent = sentinel
		return
	}

	leafAABB := d.nodes[leaf].AABB
	index := d.root
	for !d.nodes[index].isLeaf() {
		left := d.nodes[index].LeftChild
		right := d.nodes[index].RightChild

		area := d.nodes[index].AABB.SurfaceArea()
		combined := combine(d.nodes[index].AABB, leafAABB)
		combinedArea := combined.SurfaceArea()

		cost := 2 * combinedArea
		inheritance := 2 * (combinedArea - area)

		costLeft := d.descendCost(left, leafAABB, inheritance)
		costRight := d.descendCost(right, leafAABB, inheritance)

		if cost < costLeft && cost < costRight {
			break
		}
		if costLeft < costRight {
			index = left
		} else {
			index = right
		}
	}

	sibling := index
	oldParent := d.nodes[sibling].Parent
	newParent := d.allocate()
	d.nodes[newParent].Parent = oldParent

	parentAABB := combine(leafAABB, d.nodes[sibling].AABB)
	d.nodes[newParent].AABB = parentAABB
	d.nodes[newParent].Height = d.nodes[sibling].Height + 1
	d.nodes[newParent].LeftChild = sibling
	d.nodes[newParent].RightChild = leaf
	d.nodes[sibling].Parent = newParent
	d.nodes[leaf].Parent = newParent

	if oldParent != sentinel {
		if d.nodes[oldParent].LeftChild == sibling {
			d.nodes[oldParent].LeftChild = newParent
		} else {
			d.nodes[oldParent].RightChild = newParent
		}
	} else {
		d.root = newParent
	}

	for idx := d.nodes[leaf].Parent; idx != sentinel; idx = d.nodes[idx].Parent {
		d.balance(idx)

		left := d.nodes[idx].LeftChild
		right := d.nodes[idx].RightChild
		d.nodes[idx].Height = 1 + maxInt(d.nodes[left].Height, d.nodes[right].Height)
		d.nodes[idx].AABB = combine(d.nodes[left].AABB, d.nodes[right].AABB)
	}
}

// descendCost is the cost of pushing the new leaf down into child,
// matching DBVH::insertLeaf's costLeft/costRight computation.
func (d *Dynamic) descendCost(child int, leafAABB geom.AABB, inheritance float32) float32 {
	childAABB := d.nodes[child].AABB
	if d.nodes[child].isLeaf() {
		return combine(leafAABB, childAABB).SurfaceArea() + inheritance
	}
	oldArea := childAABB.SurfaceArea()
	newArea := combine(leafAABB, childAABB).SurfaceArea()
	return (newArea - oldArea) + inheritance
}

func (d *Dynamic) removeLeaf(leaf int) {
	if leaf == d.root {
		d.root = sentinel
		return
	}

	parent := d.nodes[leaf].Parent
	grandParent := d.nodes[parent].Parent
	var sibling int
	if d.nodes[parent].LeftChild == leaf {
		sibling = d.nodes[parent].RightChild
	} else {
		sibling = d.nodes[parent].LeftChild
	}

	if grandParent != sentinel {
		if d.nodes[grandParent].LeftChild == parent {
			d.nodes[grandParent].LeftChild = sibling
		} else {
			d.nodes[grandParent].RightChild = sibling
		}
		d.nodes[sibling].Parent = grandParent
		d.free(parent)

		for idx := grandParent; idx != sentinel; idx = d.nodes[idx].Parent {
			d.balance(idx)

			left := d.nodes[idx].LeftChild
			right := d.nodes[idx].RightChild
			d.nodes[idx].Height = 1 + maxInt(d.nodes[left].Height, d.nodes[right].Height)
			d.nodes[idx].AABB = combine(d.nodes[left].AABB, d.nodes[right].AABB)
		}
	} else {
		d.root = sibling
		d.nodes[sibling].Parent = sentinel
		d.free(parent)
	}
}

// balance applies at most one single/double rotation at node iA,
// matching DBVH::balance exactly (including which grandchild is chosen
// on a double rotation: the deeper of the two).
func (d *Dynamic) balance(iA int) {
	a := d.nodes[iA]
	if a.isLeaf() || a.Height < 2 {
		return
	}

	iB := a.LeftChild
	iC := a.RightChild
	b := d.nodes[iB]
	c := d.nodes[iC]

	bal := c.Height - b.Height

	switch {
	case bal > 1:
		iF := c.LeftChild
		iG := c.RightChild
		f := d.nodes[iF]
		g := d.nodes[iG]

		d.nodes[iC].LeftChild = iA
		d.nodes[iC].Parent = a.Parent
		d.nodes[iA].Parent = iC

		if a.Parent != sentinel {
			if d.nodes[a.Parent].LeftChild == iA {
				d.nodes[a.Parent].LeftChild = iC
			} else {
				d.nodes[a.Parent].RightChild = iC
			}
		} else {
			d.root = iC
		}

		if f.Height > g.Height {
			d.nodes[iC].RightChild = iF
			d.nodes[iA].RightChild = iG
			d.nodes[iG].Parent = iA

			d.nodes[iA].AABB = combine(b.AABB, g.AABB)
			d.nodes[iC].AABB = combine(d.nodes[iA].AABB, f.AABB)
			d.nodes[iA].Height = 1 + maxInt(b.Height, g.Height)
			d.nodes[iC].Height = 1 + maxInt(d.nodes[iA].Height, f.Height)
		} else {
			d.nodes[iC].RightChild = iG
			d.nodes[iA].RightChild = iF
			d.nodes[iF].Parent = iA

			d.nodes[iA].AABB = combine(b.AABB, f.AABB)
			d.nodes[iC].AABB = combine(d.nodes[iA].AABB, g.AABB)
			d.nodes[iA].Height = 1 + maxInt(b.Height, f.Height)
			d.nodes[iC].Height = 1 + maxInt(d.nodes[iA].Height, g.Height)
		}

	case bal < -1:
		iD := b.LeftChild
		iE := b.RightChild
		dNode := d.nodes[iD]
		e := d.nodes[iE]

		d.nodes[iB].RightChild = iA
		d.nodes[iB].Parent = a.Parent
		d.nodes[iA].Parent = iB

		if a.Parent != sentinel {
			if d.nodes[a.Parent].LeftChild == iA {
				d.nodes[a.Parent].LeftChild = iB
			} else {
				d.nodes[a.Parent].RightChild = iB
			}
		} else {
			d.root = iB
		}

		if dNode.Height > e.Height {
			d.nodes[iB].LeftChild = iD
			d.nodes[iA].LeftChild = iE
			d.nodes[iE].Parent = iA

			d.nodes[iA].AABB = combine(c.AABB, e.AABB)
			d.nodes[iB].AABB = combine(d.nodes[iA].AABB, dNode.AABB)
			d.nodes[iA].Height = 1 + maxInt(c.Height, e.Height)
			d.nodes[iB].Height = 1 + maxInt(d.nodes[iA].Height, dNode.Height)
		} else {
			d.nodes[iB].LeftChild = iE
			d.nodes[iA].LeftChild = iD
			d.nodes[iD].Parent = iA

			d.nodes[iA].AABB = combine(c.AABB, dNode.AABB)
			d.nodes[iB].AABB = combine(d.nodes[iA].AABB, e.AABB)
			d.nodes[iA].Height = 1 + maxInt(c.Height, dNode.Height)
			d.nodes[iB].Height = 1 + maxInt(d.nodes[iA].Height, e.Height)
		}
	}
}

// QueryOverlap returns every currently-inserted leaf entity whose AABB
// overlaps aabb, using the closed-interval test (spec.md §4.2; see
// geom.OverlapsInclusive).
func (d *Dynamic) QueryOverlap(aabb geom.AABB) map[EntityID]struct{} {
	result := make(map[EntityID]struct{})
	if d.root == sentinel {
		return result
	}
	d.queryRecursive(d.root, aabb, result)
	return result
}

func (d *Dynamic) queryRecursive(nodeID int, aabb geom.AABB, out map[EntityID]struct{}) {
	n := d.nodes[nodeID]
	if !geom.OverlapsInclusive(aabb, n.AABB) {
		return
	}
	if n.isLeaf() {
		if n.EntityID != nullEntity {
			out[n.EntityID] = struct{}{}
		}
		return
	}
	d.queryRecursive(n.LeftChild, aabb, out)
	d.queryRecursive(n.RightChild, aabb, out)
}

// Height returns the height of nodeID, for invariant checks in tests.
func (d *Dynamic) Height(nodeID int) int { return d.nodes[nodeID].Height }

// Root returns the root node id, or sentinel (-1) if empty.
func (d *Dynamic) Root() int { return d.root }

// NodeAABB returns the current AABB stored at nodeID.
func (d *Dynamic) NodeAABB(nodeID int) geom.AABB { return d.nodes[nodeID].AABB }

// IsBalanced reports whether every internal node under root satisfies
// |h(left) - h(right)| <= 1 (spec.md §8 invariant).
func (d *Dynamic) IsBalanced() bool {
	if d.root == sentinel {
		return true
	}
	return d.isBalancedAt(d.root)
}

func (d *Dynamic) isBalancedAt(nodeID int) bool {
	n := d.nodes[nodeID]
	if n.isLeaf() {
		return true
	}
	lh := d.nodes[n.LeftChild].Height
	rh := d.nodes[n.RightChild].Height
	diff := lh - rh
	if diff < 0 {
		diff = -diff
	}
	if diff > 1 {
		return false
	}
	return d.isBalancedAt(n.LeftChild) && d.isBalancedAt(n.RightChild)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
