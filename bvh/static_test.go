package bvh

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/radiant-engine/radiant/geom"
)

func unitCubeAt(x float32) geom.AABB {
	return geom.NewAABB(mgl32.Vec3{x, 0, 0}, mgl32.Vec3{x + 1, 1, 1})
}

func TestStaticBuildEmpty(t *testing.T) {
	var s Static
	s.Build(nil)
	if !s.Empty() {
		t.Fatalf("expected empty tree from empty input")
	}
	if got := s.QueryOverlap(geom.NewAABB(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1})); len(got) != 0 {
		t.Fatalf("expected empty query result, got %v", got)
	}
}

func TestStaticBuildSinglePrimitiveIsRoot(t *testing.T) {
	var s Static
	s.Build([]Leaf{{AABB: unitCubeAt(0), EntityID: 42}})
	if len(s.Nodes()) != 1 {
		t.Fatalf("expected a single root leaf, got %d nodes", len(s.Nodes()))
	}
	if !s.Nodes()[0].IsLeaf() || s.Nodes()[0].EntityID != 42 {
		t.Fatalf("expected root to be the single leaf with entity 42, got %+v", s.Nodes()[0])
	}
}

// TestStaticEightCubesSplitAxisX exercises spec.md §8 scenario 2: eight
// unit cubes centred on x=0..7 split on X into {0..3}|{4..7}.
func TestStaticEightCubesSplitAxisX(t *testing.T) {
	var prims []Leaf
	for i := 0; i < 8; i++ {
		prims = append(prims, Leaf{AABB: unitCubeAt(float32(i)), EntityID: EntityID(i + 1)})
	}

	var s Static
	s.Build(prims)

	root := s.Nodes()[0]
	if root.IsLeaf() {
		t.Fatalf("root should not be a leaf for 8 primitives")
	}

	leftEntities := collectLeafEntities(&s, root.LeftChild)
	rightEntities := collectLeafEntities(&s, root.RightChild)

	wantLeft := map[EntityID]bool{1: true, 2: true, 3: true, 4: true}
	wantRight := map[EntityID]bool{5: true, 6: true, 7: true, 8: true}

	if !sameSet(leftEntities, wantLeft) || !sameSet(rightEntities, wantRight) {
		t.Fatalf("expected split {0..3}|{4..7}, got left=%v right=%v", leftEntities, rightEntities)
	}
}

func collectLeafEntities(s *Static, nodeIndex int) map[EntityID]bool {
	n := s.Nodes()[nodeIndex]
	if n.IsLeaf() {
		return map[EntityID]bool{n.EntityID: true}
	}
	out := map[EntityID]bool{}
	for k := range collectLeafEntities(s, n.LeftChild) {
		out[k] = true
	}
	for k := range collectLeafEntities(s, n.RightChild) {
		out[k] = true
	}
	return out
}

func sameSet(a, b map[EntityID]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func TestStaticNodeAABBContainsLeaves(t *testing.T) {
	var prims []Leaf
	for i := 0; i < 8; i++ {
		prims = append(prims, Leaf{AABB: unitCubeAt(float32(i)), EntityID: EntityID(i + 1)})
	}
	var s Static
	s.Build(prims)
	root := s.Nodes()[0]

	for _, n := range s.Nodes() {
		if !n.IsLeaf() {
			continue
		}
		if !root.AABB.Contains(n.AABB) {
			t.Fatalf("leaf %+v not contained in root AABB %+v", n, root.AABB)
		}
	}
}

func TestStaticQueryOverlapExactness(t *testing.T) {
	var prims []Leaf
	for i := 0; i < 8; i++ {
		prims = append(prims, Leaf{AABB: unitCubeAt(float32(i)), EntityID: EntityID(i + 1)})
	}
	var s Static
	s.Build(prims)

	query := geom.NewAABB(mgl32.Vec3{2.5, 0, 0}, mgl32.Vec3{4.5, 1, 1})
	got := s.QueryOverlap(query)

	want := map[EntityID]struct{}{3: {}, 4: {}, 5: {}}
	if len(got) != len(want) {
		t.Fatalf("query overlap = %v, want %v", got, want)
	}
	for k := range want {
		if _, ok := got[k]; !ok {
			t.Fatalf("missing entity %d in %v", k, got)
		}
	}
}
