package bvh

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/radiant-engine/radiant/geom"
)

// TestDynamicTwoBoxQuery exercises spec.md §8 scenario 1 exactly.
func TestDynamicTwoBoxQuery(t *testing.T) {
	d := NewDynamic()
	a := d.Insert(1, geom.NewAABB(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1}))
	b := d.Insert(2, geom.NewAABB(mgl32.Vec3{2, 0, 0}, mgl32.Vec3{3, 1, 1}))
	_ = a
	_ = b

	got := d.QueryOverlap(geom.NewAABB(mgl32.Vec3{0.5, 0.5, 0.5}, mgl32.Vec3{2.5, 0.5, 0.5}))
	if len(got) != 2 {
		t.Fatalf("expected exactly {A,B}, got %v", got)
	}
	if _, ok := got[1]; !ok {
		t.Fatalf("missing A in result %v", got)
	}
	if _, ok := got[2]; !ok {
		t.Fatalf("missing B in result %v", got)
	}

	if h := d.Height(d.Root()); h != 1 {
		t.Fatalf("expected tree height 1 for two leaves, got %d", h)
	}
}

func TestDynamicUpdateReturnsFalseOnStrictContainment(t *testing.T) {
	d := NewDynamic()
	id := d.Insert(1, geom.NewAABB(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{2, 2, 2}))

	// fully inside the existing AABB: no tree change expected.
	if changed := d.Update(id, geom.NewAABB(mgl32.Vec3{0.5, 0.5, 0.5}, mgl32.Vec3{1.5, 1.5, 1.5})); changed {
		t.Fatalf("expected Update to report no change for a strictly contained AABB")
	}

	// outside the existing AABB: tree must update.
	if changed := d.Update(id, geom.NewAABB(mgl32.Vec3{10, 10, 10}, mgl32.Vec3{11, 11, 11})); !changed {
		t.Fatalf("expected Update to report a change once the AABB moved outside containment")
	}
}

func TestDynamicRemoveThenQueryIsEmpty(t *testing.T) {
	d := NewDynamic()
	id := d.Insert(7, geom.NewAABB(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1}))
	d.Remove(id)

	got := d.QueryOverlap(geom.NewAABB(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1}))
	if len(got) != 0 {
		t.Fatalf("expected empty tree after removing the only leaf, got %v", got)
	}
}

// TestDynamicMixedSequenceStaysBalancedAndExact runs a randomized mix of
// insert/remove/update and checks the two invariants from spec.md §8:
// heights stay AVL-balanced, and queryOverlap matches a brute-force
// reference over the currently-live leaf set.
func TestDynamicMixedSequenceStaysBalancedAndExact(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	d := NewDynamic()

	type liveLeaf struct {
		nodeID int
		aabb   geom.AABB
	}
	live := map[EntityID]liveLeaf{}
	nextEntity := EntityID(1)

	randomAABB := func() geom.AABB {
		x := rng.Float32() * 20
		y := rng.Float32() * 20
		z := rng.Float32() * 20
		s := 0.5 + rng.Float32()*2
		return geom.NewAABB(mgl32.Vec3{x, y, z}, mgl32.Vec3{x + s, y + s, z + s})
	}

	for step := 0; step < 500; step++ {
		op := rng.Intn(3)
		switch {
		case op == 0 || len(live) == 0:
			aabb := randomAABB()
			e := nextEntity
			nextEntity++
			id := d.Insert(e, aabb)
			live[e] = liveLeaf{nodeID: id, aabb: aabb}
		case op == 1:
			for e, l := range live {
				d.Remove(l.nodeID)
				delete(live, e)
				break
			}
		default:
			for e, l := range live {
				newAABB := randomAABB()
				d.Update(l.nodeID, newAABB)
				live[e] = liveLeaf{nodeID: l.nodeID, aabb: newAABB}
				break
			}
		}

		if !d.IsBalanced() {
			t.Fatalf("tree unbalanced after step %d", step)
		}
	}

	query := geom.NewAABB(mgl32.Vec3{5, 5, 5}, mgl32.Vec3{10, 10, 10})
	got := d.QueryOverlap(query)

	want := map[EntityID]struct{}{}
	for e, l := range live {
		if geom.OverlapsInclusive(query, l.aabb) {
			want[e] = struct{}{}
		}
	}

	if len(got) != len(want) {
		t.Fatalf("queryOverlap mismatch: got %d entities, want %d (got=%v want=%v)", len(got), len(want), got, want)
	}
	for e := range want {
		if _, ok := got[e]; !ok {
			t.Fatalf("queryOverlap missing entity %d", e)
		}
	}
}
