package accel

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/radiant-engine/radiant/bindless"
)

// These tests exercise TLAS instance bookkeeping only — Build talks to a
// real GPU via cgo and isn't exercised here (spec.md §8: "instance
// bookkeeping state machine, no real GPU").

func TestNewTLASStartsUnbuiltAndNotReady(t *testing.T) {
	tlas := NewTLAS(bindless.Index(3))
	if tlas.IsBuilt() {
		t.Fatalf("expected a freshly created TLAS to be unbuilt")
	}
	if tlas.Ready() {
		t.Fatalf("expected Ready to be false before any Build (spec.md §4.3 ordering rule)")
	}
	if tlas.InstanceCount() != 0 {
		t.Fatalf("expected zero instances initially")
	}
	if tlas.BindlessIndex() != bindless.Index(3) {
		t.Fatalf("expected the bindless index passed at construction to be stable")
	}
}

func TestAddInstanceGrowsInstanceCountWithoutBuilding(t *testing.T) {
	tlas := NewTLAS(bindless.Index(0))
	tlas.AddInstance(nil, mgl32.Ident4(), 1)
	tlas.AddInstance(nil, mgl32.Ident4(), 2)

	if tlas.InstanceCount() != 2 {
		t.Fatalf("expected 2 instances after two AddInstance calls, got %d", tlas.InstanceCount())
	}
	if tlas.IsBuilt() {
		t.Fatalf("AddInstance must not mark the TLAS built (spec.md §4.3: 'must be followed by build')")
	}
}

func TestUpdateInstancesPatchesTransformAtIndex(t *testing.T) {
	tlas := NewTLAS(bindless.Index(0))
	tlas.AddInstance(nil, mgl32.Ident4(), 1)
	tlas.AddInstance(nil, mgl32.Ident4(), 2)

	moved := mgl32.Translate3D(1, 2, 3)
	tlas.UpdateInstances([]struct {
		Index     int
		Transform mgl32.Mat4
	}{{Index: 1, Transform: moved}})

	if tlas.instances[1].Transform != moved {
		t.Fatalf("expected instance 1's transform to be patched")
	}
	if tlas.instances[0].Transform != mgl32.Ident4() {
		t.Fatalf("expected instance 0's transform to remain untouched")
	}
	if len(tlas.dirty) != 1 || tlas.dirty[0] != 1 {
		t.Fatalf("expected dirty set {1}, got %v", tlas.dirty)
	}
}

func TestUpdateInstancesIgnoresOutOfRangeIndex(t *testing.T) {
	tlas := NewTLAS(bindless.Index(0))
	tlas.AddInstance(nil, mgl32.Ident4(), 1)

	tlas.UpdateInstances([]struct {
		Index     int
		Transform mgl32.Mat4
	}{{Index: 5, Transform: mgl32.Translate3D(9, 9, 9)}})

	if len(tlas.dirty) != 0 {
		t.Fatalf("expected out-of-range updates to be silently ignored, got dirty=%v", tlas.dirty)
	}
}

func TestReadyRequiresBothBuiltAndNonEmpty(t *testing.T) {
	tlas := NewTLAS(bindless.Index(0))
	tlas.AddInstance(nil, mgl32.Ident4(), 1)
	// Simulate what Build would record without touching the GPU.
	tlas.built = true
	if !tlas.Ready() {
		t.Fatalf("expected Ready once built with a non-empty instance set")
	}

	tlas.instances = nil
	if tlas.Ready() {
		t.Fatalf("expected Ready to be false once the instance set is empty, even if built")
	}
}
