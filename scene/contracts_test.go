package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/radiant-engine/radiant/ecs"
	"github.com/radiant-engine/radiant/geom"
)

func TestWorldAdapterTransformReturnsFalseForMissingComponent(t *testing.T) {
	w := ecs.NewWorld()
	e := w.CreateEntity()
	a := NewWorldAdapter(w)

	if _, ok := a.Transform(e); ok {
		t.Fatal("expected Transform to report false for an entity with no Transform component")
	}
}

func TestWorldAdapterTransformReturnsMatrixWhenPresent(t *testing.T) {
	w := ecs.NewWorld()
	e := w.CreateEntity()
	tr := ecs.NewTransform()
	tr.SetTranslation(mgl32.Vec3{1, 2, 3})
	w.AddTransform(e, tr)

	a := NewWorldAdapter(w)
	m, ok := a.Transform(e)
	if !ok {
		t.Fatal("expected Transform to report true")
	}
	if m != tr.Matrix() {
		t.Fatal("expected the adapter's matrix to match the component's cached matrix")
	}
}

func TestWorldAdapterMaterialExcludesNotReady(t *testing.T) {
	w := ecs.NewWorld()
	e := w.CreateEntity()
	w.AddMaterial(e, &ecs.Material{Ready: false})

	a := NewWorldAdapter(w)
	if _, ok := a.Material(e); ok {
		t.Fatal("expected a not-ready material to be reported as absent")
	}
}

func TestWorldAdapterMainCameraFindsIsMainEntity(t *testing.T) {
	w := ecs.NewWorld()
	other := w.CreateEntity()
	w.AddTransform(other, ecs.NewTransform())
	w.AddCamera(other, &ecs.Camera{IsMain: false})

	main := w.CreateEntity()
	w.AddTransform(main, ecs.NewTransform())
	w.AddCamera(main, &ecs.Camera{IsMain: true, FOV: 1, Aspect: 1, Near: 0.1, Far: 100})

	a := NewWorldAdapter(w)
	got, ok := a.MainCamera()
	if !ok || got != main {
		t.Fatalf("expected main camera entity %d, got %d (ok=%v)", main, got, ok)
	}

	if _, ok := a.Frustum(got); !ok {
		t.Fatal("expected Frustum to succeed for the main camera entity")
	}
}

func TestWorldAdapterFrustumFalseWithoutCameraOrTransform(t *testing.T) {
	w := ecs.NewWorld()
	e := w.CreateEntity()
	a := NewWorldAdapter(w)

	if f, ok := a.Frustum(e); ok || f != (geom.Frustum{}) {
		t.Fatal("expected Frustum to report false for an entity with no Camera/Transform")
	}
}
