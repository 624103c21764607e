package ecs

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/radiant-engine/radiant/geom"
)

func TestCreateEntityStartsWithNoComponents(t *testing.T) {
	w := NewWorld()
	e := w.CreateEntity()
	if !w.EntityExists(e) {
		t.Fatalf("expected newly created entity to exist")
	}
	if w.HasTransform(e) || w.HasMesh(e) || w.HasMaterial(e) {
		t.Fatalf("expected new entity to start with no components")
	}
}

func TestAddTransformOnDanglingEntityPanics(t *testing.T) {
	w := NewWorld()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic when adding a component to a dangling entity")
		}
	}()
	w.AddTransform(999, NewTransform())
}

func TestDeleteEntityRemovesAllComponents(t *testing.T) {
	w := NewWorld()
	e := w.CreateEntity()
	w.AddTransform(e, NewTransform())
	w.AddMesh(e, &Mesh{IsEnabled: true})

	w.DeleteEntity(e)

	if w.EntityExists(e) || w.HasTransform(e) || w.HasMesh(e) {
		t.Fatalf("expected all components removed after DeleteEntity")
	}
}

func TestTransformDirtyLifecycle(t *testing.T) {
	tr := NewTransform()
	if tr.DirtyFlag {
		t.Fatalf("expected a freshly created transform to be clean")
	}

	tr.SetTranslation(mgl32.Vec3{1, 2, 3})
	if !tr.DirtyFlag {
		t.Fatalf("expected SetTranslation to mark the transform dirty")
	}

	const framesInFlight = 3
	for i := 0; i < framesInFlight-1; i++ {
		tr.AdvanceDirty(framesInFlight)
		if !tr.DirtyFlag {
			t.Fatalf("expected transform to stay dirty before %d frames have observed it", framesInFlight)
		}
	}
	tr.AdvanceDirty(framesInFlight)
	if tr.DirtyFlag {
		t.Fatalf("expected dirty flag to clear once %d frames have observed the transform", framesInFlight)
	}
}

func TestQueryGBufferCandidatesExcludesLoadingAndNotReady(t *testing.T) {
	w := NewWorld()

	ready := w.CreateEntity()
	w.AddTransform(ready, NewTransform())
	w.AddBoundingBox(ready, &BoundingBox{Local: geom.NewAABB(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1})})
	w.AddMesh(ready, &Mesh{IsEnabled: true})
	w.AddMaterial(ready, &Material{Ready: true})

	loading := w.CreateEntity()
	w.AddTransform(loading, NewTransform())
	w.AddBoundingBox(loading, &BoundingBox{})
	w.AddMesh(loading, &Mesh{IsEnabled: true, Loading: true})
	w.AddMaterial(loading, &Material{Ready: true})

	notReady := w.CreateEntity()
	w.AddTransform(notReady, NewTransform())
	w.AddBoundingBox(notReady, &BoundingBox{})
	w.AddMesh(notReady, &Mesh{IsEnabled: true})
	w.AddMaterial(notReady, &Material{Ready: false})

	got := w.QueryGBufferCandidates()
	if len(got) != 1 || got[0] != ready {
		t.Fatalf("expected only the ready entity, got %v", got)
	}
}

func TestQueryStaticAndDynamicPrimitivesPartitionMeshes(t *testing.T) {
	w := NewWorld()

	static := w.CreateEntity()
	w.AddMesh(static, &Mesh{IsStatic: true, IsEnabled: true})

	dynamic := w.CreateEntity()
	w.AddMesh(dynamic, &Mesh{IsStatic: false, IsEnabled: true})

	statics := w.QueryStaticPrimitives()
	dynamics := w.QueryDynamicPrimitives()

	if len(statics) != 1 || statics[0] != static {
		t.Fatalf("expected only the static entity in QueryStaticPrimitives, got %v", statics)
	}
	if len(dynamics) != 1 || dynamics[0] != dynamic {
		t.Fatalf("expected only the dynamic entity in QueryDynamicPrimitives, got %v", dynamics)
	}
}
