package scene

import (
	"reflect"
	"testing"

	"github.com/radiant-engine/radiant/ecs"
)

func newStaticMeshEntity(w *ecs.World) ecs.Entity {
	e := w.CreateEntity()
	w.AddMesh(e, &ecs.Mesh{IsStatic: true, IsEnabled: true})
	return e
}

func TestCollectStaticPrimitivesOrdersSiblingsByHierarchy(t *testing.T) {
	w := ecs.NewWorld()
	root := newStaticMeshEntity(w)
	childA := newStaticMeshEntity(w)
	childB := newStaticMeshEntity(w)

	w.AddHierarchy(root, &ecs.Hierarchy{Children: []ecs.Entity{childA, childB}})
	w.AddHierarchy(childA, &ecs.Hierarchy{Parent: root})
	w.AddHierarchy(childB, &ecs.Hierarchy{Parent: root})

	got := CollectStaticPrimitives(w)
	want := []ecs.Entity{root, childA, childB}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestCollectStaticPrimitivesIncludesUnparentedEntities(t *testing.T) {
	w := ecs.NewWorld()
	lone := newStaticMeshEntity(w)

	got := CollectStaticPrimitives(w)
	if len(got) != 1 || got[0] != lone {
		t.Fatalf("expected [%d], got %v", lone, got)
	}
}

func TestCollectDynamicPrimitivesExcludesStaticMeshes(t *testing.T) {
	w := ecs.NewWorld()
	static := newStaticMeshEntity(w)
	dynamic := w.CreateEntity()
	w.AddMesh(dynamic, &ecs.Mesh{IsStatic: false, IsEnabled: true})

	got := CollectDynamicPrimitives(w)
	if len(got) != 1 || got[0] != dynamic {
		t.Fatalf("expected only the dynamic entity %d, got %v (static entity was %d)", dynamic, got, static)
	}
}
