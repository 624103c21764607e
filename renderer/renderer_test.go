package renderer

import (
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/radiant-engine/radiant/bindless"
	"github.com/radiant-engine/radiant/bvh"
	"github.com/radiant-engine/radiant/ecs"
	"github.com/radiant-engine/radiant/geom"
	"github.com/radiant-engine/radiant/scene"
	"github.com/radiant-engine/radiant/vk"
)

// newTestRenderer builds a Renderer with only the CPU-side fields
// CullAndBuild touches — no Vulkan device is created or called, matching
// the no-real-GPU style of accel/tlas_test.go's build/update state machine
// tests.
func newTestRenderer() *Renderer {
	return &Renderer{
		dynamicIndex:  bvh.NewDynamic(),
		dynamicNodeOf: make(map[ecs.Entity]int),
	}
}

func newTestScene() *scene.Scene {
	world := ecs.NewWorld()
	return scene.New(world, vk.Device{}, vk.PhysicalDevice{}, bindless.Index(0), bindless.Index(1))
}

func addStaticMesh(w *ecs.World, min, max mgl32.Vec3) ecs.Entity {
	e := w.CreateEntity()
	w.AddMesh(e, &ecs.Mesh{IsStatic: true, IsEnabled: true})
	w.AddBoundingBox(e, &ecs.BoundingBox{World: geom.NewAABB(min, max)})
	return e
}

func addDynamicMesh(w *ecs.World, min, max mgl32.Vec3) ecs.Entity {
	e := w.CreateEntity()
	w.AddMesh(e, &ecs.Mesh{IsStatic: false, IsEnabled: true})
	w.AddBoundingBox(e, &ecs.BoundingBox{World: geom.NewAABB(min, max)})
	return e
}

func addMainCamera(w *ecs.World) ecs.Entity {
	e := w.CreateEntity()
	w.AddTransform(e, ecs.NewTransform())
	w.AddCamera(e, &ecs.Camera{IsMain: true, FOV: 1.2, Aspect: 1.6, Near: 0.1, Far: 1000})
	return e
}

func TestCullAndBuildPopulatesStaticIndex(t *testing.T) {
	sc := newTestScene()
	addStaticMesh(sc.World, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1})
	addMainCamera(sc.World)

	r := newTestRenderer()
	if _, err := r.CullAndBuild(context.Background(), sc); err != nil {
		t.Fatalf("CullAndBuild returned error: %v", err)
	}

	if r.staticIndex.Empty() {
		t.Fatal("expected the static index to be non-empty after CullAndBuild")
	}
}

func TestCullAndBuildInsertsDynamicEntityOnce(t *testing.T) {
	sc := newTestScene()
	e := addDynamicMesh(sc.World, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1})
	addMainCamera(sc.World)

	r := newTestRenderer()
	if _, err := r.CullAndBuild(context.Background(), sc); err != nil {
		t.Fatalf("CullAndBuild returned error: %v", err)
	}

	nodeID, tracked := r.dynamicNodeOf[e]
	if !tracked {
		t.Fatal("expected the dynamic entity to be tracked after its first CullAndBuild")
	}
	if r.dynamicIndex.Root() == -1 {
		t.Fatal("expected the dynamic BVH to have a root after one insert")
	}
	if got := r.dynamicIndex.NodeAABB(nodeID); !got.Valid {
		t.Fatal("expected the tracked node's AABB to be valid")
	}
}

func TestCullAndBuildReplaysRepeatedMutationAsUpdateNotInsert(t *testing.T) {
	sc := newTestScene()
	e := addDynamicMesh(sc.World, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1})
	addMainCamera(sc.World)

	r := newTestRenderer()
	if _, err := r.CullAndBuild(context.Background(), sc); err != nil {
		t.Fatalf("first CullAndBuild returned error: %v", err)
	}
	firstNodeID := r.dynamicNodeOf[e]

	// Move the entity's bounding box and rerun — this must refit the
	// existing node, not allocate a new one, or a long-running renderer
	// would leak a node into the DBVH every single frame.
	box := sc.World.GetBoundingBox(e)
	box.World = geom.NewAABB(mgl32.Vec3{5, 5, 5}, mgl32.Vec3{6, 6, 6})

	if _, err := r.CullAndBuild(context.Background(), sc); err != nil {
		t.Fatalf("second CullAndBuild returned error: %v", err)
	}

	if len(r.dynamicNodeOf) != 1 {
		t.Fatalf("expected exactly 1 tracked dynamic entity, got %d", len(r.dynamicNodeOf))
	}
	if secondNodeID := r.dynamicNodeOf[e]; secondNodeID != firstNodeID {
		t.Fatalf("expected the same node id to be reused across frames, got %d then %d", firstNodeID, secondNodeID)
	}

	got := r.dynamicIndex.NodeAABB(firstNodeID)
	want := geom.NewAABB(mgl32.Vec3{5, 5, 5}, mgl32.Vec3{6, 6, 6})
	if got != want {
		t.Fatalf("expected the node's AABB to reflect the moved bounding box, got %+v", got)
	}
}

func TestCullAndBuildCullsAgainstMainCameraFrustum(t *testing.T) {
	sc := newTestScene()
	visible := addStaticMesh(sc.World, mgl32.Vec3{0, 0, -5}, mgl32.Vec3{1, 1, -4})
	sc.World.AddTransform(visible, ecs.NewTransform())
	sc.World.AddMaterial(visible, &ecs.Material{Ready: true})

	behind := addStaticMesh(sc.World, mgl32.Vec3{0, 0, 50}, mgl32.Vec3{1, 1, 51})
	sc.World.AddTransform(behind, ecs.NewTransform())
	sc.World.AddMaterial(behind, &ecs.Material{Ready: true})

	addMainCamera(sc.World)

	r := newTestRenderer()
	result, err := r.CullAndBuild(context.Background(), sc)
	if err != nil {
		t.Fatalf("CullAndBuild returned error: %v", err)
	}

	found := false
	for _, e := range result.visible {
		if e == visible {
			found = true
		}
		if e == behind {
			t.Fatal("expected the entity behind the camera to be culled")
		}
	}
	if !found {
		t.Fatal("expected the entity in front of the camera to survive culling")
	}
}

func TestCullAndBuildWithoutMainCameraYieldsNoVisible(t *testing.T) {
	sc := newTestScene()
	addStaticMesh(sc.World, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1})

	r := newTestRenderer()
	result, err := r.CullAndBuild(context.Background(), sc)
	if err != nil {
		t.Fatalf("CullAndBuild returned error: %v", err)
	}
	if len(result.visible) != 0 {
		t.Fatalf("expected no visible entities without a main camera, got %d", len(result.visible))
	}
}

func TestRenderFramePreconditionViolationOnNilScene(t *testing.T) {
	r := newTestRenderer()
	err := r.RenderFrame(context.Background(), nil, vk.ImageView{})
	if err == nil {
		t.Fatal("expected an error for a nil scene")
	}
	if _, ok := err.(*PreconditionViolation); !ok {
		t.Fatalf("expected *PreconditionViolation, got %T", err)
	}
}

func TestErrorKindsFormatAndUnwrap(t *testing.T) {
	alloc := &AllocationError{Reason: "create fence", Err: context.DeadlineExceeded}
	if alloc.Unwrap() != context.DeadlineExceeded {
		t.Fatal("expected AllocationError.Unwrap to return the wrapped error")
	}
	if alloc.Error() == "" {
		t.Fatal("expected a non-empty AllocationError message")
	}

	lost := &SwapchainLostError{Stage: "submit", Result: context.Canceled}
	if lost.Unwrap() != context.Canceled {
		t.Fatal("expected SwapchainLostError.Unwrap to return the wrapped error")
	}

	precondition := &PreconditionViolation{Reason: "bad config"}
	if precondition.Error() == "" {
		t.Fatal("expected a non-empty PreconditionViolation message")
	}
}
