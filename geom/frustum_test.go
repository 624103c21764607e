package geom

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func testViewProj() mgl32.Mat4 {
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	proj := mgl32.Perspective(mgl32.DegToRad(60), 1.0, 0.1, 100)
	return proj.Mul4(view)
}

func TestFrustumAcceptsBoxAtOrigin(t *testing.T) {
	f := FrustumFromViewProjection(testViewProj())
	box := NewAABB(mgl32.Vec3{-0.5, -0.5, -0.5}, mgl32.Vec3{0.5, 0.5, 0.5})
	if !f.TestBoundingBox(box) {
		t.Fatal("expected a box at the origin, facing the camera, to pass the frustum test")
	}
}

func TestFrustumRejectsBoxFarBehindCamera(t *testing.T) {
	f := FrustumFromViewProjection(testViewProj())
	box := NewAABB(mgl32.Vec3{-0.5, -0.5, 900}, mgl32.Vec3{0.5, 0.5, 901})
	if f.TestBoundingBox(box) {
		t.Fatal("expected a box far behind the camera to be culled")
	}
}

func TestFrustumRejectsBoxFarToTheSide(t *testing.T) {
	f := FrustumFromViewProjection(testViewProj())
	box := NewAABB(mgl32.Vec3{500, -0.5, -0.5}, mgl32.Vec3{501, 0.5, 0.5})
	if f.TestBoundingBox(box) {
		t.Fatal("expected a box far to the side of the frustum to be culled")
	}
}

func TestFrustumRejectsInvalidBox(t *testing.T) {
	f := FrustumFromViewProjection(testViewProj())
	if f.TestBoundingBox(Invalid()) {
		t.Fatal("expected an invalid AABB to never pass the frustum test")
	}
}
