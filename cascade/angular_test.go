package cascade

import "testing"

// TestTexelForProbeDirection2DIsBijective checks that every (probe,
// directionIndex) pair in range maps to a distinct texel and that the
// inverse recovers the original pair exactly (spec.md §8).
func TestTexelForProbeDirection2DIsBijective(t *testing.T) {
	level := CascadeLevel2D{GridDims: [2]int{4, 3}, AngularResolution: 5}

	seen := make(map[[2]int]bool)
	for px := 0; px < level.GridDims[0]; px++ {
		for py := 0; py < level.GridDims[1]; py++ {
			for d := uint32(0); d < level.AngularResolution; d++ {
				texel := TexelForProbeDirection2D(level, [2]int{px, py}, d)
				if seen[texel] {
					t.Fatalf("texel %v reused by probe (%d,%d) direction %d", texel, px, py, d)
				}
				seen[texel] = true

				gotProbe, gotDir := ProbeDirectionForTexel2D(level, texel)
				if gotProbe != [2]int{px, py} || gotDir != d {
					t.Fatalf("inverse mismatch: probe=(%d,%d) dir=%d -> texel=%v -> probe=%v dir=%d",
						px, py, d, texel, gotProbe, gotDir)
				}
			}
		}
	}
}

// TestTexelForProbeDirection3DIsBijective is the 3D analogue.
func TestTexelForProbeDirection3DIsBijective(t *testing.T) {
	level := CascadeLevel3D{GridDims: [3]int{2, 2, 2}, AngularResolution: 4}

	seen := make(map[[3]int]bool)
	for pz := 0; pz < level.GridDims[2]; pz++ {
		for px := 0; px < level.GridDims[0]; px++ {
			for py := 0; py < level.GridDims[1]; py++ {
				for dx := uint32(0); dx < level.AngularResolution; dx++ {
					for dy := uint32(0); dy < level.AngularResolution; dy++ {
						probe := [3]int{px, py, pz}
						texel := TexelForProbeDirection3D(level, probe, dx, dy)
						if seen[texel] {
							t.Fatalf("texel %v reused", texel)
						}
						seen[texel] = true

						gotProbe, gotDx, gotDy := ProbeDirectionForTexel3D(level, texel)
						if gotProbe != probe || gotDx != dx || gotDy != dy {
							t.Fatalf("inverse mismatch: probe=%v dx=%d dy=%d -> texel=%v -> probe=%v dx=%d dy=%d",
								probe, dx, dy, texel, gotProbe, gotDx, gotDy)
						}
					}
				}
			}
		}
	}
}

// TestDirectionFromIndex2DProducesUnitVectors checks the angular mapping
// stays on the unit circle for every index.
func TestDirectionFromIndex2DProducesUnitVectors(t *testing.T) {
	const q = 8
	for d := uint32(0); d < q; d++ {
		dir := DirectionFromIndex2D(q, d)
		length := dir[0]*dir[0] + dir[1]*dir[1]
		if length < 0.999 || length > 1.001 {
			t.Errorf("direction %d: length^2 = %v, want ~1", d, length)
		}
	}
}

// TestDirectionFromIndex3DProducesUnitVectors checks the angular mapping
// stays on the unit sphere for every (dx,dy) pair.
func TestDirectionFromIndex3DProducesUnitVectors(t *testing.T) {
	const q = 6
	for dx := uint32(0); dx < q; dx++ {
		for dy := uint32(0); dy < q; dy++ {
			dir := DirectionFromIndex3D(q, dx, dy)
			length := dir[0]*dir[0] + dir[1]*dir[1] + dir[2]*dir[2]
			if length < 0.999 || length > 1.001 {
				t.Errorf("direction (%d,%d): length^2 = %v, want ~1", dx, dy, length)
			}
		}
	}
}

// TestProbePosition2DCentersGridOnOrigin checks the probe-ray formula
// places the grid's midpoint at Origin.
func TestProbePosition2DCentersGridOnOrigin(t *testing.T) {
	level := CascadeLevel2D{GridDims: [2]int{5, 5}, Spacing: [2]float32{2, 2}}
	center := ProbePosition2D(level, [2]int{2, 2})
	if center[0] != 0 || center[1] != 0 {
		t.Fatalf("expected the grid midpoint probe to sit at the origin, got %v", center)
	}

	corner := ProbePosition2D(level, [2]int{0, 0})
	if corner[0] != -4 || corner[1] != -4 {
		t.Fatalf("expected the (0,0) probe at -4,-4 for a 5-wide grid with spacing 2, got %v", corner)
	}
}
