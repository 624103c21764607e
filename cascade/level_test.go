package cascade

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// TestBuild2DScenario3CascadeGeometry reproduces spec.md §8 scenario 3
// exactly: baseRange=1, rangeExp=4, baseSpacing=0.5, gridExp=2,
// baseGridDims=(64,64), baseQ=4, angularExp=2, numCascades=4.
func TestBuild2DScenario3CascadeGeometry(t *testing.T) {
	params := BuildParams2D{
		BaseRange:    1,
		RangeExp:     4,
		BaseSpacing:  0.5,
		GridExp:      2,
		BaseGridDims: [2]int{64, 64},
		BaseQ:        4,
		AngularExp:   2,
		NumCascades:  4,
	}

	levels, err := Build2D(params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(levels) != 4 {
		t.Fatalf("expected 4 levels, got %d", len(levels))
	}

	wantQ := []uint32{4, 8, 16, 32}
	wantSpacing := []float32{0.5, 1, 2, 4}
	wantGridDims := [][2]int{{64, 64}, {32, 32}, {16, 16}, {8, 8}}
	wantDMax := []float32{1, 4, 16, 64}

	for i, l := range levels {
		if l.AngularResolution != wantQ[i] {
			t.Errorf("level %d: Q = %d, want %d", i, l.AngularResolution, wantQ[i])
		}
		if l.Spacing[0] != wantSpacing[i] || l.Spacing[1] != wantSpacing[i] {
			t.Errorf("level %d: spacing = %v, want %v", i, l.Spacing, wantSpacing[i])
		}
		if l.GridDims != wantGridDims[i] {
			t.Errorf("level %d: gridDims = %v, want %v", i, l.GridDims, wantGridDims[i])
		}
		if l.DMax != wantDMax[i] {
			t.Errorf("level %d: dmax = %v, want %v", i, l.DMax, wantDMax[i])
		}
	}
}

// TestDMinChainsToPriorDMax checks the cascade ladder invariant dmin(i+1) ==
// dmax(i), ignoring the overlap term added to the tracer's effective tmax
// (spec.md §8).
func TestDMinChainsToPriorDMax(t *testing.T) {
	levels, err := Build2D(BuildParams2D{
		BaseRange: 1, RangeExp: 4, BaseSpacing: 0.5, GridExp: 2,
		BaseGridDims: [2]int{64, 64}, BaseQ: 4, AngularExp: 2, NumCascades: 4,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if levels[0].DMin != 0 {
		t.Fatalf("expected level 0's dmin to be 0, got %v", levels[0].DMin)
	}
	for i := 1; i < len(levels); i++ {
		if levels[i].DMin != levels[i-1].DMax {
			t.Errorf("level %d: dmin = %v, want dmax(%d) = %v", i, levels[i].DMin, i-1, levels[i-1].DMax)
		}
	}
}

// TestTraceMaxDistanceExtendsDMaxByOverlap confirms the overlap term is
// added on top of, not instead of, the chain value used for dmin/dmax.
func TestTraceMaxDistanceExtendsDMaxByOverlap(t *testing.T) {
	levels, err := Build2D(BuildParams2D{
		BaseRange: 1, RangeExp: 4, BaseSpacing: 0.5, GridExp: 2,
		BaseGridDims: [2]int{64, 64}, BaseQ: 4, AngularExp: 2, NumCascades: 4,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := levels[0].TraceMaxDistance(&levels[1])
	if got <= levels[0].DMax {
		t.Fatalf("expected TraceMaxDistance to exceed the chain dmax, got %v <= %v", got, levels[0].DMax)
	}
	if last := levels[len(levels)-1]; last.TraceMaxDistance(nil) != last.DMax {
		t.Fatalf("expected the coarsest level with no next level to have no overlap extension")
	}
}

// TestGridDimsRoundToZeroClampToOne exercises spec.md §8's boundary
// behavior: a gridExp large enough to round a dimension to zero clamps to 1
// instead of producing a degenerate/zero grid.
func TestGridDimsRoundToZeroClampToOne(t *testing.T) {
	levels, err := Build2D(BuildParams2D{
		BaseRange: 1, RangeExp: 4, BaseSpacing: 0.5, GridExp: 100,
		BaseGridDims: [2]int{4, 4}, BaseQ: 4, AngularExp: 2, NumCascades: 3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, l := range levels {
		if l.GridDims[0] < 1 || l.GridDims[1] < 1 {
			t.Errorf("level %d: gridDims = %v, want both dims clamped to >= 1", i, l.GridDims)
		}
	}
}

// TestNumCascadesOneProducesSingleLevel exercises spec.md §8's boundary
// behavior that numCascades=1 degrades every downstream pass that iterates
// cascade pairs (the merger in particular) to a no-op.
func TestNumCascadesOneProducesSingleLevel(t *testing.T) {
	levels, err := Build2D(BuildParams2D{
		BaseRange: 1, RangeExp: 4, BaseSpacing: 0.5, GridExp: 2,
		BaseGridDims: [2]int{64, 64}, BaseQ: 4, AngularExp: 2, NumCascades: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(levels) != 1 {
		t.Fatalf("expected exactly 1 level, got %d", len(levels))
	}
	if !levels[0].HasIrradianceTexture {
		t.Fatalf("expected the sole level to carry the irradiance texture")
	}
}

func TestBuildParams2DValidateRejectsTooManyCascades(t *testing.T) {
	params := BuildParams2D{
		BaseRange: 1, RangeExp: 4, BaseSpacing: 0.5, GridExp: 2,
		BaseGridDims: [2]int{64, 64}, BaseQ: 4, AngularExp: 2, NumCascades: MaxCascades + 1,
	}
	if err := params.Validate(); err == nil {
		t.Fatalf("expected an error when numCascades exceeds MaxCascades")
	}
}

func TestBuildParams2DValidateRejectsNonPositiveInputs(t *testing.T) {
	base := BuildParams2D{
		BaseRange: 1, RangeExp: 4, BaseSpacing: 0.5, GridExp: 2,
		BaseGridDims: [2]int{64, 64}, BaseQ: 4, AngularExp: 2, NumCascades: 2,
	}

	zeroRange := base
	zeroRange.BaseRange = 0
	if err := zeroRange.Validate(); err == nil {
		t.Fatalf("expected an error for a non-positive BaseRange")
	}

	zeroGrid := base
	zeroGrid.BaseGridDims = [2]int{0, 64}
	if err := zeroGrid.Validate(); err == nil {
		t.Fatalf("expected an error for a zero grid dimension")
	}
}

func TestBuild3DTotalDirectionsIsQSquared(t *testing.T) {
	levels, err := Build3D(BuildParams3D{
		BaseRange: 1, RangeExp: 4, BaseSpacing: 0.5, GridExp: 2,
		BaseGridDims: [3]int{64, 64, 64}, BaseQ: 4, AngularExp: 2, NumCascades: 4,
		Origin: mgl32.Vec3{0, 0, 0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, l := range levels {
		if l.TotalDirections() != l.AngularResolution*l.AngularResolution {
			t.Errorf("level %d: TotalDirections = %d, want Q*Q = %d", i, l.TotalDirections(), l.AngularResolution*l.AngularResolution)
		}
	}
}

func TestBuildParams3DValidateRejectsAngularOverflow(t *testing.T) {
	params := BuildParams3D{
		BaseRange: 1, RangeExp: 4, BaseSpacing: 0.5, GridExp: 2,
		BaseGridDims: [3]int{64, 64, 64}, BaseQ: 1 << 30, AngularExp: 1 << 30, NumCascades: 4,
	}
	if err := params.Validate(); err == nil {
		t.Fatalf("expected ErrAngularConvention for an overflowing angular progression")
	}
}
