package cascade

import (
	"math"
	"testing"

	"github.com/radiant-engine/radiant/vk"
)

// TestIntegrationWeight2DIsPositiveAndGrowsSmoother checks IntegrationWeight2D
// stays within the midpoint-rule error bound of the continuous integral 2:
// cos is concave over the illuminated half, so the discrete sum overshoots
// 2 by at most π³/(6Q²) (spec.md §8: the weight is a pure function of Q(0)).
func TestIntegrationWeight2DIsPositiveAndGrowsSmoother(t *testing.T) {
	for _, q := range []uint32{4, 8, 16, 32, 64} {
		w := IntegrationWeight2D(q)
		if w <= 0 {
			t.Fatalf("Q=%d: expected a positive integration weight, got %v", q, w)
		}
		bound := 2 + math.Pi*math.Pi*math.Pi/(6*float64(q)*float64(q))
		if float64(w) > bound {
			t.Fatalf("Q=%d: weight %v exceeds the midpoint-rule bound %v", q, w, bound)
		}
	}
}

// TestIntegrationWeight2DConvergesToContinuousIntegral checks that as Q
// grows, the discrete cosine-weighted sum approaches the continuous
// integral ∫cos(θ)dθ over the illuminated half = 2.
func TestIntegrationWeight2DConvergesToContinuousIntegral(t *testing.T) {
	coarse := IntegrationWeight2D(8)
	fine := IntegrationWeight2D(256)
	const continuousIntegral = 2.0
	coarseErr := abs32(coarse - continuousIntegral)
	fineErr := abs32(fine - continuousIntegral)
	if fineErr >= coarseErr {
		t.Fatalf("expected finer angular resolution to converge closer to %v: coarse err=%v, fine err=%v", continuousIntegral, coarseErr, fineErr)
	}
}

// TestIntegrationWeight2DIsPureFunctionOfQ checks repeated calls with the
// same Q are deterministic (no hidden state / randomness), which is the
// property the constant-replacement test in spec.md §8 relies on.
func TestIntegrationWeight2DIsPureFunctionOfQ(t *testing.T) {
	a := IntegrationWeight2D(16)
	b := IntegrationWeight2D(16)
	if a != b {
		t.Fatalf("expected IntegrationWeight2D to be deterministic, got %v and %v", a, b)
	}
}

func TestIntegrationWeight2DZeroQIsZero(t *testing.T) {
	if w := IntegrationWeight2D(0); w != 0 {
		t.Fatalf("expected zero weight for Q=0, got %v", w)
	}
}

func TestIntegrationWeight3DIsPositive(t *testing.T) {
	for _, q := range []uint32{4, 8, 16} {
		w := IntegrationWeight3D(q)
		if w <= 0 {
			t.Fatalf("Q=%d: expected a positive integration weight, got %v", q, w)
		}
	}
}

// TestDispatchSkipsLevelsWithoutIrradianceTexture confirms the integrator
// is a no-op for any level beyond cascade 0, matching spec.md §4.7's
// "cascade-0-only" restriction. Exercised at the Go level since a real
// Dispatch call requires a GPU; this checks the guard that would prevent
// one from ever being recorded.
func TestDispatchSkipsLevelsWithoutIrradianceTexture(t *testing.T) {
	level := CascadeLevel2D{HasIrradianceTexture: false}
	in := &Integrator{}
	// A zero-value Integrator has no real pipeline/layout; calling any
	// Vulkan command through it would be unsafe. Dispatch returning
	// without touching cmd/globalSet proves the HasIrradianceTexture guard
	// fired before any such call.
	in.Dispatch(vk.CommandBuffer{}, vk.DescriptorSet{}, level)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
