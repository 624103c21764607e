// Package cascade implements the Radiance-Cascade GI engine of spec.md
// §4.4-§4.7: the per-level cascade geometry, the compute tracer, the
// cross-cascade merger, and the cascade-0 irradiance integrator. Grounded
// on original_source/Engine/src/Renderer/GI/RadianceCascades2D/
// RadianceCascades2D.cpp and the 3D sibling RadianceCascades.cpp.
package cascade

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/radiant-engine/radiant/bindless"
)

// MaxCascades is the reference cap on numCascades (spec.md §4.4:
// "numCascades ≤ N_max (=4 reference)"), matching MAX_CASCADES in
// original_source.
const MaxCascades = 4

// ErrAngularConvention is returned by BuildParams3D.Validate when the
// derived per-level angular resolution would not be usable consistently as
// a per-hemisphere-axis count (spec.md §9 Open Question, resolved in
// SPEC_FULL.md §4.4: 3D's AngularResolution field is Q, the per-axis count;
// the total per-probe direction count is Q×Q).
var ErrAngularConvention = errors.New("cascade: angular resolution must be usable as a per-axis count (Q), not a total direction count")

// ErrTooManyCascades is returned when NumCascades exceeds MaxCascades.
var ErrTooManyCascades = errors.New("cascade: numCascades exceeds MaxCascades")

// ErrNonPositiveInput is returned when a build parameter that must be
// strictly positive is zero or negative (spec.md §3: "Values must be
// strictly positive").
var ErrNonPositiveInput = errors.New("cascade: build parameter must be strictly positive")

// BuildParams2D are the inputs to Build2D (spec.md §4.4 "Build inputs").
type BuildParams2D struct {
	BaseRange    float32
	RangeExp     float32
	BaseSpacing  float32
	GridExp      float32
	BaseGridDims [2]int
	BaseQ        uint32
	AngularExp   float32
	NumCascades  int
	Origin       mgl32.Vec2
}

// Validate checks BuildParams2D against spec.md §3's positivity and
// cascade-count invariants.
func (p BuildParams2D) Validate() error {
	if p.NumCascades <= 0 || p.NumCascades > MaxCascades {
		return fmt.Errorf("%w: got %d", ErrTooManyCascades, p.NumCascades)
	}
	if p.BaseRange <= 0 || p.RangeExp <= 0 || p.BaseSpacing <= 0 || p.GridExp <= 0 || p.AngularExp <= 0 {
		return ErrNonPositiveInput
	}
	if p.BaseQ < 2 {
		return fmt.Errorf("%w: baseQ must be at least 2", ErrNonPositiveInput)
	}
	if p.BaseGridDims[0] <= 0 || p.BaseGridDims[1] <= 0 {
		return ErrNonPositiveInput
	}
	return nil
}

// BuildParams3D are the inputs to Build3D; same derivation rules as 2D,
// applied per-axis for grid dims and spacing.
type BuildParams3D struct {
	BaseRange    float32
	RangeExp     float32
	BaseSpacing  float32
	GridExp      float32
	BaseGridDims [3]int
	BaseQ        uint32
	AngularExp   float32
	NumCascades  int
	Origin       mgl32.Vec3
}

// Validate checks BuildParams3D against spec.md §3's invariants plus the
// 3D angular-resolution convention resolved in SPEC_FULL.md §4.4.
func (p BuildParams3D) Validate() error {
	if p.NumCascades <= 0 || p.NumCascades > MaxCascades {
		return fmt.Errorf("%w: got %d", ErrTooManyCascades, p.NumCascades)
	}
	if p.BaseRange <= 0 || p.RangeExp <= 0 || p.BaseSpacing <= 0 || p.GridExp <= 0 || p.AngularExp <= 0 {
		return ErrNonPositiveInput
	}
	if p.BaseQ < 2 {
		return fmt.Errorf("%w: baseQ must be at least 2", ErrNonPositiveInput)
	}
	for _, d := range p.BaseGridDims {
		if d <= 0 {
			return ErrNonPositiveInput
		}
	}
	// The per-axis convention only makes sense while Q stays a count of
	// texels along one hemisphere axis; an angularExp large enough to
	// overflow a uint32 per-axis count at the coarsest level would
	// silently violate that convention.
	q := float64(p.BaseQ)
	for i := 1; i < p.NumCascades; i++ {
		q *= float64(p.AngularExp)
	}
	if q > math.MaxUint32 {
		return ErrAngularConvention
	}
	return nil
}

// CascadeLevel2D is one level of a 2D cascade ladder (spec.md §3).
type CascadeLevel2D struct {
	Index                  uint32
	GridDims               [2]int
	Spacing                [2]float32
	Origin                 mgl32.Vec2
	AngularResolution      uint32 // Q, directions per probe
	DMin, DMax             float32
	RadianceTextureIndex   bindless.Index
	IrradianceTextureIndex bindless.Index // level 0 only
	HasIrradianceTexture   bool
}

// TraceMaxDistance returns dmax extended by the overlap term (spec.md
// §4.4's seam-hiding addition), the value the tracer actually uses for its
// ray's tmax. dmax itself (DMax) stays the un-extended chain value so
// dmin(i+1) == dmax(i) holds exactly (spec.md §8).
func (l CascadeLevel2D) TraceMaxDistance(next *CascadeLevel2D) float32 {
	if next == nil {
		return l.DMax
	}
	overlap := float32(math.Hypot(float64(next.Spacing[0]), float64(next.Spacing[1])))
	return l.DMax + overlap
}

// Build2D derives a ladder of 2D cascade levels from params (spec.md §4.4).
func Build2D(params BuildParams2D) ([]CascadeLevel2D, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	levels := make([]CascadeLevel2D, params.NumCascades)
	var prevDMax float32

	for i := 0; i < params.NumCascades; i++ {
		exp := float32(math.Pow(float64(params.RangeExp), float64(i)))
		gridExp := float32(math.Pow(float64(params.GridExp), float64(i)))
		angularExp := float32(math.Pow(float64(params.AngularExp), float64(i)))

		dmax := params.BaseRange * exp
		dmin := float32(0)
		if i > 0 {
			dmin = prevDMax
		}

		gx := clampDim(int(math.Round(float64(params.BaseGridDims[0]) / float64(gridExp))))
		gy := clampDim(int(math.Round(float64(params.BaseGridDims[1]) / float64(gridExp))))

		spacing := params.BaseSpacing * gridExp

		q := uint32(math.Max(2, math.Round(float64(params.BaseQ)*float64(angularExp))))

		levels[i] = CascadeLevel2D{
			Index:                uint32(i),
			GridDims:             [2]int{gx, gy},
			Spacing:              [2]float32{spacing, spacing},
			Origin:               params.Origin,
			AngularResolution:    q,
			DMin:                 dmin,
			DMax:                 dmax,
			HasIrradianceTexture: i == 0,
		}
		prevDMax = dmax
	}

	return levels, nil
}

// CascadeLevel3D is one level of a 3D cascade ladder (spec.md §3). Q is a
// per-hemisphere-axis count: the total per-probe direction count is Q×Q
// (SPEC_FULL.md §4.4's resolved convention).
type CascadeLevel3D struct {
	Index                uint32
	GridDims             [3]int
	Spacing              [3]float32
	Origin               mgl32.Vec3
	AngularResolution    uint32 // Q, per-hemisphere-axis count; total directions = Q*Q
	DMin, DMax           float32
	RadianceTextureIndex bindless.Index
}

// TotalDirections returns Q×Q, the total per-probe direction count under
// the resolved 3D angular convention.
func (l CascadeLevel3D) TotalDirections() uint32 {
	return l.AngularResolution * l.AngularResolution
}

// TraceMaxDistance returns dmax extended by the overlap term, analogous to
// CascadeLevel2D.TraceMaxDistance.
func (l CascadeLevel3D) TraceMaxDistance(next *CascadeLevel3D) float32 {
	if next == nil {
		return l.DMax
	}
	overlap := float32(math.Sqrt(
		float64(next.Spacing[0])*float64(next.Spacing[0]) +
			float64(next.Spacing[1])*float64(next.Spacing[1]) +
			float64(next.Spacing[2])*float64(next.Spacing[2]),
	))
	return l.DMax + overlap
}

// Build3D derives a ladder of 3D cascade levels from params (spec.md §4.4,
// 3D variant: "divides each axis independently").
func Build3D(params BuildParams3D) ([]CascadeLevel3D, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	levels := make([]CascadeLevel3D, params.NumCascades)
	var prevDMax float32

	for i := 0; i < params.NumCascades; i++ {
		exp := float32(math.Pow(float64(params.RangeExp), float64(i)))
		gridExp := float32(math.Pow(float64(params.GridExp), float64(i)))
		angularExp := float32(math.Pow(float64(params.AngularExp), float64(i)))

		dmax := params.BaseRange * exp
		dmin := float32(0)
		if i > 0 {
			dmin = prevDMax
		}

		var dims [3]int
		for axis := 0; axis < 3; axis++ {
			dims[axis] = clampDim(int(math.Round(float64(params.BaseGridDims[axis]) / float64(gridExp))))
		}

		spacing := params.BaseSpacing * gridExp
		q := uint32(math.Max(2, math.Round(float64(params.BaseQ)*float64(angularExp))))

		levels[i] = CascadeLevel3D{
			Index:             uint32(i),
			GridDims:          dims,
			Spacing:           [3]float32{spacing, spacing, spacing},
			Origin:            params.Origin,
			AngularResolution: q,
			DMin:              dmin,
			DMax:              dmax,
		}
		prevDMax = dmax
	}

	return levels, nil
}

// clampDim enforces spec.md §3/§8: "grid dims never drop below 1" / "Grid
// dims round to 0: clamp to 1 and continue; no crash."
func clampDim(d int) int {
	if d < 1 {
		return 1
	}
	return d
}
