package cascade

import (
	"testing"

	"github.com/radiant-engine/radiant/vk"
)

// TestMergeLevels2DIsNoOpForSingleLevel exercises spec.md §8's boundary
// behavior: numCascades=1 gives the merger nothing to merge.
func TestMergeLevels2DIsNoOpForSingleLevel(t *testing.T) {
	m := &Merger{}
	// A zero-value Merger has no pipeline/layout; MergeLevels2D must return
	// before touching either when there's at most one level.
	m.MergeLevels2D(vk.CommandBuffer{}, vk.DescriptorSet{}, []CascadeLevel2D{{}})
}

func TestMergeLevels2DIsNoOpForZeroLevels(t *testing.T) {
	m := &Merger{}
	m.MergeLevels2D(vk.CommandBuffer{}, vk.DescriptorSet{}, nil)
}
