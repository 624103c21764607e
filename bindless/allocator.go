// Package bindless implements the global bindless descriptor layer of
// spec.md §4.10: a free-list slot allocator shared by every bindless
// resource kind (textures, storage images, acceleration structures,
// per-cascade UBOs), plus the three descriptor-set tiers (global,
// per-material, per-pass ephemeral) spec.md §4.10 describes.
//
// The allocator itself is grounded on the same "intrusive free list over a
// growable array" idiom bvh.Dynamic uses for its node pool
// (original_source/.../DBVH.cpp) — reused here for resource slots instead
// of tree nodes.
package bindless

// Index is a stable bindless slot. Allocate hands out indices from 0
// upward, so the zero value is an ordinary slot, not a sentinel.
type Index uint32

const invalidIndex = ^Index(0)

type slot struct {
	// free is true when this slot is on the free list. nextFree chains
	// free slots together; for a live slot it is unused.
	free     bool
	nextFree Index
	// retiredAtFrame is set when Retire is called; Collect returns the
	// slot to the free list once that frame's fence has signalled
	// (spec.md §5: "the free of a resource returns its bindless slot to
	// the allocator only after the last frame that referenced it has
	// completed").
	retired        bool
	retiredAtFrame uint64
}

// Allocator hands out stable u32 slot indices and recycles them only once
// the last frame that referenced the slot has completed.
type Allocator struct {
	slots    []slot
	freeHead Index
}

// NewAllocator creates an empty allocator.
func NewAllocator() *Allocator {
	return &Allocator{freeHead: invalidIndex}
}

// Allocate returns an unused slot, growing the backing array if the free
// list is empty.
func (a *Allocator) Allocate() Index {
	if a.freeHead == invalidIndex {
		idx := Index(len(a.slots))
		a.slots = append(a.slots, slot{})
		return idx
	}

	idx := a.freeHead
	a.freeHead = a.slots[idx].nextFree
	a.slots[idx] = slot{}
	return idx
}

// Retire marks idx for recycling once frameIndex's fence has signalled. It
// does not free the slot immediately, so in-flight GPU work that still
// references idx from an earlier frame remains valid (spec.md §4.10
// invariant (a)).
func (a *Allocator) Retire(idx Index, frameIndex uint64) {
	a.slots[idx].retired = true
	a.slots[idx].retiredAtFrame = frameIndex
}

// Collect returns every slot retired at or before completedFrameIndex to
// the free list. Called once per frame by renderer.Renderer after it
// observes that frame's fence signalled.
func (a *Allocator) Collect(completedFrameIndex uint64) {
	for i := range a.slots {
		s := &a.slots[i]
		if !s.retired || s.free {
			continue
		}
		if s.retiredAtFrame > completedFrameIndex {
			continue
		}
		s.free = true
		s.retired = false
		s.nextFree = a.freeHead
		a.freeHead = Index(i)
	}
}

// Live reports whether idx currently denotes a live (non-free) slot,
// regardless of whether it has been retired but not yet collected.
func (a *Allocator) Live(idx Index) bool {
	if int(idx) >= len(a.slots) {
		return false
	}
	return !a.slots[idx].free
}

// Capacity returns the size of the backing slot array.
func (a *Allocator) Capacity() int { return len(a.slots) }
