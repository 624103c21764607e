package bindless

import "fmt"

// StaleResourceError reports a bindless slot used after its resource was
// retired (spec.md §7): a caller indexed a slot whose Retire/Collect cycle
// has already run, or indexed past Capacity(). Grounded on Allocator's
// Retire/Collect bookkeeping in allocator.go — the allocator itself never
// panics on a stale index, it just won't find a live slot, and callers that
// need to surface that as an error construct one of these.
type StaleResourceError struct {
	Index Index
	Frame uint64
}

func (e *StaleResourceError) Error() string {
	return fmt.Sprintf("bindless: slot %d is not live at frame %d", e.Index, e.Frame)
}
