package bindless

import "testing"

func TestStaleResourceErrorMessageNamesIndexAndFrame(t *testing.T) {
	err := &StaleResourceError{Index: 7, Frame: 42}
	if got, want := err.Error(), "bindless: slot 7 is not live at frame 42"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestStaleResourceErrorAgainstLiveAllocator(t *testing.T) {
	a := NewAllocator()
	idx := a.Allocate()
	a.Retire(idx, 3)
	a.Collect(3)

	if a.Live(idx) {
		t.Fatalf("expected slot %d to be free after Collect past its retirement frame", idx)
	}

	err := &StaleResourceError{Index: idx, Frame: 3}
	if err.Index != idx || err.Frame != 3 {
		t.Fatal("expected StaleResourceError to carry the index/frame it was constructed with")
	}
}
