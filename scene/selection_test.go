package scene

import (
	"testing"

	"github.com/radiant-engine/radiant/ecs"
)

func TestSelectionChannelStartsEmpty(t *testing.T) {
	c := NewSelectionChannel()
	if _, ok := c.Current(); ok {
		t.Fatal("expected a freshly created channel to have no selection")
	}
}

func TestSelectNotifiesListeners(t *testing.T) {
	c := NewSelectionChannel()
	var got ecs.Entity
	var gotOK bool
	c.Subscribe(func(e ecs.Entity, ok bool) {
		got, gotOK = e, ok
	})

	c.Select(42)

	if !gotOK || got != 42 {
		t.Fatalf("expected listener to observe (42, true), got (%d, %v)", got, gotOK)
	}
	if cur, ok := c.Current(); !ok || cur != 42 {
		t.Fatalf("expected Current() to report (42, true), got (%d, %v)", cur, ok)
	}
}

func TestClearNotifiesListenersAndResetsCurrent(t *testing.T) {
	c := NewSelectionChannel()
	c.Select(7)

	var gotOK = true
	c.Subscribe(func(_ ecs.Entity, ok bool) { gotOK = ok })
	c.Clear()

	if gotOK {
		t.Fatal("expected Clear to notify listeners with ok=false")
	}
	if _, ok := c.Current(); ok {
		t.Fatal("expected Current() to report no selection after Clear")
	}
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	c := NewSelectionChannel()
	calls := 0
	id := c.Subscribe(func(_ ecs.Entity, _ bool) { calls++ })
	c.Unsubscribe(id)

	c.Select(1)

	if calls != 0 {
		t.Fatalf("expected no notifications after Unsubscribe, got %d", calls)
	}
}
