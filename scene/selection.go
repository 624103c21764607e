package scene

import "github.com/radiant-engine/radiant/ecs"

// ListenerID identifies a registered SelectionChannel listener, returned
// by Subscribe so the caller can Unsubscribe later. Grounded on
// original_source's GameEvents::onEntitySelected().addListener/
// removeListener add/remove-by-id pattern (Engine/src/Renderer/
// DeferredShading/GBufferPass.cpp), translated from a global event bus
// into a small typed pub/sub owned by scene.Scene.
type ListenerID uint64

// noSelection is the sentinel "nothing selected" entity value; ecs.Entity
// 0 is never handed out by ecs.World.CreateEntity.
const noSelection ecs.Entity = 0

// SelectionChannel publishes the current single-entity selection to
// interested listeners (spec.md §3: "selection state... published by an
// event channel"). gbuffer.Pass subscribes and outline.Pass reads Current
// on each Record, so a single Select/Clear call updates both without
// coupling them to each other or to an editor layer.
type SelectionChannel struct {
	nextID    ListenerID
	listeners map[ListenerID]func(ecs.Entity, bool)
	current   ecs.Entity
	hasCurrent bool
}

// NewSelectionChannel creates an empty channel with nothing selected.
func NewSelectionChannel() *SelectionChannel {
	return &SelectionChannel{listeners: make(map[ListenerID]func(ecs.Entity, bool))}
}

// Subscribe registers fn to be called whenever the selection changes,
// receiving (entity, true) on a new selection or (0, false) on Clear.
// Returns an id for Unsubscribe.
func (c *SelectionChannel) Subscribe(fn func(entity ecs.Entity, ok bool)) ListenerID {
	c.nextID++
	id := c.nextID
	c.listeners[id] = fn
	return id
}

// Unsubscribe removes a previously registered listener. A no-op if id is
// unknown (already unsubscribed, or never valid).
func (c *SelectionChannel) Unsubscribe(id ListenerID) {
	delete(c.listeners, id)
}

// Select publishes a new selected entity to every listener.
func (c *SelectionChannel) Select(e ecs.Entity) {
	c.current = e
	c.hasCurrent = true
	for _, fn := range c.listeners {
		fn(e, true)
	}
}

// Clear publishes "nothing selected" to every listener.
func (c *SelectionChannel) Clear() {
	c.current = noSelection
	c.hasCurrent = false
	for _, fn := range c.listeners {
		fn(noSelection, false)
	}
}

// Current returns the currently selected entity, if any.
func (c *SelectionChannel) Current() (ecs.Entity, bool) {
	return c.current, c.hasCurrent
}
