package scene

import "github.com/radiant-engine/radiant/ecs"

// CollectStaticPrimitives walks w's entity hierarchy starting at each root
// (an entity with no Hierarchy.Parent) and returns every descendant whose
// Mesh is static and enabled, the candidate set for the static BVH build
// (spec.md §4.1, §3.1 "HierarchyComponent... the DBVH rebuild on scene
// load needs to walk static vs. dynamic mesh sets").
func CollectStaticPrimitives(w *ecs.World) []ecs.Entity {
	return collectByHierarchy(w, w.QueryStaticPrimitives())
}

// CollectDynamicPrimitives is the moving-mesh analogue of
// CollectStaticPrimitives, the candidate set for the DBVH (spec.md §4.2).
func CollectDynamicPrimitives(w *ecs.World) []ecs.Entity {
	return collectByHierarchy(w, w.QueryDynamicPrimitives())
}

// collectByHierarchy orders candidates depth-first from their hierarchy
// roots so siblings under the same parent stay adjacent, then appends any
// candidate with no Hierarchy component (a flat, unparented entity) in
// query order. The static/dynamic partition itself already comes from
// ecs.World's Mesh.IsStatic flag; walking the hierarchy here only
// determines traversal order, matching the original's scene-graph-driven
// BVH population.
func collectByHierarchy(w *ecs.World, candidates []ecs.Entity) []ecs.Entity {
	wanted := make(map[ecs.Entity]bool, len(candidates))
	for _, e := range candidates {
		wanted[e] = true
	}

	seen := make(map[ecs.Entity]bool, len(candidates))
	result := make([]ecs.Entity, 0, len(candidates))

	var walk func(e ecs.Entity)
	walk = func(e ecs.Entity) {
		if seen[e] {
			return
		}
		seen[e] = true
		if wanted[e] {
			result = append(result, e)
		}
		h := w.GetHierarchy(e)
		if h == nil {
			return
		}
		for _, child := range h.Children {
			walk(child)
		}
	}

	// Walk from every root (no parent, or no Hierarchy at all) first so
	// siblings stay adjacent in traversal order.
	for _, e := range candidates {
		h := w.GetHierarchy(e)
		if h == nil || h.Parent == 0 {
			walk(e)
		}
	}
	// Any candidate whose ancestor chain never reached a root above (e.g.
	// its parent isn't itself a candidate and was never walked) is still
	// collected, in query order.
	for _, e := range candidates {
		walk(e)
	}
	return result
}
