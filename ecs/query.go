package ecs

// Query holds the result of a component query. It's an iterator-like
// structure for accessing entities with specific components.
type Query struct {
	entities []Entity
	world    *World
}

// QueryWithTransform returns all entities that have a Transform component.
func (w *World) QueryWithTransform() *Query {
	entities := make([]Entity, 0, len(w.transforms))
	for e := range w.transforms {
		if w.EntityExists(e) {
			entities = append(entities, e)
		}
	}
	return &Query{entities: entities, world: w}
}

// QueryGBufferCandidates returns entities carrying every component the
// G-buffer pass needs: Transform, Mesh, Material, BoundingBox (spec.md
// §4.8: "rasterise all (Transform, Mesh, Material, BoundingBox) entities").
// A Mesh still loading or a Material not yet ready are excluded, matching
// spec.md §6 ("the core ignores loading meshes" / "not-ready materials").
func (w *World) QueryGBufferCandidates() []Entity {
	result := make([]Entity, 0)
	for e := range w.entities {
		mesh := w.GetMesh(e)
		mat := w.GetMaterial(e)
		if mesh == nil || mat == nil {
			continue
		}
		if mesh.Loading || !mesh.IsEnabled || !mat.Ready {
			continue
		}
		if !w.HasTransform(e) || !w.HasBoundingBox(e) {
			continue
		}
		result = append(result, e)
	}
	return result
}

// QueryStaticPrimitives returns entities whose Mesh is static and enabled,
// the candidate set for the static BVH build (spec.md §4.1).
func (w *World) QueryStaticPrimitives() []Entity {
	result := make([]Entity, 0)
	for e, mesh := range w.meshes {
		if mesh.IsStatic && mesh.IsEnabled && !mesh.Loading {
			result = append(result, e)
		}
	}
	return result
}

// QueryDynamicPrimitives returns entities whose Mesh is movable and
// enabled, the candidate set for the DBVH (spec.md §4.2).
func (w *World) QueryDynamicPrimitives() []Entity {
	result := make([]Entity, 0)
	for e, mesh := range w.meshes {
		if !mesh.IsStatic && mesh.IsEnabled && !mesh.Loading {
			result = append(result, e)
		}
	}
	return result
}

// QueryLights returns every active light entity.
func (w *World) QueryLights() []Entity {
	result := make([]Entity, 0, len(w.lights))
	for e, l := range w.lights {
		if l.IsActive {
			result = append(result, e)
		}
	}
	return result
}

// QueryAll returns all entities that match a custom filter function. This
// is the most flexible query method.
func (w *World) QueryAll(filter func(Entity) bool) []Entity {
	result := make([]Entity, 0)
	for e := range w.entities {
		if filter(e) {
			result = append(result, e)
		}
	}
	return result
}

// Entities returns the list of entity IDs in this query.
func (q *Query) Entities() []Entity { return q.entities }

// Count returns the number of entities in this query.
func (q *Query) Count() int { return len(q.entities) }

// First returns the first entity in the query, or 0 if empty.
func (q *Query) First() Entity {
	if len(q.entities) > 0 {
		return q.entities[0]
	}
	return 0
}

// ForEach executes a function for each entity in the query.
func (q *Query) ForEach(fn func(Entity)) {
	for _, e := range q.entities {
		fn(e)
	}
}
