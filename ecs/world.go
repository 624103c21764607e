package ecs

import "fmt"

// Entity is a unique identifier for an entity in the ECS world. It's just a
// number - all the data lives in component maps.
type Entity uint64

// World manages all entities and their components. It's the central
// registry for the ECS system.
type World struct {
	nextEntity Entity

	transforms        map[Entity]*Transform
	meshes            map[Entity]*Mesh
	materials         map[Entity]*Material
	boundingBoxes     map[Entity]*BoundingBox
	lights            map[Entity]*Light
	cameras           map[Entity]*Camera
	indirectLightings map[Entity]*IndirectLighting
	hierarchies       map[Entity]*Hierarchy

	// Track all living entities for iteration
	entities map[Entity]bool
}

// NewWorld creates a new ECS world.
func NewWorld() *World {
	return &World{
		nextEntity:        1, // Start at 1, 0 is invalid entity
		transforms:        make(map[Entity]*Transform),
		meshes:            make(map[Entity]*Mesh),
		materials:         make(map[Entity]*Material),
		boundingBoxes:     make(map[Entity]*BoundingBox),
		lights:            make(map[Entity]*Light),
		cameras:           make(map[Entity]*Camera),
		indirectLightings: make(map[Entity]*IndirectLighting),
		hierarchies:       make(map[Entity]*Hierarchy),
		entities:          make(map[Entity]bool),
	}
}

// CreateEntity creates a new entity and returns its ID. The entity starts
// with no components - add them separately.
func (w *World) CreateEntity() Entity {
	entity := w.nextEntity
	w.nextEntity++
	w.entities[entity] = true
	return entity
}

// DeleteEntity removes an entity and all its components. Note: this doesn't
// call Vulkan cleanup functions - the caller must release any owned GPU
// resources first.
func (w *World) DeleteEntity(entity Entity) {
	delete(w.entities, entity)
	delete(w.transforms, entity)
	delete(w.meshes, entity)
	delete(w.materials, entity)
	delete(w.boundingBoxes, entity)
	delete(w.lights, entity)
	delete(w.cameras, entity)
	delete(w.indirectLightings, entity)
	delete(w.hierarchies, entity)
}

// EntityExists checks if an entity ID is valid and alive.
func (w *World) EntityExists(entity Entity) bool {
	return w.entities[entity]
}

// Entities returns a slice of all living entity IDs.
func (w *World) Entities() []Entity {
	result := make([]Entity, 0, len(w.entities))
	for e := range w.entities {
		result = append(result, e)
	}
	return result
}

// EntityCount returns the number of living entities.
func (w *World) EntityCount() int {
	return len(w.entities)
}

// --- Component Add/Remove/Get/Has methods ---
//
// Adding a component to a dangling entity id is a programmer error, not a
// runtime fault (spec.md §7 scopes "missing component" as an optional/empty
// read, not this write-time misuse) — it panics, matching the teacher's
// ecs.World.AddTransform style.

func (w *World) AddTransform(e Entity, c *Transform) {
	w.mustExist(e)
	w.transforms[e] = c
}
func (w *World) GetTransform(e Entity) *Transform { return w.transforms[e] }
func (w *World) HasTransform(e Entity) bool        { _, ok := w.transforms[e]; return ok }
func (w *World) RemoveTransform(e Entity)          { delete(w.transforms, e) }

func (w *World) AddMesh(e Entity, c *Mesh) {
	w.mustExist(e)
	w.meshes[e] = c
}
func (w *World) GetMesh(e Entity) *Mesh { return w.meshes[e] }
func (w *World) HasMesh(e Entity) bool   { _, ok := w.meshes[e]; return ok }
func (w *World) RemoveMesh(e Entity)     { delete(w.meshes, e) }

func (w *World) AddMaterial(e Entity, c *Material) {
	w.mustExist(e)
	w.materials[e] = c
}
func (w *World) GetMaterial(e Entity) *Material { return w.materials[e] }
func (w *World) HasMaterial(e Entity) bool       { _, ok := w.materials[e]; return ok }
func (w *World) RemoveMaterial(e Entity)         { delete(w.materials, e) }

func (w *World) AddBoundingBox(e Entity, c *BoundingBox) {
	w.mustExist(e)
	w.boundingBoxes[e] = c
}
func (w *World) GetBoundingBox(e Entity) *BoundingBox { return w.boundingBoxes[e] }
func (w *World) HasBoundingBox(e Entity) bool          { _, ok := w.boundingBoxes[e]; return ok }
func (w *World) RemoveBoundingBox(e Entity)            { delete(w.boundingBoxes, e) }

func (w *World) AddLight(e Entity, c *Light) {
	w.mustExist(e)
	w.lights[e] = c
}
func (w *World) GetLight(e Entity) *Light { return w.lights[e] }
func (w *World) HasLight(e Entity) bool    { _, ok := w.lights[e]; return ok }
func (w *World) RemoveLight(e Entity)      { delete(w.lights, e) }

func (w *World) AddCamera(e Entity, c *Camera) {
	w.mustExist(e)
	w.cameras[e] = c
}
func (w *World) GetCamera(e Entity) *Camera { return w.cameras[e] }
func (w *World) HasCamera(e Entity) bool     { _, ok := w.cameras[e]; return ok }
func (w *World) RemoveCamera(e Entity)       { delete(w.cameras, e) }

func (w *World) AddIndirectLighting(e Entity, c *IndirectLighting) {
	w.mustExist(e)
	w.indirectLightings[e] = c
}
func (w *World) GetIndirectLighting(e Entity) *IndirectLighting { return w.indirectLightings[e] }
func (w *World) HasIndirectLighting(e Entity) bool {
	_, ok := w.indirectLightings[e]
	return ok
}
func (w *World) RemoveIndirectLighting(e Entity) { delete(w.indirectLightings, e) }

func (w *World) AddHierarchy(e Entity, c *Hierarchy) {
	w.mustExist(e)
	w.hierarchies[e] = c
}
func (w *World) GetHierarchy(e Entity) *Hierarchy { return w.hierarchies[e] }
func (w *World) HasHierarchy(e Entity) bool         { _, ok := w.hierarchies[e]; return ok }
func (w *World) RemoveHierarchy(e Entity)           { delete(w.hierarchies, e) }

func (w *World) mustExist(e Entity) {
	if !w.EntityExists(e) {
		panic(fmt.Sprintf("entity %d does not exist", e))
	}
}
