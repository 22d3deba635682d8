package sim

import "github.com/ironfoundry/forge/world"

// Build applies a BUILD player action: places a new entity if the tile is
// unoccupied and the catalog's placement rule allows it. Returns nil on
// any illegal placement, which the caller (the session handler) treats as
// a silent no-op — BUILD never errors the connection.
//
// Like every Engine method, Build must only be called from within a
// running transaction (i.e. from inside an ExecFunc passed to Exec, or
// from Engine.step), matching the single-writer discipline of
// world.Store.
func (e *Engine) Build(kindName string, x, y int, dir world.Direction) *world.Entity {
	ent := e.Store.PlaceEntity(kindName, x, y, dir)
	if ent != nil {
		e.markAdded(ent)
	}
	return ent
}

// Destroy applies a DESTROY player action: removes the entity with the
// given id, if any. An unknown id is a no-op; any items it held dissolve.
func (e *Engine) Destroy(id uint64) *world.Entity {
	ent := e.Store.RemoveEntity(id)
	if ent != nil {
		e.markRemoved(ent)
	}
	return ent
}

// Configure applies a CONFIGURE player action: sets an assembler's active
// recipe. recipe == "" clears it. Returns false (a no-op) if the entity
// doesn't exist, isn't an assembler, or names an unknown recipe.
func (e *Engine) Configure(id uint64, recipe string) bool {
	ent := e.Store.EntityByID(id)
	if ent == nil {
		return false
	}
	as, ok := ent.State.(*world.AssemblerState)
	if !ok {
		return false
	}
	if recipe != "" {
		if _, ok := e.cat.AssemblerRecipes[recipe]; !ok {
			return false
		}
	}
	as.Recipe = recipe
	e.markDirty(ent)
	return true
}
