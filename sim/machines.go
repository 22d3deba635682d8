package sim

import (
	"github.com/ironfoundry/forge/catalog"
	"github.com/ironfoundry/forge/world"
)

// stepEntity runs one tick of e's kind-specific update. It returns the set
// of entities whose state changed this tick and so must be marked dirty
// by the caller (an inserter extraction, for instance, dirties both
// itself and its source).
func stepEntity(store *world.Store, cat *catalog.Catalog, e *world.Entity) []*world.Entity {
	switch e.State.(type) {
	case *world.MinerState:
		return stepMiner(store, cat, e)
	case *world.FurnaceState:
		return stepFurnace(store, cat, e)
	case *world.AssemblerState:
		return stepAssembler(store, cat, e)
	case *world.ConveyorState:
		return stepConveyor(store, cat, e)
	case *world.InserterState:
		return stepInserter(store, cat, e)
	default:
		return nil
	}
}

func downstream(store *world.Store, e *world.Entity) *world.Entity {
	dx, dy := e.Dir.Delta()
	return store.EntityAt(e.X+dx, e.Y+dy)
}

func upstream(store *world.Store, e *world.Entity) *world.Entity {
	dx, dy := e.Dir.Opposite().Delta()
	return store.EntityAt(e.X+dx, e.Y+dy)
}

// stepMiner implements the MINER update.
func stepMiner(store *world.Store, cat *catalog.Catalog, e *world.Entity) []*world.Entity {
	ms := e.State.(*world.MinerState)
	var dirty []*world.Entity

	if ms.Cooldown > 0 {
		ms.Cooldown--
	}

	if len(ms.Output) > 0 {
		if target := downstream(store, e); target != nil && Insert(cat, target, ms.Output[0]) {
			ms.Output = ms.Output[1:]
			dirty = append(dirty, e, target)
		}
	}

	if ms.Cooldown == 0 {
		tile := store.GetTile(e.X, e.Y)
		if tile.ResourceItem != "" {
			kind, _ := cat.EntityByName("miner")
			if len(ms.Output) < kind.OutputBufferSize {
				ms.Output = append(ms.Output, tile.ResourceItem)
				ms.Cooldown = kind.Cooldown
				dirty = append(dirty, e)
			}
		}
	}
	return dirty
}

// stepFurnace implements the FURNACE update.
func stepFurnace(store *world.Store, cat *catalog.Catalog, e *world.Entity) []*world.Entity {
	fs := e.State.(*world.FurnaceState)
	var dirty []*world.Entity

	if fs.Cooldown > 0 {
		fs.Cooldown--
	}

	if len(fs.Output) > 0 {
		if target := downstream(store, e); target != nil && Insert(cat, target, fs.Output[0]) {
			fs.Output = fs.Output[1:]
			dirty = append(dirty, e, target)
		}
	}

	if fs.Cooldown == 0 && len(fs.Input) > 0 {
		if recipe, ok := cat.FurnaceRecipes[fs.Input[0]]; ok {
			kind, _ := cat.EntityByName("furnace")
			if len(fs.Output)+recipe.Count <= kind.OutputBufferSize {
				fs.Input = fs.Input[1:]
				for i := 0; i < recipe.Count; i++ {
					fs.Output = append(fs.Output, recipe.Output)
				}
				fs.Cooldown = recipe.Time
				dirty = append(dirty, e)
			}
		}
	}
	return dirty
}

// stepAssembler implements the ASSEMBLER update.
func stepAssembler(store *world.Store, cat *catalog.Catalog, e *world.Entity) []*world.Entity {
	as := e.State.(*world.AssemblerState)
	var dirty []*world.Entity

	if as.Cooldown > 0 {
		as.Cooldown--
	}

	if len(as.Output) > 0 {
		if target := downstream(store, e); target != nil && Insert(cat, target, as.Output[0]) {
			as.Output = as.Output[1:]
			dirty = append(dirty, e, target)
		}
	}

	if as.Recipe != "" && as.Cooldown == 0 {
		recipe, ok := cat.AssemblerRecipes[as.Recipe]
		kind, _ := cat.EntityByName("assembler")
		if ok && len(as.Output)+recipe.Count <= kind.OutputBufferSize && hasIngredients(as.Input, recipe.Ingredients) {
			as.Input = consumeIngredients(as.Input, recipe.Ingredients)
			for i := 0; i < recipe.Count; i++ {
				as.Output = append(as.Output, recipe.Result)
			}
			as.Cooldown = recipe.Time
			dirty = append(dirty, e)
		}
	}
	return dirty
}

// hasIngredients reports whether input contains at least the required
// count of every ingredient: the ingredient multiset in input must
// dominate the recipe's ingredient multiset.
func hasIngredients(input []string, need map[string]int) bool {
	have := make(map[string]int, len(need))
	for _, it := range input {
		have[it]++
	}
	for item, n := range need {
		if have[item] < n {
			return false
		}
	}
	return true
}

// consumeIngredients removes exactly the required counts of each
// ingredient, preserving the relative order of the items left behind.
func consumeIngredients(input []string, need map[string]int) []string {
	remaining := make(map[string]int, len(need))
	for item, n := range need {
		remaining[item] = n
	}
	out := make([]string, 0, len(input))
	for _, it := range input {
		if remaining[it] > 0 {
			remaining[it]--
			continue
		}
		out = append(out, it)
	}
	return out
}

// stepConveyor implements the CONVEYOR update.
func stepConveyor(store *world.Store, cat *catalog.Catalog, e *world.Entity) []*world.Entity {
	cs := e.State.(*world.ConveyorState)
	if len(cs.Items) == 0 {
		return nil
	}
	kind, _ := cat.EntityByName("conveyor")
	speed := kind.Speed
	target := downstream(store, e)

	var dirtyTarget *world.Entity
	result := cs.Items[:0]
	for _, it := range cs.Items {
		it.Progress += speed
		if it.Progress >= 1.0 {
			if target != nil && Insert(cat, target, it.Item) {
				dirtyTarget = target
				continue
			}
			it.Progress = 0.99
		}
		result = append(result, it)
	}
	cs.Items = result

	dirty := []*world.Entity{e}
	if dirtyTarget != nil {
		dirty = append(dirty, dirtyTarget)
	}
	return dirty
}

// stepInserter implements the INSERTER update.
func stepInserter(store *world.Store, cat *catalog.Catalog, e *world.Entity) []*world.Entity {
	is := e.State.(*world.InserterState)
	kind, _ := cat.EntityByName("inserter")

	if is.HeldItem == "" {
		if is.Cooldown > 0 {
			is.Cooldown--
			return nil
		}
		source := upstream(store, e)
		dest := downstream(store, e)
		if source == nil || dest == nil || !CanAccept(cat, dest) {
			return nil
		}
		item, ok := Extract(source)
		if !ok {
			return nil
		}
		is.HeldItem = item
		is.Progress = 0
		return []*world.Entity{e, source}
	}

	is.Progress += kind.AnimationSpeed
	if is.Progress < 1.0 {
		return []*world.Entity{e}
	}

	dest := downstream(store, e)
	if dest != nil && Insert(cat, dest, is.HeldItem) {
		is.HeldItem = ""
		is.Cooldown = kind.Cooldown
		return []*world.Entity{e, dest}
	}

	// Destination no longer accepts: return the item to the source rather
	// than drop it.
	if source := upstream(store, e); source != nil && Insert(cat, source, is.HeldItem) {
		is.HeldItem = ""
		return []*world.Entity{e, source}
	}
	return []*world.Entity{e}
}
