// Package inventory implements the per-player inventory engine:
// slot-based add/remove/swap/split/sort, entity transfers that reuse the
// simulation's insertion/extraction rules, a radius-1.5 PICKUP scan, and
// CRAFT with an output-space pre-check.
package inventory

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ironfoundry/forge/catalog"
	"github.com/ironfoundry/forge/sim"
	"github.com/ironfoundry/forge/world"
)

// Slot is one inventory slot. A zero-value Slot (Item == "") is empty.
type Slot struct {
	Item  string
	Count int
}

// Empty reports whether the slot holds nothing.
func (s Slot) Empty() bool { return s.Item == "" || s.Count == 0 }

// Inventory is a fixed number of slots (catalog constant InventorySlots,
// default 40) with a MaxStack per-slot cap.
type Inventory struct {
	Slots    []Slot
	maxStack int
}

// New constructs an empty inventory sized and capped from the catalog.
func New(cat *catalog.Catalog) *Inventory {
	return &Inventory{
		Slots:    make([]Slot, cat.Constants.InventorySlots),
		maxStack: cat.Constants.MaxStack,
	}
}

// Add fills existing matching stacks in slot order up to MaxStack, then
// opens empty slots in order, returning however many units didn't fit.
func (inv *Inventory) Add(item string, n int) int {
	if n <= 0 || item == "" {
		return 0
	}
	for i := range inv.Slots {
		if n == 0 {
			break
		}
		s := &inv.Slots[i]
		if s.Item != item || s.Count >= inv.maxStack {
			continue
		}
		room := inv.maxStack - s.Count
		take := min(room, n)
		s.Count += take
		n -= take
	}
	for i := range inv.Slots {
		if n == 0 {
			break
		}
		s := &inv.Slots[i]
		if !s.Empty() {
			continue
		}
		take := min(inv.maxStack, n)
		s.Item = item
		s.Count = take
		n -= take
	}
	return n
}

// Remove takes from later slots first so earlier slots stay stable,
// nulling any slot it empties, and returns the count actually removed.
func (inv *Inventory) Remove(item string, n int) int {
	if n <= 0 || item == "" {
		return 0
	}
	removed := 0
	for i := len(inv.Slots) - 1; i >= 0 && n > 0; i-- {
		s := &inv.Slots[i]
		if s.Item != item {
			continue
		}
		take := min(s.Count, n)
		s.Count -= take
		n -= take
		removed += take
		if s.Count == 0 {
			s.Item = ""
		}
	}
	return removed
}

// Swap unconditionally exchanges the contents of two slots.
func (inv *Inventory) Swap(i, j int) bool {
	if !inv.validIndex(i) || !inv.validIndex(j) {
		return false
	}
	inv.Slots[i], inv.Slots[j] = inv.Slots[j], inv.Slots[i]
	return true
}

// Split moves n units of src's item into dst, only if dst is empty or
// holds the same item with room.
func (inv *Inventory) Split(src, dst, n int) bool {
	if !inv.validIndex(src) || !inv.validIndex(dst) || n <= 0 {
		return false
	}
	s, d := &inv.Slots[src], &inv.Slots[dst]
	if s.Empty() || s.Count < n {
		return false
	}
	if !d.Empty() && d.Item != s.Item {
		return false
	}
	room := inv.maxStack
	if !d.Empty() {
		room -= d.Count
	}
	if n > room {
		return false
	}
	if d.Empty() {
		d.Item = s.Item
	}
	d.Count += n
	s.Count -= n
	if s.Count == 0 {
		s.Item = ""
	}
	return true
}

// Sort coalesces stacks by item, orders by (catalog category rank, display
// name), re-chunks into MaxStack-sized stacks, and empty-pads the rest.
func (inv *Inventory) Sort(cat *catalog.Catalog) {
	totals := make(map[string]int)
	order := []string{}
	for _, s := range inv.Slots {
		if s.Empty() {
			continue
		}
		if _, ok := totals[s.Item]; !ok {
			order = append(order, s.Item)
		}
		totals[s.Item] += s.Count
	}

	sort.Slice(order, func(i, j int) bool {
		ii, ij := itemSortKey(cat, order[i]), itemSortKey(cat, order[j])
		if ii.category != ij.category {
			return ii.category < ij.category
		}
		return ii.displayName < ij.displayName
	})

	out := make([]Slot, len(inv.Slots))
	idx := 0
	for _, item := range order {
		remaining := totals[item]
		for remaining > 0 && idx < len(out) {
			take := min(inv.maxStack, remaining)
			out[idx] = Slot{Item: item, Count: take}
			remaining -= take
			idx++
		}
	}
	inv.Slots = out
}

type sortKey struct {
	category    string
	displayName string
}

func itemSortKey(cat *catalog.Catalog, name string) sortKey {
	if it, ok := cat.Items[name]; ok {
		return sortKey{category: it.Category, displayName: it.DisplayName}
	}
	return sortKey{category: "~", displayName: name}
}

func (inv *Inventory) validIndex(i int) bool { return i >= 0 && i < len(inv.Slots) }

// TransferTo moves one unit of item from the inventory into a world
// entity's input/storage buffer, using the simulation's insertion rules.
// Reports success.
func TransferTo(inv *Inventory, cat *catalog.Catalog, target *world.Entity, item string) bool {
	if inv.Remove(item, 1) == 0 {
		return false
	}
	if sim.Insert(cat, target, item) {
		return true
	}
	inv.Add(item, 1)
	return false
}

// TransferFrom moves one unit from a world entity's extraction buffer into
// the inventory, using the simulation's extraction rules. If the
// inventory has no room, the item is put back onto the source rather than
// destroyed.
func TransferFrom(inv *Inventory, cat *catalog.Catalog, source *world.Entity) bool {
	item, ok := sim.Extract(source)
	if !ok {
		return false
	}
	if overflow := inv.Add(item, 1); overflow > 0 {
		switch s := source.State.(type) {
		case *world.MinerState:
			s.Output = append([]string{item}, s.Output...)
		case *world.FurnaceState:
			s.Output = append([]string{item}, s.Output...)
		case *world.AssemblerState:
			s.Output = append([]string{item}, s.Output...)
		default:
			sim.Insert(cat, source, item)
		}
		return false
	}
	return true
}

// Craft applies a CRAFT action: pre-checks that every recipe output would
// fit before consuming any ingredient, aborting as a no-op on overflow —
// consumption is all-or-nothing, so no refund logic is needed.
func Craft(inv *Inventory, cat *catalog.Catalog, recipeName string) bool {
	recipe, ok := cat.AssemblerRecipes[recipeName]
	if !ok {
		return false
	}
	for item, need := range recipe.Ingredients {
		if inv.count(item) < need {
			return false
		}
	}
	if !inv.hasRoomFor(recipe.Result, recipe.Count) {
		return false
	}
	for item, need := range recipe.Ingredients {
		inv.Remove(item, need)
	}
	inv.Add(recipe.Result, recipe.Count)
	return true
}

func (inv *Inventory) count(item string) int {
	total := 0
	for _, s := range inv.Slots {
		if s.Item == item {
			total += s.Count
		}
	}
	return total
}

// hasRoomFor simulates an Add without mutating, to satisfy CRAFT's
// pre-check-before-consume resolution.
func (inv *Inventory) hasRoomFor(item string, n int) bool {
	room := 0
	for _, s := range inv.Slots {
		if s.Item == item && s.Count < inv.maxStack {
			room += inv.maxStack - s.Count
		} else if s.Empty() {
			room += inv.maxStack
		}
		if room >= n {
			return true
		}
	}
	return room >= n
}

// Drop discards up to n units of item from the inventory, returning the
// count actually removed. The DROP action has no on-ground item entity to
// place them into — destroyed buffers dissolve rather than spawning
// ground items, so a drop simply dissolves the items the same way.
func Drop(inv *Inventory, item string, n int) int {
	return inv.Remove(item, n)
}

// Pickup scans loaded entities within radius 1.5 of (x, y) for conveyor or
// chest items and ingests them subject to inventory capacity, putting back
// whatever doesn't fit rather than destroying it. Returns the number of
// items picked up.
func Pickup(inv *Inventory, store *world.Store, cat *catalog.Catalog, x, y float64) int {
	const radius = 1.5
	center := mgl64.Vec2{x, y}
	picked := 0

	for _, e := range store.EntitiesInRadius(int(x), int(y), 2) {
		pos := mgl64.Vec2{float64(e.X), float64(e.Y)}
		if center.Sub(pos).Len() > radius {
			continue
		}
		switch e.State.(type) {
		case *world.ChestState, *world.ConveyorState:
			for {
				item, ok := sim.Extract(e)
				if !ok {
					break
				}
				if overflow := inv.Add(item, 1); overflow > 0 {
					sim.Insert(cat, e, item)
					break
				}
				picked++
			}
		}
	}
	return picked
}
