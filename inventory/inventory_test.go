package inventory

import (
	"testing"

	"github.com/ironfoundry/forge/catalog"
)

func TestAddFillsExistingStacksThenEmptySlots(t *testing.T) {
	cat := catalog.DefaultCatalog()
	inv := New(cat)
	inv.Slots[0] = Slot{Item: "iron_ore", Count: cat.Constants.MaxStack - 5}

	overflow := inv.Add("iron_ore", 10)
	if overflow != 0 {
		t.Fatalf("expected no overflow, got %d", overflow)
	}
	if inv.Slots[0].Count != cat.Constants.MaxStack {
		t.Fatalf("expected slot 0 topped up to max stack, got %d", inv.Slots[0].Count)
	}
	if inv.Slots[1].Item != "iron_ore" || inv.Slots[1].Count != 5 {
		t.Fatalf("expected overflow of 5 to open slot 1, got %+v", inv.Slots[1])
	}
}

func TestAddReturnsOverflowWhenFull(t *testing.T) {
	cat := catalog.DefaultCatalog()
	inv := New(cat)
	for i := range inv.Slots {
		inv.Slots[i] = Slot{Item: "iron_ore", Count: cat.Constants.MaxStack}
	}
	overflow := inv.Add("iron_ore", 50)
	if overflow != 50 {
		t.Fatalf("expected full overflow of 50, got %d", overflow)
	}
}

func TestRemoveTakesFromLaterSlotsFirst(t *testing.T) {
	cat := catalog.DefaultCatalog()
	inv := New(cat)
	inv.Slots[0] = Slot{Item: "coal", Count: 10}
	inv.Slots[1] = Slot{Item: "coal", Count: 10}

	removed := inv.Remove("coal", 10)
	if removed != 10 {
		t.Fatalf("expected to remove 10, got %d", removed)
	}
	if inv.Slots[0].Count != 10 {
		t.Fatalf("expected slot 0 untouched, got %d", inv.Slots[0].Count)
	}
	if !inv.Slots[1].Empty() {
		t.Fatalf("expected slot 1 emptied, got %+v", inv.Slots[1])
	}
}

func TestSplitRespectsCapacityAndItemMatch(t *testing.T) {
	cat := catalog.DefaultCatalog()
	inv := New(cat)
	inv.Slots[0] = Slot{Item: "coal", Count: 20}

	if !inv.Split(0, 1, 5) {
		t.Fatal("expected split into an empty slot to succeed")
	}
	if inv.Slots[0].Count != 15 || inv.Slots[1].Count != 5 {
		t.Fatalf("unexpected slots after split: %+v %+v", inv.Slots[0], inv.Slots[1])
	}

	inv.Slots[2] = Slot{Item: "iron_ore", Count: 1}
	if inv.Split(0, 2, 1) {
		t.Fatal("expected split into a mismatched-item slot to fail")
	}
}

func TestCraftPreChecksOutputSpace(t *testing.T) {
	cat := catalog.DefaultCatalog()
	inv := New(cat)
	for i := range inv.Slots {
		inv.Slots[i] = Slot{Item: "copper_plate", Count: cat.Constants.MaxStack}
	}
	// Inventory full of an unrelated item; gear recipe needs iron_plate the
	// player doesn't have, so the count pre-check should refuse first.
	if inv.count("iron_plate") != 0 {
		t.Fatal("test setup invariant broken")
	}
	if Craft(inv, cat, "gear") {
		t.Fatal("expected craft to fail: no iron_plate ingredients")
	}

	inv2 := New(cat)
	inv2.Add("iron_plate", 2)
	for i := range inv2.Slots {
		if inv2.Slots[i].Empty() {
			inv2.Slots[i] = Slot{Item: "copper_plate", Count: cat.Constants.MaxStack}
		}
	}
	if Craft(inv2, cat, "gear") {
		t.Fatal("expected craft to fail: no room for output")
	}
	if inv2.count("iron_plate") != 2 {
		t.Fatal("expected no partial consumption on a failed craft")
	}
}

func TestCraftSucceeds(t *testing.T) {
	cat := catalog.DefaultCatalog()
	inv := New(cat)
	inv.Add("iron_plate", 2)

	if !Craft(inv, cat, "gear") {
		t.Fatal("expected craft to succeed")
	}
	if inv.count("iron_plate") != 0 {
		t.Fatalf("expected ingredients consumed, iron_plate count = %d", inv.count("iron_plate"))
	}
	if inv.count("gear") != 1 {
		t.Fatalf("expected 1 gear produced, got %d", inv.count("gear"))
	}
}
