package sim

import (
	"testing"

	"github.com/ironfoundry/forge/catalog"
	"github.com/ironfoundry/forge/world"
)

type flatGen struct{ tile int32 }

func (g flatGen) TileAt(x, y int) int32 { return g.tile }

type nopProvider struct{}

func (nopProvider) LoadChunk(pos world.ChunkPos) (*world.Chunk, bool, error) { return nil, false, nil }
func (nopProvider) SaveChunk(c *world.Chunk) error                           { return nil }

func newTestEngine(t *testing.T, tile int32) (*Engine, *catalog.Catalog) {
	t.Helper()
	cat := catalog.DefaultCatalog()
	store := world.NewStore(cat, flatGen{tile: tile}, nopProvider{}, nil)
	eng := NewEngine(store, cat, nil, nil)
	return eng, cat
}

// Mining chain: MINER -> CONVEYOR -> CHEST over an iron-ore tile.
func TestMiningChain(t *testing.T) {
	eng, cat := newTestEngine(t, int32(catalog.TileIronOre))

	miner := eng.Store.PlaceEntity("miner", 5, 5, world.East)
	conveyor := eng.Store.PlaceEntity("conveyor", 6, 5, world.East)
	chest := eng.Store.PlaceEntity("chest", 7, 5, world.East)
	if miner == nil || conveyor == nil || chest == nil {
		t.Fatal("setup placement failed")
	}

	for i := 0; i < 600; i++ {
		eng.tick++
		eng.Store.AllChunks(func(c *world.Chunk) {
			for _, ent := range c.Entities {
				stepEntity(eng.Store, cat, ent)
			}
		})
	}

	cs := chest.State.(*world.ChestState)
	if len(cs.Items) != 9 {
		t.Fatalf("expected 9 items in chest after 600 ticks, got %d", len(cs.Items))
	}
}

func TestSmelting(t *testing.T) {
	eng, cat := newTestEngine(t, int32(catalog.TileGrass))

	furnace := eng.Store.PlaceEntity("furnace", 0, 0, world.East)
	chest := eng.Store.PlaceEntity("chest", 1, 0, world.East)

	fs := furnace.State.(*world.FurnaceState)
	fs.Input = append(fs.Input, "iron_ore", "iron_ore")

	for i := 0; i < 250; i++ {
		eng.Store.AllChunks(func(c *world.Chunk) {
			for _, ent := range c.Entities {
				stepEntity(eng.Store, cat, ent)
			}
		})
	}

	if len(fs.Input) != 0 {
		t.Fatalf("expected furnace input drained, got %d left", len(fs.Input))
	}
	cs := chest.State.(*world.ChestState)
	if len(cs.Items) != 2 {
		t.Fatalf("expected 2 iron_plate in chest, got %d", len(cs.Items))
	}
	for _, it := range cs.Items {
		if it != "iron_plate" {
			t.Fatalf("expected iron_plate, got %s", it)
		}
	}
}

func TestInserterNeverDropsOnFullDestination(t *testing.T) {
	eng, cat := newTestEngine(t, int32(catalog.TileGrass))

	miner := eng.Store.PlaceEntity("miner", 0, 0, world.East)
	eng.Store.PlaceEntity("inserter", 1, 0, world.East)
	chest := eng.Store.PlaceEntity("chest", 2, 0, world.East)

	ms := miner.State.(*world.MinerState)
	minerKind, _ := cat.EntityByName("miner")
	for i := 0; i < minerKind.OutputBufferSize; i++ {
		ms.Output = append(ms.Output, "iron_ore")
	}
	cs := chest.State.(*world.ChestState)
	chestKind, _ := cat.EntityByName("chest")
	for i := 0; i < chestKind.BufferSize; i++ {
		cs.Items = append(cs.Items, "iron_ore")
	}

	minerBefore, chestBefore := len(ms.Output), len(cs.Items)

	for i := 0; i < 50; i++ {
		eng.Store.AllChunks(func(c *world.Chunk) {
			for _, ent := range c.Entities {
				stepEntity(eng.Store, cat, ent)
			}
		})
	}

	if len(ms.Output) != minerBefore || len(cs.Items) != chestBefore {
		t.Fatalf("item counts changed: miner %d->%d chest %d->%d", minerBefore, len(ms.Output), chestBefore, len(cs.Items))
	}
}

func TestConveyorBackpressureDropsNothing(t *testing.T) {
	eng, cat := newTestEngine(t, int32(catalog.TileGrass))

	chestKind, _ := cat.EntityByName("chest")
	_ = chestKind
	cat.Entities[catalog.EntityChest] = catalog.EntityKind{
		ID: catalog.EntityChest, Name: "chest", BufferSize: 1,
	}
	cat.EntitiesByName["chest"] = cat.Entities[catalog.EntityChest]

	var belts []*world.Entity
	for i := 0; i < 4; i++ {
		b := eng.Store.PlaceEntity("conveyor", i, 0, world.East)
		belts = append(belts, b)
	}
	chest := eng.Store.PlaceEntity("chest", 4, 0, world.East)

	first := belts[0].State.(*world.ConveyorState)
	for i := 0; i < 5; i++ {
		first.Items = append(first.Items, world.ConveyorItem{Item: "iron_ore", Progress: 0})
	}

	for i := 0; i < 2000; i++ {
		eng.Store.AllChunks(func(c *world.Chunk) {
			for _, ent := range c.Entities {
				stepEntity(eng.Store, cat, ent)
			}
		})
	}

	total := 0
	for _, b := range belts {
		total += len(b.State.(*world.ConveyorState).Items)
	}
	total += len(chest.State.(*world.ChestState).Items)
	if total != 5 {
		t.Fatalf("expected 5 items conserved across the chain, got %d", total)
	}
}
