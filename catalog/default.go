package catalog

// Tile kind IDs. Stable across the process lifetime; never renumber a live
// deployment's IDs since they're persisted in saved chunks.
const (
	TileGrass = iota
	TileDirt
	TileStone
	TileWater
	TileVoid
	TileIronOre
	TileCopperOre
	TileCoalOre
	TileSand
	TileSnow
)

// Entity kind IDs.
const (
	EntityMiner = iota
	EntityFurnace
	EntityAssembler
	EntityConveyor
	EntityInserter
	EntityChest
)

// DefaultCatalog returns the embedded content catalog used whenever no
// remote catalog is reachable (MONGO_URI unset or unreadable). It is the
// baseline every LoadRemote snapshot is validated against implicitly by
// sharing these names.
func DefaultCatalog() *Catalog {
	c := &Catalog{
		Tiles:            map[int]TileKind{},
		TilesByName:      map[string]TileKind{},
		Entities:         map[int]EntityKind{},
		EntitiesByName:   map[string]EntityKind{},
		Items:            map[string]Item{},
		FurnaceRecipes:   map[string]FurnaceRecipe{},
		AssemblerRecipes: map[string]AssemblerRecipe{},
		PlacementRules:   map[string]PlacementRule{},
		Constants: Constants{
			ChunkSize:           32,
			WorldTickRate:       60,
			PlayerSpeed:         4.5,
			ViewDistance:        3,
			MaxStack:            100,
			InventorySlots:      40,
			SpawnRadius:         250,
			RegionSize:          128,
			SeaLevel:            0.0,
			BeachThreshold:      0.05,
			MountainThreshold:   0.6,
			ConveyorCapacity:    3,
			ChestCapacity:       50,
			FurnaceIOCapacity:   10,
			AssemblerIOCapacity: 10,
			FlushInterval:       30,
			ChunkEvictRadius:    6,
		},
	}

	tiles := []TileKind{
		{ID: TileGrass, Name: "grass", Color: "#4c9a3a", Walkable: true},
		{ID: TileDirt, Name: "dirt", Color: "#7a5230", Walkable: true},
		{ID: TileStone, Name: "stone", Color: "#8a8a8a", Walkable: true},
		{ID: TileWater, Name: "water", Color: "#2f6fb0", Walkable: false},
		{ID: TileVoid, Name: "void", Color: "#000000", Walkable: false},
		{ID: TileIronOre, Name: "iron_ore", Color: "#caa472", Walkable: true, ResourceItem: "iron_ore"},
		{ID: TileCopperOre, Name: "copper_ore", Color: "#b5651d", Walkable: true, ResourceItem: "copper_ore"},
		{ID: TileCoalOre, Name: "coal_ore", Color: "#2b2b2b", Walkable: true, ResourceItem: "coal"},
		{ID: TileSand, Name: "sand", Color: "#ded3a0", Walkable: true},
		{ID: TileSnow, Name: "snow", Color: "#f0f4f8", Walkable: true},
	}
	for _, t := range tiles {
		c.Tiles[t.ID] = t
		c.TilesByName[t.Name] = t
	}

	entities := []EntityKind{
		{ID: EntityMiner, Name: "miner", DisplayName: "Miner", Color: "#c0392b", HasDirection: true, OutputBufferSize: 5, Cooldown: 60},
		{ID: EntityFurnace, Name: "furnace", DisplayName: "Furnace", Color: "#7f8c8d", HasDirection: true, InputBufferSize: 10, OutputBufferSize: 10},
		{ID: EntityAssembler, Name: "assembler", DisplayName: "Assembler", Color: "#2980b9", HasDirection: true, InputBufferSize: 10, OutputBufferSize: 10},
		{ID: EntityConveyor, Name: "conveyor", DisplayName: "Conveyor Belt", Color: "#d35400", HasDirection: true, BufferSize: 3, Speed: 0.02},
		{ID: EntityInserter, Name: "inserter", DisplayName: "Inserter", Color: "#f39c12", HasDirection: true, AnimationSpeed: 0.05, Cooldown: 20},
		{ID: EntityChest, Name: "chest", DisplayName: "Chest", Color: "#6e4a2e", HasDirection: false, BufferSize: 50},
	}
	for _, e := range entities {
		c.Entities[e.ID] = e
		c.EntitiesByName[e.Name] = e
	}

	items := []Item{
		{Name: "iron_ore", DisplayName: "Iron Ore", Color: "#caa472", Category: "raw"},
		{Name: "copper_ore", DisplayName: "Copper Ore", Color: "#b5651d", Category: "raw"},
		{Name: "coal", DisplayName: "Coal", Color: "#2b2b2b", Category: "raw"},
		{Name: "iron_plate", DisplayName: "Iron Plate", Color: "#d9d9d9", Category: "smelted"},
		{Name: "copper_plate", DisplayName: "Copper Plate", Color: "#e3944a", Category: "smelted"},
		{Name: "copper_wire", DisplayName: "Copper Wire", Color: "#f0a860", Category: "component"},
		{Name: "gear", DisplayName: "Iron Gear", Color: "#b0b0b0", Category: "component"},
		{Name: "circuit", DisplayName: "Electronic Circuit", Color: "#2e8b57", Category: "component"},
	}
	for _, it := range items {
		c.Items[it.Name] = it
	}

	c.FurnaceRecipes["iron_ore"] = FurnaceRecipe{Output: "iron_plate", Count: 1, Time: 120}
	c.FurnaceRecipes["copper_ore"] = FurnaceRecipe{Output: "copper_plate", Count: 1, Time: 120}

	c.AssemblerRecipes["gear"] = AssemblerRecipe{
		Name: "gear", DisplayName: "Iron Gear",
		Ingredients: map[string]int{"iron_plate": 2}, Result: "gear", Count: 1, Time: 100,
	}
	c.AssemblerRecipes["copper_wire"] = AssemblerRecipe{
		Name: "copper_wire", DisplayName: "Copper Wire",
		Ingredients: map[string]int{"copper_plate": 1}, Result: "copper_wire", Count: 2, Time: 30,
	}
	c.AssemblerRecipes["circuit"] = AssemblerRecipe{
		Name: "circuit", DisplayName: "Electronic Circuit",
		Ingredients: map[string]int{"iron_plate": 1, "copper_wire": 3}, Result: "circuit", Count: 1, Time: 150,
	}

	c.PlacementRules["miner"] = PlacementRule{Forbidden: map[string]bool{"water": true, "void": true}}
	c.PlacementRules["furnace"] = PlacementRule{Forbidden: map[string]bool{"water": true, "void": true}}
	c.PlacementRules["assembler"] = PlacementRule{Forbidden: map[string]bool{"water": true, "void": true}}
	c.PlacementRules["conveyor"] = PlacementRule{Forbidden: map[string]bool{"water": true, "void": true}}
	c.PlacementRules["inserter"] = PlacementRule{Forbidden: map[string]bool{"water": true, "void": true}}
	c.PlacementRules["chest"] = PlacementRule{Forbidden: map[string]bool{"water": true, "void": true}}

	return c
}
