package session

import (
	"github.com/ironfoundry/forge/catalog"
	"github.com/ironfoundry/forge/inventory"
	"github.com/ironfoundry/forge/persistence"
	"github.com/ironfoundry/forge/proto"
	"github.com/ironfoundry/forge/world"
)

// wireEntity converts a world.Entity to its over-the-wire shape.
func wireEntity(e *world.Entity) proto.WireEntity {
	var state map[string]any
	if e.State != nil {
		state = e.State.Encode()
	}
	return proto.WireEntity{
		ID: e.ID, Kind: e.KindName, X: e.X, Y: e.Y,
		Direction: e.Dir.String(), State: state,
	}
}

// chunkDataMsg converts a loaded chunk to its CHUNK_DATA payload.
func chunkDataMsg(c *world.Chunk) proto.ChunkDataMsg {
	entities := make([]proto.WireEntity, 0, len(c.Entities))
	for _, e := range c.Entities {
		entities = append(entities, wireEntity(e))
	}
	return proto.ChunkDataMsg{
		CX: c.Pos.X, CY: c.Pos.Y,
		Tiles:    append([]int32(nil), c.Tiles[:]...),
		Entities: entities,
	}
}

// inventoryUpdateMsg converts an Inventory to its full-snapshot wire shape.
func inventoryUpdateMsg(inv *inventory.Inventory) proto.InventoryUpdateMsg {
	slots := make([]proto.InventorySlotMsg, len(inv.Slots))
	for i, s := range inv.Slots {
		slots[i] = proto.InventorySlotMsg{Item: s.Item, Count: s.Count}
	}
	return proto.InventoryUpdateMsg{Slots: slots}
}

// inventorySlotsToRecord converts an Inventory to its persisted shape.
func inventorySlotsToRecord(inv *inventory.Inventory) []persistence.PlayerInvSlot {
	out := make([]persistence.PlayerInvSlot, 0, len(inv.Slots))
	for _, s := range inv.Slots {
		if !s.Empty() {
			out = append(out, persistence.PlayerInvSlot{Item: s.Item, Count: s.Count})
		}
	}
	return out
}

// catalogMsg snapshots the content catalog for the CATALOG handshake
// message: clients receive the catalog at handshake instead of reaching
// into the admin store directly.
func catalogMsg(cat *catalog.Catalog) proto.CatalogMsg {
	tiles := make([]map[string]any, 0, len(cat.Tiles))
	for _, t := range cat.Tiles {
		tiles = append(tiles, map[string]any{
			"id": t.ID, "name": t.Name, "color": t.Color,
			"walkable": t.Walkable, "resource_item": t.ResourceItem,
		})
	}
	entities := make([]map[string]any, 0, len(cat.Entities))
	for _, en := range cat.Entities {
		entities = append(entities, map[string]any{
			"id": en.ID, "name": en.Name, "display_name": en.DisplayName, "color": en.Color,
			"has_direction": en.HasDirection, "buffer_size": en.BufferSize,
			"input_buffer_size": en.InputBufferSize, "output_buffer_size": en.OutputBufferSize,
			"cooldown": en.Cooldown, "speed": en.Speed, "animation_speed": en.AnimationSpeed,
		})
	}
	items := make([]map[string]any, 0, len(cat.Items))
	for _, it := range cat.Items {
		items = append(items, map[string]any{
			"name": it.Name, "display_name": it.DisplayName, "color": it.Color, "category": it.Category,
		})
	}
	constants := map[string]any{
		"chunk_size": cat.Constants.ChunkSize, "world_tick_rate": cat.Constants.WorldTickRate,
		"player_speed": cat.Constants.PlayerSpeed, "view_distance": cat.Constants.ViewDistance,
		"max_stack": cat.Constants.MaxStack, "inventory_slots": cat.Constants.InventorySlots,
	}
	return proto.CatalogMsg{Tiles: tiles, Entities: entities, Items: items, Constants: constants}
}
