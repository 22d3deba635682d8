package session

import (
	"github.com/ironfoundry/forge/inventory"
	"github.com/ironfoundry/forge/proto"
	"github.com/ironfoundry/forge/sim"
)

// handleInventoryAction dispatches one INVENTORY_ACTION. Every successful
// mutation triggers an INVENTORY_UPDATE back to the owning session; a
// failed/no-op action sends nothing, the same silent no-op treatment
// BUILD/DESTROY get.
func (h *Handler) handleInventoryAction(s *Session, env proto.Envelope) {
	var msg proto.InventoryActionMsg
	if err := proto.DecodeInto(env, &msg); err != nil {
		return
	}

	h.Engine.Exec(func(e *sim.Engine) {
		ok := false
		switch msg.Action {
		case proto.InvPickup:
			ok = inventory.Pickup(s.Inventory, e.Store, h.Cat, s.X, s.Y) > 0
		case proto.InvDrop:
			ok = inventory.Drop(s.Inventory, msg.Item, msg.Count) > 0
		case proto.InvTransferTo:
			if target := e.Store.EntityByID(msg.EntityID); target != nil {
				ok = inventory.TransferTo(s.Inventory, h.Cat, target, msg.Item)
				if ok {
					e.MarkEntityDirty(target)
				}
			}
		case proto.InvTransferFrom:
			if source := e.Store.EntityByID(msg.EntityID); source != nil {
				ok = inventory.TransferFrom(s.Inventory, h.Cat, source)
				if ok {
					e.MarkEntityDirty(source)
				}
			}
		case proto.InvSwap:
			ok = s.Inventory.Swap(msg.SrcSlot, msg.DstSlot)
		case proto.InvSplit:
			ok = s.Inventory.Split(msg.SrcSlot, msg.DstSlot, msg.Count)
		case proto.InvSort:
			s.Inventory.Sort(h.Cat)
			ok = true
		case proto.InvCraft:
			ok = inventory.Craft(s.Inventory, h.Cat, msg.Recipe)
		}
		if ok {
			s.Send(proto.INVENTORY_UPDATE, inventoryUpdateMsg(s.Inventory))
		}
	})
}
