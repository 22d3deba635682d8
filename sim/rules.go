// Package sim implements the fixed-rate tick simulation: a single-writer
// transaction queue on which the per-tick machine step and queued player
// actions run one at a time, so ticks and actions interleave in one total
// order.
package sim

import (
	"github.com/ironfoundry/forge/catalog"
	"github.com/ironfoundry/forge/world"
)

// CanAccept reports whether target has room for one more item in its
// destination buffer, without mutating it. Used by the inserter state
// machine, which must check destination capacity before extracting from
// the source.
func CanAccept(cat *catalog.Catalog, target *world.Entity) bool {
	if target == nil {
		return false
	}
	kind, ok := cat.EntityByName(target.KindName)
	if !ok {
		return false
	}
	switch s := target.State.(type) {
	case *world.ConveyorState:
		return len(s.Items) < kind.BufferSize
	case *world.ChestState:
		return len(s.Items) < kind.BufferSize
	case *world.FurnaceState:
		return len(s.Input) < kind.InputBufferSize
	case *world.AssemblerState:
		return len(s.Input) < kind.InputBufferSize
	default:
		return false
	}
}

// Insert appends item to target's destination buffer if it has room.
// Reports whether the item was accepted.
func Insert(cat *catalog.Catalog, target *world.Entity, item string) bool {
	if target == nil || item == "" {
		return false
	}
	kind, ok := cat.EntityByName(target.KindName)
	if !ok {
		return false
	}
	switch s := target.State.(type) {
	case *world.ConveyorState:
		if len(s.Items) >= kind.BufferSize {
			return false
		}
		s.Items = append(s.Items, world.ConveyorItem{Item: item, Progress: 0})
		return true
	case *world.ChestState:
		if len(s.Items) >= kind.BufferSize {
			return false
		}
		s.Items = append(s.Items, item)
		return true
	case *world.FurnaceState:
		if len(s.Input) >= kind.InputBufferSize {
			return false
		}
		s.Input = append(s.Input, item)
		return true
	case *world.AssemblerState:
		if len(s.Input) >= kind.InputBufferSize {
			return false
		}
		s.Input = append(s.Input, item)
		return true
	default:
		return false
	}
}

// Extract pops and returns one item from source's extraction buffer.
// Reports whether an item was available.
func Extract(source *world.Entity) (string, bool) {
	if source == nil {
		return "", false
	}
	switch s := source.State.(type) {
	case *world.ChestState:
		if len(s.Items) == 0 {
			return "", false
		}
		item := s.Items[0]
		s.Items = s.Items[1:]
		return item, true
	case *world.FurnaceState:
		if len(s.Output) == 0 {
			return "", false
		}
		item := s.Output[0]
		s.Output = s.Output[1:]
		return item, true
	case *world.MinerState:
		if len(s.Output) == 0 {
			return "", false
		}
		item := s.Output[0]
		s.Output = s.Output[1:]
		return item, true
	case *world.AssemblerState:
		if len(s.Output) == 0 {
			return "", false
		}
		item := s.Output[0]
		s.Output = s.Output[1:]
		return item, true
	case *world.ConveyorState:
		for i, it := range s.Items {
			if it.Progress >= 0.9 {
				s.Items = append(s.Items[:i], s.Items[i+1:]...)
				return it.Item, true
			}
		}
		return "", false
	default:
		return "", false
	}
}
