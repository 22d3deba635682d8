package world

// MachineState is the per-kind mutable state of a placed entity: a tagged
// union expressed as a Go interface rather than a dynamically-typed data
// dict. Every concrete state type below implements MachineState, and
// Entity.State holds exactly one of them, selected by Entity.KindName. The
// wire and persistence encodings stay a self-describing map (Encode), so
// old or foreign readers that don't know a field just ignore it.
type MachineState interface {
	// Encode returns the wire/persistence representation of the state.
	Encode() map[string]any
}

// MinerState is the state of a MINER.
type MinerState struct {
	Output   []string // FIFO of item names, head is Output[0]
	Cooldown int
}

func (s *MinerState) Encode() map[string]any {
	return map[string]any{"output": append([]string(nil), s.Output...), "cooldown": s.Cooldown}
}

// DecodeMinerState builds a MinerState from a decoded wire/persistence map.
// Unknown keys are ignored; missing keys keep the zero value.
func DecodeMinerState(d map[string]any) *MinerState {
	s := &MinerState{}
	s.Output = decodeStringSlice(d["output"])
	s.Cooldown = decodeInt(d["cooldown"])
	return s
}

// FurnaceState is the state of a FURNACE.
type FurnaceState struct {
	Input    []string
	Output   []string
	Cooldown int
}

func (s *FurnaceState) Encode() map[string]any {
	return map[string]any{
		"input": append([]string(nil), s.Input...), "output": append([]string(nil), s.Output...),
		"cooldown": s.Cooldown,
	}
}

func DecodeFurnaceState(d map[string]any) *FurnaceState {
	s := &FurnaceState{}
	s.Input = decodeStringSlice(d["input"])
	s.Output = decodeStringSlice(d["output"])
	s.Cooldown = decodeInt(d["cooldown"])
	return s
}

// AssemblerState is the state of an ASSEMBLER.
type AssemblerState struct {
	Input    []string
	Output   []string
	Cooldown int
	Recipe   string // empty when unconfigured
}

func (s *AssemblerState) Encode() map[string]any {
	return map[string]any{
		"input": append([]string(nil), s.Input...), "output": append([]string(nil), s.Output...),
		"cooldown": s.Cooldown, "recipe": s.Recipe,
	}
}

func DecodeAssemblerState(d map[string]any) *AssemblerState {
	s := &AssemblerState{}
	s.Input = decodeStringSlice(d["input"])
	s.Output = decodeStringSlice(d["output"])
	s.Cooldown = decodeInt(d["cooldown"])
	s.Recipe, _ = d["recipe"].(string)
	return s
}

// ConveyorItem is one item riding a conveyor belt, with its progress toward
// the downstream tile.
type ConveyorItem struct {
	Item     string
	Progress float64
}

// ConveyorState is the state of a CONVEYOR.
type ConveyorState struct {
	Items []ConveyorItem
}

func (s *ConveyorState) Encode() map[string]any {
	items := make([]map[string]any, len(s.Items))
	for i, it := range s.Items {
		items[i] = map[string]any{"item": it.Item, "progress": it.Progress}
	}
	return map[string]any{"items": items}
}

func DecodeConveyorState(d map[string]any) *ConveyorState {
	s := &ConveyorState{}
	raw, _ := d["items"].([]any)
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		item, _ := m["item"].(string)
		s.Items = append(s.Items, ConveyorItem{Item: item, Progress: decodeFloat(m["progress"])})
	}
	return s
}

// InserterState is the state of an INSERTER.
type InserterState struct {
	HeldItem string // empty when not holding
	Progress float64
	Cooldown int
}

func (s *InserterState) Encode() map[string]any {
	return map[string]any{"held_item": s.HeldItem, "progress": s.Progress, "cooldown": s.Cooldown}
}

func DecodeInserterState(d map[string]any) *InserterState {
	s := &InserterState{}
	s.HeldItem, _ = d["held_item"].(string)
	s.Progress = decodeFloat(d["progress"])
	s.Cooldown = decodeInt(d["cooldown"])
	return s
}

// ChestState is the state of a CHEST: purely passive storage.
type ChestState struct {
	Items []string
}

func (s *ChestState) Encode() map[string]any {
	return map[string]any{"items": append([]string(nil), s.Items...)}
}

func DecodeChestState(d map[string]any) *ChestState {
	s := &ChestState{}
	s.Items = decodeStringSlice(d["items"])
	return s
}

// DecodeState builds the kind-specific MachineState for kindName from a
// decoded map, or nil if kindName is not a recognised machine kind.
func DecodeState(kindName string, d map[string]any) MachineState {
	switch kindName {
	case "miner":
		return DecodeMinerState(d)
	case "furnace":
		return DecodeFurnaceState(d)
	case "assembler":
		return DecodeAssemblerState(d)
	case "conveyor":
		return DecodeConveyorState(d)
	case "inserter":
		return DecodeInserterState(d)
	case "chest":
		return DecodeChestState(d)
	default:
		return nil
	}
}

// NewState returns the zero-valued state for a freshly-built entity of the
// given kind.
func NewState(kindName string) MachineState {
	switch kindName {
	case "miner":
		return &MinerState{}
	case "furnace":
		return &FurnaceState{}
	case "assembler":
		return &AssemblerState{}
	case "conveyor":
		return &ConveyorState{}
	case "inserter":
		return &InserterState{}
	case "chest":
		return &ChestState{}
	default:
		return nil
	}
}

// Entity is a placeable machine or the player avatar.
type Entity struct {
	ID        uint64
	KindName  string
	X, Y      int
	Dir       Direction
	State     MachineState
	Dirty     bool
}

func decodeStringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func decodeInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int8:
		return int(n)
	case int16:
		return int(n)
	case int32:
		return int(n)
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func decodeFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
