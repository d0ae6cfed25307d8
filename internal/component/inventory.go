package component

// MaxSlots bounds the fixed-size consumable inventory an Item action draws
// from (spec.md §4.3, §6 ITEM{slot}).
const MaxSlots = 8

// ItemSlot is one consumable slot. An empty slot has Count == 0.
type ItemSlot struct {
	ItemID uint32
	Count  uint16
}

// Inventory is the per-entity consumable slot array.
type Inventory struct {
	Slots           [MaxSlots]ItemSlot
	LastUpdatedTick uint64
}

// Consume decrements slot's count by one, returning false if the slot is
// out of range or already empty.
func (inv *Inventory) Consume(slot uint8, tick uint64) bool {
	if int(slot) >= MaxSlots {
		return false
	}
	s := &inv.Slots[slot]
	if s.Count == 0 {
		return false
	}
	s.Count--
	inv.LastUpdatedTick = tick
	return true
}
