package world

import "voxfab.dev/internal/sim/catalogs"

const inventorySlots = 36

// Slot is one inventory cell. Count > 0 iff Item is non-empty.
type Slot struct {
	Item  string
	Count int
}

// Inventory is a fixed array of slots with a selected index. Slots 0-8 are
// the hotbar.
type Inventory struct {
	Slots    [inventorySlots]Slot
	Selected int

	cat *catalogs.Catalogs
}

func NewInventory(cat *catalogs.Catalogs) *Inventory {
	return &Inventory{cat: cat}
}

func (inv *Inventory) stackLimit(item string) int {
	if def, ok := inv.cat.Items.Defs[item]; ok && def.StackLimit > 0 {
		return def.StackLimit
	}
	return 999
}

// Add merges into existing stacks first, then spills into empty slots,
// lowest index first. Returns the count that did not fit.
func (inv *Inventory) Add(item string, count int) int {
	if item == "" || count <= 0 {
		return 0
	}
	limit := inv.stackLimit(item)
	for i := range inv.Slots {
		s := &inv.Slots[i]
		if s.Item != item || s.Count >= limit {
			continue
		}
		take := limit - s.Count
		if take > count {
			take = count
		}
		s.Count += take
		count -= take
		if count == 0 {
			return 0
		}
	}
	for i := range inv.Slots {
		s := &inv.Slots[i]
		if s.Count != 0 {
			continue
		}
		take := limit
		if take > count {
			take = count
		}
		s.Item = item
		s.Count = take
		count -= take
		if count == 0 {
			return 0
		}
	}
	return count
}

// Remove takes count units of item across slots, lowest index first.
// Returns false (and removes nothing) when the inventory holds fewer.
func (inv *Inventory) Remove(item string, count int) bool {
	if item == "" || count <= 0 {
		return true
	}
	if inv.Count(item) < count {
		return false
	}
	for i := range inv.Slots {
		s := &inv.Slots[i]
		if s.Item != item {
			continue
		}
		take := s.Count
		if take > count {
			take = count
		}
		s.Count -= take
		count -= take
		if s.Count == 0 {
			s.Item = ""
		}
		if count == 0 {
			return true
		}
	}
	return true
}

func (inv *Inventory) Count(item string) int {
	n := 0
	for i := range inv.Slots {
		if inv.Slots[i].Item == item {
			n += inv.Slots[i].Count
		}
	}
	return n
}

// SelectedItem returns the item in the selected slot, or "".
func (inv *Inventory) SelectedItem() string {
	if inv.Selected < 0 || inv.Selected >= len(inv.Slots) {
		return ""
	}
	return inv.Slots[inv.Selected].Item
}

// RemoveSelected debits one unit from the selected slot.
func (inv *Inventory) RemoveSelected() bool {
	if inv.Selected < 0 || inv.Selected >= len(inv.Slots) {
		return false
	}
	s := &inv.Slots[inv.Selected]
	if s.Count <= 0 {
		return false
	}
	s.Count--
	if s.Count == 0 {
		s.Item = ""
	}
	return true
}

func (inv *Inventory) Select(i int) {
	if i >= 0 && i < len(inv.Slots) {
		inv.Selected = i
	}
}

func (inv *Inventory) Clear() {
	for i := range inv.Slots {
		inv.Slots[i] = Slot{}
	}
}
