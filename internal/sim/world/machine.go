package world

import (
	"fmt"
	"sort"

	"voxfab.dev/internal/sim/catalogs"
)

type ProcessState uint8

const (
	StateIdle ProcessState = iota
	StateRunning
	StateBlocked
)

func (s ProcessState) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateBlocked:
		return "BLOCKED"
	default:
		return "IDLE"
	}
}

// Machine is the exclusive owner of one block cell. Conveyors are machines
// whose process is "transfer"; their belt state lives in Belt.
type Machine struct {
	Handle string
	Kind   string // "miner","conveyor","furnace","crusher"
	Item   string // item that placed this machine, credited on break
	Pos    Vec3i
	Facing Dir

	State    ProcessState
	Progress float64

	Inputs  []Slot
	Outputs []Slot
	Fuel    Slot

	// Committed is the recipe consumed at start and deposited at
	// completion. Nil while idle.
	Committed *catalogs.RecipeDef

	// TickCount drives the miner's deterministic biome roll.
	TickCount uint32

	Belt *Belt

	def *catalogs.MachineDef
}

func (m *Machine) Def() *catalogs.MachineDef { return m.def }

// inputContents aggregates input slots plus fuel for recipe matching.
func (m *Machine) inputContents() map[string]int {
	out := map[string]int{}
	for i := range m.Inputs {
		if m.Inputs[i].Count > 0 {
			out[m.Inputs[i].Item] += m.Inputs[i].Count
		}
	}
	if m.Fuel.Count > 0 {
		out[m.Fuel.Item] += m.Fuel.Count
	}
	return out
}

// acceptsInput reports whether one unit of item fits an input slot (or the
// fuel slot for fuel-burning machines).
func (m *Machine) acceptsInput(item string, fuelItems map[string]bool) bool {
	if m.def != nil && m.def.RequiresFuel && fuelItems[item] {
		if m.Fuel.Count == 0 || m.Fuel.Item == item {
			return true
		}
	}
	for i := range m.Inputs {
		s := &m.Inputs[i]
		if s.Count == 0 || s.Item == item {
			return true
		}
	}
	return false
}

// addInput inserts one unit, routing fuel items to the fuel slot first.
func (m *Machine) addInput(item string, fuelItems map[string]bool) bool {
	if m.def != nil && m.def.RequiresFuel && fuelItems[item] {
		if m.Fuel.Count == 0 {
			m.Fuel = Slot{Item: item, Count: 1}
			return true
		}
		if m.Fuel.Item == item {
			m.Fuel.Count++
			return true
		}
	}
	for i := range m.Inputs {
		s := &m.Inputs[i]
		if s.Item == item {
			s.Count++
			return true
		}
	}
	for i := range m.Inputs {
		s := &m.Inputs[i]
		if s.Count == 0 {
			*s = Slot{Item: item, Count: 1}
			return true
		}
	}
	return false
}

// Registry assigns stable handles to machines and maintains the position
// index. At most one machine per grid position.
type Registry struct {
	byPos    map[Vec3i]*Machine
	byHandle map[string]*Machine
	nextNum  uint64
}

func NewRegistry() *Registry {
	return &Registry{
		byPos:    map[Vec3i]*Machine{},
		byHandle: map[string]*Machine{},
	}
}

func (r *Registry) newHandle() string {
	r.nextNum++
	return fmt.Sprintf("M%06d", r.nextNum)
}

// Place creates a machine at pos. Returns nil when pos is occupied.
func (r *Registry) Place(item string, def *catalogs.MachineDef, pos Vec3i, facing Dir) *Machine {
	if _, taken := r.byPos[pos]; taken {
		return nil
	}
	m := &Machine{
		Handle: r.newHandle(),
		Kind:   def.Kind,
		Item:   item,
		Pos:    pos,
		Facing: facing,
		def:    def,
	}
	if def.InputSlots > 0 {
		m.Inputs = make([]Slot, def.InputSlots)
	}
	if def.OutputSlots > 0 {
		m.Outputs = make([]Slot, def.OutputSlots)
	}
	if def.Process == "transfer" {
		m.Belt = &Belt{}
	}
	r.byPos[pos] = m
	r.byHandle[m.Handle] = m
	return m
}

// Restore registers a machine rebuilt from a save, keeping its recorded
// handle. Returns false when the position or handle is already taken.
func (r *Registry) Restore(m *Machine) bool {
	if _, taken := r.byPos[m.Pos]; taken {
		return false
	}
	if _, taken := r.byHandle[m.Handle]; taken {
		return false
	}
	var n uint64
	if _, err := fmt.Sscanf(m.Handle, "M%06d", &n); err == nil && n > r.nextNum {
		r.nextNum = n
	}
	r.byPos[m.Pos] = m
	r.byHandle[m.Handle] = m
	return true
}

// Remove deregisters the machine at pos and returns it.
func (r *Registry) Remove(pos Vec3i) *Machine {
	m := r.byPos[pos]
	if m == nil {
		return nil
	}
	delete(r.byPos, pos)
	delete(r.byHandle, m.Handle)
	return m
}

func (r *Registry) At(pos Vec3i) *Machine      { return r.byPos[pos] }
func (r *Registry) ByHandle(h string) *Machine { return r.byHandle[h] }
func (r *Registry) Len() int                   { return len(r.byPos) }

// SortedPositions returns every machine position in lexicographic order.
// The machine tick iterates this order for determinism.
func (r *Registry) SortedPositions() []Vec3i {
	out := make([]Vec3i, 0, len(r.byPos))
	for p := range r.byPos {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
