package world

import "voxfab.dev/internal/sim/catalogs"

// systemMachines advances every non-conveyor machine one fixed step, in
// ascending lexicographic position order, then runs the ejection phase.
func (w *World) systemMachines(dt float64) {
	positions := w.machines.SortedPositions()

	for _, pos := range positions {
		m := w.machines.At(pos)
		if m == nil || m.def == nil {
			continue
		}
		switch m.def.Process {
		case "auto_generate":
			w.tickAutoGenerate(m, dt)
		case "recipe":
			w.tickRecipe(m, dt)
		}
	}

	// Ejection: one item per machine per tick onto the conveyor the
	// machine faces.
	for _, pos := range positions {
		m := w.machines.At(pos)
		if m == nil || m.Belt != nil {
			continue
		}
		w.ejectOne(m)
	}
}

// tickAutoGenerate advances a miner. The cell below must hold minable
// terrain: a specific ore is mined as-is, stone and soil defer to the
// biome table with the machine's deterministic roll.
func (w *World) tickAutoGenerate(m *Machine, dt float64) {
	if len(m.Outputs) == 0 {
		return
	}
	out := &m.Outputs[0]
	buf := m.def.BufferSize
	if buf <= 0 {
		buf = 1
	}
	if out.Count >= buf {
		m.State = StateBlocked
		return
	}

	below := w.blockName(w.chunks.GetBlock(Vec3i{X: m.Pos.X, Y: m.Pos.Y - 1, Z: m.Pos.Z}))
	var mined string
	switch below {
	case "IRON_ORE":
		mined = "base:iron_ore"
	case "COPPER_ORE":
		mined = "base:copper_ore"
	case "COAL_ORE":
		mined = "base:coal"
	case "STONE", "GRASS", "DIRT", "SAND":
		mined = "" // biome roll below
	default:
		m.State = StateIdle
		return
	}

	m.State = StateRunning
	m.Progress += dt / m.def.ProcessSeconds
	if m.Progress < 1.0 {
		return
	}
	m.Progress = 0
	m.TickCount++

	if mined == "" {
		biome := biomeAt(w.cfg.Seed, m.Pos.X, m.Pos.Z, w.chunks.gen.PlatformMin, w.chunks.gen.PlatformMax)
		mined = biomeMiningOutput(biome, m.TickCount)
	}
	if out.Count == 0 || out.Item == mined {
		out.Item = mined
		out.Count++
	}
}

// tickRecipe advances a furnace or crusher through the blocked / commit /
// run sequence.
func (w *World) tickRecipe(m *Machine, dt float64) {
	if m.Committed != nil && !w.outputsFit(m, m.Committed) {
		m.State = StateBlocked
		return
	}

	if m.Committed == nil {
		r, ok := w.cat.Recipes.Match(m.def.RecipeTable, m.inputContents())
		if !ok {
			m.State = StateIdle
			return
		}
		w.consumeRecipeInputs(m, &r)
		recipe := r
		m.Committed = &recipe
		m.Progress = 0
		m.State = StateRunning
		w.events.MachineStarted = append(w.events.MachineStarted, MachineStartedEvent{
			Handle: m.Handle,
			Kind:   m.Kind,
			Pos:    m.Pos,
			Recipe: r.RecipeID,
			Inputs: r.Inputs,
		})
		return
	}

	m.State = StateRunning
	m.Progress += dt / m.Committed.Seconds
	if m.Progress < 1.0 {
		return
	}
	r := m.Committed
	w.depositOutputs(m, r)
	m.Progress = 0
	m.Committed = nil
	m.State = StateIdle
	w.events.MachineCompleted = append(w.events.MachineCompleted, MachineCompletedEvent{
		Handle:  m.Handle,
		Kind:    m.Kind,
		Pos:     m.Pos,
		Recipe:  r.RecipeID,
		Outputs: r.Outputs,
	})
}

// consumeRecipeInputs debits the recipe's inputs from the input slots and
// its fuel charge from the fuel slot, falling back to fuel riding in an
// input slot as a restored save may have it. Match already verified
// coverage, so the debit always lands somewhere it counted.
func (w *World) consumeRecipeInputs(m *Machine, r *catalogs.RecipeDef) {
	for _, ic := range r.Inputs {
		debitSlots(m.Inputs, ic.Item, ic.Count)
	}
	if r.Fuel == nil {
		return
	}
	remaining := r.Fuel.Count
	if m.Fuel.Count > 0 && m.Fuel.Item == r.Fuel.Item {
		take := m.Fuel.Count
		if take > remaining {
			take = remaining
		}
		m.Fuel.Count -= take
		remaining -= take
		if m.Fuel.Count == 0 {
			m.Fuel = Slot{}
		}
	}
	if remaining > 0 {
		debitSlots(m.Inputs, r.Fuel.Item, remaining)
	}
}

func debitSlots(slots []Slot, item string, count int) {
	remaining := count
	for i := range slots {
		s := &slots[i]
		if s.Item != item || s.Count == 0 {
			continue
		}
		take := s.Count
		if take > remaining {
			take = remaining
		}
		s.Count -= take
		remaining -= take
		if s.Count == 0 {
			s.Item = ""
		}
		if remaining == 0 {
			return
		}
	}
}

func (w *World) outputsFit(m *Machine, r *catalogs.RecipeDef) bool {
	// Work on a copy so the fit check does not mutate slots.
	slots := make([]Slot, len(m.Outputs))
	copy(slots, m.Outputs)
	for _, oc := range r.Outputs {
		limit := w.stackLimit(oc.Item)
		remaining := oc.Count
		for i := range slots {
			s := &slots[i]
			var free int
			switch {
			case s.Count == 0:
				free = limit
			case s.Item == oc.Item:
				free = limit - s.Count
			default:
				continue
			}
			if free <= 0 {
				continue
			}
			take := free
			if take > remaining {
				take = remaining
			}
			s.Item = oc.Item
			s.Count += take
			remaining -= take
			if remaining == 0 {
				break
			}
		}
		if remaining > 0 {
			return false
		}
	}
	return true
}

// depositOutputs merges into same-item stacks first, then spills into empty
// slots, lowest index first.
func (w *World) depositOutputs(m *Machine, r *catalogs.RecipeDef) {
	for _, oc := range r.Outputs {
		limit := w.stackLimit(oc.Item)
		remaining := oc.Count
		for i := range m.Outputs {
			s := &m.Outputs[i]
			if s.Item != oc.Item || s.Count >= limit {
				continue
			}
			take := limit - s.Count
			if take > remaining {
				take = remaining
			}
			s.Count += take
			remaining -= take
			if remaining == 0 {
				break
			}
		}
		for i := range m.Outputs {
			s := &m.Outputs[i]
			if remaining == 0 {
				break
			}
			if s.Count != 0 {
				continue
			}
			take := limit
			if take > remaining {
				take = remaining
			}
			s.Item = oc.Item
			s.Count = take
			remaining -= take
		}
		// remaining > 0 cannot happen: outputsFit gated the commit.
	}
}

// ejectOne hands at most one output item to the conveyor in front of the
// machine.
func (w *World) ejectOne(m *Machine) {
	var out *Slot
	for i := range m.Outputs {
		if m.Outputs[i].Count > 0 {
			out = &m.Outputs[i]
			break
		}
	}
	if out == nil {
		return
	}

	to := m.Pos.Add(m.Facing.Delta())
	target := w.machines.At(to)
	if target == nil || target.Belt == nil {
		return
	}
	at, lateral, ok := target.JoinInfo(m.Pos)
	if !ok {
		return
	}
	if !target.Belt.CanAccept(at, w.tun.Conveyor.ItemSpacing, w.tun.Conveyor.MaxItems) {
		return
	}
	target.Belt.Insert(out.Item, at, lateral)
	w.events.ConveyorTransfer = append(w.events.ConveyorTransfer, ConveyorTransferEvent{
		From: m.Pos, To: to, Item: out.Item,
	})
	out.Count--
	if out.Count == 0 {
		out.Item = ""
	}
}
