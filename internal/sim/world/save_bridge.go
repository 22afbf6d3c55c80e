package world

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"voxfab.dev/internal/persistence/save"
)

// ExportSave captures the full mutable world state as a save document.
// Chunks are not exported; they regenerate from the seed, and the
// modification overlay replays on top.
func (w *World) ExportSave() *save.Document {
	doc := &save.Document{
		Version:   save.Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Seed:      w.cfg.Seed,
		Tick:      w.tick,
		Mode:      w.player.Mode.String(),
		Player: save.PlayerState{
			Pos:      w.player.Pos,
			Yaw:      w.player.Yaw,
			Selected: w.player.Inv.Selected,
		},
		PlatformInventory: map[string]int{},
		World:             map[string]string{},
	}

	for i, s := range w.player.Inv.Slots {
		if s.Count > 0 {
			doc.Inventory = append(doc.Inventory, save.SlotState{Slot: i, Item: s.Item, Count: s.Count})
		}
	}
	for item, n := range w.platform.Delivered {
		if n > 0 {
			doc.PlatformInventory[item] = n
		}
	}
	for _, e := range w.chunks.Overlay() {
		doc.World[e.Pos.Key()] = w.blockName(e.Block)
	}
	for _, pos := range w.machines.SortedPositions() {
		doc.Machines = append(doc.Machines, exportMachine(w.machines.At(pos)))
	}

	doc.Quests = save.QuestState{
		TutorialStep: w.prog.TutorialStep,
		QuestIndex:   w.prog.QuestIndex,
		Delivered:    map[string]int{},
	}
	for item, n := range w.prog.delivered {
		if n > 0 {
			doc.Quests.Delivered[item] = n
		}
	}
	doc.Quests.Completed = sortedTrueKeys(w.prog.completed)
	doc.Quests.Claimed = sortedTrueKeys(w.prog.claimed)

	for _, id := range sortedAchievementIDs(w.prog.achievements) {
		a := w.prog.achievements[id]
		doc.Achievements = append(doc.Achievements, save.Achievement{ID: a.ID, UnlockedTick: a.UnlockedTick})
	}
	return doc
}

func exportMachine(m *Machine) save.MachineState {
	st := save.MachineState{
		Kind:      m.Kind,
		Item:      m.Item,
		Handle:    m.Handle,
		Pos:       m.Pos.ToArray(),
		Facing:    m.Facing.String(),
		State:     m.State.String(),
		Progress:  m.Progress,
		TickCount: m.TickCount,
	}
	for i, s := range m.Inputs {
		if s.Count > 0 {
			st.Inputs = append(st.Inputs, save.SlotState{Slot: i, Item: s.Item, Count: s.Count})
		}
	}
	for i, s := range m.Outputs {
		if s.Count > 0 {
			st.Outputs = append(st.Outputs, save.SlotState{Slot: i, Item: s.Item, Count: s.Count})
		}
	}
	if m.Fuel.Count > 0 {
		st.Fuel = &save.SlotState{Item: m.Fuel.Item, Count: m.Fuel.Count}
	}
	if m.Committed != nil {
		st.Recipe = m.Committed.RecipeID
	}
	if m.Belt != nil {
		st.Belt = &save.BeltState{
			Shape:           m.Belt.Shape.String(),
			OutDir:          m.Belt.OutDir.String(),
			LastOutputIndex: m.Belt.LastOutputIndex,
			LastInputSource: m.Belt.LastInputSource,
		}
		for _, it := range m.Belt.Items {
			st.Belt.Items = append(st.Belt.Items, save.BeltItemState{
				Item:     it.Item,
				Progress: it.Progress,
				Lateral:  it.Lateral,
			})
		}
	}
	return st
}

// ImportSave replaces the running world state with the document's. The
// current state is only touched after the document validates, so a bad
// save leaves the world as it was.
func (w *World) ImportSave(doc *save.Document) error {
	overlay, err := w.importOverlay(doc.World)
	if err != nil {
		return err
	}
	machines, err := w.importMachines(doc.Machines)
	if err != nil {
		return err
	}
	if err := w.importItemNames(doc); err != nil {
		return err
	}

	w.tick = doc.Tick
	w.player.Pos = doc.Player.Pos
	w.player.Yaw = doc.Player.Yaw
	w.player.Mode = ModeSurvival
	if doc.Mode == "creative" {
		w.player.Mode = ModeCreative
	}
	w.player.Moved = 0
	w.player.RotSteps = 0
	w.player.OpenMachine = ""
	w.input = StateGameplay

	w.player.Inv = NewInventory(w.cat)
	for _, s := range doc.Inventory {
		w.player.Inv.Slots[s.Slot] = Slot{Item: s.Item, Count: s.Count}
	}
	w.player.Inv.Select(doc.Player.Selected)

	w.platform.Delivered = map[string]int{}
	for item, n := range doc.PlatformInventory {
		if n > 0 {
			w.platform.Delivered[item] = n
		}
	}

	w.chunks.ResetOverlay(overlay)
	w.machines = machines

	w.prog = NewProgression(w.cat)
	w.prog.TutorialStep = doc.Quests.TutorialStep
	w.prog.QuestIndex = doc.Quests.QuestIndex
	for item, n := range doc.Quests.Delivered {
		w.prog.delivered[item] = n
	}
	for _, id := range doc.Quests.Completed {
		w.prog.completed[id] = true
	}
	for _, id := range doc.Quests.Claimed {
		w.prog.claimed[id] = true
	}
	for _, a := range doc.Achievements {
		w.prog.achievements[a.ID] = &Achievement{ID: a.ID, UnlockedTick: a.UnlockedTick}
	}

	w.events = NewEventBus()
	w.obsDirty = map[ChunkKey]bool{}
	w.chunks.EnsureLoadedAround(w.playerBlockPos(), w.tun.ViewRadius)
	for _, k := range w.chunks.DirtyChunks() {
		w.obsDirty[k] = true
	}
	return nil
}

// importItemNames walks every item name the document carries and resolves
// it through the item interner. Saves persist names, never numeric ids, so
// the handle table is rebuilt here; a name without a definition rejects the
// whole document.
func (w *World) importItemNames(doc *save.Document) error {
	resolve := func(name, where string) error {
		if _, ok := w.cat.Items.Defs[name]; !ok {
			return fmt.Errorf("%w: unknown item %q in %s", save.ErrParse, name, where)
		}
		w.cat.Items.Index.Intern(name)
		return nil
	}

	for _, s := range doc.Inventory {
		if s.Slot < 0 || s.Slot >= inventorySlots {
			return fmt.Errorf("%w: inventory slot %d out of range", save.ErrParse, s.Slot)
		}
		if err := resolve(s.Item, "inventory"); err != nil {
			return err
		}
	}
	for item := range doc.PlatformInventory {
		if err := resolve(item, "platform inventory"); err != nil {
			return err
		}
	}
	for _, st := range doc.Machines {
		where := "machine " + st.Handle
		for _, s := range st.Inputs {
			if err := resolve(s.Item, where); err != nil {
				return err
			}
		}
		for _, s := range st.Outputs {
			if err := resolve(s.Item, where); err != nil {
				return err
			}
		}
		if st.Fuel != nil {
			if err := resolve(st.Fuel.Item, where); err != nil {
				return err
			}
		}
		if st.Belt == nil {
			continue
		}
		for _, it := range st.Belt.Items {
			if err := resolve(it.Item, where); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *World) importOverlay(entries map[string]string) ([]OverlayEntry, error) {
	out := make([]OverlayEntry, 0, len(entries))
	for key, name := range entries {
		pos, err := parseVecKey(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", save.ErrParse, err)
		}
		id, ok := w.cat.Blocks.Index[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown block %q at %s", save.ErrParse, name, key)
		}
		out = append(out, OverlayEntry{Pos: pos, Block: id})
	}
	return out, nil
}

func (w *World) importMachines(states []save.MachineState) (*Registry, error) {
	reg := NewRegistry()
	for _, st := range states {
		def := w.machineDef(st.Item)
		if def == nil {
			return nil, fmt.Errorf("%w: item %q is not a machine", save.ErrParse, st.Item)
		}
		if def.Kind != st.Kind {
			return nil, fmt.Errorf("%w: machine kind %q does not match item %q", save.ErrParse, st.Kind, st.Item)
		}
		facing, ok := DirFromString(st.Facing)
		if !ok {
			return nil, fmt.Errorf("%w: bad facing %q", save.ErrParse, st.Facing)
		}
		m := &Machine{
			Handle:    st.Handle,
			Kind:      st.Kind,
			Item:      st.Item,
			Pos:       Vec3i{X: st.Pos[0], Y: st.Pos[1], Z: st.Pos[2]},
			Facing:    facing,
			Progress:  st.Progress,
			TickCount: st.TickCount,
			def:       def,
		}
		switch st.State {
		case "RUNNING":
			m.State = StateRunning
		case "BLOCKED":
			m.State = StateBlocked
		}
		if def.InputSlots > 0 {
			m.Inputs = make([]Slot, def.InputSlots)
		}
		if def.OutputSlots > 0 {
			m.Outputs = make([]Slot, def.OutputSlots)
		}
		for _, s := range st.Inputs {
			if s.Slot < 0 || s.Slot >= len(m.Inputs) {
				return nil, fmt.Errorf("%w: machine %s input slot %d out of range", save.ErrParse, st.Handle, s.Slot)
			}
			m.Inputs[s.Slot] = Slot{Item: s.Item, Count: s.Count}
		}
		for _, s := range st.Outputs {
			if s.Slot < 0 || s.Slot >= len(m.Outputs) {
				return nil, fmt.Errorf("%w: machine %s output slot %d out of range", save.ErrParse, st.Handle, s.Slot)
			}
			m.Outputs[s.Slot] = Slot{Item: s.Item, Count: s.Count}
		}
		if st.Fuel != nil {
			m.Fuel = Slot{Item: st.Fuel.Item, Count: st.Fuel.Count}
		}
		if st.Recipe != "" {
			r, ok := w.cat.Recipes.ByID[st.Recipe]
			if !ok {
				return nil, fmt.Errorf("%w: unknown recipe %q", save.ErrParse, st.Recipe)
			}
			m.Committed = &r
		}
		if st.Belt != nil {
			outDir, ok := DirFromString(st.Belt.OutDir)
			if !ok {
				return nil, fmt.Errorf("%w: bad out_dir %q", save.ErrParse, st.Belt.OutDir)
			}
			m.Belt = &Belt{
				Shape:           shapeFromString(st.Belt.Shape),
				OutDir:          outDir,
				LastOutputIndex: st.Belt.LastOutputIndex,
				LastInputSource: st.Belt.LastInputSource,
			}
			for _, it := range st.Belt.Items {
				m.Belt.Items = append(m.Belt.Items, BeltItem{Item: it.Item, Progress: it.Progress, Lateral: it.Lateral})
			}
		} else if def.Process == "transfer" {
			m.Belt = &Belt{OutDir: facing}
		}
		if !reg.Restore(m) {
			return nil, fmt.Errorf("%w: duplicate machine at %s", save.ErrParse, m.Pos.Key())
		}
	}
	return reg, nil
}

func shapeFromString(s string) Shape {
	switch s {
	case "CORNER_LEFT":
		return ShapeCornerLeft
	case "CORNER_RIGHT":
		return ShapeCornerRight
	case "T_JUNCTION":
		return ShapeTJunction
	case "SPLITTER":
		return ShapeSplitter
	}
	return ShapeStraight
}

func parseVecKey(key string) (Vec3i, error) {
	parts := strings.Split(key, ",")
	if len(parts) != 3 {
		return Vec3i{}, fmt.Errorf("bad position key %q", key)
	}
	x, err1 := strconv.Atoi(parts[0])
	y, err2 := strconv.Atoi(parts[1])
	z, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return Vec3i{}, fmt.Errorf("bad position key %q", key)
	}
	return Vec3i{X: x, Y: y, Z: z}, nil
}

func sortedTrueKeys(m map[string]bool) []string {
	var out []string
	for k, v := range m {
		if v {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func sortedAchievementIDs(m map[string]*Achievement) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
