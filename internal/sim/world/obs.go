package world

import (
	"encoding/hex"
	"sort"

	"voxfab.dev/internal/protocol"
)

// buildSnapshot assembles the per-tick observation: dirty chunk payloads,
// every machine's state, the drained event frame and the player view.
func (w *World) buildSnapshot(frame EventFrame, digest string) *protocol.SnapshotMsg {
	snap := &protocol.SnapshotMsg{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeSnapshot, ProtocolVersion: protocol.Version},
		Tick:        w.tick,
		StateDigest: digest,
	}

	keys := make([]ChunkKey, 0, len(w.obsDirty))
	for k := range w.obsDirty {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
	for _, k := range keys {
		ch := w.chunks.Loaded(k)
		if ch == nil {
			continue
		}
		sum := ch.Digest()
		snap.Chunks = append(snap.Chunks, protocol.ChunkObs{
			CX:     k.CX,
			CZ:     k.CZ,
			Blocks: append([]uint16(nil), ch.Blocks...),
			Hash:   hex.EncodeToString(sum[:]),
		})
	}
	w.obsDirty = map[ChunkKey]bool{}

	for _, pos := range w.machines.SortedPositions() {
		snap.Machines = append(snap.Machines, machineObs(w.machines.At(pos)))
	}

	snap.Events = eventObs(frame)
	snap.Player = w.playerObs()
	for _, s := range w.platform.Items() {
		snap.Platform = append(snap.Platform, protocol.ItemCountObs{Item: s.Item, Count: s.Count})
	}
	snap.Progression = w.progressionObs()
	return snap
}

func machineObs(m *Machine) protocol.MachineObs {
	obs := protocol.MachineObs{
		Handle:   m.Handle,
		Kind:     m.Kind,
		Item:     m.Item,
		Pos:      m.Pos.ToArray(),
		Facing:   m.Facing.String(),
		State:    m.State.String(),
		Progress: m.Progress,
	}
	for _, s := range m.Inputs {
		obs.Inputs = append(obs.Inputs, protocol.SlotObs{Item: s.Item, Count: s.Count})
	}
	for _, s := range m.Outputs {
		obs.Outputs = append(obs.Outputs, protocol.SlotObs{Item: s.Item, Count: s.Count})
	}
	if m.Fuel.Count > 0 {
		obs.Fuel = &protocol.SlotObs{Item: m.Fuel.Item, Count: m.Fuel.Count}
	}
	if m.Belt != nil {
		obs.Shape = m.Belt.Shape.String()
		obs.OutDir = m.Belt.OutDir.String()
		for _, it := range m.Belt.Items {
			obs.Items = append(obs.Items, protocol.BeltItemObs{
				Item:     it.Item,
				Progress: it.Progress,
				Lateral:  it.Lateral,
			})
		}
	}
	return obs
}

func eventObs(frame EventFrame) []protocol.EventObs {
	var out []protocol.EventObs
	for _, ev := range frame.BlockPlaced {
		out = append(out, protocol.EventObs{Kind: "block_placed", Pos: ev.Pos.ToArray(), Item: ev.Item})
	}
	for _, ev := range frame.BlockBroken {
		out = append(out, protocol.EventObs{Kind: "block_broken", Pos: ev.Pos.ToArray(), Item: ev.Drop, Text: ev.Block})
	}
	for _, ev := range frame.MachineStarted {
		out = append(out, protocol.EventObs{Kind: "machine_started", Pos: ev.Pos.ToArray(), Text: ev.Recipe, Handle: ev.Handle})
	}
	for _, ev := range frame.MachineCompleted {
		out = append(out, protocol.EventObs{Kind: "machine_completed", Pos: ev.Pos.ToArray(), Text: ev.Recipe, Handle: ev.Handle})
	}
	for _, ev := range frame.ItemDelivered {
		out = append(out, protocol.EventObs{Kind: "item_delivered", Item: ev.Item, N: ev.Count})
	}
	for _, ev := range frame.ConveyorTransfer {
		out = append(out, protocol.EventObs{Kind: "conveyor_transfer", Pos: ev.To.ToArray(), Item: ev.Item})
	}
	for _, ev := range frame.TutorialAdvanced {
		out = append(out, protocol.EventObs{Kind: "tutorial_advanced", N: ev.Step, Text: ev.ID})
	}
	for _, ev := range frame.UIOpened {
		out = append(out, protocol.EventObs{Kind: "ui_opened", Text: ev.UI})
	}
	return out
}

func (w *World) playerObs() protocol.PlayerObs {
	obs := protocol.PlayerObs{
		Pos:      w.player.Pos,
		Yaw:      w.player.Yaw,
		Selected: w.player.Inv.Selected,
		Mode:     w.player.Mode.String(),
		UI:       w.input.String(),
	}
	for _, s := range w.player.Inv.Slots {
		obs.Inventory = append(obs.Inventory, protocol.SlotObs{Item: s.Item, Count: s.Count})
	}
	return obs
}

func (w *World) progressionObs() *protocol.ProgressionObs {
	obs := &protocol.ProgressionObs{
		TutorialStep: w.prog.TutorialStep,
		TutorialDone: w.prog.TutorialDone(),
	}
	for i, id := range w.cat.Quests.Order {
		q := w.cat.Quests.ByID[id]
		state := "locked"
		switch {
		case w.prog.claimed[id]:
			state = "claimed"
		case w.prog.completed[id]:
			state = "completed"
		case i == w.prog.QuestIndex:
			state = "active"
		}
		have, want := 0, 0
		if i == w.prog.QuestIndex || w.prog.completed[id] {
			have, want = w.prog.QuestProgress(&q)
		}
		obs.Quests = append(obs.Quests, protocol.QuestObs{
			ID:        id,
			State:     state,
			Progress:  have,
			Required:  want,
			Claimable: w.prog.completed[id] && !w.prog.claimed[id],
		})
	}
	for _, id := range sortedAchievementIDs(w.prog.achievements) {
		a := w.prog.achievements[id]
		obs.Achievements = append(obs.Achievements, protocol.AchievementObs{
			ID:           a.ID,
			UnlockedTick: a.UnlockedTick,
		})
	}
	return obs
}
