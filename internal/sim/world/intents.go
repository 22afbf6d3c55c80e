package world

import (
	"math"

	"voxfab.dev/internal/protocol"
)

func okResult() protocol.ResultMsg {
	return protocol.ResultMsg{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeResult, ProtocolVersion: protocol.Version},
		OK:          true,
	}
}

func dropResult() protocol.ResultMsg {
	return protocol.ResultMsg{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeResult, ProtocolVersion: protocol.Version},
		OK:          false,
	}
}

func errResult(code, msg string) protocol.ResultMsg {
	return protocol.ResultMsg{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeResult, ProtocolVersion: protocol.Version},
		OK:          false,
		Code:        code,
		Message:     msg,
	}
}

// applyIntent runs one intent against the active input state. Gated
// intents drop without an error code; only commands surface codes.
func (w *World) applyIntent(msg protocol.IntentMsg) protocol.ResultMsg {
	switch msg.Kind {
	case protocol.IntentToggleUI:
		return w.toggleUI(msg.UI)
	case protocol.IntentCommand:
		if w.input != StateGameplay && w.input != StateCommand {
			return dropResult()
		}
		return w.executeCommand(msg.Text)
	}

	if w.input != StateGameplay {
		// Block-world intents while a UI is open are user double-input,
		// not faults.
		if msg.Kind == protocol.IntentSelectSlot && w.input == StateInventory {
			w.player.Inv.Select(msg.Slot)
			return okResult()
		}
		return dropResult()
	}

	switch msg.Kind {
	case protocol.IntentMove:
		w.movePlayer(msg.Delta)
		return okResult()
	case protocol.IntentSelectSlot:
		w.player.Inv.Select(msg.Slot)
		return okResult()
	case protocol.IntentRotatePlacement:
		w.player.RotSteps = (w.player.RotSteps + 1) % 4
		return okResult()
	case protocol.IntentPlaceBlock:
		w.placeAt(Vec3i{X: msg.Pos[0], Y: msg.Pos[1], Z: msg.Pos[2]}, msg.Yaw)
		return okResult()
	case protocol.IntentBreakBlock:
		w.breakAt(Vec3i{X: msg.Pos[0], Y: msg.Pos[1], Z: msg.Pos[2]})
		return okResult()
	case protocol.IntentInteract:
		w.interactAt(Vec3i{X: msg.Pos[0], Y: msg.Pos[1], Z: msg.Pos[2]})
		return okResult()
	case protocol.IntentTeleport:
		w.teleport(Vec3i{X: msg.Pos[0], Y: msg.Pos[1], Z: msg.Pos[2]})
		return okResult()
	case protocol.IntentClaimReward:
		w.claimReward(msg.QuestID)
		return okResult()
	}
	return errResult(protocol.ErrUnknownIntent, "unknown intent kind: "+msg.Kind)
}

func (w *World) toggleUI(ui string) protocol.ResultMsg {
	switch ui {
	case "inventory":
		if w.input == StateInventory {
			w.input = StateGameplay
		} else if w.input == StateGameplay {
			w.input = StateInventory
			w.events.UIOpened = append(w.events.UIOpened, UIOpenedEvent{UI: "inventory"})
		}
	case "pause":
		if w.input == StatePaused {
			w.input = StateGameplay
		} else {
			w.input = StatePaused
		}
	case "command":
		if w.input == StateCommand {
			w.input = StateGameplay
		} else if w.input == StateGameplay {
			w.input = StateCommand
		}
	default:
		// Close whatever is open.
		w.input = StateGameplay
		w.player.OpenMachine = ""
	}
	return okResult()
}

func (w *World) movePlayer(delta [3]float64) {
	w.player.Pos[0] += delta[0]
	w.player.Pos[1] += delta[1]
	w.player.Pos[2] += delta[2]
	w.player.Moved += math.Hypot(delta[0], delta[2])
}

// placeAt instantiates the selected item at pos: machines through the
// registry, placeable blocks through the chunk store.
func (w *World) placeAt(pos Vec3i, yaw float64) {
	item := w.player.Inv.SelectedItem()
	if item == "" {
		return
	}
	if w.chunks.HasBlock(pos) || w.machines.At(pos) != nil {
		return
	}

	if def := w.machineDef(item); def != nil {
		facing := YawToDir(yaw)
		for i := 0; i < w.player.RotSteps; i++ {
			facing = facing.Right()
		}
		if w.machines.Place(item, def, pos, facing) == nil {
			return
		}
		if w.player.Mode == ModeSurvival && !w.player.Inv.RemoveSelected() {
			w.machines.Remove(pos)
			return
		}
		w.player.RotSteps = 0
		w.events.BlockPlaced = append(w.events.BlockPlaced, BlockPlacedEvent{Pos: pos, Item: item})
		return
	}

	idef, ok := w.cat.Items.Defs[item]
	if !ok || idef.PlaceAs == "" {
		return
	}
	block, ok := w.cat.Blocks.Index[idef.PlaceAs]
	if !ok {
		return
	}
	if w.player.Mode == ModeSurvival && !w.player.Inv.RemoveSelected() {
		return
	}
	w.chunks.SetBlock(pos, block)
	w.player.RotSteps = 0
	w.events.BlockPlaced = append(w.events.BlockPlaced, BlockPlacedEvent{Pos: pos, Item: item})
}

// breakAt removes the machine at pos if one exists, otherwise the block.
// Machine breakage discards belt items and returns buffered stacks.
func (w *World) breakAt(pos Vec3i) {
	if m := w.machines.Remove(pos); m != nil {
		w.creditOrSpill(m.Item, 1)
		for _, s := range m.Inputs {
			if s.Count > 0 {
				w.creditOrSpill(s.Item, s.Count)
			}
		}
		for _, s := range m.Outputs {
			if s.Count > 0 {
				w.creditOrSpill(s.Item, s.Count)
			}
		}
		if m.Fuel.Count > 0 {
			w.creditOrSpill(m.Fuel.Item, m.Fuel.Count)
		}
		if w.player.OpenMachine == m.Handle {
			w.player.OpenMachine = ""
		}
		w.events.BlockBroken = append(w.events.BlockBroken, BlockBrokenEvent{Pos: pos, Drop: m.Item})
		return
	}

	name := w.blockName(w.chunks.GetBlock(pos))
	def, ok := w.cat.Blocks.Defs[name]
	if !ok || !def.Breakable {
		return
	}
	w.chunks.BreakBlock(pos)
	if def.DropsItem != "" {
		w.creditOrSpill(def.DropsItem, 1)
	}
	w.events.BlockBroken = append(w.events.BlockBroken, BlockBrokenEvent{Pos: pos, Block: name, Drop: def.DropsItem})
}

func (w *World) creditOrSpill(item string, count int) {
	if over := w.player.Inv.Add(item, count); over > 0 {
		w.logger.Printf("inventory full, discarding %dx %s", over, item)
	}
}

// interactAt opens the machine UI for recipe and miner machines.
func (w *World) interactAt(pos Vec3i) {
	m := w.machines.At(pos)
	if m == nil {
		return
	}
	switch m.Kind {
	case "furnace":
		w.input = StateFurnaceUI
	case "crusher":
		w.input = StateCrusherUI
	case "miner":
		w.input = StateMinerUI
	default:
		return
	}
	w.player.OpenMachine = m.Handle
}

// teleport refuses to place the player inside a solid block.
func (w *World) teleport(pos Vec3i) {
	if w.chunks.HasBlock(pos) || w.chunks.HasBlock(Vec3i{X: pos.X, Y: pos.Y + 1, Z: pos.Z}) {
		w.logger.Printf("teleport into solid block at %s rejected", pos.Key())
		return
	}
	w.player.Pos = [3]float64{float64(pos.X), float64(pos.Y), float64(pos.Z)}
}

func (w *World) claimReward(questID string) {
	rewards, ok := w.prog.Claim(questID)
	if !ok {
		return
	}
	for _, rc := range rewards {
		w.creditOrSpill(rc.Item, rc.Count)
	}
}
