package world

import (
	"testing"

	"voxfab.dev/internal/protocol"
)

func toggleUI(ui string) protocol.IntentMsg {
	msg := intent(protocol.IntentToggleUI)
	msg.UI = ui
	return msg
}

func TestPlacementGatedWhileInventoryOpen(t *testing.T) {
	w := newTestWorld(t)
	selectItem(t, w, "base:miner")

	w.StepOnce([]protocol.IntentMsg{toggleUI("inventory")})
	if w.input != StateInventory {
		t.Fatalf("input state = %s, want inventory", w.input)
	}

	pos := Vec3i{X: 0, Y: 8, Z: 0}
	w.StepOnce([]protocol.IntentMsg{placeIntent(pos, 90)})
	if w.machines.At(pos) != nil {
		t.Fatalf("placement went through with the inventory open")
	}
	if got := countItem(w, "base:miner"); got != 2 {
		t.Fatalf("miner count = %d, want 2 untouched", got)
	}

	// Slot selection is the one world intent the inventory screen allows.
	sel := intent(protocol.IntentSelectSlot)
	sel.Slot = 3
	w.StepOnce([]protocol.IntentMsg{sel})
	if w.player.Inv.Selected != 3 {
		t.Fatalf("selected slot = %d, want 3", w.player.Inv.Selected)
	}

	// Closing the inventory restores placement.
	w.StepOnce([]protocol.IntentMsg{toggleUI("inventory")})
	selectItem(t, w, "base:miner")
	w.StepOnce([]protocol.IntentMsg{placeIntent(pos, 90)})
	if w.machines.At(pos) == nil {
		t.Fatalf("placement failed after closing the inventory")
	}
}

func TestPlacementConsumesItemAndSetsFacing(t *testing.T) {
	w := newTestWorld(t)
	selectItem(t, w, "base:conveyor")

	pos := Vec3i{X: 2, Y: 8, Z: 2}
	w.StepOnce([]protocol.IntentMsg{placeIntent(pos, 90)})

	m := w.machines.At(pos)
	if m == nil {
		t.Fatalf("conveyor not placed")
	}
	if m.Facing != DirEast {
		t.Fatalf("facing = %s, want E from yaw 90", m.Facing)
	}
	if got := countItem(w, "base:conveyor"); got != 29 {
		t.Fatalf("conveyor count = %d, want 29", got)
	}
}

func TestRotatePlacementAppliesOnceThenResets(t *testing.T) {
	w := newTestWorld(t)
	selectItem(t, w, "base:conveyor")

	w.StepOnce([]protocol.IntentMsg{intent(protocol.IntentRotatePlacement)})
	if w.player.RotSteps != 1 {
		t.Fatalf("rot steps = %d, want 1", w.player.RotSteps)
	}

	first := Vec3i{X: 2, Y: 8, Z: 2}
	w.StepOnce([]protocol.IntentMsg{placeIntent(first, 0)})
	if m := w.machines.At(first); m == nil || m.Facing != DirEast {
		t.Fatalf("rotated placement facing wrong: %+v", m)
	}
	if w.player.RotSteps != 0 {
		t.Fatalf("rot steps = %d after placement, want 0", w.player.RotSteps)
	}

	// The next placement is back to plain yaw facing.
	second := Vec3i{X: 4, Y: 8, Z: 2}
	w.StepOnce([]protocol.IntentMsg{placeIntent(second, 0)})
	if m := w.machines.At(second); m == nil || m.Facing != DirNorth {
		t.Fatalf("follow-up placement facing wrong: %+v", m)
	}
}

func TestPlacementRefusedOnOccupiedCell(t *testing.T) {
	w := newTestWorld(t)
	selectItem(t, w, "base:miner")

	pos := Vec3i{X: 2, Y: 8, Z: 2}
	mustPlace(t, w, "base:conveyor", pos, DirEast)
	w.StepOnce([]protocol.IntentMsg{placeIntent(pos, 0)})

	if m := w.machines.At(pos); m.Kind != "conveyor" {
		t.Fatalf("occupied cell overwritten by %s", m.Kind)
	}
	if got := countItem(w, "base:miner"); got != 2 {
		t.Fatalf("miner consumed on refused placement: %d", got)
	}

	// Solid terrain refuses too.
	ground := Vec3i{X: 2, Y: 7, Z: 2}
	w.StepOnce([]protocol.IntentMsg{placeIntent(ground, 0)})
	if w.machines.At(ground) != nil {
		t.Fatalf("machine placed inside solid terrain")
	}
}

func TestPauseFreezesMachinesAndQueuesIntents(t *testing.T) {
	w := newTestWorld(t)

	pos := Vec3i{X: 0, Y: 8, Z: 0}
	m := mustPlace(t, w, "base:miner", pos, DirEast)
	oreBelow(w, pos, "IRON_ORE")
	stepTicks(w, 60)
	if m.Progress == 0 {
		t.Fatalf("miner made no progress before pause")
	}

	// The toggle lands on a still-running tick; progress freezes from the
	// next tick on.
	w.StepOnce([]protocol.IntentMsg{toggleUI("pause")})
	prog := m.Progress
	tickBefore := w.Tick()
	stepTicks(w, 100)
	if m.Progress != prog {
		t.Fatalf("paused miner advanced %v -> %v", prog, m.Progress)
	}
	if w.Tick() != tickBefore+100 {
		t.Fatalf("paused ticks did not count")
	}

	// A queued gameplay intent fires on the unpause tick, not during the
	// pause.
	selectItem(t, w, "base:conveyor")
	place := placeIntent(Vec3i{X: 1, Y: 8, Z: 0}, 90)
	w.StepOnce([]protocol.IntentMsg{place})
	if w.machines.At(Vec3i{X: 1, Y: 8, Z: 0}) != nil {
		t.Fatalf("placement ran while paused")
	}
	w.StepOnce([]protocol.IntentMsg{toggleUI("pause")})
	w.StepOnce(nil)
	if w.machines.At(Vec3i{X: 1, Y: 8, Z: 0}) == nil {
		t.Fatalf("queued placement lost across the pause")
	}
	if m.Progress <= prog {
		t.Fatalf("miner did not resume after unpause")
	}
}

func TestInteractOpensMachineUI(t *testing.T) {
	w := newTestWorld(t)

	pos := Vec3i{X: 0, Y: 8, Z: 0}
	m := mustPlace(t, w, "base:furnace", pos, DirEast)

	msg := intent(protocol.IntentInteract)
	msg.Pos = pos.ToArray()
	w.StepOnce([]protocol.IntentMsg{msg})

	if w.input != StateFurnaceUI {
		t.Fatalf("input state = %s, want furnace_ui", w.input)
	}
	if w.player.OpenMachine != m.Handle {
		t.Fatalf("open machine = %q, want %q", w.player.OpenMachine, m.Handle)
	}

	// Breaking the open machine closes its UI reference.
	w.input = StateGameplay
	brk := intent(protocol.IntentBreakBlock)
	brk.Pos = pos.ToArray()
	w.StepOnce([]protocol.IntentMsg{brk})
	if w.player.OpenMachine != "" {
		t.Fatalf("open machine handle survived the break")
	}
}

func TestTeleportRejectsSolidTarget(t *testing.T) {
	w := newTestWorld(t)
	start := w.player.Pos

	msg := intent(protocol.IntentTeleport)
	msg.Pos = [3]int{8, 5, 20} // inside the ground
	w.StepOnce([]protocol.IntentMsg{msg})
	if w.player.Pos != start {
		t.Fatalf("teleport into solid ground moved the player")
	}

	msg.Pos = [3]int{0, 10, 0}
	w.StepOnce([]protocol.IntentMsg{msg})
	if w.player.Pos != [3]float64{0, 10, 0} {
		t.Fatalf("teleport to open air refused: %v", w.player.Pos)
	}
}

func TestUnknownIntentAndCommandSurfaceCodes(t *testing.T) {
	w := newTestWorld(t)

	if res := w.applyIntent(intent("fly")); res.Code != protocol.ErrUnknownIntent {
		t.Fatalf("unknown intent code = %q", res.Code)
	}

	cmd := intent(protocol.IntentCommand)
	cmd.Text = "/frobnicate"
	if res := w.applyIntent(cmd); res.Code != protocol.ErrUnknownCommand {
		t.Fatalf("unknown command code = %q", res.Code)
	}

	cmd.Text = "/tp not numbers here"
	if res := w.applyIntent(cmd); res.Code != protocol.ErrBadArgs {
		t.Fatalf("bad args code = %q", res.Code)
	}
}

func TestCreativePlacementKeepsInventory(t *testing.T) {
	w := newTestWorld(t)

	cmd := intent(protocol.IntentCommand)
	cmd.Text = "/creative"
	w.StepOnce([]protocol.IntentMsg{cmd})
	if w.player.Mode != ModeCreative {
		t.Fatalf("mode = %s, want creative", w.player.Mode)
	}

	selectItem(t, w, "base:furnace")
	w.StepOnce([]protocol.IntentMsg{placeIntent(Vec3i{X: 2, Y: 8, Z: 2}, 0)})
	if got := countItem(w, "base:furnace"); got != 1 {
		t.Fatalf("creative placement consumed the item: %d left", got)
	}
}

func TestGiveAndSetblockCommands(t *testing.T) {
	w := newTestWorld(t)

	cmd := intent(protocol.IntentCommand)
	cmd.Text = "/give base:coal 12"
	if res := w.applyIntent(cmd); !res.OK {
		t.Fatalf("give failed: %+v", res)
	}
	if got := countItem(w, "base:coal"); got != 12 {
		t.Fatalf("coal count = %d, want 12", got)
	}

	cmd.Text = "/give base:unobtainium"
	if res := w.applyIntent(cmd); res.Code != protocol.ErrBadArgs {
		t.Fatalf("unknown item code = %q", res.Code)
	}

	cmd.Text = "/setblock 0 7 0 IRON_ORE"
	if res := w.applyIntent(cmd); !res.OK {
		t.Fatalf("setblock failed: %+v", res)
	}
	if got := w.blockName(w.chunks.GetBlock(Vec3i{X: 0, Y: 7, Z: 0})); got != "IRON_ORE" {
		t.Fatalf("block at target = %q, want IRON_ORE", got)
	}
}
