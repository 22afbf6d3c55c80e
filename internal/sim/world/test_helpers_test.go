package world

import (
	"io"
	"log"
	"testing"

	"voxfab.dev/internal/protocol"
	"voxfab.dev/internal/sim/catalogs"
	"voxfab.dev/internal/sim/tuning"
)

func newTestWorld(t *testing.T) *World {
	t.Helper()
	cat, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	tun := tuning.Defaults()
	tun.AutoSaveSeconds = 0
	w, err := New(Config{Seed: 12345, SaveSlot: "test"}, &tun, cat, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	return w
}

func stepTicks(w *World, n int) {
	for i := 0; i < n; i++ {
		w.StepOnce(nil)
	}
}

func stepSnap(w *World) *protocol.SnapshotMsg {
	return w.stepInternal(1.0 / float64(w.tun.TickRateHz))
}

func countItem(w *World, item string) int {
	return w.player.Inv.Count(item)
}

func mustPlace(t *testing.T, w *World, item string, pos Vec3i, facing Dir) *Machine {
	t.Helper()
	def := w.machineDef(item)
	if def == nil {
		t.Fatalf("%s is not a machine item", item)
	}
	m := w.machines.Place(item, def, pos, facing)
	if m == nil {
		t.Fatalf("placing %s at %s: position occupied", item, pos.Key())
	}
	return m
}

func intent(kind string) protocol.IntentMsg {
	return protocol.IntentMsg{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeIntent, ProtocolVersion: protocol.Version},
		Kind:        kind,
	}
}

func placeIntent(pos Vec3i, yaw float64) protocol.IntentMsg {
	msg := intent(protocol.IntentPlaceBlock)
	msg.Pos = pos.ToArray()
	msg.Yaw = yaw
	return msg
}

func selectItem(t *testing.T, w *World, item string) {
	t.Helper()
	for i, s := range w.player.Inv.Slots {
		if s.Item == item && s.Count > 0 {
			w.player.Inv.Select(i)
			return
		}
	}
	t.Fatalf("item %s not in inventory", item)
}
