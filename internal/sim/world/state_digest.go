package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
	"sort"
)

// StateDigest hashes the complete simulation state deterministically.
// Two runs fed the same seed and intent stream produce equal digests at
// every tick. Map iteration is sorted before hashing.
func (w *World) StateDigest() string {
	h := sha256.New()

	writeU64(h, w.tick)
	writeU64(h, uint64(w.cfg.Seed))

	// Player.
	for _, v := range w.player.Pos {
		writeF64(h, v)
	}
	writeF64(h, w.player.Yaw)
	writeU64(h, uint64(w.player.Mode))
	writeU64(h, uint64(w.player.Inv.Selected))
	writeU64(h, uint64(w.player.RotSteps))
	for _, s := range w.player.Inv.Slots {
		writeStr(h, s.Item)
		writeU64(h, uint64(s.Count))
	}

	// World overlay, already sorted by position.
	for _, e := range w.chunks.Overlay() {
		writeStr(h, e.Pos.Key())
		writeU64(h, uint64(e.Block))
	}

	// Machines in lexicographic position order.
	for _, pos := range w.machines.SortedPositions() {
		m := w.machines.At(pos)
		writeStr(h, m.Handle)
		writeStr(h, m.Kind)
		writeStr(h, pos.Key())
		writeU64(h, uint64(m.Facing))
		writeU64(h, uint64(m.State))
		writeF64(h, m.Progress)
		writeU64(h, uint64(m.TickCount))
		for _, s := range m.Inputs {
			writeStr(h, s.Item)
			writeU64(h, uint64(s.Count))
		}
		for _, s := range m.Outputs {
			writeStr(h, s.Item)
			writeU64(h, uint64(s.Count))
		}
		writeStr(h, m.Fuel.Item)
		writeU64(h, uint64(m.Fuel.Count))
		if m.Committed != nil {
			writeStr(h, m.Committed.RecipeID)
		}
		if m.Belt != nil {
			writeU64(h, uint64(m.Belt.Shape))
			writeU64(h, uint64(m.Belt.OutDir))
			writeU64(h, uint64(m.Belt.LastOutputIndex))
			writeU64(h, uint64(m.Belt.LastInputSource))
			for _, it := range m.Belt.Items {
				writeStr(h, it.Item)
				writeF64(h, it.Progress)
				writeF64(h, it.Lateral)
			}
		}
	}

	// Platform accumulator, sorted by item.
	for _, s := range w.platform.Items() {
		writeStr(h, s.Item)
		writeU64(h, uint64(s.Count))
	}

	// Progression.
	writeU64(h, uint64(w.prog.TutorialStep))
	writeU64(h, uint64(w.prog.QuestIndex))
	writeSortedCounts(h, w.prog.delivered)
	writeSortedFlags(h, w.prog.completed)
	writeSortedFlags(h, w.prog.claimed)
	achIDs := make([]string, 0, len(w.prog.achievements))
	for id := range w.prog.achievements {
		achIDs = append(achIDs, id)
	}
	sort.Strings(achIDs)
	for _, id := range achIDs {
		writeStr(h, id)
		writeU64(h, w.prog.achievements[id].UnlockedTick)
	}

	return hex.EncodeToString(h.Sum(nil))
}

func writeU64(h hash.Hash, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	h.Write(b[:])
}

func writeF64(h hash.Hash, v float64) {
	writeU64(h, math.Float64bits(v))
}

func writeStr(h hash.Hash, s string) {
	writeU64(h, uint64(len(s)))
	h.Write([]byte(s))
}

func writeSortedCounts(h hash.Hash, m map[string]int) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeStr(h, k)
		writeU64(h, uint64(m[k]))
	}
}

func writeSortedFlags(h hash.Hash, m map[string]bool) {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeStr(h, k)
	}
}
