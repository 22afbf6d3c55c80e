package world

import "voxfab.dev/internal/protocol"

// stepInternal advances one fixed timestep. Phase order is part of the
// determinism contract: intents, machines, conveyors, chunk residency,
// event drain, progression, digest.
func (w *World) stepInternal(dt float64) *protocol.SnapshotMsg {
	w.tick++

	if w.input != StatePaused {
		for _, env := range w.pending {
			res := w.applyIntent(env.Msg)
			if env.Reply != nil {
				env.Reply <- res
			}
		}
	} else {
		// Only UI toggles and commands run while paused; everything
		// else stays queued for the unpause tick.
		kept := w.pending[:0]
		for _, env := range w.pending {
			switch env.Msg.Kind {
			case protocol.IntentToggleUI, protocol.IntentCommand:
				res := w.applyIntent(env.Msg)
				if env.Reply != nil {
					env.Reply <- res
				}
			default:
				kept = append(kept, env)
			}
		}
		w.pending = append([]IntentEnvelope(nil), kept...)
		frame := w.events.Drain(w.tick)
		digest := w.StateDigest()
		return w.buildSnapshot(frame, digest)
	}
	w.pending = w.pending[:0]

	w.systemMachines(dt)
	w.systemConveyors(dt)

	w.chunks.EnsureLoadedAround(w.playerBlockPos(), w.tun.ViewRadius)
	for _, k := range w.chunks.DirtyChunks() {
		w.obsDirty[k] = true
	}

	frame := w.events.Drain(w.tick)
	advances := w.prog.Observe(frame, &w.player)
	frame.TutorialAdvanced = append(frame.TutorialAdvanced, advances...)

	digest := w.StateDigest()
	snap := w.buildSnapshot(frame, digest)
	if w.recorder != nil {
		w.recorder.RecordTick(w.tick, digest, snap.Events)
	}
	return snap
}
