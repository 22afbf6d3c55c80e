package world

import (
	"context"
	"time"

	"voxfab.dev/internal/protocol"
)

// Recorder receives the per-tick record for append-only logging. Called
// from the loop goroutine; implementations must not block on the world.
type Recorder interface {
	RecordTick(tick uint64, digest string, events []protocol.EventObs)
}

func (w *World) SetRecorder(r Recorder) { w.recorder = r }

// SetSnapshotHook registers the per-tick snapshot consumer (the
// transport layer). Called from the loop goroutine.
func (w *World) SetSnapshotHook(fn func(*protocol.SnapshotMsg)) { w.onSnapshot = fn }

// SubmitIntent queues an intent for the next tick. Reply may be nil.
func (w *World) SubmitIntent(msg protocol.IntentMsg, reply chan protocol.ResultMsg) {
	w.inbox <- IntentEnvelope{Msg: msg, Reply: reply}
}

// Snapshot returns the most recent tick's snapshot. Blocks until the
// loop services the request.
func (w *World) Snapshot() *protocol.SnapshotMsg {
	resp := make(chan *protocol.SnapshotMsg, 1)
	w.obsReq <- resp
	return <-resp
}

type saveReq struct {
	slot string
	load bool
	resp chan protocol.ResultMsg
}

// RequestSave persists the world to the named slot from the loop
// goroutine, so the exported document is a consistent tick boundary.
func (w *World) RequestSave(slot string) protocol.ResultMsg {
	resp := make(chan protocol.ResultMsg, 1)
	w.saveReq <- saveReq{slot: slot, resp: resp}
	return <-resp
}

func (w *World) RequestLoad(slot string) protocol.ResultMsg {
	resp := make(chan protocol.ResultMsg, 1)
	w.saveReq <- saveReq{slot: slot, load: true, resp: resp}
	return <-resp
}

func (w *World) Stop() { close(w.stop) }

// Run drives the fixed-timestep loop until ctx is done or Stop is
// called. All simulation state is owned by this goroutine.
func (w *World) Run(ctx context.Context) {
	interval := time.Second / time.Duration(w.tun.TickRateHz)
	dt := 1.0 / float64(w.tun.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	autoSaveTicks := uint64(0)
	if w.tun.AutoSaveSeconds > 0 {
		autoSaveTicks = uint64(w.tun.AutoSaveSeconds * w.tun.TickRateHz)
	}

	var lastSnap *protocol.SnapshotMsg
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case env := <-w.inbox:
			w.pending = append(w.pending, env)
		case resp := <-w.obsReq:
			resp <- lastSnap
		case req := <-w.saveReq:
			if req.load {
				req.resp <- w.loadFromSlot(req.slot)
			} else {
				req.resp <- w.saveToSlot(req.slot)
			}
		case <-ticker.C:
			lastSnap = w.stepInternal(dt)
			if w.onSnapshot != nil {
				w.onSnapshot(lastSnap)
			}
			if autoSaveTicks > 0 && w.tick%autoSaveTicks == 0 && w.saver != nil {
				if res := w.saveToSlot(w.cfg.SaveSlot); !res.OK {
					w.logger.Printf("autosave failed: %s", res.Message)
				}
			}
		}
	}
}

// StepOnce advances exactly one tick with the given intents, for tests
// and deterministic replay. Not safe concurrently with Run.
func (w *World) StepOnce(intents []protocol.IntentMsg) (uint64, string) {
	for _, msg := range intents {
		w.pending = append(w.pending, IntentEnvelope{Msg: msg})
	}
	snap := w.stepInternal(1.0 / float64(w.tun.TickRateHz))
	return snap.Tick, snap.StateDigest
}
