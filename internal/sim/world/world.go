package world

import (
	"fmt"
	"log"
	"math"

	"voxfab.dev/internal/protocol"
	"voxfab.dev/internal/sim/catalogs"
	"voxfab.dev/internal/sim/tuning"
)

type Config struct {
	Seed     int64
	SaveSlot string
}

// GameMode selects how placement and breaking consume the inventory.
type GameMode int

const (
	ModeSurvival GameMode = iota
	ModeCreative
)

func (m GameMode) String() string {
	if m == ModeCreative {
		return "creative"
	}
	return "survival"
}

// InputState is the single routing gate for intents. Exactly one state
// is active at a time; an intent not accepted by the active state is
// dropped without effect.
type InputState int

const (
	StateGameplay InputState = iota
	StateInventory
	StateFurnaceUI
	StateCrusherUI
	StateMinerUI
	StateCommand
	StatePaused
)

func (s InputState) String() string {
	switch s {
	case StateInventory:
		return "inventory"
	case StateFurnaceUI:
		return "furnace_ui"
	case StateCrusherUI:
		return "crusher_ui"
	case StateMinerUI:
		return "miner_ui"
	case StateCommand:
		return "command"
	case StatePaused:
		return "paused"
	}
	return "gameplay"
}

type Player struct {
	Pos      [3]float64
	Yaw      float64
	Mode     GameMode
	Inv      *Inventory
	Moved    float64 // cumulative horizontal distance, for progression
	RotSteps int     // pending placement rotation, cleared on placement

	// Machine whose UI is open, if any.
	OpenMachine string
}

// IntentEnvelope pairs an intent with its reply channel. Reply is
// optional; a nil Reply drops the result.
type IntentEnvelope struct {
	Msg   protocol.IntentMsg
	Reply chan protocol.ResultMsg
}

type World struct {
	cfg Config
	tun *tuning.Tuning
	cat *catalogs.Catalogs

	tick uint64

	chunks   *ChunkStore
	machines *Registry
	platform *Platform
	events   *EventBus

	player Player
	input  InputState
	prog   *Progression

	// Item ids usable as fuel, derived from the recipe catalog.
	fuelItems map[string]bool

	saver    Saver
	recorder Recorder

	inbox   chan IntentEnvelope
	obsReq  chan chan *protocol.SnapshotMsg
	saveReq chan saveReq
	stop    chan struct{}

	pending []IntentEnvelope

	// Observation state: chunks whose payload must go out with the next
	// snapshot.
	obsDirty map[ChunkKey]bool

	logger *log.Logger

	onSnapshot func(*protocol.SnapshotMsg)
}

func New(cfg Config, tun *tuning.Tuning, cat *catalogs.Catalogs, logger *log.Logger) (*World, error) {
	if logger == nil {
		logger = log.Default()
	}
	gen, err := makeWorldGen(cfg.Seed, tun, cat)
	if err != nil {
		return nil, err
	}
	w := &World{
		cfg:       cfg,
		tun:       tun,
		cat:       cat,
		chunks:    NewChunkStore(gen),
		machines:  NewRegistry(),
		events:    NewEventBus(),
		fuelItems: fuelItemsFrom(cat),
		inbox:     make(chan IntentEnvelope, 256),
		obsReq:    make(chan chan *protocol.SnapshotMsg, 8),
		saveReq:   make(chan saveReq, 4),
		stop:      make(chan struct{}),
		obsDirty:  map[ChunkKey]bool{},
		logger:    logger,
	}
	center := Vec3i{X: tun.Platform.Center[0], Y: tun.GroundLevel, Z: tun.Platform.Center[2]}
	w.platform = NewPlatform(center, tun.Platform.Size)
	w.prog = NewProgression(cat)
	w.resetPlayer()
	w.chunks.EnsureLoadedAround(w.playerBlockPos(), tun.ViewRadius)
	return w, nil
}

// Spawn is the fixed player spawn cell, on open ground north of the
// delivery platform.
func Spawn() [3]int { return [3]int{8, 11, 20} }

func spawnPos() [3]float64 {
	s := Spawn()
	return [3]float64{float64(s[0]), float64(s[1]), float64(s[2])}
}

func (w *World) resetPlayer() {
	w.player = Player{
		Pos:  spawnPos(),
		Mode: ModeSurvival,
		Inv:  NewInventory(w.cat),
	}
	w.grantStartingEquipment()
	w.input = StateGameplay
}

// Starting equipment matches the tutorial: enough to run one full
// mine-transport-smelt chain.
func (w *World) grantStartingEquipment() {
	w.player.Inv.Add("base:miner", 2)
	w.player.Inv.Add("base:conveyor", 30)
	w.player.Inv.Add("base:furnace", 1)
}

func (w *World) playerBlockPos() Vec3i {
	return Vec3i{
		X: int(math.Floor(w.player.Pos[0])),
		Y: int(math.Floor(w.player.Pos[1])),
		Z: int(math.Floor(w.player.Pos[2])),
	}
}

func (w *World) Tick() uint64 { return w.tick }

func makeWorldGen(seed int64, tun *tuning.Tuning, cat *catalogs.Catalogs) (WorldGen, error) {
	half := tun.Platform.Size / 2
	cx, cz := tun.Platform.Center[0], tun.Platform.Center[2]
	gen := WorldGen{
		Seed:        seed,
		ChunkSize:   tun.ChunkSize,
		ChunkHeight: tun.ChunkHeight,
		GroundLevel: tun.GroundLevel,
		PlatformMin: Vec3i{X: cx - half, Y: tun.GroundLevel, Z: cz - half},
		PlatformMax: Vec3i{X: cx + half - 1, Y: tun.GroundLevel, Z: cz + half - 1},
	}
	ids := map[string]*uint16{
		"AIR":        &gen.Air,
		"GRASS":      &gen.Grass,
		"DIRT":       &gen.Dirt,
		"STONE":      &gen.Stone,
		"SAND":       &gen.Sand,
		"IRON_ORE":   &gen.IronOre,
		"COPPER_ORE": &gen.CopperOre,
		"COAL_ORE":   &gen.CoalOre,
		"PLATFORM":   &gen.Platform,
	}
	for name, dst := range ids {
		id, ok := cat.Blocks.Index[name]
		if !ok {
			return gen, fmt.Errorf("block catalog missing %q", name)
		}
		*dst = id
	}
	return gen, nil
}

func fuelItemsFrom(cat *catalogs.Catalogs) map[string]bool {
	out := map[string]bool{}
	for _, r := range cat.Recipes.ByID {
		if r.Fuel != nil {
			out[r.Fuel.Item] = true
		}
	}
	return out
}

func (w *World) blockName(id uint16) string {
	if int(id) >= len(w.cat.Blocks.Palette) {
		return ""
	}
	return w.cat.Blocks.Palette[id]
}

func (w *World) stackLimit(item string) int {
	if def, ok := w.cat.Items.Defs[item]; ok && def.StackLimit > 0 {
		return def.StackLimit
	}
	return 999
}

func (w *World) machineDef(item string) *catalogs.MachineDef {
	def, ok := w.cat.Items.Defs[item]
	if !ok || def.Kind != "MACHINE" {
		return nil
	}
	return def.Machine
}
