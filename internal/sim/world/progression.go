package world

import (
	"voxfab.dev/internal/sim/catalogs"
)

// Tutorial step ids, in order. Each step has one predicate over the
// tick's event frame and the player accumulators.
const (
	tutMove          = "move_around"
	tutMineBlock     = "mine_block"
	tutOpenInventory = "open_inventory"
	tutPlaceMiner    = "place_miner"
	tutChainConveyor = "chain_conveyors"
	tutPlaceFurnace  = "place_furnace"
	tutFirstIngot    = "first_ingot"
)

var tutorialSteps = []string{
	tutMove,
	tutMineBlock,
	tutOpenInventory,
	tutPlaceMiner,
	tutChainConveyor,
	tutPlaceFurnace,
	tutFirstIngot,
}

const (
	tutorialMoveDistance = 20.0
	tutorialChainLength  = 3
)

type Achievement struct {
	ID           string
	UnlockedTick uint64
}

type Progression struct {
	cat *catalogs.Catalogs

	TutorialStep int // index into tutorialSteps; == len when done

	// Per-step accumulators, reset on advance.
	movedBase    float64
	chainRun     int
	lastConveyor Vec3i
	chainStarted bool

	// Active quest index into the catalog order; delivered counts
	// accumulate from quest activation.
	QuestIndex int
	delivered  map[string]int
	completed  map[string]bool
	claimed    map[string]bool

	achievements map[string]*Achievement

	totalDelivered int
	totalSmelted   int
}

func NewProgression(cat *catalogs.Catalogs) *Progression {
	return &Progression{
		cat:          cat,
		delivered:    map[string]int{},
		completed:    map[string]bool{},
		claimed:      map[string]bool{},
		achievements: map[string]*Achievement{},
	}
}

func (p *Progression) TutorialDone() bool { return p.TutorialStep >= len(tutorialSteps) }

// Observe consumes one drained event frame and advances tutorial, quest
// and achievement state. Returned events describe tutorial advances made
// this tick.
func (p *Progression) Observe(frame EventFrame, player *Player) []TutorialAdvancedEvent {
	var advanced []TutorialAdvancedEvent

	// One tick can satisfy several consecutive steps.
	for !p.TutorialDone() && p.stepSatisfied(tutorialSteps[p.TutorialStep], frame, player) {
		p.TutorialStep++
		p.resetStepAccumulators(player)
		advanced = append(advanced, TutorialAdvancedEvent{
			Step: p.TutorialStep,
			ID:   tutorialSteps[p.TutorialStep-1],
		})
	}
	if !p.TutorialDone() {
		p.trackChain(frame)
	}

	p.trackQuests(frame)
	p.trackAchievements(frame)
	return advanced
}

func (p *Progression) stepSatisfied(id string, frame EventFrame, player *Player) bool {
	switch id {
	case tutMove:
		return player.Moved-p.movedBase >= tutorialMoveDistance
	case tutMineBlock:
		return len(frame.BlockBroken) > 0
	case tutOpenInventory:
		for _, ev := range frame.UIOpened {
			if ev.UI == "inventory" {
				return true
			}
		}
		return false
	case tutPlaceMiner:
		return placedItem(frame, "base:miner")
	case tutChainConveyor:
		// trackChain ran last tick; count this tick's placements on top.
		run := p.chainRun
		last := p.lastConveyor
		started := p.chainStarted
		for _, ev := range frame.BlockPlaced {
			if ev.Item != "base:conveyor" {
				continue
			}
			if started && Chebyshev(ev.Pos, last) == 1 {
				run++
			} else {
				run = 1
			}
			last = ev.Pos
			started = true
			if run >= tutorialChainLength {
				return true
			}
		}
		return false
	case tutPlaceFurnace:
		return placedItem(frame, "base:furnace")
	case tutFirstIngot:
		for _, ev := range frame.MachineCompleted {
			for _, oc := range ev.Outputs {
				if oc.Item == "base:iron_ingot" {
					return true
				}
			}
		}
		return false
	}
	return false
}

// trackChain keeps the conveyor-run accumulator warm while the chain
// step is pending. A non-adjacent placement restarts the run at 1.
func (p *Progression) trackChain(frame EventFrame) {
	for _, ev := range frame.BlockPlaced {
		if ev.Item != "base:conveyor" {
			continue
		}
		if p.chainStarted && Chebyshev(ev.Pos, p.lastConveyor) == 1 {
			p.chainRun++
		} else {
			p.chainRun = 1
		}
		p.lastConveyor = ev.Pos
		p.chainStarted = true
	}
}

func (p *Progression) resetStepAccumulators(player *Player) {
	p.movedBase = player.Moved
	p.chainRun = 0
	p.chainStarted = false
}

func placedItem(frame EventFrame, item string) bool {
	for _, ev := range frame.BlockPlaced {
		if ev.Item == item {
			return true
		}
	}
	return false
}

// ActiveQuest returns the current quest, or nil when all are done.
func (p *Progression) ActiveQuest() *catalogs.QuestDef {
	if p.QuestIndex >= len(p.cat.Quests.Order) {
		return nil
	}
	q := p.cat.Quests.ByID[p.cat.Quests.Order[p.QuestIndex]]
	return &q
}

func (p *Progression) trackQuests(frame EventFrame) {
	q := p.ActiveQuest()
	if q == nil {
		return
	}
	for _, ev := range frame.ItemDelivered {
		p.delivered[ev.Item] += ev.Count
		p.totalDelivered += ev.Count
	}
	if p.completed[q.QuestID] {
		return
	}
	for _, req := range q.Required {
		if p.delivered[req.Item] < req.Count {
			return
		}
	}
	p.completed[q.QuestID] = true
}

// Claim hands out the reward for a completed, unclaimed active quest and
// advances to the next one.
func (p *Progression) Claim(questID string) ([]catalogs.ItemCount, bool) {
	q := p.ActiveQuest()
	if q == nil || q.QuestID != questID {
		return nil, false
	}
	if !p.completed[questID] || p.claimed[questID] {
		return nil, false
	}
	p.claimed[questID] = true
	p.QuestIndex++
	p.delivered = map[string]int{}
	return q.Rewards, true
}

// Achievements are monotonic: once unlocked they stay unlocked.
func (p *Progression) trackAchievements(frame EventFrame) {
	for _, ev := range frame.MachineCompleted {
		if ev.Kind == "furnace" {
			p.totalSmelted++
		}
	}
	if len(frame.BlockPlaced) > 0 {
		for _, ev := range frame.BlockPlaced {
			if ev.Item == "base:miner" || ev.Item == "base:conveyor" ||
				ev.Item == "base:furnace" || ev.Item == "base:crusher" {
				p.unlock("first_machine", frame.Tick)
				break
			}
		}
	}
	if p.totalSmelted >= 1 {
		p.unlock("first_smelt", frame.Tick)
	}
	if p.totalDelivered >= 100 {
		p.unlock("hundred_delivered", frame.Tick)
	}
	if p.TutorialDone() {
		p.unlock("tutorial_complete", frame.Tick)
	}
}

func (p *Progression) unlock(id string, tick uint64) {
	if _, ok := p.achievements[id]; ok {
		return
	}
	p.achievements[id] = &Achievement{ID: id, UnlockedTick: tick}
}

func (p *Progression) QuestProgress(q *catalogs.QuestDef) (have, want int) {
	for _, req := range q.Required {
		want += req.Count
		n := p.delivered[req.Item]
		if n > req.Count {
			n = req.Count
		}
		have += n
	}
	return have, want
}
