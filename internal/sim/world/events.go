package world

import "voxfab.dev/internal/sim/catalogs"

// Event payloads written during a tick and drained at frame end. Nothing
// here survives across ticks.

type BlockPlacedEvent struct {
	Pos  Vec3i
	Item string
}

type BlockBrokenEvent struct {
	Pos   Vec3i
	Block string
	Drop  string
}

type MachineStartedEvent struct {
	Handle string
	Kind   string
	Pos    Vec3i
	Recipe string
	Inputs []catalogs.ItemCount
}

type MachineCompletedEvent struct {
	Handle  string
	Kind    string
	Pos     Vec3i
	Recipe  string
	Outputs []catalogs.ItemCount
}

type ItemDeliveredEvent struct {
	Item  string
	Count int
}

type ConveyorTransferEvent struct {
	From Vec3i
	To   Vec3i
	Item string
}

type TutorialAdvancedEvent struct {
	Step int
	ID   string
}

// UIOpenedEvent fires when a closed UI opens, not on close.
type UIOpenedEvent struct {
	UI string
}

// EventBus holds one tick's events. The tick loop drains it exactly once at
// frame end; every consumer reads the same drained frame.
type EventBus struct {
	BlockPlaced      []BlockPlacedEvent
	BlockBroken      []BlockBrokenEvent
	MachineStarted   []MachineStartedEvent
	MachineCompleted []MachineCompletedEvent
	ItemDelivered    []ItemDeliveredEvent
	ConveyorTransfer []ConveyorTransferEvent
	TutorialAdvanced []TutorialAdvancedEvent
	UIOpened         []UIOpenedEvent
}

func NewEventBus() *EventBus { return &EventBus{} }

// EventFrame is the drained, read-only view of one tick's events.
type EventFrame struct {
	Tick uint64

	BlockPlaced      []BlockPlacedEvent
	BlockBroken      []BlockBrokenEvent
	MachineStarted   []MachineStartedEvent
	MachineCompleted []MachineCompletedEvent
	ItemDelivered    []ItemDeliveredEvent
	ConveyorTransfer []ConveyorTransferEvent
	TutorialAdvanced []TutorialAdvancedEvent
	UIOpened         []UIOpenedEvent
}

func (b *EventBus) Drain(tick uint64) EventFrame {
	frame := EventFrame{
		Tick:             tick,
		BlockPlaced:      b.BlockPlaced,
		BlockBroken:      b.BlockBroken,
		MachineStarted:   b.MachineStarted,
		MachineCompleted: b.MachineCompleted,
		ItemDelivered:    b.ItemDelivered,
		ConveyorTransfer: b.ConveyorTransfer,
		TutorialAdvanced: b.TutorialAdvanced,
		UIOpened:         b.UIOpened,
	}
	b.BlockPlaced = nil
	b.BlockBroken = nil
	b.MachineStarted = nil
	b.MachineCompleted = nil
	b.ItemDelivered = nil
	b.ConveyorTransfer = nil
	b.TutorialAdvanced = nil
	b.UIOpened = nil
	return frame
}

func (f EventFrame) Empty() bool {
	return len(f.BlockPlaced) == 0 && len(f.BlockBroken) == 0 &&
		len(f.MachineStarted) == 0 && len(f.MachineCompleted) == 0 &&
		len(f.ItemDelivered) == 0 && len(f.ConveyorTransfer) == 0 &&
		len(f.TutorialAdvanced) == 0 && len(f.UIOpened) == 0
}
