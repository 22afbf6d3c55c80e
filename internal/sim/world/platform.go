package world

import "sort"

// Platform is the delivery destination: a fixed square footprint at ground
// level. Items handed onto the cell layer directly above it are delivered
// into an unbounded accumulator.
type Platform struct {
	Min Vec3i
	Max Vec3i

	Delivered map[string]int
}

func NewPlatform(center Vec3i, size int) *Platform {
	half := size / 2
	return &Platform{
		Min:       Vec3i{X: center.X - half, Y: center.Y, Z: center.Z - half},
		Max:       Vec3i{X: center.X + size - half - 1, Y: center.Y, Z: center.Z + size - half - 1},
		Delivered: map[string]int{},
	}
}

// Contains reports whether pos is a delivery cell: on top of the platform
// footprint.
func (p *Platform) Contains(pos Vec3i) bool {
	return pos.Y == p.Min.Y+1 &&
		pos.X >= p.Min.X && pos.X <= p.Max.X &&
		pos.Z >= p.Min.Z && pos.Z <= p.Max.Z
}

// Items returns the delivered totals in sorted item order.
func (p *Platform) Items() []Slot {
	names := make([]string, 0, len(p.Delivered))
	for item, n := range p.Delivered {
		if n > 0 {
			names = append(names, item)
		}
	}
	sort.Strings(names)
	out := make([]Slot, 0, len(names))
	for _, item := range names {
		out = append(out, Slot{Item: item, Count: p.Delivered[item]})
	}
	return out
}

func (w *World) deliver(item string, count int) {
	w.platform.Delivered[item] += count
	w.events.ItemDelivered = append(w.events.ItemDelivered, ItemDeliveredEvent{
		Item:  item,
		Count: count,
	})
}
