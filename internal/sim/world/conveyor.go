package world

import "sort"

type Shape uint8

const (
	ShapeStraight Shape = iota
	ShapeCornerLeft
	ShapeCornerRight
	ShapeTJunction
	ShapeSplitter
)

func (s Shape) String() string {
	switch s {
	case ShapeCornerLeft:
		return "CORNER_LEFT"
	case ShapeCornerRight:
		return "CORNER_RIGHT"
	case ShapeTJunction:
		return "T_JUNCTION"
	case ShapeSplitter:
		return "SPLITTER"
	default:
		return "STRAIGHT"
	}
}

// BeltItem is one item riding a conveyor. Progress runs 0 (entry) to 1
// (exit); Lateral is the side-merge displacement that relaxes back to 0.
type BeltItem struct {
	Item     string
	Progress float64
	Lateral  float64
}

// Belt is the transfer state of a conveyor machine. Items stay sorted by
// ascending progress; insertion respects the spacing constant.
type Belt struct {
	Shape  Shape
	OutDir Dir // differs from facing for corners

	Items []BeltItem

	// LastOutputIndex drives the splitter round-robin over [front, left,
	// right]; it advances only on successful handoff.
	LastOutputIndex int
	// LastInputSource alternates t-junction side acceptance: 0 none,
	// 1 left, 2 right.
	LastInputSource int
}

const (
	beltSideLeft  = 1
	beltSideRight = 2
)

// CanAccept reports whether an item fits at the given progress: the belt is
// below capacity and no existing item is within spacing.
func (b *Belt) CanAccept(at, spacing float64, maxItems int) bool {
	if len(b.Items) >= maxItems {
		return false
	}
	for i := range b.Items {
		d := b.Items[i].Progress - at
		if d < 0 {
			d = -d
		}
		if d < spacing {
			return false
		}
	}
	return true
}

func (b *Belt) Insert(item string, at, lateral float64) {
	b.Items = append(b.Items, BeltItem{Item: item, Progress: at, Lateral: lateral})
	sort.SliceStable(b.Items, func(i, j int) bool {
		return b.Items[i].Progress < b.Items[j].Progress
	})
}

// JoinInfo returns where an item handed over from the given neighbor joins
// this conveyor. Behind joins at entry, the two sides join mid-belt with a
// lateral displacement; front, diagonal and vertical sources are rejected.
func (m *Machine) JoinInfo(from Vec3i) (progress, lateral float64, ok bool) {
	if m.Belt == nil {
		return 0, 0, false
	}
	switch from {
	case m.Pos.Add(m.Facing.Opposite().Delta()):
		return 0.0, 0.0, true
	case m.Pos.Add(m.Facing.Left().Delta()):
		return 0.5, 0.5, true
	case m.Pos.Add(m.Facing.Right().Delta()):
		return 0.5, -0.5, true
	}
	return 0, 0, false
}

// joinSide classifies a joining neighbor for t-junction fairness.
func (m *Machine) joinSide(from Vec3i) int {
	switch from {
	case m.Pos.Add(m.Facing.Left().Delta()):
		return beltSideLeft
	case m.Pos.Add(m.Facing.Right().Delta()):
		return beltSideRight
	}
	return 0
}

// splitterOutputs lists candidate output positions in round-robin order:
// front, left, right.
func (m *Machine) splitterOutputs() [3]Vec3i {
	return [3]Vec3i{
		m.Pos.Add(m.Facing.Delta()),
		m.Pos.Add(m.Facing.Left().Delta()),
		m.Pos.Add(m.Facing.Right().Delta()),
	}
}
