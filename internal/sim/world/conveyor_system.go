package world

// systemConveyors advances every belt one fixed step: shape inference,
// item advancement in descending-progress order, then exit handoff for
// items that reached the end of the belt.
func (w *World) systemConveyors(dt float64) {
	positions := w.machines.SortedPositions()

	for _, pos := range positions {
		m := w.machines.At(pos)
		if m != nil && m.Belt != nil {
			w.updateConveyorShape(m)
		}
	}

	spacing := w.tun.Conveyor.ItemSpacing
	speed := dt / w.tun.Conveyor.TravelSeconds
	decay := w.tun.Conveyor.MergeDecayPerSecond * dt

	for _, pos := range positions {
		m := w.machines.At(pos)
		if m == nil || m.Belt == nil {
			continue
		}
		b := m.Belt

		// Advance highest progress first so followers clamp against the
		// already-moved item ahead.
		for i := len(b.Items) - 1; i >= 0; i-- {
			it := &b.Items[i]
			next := it.Progress + speed
			if i < len(b.Items)-1 {
				bound := b.Items[i+1].Progress - spacing
				if next > bound {
					next = bound
				}
			}
			if next > 1.0 {
				next = 1.0
			}
			if next > it.Progress {
				it.Progress = next
			}

			// Side-merged items drift back to the centerline.
			if it.Lateral > 0 {
				it.Lateral -= decay
				if it.Lateral < 0 {
					it.Lateral = 0
				}
			} else if it.Lateral < 0 {
				it.Lateral += decay
				if it.Lateral > 0 {
					it.Lateral = 0
				}
			}
		}

		w.conveyorExit(m)
	}
}

// conveyorExit tries to hand the head item off the end of the belt. On
// failure the item stays pinned at 1.0 and blocks followers.
func (w *World) conveyorExit(m *Machine) {
	b := m.Belt
	n := len(b.Items)
	if n == 0 {
		return
	}
	head := b.Items[n-1]
	if head.Progress < 1.0 {
		return
	}

	if b.Shape == ShapeSplitter {
		outs := m.splitterOutputs()
		for step := 1; step <= 3; step++ {
			idx := (b.LastOutputIndex + step) % 3
			if w.tryHandOff(m.Pos, outs[idx], head.Item) {
				b.Items = b.Items[:n-1]
				b.LastOutputIndex = idx
				return
			}
		}
		return
	}

	to := m.Pos.Add(b.OutDir.Delta())
	if w.tryHandOff(m.Pos, to, head.Item) {
		b.Items = b.Items[:n-1]
	}
}

// tryHandOff moves one item from a source cell onto whatever sits at the
// target: a conveyor (via its join rules), a processing machine's input
// slots, or the delivery platform. Exactly one of insert/consume happens;
// the caller removes the item from the source only on success.
func (w *World) tryHandOff(from, to Vec3i, item string) bool {
	if w.platform.Contains(to) {
		w.deliver(item, 1)
		return true
	}

	target := w.machines.At(to)
	if target == nil {
		return false
	}

	if target.Belt != nil {
		at, lateral, ok := target.JoinInfo(from)
		if !ok {
			return false
		}
		if !target.Belt.CanAccept(at, w.tun.Conveyor.ItemSpacing, w.tun.Conveyor.MaxItems) {
			return false
		}
		side := target.joinSide(from)
		if side != 0 && target.Belt.Shape == ShapeTJunction {
			if side == target.Belt.LastInputSource && w.otherSideContending(target, side) {
				return false
			}
			target.Belt.LastInputSource = side
		}
		target.Belt.Insert(item, at, lateral)
		w.events.ConveyorTransfer = append(w.events.ConveyorTransfer, ConveyorTransferEvent{
			From: from, To: to, Item: item,
		})
		return true
	}

	if target.def != nil && target.def.Process == "recipe" {
		if target.addInput(item, w.fuelItems) {
			return true
		}
	}
	return false
}

// otherSideContending reports whether the opposite side feeder of a
// t-junction has an item ready to merge, meaning the zipper should yield.
func (w *World) otherSideContending(junction *Machine, side int) bool {
	var otherPos Vec3i
	if side == beltSideLeft {
		otherPos = junction.Pos.Add(junction.Facing.Right().Delta())
	} else {
		otherPos = junction.Pos.Add(junction.Facing.Left().Delta())
	}
	other := w.machines.At(otherPos)
	if other == nil || other.Belt == nil || len(other.Belt.Items) == 0 {
		return false
	}
	// Feeder must actually point at the junction.
	if otherPos.Add(other.Belt.OutDir.Delta()) != junction.Pos {
		return false
	}
	head := other.Belt.Items[len(other.Belt.Items)-1]
	return head.Progress >= 1.0
}

// updateConveyorShape recomputes shape and output direction from neighbor
// topology: which neighbors feed this belt and which can take from it.
func (w *World) updateConveyorShape(m *Machine) {
	back := m.Pos.Add(m.Facing.Opposite().Delta())
	left := m.Pos.Add(m.Facing.Left().Delta())
	right := m.Pos.Add(m.Facing.Right().Delta())
	front := m.Pos.Add(m.Facing.Delta())

	outputsToUs := func(p Vec3i) bool {
		n := w.machines.At(p)
		if n == nil || n.Belt == nil {
			return false
		}
		return p.Add(n.Facing.Delta()) == m.Pos
	}
	hasBack := outputsToUs(back)
	hasLeft := outputsToUs(left)
	hasRight := outputsToUs(right)
	hasFront := outputsToUs(front)

	// A neighbor "waits" when it could receive from this position and is
	// not already feeding us. Machines with input slots always accept at
	// the front.
	canReceive := func(p Vec3i) bool {
		n := w.machines.At(p)
		if n == nil {
			return false
		}
		if n.Belt != nil {
			_, _, ok := n.JoinInfo(m.Pos)
			return ok
		}
		return n.def != nil && n.def.Process == "recipe"
	}
	receivesAsConveyor := func(p Vec3i) bool {
		n := w.machines.At(p)
		if n == nil || n.Belt == nil {
			return false
		}
		_, _, ok := n.JoinInfo(m.Pos)
		return ok
	}
	platformWaiting := w.platform.Contains(front)

	leftWaiting := !hasLeft && receivesAsConveyor(left)
	rightWaiting := !hasRight && receivesAsConveyor(right)
	frontWaiting := !hasFront && (canReceive(front) || platformWaiting)

	inputCount := 0
	for _, b := range []bool{hasBack, hasLeft, hasRight, hasFront} {
		if b {
			inputCount++
		}
	}
	waitCount := 0
	for _, b := range []bool{leftWaiting, rightWaiting, frontWaiting} {
		if b {
			waitCount++
		}
	}

	shape := ShapeStraight
	outDir := m.Facing
	switch {
	case inputCount >= 2:
		shape = ShapeTJunction
	case hasBack:
		switch {
		case waitCount >= 2:
			shape = ShapeSplitter
		case rightWaiting && !frontWaiting:
			shape = ShapeCornerRight
			outDir = m.Facing.Right()
		case leftWaiting && !frontWaiting:
			shape = ShapeCornerLeft
			outDir = m.Facing.Left()
		}
	case hasLeft:
		switch {
		case frontWaiting && rightWaiting:
			shape = ShapeSplitter
		case rightWaiting && !frontWaiting:
			shape = ShapeCornerRight
			outDir = m.Facing.Right()
		default:
			// Left in, front out: the item turns right.
			shape = ShapeCornerRight
		}
	case hasRight:
		switch {
		case frontWaiting && leftWaiting:
			shape = ShapeSplitter
		case leftWaiting && !frontWaiting:
			shape = ShapeCornerLeft
			outDir = m.Facing.Left()
		default:
			shape = ShapeCornerLeft
		}
	}

	m.Belt.Shape = shape
	m.Belt.OutDir = outDir
}
