package world

import "fmt"

type Vec3i struct {
	X int
	Y int
	Z int
}

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func (v Vec3i) Add(o Vec3i) Vec3i { return Vec3i{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }

func (v Vec3i) Key() string { return fmt.Sprintf("%d,%d,%d", v.X, v.Y, v.Z) }

// Less orders positions lexicographically (X, then Y, then Z). All per-tick
// machine iteration uses this order.
func (v Vec3i) Less(o Vec3i) bool {
	if v.X != o.X {
		return v.X < o.X
	}
	if v.Y != o.Y {
		return v.Y < o.Y
	}
	return v.Z < o.Z
}

func Manhattan(a, b Vec3i) int {
	return absInt(a.X-b.X) + absInt(a.Y-b.Y) + absInt(a.Z-b.Z)
}

// Chebyshev ignores Y: the tutorial's chain-adjacency test is planar.
func Chebyshev(a, b Vec3i) int {
	dx := absInt(a.X - b.X)
	dz := absInt(a.Z - b.Z)
	if dx > dz {
		return dx
	}
	return dz
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Dir is one of the four cardinal facings.
type Dir uint8

const (
	DirNorth Dir = iota // -Z
	DirEast             // +X
	DirSouth            // +Z
	DirWest             // -X
)

func (d Dir) Delta() Vec3i {
	switch d {
	case DirNorth:
		return Vec3i{Z: -1}
	case DirEast:
		return Vec3i{X: 1}
	case DirSouth:
		return Vec3i{Z: 1}
	default:
		return Vec3i{X: -1}
	}
}

func (d Dir) Left() Dir  { return (d + 3) % 4 }
func (d Dir) Right() Dir { return (d + 1) % 4 }

func (d Dir) Opposite() Dir { return (d + 2) % 4 }

func (d Dir) String() string {
	switch d {
	case DirNorth:
		return "N"
	case DirEast:
		return "E"
	case DirSouth:
		return "S"
	default:
		return "W"
	}
}

func DirFromString(s string) (Dir, bool) {
	switch s {
	case "N":
		return DirNorth, true
	case "E":
		return DirEast, true
	case "S":
		return DirSouth, true
	case "W":
		return DirWest, true
	}
	return DirNorth, false
}

// YawToDir snaps a yaw angle in degrees to the nearest cardinal facing.
// Yaw 0 faces -Z (north), 90 faces +X (east).
func YawToDir(yaw float64) Dir {
	y := int(yaw) % 360
	if y < 0 {
		y += 360
	}
	return Dir(((y + 45) / 90) % 4)
}
