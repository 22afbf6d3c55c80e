package world

import "math"

// Biome determines what a miner produces at a given column. The spawn ring
// around the delivery platform guarantees iron, copper and coal sectors so a
// fresh world is always playable; everywhere else the biome is hashed from
// the seed over 8x8 regions.
type Biome uint8

const (
	BiomeIron Biome = iota
	BiomeCopper
	BiomeCoal
	BiomeStone
	BiomeMixed
)

func (b Biome) String() string {
	switch b {
	case BiomeIron:
		return "IRON"
	case BiomeCopper:
		return "COPPER"
	case BiomeCoal:
		return "COAL"
	case BiomeStone:
		return "STONE"
	default:
		return "MIXED"
	}
}

const (
	biomeRegionSize      = 8
	spawnGuaranteeRadius = 10.0
)

type oreWeight struct {
	Item   string
	Weight uint32
}

// Per-biome mining tables. Weights sum to 100 where fully specified; the
// iron/copper/coal tables carry a small off-biome tail.
var biomeMiningTables = map[Biome][]oreWeight{
	BiomeIron: {
		{"base:iron_ore", 70},
		{"base:stone", 22},
		{"base:coal", 8},
	},
	BiomeCopper: {
		{"base:copper_ore", 70},
		{"base:stone", 22},
		{"base:iron_ore", 8},
	},
	BiomeCoal: {
		{"base:coal", 75},
		{"base:stone", 20},
		{"base:iron_ore", 5},
	},
	BiomeStone: {
		{"base:stone", 85},
		{"base:coal", 10},
		{"base:iron_ore", 5},
	},
	BiomeMixed: {
		{"base:iron_ore", 30},
		{"base:copper_ore", 25},
		{"base:coal", 25},
		{"base:stone", 20},
	},
}

func biomeAt(seed int64, x, z int, platformMin, platformMax Vec3i) Biome {
	cx := float64(platformMin.X+platformMax.X) / 2
	cz := float64(platformMin.Z+platformMax.Z) / 2
	dx := float64(x) - cx
	dz := float64(z) - cz
	dist := math.Sqrt(dx*dx + dz*dz)

	if dist <= spawnGuaranteeRadius {
		if dist < 5.0 {
			return BiomeMixed
		}
		// Three guaranteed sectors by angle from the platform center.
		angle := math.Atan2(dz, dx)
		sector := int((angle+math.Pi)/(2*math.Pi/3)) % 3
		switch sector {
		case 0:
			return BiomeIron
		case 1:
			return BiomeCopper
		default:
			return BiomeCoal
		}
	}

	rx := floorDiv(x, biomeRegionSize)
	rz := floorDiv(z, biomeRegionSize)
	roll := hash2(seed, rx, rz) % 100
	switch {
	case roll < 30:
		return BiomeIron
	case roll < 55:
		return BiomeCopper
	case roll < 80:
		return BiomeCoal
	case roll < 95:
		return BiomeStone
	default:
		return BiomeMixed
	}
}

// biomeMiningOutput picks the mined item for a biome deterministically from
// the miner's per-machine tick counter.
func biomeMiningOutput(b Biome, tick uint32) string {
	table := biomeMiningTables[b]
	var total uint32
	for _, e := range table {
		total += e.Weight
	}
	roll := tick % total
	var acc uint32
	for _, e := range table {
		acc += e.Weight
		if roll < acc {
			return e.Item
		}
	}
	return "base:stone"
}
