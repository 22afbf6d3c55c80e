package world

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"
)

type ChunkKey struct {
	CX int
	CZ int
}

type Chunk struct {
	CX, CZ int
	Blocks []uint16 // len = size*height*size

	size   int
	height int
	dirty  bool
	hash   [32]byte
}

func (c *Chunk) index(x, y, z int) int {
	// x fastest, then z, then y
	return x + z*c.size + y*c.size*c.size
}

func (c *Chunk) Get(x, y, z int) uint16 {
	return c.Blocks[c.index(x, y, z)]
}

func (c *Chunk) Set(x, y, z int, b uint16) {
	i := c.index(x, y, z)
	if c.Blocks[i] == b {
		return
	}
	c.Blocks[i] = b
	c.dirty = true
}

func (c *Chunk) Digest() [32]byte {
	if c.dirty || c.hash == ([32]byte{}) {
		// Hash the raw uint16 slice deterministically.
		h := sha256.New()
		var tmp [2]byte
		for _, v := range c.Blocks {
			binary.LittleEndian.PutUint16(tmp[:], v)
			h.Write(tmp[:])
		}
		copy(c.hash[:], h.Sum(nil))
		c.dirty = false
	}
	return c.hash
}

type WorldGen struct {
	Seed        int64
	ChunkSize   int
	ChunkHeight int
	GroundLevel int

	// Delivery platform footprint, stamped over generated terrain at
	// ground level.
	PlatformMin Vec3i
	PlatformMax Vec3i

	// Palette ids for core blocks.
	Air       uint16
	Grass     uint16
	Dirt      uint16
	Stone     uint16
	Sand      uint16
	IronOre   uint16
	CopperOre uint16
	CoalOre   uint16
	Platform  uint16
}

// ChunkStore owns the chunk grid and the player-modification overlay. The
// overlay is the source of truth: a generated chunk cell is only a fallback
// for positions the player never touched. Explicit edits store the new block
// id; Air means explicitly cleared.
type ChunkStore struct {
	gen WorldGen

	// Accessed only from the world loop goroutine.
	chunks  map[ChunkKey]*Chunk
	overlay map[Vec3i]uint16
	dirty   map[ChunkKey]bool
}

func NewChunkStore(gen WorldGen) *ChunkStore {
	return &ChunkStore{
		gen:     gen,
		chunks:  map[ChunkKey]*Chunk{},
		overlay: map[Vec3i]uint16{},
		dirty:   map[ChunkKey]bool{},
	}
}

func (s *ChunkStore) inBounds(pos Vec3i) bool {
	return pos.Y >= 0 && pos.Y < s.gen.ChunkHeight
}

func (s *ChunkStore) chunkKeyFor(pos Vec3i) ChunkKey {
	return ChunkKey{
		CX: floorDiv(pos.X, s.gen.ChunkSize),
		CZ: floorDiv(pos.Z, s.gen.ChunkSize),
	}
}

func (s *ChunkStore) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.chunks))
	for k := range s.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}

// GetBlock consults the overlay first; the generator result only applies to
// untouched cells. Out-of-range Y reads as air.
func (s *ChunkStore) GetBlock(pos Vec3i) uint16 {
	if !s.inBounds(pos) {
		return s.gen.Air
	}
	if b, ok := s.overlay[pos]; ok {
		return b
	}
	return s.generatedBlock(pos)
}

func (s *ChunkStore) HasBlock(pos Vec3i) bool {
	return s.GetBlock(pos) != s.gen.Air
}

// SetBlock records an explicit edit. Out-of-range Y is rejected silently.
func (s *ChunkStore) SetBlock(pos Vec3i, b uint16) {
	if !s.inBounds(pos) {
		return
	}
	if s.generatedBlock(pos) == b {
		// Edit restores the generated cell; the overlay entry would be
		// redundant and would bloat saves.
		delete(s.overlay, pos)
	} else {
		s.overlay[pos] = b
	}
	k := s.chunkKeyFor(pos)
	if ch, ok := s.chunks[k]; ok {
		ch.Set(mod(pos.X, s.gen.ChunkSize), pos.Y, mod(pos.Z, s.gen.ChunkSize), b)
	}
	s.dirty[k] = true
}

// BreakBlock clears a cell and returns what was there.
func (s *ChunkStore) BreakBlock(pos Vec3i) uint16 {
	prev := s.GetBlock(pos)
	if prev != s.gen.Air {
		s.SetBlock(pos, s.gen.Air)
	}
	return prev
}

// DirtyChunks drains the dirty set, sorted.
func (s *ChunkStore) DirtyChunks() []ChunkKey {
	if len(s.dirty) == 0 {
		return nil
	}
	keys := make([]ChunkKey, 0, len(s.dirty))
	for k := range s.dirty {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
	s.dirty = map[ChunkKey]bool{}
	return keys
}

// Overlay returns the modification overlay in sorted position order, for
// save export.
func (s *ChunkStore) Overlay() []OverlayEntry {
	out := make([]OverlayEntry, 0, len(s.overlay))
	for p, b := range s.overlay {
		out = append(out, OverlayEntry{Pos: p, Block: b})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pos.Less(out[j].Pos) })
	return out
}

type OverlayEntry struct {
	Pos   Vec3i
	Block uint16
}

// ResetOverlay replaces the overlay wholesale (save load) and drops every
// loaded chunk so reads rebuild from generator plus the new overlay.
func (s *ChunkStore) ResetOverlay(entries []OverlayEntry) {
	s.overlay = make(map[Vec3i]uint16, len(entries))
	for _, e := range entries {
		if !s.inBounds(e.Pos) {
			continue
		}
		s.overlay[e.Pos] = e.Block
	}
	s.chunks = map[ChunkKey]*Chunk{}
	s.dirty = map[ChunkKey]bool{}
}

// EnsureLoadedAround makes chunks within radius (in chunks) of the center
// column resident and unloads the rest. Unloading drops the flat array only;
// the overlay survives, so reload reproduces identical contents.
func (s *ChunkStore) EnsureLoadedAround(center Vec3i, radius int) {
	ck := s.chunkKeyFor(center)
	for cz := ck.CZ - radius; cz <= ck.CZ+radius; cz++ {
		for cx := ck.CX - radius; cx <= ck.CX+radius; cx++ {
			s.getOrGenChunk(cx, cz)
		}
	}
	for k := range s.chunks {
		if absInt(k.CX-ck.CX) > radius || absInt(k.CZ-ck.CZ) > radius {
			delete(s.chunks, k)
			delete(s.dirty, k)
		}
	}
}

func (s *ChunkStore) Loaded(k ChunkKey) *Chunk { return s.chunks[k] }

func (s *ChunkStore) getOrGenChunk(cx, cz int) *Chunk {
	k := ChunkKey{CX: cx, CZ: cz}
	if ch, ok := s.chunks[k]; ok {
		return ch
	}
	ch := &Chunk{
		CX:     cx,
		CZ:     cz,
		Blocks: make([]uint16, s.gen.ChunkSize*s.gen.ChunkHeight*s.gen.ChunkSize),
		size:   s.gen.ChunkSize,
		height: s.gen.ChunkHeight,
	}
	s.generateChunk(ch)
	// Replay the overlay on top.
	for y := 0; y < s.gen.ChunkHeight; y++ {
		for z := 0; z < s.gen.ChunkSize; z++ {
			for x := 0; x < s.gen.ChunkSize; x++ {
				wp := Vec3i{X: cx*s.gen.ChunkSize + x, Y: y, Z: cz*s.gen.ChunkSize + z}
				if b, ok := s.overlay[wp]; ok {
					ch.Blocks[ch.index(x, y, z)] = b
				}
			}
		}
	}
	ch.dirty = true
	_ = ch.Digest() // initialize digest
	s.chunks[k] = ch
	s.dirty[k] = true
	return ch
}

// generatedBlock is the pure per-cell generator: surface at ground level,
// dirt shallow, stone with sparse ore below, air above. The platform
// footprint stamps over terrain at ground level.
func (s *ChunkStore) generatedBlock(pos Vec3i) uint16 {
	g := s.gen
	if pos.Y > g.GroundLevel {
		return g.Air
	}
	if pos.Y == g.GroundLevel {
		if pos.X >= g.PlatformMin.X && pos.X <= g.PlatformMax.X &&
			pos.Z >= g.PlatformMin.Z && pos.Z <= g.PlatformMax.Z {
			return g.Platform
		}
		return g.Grass
	}
	if pos.Y >= g.GroundLevel-2 {
		return g.Dirt
	}
	// Deep terrain: mostly stone, ore sprinkled by the biome at the column.
	roll := hash3(g.Seed, pos.X, pos.Y, pos.Z) % 100
	switch biomeAt(g.Seed, pos.X, pos.Z, g.PlatformMin, g.PlatformMax) {
	case BiomeIron:
		if roll < 20 {
			return g.IronOre
		}
	case BiomeCopper:
		if roll < 20 {
			return g.CopperOre
		}
	case BiomeCoal:
		if roll < 20 {
			return g.CoalOre
		}
	case BiomeMixed:
		switch {
		case roll < 8:
			return g.IronOre
		case roll < 15:
			return g.CopperOre
		case roll < 20:
			return g.CoalOre
		}
	}
	return g.Stone
}

func (s *ChunkStore) generateChunk(ch *Chunk) {
	for y := 0; y < s.gen.ChunkHeight; y++ {
		for z := 0; z < s.gen.ChunkSize; z++ {
			for x := 0; x < s.gen.ChunkSize; x++ {
				wp := Vec3i{
					X: ch.CX*s.gen.ChunkSize + x,
					Y: y,
					Z: ch.CZ*s.gen.ChunkSize + z,
				}
				ch.Blocks[ch.index(x, y, z)] = s.generatedBlock(wp)
			}
		}
	}
}

func floorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func mod(a, b int) int {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func hash2(seed int64, x, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uz := uint64(uint32(int32(z)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uz * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

func hash3(seed int64, x, y, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	uz := uint64(uint32(int32(z)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xc2b2ae3d27d4eb4f) ^ (uz * 0xbf58476d1ce4e5b9)
	return mix64(v)
}
