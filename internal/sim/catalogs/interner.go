package catalogs

// ItemID is an interned handle for a namespaced item name such as
// "base:iron_ore". Once assigned an id never changes meaning; saves persist
// names, never ids, so the interner can be rebuilt across code changes.
type ItemID uint32

// NoItem is never assigned by the interner.
const NoItem ItemID = 0xFFFFFFFF

// Interner assigns dense append-only ids to item names.
type Interner struct {
	names []string
	index map[string]ItemID
}

func NewInterner() *Interner {
	return &Interner{index: map[string]ItemID{}}
}

func (in *Interner) Intern(name string) ItemID {
	if id, ok := in.index[name]; ok {
		return id
	}
	id := ItemID(len(in.names))
	in.names = append(in.names, name)
	in.index[name] = id
	return id
}

func (in *Interner) Lookup(name string) (ItemID, bool) {
	id, ok := in.index[name]
	return id, ok
}

func (in *Interner) Name(id ItemID) (string, bool) {
	if int(id) >= len(in.names) {
		return "", false
	}
	return in.names[id], true
}

// All returns the interned names in assignment order. The slice is shared;
// callers must not mutate it.
func (in *Interner) All() []string {
	return in.names
}

func (in *Interner) Len() int { return len(in.names) }
