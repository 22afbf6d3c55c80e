package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

type Catalogs struct {
	Blocks BlockCatalog
	Items  ItemCatalog

	Recipes RecipeCatalog
	Quests  QuestCatalog
}

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	PaletteDigest string
	DefsDigest    string
}

type BlockDef struct {
	ID        string `json:"id"`
	Solid     bool   `json:"solid"`
	Breakable bool   `json:"breakable"`
	DropsItem string `json:"drops_item,omitempty"`
}

type ItemCatalog struct {
	Palette       []string
	Index         *Interner
	Defs          map[string]ItemDef
	PaletteDigest string
	DefsDigest    string
}

type ItemDef struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"` // "MATERIAL","MACHINE","BLOCK","TOOL"
	PlaceAs    string `json:"place_as,omitempty"`
	StackLimit int    `json:"stack_limit,omitempty"`

	Machine *MachineDef `json:"machine,omitempty"`
}

// MachineDef describes the fixed behavior of a machine kind. Items with
// Kind "MACHINE" carry one; placing such an item spawns the machine.
type MachineDef struct {
	Kind           string  `json:"kind"`    // "miner","conveyor","furnace","crusher"
	Process        string  `json:"process"` // "auto_generate","recipe","transfer"
	RecipeTable    string  `json:"recipe_table,omitempty"`
	ProcessSeconds float64 `json:"process_seconds,omitempty"`
	InputSlots     int     `json:"input_slots,omitempty"`
	OutputSlots    int     `json:"output_slots,omitempty"`
	BufferSize     int     `json:"buffer_size,omitempty"`
	RequiresFuel   bool    `json:"requires_fuel,omitempty"`
}

type RecipeCatalog struct {
	ByID   map[string]RecipeDef
	Digest string

	// byKey indexes recipes by (table, canonical input multiset) so a tick
	// never has to scan the whole catalog. Populated at load; a duplicate
	// key is a fatal configuration error.
	byKey map[string]string

	// items canonicalizes input multisets by interned id.
	items *Interner
}

type RecipeDef struct {
	RecipeID string      `json:"recipe_id"`
	Table    string      `json:"table"` // which machine recipe table: "furnace","crusher"
	Inputs   []ItemCount `json:"inputs"`
	Outputs  []ItemCount `json:"outputs"`
	Seconds  float64     `json:"seconds"`
	Fuel     *ItemCount  `json:"fuel,omitempty"`
}

type ItemCount struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

type QuestCatalog struct {
	Order  []string
	ByID   map[string]QuestDef
	Digest string
}

type QuestDef struct {
	QuestID     string      `json:"quest_id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Required    []ItemCount `json:"required"`
	Rewards     []ItemCount `json:"rewards"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), &c.Blocks); err != nil {
		return nil, err
	}
	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := loadRecipes(filepath.Join(configDir, "recipes.json"), &c.Recipes, c.Items.Index); err != nil {
		return nil, err
	}
	if err := loadQuests(filepath.Join(configDir, "quests.json"), &c.Quests); err != nil {
		return nil, err
	}

	for id, r := range c.Recipes.ByID {
		for _, ic := range append(append([]ItemCount{}, r.Inputs...), r.Outputs...) {
			if _, ok := c.Items.Defs[ic.Item]; !ok {
				return nil, fmt.Errorf("recipe %s: unknown item %q", id, ic.Item)
			}
		}
		if r.Fuel != nil {
			if _, ok := c.Items.Defs[r.Fuel.Item]; !ok {
				return nil, fmt.Errorf("recipe %s: unknown fuel item %q", id, r.Fuel.Item)
			}
		}
	}
	for id, q := range c.Quests.ByID {
		for _, ic := range append(append([]ItemCount{}, q.Required...), q.Rewards...) {
			if _, ok := c.Items.Defs[ic.Item]; !ok {
				return nil, fmt.Errorf("quest %s: unknown item %q", id, ic.Item)
			}
		}
	}

	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadBlocks(path string, out *BlockCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	out.Defs = map[string]BlockDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("blocks.json: empty id")
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// Ensure AIR exists and is palette id 0.
	if _, ok := out.Defs["AIR"]; !ok {
		return fmt.Errorf("blocks.json: missing AIR")
	}
	ids = append([]string{"AIR"}, filterOut(ids, "AIR")...)

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	out.Defs = map[string]ItemDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		if d.Kind == "MACHINE" && d.Machine == nil {
			return fmt.Errorf("items.json: %s: MACHINE item without machine def", d.ID)
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out.Palette = ids

	// Interning in sorted order keeps ids stable for a given items.json.
	// Names seen only in saves are appended later and never collide.
	out.Index = NewInterner()
	for _, id := range ids {
		out.Index.Intern(id)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func loadQuests(path string, out *QuestCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []QuestDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("quests.json: %w", err)
	}
	out.ByID = map[string]QuestDef{}
	for _, q := range defs {
		if q.QuestID == "" {
			return fmt.Errorf("quests.json: empty quest_id")
		}
		if _, dup := out.ByID[q.QuestID]; dup {
			return fmt.Errorf("quests.json: duplicate quest_id %s", q.QuestID)
		}
		out.ByID[q.QuestID] = q
		out.Order = append(out.Order, q.QuestID)
	}
	return nil
}

func filterOut(in []string, remove string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == remove {
			continue
		}
		out = append(out, s)
	}
	return out
}
