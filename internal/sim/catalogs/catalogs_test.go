package catalogs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigs(t *testing.T) {
	c, err := Load("../../../configs")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Blocks.Palette[0] != "AIR" {
		t.Fatalf("palette[0] = %q, want AIR", c.Blocks.Palette[0])
	}
	if c.Blocks.Index["AIR"] != 0 {
		t.Fatalf("AIR index = %d", c.Blocks.Index["AIR"])
	}
	if _, ok := c.Items.Defs["base:iron_ore"]; !ok {
		t.Fatalf("missing base:iron_ore")
	}
	def := c.Items.Defs["base:furnace"]
	if def.Machine == nil || def.Machine.Kind != "furnace" || !def.Machine.RequiresFuel {
		t.Fatalf("bad furnace def: %+v", def.Machine)
	}
	if _, ok := c.Recipes.ByID["smelt_iron"]; !ok {
		t.Fatalf("missing smelt_iron")
	}
	if len(c.Quests.Order) != 3 || c.Quests.Order[0] != "main_1" {
		t.Fatalf("quest order = %v", c.Quests.Order)
	}
	if c.Items.PaletteDigest == "" || c.Recipes.Digest == "" {
		t.Fatalf("missing digests")
	}
}

func TestInternerStableAndAppendOnly(t *testing.T) {
	c, err := Load("../../../configs")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	id1, ok := c.Items.Index.Lookup("base:coal")
	if !ok {
		t.Fatalf("base:coal not interned")
	}
	if got := c.Items.Index.Intern("base:coal"); got != id1 {
		t.Fatalf("re-intern changed id: %d vs %d", got, id1)
	}
	before := c.Items.Index.Len()
	modID := c.Items.Index.Intern("mymod:widget")
	if int(modID) != before {
		t.Fatalf("new id = %d, want %d", modID, before)
	}
	name, ok := c.Items.Index.Name(modID)
	if !ok || name != "mymod:widget" {
		t.Fatalf("Name(%d) = %q, %v", modID, name, ok)
	}
}

func TestRecipeExactIgnoresInputOrder(t *testing.T) {
	c, err := Load("../../../configs")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	r1, ok := c.Recipes.Exact("furnace", []ItemCount{{Item: "base:iron_ore", Count: 1}})
	if !ok || r1.RecipeID != "smelt_iron" {
		t.Fatalf("Exact = %v %v", r1.RecipeID, ok)
	}
	// Split counts and shuffled order reduce to the same key.
	r2, ok := c.Recipes.Exact("furnace", []ItemCount{
		{Item: "base:iron_dust", Count: 1},
		{Item: "base:iron_dust", Count: 1},
	})
	if !ok || r2.RecipeID != "smelt_iron_dust" {
		t.Fatalf("Exact split = %v %v", r2.RecipeID, ok)
	}
	if _, ok := c.Recipes.Exact("crusher", []ItemCount{{Item: "base:iron_ore", Count: 1}}); !ok {
		t.Fatalf("crusher table lookup failed")
	}
}

func TestRecipeMatchUsesCoverage(t *testing.T) {
	c, err := Load("../../../configs")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// More ore than the recipe needs still matches; fuel counts too.
	r, ok := c.Recipes.Match("furnace", map[string]int{
		"base:iron_ore": 5,
		"base:coal":     2,
	})
	if !ok || r.RecipeID != "smelt_iron" {
		t.Fatalf("Match = %v %v", r.RecipeID, ok)
	}
	// Ore without fuel must not match.
	if _, ok := c.Recipes.Match("furnace", map[string]int{"base:iron_ore": 5}); ok {
		t.Fatalf("matched without fuel")
	}
	if _, ok := c.Recipes.Match("crusher", map[string]int{"base:coal": 10}); ok {
		t.Fatalf("crusher matched coal")
	}
}

func TestRecipeConflictRejected(t *testing.T) {
	dir := t.TempDir()
	conflicting := `[
  {"recipe_id":"a","table":"furnace",
   "inputs":[{"item":"base:iron_ore","count":2}],
   "outputs":[{"item":"base:iron_ingot","count":1}],"seconds":1},
  {"recipe_id":"b","table":"furnace",
   "inputs":[{"item":"base:iron_ore","count":1},{"item":"base:iron_ore","count":1}],
   "outputs":[{"item":"base:iron_ingot","count":2}],"seconds":1}
]`
	if err := os.WriteFile(filepath.Join(dir, "recipes.json"), []byte(conflicting), 0o644); err != nil {
		t.Fatal(err)
	}
	var rc RecipeCatalog
	err := loadRecipes(filepath.Join(dir, "recipes.json"), &rc, NewInterner())
	if !errors.Is(err, ErrRecipeConflict) {
		t.Fatalf("err = %v, want ErrRecipeConflict", err)
	}
}
