package catalogs

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// ErrRecipeConflict is returned (wrapped) by loadRecipes when two recipes in
// the same table reduce to the same canonical input multiset. Startup treats
// this as fatal.
var ErrRecipeConflict = fmt.Errorf("recipe registration conflict")

func loadRecipes(path string, out *RecipeCatalog, items *Interner) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []RecipeDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("recipes.json: %w", err)
	}
	out.ByID = map[string]RecipeDef{}
	out.byKey = map[string]string{}
	out.items = items
	for _, r := range defs {
		if r.RecipeID == "" {
			return fmt.Errorf("recipes.json: empty recipe_id")
		}
		if r.Table == "" {
			return fmt.Errorf("recipes.json: %s: empty table", r.RecipeID)
		}
		if len(r.Inputs) == 0 || len(r.Outputs) == 0 {
			return fmt.Errorf("recipes.json: %s: inputs and outputs required", r.RecipeID)
		}
		if r.Seconds <= 0 {
			return fmt.Errorf("recipes.json: %s: seconds must be positive", r.RecipeID)
		}
		if _, dup := out.ByID[r.RecipeID]; dup {
			return fmt.Errorf("recipes.json: duplicate recipe_id %s", r.RecipeID)
		}
		key := canonicalKey(items, r.Table, r.Inputs)
		if prev, dup := out.byKey[key]; dup {
			return fmt.Errorf("%w: %s and %s share inputs in table %s",
				ErrRecipeConflict, prev, r.RecipeID, r.Table)
		}
		out.byKey[key] = r.RecipeID
		out.ByID[r.RecipeID] = r
	}
	return nil
}

// canonicalKey reduces an input list to a table-qualified multiset key:
// entries aggregate by interned id and sort on it, so duplicate entries
// and listing order never matter.
func canonicalKey(in *Interner, table string, inputs []ItemCount) string {
	counts := map[ItemID]int{}
	for _, ic := range inputs {
		counts[in.Intern(ic.Item)] += ic.Count
	}
	ids := make([]ItemID, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var b strings.Builder
	b.WriteString(table)
	for _, id := range ids {
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(int(id)))
		b.WriteByte('x')
		b.WriteString(strconv.Itoa(counts[id]))
	}
	return b.String()
}

// Exact looks up the recipe whose canonical input multiset equals the given
// inputs, within one table.
func (rc *RecipeCatalog) Exact(table string, inputs []ItemCount) (RecipeDef, bool) {
	id, ok := rc.byKey[canonicalKey(rc.items, table, inputs)]
	if !ok {
		return RecipeDef{}, false
	}
	return rc.ByID[id], true
}

// Match finds the recipe in a table whose inputs (and fuel, if any) are all
// covered by the available counts. Slot contents may hold more than one
// recipe's worth; coverage, not equality, decides. Ties cannot happen for a
// sane catalog, but iteration is by sorted recipe id so the result is
// deterministic regardless.
func (rc *RecipeCatalog) Match(table string, available map[string]int) (RecipeDef, bool) {
	ids := make([]string, 0, len(rc.ByID))
	for id, r := range rc.ByID {
		if r.Table == table {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		r := rc.ByID[id]
		if covered(r, available) {
			return r, true
		}
	}
	return RecipeDef{}, false
}

func covered(r RecipeDef, available map[string]int) bool {
	need := map[string]int{}
	for _, ic := range r.Inputs {
		need[ic.Item] += ic.Count
	}
	if r.Fuel != nil {
		need[r.Fuel.Item] += r.Fuel.Count
	}
	for it, n := range need {
		if available[it] < n {
			return false
		}
	}
	return true
}
