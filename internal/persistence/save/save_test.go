package save

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func sampleDoc() *Document {
	return &Document{
		Timestamp: "2026-01-02T03:04:05Z",
		Seed:      12345,
		Tick:      600,
		Mode:      "survival",
		Player: PlayerState{
			Pos:      [3]float64{8, 11, 20},
			Yaw:      90,
			Selected: 2,
		},
		Inventory: []SlotState{
			{Slot: 0, Item: "base:miner", Count: 1},
			{Slot: 1, Item: "base:conveyor", Count: 12},
		},
		PlatformInventory: map[string]int{"base:iron_ingot": 10},
		World:             map[string]string{"4,6,4": "AIR", "5,6,4": "IRON_ORE"},
		Machines: []MachineState{
			{
				Kind:      "miner",
				Item:      "base:miner",
				Handle:    "M000001",
				Pos:       [3]int{5, 7, 4},
				Facing:    "EAST",
				State:     "RUNNING",
				Progress:  0.4,
				TickCount: 7,
				Outputs:   []SlotState{{Slot: 0, Item: "base:iron_ore", Count: 1}},
			},
			{
				Kind:   "conveyor",
				Item:   "base:conveyor",
				Handle: "M000002",
				Pos:    [3]int{6, 7, 4},
				Facing: "EAST",
				Belt: &BeltState{
					Shape:  "STRAIGHT",
					OutDir: "EAST",
					Items:  []BeltItemState{{Item: "base:iron_ore", Progress: 0.5, Lateral: -0.25}},
				},
			},
		},
		Quests: QuestState{
			TutorialStep: 4,
			QuestIndex:   0,
			Delivered:    map[string]int{"base:iron_ingot": 4},
		},
		Achievements: []Achievement{{ID: "first_machine", UnlockedTick: 120}},
	}
}

func TestSaveRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	doc := sampleDoc()
	if err := store.Save("world", doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load("world")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Version != Version {
		t.Fatalf("version = %q, want %q", got.Version, Version)
	}
	doc.Version = Version
	if !reflect.DeepEqual(got, doc) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, doc)
	}

	// Saving the loaded document again must produce identical bytes.
	if err := store.Save("world2", got); err != nil {
		t.Fatalf("Save again: %v", err)
	}
	b1, _ := os.ReadFile(filepath.Join(store.Dir(), "world.json"))
	b2, _ := os.ReadFile(filepath.Join(store.Dir(), "world2.json"))
	if string(b1) != string(b2) {
		t.Fatalf("second save differs from first")
	}
}

func TestLoadRejectsCorrupt(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{"version":"0.2.0","player":`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := store.Load("bad"); !errors.Is(err, ErrParse) {
		t.Fatalf("Load corrupt = %v, want ErrParse", err)
	}
	if _, err := store.Load("missing"); !errors.Is(err, ErrParse) {
		t.Fatalf("Load missing = %v, want ErrParse", err)
	}
}

func TestLoadRejectsVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "old.json"), []byte(`{"version":"0.1.0"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := store.Load("old"); !errors.Is(err, ErrVersion) {
		t.Fatalf("Load old = %v, want ErrVersion", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "future.json"), []byte(`{"version":"9.0.0"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := store.Load("future"); !errors.Is(err, ErrVersion) {
		t.Fatalf("Load future = %v, want ErrVersion", err)
	}
}

func TestSaveNoTempLeftBehind(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.Save("world", sampleDoc()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	slots, err := store.Slots()
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	if len(slots) != 1 || slots[0] != "world" {
		t.Fatalf("Slots = %v, want [world]", slots)
	}
}

func TestWrittenSaveMatchesSchema(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.Save("world", sampleDoc()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	schema, err := jsonschema.Compile(filepath.Join("..", "..", "..", "schemas", "save.schema.json"))
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "world.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := schema.Validate(v); err != nil {
		t.Fatalf("schema validate: %v", err)
	}
}
