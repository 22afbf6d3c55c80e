// Package save reads and writes versioned world save documents. Writes
// are atomic: temp file, fsync, rename. Item and block ids are stored as
// namespaced strings so interner tables can be rebuilt across versions.
package save

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const Version = "0.2.0"

var (
	ErrWrite   = errors.New("save write failure")
	ErrParse   = errors.New("save parse failure")
	ErrVersion = errors.New("save version mismatch")
)

type Document struct {
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
	Seed      int64  `json:"seed"`
	Tick      uint64 `json:"tick"`
	Mode      string `json:"mode"`

	Player            PlayerState       `json:"player"`
	Inventory         []SlotState       `json:"inventory"`
	PlatformInventory map[string]int    `json:"platform_inventory"`
	World             map[string]string `json:"world"`
	Machines          []MachineState    `json:"machines"`
	Quests            QuestState        `json:"quests"`
	Achievements      []Achievement     `json:"achievements,omitempty"`
}

type PlayerState struct {
	Pos      [3]float64 `json:"pos"`
	Yaw      float64    `json:"yaw"`
	Selected int        `json:"selected"`
}

type SlotState struct {
	Slot  int    `json:"slot"`
	Item  string `json:"item"`
	Count int    `json:"count"`
}

// MachineState is a tagged union over machine kinds: Kind is the
// discriminator, Belt only appears for conveyors, Fuel only for
// fuel-burning machines.
type MachineState struct {
	Kind      string      `json:"kind"`
	Item      string      `json:"item"`
	Handle    string      `json:"handle"`
	Pos       [3]int      `json:"pos"`
	Facing    string      `json:"facing"`
	State     string      `json:"state,omitempty"`
	Progress  float64     `json:"progress,omitempty"`
	TickCount uint32      `json:"tick_count,omitempty"`
	Inputs    []SlotState `json:"inputs,omitempty"`
	Outputs   []SlotState `json:"outputs,omitempty"`
	Fuel      *SlotState  `json:"fuel,omitempty"`
	Recipe    string      `json:"recipe,omitempty"`
	Belt      *BeltState  `json:"belt,omitempty"`
}

type BeltState struct {
	Shape           string          `json:"shape"`
	OutDir          string          `json:"out_dir"`
	LastOutputIndex int             `json:"last_output_index,omitempty"`
	LastInputSource int             `json:"last_input_source,omitempty"`
	Items           []BeltItemState `json:"items,omitempty"`
}

type BeltItemState struct {
	Item     string  `json:"item"`
	Progress float64 `json:"progress"`
	Lateral  float64 `json:"lateral"`
}

type QuestState struct {
	TutorialStep int            `json:"tutorial_step"`
	QuestIndex   int            `json:"quest_index"`
	Delivered    map[string]int `json:"delivered,omitempty"`
	Completed    []string       `json:"completed,omitempty"`
	Claimed      []string       `json:"claimed,omitempty"`
}

type Achievement struct {
	ID           string `json:"id"`
	UnlockedTick uint64 `json:"unlocked_tick"`
}

// Store persists save documents as one JSON file per slot under a
// directory root.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) path(slot string) string {
	if slot == "" {
		slot = "world"
	}
	return filepath.Join(s.dir, slot+".json")
}

// Save writes atomically: marshal, write to a temp file alongside the
// target, fsync, rename. A crash leaves either the old or the new file.
func (s *Store) Save(slot string, doc *Document) error {
	doc.Version = Version
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	raw = append(raw, '\n')

	target := s.path(slot)
	tmp, err := os.CreateTemp(s.dir, "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// Load parses and version-checks one slot. Current-version documents
// only; anything else is refused without touching the running world.
func (s *Store) Load(slot string) (*Document, error) {
	raw, err := os.ReadFile(s.path(slot))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	// Check the version before a full parse, so a format change in the
	// body still reports a version mismatch rather than a parse error.
	var header struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("%w: have %q, want %q", ErrVersion, header.Version, Version)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if doc.PlatformInventory == nil {
		doc.PlatformInventory = map[string]int{}
	}
	if doc.World == nil {
		doc.World = map[string]string{}
	}
	if doc.Mode == "" {
		doc.Mode = "survival"
	}
	return &doc, nil
}

// Slots lists the save slots present in the store, sorted.
func (s *Store) Slots() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		out = append(out, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(out)
	return out, nil
}
