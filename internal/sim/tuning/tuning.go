package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz"`

	ChunkSize   int `yaml:"chunk_size"`
	ChunkHeight int `yaml:"chunk_height"`
	ViewRadius  int `yaml:"view_radius"`
	GroundLevel int `yaml:"ground_level"`

	Conveyor ConveyorTuning `yaml:"conveyor"`
	Platform PlatformTuning `yaml:"platform"`

	SaveDir          string `yaml:"save_dir"`
	AutoSaveSeconds  int    `yaml:"auto_save_seconds"`
	EventLogEnabled  bool   `yaml:"event_log_enabled"`
	StateDigestEvery int    `yaml:"state_digest_every"`
}

type ConveyorTuning struct {
	// Seconds for an item to traverse one belt.
	TravelSeconds float64 `yaml:"travel_seconds"`
	ItemSpacing   float64 `yaml:"item_spacing"`
	MaxItems      int     `yaml:"max_items"`
	// Lateral offset decay in offset units per second.
	MergeDecayPerSecond float64 `yaml:"merge_decay_per_second"`
}

type PlatformTuning struct {
	Size   int    `yaml:"size"`
	Center [3]int `yaml:"center"`
}

// SaveDirEnv overrides the configured save directory when set.
const SaveDirEnv = "VOXFAB_SAVE_DIR"

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if env := os.Getenv(SaveDirEnv); env != "" {
		t.SaveDir = env
	}
	return t, nil
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:  60,
		ChunkSize:   16,
		ChunkHeight: 32,
		ViewRadius:  3,
		GroundLevel: 7,
		Conveyor: ConveyorTuning{
			TravelSeconds:       1.0,
			ItemSpacing:         0.33,
			MaxItems:            3,
			MergeDecayPerSecond: 3.0,
		},
		Platform: PlatformTuning{
			Size:   12,
			Center: [3]int{8, 8, 26},
		},
		SaveDir:          "./saves",
		AutoSaveSeconds:  60,
		EventLogEnabled:  true,
		StateDigestEvery: 1,
	}
}
