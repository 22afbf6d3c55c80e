package protocol

// SnapshotMsg is the per-tick observation sent to clients. Chunk
// payloads only appear for chunks dirtied since the previous snapshot.
type SnapshotMsg struct {
	BaseMessage
	Tick        uint64          `json:"tick"`
	StateDigest string          `json:"state_digest"`
	Chunks      []ChunkObs      `json:"chunks,omitempty"`
	Machines    []MachineObs    `json:"machines,omitempty"`
	Events      []EventObs      `json:"events,omitempty"`
	Player      PlayerObs       `json:"player"`
	Platform    []ItemCountObs  `json:"platform,omitempty"`
	Progression *ProgressionObs `json:"progression,omitempty"`
}

type ChunkObs struct {
	CX     int      `json:"cx"`
	CZ     int      `json:"cz"`
	Blocks []uint16 `json:"blocks"`
	Hash   string   `json:"hash"`
}

type MachineObs struct {
	Handle   string        `json:"handle"`
	Kind     string        `json:"kind"`
	Item     string        `json:"item"`
	Pos      [3]int        `json:"pos"`
	Facing   string        `json:"facing"`
	State    string        `json:"state"`
	Progress float64       `json:"progress"`
	Inputs   []SlotObs     `json:"inputs,omitempty"`
	Outputs  []SlotObs     `json:"outputs,omitempty"`
	Fuel     *SlotObs      `json:"fuel,omitempty"`
	Shape    string        `json:"shape,omitempty"`
	OutDir   string        `json:"out_dir,omitempty"`
	Items    []BeltItemObs `json:"items,omitempty"`
}

type BeltItemObs struct {
	Item     string  `json:"item"`
	Progress float64 `json:"progress"`
	Lateral  float64 `json:"lateral"`
}

type SlotObs struct {
	Item  string `json:"item,omitempty"`
	Count int    `json:"count,omitempty"`
}

type ItemCountObs struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

type EventObs struct {
	Kind   string `json:"kind"`
	Pos    [3]int `json:"pos,omitempty"`
	Item   string `json:"item,omitempty"`
	N      int    `json:"n,omitempty"`
	Text   string `json:"text,omitempty"`
	Handle string `json:"handle,omitempty"`
}

type PlayerObs struct {
	Pos       [3]float64 `json:"pos"`
	Yaw       float64    `json:"yaw"`
	Selected  int        `json:"selected"`
	Inventory []SlotObs  `json:"inventory"`
	Mode      string     `json:"mode"`
	UI        string     `json:"ui"`
}

type ProgressionObs struct {
	TutorialStep int              `json:"tutorial_step"`
	TutorialDone bool             `json:"tutorial_done"`
	Quests       []QuestObs       `json:"quests"`
	Achievements []AchievementObs `json:"achievements,omitempty"`
}

type AchievementObs struct {
	ID           string `json:"id"`
	UnlockedTick uint64 `json:"unlocked_tick"`
}

type QuestObs struct {
	ID        string `json:"id"`
	State     string `json:"state"`
	Progress  int    `json:"progress"`
	Required  int    `json:"required"`
	Claimable bool   `json:"claimable"`
}
