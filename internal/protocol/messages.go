package protocol

// HelloMsg is the first message a client sends after connecting.
type HelloMsg struct {
	BaseMessage
	ClientName string `json:"client_name,omitempty"`
	SaveSlot   string `json:"save_slot,omitempty"`
}

// WelcomeMsg is the server's reply to a valid HELLO.
type WelcomeMsg struct {
	BaseMessage
	Seed         int64    `json:"seed"`
	TickRateHz   int      `json:"tick_rate_hz"`
	Spawn        [3]int   `json:"spawn"`
	ItemPalette  []string `json:"item_palette"`
	BlockPalette []string `json:"block_palette"`
}

// Intent kinds.
const (
	IntentPlaceBlock      = "place_block"
	IntentBreakBlock      = "break_block"
	IntentInteract        = "interact"
	IntentSelectSlot      = "select_slot"
	IntentMove            = "move"
	IntentRotatePlacement = "rotate_placement"
	IntentToggleUI        = "toggle_ui"
	IntentTeleport        = "teleport"
	IntentCommand         = "command"
	IntentClaimReward     = "claim_reward"
)

// IntentMsg carries one player intent. Fields beyond Kind are
// interpreted per kind; unused fields stay zero.
type IntentMsg struct {
	BaseMessage
	Kind    string     `json:"kind"`
	Pos     [3]int     `json:"pos,omitempty"`
	Face    [3]int     `json:"face,omitempty"`
	Yaw     float64    `json:"yaw,omitempty"`
	Slot    int        `json:"slot,omitempty"`
	UI      string     `json:"ui,omitempty"`
	Text    string     `json:"text,omitempty"`
	QuestID string     `json:"quest_id,omitempty"`
	Delta   [3]float64 `json:"delta,omitempty"`
}

// ResultMsg reports the outcome of an intent or command.
type ResultMsg struct {
	BaseMessage
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
