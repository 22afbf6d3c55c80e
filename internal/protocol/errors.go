package protocol

// Stable error codes carried in RESULT messages.
const (
	ErrBadMessage     = "E_BAD_MESSAGE"
	ErrBadVersion     = "E_BAD_VERSION"
	ErrUnknownIntent  = "E_UNKNOWN_INTENT"
	ErrUnknownCommand = "E_UNKNOWN_COMMAND"
	ErrBadArgs        = "E_BAD_ARGS"
	ErrRecipeConflict = "E_RECIPE_CONFLICT"
	ErrSaveWrite      = "E_SAVE_WRITE"
	ErrSaveParse      = "E_SAVE_PARSE"
	ErrSaveVersion    = "E_SAVE_VERSION"
	ErrSlotNotFound   = "E_SLOT_NOT_FOUND"
	ErrInternal       = "E_INTERNAL"
)

var knownCodes = map[string]bool{
	ErrBadMessage:     true,
	ErrBadVersion:     true,
	ErrUnknownIntent:  true,
	ErrUnknownCommand: true,
	ErrBadArgs:        true,
	ErrRecipeConflict: true,
	ErrSaveWrite:      true,
	ErrSaveParse:      true,
	ErrSaveVersion:    true,
	ErrSlotNotFound:   true,
	ErrInternal:       true,
}

func IsKnownCode(code string) bool { return knownCodes[code] }
