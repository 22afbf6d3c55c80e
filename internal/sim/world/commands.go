package world

import (
	"errors"
	"strconv"
	"strings"

	"voxfab.dev/internal/persistence/save"
	"voxfab.dev/internal/protocol"
)

// Saver persists and restores save documents. IO happens outside the
// tick loop goroutine's hot path only for autosaves; slash commands run
// it synchronously.
type Saver interface {
	Save(slot string, doc *save.Document) error
	Load(slot string) (*save.Document, error)
}

func (w *World) SetSaver(s Saver) { w.saver = s }

// executeCommand parses and runs one slash command. Unlike gameplay
// intents, commands do surface error codes.
func (w *World) executeCommand(text string) protocol.ResultMsg {
	text = strings.TrimSpace(strings.TrimPrefix(text, "/"))
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return errResult(protocol.ErrBadArgs, "empty command")
	}
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "tp":
		pos, ok := parsePos(args)
		if !ok {
			return errResult(protocol.ErrBadArgs, "usage: /tp x y z")
		}
		w.player.Pos = [3]float64{float64(pos.X), float64(pos.Y), float64(pos.Z)}
		return okResult()
	case "setblock":
		if len(args) != 4 {
			return errResult(protocol.ErrBadArgs, "usage: /setblock x y z block")
		}
		pos, ok := parsePos(args[:3])
		if !ok {
			return errResult(protocol.ErrBadArgs, "usage: /setblock x y z block")
		}
		block, ok := w.resolveBlock(args[3])
		if !ok {
			return errResult(protocol.ErrBadArgs, "unknown block: "+args[3])
		}
		w.chunks.SetBlock(pos, block)
		return okResult()
	case "give":
		if len(args) < 1 || len(args) > 2 {
			return errResult(protocol.ErrBadArgs, "usage: /give item [count]")
		}
		item := args[0]
		if _, ok := w.cat.Items.Defs[item]; !ok {
			return errResult(protocol.ErrBadArgs, "unknown item: "+item)
		}
		count := 1
		if len(args) == 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return errResult(protocol.ErrBadArgs, "bad count: "+args[1])
			}
			count = n
		}
		w.creditOrSpill(item, count)
		return okResult()
	case "save":
		slot := w.cfg.SaveSlot
		if len(args) == 1 {
			slot = args[0]
		}
		return w.saveToSlot(slot)
	case "load":
		slot := w.cfg.SaveSlot
		if len(args) == 1 {
			slot = args[0]
		}
		return w.loadFromSlot(slot)
	case "clear":
		w.player.Inv.Clear()
		return okResult()
	case "creative":
		w.player.Mode = ModeCreative
		return okResult()
	case "survival":
		w.player.Mode = ModeSurvival
		return okResult()
	}
	return errResult(protocol.ErrUnknownCommand, "unknown command: "+cmd)
}

func (w *World) saveToSlot(slot string) protocol.ResultMsg {
	if w.saver == nil {
		return errResult(protocol.ErrSaveWrite, "no save backend configured")
	}
	doc := w.ExportSave()
	if err := w.saver.Save(slot, doc); err != nil {
		w.logger.Printf("save %q failed: %v", slot, err)
		return errResult(protocol.ErrSaveWrite, err.Error())
	}
	return okResult()
}

// loadFromSlot rejects bad saves without touching current state.
func (w *World) loadFromSlot(slot string) protocol.ResultMsg {
	if w.saver == nil {
		return errResult(protocol.ErrSaveParse, "no save backend configured")
	}
	doc, err := w.saver.Load(slot)
	if err != nil {
		w.logger.Printf("load %q failed: %v", slot, err)
		switch {
		case errors.Is(err, save.ErrVersion):
			return errResult(protocol.ErrSaveVersion, err.Error())
		default:
			return errResult(protocol.ErrSaveParse, err.Error())
		}
	}
	if err := w.ImportSave(doc); err != nil {
		w.logger.Printf("load %q failed: %v", slot, err)
		return errResult(protocol.ErrSaveParse, err.Error())
	}
	return okResult()
}

func parsePos(args []string) (Vec3i, bool) {
	if len(args) != 3 {
		return Vec3i{}, false
	}
	x, err1 := strconv.Atoi(args[0])
	y, err2 := strconv.Atoi(args[1])
	z, err3 := strconv.Atoi(args[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return Vec3i{}, false
	}
	return Vec3i{X: x, Y: y, Z: z}, true
}

// resolveBlock accepts either a block palette name or an item id whose
// definition places a block.
func (w *World) resolveBlock(name string) (uint16, bool) {
	if id, ok := w.cat.Blocks.Index[name]; ok {
		return id, true
	}
	if def, ok := w.cat.Items.Defs[name]; ok && def.PlaceAs != "" {
		id, ok := w.cat.Blocks.Index[def.PlaceAs]
		return id, ok
	}
	return 0, false
}
