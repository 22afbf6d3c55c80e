package main

import (
	"bufio"
	"log"
	"os"
	"strings"

	"voxfab.dev/internal/protocol"
	"voxfab.dev/internal/sim/world"
)

// runConsole feeds stdin slash commands into the simulation as command
// intents and prints the results. Lines without a leading slash are
// ignored.
func runConsole(w *world.World, logger *log.Logger) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || !strings.HasPrefix(line, "/") {
			continue
		}
		reply := make(chan protocol.ResultMsg, 1)
		w.SubmitIntent(protocol.IntentMsg{
			BaseMessage: protocol.BaseMessage{Type: protocol.TypeIntent, ProtocolVersion: protocol.Version},
			Kind:        protocol.IntentCommand,
			Text:        line,
		}, reply)
		res := <-reply
		if res.OK {
			logger.Printf("ok")
		} else if res.Code != "" {
			logger.Printf("%s: %s", res.Code, res.Message)
		} else {
			logger.Printf("dropped")
		}
	}
}
