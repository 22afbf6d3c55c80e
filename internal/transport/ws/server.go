package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"voxfab.dev/internal/protocol"
	"voxfab.dev/internal/sim/catalogs"
	"voxfab.dev/internal/sim/tuning"
	"voxfab.dev/internal/sim/world"
)

// Server bridges websocket view clients to the simulation. Clients send
// INTENT messages and receive RESULT replies plus the per-tick SNAPSHOT
// broadcast. Slow clients drop snapshots rather than stalling the loop.
type Server struct {
	world *world.World
	tun   tuning.Tuning
	cat   *catalogs.Catalogs
	seed  int64
	log   *log.Logger

	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[chan []byte]bool
}

func NewServer(w *world.World, tun tuning.Tuning, cat *catalogs.Catalogs, seed int64, logger *log.Logger) *Server {
	s := &Server{
		world: w,
		tun:   tun,
		cat:   cat,
		seed:  seed,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		subs: map[chan []byte]bool{},
	}
	w.SetSnapshotHook(s.Broadcast)
	return s
}

// Broadcast fans one snapshot out to every subscriber. Called from the
// world loop goroutine.
func (s *Server) Broadcast(snap *protocol.SnapshotMsg) {
	b, err := json.Marshal(snap)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- b:
		default:
		}
	}
}

func (s *Server) subscribe(ch chan []byte) {
	s.mu.Lock()
	s.subs[ch] = true
	s.mu.Unlock()
}

func (s *Server) unsubscribe(ch chan []byte) {
	s.mu.Lock()
	delete(s.subs, ch)
	s.mu.Unlock()
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		out, ok := s.handshake(conn)
		if !ok {
			return
		}
		s.subscribe(out)
		defer s.unsubscribe(out)

		done := make(chan struct{})
		defer close(done)

		replies := make(chan protocol.ResultMsg, 64)

		// Writer goroutine: snapshots and intent results share the socket.
		go func() {
			for {
				select {
				case <-done:
					return
				case b, chOK := <-out:
					if !chOK {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						return
					}
				case res := <-replies:
					b, err := json.Marshal(res)
					if err != nil {
						continue
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						return
					}
				}
			}
		}()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeIntent {
				continue
			}
			var intent protocol.IntentMsg
			if err := json.Unmarshal(msg, &intent); err != nil {
				continue
			}
			if intent.ProtocolVersion != protocol.Version {
				continue
			}
			s.world.SubmitIntent(intent, replies)
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) (chan []byte, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil, false
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil, false
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return nil, false
	}

	welcome := protocol.WelcomeMsg{
		BaseMessage:  protocol.BaseMessage{Type: protocol.TypeWelcome, ProtocolVersion: protocol.Version},
		Seed:         s.seed,
		TickRateHz:   s.tun.TickRateHz,
		Spawn:        world.Spawn(),
		ItemPalette:  s.cat.Items.Palette,
		BlockPalette: s.cat.Blocks.Palette,
	}
	b, err := json.Marshal(welcome)
	if err != nil {
		return nil, false
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return nil, false
	}

	return make(chan []byte, 16), true
}
