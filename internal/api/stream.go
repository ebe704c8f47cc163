// Step stream: each published step is pushed to websocket clients as one
// JSON text message. Slow clients lose messages rather than stall the engine.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/privacy-world/internal/engine"
)

const (
	maxStreamConns = 16
	clientQueue    = 8
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
)

// StreamMessage is the envelope sent to stream clients.
type StreamMessage struct {
	Type     string           `json:"type"` // "step"
	Timestep uint64           `json:"timestep"`
	Stats    engine.StepStats `json:"stats"`
	Agents   []agentView      `json:"agents,omitempty"`
}

type client struct {
	out    chan []byte
	agents bool // include per-agent snapshots
}

// hub fans messages out to connected clients.
type hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

func newHub() *hub {
	return &hub{clients: make(map[*client]struct{})}
}

func (h *hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || len(h.clients) >= maxStreamConns {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.out)
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) broadcast(rec engine.StepRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) == 0 {
		return
	}

	var brief, full []byte
	for c := range h.clients {
		var msg []byte
		if c.agents {
			if full == nil {
				full = encodeStep(rec, true)
			}
			msg = full
		} else {
			if brief == nil {
				brief = encodeStep(rec, false)
			}
			msg = brief
		}
		select {
		case c.out <- msg:
		default:
			// Queue full; drop this step for the slow client.
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.out)
	}
}

func encodeStep(rec engine.StepRecord, withAgents bool) []byte {
	msg := StreamMessage{Type: "step", Timestep: rec.Timestep, Stats: rec.Stats}
	if withAgents {
		msg.Agents = make([]agentView, len(rec.Agents))
		for i, a := range rec.Agents {
			msg.Agents[i] = viewOf(a)
		}
	}
	b, err := json.Marshal(msg)
	if err != nil {
		slog.Error("encode step failed", "timestep", rec.Timestep, "error", err)
		return nil
	}
	return b
}

// handleStream upgrades to a websocket. ?agents=true adds per-agent
// snapshots to every message. The latest step is sent on connect.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	c := &client{
		out:    make(chan []byte, clientQueue),
		agents: r.URL.Query().Get("agents") == "true",
	}
	if !s.hub.add(c) {
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.hub.remove(c)
		return
	}
	defer conn.Close()
	slog.Info("stream client connected", "remote", r.RemoteAddr, "agents", c.agents)

	if rec, ok := s.Latest(); ok {
		if b := encodeStep(rec, c.agents); b != nil {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				s.hub.remove(c)
				return
			}
		}
	}

	// Reader: clients send nothing meaningful, but reading handles pongs
	// and notices the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pongWait / 2)
	defer ping.Stop()
	defer s.hub.remove(c)

	for {
		select {
		case b, ok := <-c.out:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"),
					time.Now().Add(time.Second))
				return
			}
			if b == nil {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-done:
			slog.Info("stream client disconnected", "remote", r.RemoteAddr)
			return
		}
	}
}
