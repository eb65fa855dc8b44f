package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"garden-link/types"
	"garden-link/utils"
)

const (
	wsSendQueue    = 16
	wsWriteTimeout = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// local panel; allow all
		return true
	},
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type samplePayload struct {
	Value      int            `json:"value"`
	CapturedAt time.Time      `json:"captured_at"`
	Category   types.Category `json:"category"`
}

type statePayload struct {
	State  types.ConnectionState `json:"state"`
	Detail string                `json:"detail"`
	Status string                `json:"status"`
}

// WSClient owns one connection; a writer goroutine drains its queue.
type WSClient struct {
	conn *websocket.Conn
	send chan []byte
}

// WSHub pushes link events to panel clients. It is registered as a link
// observer, so Broadcast must never block.
type WSHub struct {
	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

func NewWSHub() *WSHub {
	return &WSHub{clients: make(map[*WSClient]struct{})}
}

func (h *WSHub) Add(conn *websocket.Conn) *WSClient {
	c := &WSClient{conn: conn, send: make(chan []byte, wsSendQueue)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	go c.writeLoop()
	return c
}

func (h *WSHub) Remove(c *WSClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	_ = c.conn.Close()
}

func (h *WSHub) Broadcast(msg WSMessage) {
	// Marshal once for consistency across clients
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.enqueue(b)
	}
}

func (c *WSClient) enqueue(b []byte) {
	select {
	case c.send <- b:
	default:
	}
}

func (c *WSClient) push(msg WSMessage) {
	if b, err := json.Marshal(msg); err == nil {
		c.enqueue(b)
	}
}

func (h *WSHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func stateMessage(state types.ConnectionState, detail string) WSMessage {
	return WSMessage{Type: "state", Data: statePayload{
		State:  state,
		Detail: detail,
		Status: utils.StatusText(state, detail),
	}}
}

func sampleMessage(sample types.TelemetrySample, category types.Category) WSMessage {
	return WSMessage{Type: "sample", Data: samplePayload{
		Value:      sample.Value,
		CapturedAt: sample.CapturedAt,
		Category:   category,
	}}
}

func (h *WSHub) OnConnectionStateChanged(state types.ConnectionState, detail string) {
	h.Broadcast(stateMessage(state, detail))
}

func (h *WSHub) OnSample(sample types.TelemetrySample, category types.Category) {
	h.Broadcast(sampleMessage(sample, category))
}

func (c *WSClient) writeLoop() {
	for b := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			_ = c.conn.Close()
			for range c.send {
			}
			return
		}
	}
}

func (s *Server) handleWSSamples(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := s.samples.Add(conn)

	// Greet with the current state and reading so a new panel is not blank.
	st := s.link.Status()
	client.push(stateMessage(st.State, st.Detail))
	if st.LastSample != nil {
		client.push(sampleMessage(*st.LastSample, st.Category))
	}

	// Keep reading until client disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.samples.Remove(client)
			return
		}
	}
}
