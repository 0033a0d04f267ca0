package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/unklstewy/navmap-online/pkg/log"
)

const (
	// Time allowed to write a message to the client.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the client.
	pongWait = 60 * time.Second

	// Send pings to client with this period. Must be less than pongWait.
	pingPeriod = 15 * time.Second

	// Maximum message size allowed from client.
	maxMessageSize = 512

	subscriberBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Notification is pushed to websocket clients when the controller reports
// new data or a changed connection.
type Notification struct {
	Type          string    `json:"type"`
	Title         string    `json:"title,omitempty"`
	Text          string    `json:"text,omitempty"`
	LoadAll       bool      `json:"load_all,omitempty"`
	KeepSelection bool      `json:"keep_selection,omitempty"`
	Time          time.Time `json:"time"`
}

// Hub fans controller notifications out to subscribers. It implements
// online.Listener and never blocks the controller: slow subscribers lose
// messages.
type Hub struct {
	mu          sync.Mutex
	subscribers map[uuid.UUID]chan Notification
	lg          *log.Logger
}

func NewHub(lg *log.Logger) *Hub {
	return &Hub{
		subscribers: make(map[uuid.UUID]chan Notification),
		lg:          lg,
	}
}

func (h *Hub) Subscribe() (uuid.UUID, <-chan Notification) {
	id := uuid.New()
	ch := make(chan Notification, subscriberBuffer)

	h.mu.Lock()
	h.subscribers[id] = ch
	h.mu.Unlock()
	return id, ch
}

func (h *Hub) Unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subscribers[id]; ok {
		close(ch)
		delete(h.subscribers, id)
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

func (h *Hub) publish(n Notification) {
	n.Time = time.Now().UTC()

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subscribers {
		select {
		case ch <- n:
		default:
			h.lg.Warn("Dropping notification for slow subscriber", "subscriber", id, "type", n.Type)
		}
	}
}

func (h *Hub) OnlineServersUpdated(loadAll, keepSelection bool) {
	h.publish(Notification{Type: "servers", LoadAll: loadAll, KeepSelection: keepSelection})
}

func (h *Hub) OnlineClientAndAtcUpdated(loadAll, keepSelection bool) {
	h.publish(Notification{Type: "clients", LoadAll: loadAll, KeepSelection: keepSelection})
}

func (h *Hub) OnlineNetworkChanged() {
	h.publish(Notification{Type: "network"})
}

func (h *Hub) StatusMessage(title, text string) {
	h.publish(Notification{Type: "status", Title: title, Text: text})
}

func (h *Hub) StatusFileMessage(text string) {
	h.publish(Notification{Type: "status_file", Text: text})
}

// ServeWS upgrades the request and streams notifications until the client
// goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.lg.Warn("Websocket upgrade failed", "error", err)
		return
	}

	id, events := h.Subscribe()
	lg := h.lg.With("subscriber", id)
	lg.Info("Websocket client connected", "remote", r.RemoteAddr)

	closed := make(chan struct{})
	go h.readLoop(conn, closed)
	h.writeLoop(conn, events, closed)

	h.Unsubscribe(id)
	conn.Close()
	lg.Info("Websocket client disconnected")
}

// readLoop only handles control frames and detects a closed connection.
func (h *Hub) readLoop(conn *websocket.Conn, closed chan struct{}) {
	defer close(closed)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, events <-chan Notification, closed <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case n, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(n); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
